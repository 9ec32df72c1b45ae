package planning

import "time"

// timeNow is swapped in tests to freeze step timestamps.
var timeNow = time.Now
