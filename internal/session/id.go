package session

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// newID builds "<prefix>_<unix seconds>_<8 lowercase alnum>".
// The suffix is taken from a random UUID with the dashes removed.
func newID(prefix string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%d_%s", prefix, timeNow().Unix(), suffix)
}
