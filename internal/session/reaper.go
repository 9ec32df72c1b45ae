package session

import "time"

// Reap deletes sessions whose last update is before cutoff.
func (s *Store[P]) Reap(cutoff time.Time) int {
	var stale []string
	for _, sess := range s.Sessions() {
		if sess.UpdatedAt.Before(cutoff) {
			stale = append(stale, sess.ID)
		}
	}
	n := 0
	for _, id := range stale {
		if s.Delete(id) {
			n++
		}
	}
	return n
}
