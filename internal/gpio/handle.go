package gpio

import "sync/atomic"

// sharedHandle is a reference-counted Handle.
//
// The cache holds one reference while the handle is in the map and every
// in-flight action holds one more. The underlying line is closed when the
// count reaches zero, so an eviction never pulls a line out from under an
// action that is still running on it.
type sharedHandle struct {
	handle    Handle
	direction Direction
	refs      atomic.Int32
}

// newSharedHandle wraps h with a single reference owned by the caller.
func newSharedHandle(h Handle, dir Direction) *sharedHandle {
	sh := &sharedHandle{handle: h, direction: dir}
	sh.refs.Store(1)
	return sh
}

// acquire takes an extra reference.
func (s *sharedHandle) acquire() {
	s.refs.Add(1)
}

// release drops a reference. The line is closed on the last one and the
// close error, if any, is returned to that caller.
func (s *sharedHandle) release() error {
	n := s.refs.Add(-1)
	if n < 0 {
		panic("gpio: sharedHandle released more times than acquired")
	}
	if n == 0 {
		return s.handle.Close()
	}
	return nil
}
