package scheduling

import (
	"sync"
	"time"
)

// IDSource hands out appointment ids derived from the booking time.
type IDSource interface {
	NextID(now time.Time) int64
}

// IDFunc adapts a function to IDSource.
type IDFunc func(now time.Time) int64

func (f IDFunc) NextID(now time.Time) int64 { return f(now) }

// UnixMilliIDs uses the millisecond timestamp as is.
var UnixMilliIDs IDSource = IDFunc(func(now time.Time) int64 { return now.UnixMilli() })

// MonotonicIDs yields millisecond timestamps, bumped by one when two calls
// land in the same millisecond.
type MonotonicIDs struct {
	mu   sync.Mutex
	last int64
}

func (m *MonotonicIDs) NextID(now time.Time) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := now.UnixMilli()
	if id <= m.last {
		id = m.last + 1
	}
	m.last = id
	return id
}
