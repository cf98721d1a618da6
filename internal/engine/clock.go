package engine

import "time"

// Clock abstracts wall time so every window comparison is deterministic
// under test. Production wiring uses SystemClock.
type Clock interface {
	NowMs() int64
}

type systemClock struct{}

func (systemClock) NowMs() int64 { return time.Now().UnixMilli() }

func SystemClock() Clock { return systemClock{} }
