package lifecycle

import (
	"sync/atomic"
	"time"
)

// Lifecycle is a tiny process lifecycle state holder shared across handlers.
// It is used for readiness draining during graceful shutdown.
type Lifecycle struct {
	draining atomic.Bool
	started  atomic.Int64
}

// New returns a lifecycle whose uptime starts now.
func New() *Lifecycle {
	l := &Lifecycle{}
	l.started.Store(time.Now().UnixNano())
	return l
}

func (l *Lifecycle) SetDraining(draining bool) {
	if l == nil {
		return
	}
	l.draining.Store(draining)
}

func (l *Lifecycle) IsDraining() bool {
	if l == nil {
		return false
	}
	return l.draining.Load()
}

// Uptime is zero for a lifecycle not created with New.
func (l *Lifecycle) Uptime() time.Duration {
	if l == nil {
		return 0
	}
	start := l.started.Load()
	if start == 0 {
		return 0
	}
	return time.Since(time.Unix(0, start))
}
