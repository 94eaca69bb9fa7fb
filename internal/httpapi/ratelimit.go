package httpapi

import (
	"sync"
	"time"
)

// loginLimiter throttles login attempts per client address using a sliding
// window of attempt timestamps. State lives in process memory only; losing
// it on restart is acceptable for a throttle.
type loginLimiter struct {
	mu       sync.Mutex
	win      time.Duration
	max      int
	attempts map[string][]time.Time
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newLoginLimiter(max int, window time.Duration) *loginLimiter {
	l := &loginLimiter{
		win:      window,
		max:      max,
		attempts: map[string][]time.Time{},
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

// IsLimited purges attempts older than the window for the address, then
// reports whether the limit is reached. A limited call records nothing; an
// allowed call records the current attempt.
func (l *loginLimiter) IsLimited(addr string) bool {
	now := l.now()
	cutoff := now.Add(-l.win)

	l.mu.Lock()
	defer l.mu.Unlock()

	recent := l.attempts[addr][:0]
	for _, ts := range l.attempts[addr] {
		if ts.After(cutoff) {
			recent = append(recent, ts)
		}
	}
	if len(recent) >= l.max {
		l.attempts[addr] = recent
		return true
	}
	l.attempts[addr] = append(recent, now)
	return false
}

func (l *loginLimiter) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.cleanup()
		case <-l.stopCh:
			return
		}
	}
}

// cleanup drops addresses whose attempts have all aged out.
func (l *loginLimiter) cleanup() {
	cutoff := l.now().Add(-l.win)
	l.mu.Lock()
	defer l.mu.Unlock()
	for addr, ts := range l.attempts {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(l.attempts, addr)
		}
	}
}

func (l *loginLimiter) Stop() {
	l.stopOnce.Do(func() { close(l.stopCh) })
}
