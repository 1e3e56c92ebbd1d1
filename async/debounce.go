package async

import (
	"context"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

// Defaults for search-as-you-type.
const (
	DefaultQuietWindow = 300 * time.Millisecond
	DefaultMinLength   = 2
)

// Debouncer calls fn with the settled input once no new input has arrived
// for the quiet window. Input shorter than the minimum length cancels any
// pending or running call and never reaches fn.
type Debouncer struct {
	wait   time.Duration
	minLen int
	fn     func(ctx context.Context, q string)

	mu     sync.Mutex
	gen    uint64
	timer  *time.Timer
	cancel context.CancelFunc
	closed bool
	wg     sync.WaitGroup
}

func NewDebouncer(wait time.Duration, minLen int, fn func(ctx context.Context, q string)) *Debouncer {
	if wait <= 0 {
		wait = DefaultQuietWindow
	}
	if minLen <= 0 {
		minLen = DefaultMinLength
	}
	return &Debouncer{wait: wait, minLen: minLen, fn: fn}
}

// Input records the latest raw input. It reports whether the input is long
// enough to be searched for.
func (d *Debouncer) Input(raw string) bool {
	q := strings.TrimSpace(raw)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	d.gen++
	d.stopLocked()
	if utf8.RuneCountInString(q) < d.minLen {
		return false
	}
	gen := d.gen
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen, q) })
	return true
}

func (d *Debouncer) fire(gen uint64, q string) {
	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	d.cancel = cancel
	d.wg.Add(1)
	d.mu.Unlock()

	defer d.wg.Done()
	defer cancel()
	d.fn(ctx, q)
}

func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Close cancels pending work and waits for a running call to return.
func (d *Debouncer) Close() {
	d.mu.Lock()
	d.closed = true
	d.stopLocked()
	d.mu.Unlock()
	d.wg.Wait()
}
