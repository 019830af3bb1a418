package ancs

import "time"

// Timer is an armed single-shot timer.
type Timer interface {
	// Stop disarms the timer. It reports whether a pending expiry was cancelled.
	Stop() bool
}

// AfterFunc arms a timer calling fire after d. fire runs outside the engine loop and
// must only post a wake-up.
type AfterFunc func(d time.Duration, fire func()) Timer

// RealTimers arms timers with time.AfterFunc.
func RealTimers(d time.Duration, fire func()) Timer {
	return time.AfterFunc(d, fire)
}

// oneShot is a re-armable timer slot owned by the engine loop. Each arming gets a new
// generation so that a wake-up posted by a superseded arming can be recognised and dropped.
type oneShot struct {
	d     time.Duration
	after AfterFunc
	post  func(gen uint64)

	t     Timer
	gen   uint64
	armed bool
}

func newOneShot(d time.Duration, after AfterFunc, post func(gen uint64)) *oneShot {
	return &oneShot{d: d, after: after, post: post}
}

// arm (re)starts the countdown.
func (o *oneShot) arm() {
	o.stop()
	o.gen++
	gen := o.gen
	o.armed = true
	o.t = o.after(o.d, func() { o.post(gen) })
}

// stop disarms the countdown; a wake-up already in flight becomes stale.
func (o *oneShot) stop() {
	if o.t != nil {
		o.t.Stop()
		o.t = nil
	}
	o.armed = false
}

// expired consumes a wake-up for gen. It reports whether the wake-up belongs to the
// current arming, disarming the slot if so.
func (o *oneShot) expired(gen uint64) bool {
	if !o.armed || gen != o.gen {
		return false
	}
	o.armed = false
	o.t = nil
	return true
}
