// Package timer provides the debounce timer that paces preview
// captures. It fires once per period when idle; PingAfter pulls the
// next fire closer, never pushes it out.
package timer

import (
	"time"
)

// Timer fires on C once per period. PingAfter(d) reschedules the next
// fire to at most d from now; if the next fire is already closer it is
// left alone. At most one fire is ever pending on C, so a slow
// consumer sees bursts collapse into a single tick.
type Timer struct {
	period   time.Duration
	fires    chan struct{}
	override chan time.Duration
	quit     chan struct{}
}

// C is the fire channel.
func (t *Timer) C() <-chan struct{} {
	return t.fires
}

// New creates and starts a timer with the given period.
func New(period time.Duration) *Timer {
	t := &Timer{
		period:   period,
		fires:    make(chan struct{}, 1),
		override: make(chan time.Duration, 1),
		quit:     make(chan struct{}),
	}
	go t.run()
	return t
}

// PingAfter asks for a fire no later than d from now. A shorter
// pending deadline wins; repeated pings keep taking the minimum.
func (t *Timer) PingAfter(d time.Duration) {
	for {
		select {
		case t.override <- d:
			return
		case <-t.quit:
			return
		default:
		}
		// Channel full: fold this ping into the queued one. The queued
		// delay has not reached run() yet, so the smaller of the two
		// must survive or a promised early fire would be lost.
		select {
		case old := <-t.override:
			if old < d {
				d = old
			}
		default:
		}
	}
}

// Stop terminates the timer. C never fires afterwards.
func (t *Timer) Stop() {
	close(t.quit)
}

func (t *Timer) run() {
	deadline := time.Now().Add(t.period)
	tm := time.NewTimer(t.period)
	defer tm.Stop()

	for {
		select {
		case d := <-t.override:
			nd := time.Now().Add(d)
			if nd.Before(deadline) {
				deadline = nd
				if !tm.Stop() {
					select {
					case <-tm.C:
					default:
					}
				}
				tm.Reset(time.Until(deadline))
			}
		case <-tm.C:
			select {
			case t.fires <- struct{}{}:
			default:
			}
			deadline = time.Now().Add(t.period)
			tm.Reset(t.period)
		case <-t.quit:
			return
		}
	}
}
