// Package timesync implements the server-authoritative timer-synchronization
// protocol. The server side is two pure helpers used when building status
// polls; Countdown is the reference client tracker that converges every
// client on the same absolute deadline despite clock skew and mid-exam
// duration changes.
package timesync

import "time"

const (
	// DefaultPollInterval is the status poll cadence.
	DefaultPollInterval = 5 * time.Second
	// DurationChangeDebounce delays adoption of a changed duration so the
	// displayed countdown does not snap by several minutes at once.
	DurationChangeDebounce = 2 * time.Second
	// DriftTolerance bounds the gap between the locally ticked countdown and
	// the authoritative value before an immediate correction is applied.
	DriftTolerance = 5 * time.Second
)

// Deadline returns the absolute end of the exam in server time.
func Deadline(start time.Time, durationMinutes int) time.Time {
	return start.Add(time.Duration(durationMinutes) * time.Minute)
}

// Remaining returns the time left until deadline, clamped at zero.
func Remaining(deadline, now time.Time) time.Duration {
	remaining := deadline.Sub(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// StatusSnapshot is the poll payload a client feeds into its Countdown.
type StatusSnapshot struct {
	ServerTime      time.Time
	StartTime       time.Time
	DurationMinutes int
}

// DurationChange is surfaced to the UI when the teacher adjusts the exam
// duration mid-flight.
type DurationChange struct {
	DeltaMinutes int
	NoticedAt    time.Time
}

// Countdown tracks the remaining exam time on a client. It recomputes the
// deadline from scratch on every poll (no incremental drift accumulation),
// ticks locally once per second between polls, and fires the finish callback
// exactly once when the countdown reaches zero.
//
// Countdown is not safe for concurrent use; drive it from a single loop.
type Countdown struct {
	deadline  time.Time // in local-clock terms, offset already folded in
	remaining time.Duration
	primed    bool
	finished  bool

	lastDuration  int
	pendingChange *DurationChange

	onFinish func()
	onNotice func(DurationChange)
}

// NewCountdown builds a tracker. onFinish fires once when the countdown hits
// zero; onNotice fires when a mid-exam duration change is first observed.
// Either callback may be nil.
func NewCountdown(onFinish func(), onNotice func(DurationChange)) *Countdown {
	return &Countdown{onFinish: onFinish, onNotice: onNotice}
}

// ApplyPoll folds one status poll into the tracker. localNow is the client's
// wall clock at the moment the poll response arrived.
func (c *Countdown) ApplyPoll(snap StatusSnapshot, localNow time.Time) {
	offset := snap.ServerTime.Sub(localNow)
	localDeadline := Deadline(snap.StartTime, snap.DurationMinutes).Add(-offset)

	if !c.primed {
		c.adopt(localDeadline, snap.DurationMinutes, localNow)
		c.primed = true
		return
	}

	if snap.DurationMinutes != c.lastDuration {
		if c.pendingChange == nil {
			change := DurationChange{
				DeltaMinutes: snap.DurationMinutes - c.lastDuration,
				NoticedAt:    localNow,
			}
			c.pendingChange = &change
			if c.onNotice != nil {
				c.onNotice(change)
			}
			return // keep the old deadline through the debounce window
		}
		if localNow.Sub(c.pendingChange.NoticedAt) >= DurationChangeDebounce {
			c.adopt(localDeadline, snap.DurationMinutes, localNow)
			c.pendingChange = nil
		}
		return
	}

	// Same duration: the recomputed deadline is authoritative, but only snap
	// the displayed countdown when it drifted past the tolerance. A change
	// reverted inside its debounce window was never adopted; drop the notice
	// so the next real change debounces from scratch.
	c.pendingChange = nil
	c.deadline = localDeadline
	authoritative := Remaining(c.deadline, localNow)
	drift := c.remaining - authoritative
	if drift < 0 {
		drift = -drift
	}
	if drift > DriftTolerance {
		c.setRemaining(authoritative)
	}
}

// Tick advances the local one-second display countdown between polls.
// It returns the remaining time after the tick.
func (c *Countdown) Tick() time.Duration {
	if c.finished {
		return 0
	}
	next := c.remaining - time.Second
	if next < 0 {
		next = 0
	}
	c.setRemaining(next)
	return c.remaining
}

// Remaining returns the currently displayed countdown value.
func (c *Countdown) Remaining() time.Duration { return c.remaining }

// Finished reports whether the countdown has reached zero.
func (c *Countdown) Finished() bool { return c.finished }

// PendingChange returns the duration change awaiting its debounce window, if any.
func (c *Countdown) PendingChange() *DurationChange { return c.pendingChange }

func (c *Countdown) adopt(localDeadline time.Time, durationMinutes int, localNow time.Time) {
	c.deadline = localDeadline
	c.lastDuration = durationMinutes
	c.setRemaining(Remaining(localDeadline, localNow))
}

func (c *Countdown) setRemaining(remaining time.Duration) {
	c.remaining = remaining
	if remaining == 0 && !c.finished {
		c.finished = true
		if c.onFinish != nil {
			c.onFinish()
		}
	}
}
