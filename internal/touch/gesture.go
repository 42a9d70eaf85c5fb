package touch

import (
	"fmt"
	"time"
)

const (
	DefaultDeadZone   = 5
	DefaultTapTimeout = 200 * time.Millisecond
)

// Sample is one polled contact.
type Sample struct {
	X, Y int
	At   time.Time
}

type Kind int

const (
	Tap Kind = iota
	Drag
)

func (k Kind) String() string {
	switch k {
	case Tap:
		return "tap"
	case Drag:
		return "drag"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Event is a classified gesture. X and Y are set for Tap, DX and DY for Drag.
type Event struct {
	Kind   Kind
	X, Y   int
	DX, DY int
}

func (e Event) String() string {
	if e.Kind == Drag {
		return fmt.Sprintf("drag(%d,%d)", e.DX, e.DY)
	}
	return fmt.Sprintf("tap(%d,%d)", e.X, e.Y)
}

// Classifier turns successive samples into events. It remembers only the
// previous sample, which a missing sample does not clear.
type Classifier struct {
	// Deltas smaller than DeadZone on an axis count as zero.
	DeadZone int
	// A sample arriving TapTimeout or later after the previous one is a new
	// tap whatever the distance.
	TapTimeout time.Duration

	prev *Sample
}

// NewClassifier returns a Classifier; non-positive arguments select the
// defaults.
func NewClassifier(deadZone int, tapTimeout time.Duration) *Classifier {
	if deadZone <= 0 {
		deadZone = DefaultDeadZone
	}
	if tapTimeout <= 0 {
		tapTimeout = DefaultTapTimeout
	}
	return &Classifier{DeadZone: deadZone, TapTimeout: tapTimeout}
}

// Classify consumes s and returns the resulting event. A nil sample yields no
// event and leaves the state alone.
func (c *Classifier) Classify(s *Sample) (Event, bool) {
	if s == nil {
		return Event{}, false
	}
	cur := *s
	prev := c.prev
	c.prev = &cur

	tap := Event{Kind: Tap, X: cur.X, Y: cur.Y}
	if prev == nil {
		return tap, true
	}

	dx := deadZone(cur.X-prev.X, c.DeadZone)
	dy := deadZone(cur.Y-prev.Y, c.DeadZone)
	if dx == 0 && dy == 0 {
		return tap, true
	}
	if cur.At.Sub(prev.At) >= c.TapTimeout {
		return tap, true
	}
	return Event{Kind: Drag, DX: dx, DY: dy}, true
}

// Reset forgets the previous sample.
func (c *Classifier) Reset() {
	c.prev = nil
}

func deadZone(d, zone int) int {
	if d > -zone && d < zone {
		return 0
	}
	return d
}
