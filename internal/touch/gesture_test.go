package touch

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

var t0 = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func at(x, y int, ms int) *Sample {
	return &Sample{X: x, Y: y, At: t0.Add(time.Duration(ms) * time.Millisecond)}
}

type step struct {
	sample *Sample
	want   Event
	ok     bool
}

func runSteps(t *testing.T, c *Classifier, steps []step) {
	t.Helper()
	for i, s := range steps {
		got, ok := c.Classify(s.sample)
		if ok != s.ok {
			t.Fatalf("step %d: ok = %v, want %v", i, ok, s.ok)
		}
		if diff := cmp.Diff(s.want, got); diff != "" {
			t.Errorf("step %d: event (-want +got):\n%s", i, diff)
		}
	}
}

func TestClassifierSequence(t *testing.T) {
	runSteps(t, NewClassifier(0, 0), []step{
		// A: first contact.
		{at(100, 50, 0), Event{Kind: Tap, X: 100, Y: 50}, true},
		// B: delta (3,2) is inside the dead zone.
		{at(103, 52, 50), Event{Kind: Tap, X: 103, Y: 52}, true},
		// C: delta (27,18) but 200ms later.
		{at(130, 70, 250), Event{Kind: Tap, X: 130, Y: 70}, true},
	})
}

func TestClassifierDrag(t *testing.T) {
	runSteps(t, NewClassifier(5, 200*time.Millisecond), []step{
		{at(130, 70, 60), Event{Kind: Tap, X: 130, Y: 70}, true},
		{at(150, 90, 80), Event{Kind: Drag, DX: 20, DY: 20}, true},
	})
}

func TestClassifierDeadZoneSingleAxis(t *testing.T) {
	runSteps(t, NewClassifier(5, 200*time.Millisecond), []step{
		{at(10, 10, 0), Event{Kind: Tap, X: 10, Y: 10}, true},
		{at(4, 14, 10), Event{Kind: Drag, DX: -6, DY: 0}, true},
		{at(4, 19, 20), Event{Kind: Drag, DX: 0, DY: 5}, true},
	})
}

func TestClassifierNilKeepsState(t *testing.T) {
	c := NewClassifier(5, 200*time.Millisecond)
	runSteps(t, c, []step{
		{at(100, 100, 0), Event{Kind: Tap, X: 100, Y: 100}, true},
		{nil, Event{}, false},
		{nil, Event{}, false},
		// Still compared against (100,100).
		{at(120, 100, 30), Event{Kind: Drag, DX: 20}, true},
	})

	c.Reset()
	runSteps(t, c, []step{
		{at(200, 10, 40), Event{Kind: Tap, X: 200, Y: 10}, true},
	})
}

func TestClassifierJustUnderTimeout(t *testing.T) {
	runSteps(t, NewClassifier(5, 200*time.Millisecond), []step{
		{at(0, 0, 0), Event{Kind: Tap}, true},
		{at(50, 0, 199), Event{Kind: Drag, DX: 50}, true},
	})
}

func TestEventString(t *testing.T) {
	if got := (Event{Kind: Tap, X: 1, Y: 2}).String(); got != "tap(1,2)" {
		t.Errorf("String() = %q", got)
	}
	if got := (Event{Kind: Drag, DX: -3, DY: 4}).String(); got != "drag(-3,4)" {
		t.Errorf("String() = %q", got)
	}
}
