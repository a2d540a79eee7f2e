package clock

import (
	"testing"
	"time"
)

func TestManualFiresInDeadlineOrder(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	var got []string
	c.AfterFunc(300*time.Millisecond, func() { got = append(got, "b") })
	c.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })

	c.Advance(200 * time.Millisecond)
	if len(got) != 1 || got[0] != "a" {
		t.Fatalf("after 200ms fired %v, want [a]", got)
	}
	c.Advance(100 * time.Millisecond)
	if len(got) != 2 || got[1] != "b" {
		t.Fatalf("after 300ms fired %v, want [a b]", got)
	}
}

func TestManualStop(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	fired := false
	tm := c.AfterFunc(time.Second, func() { fired = true })
	if !tm.Stop() {
		t.Fatal("Stop on armed timer returned false")
	}
	if tm.Stop() {
		t.Fatal("second Stop returned true")
	}
	c.Advance(2 * time.Second)
	if fired {
		t.Fatal("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Fatalf("Pending = %d, want 0", c.Pending())
	}
}

func TestManualCallbackArmsTimer(t *testing.T) {
	c := NewManual(time.Unix(0, 0))
	count := 0
	c.AfterFunc(10*time.Millisecond, func() {
		count++
		c.AfterFunc(10*time.Millisecond, func() { count++ })
	})
	c.Advance(25 * time.Millisecond)
	if count != 2 {
		t.Fatalf("count = %d, want 2", count)
	}
	if !c.Now().Equal(time.Unix(0, 0).Add(25 * time.Millisecond)) {
		t.Fatalf("Now = %v", c.Now())
	}
}
