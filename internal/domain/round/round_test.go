package round

import (
	"errors"
	"testing"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain"
)

var t0 = time.Date(2024, 12, 2, 10, 0, 0, 0, time.UTC)

func newRound() Round {
	return New(1, 4, "query", []float64{0.1, 0.2, 0.3}, t0, time.Minute)
}

func TestNew(t *testing.T) {
	r := newRound()
	if !r.IsOpen() {
		t.Error("new round should be open")
	}
	if !r.Deadline().Equal(t0.Add(time.Minute)) {
		t.Errorf("unexpected deadline: %v", r.Deadline())
	}
	if len(r.Selected()) != 0 {
		t.Error("selection should start empty")
	}
	if r.Result() != nil {
		t.Error("result should be nil while open")
	}
}

func TestToggle(t *testing.T) {
	r := newRound()
	now := t0.Add(10 * time.Second)

	on, err := r.Toggle(3, now)
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	if _, err := r.Toggle(1, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := r.Selected(); len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("expected [1 3], got %v", got)
	}

	on, err = r.Toggle(3, now)
	if err != nil || on {
		t.Fatalf("second toggle: on=%v err=%v", on, err)
	}
	if got := r.Selected(); len(got) != 1 || got[0] != 1 {
		t.Errorf("expected [1], got %v", got)
	}
}

func TestToggle_AfterDeadline(t *testing.T) {
	r := newRound()
	_, err := r.Toggle(1, t0.Add(time.Minute))
	if !errors.Is(err, domain.ErrRoundExpired) {
		t.Fatalf("expected ErrRoundExpired, got %v", err)
	}
}

func TestClose(t *testing.T) {
	r := newRound()
	if err := r.Close(Result{Correct: 2, Points: 2}, Submitted); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.IsOpen() || r.Status() != Graded || r.Outcome() != Submitted {
		t.Errorf("unexpected state: status=%s outcome=%s", r.Status(), r.Outcome())
	}
	if r.Result().Points != 2 {
		t.Errorf("expected 2 points, got %d", r.Result().Points)
	}

	if err := r.Close(Result{}, Expired); !errors.Is(err, domain.ErrNoOpenRound) {
		t.Errorf("double close: expected ErrNoOpenRound, got %v", err)
	}
	if _, err := r.Toggle(1, t0); !errors.Is(err, domain.ErrNoOpenRound) {
		t.Errorf("toggle after close: expected ErrNoOpenRound, got %v", err)
	}
}

func TestRemaining(t *testing.T) {
	r := newRound()
	if got := r.Remaining(t0.Add(45 * time.Second)); got != 15*time.Second {
		t.Errorf("expected 15s, got %v", got)
	}
	if got := r.Remaining(t0.Add(2 * time.Minute)); got != 0 {
		t.Errorf("expected 0 after deadline, got %v", got)
	}
}

func TestReconstruct(t *testing.T) {
	r := Reconstruct(2, 5, "q", []float64{1}, []int{7, 3}, t0, t0.Add(time.Second), Graded, Expired, &Result{Points: 1})
	if r.Number() != 2 || r.QueryDocID() != 5 || r.IsOpen() {
		t.Errorf("unexpected round: %+v", r)
	}
	if got := r.Selected(); len(got) != 2 || got[0] != 3 {
		t.Errorf("expected sorted selection [3 7], got %v", got)
	}
}
