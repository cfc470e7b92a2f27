package round

import (
	"slices"
	"time"

	"github.com/kailas-cloud/vecquiz/internal/domain"
	"github.com/kailas-cloud/vecquiz/internal/domain/ranking"
)

// Status is the lifecycle state of a round.
type Status string

// Round statuses.
const (
	Open   Status = "open"
	Graded Status = "graded"
)

// Outcome records how a round was closed.
type Outcome string

// Round outcomes.
const (
	// Submitted means the player submitted before the deadline.
	Submitted Outcome = "submitted"
	// Expired means the countdown ran out (or the submit arrived late).
	Expired Outcome = "expired"
)

// Result is the graded outcome of a round.
type Result struct {
	Ranked  []ranking.Ranked[int]
	TopK    []int
	Correct int
	Points  int
}

// Round is one query of a quiz game with the player's selection.
type Round struct {
	number      int
	queryDocID  int
	queryText   string
	queryVector []float64
	selection   map[int]struct{}
	startedAt   time.Time
	deadline    time.Time
	status      Status
	outcome     Outcome
	result      *Result
}

// New creates an open round. The deadline is startedAt + duration.
func New(
	number, queryDocID int, queryText string, queryVector []float64,
	startedAt time.Time, duration time.Duration,
) Round {
	return Round{
		number:      number,
		queryDocID:  queryDocID,
		queryText:   queryText,
		queryVector: queryVector,
		selection:   make(map[int]struct{}),
		startedAt:   startedAt,
		deadline:    startedAt.Add(duration),
		status:      Open,
	}
}

// Reconstruct creates a Round without validation (storage hydration).
func Reconstruct(
	number, queryDocID int, queryText string, queryVector []float64,
	selected []int, startedAt, deadline time.Time,
	status Status, outcome Outcome, result *Result,
) Round {
	sel := make(map[int]struct{}, len(selected))
	for _, id := range selected {
		sel[id] = struct{}{}
	}
	return Round{
		number: number, queryDocID: queryDocID, queryText: queryText, queryVector: queryVector,
		selection: sel, startedAt: startedAt, deadline: deadline,
		status: status, outcome: outcome, result: result,
	}
}

// Number returns the 1-based round number.
func (r *Round) Number() int { return r.number }

// QueryDocID returns the ID of the document whose text is the query.
func (r *Round) QueryDocID() int { return r.queryDocID }

// QueryText returns the query shown to the player.
func (r *Round) QueryText() string { return r.queryText }

// QueryVector returns the query embedding.
func (r *Round) QueryVector() []float64 { return r.queryVector }

// StartedAt returns the round start time.
func (r *Round) StartedAt() time.Time { return r.startedAt }

// Deadline returns the time the countdown reaches zero.
func (r *Round) Deadline() time.Time { return r.deadline }

// Status returns the round status.
func (r *Round) Status() Status { return r.status }

// Outcome returns how the round was closed (empty while open).
func (r *Round) Outcome() Outcome { return r.outcome }

// Result returns the grading result (nil while open).
func (r *Round) Result() *Result { return r.result }

// IsOpen reports whether the round accepts selections.
func (r *Round) IsOpen() bool { return r.status == Open }

// Expired reports whether the deadline has passed at now.
func (r *Round) Expired(now time.Time) bool { return !now.Before(r.deadline) }

// Remaining returns the time left on the countdown, never negative.
func (r *Round) Remaining(now time.Time) time.Duration {
	if d := r.deadline.Sub(now); d > 0 {
		return d
	}
	return 0
}

// Selected returns the selected document IDs in ascending order.
func (r *Round) Selected() []int {
	ids := make([]int, 0, len(r.selection))
	for id := range r.selection {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Selection returns the selection set.
func (r *Round) Selection() map[int]struct{} { return r.selection }

// Toggle flips membership of docID in the selection and reports the new state.
func (r *Round) Toggle(docID int, now time.Time) (bool, error) {
	if !r.IsOpen() {
		return false, domain.ErrNoOpenRound
	}
	if r.Expired(now) {
		return false, domain.ErrRoundExpired
	}
	if _, ok := r.selection[docID]; ok {
		delete(r.selection, docID)
		return false, nil
	}
	r.selection[docID] = struct{}{}
	return true, nil
}

// Close marks the round graded with the given result.
func (r *Round) Close(res Result, outcome Outcome) error {
	if !r.IsOpen() {
		return domain.ErrNoOpenRound
	}
	r.status = Graded
	r.outcome = outcome
	r.result = &res
	return nil
}
