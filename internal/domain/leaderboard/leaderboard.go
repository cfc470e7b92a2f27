package leaderboard

// Leaderboard limits.
const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// Entry is a ranked player high score.
type Entry struct {
	Rank      int
	Player    string
	HighScore int
}

// ClampLimit applies the default and upper bound to a requested page size.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}
