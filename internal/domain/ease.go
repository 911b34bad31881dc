package domain

// Ease is the reviewer's rating of how hard a card was to recall.
// The numeric values are part of the review-history wire contract.
type Ease int

const (
	EaseFailed Ease = 1
	EaseHard   Ease = 2
	EaseMid    Ease = 3
	EaseEasy   Ease = 4
)

// Valid reports whether e is one of the four defined ratings.
func (e Ease) Valid() bool {
	return e >= EaseFailed && e <= EaseEasy
}

func (e Ease) String() string {
	switch e {
	case EaseFailed:
		return "failed"
	case EaseHard:
		return "hard"
	case EaseMid:
		return "mid"
	case EaseEasy:
		return "easy"
	default:
		return "unknown"
	}
}
