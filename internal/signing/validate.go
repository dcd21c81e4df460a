package signing

import "signflow/internal/model"

// Verdict is the outcome of a turn check.
type Verdict int

const (
	Allowed Verdict = iota
	NotYourTurn
	AlreadyCompleted
)

func (v Verdict) String() string {
	switch v {
	case Allowed:
		return "allowed"
	case NotYourTurn:
		return "not_your_turn"
	case AlreadyCompleted:
		return "already_completed"
	default:
		return "unknown"
	}
}

// Err maps a verdict to its sentinel error, nil for Allowed.
func (v Verdict) Err() error {
	switch v {
	case NotYourTurn:
		return ErrNotYourTurn
	case AlreadyCompleted:
		return ErrAlreadyCompleted
	default:
		return nil
	}
}

// Validate decides whether actorEmail may act on s right now.
// The email comparison is exact and case-sensitive.
func Validate(s *model.SigningSession, actorEmail string) Verdict {
	if s.Completed {
		return AlreadyCompleted
	}
	cur, ok := s.Current()
	if !ok {
		// cursor past the end without the completed flag: treat as finished.
		return AlreadyCompleted
	}
	if cur.Email != actorEmail {
		return NotYourTurn
	}
	return Allowed
}
