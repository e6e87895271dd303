package domain

// Phase is the macro-state of a quiz session.
type Phase int

const (
	PhaseLoading Phase = iota
	PhaseActive
	PhaseFinished
	// PhaseFailed is entered when the question list could not be loaded; Retry leaves it.
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseActive:
		return "active"
	case PhaseFinished:
		return "finished"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// SessionState is a snapshot of a quiz session.
type SessionState struct {
	SessionID        string `json:"sessionId"`
	Generation       uint64 `json:"generation"`
	Phase            Phase  `json:"phase"`
	QuestionIndex    int    `json:"questionIndex"`
	QuestionCount    int    `json:"questionCount"`
	Score            int    `json:"score"`
	RemainingSeconds int    `json:"remainingSeconds"`
}

// QuizInProgressKey is the storage key of the session flag read by navigation guards.
const QuizInProgressKey = "quizInProgress"

// Identity describes who is using the client, as far as route guards care.
type Identity struct {
	Subject       string `json:"subject,omitempty"`
	Role          string `json:"role,omitempty"`
	Authenticated bool   `json:"authenticated"`
}

func (i Identity) IsAdmin() bool {
	return i.Authenticated && i.Role == RoleAdmin
}

func (i Identity) IsUser() bool {
	return i.Authenticated && i.Role == RoleUser
}
