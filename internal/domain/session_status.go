package domain

type SessionStatusKind string

const (
	SessionStatusCompleted SessionStatusKind = "completed"
	SessionStatusFailed    SessionStatusKind = "failed"
)

// SessionStatus is the resolved outcome of a checkout session lookup.
// Exactly one of Completed or Failed is set for a recognised Kind.
type SessionStatus struct {
	Kind      SessionStatusKind `json:"kind"`
	Completed *CompletedSession `json:"completed,omitempty"`
	Failed    *FailedSession    `json:"failed,omitempty"`
}

type CompletedSession struct {
	UserPrincipal *string `json:"user_principal,omitempty"`
	Response      string  `json:"response"`
}

type FailedSession struct {
	Error string `json:"error"`
}

func CompletedStatus(principal *string, response string) SessionStatus {
	return SessionStatus{
		Kind:      SessionStatusCompleted,
		Completed: &CompletedSession{UserPrincipal: principal, Response: response},
	}
}

func FailedStatus(msg string) SessionStatus {
	return SessionStatus{
		Kind:   SessionStatusFailed,
		Failed: &FailedSession{Error: msg},
	}
}

// ConfirmationState is the view state of the post-checkout return page.
type ConfirmationState string

const (
	ConfirmationLoading   ConfirmationState = "loading"
	ConfirmationConfirmed ConfirmationState = "confirmed"
	ConfirmationError     ConfirmationState = "error"
)

func (s ConfirmationState) IsTerminal() bool {
	return s == ConfirmationConfirmed || s == ConfirmationError
}

func (s ConfirmationState) String() string {
	return string(s)
}
