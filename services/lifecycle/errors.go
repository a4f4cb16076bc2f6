package lifecycle

import "fmt"

// Error codes surfaced by the lifecycle engine.
const (
	CodeInvalidTransition   = "invalidTransition"
	CodeGuardNotSatisfied   = "guardNotSatisfied"
	CodeHoldAlreadyResolved = "holdAlreadyResolved"
	CodeNotFound            = "notFound"
)

// LifecycleError is a typed failure from a lifecycle command. For rejected
// transitions it names the current status, the requested status and the guard
// that failed; the stay is always left unchanged.
type LifecycleError struct {
	Code    string
	Message string
	From    string
	To      string
	Guard   string
}

func (e *LifecycleError) Error() string {
	if e.From != "" || e.To != "" {
		return fmt.Sprintf("%s: %s -> %s: %s", e.Code, e.From, e.To, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewInvalidTransitionError(from, to, guard string) error {
	msg := "transition not legal from current status"
	if guard != "" {
		msg = guard
	}
	return &LifecycleError{Code: CodeInvalidTransition, Message: msg, From: from, To: to, Guard: guard}
}

func NewGuardError(msg string) error {
	return &LifecycleError{Code: CodeGuardNotSatisfied, Message: msg, Guard: msg}
}

func NewHoldResolvedError(holdID string) error {
	return &LifecycleError{Code: CodeHoldAlreadyResolved, Message: "hold " + holdID + " was already converted, cancelled or expired"}
}

func NewNotFoundError(what string) error {
	return &LifecycleError{Code: CodeNotFound, Message: what + " not found"}
}
