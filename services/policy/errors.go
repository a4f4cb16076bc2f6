package policy

import "fmt"

// Error codes surfaced by the policy evaluator.
const (
	CodeMalformedPolicy        = "malformedPolicy"
	CodeGuardNotSatisfied      = "guardNotSatisfied"
	CodeModificationNotAllowed = "modificationNotAllowed"
)

type PolicyError struct {
	Code    string
	Message string
}

func (e *PolicyError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewMalformedPolicyError(msg string) error {
	return &PolicyError{Code: CodeMalformedPolicy, Message: msg}
}

func NewGuardError(msg string) error {
	return &PolicyError{Code: CodeGuardNotSatisfied, Message: msg}
}

func NewModificationNotAllowedError(msg string) error {
	return &PolicyError{Code: CodeModificationNotAllowed, Message: msg}
}
