package payment

import (
	"context"
	"fmt"

	"innkeeper/models"
)

// Error codes for collaborator failures. Timeouts are retryable and never
// treated as success.
const (
	CodeCollaboratorTimeout = "collaboratorTimeout"
	CodeCollaboratorFailure = "collaboratorFailure"
)

type CollaboratorError struct {
	Code    string
	Message string
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewTimeoutError(msg string) error {
	return &CollaboratorError{Code: CodeCollaboratorTimeout, Message: msg}
}

func NewFailureError(msg string) error {
	return &CollaboratorError{Code: CodeCollaboratorFailure, Message: msg}
}

// CaptureRequest asks the collaborator to capture a charge.
type CaptureRequest struct {
	StayID         string
	Amount         models.Money
	IdempotencyKey string
	Description    string
}

// RefundRequest asks the collaborator to return money against an earlier capture.
type RefundRequest struct {
	StayID         string
	Reference      string // opaque id from the original capture
	Amount         models.Money
	IdempotencyKey string
}

// Result carries the collaborator's opaque reference for the movement.
type Result struct {
	Reference string
}

// CaptureClient is the narrow contract with the payment collaborator. The
// engine treats responses as binary (captured/failed) plus a reference id;
// how money actually moves is not its concern.
type CaptureClient interface {
	Capture(ctx context.Context, req CaptureRequest) (*Result, error)
	Refund(ctx context.Context, req RefundRequest) (*Result, error)
}
