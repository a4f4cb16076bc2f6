package payment

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"github.com/stripe/stripe-go/v76/refund"
	"go.uber.org/zap"
)

// StripeClient implements CaptureClient against Stripe. Every call is bounded
// by the configured timeout; a deadline hit surfaces as collaboratorTimeout,
// never as success.
type StripeClient struct {
	logger  *zap.Logger
	timeout time.Duration
}

func NewStripeClient(logger *zap.Logger, timeout time.Duration) *StripeClient {
	return &StripeClient{logger: logger, timeout: timeout}
}

func (c *StripeClient) Capture(ctx context.Context, req CaptureRequest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(req.Amount.Amount),
		Currency:    stripe.String(strings.ToLower(req.Amount.Currency)),
		Description: stripe.String(req.Description),
		Confirm:     stripe.Bool(true),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)
	params.AddMetadata("stay_id", req.StayID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, c.mapError("capture", req.StayID, err)
	}
	if pi.Status != stripe.PaymentIntentStatusSucceeded {
		return nil, NewFailureError("payment intent not captured: " + string(pi.Status))
	}

	c.logger.Info("payment captured",
		zap.String("stayID", req.StayID),
		zap.String("reference", pi.ID),
		zap.Int64("amount", req.Amount.Amount))
	return &Result{Reference: pi.ID}, nil
}

func (c *StripeClient) Refund(ctx context.Context, req RefundRequest) (*Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := &stripe.RefundParams{
		PaymentIntent: stripe.String(req.Reference),
		Amount:        stripe.Int64(req.Amount.Amount),
	}
	params.Context = ctx
	params.SetIdempotencyKey(req.IdempotencyKey)

	ref, err := refund.New(params)
	if err != nil {
		return nil, c.mapError("refund", req.StayID, err)
	}

	c.logger.Info("refund issued",
		zap.String("stayID", req.StayID),
		zap.String("reference", ref.ID),
		zap.Int64("amount", req.Amount.Amount))
	return &Result{Reference: ref.ID}, nil
}

func (c *StripeClient) mapError(op, stayID string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		c.logger.Warn("payment collaborator timed out",
			zap.String("op", op), zap.String("stayID", stayID))
		return NewTimeoutError(op + " timed out")
	}
	c.logger.Warn("payment collaborator failed",
		zap.String("op", op), zap.String("stayID", stayID), zap.Error(err))
	return NewFailureError(op + " failed: " + err.Error())
}
