package holdmgr

import (
	"context"
	"errors"
	"time"

	holdRepo "innkeeper/database/repository/hold"
	"innkeeper/models"
	"innkeeper/services/lifecycle"
	"innkeeper/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExpiryScheduler enqueues a timed expiry task for a hold. The periodic sweep
// is the backstop when scheduling fails, so errors are logged, not fatal.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, h *models.Hold) error
}

// Manager owns the hold index: creation, conversion and cancellation of
// holds, and the expiry sweep. All stay-side effects route through the
// lifecycle service like any other caller.
type Manager struct {
	Holds          holdRepo.Repository
	Stays          lifecycle.StayService
	Scheduler      ExpiryScheduler
	Clock          utils.Clock
	Logger         *zap.Logger
	DefaultMinutes int
}

func NewManager(holds holdRepo.Repository, stays lifecycle.StayService, scheduler ExpiryScheduler, clock utils.Clock, logger *zap.Logger, defaultMinutes int) *Manager {
	return &Manager{
		Holds:          holds,
		Stays:          stays,
		Scheduler:      scheduler,
		Clock:          clock,
		Logger:         logger,
		DefaultMinutes: defaultMinutes,
	}
}

// CreateHoldInput creates a hold on an available stay.
type CreateHoldInput struct {
	StayID          string
	DurationMinutes int
	OnExpiry        models.HoldExpiryAction
	Actor           models.Actor
}

// CreateHold persists the hold and moves the owning stay to held. If the stay
// transition is rejected the hold is cancelled again so it never leaks.
func (m *Manager) CreateHold(ctx context.Context, in CreateHoldInput) (*models.Hold, *models.Stay, error) {
	minutes := in.DurationMinutes
	if minutes <= 0 {
		minutes = m.DefaultMinutes
	}
	action := in.OnExpiry
	if action == "" {
		action = models.ExpiryRelease
	}

	now := m.Clock.Now()
	h := &models.Hold{
		ID:              "hold_" + uuid.New().String(),
		StayID:          in.StayID,
		Status:          models.HoldActive,
		ExpiresAt:       now.Add(time.Duration(minutes) * time.Minute),
		DurationMinutes: minutes,
		OnExpiry:        action,
		CreatedAt:       now,
	}

	if err := m.Holds.Create(ctx, h); err != nil {
		return nil, nil, err
	}

	st, err := m.Stays.AttachHold(ctx, in.StayID, h, in.Actor)
	if err != nil {
		if rerr := m.Holds.Resolve(ctx, h.ID, models.HoldCancelled); rerr != nil {
			m.Logger.Error("failed to cancel orphaned hold",
				zap.String("holdID", h.ID), zap.Error(rerr))
		}
		return nil, nil, err
	}

	if m.Scheduler != nil {
		if err := m.Scheduler.ScheduleExpiry(ctx, h); err != nil {
			m.Logger.Warn("failed to schedule hold expiry task, sweep will catch it",
				zap.String("holdID", h.ID), zap.Error(err))
		}
	}

	m.Logger.Info("hold created",
		zap.String("holdID", h.ID),
		zap.String("stayID", h.StayID),
		zap.Time("expiresAt", h.ExpiresAt))
	return h, st, nil
}

// CancelHold explicitly resolves an active hold and routes the owning stay
// through the hold's expiry action. Losers of the race observe
// holdAlreadyResolved and apply no side effects.
func (m *Manager) CancelHold(ctx context.Context, holdID string, actor models.Actor) (*models.Stay, error) {
	h, err := m.getHold(ctx, holdID)
	if err != nil {
		return nil, err
	}

	if err := m.resolve(ctx, holdID, models.HoldCancelled); err != nil {
		return nil, err
	}
	return m.Stays.ReleaseHold(ctx, h.StayID, h.ID, h.OnExpiry, false, actor)
}

// ExpireHold resolves a hold whose expiry has passed and transitions the
// owning stay as if the expiry arrived from an external actor.
func (m *Manager) ExpireHold(ctx context.Context, holdID string) (*models.Stay, error) {
	h, err := m.getHold(ctx, holdID)
	if err != nil {
		return nil, err
	}
	if !h.ExpiredBy(m.Clock.Now()) {
		if h.Status != models.HoldActive {
			return nil, lifecycle.NewHoldResolvedError(holdID)
		}
		return nil, lifecycle.NewGuardError("hold has not expired yet")
	}

	if err := m.resolve(ctx, holdID, models.HoldExpired); err != nil {
		return nil, err
	}

	m.Logger.Info("hold expired",
		zap.String("holdID", h.ID), zap.String("stayID", h.StayID))
	return m.Stays.ReleaseHold(ctx, h.StayID, h.ID, h.OnExpiry, true, models.ActorSystem)
}

// SweepOnce expires every active hold past its expiry. Safe to run from
// multiple workers concurrently: the single-winner resolve means at most one
// sweep applies each hold's side effects.
func (m *Manager) SweepOnce(ctx context.Context) int {
	now := m.Clock.Now()
	holds, err := m.Holds.ListExpired(ctx, now)
	if err != nil {
		m.Logger.Error("hold sweep failed to list expired holds", zap.Error(err))
		return 0
	}

	expired := 0
	for _, h := range holds {
		if _, err := m.ExpireHold(ctx, h.ID); err != nil {
			var lcErr *lifecycle.LifecycleError
			if errors.As(err, &lcErr) && lcErr.Code == lifecycle.CodeHoldAlreadyResolved {
				continue // another worker won
			}
			m.Logger.Error("failed to expire hold",
				zap.String("holdID", h.ID), zap.Error(err))
			continue
		}
		expired++
	}

	if expired > 0 {
		m.Logger.Info("hold sweep finished", zap.Int("expired", expired))
	}
	return expired
}

// GetHold returns the hold record.
func (m *Manager) GetHold(ctx context.Context, holdID string) (*models.Hold, error) {
	return m.getHold(ctx, holdID)
}

func (m *Manager) getHold(ctx context.Context, holdID string) (*models.Hold, error) {
	h, err := m.Holds.GetByID(ctx, holdID)
	if errors.Is(err, holdRepo.ErrNotFound) {
		return nil, lifecycle.NewNotFoundError("hold " + holdID)
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (m *Manager) resolve(ctx context.Context, holdID string, to models.HoldStatus) error {
	err := m.Holds.Resolve(ctx, holdID, to)
	if errors.Is(err, holdRepo.ErrAlreadyResolved) {
		return lifecycle.NewHoldResolvedError(holdID)
	}
	if errors.Is(err, holdRepo.ErrNotFound) {
		return lifecycle.NewNotFoundError("hold " + holdID)
	}
	return err
}
