package cron

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"innkeeper/config"
	stayRepo "innkeeper/database/repository/stay"
	"innkeeper/models"
	"innkeeper/services/holdmgr"
	"innkeeper/services/lifecycle"
	"innkeeper/services/tasks"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
)

// InitWorkers starts the asynq worker serving timed tasks and the in-process
// cron schedule that drives the hold-expiry sweep backstop and the daily
// payment due scan.
func InitWorkers(mgr *holdmgr.Manager, stays stayRepo.Repository, scheduler *tasks.Scheduler) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisTaskDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeHoldExpire, handleHoldExpire(mgr))
	mux.HandleFunc(tasks.TypePaymentDueScan, handlePaymentDueScan(stays))

	// Start async worker with retry logic.
	go func() {
		log.Println("[Worker] Starting async worker...")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[Worker] Attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)

				if attempts == maxAttempts {
					log.Fatal("[Worker] Max retry attempts reached. Exiting.")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second) // Exponential backoff
			} else {
				break
			}
		}
	}()

	startSchedule(mgr, scheduler)
}

// startSchedule runs the sweep backstop at the configured interval. The sweep
// is deliberately coarser than the shortest hold duration; the per-hold asynq
// task carries the precise expiry instant.
func startSchedule(mgr *holdmgr.Manager, scheduler *tasks.Scheduler) {
	c := cron.New()

	sweepSpec := fmt.Sprintf("@every %ds", config.AppConfig.HoldSweepSeconds)
	if _, err := c.AddFunc(sweepSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		mgr.SweepOnce(ctx)
	}); err != nil {
		log.Fatalf("[Worker] failed to schedule hold sweep: %v", err)
	}

	if _, err := c.AddFunc("@daily", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := scheduler.ScheduleDueScan(ctx, 0); err != nil {
			log.Printf("[Worker] failed to enqueue payment due scan: %v", err)
		}
	}); err != nil {
		log.Fatalf("[Worker] failed to schedule payment due scan: %v", err)
	}

	c.Start()
	log.Printf("[Worker] Schedules started (sweep every %ds)", config.AppConfig.HoldSweepSeconds)
}

func handleHoldExpire(mgr *holdmgr.Manager) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p tasks.HoldExpirePayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			log.Printf("[HoldExpire] Invalid payload: %v", err)
			return err
		}

		_, err := mgr.ExpireHold(ctx, p.HoldID)
		if err != nil {
			var lcErr *lifecycle.LifecycleError
			if errors.As(err, &lcErr) {
				switch lcErr.Code {
				case lifecycle.CodeHoldAlreadyResolved, lifecycle.CodeNotFound:
					// Converted, cancelled or already swept; nothing to do.
					return nil
				case lifecycle.CodeGuardNotSatisfied:
					// Fired early; the sweep will catch the hold at expiry.
					return nil
				}
			}
			log.Printf("[HoldExpire] Failed to expire hold %s: %v", p.HoldID, err)
			return err
		}
		return nil
	}
}

// handlePaymentDueScan surfaces schedule items that have come due and are
// still pending. Capture stays caller-driven; this is an operational signal.
func handlePaymentDueScan(stays stayRepo.Repository) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		today := time.Now().UTC().Format("2006-01-02")
		due, err := stays.ListWithPaymentsDue(ctx, today)
		if err != nil {
			log.Printf("[DueScan] Failed to list stays with payments due: %v", err)
			return err
		}

		for _, st := range due {
			if st.Folio == nil {
				continue
			}
			for _, item := range st.Folio.PaymentSchedule {
				if item.Status == models.PaymentItemPending && item.DueDate != "" && item.DueDate <= today {
					log.Printf("[DueScan] Payment due: stay=%s type=%s amount=%d %s due=%s",
						st.ID, item.Type, item.Amount.Amount, item.Amount.Currency, item.DueDate)
				}
			}
		}
		return nil
	}
}
