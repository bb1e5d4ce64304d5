package cron

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"carebook/config"
	"carebook/database/repository"
	"carebook/models"
	"carebook/services/tasks"

	"github.com/go-redis/redis/v8"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
)

// InitTaskWorker runs the asynq worker in background: booking reminders due
// 24 hours before the appointment, plus periodic cleanup of orphaned submit
// locks left behind by crashed submissions.
func InitTaskWorker(repo repository.BookingRepository, sessionCache *redis.Client, logger *zap.Logger) {
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
	mux.HandleFunc(tasks.TypeBookingReminder, handleBookingReminder(repo, logger))
	mux.HandleFunc(tasks.TypeSessionSweep, handleSessionSweep(sessionCache, logger))

	go func() {
		logger.Info("starting task worker")
		const maxAttempts = 5

		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				logger.Error("task worker failed to start",
					zap.Int("attempt", attempts), zap.Error(err))
				if attempts == maxAttempts {
					log.Fatal("task worker: max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()
}

// StartSessionSweepScheduler enqueues the lock sweep on an hourly cadence.
func StartSessionSweepScheduler(client *asynq.Client, logger *zap.Logger) {
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if _, err := client.Enqueue(tasks.NewSessionSweepTask()); err != nil {
				logger.Error("failed to enqueue session sweep", zap.Error(err))
			}
		}
	}()
}

// handleBookingReminder fires the appointment reminder. The archive copy is
// checked first so cancelled bookings never trigger one.
func handleBookingReminder(repo repository.BookingRepository, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		var p models.ReminderPayload
		if err := json.Unmarshal(task.Payload(), &p); err != nil {
			logger.Error("invalid reminder payload", zap.Error(err))
			return err
		}

		b, err := repo.GetByID(ctx, p.BookingID)
		if err != nil {
			logger.Warn("reminder for unknown booking, skipping",
				zap.String("bookingID", p.BookingID), zap.Error(err))
			return nil
		}
		if b.Status == models.BookingStatusCancelled {
			logger.Info("skipping reminder for cancelled booking",
				zap.String("bookingID", p.BookingID))
			return nil
		}

		logger.Info("booking reminder due",
			zap.String("bookingID", p.BookingID),
			zap.String("flow", p.Flow),
			zap.String("patient", p.PatientName),
			zap.String("provider", p.ProviderName),
			zap.String("date", p.Date),
			zap.String("time", p.Time))
		return nil
	}
}

// handleSessionSweep deletes submit locks whose TTL was lost, so a crashed
// submission cannot block a session forever.
func handleSessionSweep(cache *redis.Client, logger *zap.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		var swept int
		iter := cache.Scan(ctx, 0, "wizard:submitlock:*", 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			ttl, err := cache.TTL(ctx, key).Result()
			if err != nil {
				continue
			}
			// TTL replies -1 (unscaled) for a key with no expiry; locks
			// are always set with one.
			if ttl == time.Duration(-1) {
				if err := cache.Del(ctx, key).Err(); err == nil {
					swept++
				}
			}
		}
		if err := iter.Err(); err != nil {
			logger.Error("submit lock sweep failed", zap.Error(err))
			return err
		}
		if swept > 0 {
			logger.Info("swept orphaned submit locks", zap.Int("count", swept))
		}
		return nil
	}
}
