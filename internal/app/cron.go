package app

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/hamxasajid/blogsite-core/internal/models"
	pkgcron "github.com/hamxasajid/blogsite-core/internal/pkg/cron"
)

// registerCronJobs registers all scheduled background jobs.
func registerCronJobs(sched *pkgcron.Scheduler, db *gorm.DB, logger *zap.Logger) {
	cronLogger := logger.Named("CronService")

	sched.Register(pkgcron.Job{
		Name:     "expire_verification_tokens",
		Interval: time.Hour,
		Fn: func(ctx context.Context) error {
			result := db.Model(&models.VerificationTokenModel{}).
				Where("state = ? AND expires_at < ?", models.VerificationPending, time.Now()).
				Update("state", models.VerificationExpired)
			if result.Error != nil {
				cronLogger.Warn("expiring verification tokens failed", zap.Error(result.Error))
				return result.Error
			}
			if result.RowsAffected > 0 {
				cronLogger.Info(fmt.Sprintf("expired %d verification tokens", result.RowsAffected))
			}
			return nil
		},
	})

	sched.Register(pkgcron.Job{
		Name:     "purge_soft_deleted",
		Interval: 24 * time.Hour,
		Fn: func(ctx context.Context) error {
			cutoff := time.Now().AddDate(0, 0, -30)
			for _, model := range []interface{}{
				&models.CommentModel{},
				&models.BlogModel{},
				&models.ContactMessageModel{},
			} {
				result := db.Unscoped().
					Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
					Delete(model)
				if result.Error != nil {
					cronLogger.Warn("purging soft-deleted rows failed", zap.Error(result.Error))
					return result.Error
				}
			}
			return nil
		},
	})
}
