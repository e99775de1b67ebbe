// Package cleanup runs the periodic housekeeping jobs
package cleanup

import (
	"bitwise74/blog-api/internal/model"
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type OTPConfig struct {
	Schedule string        // cron spec, e.g. "@every 24h"
	Expiry   time.Duration // how long codes stay valid
	// Retention is how long a dead code is kept around after it stopped
	// being usable
	Retention time.Duration
}

// PurgeOTPs deletes codes that can never be used again and are older than
// retention. Codes that are still active are never touched.
func PurgeOTPs(ctx context.Context, db *gorm.DB, now time.Time, expiry, retention time.Duration) (int64, error) {
	cutoff := now.Add(-retention)

	r := db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Where("used = ? OR created_at < ?", true, now.Add(-expiry)).
		Delete(&model.PasswordResetOTP{})
	if r.Error != nil {
		return 0, fmt.Errorf("failed to purge otps, %w", r.Error)
	}

	return r.RowsAffected, nil
}

// StartOTPCleanup schedules PurgeOTPs. Stop the returned cron to end it.
func StartOTPCleanup(db *gorm.DB, cfg OTPConfig) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(cfg.Schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		n, err := PurgeOTPs(ctx, db, time.Now(), cfg.Expiry, cfg.Retention)
		if err != nil {
			zap.L().Error("Failed to clean up reset codes", zap.Error(err))
			return
		}

		if n > 0 {
			zap.L().Debug("Cleaned up reset codes", zap.Int64("count", n))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q, %w", cfg.Schedule, err)
	}

	zap.L().Debug("OTP cleanup attached", zap.String("schedule", cfg.Schedule))

	c.Start()
	return c, nil
}
