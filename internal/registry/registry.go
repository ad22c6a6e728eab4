// Package registry owns the MonitorTarget CRUD and lifecycle
// operations: every write goes through here first, which validates the
// request, mutates monitor_targets inside a transaction, appends the
// matching EventLog row, and then tells the Scheduler to start, stop or
// restart the target's probe loop.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"gorm.io/gorm"

	"github.com/pingmedaddy/pingmedaddy/internal/core"
	"github.com/pingmedaddy/pingmedaddy/internal/models"
)

const (
	minFrequencySeconds = 1
	maxFrequencySeconds = 3600
)

// SchedulerControl is the slice of the Scheduler the registry drives.
// It is satisfied by *scheduler.Scheduler; kept as an interface here so
// the two packages don't import each other directly.
type SchedulerControl interface {
	Start(target models.MonitorTarget)
	Stop(targetID int)
	Restart(target models.MonitorTarget)
}

type Registry struct {
	db        *gorm.DB
	scheduler SchedulerControl
}

func New(db *gorm.DB, scheduler SchedulerControl) *Registry {
	return &Registry{db: db, scheduler: scheduler}
}

// CreateTarget validates ip and frequency, inserts the target and an
// EventLog start row in one transaction, then launches its probe loop.
func (r *Registry) CreateTarget(ctx context.Context, ip string, frequency int, url, notes string) (*models.MonitorTarget, error) {
	if net.ParseIP(ip) == nil {
		return nil, core.ErrInvalidIP
	}
	if frequency < minFrequencySeconds || frequency > maxFrequencySeconds {
		return nil, core.ErrInvalidFrequency
	}

	target := &models.MonitorTarget{
		IP:        ip,
		Frequency: frequency,
		IsActive:  true,
		URL:       url,
		Notes:     notes,
		CreatedAt: time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.MonitorTarget{}).Where("ip = ?", ip).Count(&count).Error; err != nil {
			return fmt.Errorf("check duplicate ip: %w", err)
		}
		if count > 0 {
			return core.ErrDuplicateTarget
		}
		if err := tx.Create(target).Error; err != nil {
			return fmt.Errorf("insert target: %w", err)
		}
		return tx.Create(&models.EventLog{
			TargetID:  &target.ID,
			EventType: models.EventStart,
			Message:   fmt.Sprintf("Started tracking %s", ip),
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return nil, err
	}

	r.scheduler.Start(*target)
	return target, nil
}

// UpdateTarget applies only the fields the caller explicitly set. A
// frequency change on an active target restarts its loop with the new
// cadence.
type TargetPatch struct {
	Frequency *int
	URL       *string
	Notes     *string
}

func (r *Registry) UpdateTarget(ctx context.Context, id int, patch TargetPatch) (*models.MonitorTarget, error) {
	target, err := r.GetTarget(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	frequencyChanged := false

	if patch.Frequency != nil {
		if *patch.Frequency < minFrequencySeconds || *patch.Frequency > maxFrequencySeconds {
			return nil, core.ErrInvalidFrequency
		}
		frequencyChanged = *patch.Frequency != target.Frequency
		updates["frequency_seconds"] = *patch.Frequency
		target.Frequency = *patch.Frequency
	}
	if patch.URL != nil {
		updates["url"] = *patch.URL
		target.URL = *patch.URL
	}
	if patch.Notes != nil {
		updates["notes"] = *patch.Notes
		target.Notes = *patch.Notes
	}

	if len(updates) > 0 {
		if err := r.db.WithContext(ctx).Model(&models.MonitorTarget{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update target: %w", err)
		}
	}

	if frequencyChanged && target.IsActive {
		r.scheduler.Restart(*target)
	}

	return target, nil
}

// ListTargets returns every target, active and inactive, excluding
// soft-deleted rows.
func (r *Registry) ListTargets(ctx context.Context) ([]models.MonitorTarget, error) {
	var targets []models.MonitorTarget
	err := r.db.WithContext(ctx).Where("deleted = ?", false).Order("id ASC").Find(&targets).Error
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	return targets, nil
}

// GetTarget fetches a single non-deleted target, implementing
// analytics.TargetLookup for the analytics engine.
func (r *Registry) GetTarget(ctx context.Context, id int) (*models.MonitorTarget, error) {
	var target models.MonitorTarget
	err := r.db.WithContext(ctx).Where("id = ? AND deleted = ?", id, false).First(&target).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, core.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get target: %w", err)
	}
	return &target, nil
}

// PauseTarget is idempotent: pausing an already-paused target still
// succeeds and still stops the (possibly already-stopped) loop.
func (r *Registry) PauseTarget(ctx context.Context, id int) error {
	if _, err := r.GetTarget(ctx, id); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MonitorTarget{}).Where("id = ?", id).Update("is_active", false).Error; err != nil {
			return fmt.Errorf("pause target: %w", err)
		}
		return tx.Create(&models.EventLog{
			TargetID:  &id,
			EventType: models.EventStop,
			Message:   "Tracking paused",
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return err
	}

	r.scheduler.Stop(id)
	return nil
}

// ResumeTarget is idempotent on an already-active target. It fails
// with NotFound on a deleted target, per the soft-delete contract.
func (r *Registry) ResumeTarget(ctx context.Context, id int) error {
	target, err := r.GetTarget(ctx, id)
	if err != nil {
		return err
	}

	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MonitorTarget{}).Where("id = ?", id).Update("is_active", true).Error; err != nil {
			return fmt.Errorf("resume target: %w", err)
		}
		return tx.Create(&models.EventLog{
			TargetID:  &id,
			EventType: models.EventStart,
			Message:   "Tracking resumed",
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return err
	}

	target.IsActive = true
	r.scheduler.Start(*target)
	return nil
}

// DeleteTarget soft-deletes: the loop is stopped, is_active and deleted
// are both set, and all history (samples, events) is preserved. Further
// Resume calls on this id fail with NotFound via GetTarget's filter.
func (r *Registry) DeleteTarget(ctx context.Context, id int) error {
	if _, err := r.GetTarget(ctx, id); err != nil {
		return err
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{"is_active": false, "deleted": true}
		if err := tx.Model(&models.MonitorTarget{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("delete target: %w", err)
		}
		return tx.Create(&models.EventLog{
			TargetID:  &id,
			EventType: models.EventDelete,
			Message:   "Target deleted",
			CreatedAt: time.Now().UTC(),
		}).Error
	})
	if err != nil {
		return err
	}

	r.scheduler.Stop(id)
	return nil
}

// ListEvents returns a target's event log, newest first.
func (r *Registry) ListEvents(ctx context.Context, targetID int) ([]models.EventLog, error) {
	var events []models.EventLog
	err := r.db.WithContext(ctx).Where("target_id = ?", targetID).Order("created_at DESC").Find(&events).Error
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// ActiveTargets returns every currently-active target, used by the
// Scheduler at boot to decide which loops to launch.
func (r *Registry) ActiveTargets(ctx context.Context) ([]models.MonitorTarget, error) {
	var targets []models.MonitorTarget
	err := r.db.WithContext(ctx).Where("is_active = ? AND deleted = ?", true, false).Find(&targets).Error
	if err != nil {
		return nil, fmt.Errorf("list active targets: %w", err)
	}
	return targets, nil
}
