package retention

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Store is the subset of the SQLite audit sink the pruner needs.
type Store interface {
	Count(ctx context.Context) (int64, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
	DeleteOldest(ctx context.Context, keep int64) (int64, error)
}

// Config contains retention configuration.
type Config struct {
	// RetentionDays is the maximum record age in days. 0 disables
	// age-based pruning.
	RetentionDays int

	// MaxRecords caps the store size; the oldest records beyond the cap
	// are pruned. 0 disables count-based pruning.
	MaxRecords int64

	// PruneSchedule is a standard cron expression (e.g. "0 3 * * *").
	// Empty disables the scheduler.
	PruneSchedule string
}

// Validate checks the retention configuration.
func (c *Config) Validate() error {
	if c.RetentionDays < 0 {
		return fmt.Errorf("retention days cannot be negative")
	}
	if c.MaxRecords < 0 {
		return fmt.Errorf("max records cannot be negative")
	}
	return nil
}

// Pruner applies the retention policy to the audit store.
type Pruner struct {
	store  Store
	config *Config
	logger *slog.Logger
}

// NewPruner creates a pruner.
func NewPruner(store Store, config *Config, logger *slog.Logger) (*Pruner, error) {
	if config == nil {
		config = &Config{}
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		store:  store,
		config: config,
		logger: logger.With("component", "audit.retention"),
	}, nil
}

// Prune applies age-based then count-based pruning and returns the
// total number of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var deleted int64

	if p.config.RetentionDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
		n, err := p.store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			return deleted, fmt.Errorf("age-based pruning failed: %w", err)
		}
		deleted += n
		if n > 0 {
			p.logger.Info("pruned records by age",
				"deleted_count", n,
				"cutoff", cutoff,
			)
		}
	}

	if p.config.MaxRecords > 0 {
		count, err := p.store.Count(ctx)
		if err != nil {
			return deleted, fmt.Errorf("record count failed: %w", err)
		}
		if count > p.config.MaxRecords {
			n, err := p.store.DeleteOldest(ctx, p.config.MaxRecords)
			if err != nil {
				return deleted, fmt.Errorf("count-based pruning failed: %w", err)
			}
			deleted += n
			p.logger.Info("pruned records by count",
				"deleted_count", n,
				"max_records", p.config.MaxRecords,
			)
		}
	}

	return deleted, nil
}
