package scheduler

import (
	"time"

	"github.com/smallbiznis/tallybridge/internal/config"
)

const (
	JobRecoverStaleSyncs = "recover_stale_syncs"
	JobLedgerImport      = "ledger_import"
)

// Config controls scheduler intervals and batch sizes.
type Config struct {
	Enabled            bool
	RunInterval        time.Duration
	RecoveryThreshold  time.Duration
	RecoveryBatchSize  int
	LedgerImportPeriod time.Duration
	EnabledJobs        []string
}

func DefaultConfig() Config {
	return Config{
		RunInterval:        time.Minute,
		RecoveryThreshold:  15 * time.Minute,
		RecoveryBatchSize:  50,
		LedgerImportPeriod: time.Hour,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		Enabled:            cfg.SchedulerEnabled,
		RunInterval:        time.Duration(cfg.SchedulerIntervalSecs) * time.Second,
		RecoveryThreshold:  time.Duration(cfg.SyncRecoveryMinutes) * time.Minute,
		LedgerImportPeriod: time.Duration(cfg.LedgerImportMinutes) * time.Minute,
		EnabledJobs:        cfg.SchedulerJobs,
	}
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.RecoveryThreshold <= 0 {
		c.RecoveryThreshold = defaults.RecoveryThreshold
	}
	if c.RecoveryBatchSize <= 0 {
		c.RecoveryBatchSize = defaults.RecoveryBatchSize
	}
	if c.LedgerImportPeriod <= 0 {
		c.LedgerImportPeriod = defaults.LedgerImportPeriod
	}
	return c
}
