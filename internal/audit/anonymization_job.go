package audit

import (
	"context"
	"log/slog"
)

// AnonymizationJob defines the interface for IP anonymization jobs.
type AnonymizationJob interface {
	// Run executes the IP anonymization process for eligible decision records.
	// Returns the number of records anonymized and any error encountered.
	Run(ctx context.Context) (int64, error)
}

// AnonymizationJobConfig configures the IP anonymization job.
type AnonymizationJobConfig struct {
	Repository Repository   // Decision log repository
	Logger     *slog.Logger // Logger for job execution
	DryRun     bool         // If true, only log what would be anonymized
}

// BasicAnonymizationJob coarsens stored client IPs once they age past the
// retention window.
type BasicAnonymizationJob struct {
	config AnonymizationJobConfig
}

// NewAnonymizationJob creates a new IP anonymization job.
func NewAnonymizationJob(config AnonymizationJobConfig) *BasicAnonymizationJob {
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &BasicAnonymizationJob{config: config}
}

// Run executes the IP anonymization process.
func (j *BasicAnonymizationJob) Run(ctx context.Context) (int64, error) {
	cutoff := IPAnonymizationCutoff()
	j.config.Logger.Info("starting IP anonymization job",
		"cutoff_date", cutoff,
		"days_retention", IPRetentionDays,
		"dry_run", j.config.DryRun,
	)

	if j.config.Repository == nil {
		return 0, ErrNilRepository
	}

	if j.config.DryRun {
		j.config.Logger.Info("dry run, no records changed")
		return 0, nil
	}

	changed, err := j.config.Repository.AnonymizeIPsBefore(cutoff)
	if err != nil {
		j.config.Logger.Error("IP anonymization failed", "error", err)
		return 0, err
	}

	j.config.Logger.Info("IP anonymization complete", "records_changed", changed)
	return changed, nil
}
