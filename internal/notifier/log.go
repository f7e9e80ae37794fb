package notifier

import (
	"context"
	"log/slog"

	"github.com/amishk599/jobagg/internal/model"
)

// Ensure LogNotifier implements model.Notifier.
var _ model.Notifier = (*LogNotifier)(nil)

// LogNotifier writes newly stored jobs to the given logger as structured messages.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier returns a notifier that logs each job via slog.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Notify logs each job. Returns nil (stdout logging does not fail).
func (n *LogNotifier) Notify(_ context.Context, jobs []model.StoredJob) error {
	for _, j := range jobs {
		n.logger.Info("new job",
			"role", j.Role,
			"company", j.CompanyName,
			"location", j.Location,
			"job_type", j.JobType,
			"source", j.Source,
			"link", j.ApplicationLink,
			"posted", j.PostedDate.Format("2006-01-02"),
		)
	}
	return nil
}
