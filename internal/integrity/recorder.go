// recorder.go implements the audit recorder. Record inserts exactly one
// activity_log row through the caller's open transaction, so a rolled-back
// mutation leaves no partial audit record behind.
package integrity

import (
	"context"
	"database/sql"

	"github.com/flowdeck/flowdeck/internal/db/models"
	"github.com/flowdeck/flowdeck/internal/db/repositories"
)

// Recorder appends audit entries to the activity log.
type Recorder struct {
	activity *repositories.ActivityRepository
}

// NewRecorder creates a Recorder over the given activity repository.
func NewRecorder(activity *repositories.ActivityRepository) *Recorder {
	return &Recorder{activity: activity}
}

// Record appends one audit entry inside the given transaction.
func (r *Recorder) Record(ctx context.Context, tx *sql.Tx, entry *models.ActivityLog) error {
	return r.activity.WithTx(tx).Insert(ctx, entry)
}
