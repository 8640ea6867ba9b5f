// Package audit records admin actions to the audit log. Recording is
// best effort: failures are logged and never fail the admin operation.
package audit

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/suburbmates/directory-cli/internal/db"
)

// Recorder writes admin action entries.
type Recorder interface {
	Record(ctx context.Context, actor, action, targetID string, detail any)
}

// PoolRecorder persists entries through a postgres pool.
type PoolRecorder struct {
	pool db.Pool
}

// NewPoolRecorder creates a Recorder backed by the given pool.
func NewPoolRecorder(pool db.Pool) *PoolRecorder {
	return &PoolRecorder{pool: pool}
}

// Record inserts one audit row. Errors are logged at Warn and swallowed.
func (r *PoolRecorder) Record(ctx context.Context, actor, action, targetID string, detail any) {
	var payload []byte
	if detail != nil {
		var err error
		payload, err = json.Marshal(detail)
		if err != nil {
			zap.L().Warn("audit: marshal detail", zap.String("action", action), zap.Error(err))
			payload = nil
		}
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_audit_log (id, actor, action, target_id, detail)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New().String(), actor, action, targetID, payload,
	)
	if err != nil {
		zap.L().Warn("audit: record failed",
			zap.String("actor", actor),
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err),
		)
		return
	}
	zap.L().Debug("audit: recorded", zap.String("action", action), zap.String("target_id", targetID))
}

// Nop discards all entries. Used when the store has no audit table
// available, such as the sqlite development driver.
type Nop struct{}

func (Nop) Record(context.Context, string, string, string, any) {}
