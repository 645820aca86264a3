// Package runtime is the execution contract between the job system and
// business code. Handlers never touch job_run rows directly; progress and
// terminal transitions go through Context so lifecycle invariants stay in
// one place.
package runtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/notewise/notewise-backend/internal/data/repos"
	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/pkg/dbctx"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

// Notifier receives job lifecycle events for realtime delivery. Implemented
// by the SSE notifier; nil disables notifications.
type Notifier interface {
	JobProgress(userID uuid.UUID, job *types.JobRun)
	JobCompleted(userID uuid.UUID, job *types.JobRun)
	JobFailed(userID uuid.UUID, job *types.JobRun)
}

var terminalStatuses = []types.JobStatus{types.JobStatusCompleted, types.JobStatusFailed}

// Context is a capability-scoped handle for one claimed job run.
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Log    *logger.Logger
	Notify Notifier
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, log *logger.Logger, notify Notifier) *Context {
	return &Context{
		Ctx:    ctx,
		DB:     db,
		Job:    job,
		Repo:   repo,
		Log:    log,
		Notify: notify,
	}
}

// DecodePayload unmarshals the frozen job payload into out.
func (c *Context) DecodePayload(out any) error {
	if c.Job == nil || len(c.Job.Payload) == 0 {
		return nil
	}
	return json.Unmarshal(c.Job.Payload, out)
}

// Progress publishes a non-terminal checkpoint. The write is monotonic:
// regressions and writes against terminal rows are silently dropped, so a
// stale worker can never rewind a run another worker finished.
func (c *Context) Progress(stage string, pct int) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	ok, err := c.Repo.UpdateProgress(c.dbc(), c.Job.ID, stage, pct)
	if err != nil {
		c.Log.Warn("progress write failed", "job_id", c.Job.ID.String(), "error", err.Error())
		return
	}
	if !ok {
		return
	}

	c.Job.Stage = stage
	c.Job.Progress = pct

	if c.Notify != nil {
		c.Notify.JobProgress(c.Job.OwnerUserID, c.Job)
	}
}

// Fail terminally fails the run. Rejected when the row is already terminal.
func (c *Context) Fail(stage string, err error) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	now := time.Now().UTC()
	msg := ""
	if err != nil {
		msg = err.Error()
	}

	ok, uerr := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]any{
		"status":        types.JobStatusFailed,
		"stage":         stage,
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
	})
	if uerr != nil {
		c.Log.Error("fail write failed", "job_id", c.Job.ID.String(), "error", uerr.Error())
		return
	}
	if !ok {
		return
	}

	c.Job.Status = types.JobStatusFailed
	c.Job.Stage = stage
	c.Job.Error = msg
	c.Job.LastErrorAt = &now
	c.Job.LockedAt = nil

	if c.Notify != nil {
		c.Notify.JobFailed(c.Job.OwnerUserID, c.Job)
	}
}

// Complete terminally completes the run at progress 100 and stores result.
func (c *Context) Complete(finalStage string, result any) {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	var res datatypes.JSON
	if result != nil {
		b, err := json.Marshal(result)
		if err != nil {
			c.Fail(finalStage, err)
			return
		}
		res = datatypes.JSON(b)
	}

	ok, err := c.Repo.UpdateFieldsUnlessStatus(c.dbc(), c.Job.ID, terminalStatuses, map[string]any{
		"status":    types.JobStatusCompleted,
		"stage":     finalStage,
		"progress":  100,
		"error":     "",
		"result":    res,
		"locked_at": nil,
	})
	if err != nil {
		c.Log.Error("complete write failed", "job_id", c.Job.ID.String(), "error", err.Error())
		return
	}
	if !ok {
		return
	}

	c.Job.Status = types.JobStatusCompleted
	c.Job.Stage = finalStage
	c.Job.Progress = 100
	c.Job.Error = ""
	c.Job.Result = res
	c.Job.LockedAt = nil

	if c.Notify != nil {
		c.Notify.JobCompleted(c.Job.OwnerUserID, c.Job)
	}
}

// Heartbeat refreshes the claim lease during long handler phases.
func (c *Context) Heartbeat() {
	if c == nil || c.Job == nil || c.Job.ID == uuid.Nil {
		return
	}
	if err := c.Repo.Heartbeat(c.dbc(), c.Job.ID); err != nil {
		c.Log.Warn("heartbeat failed", "job_id", c.Job.ID.String(), "error", err.Error())
	}
}

func (c *Context) dbc() dbctx.Context {
	ctx := c.Ctx
	if ctx == nil {
		ctx = context.Background()
	}
	return dbctx.Context{Ctx: ctx, Tx: c.DB}
}
