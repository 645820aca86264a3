package services

import (
	"github.com/google/uuid"

	types "github.com/notewise/notewise-backend/internal/domain"
	"github.com/notewise/notewise-backend/internal/realtime"
)

// JobNotifier fans job lifecycle events out to the realtime hub.
type JobNotifier interface {
	JobQueued(userID uuid.UUID, job *types.JobRun)
	JobProgress(userID uuid.UUID, job *types.JobRun)
	JobCompleted(userID uuid.UUID, job *types.JobRun)
	JobFailed(userID uuid.UUID, job *types.JobRun)
}

type jobNotifier struct {
	hub *realtime.Hub
}

func NewJobNotifier(hub *realtime.Hub) JobNotifier {
	return &jobNotifier{hub: hub}
}

func (n *jobNotifier) JobQueued(userID uuid.UUID, job *types.JobRun) {
	n.hub.Broadcast(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventJobQueued,
		Data:    jobSnapshot(job),
	})
}

func (n *jobNotifier) JobProgress(userID uuid.UUID, job *types.JobRun) {
	n.hub.Broadcast(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventJobProgress,
		Data:    jobSnapshot(job),
	})
}

func (n *jobNotifier) JobCompleted(userID uuid.UUID, job *types.JobRun) {
	n.hub.Broadcast(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventJobCompleted,
		Data:    jobSnapshot(job),
	})
}

func (n *jobNotifier) JobFailed(userID uuid.UUID, job *types.JobRun) {
	n.hub.Broadcast(realtime.Message{
		Channel: userID.String(),
		Event:   realtime.EventJobFailed,
		Data:    jobSnapshot(job),
	})
}

func jobSnapshot(job *types.JobRun) map[string]any {
	return map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"status":   job.Status,
		"stage":    job.Stage,
		"progress": job.Progress,
		"error":    job.Error,
	}
}
