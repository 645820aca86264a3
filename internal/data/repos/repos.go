package repos

import (
	"github.com/notewise/notewise-backend/internal/data/repos/jobs"
	"github.com/notewise/notewise-backend/internal/data/repos/notes"
	"github.com/notewise/notewise-backend/internal/data/repos/user"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
)

type (
	UserRepo   = user.UserRepo
	NoteRepo   = notes.NoteRepo
	JobRunRepo = jobs.JobRunRepo
)

// Repos bundles every repository behind one constructor so wiring stays in
// one place.
type Repos struct {
	User   UserRepo
	Note   NoteRepo
	JobRun JobRunRepo
}

func New(log *logger.Logger) *Repos {
	return &Repos{
		User:   user.NewUserRepo(log),
		Note:   notes.NewNoteRepo(log),
		JobRun: jobs.NewJobRunRepo(log),
	}
}
