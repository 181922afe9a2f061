package memories

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	JobPending = "pending"
	JobRunning = "running"
	JobDone    = "done"
	JobFailed  = "failed"
)

// Job tracks one background deletion. Chunk removals that fail are recorded
// in Errors and do not stop the rest of the job.
type Job struct {
	Id         string     `json:"id"`
	DocumentId string     `json:"documentId"`
	Status     string     `json:"status"`
	Errors     []string   `json:"errors,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

func (s *Service) newJob(documentId string) *Job {
	job := &Job{
		Id:         uuid.New().String(),
		DocumentId: documentId,
		Status:     JobPending,
		CreatedAt:  s.now(),
	}

	s.mtx.Lock()
	s.jobs[job.Id] = job
	s.mtx.Unlock()

	return job
}

func (s *Service) setJobRunning(id string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	if job, ok := s.jobs[id]; ok {
		job.Status = JobRunning
	}
}

func (s *Service) finishJob(id string, errs []string) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	job, ok := s.jobs[id]
	if !ok {
		return
	}

	now := s.now()
	job.FinishedAt = &now
	job.Errors = errs
	if len(errs) > 0 {
		job.Status = JobFailed
	} else {
		job.Status = JobDone
	}
}

// Job returns a snapshot of the job with the given id.
func (s *Service) Job(ctx context.Context, id string) (Job, bool) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return Job{}, false
	}
	return *job, true
}

// Jobs returns snapshots of all known jobs, oldest first.
func (s *Service) Jobs(ctx context.Context) []Job {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	jobs := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, *job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.Before(jobs[j].CreatedAt)
	})

	return jobs
}
