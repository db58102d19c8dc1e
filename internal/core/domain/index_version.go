package domain

import "time"

type IndexVersion struct {
	Tag       string    `json:"tag"`
	IndexFile string    `json:"index_file"`
	MetaFile  string    `json:"meta_file"`
	CreatedAt time.Time `json:"created_at"`
	// Complete reports whether both snapshot files still exist on disk.
	Complete bool `json:"complete"`
}

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

func (s JobStatus) Terminal() bool {
	return s == JobSucceeded || s == JobFailed
}

type ReindexJob struct {
	ID         string     `json:"id"`
	Status     JobStatus  `json:"status"`
	VersionTag string     `json:"version_tag,omitempty"`
	ChunkCount int        `json:"chunk_count"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}
