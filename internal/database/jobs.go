package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrJobNotFound is returned when a job id has no record.
var ErrJobNotFound = errors.New("job not found")

// Job is one publish pipeline invocation's persisted history.
type Job struct {
	ID            string     `json:"jobId"`
	ShopID        string     `json:"shopId"`
	RepairOrderID string     `json:"repairOrderId"`
	TaskID        string     `json:"taskId"`
	ExplainerID   string     `json:"explainerId,omitempty"`
	Finding       string     `json:"finding,omitempty"`
	Severity      string     `json:"severity,omitempty"`
	Merged        bool       `json:"merged"`
	Uploaded      bool       `json:"uploaded"`
	ObjectKey     string     `json:"objectKey,omitempty"`
	ErrorKind     string     `json:"errorKind,omitempty"`
	ErrorDetail   string     `json:"errorDetail,omitempty"`
	StartedAt     time.Time  `json:"startedAt"`
	FinishedAt    *time.Time `json:"finishedAt,omitempty"`
}

// InsertJob records a newly started job.
func (db *DB) InsertJob(job *Job) error {
	start := time.Now()

	_, err := db.conn.Exec(`
		INSERT INTO publish_jobs
			(id, shop_id, repair_order_id, task_id, explainer_id, finding, severity, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID, job.ShopID, job.RepairOrderID, job.TaskID,
		job.ExplainerID, job.Finding, job.Severity, job.StartedAt,
	)
	recordQuery("insert_job", start, err)
	if err != nil {
		return fmt.Errorf("failed to insert job %s: %w", job.ID, err)
	}
	return nil
}

// FinishJob records a job's terminal state.
func (db *DB) FinishJob(job *Job) error {
	start := time.Now()

	now := time.Now()
	job.FinishedAt = &now

	_, err := db.conn.Exec(`
		UPDATE publish_jobs
		SET merged = ?, uploaded = ?, object_key = ?, error_kind = ?, error_detail = ?, finished_at = ?
		WHERE id = ?`,
		job.Merged, job.Uploaded, job.ObjectKey, job.ErrorKind, job.ErrorDetail, now, job.ID,
	)
	recordQuery("finish_job", start, err)
	if err != nil {
		return fmt.Errorf("failed to finish job %s: %w", job.ID, err)
	}
	return nil
}

// GetJob returns the job with the given id, or ErrJobNotFound.
func (db *DB) GetJob(id string) (*Job, error) {
	start := time.Now()

	row := db.conn.QueryRow(`
		SELECT id, shop_id, repair_order_id, task_id, explainer_id, finding, severity,
		       merged, uploaded, object_key, error_kind, error_detail, started_at, finished_at
		FROM publish_jobs WHERE id = ?`, id)

	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		recordQuery("get_job", start, nil)
		return nil, ErrJobNotFound
	}
	recordQuery("get_job", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to get job %s: %w", id, err)
	}
	return job, nil
}

// ListJobs returns up to limit jobs, newest first.
func (db *DB) ListJobs(limit int) ([]*Job, error) {
	start := time.Now()

	if limit <= 0 || limit > 500 {
		limit = 100
	}

	rows, err := db.conn.Query(`
		SELECT id, shop_id, repair_order_id, task_id, explainer_id, finding, severity,
		       merged, uploaded, object_key, error_kind, error_detail, started_at, finished_at
		FROM publish_jobs ORDER BY started_at DESC LIMIT ?`, limit)
	recordQuery("list_jobs", start, err)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*Job, error) {
	var job Job
	var finishedAt sql.NullTime
	err := row.Scan(
		&job.ID, &job.ShopID, &job.RepairOrderID, &job.TaskID,
		&job.ExplainerID, &job.Finding, &job.Severity,
		&job.Merged, &job.Uploaded, &job.ObjectKey,
		&job.ErrorKind, &job.ErrorDetail, &job.StartedAt, &finishedAt,
	)
	if err != nil {
		return nil, err
	}
	if finishedAt.Valid {
		job.FinishedAt = &finishedAt.Time
	}
	return &job, nil
}
