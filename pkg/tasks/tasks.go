// Package tasks defines the structure for tasks that are sent to Kafka.
package tasks

// EmbeddingTask asks a worker to (re)compute the embedding of one stored resume.
type EmbeddingTask struct {
	ResumeID    uint   `json:"resume_id"`
	ApplicantID uint   `json:"applicant_id"`
	Email       string `json:"email"`
	Reason      string `json:"reason"` // submission_failed | backfill
}

const (
	ReasonSubmissionFailed = "submission_failed"
	ReasonBackfill         = "backfill"
)
