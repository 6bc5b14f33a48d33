package model

// ResumeDocument 是写入 Elasticsearch 的简历向量文档，文档 ID 为 applicant_id。
type ResumeDocument struct {
	ApplicantID  uint      `json:"applicant_id"`
	Email        string    `json:"email"`
	Vector       []float32 `json:"vector"`
	ModelVersion string    `json:"model_version"`
}
