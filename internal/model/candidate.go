package model

// RetrievedRecord 是向量检索返回的一行：申请人字段、简历文本与相似度。
type RetrievedRecord struct {
	ApplicantID     uint    `gorm:"column:applicant_id"`
	Name            string  `gorm:"column:name"`
	Email           string  `gorm:"column:email"`
	Note            string  `gorm:"column:note"`
	ResumeFile      string  `gorm:"column:resume_file"`
	CoverLetterFile *string `gorm:"column:cover_letter_file"`
	ExtractedText   string  `gorm:"column:extracted_text"`
	Similarity      float64 `gorm:"column:similarity"`
}

// CandidateScore 是打分服务对单个候选人的原始判断，id 与 confidence 尚未校验。
type CandidateScore struct {
	ID         any
	Reasoning  string
	Confidence any
}

// Candidate 是最终返回给协调人的候选人。
type Candidate struct {
	ID         uint   `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Note       string `json:"note"`
	Reasoning  string `json:"reasoning"`
	Confidence int    `json:"confidence"`
	ResumeLink string `json:"resumeLink"`
	ResumeFile string `json:"resumeFile"`
}

// SearchRequest 是 /api/ai-search 的请求体。
type SearchRequest struct {
	Course      string  `json:"course" binding:"required"`
	Description *string `json:"description"`
}

// SearchResponse 是 /api/ai-search 的响应体。
type SearchResponse struct {
	Success            bool        `json:"success"`
	Candidates         []Candidate `json:"candidates"`
	TotalFound         int         `json:"totalFound"`
	SearchedApplicants int         `json:"searchedApplicants"`
	Course             string      `json:"course"`
	Description        *string     `json:"description"`
	Message            string      `json:"message,omitempty"`
}

// ApplicationResult 是提交申请后的结果。
type ApplicationResult struct {
	ApplicantID         uint `json:"applicantId"`
	IsUpdate            bool `json:"isUpdate"`
	ExtractedTextLength int  `json:"extractedTextLength"`
}
