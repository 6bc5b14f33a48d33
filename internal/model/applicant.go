// Package model 定义了与数据库表对应的 Go 结构体以及检索流程中的临时结构。
package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Applicant 对应 applicants 表。email 唯一，重复提交时整行替换。
type Applicant struct {
	ID        uint      `gorm:"primaryKey;autoIncrement;column:applicant_id" json:"applicant_id"`
	Name      string    `gorm:"type:varchar(255);not null;column:name" json:"name"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex;column:email" json:"email"`
	Phone     *string   `gorm:"type:varchar(50);column:phone" json:"phone"`
	Note      string    `gorm:"type:text;column:note" json:"note"`
	CreatedAt time.Time `gorm:"autoCreateTime;column:created_at" json:"created_at"`
	Resume    *Resume   `gorm:"foreignKey:ApplicantID;references:ID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Applicant) TableName() string {
	return "applicants"
}

// Resume 对应 resumes 表，与 Applicant 一对一。
// Embedding 为空表示向量生成失败，等待回填。
type Resume struct {
	ID              uint             `gorm:"primaryKey;autoIncrement;column:resume_id" json:"resume_id"`
	ApplicantID     uint             `gorm:"not null;uniqueIndex;column:applicant_id" json:"applicant_id"`
	ResumeFile      string           `gorm:"type:text;not null;column:resume_file" json:"resume_file"`
	CoverLetterFile *string          `gorm:"type:text;column:cover_letter_file" json:"cover_letter_file"`
	ExtractedText   string           `gorm:"type:text;column:extracted_text" json:"extracted_text"`
	Embedding       *pgvector.Vector `gorm:"type:vector(384);column:embedding" json:"-"`
	ModelVersion    string           `gorm:"type:varchar(255);column:model_version" json:"model_version"`
	UploadedAt      time.Time        `gorm:"autoCreateTime;column:uploaded_at" json:"uploaded_at"`
	// ApplicantEmail 只在联表查询时填充，不落库。
	ApplicantEmail string `gorm:"->;-:migration;column:applicant_email" json:"-"`
}

func (Resume) TableName() string {
	return "resumes"
}

// ApplicationView 是申请列表与详情接口读取的联表结果。
type ApplicationView struct {
	ApplicantID     uint      `gorm:"column:applicant_id" json:"applicant_id"`
	Name            string    `gorm:"column:name" json:"name"`
	Email           string    `gorm:"column:email" json:"email"`
	Phone           *string   `gorm:"column:phone" json:"phone"`
	Note            string    `gorm:"column:note" json:"note"`
	CreatedAt       time.Time `gorm:"column:created_at" json:"created_at"`
	ResumeID        *uint     `gorm:"column:resume_id" json:"resume_id"`
	ResumeFile      *string   `gorm:"column:resume_file" json:"resume_file"`
	CoverLetterFile *string   `gorm:"column:cover_letter_file" json:"cover_letter_file"`
	ExtractedText   string    `gorm:"column:extracted_text" json:"extracted_text,omitempty"`
	HasEmbedding    bool      `gorm:"column:has_embedding" json:"has_embedding"`
}
