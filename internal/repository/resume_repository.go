package repository

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/embedding"
)

// ResumeRepository 定义了简历向量相关的数据操作接口。
type ResumeRepository interface {
	// Nearest 按余弦距离升序返回最多 limit 条带有当前模型向量的记录。
	Nearest(ctx context.Context, vector []float32, modelVersion string, limit int) ([]model.RetrievedRecord, error)
	// FindByApplicantIDs 返回这些申请人中已有当前模型向量的记录，顺序不保证。
	FindByApplicantIDs(ctx context.Context, applicantIDs []uint, modelVersion string) ([]model.RetrievedRecord, error)
	FindByID(ctx context.Context, resumeID uint) (*model.Resume, error)
	// FindMissingEmbeddings 返回有文本但缺少当前模型向量的简历。
	FindMissingEmbeddings(ctx context.Context, modelVersion string, limit int) ([]model.Resume, error)
	UpdateEmbedding(ctx context.Context, resumeID uint, vector []float32, modelVersion string) error
}

type resumeRepository struct {
	db *gorm.DB
}

// NewResumeRepository 创建一个新的 ResumeRepository 实例。
func NewResumeRepository(db *gorm.DB) ResumeRepository {
	return &resumeRepository{db: db}
}

const nearestSQL = `
SELECT a.applicant_id, a.name, a.email, a.note,
       r.resume_file, r.cover_letter_file, r.extracted_text,
       1 - (r.embedding <=> ?::vector) AS similarity
FROM resumes r
JOIN applicants a ON a.applicant_id = r.applicant_id
WHERE r.embedding IS NOT NULL AND r.model_version = ?
ORDER BY r.embedding <=> ?::vector
LIMIT ?`

func (r *resumeRepository) Nearest(ctx context.Context, vector []float32, modelVersion string, limit int) ([]model.RetrievedRecord, error) {
	var rows []model.RetrievedRecord
	err := nearestQuery(r.db.WithContext(ctx), vector, modelVersion, limit).Scan(&rows).Error
	return rows, err
}

// nearestQuery 只返回带有当前模型向量的简历，按余弦距离升序。
func nearestQuery(db *gorm.DB, vector []float32, modelVersion string, limit int) *gorm.DB {
	literal := embedding.FormatVector(vector)
	return db.Raw(nearestSQL, literal, modelVersion, literal, limit)
}

func (r *resumeRepository) FindByApplicantIDs(ctx context.Context, applicantIDs []uint, modelVersion string) ([]model.RetrievedRecord, error) {
	if len(applicantIDs) == 0 {
		return nil, nil
	}
	var rows []model.RetrievedRecord
	err := byApplicantIDsQuery(r.db.WithContext(ctx), applicantIDs, modelVersion).Scan(&rows).Error
	return rows, err
}

func byApplicantIDsQuery(db *gorm.DB, applicantIDs []uint, modelVersion string) *gorm.DB {
	return db.
		Table("resumes r").
		Select("a.applicant_id, a.name, a.email, a.note, r.resume_file, r.cover_letter_file, r.extracted_text").
		Joins("JOIN applicants a ON a.applicant_id = r.applicant_id").
		Where("r.applicant_id IN ? AND r.embedding IS NOT NULL AND r.model_version = ?", applicantIDs, modelVersion)
}

func (r *resumeRepository) FindByID(ctx context.Context, resumeID uint) (*model.Resume, error) {
	var resume model.Resume
	err := byIDQuery(r.db.WithContext(ctx), resumeID).Take(&resume).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &resume, nil
}

// byIDQuery 带出申请人 email，供重建 ES 文档使用。
func byIDQuery(db *gorm.DB, resumeID uint) *gorm.DB {
	return db.Model(&model.Resume{}).
		Select("resumes.*, a.email AS applicant_email").
		Joins("JOIN applicants a ON a.applicant_id = resumes.applicant_id").
		Where("resumes.resume_id = ?", resumeID)
}

func (r *resumeRepository) FindMissingEmbeddings(ctx context.Context, modelVersion string, limit int) ([]model.Resume, error) {
	var resumes []model.Resume
	err := missingEmbeddingsQuery(r.db.WithContext(ctx), modelVersion, limit).Find(&resumes).Error
	return resumes, err
}

func missingEmbeddingsQuery(db *gorm.DB, modelVersion string, limit int) *gorm.DB {
	q := db.
		Where("extracted_text IS NOT NULL AND extracted_text <> ''").
		Where("embedding IS NULL OR model_version IS DISTINCT FROM ?", modelVersion).
		Order("resume_id")
	if limit > 0 {
		q = q.Limit(limit)
	}
	return q
}

func (r *resumeRepository) UpdateEmbedding(ctx context.Context, resumeID uint, vector []float32, modelVersion string) error {
	vec := pgvector.NewVector(vector)
	res := r.db.WithContext(ctx).
		Model(&model.Resume{}).
		Where("resume_id = ?", resumeID).
		Updates(map[string]any{"embedding": &vec, "model_version": modelVersion})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
