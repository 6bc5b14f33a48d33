// Package repository 定义了与数据库进行数据交换的接口和实现。
package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"adjunct-search-go/internal/model"
)

// ErrNotFound 表示记录不存在。
var ErrNotFound = errors.New("record not found")

// ApplicantRepository 定义了申请人及其简历的持久化操作。
type ApplicantRepository interface {
	// ReplaceByEmail 在一个事务中删除同邮箱的旧申请人（简历级联删除）、插入新申请人、
	// 调用 beforeResume（上传文件），最后插入简历。任何一步失败都会回滚。
	// previousID 是被替换的旧申请人 ID，首次提交时为 0。
	ReplaceByEmail(ctx context.Context, applicant *model.Applicant, resume *model.Resume, beforeResume func(ctx context.Context) error) (previousID uint, err error)
	FindAll(ctx context.Context) ([]model.ApplicationView, error)
	FindByID(ctx context.Context, applicantID uint) (*model.ApplicationView, error)
}

type applicantRepository struct {
	db *gorm.DB
}

// NewApplicantRepository 创建一个新的 ApplicantRepository 实例。
func NewApplicantRepository(db *gorm.DB) ApplicantRepository {
	return &applicantRepository{db: db}
}

func (r *applicantRepository) ReplaceByEmail(ctx context.Context, applicant *model.Applicant, resume *model.Resume, beforeResume func(ctx context.Context) error) (uint, error) {
	var previousID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var previous model.Applicant
		if err := tx.Select("applicant_id").Where("email = ?", applicant.Email).Limit(1).Find(&previous).Error; err != nil {
			return fmt.Errorf("查询旧申请人失败: %w", err)
		}
		if previous.ID != 0 {
			if err := tx.Delete(&model.Applicant{}, previous.ID).Error; err != nil {
				return fmt.Errorf("删除旧申请人失败: %w", err)
			}
			previousID = previous.ID
		}

		if err := tx.Create(applicant).Error; err != nil {
			return fmt.Errorf("插入申请人失败: %w", err)
		}

		if beforeResume != nil {
			if err := beforeResume(ctx); err != nil {
				return err
			}
		}

		resume.ApplicantID = applicant.ID
		if err := tx.Create(resume).Error; err != nil {
			return fmt.Errorf("插入简历失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return previousID, nil
}

const applicationColumns = `a.applicant_id, a.name, a.email, a.phone, a.note, a.created_at,
	r.resume_id, r.resume_file, r.cover_letter_file, r.embedding IS NOT NULL AS has_embedding`

// FindAll 按提交时间倒序返回所有申请，不包含简历全文。
func (r *applicantRepository) FindAll(ctx context.Context) ([]model.ApplicationView, error) {
	var rows []model.ApplicationView
	err := r.db.WithContext(ctx).
		Table("applicants a").
		Select(applicationColumns).
		Joins("LEFT JOIN resumes r ON r.applicant_id = a.applicant_id").
		Order("a.created_at DESC").
		Scan(&rows).Error
	return rows, err
}

// FindByID 返回单个申请的详情，包含提取出的简历文本。
func (r *applicantRepository) FindByID(ctx context.Context, applicantID uint) (*model.ApplicationView, error) {
	var row model.ApplicationView
	res := r.db.WithContext(ctx).
		Table("applicants a").
		Select(applicationColumns+", COALESCE(r.extracted_text, '') AS extracted_text").
		Joins("LEFT JOIN resumes r ON r.applicant_id = a.applicant_id").
		Where("a.applicant_id = ?", applicantID).
		Limit(1).
		Scan(&row)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &row, nil
}
