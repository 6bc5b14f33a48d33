// Package pipeline 定义了简历向量回填的核心流程。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/internal/repository"
	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/tasks"
)

// Embedder 生成文档向量。
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// Indexer 是可选的外部向量索引。
type Indexer interface {
	IndexResume(ctx context.Context, doc model.ResumeDocument) error
}

// Processor 封装了向量回填的所有依赖和逻辑。
type Processor struct {
	resumeRepo repository.ResumeRepository
	embedder   Embedder
	index      Indexer
}

// NewProcessor 创建一个新的 Processor 实例。index 可以为 nil。
func NewProcessor(resumeRepo repository.ResumeRepository, embedder Embedder, index Indexer) *Processor {
	return &Processor{resumeRepo: resumeRepo, embedder: embedder, index: index}
}

// Process 为一份简历计算并写回向量。
// 简历已删除、没有文本或已是当前模型的向量时直接返回 nil。
func (p *Processor) Process(ctx context.Context, task tasks.EmbeddingTask) error {
	log.Infof("[Processor] 开始处理向量任务, ResumeID: %d, Reason: %s", task.ResumeID, task.Reason)

	resume, err := p.resumeRepo.FindByID(ctx, task.ResumeID)
	if errors.Is(err, repository.ErrNotFound) {
		// 申请人可能已重新提交，旧简历随之级联删除
		log.Warnf("[Processor] 简历不存在, 跳过, ResumeID: %d", task.ResumeID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("查询简历失败: %w", err)
	}

	if strings.TrimSpace(resume.ExtractedText) == "" {
		log.Warnf("[Processor] 简历没有可用文本, 跳过, ResumeID: %d", resume.ID)
		return nil
	}
	if resume.Embedding != nil && resume.ModelVersion == p.embedder.Model() {
		log.Infof("[Processor] 简历已有当前模型向量, 跳过, ResumeID: %d", resume.ID)
		return nil
	}

	vector, err := p.embedder.Embed(ctx, resume.ExtractedText)
	if err != nil {
		return fmt.Errorf("向量化失败: %w", err)
	}
	if err := p.resumeRepo.UpdateEmbedding(ctx, resume.ID, vector, p.embedder.Model()); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Warnf("[Processor] 写回向量时简历已被删除, ResumeID: %d", resume.ID)
			return nil
		}
		return fmt.Errorf("写回向量失败: %w", err)
	}

	if p.index != nil {
		email := resume.ApplicantEmail
		if email == "" {
			email = task.Email
		}
		doc := model.ResumeDocument{
			ApplicantID:  resume.ApplicantID,
			Email:        email,
			Vector:       vector,
			ModelVersion: p.embedder.Model(),
		}
		if err := p.index.IndexResume(ctx, doc); err != nil {
			// 数据库已是权威数据，索引失败不触发重试
			log.Warnf("[Processor] 写入 ES 失败, ApplicantID: %d, Error: %v", resume.ApplicantID, err)
		}
	}

	log.Infof("[Processor] 向量任务完成, ResumeID: %d, 维度: %d", resume.ID, len(vector))
	return nil
}
