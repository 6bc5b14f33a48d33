package service

import (
	"context"
	"fmt"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/internal/repository"
	"adjunct-search-go/pkg/es"
	"adjunct-search-go/pkg/log"
)

// Retriever 按余弦相似度降序返回带有向量的记录。没有结果时返回空切片而不是错误。
type Retriever interface {
	Retrieve(ctx context.Context, vector []float32, limit int) ([]model.RetrievedRecord, error)
}

type pgvectorRetriever struct {
	resumeRepo   repository.ResumeRepository
	modelVersion string
}

// NewPgvectorRetriever 直接在 PostgreSQL 上用 <=> 运算符做近邻查询。
func NewPgvectorRetriever(resumeRepo repository.ResumeRepository, modelVersion string) Retriever {
	return &pgvectorRetriever{resumeRepo: resumeRepo, modelVersion: modelVersion}
}

func (r *pgvectorRetriever) Retrieve(ctx context.Context, vector []float32, limit int) ([]model.RetrievedRecord, error) {
	records, err := r.resumeRepo.Nearest(ctx, vector, r.modelVersion, limit)
	if err != nil {
		return nil, fmt.Errorf("pgvector 近邻查询失败: %w", err)
	}
	return records, nil
}

// KnnSearcher 是 Elasticsearch kNN 查询的抽象，便于测试。
type KnnSearcher interface {
	SearchNearest(ctx context.Context, vector []float32, k int, modelVersion string) ([]es.Hit, error)
}

type esKnnSearcher struct {
	indexName string
}

// NewESKnnSearcher 使用全局 ESClient 查询指定索引。
func NewESKnnSearcher(indexName string) KnnSearcher {
	return &esKnnSearcher{indexName: indexName}
}

func (s *esKnnSearcher) SearchNearest(ctx context.Context, vector []float32, k int, modelVersion string) ([]es.Hit, error) {
	return es.SearchNearest(ctx, s.indexName, vector, k, modelVersion)
}

type esRetriever struct {
	searcher     KnnSearcher
	resumeRepo   repository.ResumeRepository
	modelVersion string
}

// NewESRetriever 先在 Elasticsearch 中做 kNN，再从 PostgreSQL 按 id 回表。
// 回表时没有向量的记录会被丢弃，保持 Elasticsearch 的排序。
func NewESRetriever(searcher KnnSearcher, resumeRepo repository.ResumeRepository, modelVersion string) Retriever {
	return &esRetriever{searcher: searcher, resumeRepo: resumeRepo, modelVersion: modelVersion}
}

func (r *esRetriever) Retrieve(ctx context.Context, vector []float32, limit int) ([]model.RetrievedRecord, error) {
	hits, err := r.searcher.SearchNearest(ctx, vector, limit, r.modelVersion)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch kNN 查询失败: %w", err)
	}
	if len(hits) == 0 {
		return []model.RetrievedRecord{}, nil
	}

	ids := make([]uint, 0, len(hits))
	for _, h := range hits {
		ids = append(ids, h.ApplicantID)
	}
	rows, err := r.resumeRepo.FindByApplicantIDs(ctx, ids, r.modelVersion)
	if err != nil {
		return nil, fmt.Errorf("按 ID 回表失败: %w", err)
	}

	byID := make(map[uint]model.RetrievedRecord, len(rows))
	for _, row := range rows {
		byID[row.ApplicantID] = row
	}
	records := make([]model.RetrievedRecord, 0, len(hits))
	for _, h := range hits {
		row, ok := byID[h.ApplicantID]
		if !ok {
			log.FromContext(ctx).Warnw("索引中的申请人在数据库中没有可用向量, 已跳过", "component", "retriever", "applicantID", h.ApplicantID)
			continue
		}
		// cosine 相似度的 _score 为 (1 + cos) / 2
		row.Similarity = 2*h.Score - 1
		records = append(records, row)
		if len(records) == limit {
			break
		}
	}
	return records, nil
}

type esResumeIndex struct {
	indexName string
}

// NewESResumeIndex 返回写入 Elasticsearch 简历向量索引的 ResumeIndex。
func NewESResumeIndex(indexName string) ResumeIndex {
	return &esResumeIndex{indexName: indexName}
}

func (i *esResumeIndex) IndexResume(ctx context.Context, doc model.ResumeDocument) error {
	return es.IndexResume(ctx, i.indexName, doc)
}

func (i *esResumeIndex) DeleteResume(ctx context.Context, applicantID uint) error {
	return es.DeleteResume(ctx, i.indexName, applicantID)
}
