// Package service 提供了申请提交与候选人检索的业务逻辑。
package service

import (
	"context"
	"fmt"
	"strings"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/log"
)

// NoEmbeddedApplicantsMessage 是检索结果为空时返回给前端的提示。
const NoEmbeddedApplicantsMessage = "No applicants with resume embeddings found in database"

// QueryEmbedder 生成查询向量。
type QueryEmbedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

// SearchService 接口定义了候选人检索操作。
type SearchService interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error)
}

type searchService struct {
	embedder  QueryEmbedder
	retriever Retriever
	scorer    ScoringService
	links     LinkResolver
	cfg       config.SearchConfig
}

// NewSearchService 创建一个新的 SearchService 实例。所有阈值都来自 cfg。
func NewSearchService(embedder QueryEmbedder, retriever Retriever, scorer ScoringService, links LinkResolver, cfg config.SearchConfig) SearchService {
	return &searchService{
		embedder:  embedder,
		retriever: retriever,
		scorer:    scorer,
		links:     links,
		cfg:       cfg,
	}
}

// Search 执行 向量化 -> 近邻检索 -> 分批打分 -> 合并过滤 -> 生成链接 的完整流程。
func (s *searchService) Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error) {
	course := strings.TrimSpace(req.Course)
	logger := log.FromContext(ctx).With("component", "search")
	logger.Infow("开始检索候选人", "course", course)

	// 1. 查询向量化，失败时无法检索
	vector, err := s.embedder.EmbedQuery(ctx, QueryText(course, req.Description))
	if err != nil {
		logger.Errorw("生成查询向量失败", "error", err)
		return nil, fmt.Errorf("failed to create query embedding: %w", err)
	}

	// 2. 近邻检索
	limit := s.cfg.Limit
	if limit <= 0 {
		limit = config.DefaultSearchConfig().Limit
	}
	records, err := s.retriever.Retrieve(ctx, vector, limit)
	if err != nil {
		logger.Errorw("近邻检索失败", "limit", limit, "error", err)
		return nil, err
	}
	if len(records) == 0 {
		logger.Infow("没有带向量的申请人, 直接返回空结果")
		return &model.SearchResponse{
			Success:     true,
			Candidates:  []model.Candidate{},
			Course:      course,
			Description: req.Description,
			Message:     NoEmbeddedApplicantsMessage,
		}, nil
	}
	logger.Infow("近邻检索完成", "limit", limit, "retrieved", len(records))

	// 3. 分批打分
	scores, err := s.scorer.Score(ctx, course, req.Description, records)
	if err != nil {
		logger.Errorw("打分失败", "error", err)
		return nil, err
	}

	// 4. 合并与过滤
	fused := Fuse(records, scores, s.cfg.ConfidenceFloor)
	if fused.Dropped > 0 {
		logger.Warnw("丢弃无法匹配的打分结果", "dropped", fused.Dropped, "unknownIDs", fused.UnknownIDs)
	}

	// 5. 简历文件转换为限时链接
	for i := range fused.Candidates {
		fused.Candidates[i].ResumeFile = s.links.Resolve(ctx, fused.Candidates[i].ResumeFile)
	}

	logger.Infow("检索完成",
		"found", len(fused.Candidates),
		"floor", s.cfg.ConfidenceFloor,
		"retrieved", fused.Retrieved,
		"dropped", fused.Dropped,
	)
	return &model.SearchResponse{
		Success:            true,
		Candidates:         fused.Candidates,
		TotalFound:         len(fused.Candidates),
		SearchedApplicants: fused.Retrieved,
		Course:             course,
		Description:        req.Description,
	}, nil
}
