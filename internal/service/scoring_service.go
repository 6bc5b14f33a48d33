package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"adjunct-search-go/internal/config"
	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/embedding"
	"adjunct-search-go/pkg/llm"
	"adjunct-search-go/pkg/log"
)

// ScoringError 表示所有批次都调用失败，Kind 决定对外的状态码。
type ScoringError struct {
	Kind    llm.ErrorKind
	Batches int
	Err     error
}

func (e *ScoringError) Error() string {
	return fmt.Sprintf("all %d scoring batches failed (%s): %v", e.Batches, e.Kind, e.Err)
}

func (e *ScoringError) Unwrap() error { return e.Err }

// ScoringService 对检索结果分批打分。
type ScoringService interface {
	Score(ctx context.Context, course string, description *string, records []model.RetrievedRecord) ([]model.CandidateScore, error)
}

type scoringService struct {
	llmClient llm.Client
	cfg       config.SearchConfig
}

// NewScoringService 创建一个新的 ScoringService 实例。
func NewScoringService(llmClient llm.Client, cfg config.SearchConfig) ScoringService {
	return &scoringService{llmClient: llmClient, cfg: cfg}
}

// batchOutcome 是单个批次的结果，由对应 goroutine 独占写入。
type batchOutcome struct {
	size   int
	result ParseResult
	err    error
}

func (s *scoringService) Score(ctx context.Context, course string, description *string, records []model.RetrievedRecord) ([]model.CandidateScore, error) {
	batches := Partition(records, s.cfg.BatchSize)
	if len(batches) == 0 {
		return nil, nil
	}
	logger := log.FromContext(ctx).With("component", "scorer")
	logger.Infow("开始分批打分", "records", len(records), "batches", len(batches), "batchSize", s.cfg.BatchSize)

	system := SystemPrompt(s.cfg.ConfidenceFloor)
	outcomes := make([]batchOutcome, len(batches))

	var g errgroup.Group
	if s.cfg.MaxConcurrency > 0 {
		g.SetLimit(s.cfg.MaxConcurrency)
	}
	for i, batch := range batches {
		i, batch := i, batch
		g.Go(func() error {
			batchLog := logger.With("batch", fmt.Sprintf("%d/%d", i+1, len(batches)))
			outcomes[i] = s.scoreBatch(ctx, batchLog, system, course, description, batch, i+1, len(batches))
			return nil
		})
	}
	_ = g.Wait()

	return collectOutcomes(outcomes)
}

func (s *scoringService) scoreBatch(ctx context.Context, logger *zap.SugaredLogger, system, course string, description *string, batch []model.RetrievedRecord, num, total int) batchOutcome {
	user := UserPrompt(course, description, num, total, BuildCandidateBlocks(batch, s.cfg.MaxResumeChars))

	callCtx := ctx
	if s.cfg.BatchTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.cfg.BatchTimeout)
		defer cancel()
	}

	started := time.Now()
	raw, err := s.llmClient.CompleteJSON(callCtx, system, user)
	if err != nil {
		logger.Warnw("批次调用失败", "kind", llm.Classify(err), "error", err)
		return batchOutcome{size: len(batch), err: err}
	}

	result := ParseScores(raw)
	switch r := result.(type) {
	case Parsed:
		logger.Infow("批次完成", "parsed", len(r.Candidates), "elapsed", time.Since(started).String())
	case Failed:
		logger.Warnw("批次输出无法解析", "reason", r.Reason, "raw", embedding.Truncate(r.Raw, 200))
	}
	return batchOutcome{size: len(batch), result: result}
}

// collectOutcomes 在所有批次结束后拼接结果。只有全部批次都调用失败时才返回错误。
func collectOutcomes(outcomes []batchOutcome) ([]model.CandidateScore, error) {
	var scores []model.CandidateScore
	var invocationErrs []error
	for _, o := range outcomes {
		if o.err != nil {
			invocationErrs = append(invocationErrs, o.err)
			continue
		}
		switch r := o.result.(type) {
		case Parsed:
			scores = append(scores, r.Candidates...)
		case Failed:
			// 解析失败的批次不贡献结果
		}
	}

	if len(outcomes) > 0 && len(invocationErrs) == len(outcomes) {
		return nil, &ScoringError{
			Kind:    dominantKind(invocationErrs),
			Batches: len(outcomes),
			Err:     errors.Join(invocationErrs...),
		}
	}
	return scores, nil
}

// dominantKind 选出最需要调用方处理的错误类型：凭证错误优先，其次是限流。
func dominantKind(errs []error) llm.ErrorKind {
	kind := llm.KindUnavailable
	for _, err := range errs {
		switch llm.Classify(err) {
		case llm.KindAuth:
			return llm.KindAuth
		case llm.KindRateLimit:
			kind = llm.KindRateLimit
		}
	}
	return kind
}
