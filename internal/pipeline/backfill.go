package pipeline

import (
	"context"
	"fmt"

	"adjunct-search-go/internal/repository"
	"adjunct-search-go/pkg/log"
	"adjunct-search-go/pkg/tasks"
)

// TaskSink 接收一个向量任务，可以是本地 Processor，也可以是 Kafka Producer。
type TaskSink interface {
	Process(ctx context.Context, task tasks.EmbeddingTask) error
}

// SinkFunc 把普通函数适配为 TaskSink。
type SinkFunc func(ctx context.Context, task tasks.EmbeddingTask) error

func (f SinkFunc) Process(ctx context.Context, task tasks.EmbeddingTask) error { return f(ctx, task) }

// BackfillReport 汇总一次回填的结果。
type BackfillReport struct {
	Found     int
	Succeeded int
	Failed    int
}

// Backfill 找出最多 limit 份缺少当前模型向量的简历，逐一交给 sink。
// 单份失败只计数，不中断整个回填。
func Backfill(ctx context.Context, resumeRepo repository.ResumeRepository, modelVersion string, limit int, sink TaskSink) (BackfillReport, error) {
	resumes, err := resumeRepo.FindMissingEmbeddings(ctx, modelVersion, limit)
	if err != nil {
		return BackfillReport{}, fmt.Errorf("查询待回填简历失败: %w", err)
	}
	report := BackfillReport{Found: len(resumes)}
	log.Infof("[Backfill] 找到 %d 份待回填简历, model: %s", len(resumes), modelVersion)

	for _, r := range resumes {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		task := tasks.EmbeddingTask{ResumeID: r.ID, ApplicantID: r.ApplicantID, Reason: tasks.ReasonBackfill}
		if err := sink.Process(ctx, task); err != nil {
			report.Failed++
			log.Warnf("[Backfill] 简历处理失败, ResumeID: %d, error: %v", r.ID, err)
			continue
		}
		report.Succeeded++
	}
	log.Infof("[Backfill] 完成, 成功: %d, 失败: %d", report.Succeeded, report.Failed)
	return report, nil
}
