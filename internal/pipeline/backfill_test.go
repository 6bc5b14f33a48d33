package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/tasks"
)

type missingRepo struct {
	stubRepo
	missing []model.Resume
	limit   int
	err     error
}

func (m *missingRepo) FindMissingEmbeddings(_ context.Context, _ string, limit int) ([]model.Resume, error) {
	m.limit = limit
	return m.missing, m.err
}

func TestBackfill_CountsFailures(t *testing.T) {
	repo := &missingRepo{missing: []model.Resume{{ID: 1, ApplicantID: 10}, {ID: 2, ApplicantID: 20}, {ID: 3, ApplicantID: 30}}}
	var seen []tasks.EmbeddingTask
	sink := SinkFunc(func(_ context.Context, task tasks.EmbeddingTask) error {
		seen = append(seen, task)
		if task.ResumeID == 2 {
			return errors.New("embedding down")
		}
		return nil
	})

	report, err := Backfill(context.Background(), repo, "m1", 50, sink)
	require.NoError(t, err)
	assert.Equal(t, BackfillReport{Found: 3, Succeeded: 2, Failed: 1}, report)
	assert.Equal(t, 50, repo.limit)
	require.Len(t, seen, 3)
	assert.Equal(t, tasks.ReasonBackfill, seen[0].Reason)
	assert.Equal(t, uint(10), seen[0].ApplicantID)
}

func TestBackfill_WithProcessor(t *testing.T) {
	repo := &missingRepo{missing: []model.Resume{{ID: 5}}}
	repo.resumes = map[uint]*model.Resume{5: {ID: 5, ExtractedText: "text"}}

	report, err := Backfill(context.Background(), repo, "m1", 10, NewProcessor(repo, &stubEmbedder{}, nil))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, "m1", repo.updated[5])
}

func TestBackfill_QueryError(t *testing.T) {
	repo := &missingRepo{err: errors.New("db")}
	_, err := Backfill(context.Background(), repo, "m1", 10, SinkFunc(func(context.Context, tasks.EmbeddingTask) error { return nil }))
	assert.Error(t, err)
}

func TestBackfill_StopsOnCancel(t *testing.T) {
	repo := &missingRepo{missing: []model.Resume{{ID: 1}, {ID: 2}}}
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	report, err := Backfill(ctx, repo, "m1", 10, SinkFunc(func(context.Context, tasks.EmbeddingTask) error {
		calls++
		cancel()
		return nil
	}))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, report.Succeeded)
}

func TestBackfill_IndexesStoredEmail(t *testing.T) {
	repo := &missingRepo{missing: []model.Resume{{ID: 5, ApplicantID: 8}}}
	repo.resumes = map[uint]*model.Resume{5: {ID: 5, ApplicantID: 8, ExtractedText: "text", ApplicantEmail: "prof@uni.edu"}}
	idx := &stubIndex{}

	report, err := Backfill(context.Background(), repo, "m1", 10, NewProcessor(repo, &stubEmbedder{}, idx))
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	require.Len(t, idx.docs, 1)
	assert.Equal(t, uint(8), idx.docs[0].ApplicantID)
	assert.Equal(t, "prof@uni.edu", idx.docs[0].Email)
}
