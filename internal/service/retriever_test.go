package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/es"
)

type fakeResumeRepo struct {
	rows        []model.RetrievedRecord
	lastVersion string
	lastIDs     []uint
}

func (f *fakeResumeRepo) Nearest(_ context.Context, _ []float32, modelVersion string, limit int) ([]model.RetrievedRecord, error) {
	f.lastVersion = modelVersion
	if len(f.rows) > limit {
		return f.rows[:limit], nil
	}
	return f.rows, nil
}

func (f *fakeResumeRepo) FindByApplicantIDs(_ context.Context, ids []uint, modelVersion string) ([]model.RetrievedRecord, error) {
	f.lastIDs = ids
	f.lastVersion = modelVersion
	want := map[uint]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []model.RetrievedRecord
	for _, r := range f.rows {
		if want[r.ApplicantID] {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeResumeRepo) FindByID(context.Context, uint) (*model.Resume, error) { return nil, nil }
func (f *fakeResumeRepo) FindMissingEmbeddings(context.Context, string, int) ([]model.Resume, error) {
	return nil, nil
}
func (f *fakeResumeRepo) UpdateEmbedding(context.Context, uint, []float32, string) error { return nil }

type fakeKnn struct {
	hits []es.Hit
	err  error
}

func (f *fakeKnn) SearchNearest(context.Context, []float32, int, string) ([]es.Hit, error) {
	return f.hits, f.err
}

func TestPgvectorRetriever_PassesModelVersion(t *testing.T) {
	repo := &fakeResumeRepo{rows: makeRecords(5)}
	records, err := NewPgvectorRetriever(repo, "minilm").Retrieve(context.Background(), []float32{1}, 3)
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, "minilm", repo.lastVersion)
}

func TestESRetriever_HydratesInIndexOrder(t *testing.T) {
	// applicant 4 has no usable embedding in the database anymore
	repo := &fakeResumeRepo{rows: []model.RetrievedRecord{
		{ApplicantID: 1, Name: "one"}, {ApplicantID: 2, Name: "two"}, {ApplicantID: 3, Name: "three"},
	}}
	knn := &fakeKnn{hits: []es.Hit{
		{ApplicantID: 3, Score: 0.95}, {ApplicantID: 4, Score: 0.9}, {ApplicantID: 1, Score: 0.8},
	}}

	records, err := NewESRetriever(knn, repo, "minilm").Retrieve(context.Background(), []float32{1}, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, uint(3), records[0].ApplicantID)
	assert.Equal(t, uint(1), records[1].ApplicantID)
	assert.InDelta(t, 0.9, records[0].Similarity, 1e-9)
	assert.Equal(t, []uint{3, 4, 1}, repo.lastIDs)
}

func TestESRetriever_EmptyAndError(t *testing.T) {
	records, err := NewESRetriever(&fakeKnn{}, &fakeResumeRepo{}, "m").Retrieve(context.Background(), []float32{1}, 10)
	require.NoError(t, err)
	assert.Empty(t, records)

	_, err = NewESRetriever(&fakeKnn{err: errors.New("es down")}, &fakeResumeRepo{}, "m").Retrieve(context.Background(), []float32{1}, 10)
	assert.Error(t, err)
}
