package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/embedding"
	"adjunct-search-go/pkg/llm"
	"adjunct-search-go/pkg/log"
)

type fakeRetriever struct {
	records   []model.RetrievedRecord
	err       error
	lastLimit int
}

func (f *fakeRetriever) Retrieve(_ context.Context, _ []float32, limit int) ([]model.RetrievedRecord, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	if len(f.records) > limit {
		return f.records[:limit], nil
	}
	return f.records, nil
}

func newTestSearch(embedder QueryEmbedder, retriever Retriever, client llm.Client) SearchService {
	cfg := testSearchConfig()
	return NewSearchService(embedder, retriever, NewScoringService(client, cfg), identityResolver{}, cfg)
}

func TestSearch_NoEmbeddedRecords(t *testing.T) {
	client := llmFunc(func(_ context.Context, _, _ string) (string, error) {
		t.Fatal("scoring must not run without records")
		return "", nil
	})
	svc := newTestSearch(&fakeEmbedder{}, &fakeRetriever{}, client)

	resp, err := svc.Search(context.Background(), model.SearchRequest{Course: "Cyber Law"})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.NotNil(t, resp.Candidates)
	assert.Empty(t, resp.Candidates)
	assert.Equal(t, 0, resp.TotalFound)
	assert.Equal(t, 0, resp.SearchedApplicants)
	assert.Equal(t, NoEmbeddedApplicantsMessage, resp.Message)
}

func TestSearch_EndToEnd(t *testing.T) {
	records := makeRecords(32)
	client := llmFunc(func(_ context.Context, _, user string) (string, error) {
		switch {
		case strings.Contains(user, "Batch 1/3"):
			return `{"candidates":[{"id":"999","reason":"x","confidence":5},{"id":"2","reason":"cyber","confidence":5},{"id":"5","reason":"privacy","confidence":3}]}`, nil
		case strings.Contains(user, "Batch 2/3"):
			return "Sure! ```json {\"candidates\":[{\"id\":20,\"reason\":\"security\",\"confidence\":4}]} ```", nil
		default:
			return "", &llm.APIError{Kind: llm.KindRateLimit, Err: errors.New("slow down")}
		}
	})
	embedder := &fakeEmbedder{}
	retriever := &fakeRetriever{records: records}
	desc := "network security"
	svc := newTestSearch(embedder, retriever, client)

	resp, err := svc.Search(context.Background(), model.SearchRequest{Course: " Cyber Law ", Description: &desc})
	require.NoError(t, err)

	assert.Equal(t, []string{"Cyber Law network security"}, embedder.texts)
	assert.Equal(t, 200, retriever.lastLimit)
	assert.Equal(t, "Cyber Law", resp.Course)
	assert.Equal(t, &desc, resp.Description)
	assert.Equal(t, 32, resp.SearchedApplicants)
	assert.Equal(t, 2, resp.TotalFound)
	require.Len(t, resp.Candidates, 2)
	assert.Equal(t, uint(2), resp.Candidates[0].ID)
	assert.Equal(t, uint(20), resp.Candidates[1].ID)
	assert.Equal(t, "signed:s3://resume-storage/applicants/2/cv.pdf", resp.Candidates[0].ResumeFile)
	assert.Equal(t, "/api/applications/2", resp.Candidates[0].ResumeLink)
}

func TestSearch_QueryEmbeddingFailure(t *testing.T) {
	svc := newTestSearch(&fakeEmbedder{err: embedding.ErrEmbedding}, &fakeRetriever{}, llmFunc(nil))
	_, err := svc.Search(context.Background(), model.SearchRequest{Course: "Tax"})
	require.Error(t, err)
	assert.ErrorIs(t, err, embedding.ErrEmbedding)
}

func TestSearch_RetrievalFailure(t *testing.T) {
	svc := newTestSearch(&fakeEmbedder{}, &fakeRetriever{err: errors.New("db down")}, llmFunc(nil))
	_, err := svc.Search(context.Background(), model.SearchRequest{Course: "Tax"})
	assert.Error(t, err)
}

func TestSearch_AllBatchesFail(t *testing.T) {
	client := llmFunc(func(_ context.Context, _, _ string) (string, error) {
		return "", &llm.APIError{Kind: llm.KindAuth, Err: errors.New("bad key")}
	})
	svc := newTestSearch(&fakeEmbedder{}, &fakeRetriever{records: makeRecords(3)}, client)

	_, err := svc.Search(context.Background(), model.SearchRequest{Course: "Tax"})
	var scoringErr *ScoringError
	require.True(t, errors.As(err, &scoringErr))
	assert.Equal(t, llm.KindAuth, scoringErr.Kind)
}

func TestSearch_LogsCarryRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	t.Cleanup(log.SetLogger(zap.New(core)))

	client := llmFunc(func(_ context.Context, _, _ string) (string, error) {
		return `{"candidates":[{"id":"1","reason":"fit","confidence":5},{"id":"999","reason":"x","confidence":5}]}`, nil
	})
	svc := newTestSearch(&fakeEmbedder{}, &fakeRetriever{records: makeRecords(3)}, client)

	ctx := log.NewContext(context.Background(), log.RequestIDKey, "req-7")
	_, err := svc.Search(ctx, model.SearchRequest{Course: "Tax Law"})
	require.NoError(t, err)

	require.NotZero(t, logs.Len())
	components := map[string]bool{}
	for _, entry := range logs.All() {
		fields := entry.ContextMap()
		assert.Equal(t, "req-7", fields[log.RequestIDKey], entry.Message)
		if c, ok := fields["component"].(string); ok {
			components[c] = true
		}
	}
	assert.True(t, components["search"])
	assert.True(t, components["scorer"])

	dropped := logs.FilterMessage("丢弃无法匹配的打分结果").All()
	require.Len(t, dropped, 1)
	assert.Equal(t, int64(1), dropped[0].ContextMap()["dropped"])
	assert.Equal(t, []interface{}{"999"}, dropped[0].ContextMap()["unknownIDs"])
}
