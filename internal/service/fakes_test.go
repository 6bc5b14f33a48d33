package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"adjunct-search-go/internal/model"
)

type llmFunc func(ctx context.Context, system, user string) (string, error)

func (f llmFunc) CompleteJSON(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// makeRecords returns n records with applicant ids 1..n.
func makeRecords(n int) []model.RetrievedRecord {
	records := make([]model.RetrievedRecord, n)
	for i := range records {
		id := uint(i + 1)
		records[i] = model.RetrievedRecord{
			ApplicantID:   id,
			Name:          fmt.Sprintf("Applicant %d", id),
			Email:         fmt.Sprintf("applicant%d@example.edu", id),
			Note:          "adjunct",
			ResumeFile:    fmt.Sprintf("s3://resume-storage/applicants/%d/cv.pdf", id),
			ExtractedText: fmt.Sprintf("Resume   of\n\napplicant %d practicing cyber law", id),
			Similarity:    1 - float64(i)/100,
		}
	}
	return records
}

// idsInPrompt extracts the "ID: n" lines from a user prompt.
func idsInPrompt(user string) []string {
	var ids []string
	for _, line := range strings.Split(user, "\n") {
		if id, ok := strings.CutPrefix(line, "ID: "); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// scoreAll answers with confidence 5 for every id in the prompt.
func scoreAll(user string) string {
	entries := make([]string, 0)
	for _, id := range idsInPrompt(user) {
		entries = append(entries, fmt.Sprintf(`{"id":"%s","reason":"cyber law practice","confidence":5}`, id))
	}
	return `{"candidates":[` + strings.Join(entries, ",") + `]}`
}

type identityResolver struct{}

func (identityResolver) Resolve(_ context.Context, ref string) string {
	if ref == "" {
		return ""
	}
	return "signed:" + ref
}

type fakeEmbedder struct {
	err   error
	mu    sync.Mutex
	texts []string
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.6, 0.8}, nil
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.Embed(ctx, text)
}

func (f *fakeEmbedder) Model() string { return "test-model" }
