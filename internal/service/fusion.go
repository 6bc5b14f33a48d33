package service

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/embedding"
)

const (
	maxReasoningChars = 200
	minConfidence     = 1
	maxConfidence     = 5
)

// FusionResult 是合并打分结果后的最终排序列表。
type FusionResult struct {
	Candidates []model.Candidate
	Retrieved  int
	Dropped    int
	// UnknownIDs 是模型返回但不在检索结果中的 id，按出现顺序。
	UnknownIDs []string
}

// Fuse 把打分结果按 id 关联回检索记录，丢弃未知 id，过滤低于 floor 的候选人，
// 并按置信度降序、检索名次升序稳定排序。ResumeFile 保留原始引用，由调用方转换为链接。
func Fuse(records []model.RetrievedRecord, scores []model.CandidateScore, floor int) FusionResult {
	rank := make(map[string]int, len(records))
	for i, rec := range records {
		id := strconv.FormatUint(uint64(rec.ApplicantID), 10)
		if _, seen := rank[id]; !seen {
			rank[id] = i
		}
	}

	type scored struct {
		rank       int
		confidence int
		reasoning  string
	}
	best := make(map[string]scored, len(scores))
	dropped := 0
	var unknown []string
	for _, s := range scores {
		id, ok := CanonicalID(s.ID)
		if !ok {
			dropped++
			continue
		}
		r, known := rank[id]
		if !known {
			unknown = append(unknown, id)
			dropped++
			continue
		}
		conf := CoerceConfidence(s.Confidence)
		if prev, dup := best[id]; dup && prev.confidence >= conf {
			continue
		}
		best[id] = scored{rank: r, confidence: conf, reasoning: embedding.Truncate(s.Reasoning, maxReasoningChars)}
	}

	kept := make([]scored, 0, len(best))
	for _, s := range best {
		if s.confidence >= floor && s.confidence >= minConfidence {
			kept = append(kept, s)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].confidence != kept[j].confidence {
			return kept[i].confidence > kept[j].confidence
		}
		return kept[i].rank < kept[j].rank
	})

	candidates := make([]model.Candidate, 0, len(kept))
	for _, s := range kept {
		rec := records[s.rank]
		candidates = append(candidates, model.Candidate{
			ID:         rec.ApplicantID,
			Name:       orDefault(rec.Name, "(name missing)"),
			Email:      rec.Email,
			Note:       rec.Note,
			Reasoning:  s.reasoning,
			Confidence: s.confidence,
			ResumeLink: fmt.Sprintf("/api/applications/%d", rec.ApplicantID),
			ResumeFile: rec.ResumeFile,
		})
	}
	return FusionResult{Candidates: candidates, Retrieved: len(records), Dropped: dropped, UnknownIDs: unknown}
}

// CanonicalID 把模型返回的 id（数字或字符串）转换为十进制字符串。
func CanonicalID(v any) (string, bool) {
	switch id := v.(type) {
	case json.Number:
		return canonicalNumeric(id.String())
	case string:
		return canonicalNumeric(strings.TrimSpace(id))
	case float64:
		return canonicalNumeric(strconv.FormatFloat(id, 'f', -1, 64))
	case int:
		return canonicalNumeric(strconv.Itoa(id))
	case uint:
		return strconv.FormatUint(uint64(id), 10), true
	default:
		return "", false
	}
}

func canonicalNumeric(s string) (string, bool) {
	if s == "" {
		return "", false
	}
	if n, err := strconv.ParseUint(s, 10, 64); err == nil {
		return strconv.FormatUint(n, 10), true
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 && f == math.Trunc(f) && f < 1<<53 {
		return strconv.FormatUint(uint64(f), 10), true
	}
	return s, true
}

// CoerceConfidence 把置信度转换为 1..5 的整数；非数字、非有限值或越界时返回 0。
func CoerceConfidence(v any) int {
	var f float64
	switch c := v.(type) {
	case json.Number:
		parsed, err := c.Float64()
		if err != nil {
			return 0
		}
		f = parsed
	case float64:
		f = c
	case int:
		f = float64(c)
	default:
		return 0
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	n := int(math.Round(f))
	if n < minConfidence || n > maxConfidence {
		return 0
	}
	return n
}
