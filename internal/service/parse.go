package service

import (
	"encoding/json"
	"errors"
	"io"
	"strings"

	"adjunct-search-go/internal/model"
)

// ParseResult 是解析一批打分输出的结果，只有 Parsed 和 Failed 两种。
type ParseResult interface {
	isParseResult()
}

// Parsed 表示输出被成功解析（候选人列表可能为空）。
type Parsed struct {
	Candidates []model.CandidateScore
}

// Failed 表示输出无法解析，Raw 保留原文用于日志。
type Failed struct {
	Raw    string
	Reason string
}

func (Parsed) isParseResult() {}
func (Failed) isParseResult() {}

// ParseScores 解析打分服务的原始输出：先去掉代码块标记直接解码，
// 失败后尝试截取最大的 {...} 片段再解码。
func ParseScores(raw string) ParseResult {
	if strings.TrimSpace(raw) == "" {
		return Failed{Raw: raw, Reason: "empty response"}
	}

	cleaned := strings.TrimSpace(strings.NewReplacer("```json", "", "```JSON", "", "```", "").Replace(raw))
	scores, err := decodeScores(cleaned)
	if err == nil {
		return Parsed{Candidates: scores}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return Failed{Raw: raw, Reason: "no JSON object found: " + err.Error()}
	}
	scores, spanErr := decodeScores(raw[start : end+1])
	if spanErr != nil {
		return Failed{Raw: raw, Reason: spanErr.Error()}
	}
	return Parsed{Candidates: scores}
}

func decodeScores(text string) ([]model.CandidateScore, error) {
	dec := json.NewDecoder(strings.NewReader(text))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("unexpected data after JSON object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("response is not a JSON object")
	}

	entries, _ := obj["candidates"].([]any)
	scores := make([]model.CandidateScore, 0, len(entries))
	for _, e := range entries {
		m, ok := e.(map[string]any)
		if !ok {
			continue
		}
		reason, _ := m["reason"].(string)
		if reason == "" {
			reason, _ = m["reasoning"].(string)
		}
		scores = append(scores, model.CandidateScore{
			ID:         m["id"],
			Reasoning:  reason,
			Confidence: m["confidence"],
		})
	}
	return scores, nil
}
