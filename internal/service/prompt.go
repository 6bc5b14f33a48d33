package service

import (
	"fmt"
	"strings"

	"adjunct-search-go/internal/model"
	"adjunct-search-go/pkg/embedding"
)

// Partition 把检索结果按顺序切成每批最多 size 条，共 ceil(N/size) 批。
func Partition(records []model.RetrievedRecord, size int) [][]model.RetrievedRecord {
	if size <= 0 {
		size = 1
	}
	batches := make([][]model.RetrievedRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}

// collapseWhitespace 把任意空白序列压缩为单个空格，并截断到 maxChars 个字符。
func collapseWhitespace(text string, maxChars int) string {
	return embedding.Truncate(strings.Join(strings.Fields(text), " "), maxChars)
}

func orDefault(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

// BuildCandidateBlocks 为一批候选人生成提示词中的候选人段落。
func BuildCandidateBlocks(batch []model.RetrievedRecord, maxResumeChars int) string {
	blocks := make([]string, 0, len(batch))
	for i, rec := range batch {
		blocks = append(blocks, fmt.Sprintf(
			"CANDIDATE %d\nID: %d\nName: %s\nEmail: %s\nNotes: %s\nResume Snippet:\n%s\n---",
			i+1,
			rec.ApplicantID,
			orDefault(rec.Name, "N/A"),
			orDefault(rec.Email, "N/A"),
			orDefault(rec.Note, "None"),
			collapseWhitespace(rec.ExtractedText, maxResumeChars),
		))
	}
	return strings.Join(blocks, "\n")
}

// SystemPrompt 是所有批次共用的输出约束与打分规则。floor 是展示给协调人的最低分。
func SystemPrompt(floor int) string {
	return fmt.Sprintf(`You are a structured reasoning API that analyzes law faculty candidates for teaching assignments.

Analyze the candidate list and return ONLY a single valid JSON object:

{
  "candidates": [
    {"id": "<one of the IDs shown>", "reason": "<=120 chars>", "confidence": <integer 1-5>}
  ]
}

RULES (MANDATORY):
- Every candidate MUST have id, reason and confidence.
- Only use IDs that appear in the candidate list.
- confidence MUST be an integer from 1 to 5.
- Teaching or academic experience alone does NOT imply topical expertise and is never rewarded on its own.
- If the resume lacks topic-relevant keywords, confidence MUST NOT exceed 3.
- When the evidence is ambiguous, choose the LOWER tier.
- Output ONLY JSON, no prose and no markdown.

CONFIDENCE SCALE (STRICT):
5 = Rare. Explicit topical expertise with multi-year direct practice, publication or teaching in the course topic.
4 = Clear direct experience in the specific topic area, not just related fields.
3 = Transferable or generic legal background with partial overlap.
2 = Tangential connection at best.
1 = Unrelated.

Only candidates scored %d or higher are shown to the hiring coordinator.`, floor)
}

// UserPrompt 描述课程并附上本批候选人。
func UserPrompt(course string, description *string, batchNum, batchCount int, blocks string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Course: %s\n", course)
	if description != nil && strings.TrimSpace(*description) != "" {
		fmt.Fprintf(&sb, "Description: %s\n", *description)
	}
	sb.WriteString(`
Goal: Identify candidates with BOTH legal credentials AND specific relevance to this course topic.

Critical Rules:
- Only use IDs shown below.
- Check for course-relevant keywords in the resume text.
- Generic teaching experience is not topical expertise.
- Confidence 5 is RARE and requires explicit evidence of direct expertise.

`)
	fmt.Fprintf(&sb, "Batch %d/%d - Analyze these candidates:\n%s\n\n", batchNum, batchCount, blocks)
	sb.WriteString(`Return JSON only: {"candidates": [{"id": "...", "reason": "...", "confidence": 1-5}]}`)
	return sb.String()
}

// QueryText 是用于生成查询向量的文本。
func QueryText(course string, description *string) string {
	course = strings.TrimSpace(course)
	if description == nil {
		return course
	}
	desc := strings.TrimSpace(*description)
	if desc == "" {
		return course
	}
	return course + " " + desc
}
