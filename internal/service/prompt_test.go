package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"adjunct-search-go/internal/model"
)

func TestPartition_CountAndCoverage(t *testing.T) {
	for n := 0; n <= 47; n++ {
		for size := 1; size <= 20; size++ {
			records := makeRecords(n)
			batches := Partition(records, size)
			require.Len(t, batches, (n+size-1)/size, "n=%d size=%d", n, size)

			seen := map[uint]int{}
			var flat []uint
			for _, b := range batches {
				assert.LessOrEqual(t, len(b), size)
				assert.NotEmpty(t, b)
				for _, r := range b {
					seen[r.ApplicantID]++
					flat = append(flat, r.ApplicantID)
				}
			}
			assert.Len(t, seen, n)
			for id, count := range seen {
				assert.Equal(t, 1, count, "id %d", id)
			}
			for i, id := range flat {
				assert.Equal(t, uint(i+1), id, "order preserved")
			}
		}
	}
}

func TestPartition_ThirtyTwoByFifteen(t *testing.T) {
	batches := Partition(makeRecords(32), 15)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 15)
	assert.Len(t, batches[1], 15)
	assert.Len(t, batches[2], 2)
}

func TestBuildCandidateBlocks(t *testing.T) {
	batch := []model.RetrievedRecord{
		{ApplicantID: 7, Name: "Jane Roe", Email: "jane@example.edu", ExtractedText: "Tax \n\n\t law   professor"},
		{ApplicantID: 9, ExtractedText: strings.Repeat("a", 50)},
	}
	blocks := BuildCandidateBlocks(batch, 20)

	assert.Contains(t, blocks, "CANDIDATE 1\nID: 7\nName: Jane Roe\nEmail: jane@example.edu\nNotes: None\nResume Snippet:\nTax law professor\n---")
	assert.Contains(t, blocks, "CANDIDATE 2\nID: 9\nName: N/A\nEmail: N/A")
	assert.Contains(t, blocks, strings.Repeat("a", 20)+"\n---")
	assert.NotContains(t, blocks, strings.Repeat("a", 21))
}

func TestPrompts(t *testing.T) {
	system := SystemPrompt(4)
	assert.Contains(t, system, `"candidates"`)
	assert.Contains(t, system, "scored 4 or higher")

	desc := "Privacy and security regulation"
	user := UserPrompt("Cyber Law", &desc, 2, 3, "BLOCKS")
	assert.Contains(t, user, "Course: Cyber Law\n")
	assert.Contains(t, user, "Description: Privacy and security regulation")
	assert.Contains(t, user, "Batch 2/3")
	assert.Contains(t, user, "BLOCKS")

	assert.NotContains(t, UserPrompt("Cyber Law", nil, 1, 1, ""), "Description:")
}

func TestQueryText(t *testing.T) {
	desc := " intro course "
	assert.Equal(t, "Tax Law intro course", QueryText("Tax Law", &desc))
	assert.Equal(t, "Tax Law", QueryText("Tax Law", nil))

	blank := "   "
	assert.Equal(t, "Tax Law", QueryText(" Tax Law ", &blank))
}
