package index

import (
	"fmt"
	"regexp"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// chunkRecord is the wire form of a single child segment: its text with
// an inline parent-id prefix, per §3/§6.
type chunkRecord struct {
	Text string `json:"text"`
}

// parentRecord is the wire form of a parent segment. It is the snapshot
// extension decided in DESIGN.md's Open Question resolution: additive to
// the original format (§9 option (a)), so legacy snapshots without this
// field still load via the lossy placeholder path.
type parentRecord struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	ItemID       string `json:"itemId,omitempty"`
	ItemLabel    string `json:"itemLabel,omitempty"`
	ChapterID    string `json:"chapterId,omitempty"`
	ChapterLabel string `json:"chapterLabel,omitempty"`
	SectionID    string `json:"sectionId,omitempty"`
	SectionLabel string `json:"sectionLabel,omitempty"`
}

// snapshot is the on-disk form defined in §3/§6, extended with an
// optional parents list.
type snapshot struct {
	FileName   string         `json:"fileName"`
	Chunks     []chunkRecord  `json:"chunks"`
	Embeddings [][]float64    `json:"embeddings"`
	Parents    []parentRecord `json:"parents,omitempty"`
}

var parentIDPrefix = regexp.MustCompile(`^<!--PARENT_ID:([^>]*)-->`)

func encodeChunkText(parentID, text string) string {
	return fmt.Sprintf("<!--PARENT_ID:%s-->%s", parentID, text)
}

// decodeChunkText splits a wire chunk's text into its parent id and the
// bare child text.
func decodeChunkText(raw string) (parentID, text string) {
	m := parentIDPrefix.FindStringSubmatchIndex(raw)
	if m == nil {
		return "", raw
	}
	parentID = raw[m[2]:m[3]]
	text = raw[m[1]:]
	return parentID, text
}

func parentToRecord(p domain.Segment) parentRecord {
	return parentRecord{
		ID:           p.ID,
		Text:         p.Text,
		ItemID:       p.Metadata.ItemID,
		ItemLabel:    p.Metadata.ItemLabel,
		ChapterID:    p.Metadata.ChapterID,
		ChapterLabel: p.Metadata.ChapterLabel,
		SectionID:    p.Metadata.SectionID,
		SectionLabel: p.Metadata.SectionLabel,
	}
}

func recordToMetadata(r parentRecord) domain.Metadata {
	return domain.Metadata{
		ItemID:       r.ItemID,
		ItemLabel:    r.ItemLabel,
		ChapterID:    r.ChapterID,
		ChapterLabel: r.ChapterLabel,
		SectionID:    r.SectionID,
		SectionLabel: r.SectionLabel,
	}
}

func vectorToFloat64(v []float32) []float64 {
	out := make([]float64, len(v))
	for i, f := range v {
		out[i] = float64(f)
	}
	return out
}

func vectorToFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}
