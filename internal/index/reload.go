package index

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// rebuildFromSnapshot reconstructs parents, children and vectors from a
// decoded snapshot. When snap.Parents is present (the extended format),
// parent texts and metadata are recovered exactly. When absent (a legacy
// snapshot written before the extension), parents are synthesised as
// placeholders pointing at their first child's text, matching the
// original lossy reconstruction this format inherited — see §9's Open
// Question and its resolution in DESIGN.md.
func rebuildFromSnapshot(snap snapshot, logger *zap.Logger) ([]domain.Segment, []domain.Segment, [][]float32) {
	if len(snap.Parents) > 0 {
		return rebuildExtended(snap)
	}

	logger.Warn("loading legacy snapshot without parent texts; small-to-big promotion will degrade",
		zap.String("file_name", snap.FileName))
	return rebuildLegacy(snap)
}

func rebuildExtended(snap snapshot) ([]domain.Segment, []domain.Segment, [][]float32) {
	parents := make([]domain.Segment, len(snap.Parents))
	parentIndexByID := make(map[string]int, len(snap.Parents))
	for i, r := range snap.Parents {
		parents[i] = domain.Segment{
			ID:          r.ID,
			Text:        r.Text,
			Kind:        domain.KindParent,
			Metadata:    recordToMetadata(r),
			ParentIndex: i,
		}
		parentIndexByID[r.ID] = i
	}

	children := make([]domain.Segment, len(snap.Chunks))
	vectors := make([][]float32, len(snap.Embeddings))
	childIndexByParent := make(map[string]int, len(snap.Parents))

	for i, chunk := range snap.Chunks {
		parentID, text := decodeChunkText(chunk.Text)
		childIdx := childIndexByParent[parentID]
		childIndexByParent[parentID] = childIdx + 1

		var meta domain.Metadata
		parentIdx := -1
		if pi, ok := parentIndexByID[parentID]; ok {
			meta = parents[pi].Metadata
			parentIdx = pi
		}

		children[i] = domain.Segment{
			ID:          fmt.Sprintf("%s_c%d", parentID, childIdx),
			Text:        text,
			Kind:        domain.KindChild,
			Metadata:    meta,
			ParentID:    parentID,
			ParentIndex: parentIdx,
			ChildIndex:  childIdx,
		}
		vectors[i] = vectorToFloat32(snap.Embeddings[i])
	}

	return parents, children, vectors
}

func rebuildLegacy(snap snapshot) ([]domain.Segment, []domain.Segment, [][]float32) {
	var parents []domain.Segment
	parentOrdinalByID := make(map[string]int)

	children := make([]domain.Segment, len(snap.Chunks))
	vectors := make([][]float32, len(snap.Embeddings))
	childIndexByParent := make(map[string]int)

	for i, chunk := range snap.Chunks {
		parentID, text := decodeChunkText(chunk.Text)
		if parentID == "" {
			parentID = fmt.Sprintf("parent_%d", i)
		}

		ordinal, known := parentOrdinalByID[parentID]
		if !known {
			ordinal = len(parents)
			parentOrdinalByID[parentID] = ordinal
			parents = append(parents, domain.Segment{
				ID:          parentID,
				Text:        text, // placeholder: first child's text stands in for the parent
				Kind:        domain.KindParent,
				ParentIndex: ordinal,
			})
		}

		childIdx := childIndexByParent[parentID]
		childIndexByParent[parentID] = childIdx + 1

		children[i] = domain.Segment{
			ID:          fmt.Sprintf("%s_c%d", parentID, childIdx),
			Text:        text,
			Kind:        domain.KindChild,
			ParentID:    parentID,
			ParentIndex: ordinal,
			ChildIndex:  childIdx,
		}
		vectors[i] = vectorToFloat32(snap.Embeddings[i])
	}

	return parents, children, vectors
}
