// Package index holds the Index: child embeddings, segment texts and
// metadata, persisted to a single snapshot file, answering vector kNN,
// lexical scoring, and parent lookup. Follows a search/repository
// layering, generalized from a multi-collection vector store to a
// single in-process, build-once-then-frozen structure.
package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/bookrag/internal/domain"
)

// Stats summarizes an Index's contents for observability.
type Stats struct {
	Parents    int
	Children   int
	Dimensions int
	FileName   string
}

// Index is the Parent/Child segment store. Per §5, it is immutable once
// ingest or load completes; concurrent reads require no locking. The
// mutex below guards only the build-once transition itself.
type Index struct {
	mu          sync.RWMutex
	initialized bool

	fileName string
	parents  []domain.Segment
	children []domain.Segment
	vectors  [][]float32

	parentByID       map[string]int
	childrenByParent map[string][]int

	logger *zap.Logger
}

// New creates an empty, uninitialized Index.
func New(logger *zap.Logger) *Index {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Index{logger: logger}
}

// Ingest stores parents, children and their embeddings in insertion
// order and marks the Index initialized. Fails if children and
// embeddings lengths mismatch.
func (idx *Index) Ingest(fileName string, parents, children []domain.Segment, embeddings [][]float32) error {
	if len(children) != len(embeddings) {
		return fmt.Errorf("ingest: %d children but %d embeddings: %w", len(children), len(embeddings), domain.ErrEmbeddingMismatch)
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.fileName = fileName
	idx.parents = parents
	idx.children = children
	idx.vectors = embeddings
	idx.buildIndexesLocked()
	idx.initialized = true

	return nil
}

func (idx *Index) buildIndexesLocked() {
	idx.parentByID = make(map[string]int, len(idx.parents))
	for i, p := range idx.parents {
		idx.parentByID[p.ID] = i
	}

	idx.childrenByParent = make(map[string][]int, len(idx.parents))
	for i, c := range idx.children {
		idx.childrenByParent[c.ParentID] = append(idx.childrenByParent[c.ParentID], i)
	}
}

// ParentOf resolves a child segment's owning parent. Returns false if no
// parent can be resolved.
func (idx *Index) ParentOf(child domain.Segment) (domain.Segment, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	i, ok := idx.parentByID[child.ParentID]
	if !ok {
		return domain.Segment{}, false
	}
	return idx.parents[i], true
}

// Children returns a copy of every child segment in insertion order,
// for callers that need to walk the whole corpus (test-set generation).
func (idx *Index) Children() []domain.Segment {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make([]domain.Segment, len(idx.children))
	copy(out, idx.children)
	return out
}

// Stats reports the Index's current contents.
func (idx *Index) Stats() Stats {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	dims := 0
	if len(idx.vectors) > 0 {
		dims = len(idx.vectors[0])
	}

	return Stats{
		Parents:    len(idx.parents),
		Children:   len(idx.children),
		Dimensions: dims,
		FileName:   idx.fileName,
	}
}

// Initialized reports whether Ingest or Load has succeeded.
func (idx *Index) Initialized() bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.initialized
}

// Save persists the Index to path atomically: write to a temporary file
// in the same directory, then rename over the destination, per §5/§6.
func (idx *Index) Save(path string) error {
	idx.mu.RLock()
	snap := idx.toSnapshotLocked()
	idx.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename snapshot into place: %w", err)
	}

	return nil
}

func (idx *Index) toSnapshotLocked() snapshot {
	snap := snapshot{
		FileName:   idx.fileName,
		Chunks:     make([]chunkRecord, len(idx.children)),
		Embeddings: make([][]float64, len(idx.vectors)),
		Parents:    make([]parentRecord, len(idx.parents)),
	}

	for i, c := range idx.children {
		snap.Chunks[i] = chunkRecord{Text: encodeChunkText(c.ParentID, c.Text)}
	}
	for i, v := range idx.vectors {
		snap.Embeddings[i] = vectorToFloat64(v)
	}
	for i, p := range idx.parents {
		snap.Parents[i] = parentToRecord(p)
	}

	return snap
}

// Load reads path and rebuilds the Index. On a list-length mismatch, the
// file is deleted and the caller is signaled to re-ingest (§4.2).
func (idx *Index) Load(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse snapshot: %w", err)
	}

	if len(snap.Chunks) != len(snap.Embeddings) {
		if rmErr := os.Remove(path); rmErr != nil {
			idx.logger.Warn("failed to remove corrupted snapshot", zap.String("path", path), zap.Error(rmErr))
		}
		return fmt.Errorf("snapshot chunk/embedding length mismatch (%d/%d): %w",
			len(snap.Chunks), len(snap.Embeddings), domain.ErrEmbeddingMismatch)
	}

	parents, children, vectors := rebuildFromSnapshot(snap, idx.logger)

	idx.mu.Lock()
	defer idx.mu.Unlock()

	idx.fileName = snap.FileName
	idx.parents = parents
	idx.children = children
	idx.vectors = vectors
	idx.buildIndexesLocked()
	idx.initialized = true

	return nil
}
