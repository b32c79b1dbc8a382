// Package domain holds the types shared across the retrieval core:
// segments, embeddings, search results, dialogue memory, and the
// Embedder/Generator contracts the core depends on.
package domain

// Kind distinguishes the two levels of the segment hierarchy.
type Kind string

const (
	// KindParent is a large-grain segment retained for context.
	KindParent Kind = "parent"
	// KindChild is a small fixed-window segment used for vector search.
	KindChild Kind = "child"
)

// Metadata is structural information inherited unchanged from a parent
// to all of its children.
type Metadata struct {
	ItemID       string
	ItemLabel    string
	ChapterID    string
	ChapterLabel string
	SectionID    string
	SectionLabel string
}

// IsEmpty reports whether no structural field was detected.
func (m Metadata) IsEmpty() bool {
	return m.ItemID == "" && m.ChapterID == "" && m.SectionID == ""
}

// Label returns the most specific structural label available, or "" if
// none was detected. Preference order: Item, Chapter, Section.
func (m Metadata) Label() string {
	switch {
	case m.ItemLabel != "":
		return m.ItemLabel
	case m.ChapterLabel != "":
		return m.ChapterLabel
	case m.SectionLabel != "":
		return m.SectionLabel
	default:
		return ""
	}
}

// Segment is a contiguous text span from the source document. Segments
// are immutable once created by the Chunker; the Index owns them.
type Segment struct {
	Text     string
	Kind     Kind
	Metadata Metadata

	// ParentID identifies the owning parent. Empty for parent segments.
	ParentID string
	// ParentIndex is the ordinal of the parent within the document.
	ParentIndex int
	// ChildIndex is the ordinal of a child within its parent. Zero for
	// parent segments.
	ChildIndex int

	// ID is a stable identifier: the parent's own id for a parent
	// segment, or its owning parent's id for a child segment combined
	// with ChildIndex. Assigned by the Chunker.
	ID string
}

// IsParent reports whether the segment is a parent segment.
func (s Segment) IsParent() bool { return s.Kind == KindParent }

// IsChild reports whether the segment is a child segment.
func (s Segment) IsChild() bool { return s.Kind == KindChild }
