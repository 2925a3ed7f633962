package models

import "time"

// MemoryEntryType classifies long-term memory rows.
type MemoryEntryType string

const (
	MemoryEntrySummary MemoryEntryType = "summary"
)

// MemoryEntry is a short textual summary of one turn, written once per turn
// and deleted only on history clear for the owning thread.
type MemoryEntry struct {
	ID                 int64
	UserID             string
	Role               Role
	ThreadID           string
	EntryType          MemoryEntryType
	Content            string
	WriteReason        string
	SourceProvider     string
	CreatedByRequestID string
	Metadata           map[string]any
	IsSensitive        bool
	CreatedAt          time.Time
}

// MemoryEmbedding is the vector representation of a memory entry.
type MemoryEmbedding struct {
	ID                  int64
	MemoryEntryID       int64
	UserID              string
	Role                Role
	EmbeddingModel      string
	EmbeddingDimensions int
	Embedding           []float32
	DistanceMetric      string
	CreatedAt           time.Time
}
