package domain

// ChunkType classifies how a chunk was produced by the segmenter.
type ChunkType string

const (
	ChunkTypeContent         ChunkType = "content"
	ChunkTypeHeadnote        ChunkType = "headnote"
	ChunkTypeCitationContext ChunkType = "citation_context"
)

// IsValid reports whether the chunk type is one of the known values.
func (t ChunkType) IsValid() bool {
	switch t {
	case ChunkTypeContent, ChunkTypeHeadnote, ChunkTypeCitationContext:
		return true
	}
	return false
}

// Chunk is a contiguous, token-bounded span of paragraphs from a single
// authority. Chunks are created by the segmenter and indexed downstream;
// they are never mutated after creation.
type Chunk struct {
	ID             string
	AuthorityID    string
	ParaFrom       int
	ParaTo         int
	Text           string
	TokenCount     int
	StatuteTags    []string
	HasCitation    bool
	Type           ChunkType
	ParagraphCount int
	Embedding      []float32
}

// Validate checks the structural invariants of a chunk.
func (c *Chunk) Validate() error {
	if c.AuthorityID == "" {
		return ErrMissingRequiredField
	}
	if c.ParaFrom > c.ParaTo {
		return NewDomainError(ErrCodeValidation, "chunk paragraph range is inverted")
	}
	if !c.Type.IsValid() {
		return ErrInvalidChunkType
	}
	if c.Text == "" {
		return NewDomainError(ErrCodeValidation, "chunk has no text")
	}
	return nil
}
