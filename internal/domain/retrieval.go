package domain

import "time"

// RetrievalSource identifies which ranking signal produced a candidate.
type RetrievalSource string

const (
	SourceVector   RetrievalSource = "vector"
	SourceLexical  RetrievalSource = "lexical"
	SourceCitation RetrievalSource = "citation"
)

// RetrievalCandidate is a transient per-query match from one retrieval
// source, before deduplication and reranking. Chunk-level sources fill
// ChunkID and the paragraph span; authority-level sources leave them zero.
type RetrievalCandidate struct {
	ChunkID         string
	AuthorityID     string
	RawScore        float64
	Source          RetrievalSource
	NormalizedScore float64
	ParaFrom        int
	ParaTo          int
	Snippet         string
	Payload         map[string]string
}

// PackParagraph is one scored paragraph reference inside a pack.
type PackParagraph struct {
	ParaID int
	Text   string
	Score  float64
}

// Pack bundles one retained authority's metadata with its matched
// evidence. Packs are the unit the reasoning agents consume.
type Pack struct {
	AuthorityID    string
	Title          string
	Court          string
	Citations      []string
	Date           time.Time
	Bench          []string
	URL            string
	Paragraphs     []PackParagraph
	AggregateScore float64
	Source         RetrievalSource
	Metadata       map[string]string
}
