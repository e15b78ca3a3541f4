package domain

import "time"

// DocumentStatus tracks an uploaded authority document through ingestion.
type DocumentStatus string

const (
	DocumentStatusPending   DocumentStatus = "pending"
	DocumentStatusIndexed   DocumentStatus = "indexed"
	DocumentStatusFailed    DocumentStatus = "failed"
	DocumentStatusIndexing  DocumentStatus = "indexing"
)

// Authority is a single legal document or case record. Chunks, citations
// and retrieval packs all group under an authority.
type Authority struct {
	ID               string
	MatterID         string
	Title            string
	Court            string
	NeutralCitation  string
	ReporterCitation string
	Date             time.Time
	Bench            []string
	Judge            string
	URL              string
	StatuteTags      []string
	Status           DocumentStatus
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// Citations returns the non-empty citation strings in display order.
func (a *Authority) Citations() []string {
	out := make([]string, 0, 2)
	if a.NeutralCitation != "" {
		out = append(out, a.NeutralCitation)
	}
	if a.ReporterCitation != "" {
		out = append(out, a.ReporterCitation)
	}
	return out
}
