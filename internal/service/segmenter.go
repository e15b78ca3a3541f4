package service

import (
	"sort"
	"strings"

	"github.com/nyayatech/nyaya/internal/domain"
)

// SegmenterConfig controls token budgets for content chunking.
type SegmenterConfig struct {
	// TokenCeiling is the soft upper bound on chunk size. The floor takes
	// priority at sequence boundaries: a below-floor chunk may absorb one
	// extra paragraph past the ceiling, so the worst case chunk size is
	// TokenCeiling-1 plus the largest single paragraph.
	TokenCeiling    int
	TokenFloor      int
	OverlapFraction float64
	ContextRadius   int
}

// DefaultSegmenterConfig provides the production token budgets.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		TokenCeiling:    800,
		TokenFloor:      550,
		OverlapFraction: 0.15,
		ContextRadius:   2,
	}
}

var headnoteMarkers = []string{"HELD:", "SUMMARY:", "HEADNOTE", "BRIEF:", "GIST:"}

var partyRoleMarkers = []string{"PETITIONER", "RESPONDENT", "APPELLANT"}

const (
	headnoteLeadParagraphs = 3
	headnoteMinWords       = 50
)

// Segmenter turns a normalized paragraph sequence into token-bounded
// chunks: isolated headnotes, sliding-window content chunks with overlap,
// and additive citation-context windows.
type Segmenter struct {
	tokens TokenCounter
	cfg    SegmenterConfig
}

func NewSegmenter(tokens TokenCounter) *Segmenter {
	return NewSegmenterWithConfig(tokens, DefaultSegmenterConfig())
}

func NewSegmenterWithConfig(tokens TokenCounter, cfg SegmenterConfig) *Segmenter {
	if cfg.TokenCeiling <= 0 {
		cfg = DefaultSegmenterConfig()
	}
	return &Segmenter{tokens: tokens, cfg: cfg}
}

// Segment produces the chunk set for one authority. A sequence yielding
// zero usable paragraphs is a pipeline-terminating condition; malformed
// or empty paragraphs are skipped, never raised.
func (s *Segmenter) Segment(authorityID string, paragraphs []domain.Paragraph) ([]domain.Chunk, error) {
	usable := make([]domain.Paragraph, 0, len(paragraphs))
	for _, p := range paragraphs {
		if strings.TrimSpace(p.Text) == "" {
			continue
		}
		usable = append(usable, p)
	}
	if len(usable) == 0 {
		return nil, domain.ErrEmptyDocument
	}

	tokenCounts := make([]int, len(usable))
	for i, p := range usable {
		tokenCounts[i] = s.tokens.Count(p.Text)
	}

	chunks := make([]domain.Chunk, 0, len(usable)/2+2)
	var body []int // indexes into usable that are not headnotes

	for i, p := range usable {
		if isHeadnote(p, i) {
			chunks = append(chunks, s.buildChunk(authorityID, domain.ChunkTypeHeadnote, usable[i:i+1], tokenCounts[i]))
		} else {
			body = append(body, i)
		}
	}

	chunks = append(chunks, s.slidingWindow(authorityID, usable, tokenCounts, body)...)
	chunks = append(chunks, s.citationContexts(authorityID, usable, tokenCounts)...)

	if len(chunks) == 0 {
		return nil, domain.ErrNoChunks
	}
	return chunks, nil
}

// isHeadnote classifies a paragraph as a headnote when it carries an
// explicit marker, or when it is a long unattributed lead paragraph.
func isHeadnote(p domain.Paragraph, position int) bool {
	upper := strings.ToUpper(p.Text)
	for _, marker := range headnoteMarkers {
		if strings.Contains(upper, marker) {
			return true
		}
	}
	if position >= headnoteLeadParagraphs {
		return false
	}
	if wordCount(p) <= headnoteMinWords {
		return false
	}
	for _, marker := range partyRoleMarkers {
		if strings.Contains(upper, marker) {
			return false
		}
	}
	return true
}

func wordCount(p domain.Paragraph) int {
	if p.WordCount > 0 {
		return p.WordCount
	}
	return len(strings.Fields(p.Text))
}

// slidingWindow emits token-budgeted content chunks over the non-headnote
// paragraphs. Each iteration advances the window start by at least one
// paragraph, so the loop emits O(len(body)) chunks and always terminates.
func (s *Segmenter) slidingWindow(authorityID string, usable []domain.Paragraph, tokenCounts []int, body []int) []domain.Chunk {
	if len(body) == 0 {
		return nil
	}

	var chunks []domain.Chunk
	start := 0
	for start < len(body) {
		end := start
		total := tokenCounts[body[start]]
		for end+1 < len(body) && total+tokenCounts[body[end+1]] <= s.cfg.TokenCeiling {
			end++
			total += tokenCounts[body[end]]
		}
		// The size floor outranks the ceiling at window boundaries, but
		// forced inclusion is capped at a single extra paragraph.
		if total < s.cfg.TokenFloor && end+1 < len(body) {
			end++
			total += tokenCounts[body[end]]
		}

		members := make([]domain.Paragraph, 0, end-start+1)
		for _, idx := range body[start : end+1] {
			members = append(members, usable[idx])
		}
		chunks = append(chunks, s.buildChunk(authorityID, domain.ChunkTypeContent, members, total))

		if end+1 >= len(body) {
			break
		}

		// Walk backward from the tail accumulating the overlap suffix.
		overlapBudget := int(float64(total) * s.cfg.OverlapFraction)
		next := end + 1
		accumulated := 0
		for j := end; j > start; j-- {
			accumulated += tokenCounts[body[j]]
			if accumulated > overlapBudget {
				break
			}
			next = j
		}
		if next <= start {
			next = start + 1
		}
		start = next
	}
	return chunks
}

// citationContexts emits an additional chunk around every paragraph that
// matches a citation shape. These are additive: they never replace or
// dedupe against content chunks, and are not size-bounded.
func (s *Segmenter) citationContexts(authorityID string, usable []domain.Paragraph, tokenCounts []int) []domain.Chunk {
	var chunks []domain.Chunk
	for i, p := range usable {
		if !hasCitation(p.Text) {
			continue
		}
		from := i - s.cfg.ContextRadius
		if from < 0 {
			from = 0
		}
		to := i + s.cfg.ContextRadius
		if to > len(usable)-1 {
			to = len(usable) - 1
		}
		total := 0
		for j := from; j <= to; j++ {
			total += tokenCounts[j]
		}
		chunks = append(chunks, s.buildChunk(authorityID, domain.ChunkTypeCitationContext, usable[from:to+1], total))
	}
	return chunks
}

func (s *Segmenter) buildChunk(authorityID string, chunkType domain.ChunkType, members []domain.Paragraph, tokenCount int) domain.Chunk {
	texts := make([]string, len(members))
	tagSet := make(map[string]struct{})
	cited := false
	for i, p := range members {
		texts[i] = p.Text
		for _, tag := range extractStatuteTags(p.Text) {
			tagSet[tag] = struct{}{}
		}
		if !cited && hasCitation(p.Text) {
			cited = true
		}
	}

	var tags []string
	if len(tagSet) > 0 {
		tags = make([]string, 0, len(tagSet))
		for tag := range tagSet {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
	}

	return domain.Chunk{
		AuthorityID:    authorityID,
		ParaFrom:       members[0].ID,
		ParaTo:         members[len(members)-1].ID,
		Text:           strings.Join(texts, "\n\n"),
		TokenCount:     tokenCount,
		StatuteTags:    tags,
		HasCitation:    cited,
		Type:           chunkType,
		ParagraphCount: len(members),
	}
}
