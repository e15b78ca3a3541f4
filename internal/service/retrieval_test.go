package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nyayatech/nyaya/internal/domain"
)

// stubSource returns a fixed candidate set and records whether it ran.
type stubSource struct {
	name    domain.RetrievalSource
	results []domain.RetrievalCandidate
	err     error
	called  bool
}

func (s *stubSource) Name() domain.RetrievalSource { return s.name }

func (s *stubSource) Search(_ context.Context, _ RetrievalQuery, _ SearchFilters, _ int) ([]domain.RetrievalCandidate, error) {
	s.called = true
	if s.err != nil {
		return nil, s.err
	}
	out := make([]domain.RetrievalCandidate, len(s.results))
	copy(out, s.results)
	return out, nil
}

// stubResolver resolves the authorities it was seeded with.
type stubResolver struct {
	authorities map[string]*domain.Authority
	err         error
}

func (s *stubResolver) GetByIDs(_ context.Context, ids []string) (map[string]*domain.Authority, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(map[string]*domain.Authority, len(ids))
	for _, id := range ids {
		if a, ok := s.authorities[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) GenerateEmbedding(_ context.Context, _ string) ([]float32, error) {
	return s.vector, s.err
}

type stubReranker struct {
	result []domain.RetrievalCandidate
	err    error
}

func (s *stubReranker) Rerank(_ context.Context, _ string, candidates []domain.RetrievalCandidate) ([]domain.RetrievalCandidate, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.result != nil {
		return s.result, nil
	}
	return candidates, nil
}

func resolverFor(ids ...string) *stubResolver {
	authorities := make(map[string]*domain.Authority, len(ids))
	for _, id := range ids {
		authorities[id] = &domain.Authority{ID: id, Title: "Title " + id, Court: "SC"}
	}
	return &stubResolver{authorities: authorities}
}

func lexicalCandidate(authorityID string, score float64) domain.RetrievalCandidate {
	return domain.RetrievalCandidate{
		AuthorityID: authorityID,
		RawScore:    score,
		Source:      domain.SourceLexical,
	}
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	svc := NewRetrievalService(nil, nil, nil, resolverFor())

	_, err := svc.Retrieve(context.Background(), "", 10, nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestRetrieve_LexicalOnly(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.8),
		lexicalCandidate("auth-2", 0.4),
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor("auth-1", "auth-2"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "auth-1", packs[0].AuthorityID)
	assert.Equal(t, 0.8, packs[0].AggregateScore)
	assert.Equal(t, "auth-2", packs[1].AuthorityID)
	assert.Equal(t, domain.SourceLexical, packs[0].Source)
}

func TestRetrieve_VectorSkippedWithoutEmbedding(t *testing.T) {
	vector := &stubSource{name: domain.SourceVector}
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.5),
	}}
	svc := NewRetrievalService(nil, []CandidateSource{vector, lexical}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	assert.False(t, vector.called)
	assert.Len(t, packs, 1)
}

func TestRetrieve_EmbeddingFailureDegradesVectorSource(t *testing.T) {
	vector := &stubSource{name: domain.SourceVector}
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.5),
	}}
	embedder := &stubEmbedder{err: errors.New("embedding provider down")}
	svc := NewRetrievalService(embedder, []CandidateSource{vector, lexical}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	assert.False(t, vector.called)
	assert.Len(t, packs, 1)
}

func TestRetrieve_VectorScoresScaledByBatchMax(t *testing.T) {
	vector := &stubSource{name: domain.SourceVector, results: []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", RawScore: 2.0, Source: domain.SourceVector},
		{AuthorityID: "auth-2", RawScore: 1.0, Source: domain.SourceVector},
	}}
	embedder := &stubEmbedder{vector: []float32{0.1, 0.2}}
	svc := NewRetrievalService(embedder, []CandidateSource{vector}, nil, resolverFor("auth-1", "auth-2"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, 1.0, packs[0].AggregateScore)
	assert.Equal(t, 0.5, packs[1].AggregateScore)
}

func TestRetrieve_LexicalScoresClamped(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 1.7),
		lexicalCandidate("auth-2", -0.3),
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor("auth-1", "auth-2"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, 1.0, packs[0].AggregateScore)
	assert.Equal(t, 0.0, packs[1].AggregateScore)
}

func TestRetrieve_CitationSourceGatedOnQueryShape(t *testing.T) {
	citation := &stubSource{name: domain.SourceCitation, results: []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", RawScore: 1, Source: domain.SourceCitation},
	}}
	lexical := &stubSource{name: domain.SourceLexical}
	svc := NewRetrievalService(nil, []CandidateSource{citation, lexical}, nil, resolverFor("auth-1"))

	_, err := svc.Retrieve(context.Background(), "what is adverse possession", 10, nil)
	require.NoError(t, err)
	assert.False(t, citation.called)

	packs, err := svc.Retrieve(context.Background(), "AIR 1996 SC 1393", 10, nil)
	require.NoError(t, err)
	assert.True(t, citation.called)
	require.Len(t, packs, 1)
	// Citation matches are pinned, whatever the raw score said.
	assert.Equal(t, 0.9, packs[0].AggregateScore)
}

func TestRetrieve_DedupeKeepsBestPerAuthority(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.4),
	}}
	citation := &stubSource{name: domain.SourceCitation, results: []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", RawScore: 1, Source: domain.SourceCitation},
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical, citation}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "AIR 1996 SC 1393", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, 0.9, packs[0].AggregateScore)
	assert.Equal(t, domain.SourceCitation, packs[0].Source)
}

func TestRetrieve_TieKeepsFirstSeen(t *testing.T) {
	first := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", RawScore: 0.5, Source: domain.SourceLexical, Payload: map[string]string{"origin": "first"}},
	}}
	second := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", RawScore: 0.5, Source: domain.SourceLexical, Payload: map[string]string{"origin": "second"}},
	}}
	svc := NewRetrievalService(nil, []CandidateSource{first, second}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, 0.5, packs[0].AggregateScore)
	assert.Equal(t, "first", packs[0].Metadata["origin"])
}

func TestRetrieve_SourceFailureAbsorbed(t *testing.T) {
	failing := &stubSource{name: domain.SourceLexical, err: errors.New("index offline")}
	healthy := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.6),
	}}
	svc := NewRetrievalService(nil, []CandidateSource{failing, healthy}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	assert.Len(t, packs, 1)
}

func TestRetrieve_AllSourcesEmpty(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor())

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	assert.Empty(t, packs)
}

func TestRetrieve_RerankFloorDrops(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.6),
		lexicalCandidate("auth-2", 0.5),
	}}
	reranker := &stubReranker{result: []domain.RetrievalCandidate{
		{AuthorityID: "auth-1", NormalizedScore: 0.7, Source: domain.SourceLexical},
		{AuthorityID: "auth-2", NormalizedScore: 0.01, Source: domain.SourceLexical},
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, reranker, resolverFor("auth-1", "auth-2"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "auth-1", packs[0].AuthorityID)
}

func TestRetrieve_RerankErrorFallsBack(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.6),
		lexicalCandidate("auth-2", 0.5),
	}}
	reranker := &stubReranker{err: errors.New("model overloaded")}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, reranker, resolverFor("auth-1", "auth-2"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 2)
	assert.Equal(t, "auth-1", packs[0].AuthorityID)
	assert.Equal(t, 0.6, packs[0].AggregateScore)
}

func TestRetrieve_SortAndLimit(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-3", 0.5),
		lexicalCandidate("auth-1", 0.9),
		lexicalCandidate("auth-2", 0.9),
		lexicalCandidate("auth-4", 0.2),
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor("auth-1", "auth-2", "auth-3", "auth-4"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 3, nil)

	require.NoError(t, err)
	require.Len(t, packs, 3)
	// Score descending, authority id ascending on ties.
	assert.Equal(t, "auth-1", packs[0].AuthorityID)
	assert.Equal(t, "auth-2", packs[1].AuthorityID)
	assert.Equal(t, "auth-3", packs[2].AuthorityID)
}

func TestRetrieve_UnresolvedAuthorityDropped(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.6),
		lexicalCandidate("auth-gone", 0.5),
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 1)
	assert.Equal(t, "auth-1", packs[0].AuthorityID)
}

func TestRetrieve_ResolverErrorFailsRequest(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		lexicalCandidate("auth-1", 0.6),
	}}
	resolver := &stubResolver{err: errors.New("database down")}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolver)

	_, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)
	assert.Error(t, err)
}

func TestRetrieve_PackCarriesParagraphSpan(t *testing.T) {
	lexical := &stubSource{name: domain.SourceLexical, results: []domain.RetrievalCandidate{
		{
			AuthorityID: "auth-1",
			ChunkID:     "42",
			RawScore:    0.8,
			Source:      domain.SourceLexical,
			ParaFrom:    3,
			ParaTo:      5,
			Snippet:     "the matched excerpt",
		},
	}}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor("auth-1"))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 10, nil)

	require.NoError(t, err)
	require.Len(t, packs, 1)
	require.Len(t, packs[0].Paragraphs, 3)
	assert.Equal(t, 3, packs[0].Paragraphs[0].ParaID)
	assert.Equal(t, "the matched excerpt", packs[0].Paragraphs[0].Text)
	assert.Equal(t, 5, packs[0].Paragraphs[2].ParaID)
	assert.Equal(t, 0.8, packs[0].Paragraphs[0].Score)
}

func TestRetrieve_DefaultAndMaxLimit(t *testing.T) {
	var results []domain.RetrievalCandidate
	for i := 0; i < 60; i++ {
		results = append(results, lexicalCandidate(string(rune('a'+i/26))+string(rune('a'+i%26)), 0.5))
	}
	ids := make([]string, len(results))
	for i, c := range results {
		ids[i] = c.AuthorityID
	}
	lexical := &stubSource{name: domain.SourceLexical, results: results}
	svc := NewRetrievalService(nil, []CandidateSource{lexical}, nil, resolverFor(ids...))

	packs, err := svc.Retrieve(context.Background(), "adverse possession", 0, nil)
	require.NoError(t, err)
	assert.Len(t, packs, 10)

	packs, err = svc.Retrieve(context.Background(), "adverse possession", 500, nil)
	require.NoError(t, err)
	assert.Len(t, packs, 50)
}
