package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nyayatech/nyaya/internal/domain"
)

type MockParagraphProvider struct {
	mock.Mock
}

func (m *MockParagraphProvider) GetParagraphs(ctx context.Context, authorityID string) ([]domain.Paragraph, error) {
	args := m.Called(ctx, authorityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Paragraph), args.Error(1)
}

type MockDocumentStatusRepository struct {
	mock.Mock
}

func (m *MockDocumentStatusRepository) MarkStatus(ctx context.Context, authorityID string, status domain.DocumentStatus, detail string) error {
	args := m.Called(ctx, authorityID, status, detail)
	return args.Error(0)
}

type MockChunkWriter struct {
	mock.Mock
}

func (m *MockChunkWriter) ReplaceChunks(ctx context.Context, authorityID string, chunks []domain.Chunk) error {
	args := m.Called(ctx, authorityID, chunks)
	return args.Error(0)
}

type MockEmbeddingClient struct {
	mock.Mock
}

func (m *MockEmbeddingClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	args := m.Called(ctx, text)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float32), args.Error(1)
}

// stubTxRunner hands the callback a fixed repository set and records
// whether a transaction ran.
type stubTxRunner struct {
	repos TxRepositories
	ran   bool
	err   error
}

func (r *stubTxRunner) WithTx(_ context.Context, fn func(repos TxRepositories) error) error {
	r.ran = true
	if err := fn(r.repos); err != nil {
		return err
	}
	return r.err
}

type stubTxRepos struct {
	documents  DocumentStatusRepository
	chunks     ChunkWriter
	paragraphs ParagraphProvider
}

func (r *stubTxRepos) Documents() DocumentStatusRepository { return r.documents }
func (r *stubTxRepos) Chunks() ChunkWriter                 { return r.chunks }
func (r *stubTxRepos) Paragraphs() ParagraphProvider       { return r.paragraphs }

func ingestParagraphs() []domain.Paragraph {
	return []domain.Paragraph{
		{ID: 0, Text: "The plaintiff claims title by adverse possession over the suit land."},
		{ID: 1, Text: "Possession was open hostile and continuous for more than twelve years."},
	}
}

func TestIngestDocument_Success(t *testing.T) {
	paragraphs := new(MockParagraphProvider)
	documents := new(MockDocumentStatusRepository)
	chunks := new(MockChunkWriter)
	embedder := new(MockEmbeddingClient)

	paragraphs.On("GetParagraphs", mock.Anything, "auth-1").Return(ingestParagraphs(), nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexing, "").Return(nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1, 0.2}, nil)
	chunks.On("ReplaceChunks", mock.Anything, "auth-1", mock.MatchedBy(func(cs []domain.Chunk) bool {
		if len(cs) == 0 {
			return false
		}
		for _, c := range cs {
			if len(c.Embedding) == 0 || c.AuthorityID != "auth-1" {
				return false
			}
		}
		return true
	})).Return(nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexed, "").Return(nil)

	svc := NewIngestionService(NewSegmenterWithConfig(fieldTokenCounter{}, SegmenterConfig{
		TokenCeiling: 50, TokenFloor: 0, OverlapFraction: 0, ContextRadius: 1,
	}), embedder, paragraphs, documents, chunks)

	err := svc.IngestDocument(context.Background(), "auth-1")

	require.NoError(t, err)
	paragraphs.AssertExpectations(t)
	documents.AssertExpectations(t)
	chunks.AssertExpectations(t)
	embedder.AssertExpectations(t)
}

func TestIngestDocument_EmptyDocumentMarkedFailed(t *testing.T) {
	paragraphs := new(MockParagraphProvider)
	documents := new(MockDocumentStatusRepository)
	chunks := new(MockChunkWriter)
	embedder := new(MockEmbeddingClient)

	paragraphs.On("GetParagraphs", mock.Anything, "auth-1").Return([]domain.Paragraph{
		{ID: 0, Text: "   "},
	}, nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexing, "").Return(nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusFailed, mock.MatchedBy(func(detail string) bool {
		return detail != ""
	})).Return(nil)

	svc := NewIngestionService(NewSegmenter(fieldTokenCounter{}), embedder, paragraphs, documents, chunks)

	err := svc.IngestDocument(context.Background(), "auth-1")

	assert.ErrorIs(t, err, domain.ErrEmptyDocument)
	documents.AssertExpectations(t)
	chunks.AssertNotCalled(t, "ReplaceChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestDocument_EmbeddingFailureSurfaces(t *testing.T) {
	paragraphs := new(MockParagraphProvider)
	documents := new(MockDocumentStatusRepository)
	chunks := new(MockChunkWriter)
	embedder := new(MockEmbeddingClient)

	paragraphs.On("GetParagraphs", mock.Anything, "auth-1").Return(ingestParagraphs(), nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexing, "").Return(nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return(nil, errors.New("provider down"))

	svc := NewIngestionService(NewSegmenter(fieldTokenCounter{}), embedder, paragraphs, documents, chunks)

	err := svc.IngestDocument(context.Background(), "auth-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to embed chunk")
	chunks.AssertNotCalled(t, "ReplaceChunks", mock.Anything, mock.Anything, mock.Anything)
}

func TestIngestDocument_ParagraphLoadFailure(t *testing.T) {
	paragraphs := new(MockParagraphProvider)
	documents := new(MockDocumentStatusRepository)

	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexing, "").Return(nil)
	paragraphs.On("GetParagraphs", mock.Anything, "auth-1").Return(nil, errors.New("database down"))

	svc := NewIngestionService(NewSegmenter(fieldTokenCounter{}), new(MockEmbeddingClient), paragraphs, documents, new(MockChunkWriter))

	err := svc.IngestDocument(context.Background(), "auth-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load paragraphs")
}

func TestIngestDocument_TxPathCommitsChunksAndStatusTogether(t *testing.T) {
	paragraphs := new(MockParagraphProvider)
	documents := new(MockDocumentStatusRepository)
	embedder := new(MockEmbeddingClient)

	txDocuments := new(MockDocumentStatusRepository)
	txChunks := new(MockChunkWriter)
	runner := &stubTxRunner{repos: &stubTxRepos{documents: txDocuments, chunks: txChunks, paragraphs: paragraphs}}

	paragraphs.On("GetParagraphs", mock.Anything, "auth-1").Return(ingestParagraphs(), nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexing, "").Return(nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	txChunks.On("ReplaceChunks", mock.Anything, "auth-1", mock.Anything).Return(nil)
	txDocuments.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexed, "").Return(nil)

	svc := NewIngestionServiceWithTx(NewSegmenter(fieldTokenCounter{}), embedder, paragraphs, documents, new(MockChunkWriter), runner)

	err := svc.IngestDocument(context.Background(), "auth-1")

	require.NoError(t, err)
	assert.True(t, runner.ran)
	txChunks.AssertExpectations(t)
	txDocuments.AssertExpectations(t)
}

func TestIngestDocument_TxFailureWrapped(t *testing.T) {
	paragraphs := new(MockParagraphProvider)
	documents := new(MockDocumentStatusRepository)
	embedder := new(MockEmbeddingClient)

	txDocuments := new(MockDocumentStatusRepository)
	txChunks := new(MockChunkWriter)
	runner := &stubTxRunner{repos: &stubTxRepos{documents: txDocuments, chunks: txChunks, paragraphs: paragraphs}}

	paragraphs.On("GetParagraphs", mock.Anything, "auth-1").Return(ingestParagraphs(), nil)
	documents.On("MarkStatus", mock.Anything, "auth-1", domain.DocumentStatusIndexing, "").Return(nil)
	embedder.On("GenerateEmbedding", mock.Anything, mock.Anything).Return([]float32{0.1}, nil)
	txChunks.On("ReplaceChunks", mock.Anything, "auth-1", mock.Anything).Return(errors.New("unique violation"))

	svc := NewIngestionServiceWithTx(NewSegmenter(fieldTokenCounter{}), embedder, paragraphs, documents, new(MockChunkWriter), runner)

	err := svc.IngestDocument(context.Background(), "auth-1")

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to index auth-1")
	txDocuments.AssertNotCalled(t, "MarkStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}
