package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/nyayatech/nyaya/internal/domain"
)

// EmbeddingClient defines the interface for generating embeddings.
type EmbeddingClient interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// ParagraphProvider supplies the extracted paragraph sequence for an
// authority. Extraction itself (OCR, PDF parsing) is an external
// collaborator; this core only consumes its output.
type ParagraphProvider interface {
	GetParagraphs(ctx context.Context, authorityID string) ([]domain.Paragraph, error)
}

// DocumentStatusRepository transitions an authority document through the
// ingestion states.
type DocumentStatusRepository interface {
	MarkStatus(ctx context.Context, authorityID string, status domain.DocumentStatus, detail string) error
}

// ChunkWriter persists the chunk set for an authority, replacing any
// previous segmentation.
type ChunkWriter interface {
	ReplaceChunks(ctx context.Context, authorityID string, chunks []domain.Chunk) error
}

// IngestionService runs the document half of the pipeline: paragraphs in,
// embedded chunks in the index out.
type IngestionService struct {
	segmenter  *Segmenter
	embedder   EmbeddingClient
	paragraphs ParagraphProvider
	documents  DocumentStatusRepository
	chunks     ChunkWriter
	txRunner   TxRunner
}

func NewIngestionService(
	segmenter *Segmenter,
	embedder EmbeddingClient,
	paragraphs ParagraphProvider,
	documents DocumentStatusRepository,
	chunks ChunkWriter,
) *IngestionService {
	return &IngestionService{
		segmenter:  segmenter,
		embedder:   embedder,
		paragraphs: paragraphs,
		documents:  documents,
		chunks:     chunks,
	}
}

// NewIngestionServiceWithTx commits the chunk replacement and the indexed
// status transition atomically.
func NewIngestionServiceWithTx(
	segmenter *Segmenter,
	embedder EmbeddingClient,
	paragraphs ParagraphProvider,
	documents DocumentStatusRepository,
	chunks ChunkWriter,
	txRunner TxRunner,
) *IngestionService {
	svc := NewIngestionService(segmenter, embedder, paragraphs, documents, chunks)
	svc.txRunner = txRunner
	return svc
}

// IngestDocument segments one authority, embeds every chunk, and replaces
// the authority's index rows. A document yielding no paragraphs or no
// chunks is marked failed and the error is surfaced to the caller; this
// is the only error class the segmentation boundary raises.
func (s *IngestionService) IngestDocument(ctx context.Context, authorityID string) error {
	if err := s.documents.MarkStatus(ctx, authorityID, domain.DocumentStatusIndexing, ""); err != nil {
		return err
	}

	paragraphs, err := s.paragraphs.GetParagraphs(ctx, authorityID)
	if err != nil {
		return fmt.Errorf("failed to load paragraphs for %s: %w", authorityID, err)
	}

	chunks, err := s.segmenter.Segment(authorityID, paragraphs)
	if err != nil {
		if errors.Is(err, domain.ErrEmptyDocument) || errors.Is(err, domain.ErrNoChunks) {
			if markErr := s.documents.MarkStatus(ctx, authorityID, domain.DocumentStatusFailed, err.Error()); markErr != nil {
				return markErr
			}
		}
		return err
	}

	for i := range chunks {
		embedding, err := s.embedder.GenerateEmbedding(ctx, chunks[i].Text)
		if err != nil {
			return fmt.Errorf("failed to embed chunk %d of %s: %w", i, authorityID, err)
		}
		chunks[i].Embedding = embedding
	}

	if s.txRunner != nil {
		err = s.txRunner.WithTx(ctx, func(repos TxRepositories) error {
			if err := repos.Chunks().ReplaceChunks(ctx, authorityID, chunks); err != nil {
				return err
			}
			return repos.Documents().MarkStatus(ctx, authorityID, domain.DocumentStatusIndexed, "")
		})
		if err != nil {
			return fmt.Errorf("failed to index %s: %w", authorityID, err)
		}
		return nil
	}

	if err := s.chunks.ReplaceChunks(ctx, authorityID, chunks); err != nil {
		return fmt.Errorf("failed to store chunks for %s: %w", authorityID, err)
	}

	return s.documents.MarkStatus(ctx, authorityID, domain.DocumentStatusIndexed, "")
}
