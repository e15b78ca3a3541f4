package jobs

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/nyayatech/nyaya/internal/domain"
)

const maxDocumentsPerPoll = 5

// DocumentQueue claims pending authority documents for ingestion.
type DocumentQueue interface {
	ClaimPending(ctx context.Context) (string, error)
	MarkStatus(ctx context.Context, authorityID string, status domain.DocumentStatus, detail string) error
}

// IngestionService segments, embeds and indexes one claimed document.
type IngestionService interface {
	IngestDocument(ctx context.Context, authorityID string) error
}

// IngestWorker drains the pending-document queue one claim at a time.
type IngestWorker struct {
	queue   DocumentQueue
	service IngestionService
}

func NewIngestWorker(queue DocumentQueue, service IngestionService) *IngestWorker {
	return &IngestWorker{queue: queue, service: service}
}

// ProcessJobs implements the JobProcessor interface.
func (w *IngestWorker) ProcessJobs(ctx context.Context) error {
	for i := 0; i < maxDocumentsPerPoll; i++ {
		authorityID, err := w.queue.ClaimPending(ctx)
		if errors.Is(err, domain.ErrDocumentNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to claim pending document: %w", err)
		}

		log.Printf("ingesting document %s", authorityID)
		if err := w.service.IngestDocument(ctx, authorityID); err != nil {
			// Empty-document failures were already marked by the service;
			// anything else returns to the queue for the next poll.
			if !errors.Is(err, domain.ErrEmptyDocument) && !errors.Is(err, domain.ErrNoChunks) {
				if markErr := w.queue.MarkStatus(ctx, authorityID, domain.DocumentStatusPending, err.Error()); markErr != nil {
					log.Printf("failed to requeue document %s: %v", authorityID, markErr)
				}
			}
			log.Printf("ingestion of %s failed: %v", authorityID, err)
			continue
		}
		log.Printf("document %s indexed", authorityID)
	}
	return nil
}
