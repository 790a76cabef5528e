package docuchat

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/queue"
	"github.com/docuchat/docuchat/vector"
)

// processJob runs one queued ingestion job through extraction, embedding and
// storage. Each step is attempted once per delivery; on failure the error is
// returned so the queue redelivers the whole job, restarting from extraction.
// No intermediate state is checkpointed — re-extraction is deterministic, so
// a retry only repeats work, it never corrupts the collection.
func (svc *service) processJob(ctx context.Context, job queue.Job) error {
	log := svc.log.With(
		zap.String("action", "ingest"),
		zap.String("collection_id", job.CollectionID),
		zap.String("kind", string(job.Kind)),
	)

	ctx, cancel := context.WithTimeout(ctx, svc.cfg.Ingest.JobTimeout.Duration())
	defer cancel()

	svc.setStatus(job.CollectionID, JobStateExtracting, nil)

	segments, err := svc.extractors.Extract(ctx, job.Kind, job.SourceRef)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrExtraction, err)
		svc.setStatus(job.CollectionID, JobStateFailed, err)
		return err
	}

	svc.setStatus(job.CollectionID, JobStateEmbedding, nil)

	texts := make([]string, len(segments))
	for i, segment := range segments {
		texts[i] = segment.Content
	}

	embeddings, err := svc.embedder.EmbedMany(ctx, texts)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrEmbedding, err)
		svc.setStatus(job.CollectionID, JobStateFailed, err)
		return err
	}

	if len(embeddings) != len(segments) {
		err = fmt.Errorf("%w: expected %d embeddings, got %d", ErrEmbedding, len(segments), len(embeddings))
		svc.setStatus(job.CollectionID, JobStateFailed, err)
		return err
	}

	svc.setStatus(job.CollectionID, JobStateStoring, nil)

	docs := make([]vector.Document, len(segments))
	for i, segment := range segments {
		metadata := make(map[string]string, len(segment.Metadata)+1)
		for k, v := range segment.Metadata {
			metadata[k] = v
		}
		metadata["owner_id"] = job.OwnerID

		docs[i] = vector.Document{
			ID:        segmentDocumentID(job.CollectionID, job.SourceRef, i, segment.Content),
			Metadata:  metadata,
			Content:   segment.Content,
			Embedding: embeddings[i],
		}
	}

	if err := svc.store.AddDocuments(ctx, job.CollectionID, docs); err != nil {
		err = fmt.Errorf("store documents: %w", err)
		svc.setStatus(job.CollectionID, JobStateFailed, err)
		return err
	}

	svc.setStatus(job.CollectionID, JobStateDone, nil)

	log.Info("ingestion complete", zap.Int("segments", len(docs)))
	return nil
}

func chatInstruction(context string) string {
	return "You are a helpful assistant. Answer the user's question using only the source passages below. " +
		"If the passages do not contain the answer, say that you don't have that information. " +
		"Do not make up information.\n\n" +
		"--- CONTEXT START ---\n" + context + "\n--- CONTEXT END ---"
}

// buildContext concatenates retrieved passages, most relevant first, up to
// the configured character budget so oversized passages cannot overflow the
// provider's prompt limit.
func buildContext(results []vector.Result, maxChars int) string {
	var b strings.Builder

	for _, result := range results {
		content := strings.TrimSpace(result.Content)
		if content == "" {
			continue
		}

		if b.Len() >= maxChars {
			break
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}

		remaining := maxChars - b.Len()
		if remaining <= 0 {
			break
		}

		if len(content) > remaining {
			// Cut on a rune boundary; a split rune would make the
			// context invalid UTF-8 and unsendable to the provider.
			cut := remaining
			for cut > 0 && !utf8.RuneStart(content[cut]) {
				cut--
			}
			content = content[:cut]
		}

		b.WriteString(content)
	}

	return b.String()
}
