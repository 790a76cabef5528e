package docuchat

import (
	"context"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/queue"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "docuchat"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) SubmitIngestion(ctx context.Context, job queue.Job) error {
	log := mw.log.With(
		zap.String("action", "submit_ingestion"),
		zap.String("collection_id", job.CollectionID),
		zap.String("kind", string(job.Kind)),
		zap.String("owner_id", job.OwnerID),
	)

	err := mw.next.SubmitIngestion(ctx, job)
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("ingestion job enqueued")
	return nil
}

func (mw *loggingMiddleware) IngestionStatus(ctx context.Context, collectionID string) (JobStatus, error) {
	log := mw.log.With(
		zap.String("action", "ingestion_status"),
		zap.String("collection_id", collectionID),
	)

	status, err := mw.next.IngestionStatus(ctx, collectionID)
	if err != nil {
		log.Error(err.Error())
		return JobStatus{}, err
	}

	log.Info("status reported", zap.String("state", string(status.State)))
	return status, nil
}

func (mw *loggingMiddleware) Chat(ctx context.Context, req ChatRequest) (ChatTurn, error) {
	log := mw.log.With(
		zap.String("action", "chat"),
		zap.String("collection_id", req.CollectionID),
		zap.String("user_id", req.UserID),
	)

	turn, err := mw.next.Chat(ctx, req)
	if err != nil {
		log.Error(err.Error())
		return ChatTurn{}, err
	}

	log.Info("question answered", zap.Int("answer_chars", len(turn.Content)))
	return turn, nil
}
