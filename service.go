package docuchat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/docuchat/docuchat/ai"
	"github.com/docuchat/docuchat/extract"
	"github.com/docuchat/docuchat/queue"
	"github.com/docuchat/docuchat/vector"
)

// Service defines the core logic of docuchat.
type Service interface {

	// Close gracefully shuts down the service and its queue consumer.
	Close() error

	// SubmitIngestion enqueues an ingestion job and returns immediately.
	// Processing happens asynchronously; failures surface through
	// IngestionStatus and through later chat calls against the collection.
	SubmitIngestion(ctx context.Context, job queue.Job) error

	// IngestionStatus reports the processing state for a collection.
	IngestionStatus(ctx context.Context, collectionID string) (JobStatus, error)

	// Chat answers a question grounded in the passages retrieved from the
	// collection identified by the request.
	Chat(ctx context.Context, req ChatRequest) (ChatTurn, error)
}

type ServiceMiddleware func(Service) Service

// Dependencies carries the external collaborators, constructed once at
// process start and injected explicitly.
type Dependencies struct {
	Queue      queue.Queue
	Store      vector.Store
	Embedder   ai.Embedder
	Generator  ai.Generator
	Extractors *extract.Registry
}

func (deps Dependencies) validate() error {
	if deps.Queue == nil {
		return errors.New("queue is required")
	}

	if deps.Store == nil {
		return errors.New("vector store is required")
	}

	if deps.Embedder == nil {
		return errors.New("embedder is required")
	}

	if deps.Generator == nil {
		return errors.New("generator is required")
	}

	if deps.Extractors == nil {
		return errors.New("extractor registry is required")
	}

	return nil
}

func NewService(ctx context.Context, cfg Config, deps Dependencies) (Service, error) {
	if err := deps.validate(); err != nil {
		return nil, err
	}

	log := zap.L().With(
		zap.String("service", "docuchat"),
	)

	ctx, cancel := context.WithCancel(ctx)

	svc := &service{
		cfg:        cfg,
		queue:      deps.Queue,
		store:      deps.Store,
		embedder:   deps.Embedder,
		generator:  deps.Generator,
		extractors: deps.Extractors,
		statuses:   make(map[string]JobStatus),

		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}

	if err := deps.Queue.Consume(ctx, svc.processJob); err != nil {
		cancel()
		return nil, err
	}

	return svc, nil
}

type service struct {
	cfg        Config
	queue      queue.Queue
	store      vector.Store
	embedder   ai.Embedder
	generator  ai.Generator
	extractors *extract.Registry

	statusMutex sync.RWMutex
	statuses    map[string]JobStatus

	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func (svc *service) Close() error {
	if svc.cancel != nil {
		svc.cancel()
		svc.cancel = nil
	}

	return svc.queue.Close()
}

func (svc *service) SubmitIngestion(ctx context.Context, job queue.Job) error {
	if err := job.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	// Reject up front instead of letting the job dead-letter later.
	if !svc.extractors.Supports(job.Kind) {
		return fmt.Errorf("%w: no extractor for source kind %q", ErrInvalidRequest, job.Kind)
	}

	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}

	svc.setStatus(job.CollectionID, JobStateReceived, nil)

	if err := svc.queue.Enqueue(ctx, job); err != nil {
		svc.setStatus(job.CollectionID, JobStateFailed, err)
		return err
	}

	return nil
}

func (svc *service) IngestionStatus(ctx context.Context, collectionID string) (JobStatus, error) {
	if collectionID == "" {
		return JobStatus{}, fmt.Errorf("%w: collection id is required", ErrInvalidRequest)
	}

	svc.statusMutex.RLock()
	defer svc.statusMutex.RUnlock()

	status, ok := svc.statuses[collectionID]
	if !ok {
		return JobStatus{}, ErrJobNotFound
	}

	return status, nil
}

func (svc *service) Chat(ctx context.Context, req ChatRequest) (ChatTurn, error) {
	if err := req.Validate(); err != nil {
		return ChatTurn{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, svc.cfg.Chat.RequestTimeout.Duration())
	defer cancel()

	embedding, err := svc.embedder.Embed(ctx, req.Question)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("%w: embed question: %w", ErrRetrieval, err)
	}

	results, err := svc.store.Query(ctx, req.CollectionID, embedding, svc.cfg.Chat.TopK)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("%w: %w", ErrRetrieval, err)
	}

	if len(results) == 0 {
		return ChatTurn{}, fmt.Errorf("%w: %w", ErrRetrieval, vector.ErrCollectionNotFound)
	}

	instruction := chatInstruction(buildContext(results, svc.cfg.Chat.MaxContextChars))

	answer, err := svc.generator.Generate(ctx, instruction, req.Question)
	if err != nil {
		return ChatTurn{}, fmt.Errorf("%w: %w", ErrGeneration, err)
	}

	return ChatTurn{
		Role:    RoleAssistant,
		Content: answer,
	}, nil
}

func (svc *service) setStatus(collectionID string, state JobState, err error) {
	status := JobStatus{
		CollectionID: collectionID,
		State:        state,
		UpdatedAt:    time.Now(),
	}

	if err != nil {
		status.Error = err.Error()
	}

	svc.statusMutex.Lock()
	defer svc.statusMutex.Unlock()

	svc.statuses[collectionID] = status
}
