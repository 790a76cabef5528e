package queue

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidJob  = errors.New("invalid job")
	ErrQueueClosed = errors.New("queue is closed")
)

// SourceKind tags the origin of an ingestion job so extraction can dispatch
// on an explicit variant instead of inferring it from field presence.
type SourceKind string

const (
	SourceKindFile SourceKind = "file"
	SourceKindURL  SourceKind = "url"
)

func (k SourceKind) Valid() bool {
	switch k {
	case SourceKindFile, SourceKindURL:
		return true
	default:
		return false
	}
}

// Job is one unit of ingestion work. It is consumed at least once by a single
// registered consumer; consumers must tolerate redelivery of the same job.
type Job struct {
	Kind         SourceKind `json:"kind"`
	SourceRef    string     `json:"source_ref"`
	OwnerID      string     `json:"owner_id"`
	CollectionID string     `json:"collection_id"`
	SubmittedAt  time.Time  `json:"submitted_at"`
}

func (job Job) Validate() error {
	if !job.Kind.Valid() {
		return fmt.Errorf("%w: unknown source kind %q", ErrInvalidJob, job.Kind)
	}

	if job.SourceRef == "" {
		return fmt.Errorf("%w: source reference is required", ErrInvalidJob)
	}

	if job.CollectionID == "" {
		return fmt.Errorf("%w: collection id is required", ErrInvalidJob)
	}

	return nil
}

type Handler func(ctx context.Context, job Job) error

// Queue decouples upload acceptance from ingestion. Delivery is at least
// once: a handler error triggers redelivery up to the configured limit, after
// which the job is dead-lettered. Jobs for different collections are
// independent and carry no cross-job ordering guarantee.
type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	Consume(ctx context.Context, handler Handler) error
	Close() error
}
