package extract

import (
	"context"
	"errors"
	"fmt"

	"github.com/docuchat/docuchat/queue"
)

var (
	ErrNoContent   = errors.New("no extractable content")
	ErrUnsupported = errors.New("unsupported source")
)

// Segment is one logical unit of extracted text (a page, a paragraph, a
// transcript slice) with its source metadata. Extraction is deterministic:
// the same artifact always yields the same ordered segments.
type Segment struct {
	Content  string
	Metadata map[string]string
}

type Extractor interface {
	Extract(ctx context.Context, sourceRef string) ([]Segment, error)
}

// Registry dispatches extraction on the job's source kind.
type Registry struct {
	extractors map[queue.SourceKind]Extractor
}

func NewRegistry() *Registry {
	return &Registry{
		extractors: make(map[queue.SourceKind]Extractor),
	}
}

func (r *Registry) Register(kind queue.SourceKind, extractor Extractor) {
	r.extractors[kind] = extractor
}

// Supports reports whether an extractor is registered for the kind.
func (r *Registry) Supports(kind queue.SourceKind) bool {
	_, ok := r.extractors[kind]
	return ok
}

func (r *Registry) Extract(ctx context.Context, kind queue.SourceKind, sourceRef string) ([]Segment, error) {
	extractor, ok := r.extractors[kind]
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for kind %q", ErrUnsupported, kind)
	}

	return extractor.Extract(ctx, sourceRef)
}
