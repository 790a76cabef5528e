package docuchat

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"

	"github.com/docuchat/docuchat/queue"
)

type EndpointSet struct {
	SubmitIngestion endpoint.Endpoint
	IngestionStatus endpoint.Endpoint
	Chat            endpoint.Endpoint
}

type SubmitIngestionRequest = queue.Job

func SubmitIngestionEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		job, ok := request.(SubmitIngestionRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		err := svc.SubmitIngestion(ctx, job)
		return nil, err
	}
}

func IngestionStatusEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		collectionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.IngestionStatus(ctx, collectionID)
	}
}

func ChatEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ChatRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		return svc.Chat(ctx, req)
	}
}
