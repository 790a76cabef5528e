package nats

import (
	"context"
	"encoding/json"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/docuchat/docuchat"
)

func SubmitIngestionHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var job docuchat.SubmitIngestionRequest
		if err := json.Unmarshal(r.Data(), &job); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		_, err := endpoint(ctx, job)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		r.Respond([]byte("OK"))
	}
}

func IngestionStatusHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		collectionID := string(r.Data())
		if collectionID == "" {
			r.Error("400", "collection id is required", nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, collectionID)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		status, ok := resp.(docuchat.JobStatus)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&status)
	}
}

func ChatHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req docuchat.ChatRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			r.Error("417", err.Error(), nil)
			return
		}

		turn, ok := resp.(docuchat.ChatTurn)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&turn)
	}
}
