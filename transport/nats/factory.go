package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/docuchat/docuchat"
)

// MakeEndpoints builds client-side endpoints that call a remote docuchat
// service over NATS request/reply.
func MakeEndpoints(nc *nats.Conn, prefix string) *docuchat.EndpointSet {
	return &docuchat.EndpointSet{
		SubmitIngestion: SubmitIngestionEndpoint(nc, prefix+".submit_ingestion"),
		IngestionStatus: IngestionStatusEndpoint(nc, prefix+".ingestion_status"),
		Chat:            ChatEndpoint(nc, prefix+".chat"),
	}
}

func SubmitIngestionEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		job, ok := request.(docuchat.SubmitIngestionRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&job)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		return string(resp.Data), nil
	}
}

func IngestionStatusEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		collectionID, ok := request.(string)
		if !ok {
			return nil, errors.New("invalid request")
		}

		resp, err := nc.Request(topic, []byte(collectionID), nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var status docuchat.JobStatus
		if err := json.Unmarshal(resp.Data, &status); err != nil {
			return nil, err
		}

		return status, nil
	}
}

func ChatEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(docuchat.ChatRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		resp, err := nc.Request(topic, data, nats.DefaultTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(resp); err != nil {
			return nil, err
		}

		var turn docuchat.ChatTurn
		if err := json.Unmarshal(resp.Data, &turn); err != nil {
			return nil, err
		}

		return turn, nil
	}
}

func Error(msg *nats.Msg) error {
	if msg == nil {
		return errors.New("nil message")
	}

	code := msg.Header.Get(micro.ErrorCodeHeader)
	if code == "" {
		return nil
	}

	description := msg.Header.Get(micro.ErrorHeader)
	if description == "" {
		description = "unknown error"
	}

	return errors.New(code + ":" + description)
}
