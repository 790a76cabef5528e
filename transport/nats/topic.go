package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/docuchat/docuchat"
)

func AddEndpoints(group micro.Group, endpoints docuchat.EndpointSet) {
	group.AddEndpoint("submit_ingestion", SubmitIngestionHandler(endpoints.SubmitIngestion))
	group.AddEndpoint("ingestion_status", IngestionStatusHandler(endpoints.IngestionStatus))
	group.AddEndpoint("chat", ChatHandler(endpoints.Chat))
}
