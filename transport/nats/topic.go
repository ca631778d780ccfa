package nats

import (
	"github.com/nats-io/nats.go/micro"

	"github.com/freshbazaar/assistant"
)

func AddEndpoints(group micro.Group, endpoints assistant.EndpointSet) {
	group.AddEndpoint("ask", AskHandler(endpoints.Ask))
	group.AddEndpoint("reindex", ReindexHandler(endpoints.Reindex))
}
