package nats

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/micro"

	"github.com/freshbazaar/assistant"
)

const (
	// Answering waits on a remote generation call.
	askTimeout = 60 * time.Second

	// A full reindex walks the whole catalog.
	reindexTimeout = 10 * time.Minute
)

func MakeEndpoints(nc *nats.Conn, prefix string) *assistant.EndpointSet {
	return &assistant.EndpointSet{
		Ask:     AskEndpoint(nc, prefix+".ask"),
		Reindex: ReindexEndpoint(nc, prefix+".reindex"),
	}
}

func AskEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(assistant.AskRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		msg, err := nc.Request(topic, data, askTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(msg); err != nil {
			return nil, err
		}

		var resp assistant.AskResponse
		if err := json.Unmarshal(msg.Data, &resp); err != nil {
			return nil, err
		}

		return resp, nil
	}
}

func ReindexEndpoint(nc *nats.Conn, topic string) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(assistant.ReindexRequest)
		if !ok {
			return nil, errors.New("invalid request")
		}

		data, err := json.Marshal(&req)
		if err != nil {
			return nil, err
		}

		msg, err := nc.Request(topic, data, reindexTimeout)
		if err != nil {
			return nil, err
		}

		if err := Error(msg); err != nil {
			return nil, err
		}

		var summary assistant.IndexSummary
		if err := json.Unmarshal(msg.Data, &summary); err != nil {
			return nil, err
		}

		return summary, nil
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
