package nats

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/go-kit/kit/endpoint"
	"github.com/nats-io/nats.go/micro"

	"github.com/freshbazaar/assistant"
)

func AskHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req assistant.AskRequest
		if err := json.Unmarshal(r.Data(), &req); err != nil {
			r.Error("400", err.Error(), nil)
			return
		}

		ctx := context.Background()
		resp, err := endpoint(ctx, req)
		if err != nil {
			switch {
			case errors.Is(err, assistant.ErrInvalidQuery):
				r.Error("400", err.Error(), nil)

			case errors.Is(err, assistant.ErrRetrievalUnavailable),
				errors.Is(err, assistant.ErrGenerationUnavailable):
				r.Error("503", err.Error(), nil)

			default:
				r.Error("417", err.Error(), nil)
			}

			return
		}

		answer, ok := resp.(assistant.AskResponse)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&answer)
	}
}

func ReindexHandler(endpoint endpoint.Endpoint) micro.HandlerFunc {
	return func(r micro.Request) {
		var req assistant.ReindexRequest
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

		summary, ok := resp.(assistant.IndexSummary)
		if !ok {
			r.Error("500", "invalid response type", nil)
			return
		}

		r.RespondJSON(&summary)
	}
}
