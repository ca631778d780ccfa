package assistant

import (
	"context"
	"errors"

	"github.com/go-kit/kit/endpoint"
)

type EndpointSet struct {
	Ask     endpoint.Endpoint
	Reindex endpoint.Endpoint
}

type AskRequest struct {
	Query string `json:"query" form:"query"`
	K     int    `json:"k,omitempty" form:"k"`
}

type AskResponse struct {
	Answer string `json:"answer"`
}

func AskEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(AskRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		answer, err := svc.Ask(ctx, req.Query, req.K)
		if err != nil {
			return nil, err
		}

		return AskResponse{Answer: answer}, nil
	}
}

type ReindexRequest struct {
	Rebuild bool `json:"rebuild,omitempty" form:"rebuild"`
}

func ReindexEndpoint(svc Service) endpoint.Endpoint {
	return func(ctx context.Context, request any) (any, error) {
		req, ok := request.(ReindexRequest)
		if !ok {
			return nil, errors.New("invalid request type")
		}

		summary, err := svc.Reindex(ctx, req.Rebuild)
		if err != nil {
			return nil, err
		}

		return summary, nil
	}
}
