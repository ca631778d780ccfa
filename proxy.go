package assistant

import (
	"context"
	"errors"
)

// ProxyMiddleware turns a set of remote endpoints into a Service, so thin
// frontends can talk to a running assistant without local providers.
func ProxyMiddleware(endpoints *EndpointSet) ServiceMiddleware {
	return func(next Service) Service {
		return &proxyMiddleware{
			endpoints: endpoints,
		}
	}
}

type proxyMiddleware struct {
	endpoints *EndpointSet
}

func (mw *proxyMiddleware) Close() error {
	return errors.New("method not implemented")
}

func (mw *proxyMiddleware) Ask(ctx context.Context, query string, k ...int) (string, error) {
	n := 0
	if len(k) > 0 {
		n = k[0]
	}

	req := AskRequest{
		Query: query,
		K:     n,
	}

	resp, err := mw.endpoints.Ask(ctx, req)
	if err != nil {
		return "", err
	}

	answer, ok := resp.(AskResponse)
	if !ok {
		return "", errors.New("invalid response type")
	}

	return answer.Answer, nil
}

func (mw *proxyMiddleware) Reindex(ctx context.Context, rebuild bool) (IndexSummary, error) {
	req := ReindexRequest{
		Rebuild: rebuild,
	}

	resp, err := mw.endpoints.Reindex(ctx, req)
	if err != nil {
		return IndexSummary{}, err
	}

	summary, ok := resp.(IndexSummary)
	if !ok {
		return IndexSummary{}, errors.New("invalid response type")
	}

	return summary, nil
}
