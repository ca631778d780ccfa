package assistant

import (
	"context"

	"go.uber.org/zap"
)

func LoggingMiddleware(log *zap.Logger) ServiceMiddleware {
	log = log.With(
		zap.String("service", "assistant"),
	)

	return func(next Service) Service {
		log.Info("service initialized")

		return &loggingMiddleware{
			log:  log,
			next: next,
		}
	}
}

type loggingMiddleware struct {
	log  *zap.Logger
	next Service
}

func (mw *loggingMiddleware) Close() error {
	log := mw.log.With(
		zap.String("action", "close"),
	)

	err := mw.next.Close()
	if err != nil {
		log.Error(err.Error())
		return err
	}

	log.Info("service closed")
	return nil
}

func (mw *loggingMiddleware) Ask(ctx context.Context, query string, k ...int) (string, error) {
	var n int
	if len(k) > 0 {
		n = k[0]
	}

	log := mw.log.With(
		zap.String("action", "ask"),
		zap.String("query", query),
	)

	if n > 0 {
		log = log.With(
			zap.Int("k", n),
		)
	}

	answer, err := mw.next.Ask(ctx, query, k...)
	if err != nil {
		log.Error(err.Error())
		return "", err
	}

	log.Info("question answered", zap.Int("length", len(answer)))
	return answer, nil
}

func (mw *loggingMiddleware) Reindex(ctx context.Context, rebuild bool) (IndexSummary, error) {
	log := mw.log.With(
		zap.String("action", "reindex"),
		zap.Bool("rebuild", rebuild),
	)

	summary, err := mw.next.Reindex(ctx, rebuild)
	if err != nil {
		log.Error(err.Error())
		return summary, err
	}

	log.Info("catalog indexed",
		zap.Int("processed", summary.Processed),
		zap.Int("indexed", summary.Indexed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", len(summary.Failed)),
	)

	return summary, nil
}
