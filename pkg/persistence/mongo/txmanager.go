package mongo

import (
	"context"
	"errors"
	"fmt"

	"github.com/Sokol111/ecommerce-relay/pkg/persistence"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.uber.org/zap"
)

type sessionStarter interface {
	StartSession() (*mongodriver.Session, error)
}

type txManager struct {
	sessions   sessionStarter
	maxRetries int
	log        *zap.Logger
}

// NewTxManager returns a TxManager running callbacks in a Mongo session
// transaction. Stores detect the transaction with mongo.SessionFromContext.
func NewTxManager(sessions sessionStarter, maxRetries int, log *zap.Logger) persistence.TxManager {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &txManager{sessions: sessions, maxRetries: maxRetries, log: log}
}

func isTransientError(err error) bool {
	var labeled mongodriver.LabeledError
	return errors.As(err, &labeled) && labeled.HasErrorLabel("TransientTransactionError")
}

func (t *txManager) WithTransaction(ctx context.Context, fn func(txCtx context.Context) (any, error)) (any, error) {
	if mongodriver.SessionFromContext(ctx) != nil {
		return fn(ctx)
	}

	var lastErr error
	for attempt := 1; attempt <= t.maxRetries; attempt++ {
		session, err := t.sessions.StartSession()
		if err != nil {
			return nil, fmt.Errorf("failed to start session: %w", err)
		}

		result, err := session.WithTransaction(ctx, fn)
		session.EndSession(ctx)
		if err == nil {
			return result, nil
		}

		lastErr = err
		if !isTransientError(err) {
			return nil, err
		}
		t.log.Warn("transient transaction error, retrying",
			zap.Error(err),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", t.maxRetries))
	}

	return nil, fmt.Errorf("transaction failed after %d attempts: %w", t.maxRetries, lastErr)
}
