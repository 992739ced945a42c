package auth

import (
	"context"
	"errors"
)

type ctxKey int

const ctxClientID ctxKey = iota

func WithClient(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, ctxClientID, clientID)
}

func ClientID(ctx context.Context) (string, error) {
	if s, ok := ctx.Value(ctxClientID).(string); ok && s != "" {
		return s, nil
	}
	return "", errors.New("client_id not in context")
}
