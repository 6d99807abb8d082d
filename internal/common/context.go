package common

import (
	"context"
)

// Context keys for storing values in context
type contextKey string

const (
	ContextKeyRequestID contextKey = "request_id"
	ContextKeyWallet    contextKey = "wallet_address"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ContextKeyRequestID, requestID)
}

// RequestIDFromContext extracts the request ID from context
func RequestIDFromContext(ctx context.Context) string {
	if requestID, ok := ctx.Value(ContextKeyRequestID).(string); ok {
		return requestID
	}
	return ""
}

// WithWallet adds a wallet address to the context
func WithWallet(ctx context.Context, wallet string) context.Context {
	return context.WithValue(ctx, ContextKeyWallet, wallet)
}

// WalletFromContext extracts the wallet address from context
func WalletFromContext(ctx context.Context) string {
	if wallet, ok := ctx.Value(ContextKeyWallet).(string); ok {
		return wallet
	}
	return ""
}
