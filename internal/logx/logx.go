package logx

import (
	"context"

	"pkt.systems/osiris/schema"
	"pkt.systems/pslog"
)

type contextKey int

const (
	clientKey contextKey = iota
	sessionKey
)

// Ctx returns the logger bound to the provided context.
func Ctx(ctx context.Context) pslog.Logger {
	return pslog.Ctx(ctx)
}

// WithClient annotates the logger with the client id if present.
func WithClient(ctx context.Context, clientID schema.ClientID) pslog.Logger {
	log := pslog.Ctx(ctx)
	if clientID != "" {
		if current, ok := ctx.Value(clientKey).(schema.ClientID); ok && current == clientID {
			return log
		}
		log = log.With("client", clientID)
	}
	return log
}

// WithClientSession annotates the logger with client and connection session ids.
func WithClientSession(ctx context.Context, clientID schema.ClientID, sessionID string) pslog.Logger {
	log := WithClient(ctx, clientID)
	if sessionID != "" {
		if current, ok := ctx.Value(sessionKey).(string); ok && current == sessionID {
			return log
		}
		log = log.With("session", sessionID)
	}
	return log
}

// WithUser annotates the logger with a signed-in username when available.
func WithUser(log pslog.Logger, username string) pslog.Logger {
	if username != "" {
		log = log.With("user", username)
	}
	return log
}

// WithRemote annotates the logger with the peer address when available.
func WithRemote(log pslog.Logger, remote string) pslog.Logger {
	if remote != "" {
		log = log.With("remote", remote)
	}
	return log
}

// ContextWithClient stores the client marker on the context for log de-duplication.
func ContextWithClient(ctx context.Context, clientID schema.ClientID) context.Context {
	if ctx == nil || clientID == "" {
		return ctx
	}
	return context.WithValue(ctx, clientKey, clientID)
}

// ContextWithSession stores the session marker on the context for log de-duplication.
func ContextWithSession(ctx context.Context, sessionID string) context.Context {
	if ctx == nil || sessionID == "" {
		return ctx
	}
	return context.WithValue(ctx, sessionKey, sessionID)
}

// ContextWithClientLogger attaches the logger and client marker to the context.
func ContextWithClientLogger(ctx context.Context, log pslog.Logger, clientID schema.ClientID) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithClient(ctx, clientID)
}

// ContextWithClientSessionLogger attaches the logger and client/session markers to the context.
func ContextWithClientSessionLogger(ctx context.Context, log pslog.Logger, clientID schema.ClientID, sessionID string) context.Context {
	ctx = pslog.ContextWithLogger(ctx, log)
	return ContextWithSession(ContextWithClient(ctx, clientID), sessionID)
}

// CopyContextFields copies client/session markers from src to dst.
func CopyContextFields(dst context.Context, src context.Context) context.Context {
	if src == nil {
		return dst
	}
	if client, ok := src.Value(clientKey).(schema.ClientID); ok && client != "" {
		dst = ContextWithClient(dst, client)
	}
	if session, ok := src.Value(sessionKey).(string); ok && session != "" {
		dst = ContextWithSession(dst, session)
	}
	return dst
}
