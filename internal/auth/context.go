package auth

import "context"

// ClientIDHeader identifies the calling client. It is trusted as given;
// authenticating it is out of scope for this service.
const ClientIDHeader = "client-id"

type clientIDKey struct{}

func ContextWithClientID(ctx context.Context, clientID string) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

func ClientIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(clientIDKey{}).(string)
	return id, ok && id != ""
}
