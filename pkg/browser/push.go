package browser

import "context"

// PushObserver receives decrypted push messages.
type PushObserver interface {
	OnMessageReceived(ctx context.Context, scope string, payload []byte) error
}

// PushFeature is the push messaging client.
type PushFeature interface {
	Initialize(ctx context.Context) error
	Register(observer PushObserver)
	OnMessage(ctx context.Context, scope string, payload []byte) error
}

// PushProcessor is the process-wide entry point the push transport calls.
type PushProcessor interface {
	Install(feature PushFeature)
	OnMessage(ctx context.Context, scope string, payload []byte) error
}

// AccountManager handles account-scoped push messages.
type AccountManager interface {
	HandlePushMessage(ctx context.Context, payload []byte) error
}
