package hub

import "context"

// Session is one live delivery target attached to a channel. Sessions are
// identified by ID, which must be stable and unique for the session's life.
//
// Write is called concurrently with other sessions' writes but never
// concurrently with itself for a single broadcast. The context carries the
// per-delivery deadline.
type Session interface {
	ID() string
	Write(ctx context.Context, payload []byte) error
	Close() error
}

// ClientIdentifier is implemented by sessions that know who is on the other
// end. Sessions without it send client messages as model.AnonymousClient.
type ClientIdentifier interface {
	ClientID() string
}
