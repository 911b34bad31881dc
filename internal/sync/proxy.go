package sync

import (
	"context"

	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// RemoteProxy is the engine's view of the remote peer. Implementations
// handle transport, credentials and the wire codec; the engine only
// sees decoded structures.
type RemoteProxy interface {
	// Login authenticates and establishes a session. It returns the
	// remote clock so the caller can estimate skew.
	Login(ctx context.Context, username, password string) (remoteTime float64, err error)

	// GetDecks lists the remote decks with their [modified, lastSync]
	// pairs.
	GetDecks(ctx context.Context) (map[string]wire.DeckStatus, error)

	// CreateDeck creates an empty remote deck.
	CreateDeck(ctx context.Context, name string) error

	// Summary fetches the remote change manifest since lastSync.
	Summary(ctx context.Context, lastSync float64) (*wire.Summary, error)

	// ApplyPayload sends our payload and returns the remote reply.
	ApplyPayload(ctx context.Context, payload *wire.Payload) (*wire.Payload, error)

	// FullUpload replaces the remote store with the given dump.
	FullUpload(ctx context.Context, dump *wire.FullDump) error

	// FullDownload fetches the complete remote store.
	FullDownload(ctx context.Context) (*wire.FullDump, error)
}
