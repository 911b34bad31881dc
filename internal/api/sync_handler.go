// Package api implements the serving side of the sync protocol: the
// login handshake and the summary/payload/full-transfer endpoints the
// remote proxy client talks to. Requests are form encoded, responses
// are deflate JSON.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	gosync "sync"
	"time"

	"github.com/mnemohq/mnemo/internal/auth"
	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/platform/logger"
	"github.com/mnemohq/mnemo/internal/sched"
	"github.com/mnemohq/mnemo/internal/sync"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// SyncHandler serves the sync protocol for a single hosted deck backed
// by one store. Requests are serialized, and each one runs under the
// scheduler's operation lock, so protocol store access never
// interleaves with a review against the same store.
type SyncHandler struct {
	mu       gosync.Mutex
	st       sync.Stores
	sched    *sched.Scheduler
	tokens   auth.TokenService
	verifier auth.PasswordVerifier
	authCfg  config.AuthConfig
	deckName string
	logger   *slog.Logger
	now      func() float64

	// lastSync is the watermark of the summary call in flight, consumed
	// by the following applyPayload.
	lastSync float64
}

// NewSyncHandler creates the protocol handler. If logger is nil, a
// default logger will be used.
func NewSyncHandler(
	st sync.Stores,
	scheduler *sched.Scheduler,
	tokens auth.TokenService,
	verifier auth.PasswordVerifier,
	authCfg config.AuthConfig,
	deckName string,
	logger *slog.Logger,
) *SyncHandler {
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if tokens == nil {
		panic("token service cannot be nil")
	}
	if verifier == nil {
		panic("password verifier cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SyncHandler{
		st:       st,
		sched:    scheduler,
		tokens:   tokens,
		verifier: verifier,
		authCfg:  authCfg,
		deckName: deckName,
		logger:   logger.With(slog.String("component", "sync_handler")),
		now:      func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Login checks the credentials and issues a session token along with
// the server clock, which the client uses to estimate skew.
func (h *SyncHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "malformed form body", http.StatusBadRequest)
		return
	}
	username := r.PostFormValue("u")
	password := r.PostFormValue("p")

	log := logger.FromContextOrDefault(r.Context(), h.logger)
	if username != h.authCfg.Username ||
		h.verifier.Compare(h.authCfg.PasswordHash, password) != nil {
		log.Warn("rejected sync login", slog.String("username", username))
		respond(w, r, wire.LoginResponse{Status: wire.ServerStatusBadAuth})
		return
	}

	token, err := h.tokens.Generate(r.Context(), username)
	if err != nil {
		log.Error("failed to issue session token", slog.String("error", err.Error()))
		respond(w, r, wire.LoginResponse{Status: wire.ServerStatusError})
		return
	}
	respond(w, r, wire.LoginResponse{
		Status:    wire.ServerStatusOK,
		Timestamp: h.now(),
		Token:     token,
	})
}

// GetDecks lists the hosted deck with its [modified, lastSync] pair.
func (h *SyncHandler) GetDecks(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var status wire.DeckStatus
	_ = h.sched.RunExclusive(func(ls sched.Locked) error {
		deck := ls.Deck()
		status = wire.DeckStatus{Modified: deck.Modified, LastSync: deck.LastSync}
		return nil
	})
	respond(w, r, wire.DecksResponse{
		Status: wire.ServerStatusOK,
		Decks:  map[string]wire.DeckStatus{h.deckName: status},
	})
}

// CreateDeck acknowledges a deck creation request. The hosted deck row
// is created when the store is first opened, so there is nothing left
// to do; an unknown name is refused.
func (h *SyncHandler) CreateDeck(w http.ResponseWriter, r *http.Request) {
	if r.PostFormValue("name") != h.deckName {
		respondStatus(w, r, wire.ServerStatusError)
		return
	}
	respondStatus(w, r, wire.ServerStatusOK)
}

// Summary returns the server's change manifest since the watermark the
// client sends. The watermark is kept for the applyPayload call that
// follows it.
func (h *SyncHandler) Summary(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var lastSync float64
	if err := decodeFormField(r, "lastSync", &lastSync); err != nil {
		http.Error(w, "malformed lastSync field", http.StatusBadRequest)
		return
	}
	h.lastSync = lastSync

	var sum *wire.Summary
	err := h.sched.RunExclusive(func(ls sched.Locked) error {
		var err error
		sum, err = sync.BuildSummary(r.Context(), h.st, lastSync)
		return err
	})
	if err != nil {
		h.serverError(w, r, "failed to build summary", err)
		return
	}
	respond(w, r, sum)
}

// ApplyPayload folds the client's payload into the server store and
// answers with the rows the client asked for, bundling the deck when
// the server side is fresher.
func (h *SyncHandler) ApplyPayload(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var payload wire.Payload
	if err := decodeFormField(r, "payload", &payload); err != nil {
		http.Error(w, "malformed payload field", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	var reply *wire.Payload
	err := h.sched.RunExclusive(func(ls sched.Locked) error {
		deck := ls.Deck()

		addedCards, err := sync.ApplyPayloadReply(ctx, h.st, deck, &payload)
		if err != nil {
			return err
		}
		if err := ls.UpdatePrioritiesFor(ctx, addedCards...); err != nil {
			return fmt.Errorf("failed to recompute priorities: %w", err)
		}
		ls.ResetQueues()

		reply, err = sync.BuildReply(ctx, h.st, deck, &payload, h.lastSync)
		if err != nil {
			return fmt.Errorf("failed to build reply: %w", err)
		}
		return h.advanceWatermark(ctx, ls)
	})
	if err != nil {
		h.serverError(w, r, "failed to apply payload", err)
		return
	}
	respond(w, r, reply)
}

// FullUp replaces the server store with the uploaded dump.
func (h *SyncHandler) FullUp(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	var dump wire.FullDump
	if err := decodeFormField(r, "payload", &dump); err != nil {
		http.Error(w, "malformed payload field", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	err := h.sched.RunExclusive(func(ls sched.Locked) error {
		if err := sync.ApplyFullDump(ctx, h.st, ls.Deck(), &dump); err != nil {
			return err
		}
		ls.ResetQueues()
		return h.advanceWatermark(ctx, ls)
	})
	if err != nil {
		h.serverError(w, r, "failed to apply full upload", err)
		return
	}
	respondStatus(w, r, wire.ServerStatusOK)
}

// FullDown sends the complete server store.
func (h *SyncHandler) FullDown(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctx := r.Context()
	var dump *wire.FullDump
	err := h.sched.RunExclusive(func(ls sched.Locked) error {
		var err error
		dump, err = sync.BuildFullDump(ctx, h.st, ls.Deck())
		if err != nil {
			return err
		}
		return h.advanceWatermark(ctx, ls)
	})
	if err != nil {
		h.serverError(w, r, "failed to build full download", err)
		return
	}
	respond(w, r, dump)
}

// advanceWatermark mirrors the client side: lastSync = max(now,
// modified+1), persisted without bumping the modification clock.
func (h *SyncHandler) advanceWatermark(ctx context.Context, ls sched.Locked) error {
	deck := ls.Deck()
	watermark := h.now()
	if deck.Modified+1 > watermark {
		watermark = deck.Modified + 1
	}
	deck.SetLastSync(watermark)
	return h.st.Deck.Save(ctx, deck)
}

func (h *SyncHandler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	log.Error(msg, slog.String("error", err.Error()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

// decodeFormField reads a deflate+base64 form field into v. The base64
// sibling flag is required; plain fields are not part of this server's
// dialect.
func decodeFormField(r *http.Request, name string, v any) error {
	if err := r.ParseForm(); err != nil {
		return err
	}
	return wire.DecodeField(r.PostFormValue(name), v)
}
