package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/mnemohq/mnemo/internal/config"
	"github.com/mnemohq/mnemo/internal/sched"
	"github.com/mnemohq/mnemo/internal/sync/wire"
)

// Stores is the store bundle the engine reads and writes. It is the
// same bundle the scheduler operates on; both sides of a sync round see
// one consistent set of stores.
type Stores = sched.Stores

// maxClockSkew is the largest tolerated difference between the local
// and remote clocks, in seconds. Beyond it the exchange is refused.
const maxClockSkew = 300

// skewMargin is subtracted from the effective watermark on top of the
// measured skew, covering network latency between the clock samples.
const skewMargin = 10

// Thresholds above which the diff protocol is abandoned for a full
// transfer.
const (
	maxSummaryEntries = 500
	maxHistoryRows    = 500
	maxStatsRows      = 100
)

// Engine drives a sync round against a remote peer. One round is one
// logical operation: rounds against the same store are serialized, and
// the watermark only advances after a round completes in full.
type Engine struct {
	mu    gosync.Mutex
	st    Stores
	sched *sched.Scheduler
	proxy RemoteProxy
	cfg   config.SyncConfig

	logger *slog.Logger
	now    func() float64
}

// NewEngine creates a sync engine over the given stores and remote
// proxy. If logger is nil, a default logger will be used.
func NewEngine(st Stores, scheduler *sched.Scheduler, proxy RemoteProxy, cfg config.SyncConfig, logger *slog.Logger) *Engine {
	if scheduler == nil {
		panic("scheduler cannot be nil")
	}
	if proxy == nil {
		panic("proxy cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		st:     st,
		sched:  scheduler,
		proxy:  proxy,
		cfg:    cfg,
		logger: logger.With(slog.String("component", "sync_engine")),
		now:    func() float64 { return float64(time.Now().UnixNano()) / 1e9 },
	}
}

// Sync runs one exchange against the remote peer: login, summary
// comparison, and either an incremental payload round trip or a full
// transfer. On any failure the local watermark is left unadvanced so
// the round can be retried safely. The returned status categorizes the
// outcome; it is StatusOK exactly when err is nil.
//
// The round runs under the scheduler's operation lock: answering and
// editing block until it finishes, so none of its store reads and
// writes interleave with a review against the same store.
func (e *Engine) Sync(ctx context.Context) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status := StatusOK
	err := e.sched.RunExclusive(func(ls sched.Locked) error {
		var runErr error
		status, runErr = e.run(ctx, ls)
		return runErr
	})
	return status, err
}

func (e *Engine) run(ctx context.Context, ls sched.Locked) (Status, error) {
	log := e.logger

	remoteTime, err := e.proxy.Login(ctx, e.cfg.Username, e.cfg.Password)
	if err != nil {
		return statusOf(err)
	}
	skew := e.now() - remoteTime
	if skew > maxClockSkew || skew < -maxClockSkew {
		return StatusClockUnsynced, errStatus(StatusClockUnsynced,
			fmt.Errorf("local clock differs from remote by %.0fs", skew))
	}

	remoteStatus, err := e.remoteDeckStatus(ctx)
	if err != nil {
		return statusOf(err)
	}

	deck := ls.Deck()
	lastSync := adjustedLastSync(deck.LastSync, remoteStatus.LastSync, skew)
	log.Info("starting sync round",
		slog.Float64("last_sync", deck.LastSync),
		slog.Float64("effective_last_sync", lastSync),
		slog.Float64("clock_skew", skew))

	localSum, err := BuildSummary(ctx, e.st, lastSync)
	if err != nil {
		return StatusError, errStatus(StatusError, err)
	}
	if err := ctx.Err(); err != nil {
		return StatusError, errStatus(StatusError, err)
	}
	remoteSum, err := e.proxy.Summary(ctx, lastSync)
	if err != nil {
		return statusOf(err)
	}

	full, err := e.NeedFullSync(ctx, lastSync, localSum, remoteSum)
	if err != nil {
		return StatusError, errStatus(StatusError, err)
	}
	if full {
		log.Info("falling back to full transfer")
		if err := e.fullSync(ctx, ls, remoteStatus.Modified); err != nil {
			return statusOf(err)
		}
	} else {
		if err := e.incrementalSync(ctx, ls, localSum, remoteSum, remoteStatus.Modified, lastSync); err != nil {
			return statusOf(err)
		}
	}

	if err := e.advanceWatermark(ctx, ls); err != nil {
		return StatusError, errStatus(StatusError, err)
	}
	log.Info("sync round complete", slog.Float64("last_sync", ls.Deck().LastSync))
	return StatusOK, nil
}

// NeedFullSync reports whether the diff protocol should be abandoned:
// a never-synced store, an oversized summary on either side, or too
// much history or stats volume since the watermark.
func (e *Engine) NeedFullSync(ctx context.Context, lastSync float64, local, remote *wire.Summary) (bool, error) {
	if lastSync <= 0 {
		return true, nil
	}
	if maxListLen(local) > maxSummaryEntries || maxListLen(remote) > maxSummaryEntries {
		return true, nil
	}
	n, err := e.st.Revlog.CountSince(ctx, lastSync)
	if err != nil {
		return false, fmt.Errorf("failed to count review history: %w", err)
	}
	if n > maxHistoryRows {
		return true, nil
	}
	days, err := e.st.Stats.CountDaysSince(ctx, statsDayFloor(lastSync))
	if err != nil {
		return false, fmt.Errorf("failed to count stats rows: %w", err)
	}
	return days > maxStatsRows, nil
}

// incrementalSync runs the diff protocol: build the payload from the
// summary diff, exchange it, and fold the reply into the local store.
func (e *Engine) incrementalSync(ctx context.Context, ls sched.Locked, localSum, remoteSum *wire.Summary, remoteModified, lastSync float64) error {
	deck := ls.Deck()
	diffs := DiffSummary(localSum, remoteSum)
	bundleDeck := deck.Modified > remoteModified

	payload, err := GenPayload(ctx, e.st, deck, diffs, bundleDeck, lastSync)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	reply, err := e.proxy.ApplyPayload(ctx, payload)
	if err != nil {
		return err
	}
	addedCards, err := ApplyPayloadReply(ctx, e.st, deck, reply)
	if err != nil {
		return err
	}
	if err := ls.UpdatePrioritiesFor(ctx, addedCards...); err != nil {
		return err
	}
	ls.ResetQueues()
	return nil
}

// fullSync transfers the whole store in one direction, chosen by
// whichever side's deck was modified more recently.
func (e *Engine) fullSync(ctx context.Context, ls sched.Locked, remoteModified float64) error {
	deck := ls.Deck()
	if deck.Modified > remoteModified {
		dump, err := BuildFullDump(ctx, e.st, deck)
		if err != nil {
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return e.proxy.FullUpload(ctx, dump)
	}

	dump, err := e.proxy.FullDownload(ctx)
	if err != nil {
		return err
	}
	if err := ApplyFullDump(ctx, e.st, deck, dump); err != nil {
		return err
	}
	ls.ResetQueues()
	return nil
}

// remoteDeckStatus looks up the configured deck on the remote peer,
// creating it when absent.
func (e *Engine) remoteDeckStatus(ctx context.Context) (wire.DeckStatus, error) {
	decks, err := e.proxy.GetDecks(ctx)
	if err != nil {
		return wire.DeckStatus{}, err
	}
	status, ok := decks[e.cfg.DeckName]
	if ok {
		return status, nil
	}
	e.logger.Info("remote deck missing, creating it", slog.String("deck", e.cfg.DeckName))
	if err := e.proxy.CreateDeck(ctx, e.cfg.DeckName); err != nil {
		return wire.DeckStatus{}, err
	}
	return wire.DeckStatus{}, nil
}

// advanceWatermark sets lastSync = max(now, modified+1) so the next
// round's cutoff lands strictly after everything reconciled in this
// one, and persists the deck row.
func (e *Engine) advanceWatermark(ctx context.Context, ls sched.Locked) error {
	deck := ls.Deck()
	watermark := e.now()
	if deck.Modified+1 > watermark {
		watermark = deck.Modified + 1
	}
	deck.SetLastSync(watermark)
	if err := e.st.Deck.Save(ctx, deck); err != nil {
		return fmt.Errorf("failed to persist sync watermark: %w", err)
	}
	return nil
}

// adjustedLastSync lowers the watermark to the older of the two sides'
// values minus the measured skew and a fixed latency margin, so clock
// drift cannot hide an edit from the diff.
func adjustedLastSync(local, remote, skew float64) float64 {
	t := local
	if remote < t {
		t = remote
	}
	if skew < 0 {
		skew = -skew
	}
	return t - skew - skewMargin
}

// statusOf extracts the categorized status from an error, defaulting to
// StatusError for anything uncategorized.
func statusOf(err error) (Status, error) {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Code, se
	}
	return StatusError, errStatus(StatusError, err)
}
