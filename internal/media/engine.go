package media

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	apierrors "github.com/alexjbarnes/media-sync/internal/errors"
	"github.com/alexjbarnes/media-sync/internal/state"
)

const (
	// maxUploadAttempts is the per-item upload attempt budget, including
	// the first try. A staging failure consumes an attempt the same as a
	// failed transfer.
	maxUploadAttempts = 3

	// retryBaseDelay scales the linear backoff between attempts: the wait
	// before attempt n+1 is retryBaseDelay * n.
	retryBaseDelay = time.Second

	// hashPhaseWeight is the share of overall progress assigned to hash
	// computation. The server check bumps progress to checkPhaseDone, and
	// uploads fill the remainder.
	hashPhaseWeight = 0.45
	checkPhaseDone  = 0.5
)

// batchHasher computes content hashes for candidate items.
type batchHasher interface {
	ComputeHashes(ctx context.Context, items []LocalItem, onHashed HashedFunc) (map[string]string, error)
}

// remoteAPI is the slice of the API client the engine calls directly.
type remoteAPI interface {
	Reconcile(ctx context.Context, token string, hashes map[string]string) (*ReconcileResponse, error)
	ListItems(ctx context.Context, token string) ([]RemoteItem, error)
	DeleteItem(ctx context.Context, token, remoteID string) error
}

// itemUploader transfers one item and returns its new remote id.
type itemUploader interface {
	UploadItem(ctx context.Context, token string, item LocalItem, hash string) (string, error)
}

// EngineConfig collects the engine's collaborators.
type EngineConfig struct {
	Hasher   batchHasher
	API      remoteAPI
	Uploader itemUploader
	Creds    CredentialSource
	Store    *state.Store
}

// Engine orchestrates sync runs: hash the candidate set, reconcile with
// the server, upload what is missing. One run at a time; a second caller
// of StartBatchSync blocks until the first run finishes.
type Engine struct {
	hasher   batchHasher
	api      remoteAPI
	uploader itemUploader
	creds    CredentialSource
	store    *state.Store
	logger   *slog.Logger

	feed  *statusFeed
	cache *listCache

	// session serializes runs.
	session sync.Mutex

	// cancelMu guards cancelRun so Cancel can fire from any goroutine
	// while a run is in flight.
	cancelMu  sync.Mutex
	cancelRun context.CancelFunc

	// sleep overrides the backoff wait in tests.
	sleep func(time.Duration)
}

// NewEngine wires an engine from its collaborators.
func NewEngine(cfg EngineConfig, logger *slog.Logger) *Engine {
	return &Engine{
		hasher:   cfg.Hasher,
		api:      cfg.API,
		uploader: cfg.Uploader,
		creds:    cfg.Creds,
		store:    cfg.Store,
		logger:   logger,
		feed:     newStatusFeed(),
		cache:    newListCache(),
		sleep:    time.Sleep,
	}
}

// Status returns the current engine status snapshot.
func (e *Engine) Status() Status {
	return e.feed.Current()
}

// WatchStatus subscribes to status updates. The channel always carries
// the latest status; call cancel to release the subscription.
func (e *Engine) WatchStatus() (<-chan Status, func()) {
	return e.feed.Subscribe()
}

// Cancel requests that the in-flight run stop at its next checkpoint.
// A no-op when no run is active. Cancellation is cooperative: the run
// finishes the operation it is in the middle of, preserves all partial
// progress, and ends in PhaseCancelled.
func (e *Engine) Cancel() {
	e.cancelMu.Lock()
	defer e.cancelMu.Unlock()

	if e.cancelRun != nil {
		e.cancelRun()
	}
}

// Acknowledge returns the engine from a terminal phase to PhaseIdle.
// A no-op in any non-terminal phase.
func (e *Engine) Acknowledge() {
	if e.feed.Current().Phase.Terminal() {
		e.feed.publish(Status{Phase: PhaseIdle})
	}
}

// IsSynced reports whether the identifier is currently believed synced,
// and its remote id when it is.
func (e *Engine) IsSynced(identifier string) (string, bool) {
	return e.store.SyncedRemoteID(identifier)
}

// SyncedCount returns the number of identifiers currently believed synced.
func (e *Engine) SyncedCount() int {
	return e.store.SyncedCount()
}

// StartBatchSync runs one full sync pass over the candidate set and
// returns its result. Blocks if a run is already in flight. When no
// bearer token is available the run is a successful no-op with an empty
// result; the caller may simply not be authenticated yet. A cancelled
// run returns a result with Cancelled set and a nil error; a run aborted
// by a hard failure (reconcile failure, auth rejection) returns the
// partial result alongside the error. When autoUpload is false the run
// ends after reconciliation and the result still lists NeedsUpload.
func (e *Engine) StartBatchSync(ctx context.Context, items []LocalItem, autoUpload bool) (*BatchSyncResult, error) {
	e.session.Lock()
	defer e.session.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	e.cancelMu.Lock()
	e.cancelRun = cancel
	e.cancelMu.Unlock()

	defer func() {
		e.cancelMu.Lock()
		e.cancelRun = nil
		e.cancelMu.Unlock()
	}()

	result := &BatchSyncResult{AlreadySynced: make(map[string]string)}

	token := e.creds.CurrentToken()
	if token == "" {
		e.logger.Info("no token available, sync skipped")
		return result, nil
	}

	if runCtx.Err() != nil {
		return e.finishCancelled(result), nil
	}

	e.feed.publish(Status{Phase: PhaseHashing})
	e.logger.Info("sync run started", slog.Int("candidates", len(items)))

	hashes, err := e.hashCandidates(runCtx, items)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return e.finishCancelled(result), nil
		}

		return result, e.fail(err)
	}

	if runCtx.Err() != nil {
		return e.finishCancelled(result), nil
	}

	// An empty hash set means there is nothing to reconcile; this is a
	// successful empty run, not an error.
	if len(hashes) == 0 {
		e.feed.publish(Status{Phase: PhaseCompleted, Fraction: 1})
		return result, nil
	}

	e.feed.publish(Status{Phase: PhaseChecking, Fraction: hashPhaseWeight})

	resp, err := e.api.Reconcile(runCtx, token, hashes)
	if err != nil {
		if runCtx.Err() != nil && errors.Is(err, context.Canceled) {
			return e.finishCancelled(result), nil
		}

		if errors.Is(err, apierrors.ErrAuthExpired) {
			e.creds.ForceLogout()
		}

		return result, e.fail(err)
	}

	e.recordReconciliation(resp, hashes, result)
	e.feed.publish(Status{Phase: PhaseChecking, Fraction: checkPhaseDone})

	if runCtx.Err() != nil {
		return e.finishCancelled(result), nil
	}

	if autoUpload {
		if err := e.uploadMissing(runCtx, token, items, hashes, result); err != nil {
			return result, e.fail(err)
		}
	} else if len(result.NeedsUpload) > 0 {
		e.logger.Info("auto-upload disabled, items left pending",
			slog.Int("pending", len(result.NeedsUpload)))
	}

	if runCtx.Err() != nil {
		return e.finishCancelled(result), nil
	}

	e.feed.publish(Status{Phase: PhaseCompleted, Fraction: 1})
	e.logger.Info("sync run completed",
		slog.Int("uploaded", result.UploadedCount),
		slog.Int("failed", result.FailedCount),
		slog.Int("already_synced", len(result.AlreadySynced)),
	)

	return result, nil
}

// hashCandidates resolves the hash of every candidate, serving from
// local state where the known hash is still current and computing the
// rest. A hash recorded on a prior SyncedRecord wins over a bare
// fingerprint when both exist. Each freshly computed hash is persisted
// as soon as it is available, so a later cancelled or failed run still
// benefits.
func (e *Engine) hashCandidates(ctx context.Context, items []LocalItem) (map[string]string, error) {
	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.Identifier
	}

	cached, err := e.store.GetFingerprints(ids)
	if err != nil {
		return nil, fmt.Errorf("loading fingerprint cache: %w", err)
	}

	synced, err := e.store.GetSynced(ids)
	if err != nil {
		return nil, fmt.Errorf("loading sync records: %w", err)
	}

	hashes := make(map[string]string, len(items))

	var toHash []LocalItem

	for _, item := range items {
		if sr, ok := synced[item.Identifier]; ok && sr.ContentHash != "" && sr.SyncedAt >= item.ModifiedAt {
			hashes[item.Identifier] = sr.ContentHash
			continue
		}

		if fr, ok := cached[item.Identifier]; ok && fr.HashComputedAt >= item.ModifiedAt {
			hashes[item.Identifier] = fr.ContentHash
			continue
		}

		toHash = append(toHash, item)
	}

	total := len(items)
	done := total - len(toHash)

	e.feed.publish(Status{
		Phase:    PhaseHashing,
		Fraction: hashFraction(done, total),
	})

	if len(toHash) == 0 {
		return hashes, nil
	}

	computed, err := e.hasher.ComputeHashes(ctx, toHash, func(identifier, hash string, _ float64) {
		done++

		if hash != "" {
			if err := e.store.UpsertFingerprints([]state.FingerprintRecord{{
				Identifier:     identifier,
				ContentHash:    hash,
				HashComputedAt: time.Now().UnixMilli(),
			}}); err != nil {
				e.logger.Warn("persisting fingerprint",
					slog.String("identifier", identifier),
					slog.String("error", err.Error()),
				)
			}
		}

		e.feed.publish(Status{
			Phase:    PhaseHashing,
			Fraction: hashFraction(done, total),
		})
	})

	for id, hash := range computed {
		hashes[id] = hash
	}

	if err != nil {
		return hashes, err
	}

	return hashes, nil
}

// hashFraction maps hashing completion onto the overall progress scale.
func hashFraction(done, total int) float64 {
	if total == 0 {
		return hashPhaseWeight
	}

	return hashPhaseWeight * float64(done) / float64(total)
}

// recordReconciliation applies the server's verdict to local state:
// confirmed items gain sync records, and candidates the server did not
// confirm lose theirs (the remote copy is gone; the fingerprint stays
// valid because the local bytes did not change).
func (e *Engine) recordReconciliation(resp *ReconcileResponse, hashes map[string]string, result *BatchSyncResult) {
	now := time.Now().UnixMilli()

	confirmed := make([]state.SyncedRecord, 0, len(resp.AlreadySynced))
	seenRemote := make(map[string]string, len(resp.AlreadySynced))

	for identifier, remoteID := range resp.AlreadySynced {
		if prev, dup := seenRemote[remoteID]; dup {
			e.logger.Warn("server mapped two identifiers to one remote id",
				slog.String("remote_id", remoteID),
				slog.String("identifier", identifier),
				slog.String("other", prev),
			)
		}

		seenRemote[remoteID] = identifier

		result.AlreadySynced[identifier] = remoteID
		confirmed = append(confirmed, state.SyncedRecord{
			Identifier:  identifier,
			RemoteID:    remoteID,
			ContentHash: hashes[identifier],
			SyncedAt:    now,
		})
	}

	if err := e.store.UpsertSynced(confirmed); err != nil {
		e.logger.Warn("recording confirmed items", slog.String("error", err.Error()))
	}

	result.NeedsUpload = append(result.NeedsUpload, resp.NeedsUpload...)

	ids := make([]string, 0, len(hashes))
	for id := range hashes {
		ids = append(ids, id)
	}

	previously, err := e.store.GetSynced(ids)
	if err != nil {
		e.logger.Warn("loading sync records", slog.String("error", err.Error()))
		return
	}

	var stale []string

	for id := range previously {
		if _, ok := resp.AlreadySynced[id]; !ok {
			stale = append(stale, id)
		}
	}

	if len(stale) == 0 {
		return
	}

	sort.Strings(stale)

	if err := e.store.DeleteSynced(stale); err != nil {
		e.logger.Warn("dropping stale sync records", slog.String("error", err.Error()))
		return
	}

	e.logger.Info("remote deletions detected", slog.Int("count", len(stale)))
}

// uploadMissing transfers every item the server asked for, one at a
// time, in server order. Per-item failures after the retry budget are
// counted and the run continues; an auth rejection aborts the run.
func (e *Engine) uploadMissing(ctx context.Context, token string, items []LocalItem, hashes map[string]string, result *BatchSyncResult) error {
	byID := make(map[string]LocalItem, len(items))
	for _, item := range items {
		byID[item.Identifier] = item
	}

	total := len(result.NeedsUpload)

	e.feed.publish(Status{
		Phase:    PhaseUploading,
		Fraction: checkPhaseDone,
		Upload:   UploadProgress{Total: total},
	})

	for i, identifier := range result.NeedsUpload {
		if ctx.Err() != nil {
			return nil
		}

		item, ok := byID[identifier]
		if !ok {
			// The server asked for an identifier we never offered.
			e.logger.Warn("server requested unknown identifier", slog.String("identifier", identifier))
			result.FailedCount++

			continue
		}

		remoteID, err := e.uploadWithRetry(ctx, token, item, hashes[identifier])

		switch {
		case err == nil:
			record := state.SyncedRecord{
				Identifier:  identifier,
				RemoteID:    remoteID,
				ContentHash: hashes[identifier],
				SyncedAt:    time.Now().UnixMilli(),
			}
			if err := e.store.UpsertSynced([]state.SyncedRecord{record}); err != nil {
				e.logger.Warn("recording upload", slog.String("error", err.Error()))
			}

			result.UploadedCount++

			e.cache.invalidate()

		case errors.Is(err, context.Canceled):
			return nil

		case errors.Is(err, apierrors.ErrAuthExpired):
			e.creds.ForceLogout()

			return err

		case errors.Is(err, apierrors.ErrItemVanished):
			// Vanished between enumeration and upload: not a failure, the
			// next run simply will not see it.
			e.logger.Info("item vanished before upload", slog.String("identifier", identifier))

		default:
			e.logger.Error("upload failed",
				slog.String("identifier", identifier),
				slog.String("error", err.Error()),
			)

			result.FailedCount++
		}

		e.feed.publish(Status{
			Phase:    PhaseUploading,
			Fraction: checkPhaseDone + (1-checkPhaseDone)*float64(i+1)/float64(total),
			Upload:   UploadProgress{Current: i + 1, Total: total},
		})
	}

	return nil
}

// uploadWithRetry attempts one item up to maxUploadAttempts times with a
// linearly growing wait between attempts. Auth rejections, vanished
// items, and cancellation are never retried.
func (e *Engine) uploadWithRetry(ctx context.Context, token string, item LocalItem, hash string) (string, error) {
	var lastErr error

	for attempt := 1; attempt <= maxUploadAttempts; attempt++ {
		if attempt > 1 {
			e.sleep(retryBaseDelay * time.Duration(attempt-1))

			if ctx.Err() != nil {
				return "", context.Canceled
			}
		}

		remoteID, err := e.uploader.UploadItem(ctx, token, item, hash)
		if err == nil {
			return remoteID, nil
		}

		if errors.Is(err, context.Canceled) ||
			errors.Is(err, apierrors.ErrAuthExpired) ||
			errors.Is(err, apierrors.ErrItemVanished) {
			return "", err
		}

		lastErr = err

		if attempt < maxUploadAttempts {
			e.logger.Warn("upload attempt failed, retrying",
				slog.String("identifier", item.Identifier),
				slog.Int("attempt", attempt),
				slog.String("error", err.Error()),
			)
		}
	}

	return "", fmt.Errorf("after %d attempts: %w", maxUploadAttempts, lastErr)
}

// ListRemote returns the remote store listing, served from a short-lived
// cache when fresh. Duplicate remote ids in the listing indicate a
// server-side bug and are logged.
func (e *Engine) ListRemote(ctx context.Context) ([]RemoteItem, error) {
	if items, ok := e.cache.get(); ok {
		return items, nil
	}

	token := e.creds.CurrentToken()
	if token == "" {
		return nil, apierrors.ErrNoToken
	}

	items, err := e.api.ListItems(ctx, token)
	if err != nil {
		if errors.Is(err, apierrors.ErrAuthExpired) {
			e.creds.ForceLogout()
		}

		return nil, err
	}

	seen := make(map[string]bool, len(items))

	for _, item := range items {
		if seen[item.ID] {
			e.logger.Warn("duplicate remote id in listing", slog.String("remote_id", item.ID))
		}

		seen[item.ID] = true
	}

	e.cache.set(items)

	return items, nil
}

// InvalidateRemoteCache drops the cached remote listing. Called when an
// external signal reports the remote store changed.
func (e *Engine) InvalidateRemoteCache() {
	e.cache.invalidate()
}

// DeleteRemote removes an item from the remote store and drops any local
// sync record pointing at it.
func (e *Engine) DeleteRemote(ctx context.Context, remoteID string) error {
	token := e.creds.CurrentToken()
	if token == "" {
		return apierrors.ErrNoToken
	}

	if err := e.api.DeleteItem(ctx, token, remoteID); err != nil {
		if errors.Is(err, apierrors.ErrAuthExpired) {
			e.creds.ForceLogout()
		}

		return err
	}

	e.cache.invalidate()

	synced, err := e.store.AllSynced()
	if err != nil {
		return fmt.Errorf("loading sync records: %w", err)
	}

	var stale []string

	for identifier, sr := range synced {
		if sr.RemoteID == remoteID {
			stale = append(stale, identifier)
		}
	}

	return e.store.DeleteSynced(stale)
}

// finishCancelled marks the result cancelled and moves to PhaseCancelled.
func (e *Engine) finishCancelled(result *BatchSyncResult) *BatchSyncResult {
	result.Cancelled = true
	e.feed.publish(Status{Phase: PhaseCancelled, Fraction: e.feed.Current().Fraction})
	e.logger.Info("sync run cancelled",
		slog.Int("uploaded", result.UploadedCount),
		slog.Int("already_synced", len(result.AlreadySynced)),
	)

	return result
}

// fail publishes PhaseError with the error message and passes it through.
func (e *Engine) fail(err error) error {
	e.feed.publish(Status{
		Phase:    PhaseError,
		Fraction: e.feed.Current().Fraction,
		Err:      err.Error(),
	})
	e.logger.Error("sync run failed", slog.String("error", err.Error()))

	return err
}
