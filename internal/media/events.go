package media

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/alexjbarnes/media-sync/internal/state"
	"github.com/coder/websocket"
	"github.com/tidwall/gjson"
)

const (
	eventsReconnectMin = 5 * time.Second
	eventsReconnectMax = 5 * time.Minute

	// eventsJitterDivisor controls the random jitter added to reconnect
	// backoff: jitter is uniform in [0, backoff/eventsJitterDivisor).
	eventsJitterDivisor = 2

	// eventsBackoffMultiplier is the exponential growth factor applied
	// to the reconnect backoff after each consecutive failure.
	eventsBackoffMultiplier = 2

	// eventsReadLimit bounds a single event frame. Events are small JSON
	// notifications.
	eventsReadLimit = 64 * 1024
)

// remoteEventSink receives remote-store change notifications. The engine
// satisfies this interface.
type remoteEventSink interface {
	InvalidateRemoteCache()
}

// EventListener maintains a WebSocket subscription to the server's event
// feed so the client learns about remote-store changes made by other
// devices without polling. Purely an optimization: the reconciliation
// pass remains the source of truth when the feed is down.
type EventListener struct {
	baseURL string
	creds   CredentialSource
	store   *state.Store
	sink    remoteEventSink
	trigger chan<- struct{}
	logger  *slog.Logger

	// dial overrides the websocket dial in tests.
	dial func(ctx context.Context, url string, opts *websocket.DialOptions) (*websocket.Conn, error)
}

// NewEventListener creates a listener against the server at baseURL.
// store may be nil when sync-record pruning is not wanted; trigger may
// be nil when events should not schedule sync runs.
func NewEventListener(baseURL string, creds CredentialSource, store *state.Store, sink remoteEventSink, trigger chan<- struct{}, logger *slog.Logger) *EventListener {
	return &EventListener{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		creds:   creds,
		store:   store,
		sink:    sink,
		trigger: trigger,
		logger:  logger,
		dial: func(ctx context.Context, url string, opts *websocket.DialOptions) (*websocket.Conn, error) {
			conn, _, err := websocket.Dial(ctx, url, opts) //nolint:bodyclose // websocket.Dial closes the response body internally
			return conn, err
		},
	}
}

// Run connects to the event feed and processes events until the context
// is done, reconnecting with capped exponential backoff after failures.
func (l *EventListener) Run(ctx context.Context) error {
	backoff := eventsReconnectMin

	for {
		err := l.listenOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		l.logger.Warn("event feed disconnected, reconnecting",
			slog.String("error", err.Error()),
			slog.Duration("backoff", backoff),
		)

		jitter := time.Duration(rand.Int64N(int64(backoff) / eventsJitterDivisor)) //nolint:gosec // G404: math/rand is fine for reconnect jitter, no security impact

		timer := time.NewTimer(backoff + jitter)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		backoff = min(backoff*eventsBackoffMultiplier, eventsReconnectMax)
	}
}

// listenOnce dials the feed and reads events until the connection drops.
func (l *EventListener) listenOnce(ctx context.Context) error {
	token := l.creds.CurrentToken()
	if token == "" {
		return fmt.Errorf("no token for event feed")
	}

	url := websocketURL(l.baseURL) + "/v1/media/events"

	conn, err := l.dial(ctx, url, &websocket.DialOptions{
		HTTPHeader: http.Header{
			"Authorization": []string{"Bearer " + token},
		},
	})
	if err != nil {
		return fmt.Errorf("dialing event feed: %w", err)
	}

	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(eventsReadLimit)

	l.logger.Info("event feed connected")

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return fmt.Errorf("reading event: %w", err)
		}

		l.handleEvent(data)
	}
}

// handleEvent dispatches one event frame by its op field. Unknown ops
// still invalidate the listing cache; the store changed in some way we
// do not model.
func (l *EventListener) handleEvent(data []byte) {
	op := gjson.GetBytes(data, "op").Str

	switch op {
	case "removed":
		remoteID := gjson.GetBytes(data, "id").Str
		if remoteID == "" {
			l.logger.Warn("removed event without id")
			return
		}

		l.logger.Info("remote item removed", slog.String("remote_id", remoteID))
		l.sink.InvalidateRemoteCache()
		l.pruneSyncRecords(remoteID)
		l.requestSync()

	case "added", "changed":
		l.sink.InvalidateRemoteCache()

	case "":
		l.logger.Warn("event without op field")

	default:
		l.logger.Debug("unknown event op", slog.String("op", op))
		l.sink.InvalidateRemoteCache()
	}
}

// pruneSyncRecords drops local sync records pointing at a removed remote
// id, so the next reconciliation offers the item for upload again.
func (l *EventListener) pruneSyncRecords(remoteID string) {
	if l.store == nil {
		return
	}

	synced, err := l.store.AllSynced()
	if err != nil {
		l.logger.Warn("loading sync records", slog.String("error", err.Error()))
		return
	}

	var stale []string

	for identifier, sr := range synced {
		if sr.RemoteID == remoteID {
			stale = append(stale, identifier)
		}
	}

	if len(stale) == 0 {
		return
	}

	if err := l.store.DeleteSynced(stale); err != nil {
		l.logger.Warn("dropping sync records", slog.String("error", err.Error()))
	}
}

// requestSync nudges the run trigger so the next reconciliation pass
// starts promptly instead of waiting for the periodic tick. Non-blocking;
// a trigger already pending covers this event too.
func (l *EventListener) requestSync() {
	if l.trigger == nil {
		return
	}

	select {
	case l.trigger <- struct{}{}:
	default:
	}
}

// websocketURL converts an http(s) base URL to its ws(s) equivalent.
func websocketURL(base string) string {
	switch {
	case strings.HasPrefix(base, "https://"):
		return "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		return "ws://" + strings.TrimPrefix(base, "http://")
	default:
		return base
	}
}
