package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/nodesight/nodesight/internal/auth"
	"github.com/nodesight/nodesight/internal/event"
	"github.com/nodesight/nodesight/internal/view"
	"github.com/nodesight/nodesight/pkg/models"
)

// Authenticator resolves the request's session cookie to an active session.
type Authenticator interface {
	Authenticate(r *http.Request) (*auth.Session, bool)
}

// Handler serves the dashboard stream endpoint. Each accepted connection
// gets its own view session wired to a per-client sink.
type Handler struct {
	hub        *Hub
	authn      Authenticator
	store      *view.EntityStore
	thresholds view.ThresholdSource
	history    view.HistoryFetcher
	reference  func() *models.ReferencePoint
	logger     *zap.Logger
}

// NewHandler creates the WebSocket handler and subscribes to bus events.
func NewHandler(authn Authenticator, store *view.EntityStore, thresholds view.ThresholdSource, history view.HistoryFetcher, reference func() *models.ReferencePoint, bus *event.Bus, logger *zap.Logger) *Handler {
	h := &Handler{
		hub:        NewHub(logger),
		authn:      authn,
		store:      store,
		thresholds: thresholds,
		history:    history,
		reference:  reference,
		logger:     logger,
	}
	h.subscribeToEvents(bus)
	return h
}

// Hub exposes the connection hub, mainly for tests and metrics.
func (h *Handler) Hub() *Hub {
	return h.hub
}

// RegisterRoutes registers the WebSocket route on the server mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws/dashboard", h.handleDashboardStream)
}

// handleDashboardStream authenticates the session cookie, upgrades the
// connection, and runs the client's command loop.
func (h *Handler) handleDashboardStream(w http.ResponseWriter, r *http.Request) {
	sess, ok := h.authn.Authenticate(r)
	if !ok {
		http.Error(w, "valid session required", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Error("websocket accept failed", zap.Error(err))
		return
	}

	client := &Client{
		conn:     conn,
		username: sess.User.Username,
		isAdmin:  sess.User.IsAdmin(),
		send:     make(chan Message, 256),
		logger:   h.logger,
	}
	client.sink = newClientSink(client)
	client.session = view.NewViewSession(
		h.store, h.thresholds,
		client.sink, client.sink, client.sink,
		h.history, client.sink,
	)
	if h.reference != nil {
		client.session.SetReferencePoint(h.reference())
	}

	h.hub.Register(client)

	ctx := r.Context()
	done := make(chan struct{})
	go func() {
		client.writePump(ctx)
		close(done)
	}()

	// First full render so the client starts from the current snapshot.
	client.session.Render()

	h.readPump(ctx, client)

	h.hub.Unregister(client)
	conn.Close(websocket.StatusNormalClosure, "")
	<-done
}

// readPump reads client commands until disconnect.
func (h *Handler) readPump(ctx context.Context, c *Client) {
	for {
		var cmd Command
		if err := wsjson.Read(ctx, c.conn, &cmd); err != nil {
			return
		}
		h.dispatch(ctx, c, cmd)
	}
}

// dispatch applies one client command to the client's view session.
func (h *Handler) dispatch(ctx context.Context, c *Client, cmd Command) {
	switch cmd.Type {
	case CommandSetFilters:
		if cmd.Filters != nil {
			c.session.SetFilters(*cmd.Filters)
		}
	case CommandSetPage:
		c.session.SetPage(cmd.Page)
	case CommandSetDensity:
		c.session.SetDensity(cmd.PageSize)
	case CommandOpenDetail:
		h.reportErr(c, c.session.OpenDetail(ctx, cmd.ID, cmd.Metric))
	case CommandSetDetailMetric:
		h.reportErr(c, c.session.SetDetailMetric(ctx, cmd.Metric))
	case CommandSetDetailRange:
		h.reportErr(c, c.session.SetDetailRange(ctx, cmd.Minutes))
	case CommandCloseDetail:
		c.session.CloseDetail()
	case CommandPlaceCandidate:
		// Only administrators get the add-node flow.
		if c.isAdmin && cmd.Position != nil {
			c.session.PlaceCandidate(*cmd.Position)
		}
	case CommandClearCandidate:
		c.session.ClearCandidate()
	case CommandPopupOpened:
		c.sink.setPopupOpen(cmd.ID, true)
	case CommandPopupClosed:
		c.sink.setPopupOpen(cmd.ID, false)
	default:
		h.logger.Debug("unknown client command", zap.String("type", string(cmd.Type)))
	}
}

func (h *Handler) reportErr(c *Client, err error) {
	if err == nil {
		return
	}
	c.enqueue(Message{
		Type:      MessageError,
		Timestamp: time.Now(),
		Data:      map[string]string{"message": err.Error()},
	})
}

// subscribeToEvents fans poll-loop events out to connected clients.
func (h *Handler) subscribeToEvents(bus *event.Bus) {
	if bus == nil {
		return
	}

	bus.Subscribe(event.TopicSnapshotReplaced, func(_ context.Context, _ event.Event) {
		h.hub.ForEachSession(func(s *view.ViewSession) {
			s.OnSnapshot()
		})
	})

	bus.Subscribe(event.TopicAlertsUpdated, func(_ context.Context, e event.Event) {
		h.hub.Broadcast(Message{
			Type:      MessageAlerts,
			Timestamp: e.Time,
			Data:      e.Payload,
		})
	})
}
