package channel

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/chatdesk/internal/config"
	"github.com/mbeoliero/chatdesk/internal/entity"
	"github.com/mbeoliero/chatdesk/pkg/errcode"
)

// PresenceStore receives presence broadcasts from the channel.
// Each broadcast is authoritative and replaces the whole set.
type PresenceStore interface {
	Replace(ids []string)
	Clear()
}

// Channel owns the single realtime connection for a logged-in identity.
// Its lifetime runs from a successful Connect to Disconnect; a dropped
// connection is retried a bounded number of times with a fixed delay,
// after which the channel stays down until the next explicit Connect.
type Channel struct {
	mu       sync.Mutex
	cfg      config.SocketConfig
	presence PresenceStore
	subs     *registry
	conn     *wsConn
	identity string
	gen      int
	closed   bool
}

// New creates a channel bound to a presence store.
func New(cfg config.SocketConfig, presence PresenceStore) *Channel {
	return &Channel{
		cfg:      cfg,
		presence: presence,
		subs:     newRegistry(),
	}
}

// Connect opens the realtime connection for identity. A live connection
// for the same identity is a no-op; anything else is torn down first so
// two sockets can never coexist for one session.
func (ch *Channel) Connect(ctx context.Context, identity string) error {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.conn != nil {
		if ch.identity == identity && !ch.closed {
			return nil
		}
		ch.conn.Close()
		ch.conn = nil
	}

	conn, err := ch.dial(identity)
	if err != nil {
		log.CtxError(ctx, "channel connect failed: identity=%s, error=%v", identity, err)
		return errcode.ErrConnFailed.Wrap(err)
	}

	ch.conn = conn
	ch.identity = identity
	ch.closed = false
	ch.gen++
	go ch.readLoop(conn, ch.gen)

	log.CtxInfo(ctx, "channel connected: identity=%s", identity)
	return nil
}

// Disconnect closes the connection and clears the presence set. Idempotent.
func (ch *Channel) Disconnect() {
	ch.mu.Lock()
	defer ch.mu.Unlock()

	if ch.closed && ch.conn == nil {
		return
	}

	ch.closed = true
	ch.gen++
	if ch.conn != nil {
		ch.conn.Close()
		ch.conn = nil
	}
	ch.presence.Clear()

	log.Debug("channel disconnected: identity=%s", ch.identity)
}

// IsConnected reports whether a live connection exists.
func (ch *Channel) IsConnected() bool {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.conn != nil && !ch.closed
}

func (ch *Channel) dial(identity string) (*wsConn, error) {
	u, err := url.Parse(ch.cfg.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set(QueryUserId, identity)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}

	return newWSConn(conn, ch.cfg.MaxMessageSize, ch.cfg.PongWait, ch.cfg.PingPeriod, ch.cfg.WriteWait), nil
}

// readLoop reads frames until the connection dies, then hands off to the
// reconnect loop. gen guards against a stale loop touching a newer
// connection's state.
func (ch *Channel) readLoop(conn *wsConn, gen int) {
	for {
		message, err := conn.ReadMessage()
		if err != nil {
			log.Debug("channel read error: %v", err)
			break
		}
		ch.dispatch(message)
	}

	conn.Close()
	ch.reconnect(gen)
}

// reconnect retries the connection a bounded number of times with a fixed
// delay. Explicit Connect/Disconnect supersedes it via gen.
func (ch *Channel) reconnect(gen int) {
	ch.mu.Lock()
	if ch.closed || ch.gen != gen {
		ch.mu.Unlock()
		return
	}
	identity := ch.identity
	ch.conn = nil
	ch.mu.Unlock()

	attempts := ch.cfg.ReconnectAttempts
	if attempts <= 0 {
		attempts = DefaultReconnectAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		time.Sleep(ch.cfg.ReconnectDelay)

		ch.mu.Lock()
		if ch.closed || ch.gen != gen {
			ch.mu.Unlock()
			return
		}
		conn, err := ch.dial(identity)
		if err != nil {
			ch.mu.Unlock()
			lastErr = err
			log.Warn("channel reconnect %d/%d failed: identity=%s, error=%v", attempt, attempts, identity, err)
			continue
		}
		ch.conn = conn
		ch.gen++
		gen = ch.gen
		ch.mu.Unlock()

		go ch.readLoop(conn, gen)
		log.Warn("channel reconnected: identity=%s, attempt=%d", identity, attempt)
		ch.subs.emitReconnected()
		return
	}

	// Out of attempts. Presence is now unknown; REST-driven flows keep
	// working without live updates until the next explicit Connect.
	log.Warn("channel reconnect exhausted: identity=%s, error=%v", identity, errcode.ErrRetryExhausted.Wrap(lastErr))
	ch.mu.Lock()
	if ch.gen == gen && !ch.closed {
		ch.presence.Clear()
	}
	ch.mu.Unlock()
}

// dispatch decodes one frame and fans it out. Malformed frames are logged
// and dropped, never propagated.
func (ch *Channel) dispatch(data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn("channel drop malformed frame: %v", errcode.ErrInvalidEvent.Wrap(err))
		return
	}

	switch env.Event {
	case EventOnlineUsers:
		var ids []string
		if err := json.Unmarshal(env.Data, &ids); err != nil {
			log.Warn("channel drop %s: %v", env.Event, errcode.ErrInvalidEvent.Wrap(err))
			return
		}
		ch.presence.Replace(ids)
		ch.subs.emitOnlineUsers(ids)

	case EventNewMessage:
		var msg entity.Message
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			log.Warn("channel drop %s: %v", env.Event, errcode.ErrInvalidEvent.Wrap(err))
			return
		}
		ch.subs.emitNewMessage(msg)

	case EventSidebarRead:
		var customerId string
		if err := json.Unmarshal(env.Data, &customerId); err != nil {
			log.Warn("channel drop %s: %v", env.Event, errcode.ErrInvalidEvent.Wrap(err))
			return
		}
		ch.subs.emitSidebarRead(customerId)

	case EventSidebarUpdate:
		var update entity.ConversationSummary
		if err := json.Unmarshal(env.Data, &update); err != nil {
			log.Warn("channel drop %s: %v", env.Event, errcode.ErrInvalidEvent.Wrap(err))
			return
		}
		ch.subs.emitSidebarUpdate(update)

	default:
		log.Debug("channel ignore unknown event: %s", env.Event)
	}
}
