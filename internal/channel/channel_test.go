package channel

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mbeoliero/chatdesk/internal/config"
	"github.com/mbeoliero/chatdesk/internal/entity"
)

type fakePresence struct {
	mu       sync.Mutex
	replaced [][]string
	cleared  int
}

func (f *fakePresence) Replace(ids []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replaced = append(f.replaced, ids)
}

func (f *fakePresence) Clear() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakePresence) replacedCalls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([][]string, len(f.replaced))
	copy(out, f.replaced)
	return out
}

func (f *fakePresence) clearCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cleared
}

func newTestChannel() (*Channel, *fakePresence) {
	presence := &fakePresence{}
	return New(config.SocketConfig{URL: "ws://localhost:8080/ws"}, presence), presence
}

func frame(t *testing.T, event string, data interface{}) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(Envelope{Event: event, Data: raw})
	require.NoError(t, err)
	return out
}

func TestDispatchOnlineUsers(t *testing.T) {
	ch, presence := newTestChannel()

	var got []string
	ch.SubscribeOnlineUsers(func(ids []string) { got = ids })

	ch.dispatch(frame(t, EventOnlineUsers, []string{"cu__1", "st__2"}))

	assert.Equal(t, []string{"cu__1", "st__2"}, got)
	require.Len(t, presence.replacedCalls(), 1)
	assert.Equal(t, []string{"cu__1", "st__2"}, presence.replacedCalls()[0])
}

func TestDispatchNewMessage(t *testing.T) {
	ch, _ := newTestChannel()

	var got entity.Message
	ch.SubscribeNewMessage(func(msg entity.Message) { got = msg })

	ch.dispatch(frame(t, EventNewMessage, entity.Message{
		Id: "m1", SenderId: "cu__1", Text: "hi", CreatedAt: 42,
	}))

	assert.Equal(t, "m1", got.Id)
	assert.Equal(t, "cu__1", got.SenderId)
	assert.Equal(t, int64(42), got.CreatedAt)
}

func TestDispatchSidebarRead(t *testing.T) {
	ch, _ := newTestChannel()

	var got string
	ch.SubscribeSidebarRead(func(customerId string) { got = customerId })

	ch.dispatch(frame(t, EventSidebarRead, "cu__3"))
	assert.Equal(t, "cu__3", got)
}

func TestDispatchSidebarUpdate(t *testing.T) {
	ch, _ := newTestChannel()

	var got entity.ConversationSummary
	ch.SubscribeSidebarUpdate(func(update entity.ConversationSummary) { got = update })

	ch.dispatch(frame(t, EventSidebarUpdate, entity.ConversationSummary{
		CustomerId: "cu__5", LastMessage: "yo", LastMessageAt: 7,
	}))

	assert.Equal(t, "cu__5", got.CustomerId)
	assert.Equal(t, "yo", got.LastMessage)
}

func TestDispatchDropsMalformedFrames(t *testing.T) {
	ch, presence := newTestChannel()

	called := false
	ch.SubscribeNewMessage(func(entity.Message) { called = true })

	ch.dispatch([]byte("not json"))
	ch.dispatch(frame(t, EventNewMessage, "not a message"))
	ch.dispatch(frame(t, EventOnlineUsers, 12))
	ch.dispatch(frame(t, "someUnknownEvent", "x"))

	assert.False(t, called)
	assert.Empty(t, presence.replacedCalls())
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	ch, _ := newTestChannel()

	count := 0
	unsub := ch.SubscribeNewMessage(func(entity.Message) { count++ })

	msg := frame(t, EventNewMessage, entity.Message{Id: "m1", SenderId: "cu__1"})
	ch.dispatch(msg)
	unsub()
	ch.dispatch(msg)

	assert.Equal(t, 1, count)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	ch, _ := newTestChannel()

	unsub := ch.SubscribeSidebarRead(func(string) {})
	unsub()
	unsub()
}

func TestDisconnectClearsPresence(t *testing.T) {
	ch, presence := newTestChannel()

	ch.Disconnect()
	assert.Equal(t, 1, presence.clearCount())
	assert.False(t, ch.IsConnected())

	// Idempotent: a second disconnect does nothing.
	ch.Disconnect()
	assert.Equal(t, 1, presence.clearCount())
}

// liveSocketConfig keeps the reconnect loop fast enough to exercise in a
// unit test while leaving the keepalive timers out of the way.
func liveSocketConfig(serverURL string) config.SocketConfig {
	return config.SocketConfig{
		URL:               "ws" + strings.TrimPrefix(serverURL, "http"),
		ReconnectAttempts: 5,
		ReconnectDelay:    10 * time.Millisecond,
		WriteWait:         time.Second,
		PongWait:          time.Second,
		PingPeriod:        750 * time.Millisecond,
		MaxMessageSize:    1024,
	}
}

func onlineUsersFrame(ids []string) []byte {
	raw, _ := json.Marshal(ids)
	out, _ := json.Marshal(Envelope{Event: EventOnlineUsers, Data: raw})
	return out
}

func waitStrings(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for presence frame")
		return nil
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for reconnect")
	}
}

// The server drops the first three connections right after announcing a
// distinct online set on each. The client must redial every time within
// its attempt budget, announce each reconnect, and feed every broadcast
// to the presence store as a wholesale replacement.
func TestConnectRedialsAfterDrops(t *testing.T) {
	upgrader := websocket.Upgrader{}
	hold := make(chan struct{})

	var mu sync.Mutex
	var dials []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials = append(dials, r.URL.Query().Get(QueryUserId))
		n := len(dials)
		mu.Unlock()

		conn.WriteMessage(websocket.TextMessage, onlineUsersFrame([]string{fmt.Sprintf("cu__%d", n)}))
		if n <= 3 {
			conn.Close()
			return
		}
		<-hold
		conn.Close()
	}))
	defer srv.Close()
	defer close(hold)

	presence := &fakePresence{}
	ch := New(liveSocketConfig(srv.URL), presence)

	frames := make(chan []string, 8)
	ch.SubscribeOnlineUsers(func(ids []string) { frames <- ids })
	reconnects := make(chan struct{}, 8)
	ch.SubscribeReconnect(func() { reconnects <- struct{}{} })

	require.NoError(t, ch.Connect(context.Background(), "st__1"))
	defer ch.Disconnect()

	for i := 1; i <= 4; i++ {
		assert.Equal(t, []string{fmt.Sprintf("cu__%d", i)}, waitStrings(t, frames))
	}
	for i := 0; i < 3; i++ {
		waitSignal(t, reconnects)
	}

	calls := presence.replacedCalls()
	require.Len(t, calls, 4)
	assert.Equal(t, []string{"cu__4"}, calls[3])

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, dials, 4)
	for _, userId := range dials {
		assert.Equal(t, "st__1", userId)
	}
}

// A second Connect for the identity already live must not open a second
// socket; a Connect for a different identity tears the old one down, and
// the superseded read loop must not trigger its own redial afterwards.
func TestConnectForcesSingleSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	hold := make(chan struct{})

	var mu sync.Mutex
	var dials []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		mu.Lock()
		dials = append(dials, r.URL.Query().Get(QueryUserId))
		mu.Unlock()
		<-hold
		conn.Close()
	}))
	defer srv.Close()
	defer close(hold)

	dialCount := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(dials)
	}

	ch := New(liveSocketConfig(srv.URL), &fakePresence{})

	require.NoError(t, ch.Connect(context.Background(), "st__1"))
	defer ch.Disconnect()
	require.Eventually(t, func() bool { return dialCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, ch.Connect(context.Background(), "st__1"))
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialCount())
	assert.True(t, ch.IsConnected())

	require.NoError(t, ch.Connect(context.Background(), "st__2"))
	require.Eventually(t, func() bool { return dialCount() == 2 }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	assert.Equal(t, "st__2", dials[1])
	mu.Unlock()

	// The torn-down connection's read loop is superseded; give it room
	// to misbehave and check it stayed quiet.
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, 2, dialCount())
	assert.True(t, ch.IsConnected())
}

// When every redial fails the loop gives up after its attempt budget and
// presence becomes unknown.
func TestReconnectExhaustionClearsPresence(t *testing.T) {
	upgrader := websocket.Upgrader{}

	var mu sync.Mutex
	dials := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		dials++
		n := dials
		mu.Unlock()

		if n > 1 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()

	cfg := liveSocketConfig(srv.URL)
	cfg.ReconnectAttempts = 3
	cfg.ReconnectDelay = 5 * time.Millisecond

	presence := &fakePresence{}
	ch := New(cfg, presence)

	require.NoError(t, ch.Connect(context.Background(), "st__1"))

	require.Eventually(t, func() bool { return presence.clearCount() == 1 }, 2*time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 4, dials)
}
