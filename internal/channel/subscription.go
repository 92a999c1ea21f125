package channel

import (
	"sync"

	"github.com/mbeoliero/chatdesk/internal/entity"
)

// registry holds typed event handlers. Subscribing returns an unsubscribe
// handle; the caller pairs them the way a view pairs mount/unmount.
type registry struct {
	mu            sync.RWMutex
	nextId        int
	onlineUsers   map[int]func([]string)
	newMessage    map[int]func(entity.Message)
	sidebarRead   map[int]func(string)
	sidebarUpdate map[int]func(entity.ConversationSummary)
	reconnected   map[int]func()
}

func newRegistry() *registry {
	return &registry{
		onlineUsers:   make(map[int]func([]string)),
		newMessage:    make(map[int]func(entity.Message)),
		sidebarRead:   make(map[int]func(string)),
		sidebarUpdate: make(map[int]func(entity.ConversationSummary)),
		reconnected:   make(map[int]func()),
	}
}

func (r *registry) nextKey() int {
	r.nextId++
	return r.nextId
}

// SubscribeOnlineUsers registers a handler for presence broadcasts.
func (ch *Channel) SubscribeOnlineUsers(fn func(ids []string)) func() {
	ch.subs.mu.Lock()
	defer ch.subs.mu.Unlock()
	key := ch.subs.nextKey()
	ch.subs.onlineUsers[key] = fn
	return func() {
		ch.subs.mu.Lock()
		defer ch.subs.mu.Unlock()
		delete(ch.subs.onlineUsers, key)
	}
}

// SubscribeNewMessage registers a handler for incoming messages.
func (ch *Channel) SubscribeNewMessage(fn func(msg entity.Message)) func() {
	ch.subs.mu.Lock()
	defer ch.subs.mu.Unlock()
	key := ch.subs.nextKey()
	ch.subs.newMessage[key] = fn
	return func() {
		ch.subs.mu.Lock()
		defer ch.subs.mu.Unlock()
		delete(ch.subs.newMessage, key)
	}
}

// SubscribeSidebarRead registers a handler for read-flag clears.
func (ch *Channel) SubscribeSidebarRead(fn func(customerId string)) func() {
	ch.subs.mu.Lock()
	defer ch.subs.mu.Unlock()
	key := ch.subs.nextKey()
	ch.subs.sidebarRead[key] = fn
	return func() {
		ch.subs.mu.Lock()
		defer ch.subs.mu.Unlock()
		delete(ch.subs.sidebarRead, key)
	}
}

// SubscribeSidebarUpdate registers a handler for directory merges.
func (ch *Channel) SubscribeSidebarUpdate(fn func(update entity.ConversationSummary)) func() {
	ch.subs.mu.Lock()
	defer ch.subs.mu.Unlock()
	key := ch.subs.nextKey()
	ch.subs.sidebarUpdate[key] = fn
	return func() {
		ch.subs.mu.Lock()
		defer ch.subs.mu.Unlock()
		delete(ch.subs.sidebarUpdate, key)
	}
}

// SubscribeReconnect registers a handler invoked after a successful
// auto-reconnect. Missed events during the gap are gone; subscribers
// should re-load whatever view they own.
func (ch *Channel) SubscribeReconnect(fn func()) func() {
	ch.subs.mu.Lock()
	defer ch.subs.mu.Unlock()
	key := ch.subs.nextKey()
	ch.subs.reconnected[key] = fn
	return func() {
		ch.subs.mu.Lock()
		defer ch.subs.mu.Unlock()
		delete(ch.subs.reconnected, key)
	}
}

func (r *registry) emitOnlineUsers(ids []string) {
	r.mu.RLock()
	handlers := make([]func([]string), 0, len(r.onlineUsers))
	for _, fn := range r.onlineUsers {
		handlers = append(handlers, fn)
	}
	r.mu.RUnlock()
	for _, fn := range handlers {
		fn(ids)
	}
}

func (r *registry) emitNewMessage(msg entity.Message) {
	r.mu.RLock()
	handlers := make([]func(entity.Message), 0, len(r.newMessage))
	for _, fn := range r.newMessage {
		handlers = append(handlers, fn)
	}
	r.mu.RUnlock()
	for _, fn := range handlers {
		fn(msg)
	}
}

func (r *registry) emitSidebarRead(customerId string) {
	r.mu.RLock()
	handlers := make([]func(string), 0, len(r.sidebarRead))
	for _, fn := range r.sidebarRead {
		handlers = append(handlers, fn)
	}
	r.mu.RUnlock()
	for _, fn := range handlers {
		fn(customerId)
	}
}

func (r *registry) emitSidebarUpdate(update entity.ConversationSummary) {
	r.mu.RLock()
	handlers := make([]func(entity.ConversationSummary), 0, len(r.sidebarUpdate))
	for _, fn := range r.sidebarUpdate {
		handlers = append(handlers, fn)
	}
	r.mu.RUnlock()
	for _, fn := range handlers {
		fn(update)
	}
}

func (r *registry) emitReconnected() {
	r.mu.RLock()
	handlers := make([]func(), 0, len(r.reconnected))
	for _, fn := range r.reconnected {
		handlers = append(handlers, fn)
	}
	r.mu.RUnlock()
	for _, fn := range handlers {
		fn()
	}
}
