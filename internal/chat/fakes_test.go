package chat

import (
	"context"
	"fmt"
	"sync"

	"github.com/mbeoliero/chatdesk/internal/entity"
)

// fakeBackend records calls and serves canned data.
type fakeBackend struct {
	mu sync.Mutex

	sidebar    []entity.ConversationSummary
	sidebarErr error
	history    map[string][]entity.Message
	historyErr error
	sendErr    error

	sidebarLoads int
	historyLoads []string
	sends        []string
	markReads    []string
	markReadErr  error

	nextMsgId int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{history: make(map[string][]entity.Message)}
}

func (f *fakeBackend) LoadSidebar(ctx context.Context) ([]entity.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sidebarLoads++
	if f.sidebarErr != nil {
		return nil, f.sidebarErr
	}
	out := make([]entity.ConversationSummary, len(f.sidebar))
	copy(out, f.sidebar)
	return out, nil
}

func (f *fakeBackend) LoadHistory(ctx context.Context, customerId string) ([]entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.historyLoads = append(f.historyLoads, customerId)
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	msgs := f.history[customerId]
	out := make([]entity.Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (f *fakeBackend) SendMessage(ctx context.Context, customerId, text string) (*entity.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sends = append(f.sends, customerId+":"+text)
	f.nextMsgId++
	return &entity.Message{
		Id:        fmt.Sprintf("m%d", f.nextMsgId),
		SenderId:  "st__1",
		Text:      text,
		IsRead:    false,
		CreatedAt: int64(1000 + f.nextMsgId),
	}, nil
}

func (f *fakeBackend) MarkConversationRead(ctx context.Context, customerId string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReads = append(f.markReads, customerId)
	return f.markReadErr
}

func (f *fakeBackend) markReadCount(customerId string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range f.markReads {
		if id == customerId {
			n++
		}
	}
	return n
}

// fakeFeed hands events straight to the registered handlers, the way the
// channel's read loop does.
type fakeFeed struct {
	newMessage    []func(entity.Message)
	sidebarRead   []func(string)
	sidebarUpdate []func(entity.ConversationSummary)
	reconnected   []func()
}

func (f *fakeFeed) SubscribeNewMessage(fn func(entity.Message)) func() {
	f.newMessage = append(f.newMessage, fn)
	return func() {}
}

func (f *fakeFeed) SubscribeSidebarRead(fn func(string)) func() {
	f.sidebarRead = append(f.sidebarRead, fn)
	return func() {}
}

func (f *fakeFeed) SubscribeSidebarUpdate(fn func(entity.ConversationSummary)) func() {
	f.sidebarUpdate = append(f.sidebarUpdate, fn)
	return func() {}
}

func (f *fakeFeed) SubscribeReconnect(fn func()) func() {
	f.reconnected = append(f.reconnected, fn)
	return func() {}
}

func (f *fakeFeed) pushMessage(msg entity.Message) {
	for _, fn := range f.newMessage {
		fn(msg)
	}
}

func (f *fakeFeed) pushSidebarRead(customerId string) {
	for _, fn := range f.sidebarRead {
		fn(customerId)
	}
}

func (f *fakeFeed) pushSidebarUpdate(update entity.ConversationSummary) {
	for _, fn := range f.sidebarUpdate {
		fn(update)
	}
}

func (f *fakeFeed) pushReconnect() {
	for _, fn := range f.reconnected {
		fn()
	}
}
