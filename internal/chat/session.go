package chat

import (
	"context"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/chatdesk/internal/entity"
)

// Feed is the live-event surface the session consumes. Each Subscribe
// returns an unsubscribe handle. *channel.Channel satisfies it.
type Feed interface {
	SubscribeNewMessage(fn func(msg entity.Message)) func()
	SubscribeSidebarRead(fn func(customerId string)) func()
	SubscribeSidebarUpdate(fn func(update entity.ConversationSummary)) func()
	SubscribeReconnect(fn func()) func()
}

// Session is the composition root of the sync layer: it owns the
// directory, buffer and presence set for one logged-in identity and
// routes live events into them, keeping read state consistent between
// the sidebar and the open conversation.
//
// Read-state asymmetry is deliberate: the directory flag is flipped
// optimistically (a single boolean), the buffer's per-message flags are
// not rewritten locally and come back on the next load.
type Session struct {
	identity  string
	backend   Backend
	feed      Feed
	directory *Directory
	buffer    *Buffer
	presence  *Presence

	ctx    context.Context
	unsubs []func()
}

// NewSession wires the stores for identity. presence is shared with the
// channel, which writes broadcasts into it directly.
func NewSession(identity string, backend Backend, feed Feed, presence *Presence) *Session {
	return &Session{
		identity:  identity,
		backend:   backend,
		feed:      feed,
		directory: NewDirectory(backend),
		buffer:    NewBuffer(backend),
		presence:  presence,
	}
}

// Directory returns the sidebar directory.
func (s *Session) Directory() *Directory { return s.directory }

// Buffer returns the open-conversation buffer.
func (s *Session) Buffer() *Buffer { return s.buffer }

// Presence returns the online set.
func (s *Session) Presence() *Presence { return s.presence }

// Identity returns the authenticated user's identity.
func (s *Session) Identity() string { return s.identity }

// Start loads the directory and registers the live-event handlers.
// ctx is retained for REST calls made from event handlers.
func (s *Session) Start(ctx context.Context) error {
	s.ctx = ctx

	if err := s.directory.Load(ctx); err != nil {
		// Degraded start: live events still synthesize entries.
		log.CtxWarn(ctx, "session started with empty directory: %v", err)
	}

	s.unsubs = append(s.unsubs,
		s.feed.SubscribeNewMessage(s.onNewMessage),
		s.feed.SubscribeSidebarRead(s.directory.ApplyReadUpdate),
		s.feed.SubscribeSidebarUpdate(s.onSidebarUpdate),
		s.feed.SubscribeReconnect(s.onReconnect),
	)

	log.CtxInfo(ctx, "session started: identity=%s", s.identity)
	return nil
}

// Stop releases the event subscriptions. The channel itself is owned by
// the caller.
func (s *Session) Stop() {
	for _, unsub := range s.unsubs {
		unsub()
	}
	s.unsubs = nil
}

// OpenConversation loads customerId into the buffer and, if the sidebar
// shows unread messages, issues exactly one mark-read round-trip. The
// optimistic directory flip makes a second open a no-op.
func (s *Session) OpenConversation(ctx context.Context, customerId string) error {
	if err := s.buffer.Open(ctx, customerId); err != nil {
		return err
	}

	if entry, ok := s.directory.Get(customerId); ok && !entry.IsRead {
		s.directory.MarkConversationRead(ctx, customerId)
	}
	return nil
}

// CloseConversation discards the open buffer; no conversation is open
// afterwards.
func (s *Session) CloseConversation() {
	s.buffer.Close()
}

// SendMessage sends text to the open conversation and moves its sidebar
// entry to the front. Sending never touches the sender's own read flag.
func (s *Session) SendMessage(ctx context.Context, text string) (*entity.Message, error) {
	customerId := s.buffer.CustomerId()

	msg, err := s.buffer.Send(ctx, text)
	if err != nil {
		return nil, err
	}

	s.directory.ApplyActivity(entity.SummaryFromMessage(customerId, *msg), ReadKeep)
	return msg, nil
}

// onNewMessage routes a live message. For the open conversation it lands
// in the buffer and forces the sidebar entry read (the user is presumed
// to be looking at it); for any other conversation it clears that entry's
// read flag and moves it to the front.
func (s *Session) onNewMessage(msg entity.Message) {
	if msg.SenderId == s.identity {
		// Broadcast echo of an own send; the send path already applied it
		// and the buffer's id de-dup covers the rest.
		return
	}

	open := s.buffer.CustomerId()

	if open != "" && msg.SenderId == open {
		s.buffer.ReceiveLive(msg)
		s.directory.ApplyActivity(entity.SummaryFromMessage(msg.SenderId, msg), ReadSeen)
		s.buffer.MarkAllRead(s.handlerCtx())
		return
	}

	s.directory.ApplyActivity(entity.SummaryFromMessage(msg.SenderId, msg), ReadUnseen)
}

// onSidebarUpdate merges a summary pushed by the backend. An update for
// the conversation on screen can never flip it unread.
func (s *Session) onSidebarUpdate(update entity.ConversationSummary) {
	hint := ReadUnseen
	if update.IsRead {
		hint = ReadSeen
	}
	if update.CustomerId == s.buffer.CustomerId() {
		hint = ReadSeen
	}

	s.directory.ApplyActivity(update, hint)
}

// onReconnect re-loads whichever views are visible. Events missed during
// the disconnect window are unrecoverable, so a full load is the only
// sound recovery.
func (s *Session) onReconnect() {
	ctx := s.handlerCtx()

	if err := s.directory.Load(ctx); err != nil {
		log.CtxWarn(ctx, "directory resync failed: %v", err)
	}
	if s.buffer.CustomerId() != "" {
		if err := s.buffer.Load(ctx); err != nil {
			log.CtxWarn(ctx, "buffer resync failed: %v", err)
		}
	}
}

func (s *Session) handlerCtx() context.Context {
	if s.ctx != nil {
		return s.ctx
	}
	return context.Background()
}
