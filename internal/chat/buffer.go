package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/chatdesk/internal/entity"
	"github.com/mbeoliero/chatdesk/pkg/errcode"
)

// Buffer holds the message list for the conversation that is on screen.
// At most one conversation is open at a time; switching discards the
// previous content entirely.
type Buffer struct {
	mu         sync.Mutex
	backend    Backend
	customerId string
	messages   []entity.Message
	seen       map[string]struct{}
	loading    bool
	marking    bool
}

// NewBuffer creates an empty buffer backed by the REST collaborator.
func NewBuffer(backend Backend) *Buffer {
	return &Buffer{
		backend: backend,
		seen:    make(map[string]struct{}),
	}
}

// Open switches the buffer to customerId and loads its history.
func (b *Buffer) Open(ctx context.Context, customerId string) error {
	b.mu.Lock()
	b.customerId = customerId
	b.messages = nil
	b.seen = make(map[string]struct{})
	b.marking = false
	b.mu.Unlock()

	return b.Load(ctx)
}

// Close discards the buffer; no conversation is open afterwards.
func (b *Buffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.customerId = ""
	b.messages = nil
	b.seen = make(map[string]struct{})
	b.marking = false
}

// Load fetches the full history for the open conversation and replaces
// the local list. Safe to call repeatedly; the last response wins.
func (b *Buffer) Load(ctx context.Context) error {
	b.mu.Lock()
	customerId := b.customerId
	if customerId == "" {
		b.mu.Unlock()
		return errcode.ErrConvNotOpen
	}
	b.loading = true
	b.mu.Unlock()

	messages, err := b.backend.LoadHistory(ctx, customerId)

	b.mu.Lock()
	defer b.mu.Unlock()
	b.loading = false

	if err != nil {
		log.CtxError(ctx, "history load failed: customer_id=%s, error=%v", customerId, err)
		return errcode.ErrLoadFailed.Wrap(err)
	}

	// The conversation may have been switched while the fetch was in
	// flight; a stale response must not land in the new buffer.
	if b.customerId != customerId {
		return nil
	}

	b.messages = messages
	b.seen = make(map[string]struct{}, len(messages))
	for _, m := range messages {
		b.seen[m.Id] = struct{}{}
	}
	return nil
}

// Send rejects blank text locally, sends the rest, and appends the
// server-canonical message on acknowledgment. There is no optimistic
// local echo, so a failed send leaves no phantom entry behind.
func (b *Buffer) Send(ctx context.Context, text string) (*entity.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errcode.ErrBlankMessage
	}

	b.mu.Lock()
	customerId := b.customerId
	b.mu.Unlock()

	if customerId == "" {
		return nil, errcode.ErrConvNotOpen
	}

	msg, err := b.backend.SendMessage(ctx, customerId, text)
	if err != nil {
		log.CtxWarn(ctx, "send failed: customer_id=%s, error=%v", customerId, err)
		return nil, errcode.ErrSendFailed.Wrap(err)
	}

	b.append(customerId, *msg)
	return msg, nil
}

// ReceiveLive appends a live message if it belongs to the open
// conversation. Messages for other conversations are the directory's
// business. Returns whether the message was accepted.
func (b *Buffer) ReceiveLive(msg entity.Message) bool {
	b.mu.Lock()
	customerId := b.customerId
	b.mu.Unlock()

	if customerId == "" || msg.SenderId != customerId {
		return false
	}

	b.append(customerId, msg)
	return true
}

// append adds msg unless its id was already seen. The send path and a
// broadcast echo of the same message can both deliver it.
func (b *Buffer) append(customerId string, msg entity.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.customerId != customerId {
		return
	}
	if _, dup := b.seen[msg.Id]; dup {
		return
	}

	b.seen[msg.Id] = struct{}{}
	b.messages = append(b.messages, msg)
}

// MarkAllRead issues one mark-read round-trip for the open conversation.
// No-op when every message is already read, or while a previous call is
// still in flight. The buffer does not rewrite per-message flags locally;
// the server interaction is the source of truth there.
func (b *Buffer) MarkAllRead(ctx context.Context) {
	b.mu.Lock()
	customerId := b.customerId
	if customerId == "" || b.marking || b.allReadLocked() {
		b.mu.Unlock()
		return
	}
	b.marking = true
	b.mu.Unlock()

	err := b.backend.MarkConversationRead(ctx, customerId)

	b.mu.Lock()
	b.marking = false
	b.mu.Unlock()

	if err != nil {
		log.CtxWarn(ctx, "mark all read failed: customer_id=%s, error=%v", customerId, errcode.ErrMarkReadFailed.Wrap(err))
	}
}

// allReadLocked must be called with the lock held.
func (b *Buffer) allReadLocked() bool {
	for i := range b.messages {
		if !b.messages[i].IsRead {
			return false
		}
	}
	return true
}

// CustomerId returns the open conversation's counterpart, or "" when no
// conversation is open.
func (b *Buffer) CustomerId() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.customerId
}

// Messages returns a copy of the buffer in order.
func (b *Buffer) Messages() []entity.Message {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]entity.Message, len(b.messages))
	copy(out, b.messages)
	return out
}

// Loading reports whether a history load is in flight.
func (b *Buffer) Loading() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loading
}
