package chat

import (
	"context"
	"sort"
	"sync"

	"github.com/mbeoliero/kit/log"

	"github.com/mbeoliero/chatdesk/internal/entity"
)

// ReadHint tells the directory merge what to do with the unread flag.
// The flag is monotone under stale updates: only genuinely new unseen
// activity may clear it.
type ReadHint int

const (
	// ReadKeep leaves the flag as it is (own outgoing messages).
	ReadKeep ReadHint = iota
	// ReadSeen forces the flag true (the conversation is on screen, or
	// the update explicitly carries read state).
	ReadSeen
	// ReadUnseen clears the flag: a new message the user has not seen.
	ReadUnseen
)

// Directory is the sidebar list of conversations, most recent first.
// It never shrinks: a counterpart the user has ever talked to stays in
// the list until a full Load replaces it wholesale.
type Directory struct {
	mu      sync.RWMutex
	backend Backend
	entries []entity.ConversationSummary
	loading bool
}

// NewDirectory creates an empty directory backed by the REST collaborator.
func NewDirectory(backend Backend) *Directory {
	return &Directory{backend: backend}
}

// Load fetches the full list and replaces local state entirely. Safe to
// call repeatedly; the last response wins.
func (d *Directory) Load(ctx context.Context) error {
	d.mu.Lock()
	d.loading = true
	d.mu.Unlock()

	entries, err := d.backend.LoadSidebar(ctx)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.loading = false

	if err != nil {
		log.CtxError(ctx, "directory load failed: %v", err)
		return err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].LastMessageAt > entries[j].LastMessageAt
	})
	d.entries = entries
	return nil
}

// ApplyActivity merges update into the directory and moves the entry to
// the front. An unknown conversation is synthesized rather than dropped.
// This is the single merge point for live events and local sends, so the
// two paths cannot diverge.
func (d *Directory) ApplyActivity(update entity.ConversationSummary, hint ReadHint) {
	d.mu.Lock()
	defer d.mu.Unlock()

	idx := d.indexOf(update.CustomerId)

	var entry entity.ConversationSummary
	if idx >= 0 {
		entry = d.entries[idx]
		entry.LastMessage = update.LastMessage
		entry.LastMessageAt = update.LastMessageAt
		// Presentation fields only advance; a synthesized update with
		// empty fields must not wipe what a full fetch provided.
		if update.DisplayName != "" {
			entry.DisplayName = update.DisplayName
		}
		if update.Email != "" {
			entry.Email = update.Email
		}
		if update.AvatarUrl != "" {
			entry.AvatarUrl = update.AvatarUrl
		}
		d.entries = append(d.entries[:idx], d.entries[idx+1:]...)
	} else {
		entry = update
		entry.IsRead = true
	}

	switch hint {
	case ReadSeen:
		entry.IsRead = true
	case ReadUnseen:
		entry.IsRead = false
	}

	d.entries = append([]entity.ConversationSummary{entry}, d.entries...)
}

// MarkConversationRead optimistically flips the local flag, then issues
// the REST mark-read call. The flag is not rolled back on failure; read
// state is best effort and the next full Load is authoritative.
func (d *Directory) MarkConversationRead(ctx context.Context, customerId string) {
	d.ApplyReadUpdate(customerId)

	if err := d.backend.MarkConversationRead(ctx, customerId); err != nil {
		log.CtxWarn(ctx, "mark read failed: customer_id=%s, error=%v", customerId, err)
	}
}

// ApplyReadUpdate clears the unread flag locally without reordering.
// Driven by the sidebarReadUpdate event.
func (d *Directory) ApplyReadUpdate(customerId string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if idx := d.indexOf(customerId); idx >= 0 {
		d.entries[idx].IsRead = true
	}
}

// Get returns the entry for customerId, if known.
func (d *Directory) Get(customerId string) (entity.ConversationSummary, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if idx := d.indexOf(customerId); idx >= 0 {
		return d.entries[idx], true
	}
	return entity.ConversationSummary{}, false
}

// Snapshot returns a copy of the entries in display order.
func (d *Directory) Snapshot() []entity.ConversationSummary {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make([]entity.ConversationSummary, len(d.entries))
	copy(out, d.entries)
	return out
}

// Loading reports whether a Load is in flight.
func (d *Directory) Loading() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.loading
}

// indexOf must be called with the lock held.
func (d *Directory) indexOf(customerId string) int {
	for i := range d.entries {
		if d.entries[i].CustomerId == customerId {
			return i
		}
	}
	return -1
}
