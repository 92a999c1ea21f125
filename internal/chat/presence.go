package chat

import (
	"sort"
	"sync"
)

// Presence tracks which identities are currently online. It is driven
// entirely by the channel's presence broadcasts; there is no polling.
type Presence struct {
	mu     sync.RWMutex
	online map[string]struct{}
}

// NewPresence creates an empty presence set.
func NewPresence() *Presence {
	return &Presence{
		online: make(map[string]struct{}),
	}
}

// Replace swaps the online set wholesale. The broadcast is authoritative;
// prior state never leaks into the new set.
func (p *Presence) Replace(ids []string) {
	next := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}

	p.mu.Lock()
	p.online = next
	p.mu.Unlock()
}

// Clear empties the set. Used on disconnect, when presence becomes unknown.
func (p *Presence) Clear() {
	p.mu.Lock()
	p.online = make(map[string]struct{})
	p.mu.Unlock()
}

// IsOnline reports whether identity was in the last broadcast.
func (p *Presence) IsOnline(identity string) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	_, ok := p.online[identity]
	return ok
}

// Online returns a sorted snapshot of the online identities.
func (p *Presence) Online() []string {
	p.mu.RLock()
	ids := make([]string, 0, len(p.online))
	for id := range p.online {
		ids = append(ids, id)
	}
	p.mu.RUnlock()

	sort.Strings(ids)
	return ids
}

// Count returns the number of online identities.
func (p *Presence) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.online)
}
