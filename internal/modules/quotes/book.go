package quotes

import (
	"sync"
	"time"
)

// Book keeps issued quotes addressable by id until they expire or are taken
type Book struct {
	mu     sync.Mutex
	quotes map[string]*Quote
	now    func() time.Time
}

// NewBook creates an empty book. now defaults to time.Now.
func NewBook(now func() time.Time) *Book {
	if now == nil {
		now = time.Now
	}
	return &Book{quotes: make(map[string]*Quote), now: now}
}

// Put stores q and prunes expired entries
func (b *Book) Put(q *Quote) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pruneLocked()
	b.quotes[q.ID] = q
}

// Get returns a stored quote. Expired quotes are still returned so that callers can report
// the expiry instead of "not found".
func (b *Book) Get(id string) (*Quote, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quotes[id]
	return q, ok
}

// Take removes and returns a stored quote
func (b *Book) Take(id string) (*Quote, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	q, ok := b.quotes[id]
	if ok {
		delete(b.quotes, id)
	}
	return q, ok
}

// Len returns the number of stored quotes
func (b *Book) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.quotes)
}

func (b *Book) pruneLocked() {
	now := b.now()
	for id, q := range b.quotes {
		if q.IsExpired(now) {
			delete(b.quotes, id)
		}
	}
}
