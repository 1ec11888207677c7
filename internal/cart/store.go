package cart

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/notify"
)

// Sink receives a copy of the cart after every local mutation. Implementations
// must not block: the store calls them inline after releasing its lock.
type Sink interface {
	Push(lines []domain.CartLine)
	Delete()
}

// Store is the only writer of the shopper's cart. Every mutation is applied
// locally first and then handed to the sink.
type Store struct {
	mu       sync.RWMutex
	lines    []domain.CartLine
	sink     Sink
	notifier notify.Notifier

	drawerOpen atomic.Bool
}

func NewStore(sink Sink, notifier notify.Notifier) *Store {
	return &Store{
		sink:     sink,
		notifier: notifier,
	}
}

// Add increments the line for p by quantity, or appends a new line seeded
// from the product. A quantity below one is treated as one.
func (s *Store) Add(p domain.Product, quantity int) {
	if quantity < 1 {
		quantity = 1
	}

	s.mu.Lock()
	idx := s.indexOf(p.ID)
	if idx >= 0 {
		s.lines[idx].Quantity += quantity
	} else {
		s.lines = append(s.lines, domain.CartLine{
			ProductID:      p.ID,
			Name:           p.Name,
			UnitPriceCents: p.PriceCents,
			Quantity:       quantity,
			Description:    p.Description,
			Glyph:          p.Glyph,
		})
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	s.sink.Push(snapshot)
	s.notifier.Success(fmt.Sprintf("%s added to cart", p.Name), domain.FormatCents(p.PriceCents))
}

func (s *Store) AddOne(p domain.Product) {
	s.Add(p, 1)
}

// Remove deletes the line for productID. The write-through happens even when
// nothing was removed.
func (s *Store) Remove(productID string) {
	s.mu.Lock()
	if idx := s.indexOf(productID); idx >= 0 {
		s.lines = append(s.lines[:idx], s.lines[idx+1:]...)
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	s.sink.Push(snapshot)
}

// SetQuantity overwrites the quantity of an existing line; quantity <= 0
// removes it.
func (s *Store) SetQuantity(productID string, quantity int) {
	if quantity <= 0 {
		s.Remove(productID)
		return
	}

	s.mu.Lock()
	if idx := s.indexOf(productID); idx >= 0 {
		s.lines[idx].Quantity = quantity
	}
	snapshot := s.snapshot()
	s.mu.Unlock()

	s.sink.Push(snapshot)
}

func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.mu.Unlock()

	s.sink.Delete()
}

// Replace swaps the whole cart for lines without writing through. It is the
// load path of the reconciler; lines that violate the quantity invariant are
// dropped and duplicate products are merged.
func (s *Store) Replace(lines []domain.CartLine) {
	next := normalize(lines)

	s.mu.Lock()
	s.lines = next
	s.mu.Unlock()
}

// Merge folds a saved cart into the current one without writing through and
// returns the result. Products already in the cart keep their local line;
// saved lines come first, followed by lines only the local cart has.
func (s *Store) Merge(saved []domain.CartLine) []domain.CartLine {
	restored := normalize(saved)

	s.mu.Lock()
	defer s.mu.Unlock()

	local := make(map[string]int, len(s.lines))
	for i, l := range s.lines {
		local[l.ProductID] = i
	}
	next := make([]domain.CartLine, 0, len(restored)+len(s.lines))
	taken := make(map[string]bool, len(restored))
	for _, l := range restored {
		if i, ok := local[l.ProductID]; ok {
			l = s.lines[i]
		}
		taken[l.ProductID] = true
		next = append(next, l)
	}
	for _, l := range s.lines {
		if !taken[l.ProductID] {
			next = append(next, l)
		}
	}
	s.lines = next
	return s.snapshot()
}

func (s *Store) Lines() []domain.CartLine {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot()
}

func (s *Store) IsEmpty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.lines) == 0
}

func (s *Store) ItemCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.ItemCount(s.lines)
}

func (s *Store) SubtotalCents() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.SubtotalCents(s.lines)
}

func (s *Store) Open()        { s.drawerOpen.Store(true) }
func (s *Store) Close()       { s.drawerOpen.Store(false) }
func (s *Store) IsOpen() bool { return s.drawerOpen.Load() }

// caller holds s.mu
func (s *Store) indexOf(productID string) int {
	for i := range s.lines {
		if s.lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// caller holds s.mu
func (s *Store) snapshot() []domain.CartLine {
	return append([]domain.CartLine{}, s.lines...)
}

func normalize(lines []domain.CartLine) []domain.CartLine {
	out := make([]domain.CartLine, 0, len(lines))
	seen := make(map[string]int, len(lines))
	for _, l := range lines {
		if l.Quantity < 1 {
			continue
		}
		if i, ok := seen[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		seen[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}
