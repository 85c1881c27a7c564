package repo

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	domain "github.com/7amooo12/SamaStylestore/internal/entity"
	"github.com/7amooo12/SamaStylestore/internal/usecase"
)

// MemoryCartStore keeps carts in process. Each session is its own partition
// with its own lock; the id index has a separate lock and is only touched
// while the owning partition is held.
type MemoryCartStore struct {
	seq atomic.Int64

	mu       sync.Mutex // guards sessions
	sessions map[string]*memSession

	idxMu sync.RWMutex // guards byID
	byID  map[int64]string
}

type memSession struct {
	mu        sync.RWMutex
	order     []int64 // line ids in insertion order
	lines     map[int64]*domain.LineItem
	byProduct map[int64]int64
}

func NewMemoryCartStore() *MemoryCartStore {
	return &MemoryCartStore{
		sessions: make(map[string]*memSession),
		byID:     make(map[int64]string),
	}
}

func (s *MemoryCartStore) partition(sessionID string, create bool) *memSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.sessions[sessionID]
	if !ok && create {
		p = &memSession{
			lines:     make(map[int64]*domain.LineItem),
			byProduct: make(map[int64]int64),
		}
		s.sessions[sessionID] = p
	}
	return p
}

func (s *MemoryCartStore) owner(id int64) (string, bool) {
	s.idxMu.RLock()
	defer s.idxMu.RUnlock()
	sid, ok := s.byID[id]
	return sid, ok
}

func (s *MemoryCartStore) ListLineItems(_ context.Context, sessionID string) ([]domain.LineItem, error) {
	p := s.partition(sessionID, false)
	if p == nil {
		return []domain.LineItem{}, nil
	}
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]domain.LineItem, 0, len(p.order))
	for _, id := range p.order {
		out = append(out, *p.lines[id])
	}
	return out, nil
}

func (s *MemoryCartStore) FindLineItem(_ context.Context, id int64) (domain.LineItem, error) {
	sid, ok := s.owner(id)
	if !ok {
		return domain.LineItem{}, lineNotFound(id)
	}
	p := s.partition(sid, false)
	if p == nil {
		return domain.LineItem{}, lineNotFound(id)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	li, ok := p.lines[id]
	if !ok {
		return domain.LineItem{}, lineNotFound(id)
	}
	return *li, nil
}

func (s *MemoryCartStore) FindLineItemByProduct(_ context.Context, sessionID string, productID int64) (domain.LineItem, error) {
	p := s.partition(sessionID, false)
	if p == nil {
		return domain.LineItem{}, fmt.Errorf("%w: no line for product %d", domain.ErrNotFound, productID)
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	id, ok := p.byProduct[productID]
	if !ok {
		return domain.LineItem{}, fmt.Errorf("%w: no line for product %d", domain.ErrNotFound, productID)
	}
	return *p.lines[id], nil
}

func (s *MemoryCartStore) UpsertLineItem(_ context.Context, sessionID string, productID int64, delta int) (domain.LineItem, error) {
	if err := domain.ValidateQuantity(delta); err != nil {
		return domain.LineItem{}, err
	}
	p := s.partition(sessionID, true)
	p.mu.Lock()
	defer p.mu.Unlock()

	if id, ok := p.byProduct[productID]; ok {
		li := p.lines[id]
		if err := domain.ValidateMerge(li.Quantity, delta); err != nil {
			return domain.LineItem{}, err
		}
		li.Quantity += delta
		return *li, nil
	}

	li := &domain.LineItem{
		ID:        s.seq.Add(1),
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  delta,
	}
	p.lines[li.ID] = li
	p.byProduct[productID] = li.ID
	p.order = append(p.order, li.ID)

	s.idxMu.Lock()
	s.byID[li.ID] = sessionID
	s.idxMu.Unlock()
	return *li, nil
}

func (s *MemoryCartStore) SetQuantity(_ context.Context, id int64, quantity int) (domain.LineItem, error) {
	if err := domain.ValidateQuantity(quantity); err != nil {
		return domain.LineItem{}, err
	}
	sid, ok := s.owner(id)
	if !ok {
		return domain.LineItem{}, lineNotFound(id)
	}
	p := s.partition(sid, false)
	if p == nil {
		return domain.LineItem{}, lineNotFound(id)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	li, ok := p.lines[id]
	if !ok {
		return domain.LineItem{}, lineNotFound(id)
	}
	li.Quantity = quantity
	return *li, nil
}

func (s *MemoryCartStore) RemoveLineItem(_ context.Context, id int64) (bool, error) {
	sid, ok := s.owner(id)
	if !ok {
		return false, nil
	}
	p := s.partition(sid, false)
	if p == nil {
		return false, nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	li, ok := p.lines[id]
	if !ok {
		return false, nil
	}
	delete(p.lines, id)
	delete(p.byProduct, li.ProductID)
	for i, v := range p.order {
		if v == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}

	s.idxMu.Lock()
	delete(s.byID, id)
	s.idxMu.Unlock()
	return true, nil
}

func (s *MemoryCartStore) ClearSession(_ context.Context, sessionID string) error {
	p := s.partition(sessionID, false)
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	s.idxMu.Lock()
	for _, id := range p.order {
		delete(s.byID, id)
	}
	s.idxMu.Unlock()

	p.order = nil
	p.lines = make(map[int64]*domain.LineItem)
	p.byProduct = make(map[int64]int64)
	return nil
}

func (s *MemoryCartStore) Ping(context.Context) error { return nil }

func lineNotFound(id int64) error {
	return fmt.Errorf("%w: line item %d", domain.ErrNotFound, id)
}

var _ usecase.CartStore = (*MemoryCartStore)(nil)
