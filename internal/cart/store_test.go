package cart_test

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/noah-isme/toko-pricing/internal/cart"
)

// memoryStore records every call made against the remote cart.
type memoryStore struct {
	mu        sync.Mutex
	lines     []cart.Line
	calls     []string
	nextID    int
	createErr error
	updateErr error
	deleteErr error
}

func newMemoryStore(lines ...cart.Line) *memoryStore {
	s := &memoryStore{}
	for _, l := range lines {
		s.nextID++
		if l.ID == "" {
			l.ID = "line-" + strconv.Itoa(s.nextID)
		}
		s.lines = append(s.lines, l)
	}
	return s
}

func (s *memoryStore) LoadCart(context.Context) ([]cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]cart.Line, len(s.lines))
	copy(out, s.lines)
	return out, nil
}

func (s *memoryStore) CreateLine(_ context.Context, line cart.Line) (cart.Line, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("create %s x%d", line.Ref(), line.Quantity))
	if s.createErr != nil {
		return cart.Line{}, s.createErr
	}
	s.nextID++
	line.ID = "line-" + strconv.Itoa(s.nextID)
	s.lines = append(s.lines, line)
	return line, nil
}

func (s *memoryStore) UpdateLine(_ context.Context, line cart.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("update %s x%d", line.Ref(), line.Quantity))
	if s.updateErr != nil {
		return s.updateErr
	}
	for i := range s.lines {
		if s.lines[i].Ref().String() == line.Ref().String() {
			s.lines[i] = line
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (s *memoryStore) DeleteLine(_ context.Context, line cart.Line) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, fmt.Sprintf("delete %s", line.Ref()))
	if s.deleteErr != nil {
		return s.deleteErr
	}
	for i := range s.lines {
		if s.lines[i].Ref().String() == line.Ref().String() {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return nil
		}
	}
	return cart.ErrLineNotFound
}

func (s *memoryStore) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.calls))
	copy(out, s.calls)
	return out
}

func (s *memoryStore) Stored() []cart.Line {
	lines, _ := s.LoadCart(context.Background())
	return lines
}
