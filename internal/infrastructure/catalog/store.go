package catalog

import (
	"sync/atomic"

	"github.com/krittawat/order-register/internal/core/ports"
)

// Store hands out the current immutable catalog snapshot. Install swaps the
// whole index atomically so in-flight lookups never observe a half-updated
// catalog.
type Store struct {
	current atomic.Pointer[Index]
}

func NewStore(idx *Index) *Store {
	s := &Store{}
	s.current.Store(idx)
	return s
}

func (s *Store) Current() ports.CatalogIndex {
	return s.current.Load()
}

func (s *Store) Install(idx *Index) {
	s.current.Store(idx)
}
