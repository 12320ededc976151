package service

import (
	"sync"

	"github.com/boddenberg/orders-dashboard-go/internal/domain"
)

// FilterState holds the draft filter set the user is editing and the applied
// one the last query ran under. Applied only changes through Commit or Reset.
type FilterState struct {
	mu      sync.RWMutex
	draft   domain.FilterSet
	applied domain.FilterSet
}

// NewFilterState starts with both sets unset.
func NewFilterState() *FilterState {
	return &FilterState{}
}

func (f *FilterState) Draft() domain.FilterSet {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.draft
}

func (f *FilterState) Applied() domain.FilterSet {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.applied
}

// Pair returns both sets read under the same lock.
func (f *FilterState) Pair() domain.FilterPair {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return domain.FilterPair{Draft: f.draft, Applied: f.applied}
}

// SetDraft replaces the draft. The applied set is untouched.
func (f *FilterState) SetDraft(draft domain.FilterSet) {
	f.mu.Lock()
	f.draft = draft
	f.mu.Unlock()
}

// Commit makes draft both the draft and the applied set and returns it.
func (f *FilterState) Commit(draft domain.FilterSet) domain.FilterSet {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.draft = draft
	f.applied = draft
	return f.applied
}

// Reset clears both sets.
func (f *FilterState) Reset() {
	f.mu.Lock()
	f.draft = domain.FilterSet{}
	f.applied = domain.FilterSet{}
	f.mu.Unlock()
}
