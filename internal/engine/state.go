package engine

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"cartrules/internal/cart"
)

// firedKey identifies a rule that forward-fired within a session.
type firedKey struct {
	ruleID    string
	sessionID string
}

// State is the engine state of one cart session. It is owned by a single
// Engine and lives as long as the agent process; nothing is persisted.
type State struct {
	sessionID string
	now       func() time.Time

	// reconciling is the pass mutual-exclusion flag.
	reconciling atomic.Bool

	mu            sync.Mutex
	fired         map[firedKey]struct{}
	tracked       map[string]struct{}
	lastCart      *cart.Snapshot
	suppressUntil time.Time
}

// NewState creates empty engine state for sessionID. now defaults to time.Now.
func NewState(sessionID string, now func() time.Time) *State {
	if now == nil {
		now = time.Now
	}
	return &State{
		sessionID: sessionID,
		now:       now,
		fired:     make(map[firedKey]struct{}),
		tracked:   make(map[string]struct{}),
	}
}

// SessionID returns the session the state belongs to.
func (s *State) SessionID() string {
	return s.sessionID
}

// HasFired reports whether ruleID forward-fired in this session.
func (s *State) HasFired(ruleID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.fired[firedKey{ruleID: ruleID, sessionID: s.sessionID}]
	return ok
}

// MarkFired records that ruleID forward-fired in this session.
func (s *State) MarkFired(ruleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fired[firedKey{ruleID: ruleID, sessionID: s.sessionID}] = struct{}{}
}

// IsTracked reports whether productID was added by the engine and not removed since.
func (s *State) IsTracked(productID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.tracked[productID]
	return ok
}

// Track marks productID as engine-added.
func (s *State) Track(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tracked[productID] = struct{}{}
}

// Untrack forgets productID.
func (s *State) Untrack(productID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.tracked, productID)
}

// PruneTracked un-tracks every product absent from snap and returns them.
func (s *State) PruneTracked(snap cart.Snapshot) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned []string
	for productID := range s.tracked {
		if !snap.Has(productID) {
			delete(s.tracked, productID)
			pruned = append(pruned, productID)
		}
	}
	sort.Strings(pruned)
	return pruned
}

// LastCart returns the last snapshot recorded for change detection.
func (s *State) LastCart() (cart.Snapshot, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastCart == nil {
		return cart.Snapshot{}, false
	}
	return *s.lastCart, true
}

// ObserveCart records snap for change detection.
func (s *State) ObserveCart(snap cart.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastCart = &snap
}

// ArmSuppression starts a self-trigger suppression window of d. A window that
// is still active is left as is and false is returned.
func (s *State) ArmSuppression(d time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if now.Before(s.suppressUntil) {
		return false
	}
	s.suppressUntil = now.Add(d)
	return true
}

// Suppressing reports whether a suppression window is active.
func (s *State) Suppressing() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.now().Before(s.suppressUntil)
}

// TryBeginPass takes the pass flag. It returns false if a pass is running.
func (s *State) TryBeginPass() bool {
	return s.reconciling.CompareAndSwap(false, true)
}

// EndPass releases the pass flag.
func (s *State) EndPass() {
	s.reconciling.Store(false)
}

// Reconciling reports whether a pass is running.
func (s *State) Reconciling() bool {
	return s.reconciling.Load()
}

// Status is a point-in-time view of State.
type Status struct {
	SessionID       string   `json:"sessionId"`
	FiredRules      []string `json:"firedRules"`
	TrackedProducts []string `json:"trackedProducts"`
	Reconciling     bool     `json:"reconciling"`
	Suppressing     bool     `json:"suppressing"`
	LastTotalMinor  *int64   `json:"lastTotalMinor,omitempty"`
	LastItemCount   *int     `json:"lastItemCount,omitempty"`
}

// Status returns a copy of the current state.
func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		SessionID:       s.sessionID,
		FiredRules:      make([]string, 0, len(s.fired)),
		TrackedProducts: make([]string, 0, len(s.tracked)),
		Reconciling:     s.reconciling.Load(),
		Suppressing:     s.now().Before(s.suppressUntil),
	}
	for key := range s.fired {
		st.FiredRules = append(st.FiredRules, key.ruleID)
	}
	for productID := range s.tracked {
		st.TrackedProducts = append(st.TrackedProducts, productID)
	}
	sort.Strings(st.FiredRules)
	sort.Strings(st.TrackedProducts)

	if s.lastCart != nil {
		total, count := s.lastCart.TotalMinor, s.lastCart.ItemCount
		st.LastTotalMinor = &total
		st.LastItemCount = &count
	}
	return st
}
