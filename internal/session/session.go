// Package session keeps the in-memory conversation state of each user.
// Sessions are never persisted; a restart drops every open flow.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"gitlab.com/yelinaung/contest-bot/internal/models"
)

// Flow names a multi-step conversation.
type Flow string

// Flows.
const (
	FlowRegistration     Flow = "registration"
	FlowVote             Flow = "vote"
	FlowWithdrawal       Flow = "withdrawal"
	FlowAddProject       Flow = "add_project"
	FlowAddSeasonProject Flow = "add_season_project"
	FlowEditProject      Flow = "edit_project"
	FlowDeleteProject    Flow = "delete_project"
	FlowBroadcast        Flow = "broadcast"
	FlowNews             Flow = "news"
)

// State is the step a flow is waiting on.
type State string

// Registration states.
const (
	StateChoosingLanguage State = "choosing_language"
	StateEnteringPhone    State = "entering_phone"
	StateEnteringRegion   State = "entering_region"
)

// Vote-with-proof states. Each accepts exactly one image.
const (
	StateScreenshotRequest      State = "screenshot_request"
	StateScreenshotReceived     State = "screenshot_received"
	StateScreenshotVerification State = "screenshot_verification"
)

// Withdrawal states.
const (
	StateChoosingMethod  State = "choosing_method"
	StateEnteringAccount State = "entering_account"
)

// Admin authoring states.
const (
	StateChoosingProject State = "choosing_project"
	StateCollectName     State = "collect_name"
	StateCollectLink     State = "collect_link"
	StateCollectRegion   State = "collect_region"
	StateCollectBudget   State = "collect_budget"
	StateCollectTitle    State = "collect_title"
	StateCollectContent  State = "collect_content"
	StatePreview         State = "preview"
)

// Data is the step data a flow accumulates. Fields unused by a flow stay zero.
type Data struct {
	Language     string
	Phone        string
	Region       string
	ReferralCode string

	Project     models.ProjectRef
	SeasonID    int
	MaxVotes    int
	Screenshots []string

	Method models.WithdrawalMethod

	Name        string
	Link        string
	Budget      decimal.Decimal
	Title       string
	Content     string
	PhotoFileID string
}

// Session is one user's open flow.
type Session struct {
	UserID    int64
	Flow      Flow
	State     State
	Data      Data
	StartedAt time.Time
	UpdatedAt time.Time
}

func (s *Session) clone() *Session {
	c := *s
	c.Data.Screenshots = slices.Clone(s.Data.Screenshots)
	return &c
}

// Store holds at most one session per user.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	now      func() time.Time
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		now:      time.Now,
	}
}

// Start opens flow for the user, abandoning any flow already open.
func (s *Store) Start(userID int64, flow Flow, state State, data Data) *Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	sess := &Session{
		UserID:    userID,
		Flow:      flow,
		State:     state,
		Data:      data,
		StartedAt: now,
		UpdatedAt: now,
	}
	s.sessions[userID] = sess
	return sess.clone()
}

// Get returns a copy of the user's session. Changes take effect through Save.
func (s *Store) Get(userID int64) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[userID]
	if !ok {
		return nil, false
	}
	return sess.clone(), true
}

// Save stores an updated session and refreshes its activity time. A session
// replaced or deleted since it was read is not resurrected.
func (s *Store) Save(sess *Session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.sessions[sess.UserID]
	if !ok || cur.Flow != sess.Flow || !cur.StartedAt.Equal(sess.StartedAt) {
		return false
	}
	updated := sess.clone()
	updated.UpdatedAt = s.now()
	s.sessions[sess.UserID] = updated
	return true
}

// Delete ends the user's session.
func (s *Store) Delete(userID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, userID)
}

// Len returns the number of open sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reap drops sessions idle for longer than ttl and returns the users whose
// sessions it dropped, in ascending order.
func (s *Store) Reap(ttl time.Duration) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	var reaped []int64
	for id, sess := range s.sessions {
		if sess.UpdatedAt.Before(cutoff) {
			delete(s.sessions, id)
			reaped = append(reaped, id)
		}
	}
	slices.Sort(reaped)
	return reaped
}

// RunReaper calls Reap every interval until ctx is done. onReap, if set,
// receives the users of each non-empty reap.
func (s *Store) RunReaper(ctx context.Context, interval, ttl time.Duration, onReap func(userIDs []int64)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if ids := s.Reap(ttl); len(ids) > 0 && onReap != nil {
				onReap(ids)
			}
		}
	}
}
