package safety

import (
	"errors"
	"strings"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"

	"github.com/meddoc/clinic-api/internal/model"
)

var (
	ErrNotificationNotFound = errors.New("notification not found or no longer active")
	ErrNotOverridable       = errors.New("notification cannot be overridden")
	ErrReasonRequired       = errors.New("override reason is required")
)

// Session tracks the review state of one draft's notifications. Local
// notifications are replaced wholesale on every evaluation pass; AI
// notifications arrive asynchronously and only the response to the most
// recent request is kept. Overridden and dismissed ids go into the
// suppression set, which feeds back into later evaluation passes and is
// never cleared for the life of the session.
type Session struct {
	mu         sync.Mutex
	local      []model.SafetyNotification
	ai         []model.SafetyNotification
	suppressed map[string]struct{}
	records    []model.OverrideRecord
	seq        uint64
}

func NewSession() *Session {
	return &Session{suppressed: make(map[string]struct{})}
}

// SetLocal replaces the locally evaluated notification set.
func (s *Session) SetLocal(notifications []model.SafetyNotification) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.local = notifications
}

// NextSeq reserves a sequence number for an outgoing AI classification
// request. Only the response carrying the latest sequence is applied.
func (s *Session) NextSeq() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return s.seq
}

// MergeAI installs an AI response. It returns false when the response is
// stale, meaning a newer request was issued after this one went out.
func (s *Session) MergeAI(seq uint64, notifications []model.SafetyNotification) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq {
		return false
	}
	kept := notifications[:0]
	for _, n := range notifications {
		if _, ok := s.suppressed[n.ID]; ok {
			continue
		}
		kept = append(kept, n)
	}
	s.ai = kept
	return true
}

// Active returns the notifications still requiring attention, local
// rules first.
func (s *Session) Active() []model.SafetyNotification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SafetyNotification, 0, len(s.local)+len(s.ai))
	for _, n := range s.local {
		if _, ok := s.suppressed[n.ID]; !ok {
			out = append(out, n)
		}
	}
	for _, n := range s.ai {
		if _, ok := s.suppressed[n.ID]; !ok {
			out = append(out, n)
		}
	}
	return out
}

// Override transitions a notification to the overridden state. It fails
// without any state change when the notification is unknown, not
// overridable, or the reason is blank.
func (s *Session) Override(id, reason string) (model.SafetyNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.find(id)
	if !ok {
		return model.SafetyNotification{}, ErrNotificationNotFound
	}
	if !n.CanOverride {
		return model.SafetyNotification{}, ErrNotOverridable
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return model.SafetyNotification{}, ErrReasonRequired
	}

	s.suppressed[id] = struct{}{}
	s.records = append(s.records, model.OverrideRecord{
		NotificationID: id,
		ItemID:         n.ItemID,
		Reason:         reason,
	})
	return n, nil
}

// Dismiss suppresses a notification without recording an override.
func (s *Session) Dismiss(id string) (model.SafetyNotification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.find(id)
	if !ok {
		return model.SafetyNotification{}, ErrNotificationNotFound
	}
	s.suppressed[id] = struct{}{}
	return n, nil
}

func (s *Session) find(id string) (model.SafetyNotification, bool) {
	for _, n := range s.local {
		if n.ID == id {
			if _, gone := s.suppressed[id]; gone {
				return model.SafetyNotification{}, false
			}
			return n, true
		}
	}
	for _, n := range s.ai {
		if n.ID == id {
			if _, gone := s.suppressed[id]; gone {
				return model.SafetyNotification{}, false
			}
			return n, true
		}
	}
	return model.SafetyNotification{}, false
}

// Suppressed returns a copy of the suppression set for the next
// evaluation pass.
func (s *Session) Suppressed() map[string]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.suppressed))
	for id := range s.suppressed {
		out[id] = struct{}{}
	}
	return out
}

// Records returns the override decisions made in this session, in order.
func (s *Session) Records() []model.OverrideRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OverrideRecord, len(s.records))
	copy(out, s.records)
	return out
}

// SessionStore keeps review sessions alongside their drafts with a TTL,
// so abandoned drafts age out instead of pinning memory.
type SessionStore struct {
	c *cache.Cache
}

func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{c: cache.New(ttl, ttl)}
}

// Get returns the session for a draft, creating it on first access.
func (s *SessionStore) Get(draftID string) *Session {
	if v, ok := s.c.Get(draftID); ok {
		s.c.SetDefault(draftID, v)
		return v.(*Session)
	}
	session := NewSession()
	s.c.SetDefault(draftID, session)
	return session
}

func (s *SessionStore) Delete(draftID string) {
	s.c.Delete(draftID)
}
