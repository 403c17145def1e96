package safety

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddoc/clinic-api/internal/model"
)

func notif(id string, overridable bool) model.SafetyNotification {
	return model.SafetyNotification{
		ID:          id,
		Severity:    model.SeverityCritical,
		Type:        model.NotificationInteraction,
		Title:       "Interaction potentielle",
		CanOverride: overridable,
	}
}

func TestSessionOverride(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("n1", true), notif("n2", true)})

	n, err := s.Override("n1", "  validé par le médecin  ")
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)

	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "n2", active[0].ID)

	records := s.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "n1", records[0].NotificationID)
	assert.Equal(t, "validé par le médecin", records[0].Reason)
}

func TestSessionOverridePreconditions(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("n1", true), notif("hard", false)})

	_, err := s.Override("missing", "reason")
	assert.ErrorIs(t, err, ErrNotificationNotFound)

	_, err = s.Override("hard", "reason")
	assert.ErrorIs(t, err, ErrNotOverridable)

	_, err = s.Override("n1", "   ")
	assert.ErrorIs(t, err, ErrReasonRequired)

	// A failed override changes nothing.
	assert.Len(t, s.Active(), 2)
	assert.Empty(t, s.Records())
	assert.Empty(t, s.Suppressed())
}

func TestSessionOverrideIsIdempotentPerID(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("n1", true)})

	_, err := s.Override("n1", "ok")
	require.NoError(t, err)

	// Once suppressed the notification is gone for good.
	_, err = s.Override("n1", "again")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
	assert.Len(t, s.Records(), 1)
}

func TestSessionSuppressionSurvivesReEvaluation(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("n1", true)})

	_, err := s.Override("n1", "ok")
	require.NoError(t, err)

	// The same rule firing again on a later pass stays suppressed.
	s.SetLocal([]model.SafetyNotification{notif("n1", true), notif("n2", true)})
	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "n2", active[0].ID)

	_, ok := s.Suppressed()["n1"]
	assert.True(t, ok)
}

func TestSessionDismiss(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("n1", true)})

	n, err := s.Dismiss("n1")
	require.NoError(t, err)
	assert.Equal(t, "n1", n.ID)
	assert.Empty(t, s.Active())
	assert.Empty(t, s.Records(), "dismissals leave no override record")

	_, err = s.Dismiss("n1")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestSessionMergeAI(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("n1", true)})

	seq := s.NextSeq()
	ok := s.MergeAI(seq, []model.SafetyNotification{notif("ai-1", true)})
	assert.True(t, ok)

	active := s.Active()
	require.Len(t, active, 2)
	assert.Equal(t, "n1", active[0].ID, "local notifications come first")
	assert.Equal(t, "ai-1", active[1].ID)
}

func TestSessionMergeAIRejectsStale(t *testing.T) {
	s := NewSession()

	stale := s.NextSeq()
	fresh := s.NextSeq()

	ok := s.MergeAI(stale, []model.SafetyNotification{notif("ai-old", true)})
	assert.False(t, ok)
	assert.Empty(t, s.Active())

	ok = s.MergeAI(fresh, []model.SafetyNotification{notif("ai-new", true)})
	assert.True(t, ok)
	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "ai-new", active[0].ID)
}

func TestSessionMergeAIFiltersSuppressed(t *testing.T) {
	s := NewSession()
	s.SetLocal([]model.SafetyNotification{notif("ai-x", true)})
	_, err := s.Dismiss("ai-x")
	require.NoError(t, err)
	s.SetLocal(nil)

	seq := s.NextSeq()
	ok := s.MergeAI(seq, []model.SafetyNotification{notif("ai-x", true), notif("ai-y", true)})
	assert.True(t, ok)

	active := s.Active()
	require.Len(t, active, 1)
	assert.Equal(t, "ai-y", active[0].ID)
}

func TestSessionStore(t *testing.T) {
	store := NewSessionStore(time.Minute)

	a := store.Get("draft-a")
	assert.Same(t, a, store.Get("draft-a"))
	assert.NotSame(t, a, store.Get("draft-b"))

	a.SetLocal([]model.SafetyNotification{notif("n1", true)})
	store.Delete("draft-a")
	assert.Empty(t, store.Get("draft-a").Active(), "deleted sessions start fresh")
}
