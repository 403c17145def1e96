package safety

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/metrics"
)

// Prometheus collectors register globally, so the package shares one
// metrics instance across tests.
var testMetrics = metrics.NewMetrics("meddoc_safety_test")

type fakeAudit struct {
	actions []string
	ids     []string
	reasons []string
	err     error
}

func newFakeAudit() *fakeAudit { return &fakeAudit{} }

func (f *fakeAudit) Log(_ context.Context, action, _, entityID string, _ interface{}, reason string) error {
	f.actions = append(f.actions, action)
	f.ids = append(f.ids, entityID)
	f.reasons = append(f.reasons, reason)
	return f.err
}

type fakeClassifier struct {
	findings []Finding
	err      error
	calls    chan ClassificationRequest
}

func newFakeClassifier(findings []Finding, err error) *fakeClassifier {
	return &fakeClassifier{findings: findings, err: err, calls: make(chan ClassificationRequest, 8)}
}

func (f *fakeClassifier) ClassifyPrescription(_ context.Context, req ClassificationRequest) ([]Finding, error) {
	f.calls <- req
	return f.findings, f.err
}

func newTestService(classifier Classifier, audit AuditLogger) *Service {
	return NewService(
		config.SafetyConfig{ChildAgeThreshold: 15},
		config.AIConfig{TimeoutSeconds: 5},
		classifier,
		audit,
		testMetrics,
		logger.NewLogger(nil),
	)
}

func forbiddenRegistry() func(name string) *model.Medicine {
	m := &model.Medicine{
		Name:        "Doliprane 1000mg",
		Restriction: &model.MedicineRestriction{Status: model.RestrictionForbidden, MinAge: intPtr(15)},
	}
	return func(name string) *model.Medicine {
		if NamesLikelyMatch(name, m.Name) {
			return m
		}
		return nil
	}
}

func TestServiceEvaluateReturnsLocalNotifications(t *testing.T) {
	svc := newTestService(nil, newFakeAudit())

	out := svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: forbiddenRegistry(),
	})

	require.Len(t, out, 1)
	assert.Equal(t, "enfant-i1", out[0].ID)
	assert.Equal(t, out, svc.Notifications("draft-1"))
}

func TestServiceOverrideAuditsAndSuppresses(t *testing.T) {
	audit := newFakeAudit()
	svc := newTestService(nil, audit)

	svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: forbiddenRegistry(),
	})

	record, err := svc.Override(context.Background(), "draft-1", "enfant-i1", "  posologie pédiatrique adaptée  ")
	require.NoError(t, err)
	assert.Equal(t, "enfant-i1", record.NotificationID)
	assert.Equal(t, "i1", record.ItemID)
	assert.Equal(t, "posologie pédiatrique adaptée", record.Reason)

	require.Len(t, audit.actions, 1)
	assert.Equal(t, model.AuditActionOverride, audit.actions[0])
	assert.Equal(t, "enfant-i1", audit.ids[0])
	assert.Equal(t, "posologie pédiatrique adaptée", audit.reasons[0])

	assert.Empty(t, svc.Notifications("draft-1"))

	// The rule fires again on re-evaluation but stays suppressed.
	out := svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: forbiddenRegistry(),
	})
	assert.Empty(t, out)
}

func TestServiceOverrideSurvivesAuditFailure(t *testing.T) {
	audit := newFakeAudit()
	audit.err = errors.New("db down")
	svc := newTestService(nil, audit)

	svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: forbiddenRegistry(),
	})

	record, err := svc.Override(context.Background(), "draft-1", "enfant-i1", "ok")
	require.NoError(t, err, "audit failure must not block the clinical decision")
	assert.NotNil(t, record)
}

func TestServiceOverrideErrors(t *testing.T) {
	svc := newTestService(nil, newFakeAudit())

	_, err := svc.Override(context.Background(), "draft-1", "missing", "reason")
	assert.ErrorIs(t, err, ErrNotificationNotFound)
}

func TestServiceDismissLeavesNoAuditTrail(t *testing.T) {
	audit := newFakeAudit()
	svc := newTestService(nil, audit)

	svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: forbiddenRegistry(),
	})

	require.NoError(t, svc.Dismiss("draft-1", "enfant-i1"))
	assert.Empty(t, audit.actions)
	assert.Empty(t, svc.Notifications("draft-1"))

	assert.ErrorIs(t, svc.Dismiss("draft-1", "enfant-i1"), ErrNotificationNotFound)
}

func TestServiceAIReviewMergesAsynchronously(t *testing.T) {
	classifier := newFakeClassifier([]Finding{{
		Severity: model.SeverityWarning,
		Type:     model.NotificationInteraction,
		Title:    "Interaction potentielle",
		Message:  "À vérifier",
	}}, nil)
	svc := newTestService(classifier, newFakeAudit())

	out := svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items: []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:   intPtr(40),
	})
	assert.Empty(t, out, "the AI response never lands in the evaluation that issued it")

	select {
	case req := <-classifier.calls:
		assert.Len(t, req.Items, 1)
	case <-time.After(2 * time.Second):
		t.Fatal("classifier was not called")
	}

	assert.Eventually(t, func() bool {
		notifications := svc.Notifications("draft-1")
		return len(notifications) == 1 && notifications[0].FromAI
	}, 2*time.Second, 10*time.Millisecond)

	n := svc.Notifications("draft-1")[0]
	assert.True(t, strings.HasPrefix(n.ID, "ai-"))
	assert.True(t, n.CanOverride)
	assert.Equal(t, "Interaction potentielle", n.Title)
}

func TestServiceAIReviewSkippedForEmptyDraft(t *testing.T) {
	classifier := newFakeClassifier(nil, nil)
	svc := newTestService(classifier, newFakeAudit())

	svc.Evaluate(context.Background(), "draft-1", EvaluationInput{Age: intPtr(40)})

	select {
	case <-classifier.calls:
		t.Fatal("classifier called for a draft with no items")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceAIReviewErrorIsSwallowed(t *testing.T) {
	classifier := newFakeClassifier(nil, errors.New("model unavailable"))
	svc := newTestService(classifier, newFakeAudit())

	svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items: []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
	})

	<-classifier.calls
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, svc.Notifications("draft-1"))
}

func TestFromFindingIDs(t *testing.T) {
	f := Finding{Severity: model.SeverityWarning, Type: model.NotificationInteraction, Title: "t", Message: "m"}

	random := newTestService(nil, newFakeAudit())
	a := random.fromFinding(f)
	b := random.fromFinding(f)
	assert.NotEqual(t, a.ID, b.ID, "ids are random when AI warnings are not suppressible")

	deterministic := NewService(
		config.SafetyConfig{ChildAgeThreshold: 15, AIWarningsSuppressible: true},
		config.AIConfig{},
		nil,
		newFakeAudit(),
		testMetrics,
		logger.NewLogger(nil),
	)
	c := deterministic.fromFinding(f)
	d := deterministic.fromFinding(f)
	assert.Equal(t, c.ID, d.ID, "suppressible AI warnings need stable ids")
	assert.True(t, strings.HasPrefix(c.ID, "ai-"))
}

func TestServiceEndSession(t *testing.T) {
	svc := newTestService(nil, newFakeAudit())

	svc.Evaluate(context.Background(), "draft-1", EvaluationInput{
		Items:   []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
		Age:     intPtr(8),
		Resolve: forbiddenRegistry(),
	})
	require.NotEmpty(t, svc.Notifications("draft-1"))

	svc.EndSession("draft-1")
	assert.Empty(t, svc.Notifications("draft-1"))
}
