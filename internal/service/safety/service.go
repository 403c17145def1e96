package safety

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/metrics"
)

const sessionTTL = 4 * time.Hour

// Classifier asks an external model to review a draft prescription.
type Classifier interface {
	ClassifyPrescription(ctx context.Context, req ClassificationRequest) ([]Finding, error)
}

type ClassificationRequest struct {
	Age         *int                     `json:"age,omitempty"`
	PatientType model.PatientType        `json:"patient_type,omitempty"`
	Allergies   string                   `json:"allergies,omitempty"`
	Pathologies string                   `json:"pathologies,omitempty"`
	Items       []model.PrescriptionItem `json:"items"`
}

// Finding is one warning returned by the classifier, before an id is
// assigned.
type Finding struct {
	Severity model.Severity         `json:"severity"`
	Type     model.NotificationType `json:"type"`
	Title    string                 `json:"title"`
	Message  string                 `json:"message"`
}

// AuditLogger records override decisions durably.
type AuditLogger interface {
	Log(ctx context.Context, action, entityType, entityID string, changes interface{}, reason string) error
}

// EvaluationInput is what a draft mutation hands to Evaluate.
type EvaluationInput struct {
	Items       []model.PrescriptionItem
	Age         *int
	PatientType model.PatientType
	Allergies   string
	Pathologies string
	Resolve     func(name string) *model.Medicine
}

// Service runs the rule evaluator and the asynchronous AI review over
// per-draft sessions, and records override decisions in the audit log.
type Service struct {
	evaluator      *Evaluator
	sessions       *SessionStore
	classifier     Classifier
	audit          AuditLogger
	metrics        *metrics.Metrics
	logger         *logger.Logger
	aiTimeout      time.Duration
	suppressibleAI bool
}

func NewService(cfg config.SafetyConfig, aiCfg config.AIConfig, classifier Classifier, audit AuditLogger, m *metrics.Metrics, log *logger.Logger) *Service {
	return &Service{
		evaluator:      NewEvaluator(cfg.Threshold()),
		sessions:       NewSessionStore(sessionTTL),
		classifier:     classifier,
		audit:          audit,
		metrics:        m,
		logger:         log,
		aiTimeout:      aiCfg.Timeout(),
		suppressibleAI: cfg.AIWarningsSuppressible,
	}
}

// Evaluate recomputes the draft's notifications and kicks off an AI
// review in the background. It returns the currently active set, which
// will not yet include findings from the review just issued.
func (s *Service) Evaluate(ctx context.Context, draftID string, in EvaluationInput) []model.SafetyNotification {
	session := s.sessions.Get(draftID)

	local := s.evaluator.Evaluate(Input{
		Items:      in.Items,
		Age:        in.Age,
		Resolve:    in.Resolve,
		Suppressed: session.Suppressed(),
	})
	session.SetLocal(local)

	s.metrics.SafetyEvaluations.Inc()
	for _, n := range local {
		s.metrics.NotificationsEmitted.WithLabelValues(string(n.Type)).Inc()
	}

	if s.classifier != nil && len(in.Items) > 0 {
		seq := session.NextSeq()
		go s.classify(session, seq, ClassificationRequest{
			Age:         in.Age,
			PatientType: in.PatientType,
			Allergies:   in.Allergies,
			Pathologies: in.Pathologies,
			Items:       in.Items,
		})
	}

	return session.Active()
}

// classify runs detached from the request: a draft mutation must not
// block on the external model, and a failed call just means fewer
// warnings.
func (s *Service) classify(session *Session, seq uint64, req ClassificationRequest) {
	ctx, cancel := context.WithTimeout(context.Background(), s.aiTimeout)
	defer cancel()

	start := time.Now()
	findings, err := s.classifier.ClassifyPrescription(ctx, req)
	s.metrics.AILatency.Observe(time.Since(start).Seconds())
	if err != nil {
		s.metrics.AIClassificationErrors.Inc()
		s.logger.Warn("ai classification failed", "error", err.Error())
		return
	}
	s.metrics.AIClassifications.Inc()

	notifications := make([]model.SafetyNotification, 0, len(findings))
	for _, f := range findings {
		notifications = append(notifications, s.fromFinding(f))
	}
	if !session.MergeAI(seq, notifications) {
		s.metrics.AIStaleResponses.Inc()
	}
}

func (s *Service) fromFinding(f Finding) model.SafetyNotification {
	id := "ai-" + uuid.NewString()
	if s.suppressibleAI {
		sum := sha256.Sum256([]byte(string(f.Type) + "|" + f.Title + "|" + f.Message))
		id = "ai-" + hex.EncodeToString(sum[:8])
	}
	return model.SafetyNotification{
		ID:          id,
		Severity:    f.Severity,
		Type:        f.Type,
		Title:       f.Title,
		Message:     f.Message,
		CanOverride: true,
		FromAI:      true,
	}
}

// Notifications returns the active set without re-evaluating.
func (s *Service) Notifications(draftID string) []model.SafetyNotification {
	return s.sessions.Get(draftID).Active()
}

// Override records an override decision: the notification is suppressed
// for the rest of the session and the decision lands in the audit log.
// The returned record carries the item id so the caller can stamp the
// draft item.
func (s *Service) Override(ctx context.Context, draftID, notificationID, reason string) (*model.OverrideRecord, error) {
	session := s.sessions.Get(draftID)
	n, err := session.Override(notificationID, reason)
	if err != nil {
		return nil, err
	}

	record := model.OverrideRecord{
		NotificationID: notificationID,
		ItemID:         n.ItemID,
		Reason:         strings.TrimSpace(reason),
	}
	if err := s.audit.Log(ctx, model.AuditActionOverride, model.AuditEntitySafetyNotification, notificationID, n, record.Reason); err != nil {
		s.logger.Error(err, "failed to audit override", "notification_id", notificationID)
	}
	s.metrics.OverridesRecorded.Inc()
	return &record, nil
}

// Dismiss suppresses a notification without an audit entry.
func (s *Service) Dismiss(draftID, notificationID string) error {
	session := s.sessions.Get(draftID)
	if _, err := session.Dismiss(notificationID); err != nil {
		return err
	}
	s.metrics.DismissalsRecorded.Inc()
	return nil
}

// EndSession drops the review session when its draft is saved or
// discarded.
func (s *Service) EndSession(draftID string) {
	s.sessions.Delete(draftID)
}
