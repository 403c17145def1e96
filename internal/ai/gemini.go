// Package ai talks to the Gemini generateContent API for prescription
// review and appointment triage. Every call goes through a circuit
// breaker: the clinic must keep working when the model is down, just
// with fewer warnings.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/service/safety"
	"github.com/meddoc/clinic-api/pkg/circuitbreaker"
	"github.com/meddoc/clinic-api/pkg/logger"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string
	breaker    *circuitbreaker.Breaker
	logger     *logger.Logger
}

func NewClient(cfg config.AIConfig, log *logger.Logger) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout()},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		breaker:    circuitbreaker.New(circuitbreaker.DefaultConfig("gemini")),
		logger:     log,
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMIMEType string  `json:"responseMimeType,omitempty"`
	Temperature      float64 `json:"temperature"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate submits a prompt and returns the model's raw text answer.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{
			ResponseMIMEType: "application/json",
			Temperature:      0.1,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal generate request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var text string
	err = c.breaker.Execute(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("failed to build generate request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("generate call failed: %w", err)
		}
		defer resp.Body.Close()

		raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return fmt.Errorf("failed to read generate response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("generate call returned status %d", resp.StatusCode)
		}

		var parsed generateResponse
		if err := json.Unmarshal(raw, &parsed); err != nil {
			return fmt.Errorf("failed to decode generate response: %w", err)
		}
		if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
			return fmt.Errorf("generate response has no candidates")
		}
		text = parsed.Candidates[0].Content.Parts[0].Text
		return nil
	})
	if err != nil {
		return "", err
	}
	return text, nil
}

type reviewFinding struct {
	Severity string `json:"severity"`
	Type     string `json:"type"`
	Title    string `json:"title"`
	Message  string `json:"message"`
}

// ClassifyPrescription asks the model to review a draft and returns its
// findings. Unknown severities and types are coerced to safe values
// rather than dropped.
func (c *Client) ClassifyPrescription(ctx context.Context, req safety.ClassificationRequest) ([]safety.Finding, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal classification request: %w", err)
	}

	prompt := fmt.Sprintf(`You are reviewing a prescription for safety issues.
Patient and items as JSON: %s
Reply with a JSON array of findings, possibly empty. Each finding:
{"severity":"critical"|"warning","type":"interaction"|"contraindication"|"duplicate","title":"...","message":"..."}
Only report issues a pharmacist would flag. Reply with the JSON array only.`, payload)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	var raw []reviewFinding
	if err := json.Unmarshal([]byte(stripFences(text)), &raw); err != nil {
		return nil, fmt.Errorf("failed to parse model findings: %w", err)
	}

	findings := make([]safety.Finding, 0, len(raw))
	for _, f := range raw {
		findings = append(findings, safety.Finding{
			Severity: coerceSeverity(f.Severity),
			Type:     coerceType(f.Type),
			Title:    f.Title,
			Message:  f.Message,
		})
	}
	return findings, nil
}

type triageAnswer struct {
	Priority string `json:"priority"`
	Reason   string `json:"reason"`
}

// ClassifyAppointment ranks an appointment request from its note.
func (c *Client) ClassifyAppointment(ctx context.Context, note string) (model.AppointmentPriority, string, error) {
	prompt := fmt.Sprintf(`Classify this appointment request for a general practice clinic.
Note from the patient: %q
Reply with JSON only: {"priority":"urgent"|"initial"|"routine","reason":"one short sentence"}.
"urgent" means same-day attention, "initial" means a first visit, otherwise "routine".`, note)

	text, err := c.generate(ctx, prompt)
	if err != nil {
		return "", "", err
	}

	var answer triageAnswer
	if err := json.Unmarshal([]byte(stripFences(text)), &answer); err != nil {
		return "", "", fmt.Errorf("failed to parse triage answer: %w", err)
	}

	switch model.AppointmentPriority(strings.ToLower(answer.Priority)) {
	case model.PriorityUrgent:
		return model.PriorityUrgent, answer.Reason, nil
	case model.PriorityInitial:
		return model.PriorityInitial, answer.Reason, nil
	default:
		return model.PriorityRoutine, answer.Reason, nil
	}
}

// stripFences removes markdown code fences some models wrap JSON in.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func coerceSeverity(s string) model.Severity {
	if strings.EqualFold(s, string(model.SeverityCritical)) {
		return model.SeverityCritical
	}
	return model.SeverityWarning
}

func coerceType(s string) model.NotificationType {
	switch model.NotificationType(strings.ToLower(s)) {
	case model.NotificationContraindication:
		return model.NotificationContraindication
	case model.NotificationDuplicate:
		return model.NotificationDuplicate
	default:
		return model.NotificationInteraction
	}
}
