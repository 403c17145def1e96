package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meddoc/clinic-api/internal/config"
	"github.com/meddoc/clinic-api/internal/model"
	"github.com/meddoc/clinic-api/internal/service/safety"
	"github.com/meddoc/clinic-api/pkg/logger"
)

// geminiStub serves canned generateContent answers and records the
// prompts it received.
func geminiStub(t *testing.T, answer string) (*httptest.Server, *[]string) {
	t.Helper()
	var prompts []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.URL.Path, ":generateContent")
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotEmpty(t, req.Contents)
		require.NotEmpty(t, req.Contents[0].Parts)
		prompts = append(prompts, req.Contents[0].Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"candidates": []map[string]interface{}{
				{"content": content{Parts: []part{{Text: answer}}}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &prompts
}

func newTestClient(baseURL string) *Client {
	return NewClient(config.AIConfig{
		BaseURL:        baseURL,
		APIKey:         "test-key",
		Model:          "gemini-1.5-flash",
		TimeoutSeconds: 5,
	}, logger.NewLogger(nil))
}

func TestClassifyPrescription(t *testing.T) {
	srv, prompts := geminiStub(t, `[
		{"severity":"critical","type":"interaction","title":"Interaction","message":"Risque majeur"},
		{"severity":"WARNING","type":"duplicate","title":"Doublon","message":"Même molécule"}
	]`)
	client := newTestClient(srv.URL)

	findings, err := client.ClassifyPrescription(context.Background(), safety.ClassificationRequest{
		Items: []model.PrescriptionItem{{ID: "i1", MedicineName: "Doliprane 1000mg"}},
	})
	require.NoError(t, err)
	require.Len(t, findings, 2)

	assert.Equal(t, model.SeverityCritical, findings[0].Severity)
	assert.Equal(t, model.NotificationInteraction, findings[0].Type)
	assert.Equal(t, "Risque majeur", findings[0].Message)

	assert.Equal(t, model.SeverityWarning, findings[1].Severity)
	assert.Equal(t, model.NotificationDuplicate, findings[1].Type)

	require.Len(t, *prompts, 1)
	assert.Contains(t, (*prompts)[0], "Doliprane 1000mg", "the items reach the model")
}

func TestClassifyPrescriptionStripsFences(t *testing.T) {
	srv, _ := geminiStub(t, "```json\n[{\"severity\":\"critical\",\"type\":\"interaction\",\"title\":\"t\",\"message\":\"m\"}]\n```")
	client := newTestClient(srv.URL)

	findings, err := client.ClassifyPrescription(context.Background(), safety.ClassificationRequest{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "t", findings[0].Title)
}

func TestClassifyPrescriptionCoercesUnknownValues(t *testing.T) {
	srv, _ := geminiStub(t, `[{"severity":"catastrophic","type":"mystery","title":"t","message":"m"}]`)
	client := newTestClient(srv.URL)

	findings, err := client.ClassifyPrescription(context.Background(), safety.ClassificationRequest{})
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, model.SeverityWarning, findings[0].Severity)
	assert.Equal(t, model.NotificationInteraction, findings[0].Type)
}

func TestClassifyPrescriptionEmptyFindings(t *testing.T) {
	srv, _ := geminiStub(t, `[]`)
	client := newTestClient(srv.URL)

	findings, err := client.ClassifyPrescription(context.Background(), safety.ClassificationRequest{})
	require.NoError(t, err)
	assert.Empty(t, findings)
}

func TestClassifyPrescriptionMalformedAnswer(t *testing.T) {
	srv, _ := geminiStub(t, `I cannot help with that.`)
	client := newTestClient(srv.URL)

	_, err := client.ClassifyPrescription(context.Background(), safety.ClassificationRequest{})
	assert.Error(t, err)
}

func TestClassifyPrescriptionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	t.Cleanup(srv.Close)
	client := newTestClient(srv.URL)

	_, err := client.ClassifyPrescription(context.Background(), safety.ClassificationRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestClassifyAppointment(t *testing.T) {
	srv, prompts := geminiStub(t, `{"priority":"URGENT","reason":"chest pain needs same-day review"}`)
	client := newTestClient(srv.URL)

	priority, reason, err := client.ClassifyAppointment(context.Background(), "douleur thoracique")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityUrgent, priority)
	assert.Equal(t, "chest pain needs same-day review", reason)
	assert.Contains(t, (*prompts)[0], "douleur thoracique")
}

func TestClassifyAppointmentUnknownPriorityIsRoutine(t *testing.T) {
	srv, _ := geminiStub(t, `{"priority":"emergency","reason":"r"}`)
	client := newTestClient(srv.URL)

	priority, _, err := client.ClassifyAppointment(context.Background(), "note")
	require.NoError(t, err)
	assert.Equal(t, model.PriorityRoutine, priority)
}

func TestStripFences(t *testing.T) {
	assert.Equal(t, `{"a":1}`, stripFences("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, stripFences(`  {"a":1}  `))
}

func TestNewClientDefaultsBaseURL(t *testing.T) {
	client := NewClient(config.AIConfig{Model: "gemini-1.5-flash"}, logger.NewLogger(nil))
	assert.True(t, strings.HasPrefix(client.baseURL, "https://"))
}
