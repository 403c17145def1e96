package router

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/meddoc/clinic-api/internal/handler"
	authHandler "github.com/meddoc/clinic-api/internal/handler/auth"
	"github.com/meddoc/clinic-api/internal/middleware"
	"github.com/meddoc/clinic-api/internal/model"
	practitionerService "github.com/meddoc/clinic-api/internal/service/practitioner"
	"github.com/meddoc/clinic-api/pkg/auth"
	"github.com/meddoc/clinic-api/pkg/logger"
	"github.com/meddoc/clinic-api/pkg/security"
)

type practitionerRepoStub struct {
	practitioner *model.Practitioner
}

func (r *practitionerRepoStub) Get(context.Context) (*model.Practitioner, error) {
	if r.practitioner == nil {
		return nil, sql.ErrNoRows
	}
	return r.practitioner, nil
}

func (r *practitionerRepoStub) Upsert(_ context.Context, p *model.Practitioner) error {
	r.practitioner = p
	return nil
}

type lockFixture struct {
	engine *gin.Engine
	repo   *practitionerRepoStub
	svc    *practitionerService.Service
}

func newLockFixture(t *testing.T) *lockFixture {
	t.Helper()
	repo := &practitionerRepoStub{}
	tokens := auth.NewJWTService("router-test-secret", 30*time.Minute)
	svc := practitionerService.NewService(repo, security.NewBcryptHasher(4), tokens, 30*time.Minute, logger.NewLogger(nil))

	r := NewRouter(
		middleware.NewAuthMiddleware(tokens, svc),
		handler.NewHandler(nil),
		authHandler.NewHandler(svc),
		Config{
			RateLimit:     rate.Limit(1000),
			RateBurst:     1000,
			CORSConfig:    middleware.DefaultCORSConfig(),
			MetricsPrefix: "router_test",
		},
	)
	r.Setup()
	return &lockFixture{engine: r.Engine(), repo: repo, svc: svc}
}

func (f *lockFixture) do(method, path, body, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	return rec
}

func (f *lockFixture) enableLock(t *testing.T) {
	t.Helper()
	pin := "1234"
	enabled := true
	_, err := f.svc.Update(context.Background(), &model.UpdatePractitionerRequest{PIN: &pin, PINEnabled: &enabled})
	require.NoError(t, err)
}

func (f *lockFixture) unlock(t *testing.T) string {
	t.Helper()
	rec := f.do(http.MethodPost, "/api/v1/auth/unlock", `{"pin":"1234"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Data model.UnlockResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.Token)
	return resp.Data.Token
}

func TestLockedProfileMutationRequiresSession(t *testing.T) {
	f := newLockFixture(t)
	f.enableLock(t)

	rec := f.do(http.MethodPut, "/api/v1/practitioner", `{"pin_enabled":false}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, f.repo.practitioner.PINEnabled, "the lock must not be switched off without a session")

	rec = f.do(http.MethodPut, "/api/v1/practitioner", `{"pin":"9999"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = f.do(http.MethodPut, "/api/v1/practitioner", `{"pin_enabled":false}`, "garbage-token")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.True(t, f.repo.practitioner.PINEnabled)
}

func TestLockedProfileMutationWithSession(t *testing.T) {
	f := newLockFixture(t)
	f.enableLock(t)
	token := f.unlock(t)

	rec := f.do(http.MethodPut, "/api/v1/practitioner", `{"pin_enabled":false}`, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.repo.practitioner.PINEnabled)
}

func TestUnlockAndProfileReadBypassTheGate(t *testing.T) {
	f := newLockFixture(t)
	f.enableLock(t)

	rec := f.do(http.MethodGet, "/api/v1/practitioner", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/v1/auth/unlock", `{"pin":"0000"}`, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "wrong pin is rejected but the route is reachable")
}

func TestProfileMutationWithLockDisabled(t *testing.T) {
	f := newLockFixture(t)

	rec := f.do(http.MethodPut, "/api/v1/practitioner", `{"name":"Dr. Benali"}`, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Dr. Benali", f.repo.practitioner.Name)
}
