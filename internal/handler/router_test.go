package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/metrics"
	"github.com/edgex-labs/edgex/backend/internal/model/scholarship"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	chatService "github.com/edgex-labs/edgex/backend/internal/service/chat"
	moodService "github.com/edgex-labs/edgex/backend/internal/service/mood"
	scholarshipService "github.com/edgex-labs/edgex/backend/internal/service/scholarship"
	vaultService "github.com/edgex-labs/edgex/backend/internal/service/vault"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()
	repo := store.NewObserved(store.NewMemory())
	tools := tool.NewMemoryStore(tool.Seed())
	complete := chatService.CompleterFunc(func(context.Context, ai.Request) (string, error) { return "Keep going!", nil })

	chatSvc := chatService.NewService(tools, repo, complete, chatService.Options{})
	t.Cleanup(func() { _ = chatSvc.Shutdown(ctx) })
	mood, err := moodService.NewService(ctx, nil, moodService.Config{})
	if err != nil {
		t.Fatalf("mood: %v", err)
	}
	catalogue, err := scholarship.Default()
	if err != nil {
		t.Fatalf("catalogue: %v", err)
	}
	st, _ := tools.FindByID(tool.Scholarship)

	return NewRouter(Deps{
		Tools:          tools,
		Auth:           auth.NewService(repo, auth.Config{JWTSecret: "test-secret", TokenTTL: time.Hour, BcryptCost: 4}),
		Chat:           chatSvc,
		Mood:           mood,
		Scholarship:    scholarshipService.NewService(catalogue, st, complete),
		Vault:          vaultService.NewService(repo),
		Live:           repo,
		Store:          repo,
		Metrics:        metrics.New(),
		AllowedOrigins: []string{"http://localhost:5173"},
	})
}

func TestHealthAndMetrics(t *testing.T) {
	r := setupRouter(t)

	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("health: expected 200, got %d", resp.Code)
	}

	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("metrics: expected 200, got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), "edgex_http_requests_total") {
		t.Fatalf("request counter missing from metrics output")
	}
}

func TestPrivateRoutesNeedToken(t *testing.T) {
	r := setupRouter(t)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/tools/career/conversations", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestSignUpThenChat(t *testing.T) {
	r := setupRouter(t)

	signup, _ := json.Marshal(map[string]string{
		"fullName": "Asha Rao", "email": "asha@example.com", "password": "secret1", "confirmPassword": "secret1",
	})
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewReader(signup)))
	if resp.Code != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var session struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &session); err != nil || session.Token == "" {
		t.Fatalf("signup returned no token: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/tools/career/conversations", nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("open: expected 201, got %d: %s", resp.Code, resp.Body.String())
	}
	var snap chatService.Snapshot
	if err := json.Unmarshal(resp.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}

	body, _ := json.Marshal(map[string]string{"text": "I want to become a pilot"})
	req = httptest.NewRequest(http.MethodPost, "/api/conversations/"+snap.Handle+"/messages", bytes.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("send: expected 200, got %d: %s", resp.Code, resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), "Keep going!") {
		t.Fatalf("reply missing: %s", resp.Body.String())
	}

	signout := httptest.NewRequest(http.MethodPost, "/api/auth/signout", nil)
	signout.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, signout)
	if resp.Code != http.StatusNoContent {
		t.Fatalf("signout: expected 204, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/conversations/"+snap.Handle, nil)
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp = httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("revoked token: expected 401, got %d", resp.Code)
	}
}

func TestCORSPreflight(t *testing.T) {
	r := setupRouter(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/resources", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if got := resp.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}
