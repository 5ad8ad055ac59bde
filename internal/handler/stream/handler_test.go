package stream

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/edgex-labs/edgex/backend/internal/auth"
	"github.com/edgex-labs/edgex/backend/internal/model/tool"
	"github.com/edgex-labs/edgex/backend/internal/model/user"
	"github.com/edgex-labs/edgex/backend/internal/service/ai"
	chatservice "github.com/edgex-labs/edgex/backend/internal/service/chat"
	"github.com/edgex-labs/edgex/backend/internal/store"
)

func setup(t *testing.T, complete chatservice.CompleterFunc) (*chi.Mux, *chatservice.Service) {
	t.Helper()
	chatSvc := chatservice.NewService(tool.NewMemoryStore(tool.Seed()), store.NewMemory(), complete, chatservice.Options{})
	t.Cleanup(func() { _ = chatSvc.Shutdown(context.Background()) })

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), &user.User{ID: "u1"})))
		})
	})
	New(chatSvc).RegisterRoutes(r)
	return r, chatSvc
}

func stream(r http.Handler, handle, message string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/conversations/"+handle+"/stream?message="+url.QueryEscape(message), nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func eventNames(body string) []string {
	var names []string
	for _, line := range strings.Split(body, "\n") {
		if name, ok := strings.CutPrefix(line, "event: "); ok {
			names = append(names, name)
		}
	}
	return names
}

func TestStreamEmitsStartMessageEnd(t *testing.T) {
	r, chatSvc := setup(t, func(context.Context, ai.Request) (string, error) { return "Hello there", nil })
	snap, err := chatSvc.Open(context.Background(), "u1", tool.Mood)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	resp := stream(r, snap.Handle, "hi")

	if ct := resp.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	got := strings.Join(eventNames(resp.Body.String()), ",")
	if got != "start,message,end" {
		t.Fatalf("unexpected events %s", got)
	}
	if !strings.Contains(resp.Body.String(), "Hello there") {
		t.Fatalf("reply missing from stream: %s", resp.Body.String())
	}
	if !strings.Contains(resp.Body.String(), `"__typing__"`) {
		t.Fatalf("start event should carry the typing placeholder")
	}
}

func TestStreamEmitsErrorOnFailure(t *testing.T) {
	r, chatSvc := setup(t, func(context.Context, ai.Request) (string, error) { return "", errors.New("boom") })
	snap, _ := chatSvc.Open(context.Background(), "u1", tool.Career)

	resp := stream(r, snap.Handle, "hi")

	got := strings.Join(eventNames(resp.Body.String()), ",")
	if got != "start,error,end" {
		t.Fatalf("unexpected events %s", got)
	}
	if !strings.Contains(resp.Body.String(), "Something went wrong") {
		t.Fatalf("fallback text missing: %s", resp.Body.String())
	}
}

func TestStreamRejectsBlankMessage(t *testing.T) {
	r, chatSvc := setup(t, func(context.Context, ai.Request) (string, error) { return "unused", nil })
	snap, _ := chatSvc.Open(context.Background(), "u1", tool.Career)

	resp := stream(r, snap.Handle, "  ")

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	if len(eventNames(resp.Body.String())) != 0 {
		t.Fatalf("no events expected for rejected submit")
	}
}

func TestStreamUnknownConversation(t *testing.T) {
	r, _ := setup(t, func(context.Context, ai.Request) (string, error) { return "unused", nil })

	resp := stream(r, "nope", "hi")

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}
