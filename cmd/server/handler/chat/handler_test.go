package chat

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/igame-lab/assistant/classifier"
	"github.com/igame-lab/assistant/memory"
	"github.com/igame-lab/assistant/internal/service/chat"
	"github.com/igame-lab/assistant/internal/service/session"
)

type stubClassifier struct{}

func (s *stubClassifier) Classify(ctx context.Context, message string) classifier.Result {
	return classifier.Result{Intent: classifier.IntentGeneral, Confidence: 0.9}
}

type stubGenerator struct{}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return "a reply", nil
}

type stubStore struct{}

func (s *stubStore) AddDocument(ctx context.Context, doc memory.Document) error { return nil }
func (s *stubStore) SearchRelevant(ctx context.Context, query string, limit int) ([]memory.Document, error) {
	return nil, nil
}
func (s *stubStore) GetAll(ctx context.Context) ([]memory.Document, error) { return nil, nil }
func (s *stubStore) DeleteDocument(ctx context.Context, id string) error   { return nil }

func newHandler() *chatHandler {
	sessions := session.New()
	service := chat.New(&stubClassifier{}, &stubGenerator{}, &stubStore{}, sessions, "UTC")
	return NewHandler(service, sessions)
}

func TestHandleMessageRejectsMissingMessage(t *testing.T) {
	h := newHandler()

	for _, body := range []string{
		`{}`,
		`{"message": 42}`,
		`{"message": ""}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
		rec := httptest.NewRecorder()

		h.HandleMessage(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleMessageRepliesWithSessionId(t *testing.T) {
	h := newHandler()

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"你好"}`))
	rec := httptest.NewRecorder()

	h.HandleMessage(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var rsp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &rsp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if rsp["response"] != "a reply" {
		t.Fatalf("unexpected response: %v", rsp["response"])
	}
	if sessionId, _ := rsp["sessionId"].(string); len(sessionId) == 0 {
		t.Fatal("missing sessionId")
	}
}

func TestHandleMessageReusesSession(t *testing.T) {
	h := newHandler()

	first := httptest.NewRecorder()
	h.HandleMessage(first, httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"你好"}`)))

	var firstRsp map[string]any
	json.Unmarshal(first.Body.Bytes(), &firstRsp)
	sessionId := firstRsp["sessionId"].(string)

	second := httptest.NewRecorder()
	h.HandleMessage(second, httptest.NewRequest(http.MethodPost, "/chat",
		strings.NewReader(`{"message":"再见","sessionId":"`+sessionId+`"}`)))

	var secondRsp map[string]any
	json.Unmarshal(second.Body.Bytes(), &secondRsp)
	if secondRsp["sessionId"] != sessionId {
		t.Fatalf("sessionId changed: %v != %s", secondRsp["sessionId"], sessionId)
	}
}

func TestHandleSessionsListsHistory(t *testing.T) {
	h := newHandler()

	h.HandleMessage(httptest.NewRecorder(),
		httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"你好"}`)))

	rec := httptest.NewRecorder()
	h.HandleSessions(rec, httptest.NewRequest(http.MethodGet, "/chat", nil))

	var rsp struct {
		Sessions []session.Session `json:"sessions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &rsp); err != nil {
		t.Fatalf("invalid response json: %v", err)
	}
	if len(rsp.Sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(rsp.Sessions))
	}
	if len(rsp.Sessions[0].Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(rsp.Sessions[0].Messages))
	}
}
