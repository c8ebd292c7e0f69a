package transport

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHTTPSender_Send(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "tok_123", 5*time.Second)
	if err := s.Send(context.Background(), "+50688881234", "hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer tok_123" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody["to"] != "+50688881234" || gotBody["type"] != "text" {
		t.Fatalf("payload = %v", gotBody)
	}
	text, _ := gotBody["text"].(map[string]any)
	if text["body"] != "hello" {
		t.Fatalf("text = %v", text)
	}
}

func TestHTTPSender_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("provider unavailable"))
	}))
	defer srv.Close()

	s := NewHTTPSender(srv.URL, "tok", 5*time.Second)
	err := s.Send(context.Background(), "+1", "hi")
	if err == nil {
		t.Fatalf("502 accepted as success")
	}
	if !strings.Contains(err.Error(), "502") || !strings.Contains(err.Error(), "provider unavailable") {
		t.Fatalf("err = %v", err)
	}
}

func TestHTTPSender_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	s := NewHTTPSender(srv.URL, "tok", 5*time.Second)
	if err := s.Send(ctx, "+1", "hi"); err == nil {
		t.Fatalf("cancelled send returned nil")
	}
}
