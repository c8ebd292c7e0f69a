package billing

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestCreateCheckoutSession(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decode payload: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"url": "https://pay.example/cs_123"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test", "https://tallyup.example/thanks", 5*time.Second)
	url, err := c.CreateCheckoutSession(context.Background(), "+50688881234", "monthly")
	if err != nil {
		t.Fatalf("CreateCheckoutSession: %v", err)
	}
	if url != "https://pay.example/cs_123" {
		t.Fatalf("url = %q", url)
	}

	if gotPath != "/v1/checkout/sessions" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer sk_test" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody["identity"] != "+50688881234" || gotBody["cycle"] != "monthly" {
		t.Fatalf("payload = %v", gotBody)
	}
	if gotBody["success_url"] != "https://tallyup.example/thanks" {
		t.Fatalf("success_url = %v", gotBody["success_url"])
	}
}

func TestCreateCheckoutSession_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("bad api key"))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_bad", "", 5*time.Second)
	_, err := c.CreateCheckoutSession(context.Background(), "+1", "monthly")
	if err == nil {
		t.Fatalf("403 accepted as success")
	}
	if !strings.Contains(err.Error(), "403") {
		t.Fatalf("err = %v", err)
	}
}

func TestCreateCheckoutSession_MissingURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk_test", "", 5*time.Second)
	if _, err := c.CreateCheckoutSession(context.Background(), "+1", "monthly"); err == nil {
		t.Fatalf("empty checkout url accepted")
	}
}
