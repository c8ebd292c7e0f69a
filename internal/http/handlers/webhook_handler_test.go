package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/jmfuentes/tallyup/internal/billing"
	"github.com/jmfuentes/tallyup/internal/domain"
	"github.com/jmfuentes/tallyup/internal/guard"
	"github.com/jmfuentes/tallyup/internal/intent"
	"github.com/jmfuentes/tallyup/internal/paywall"
	"github.com/jmfuentes/tallyup/internal/repo"
	"github.com/jmfuentes/tallyup/internal/services"
)

const webhookSecret = "whsec_test"

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestEngine(t *testing.T) (*gin.Engine, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	g := guard.New(db,
		guard.NewTTLCache(time.Minute),
		guard.NewSlidingLimiter(time.Minute, 100),
		guard.Options{SIDRetention: 48 * time.Hour, HashRetention: 30 * time.Second},
	)
	chat := &services.ChatService{
		DB:        db,
		Guard:     g,
		Resolver:  &intent.Resolver{},
		Paywall:   paywall.New(db, 100, 0, nil),
		Debts:     services.NewDebtService(db),
		TrialDays: 14,
	}
	billingSvc := &services.BillingService{DB: db, GraceLeeway: 72 * time.Hour}
	h := New(chat, billingSvc, webhookSecret, 5*time.Minute)

	r := gin.New()
	r.POST("/webhooks/whatsapp", h.PostInbound)
	r.POST("/webhooks/billing", h.PostBillingEvent)
	return r, db
}

func perform(r *gin.Engine, method, path string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("error body %q: %v", w.Body.String(), err)
	}
	return resp
}

func TestPostInbound_InvalidPayload(t *testing.T) {
	r, _ := newTestEngine(t)

	w := perform(r, http.MethodPost, "/webhooks/whatsapp", []byte("{not json"), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d; want 400", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeBadRequest {
		t.Fatalf("code = %q", resp.Code)
	}

	// "from" is required.
	w = perform(r, http.MethodPost, "/webhooks/whatsapp", []byte(`{"body":"hi"}`), nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing from: status = %d; want 400", w.Code)
	}
}

func TestPostInbound_ReturnsReply(t *testing.T) {
	r, _ := newTestEngine(t)

	body := []byte(`{"from":"whatsapp:+15550001","body":"debt maria 50","message_id":"SM1"}`)
	w := perform(r, http.MethodPost, "/webhooks/whatsapp", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; want 200 (%s)", w.Code, w.Body.String())
	}
	var resp inboundResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(resp.Reply, "Noted") {
		t.Fatalf("reply = %q", resp.Reply)
	}
}

func TestPostInbound_DuplicateDeliveryAcksSilently(t *testing.T) {
	r, _ := newTestEngine(t)

	body := []byte(`{"from":"whatsapp:+15550001","body":"debt maria 50","message_id":"SM1"}`)
	perform(r, http.MethodPost, "/webhooks/whatsapp", body, nil)

	w := perform(r, http.MethodPost, "/webhooks/whatsapp", body, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("replay status = %d; want 200", w.Code)
	}
	var resp inboundResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "" {
		t.Fatalf("replay reply = %q; want empty", resp.Reply)
	}
}

func signedHeaders(payload []byte) map[string]string {
	return map[string]string{signatureHeader: billing.Sign(payload, webhookSecret, time.Now())}
}

func TestPostBillingEvent_Valid(t *testing.T) {
	r, db := newTestEngine(t)
	if _, err := repo.UpsertUser(context.Background(), db, "+15550001"); err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"id":"evt_1","type":"checkout.session.completed",` +
		`"data":{"identity":"+15550001","subscription_id":"sub_1","cycle":"monthly"}}`)
	w := perform(r, http.MethodPost, "/webhooks/billing", payload, signedHeaders(payload))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d (%s); want 200", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"received":true`) {
		t.Fatalf("body = %q", w.Body.String())
	}

	u, err := repo.GetUser(context.Background(), db, "+15550001")
	if err != nil {
		t.Fatal(err)
	}
	if u.Plan != domain.PlanPro {
		t.Fatalf("plan = %q; want pro", u.Plan)
	}
}

func TestPostBillingEvent_BadSignature(t *testing.T) {
	r, _ := newTestEngine(t)
	payload := []byte(`{"id":"evt_1","type":"subscription.updated"}`)

	// No header at all.
	w := perform(r, http.MethodPost, "/webhooks/billing", payload, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("missing header: status = %d; want 401", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeUnauthorized {
		t.Fatalf("code = %q", resp.Code)
	}

	// Signed with the wrong secret.
	headers := map[string]string{signatureHeader: billing.Sign(payload, "other_secret", time.Now())}
	w = perform(r, http.MethodPost, "/webhooks/billing", payload, headers)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("wrong secret: status = %d; want 401", w.Code)
	}

	// Signed over different bytes than delivered.
	headers = signedHeaders([]byte(`{"id":"evt_1","type":"subscription.deleted"}`))
	w = perform(r, http.MethodPost, "/webhooks/billing", payload, headers)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("tampered body: status = %d; want 401", w.Code)
	}
}

func TestPostBillingEvent_BadEnvelope(t *testing.T) {
	r, _ := newTestEngine(t)

	for _, payload := range [][]byte{
		[]byte(`not json`),
		[]byte(`{"type":"subscription.updated"}`), // no event id
	} {
		w := perform(r, http.MethodPost, "/webhooks/billing", payload, signedHeaders(payload))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %q: status = %d; want 400", payload, w.Code)
		}
	}
}

func TestPostBillingEvent_ClaimFailure(t *testing.T) {
	r, db := newTestEngine(t)
	if err := db.Migrator().DropTable(&domain.BillingEvent{}); err != nil {
		t.Fatal(err)
	}

	payload := []byte(`{"id":"evt_1","type":"subscription.updated"}`)
	w := perform(r, http.MethodPost, "/webhooks/billing", payload, signedHeaders(payload))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d; want 500", w.Code)
	}
	if resp := decodeError(t, w); resp.Code != ErrCodeInternal {
		t.Fatalf("code = %q", resp.Code)
	}
}
