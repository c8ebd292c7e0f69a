package billing

import (
	"errors"
	"strings"
	"testing"
	"time"
)

const testSecret = "whsec_test"

func TestVerifySignature_Valid(t *testing.T) {
	now := time.Now()
	payload := []byte(`{"id":"evt_1","type":"subscription.updated"}`)
	header := Sign(payload, testSecret, now)

	if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
		t.Fatalf("valid signature rejected: %v", err)
	}
	// Skew inside the tolerance is fine in both directions.
	if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now.Add(4*time.Minute)); err != nil {
		t.Fatalf("late delivery rejected: %v", err)
	}
	if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now.Add(-4*time.Minute)); err != nil {
		t.Fatalf("clock-ahead delivery rejected: %v", err)
	}
}

func TestVerifySignature_Stale(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, now.Add(-10*time.Minute))

	err := VerifySignature(payload, header, testSecret, 5*time.Minute, now)
	if !errors.Is(err, ErrStaleSignature) {
		t.Fatalf("err = %v; want ErrStaleSignature", err)
	}
}

func TestVerifySignature_WrongSecret(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := Sign(payload, "other_secret", now)

	err := VerifySignature(payload, header, testSecret, 5*time.Minute, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v; want ErrBadSignature", err)
	}
}

func TestVerifySignature_TamperedPayload(t *testing.T) {
	now := time.Now()
	header := Sign([]byte(`{"amount":9}`), testSecret, now)

	err := VerifySignature([]byte(`{"amount":9000}`), header, testSecret, 5*time.Minute, now)
	if !errors.Is(err, ErrBadSignature) {
		t.Fatalf("err = %v; want ErrBadSignature", err)
	}
}

func TestVerifySignature_MalformedHeaders(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	for _, header := range []string{"", "v1=abc", "t=123", "t=abc,v1=def", "garbage"} {
		err := VerifySignature(payload, header, testSecret, 5*time.Minute, now)
		if !errors.Is(err, ErrMissingSignature) {
			t.Fatalf("header %q err = %v; want ErrMissingSignature", header, err)
		}
	}
}

func TestVerifySignature_IgnoresUnknownElements(t *testing.T) {
	now := time.Now()
	payload := []byte(`{}`)
	header := Sign(payload, testSecret, now) + ",v2=future"
	if !strings.Contains(header, "v1=") {
		t.Fatalf("test header malformed: %q", header)
	}
	if err := VerifySignature(payload, header, testSecret, 5*time.Minute, now); err != nil {
		t.Fatalf("forward-compatible header rejected: %v", err)
	}
}
