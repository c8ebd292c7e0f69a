// Package billing is the client side of the billing-processor collaborator:
// verification of signed webhook envelopes and hosted-checkout session
// creation.
//
// This file implements signature verification for inbound event
// notifications. The processor signs each delivery with
//
//	Signature: t=<unix>,v1=<hex hmac-sha256 of "<unix>.<raw body>">
//
// Verification is the one place an inbound request is hard-rejected instead
// of soft-degraded: an unverifiable envelope must not reach the event gate.
package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"strings"
	"time"
)

// Signature verification errors.
var (
	ErrMissingSignature = errors.New("billing: missing or malformed signature header")
	ErrStaleSignature   = errors.New("billing: signed timestamp outside tolerance")
	ErrBadSignature     = errors.New("billing: signature mismatch")
)

// VerifySignature checks header against payload using the shared secret.
// The signed timestamp must be within tolerance of now; this bounds replay of
// captured deliveries without requiring any storage.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration, now time.Time) error {
	ts, sig, err := parseSignatureHeader(header)
	if err != nil {
		return err
	}

	skew := now.Sub(time.Unix(ts, 0))
	if skew < 0 {
		skew = -skew
	}
	if skew > tolerance {
		return ErrStaleSignature
	}

	expected := computeSignature(payload, secret, ts)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces a valid header for payload at the given time. Used by the
// test suite and local tooling; the processor does this on its side.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := at.Unix()
	return "t=" + strconv.FormatInt(ts, 10) + ",v1=" + computeSignature(payload, secret, ts)
}

// computeSignature returns hex(hmac-sha256(secret, "<ts>.<payload>")).
func computeSignature(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// parseSignatureHeader extracts the timestamp and v1 signature from the
// comma-separated header. Unknown elements are ignored for forward
// compatibility.
func parseSignatureHeader(header string) (ts int64, sig string, err error) {
	for _, part := range strings.Split(header, ",") {
		k, v, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch k {
		case "t":
			ts, err = strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, "", ErrMissingSignature
			}
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return 0, "", ErrMissingSignature
	}
	return ts, sig, nil
}
