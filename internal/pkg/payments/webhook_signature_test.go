package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signPayload(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts.Unix())
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"invoice_payment_succeeded"}`)
	secret := "whsec_topsecret"
	now := time.Unix(1700000000, 0)
	tolerance := 5 * time.Minute

	if !VerifyWebhookSignature(payload, signPayload(payload, secret, now), secret, tolerance, now) {
		t.Fatalf("expected valid signature to verify")
	}
	if !VerifyWebhookSignature(payload, signPayload(payload, secret, now.Add(-4*time.Minute)), secret, tolerance, now) {
		t.Fatalf("expected signature within tolerance to verify")
	}
}

func TestVerifyWebhookSignature_Rejections(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_topsecret"
	now := time.Unix(1700000000, 0)
	tolerance := 5 * time.Minute

	tests := []struct {
		name   string
		header string
		secret string
	}{
		{name: "missing header", header: "", secret: secret},
		{name: "empty secret", header: signPayload(payload, secret, now), secret: ""},
		{name: "garbage header", header: "not-a-signature", secret: secret},
		{name: "missing timestamp", header: "v1=deadbeef", secret: secret},
		{name: "non-numeric timestamp", header: "t=abc,v1=deadbeef", secret: secret},
		{name: "wrong secret", header: signPayload(payload, "whsec_other", now), secret: secret},
		{name: "stale timestamp", header: signPayload(payload, secret, now.Add(-6*time.Minute)), secret: secret},
		{name: "future timestamp", header: signPayload(payload, secret, now.Add(6*time.Minute)), secret: secret},
		{name: "non-hex signature", header: fmt.Sprintf("t=%d,v1=zzzz", now.Unix()), secret: secret},
	}

	for _, tt := range tests {
		if VerifyWebhookSignature(payload, tt.header, tt.secret, tolerance, now) {
			t.Fatalf("%s: expected verification to fail", tt.name)
		}
	}
}

func TestVerifyWebhookSignature_TamperedPayload(t *testing.T) {
	payload := []byte(`{"amount":1000}`)
	secret := "whsec_topsecret"
	now := time.Unix(1700000000, 0)

	header := signPayload(payload, secret, now)
	tampered := []byte(`{"amount":9999}`)
	if VerifyWebhookSignature(tampered, header, secret, 5*time.Minute, now) {
		t.Fatalf("expected tampered payload to fail verification")
	}
}

func TestVerifyWebhookSignature_SecondaryV1Accepted(t *testing.T) {
	payload := []byte(`{"id":"evt_1"}`)
	secret := "whsec_topsecret"
	now := time.Unix(1700000000, 0)

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", now.Unix())
	mac.Write(payload)
	valid := hex.EncodeToString(mac.Sum(nil))

	// Secret rollover: old signature first, current one second.
	header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(), "00"+valid[2:], valid)
	if !VerifyWebhookSignature(payload, header, secret, 5*time.Minute, now) {
		t.Fatalf("expected one matching v1 entry to be enough")
	}
}
