package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// VerifyWebhookSignature checks the processor signature header against the raw
// request body. The header format is "t=<unix>,v1=<hex>", where v1 is an
// HMAC-SHA256 over "<t>.<body>" keyed with the shared signing secret. The
// timestamp must lie within tolerance of now to block replay of captured
// requests. Callers get a single yes/no; which part failed is never exposed.
func VerifyWebhookSignature(payload []byte, signatureHeader, webhookSecret string, tolerance time.Duration, now time.Time) bool {
	header := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if header == "" || secret == "" {
		return false
	}

	timestamp, signatures := parseSignatureHeader(header)
	if timestamp == 0 || len(signatures) == 0 {
		return false
	}

	ts := time.Unix(timestamp, 0)
	if ts.Before(now.Add(-tolerance)) || ts.After(now.Add(tolerance)) {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(payload)
	expected := mac.Sum(nil)

	for _, sig := range signatures {
		decoded, err := hex.DecodeString(strings.ToLower(sig))
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}

// parseSignatureHeader splits "t=...,v1=...,v1=..." into its parts. Multiple
// v1 entries are allowed so the processor can roll secrets without downtime.
func parseSignatureHeader(header string) (int64, []string) {
	var timestamp int64
	var signatures []string

	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return 0, nil
			}
			timestamp = ts
		case "v1":
			if v != "" {
				signatures = append(signatures, v)
			}
		}
	}
	return timestamp, signatures
}
