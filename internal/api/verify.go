package api

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// signatureWindow bounds how stale a signed request may be before it is
// rejected as a possible replay.
const signatureWindow = 5 * time.Minute

const maxSignedBodyBytes = 1 << 20

// verifySlackSignature checks the v0 HMAC-SHA256 request signature and
// returns the raw body for downstream parsing. The request body is
// replaced so handlers can read it again.
func verifySlackSignature(r *http.Request, secret string, now time.Time) ([]byte, error) {
	timestamp := r.Header.Get("X-Slack-Request-Timestamp")
	signature := r.Header.Get("X-Slack-Signature")
	if timestamp == "" || signature == "" {
		return nil, fmt.Errorf("missing signature headers")
	}

	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid timestamp")
	}
	age := now.Sub(time.Unix(ts, 0))
	if age > signatureWindow || age < -signatureWindow {
		return nil, fmt.Errorf("stale request timestamp")
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSignedBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
	expected := "v0=" + hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return nil, fmt.Errorf("signature mismatch")
	}
	return body, nil
}
