// Package signature implements HMAC-SHA256 request signing and verification
// for tool webhooks, including timestamp-bound replay protection.
//
// The signed message is the exact byte string "<timestamp>.<raw body>" — the
// unverified body as received on the wire, never a re-serialized form. The
// signature travels as "sha256=<hex>" in the x-fo-signature header, with the
// unix-seconds timestamp in x-fo-timestamp.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// Header names used on the wire.
const (
	SignatureHeader = "x-fo-signature"
	TimestampHeader = "x-fo-timestamp"
)

// sigPrefix is the scheme tag carried in the signature header.
const sigPrefix = "sha256="

// Replay window bounds. A request older than MaxAge is rejected as a
// potential replay; one claiming to originate more than MaxSkew in the
// future is rejected while still tolerating minor clock skew. The
// asymmetry is intentional.
const (
	MaxAge  = 5 * time.Minute
	MaxSkew = 60 * time.Second
)

// Kind identifies the cause of a verification failure. Callers branch on
// Kind only; the message text is for logs.
type Kind int

const (
	KindMissingHeader Kind = iota + 1
	KindInvalidTimestamp
	KindStaleOrFutureTimestamp
	KindInvalidSignature
)

// String returns a stable name for the failure kind.
func (k Kind) String() string {
	switch k {
	case KindMissingHeader:
		return "missing_header"
	case KindInvalidTimestamp:
		return "invalid_timestamp"
	case KindStaleOrFutureTimestamp:
		return "stale_or_future_timestamp"
	case KindInvalidSignature:
		return "invalid_signature"
	default:
		return "unknown"
	}
}

// VerificationError reports why a signed request was rejected.
type VerificationError struct {
	Kind    Kind
	Message string
}

func (e *VerificationError) Error() string {
	return e.Message
}

// Signed is the output of Sign: header values ready to attach to a request.
type Signed struct {
	Signature string
	Timestamp int64
}

// Sign computes the signature header values for body under secret.
// The timestamp is truncated to integer seconds. Pure function of its
// inputs; safe for concurrent use.
func Sign(body []byte, secret string, now time.Time) Signed {
	ts := now.Unix()
	return Signed{
		Signature: sigPrefix + hex.EncodeToString(computeMAC(body, secret, ts)),
		Timestamp: ts,
	}
}

// Verify checks a signature header against the raw request body.
//
// Failure order is fixed: missing headers are reported before the timestamp
// is parsed, the replay window is enforced before any HMAC is computed, and
// the final comparison is constant-time over the decoded MAC bytes. Returns
// nil on success, a *VerificationError otherwise. Never logs or includes the
// secret in error text.
func Verify(body []byte, sigHeader, tsHeader, secret string, now time.Time) *VerificationError {
	if sigHeader == "" || tsHeader == "" {
		return &VerificationError{Kind: KindMissingHeader, Message: "missing signature or timestamp header"}
	}

	ts, err := strconv.ParseInt(strings.TrimSpace(tsHeader), 10, 64)
	if err != nil {
		return &VerificationError{Kind: KindInvalidTimestamp, Message: "timestamp header is not an integer"}
	}

	ageMs := now.UnixMilli() - ts*1000
	if ageMs > MaxAge.Milliseconds() || ageMs < -MaxSkew.Milliseconds() {
		return &VerificationError{Kind: KindStaleOrFutureTimestamp, Message: "timestamp outside accepted window"}
	}

	received, ok := decodeSignature(sigHeader)
	if !ok {
		return &VerificationError{Kind: KindInvalidSignature, Message: "signature verification failed"}
	}

	expected := computeMAC(body, secret, ts)

	// subtle.ConstantTimeCompare returns 0 for length mismatches, so a
	// truncated signature fails the same way as a wrong one.
	if subtle.ConstantTimeCompare(expected, received) != 1 {
		return &VerificationError{Kind: KindInvalidSignature, Message: "signature verification failed"}
	}

	return nil
}

// computeMAC computes HMAC-SHA256(secret, "<ts>.<body>").
func computeMAC(body []byte, secret string, ts int64) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte{'.'})
	mac.Write(body)
	return mac.Sum(nil)
}

// decodeSignature strips the "sha256=" tag and decodes the hex payload.
func decodeSignature(header string) ([]byte, bool) {
	if !strings.HasPrefix(header, sigPrefix) {
		return nil, false
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(header, sigPrefix))
	if err != nil {
		return nil, false
	}
	return raw, true
}
