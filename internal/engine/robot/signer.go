package robot

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Timestamp returns t as milliseconds since the Unix epoch, rounded to the
// nearest millisecond rather than truncated.
func Timestamp(t time.Time) int64 {
	return t.Round(time.Millisecond).UnixMilli()
}

// Sign computes the robot signature for a millisecond timestamp:
// urlencode(base64(HMAC-SHA256(secret, "{timestamp}\n{secret}"))).
func Sign(timestamp int64, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write([]byte(strconv.FormatInt(timestamp, 10) + "\n" + secret))
	return url.QueryEscape(base64.StdEncoding.EncodeToString(h.Sum(nil)))
}

// SignedRequest is the per-call signing state. It is never reused.
type SignedRequest struct {
	Timestamp int64
	Sign      string
	URL       string
	Body      []byte
}

// signedURL appends the credential query to endpoint. sign is already
// percent-encoded and is inserted verbatim.
func signedURL(endpoint, accessToken string, timestamp int64, sign string) string {
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}

	var b strings.Builder
	b.WriteString(endpoint)
	b.WriteString(sep)
	b.WriteString("access_token=")
	b.WriteString(url.QueryEscape(accessToken))
	b.WriteString("&timestamp=")
	b.WriteString(strconv.FormatInt(timestamp, 10))
	b.WriteString("&sign=")
	b.WriteString(sign)
	return b.String()
}
