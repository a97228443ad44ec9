package robot

import (
	"encoding/base64"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSign(t *testing.T) {
	// Calculated using: printf '<timestamp>\n<secret>' | openssl dgst -sha256 -hmac <secret> -binary | base64
	tests := []struct {
		name      string
		timestamp int64
		secret    string
		want      string
	}{
		{
			name:      "known vector",
			timestamp: 1620000000000,
			secret:    "testsecret",
			want:      "846npLi85VeTUVfiyW5GBHroWAA93Pw0Pun3ceF2bDo%3D",
		},
		{
			name:      "slashes are escaped",
			timestamp: 1620000000000,
			secret:    "othersecret",
			want:      "QnuMcXxgHOxE0VwqVNFh1n%2FSX82gQW5G8Se%2FXZYyUJ4%3D",
		},
		{
			name:      "millisecond precision",
			timestamp: 1700000000123,
			secret:    "SECabc",
			want:      "IqXBU%2FaLfwMA3S%2FtDcfRmHx5vWHw9Y1aOgFLBr1Ti9w%3D",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Sign(tt.timestamp, tt.secret)
			if got != tt.want {
				t.Errorf("Sign() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignProperties(t *testing.T) {
	const ts int64 = 1620000000000

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, Sign(ts, "testsecret"), Sign(ts, "testsecret"))
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		assert.NotEqual(t, Sign(ts, "secret1"), Sign(ts, "secret2"))
	})

	t.Run("different timestamps produce different signatures", func(t *testing.T) {
		assert.NotEqual(t, Sign(ts, "testsecret"), Sign(ts+1, "testsecret"))
	})

	t.Run("decodes to a sha256 digest", func(t *testing.T) {
		unescaped, err := url.QueryUnescape(Sign(ts, "testsecret"))
		require.NoError(t, err)
		digest, err := base64.StdEncoding.DecodeString(unescaped)
		require.NoError(t, err)
		assert.Len(t, digest, 32)
	})

	t.Run("empty secret still signs", func(t *testing.T) {
		assert.NotEmpty(t, Sign(ts, ""))
	})
}

func TestTimestamp(t *testing.T) {
	tests := []struct {
		name string
		in   time.Time
		want int64
	}{
		{
			name: "whole millisecond",
			in:   time.Unix(1620000000, 0),
			want: 1620000000000,
		},
		{
			name: "rounds up instead of truncating",
			in:   time.Unix(1620000000, 999_600_000),
			want: 1620000001000,
		},
		{
			name: "rounds down below half",
			in:   time.Unix(1620000000, 400_000),
			want: 1620000000000,
		},
		{
			name: "half rounds up",
			in:   time.Unix(1620000000, 500_000),
			want: 1620000000001,
		},
		{
			name: "ignores location",
			in:   time.Unix(1620000000, 123_456_789).In(time.FixedZone("CST", 8*60*60)),
			want: 1620000000123,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Timestamp(tt.in); got != tt.want {
				t.Errorf("Timestamp() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSignedURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		token    string
	}{
		{name: "plain endpoint", endpoint: DefaultEndpoint, token: "abc123"},
		{name: "endpoint with query", endpoint: DefaultEndpoint + "?debug=1", token: "abc123"},
		{name: "token needing escapes", endpoint: DefaultEndpoint, token: "a+b/c=d&e"},
	}

	const ts int64 = 1620000000000
	sign := Sign(ts, "othersecret")

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := url.Parse(signedURL(tt.endpoint, tt.token, ts, sign))
			require.NoError(t, err)

			q := u.Query()
			assert.Equal(t, tt.token, q.Get("access_token"))
			assert.Equal(t, "1620000000000", q.Get("timestamp"))
			assert.Equal(t, "QnuMcXxgHOxE0VwqVNFh1n/SX82gQW5G8Se/XZYyUJ4=", q.Get("sign"))
			assert.Equal(t, "oapi.dingtalk.com", u.Host)
			assert.Equal(t, "/robot/send", u.Path)
		})
	}
}
