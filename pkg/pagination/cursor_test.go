package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	req := require.New(t)

	c := Cursor{
		Timestamp: time.Date(2026, 8, 1, 12, 30, 45, 123456789, time.UTC),
		ID:        uuid.New(),
	}

	decoded, err := Decode(c.Encode())
	req.NoError(err)
	req.True(decoded.Timestamp.Equal(c.Timestamp))
	req.Equal(c.ID, decoded.ID)
}

func TestCursorNormalizesToUTC(t *testing.T) {
	req := require.New(t)

	loc := time.FixedZone("UTC+2", 2*60*60)
	c := Cursor{
		Timestamp: time.Date(2026, 8, 1, 14, 0, 0, 0, loc),
		ID:        uuid.New(),
	}

	decoded, err := Decode(c.Encode())
	req.NoError(err)
	req.True(decoded.Timestamp.Equal(c.Timestamp))
}

func TestDecodeRejectsGarbage(t *testing.T) {
	req := require.New(t)

	for _, token := range []string{
		"",
		"not base64!!!",
		"bm8gc2VwYXJhdG9y",     // "no separator"
		"bm90LWEtdGltZXwxMjM",  // "not-a-time|123"
	} {
		_, err := Decode(token)
		req.ErrorIs(err, ErrInvalidCursor, "token %q", token)
	}
}

func TestDecodeRejectsBadUUID(t *testing.T) {
	req := require.New(t)

	c := Cursor{Timestamp: time.Now(), ID: uuid.New()}
	token := c.Encode()

	// Valid timestamp, mangled id part.
	raw := time.Now().UTC().Format(time.RFC3339Nano) + "|not-a-uuid"
	_, err := Decode(base64.RawURLEncoding.EncodeToString([]byte(raw)))
	req.ErrorIs(err, ErrInvalidCursor)

	_, err = Decode(token)
	req.NoError(err)
}
