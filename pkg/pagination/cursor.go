// Package pagination implements keyset cursors over a (timestamp, id) sort
// key. Unlike numeric offsets, a keyset cursor never skips or repeats rows
// when new rows are inserted between page fetches.
package pagination

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrInvalidCursor = errors.New("invalid pagination cursor")

// Cursor identifies an exact position in a result set ordered by
// (timestamp, id). The id breaks ties between rows sharing a timestamp.
type Cursor struct {
	Timestamp time.Time
	ID        uuid.UUID
}

// Encode serializes the cursor into an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw := fmt.Sprintf("%s|%s", c.Timestamp.UTC().Format(time.RFC3339Nano), c.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// Decode parses a token produced by Encode.
func Decode(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	tsStr, idStr, ok := strings.Cut(string(raw), "|")
	if !ok {
		return Cursor{}, ErrInvalidCursor
	}

	ts, err := time.Parse(time.RFC3339Nano, tsStr)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}

	return Cursor{Timestamp: ts, ID: id}, nil
}
