package domain

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Cursor points at the last record of a page, by (published_at, id).
type Cursor struct {
	PublishedAt int64 `json:"p"`
	ID          int64 `json:"i"`
}

// CursorAfter builds the cursor that continues after rec.
func CursorAfter(rec ArticleRecord) *Cursor {
	return &Cursor{PublishedAt: rec.PublishedAt.Unix(), ID: rec.ID}
}

// EncodeCursor converts a Cursor to an opaque base64 token.
func EncodeCursor(c *Cursor) (string, error) {
	if c == nil {
		return "", nil
	}
	if c.ID <= 0 {
		return "", fmt.Errorf("%w: id must be positive", ErrInvalidCursor)
	}

	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// DecodeCursor parses a token produced by EncodeCursor. An empty token means
// "start from the newest record" and yields a nil cursor.
func DecodeCursor(s string) (*Cursor, error) {
	if s == "" {
		return nil, nil
	}

	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode cursor: %v", ErrInvalidCursor, err)
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal cursor: %v", ErrInvalidCursor, err)
	}
	if c.ID <= 0 {
		return nil, fmt.Errorf("%w: id must be positive", ErrInvalidCursor)
	}

	return &c, nil
}
