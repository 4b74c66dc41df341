package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultLimit is the standard page size when a limit is not provided.
	DefaultLimit = 20
	// MaxLimit caps how many rows any cursor query can request.
	MaxLimit = 100
)

// Params holds cursor pagination inputs from controllers or services.
type Params struct {
	Limit  int
	Cursor string
}

// RecencyCursor pages result sets ordered by (updated_at DESC, id DESC).
type RecencyCursor struct {
	UpdatedAt time.Time
	ID        uuid.UUID
}

// NameCursor pages result sets ordered by (name_lower ASC, id ASC).
type NameCursor struct {
	NameLower string
	ID        uuid.UUID
}

// NormalizeLimit enforces the configured default and maximum limits.
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	if limit > MaxLimit {
		return MaxLimit
	}
	return limit
}

// LimitWithBuffer returns the normalized limit plus one to detect a next page.
func LimitWithBuffer(limit int) int {
	return NormalizeLimit(limit) + 1
}

// EncodeRecencyCursor builds an opaque cursor from the last-seen row.
func EncodeRecencyCursor(cursor RecencyCursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.ID.String(), cursor.UpdatedAt.UTC().Format(time.RFC3339Nano))
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseRecencyCursor decodes a cursor produced by EncodeRecencyCursor.
// An empty cursor decodes to nil (first page).
func ParseRecencyCursor(value string) (*RecencyCursor, error) {
	id, rest, err := decodeCursor(value)
	if err != nil || id == uuid.Nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, rest)
	if err != nil {
		return nil, fmt.Errorf("invalid cursor timestamp: %w", err)
	}
	return &RecencyCursor{UpdatedAt: t, ID: id}, nil
}

// EncodeNameCursor builds an opaque cursor from the last-seen row. The id
// leads the payload so names containing the separator stay parseable.
func EncodeNameCursor(cursor NameCursor) string {
	payload := fmt.Sprintf("%s|%s", cursor.ID.String(), cursor.NameLower)
	return base64.StdEncoding.EncodeToString([]byte(payload))
}

// ParseNameCursor decodes a cursor produced by EncodeNameCursor.
func ParseNameCursor(value string) (*NameCursor, error) {
	id, rest, err := decodeCursor(value)
	if err != nil || id == uuid.Nil {
		return nil, err
	}
	return &NameCursor{NameLower: rest, ID: id}, nil
}

func decodeCursor(value string) (uuid.UUID, string, error) {
	if strings.TrimSpace(value) == "" {
		return uuid.Nil, "", nil
	}
	decoded, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("decode cursor: %w", err)
	}
	parts := strings.SplitN(string(decoded), "|", 2)
	if len(parts) != 2 {
		return uuid.Nil, "", fmt.Errorf("invalid cursor format")
	}
	id, err := uuid.Parse(parts[0])
	if err != nil {
		return uuid.Nil, "", fmt.Errorf("invalid cursor id: %w", err)
	}
	return id, parts[1], nil
}
