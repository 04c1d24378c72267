// Package pagination implements keyset pagination over ordered rows.
//
// Pages are produced by fetching limit+1 rows strictly past the cursor's
// sort position, trimming to limit, and emitting the last returned row's id
// as the next cursor. Offsets are never used, so pages stay correct while
// rows are inserted or deleted concurrently.
package pagination

import (
	"time"

	"github.com/wetty/chat-backend/internal/models"
)

const (
	MaxChatsLimit    = 100
	MaxMessagesLimit = 100
)

// Epoch is the sentinel timestamp substituted for a missing sort key.
// Coalescing NULL to the epoch makes NULL-vs-NULL and NULL-vs-value
// comparisons total and consistent with NULLS LAST ordering.
var Epoch = time.Unix(0, 0).UTC()

// Clamp bounds a caller-supplied limit to [1, max]. Callers substitute max
// themselves when no limit was supplied at all.
func Clamp(requested, max int) int {
	if requested > max {
		return max
	}
	if requested < 1 {
		return 1
	}
	return requested
}

// FetchLimit is how many rows to ask the store for: one extra row tells us
// whether another page exists without a second query.
func FetchLimit(limit int) int { return limit + 1 }

// Trim applies the limit+1 rule to fetched rows: the page is at most limit
// items, and hasMore is true iff the store returned the extra row.
func Trim[T any](rows []T, limit int) (items []T, hasMore bool) {
	if len(rows) > limit {
		return rows[:limit], true
	}
	return rows, false
}

// NextCursor returns the id of the last item on the page when more rows
// exist, or nil when this is the final page.
func NextCursor[T any](items []T, hasMore bool, key func(T) models.ID) *models.ID {
	if !hasMore || len(items) == 0 {
		return nil
	}
	id := key(items[len(items)-1])
	return &id
}

// ChatKey is the composite sort key of the chat listing:
// (last_message_at DESC NULLS LAST, id DESC). LastMessageAt is nil for
// chats with no messages.
type ChatKey struct {
	LastMessageAt *time.Time
	ID            models.ID
}

func (k ChatKey) coalesced() time.Time {
	if k.LastMessageAt == nil {
		return Epoch
	}
	return *k.LastMessageAt
}

// SortsBefore reports whether k appears strictly before other in the chat
// listing order. A cursor at key c selects exactly the rows r for which
// c.SortsBefore(r) is false and r != c, i.e. (r.ts, r.id) < (c.ts, c.id)
// under epoch coalescing.
func (k ChatKey) SortsBefore(other ChatKey) bool {
	a, b := k.coalesced(), other.coalesced()
	if !a.Equal(b) {
		return a.After(b)
	}
	return k.ID > other.ID
}

// AfterCursor reports whether row belongs on pages after the cursor key.
func AfterCursor(row, cursor ChatKey) bool {
	return cursor.SortsBefore(row)
}
