package pagination

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wetty/chat-backend/internal/models"
)

func TestClamp(t *testing.T) {
	require.Equal(t, 1, Clamp(0, 100))
	require.Equal(t, 1, Clamp(-5, 100))
	require.Equal(t, 1, Clamp(1, 100))
	require.Equal(t, 50, Clamp(50, 100))
	require.Equal(t, 100, Clamp(1000, 100))
}

func TestTrim_NoExtraRow(t *testing.T) {
	items, hasMore := Trim([]int{1, 2, 3}, 3)
	require.False(t, hasMore)
	require.Equal(t, []int{1, 2, 3}, items)
}

func TestTrim_ExtraRowMeansMore(t *testing.T) {
	items, hasMore := Trim([]int{1, 2, 3, 4}, 3)
	require.True(t, hasMore)
	require.Equal(t, []int{1, 2, 3}, items)
}

func TestNextCursor(t *testing.T) {
	key := func(id models.ID) models.ID { return id }

	cur := NextCursor([]models.ID{9, 8, 7}, true, key)
	require.NotNil(t, cur)
	require.Equal(t, models.ID(7), *cur)

	require.Nil(t, NextCursor([]models.ID{9, 8, 7}, false, key))
	require.Nil(t, NextCursor([]models.ID{}, true, key))
}

func ts(sec int64) *time.Time {
	t := time.Unix(sec, 0).UTC()
	return &t
}

func TestChatKey_ActivityOrdersBeforeID(t *testing.T) {
	newer := ChatKey{LastMessageAt: ts(200), ID: 1}
	older := ChatKey{LastMessageAt: ts(100), ID: 99}
	require.True(t, newer.SortsBefore(older))
	require.False(t, older.SortsBefore(newer))
}

func TestChatKey_NullActivitySortsLast(t *testing.T) {
	active := ChatKey{LastMessageAt: ts(1), ID: 1}
	silent := ChatKey{LastMessageAt: nil, ID: 999}
	require.True(t, active.SortsBefore(silent))
	require.False(t, silent.SortsBefore(active))
}

func TestChatKey_NullVsNullFallsBackToID(t *testing.T) {
	a := ChatKey{ID: 10}
	b := ChatKey{ID: 5}
	require.True(t, a.SortsBefore(b))
	require.False(t, b.SortsBefore(a))
}

func TestChatKey_TieBreaksOnID(t *testing.T) {
	a := ChatKey{LastMessageAt: ts(100), ID: 10}
	b := ChatKey{LastMessageAt: ts(100), ID: 5}
	require.True(t, a.SortsBefore(b))
}

// Walking pages with the cursor filter must visit every row exactly once,
// even when null and non-null activity timestamps are mixed.
func TestCursorWalkIsStableAndComplete(t *testing.T) {
	keys := []ChatKey{
		{LastMessageAt: ts(300), ID: 3},
		{LastMessageAt: ts(200), ID: 7},
		{LastMessageAt: ts(200), ID: 2},
		{LastMessageAt: ts(100), ID: 9},
		{LastMessageAt: nil, ID: 8},
		{LastMessageAt: nil, ID: 4},
		{LastMessageAt: nil, ID: 1},
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].SortsBefore(keys[j]) })

	const limit = 2
	var walked []models.ID
	var cursor *ChatKey
	for {
		var page []ChatKey
		for _, k := range keys {
			if cursor == nil || AfterCursor(k, *cursor) {
				page = append(page, k)
			}
			if len(page) == FetchLimit(limit) {
				break
			}
		}
		items, hasMore := Trim(page, limit)
		for _, k := range items {
			walked = append(walked, k.ID)
		}
		if !hasMore {
			break
		}
		last := items[len(items)-1]
		cursor = &last
	}

	require.Equal(t, []models.ID{3, 7, 2, 9, 8, 4, 1}, walked)
}
