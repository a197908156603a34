package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParamsSize(t *testing.T) {
	assert.Equal(t, DefaultLimit, Params{}.Size())
	assert.Equal(t, MaxLimit, Params{Limit: 1000}.Size())
	assert.Equal(t, 7, Params{Limit: 7}.Size())
}

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2026, 3, 1, 10, 30, 0, 123, time.UTC), ID: uuid.New()}
	got, err := Params{Cursor: c.String()}.Decode()
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.CreatedAt.Equal(c.CreatedAt))
	assert.Equal(t, c.ID, got.ID)

	first, err := Params{Cursor: "  "}.Decode()
	require.NoError(t, err)
	assert.Nil(t, first)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	for _, raw := range []string{"!!!", "bm8tc2VwYXJhdG9y", "eHx5"} {
		_, err := Params{Cursor: raw}.Decode()
		assert.ErrorIs(t, err, ErrInvalidCursor, raw)
	}
}

func TestTrim(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	type row struct {
		id uuid.UUID
		at time.Time
	}
	rows := []row{{uuid.New(), base.Add(3)}, {uuid.New(), base.Add(2)}, {uuid.New(), base.Add(1)}}
	key := func(r row) Cursor { return Cursor{CreatedAt: r.at, ID: r.id} }

	page, next := Trim(rows, Params{Limit: 2}, key)
	assert.Len(t, page, 2)
	assert.Equal(t, key(rows[1]).String(), next)

	page, next = Trim(rows, Params{Limit: 3}, key)
	assert.Len(t, page, 3)
	assert.Empty(t, next)
}
