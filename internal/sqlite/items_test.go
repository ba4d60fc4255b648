// Tests for item CRUD on the SQLite backend.
package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func datePtr(year int, month time.Month, day int) *types.Date {
	d := types.NewDate(year, month, day)
	return &d
}

func TestItems_LasagnaScenario(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	created, err := b.Create(ctx)
	require.NoError(t, err)
	assert.Equal(t, &types.Item{ID: 1, Description: "", Date: nil}, created)

	want := &types.Item{ID: 1, Description: "Lasagna", Date: datePtr(2024, time.January, 1)}
	updated, err := b.Update(ctx, 1, want)
	require.NoError(t, err)
	assert.Equal(t, want, updated)

	got, err := b.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	deleted, err := b.Delete(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, want, deleted)

	_, err = b.Get(ctx, 1)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestItems_GetReturnsCreated(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	for range 5 {
		created, err := b.Create(ctx)
		require.NoError(t, err)
		assert.Positive(t, created.ID)
		assert.Empty(t, created.Description)
		assert.Nil(t, created.Date)

		got, err := b.Get(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, created, got)
	}
}

func TestItems_DeleteIsNotFoundIdempotent(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	created, err := b.Create(ctx)
	require.NoError(t, err)

	_, err = b.Delete(ctx, created.ID)
	require.NoError(t, err)

	_, err = b.Get(ctx, created.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = b.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestItems_UpsertLaw(t *testing.T) {
	tests := []struct {
		name      string
		preCreate bool
		id        int64
		input     *types.Item
	}{
		{
			name:      "existing id",
			preCreate: true,
			id:        1,
			input:     &types.Item{ID: 1, Description: "Soup", Date: datePtr(2024, time.March, 3)},
		},
		{
			name:  "absent id is created",
			id:    42,
			input: &types.Item{ID: 42, Description: "Chili"},
		},
		{
			name:  "body id is overridden by the supplied id",
			id:    7,
			input: &types.Item{ID: 999, Description: "Curry", Date: datePtr(2023, time.December, 31)},
		},
		{
			name:      "clearing the date",
			preCreate: true,
			id:        1,
			input:     &types.Item{ID: 1, Description: "No date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := setupBackend(t)
			ctx := context.Background()

			if tt.preCreate {
				_, err := b.Create(ctx)
				require.NoError(t, err)
				_, err = b.Update(ctx, tt.id, &types.Item{Description: "before", Date: datePtr(2020, time.May, 5)})
				require.NoError(t, err)
			}

			orig := tt.input.Clone()
			want := tt.input.Clone()
			want.ID = tt.id

			updated, err := b.Update(ctx, tt.id, tt.input)
			require.NoError(t, err)
			assert.Equal(t, want, updated)

			got, err := b.Get(ctx, tt.id)
			require.NoError(t, err)
			assert.Equal(t, want, got)

			// The caller's value is not modified.
			assert.Equal(t, orig, tt.input)
		})
	}
}

func TestItems_GetAllAfterCreatesAndDeletes(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	all, err := b.GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	const n = 10
	ids := make([]int64, 0, n)
	for i := range n {
		created, err := b.Create(ctx)
		require.NoError(t, err)
		_, err = b.Update(ctx, created.ID, &types.Item{Description: string(rune('a' + i))})
		require.NoError(t, err)
		ids = append(ids, created.ID)
	}

	deleted := map[int64]bool{}
	for _, id := range ids[:4] {
		_, err := b.Delete(ctx, id)
		require.NoError(t, err)
		deleted[id] = true
	}

	all, err = b.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, n-4)
	for _, item := range all {
		assert.False(t, deleted[item.ID], "deleted item %d returned", item.ID)
		assert.Equal(t, string(rune('a'+int(item.ID)-1)), item.Description)
	}
}

func TestItems_IDsAreNotReused(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	first, err := b.Create(ctx)
	require.NoError(t, err)
	_, err = b.Delete(ctx, first.ID)
	require.NoError(t, err)

	second, err := b.Create(ctx)
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	// An explicit upsert past the sequence moves the sequence forward.
	_, err = b.Update(ctx, 100, &types.Item{Description: "far"})
	require.NoError(t, err)
	third, err := b.Create(ctx)
	require.NoError(t, err)
	assert.Greater(t, third.ID, int64(100))
}

func TestItems_InvalidInput(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	for _, id := range []int64{0, -1} {
		_, err := b.Get(ctx, id)
		assert.ErrorIs(t, err, types.ErrInvalidID)
		_, err = b.Update(ctx, id, &types.Item{})
		assert.ErrorIs(t, err, types.ErrInvalidID)
		_, err = b.Delete(ctx, id)
		assert.ErrorIs(t, err, types.ErrInvalidID)
	}

	_, err := b.Update(ctx, 1, nil)
	assert.ErrorIs(t, err, types.ErrInvalidData)

	bad := types.Date{Year: 2024, Month: time.February, Day: 30}
	_, err = b.Update(ctx, 1, &types.Item{Date: &bad})
	assert.ErrorIs(t, err, types.ErrInvalidData)
	assert.ErrorIs(t, err, types.ErrInvalidDate)

	for _, year := range []int{10000, -5} {
		far := types.NewDate(year, time.January, 1)
		_, err = b.Update(ctx, 1, &types.Item{Date: &far})
		assert.ErrorIs(t, err, types.ErrInvalidData, "year %d", year)
	}

	_, err = b.Get(ctx, 1)
	assert.ErrorIs(t, err, types.ErrNotFound, "rejected update must not write")

	all, err := b.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestItems_CancelledContextFailsAcquisition(t *testing.T) {
	b := setupBackend(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Create(ctx)
	assert.ErrorIs(t, err, types.ErrPoolFault)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNullDateScan(t *testing.T) {
	tests := []struct {
		name      string
		value     any
		want      nullDate
		wantError bool
	}{
		{name: "null", value: nil, want: nullDate{}},
		{name: "text", value: "2024-01-01", want: nullDate{Date: types.NewDate(2024, time.January, 1), Valid: true}},
		{name: "bytes", value: []byte("1999-12-31"), want: nullDate{Date: types.NewDate(1999, time.December, 31), Valid: true}},
		{name: "time", value: time.Date(2024, time.July, 4, 0, 0, 0, 0, time.UTC), want: nullDate{Date: types.NewDate(2024, time.July, 4), Valid: true}},
		{name: "bad text", value: "yesterday", wantError: true},
		{name: "integer", value: int64(20240101), wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got nullDate
			err := got.Scan(tt.value)
			if tt.wantError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
