package sqlite

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/pantry/pkg/types"
)

func seedItems(t *testing.T, b *Backend) []*types.Item {
	t.Helper()
	ctx := context.Background()
	inputs := []*types.Item{
		{Description: "Lasagna", Date: datePtr(2024, time.January, 1)},
		{Description: "Soup"},
		{Description: "Chili", Date: datePtr(2024, time.June, 15)},
	}
	var out []*types.Item
	for _, in := range inputs {
		created, err := b.Create(ctx)
		require.NoError(t, err)
		item, err := b.Update(ctx, created.ID, in)
		require.NoError(t, err)
		out = append(out, item)
	}
	return out
}

func TestExport_WritesOneItemPerLine(t *testing.T) {
	b := setupBackend(t)
	seedItems(t, b)

	var buf bytes.Buffer
	n, err := b.Export(context.Background(), &buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	want := `{"id":1,"description":"Lasagna","date":"2024-01-01"}
{"id":2,"description":"Soup","date":null}
{"id":3,"description":"Chili","date":"2024-06-15"}
`
	assert.Equal(t, want, buf.String())
}

func TestExportImport_RoundTrip(t *testing.T) {
	for _, name := range []string{"items.jsonl", "items.jsonl.zst"} {
		t.Run(name, func(t *testing.T) {
			src := setupBackend(t)
			items := seedItems(t, src)
			ctx := context.Background()

			path := filepath.Join(t.TempDir(), name)
			n, err := src.ExportFile(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, len(items), n)

			dst := setupBackend(t)
			n, err = dst.ImportFile(ctx, path)
			require.NoError(t, err)
			assert.Equal(t, len(items), n)

			all, err := dst.GetAll(ctx)
			require.NoError(t, err)
			assert.Equal(t, items, all)

			// Imported ids advance the sequence.
			next, err := dst.Create(ctx)
			require.NoError(t, err)
			assert.Equal(t, int64(len(items)+1), next.ID)
		})
	}
}

func TestExportFile_LeavesNoTempFiles(t *testing.T) {
	b := setupBackend(t)
	seedItems(t, b)

	dir := t.TempDir()
	_, err := b.ExportFile(context.Background(), filepath.Join(dir, "out.jsonl"))
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "out.jsonl", entries[0].Name())
}

func TestImport_SkipsMalformedLinesAndUpserts(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	_, err := b.Update(ctx, 2, &types.Item{Description: "old"})
	require.NoError(t, err)

	input := strings.Join([]string{
		`{"id":1,"description":"First Item","date":null}`,
		``,
		`not json at all`,
		`{"id":0,"description":"no id"}`,
		`{"id":2,"description":"Second Item","date":"2024-02-02"}`,
		`{"id":3,"description":"bad date","date":"2024-13-01"}`,
	}, "\n")

	n, err := b.Import(ctx, strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	all, err := b.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, []*types.Item{
		{ID: 1, Description: "First Item"},
		{ID: 2, Description: "Second Item", Date: datePtr(2024, time.February, 2)},
	}, all)
}

func TestImport_Empty(t *testing.T) {
	b := setupBackend(t)
	n, err := b.Import(context.Background(), strings.NewReader(""))
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestImport_WaitsOutHeldLock(t *testing.T) {
	b := setupBackend(t)
	ctx := context.Background()

	release := holdWriteLock(t, b)
	done := make(chan error, 1)
	go func() {
		_, err := b.Import(ctx, strings.NewReader(`{"id":9,"description":"late"}`))
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	release()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("import did not finish after lock was released")
	}

	got, err := b.Get(ctx, 9)
	require.NoError(t, err)
	assert.Equal(t, "late", got.Description)
}

func TestImportFile_Missing(t *testing.T) {
	b := setupBackend(t)
	_, err := b.ImportFile(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	assert.Error(t, err)
}
