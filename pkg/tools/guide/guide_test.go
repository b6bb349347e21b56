package guide

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildTestIndex(t *testing.T) *Index {
	t.Helper()
	dir := t.TempDir()

	write := func(name, content string) {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	write("lisbon.txt", `Lisbon rewards walking. The Alfama district
is best explored on foot in the early morning.

Tram 28 gets crowded by noon. Ride it before nine
or skip it for the E15 along the river.

Pasteis de nata are everywhere but the originals
come from the bakery in Belem.`)
	write("porto.txt", `Porto port cellars cluster on the Gaia side
of the river. Book a tasting ahead in summer.`)
	write("notes.md", "ignored, wrong extension")

	ix, err := Open(filepath.Join(dir, "guide.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ix.Close() })

	n, err := ix.BuildFromDir(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, 4, n)
	return ix
}

func TestRetrieveTipsRanksByOverlap(t *testing.T) {
	ix := buildTestIndex(t)

	tips, err := ix.RetrieveTips(context.Background(), "should I ride the tram before noon", 2)
	require.NoError(t, err)
	require.NotEmpty(t, tips)
	assert.Contains(t, tips[0].Content, "Tram 28")
	assert.Equal(t, "lisbon.txt", tips[0].Source)
	assert.LessOrEqual(t, len(tips), 2)
}

func TestRetrieveTipsNoOverlap(t *testing.T) {
	ix := buildTestIndex(t)

	tips, err := ix.RetrieveTips(context.Background(), "zzyzx quux", 3)
	require.NoError(t, err)
	assert.Empty(t, tips)
}

func TestRetrieveTipsDefaultCount(t *testing.T) {
	ix := buildTestIndex(t)

	tips, err := ix.RetrieveTips(context.Background(), "river", 0)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(tips), DefaultTipCount)
	assert.NotEmpty(t, tips)
}

func TestRebuildReplacesPassages(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte("First passage about beaches."), 0o644))

	ix, err := Open(filepath.Join(dir, "guide.db"))
	require.NoError(t, err)
	defer ix.Close()

	ctx := context.Background()
	n, err := ix.BuildFromDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"),
		[]byte("Replacement passage about museums."), 0o644))
	n, err = ix.BuildFromDir(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	tips, err := ix.RetrieveTips(ctx, "beaches", 3)
	require.NoError(t, err)
	assert.Empty(t, tips)
}

func TestTool(t *testing.T) {
	ix := buildTestIndex(t)
	tool := Tool(ix)
	assert.Equal(t, "travel_guide", tool.Name)

	out, err := tool.Call(context.Background(),
		json.RawMessage(`{"query":"port cellars in Porto"}`))
	require.NoError(t, err)

	var tips []Tip
	require.NoError(t, json.Unmarshal([]byte(out), &tips))
	require.NotEmpty(t, tips)
	assert.Equal(t, "porto.txt", tips[0].Source)

	out, err = tool.Call(context.Background(),
		json.RawMessage(`{"query":"zzyzx"}`))
	require.NoError(t, err)
	assert.Contains(t, out, "no guide entries")

	_, err = tool.Call(context.Background(), json.RawMessage(`nope`))
	assert.Error(t, err)
}
