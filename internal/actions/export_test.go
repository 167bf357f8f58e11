package actions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfosync/nfosync/internal/media"
)

func scriptMovie(host *fakeHost, details map[string]any) {
	host.respond("VideoLibrary.GetMovieDetails", map[string]any{"moviedetails": details})
	host.respond("VideoLibrary.GetAvailableArt", map[string]any{"availableart": []any{}})
	host.respond("Files.GetFileDetails", map[string]any{
		"filedetails": map[string]any{"lastmodified": "2024-03-01T12:00:00"},
	})
}

func TestExportOneCreatesSidecar(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.mkv")
	item := media.Item{Type: media.TypeMovie, ID: 1, File: file}

	host := newFakeHost()
	scriptMovie(host, map[string]any{
		"title":     "A Movie",
		"playcount": 2,
		"setid":     0,
		"movieid":   1,
		"label":     "A Movie",
	})
	env := newTestEnv(t, host)

	done, err := NewExportOne(env.Env, item).Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, done)

	nfoPath := filepath.Join(dir, "a.nfo")
	data, err := os.ReadFile(nfoPath)
	require.NoError(t, err, "sidecar created next to the file")
	assert.Contains(t, string(data), "<movie>")
	assert.Contains(t, string(data), "<title>A Movie</title>")
	assert.Contains(t, string(data), "<playcount>2</playcount>")
	assert.Contains(t, string(data), "<watched>true</watched>")
	assert.Contains(t, string(data), "Created ")

	checksum, ok := env.LastKnown.Checksum(media.TypeMovie, 1)
	require.True(t, ok)
	assert.Equal(t, currentChecksum(t, env.Env, item), checksum)

	mtime, ok := env.LastKnown.Timestamp(media.TypeMovie, 1)
	require.True(t, ok)
	assert.True(t, mtime.Equal(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)))

	// Standalone exports flush the store right away.
	_, err = os.Stat(filepath.Join(env.profileDir, "movies.dat"))
	assert.NoError(t, err)
}

func TestExportOneFailsGracefullyWhenCreationDisabled(t *testing.T) {
	dir := t.TempDir()
	item := media.Item{Type: media.TypeMovie, ID: 1, File: filepath.Join(dir, "a.mkv")}

	host := newFakeHost()
	scriptMovie(host, map[string]any{"title": "A Movie", "setid": 0})
	env := newTestEnv(t, host)
	env.settings.Export.CanCreateNFO = false

	a := NewExportOne(env.Env, item)
	done, err := a.Run(context.Background(), nil)
	require.NoError(t, err, "export failures are graceful")
	assert.True(t, done)
	assert.True(t, a.Failed())
	assert.Equal(t, []int{CodeExportFailed}, env.notifier.codes)

	_, ok := env.LastKnown.Checksum(media.TypeMovie, 1)
	assert.False(t, ok, "failed export records nothing")
}

func TestExportOneSubtaskDoesNotNotify(t *testing.T) {
	dir := t.TempDir()
	item := media.Item{Type: media.TypeMovie, ID: 1, File: filepath.Join(dir, "a.mkv")}

	host := newFakeHost()
	scriptMovie(host, map[string]any{"title": "A Movie", "setid": 0})
	env := newTestEnv(t, host)
	env.settings.Export.CanCreateNFO = false

	a := newExportOneSubtask(env.Env, env.Gateway.NewInfo(item), nil)
	done, err := a.Run(context.Background(), nil)
	require.NoError(t, err)
	assert.True(t, done)
	assert.True(t, a.Failed())
	assert.Empty(t, env.notifier.codes, "subtask failures report through the parent")
}

func TestExportOneMinimalMode(t *testing.T) {
	dir := t.TempDir()
	item := media.Item{Type: media.TypeMovie, ID: 1, File: filepath.Join(dir, "a.mkv")}

	host := newFakeHost()
	scriptMovie(host, map[string]any{
		"title":      "A Movie",
		"playcount":  1,
		"lastplayed": "2024-02-02 20:00:00",
		"setid":      0,
	})
	env := newTestEnv(t, host)
	env.settings.Export.IsMinimal = true

	done, err := NewExportOne(env.Env, item).Run(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, done)

	data, err := os.ReadFile(filepath.Join(dir, "a.nfo"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "<playcount>1</playcount>")
	assert.Contains(t, string(data), "<lastplayed>2024-02-02 20:00:00</lastplayed>")
	assert.NotContains(t, string(data), "<title>", "minimal mode writes watched state only")
}
