package media

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfosync/nfosync/internal/config"
)

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestReplaceExt(t *testing.T) {
	assert.Equal(t, "/m/a.nfo", ReplaceExt("/m/a.mkv", ".nfo"))
	assert.Equal(t, "/m/a", ReplaceExt("/m/a.mkv", ""))
	assert.Equal(t, "/m/noext.nfo", ReplaceExt("/m/noext", ".nfo"))
}

func TestDecodeImageURL(t *testing.T) {
	assert.Equal(t, "http://img.example/a.jpg",
		DecodeImageURL("image://http%3a%2f%2fimg.example%2fa.jpg/"))
	assert.Equal(t, "/local/poster.jpg", DecodeImageURL("image:///local/poster.jpg/"))
	assert.Equal(t, "/plain/path.jpg", DecodeImageURL("/plain/path.jpg"))
}

func TestFindNFO(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.mkv")

	_, found := FindNFO(TypeMovie, file)
	assert.False(t, found, "no sidecar yet")

	touch(t, filepath.Join(dir, "a.nfo"))
	path, found := FindNFO(TypeMovie, file)
	require.True(t, found)
	assert.Equal(t, filepath.Join(dir, "a.nfo"), path)

	// movie.nfo wins when both exist.
	touch(t, filepath.Join(dir, "movie.nfo"))
	path, found = FindNFO(TypeMovie, file)
	require.True(t, found)
	assert.Equal(t, filepath.Join(dir, "movie.nfo"), path)
}

func TestFindNFOShowAndEpisode(t *testing.T) {
	dir := t.TempDir()

	showDir := filepath.Join(dir, "show")
	require.NoError(t, os.Mkdir(showDir, 0o755))
	_, found := FindNFO(TypeTVShow, showDir)
	assert.False(t, found)
	touch(t, filepath.Join(showDir, "tvshow.nfo"))
	path, found := FindNFO(TypeTVShow, showDir)
	require.True(t, found)
	assert.Equal(t, filepath.Join(showDir, "tvshow.nfo"), path)

	episode := filepath.Join(showDir, "s01e01.mkv")
	touch(t, filepath.Join(showDir, "s01e01.nfo"))
	path, found = FindNFO(TypeEpisode, episode)
	require.True(t, found)
	assert.Equal(t, filepath.Join(showDir, "s01e01.nfo"), path)
}

func TestCreateNFOPath(t *testing.T) {
	assert.Equal(t, "/m/movie.nfo", CreateNFOPath(TypeMovie, "/m/a.mkv", config.NamingMovie))
	assert.Equal(t, "/m/a.nfo", CreateNFOPath(TypeMovie, "/m/a.mkv", config.NamingFilename))
	assert.Equal(t, "/t/show/tvshow.nfo", CreateNFOPath(TypeTVShow, "/t/show", ""))
	assert.Equal(t, "/t/show/e1.nfo", CreateNFOPath(TypeEpisode, "/t/show/e1.mkv", ""))
}

func TestParseTypeRejectsUnknown(t *testing.T) {
	for _, s := range []string{"movie", "tvshow", "episode"} {
		got, err := ParseType(s)
		require.NoError(t, err)
		assert.Equal(t, Type(s), got)
	}
	_, err := ParseType("album")
	assert.Error(t, err)
	_, err = ParseType("movieset")
	assert.Error(t, err, "internal types are not valid bus input")
}
