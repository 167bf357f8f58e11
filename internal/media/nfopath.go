package media

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/nfosync/nfosync/internal/config"
)

// ReplaceExt swaps a path's extension, "" strips it.
func ReplaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

// DecodeImageURL unwraps the host's image:// URL encoding to the underlying
// artwork path.
func DecodeImageURL(path string) string {
	decoded := strings.Replace(path, "image://", "", 1)
	decoded = strings.TrimSuffix(decoded, "/")
	if unescaped, err := url.PathUnescape(decoded); err == nil {
		decoded = unescaped
	}
	return decoded
}

// MovieNFOPath returns the well-known movie sidecar path next to the file.
func MovieNFOPath(file string) string {
	return filepath.Join(filepath.Dir(file), "movie.nfo")
}

// MovieFilenameNFOPath returns the filename-derived movie sidecar path.
func MovieFilenameNFOPath(file string) string {
	return ReplaceExt(file, ".nfo")
}

// TVShowNFOPath returns the show sidecar path inside the show directory.
func TVShowNFOPath(dir string) string {
	return filepath.Join(dir, "tvshow.nfo")
}

// EpisodeNFOPath returns the episode sidecar path next to the episode file.
func EpisodeNFOPath(file string) string {
	return ReplaceExt(file, ".nfo")
}

// FindNFO resolves the existing sidecar for an item, if any. Movies prefer
// movie.nfo over <basename>.nfo when both exist.
func FindNFO(t Type, file string) (string, bool) {
	switch t {
	case TypeMovie:
		if path := MovieNFOPath(file); fileExists(path) {
			return path, true
		}
		if path := MovieFilenameNFOPath(file); fileExists(path) {
			return path, true
		}
	case TypeTVShow:
		if path := TVShowNFOPath(file); fileExists(path) {
			return path, true
		}
	case TypeEpisode:
		if path := EpisodeNFOPath(file); fileExists(path) {
			return path, true
		}
	}
	return "", false
}

// CreateNFOPath chooses the sidecar path for an item that has none yet.
// Movie naming follows the export.movieNfoNaming setting.
func CreateNFOPath(t Type, file string, naming config.MovieNFONaming) string {
	switch t {
	case TypeMovie:
		if naming == config.NamingMovie {
			return MovieNFOPath(file)
		}
		return MovieFilenameNFOPath(file)
	case TypeTVShow:
		return TVShowNFOPath(file)
	default:
		return EpisodeNFOPath(file)
	}
}

func fileExists(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}
