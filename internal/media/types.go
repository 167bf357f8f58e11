// Package media provides a read-through accessor over the host's video
// library RPC: enumeration, per-item detail/art/season fetches, checksum
// computation and sidecar path resolution.
package media

import "fmt"

// Type identifies a library media type.
type Type string

const (
	TypeMovie   Type = "movie"
	TypeTVShow  Type = "tvshow"
	TypeEpisode Type = "episode"

	// Internal types used for auxiliary fetches.
	typeMovieSet Type = "movieset"
	typeSeason   Type = "season"
)

// LibraryTypes is the fixed processing order for bulk actions.
var LibraryTypes = []Type{TypeMovie, TypeTVShow, TypeEpisode}

// ParseType validates a media type received from the bus or the CLI.
func ParseType(s string) (Type, error) {
	switch Type(s) {
	case TypeMovie, TypeTVShow, TypeEpisode:
		return Type(s), nil
	}
	return "", fmt.Errorf("unknown media type %q", s)
}

// Item identifies a single library entry. Equality is (Type, ID); File is the
// content path reported by the host and may be empty until fetched.
type Item struct {
	Type Type
	ID   uint32
	File string
}

// TypeInfo describes the host RPC surface for one media type.
type TypeInfo struct {
	DetailsMethod string
	ListMethod    string
	RefreshMethod string
	IDName        string
	Container     string
	ListContainer string
	Details       []string
}

var typeInfoTable = map[Type]TypeInfo{
	typeMovieSet: {
		DetailsMethod: "VideoLibrary.GetMovieSetDetails",
		IDName:        "setid",
		Container:     "setdetails",
		Details:       []string{"title", "plot"},
	},
	TypeMovie: {
		DetailsMethod: "VideoLibrary.GetMovieDetails",
		ListMethod:    "VideoLibrary.GetMovies",
		RefreshMethod: "VideoLibrary.RefreshMovie",
		IDName:        "movieid",
		Container:     "moviedetails",
		ListContainer: "movies",
		Details: []string{
			"title", "genre", "year", "director", "trailer", "tagline", "plot",
			"plotoutline", "originaltitle", "lastplayed", "playcount", "writer",
			"studio", "mpaa", "cast", "country", "runtime", "setid", "showlink",
			"streamdetails", "top250", "sorttitle", "dateadded", "tag",
			"userrating", "ratings", "premiered", "uniqueid",
		},
	},
	TypeTVShow: {
		DetailsMethod: "VideoLibrary.GetTVShowDetails",
		ListMethod:    "VideoLibrary.GetTVShows",
		RefreshMethod: "VideoLibrary.RefreshTVShow",
		IDName:        "tvshowid",
		Container:     "tvshowdetails",
		ListContainer: "tvshows",
		Details: []string{
			"title", "genre", "year", "plot", "studio", "mpaa", "cast", "playcount",
			"episode", "premiered", "lastplayed", "originaltitle",
			"sorttitle", "season", "dateadded", "tag", "userrating",
			"ratings", "runtime", "uniqueid",
		},
	},
	typeSeason: {
		DetailsMethod: "VideoLibrary.GetSeasonDetails",
		IDName:        "seasonid",
		Container:     "seasondetails",
		Details:       []string{"title", "season"},
	},
	TypeEpisode: {
		DetailsMethod: "VideoLibrary.GetEpisodeDetails",
		ListMethod:    "VideoLibrary.GetEpisodes",
		RefreshMethod: "VideoLibrary.RefreshEpisode",
		IDName:        "episodeid",
		Container:     "episodedetails",
		ListContainer: "episodes",
		Details: []string{
			"title", "plot", "writer", "firstaired", "playcount", "runtime",
			"director", "season", "episode", "originaltitle", "showtitle", "cast",
			"streamdetails", "lastplayed", "dateadded", "uniqueid",
			"specialsortseason", "specialsortepisode", "userrating", "ratings",
		},
	},
}

// Info returns the RPC descriptor for a media type.
func (t Type) Info() TypeInfo {
	return typeInfoTable[t]
}
