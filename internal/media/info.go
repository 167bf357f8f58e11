package media

import (
	"context"
	"encoding/json"
	"hash/crc32"
)

// Art is one available artwork entry for an item.
type Art struct {
	ArtType    string `json:"arttype"`
	URL        string `json:"url"`
	PreviewURL string `json:"previewurl,omitempty"`
}

// SetInfo is the movie-set detail pair exported into <set>.
type SetInfo struct {
	Title string `json:"title"`
	Plot  string `json:"plot"`
}

// SeasonInfo carries one season's details and artwork for tvshow exports.
type SeasonInfo struct {
	Details map[string]any
	Art     []Art
}

// Info is a lazily populated view of one library item. The first accessor
// call fetches details, art and the type-specific extras in a fixed order and
// caches them for the lifetime of the object; the checksum is CRC32 over the
// concatenated raw host responses in that same order, which makes it
// sensitive to any host-visible change.
type Info struct {
	Item Item

	gw     *Gateway
	loaded bool

	details  map[string]any
	art      []Art
	movieset *SetInfo
	seasons  map[int]SeasonInfo
	checksum uint32
}

// NewInfo wraps an item for lazy detail access.
func (g *Gateway) NewInfo(item Item) *Info {
	return &Info{Item: item, gw: g}
}

// File returns the item's content path, fetching it if unknown.
func (i *Info) File(ctx context.Context) (string, error) {
	if i.Item.File == "" {
		file, err := i.gw.File(ctx, i.Item.Type, i.Item.ID)
		if err != nil {
			return "", err
		}
		i.Item.File = file
	}
	return i.Item.File, nil
}

// Details returns the item's detail mapping.
func (i *Info) Details(ctx context.Context) (map[string]any, error) {
	if err := i.load(ctx); err != nil {
		return nil, err
	}
	return i.details, nil
}

// Art returns the item's available artwork.
func (i *Info) Art(ctx context.Context) ([]Art, error) {
	if err := i.load(ctx); err != nil {
		return nil, err
	}
	return i.art, nil
}

// MovieSet returns set details for movies that belong to a set, else nil.
func (i *Info) MovieSet(ctx context.Context) (*SetInfo, error) {
	if err := i.load(ctx); err != nil {
		return nil, err
	}
	return i.movieset, nil
}

// Seasons returns season number → details/art for tvshows, else nil.
func (i *Info) Seasons(ctx context.Context) (map[int]SeasonInfo, error) {
	if err := i.load(ctx); err != nil {
		return nil, err
	}
	return i.seasons, nil
}

// Checksum returns the item's change-detection checksum.
func (i *Info) Checksum(ctx context.Context) (uint32, error) {
	if err := i.load(ctx); err != nil {
		return 0, err
	}
	return i.checksum, nil
}

func (i *Info) load(ctx context.Context) error {
	if i.loaded {
		return nil
	}

	hash := crc32.NewIEEE()

	raw, err := i.fetchDetails(ctx, i.Item.Type, i.Item.ID, &i.details)
	if err != nil {
		return err
	}
	_, _ = hash.Write(raw)

	raw, err = i.fetchArt(ctx, i.Item.Type, i.Item.ID, &i.art)
	if err != nil {
		return err
	}
	_, _ = hash.Write(raw)

	switch i.Item.Type {
	case TypeMovie:
		if setID, ok := i.details["setid"].(float64); ok && setID != 0 {
			var set map[string]any
			raw, err = i.fetchDetails(ctx, typeMovieSet, uint32(setID), &set)
			if err != nil {
				return err
			}
			_, _ = hash.Write(raw)
			i.movieset = &SetInfo{}
			if title, ok := set["title"].(string); ok {
				i.movieset.Title = title
			}
			if plot, ok := set["plot"].(string); ok {
				i.movieset.Plot = plot
			}
		}

	case TypeTVShow:
		if err := i.loadSeasons(ctx, hash); err != nil {
			return err
		}
	}

	i.checksum = hash.Sum32()
	i.loaded = true
	return nil
}

func (i *Info) loadSeasons(ctx context.Context, hash interface{ Write([]byte) (int, error) }) error {
	var result map[string]json.RawMessage
	raw, err := i.gw.rpc.CallInto(ctx, "VideoLibrary.GetSeasons", map[string]any{
		"tvshowid":   i.Item.ID,
		"properties": typeSeason.Info().Details,
	}, &result)
	if err != nil {
		return err
	}
	_, _ = hash.Write(raw)

	var seasonRows []map[string]any
	if rowsRaw, ok := result["seasons"]; ok {
		if err := json.Unmarshal(rowsRaw, &seasonRows); err != nil {
			return err
		}
	}

	i.seasons = make(map[int]SeasonInfo, len(seasonRows))
	for _, row := range seasonRows {
		seasonID, ok := row["seasonid"].(float64)
		if !ok {
			continue
		}
		number, ok := row["season"].(float64)
		if !ok {
			continue
		}

		var art []Art
		raw, err := i.fetchArt(ctx, typeSeason, uint32(seasonID), &art)
		if err != nil {
			return err
		}
		_, _ = hash.Write(raw)

		i.seasons[int(number)] = SeasonInfo{Details: row, Art: art}
	}
	return nil
}

func (i *Info) fetchDetails(ctx context.Context, t Type, id uint32, out *map[string]any) (json.RawMessage, error) {
	info := t.Info()
	var result map[string]json.RawMessage
	raw, err := i.gw.rpc.CallInto(ctx, info.DetailsMethod, map[string]any{
		info.IDName:  id,
		"properties": info.Details,
	}, &result)
	if err != nil {
		return nil, err
	}
	if containerRaw, ok := result[info.Container]; ok {
		if err := json.Unmarshal(containerRaw, out); err != nil {
			return nil, err
		}
	}
	return raw, nil
}

func (i *Info) fetchArt(ctx context.Context, t Type, id uint32, out *[]Art) (json.RawMessage, error) {
	info := t.Info()
	var result struct {
		AvailableArt []Art `json:"availableart"`
	}
	raw, err := i.gw.rpc.CallInto(ctx, "VideoLibrary.GetAvailableArt", map[string]any{
		"item": map[string]any{info.IDName: id},
	}, &result)
	if err != nil {
		return nil, err
	}
	*out = result.AvailableArt
	return raw, nil
}
