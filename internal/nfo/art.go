package nfo

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nfosync/nfosync/internal/media"
)

// applyArt writes one artwork entry, either as a fanart thumb or a typed
// thumb, skipping images the scraper derived from files next to the media.
func (d *Document) applyArt(art media.Art, season *int) {
	artType := art.ArtType
	path := media.DecodeImageURL(art.URL)
	preview := ""
	if art.PreviewURL != "" {
		preview = media.DecodeImageURL(art.PreviewURL)
	}

	if d.isIgnoredImage(artType, path, season) {
		return
	}

	if season == nil && artType == "fanart" {
		d.applyFanart(preview, path)
		return
	}
	d.applyThumb(artType, preview, path, season)
}

// isIgnoredImage filters placeholder art, embedded art and art whose path is
// derived from the media file itself; those regenerate locally and would
// churn the sidecar on every export.
func (d *Document) isIgnoredImage(artType, path string, season *int) bool {
	if path == "DefaultVideo.png" || path == "DefaultFolder.png" ||
		strings.HasPrefix(path, "video@") ||
		strings.HasPrefix(artType, "tvshow.") ||
		strings.HasPrefix(artType, "season.") {
		return true
	}

	extensionless := media.ReplaceExt(path, "")
	if d.item.Type == media.TypeTVShow {
		if extensionless == d.item.File+artType {
			return true
		}
		if season != nil {
			seasonName := fmt.Sprintf("season%02d", *season)
			if *season == 0 {
				seasonName = "season-specials"
			}
			if extensionless == d.item.File+seasonName+"-"+artType ||
				extensionless == d.item.File+"season-all-"+artType {
				return true
			}
		}
	} else if extensionless == media.ReplaceExt(d.item.File, "")+"-"+artType {
		return true
	}

	return false
}

// applyFanart collects fanart thumbs under a single <fanart> element.
// Existing fanart is cleared once, before the first new entry, so later
// entries in the same export are not wiped.
func (d *Document) applyFanart(preview, path string) {
	if d.fanartTag == nil {
		if !d.tryClearTags("fanart") {
			return
		}
		d.fanartTag = d.addTag(d.root, "fanart", "")
	}

	thumb := d.addTag(d.fanartTag, "thumb", path)
	if preview != "" {
		thumb.CreateAttr("preview", preview)
	}
}

// applyThumb writes a typed (and optionally seasonal) <thumb>. Existing
// thumbs are cleared once per art type so new entries added in this export
// survive; for tv shows the clear is scoped per season.
func (d *Document) applyThumb(artType, preview, path string, season *int) {
	artCode := artType
	if season != nil {
		artCode = fmt.Sprintf("%s.season%d", artType, *season)
	}
	if !d.clearedArts[artCode] {
		if !d.tryClearArt(artType, season) {
			return
		}
		d.clearedArts[artCode] = true
	}

	el := d.addTag(d.root, "thumb", path)
	el.CreateAttr("aspect", artType)
	if preview != "" {
		el.CreateAttr("preview", preview)
	}
	if season != nil {
		el.CreateAttr("season", strconv.Itoa(*season))
		el.CreateAttr("type", "season")
	}
}

func (d *Document) tryClearArt(artType string, season *int) bool {
	if season != nil {
		return d.tryClearTags(fmt.Sprintf("thumb[@aspect='%s'][@season='%d']", artType, *season))
	}
	for _, el := range d.root.FindElements(fmt.Sprintf("thumb[@aspect='%s']", artType)) {
		// Path queries cannot express "attribute absent", so season thumbs
		// are skipped here instead of in the query.
		if el.SelectAttr("season") != nil {
			continue
		}
		if !d.opts.Overwrite {
			return false
		}
		d.root.RemoveChild(el)
	}
	return true
}

// applySeason writes a show's named-season tag and season artwork.
func (d *Document) applySeason(number int, season media.SeasonInfo) {
	if title, ok := season.Details["title"].(string); ok && title != "" {
		if d.tryClearTags(fmt.Sprintf("namedseason[@number='%d']", number)) {
			el := d.addTag(d.root, "namedseason", title)
			el.CreateAttr("number", strconv.Itoa(number))
		}
	}

	n := number
	for _, art := range season.Art {
		d.applyArt(art, &n)
	}
}
