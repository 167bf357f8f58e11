package nfo

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/media"
)

// label is always returned by the host and duplicates title; the id fields
// are internal keys with no sidecar representation.
var ignoredFields = map[string]bool{
	"label":     true,
	"movieid":   true,
	"episodeid": true,
	"tvshowid":  true,
}

var minimalFields = []string{"playcount", "lastplayed"}

var tagRemaps = map[string]string{
	"plotoutline":        "outline",
	"writer":             "credits",
	"firstaired":         "aired",
	"specialsortseason":  "displayseason",
	"specialsortepisode": "displayepisode",
}

// Apply converts the item's host-side state into sidecar tags. In minimal
// mode only the watched-state fields are written; otherwise every detail
// field runs through its handler, followed by artwork and, for tv shows,
// per-season data.
func (d *Document) Apply(details map[string]any, set *media.SetInfo, arts []media.Art, seasons map[int]media.SeasonInfo) {
	handlers := map[string]func(value any){
		"cast":          d.applyCast,
		"lastplayed":    d.applyLastPlayed,
		"playcount":     d.applyPlayCount,
		"ratings":       d.applyRatings,
		"setid":         func(value any) { d.applySet(value, set) },
		"streamdetails": d.applyStreamDetails,
		"uniqueid":      d.applyUniqueIDs,
		"trailer":       d.applyTrailer,
	}

	apply := func(field string, value any) {
		if handler, ok := handlers[field]; ok {
			handler(value)
			return
		}
		d.applyGeneric(field, value)
	}

	if d.opts.Minimal {
		for _, field := range minimalFields {
			if value, ok := details[field]; ok {
				apply(field, value)
			}
		}
		return
	}

	fields := make([]string, 0, len(details))
	for field := range details {
		if !ignoredFields[field] {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)
	for _, field := range fields {
		apply(field, details[field])
	}

	for _, art := range arts {
		d.applyArt(art, nil)
	}

	if d.item.Type == media.TypeTVShow {
		numbers := make([]int, 0, len(seasons))
		for n := range seasons {
			numbers = append(numbers, n)
		}
		sort.Ints(numbers)
		for _, n := range numbers {
			d.applySeason(n, seasons[n])
		}
	}
}

func (d *Document) applyGeneric(field string, value any) {
	tag := field
	if remap, ok := tagRemaps[field]; ok {
		tag = remap
	}

	if s, ok := value.(string); ok && s == "" {
		return
	}

	if !d.tryClearTags(tag) {
		return
	}

	if list, ok := value.([]any); ok {
		for _, item := range list {
			d.addTag(d.root, tag, formatScalar(item))
		}
		return
	}
	d.addTag(d.root, tag, formatScalar(value))
}

func (d *Document) applyLastPlayed(value any) {
	d.setTag(d.root, "lastplayed", formatScalar(value))
}

func (d *Document) applyPlayCount(value any) {
	count, _ := value.(float64)
	watched := "false"
	if count > 0 {
		watched = "true"
	}
	d.setTag(d.root, "playcount", strconv.Itoa(int(count)))
	d.setTag(d.root, "watched", watched)
}

func (d *Document) applyRatings(value any) {
	ratings, ok := value.(map[string]any)
	if !ok || len(ratings) == 0 {
		return
	}
	if !d.tryClearTags("ratings") {
		return
	}

	container := d.addTag(d.root, "ratings", "")

	raters := make([]string, 0, len(ratings))
	for rater := range ratings {
		raters = append(raters, rater)
	}
	sort.Strings(raters)

	for _, rater := range raters {
		details, _ := ratings[rater].(map[string]any)

		rating := d.addTag(container, "rating", "")
		rating.CreateAttr("name", rater)
		// Regardless of origin, the host normalizes ratings to out-of-10.
		rating.CreateAttr("max", "10")
		if def, _ := details["default"].(bool); def {
			rating.CreateAttr("default", "true")
		} else {
			rating.CreateAttr("default", "false")
		}

		score, _ := details["rating"].(float64)
		d.addTag(rating, "value", strconv.FormatFloat(score, 'f', 1, 64))
		if votes, ok := details["votes"].(float64); ok {
			d.addTag(rating, "votes", strconv.FormatFloat(votes, 'f', -1, 64))
		}
	}
}

func (d *Document) applySet(value any, set *media.SetInfo) {
	setID, _ := value.(float64)
	if setID == 0 || set == nil {
		return
	}
	if !d.tryClearTags("set") {
		return
	}
	el := d.addTag(d.root, "set", "")
	d.addTag(el, "title", set.Title)
	d.addTag(el, "overview", set.Plot)
}

func (d *Document) applyStreamDetails(value any) {
	details, ok := value.(map[string]any)
	if !ok {
		return
	}
	if !d.tryClearTags("fileinfo") {
		return
	}

	fileInfo := d.addTag(d.root, "fileinfo", "")
	streams := d.addTag(fileInfo, "streamdetails", "")

	if videos, ok := details["video"].([]any); ok {
		for _, v := range videos {
			info, _ := v.(map[string]any)
			if info == nil {
				continue
			}
			aspect, _ := info["aspect"].(float64)
			info["aspect"] = fmt.Sprintf("%.6f", aspect)
			if duration, ok := info["duration"]; ok {
				delete(info, "duration")
				info["durationinseconds"] = duration
			}
			d.addStreamSet(streams, "video", info)
		}
	}
	if audios, ok := details["audio"].([]any); ok {
		for _, a := range audios {
			if info, _ := a.(map[string]any); info != nil {
				d.addStreamSet(streams, "audio", info)
			}
		}
	}
	if subs, ok := details["subtitle"].([]any); ok {
		for _, s := range subs {
			if info, _ := s.(map[string]any); info != nil {
				d.addStreamSet(streams, "subtitle", info)
			}
		}
	}
}

func (d *Document) addStreamSet(parent *etree.Element, kind string, info map[string]any) {
	el := d.addTag(parent, kind, "")

	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		text := formatScalar(info[k])
		if text == "" {
			continue
		}
		d.addTag(el, k, text)
	}
}

func (d *Document) applyTrailer(value any) {
	path, _ := value.(string)
	if path == "" {
		return
	}
	// A file-adjacent "-trailer" clip is local convention, not metadata.
	if media.ReplaceExt(path, "") == media.ReplaceExt(d.item.File, "")+"-trailer" {
		return
	}
	if strings.HasPrefix(path, "plugin://") && !d.opts.ExportPluginTrailers {
		return
	}
	if !d.tryClearTags("trailer") {
		return
	}
	d.addTag(d.root, "trailer", path)
}

func (d *Document) applyUniqueIDs(value any) {
	ids, ok := value.(map[string]any)
	if !ok || len(ids) == 0 {
		return
	}

	defaultType := ""
	if el := d.root.FindElement("uniqueid[@default='true']"); el != nil {
		defaultType = el.SelectAttrValue("type", "")
	}

	if !d.tryClearTags("uniqueid") {
		return
	}

	services := make([]string, 0, len(ids))
	for service := range ids {
		services = append(services, service)
	}
	sort.Strings(services)

	for _, service := range services {
		el := d.addTag(d.root, "uniqueid", formatScalar(ids[service]))
		el.CreateAttr("type", service)
		if service == defaultType {
			el.CreateAttr("default", "true")
		}
	}
}

func (d *Document) applyCast(value any) {
	actors, _ := value.([]any)

	existing := d.root.FindElements("actor")
	if len(existing) > 0 && (d.opts.ActorHandling == config.ActorsLeave || !d.opts.Overwrite) {
		return
	}

	// Detach existing actors into a holding bin so policies can pull from it.
	var bin []*etree.Element
	if d.opts.ActorHandling != config.ActorsOverwrite {
		bin = existing
	}
	for _, el := range existing {
		d.root.RemoveChild(el)
	}

	if d.opts.ActorHandling == config.ActorsUpdate {
		d.updateCast(actors, bin)
		return
	}
	d.mergeCast(actors, bin)
}

// updateCast keeps the sidecar's cast list and refreshes details for actors
// the host also knows.
func (d *Document) updateCast(actors []any, bin []*etree.Element) {
	for _, el := range bin {
		d.root.AddChild(el)
		nameEl := el.FindElement("name")
		if nameEl == nil {
			continue
		}
		if details := findActor(actors, nameEl.Text()); details != nil {
			d.updateActor(el, details)
		}
	}
}

// mergeCast writes the host's cast list, reusing sidecar entries by name so
// hand-edited extras on matching actors survive.
func (d *Document) mergeCast(actors []any, bin []*etree.Element) {
	for _, a := range actors {
		details, _ := a.(map[string]any)
		if details == nil {
			continue
		}
		name, _ := details["name"].(string)

		var el *etree.Element
		for _, candidate := range bin {
			nameEl := candidate.FindElement("name")
			if nameEl != nil && nameEl.Text() == name {
				el = candidate
				break
			}
		}
		if el == nil {
			el = d.addTag(d.root, "actor", "")
		} else {
			d.root.AddChild(el)
		}
		d.updateActor(el, details)
	}
}

func (d *Document) updateActor(el *etree.Element, details map[string]any) {
	if name, ok := details["name"]; ok {
		d.setTag(el, "name", formatScalar(name))
	}
	if role, ok := details["role"]; ok {
		d.setTag(el, "role", formatScalar(role))
	}
	if order, ok := details["order"]; ok {
		d.setTag(el, "order", formatScalar(order))
	}
	if thumb, ok := details["thumbnail"].(string); ok {
		d.setTag(el, "thumb", media.DecodeImageURL(thumb))
	}
}

func findActor(actors []any, name string) map[string]any {
	for _, a := range actors {
		details, _ := a.(map[string]any)
		if details == nil {
			continue
		}
		if actorName, _ := details["name"].(string); actorName == name {
			return details
		}
	}
	return nil
}
