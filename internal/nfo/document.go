// Package nfo reads and rewrites sidecar metadata files. Rewrites are
// surgical: tags the engine does not manage are preserved byte-for-byte in
// structure, and managed tags are only replaced when overwriting is allowed.
package nfo

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/beevik/etree"
	"github.com/google/renameio/v2"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/media"
)

var rootTags = map[media.Type]string{
	media.TypeMovie:   "movie",
	media.TypeTVShow:  "tvshow",
	media.TypeEpisode: "episodedetails",
}

// Options control how a document is written.
type Options struct {
	Overwrite            bool
	Minimal              bool
	ActorHandling        config.ActorHandling
	ExportPluginTrailers bool
	AppName              string
	AppVersion           string
}

// Document is one sidecar file being rewritten for an item.
type Document struct {
	item media.Item
	opts Options

	doc  *etree.Document
	root *etree.Element

	clearedArts map[string]bool
	fanartTag   *etree.Element
}

// Load parses an existing sidecar file.
func Load(item media.Item, path string, opts Options) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sidecar %q: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("sidecar %q is empty", path)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, fmt.Errorf("parse sidecar %q: %w", path, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("sidecar %q has no root element", path)
	}

	return &Document{
		item:        item,
		opts:        opts,
		doc:         doc,
		root:        root,
		clearedArts: map[string]bool{},
	}, nil
}

// Create builds a fresh document with the type-specific root element.
func Create(item media.Item, opts Options) *Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8" standalone="yes"`)
	root := doc.CreateElement(rootTags[item.Type])

	return &Document{
		item:        item,
		opts:        opts,
		doc:         doc,
		root:        root,
		clearedArts: map[string]bool{},
	}
}

// Write pretty-prints the document, stamps it with a creation comment and
// replaces the target file atomically.
func (d *Document) Write(path string) error {
	comment := etree.NewComment(fmt.Sprintf("Created %s by %s %s",
		time.Now().Format("2006-01-02 15:04:05"), d.opts.AppName, d.opts.AppVersion))
	d.root.InsertChildAt(0, comment)

	d.doc.Indent(4)

	data, err := d.doc.WriteToBytes()
	if err != nil {
		return fmt.Errorf("serialize sidecar: %w", err)
	}
	if err := renameio.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write sidecar %q: %w", path, err)
	}
	return nil
}

// RootTag returns the document's root element name.
func (d *Document) RootTag() string {
	return d.root.Tag
}

// addTag appends a child element, optionally with text.
func (d *Document) addTag(parent *etree.Element, tag, text string) *etree.Element {
	el := parent.CreateElement(tag)
	if text != "" {
		el.SetText(text)
	}
	return el
}

// setTag replaces all elements of the given tag with a single new one.
func (d *Document) setTag(parent *etree.Element, tag, text string) *etree.Element {
	for _, el := range parent.FindElements(tag) {
		parent.RemoveChild(el)
	}
	return d.addTag(parent, tag, text)
}

// tryClearTags removes all elements matched by the path. When existing
// matches may not be overwritten it leaves them alone and reports false.
func (d *Document) tryClearTags(path string) bool {
	matches := d.root.FindElements(path)
	if len(matches) > 0 && !d.opts.Overwrite {
		return false
	}
	for _, el := range matches {
		d.root.RemoveChild(el)
	}
	return true
}

func formatScalar(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}
