package media

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/utcdt"
)

// RPC is the host call surface the gateway needs.
type RPC interface {
	Call(ctx context.Context, method string, params any) (json.RawMessage, error)
	CallInto(ctx context.Context, method string, params any, out any) (json.RawMessage, error)
}

// Gateway is a read-through accessor over the host video library.
type Gateway struct {
	rpc    RPC
	logger zerolog.Logger
}

// NewGateway creates a gateway over the given RPC client.
func NewGateway(rpc RPC) *Gateway {
	return &Gateway{
		rpc:    rpc,
		logger: log.WithComponent("media"),
	}
}

// All enumerates every library item of the given type, including its content
// file path.
func (g *Gateway) All(ctx context.Context, t Type) ([]Item, error) {
	info := t.Info()
	var result map[string]json.RawMessage
	if _, err := g.rpc.CallInto(ctx, info.ListMethod, map[string]any{
		"properties": []string{"file"},
	}, &result); err != nil {
		return nil, err
	}

	var rows []map[string]any
	if raw, ok := result[info.ListContainer]; ok {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, err
		}
	}

	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		id, ok := row[info.IDName].(float64)
		if !ok {
			continue
		}
		file, _ := row["file"].(string)
		items = append(items, Item{Type: t, ID: uint32(id), File: file})
	}
	return items, nil
}

// File fetches the content path for an item.
func (g *Gateway) File(ctx context.Context, t Type, id uint32) (string, error) {
	info := t.Info()
	var result map[string]json.RawMessage
	if _, err := g.rpc.CallInto(ctx, info.DetailsMethod, map[string]any{
		info.IDName:  id,
		"properties": []string{"file"},
	}, &result); err != nil {
		return "", err
	}
	var container struct {
		File string `json:"file"`
	}
	if raw, ok := result[info.Container]; ok {
		if err := json.Unmarshal(raw, &container); err != nil {
			return "", err
		}
	}
	return container.File, nil
}

// ModTime stats a file through the host VFS and returns its modification
// time in UTC. A missing or unreadable file returns ok=false; the engine
// treats that as "no sidecar, nothing to import".
func (g *Gateway) ModTime(ctx context.Context, path string) (time.Time, bool) {
	var result struct {
		FileDetails struct {
			LastModified string `json:"lastmodified"`
		} `json:"filedetails"`
	}
	if _, err := g.rpc.CallInto(ctx, "Files.GetFileDetails", map[string]any{
		"file":       path,
		"properties": []string{"lastmodified"},
	}, &result); err != nil {
		g.logger.Debug().
			Err(err).
			Str(log.FieldPath, path).
			Str("event", "media.stat_failed").
			Msg("file stat via host failed")
		return time.Time{}, false
	}

	ts, err := utcdt.FromISO(result.FileDetails.LastModified)
	if err != nil {
		g.logger.Debug().
			Err(err).
			Str(log.FieldPath, path).
			Str("event", "media.stat_bad_timestamp").
			Msg("unparseable lastmodified from host")
		return time.Time{}, false
	}
	return ts, true
}

// Refresh asks the host to re-read one item's metadata. TV show refreshes
// cascade into their episodes.
func (g *Gateway) Refresh(ctx context.Context, item Item) error {
	info := item.Type.Info()
	params := map[string]any{info.IDName: item.ID}
	if item.Type == TypeTVShow {
		params["refreshepisodes"] = true
	}
	_, err := g.rpc.Call(ctx, info.RefreshMethod, params)
	return err
}

// Clean asks the host to remove stale library entries.
func (g *Gateway) Clean(ctx context.Context) error {
	_, err := g.rpc.Call(ctx, "VideoLibrary.Clean", map[string]any{"showdialogs": false})
	return err
}

// Scan asks the host to scan sources for new content.
func (g *Gateway) Scan(ctx context.Context, showDialogs bool) error {
	_, err := g.rpc.Call(ctx, "VideoLibrary.Scan", map[string]any{"showdialogs": showDialogs})
	return err
}
