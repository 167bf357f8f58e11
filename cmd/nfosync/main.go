// Command nfosync is the one-shot companion to nfosyncd. It broadcasts a
// single bus message that the running daemon picks up, then exits.
//
// Usage:
//
//	nfosync [-config FILE] sync_all [patient]
//	nfosync [-config FILE] sync_one <type> <id> [patient]
//	nfosync [-config FILE] import_all [patient]
//	nfosync [-config FILE] export_one <type> <id> [patient]
//	nfosync [-config FILE] export_all [patient]
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/kodi"
	"github.com/nfosync/nfosync/internal/log"
	"github.com/nfosync/nfosync/internal/media"
)

const appName = "nfosync"

// badInvocationCode identifies the user notification for a malformed
// command line.
const badInvocationCode = 32074

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config file (YAML)")
	flag.Parse()

	settings, err := config.NewLoader(*configPath).Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "nfosync: %v\n", err)
		os.Exit(1)
	}

	log.Configure(log.Config{
		Level:   settings.LogLevel,
		Service: appName,
		Version: version,
	})
	logger := log.WithComponent("cli")

	timeout, _ := time.ParseDuration(settings.Host.Timeout)
	client := kodi.New(kodi.Options{
		BaseURL:  settings.Host.BaseURL,
		Username: settings.Host.Username,
		Password: settings.Host.Password,
		Timeout:  timeout,
		Sender:   settings.Host.Sender,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	message, payload, err := parseVerb(flag.Args())
	if err != nil {
		logger.Error().
			Err(err).
			Int("code", badInvocationCode).
			Str("event", "cli.bad_invocation").
			Msg("invalid command line")
		if settings.UI.ShouldShowNotifications {
			_, _ = client.Call(ctx, "GUI.ShowNotification", map[string]any{
				"title":   appName,
				"message": err.Error(),
			})
		}
		fmt.Fprintf(os.Stderr, "nfosync: %v\n", err)
		os.Exit(2)
	}

	if err := client.NotifyAll(ctx, message.Send(), payload); err != nil {
		logger.Error().
			Err(err).
			Str(log.FieldMethod, message.Send()).
			Str("event", "cli.send_failed").
			Msg("cannot reach host")
		fmt.Fprintf(os.Stderr, "nfosync: %v\n", err)
		os.Exit(1)
	}

	logger.Info().
		Str(log.FieldMethod, message.Send()).
		Str("event", "cli.sent").
		Msg("bus message sent")
}

// parseVerb maps the command line onto a bus message and payload. A trailing
// "patient" token defers the work until the user is not playing media.
func parseVerb(args []string) (kodi.Method, any, error) {
	if len(args) == 0 {
		return kodi.Method{}, nil, fmt.Errorf("missing verb")
	}
	verb := args[0]
	rest := args[1:]

	patient := false
	if n := len(rest); n > 0 && rest[n-1] == "patient" {
		patient = true
		rest = rest[:n-1]
	}

	switch verb {
	case "sync_all", "import_all", "export_all":
		if len(rest) != 0 {
			return kodi.Method{}, nil, fmt.Errorf("%s takes no arguments", verb)
		}
		payload := map[string]any{"patient": patient}
		switch verb {
		case "sync_all":
			return kodi.MethodSyncAll, payload, nil
		case "import_all":
			return kodi.MethodImportAll, payload, nil
		default:
			return kodi.MethodExportAll, payload, nil
		}

	case "sync_one", "export_one":
		item, err := parseItem(verb, rest)
		if err != nil {
			return kodi.Method{}, nil, err
		}
		payload := map[string]any{
			"type":    string(item.Type),
			"id":      item.ID,
			"patient": patient,
		}
		if verb == "sync_one" {
			return kodi.MethodSyncOne, payload, nil
		}
		return kodi.MethodExportOne, payload, nil

	default:
		return kodi.Method{}, nil, fmt.Errorf("unknown verb %q", verb)
	}
}

func parseItem(verb string, args []string) (media.Item, error) {
	if len(args) != 2 {
		return media.Item{}, fmt.Errorf("%s wants <type> <id>", verb)
	}
	mediaType, err := media.ParseType(args[0])
	if err != nil {
		return media.Item{}, err
	}
	id, err := strconv.ParseUint(args[1], 10, 32)
	if err != nil {
		return media.Item{}, fmt.Errorf("bad id %q", args[1])
	}
	return media.Item{Type: mediaType, ID: uint32(id)}, nil
}
