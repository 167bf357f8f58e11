package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/nfosync/nfosync/internal/config"
	"github.com/nfosync/nfosync/internal/log"
)

// busNotifier delivers user notifications: always to the log, and to the
// host's on-screen notification when the user asked for them.
type busNotifier struct {
	client   HostClient
	settings func() config.Settings
	appName  string
	logger   zerolog.Logger
}

func newBusNotifier(client HostClient, settings func() config.Settings, appName string) *busNotifier {
	return &busNotifier{
		client:   client,
		settings: settings,
		appName:  appName,
		logger:   log.WithComponent("notifier"),
	}
}

func (n *busNotifier) Notify(code int, message string) {
	n.logger.Warn().
		Int("code", code).
		Str("event", "notify.user").
		Msg(message)

	if !n.settings().UI.ShouldShowNotifications {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := n.client.Call(ctx, "GUI.ShowNotification", map[string]any{
		"title":   n.appName,
		"message": message,
	}); err != nil {
		n.logger.Debug().
			Err(err).
			Str("event", "notify.show_failed").
			Msg("on-screen notification failed")
	}
}
