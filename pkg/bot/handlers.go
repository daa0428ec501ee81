package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"sub_trigger_bot/pkg/config"
	"sub_trigger_bot/pkg/control"
	"sub_trigger_bot/pkg/fault"
	"sub_trigger_bot/pkg/looper"
	"sub_trigger_bot/pkg/notify"

	"github.com/pkg/errors"
)

const (
	HelpText = `🧨 Subscriber trigger bot

🕹 Commands
/start [tnt|anvil] - start polling
/stop - stop polling
/status - current state and count
/set <key> <value> - change channel_id, check_interval, selenium_headless or effect while stopped
/help - this message`
)

// Serves operator commands of admin chats.
type handler struct {
	ctl    control.Controller
	subs   *subscribers
	admins map[int64]struct{}
}

func newHandler(ctl control.Controller, subs *subscribers, admins []int64) *handler {
	h := &handler{
		ctl:    ctl,
		subs:   subs,
		admins: make(map[int64]struct{}, len(admins)),
	}
	for _, chatID := range admins {
		h.admins[chatID] = struct{}{}
	}
	return h
}

// Returns reply text, empty when nothing should be sent.
func (h *handler) handle(ctx context.Context, chatID int64, command, args string) string {
	if _, ok := h.admins[chatID]; !ok {
		log.Printf("ignoring /%s from not admin chat %d\n", command, chatID)
		return ""
	}

	args = strings.TrimSpace(args)

	switch command {
	case "start":
		return h.start(ctx, chatID, args)
	case "stop":
		return h.stop(ctx, chatID)
	case "status":
		return formatStatus(h.ctl.Status())
	case "set":
		return h.set(args)
	default:
		return HelpText
	}
}

func (h *handler) start(ctx context.Context, chatID int64, variant string) string {
	if err := h.ctl.Start(ctx, variant); err != nil {
		switch {
		case errors.Is(err, looper.ErrAlreadyRunning):
			return "already running"
		case errors.Is(err, looper.ErrStopping):
			return "still stopping, try again in a moment"
		default:
			return fmt.Sprintf("failed to start, %v", err)
		}
	}

	h.subs.add(ctx, chatID)

	status := h.ctl.Status()
	return fmt.Sprintf("started, %s on every new subscriber of %s", status.Config.Effect, string(status.Config.ChannelID))
}

func (h *handler) stop(ctx context.Context, chatID int64) string {
	h.subs.remove(ctx, chatID)

	if h.ctl.Status().State == looper.Idle.String() {
		return "not running"
	}

	h.ctl.Stop()
	return "stopping"
}

func (h *handler) set(args string) string {
	fields := strings.Fields(args)
	if len(fields) < 2 {
		return "usage: /set <key> <value>"
	}

	cfg, err := h.ctl.Set(fields[0], strings.Join(fields[1:], " "))
	switch {
	case errors.Is(err, config.ErrLocked):
		return "stop polling before changing the config"
	case err != nil:
		return fmt.Sprintf("failed to set %s, %v", fields[0], err)
	}

	return "saved\n" + formatConfig(cfg)
}

func formatConfig(cfg config.Config) string {
	return fmt.Sprintf("channel_id: %s\ncheck_interval: %ds\nselenium_headless: %t\neffect: %s",
		string(cfg.ChannelID), cfg.CheckInterval, cfg.Headless, cfg.Effect)
}

func formatStatus(status control.Status) string {
	count := "unknown"
	if status.Count != nil {
		count = fmt.Sprintf("%d", *status.Count)
	}

	return fmt.Sprintf("state: %s\ncount: %s\n%s", status.State, count, formatConfig(status.Config))
}

// Text of an event forwarded to subscribed chats.
func formatEvent(e notify.Event) (string, bool) {
	switch e.Kind {
	case notify.KindIncrease:
		return fmt.Sprintf("📈 %s: %d -> %d (+%d)", string(e.Target), e.Previous, e.Count, e.Delta), true
	case notify.KindError:
		if e.Fault() == fault.SourceUnavailable {
			// transient, would flood chats
			return "", false
		}
		return fmt.Sprintf("⚠️ %s", e), true
	case notify.KindState:
		if e.State == looper.Idle.String() {
			return "⏹ polling stopped", true
		}
	}

	return "", false
}
