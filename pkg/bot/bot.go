package bot

import (
	"context"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"

	"sub_trigger_bot/pkg/control"
	"sub_trigger_bot/pkg/notify"
	"sub_trigger_bot/pkg/utils"

	"github.com/go-redis/redis/v9"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
)

var ErrNilController = errors.New("nil controller")

const (
	DefaultSendMsgBufSize = 10
	DefaultSendMsgDelay   = "1s"
	DefaultUpdateTimeout  = 60

	dropLogInterval = 10 * time.Second
)

type Config struct {
	Token        string
	botUserName  string
	Debug        bool
	UpdateConfig tgbotapi.UpdateConfig
	SendMsgBuf   int
	SendMsgDelay time.Duration
	AdminChats   []int64 // only these chats are served
	Control      control.Controller
}

type Service struct {
	config *Config                 // service config
	api    *tgbotapi.BotAPI        // tg bot API
	outCh  chan tgbotapi.Chattable // outbound messages channel
	stop   context.CancelFunc      // stops handling of inbound updates and outbound messages
	mx     sync.Mutex              // guards stop and drop counters

	handler *handler
	subs    *subscribers

	drops    int
	lastDrop time.Time
}

// Creates bot service by given config.
func NewServiceFromConfig(config *Config) (*Service, error) {
	if config.Control == nil {
		return nil, ErrNilController
	}

	bot, err := tgbotapi.NewBotAPI(config.Token)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	*cfg = *config

	cfg.SendMsgBuf = utils.GraterOrEqDefOr(cfg.SendMsgBuf, DefaultSendMsgBufSize)
	cfg.SendMsgDelay = utils.GraterOrEqDefOr(cfg.SendMsgDelay, utils.ParseOrPanic[time.Duration](DefaultSendMsgDelay))
	if cfg.UpdateConfig.Timeout <= 0 {
		cfg.UpdateConfig.Timeout = DefaultUpdateTimeout
	}

	subs := newSubscribers()

	s := &Service{
		config:  cfg,
		api:     bot,
		outCh:   make(chan tgbotapi.Chattable, cfg.SendMsgBuf),
		handler: newHandler(cfg.Control, subs, cfg.AdminChats),
		subs:    subs,
	}

	s.api.Debug = s.config.Debug

	s.config.botUserName = s.api.Self.UserName
	log.Printf("Authorized on account %s\n", s.api.Self.UserName)

	return s, s.setupBotCmd()
}

// Persists subscribed chats in redis.
func (s *Service) WithRedis(rdb *redis.Client) *Service {
	s.subs.rdb = rdb

	return s
}

// Setups available bot commands.
func (s *Service) setupBotCmd() error {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{
			Command:     "/start",
			Description: "start polling, optional effect tnt or anvil",
		},
		tgbotapi.BotCommand{
			Command:     "/stop",
			Description: "stop polling",
		},
		tgbotapi.BotCommand{
			Command:     "/status",
			Description: "current state and count",
		},
		tgbotapi.BotCommand{
			Command:     "/set",
			Description: "change a config key while stopped",
		},
		tgbotapi.BotCommand{
			Command:     "/help",
			Description: "list commands",
		},
	)

	if _, err := s.api.Request(cfg); err != nil {
		log.Printf("failed to setup bot commands, error %v", err)
		return err
	}

	return nil
}

// Starts serving inbound and outbound channels and blocks execution.
func (s *Service) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = s.config.UpdateConfig.Timeout
	u.Offset = s.config.UpdateConfig.Offset
	u.Limit = s.config.UpdateConfig.Limit

	ctx, stop := context.WithCancel(ctx)
	s.mx.Lock()
	s.stop = stop
	s.mx.Unlock()

	// restore chats subscribed before restart
	s.subs.load(ctx)

	// outbound messages
	go s.servOutbound(ctx)
	// inbound messages
	updates := s.api.GetUpdatesChan(u)

	// start serv inbound channel
	for {
		select {
		case <-ctx.Done():
			log.Println("stopping accepting inbound messages")
			return nil

		case update, ok := <-updates:
			if !ok {
				return nil
			}
			s.servInboundUpdate(ctx, &update)
		}
	}
}

// Stops serving inbound and outbound channels.
// Use for graceful shutdown.
func (s *Service) Shutdown(ctx context.Context) error {
	log.Println("shutting down bot service")

	s.mx.Lock()
	defer s.mx.Unlock()

	if s.stop != nil {
		s.stop()
	}
	s.api.StopReceivingUpdates()

	return nil
}

func (s *Service) servInboundUpdate(ctx context.Context, update *tgbotapi.Update) {
	switch {
	// bot blocked in a chat or removed from a group
	case update.MyChatMember != nil &&
		update.MyChatMember.NewChatMember.User.UserName == s.config.botUserName:
		status := update.MyChatMember.NewChatMember.Status
		log.Printf("bot changed status to %s in chat %d\n", status, update.MyChatMember.Chat.ID)

		if status == "kicked" || status == "left" {
			s.subs.remove(ctx, update.MyChatMember.Chat.ID)
		}

	case update.Message != nil && update.Message.IsCommand():
		chatID := update.Message.Chat.ID
		text := s.handler.handle(ctx, chatID, update.Message.Command(), update.Message.CommandArguments())

		if text != "" {
			s.SendMessage(tgbotapi.NewMessage(chatID, text))
		}
	}
}

// Sends outbound messages with a delay between them.
func (s *Service) servOutbound(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			log.Printf("stopping accepting outbound messages\n")
			return

		case msg := <-s.outCh:
			if _, err := s.api.Send(msg); err != nil {
				log.Printf("failed to send message, error %v\n", err)
			}

			time.Sleep(s.config.SendMsgDelay)
		}
	}
}

// Queues a message, drops it when the outbound buffer is full.
func (s *Service) SendMessage(c tgbotapi.Chattable) {
	select {
	case s.outCh <- c:
	default:
		s.mx.Lock()
		defer s.mx.Unlock()

		s.drops++
		if time.Since(s.lastDrop) >= dropLogInterval {
			log.Printf("bot outbound buffer full, dropped %d messages\n", s.drops)
			s.drops = 0
			s.lastDrop = time.Now()
		}
	}
}

// Forwards increases and faults to subscribed chats.
func (s *Service) Notify(e notify.Event) {
	text, ok := formatEvent(e)
	if !ok {
		return
	}

	for _, chatID := range s.subs.list() {
		s.SendMessage(tgbotapi.NewMessage(chatID, text))
	}
}

// Parses comma separated chat ids.
func ParseChatIDs(value string) ([]int64, error) {
	var ids []int64

	for _, raw := range strings.Split(value, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}

		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid chat id %q", raw)
		}
		ids = append(ids, chatID)
	}

	return ids, nil
}
