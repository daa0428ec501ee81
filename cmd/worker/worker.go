package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sub_trigger_bot/pkg/bot"
	"sub_trigger_bot/pkg/config"
	"sub_trigger_bot/pkg/control"
	"sub_trigger_bot/pkg/effect"
	"sub_trigger_bot/pkg/looper"
	"sub_trigger_bot/pkg/minecraft"
	"sub_trigger_bot/pkg/mqtt"
	"sub_trigger_bot/pkg/notify"
	"sub_trigger_bot/pkg/parser/socialblade"
	"sub_trigger_bot/pkg/reporter"
	"sub_trigger_bot/pkg/serv"
	"sub_trigger_bot/pkg/source"
	websource "sub_trigger_bot/pkg/source/web_source"
	"sub_trigger_bot/pkg/store"
	"sub_trigger_bot/pkg/utils"
	"sub_trigger_bot/pkg/web"

	"github.com/go-redis/redis/v9"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	defaultGSTimeout = time.Second * 15
)

type Application struct {
	configPath string
	settings   *config.Settings

	mc         *minecraft.Client
	dispatcher *notify.Dispatcher
	loop       *looper.Loop
	ctl        *control.Service
	reporter   *reporter.Reporter

	botServ *bot.Service
	webServ *web.Server
	mqttPub *mqtt.RealPublisher
	rdb     *redis.Client

	starters    []serv.Starter
	shutdowners []serv.Shutdowner
}

func main() {
	app := &Application{}

	setupConfig(app)
	setupLoop(app)

	setupRedis(app)
	setupMQTT(app)
	setupBotServ(app)
	setupWebServ(app)

	setupShutdowners(app)

	startWithGS(app)
}

func setupConfig(app *Application) {
	app.configPath = utils.ParseEnvOr("CONFIG_PATH", "config.json")

	cfg := config.Load(app.configPath)
	if err := cfg.Validate(); err != nil {
		log.Printf("config %s is invalid, using defaults, error %v\n", app.configPath, err)
		cfg = config.Default()
	}

	app.settings = config.NewSettings(cfg, func() bool {
		return app.loop.State() != looper.Idle
	})
}

func setupLoop(app *Application) {
	var (
		minecraftAddr  string        = utils.ParseEnvOr("MINECRAFT_ADDR", minecraft.DefaultAddr)
		sourceBaseURL  string        = utils.ParseEnvOr("SOURCE_BASE_URL", websource.DefaultBaseURL)
		readTimeout    time.Duration = utils.ParseEnvOr("SOURCE_READ_TIMEOUT", websource.DefaultReadTimeout)
		applyTimeout   time.Duration = utils.ParseEnvOr("EFFECT_APPLY_TIMEOUT", looper.DefaultApplyTimeout)
		notifyBufSize  int           = utils.ParseEnvOr("NOTIFY_BUFFER", notify.DefaultBufSize)
		statusInterval time.Duration = utils.ParseEnvOr("STATUS_INTERVAL", reporter.DefaultInterval)
	)

	app.mc = minecraft.NewClient(minecraftAddr)
	app.dispatcher = notify.NewDispatcher(notifyBufSize, notify.LogObserver{})

	app.loop = looper.New(&looper.Config{
		OpenSource: func(ctx context.Context, cfg config.Config) (source.Source, error) {
			src, err := websource.Open(ctx, &websource.Config{
				BaseURL:     sourceBaseURL,
				Channel:     cfg.ChannelID,
				Headless:    cfg.Headless,
				ReadTimeout: readTimeout,
				Parser:      &socialblade.Parser{},
			}, nil)
			if err != nil {
				return nil, err
			}
			return src, nil
		},
		NewSink: func(variant effect.Variant) (effect.Sink, error) {
			return effect.New(app.mc, variant)
		},
		Observer:     app.dispatcher,
		ApplyTimeout: applyTimeout,
	})

	app.ctl = control.NewService(app.loop, app.settings, app.configPath)

	app.reporter = reporter.New(app.loop)
	app.reporter.Start(context.Background(), reporter.SchedulerFunc(reporter.Every), statusInterval)
}

func setupRedis(app *Application) {
	var (
		redisURL string = utils.ParseEnvOr("REDIS_URL", "")
	)

	if redisURL == "" {
		return
	}

	if opt, err := redis.ParseURL(redisURL); err == nil {
		app.rdb = redis.NewClient(opt)
	} else {
		log.Panicf("failed to parse redis url %s, error %v", redisURL, err)
	}

	app.dispatcher.Add(store.New(app.rdb))
}

func setupMQTT(app *Application) {
	var (
		broker   string = utils.ParseEnvOr("MQTT_BROKER", "")
		clientID string = utils.ParseEnvOr("MQTT_CLIENT_ID", "sub-trigger-bot")
	)

	if broker == "" {
		return
	}

	var err error
	if app.mqttPub, err = mqtt.NewRealPublisher(broker, clientID); err != nil {
		// events are optional, the loop runs without them
		log.Printf("failed to connect mqtt broker %s, error %v\n", broker, err)
		return
	}

	app.dispatcher.Add(mqtt.NewObserver(app.mqttPub))
}

func setupBotServ(app *Application) {
	var (
		botAPIToken string = utils.ParseEnvOr("BOT_API_TOKEN", "")
	)

	if botAPIToken == "" {
		return
	}

	var (
		botSendMsgBuf   int           = utils.ParseEnvOr("BOT_SEND_MSG_BUFFER", bot.DefaultSendMsgBufSize)
		botSendMsgDelay time.Duration = utils.ParseEnvOr("BOT_SEND_MSG_DELAY", utils.ParseOrPanic[time.Duration](bot.DefaultSendMsgDelay))
		botDebug        bool          = utils.ParseEnvOr("BOT_DEBUG", false)
		botAdminChats   string        = utils.ParseEnvOrPanic[string]("BOT_ADMIN_CHATS")
	)

	admins, err := bot.ParseChatIDs(botAdminChats)
	if err != nil {
		log.Panicf("failed to parse BOT_ADMIN_CHATS, error %v\n", err)
	}

	if app.botServ, err = bot.NewServiceFromConfig(&bot.Config{
		Token:        botAPIToken,
		UpdateConfig: tgbotapi.UpdateConfig{Timeout: bot.DefaultUpdateTimeout},
		Debug:        botDebug,
		SendMsgBuf:   botSendMsgBuf,
		SendMsgDelay: botSendMsgDelay,
		AdminChats:   admins,
		Control:      app.ctl,
	}); err != nil {
		log.Panicf("failed to setup bot service, error %v\n", err)
	}

	if app.rdb != nil {
		app.botServ.WithRedis(app.rdb)
	}

	app.dispatcher.Add(app.botServ)
	app.starters = append(app.starters, app.botServ)
}

func setupWebServ(app *Application) {
	var (
		port string = utils.ParseEnvOr("PORT", "")
	)

	if port == "" {
		return
	}

	broadcaster := web.NewBroadcaster()
	app.webServ = web.NewServer(port, app.ctl, broadcaster)

	app.dispatcher.Add(broadcaster)
	app.starters = append(app.starters, app.webServ)
}

// Services shut down concurrently once the loop has released its source.
func setupShutdowners(app *Application) {
	if app.botServ != nil {
		app.shutdowners = append(app.shutdowners, app.botServ)
	}
	if app.webServ != nil {
		app.shutdowners = append(app.shutdowners, app.webServ)
	}

	app.shutdowners = append(app.shutdowners,
		app.dispatcher,
		serv.ShutdownerFunc(func(ctx context.Context) error {
			log.Println("shutting down minecraft client")
			return app.mc.Close()
		}),
	)

	if app.mqttPub != nil {
		app.shutdowners = append(app.shutdowners, serv.ShutdownerFunc(func(ctx context.Context) error {
			log.Println("shutting down mqtt publisher")
			return app.mqttPub.Close()
		}))
	}
	if app.rdb != nil {
		app.shutdowners = append(app.shutdowners, serv.ShutdownerFunc(func(ctx context.Context) error {
			log.Println("shutting down redis client")
			return app.rdb.Close()
		}))
	}
}

func startWithGS(app *Application) {
	c := make(chan os.Signal, 1)
	// graceful shutdown
	// when SIGINT (Ctrl+C)
	// when SIGTERM (Ctrl+/)
	// except SIGKILL, SIGQUIT will not be caught
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)

	app.dispatcher.Start(context.Background())

	// run non-blocking servs
	for _, starter := range app.starters {
		go func(starter serv.Starter) {
			if err := starter.Start(context.Background()); err != nil {
				log.Panic(err)
			}
		}(starter)
	}

	if utils.ParseEnvOr("AUTOSTART", false) {
		if err := app.ctl.Start(context.Background(), ""); err != nil {
			log.Printf("failed to autostart, error %v\n", err)
		}
	}

	// block until we receive our signal.
	<-c

	gsTimeout := utils.ParseEnvOr("GRACEFUL_SHUTDOWN_TIMEOUT", defaultGSTimeout)

	log.Println("starting shut down")
	ctx, cancel := context.WithTimeout(context.Background(), gsTimeout)
	defer cancel()

	// loop first, its final state still reaches observers
	if err := app.loop.Shutdown(ctx); err != nil {
		log.Printf("failed to stop poll loop, error %v\n", err)
	}

	// block until all services completed their work or timeout
	if err := serv.ShutdownAll(ctx, app.shutdowners...); err != nil {
		log.Println(err.Error())
	}

	log.Println("ending shut down")
}
