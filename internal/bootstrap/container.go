package bootstrap

import (
	"context"
	"log"
	"path/filepath"
	"sync"
	"time"

	"chemviz-dashboard/internal/config"
	"chemviz-dashboard/internal/controller"
	"chemviz-dashboard/internal/dashboard"
	"chemviz-dashboard/internal/entity"
	"chemviz-dashboard/internal/events"
	"chemviz-dashboard/internal/handler"
	"chemviz-dashboard/internal/pkg/logger"
	"chemviz-dashboard/internal/repository/contract"
	"chemviz-dashboard/internal/repository/implementation"
	"chemviz-dashboard/internal/repository/memory"
	"chemviz-dashboard/internal/service"
	"chemviz-dashboard/internal/websocket"
	"chemviz-dashboard/pkg/chemapi"
	pktNats "chemviz-dashboard/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/redis/go-redis/v9"
)

// Core is the client itself: session, backend access and the dashboard
// controller. The CLI runs on Core alone.
type Core struct {
	Config    *config.Config
	Logger    logger.ILogger
	API       *chemapi.Client
	Sessions  service.ISessionService
	Dashboard *dashboard.Controller

	natsPub *pktNats.Publisher
	rdb     *redis.Client
}

// NewCore wires the client. states receives every view state snapshot and
// may be nil.
func NewCore(cfg *config.Config, sysLogger logger.ILogger, states dashboard.StatePublisher) *Core {
	core := &Core{Config: cfg, Logger: sysLogger}

	// Events
	if cfg.Events.Enabled {
		natsPub, err := pktNats.NewPublisher(cfg.Events.NatsURL)
		if err != nil {
			log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
		}
		core.natsPub = natsPub
	}
	publisher := events.NewNatsPublisher(core.natsPub, sysLogger)

	// Credentials
	repo := core.credentialRepository()

	// the client asks the session service for the credential on every call,
	// so it can be built before the service exists
	var sessions service.ISessionService
	credentials := chemapi.CredentialFunc(func() (string, bool) {
		if sessions == nil {
			return "", false
		}
		return sessions.Credential()
	})
	core.API = chemapi.NewClient(
		cfg.API.BaseURL,
		time.Duration(cfg.API.TimeoutSeconds)*time.Second,
		credentials,
		sysLogger,
	)
	sessions = service.NewSessionService(repo, core.API, publisher, sysLogger)
	core.Sessions = sessions

	core.Dashboard = dashboard.NewController(core.API, states, publisher, sysLogger)

	// a different identity never sees the previous one's data
	var (
		mu       sync.Mutex
		lastUser string
	)
	sessions.OnChange(func(sess *entity.Session) {
		user := ""
		if sess != nil {
			user = sess.Username
		}
		mu.Lock()
		changed := user != lastUser
		lastUser = user
		mu.Unlock()
		if changed {
			core.Dashboard.Reset()
		}
	})

	return core
}

func (c *Core) credentialRepository() contract.CredentialRepository {
	switch c.Config.Session.Store {
	case config.SessionStoreMemory:
		return memory.NewCredentialRepository()
	case config.SessionStoreRedis:
		opt, err := redis.ParseURL(c.Config.Session.RedisURL)
		if err != nil {
			log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
			opt = &redis.Options{Addr: c.Config.Session.RedisURL}
		}
		c.rdb = redis.NewClient(opt)
		if _, err := c.rdb.Ping(context.Background()).Result(); err != nil {
			log.Printf("[WARN] Failed to connect to Redis: %v", err)
		}
		return implementation.NewRedisCredentialRepository(c.rdb)
	default:
		return implementation.NewFileCredentialRepository(c.Config.Session.FilePath)
	}
}

// CurrentUser reports who is logged in.
func (c *Core) CurrentUser() (string, bool) {
	sess := c.Sessions.Current()
	if sess == nil {
		return "", false
	}
	return sess.Username, true
}

func (c *Core) Close() {
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.rdb != nil {
		_ = c.rdb.Close()
	}
}

// Container adds the HTTP and live update surface on top of Core.
type Container struct {
	*Core

	AuthController      controller.IAuthController
	DashboardController controller.IDashboardController
	HistoryController   controller.IHistoryController
	ChartController     controller.IChartController

	ViewStateHandler *handler.ViewStateHandler
	WebSocketHub     *websocket.Hub

	// Background Services (Exposed for main.go to run)
	StateConsumer service.IStateConsumerService
}

func NewContainer(cfg *config.Config) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())

	// In-process bus carrying view state snapshots to the hub
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermillLogger,
	)
	statePublisher := service.NewStatePublisherService(service.ViewStateTopic, pubSub, sysLogger)

	core := NewCore(cfg, sysLogger, statePublisher)

	wsLogger := logger.NewIsolatedLogger(filepath.Join(filepath.Dir(cfg.App.LogFilePath), "viewers.log"))
	wsHub := websocket.NewHub(wsLogger)

	return &Container{
		Core:                core,
		AuthController:      controller.NewAuthController(core.Sessions, cfg.App.DashboardSecret),
		DashboardController: controller.NewDashboardController(core.Dashboard),
		HistoryController:   controller.NewHistoryController(core.Dashboard),
		ChartController:     controller.NewChartController(core.Dashboard),
		ViewStateHandler:    handler.NewViewStateHandler(wsHub, wsLogger),
		WebSocketHub:        wsHub,
		StateConsumer:       service.NewStateConsumerService(pubSub, service.ViewStateTopic, wsHub, sysLogger),
	}
}
