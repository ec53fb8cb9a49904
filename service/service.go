package service

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/adrg/xdg"
	"gorm.io/gorm"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/pkg/version"
	"github.com/flokiorg/bitcoinswitch/rates"
	"github.com/flokiorg/bitcoinswitch/relay"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/taproot"
	"github.com/flokiorg/bitcoinswitch/transactions"
	"github.com/flokiorg/bitcoinswitch/wallets"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/db/migrations"
	"github.com/flokiorg/bitcoinswitch/lnclient"
)

type service struct {
	cfg config.Config

	db                  *gorm.DB
	lnClient            lnclient.LNClient
	transactionsService transactions.TransactionsService
	switchesService     switches.SwitchesService
	walletsService      wallets.WalletsService
	fiatService         rates.FiatService
	rateService         rates.RateService
	taprootIntegration  taproot.Integration
	hub                 *relay.Hub
	mqttClient          *relay.MQTTClient
	broadcaster         relay.Broadcaster
	switchListener      *switches.Listener
	eventPublisher      events.EventPublisher
	ctx                 context.Context
	wg                  *sync.WaitGroup
	appCancelFn         context.CancelFunc
	startupState        string
	lnClientMtx         sync.RWMutex
}

func NewService(ctx context.Context) (*service, error) {
	// Load config from environment variables / .env file
	godotenv.Load(".env")
	appConfig := &config.AppConfig{}
	err := envconfig.Process("", appConfig)
	if err != nil {
		return nil, err
	}

	logger.Init(appConfig.LogLevel)
	logger.Logger.Info().Msg("Bitcoinswitch " + version.Tag)

	if appConfig.Workdir == "" {
		appConfig.Workdir = filepath.Join(xdg.DataHome, "/bitcoinswitch")
		logger.Logger.Info().Interface("workdir", appConfig.Workdir).Msg("No workdir specified, using default")
	}
	// make sure workdir exists
	os.MkdirAll(appConfig.Workdir, os.ModePerm)

	if appConfig.LogToFile {
		err = logger.AddFileLogger(appConfig.Workdir)
		if err != nil {
			return nil, err
		}
		logger.Logger.Info().Str("path", logger.GetLogFilePath()).Msg("Writing logs to file")
	}

	// If DATABASE_URI is a URI or a path, leave it unchanged.
	// If it only contains a filename, prepend the workdir.
	if !strings.HasPrefix(appConfig.DatabaseUri, "file:") && !db.IsPostgresURI(appConfig.DatabaseUri) {
		databasePath, _ := filepath.Split(appConfig.DatabaseUri)
		if databasePath == "" {
			appConfig.DatabaseUri = filepath.Join(appConfig.Workdir, appConfig.DatabaseUri)
		}
	}

	gormDB, err := db.NewDB(appConfig.DatabaseUri, appConfig.LogDBQueries)
	if err != nil {
		return nil, err
	}
	err = migrations.Migrate(gormDB)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to migrate database")
		return nil, err
	}

	cfg, err := config.NewConfig(appConfig, gormDB)
	if err != nil {
		return nil, err
	}

	eventPublisher := events.NewEventPublisher()

	svc := newService(ctx, cfg, gormDB, eventPublisher)

	_, _, err = svc.walletsService.EnsureDefaultWallet(ctx)
	if err != nil {
		return nil, err
	}

	if appConfig.MqttBrokerUrl != "" {
		mqttClient, err := relay.NewMQTTClient(appConfig.MqttBrokerUrl)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to connect to MQTT broker, continuing with websocket delivery only")
		} else {
			svc.mqttClient = mqttClient
			svc.broadcaster = relay.NewBroadcaster(svc.hub, mqttClient)
		}
	}

	svc.switchListener = switches.NewListener(svc.switchesService, svc.rateService, svc.broadcaster, appConfig.ListenerQueueSize)

	eventPublisher.RegisterSubscriber(svc.transactionsService)
	eventPublisher.RegisterSubscriber(svc.switchListener)

	eventPublisher.Publish(&events.Event{
		Event: constants.EVENT_SERVICE_STARTED,
		Properties: map[string]interface{}{
			"version": version.Tag,
		},
	})

	return svc, nil
}

// newService builds the services on top of an open database. The lightning
// backend and background listeners are started by StartApp.
func newService(ctx context.Context, cfg config.Config, gormDB *gorm.DB, eventPublisher events.EventPublisher) *service {
	walletsService := wallets.NewWalletsService(gormDB)

	var taprootIntegration taproot.Integration
	if cfg.GetEnv().TaprootAssetsUrl != "" {
		taprootIntegration = taproot.NewLiveIntegration(cfg.GetEnv().TaprootAssetsUrl, cfg.GetEnv().HttpTimeout())
	} else {
		taprootIntegration = taproot.NewUnavailableIntegration()
	}

	hub := relay.NewHub()

	return &service{
		cfg:                 cfg,
		ctx:                 ctx,
		wg:                  &sync.WaitGroup{},
		db:                  gormDB,
		eventPublisher:      eventPublisher,
		transactionsService: transactions.NewTransactionsService(gormDB, eventPublisher),
		switchesService:     switches.NewSwitchesService(gormDB, eventPublisher),
		walletsService:      walletsService,
		fiatService:         rates.NewFiatService(cfg),
		rateService:         rates.NewRateService(cfg, walletsService),
		taprootIntegration:  taprootIntegration,
		hub:                 hub,
		broadcaster:         relay.NewBroadcaster(hub, nil),
	}
}

func (svc *service) Shutdown() {
	svc.StopApp()
	svc.eventPublisher.PublishSync(&events.Event{
		Event: constants.EVENT_SERVICE_STOPPED,
	})
	svc.hub.Close()
	if svc.mqttClient != nil {
		svc.mqttClient.Disconnect()
	}
	if err := db.Stop(svc.db); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to close database")
	}
}

func (svc *service) GetDB() *gorm.DB {
	return svc.db
}

func (svc *service) GetConfig() config.Config {
	return svc.cfg
}

func (svc *service) GetEventPublisher() events.EventPublisher {
	return svc.eventPublisher
}

func (svc *service) GetLNClient() lnclient.LNClient {
	svc.lnClientMtx.RLock()
	defer svc.lnClientMtx.RUnlock()
	return svc.lnClient
}

func (svc *service) GetTransactionsService() transactions.TransactionsService {
	return svc.transactionsService
}

func (svc *service) GetSwitchesService() switches.SwitchesService {
	return svc.switchesService
}

func (svc *service) GetWalletsService() wallets.WalletsService {
	return svc.walletsService
}

func (svc *service) GetFiatService() rates.FiatService {
	return svc.fiatService
}

func (svc *service) GetRateService() rates.RateService {
	return svc.rateService
}

func (svc *service) GetTaprootIntegration() taproot.Integration {
	return svc.taprootIntegration
}

func (svc *service) GetBroadcaster() relay.Broadcaster {
	return svc.broadcaster
}

func (svc *service) GetHub() *relay.Hub {
	return svc.hub
}

func (svc *service) GetStartupState() string {
	return svc.startupState
}
