package testservice

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/lnclient"
	"github.com/flokiorg/bitcoinswitch/rates"
	"github.com/flokiorg/bitcoinswitch/relay"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/taproot"
	testsdb "github.com/flokiorg/bitcoinswitch/tests/db"
	"github.com/flokiorg/bitcoinswitch/transactions"
	"github.com/flokiorg/bitcoinswitch/wallets"
)

// TestService wires the real services on a temporary sqlite database. Fields
// may be replaced before the service is handed to the code under test.
type TestService struct {
	Cfg                 config.Config
	DB                  *gorm.DB
	EventPublisher      events.EventPublisher
	LNClient            lnclient.LNClient
	TransactionsService transactions.TransactionsService
	SwitchesService     switches.SwitchesService
	WalletsService      wallets.WalletsService
	FiatService         rates.FiatService
	RateService         rates.RateService
	Taproot             taproot.Integration
	Hub                 *relay.Hub
	Broadcaster         relay.Broadcaster
	Wallet              *db.Wallet
}

func CreateTestService(t *testing.T, lnClient lnclient.LNClient) *TestService {
	t.Helper()

	gormDB, err := testsdb.NewDB(t)
	require.NoError(t, err)

	appConfig := config.NewDefaultAppConfig()
	appConfig.LogToFile = false
	cfg, err := config.NewConfig(appConfig, gormDB)
	require.NoError(t, err)

	eventPublisher := events.NewEventPublisher()
	walletsService := wallets.NewWalletsService(gormDB)
	wallet, _, err := walletsService.EnsureDefaultWallet(context.TODO())
	require.NoError(t, err)

	hub := relay.NewHub()
	t.Cleanup(func() {
		hub.Close()
		testsdb.CloseDB(gormDB)
	})

	return &TestService{
		Cfg:                 cfg,
		DB:                  gormDB,
		EventPublisher:      eventPublisher,
		LNClient:            lnClient,
		TransactionsService: transactions.NewTransactionsService(gormDB, eventPublisher),
		SwitchesService:     switches.NewSwitchesService(gormDB, eventPublisher),
		WalletsService:      walletsService,
		FiatService:         rates.NewFiatService(cfg),
		RateService:         rates.NewRateService(cfg, walletsService),
		Taproot:             taproot.NewUnavailableIntegration(),
		Hub:                 hub,
		Broadcaster:         relay.NewBroadcaster(hub, nil),
		Wallet:              wallet,
	}
}

func (svc *TestService) StartApp() error { return nil }
func (svc *TestService) StopApp()        {}
func (svc *TestService) Shutdown()       {}

func (svc *TestService) GetEventPublisher() events.EventPublisher { return svc.EventPublisher }
func (svc *TestService) GetLNClient() lnclient.LNClient           { return svc.LNClient }
func (svc *TestService) GetTransactionsService() transactions.TransactionsService {
	return svc.TransactionsService
}
func (svc *TestService) GetSwitchesService() switches.SwitchesService   { return svc.SwitchesService }
func (svc *TestService) GetWalletsService() wallets.WalletsService      { return svc.WalletsService }
func (svc *TestService) GetFiatService() rates.FiatService              { return svc.FiatService }
func (svc *TestService) GetRateService() rates.RateService              { return svc.RateService }
func (svc *TestService) GetTaprootIntegration() taproot.Integration     { return svc.Taproot }
func (svc *TestService) GetBroadcaster() relay.Broadcaster              { return svc.Broadcaster }
func (svc *TestService) GetHub() *relay.Hub                             { return svc.Hub }
func (svc *TestService) GetDB() *gorm.DB                                { return svc.DB }
func (svc *TestService) GetConfig() config.Config                       { return svc.Cfg }
func (svc *TestService) GetStartupState() string                        { return "" }
