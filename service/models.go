package service

import (
	"gorm.io/gorm"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/lnclient"
	"github.com/flokiorg/bitcoinswitch/rates"
	"github.com/flokiorg/bitcoinswitch/relay"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/taproot"
	"github.com/flokiorg/bitcoinswitch/transactions"
	"github.com/flokiorg/bitcoinswitch/wallets"
)

type Service interface {
	StartApp() error
	StopApp()
	Shutdown()

	GetEventPublisher() events.EventPublisher
	GetLNClient() lnclient.LNClient
	GetTransactionsService() transactions.TransactionsService
	GetSwitchesService() switches.SwitchesService
	GetWalletsService() wallets.WalletsService
	GetFiatService() rates.FiatService
	GetRateService() rates.RateService
	GetTaprootIntegration() taproot.Integration
	GetBroadcaster() relay.Broadcaster
	GetHub() *relay.Hub
	GetDB() *gorm.DB
	GetConfig() config.Config
	GetStartupState() string
}
