package service

import (
	"context"
	"errors"
	"net/http"

	"github.com/nbd-wtf/go-nostr"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/lnclient/lnd"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/pkg/version"
	"github.com/flokiorg/bitcoinswitch/zaps"
)

// StartApp connects the lightning backend and starts the background
// listeners. Without LND_ADDRESS the service runs without invoices.
func (svc *service) StartApp() error {
	defer func() {
		svc.startupState = ""
	}()

	if svc.appCancelFn != nil {
		return errors.New("app already started")
	}

	ctx, cancelFn := context.WithCancel(svc.ctx)

	svc.startupState = "Connecting to Node"
	err := svc.launchLNBackend(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to connect to LND backend")
		cancelFn()
		return err
	}

	svc.startupState = "Starting listeners"
	svc.switchListener.Start(ctx)

	if svc.cfg.GetEnv().EnableZaps {
		err = svc.startZaps(ctx)
		if err != nil {
			logger.Logger.Error().Err(err).Msg("Failed to start zap listener")
		}
	}

	svc.appCancelFn = cancelFn
	return nil
}

func (svc *service) StopApp() {
	if svc.appCancelFn != nil {
		svc.appCancelFn()
		svc.appCancelFn = nil
	}
	svc.switchListener.Stop()
	svc.wg.Wait()
}

func (svc *service) launchLNBackend(ctx context.Context) error {
	address, certHex, macaroonHex := svc.cfg.GetLNDConnection()
	if address == "" {
		logger.Logger.Warn().Msg("No LND_ADDRESS configured, invoices cannot be created")
		return nil
	}

	logger.Logger.Info().Str("backend", config.LNDBackendType).Str("address", address).Msg("Connecting to lightning backend")

	lnClient, err := lnd.NewLNDService(ctx, svc.eventPublisher, address, certHex, macaroonHex)
	if err != nil {
		return err
	}

	svc.lnClientMtx.Lock()
	svc.lnClient = lnClient
	svc.lnClientMtx.Unlock()

	svc.wg.Add(1)
	go func() {
		defer svc.wg.Done()
		// ensure the LNClient is stopped properly before exiting
		<-ctx.Done()
		svc.stopLNClient()
	}()

	info, err := lnClient.GetInfo(ctx)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch node info")
	}
	if info != nil {
		svc.eventPublisher.SetGlobalProperty("node_id", info.Pubkey)
		svc.eventPublisher.SetGlobalProperty("network", info.Network)
	}

	svc.eventPublisher.Publish(&events.Event{
		Event: "node_started",
		Properties: map[string]interface{}{
			"node_type": config.LNDBackendType,
		},
	})
	return nil
}

func (svc *service) stopLNClient() {
	svc.lnClientMtx.Lock()
	defer svc.lnClientMtx.Unlock()
	if svc.lnClient == nil {
		return
	}

	logger.Logger.Info().Msg("Shutting down LN client")
	if err := svc.lnClient.Shutdown(); err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to stop LN client")
	}
	svc.lnClient = nil
}

func (svc *service) startZaps(ctx context.Context) error {
	relayUrls := svc.cfg.GetRelayUrls()
	if len(relayUrls) == 0 {
		return errors.New("no relay URLs configured")
	}

	pool := nostr.NewSimplePool(ctx, nostr.WithRelayOptions(
		nostr.WithNoticeHandler(func(notice string) {
			logger.Logger.Info().Msgf("Received a notice %s", notice)
		}),
		nostr.WithRequestHeader(http.Header{
			"User-Agent": {"Bitcoinswitch/" + version.Tag},
		}),
	))

	zapListener := zaps.NewListener(svc.switchesService, svc.fiatService, svc.broadcaster, pool, relayUrls)
	svc.eventPublisher.RegisterSubscriber(zapListener)
	zapListener.Start(ctx)

	go func() {
		<-ctx.Done()
		pool.Close("exiting")
		svc.eventPublisher.RemoveSubscriber(zapListener)
		logger.Logger.Info().Msg("Relay subroutine ended")
	}()
	return nil
}
