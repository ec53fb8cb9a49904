package lnd

import (
	"context"
	"encoding/hex"
	"errors"
	"time"

	"github.com/lightningnetwork/lnd/lnrpc"
	"github.com/rs/zerolog"

	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/events"
	"github.com/flokiorg/bitcoinswitch/lnclient"
	"github.com/flokiorg/bitcoinswitch/lnclient/lnd/wrapper"
	"github.com/flokiorg/bitcoinswitch/logger"
)

type LNDService struct {
	client         *wrapper.LNDWrapper
	nodeInfo       *lnclient.NodeInfo
	cancel         context.CancelFunc
	ctx            context.Context
	eventPublisher events.EventPublisher
	logger         zerolog.Logger
}

func NewLNDService(ctx context.Context, eventPublisher events.EventPublisher, lndAddress, lndCertHex, lndMacaroonHex string) (result lnclient.LNClient, err error) {
	if lndAddress == "" || lndMacaroonHex == "" {
		return nil, errors.New("one or more required LND configuration are missing")
	}

	lndClient, err := wrapper.NewLNDclient(wrapper.LNDoptions{
		Address:     lndAddress,
		CertHex:     lndCertHex,
		MacaroonHex: lndMacaroonHex,
	})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create new LND client")
		return nil, err
	}

	var nodeInfo *lnclient.NodeInfo
	maxRetries := 5
	for i := range maxRetries {
		nodeInfo, err = fetchNodeInfo(ctx, lndClient)
		if err == nil {
			break
		}
		logger.Logger.Error().Err(err).
			Int("iteration", i).
			Msg("Failed to connect to LND, retrying in 2s")

		select {
		case <-time.After(2 * time.Second):
		case <-ctx.Done():
			logger.Logger.Error().Err(ctx.Err()).Msg("Context cancelled during LND connection retries")
			return nil, ctx.Err()
		}
	}

	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to connect to LND on final attempt, not attempting further retries")
		return nil, err
	}

	lndCtx, cancel := context.WithCancel(ctx)

	lndService := &LNDService{
		client:         lndClient,
		nodeInfo:       nodeInfo,
		cancel:         cancel,
		ctx:            lndCtx,
		eventPublisher: eventPublisher,
		logger:         logger.Logger.With().Str("frontend", "LND").Logger(),
	}

	go lndService.subscribeInvoices(lndCtx)

	logger.Logger.Info().Str("alias", nodeInfo.Alias).Str("network", nodeInfo.Network).Msg("Connected to LND")

	return lndService, nil
}

// subscribeInvoices publishes every settled invoice and resubscribes when the
// stream breaks.
func (svc *LNDService) subscribeInvoices(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			invoiceStream, err := svc.client.SubscribeInvoices(ctx, &lnrpc.InvoiceSubscription{})
			if err != nil {
				svc.logger.Error().Err(err).Msg("Error subscribing to invoices")
				select {
				case <-ctx.Done():
					return
				case <-time.After(10 * time.Second):
					continue
				}
			}
		invoicesLoop:
			for {
				invoice, err := invoiceStream.Recv()
				if err != nil {
					svc.logger.Error().Err(err).Msg("Failed to receive invoice")
					select {
					case <-ctx.Done():
						return
					case <-time.After(2 * time.Second):
						break invoicesLoop
					}
				}

				if invoice.State != lnrpc.Invoice_SETTLED {
					continue
				}

				svc.logger.Info().
					Str("payment_hash", hex.EncodeToString(invoice.RHash)).
					Int64("amount_msat", invoice.AmtPaidMsat).
					Msg("Received settled invoice")

				svc.eventPublisher.Publish(&events.Event{
					Event:      constants.EVENT_LNCLIENT_PAYMENT_RECEIVED,
					Properties: lndInvoiceToTransaction(invoice),
				})
			}
		}
	}
}

func (svc *LNDService) Shutdown() error {
	logger.Logger.Info().Msg("cancelling LND context")
	svc.cancel()
	return svc.client.Close()
}

func (svc *LNDService) MakeInvoice(ctx context.Context, amount int64, description string, descriptionHash string, expiry int64) (transaction *lnclient.Transaction, err error) {
	var descriptionHashBytes []byte

	if descriptionHash != "" {
		descriptionHashBytes, err = hex.DecodeString(descriptionHash)
		if err != nil || len(descriptionHashBytes) != 32 {
			if err == nil {
				err = errors.New("description hash must be 32 bytes hex")
			}
			logger.Logger.Error().Err(err).
				Str("descriptionHash", descriptionHash).
				Msg("Invalid description hash")
			return nil, err
		}
	}

	if expiry == 0 {
		expiry = lnclient.DEFAULT_INVOICE_EXPIRY
	}

	addInvoiceRequest := &lnrpc.Invoice{
		ValueMsat:       amount,
		DescriptionHash: descriptionHashBytes,
		Expiry:          expiry,
		// include hop hints for private channels
		Private: true,
	}
	if len(descriptionHashBytes) == 0 {
		addInvoiceRequest.Memo = description
	}

	resp, err := svc.client.AddInvoice(ctx, addInvoiceRequest)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to create invoice")
		return nil, err
	}

	inv, err := svc.client.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: resp.RHash})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to lookup invoice")
		return nil, err
	}

	transaction = lndInvoiceToTransaction(inv)
	return transaction, nil
}

func (svc *LNDService) LookupInvoice(ctx context.Context, paymentHash string) (transaction *lnclient.Transaction, err error) {
	paymentHashBytes, err := hex.DecodeString(paymentHash)
	if err != nil || len(paymentHashBytes) != 32 {
		if err == nil {
			err = errors.New("payment hash must be 32 bytes hex")
		}
		logger.Logger.Error().Err(err).
			Str("payment_hash", paymentHash).
			Msg("Invalid payment hash")
		return nil, err
	}

	lndInvoice, err := svc.client.LookupInvoice(ctx, &lnrpc.PaymentHash{RHash: paymentHashBytes})
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("payment_hash", paymentHash).
			Msg("Failed to lookup invoice")
		return nil, err
	}

	transaction = lndInvoiceToTransaction(lndInvoice)
	return transaction, nil
}

func (svc *LNDService) GetInfo(ctx context.Context) (info *lnclient.NodeInfo, err error) {
	return svc.nodeInfo, nil
}

func fetchNodeInfo(ctx context.Context, client *wrapper.LNDWrapper) (*lnclient.NodeInfo, error) {
	resp, err := client.GetInfo(ctx, &lnrpc.GetInfoRequest{})
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Failed to fetch node info")
		return nil, err
	}
	network := ""
	if len(resp.Chains) > 0 {
		network = resp.Chains[0].Network
	}
	if network == "mainnet" {
		network = "bitcoin"
	}
	return &lnclient.NodeInfo{
		Alias:       resp.Alias,
		Color:       resp.Color,
		Pubkey:      resp.IdentityPubkey,
		Network:     network,
		BlockHeight: resp.BlockHeight,
		BlockHash:   resp.BlockHash,
	}, nil
}

func lndInvoiceToTransaction(invoice *lnrpc.Invoice) *lnclient.Transaction {
	var settledAt *int64
	var preimage string
	amount := invoice.ValueMsat

	if invoice.State == lnrpc.Invoice_SETTLED {
		settledAt = &invoice.SettleDate
		preimage = hex.EncodeToString(invoice.RPreimage)
		// variable-amount invoices report what was actually paid
		if invoice.AmtPaidMsat > 0 {
			amount = invoice.AmtPaidMsat
		}
	}
	var expiresAt *int64
	if invoice.Expiry > 0 {
		expiresAtUnix := invoice.CreationDate + invoice.Expiry
		expiresAt = &expiresAtUnix
	}

	return &lnclient.Transaction{
		Type:            constants.TRANSACTION_TYPE_INCOMING,
		Invoice:         invoice.PaymentRequest,
		Description:     invoice.Memo,
		DescriptionHash: hex.EncodeToString(invoice.DescriptionHash),
		Preimage:        preimage,
		PaymentHash:     hex.EncodeToString(invoice.RHash),
		Amount:          amount,
		CreatedAt:       invoice.CreationDate,
		SettledAt:       settledAt,
		ExpiresAt:       expiresAt,
		Metadata:        map[string]interface{}{},
	}
}
