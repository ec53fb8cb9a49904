package wrapper

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/lightningnetwork/lnd/lnrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
)

type LNDoptions struct {
	Address     string
	CertHex     string
	MacaroonHex string
}

type LNDWrapper struct {
	client lnrpc.LightningClient
	conn   *grpc.ClientConn
}

// macaroonCredential attaches the hex encoded macaroon to every call.
type macaroonCredential struct {
	macaroonHex string
}

func (m macaroonCredential) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"macaroon": m.macaroonHex}, nil
}

func (m macaroonCredential) RequireTransportSecurity() bool {
	return true
}

func NewLNDclient(lndOptions LNDoptions) (*LNDWrapper, error) {
	if lndOptions.Address == "" {
		return nil, errors.New("lnd address is required")
	}
	if _, err := hex.DecodeString(lndOptions.MacaroonHex); err != nil {
		return nil, fmt.Errorf("invalid macaroon hex: %w", err)
	}

	tlsConfig := &tls.Config{MinVersion: tls.VersionTLS12}
	if lndOptions.CertHex != "" {
		certBytes, err := hex.DecodeString(lndOptions.CertHex)
		if err != nil {
			return nil, fmt.Errorf("invalid cert hex: %w", err)
		}
		certPool := x509.NewCertPool()
		if !certPool.AppendCertsFromPEM(certBytes) {
			return nil, errors.New("failed to parse lnd tls certificate")
		}
		tlsConfig.RootCAs = certPool
	}

	conn, err := grpc.NewClient(lndOptions.Address,
		grpc.WithTransportCredentials(credentials.NewTLS(tlsConfig)),
		grpc.WithPerRPCCredentials(macaroonCredential{macaroonHex: lndOptions.MacaroonHex}),
		grpc.WithDefaultCallOptions(grpc.MaxCallRecvMsgSize(50*1024*1024)),
	)
	if err != nil {
		return nil, err
	}

	return &LNDWrapper{
		client: lnrpc.NewLightningClient(conn),
		conn:   conn,
	}, nil
}

func (wrapper *LNDWrapper) GetInfo(ctx context.Context, req *lnrpc.GetInfoRequest, options ...grpc.CallOption) (*lnrpc.GetInfoResponse, error) {
	return wrapper.client.GetInfo(ctx, req, options...)
}

func (wrapper *LNDWrapper) AddInvoice(ctx context.Context, req *lnrpc.Invoice, options ...grpc.CallOption) (*lnrpc.AddInvoiceResponse, error) {
	return wrapper.client.AddInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) LookupInvoice(ctx context.Context, req *lnrpc.PaymentHash, options ...grpc.CallOption) (*lnrpc.Invoice, error) {
	return wrapper.client.LookupInvoice(ctx, req, options...)
}

func (wrapper *LNDWrapper) SubscribeInvoices(ctx context.Context, req *lnrpc.InvoiceSubscription, options ...grpc.CallOption) (lnrpc.Lightning_SubscribeInvoicesClient, error) {
	return wrapper.client.SubscribeInvoices(ctx, req, options...)
}

func (wrapper *LNDWrapper) Close() error {
	return wrapper.conn.Close()
}
