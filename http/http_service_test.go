package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/flokiorg/bitcoinswitch/api"
	"github.com/flokiorg/bitcoinswitch/constants"
	"github.com/flokiorg/bitcoinswitch/lnclient"
	"github.com/flokiorg/bitcoinswitch/switches"
	"github.com/flokiorg/bitcoinswitch/tests"
	"github.com/flokiorg/bitcoinswitch/tests/mocks"
	"github.com/flokiorg/bitcoinswitch/tests/testservice"
)

type testServer struct {
	svc    *testservice.TestService
	server *httptest.Server
}

func setupTestServer(t *testing.T, lnClient *mocks.MockLNClient) *testServer {
	var client lnclient.LNClient
	if lnClient != nil {
		client = lnClient
	}
	svc := testservice.CreateTestService(t, client)

	e := echo.New()
	httpSvc := NewHttpService(api.NewAPI(svc), svc.WalletsService, svc.Hub)
	httpSvc.RegisterSharedRoutes(e)

	server := httptest.NewServer(e)
	t.Cleanup(server.Close)

	return &testServer{svc: svc, server: server}
}

// startSwitchListener settles paid switch invoices like the running service.
func (ts *testServer) startSwitchListener(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	listener := switches.NewListener(ts.svc.SwitchesService, ts.svc.RateService, ts.svc.Broadcaster, 10)
	ts.svc.EventPublisher.RegisterSubscriber(listener)
	listener.Start(ctx)
	t.Cleanup(func() {
		cancel()
		listener.Stop()
	})
}

func (ts *testServer) do(t *testing.T, method string, path string, apiKey string, body interface{}) (*http.Response, []byte) {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, ts.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if apiKey != "" {
		req.Header.Set(apiKeyHeader, apiKey)
	}

	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	responseBody, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, responseBody
}

func (ts *testServer) createSwitch(t *testing.T, req *api.CreateSwitchRequest) *api.Switch {
	res, body := ts.do(t, http.MethodPost, "/bitcoinswitch/api/v1", ts.svc.Wallet.AdminKey, req)
	require.Equal(t, http.StatusOK, res.StatusCode, string(body))

	var sw api.Switch
	require.NoError(t, json.Unmarshal(body, &sw))
	return &sw
}

func (ts *testServer) dialSwitch(t *testing.T, switchID string) *websocket.Conn {
	wsURL := "ws" + strings.TrimPrefix(ts.server.URL, "http") + "/bitcoinswitch/api/v1/ws/" + switchID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return ts.svc.Hub.HasSubscribers(switchID)
	}, time.Second, 10*time.Millisecond)
	return conn
}

func fixedSwitchRequest() *api.CreateSwitchRequest {
	return &api.CreateSwitchRequest{
		Title:    "Vending",
		Currency: constants.SAT_CURRENCY,
		Switches: []api.PinConfig{{Pin: 4, Amount: 100, Duration: 5000}},
	}
}

func TestApiKeyMiddleware(t *testing.T) {
	ts := setupTestServer(t, nil)

	res, _ := ts.do(t, http.MethodPost, "/bitcoinswitch/api/v1", "", fixedSwitchRequest())
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = ts.do(t, http.MethodPost, "/bitcoinswitch/api/v1", "not-a-key", fixedSwitchRequest())
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = ts.do(t, http.MethodPost, "/bitcoinswitch/api/v1", ts.svc.Wallet.InvoiceKey, fixedSwitchRequest())
	assert.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1", ts.svc.Wallet.InvoiceKey, nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)

	res, _ = ts.do(t, http.MethodPost, "/bitcoinswitch/api/v1", ts.svc.Wallet.AdminKey, fixedSwitchRequest())
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestSwitchCrudRoutes(t *testing.T) {
	ts := setupTestServer(t, nil)
	adminKey := ts.svc.Wallet.AdminKey

	sw := ts.createSwitch(t, fixedSwitchRequest())

	res, body := ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/"+sw.ID, adminKey, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var found api.Switch
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Equal(t, sw.ID, found.ID)

	update := fixedSwitchRequest()
	update.Title = "Arcade"
	res, body = ts.do(t, http.MethodPut, "/bitcoinswitch/api/v1/"+sw.ID, adminKey, update)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.Unmarshal(body, &found))
	assert.Equal(t, "Arcade", found.Title)

	res, body = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1", ts.svc.Wallet.InvoiceKey, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var list []api.Switch
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list, 1)

	res, _ = ts.do(t, http.MethodDelete, "/bitcoinswitch/api/v1/"+sw.ID, adminKey, nil)
	assert.Equal(t, http.StatusNoContent, res.StatusCode)

	res, body = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/"+sw.ID, adminKey, nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.JSONEq(t, `{"message":"Bitcoinswitch does not exist."}`, string(body))
}

func TestCreateSwitch_BadRequest(t *testing.T) {
	ts := setupTestServer(t, nil)

	res, body := ts.do(t, http.MethodPost, "/bitcoinswitch/api/v1", ts.svc.Wallet.AdminKey, &api.CreateSwitchRequest{Currency: "sat"})
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	assert.JSONEq(t, `{"message":"Title is required"}`, string(body))
}

func TestLnurlErrorShape(t *testing.T) {
	ts := setupTestServer(t, nil)

	res, body := ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/lnurl/missing?pin=4", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ERROR","reason":"bitcoinswitch missing not found on this server"}`, string(body))

	res, body = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/lnurl/cb/missing?amount=1000", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"status":"ERROR","reason":"bitcoinswitchpayment not found."}`, string(body))
}

func TestPublicSwitchRoute(t *testing.T) {
	ts := setupTestServer(t, nil)
	password := "secret"
	req := fixedSwitchRequest()
	req.Password = &password
	sw := ts.createSwitch(t, req)

	res, body := ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/public/"+sw.ID, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.NotContains(t, string(body), "secret")
	assert.NotContains(t, string(body), sw.Key)

	var public api.PublicSwitch
	require.NoError(t, json.Unmarshal(body, &public))
	assert.True(t, public.HasPassword)
	assert.False(t, public.Connected)
	require.Len(t, public.Switches, 1)
	assert.NotEmpty(t, public.Switches[0].Lnurl)
}

func TestTriggerRoute_ReachesDevice(t *testing.T) {
	ts := setupTestServer(t, nil)
	sw := ts.createSwitch(t, fixedSwitchRequest())
	conn := ts.dialSwitch(t, sw.ID)

	res, body := ts.do(t, http.MethodPut, "/bitcoinswitch/api/v1/trigger/"+sw.ID+"/4", ts.svc.Wallet.AdminKey, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.JSONEq(t, `{"payload":"4-5000"}`, string(body))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "4-5000", string(msg))
}

func TestWalletAndMetricsRoutes(t *testing.T) {
	ts := setupTestServer(t, nil)

	res, body := ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/wallet", ts.svc.Wallet.InvoiceKey, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var info api.WalletInfoResponse
	require.NoError(t, json.Unmarshal(body, &info))
	assert.Equal(t, ts.svc.Wallet.ID, info.ID)

	res, body = ts.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "bitcoinswitch_")
}

func TestPinQRCodeAndTransactionsRoutes(t *testing.T) {
	ts := setupTestServer(t, nil)
	sw := ts.createSwitch(t, fixedSwitchRequest())

	res, body := ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/public/"+sw.ID+"/qr/4", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "image/png", res.Header.Get("Content-Type"))
	assert.True(t, strings.HasPrefix(string(body), "\x89PNG"))

	res, _ = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/public/"+sw.ID+"/qr/abc", "", nil)
	assert.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/public/"+sw.ID+"/qr/99", "", nil)
	assert.Equal(t, http.StatusNotFound, res.StatusCode)

	res, body = ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/transactions", ts.svc.Wallet.InvoiceKey, nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var transactions []api.Transaction
	require.NoError(t, json.Unmarshal(body, &transactions))
	assert.Empty(t, transactions)
}

// lnurlPay runs both LNURL steps for pin 4 and returns the payment id.
func (ts *testServer) lnurlPay(t *testing.T, switchID string, comment string) string {
	res, body := ts.do(t, http.MethodGet, "/bitcoinswitch/api/v1/lnurl/"+switchID+"?pin=4", "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var params api.LnurlPayResponse
	require.NoError(t, json.Unmarshal(body, &params), string(body))
	assert.Equal(t, uint64(100_000), params.MinSendable)
	assert.Equal(t, uint64(100_000), params.MaxSendable)

	callbackPath := strings.TrimPrefix(params.Callback, "http://localhost:8080")
	paymentID := strings.TrimPrefix(callbackPath, "/bitcoinswitch/api/v1/lnurl/cb/")

	payment, err := ts.svc.SwitchesService.GetPayment(context.TODO(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, constants.PAYMENT_HASH_NOT_YET_SET, payment.PaymentHash)

	path := callbackPath + "?amount=100000"
	if comment != "" {
		path = path + "&comment=" + comment
	}
	res, body = ts.do(t, http.MethodGet, path, "", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var callback api.LnurlCallbackResponse
	require.NoError(t, json.Unmarshal(body, &callback), string(body))
	assert.Equal(t, tests.MockInvoice, callback.Pr)

	payment, err = ts.svc.SwitchesService.GetPayment(context.TODO(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, tests.MockPaymentHash, payment.PaymentHash)
	return paymentID
}

func TestLnurlPayment_DeliversPayloadOnce(t *testing.T) {
	lnClient := mocks.NewMockLNClient(t)
	lnClient.EXPECT().
		MakeInvoice(mock.Anything, int64(100_000), "Vending (5000 ms)", mock.Anything, int64(0)).
		Return(tests.MockLNClientTransaction, nil).
		Once()

	ts := setupTestServer(t, lnClient)
	ts.startSwitchListener(t)
	sw := ts.createSwitch(t, fixedSwitchRequest())
	conn := ts.dialSwitch(t, sw.ID)

	paymentID := ts.lnurlPay(t, sw.ID, "")

	_, err := ts.svc.TransactionsService.MarkTransactionSettled(context.TODO(), tests.MockPaymentHash, tests.MockPreimage, 100_000)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "4-5000", string(msg))

	payment, err := ts.svc.SwitchesService.GetPayment(context.TODO(), paymentID)
	require.NoError(t, err)
	assert.Equal(t, constants.PAYMENT_HASH_PAID, payment.PaymentHash)

	// settling again must not fire the switch a second time
	_, err = ts.svc.TransactionsService.MarkTransactionSettled(context.TODO(), tests.MockPaymentHash, tests.MockPreimage, 100_000)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestLnurlPayment_WrongPasswordDropsPayload(t *testing.T) {
	lnClient := mocks.NewMockLNClient(t)
	lnClient.EXPECT().
		MakeInvoice(mock.Anything, int64(100_000), mock.Anything, mock.Anything, mock.Anything).
		Return(tests.MockLNClientTransaction, nil).
		Once()

	ts := setupTestServer(t, lnClient)
	ts.startSwitchListener(t)
	password := "secret"
	req := fixedSwitchRequest()
	req.Password = &password
	sw := ts.createSwitch(t, req)
	conn := ts.dialSwitch(t, sw.ID)

	paymentID := ts.lnurlPay(t, sw.ID, "wrong")

	_, err := ts.svc.TransactionsService.MarkTransactionSettled(context.TODO(), tests.MockPaymentHash, tests.MockPreimage, 100_000)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		payment, err := ts.svc.SwitchesService.GetPayment(context.TODO(), paymentID)
		return err == nil && payment.PaymentHash == constants.PAYMENT_HASH_PAID
	}, 2*time.Second, 20*time.Millisecond)

	_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	_, _, err = conn.ReadMessage()
	assert.Error(t, err)
}

func TestLnurlPayment_CorrectPasswordDeliversWithoutComment(t *testing.T) {
	lnClient := mocks.NewMockLNClient(t)
	lnClient.EXPECT().
		MakeInvoice(mock.Anything, int64(100_000), mock.Anything, mock.Anything, mock.Anything).
		Return(tests.MockLNClientTransaction, nil).
		Once()

	ts := setupTestServer(t, lnClient)
	ts.startSwitchListener(t)
	password := "secret"
	req := fixedSwitchRequest()
	req.Password = &password
	sw := ts.createSwitch(t, req)
	conn := ts.dialSwitch(t, sw.ID)

	ts.lnurlPay(t, sw.ID, "secret")

	_, err := ts.svc.TransactionsService.MarkTransactionSettled(context.TODO(), tests.MockPaymentHash, tests.MockPreimage, 100_000)
	require.NoError(t, err)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "4-5000", string(msg))
}
