package http

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/flokiorg/bitcoinswitch/api"
	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/relay"
	"github.com/flokiorg/bitcoinswitch/wallets"
)

const (
	apiKeyHeader     = "X-Api-Key"
	walletContextKey = "wallet"
)

type HttpService struct {
	api            api.API
	walletsService wallets.WalletsService
	hub            *relay.Hub
}

func NewHttpService(api api.API, walletsService wallets.WalletsService, hub *relay.Hub) *HttpService {
	return &HttpService{
		api:            api,
		walletsService: walletsService,
		hub:            hub,
	}
}

func (httpSvc *HttpService) RegisterSharedRoutes(e *echo.Echo) {
	e.HideBanner = true

	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		ReferrerPolicy:     "no-referrer",
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogHost:      true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			logger.HttpLogger.Info().
				Str("uri", values.URI).
				Int("status", values.Status).
				Str("remote_ip", values.RemoteIP).
				Str("user_agent", values.UserAgent).
				Str("host", values.Host).
				Str("request_id", values.RequestID).
				Msg("handled API request")
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// LNURL endpoints are called by the payer's wallet and are not authenticated
	publicGroup := e.Group("/bitcoinswitch/api/v1")
	publicGroup.GET("/lnurl/:switch_id", httpSvc.lnurlParamsHandler)
	publicGroup.GET("/lnurl/cb/:payment_id", httpSvc.lnurlCallbackHandler)
	publicGroup.GET("/public/:id", httpSvc.publicSwitchHandler)
	publicGroup.GET("/public/:id/qr/:pin", httpSvc.pinQRCodeHandler)
	publicGroup.GET("/ws/:id", httpSvc.websocketHandler)
	publicGroup.GET("/currencies", httpSvc.currenciesHandler)

	invoiceKeyGroup := e.Group("/bitcoinswitch/api/v1")
	invoiceKeyGroup.Use(httpSvc.requireWalletKey(false))
	invoiceKeyGroup.GET("", httpSvc.switchesListHandler)
	invoiceKeyGroup.GET("/payments", httpSvc.paymentsListHandler)
	invoiceKeyGroup.GET("/wallet", httpSvc.walletInfoHandler)
	invoiceKeyGroup.GET("/transactions", httpSvc.transactionsListHandler)

	adminKeyGroup := e.Group("/bitcoinswitch/api/v1")
	adminKeyGroup.Use(httpSvc.requireWalletKey(true))
	adminKeyGroup.POST("", httpSvc.switchesCreateHandler)
	adminKeyGroup.PUT("/trigger/:switch_id/:pin", httpSvc.switchTriggerHandler)
	adminKeyGroup.PUT("/:id", httpSvc.switchesUpdateHandler)
	adminKeyGroup.GET("/:id", httpSvc.switchesShowHandler)
	adminKeyGroup.DELETE("/:id", httpSvc.switchesDeleteHandler)
}

// requireWalletKey authenticates the X-Api-Key header against the wallets.
// Admin routes reject invoice keys.
func (httpSvc *HttpService) requireWalletKey(admin bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.Request().Header.Get(apiKeyHeader)
			if key == "" {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Message: "Missing api key",
				})
			}

			wallet, keyType, err := httpSvc.walletsService.GetWalletByKey(c.Request().Context(), key)
			if err != nil {
				if errors.Is(err, wallets.ErrWalletNotFound) {
					return c.JSON(http.StatusUnauthorized, ErrorResponse{
						Message: "Invalid api key",
					})
				}
				logger.Logger.Error().Err(err).Msg("Failed to look up api key")
				return c.JSON(http.StatusInternalServerError, ErrorResponse{
					Message: "Failed to look up api key",
				})
			}
			if admin && keyType != wallets.KeyTypeAdmin {
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Message: "Invalid admin key",
				})
			}

			c.Set(walletContextKey, wallet)
			return next(c)
		}
	}
}

func (httpSvc *HttpService) switchesListHandler(c echo.Context) error {
	switches, err := httpSvc.api.ListSwitches(c.Request().Context(), walletFromContext(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, switches)
}

func (httpSvc *HttpService) paymentsListHandler(c echo.Context) error {
	payments, err := httpSvc.api.ListPayments(c.Request().Context(), walletFromContext(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, payments)
}

func (httpSvc *HttpService) walletInfoHandler(c echo.Context) error {
	info, err := httpSvc.api.GetWalletInfo(c.Request().Context(), walletFromContext(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, info)
}

func (httpSvc *HttpService) transactionsListHandler(c echo.Context) error {
	transactions, err := httpSvc.api.ListTransactions(c.Request().Context(), walletFromContext(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, transactions)
}

func (httpSvc *HttpService) currenciesHandler(c echo.Context) error {
	currencies, err := httpSvc.api.GetCurrencies(c.Request().Context())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, currencies)
}

func (httpSvc *HttpService) switchesCreateHandler(c echo.Context) error {
	var requestData api.CreateSwitchRequest
	if err := c.Bind(&requestData); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	responseBody, err := httpSvc.api.CreateSwitch(c.Request().Context(), walletFromContext(c), &requestData)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) switchesUpdateHandler(c echo.Context) error {
	var requestData api.CreateSwitchRequest
	if err := c.Bind(&requestData); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: fmt.Sprintf("Bad request: %s", err.Error()),
		})
	}

	responseBody, err := httpSvc.api.UpdateSwitch(c.Request().Context(), walletFromContext(c), c.Param("id"), &requestData)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) switchesShowHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetSwitch(c.Request().Context(), walletFromContext(c), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) switchesDeleteHandler(c echo.Context) error {
	err := httpSvc.api.DeleteSwitch(c.Request().Context(), walletFromContext(c), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (httpSvc *HttpService) switchTriggerHandler(c echo.Context) error {
	pin, err := strconv.Atoi(c.Param("pin"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid pin",
		})
	}

	payload, err := httpSvc.api.TriggerSwitch(c.Request().Context(), walletFromContext(c), c.Param("switch_id"), pin)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, triggerResponse{Payload: payload})
}

func (httpSvc *HttpService) publicSwitchHandler(c echo.Context) error {
	responseBody, err := httpSvc.api.GetPublicSwitch(c.Request().Context(), c.Param("id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) pinQRCodeHandler(c echo.Context) error {
	pin, err := strconv.Atoi(c.Param("pin"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid pin",
		})
	}

	png, err := httpSvc.api.GetPinQRCode(c.Request().Context(), c.Param("id"), pin)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.Blob(http.StatusOK, "image/png", png)
}

func (httpSvc *HttpService) websocketHandler(c echo.Context) error {
	switchID := c.Param("id")
	if switchID == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Switch ID is required",
		})
	}

	// Serve blocks until the device disconnects
	if err := httpSvc.hub.Serve(c.Response(), c.Request(), switchID); err != nil {
		logger.Logger.Debug().Err(err).Str("switch_id", switchID).Msg("Websocket upgrade failed")
		return nil
	}
	return nil
}

func (httpSvc *HttpService) lnurlParamsHandler(c echo.Context) error {
	request := &api.LnurlParamsRequest{
		Pin:      c.QueryParam("pin"),
		Amount:   c.QueryParam("amount"),
		Duration: c.QueryParam("duration"),
		Variable: c.QueryParam("variable"),
		Comment:  c.QueryParam("comment"),
	}

	responseBody, err := httpSvc.api.LnurlParams(c.Request().Context(), c.Param("switch_id"), request)
	if err != nil {
		return lnurlErrorResponseFor(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func (httpSvc *HttpService) lnurlCallbackHandler(c echo.Context) error {
	request := &api.LnurlCallbackRequest{
		Amount:  c.QueryParam("amount"),
		Comment: c.QueryParam("comment"),
		AssetID: c.QueryParam("asset_id"),
	}

	responseBody, err := httpSvc.api.LnurlCallback(c.Request().Context(), c.Param("payment_id"), request)
	if err != nil {
		return lnurlErrorResponseFor(c, err)
	}
	return c.JSON(http.StatusOK, responseBody)
}

func walletFromContext(c echo.Context) *db.Wallet {
	return c.Get(walletContextKey).(*db.Wallet)
}

func statusCode(kind api.ErrorKind) int {
	switch kind {
	case api.ErrorKindNotFound:
		return http.StatusNotFound
	case api.ErrorKindForbidden:
		return http.StatusForbidden
	case api.ErrorKindBadRequest:
		return http.StatusBadRequest
	case api.ErrorKindUpstream:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func errorResponse(c echo.Context, err error) error {
	apiErr := api.AsError(err)
	status := statusCode(apiErr.Kind)
	if status >= http.StatusInternalServerError {
		logger.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("API request failed")
	}
	return c.JSON(status, ErrorResponse{
		Message: apiErr.Message,
	})
}

func lnurlErrorResponseFor(c echo.Context, err error) error {
	apiErr := api.AsError(err)
	if statusCode(apiErr.Kind) >= http.StatusInternalServerError {
		logger.Logger.Error().Err(err).Str("uri", c.Request().RequestURI).Msg("LNURL request failed")
	}
	return c.JSON(http.StatusOK, lnurlErrorResponse{
		Status: "ERROR",
		Reason: apiErr.Message,
	})
}
