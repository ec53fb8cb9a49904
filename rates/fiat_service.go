package rates

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/flokiorg/bitcoinswitch/config"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/pkg/version"
)

const satsPerBtc = 100_000_000

type fiatService struct {
	cfg        config.Config
	httpClient *http.Client
	now        func() time.Time

	cacheMtx  sync.Mutex
	rates     map[string]float64
	fetchedAt time.Time
}

func NewFiatService(cfg config.Config) *fiatService {
	return &fiatService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.GetEnv().HttpTimeout()},
		now:        time.Now,
	}
}

func (svc *fiatService) GetBtcRate(ctx context.Context, currency string) (float64, error) {
	rates, err := svc.getRates(ctx)
	if err != nil {
		return 0, err
	}

	rate, ok := rates[strings.ToUpper(currency)]
	if !ok || rate <= 0 {
		return 0, fmt.Errorf("no exchange rate for currency %s", currency)
	}
	return rate, nil
}

// FiatAmountToSats converts a fiat amount into satoshis at the current BTC rate.
func (svc *fiatService) FiatAmountToSats(ctx context.Context, amount float64, currency string) (uint64, error) {
	rate, err := svc.GetBtcRate(ctx, currency)
	if err != nil {
		return 0, err
	}
	return uint64(math.Round(amount / rate * satsPerBtc)), nil
}

func (svc *fiatService) GetCurrencies(ctx context.Context) ([]string, error) {
	rates, err := svc.getRates(ctx)
	if err != nil {
		return nil, err
	}
	currencies := make([]string, 0, len(rates))
	for currency := range rates {
		currencies = append(currencies, currency)
	}
	sort.Strings(currencies)
	return currencies, nil
}

func (svc *fiatService) getRates(ctx context.Context) (map[string]float64, error) {
	svc.cacheMtx.Lock()
	defer svc.cacheMtx.Unlock()

	if svc.rates != nil && svc.now().Sub(svc.fetchedAt) < svc.cfg.GetEnv().RateRefresh() {
		return svc.rates, nil
	}

	rates, err := svc.fetchRates(ctx)
	if err != nil {
		if svc.rates != nil {
			logger.Logger.Warn().Err(err).Time("fetched_at", svc.fetchedAt).Msg("Using stale exchange rates")
			return svc.rates, nil
		}
		return nil, err
	}

	svc.rates = rates
	svc.fetchedAt = svc.now()
	return rates, nil
}

func (svc *fiatService) fetchRates(ctx context.Context) (map[string]float64, error) {
	url := svc.cfg.GetEnv().RatesUrl

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		logger.Logger.Error().Err(err).Msg("Error creating request to rates endpoint")
		return nil, err
	}
	setDefaultRequestHeaders(req)

	res, err := svc.httpClient.Do(req)
	if err != nil {
		logger.Logger.Error().Err(err).Str("url", url).Msg("Failed to fetch exchange rates")
		return nil, fmt.Errorf("failed to fetch exchange rates: %w", err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		logger.Logger.Error().Err(err).
			Str("url", url).
			Msg("Failed to read response body")
		return nil, errors.New("failed to read response body")
	}

	if res.StatusCode >= 300 {
		logger.Logger.Error().
			Str("body", string(body)).
			Int("status_code", res.StatusCode).
			Msg("Rates endpoint returned non-success code")
		return nil, fmt.Errorf("rates endpoint returned non-success code: %s", string(body))
	}

	var response exchangeRatesResponse
	err = json.Unmarshal(body, &response)
	if err != nil {
		logger.Logger.Error().
			Str("body", string(body)).
			Err(err).
			Msg("Failed to decode rates API response")
		return nil, err
	}

	rates := make(map[string]float64, len(response.Data.Rates))
	for currency, value := range response.Data.Rates {
		rate, err := strconv.ParseFloat(value, 64)
		if err != nil {
			continue
		}
		rates[strings.ToUpper(currency)] = rate
	}
	if len(rates) == 0 {
		return nil, errors.New("rates endpoint returned no rates")
	}

	logger.Logger.Debug().Int("currencies", len(rates)).Msg("Refreshed exchange rates")
	return rates, nil
}

func setDefaultRequestHeaders(req *http.Request) {
	req.Header.Set("User-Agent", "bitcoinswitch/"+version.Tag)
	req.Header.Set("Content-Type", "application/json")
}
