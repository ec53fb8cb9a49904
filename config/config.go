package config

import (
	"encoding/hex"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/flokiorg/bitcoinswitch/db"
	"github.com/flokiorg/bitcoinswitch/logger"
	"github.com/flokiorg/bitcoinswitch/utils"
)

const defaultLNDPort = 10009

type config struct {
	Env        *AppConfig
	db         *gorm.DB
	cache      map[string]string
	cacheMutex sync.Mutex
}

func NewConfig(env *AppConfig, db *gorm.DB) (*config, error) {
	cfg := &config{
		db:    db,
		cache: map[string]string{},
	}
	err := cfg.init(env)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func (cfg *config) init(env *AppConfig) error {
	cfg.Env = env

	if cfg.Env.Relay != "" {
		err := cfg.SetRelay(cfg.Env.Relay)
		if err != nil {
			return err
		}
	}

	if cfg.Env.LNDAddress != "" {
		host, port, err := utils.ParseHostPort(cfg.Env.LNDAddress)
		if err != nil {
			return fmt.Errorf("invalid LND_ADDRESS: %w", err)
		}
		if port == 0 {
			port = defaultLNDPort
		}
		err = cfg.SetUpdate(LNDAddressKey, net.JoinHostPort(host, strconv.Itoa(int(port))))
		if err != nil {
			return err
		}
	}
	if cfg.Env.LNDCertFile != "" {
		certBytes, err := os.ReadFile(cfg.Env.LNDCertFile)
		if err != nil {
			logger.Logger.Error().Err(err).Str("path", cfg.Env.LNDCertFile).Msg("Failed to read LND cert file")
			return err
		}
		err = cfg.SetUpdate(LNDCertHexKey, hex.EncodeToString(certBytes))
		if err != nil {
			return err
		}
	} else {
		// no cert file: connect with the system trust store
		err := cfg.SetUpdate(LNDCertHexKey, "")
		if err != nil {
			return err
		}
	}
	if cfg.Env.LNDMacaroonFile != "" {
		macBytes, err := os.ReadFile(cfg.Env.LNDMacaroonFile)
		if err != nil {
			logger.Logger.Error().Err(err).Str("path", cfg.Env.LNDMacaroonFile).Msg("Failed to read LND macaroon file")
			return err
		}
		err = cfg.SetUpdate(LNDMacaroonHexKey, hex.EncodeToString(macBytes))
		if err != nil {
			return err
		}
	}

	return nil
}

func (cfg *config) GetEnv() *AppConfig {
	return cfg.Env
}

func (cfg *config) GetRelayUrls() []string {
	relayUrls, _ := cfg.Get(RelayKey)
	urls := strings.Split(relayUrls, ",")
	for i := range urls {
		urls[i] = strings.TrimSpace(urls[i])
	}
	return utils.Filter(urls, func(url string) bool {
		return url != ""
	})
}

func (cfg *config) SetRelay(value string) error {
	for _, relayUrl := range strings.Split(value, ",") {
		relayUrl = strings.TrimSpace(relayUrl)
		if relayUrl == "" {
			continue
		}
		if err := utils.ValidateWebSocketURL(relayUrl); err != nil {
			return fmt.Errorf("invalid relay %q: %w", relayUrl, err)
		}
	}
	return cfg.SetUpdate(RelayKey, value)
}

func (cfg *config) GetLNDConnection() (string, string, string) {
	address, _ := cfg.Get(LNDAddressKey)
	certHex, _ := cfg.Get(LNDCertHexKey)
	macaroonHex, _ := cfg.Get(LNDMacaroonHexKey)
	return address, certHex, macaroonHex
}

func (cfg *config) Get(key string) (string, error) {
	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()

	if cachedValue, ok := cfg.cache[key]; ok {
		logger.Logger.Debug().Str("key", key).Msg("hit config cache")
		return cachedValue, nil
	}

	var userConfig db.UserConfig
	err := cfg.db.Where(&db.UserConfig{Key: key}).Limit(1).Find(&userConfig).Error
	if err != nil {
		return "", fmt.Errorf("failed to get configuration value: %w", err)
	}

	cfg.cache[key] = userConfig.Value
	return userConfig.Value, nil
}

func (cfg *config) set(key string, value string, clauses clause.OnConflict) error {
	userConfig := db.UserConfig{Key: key, Value: value}
	result := cfg.db.Clauses(clauses).Create(&userConfig)
	if result.Error != nil {
		return fmt.Errorf("failed to save key to config: %w", result.Error)
	}

	cfg.cacheMutex.Lock()
	defer cfg.cacheMutex.Unlock()
	delete(cfg.cache, key)

	return nil
}

func (cfg *config) SetIgnore(key string, value string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoNothing: true,
	}
	err := cfg.set(key, value, clauses)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with ignore")
		return err
	}
	return nil
}

func (cfg *config) SetUpdate(key string, value string) error {
	clauses := clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}
	err := cfg.set(key, value, clauses)
	if err != nil {
		logger.Logger.Error().Err(err).Str("key", key).Msg("Failed to set config key with update")
		return err
	}
	return nil
}
