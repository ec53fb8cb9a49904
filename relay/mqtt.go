package relay

import (
	"crypto/tls"
	"fmt"
	"net/url"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/flokiorg/bitcoinswitch/logger"
)

const mqttTimeout = 10 * time.Second

// Publisher is the part of an MQTT client the broadcaster needs.
type Publisher interface {
	Publish(topic string, payload []byte) error
}

type MQTTClient struct {
	cli mqtt.Client
}

// NewMQTTClient connects to brokerURL. Accepted schemes are mqtt, tcp, ssl,
// tls, ws and wss; credentials may be given in the URL.
func NewMQTTClient(brokerURL string) (*MQTTClient, error) {
	opts, err := mqttClientOptions(brokerURL)
	if err != nil {
		return nil, err
	}

	cli := mqtt.NewClient(opts)
	token := cli.Connect()
	if !token.WaitTimeout(mqttTimeout) {
		return nil, fmt.Errorf("timed out connecting to mqtt broker %s", redactURL(brokerURL))
	}
	if token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", token.Error())
	}
	return &MQTTClient{cli: cli}, nil
}

func mqttClientOptions(brokerURL string) (*mqtt.ClientOptions, error) {
	u, err := url.Parse(brokerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid MQTT_BROKER_URL: %w", err)
	}

	var server string
	switch u.Scheme {
	case "mqtt", "tcp":
		server = "tcp://" + u.Host
	case "ssl", "tls":
		server = "ssl://" + u.Host
	case "ws", "wss":
		server = u.Scheme + "://" + u.Host + u.Path
	default:
		return nil, fmt.Errorf("unsupported mqtt scheme %q", u.Scheme)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(server)
	opts.SetClientID("bitcoinswitch-" + time.Now().Format("150405.000"))
	opts.SetAutoReconnect(true)
	opts.OnConnect = func(c mqtt.Client) {
		logger.Logger.Info().Str("broker", server).Msg("MQTT connected")
	}
	opts.OnConnectionLost = func(c mqtt.Client, err error) {
		logger.Logger.Error().Err(err).Str("broker", server).Msg("MQTT connection lost")
	}
	if u.User != nil {
		password, _ := u.User.Password()
		opts.SetUsername(u.User.Username())
		opts.SetPassword(password)
	}
	if u.Scheme == "ssl" || u.Scheme == "tls" || u.Scheme == "wss" {
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	return opts, nil
}

func (c *MQTTClient) Publish(topic string, payload []byte) error {
	token := c.cli.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(mqttTimeout) {
		return fmt.Errorf("timed out publishing to %s", topic)
	}
	return token.Error()
}

func (c *MQTTClient) Disconnect() {
	c.cli.Disconnect(250)
}

func redactURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Redacted()
}
