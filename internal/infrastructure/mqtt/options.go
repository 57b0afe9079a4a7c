package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gray-logic-linewriter/internal/infrastructure/config"
)

const (
	defaultConnectTimeout    = 10 * time.Second
	defaultPublishTimeout    = 5 * time.Second
	defaultDisconnectQuiesce = 1000 // milliseconds
	defaultKeepAlive         = 60 * time.Second

	maxQoS        = 2
	tlsMinVersion = tls.VersionTLS12
)

// buildClientOptions maps the config onto paho options. Sessions are clean:
// the write topic is re-subscribed by the client itself after reconnects.
func buildClientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
	}

	opts := pahomqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port)).
		SetClientID(cfg.Broker.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(defaultConnectTimeout).
		SetKeepAlive(defaultKeepAlive)

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	if cfg.Broker.TLS {
		opts.SetTLSConfig(&tls.Config{MinVersion: tlsMinVersion})
	}
	return opts
}

// configureLWT registers a retained offline status the broker publishes if
// the writer disappears without calling Close.
func configureLWT(opts *pahomqtt.ClientOptions, topics Topics, clientID string) {
	opts.SetBinaryWill(topics.Status(), statusPayload(clientID, topics, "offline", "unexpected_disconnect"), 1, true)
}

// statusMessage is the retained document on the status topic. It tells
// consumers where lines are published and where points are accepted.
type statusMessage struct {
	Status     string `json:"status"`
	ClientID   string `json:"client_id"`
	Site       string `json:"site"`
	LinesTopic string `json:"lines_topic"`
	WriteTopic string `json:"write_topic"`
	Reason     string `json:"reason,omitempty"`
	Timestamp  string `json:"timestamp"`
}

func statusPayload(clientID string, topics Topics, status, reason string) []byte {
	//nolint:errchkjson // statusMessage holds only strings
	payload, _ := json.Marshal(statusMessage{
		Status:     status,
		ClientID:   clientID,
		Site:       topics.Site,
		LinesTopic: topics.AllLines(),
		WriteTopic: topics.Write(),
		Reason:     reason,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	})
	return payload
}
