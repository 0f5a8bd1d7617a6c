package mqtt

import (
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/gridctl/internal/infrastructure/config"
)

const (
	connectTimeout    = 10 * time.Second
	ackTimeout        = 5 * time.Second
	keepAlive         = 60 * time.Second
	disconnectQuiesce = 1000 // ms
	maxPayload        = 1 << 20
)

const (
	presenceOnline  = "online"
	presenceOffline = "offline"
)

// presence is the retained record on PresenceTopic. The broker publishes
// the will copy (reason "connection_lost") if gridctl disappears.
type presence struct {
	State    string    `json:"state"`
	ClientID string    `json:"client_id"`
	Reason   string    `json:"reason,omitempty"`
	Time     time.Time `json:"time"`
}

func presencePayload(clientID, state, reason string) []byte {
	b, _ := json.Marshal(presence{State: state, ClientID: clientID, Reason: reason, Time: time.Now().UTC()})
	return b
}

// clientOptions maps the mqtt config section onto paho options: clean
// session, auto-reconnect between the configured delays, TLS 1.2+ when
// enabled and a retained offline will.
func clientOptions(cfg config.MQTTConfig) *pahomqtt.ClientOptions {
	id := cfg.Broker.ClientID
	opts := pahomqtt.NewClientOptions().
		SetClientID(id).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(time.Duration(cfg.Reconnect.InitialDelay) * time.Second).
		SetMaxReconnectInterval(time.Duration(cfg.Reconnect.MaxDelay) * time.Second).
		SetConnectTimeout(connectTimeout).
		SetKeepAlive(keepAlive).
		SetWill(PresenceTopic(id), string(presencePayload(id, presenceOffline, "connection_lost")), 1, true)

	scheme := "tcp"
	if cfg.Broker.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Broker.Host, cfg.Broker.Port))

	if cfg.Auth.Username != "" {
		opts.SetUsername(cfg.Auth.Username)
		opts.SetPassword(cfg.Auth.Password)
	}
	return opts
}
