package align

import (
	"fmt"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultClientID is used when neither MQTT_CLIENT_ID nor the config sets one
const DefaultClientID = "framefit"

// envOr returns the environment variable if set, otherwise fallback
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// ResolveMQTTConfig applies MQTT_* environment overrides to cfg
func ResolveMQTTConfig(cfg MQTTConfig) MQTTConfig {
	cfg.Broker = envOr("MQTT_BROKER", cfg.Broker)
	cfg.ClientID = envOr("MQTT_CLIENT_ID", cfg.ClientID)
	cfg.Username = envOr("MQTT_USERNAME", cfg.Username)
	cfg.Password = envOr("MQTT_PASSWORD", cfg.Password)
	cfg.PublishPrefix = envOr("MQTT_PUBLISH_PREFIX", cfg.PublishPrefix)
	if cfg.ClientID == "" {
		cfg.ClientID = DefaultClientID
	}
	if cfg.PublishPrefix == "" {
		cfg.PublishPrefix = DefaultPublishPrefix
	}
	return cfg
}

// clientOptions builds paho options for cfg
func clientOptions(cfg MQTTConfig) *mqtt.ClientOptions {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	if cfg.Username != "" {
		opts.SetUsername(cfg.Username)
		opts.SetPassword(cfg.Password)
	}
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetAutoReconnect(false)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.Printf("[MQTT] connection lost: %v", err)
	})
	return opts
}

// Connect opens a connection to the configured broker and waits for it.
// A config without a broker returns nil, nil: publishing is disabled.
func Connect(cfg MQTTConfig, timeout time.Duration) (mqtt.Client, error) {
	cfg = ResolveMQTTConfig(cfg)
	if cfg.Broker == "" {
		log.Println("[MQTT] disabled: MQTT_BROKER not set")
		return nil, nil
	}

	client := mqtt.NewClient(clientOptions(cfg))
	log.Printf("[MQTT] connecting to %s as %s", cfg.Broker, cfg.ClientID)
	token := client.Connect()
	if !token.WaitTimeout(timeout) {
		return nil, fmt.Errorf("connecting to MQTT broker %s: timeout after %v", cfg.Broker, timeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connecting to MQTT broker %s: %w", cfg.Broker, err)
	}
	log.Println("[MQTT] connected")
	return client, nil
}
