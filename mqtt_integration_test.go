package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/kwv/framefit/align"
)

// TestPublishToBroker fits the test dataset and publishes it to a real broker,
// then reads the retained results topic back.
func TestPublishToBroker(t *testing.T) {
	// Skip if not running integration tests
	if os.Getenv("RUN_INTEGRATION_TESTS") != "1" {
		t.Skip("Skipping integration test (set RUN_INTEGRATION_TESTS=1 to run)")
	}

	broker := os.Getenv("MQTT_BROKER")
	if broker == "" {
		broker = "tcp://localhost:1883"
	}
	prefix := "framefit-test-" + time.Now().Format("150405")

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	cfg := "dataset: " + writeDataset(t) + "\nmqtt:\n  broker: " + broker + "\n  publishPrefix: " + prefix + "\n  clientId: framefit-test-pub\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0644); err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	t.Setenv("MQTT_BROKER", "")
	t.Setenv("MQTT_PUBLISH_PREFIX", "")
	t.Setenv("MQTT_CLIENT_ID", "")

	app := NewApp()
	app.Out = &bytes.Buffer{}
	app.ApplyOptions(AppOptions{ConfigFile: cfgPath, OutputDir: dir, Publish: true})
	if err := app.RunFit(); err != nil {
		t.Fatalf("RunFit: %v", err)
	}

	sub, err := align.Connect(align.MQTTConfig{Broker: broker, ClientID: "framefit-test-sub"}, 5*time.Second)
	if err != nil {
		t.Fatalf("connecting subscriber: %v", err)
	}
	defer sub.Disconnect(250)

	received := make(chan []byte, 1)
	token := sub.Subscribe(prefix+"/results", 1, func(_ mqtt.Client, msg mqtt.Message) {
		select {
		case received <- msg.Payload():
		default:
		}
	})
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("subscribing: %v", token.Error())
	}

	select {
	case payload := <-received:
		var msgs []align.ScenarioMessage
		if err := json.Unmarshal(payload, &msgs); err != nil {
			t.Fatalf("decoding results payload: %v", err)
		}
		if len(msgs) != len(app.Results) {
			t.Errorf("got %d scenario messages, want %d", len(msgs), len(app.Results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for retained results message")
	}

	// Clear retained messages so later runs start clean.
	for _, sr := range app.Results {
		sub.Publish(prefix+"/"+sr.Scenario.Slug(), 1, true, []byte{}).WaitTimeout(time.Second)
	}
	sub.Publish(prefix+"/results", 1, true, []byte{}).WaitTimeout(time.Second)
}
