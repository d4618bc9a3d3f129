package align

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// DefaultPublishPrefix is the topic prefix when none is configured
const DefaultPublishPrefix = "framefit"

// publishTimeout bounds the wait for each publish acknowledgement
const publishTimeout = 5 * time.Second

// ScenarioMessage is the payload published for one scenario
type ScenarioMessage struct {
	Label        string          `json:"label"`
	Translation  Point           `json:"translation"`
	Theta        float64         `json:"theta"`
	ThetaDegrees float64         `json:"thetaDegrees"`
	Scale        float64         `json:"scale"`
	Affine       AffineMatrix    `json:"affine"`
	Converged    bool            `json:"converged"`
	Status       string          `json:"status"`
	MeanResidual float64         `json:"meanResidual"`
	Residuals    []KeyedResidual `json:"residuals"`
	Timestamp    int64           `json:"timestamp"`
}

// Publisher publishes fitted calibrations to MQTT
type Publisher struct {
	client        mqtt.Client
	publishPrefix string
	qos           byte
	retain        bool
}

// NewPublisher creates a publisher writing under prefix.
// If client is nil, publishing is disabled.
func NewPublisher(client mqtt.Client, prefix string) *Publisher {
	if prefix == "" {
		prefix = DefaultPublishPrefix
	}
	return &Publisher{
		client:        client,
		publishPrefix: prefix,
		qos:           1,
		retain:        true, // Retain so late subscribers get the last calibration
	}
}

// newScenarioMessage converts a scenario result into its wire form
func newScenarioMessage(sr ScenarioResult, now time.Time) ScenarioMessage {
	sim := sr.Result.Similarity
	return ScenarioMessage{
		Label:        sr.Scenario.Label,
		Translation:  sim.Translation,
		Theta:        sim.Theta,
		ThetaDegrees: sim.Degrees(),
		Scale:        sim.Scale,
		Affine:       sim.Affine(),
		Converged:    sr.Result.Converged,
		Status:       sr.Result.Status,
		MeanResidual: sr.MeanResidual,
		Residuals:    sr.Residuals,
		Timestamp:    now.Unix(),
	}
}

// PublishResults publishes every scenario to <prefix>/<slug> and the full
// list to <prefix>/results.
func (p *Publisher) PublishResults(results []ScenarioResult) error {
	if p.client == nil || !p.client.IsConnected() {
		return fmt.Errorf("MQTT client not connected")
	}

	now := time.Now()
	all := make([]ScenarioMessage, 0, len(results))
	for _, sr := range results {
		msg := newScenarioMessage(sr, now)
		all = append(all, msg)
		topic := fmt.Sprintf("%s/%s", p.publishPrefix, sr.Scenario.Slug())
		if err := p.publishJSON(topic, msg); err != nil {
			log.Printf("[MQTT] error publishing %s: %v", topic, err)
			return err
		}
	}

	return p.publishJSON(p.publishPrefix+"/results", all)
}

func (p *Publisher) publishJSON(topic string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling payload for %s: %w", topic, err)
	}

	token := p.client.Publish(topic, p.qos, p.retain, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publishing to %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publishing to %s: %w", topic, err)
	}
	log.Printf("[MQTT] published %d bytes to %s", len(payload), topic)
	return nil
}
