package mqtt

import (
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetWill(TopicSystem, "offline", 1, true)

	opts.SetOnConnectHandler(func(c paho.Client) {
		c.Publish(TopicSystem, 1, true, "online")
	})

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, errors.New("mqtt connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to broker")
	}

	return &RealPublisher{
		client: client,
	}, nil
}

func (p *RealPublisher) Publish(topic string, payload []byte) error {
	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(topic, 0, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return errors.New("publish timeout")
	}
	if err := token.Error(); err != nil {
		return errors.Wrap(err, "failed to publish")
	}

	return nil
}

func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close marks the daemon offline and disconnects from the broker.
func (p *RealPublisher) Close() error {
	token := p.client.Publish(TopicSystem, 1, true, "offline")
	token.WaitTimeout(publishTimeout)

	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
