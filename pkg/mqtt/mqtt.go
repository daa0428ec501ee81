// Package mqtt publishes loop notifications to an MQTT broker.
package mqtt

import (
	"encoding/json"
	"fmt"
	"log"

	"sub_trigger_bot/pkg/notify"
)

const (
	TopicPrefix = "subtrigger"
	// Retained lifecycle topic, "online" while connected, "offline" as last will.
	TopicSystem = TopicPrefix + "/system"
)

// Topic of the events of a channel.
func Topic(channel string) string {
	return fmt.Sprintf("%s/%s/events", TopicPrefix, channel)
}

// Publisher publishes events to MQTT.
type Publisher interface {
	// Returns error if publishing fails, callers log and continue.
	Publish(topic string, payload []byte) error
	Close() error
}

// FormatPayload creates the JSON payload of an event.
func FormatPayload(e notify.Event) ([]byte, error) {
	return json.Marshal(notify.NewPayload(e))
}

// Observer forwarding increase, error and state events to a publisher.
type Observer struct {
	publisher Publisher
}

func NewObserver(publisher Publisher) *Observer {
	return &Observer{publisher: publisher}
}

func (o *Observer) Notify(e notify.Event) {
	if e.Kind == notify.KindCount {
		return
	}

	payload, err := FormatPayload(e)
	if err != nil {
		log.Printf("failed to format mqtt payload, error %v\n", err)
		return
	}

	if err := o.publisher.Publish(Topic(string(e.Target)), payload); err != nil {
		log.Printf("failed to publish %s event, error %v\n", e.Kind, err)
	}
}
