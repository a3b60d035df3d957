package pubsub

import (
	"context"
	"encoding/json"

	"cloud.google.com/go/pubsub"

	ohlcv "github.com/gokulmuthuR/crypto-ml-pipeline"
)

// EventSink forwards persisted and failed pair events to the
// notifications topic. All other event kinds stay local.
type EventSink struct {
	client *Client
	logger ohlcv.Logger
}

func NewEventSink(client *Client, logger ohlcv.Logger) *EventSink {
	return &EventSink{client, logger}
}

func (es *EventSink) Publish(event *ohlcv.Event) {
	switch event.Kind {
	case ohlcv.EventSeriesPersisted, ohlcv.EventPairFailed:
	default:
		return
	}

	es.publishOnNotificationsTopic(context.TODO(), event)
}

func (es *EventSink) publishOnNotificationsTopic(
	ctx context.Context,
	event *ohlcv.Event,
) {
	topicLogger := es.logger.WithField("topic", "notifications")

	messageData, err := json.Marshal(&ingestionNotification{
		Kind:    string(event.Kind),
		Pair:    event.Pair.String(),
		Details: event.Fields,
	})
	if err != nil {
		topicLogger.Errorf("could not marshal ingestion event: [%v]", err)
		return
	}

	result := es.client.notificationsTopic.Publish(ctx, &pubsub.Message{
		Data: messageData,
	})

	go func() {
		id, err := result.Get(ctx)
		if err != nil {
			topicLogger.Errorf(
				"could not publish ingestion event: [%v]",
				err,
			)
			return
		}

		topicLogger.Infof("published ingestion event with ID: [%v]", id)
	}()
}

type ingestionNotification struct {
	Kind    string
	Pair    string
	Details map[string]interface{}
}
