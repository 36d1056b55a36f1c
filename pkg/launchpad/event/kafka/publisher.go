package kafka

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
	"github.com/code-payments/code-launchpad/pkg/metrics"
)

const (
	kindHeader = "kind"

	defaultWriteTimeout = 10 * time.Second
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type publisher struct {
	log     *logrus.Entry
	writer  messageWriter
	timeout time.Duration
}

// New returns an event.Publisher writing JSON envelopes to topic, keyed by
// mint so events of one asset stay ordered.
func New(brokers []string, topic string) event.Publisher {
	log := logrus.StandardLogger().WithField("type", "event/kafka")

	return newPublisher(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			log.Errorf(msg, args...)
		}),
	}, log)
}

func newPublisher(writer messageWriter, log *logrus.Entry) *publisher {
	return &publisher{
		log:     log,
		writer:  writer,
		timeout: defaultWriteTimeout,
	}
}

// Publish implements event.Publisher.Publish
func (p *publisher) Publish(ctx context.Context, msg event.Message) error {
	tracer := metrics.TraceMethodCall(ctx, "event.kafka", "Publish")
	defer tracer.End()

	value, err := event.Encode(msg)
	if err != nil {
		tracer.OnError(err)
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.Key()),
		Value: value,
		Headers: []kafka.Header{
			{Key: kindHeader, Value: []byte(msg.Kind())},
		},
		Time: time.Now(),
	})
	if err != nil {
		tracer.OnError(err)
		return errors.Wrap(err, "error writing event")
	}

	p.log.WithFields(logrus.Fields{
		"method": "Publish",
		"kind":   msg.Kind(),
		"key":    msg.Key(),
	}).Debug("published event")
	return nil
}

// Close implements event.Publisher.Close
func (p *publisher) Close() error {
	return p.writer.Close()
}
