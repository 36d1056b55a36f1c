package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/code-launchpad/pkg/launchpad/event"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestPublish(t *testing.T) {
	writer := &fakeWriter{}
	p := newPublisher(writer, logrus.NewEntry(logrus.StandardLogger()))

	msg := &event.FeesDistributed{
		Mint:           "mint",
		RecipientsPaid: 3,
		TotalAmount:    101,
	}
	require.NoError(t, p.Publish(context.Background(), msg))

	require.Len(t, writer.messages, 1)
	written := writer.messages[0]
	assert.Equal(t, "mint", string(written.Key))
	require.Len(t, written.Headers, 1)
	assert.Equal(t, string(event.KindFeesDistributed), string(written.Headers[0].Value))

	decoded, err := event.Decode(written.Value)
	require.NoError(t, err)
	assert.Equal(t, msg, decoded)

	writer.err = errors.New("broker unavailable")
	assert.Error(t, p.Publish(context.Background(), msg))

	require.NoError(t, p.Close())
	assert.True(t, writer.closed)
}
