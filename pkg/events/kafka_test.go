package events_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/mailvault"
	"github.com/dmitrymomot/mailvault/pkg/events"
	"github.com/dmitrymomot/mailvault/pkg/mailer"
)

type writerMock struct {
	mock.Mock
}

func (m *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *writerMock) Close() error {
	return m.Called().Error(0)
}

func delivery() *mailvault.Delivery {
	return &mailvault.Delivery{
		ID:         uuid.MustParse("0b7c9a36-3f1e-4c55-9d2a-5a8f0d3b6e11"),
		ResentFrom: uuid.MustParse("5d1f0a7e-8e4b-4c8a-b0e2-2f7a9c6d4b33"),
		Template:   "welcome",
		State:      mailvault.StatePersisted,
		SentAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Email: &mailer.Email{
			From:    "team@example.com",
			To:      []string{"ann@example.com"},
			Subject: "Welcome",
			HTML:    "<p>hi</p>",
		},
	}
}

func TestKafkaPublisher_Publish(t *testing.T) {
	t.Parallel()

	w := new(writerMock)
	var got []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { got = args.Get(1).([]kafka.Message) }).
		Return(nil).Once()

	pub := events.NewWithWriter(w)
	require.NoError(t, pub.Publish(context.Background(), delivery()))
	w.AssertExpectations(t)

	require.Len(t, got, 1)
	assert.Equal(t, "0b7c9a36-3f1e-4c55-9d2a-5a8f0d3b6e11", string(got[0].Key))

	var ev events.SentEvent
	require.NoError(t, json.Unmarshal(got[0].Value, &ev))
	assert.Equal(t, "welcome", ev.Template)
	assert.Equal(t, []string{"ann@example.com"}, ev.To)
	assert.Equal(t, "Welcome", ev.Subject)
	require.NotNil(t, ev.ResentFrom)
	assert.Equal(t, "5d1f0a7e-8e4b-4c8a-b0e2-2f7a9c6d4b33", ev.ResentFrom.String())
	assert.False(t, ev.TestMode)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	t.Parallel()

	boom := errors.New("broker down")
	w := new(writerMock)
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(boom).Once()

	err := events.NewWithWriter(w).Publish(context.Background(), delivery())
	require.ErrorIs(t, err, events.ErrPublish)
	require.ErrorIs(t, err, boom)
}

func TestKafkaPublisher_SkipsEmptyDelivery(t *testing.T) {
	t.Parallel()

	w := new(writerMock)
	pub := events.NewWithWriter(w)
	require.NoError(t, pub.Publish(context.Background(), nil))
	require.NoError(t, pub.Publish(context.Background(), &mailvault.Delivery{}))
	w.AssertNotCalled(t, "WriteMessages", mock.Anything, mock.Anything)
}

func TestNewKafkaPublisher_Config(t *testing.T) {
	t.Parallel()

	_, err := events.NewKafkaPublisher(events.Config{Topic: "x"})
	require.ErrorIs(t, err, events.ErrInvalidConfig)

	_, err = events.NewKafkaPublisher(events.Config{Brokers: []string{"localhost:9092"}})
	require.ErrorIs(t, err, events.ErrInvalidConfig)

	pub, err := events.NewKafkaPublisher(events.Config{Brokers: []string{"localhost:9092"}, Topic: "mail"})
	require.NoError(t, err)
	require.NoError(t, pub.Close())
}

func TestConfig_Enabled(t *testing.T) {
	t.Parallel()

	assert.False(t, events.Config{}.Enabled())
	assert.False(t, events.Config{Brokers: []string{" "}}.Enabled())
	assert.True(t, events.Config{Brokers: []string{"k:9092"}}.Enabled())
}
