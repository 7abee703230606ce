package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/aftershock-catalog/internal/domain"
	"github.com/jonboulle/clockwork"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

var validatedAt = time.Date(1980, 1, 15, 9, 30, 0, 0, time.UTC)

func newTestPublisher(w messageWriter) *Publisher {
	return &Publisher{
		writer: w,
		clock:  clockwork.NewFakeClockAt(validatedAt),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func testCatalog(t *testing.T) domain.Catalog {
	t.Helper()
	s, err := domain.DefaultSchema()
	require.NoError(t, err)
	res := domain.Validate([]domain.RawRow{
		{"event_id": "CAR-001", "datetime": "1979-12-26T05:10:00Z", "latitude": "54.89", "longitude": "-2.93", "depth_km": "6", "magnitude": "2.4", "magnitude_type": "ML"},
		{"event_id": "CAR-002", "datetime": "1979-12-27T11:42:00Z", "latitude": "54.95", "longitude": "-2.81", "magnitude": "1.9", "magnitude_type": "Md"},
	}, s)
	c, err := res.Catalog("carlisle")
	require.NoError(t, err)
	return c
}

func TestSerializeToMessage(t *testing.T) {
	depth := 6.0
	rec := domain.AftershockRecord{
		EventID:       "CAR-001",
		Datetime:      time.Date(1979, 12, 26, 5, 10, 0, 0, time.UTC),
		Latitude:      54.89,
		Longitude:     -2.93,
		DepthKM:       &depth,
		Magnitude:     2.4,
		MagnitudeType: "ML",
	}

	msg, err := serializeToMessage(rec, "carlisle", validatedAt)
	require.NoError(t, err)

	assert.Equal(t, []byte("CAR-001"), msg.Key)
	assert.JSONEq(t, `{
		"event_id": "CAR-001",
		"datetime": "1979-12-26T05:10:00Z",
		"latitude": 54.89,
		"longitude": -2.93,
		"depth_km": 6,
		"magnitude": 2.4,
		"magnitude_type": "ML"
	}`, string(msg.Value))
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "magnitude_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("ML"), msg.Headers[0].Value)
	assert.Equal(t, "catalog", msg.Headers[1].Key)
	assert.Equal(t, []byte("carlisle"), msg.Headers[1].Value)
	assert.Equal(t, "validated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte("1980-01-15T09:30:00Z"), msg.Headers[2].Value)
}

func TestSerializeToMessage_UnknownDepthIsNull(t *testing.T) {
	msg, err := serializeToMessage(domain.AftershockRecord{EventID: "CAR-002"}, "carlisle", validatedAt)
	require.NoError(t, err)
	assert.Contains(t, string(msg.Value), `"depth_km":null`)
}

func TestPublisher_Load(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	require.NoError(t, p.Load(context.Background(), testCatalog(t)))

	require.Len(t, w.msgs, 2)
	assert.Equal(t, []byte("CAR-001"), w.msgs[0].Key)
	assert.Equal(t, []byte("CAR-002"), w.msgs[1].Key)
	assert.Equal(t, "kafka", p.Name())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_Load_Unvalidated(t *testing.T) {
	w := &fakeWriter{}
	p := newTestPublisher(w)

	err := p.Load(context.Background(), domain.Catalog{Records: []domain.AftershockRecord{{EventID: "CAR-001"}}})

	assert.ErrorIs(t, err, domain.ErrUnvalidatedCatalog)
	assert.Empty(t, w.msgs)
}

func TestPublisher_Load_WriteError(t *testing.T) {
	p := newTestPublisher(&fakeWriter{err: errors.New("leader not available")})

	err := p.Load(context.Background(), testCatalog(t))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish 2 records")
}
