package queue

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/event-reservation/internal/model"
)

var now = time.Date(2026, 4, 2, 9, 30, 0, 0, time.UTC)

func sampleEvent(t *testing.T) ReservaEvent {
	t.Helper()
	r := model.NuevaReserva(4, 8, 3, decimal.RequireFromString("15.5"), nil, now)
	r.ID = 21
	return NewReservaEvent(TipoCreada, r, 4, now)
}

type fakeChannel struct {
	declared  []string
	published []amqp.Publishing
	keys      []string
	failNext  error
	closed    int
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp.Table) error {
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	if f.failNext != nil {
		err := f.failNext
		f.failNext = nil
		return err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error { f.closed++; return nil }

func TestNewReservaEvent(t *testing.T) {
	ev := sampleEvent(t)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, "reserva.creada", ev.RoutingKey())
	assert.True(t, decimal.RequireFromString("46.5").Equal(ev.PrecioTotal))
	assert.Equal(t, model.EstadoReservada, ev.Estado)
	assert.NotEqual(t, ev.ID, sampleEvent(t).ID)
}

func TestPublisher_PublishesAndRedialsAfterFailure(t *testing.T) {
	ch := &fakeChannel{}
	dials := 0
	p := NewPublisher("amqp://test", "reservas.eventos", nil)
	p.dial = func(string) (channel, func() error, error) {
		dials++
		return ch, func() error { return nil }, nil
	}

	ev := sampleEvent(t)
	require.NoError(t, p.Publish(context.Background(), ev))
	require.Len(t, ch.published, 1)
	assert.Equal(t, []string{"reserva.creada"}, ch.keys)
	assert.Equal(t, []string{"reservas.eventos:topic"}, ch.declared)
	assert.Equal(t, ev.ID, ch.published[0].MessageId)
	assert.Equal(t, amqp.Persistent, ch.published[0].DeliveryMode)

	var decoded ReservaEvent
	require.NoError(t, json.Unmarshal(ch.published[0].Body, &decoded))
	assert.Equal(t, uint64(21), decoded.ReservaID)

	ch.failNext = errors.New("channel closed")
	require.Error(t, p.Publish(context.Background(), ev))
	require.NoError(t, p.Publish(context.Background(), ev))
	assert.Equal(t, 2, dials)
	assert.Len(t, ch.published, 2)
}

func TestPublisher_DialFailure(t *testing.T) {
	p := NewPublisher("amqp://test", "x", nil)
	p.dial = func(string) (channel, func() error, error) { return nil, nil, errors.New("refused") }
	err := p.Publish(context.Background(), sampleEvent(t))
	assert.ErrorContains(t, err, "dial broker")
}

func TestHandleMessage_AppendsLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "reservas.log")
	body, err := json.Marshal(sampleEvent(t))
	require.NoError(t, err)

	require.NoError(t, handleMessage(body, path))
	require.NoError(t, handleMessage(body, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "reserva creada")
	assert.Contains(t, lines[0], "reserva_id=21")
	assert.Contains(t, lines[0], "total=46.50")
	assert.True(t, strings.HasPrefix(lines[0], "[2026-04-02T09:30:00Z]"))
}

func TestHandleMessage_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reservas.log")
	assert.Error(t, handleMessage([]byte("{nope"), path))
	assert.Error(t, handleMessage([]byte(`{"id":"x"}`), path))
	_, err := os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestSleep_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
