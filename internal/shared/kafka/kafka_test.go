package kafka

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestSplitBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, splitBrokers("a:9092, b:9092,"))
	assert.Nil(t, splitBrokers(""))
}

func TestNewWriter(t *testing.T) {
	w := NewWriter("localhost:9092", "wallet_transactions")
	defer w.Close()

	assert.Equal(t, "wallet_transactions", w.Topic)
	assert.Equal(t, "localhost:9092", w.Addr.String())
}

func TestPublisher_MarshalError(t *testing.T) {
	p := NewPublisher("localhost:9092", "payment_status", zap.NewNop())
	defer p.Close()

	err := p.Publish(context.Background(), "k", make(chan int))
	assert.ErrorContains(t, err, "marshal event")
}

func TestNop(t *testing.T) {
	assert.NoError(t, Nop{}.Publish(context.Background(), "k", struct{}{}))
}

func TestOpen(t *testing.T) {
	p, closeFn := Open(" ", "booking_status", zap.NewNop())
	assert.IsType(t, Nop{}, p)
	assert.NoError(t, closeFn())

	p, closeFn = Open("localhost:9092", "booking_status", zap.NewNop())
	defer closeFn()
	assert.IsType(t, &Publisher{}, p)
}
