package ws

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/radieske/court-booking-platform/pkg/contracts/events"
)

// RedisBroadcaster publica mudanças de status no canal que alimenta os hubs WebSocket.
// Usado pelo payment-service e pelo payment-expiry-worker.
type RedisBroadcaster struct {
	r       *redis.Client
	channel string
}

func NewRedisBroadcaster(r *redis.Client, channel string) *RedisBroadcaster {
	return &RedisBroadcaster{r: r, channel: channel}
}

func (b *RedisBroadcaster) Broadcast(ctx context.Context, evt events.PaymentStatusChanged) error {
	payload, err := json.Marshal(PaymentUpdate{PaymentID: evt.PaymentID, Payload: evt})
	if err != nil {
		return err
	}
	return b.r.Publish(ctx, b.channel, payload).Err()
}
