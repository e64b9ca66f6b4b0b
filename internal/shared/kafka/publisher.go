package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Publisher serializa eventos de domínio em JSON e publica em um tópico fixo.
type Publisher struct {
	writer *Writer
	topic  string
	log    *zap.Logger
}

func NewPublisher(brokers, topic string, log *zap.Logger) *Publisher {
	return &Publisher{writer: NewWriter(brokers, topic), topic: topic, log: log}
}

// Publish envia o evento usando key como chave de partição.
func (p *Publisher) Publish(ctx context.Context, key string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := WriteJSON(ctx, p.writer, key, payload); err != nil {
		p.log.Error("failed to publish event", zap.String("topic", p.topic), zap.String("key", key), zap.Error(err))
		return err
	}
	p.log.Debug("event published", zap.String("topic", p.topic), zap.String("key", key))
	return nil
}

// Close finaliza o writer e libera recursos associados.
func (p *Publisher) Close() error { return p.writer.Close() }

// Nop descarta eventos; usado em testes e quando KAFKA_BROKERS está vazio.
type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// EventPublisher é o contrato comum a Publisher e Nop.
type EventPublisher interface {
	Publish(ctx context.Context, key string, v any) error
}

// Open devolve um Publisher para o tópico, ou Nop quando brokers está vazio.
func Open(brokers, topic string, log *zap.Logger) (EventPublisher, func() error) {
	if len(splitBrokers(brokers)) == 0 {
		log.Info("kafka disabled, events discarded", zap.String("topic", topic))
		return Nop{}, func() error { return nil }
	}
	p := NewPublisher(brokers, topic, log)
	return p, p.Close
}
