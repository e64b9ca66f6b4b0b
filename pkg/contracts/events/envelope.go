package events

import "github.com/google/uuid"

// NewID gera o identificador único de um evento (usado para deduplicação no consumidor).
func NewID() string { return uuid.NewString() }
