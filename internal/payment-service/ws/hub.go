package ws

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// client serializa escritas na conexão (gorilla não aceita writers concorrentes)
type client struct {
	conn *websocket.Conn
	wmu  sync.Mutex
}

func (c *client) write(msgType int, b []byte) error {
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return c.conn.WriteMessage(msgType, b)
}

// Hub mantém as conexões inscritas por paymentId
type Hub struct {
	upgrader websocket.Upgrader
	log      *zap.Logger

	mu   sync.RWMutex
	subs map[string]map[*client]struct{} // paymentID -> conexões
}

func NewHub(allowOrigin func(r *http.Request) bool, log *zap.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{CheckOrigin: allowOrigin},
		log:      log,
		subs:     make(map[string]map[*client]struct{}),
	}
}

// HandleWS atende uma conexão: subscribe/unsubscribe por paymentId e ping/pong
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	c := &client{conn: conn}
	defer func() {
		h.drop(c)
		_ = conn.Close()
	}()

	for {
		var msg ClientMsg
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		switch msg.Type {
		case "subscribe":
			if msg.PaymentID == "" {
				continue
			}
			h.mu.Lock()
			if _, ok := h.subs[msg.PaymentID]; !ok {
				h.subs[msg.PaymentID] = make(map[*client]struct{})
			}
			h.subs[msg.PaymentID][c] = struct{}{}
			h.mu.Unlock()
			ack, _ := json.Marshal(map[string]string{"type": "subscribed", "paymentId": msg.PaymentID})
			_ = c.write(websocket.TextMessage, ack)
		case "unsubscribe":
			h.mu.Lock()
			h.removeLocked(msg.PaymentID, c)
			h.mu.Unlock()
		case "ping":
			_ = c.write(websocket.TextMessage, []byte(`{"type":"pong"}`))
		}
	}
}

// Broadcast entrega a atualização aos inscritos do pagamento
func (h *Hub) Broadcast(update PaymentUpdate) {
	h.mu.RLock()
	targets := make([]*client, 0, len(h.subs[update.PaymentID]))
	for c := range h.subs[update.PaymentID] {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	if len(targets) == 0 {
		return
	}

	b, err := json.Marshal(update)
	if err != nil {
		h.log.Error("ws marshal update", zap.Error(err))
		return
	}
	for _, c := range targets {
		if err := c.write(websocket.TextMessage, b); err != nil {
			h.log.Debug("ws write failed", zap.String("payment_id", update.PaymentID), zap.Error(err))
		}
	}
}

// Subscribers retorna quantas conexões acompanham o pagamento
func (h *Hub) Subscribers(paymentID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[paymentID])
}

func (h *Hub) drop(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.subs {
		h.removeLocked(id, c)
	}
}

func (h *Hub) removeLocked(paymentID string, c *client) {
	if m, ok := h.subs[paymentID]; ok {
		delete(m, c)
		if len(m) == 0 {
			delete(h.subs, paymentID)
		}
	}
}
