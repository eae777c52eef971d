package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
)

const registerTimeout = 5 * time.Second

// ErrHubStopped возвращается при регистрации в остановленный Hub
var ErrHubStopped = errors.New("websocket hub is stopped")

// HubConfig содержит настройки Hub
type HubConfig struct {
	// InstanceID отличает сообщения этого инстанса в кластерном канале
	InstanceID string

	// ClusterChannel - канал Pub/Sub для рассылки событий между инстансами
	ClusterChannel string
}

// clusterEnvelope - событие комнаты, переданное через Pub/Sub
type clusterEnvelope struct {
	InstanceID   string          `json:"instance_id"`
	TournamentID uuid.UUID       `json:"tournament_id"`
	Payload      json.RawMessage `json:"payload"`
	Timestamp    time.Time       `json:"timestamp"`
}

type registration struct {
	client *Client
	done   chan struct{}
}

// Hub хранит комнаты турниров. Регистрация и удаление клиентов выполняются
// в одной горутине Run, рассылка читает комнаты под RLock.
type Hub struct {
	config   HubConfig
	provider PubSubProvider
	metrics  Metrics

	mu    sync.RWMutex
	rooms map[uuid.UUID]map[*Client]struct{}

	register   chan registration
	unregister chan *Client
	stopped    chan struct{}
	stopOnce   sync.Once
}

// NewHub создает Hub. provider может быть nil, тогда рассылка только локальная.
func NewHub(config HubConfig, provider PubSubProvider, metrics Metrics) *Hub {
	if config.InstanceID == "" {
		config.InstanceID = "instance_" + uuid.NewString()
	}
	if config.ClusterChannel == "" {
		config.ClusterChannel = "tournament:events"
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Hub{
		config:     config,
		provider:   provider,
		metrics:    metrics,
		rooms:      make(map[uuid.UUID]map[*Client]struct{}),
		register:   make(chan registration),
		unregister: make(chan *Client, 64),
		stopped:    make(chan struct{}),
	}
}

// InstanceID возвращает идентификатор инстанса
func (h *Hub) InstanceID() string {
	return h.config.InstanceID
}

// Run обрабатывает регистрацию клиентов и сообщения кластера до отмены ctx.
// При остановке все клиенты отключаются.
func (h *Hub) Run(ctx context.Context) error {
	defer h.stopOnce.Do(func() { close(h.stopped) })

	var relay <-chan []byte
	if h.provider != nil {
		ch, err := h.provider.Subscribe(ctx, h.config.ClusterChannel)
		if err != nil {
			log.Printf("[Hub] Не удалось подписаться на %s, работаем без кластера: %v", h.config.ClusterChannel, err)
		} else {
			relay = ch
			log.Printf("[Hub] Подписка на кластерный канал %s (instance: %s)", h.config.ClusterChannel, h.config.InstanceID)
		}
	}

	for {
		select {
		case <-ctx.Done():
			h.closeAll()
			log.Println("[Hub] Остановлен")
			return nil

		case req := <-h.register:
			h.addClient(req.client)
			close(req.done)

		case client := <-h.unregister:
			h.removeClient(client)

		case message, ok := <-relay:
			if !ok {
				relay = nil
				continue
			}
			h.handleClusterMessage(message)
		}
	}
}

// Register добавляет клиента в комнату его турнира и ждёт подтверждения
func (h *Hub) Register(client *Client) error {
	req := registration{client: client, done: make(chan struct{})}
	timer := time.NewTimer(registerTimeout)
	defer timer.Stop()

	select {
	case h.register <- req:
	case <-h.stopped:
		return ErrHubStopped
	case <-timer.C:
		return errors.New("timeout waiting for client registration")
	}

	select {
	case <-req.done:
		return nil
	case <-h.stopped:
		return ErrHubStopped
	}
}

// Unregister удаляет клиента из комнаты. Повторный вызов безопасен.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.TournamentID]
	if !ok {
		room = make(map[*Client]struct{})
		h.rooms[client.TournamentID] = room
	}
	room[client] = struct{}{}
	size := len(room)
	h.mu.Unlock()

	h.metrics.ClientConnected()
	log.Printf("[Hub] Клиент %s подключен к турниру %s (в комнате: %d)", client.ConnectionID, client.TournamentID, size)
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	room, ok := h.rooms[client.TournamentID]
	if ok {
		if _, present := room[client]; !present {
			ok = false
		} else {
			delete(room, client)
			if len(room) == 0 {
				delete(h.rooms, client.TournamentID)
			}
		}
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	client.CloseSend()
	h.metrics.ClientDisconnected()
	log.Printf("[Hub] Клиент %s отключен от турнира %s", client.ConnectionID, client.TournamentID)
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	rooms := h.rooms
	h.rooms = make(map[uuid.UUID]map[*Client]struct{})
	h.mu.Unlock()

	for _, room := range rooms {
		for client := range room {
			client.CloseSend()
			h.metrics.ClientDisconnected()
		}
	}
}

// BroadcastToRoom отправляет сообщение всем клиентам турнира на этом инстансе
// и публикует его в кластерный канал.
func (h *Hub) BroadcastToRoom(tournamentID uuid.UUID, message []byte) int {
	delivered := h.deliverLocal(tournamentID, message)

	if h.provider != nil {
		envelope, err := json.Marshal(clusterEnvelope{
			InstanceID:   h.config.InstanceID,
			TournamentID: tournamentID,
			Payload:      message,
			Timestamp:    time.Now(),
		})
		if err != nil {
			log.Printf("[Hub] Ошибка сериализации сообщения для кластера: %v", err)
		} else if err := h.provider.Publish(h.config.ClusterChannel, envelope); err != nil {
			log.Printf("[Hub] Ошибка публикации в кластер: %v", err)
		}
	}
	return delivered
}

// deliverLocal рассылает сообщение локальным клиентам комнаты.
// Клиенты, переполнившие буфер несколько раз подряд, отключаются.
func (h *Hub) deliverLocal(tournamentID uuid.UUID, message []byte) int {
	h.mu.RLock()
	room := h.rooms[tournamentID]
	clients := make([]*Client, 0, len(room))
	for client := range room {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, client := range clients {
		if err := client.Send(message); err != nil {
			h.metrics.SendFailed()
			if client.overflowed() {
				log.Printf("[Hub] Клиент %s не успевает читать сообщения, отключаем", client.ConnectionID)
				go h.Unregister(client)
			}
			continue
		}
		delivered++
	}
	return delivered
}

func (h *Hub) handleClusterMessage(data []byte) {
	var envelope clusterEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		log.Printf("[Hub] Некорректное сообщение кластера: %v", err)
		return
	}
	if envelope.InstanceID == h.config.InstanceID {
		return
	}
	h.deliverLocal(envelope.TournamentID, envelope.Payload)
}

// RoomSize возвращает количество локальных клиентов турнира
func (h *Hub) RoomSize(tournamentID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[tournamentID])
}

// ClientCount возвращает общее количество локальных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	total := 0
	for _, room := range h.rooms {
		total += len(room)
	}
	return total
}

// CloseRoom отключает всех клиентов турнира, например после его удаления
func (h *Hub) CloseRoom(tournamentID uuid.UUID) {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.rooms[tournamentID]))
	for client := range h.rooms[tournamentID] {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		h.Unregister(client)
	}
}
