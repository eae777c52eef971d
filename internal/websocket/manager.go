package websocket

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/google/uuid"
)

// EventHandler обрабатывает data конкретного типа команды.
// Ошибка закрывает соединение, поэтому обработчики сообщают об
// ошибках команд через SendErrorToClient.
type EventHandler func(data json.RawMessage, client *Client) error

// Manager разбирает команды клиентов и рассылает события турниров
type Manager struct {
	hub      *Hub
	metrics  Metrics
	handlers map[string]EventHandler
}

// NewManager создает новый менеджер WebSocket
func NewManager(hub *Hub, metrics Metrics) *Manager {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &Manager{
		hub:      hub,
		metrics:  metrics,
		handlers: make(map[string]EventHandler),
	}
}

// Hub возвращает хаб менеджера
func (m *Manager) Hub() *Hub {
	return m.hub
}

// RegisterHandler регистрирует обработчик для определенного типа сообщений.
// Регистрация выполняется до запуска сервера.
func (m *Manager) RegisterHandler(eventType string, handler EventHandler) {
	m.handlers[eventType] = handler
	log.Printf("[WebSocketManager] Зарегистрирован обработчик для сообщений типа: %s", eventType)
}

// HandleMessage обрабатывает входящее сообщение от клиента
func (m *Manager) HandleMessage(message []byte, client *Client) error {
	var event incomingEvent
	if err := json.Unmarshal(message, &event); err != nil {
		m.metrics.MessageReceived("invalid")
		m.SendErrorToClient(client, "invalid_message_format", "Invalid JSON format")
		return fmt.Errorf("failed to unmarshal message: %w", err)
	}

	handler, ok := m.handlers[event.Type]
	if !ok {
		m.metrics.MessageReceived("unknown")
		m.SendErrorToClient(client, "unknown_message_type", fmt.Sprintf("Unknown message type: %s", event.Type))
		return nil
	}
	m.metrics.MessageReceived(event.Type)

	if err := handler(event.Data, client); err != nil {
		return fmt.Errorf("handler %s: %w", event.Type, err)
	}
	return nil
}

// SendEventToClient отправляет событие одному клиенту
func (m *Manager) SendEventToClient(client *Client, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s: %w", eventType, err)
	}
	if err := client.Send(payload); err != nil {
		m.metrics.SendFailed()
		return err
	}
	m.metrics.MessageSent(eventType)
	return nil
}

// SendErrorToClient отправляет стандартизированное сообщение об ошибке клиенту.
// Этот метод НЕ закрывает соединение.
func (m *Manager) SendErrorToClient(client *Client, code, message string) {
	if err := m.SendEventToClient(client, EventError, ErrorPayload{Code: code, Message: message}); err != nil {
		log.Printf("[WebSocketManager] Не удалось отправить ошибку клиенту %s: %v", client.ConnectionID, err)
	}
}

// BroadcastToTournament отправляет событие всем клиентам турнира
func (m *Manager) BroadcastToTournament(tournamentID uuid.UUID, eventType string, data interface{}) error {
	payload, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		return fmt.Errorf("failed to marshal event %s for tournament %s: %w", eventType, tournamentID, err)
	}
	m.hub.BroadcastToRoom(tournamentID, payload)
	m.metrics.MessageSent(eventType)
	return nil
}
