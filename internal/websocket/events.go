package websocket

import "encoding/json"

// События сервера
const (
	// EventState - полный снимок турнира при подключении
	EventState = "tournament:state"

	EventBracket  = "tournament:bracket"
	EventQuestion = "tournament:question"
	EventProgress = "tournament:progress"
	EventPending  = "tournament:pending"
	EventResult   = "tournament:result"
	EventChampion = "tournament:champion"
	EventHistory  = "tournament:history"

	// EventAnswerResult - ответ на tournament:answer только отправителю
	EventAnswerResult = "tournament:answer_result"

	EventError = "server:error"
	EventPong  = "server:heartbeat"
)

// Команды клиента
const (
	CommandNext      = "tournament:next"
	CommandAnswer    = "tournament:answer"
	CommandHeartbeat = "user:heartbeat"
)

// Event представляет исходящее WebSocket-сообщение
type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// incomingEvent - сообщение клиента, data разбирается обработчиком
type incomingEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrorPayload - данные события server:error
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// messageTypeFromBytes пытается извлечь тип сообщения из JSON байтов
func messageTypeFromBytes(message []byte) string {
	var event struct {
		Type string `json:"type"`
	}
	if json.Unmarshal(message, &event) == nil && event.Type != "" {
		return event.Type
	}
	return "unknown"
}
