package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorillaws "github.com/gorilla/websocket"

	"github.com/yourusername/quiz-tournament/internal/middleware"
	"github.com/yourusername/quiz-tournament/internal/service"
	"github.com/yourusername/quiz-tournament/internal/websocket"
)

// commandTimeout ограничивает выполнение команды, пришедшей по WebSocket
const commandTimeout = 10 * time.Second

// WSHandler обрабатывает WebSocket соединения
type WSHandler struct {
	wsManager    *websocket.Manager
	tournaments  *service.TournamentService
	clientConfig websocket.ClientConfig
	upgrader     gorillaws.Upgrader
}

// NewWSHandler создает новый обработчик WebSocket
func NewWSHandler(
	wsManager *websocket.Manager,
	tournaments *service.TournamentService,
	allowedOrigins []string,
	clientConfig websocket.ClientConfig,
) *WSHandler {
	handler := &WSHandler{
		wsManager:    wsManager,
		tournaments:  tournaments,
		clientConfig: clientConfig,
		upgrader: gorillaws.Upgrader{
			ReadBufferSize:    4096,
			WriteBufferSize:   4096,
			CheckOrigin:       checkOrigin(allowedOrigins),
			EnableCompression: true,
		},
	}

	// Регистрируем обработчики сообщений один раз при создании обработчика
	handler.registerMessageHandlers()

	return handler
}

// checkOrigin разрешает клиентов без Origin и origin из списка CORS
func checkOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Не браузерный клиент (curl, мобильное приложение)
		if origin == "" {
			return true
		}
		if _, ok := allowed[origin]; ok {
			return true
		}
		log.Printf("[WSHandler] Отклонён origin: %s", origin)
		return false
	}
}

// HandleConnection подключает клиента к комнате турнира.
// Тикет проверяется middleware до вызова.
// GET /ws/tournaments/:id?ticket=...
func (h *WSHandler) HandleConnection(c *gin.Context) {
	id := c.MustGet(middleware.TournamentIDKey).(uuid.UUID)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже записал ответ клиенту
		log.Printf("[WSHandler] Ошибка upgrade для турнира %s: %v", id, err)
		return
	}

	client := websocket.NewClient(h.wsManager.Hub(), conn, id, h.clientConfig)
	if err := client.StartPumps(h.wsManager.HandleMessage); err != nil {
		log.Printf("[WSHandler] Не удалось зарегистрировать клиента %s: %v", client.ConnectionID, err)
		return
	}
	log.Printf("[WSHandler] Клиент %s подключён к турниру %s", client.ConnectionID, id)

	// Турнир может жить на другом инстансе, тогда состояние придёт с событиями
	if snapshot, err := h.tournaments.Snapshot(id); err == nil {
		if err := h.wsManager.SendEventToClient(client, websocket.EventState, snapshot); err != nil {
			log.Printf("[WSHandler] Ошибка отправки состояния клиенту %s: %v", client.ConnectionID, err)
		}
	}
}

// registerMessageHandlers регистрирует обработчики команд клиента
func (h *WSHandler) registerMessageHandlers() {
	h.wsManager.RegisterHandler(websocket.CommandNext, func(_ json.RawMessage, client *websocket.Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		// Результат матча рассылается всей комнате через presenter
		if _, err := h.tournaments.RunNextMatch(ctx, client.TournamentID); err != nil {
			log.Printf("[WSHandler] Ошибка tournament:next для турнира %s: %v", client.TournamentID, err)
			h.wsManager.SendErrorToClient(client, errorCode(err), err.Error())
		}
		return nil // Возвращаем nil, чтобы не закрывать соединение
	})

	h.wsManager.RegisterHandler(websocket.CommandAnswer, func(data json.RawMessage, client *websocket.Client) error {
		var answerEvent struct {
			Choice *int `json:"choice"`
		}
		if err := json.Unmarshal(data, &answerEvent); err != nil || answerEvent.Choice == nil {
			log.Printf("[WSHandler] Ошибка парсинга tournament:answer: %v, Data: %s", err, string(data))
			h.wsManager.SendErrorToClient(client, "invalid_format", "Failed to parse tournament:answer event")
			return nil
		}

		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()

		outcome, err := h.tournaments.SubmitAnswer(ctx, client.TournamentID, *answerEvent.Choice)
		if err != nil {
			h.wsManager.SendErrorToClient(client, errorCode(err), err.Error())
			return nil
		}
		if err := h.wsManager.SendEventToClient(client, websocket.EventAnswerResult, outcome); err != nil {
			return fmt.Errorf("failed to send answer result: %w", err)
		}
		return nil
	})

	h.wsManager.RegisterHandler(websocket.CommandHeartbeat, func(_ json.RawMessage, client *websocket.Client) error {
		heartbeatResponse := map[string]interface{}{
			"timestamp": time.Now().UnixMilli(),
		}
		// Ошибка отправки здесь может быть проигнорирована или залогирована
		if err := h.wsManager.SendEventToClient(client, websocket.EventPong, heartbeatResponse); err != nil {
			log.Printf("[WSHandler] WARNING: Ошибка при отправке heartbeat клиенту %s: %v", client.ConnectionID, err)
		}
		return nil // Никогда не закрываем соединение из-за heartbeat
	})
}
