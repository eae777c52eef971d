package websocket

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Время, которое разрешено писать сообщение клиенту.
	writeWait = 10 * time.Second

	// Время ожидания pong от клиента.
	pongWait = 30 * time.Second

	// Периодичность отправки ping-сообщений клиенту.
	pingPeriod = (pongWait * 9) / 10

	// Максимальный размер входящего сообщения
	maxMessageSize = 512

	// Размер буфера по умолчанию для канала отправки
	defaultClientBufferSize = 64

	// Максимальное количество переполнений буфера подряд до отключения
	maxBufferWarnings = 3
)

var (
	newline = []byte{'\n'}
	space   = []byte{' '}
)

// ErrClientClosed возвращается при отправке в закрытого клиента
var ErrClientClosed = errors.New("websocket client is closed")

// ClientConfig содержит настройки для клиента
type ClientConfig struct {
	BufferSize     int
	PingInterval   time.Duration
	PongWait       time.Duration
	WriteWait      time.Duration
	MaxMessageSize int64
}

// DefaultClientConfig возвращает конфигурацию клиента по умолчанию
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BufferSize:     defaultClientBufferSize,
		PingInterval:   pingPeriod,
		PongWait:       pongWait,
		WriteWait:      writeWait,
		MaxMessageSize: maxMessageSize,
	}
}

// withDefaults заменяет нулевые значения значениями по умолчанию
func (c ClientConfig) withDefaults() ClientConfig {
	def := DefaultClientConfig()
	if c.BufferSize <= 0 {
		c.BufferSize = def.BufferSize
	}
	if c.PongWait <= 0 {
		c.PongWait = def.PongWait
	}
	if c.PingInterval <= 0 || c.PingInterval >= c.PongWait {
		c.PingInterval = (c.PongWait * 9) / 10
	}
	if c.WriteWait <= 0 {
		c.WriteWait = def.WriteWait
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = def.MaxMessageSize
	}
	return c
}

// MessageHandler обрабатывает сырое сообщение клиента.
// Ошибка закрывает соединение.
type MessageHandler func(message []byte, client *Client) error

// Client является посредником между WebSocket соединением и комнатой турнира в Hub.
type Client struct {
	// ConnectionID уникален для каждого соединения
	ConnectionID string

	// TournamentID - комната, в которую подключен клиент
	TournamentID uuid.UUID

	hub    *Hub
	conn   *websocket.Conn
	config ClientConfig

	// Буферизованный канал для исходящих сообщений
	send   chan []byte
	mu     sync.Mutex
	closed bool

	bufferWarnings atomic.Int32
	lastActivity   atomic.Int64
}

// NewClient создает нового клиента комнаты турнира
func NewClient(hub *Hub, conn *websocket.Conn, tournamentID uuid.UUID, config ClientConfig) *Client {
	config = config.withDefaults()
	c := &Client{
		ConnectionID: uuid.New().String(),
		TournamentID: tournamentID,
		hub:          hub,
		conn:         conn,
		config:       config,
		send:         make(chan []byte, config.BufferSize),
	}
	c.touch()
	return c
}

func (c *Client) touch() {
	c.lastActivity.Store(time.Now().UnixNano())
}

// LastActivity возвращает время последнего сообщения или pong от клиента
func (c *Client) LastActivity() time.Time {
	return time.Unix(0, c.lastActivity.Load())
}

// Send ставит сообщение в очередь без блокировки.
// При переполнении буфера увеличивается счётчик предупреждений.
func (c *Client) Send(message []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClientClosed
	}
	select {
	case c.send <- message:
		c.bufferWarnings.Store(0)
		return nil
	default:
		warnings := c.bufferWarnings.Add(1)
		return fmt.Errorf("send buffer is full for connection %s (warning %d)", c.ConnectionID, warnings)
	}
}

// overflowed сообщает, что клиент слишком долго не успевает читать
func (c *Client) overflowed() bool {
	return c.bufferWarnings.Load() >= maxBufferWarnings
}

// CloseSend закрывает канал send только один раз.
// Возвращает true, если канал был закрыт этим вызовом.
func (c *Client) CloseSend() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	c.closed = true
	close(c.send)
	return true
}

// IsClosed проверяет, закрыт ли канал send
func (c *Client) IsClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// StartPumps регистрирует клиента в комнате и запускает горутины чтения и записи
func (c *Client) StartPumps(handler MessageHandler) error {
	if err := c.hub.Register(c); err != nil {
		c.conn.Close()
		return err
	}
	go c.writePump()
	go c.readPump(handler)
	return nil
}

// readPump читает сообщения от клиента и передает их обработчику
func (c *Client) readPump(handler MessageHandler) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
		log.Printf("[WebSocket] Read pump остановлен (tournament: %s, conn: %s)", c.TournamentID, c.ConnectionID)
	}()

	c.conn.SetReadLimit(c.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.touch()
		return c.conn.SetReadDeadline(time.Now().Add(c.config.PongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] Ошибка чтения (conn: %s): %v", c.ConnectionID, err)
			}
			return
		}
		c.touch()

		if err := safeHandleMessage(message, c, handler); err != nil {
			log.Printf("[WebSocket] Ошибка обработчика (conn: %s): %v. Соединение закрывается.", c.ConnectionID, err)
			return
		}
	}
}

// safeHandleMessage вызывает обработчик с recover
func safeHandleMessage(message []byte, client *Client, handler MessageHandler) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[WebSocket] PANIC в обработчике (conn: %s): %v\n%s", client.ConnectionID, r, string(debug.Stack()))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()
	message = bytes.TrimSpace(bytes.ReplaceAll(message, newline, space))
	if handler == nil {
		return nil
	}
	return handler(message, client)
}

// writePump отправляет сообщения клиенту из канала send
func (c *Client) writePump() {
	ticker := time.NewTicker(c.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if !ok {
				// Hub закрыл канал
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Printf("[WebSocket] Ошибка записи (conn: %s, type: %s): %v", c.ConnectionID, messageTypeFromBytes(message), err)
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
