package websocket

import (
	"context"
)

// Metrics принимает счётчики WebSocket-подсистемы
type Metrics interface {
	ClientConnected()
	ClientDisconnected()
	MessageSent(eventType string)
	MessageReceived(eventType string)
	SendFailed()
}

// NopMetrics ничего не считает
type NopMetrics struct{}

func (NopMetrics) ClientConnected()       {}
func (NopMetrics) ClientDisconnected()    {}
func (NopMetrics) MessageSent(string)     {}
func (NopMetrics) MessageReceived(string) {}
func (NopMetrics) SendFailed()            {}

// PubSubProvider определяет интерфейс для провайдеров публикации/подписки
type PubSubProvider interface {
	// Publish публикует сообщение в указанный канал
	Publish(channel string, message []byte) error

	// Subscribe подписывается на указанный канал и возвращает канал для сообщений
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)

	// Close закрывает все соединения и освобождает ресурсы
	Close() error
}
