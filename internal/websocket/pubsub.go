package websocket

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// relayBufferSize - размер буфера канала сообщений подписки
const relayBufferSize = 100

// RedisPubSub реализует PubSubProvider с использованием Redis
type RedisPubSub struct {
	client redis.UniversalClient

	ctx    context.Context
	cancel context.CancelFunc

	mu            sync.Mutex
	subscriptions map[string]*redis.PubSub
}

// NewRedisPubSub создает Redis Pub/Sub провайдер поверх существующего клиента.
// Клиент принадлежит вызывающему и не закрывается в Close.
func NewRedisPubSub(client redis.UniversalClient) (*RedisPubSub, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil for RedisPubSub")
	}

	ctx, cancelCheck := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelCheck()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("provided redis client failed ping check: %w", err)
	}

	ctxPubSub, cancel := context.WithCancel(context.Background())
	return &RedisPubSub{
		client:        client,
		ctx:           ctxPubSub,
		cancel:        cancel,
		subscriptions: make(map[string]*redis.PubSub),
	}, nil
}

// Publish публикует сообщение в указанный канал
func (p *RedisPubSub) Publish(channel string, message []byte) error {
	if err := p.client.Publish(p.ctx, channel, message).Err(); err != nil {
		return fmt.Errorf("failed to publish to Redis channel %s: %w", channel, err)
	}
	return nil
}

// Subscribe подписывается на канал Redis. Канал сообщений закрывается
// при отмене ctx или при Close.
func (p *RedisPubSub) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	p.mu.Lock()
	if _, exists := p.subscriptions[channel]; exists {
		p.mu.Unlock()
		return nil, fmt.Errorf("already subscribed to Redis channel %s", channel)
	}

	pubsub := p.client.Subscribe(p.ctx, channel)
	if _, err := pubsub.Receive(p.ctx); err != nil {
		p.mu.Unlock()
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to Redis channel %s: %w", channel, err)
	}
	p.subscriptions[channel] = pubsub
	p.mu.Unlock()

	log.Printf("[RedisPubSub] Подписка на канал '%s'", channel)

	msgCh := make(chan []byte, relayBufferSize)
	go func() {
		defer func() {
			p.mu.Lock()
			delete(p.subscriptions, channel)
			p.mu.Unlock()
			pubsub.Close()
			close(msgCh)
			log.Printf("[RedisPubSub] Подписка на канал '%s' закрыта", channel)
		}()

		redisCh := pubsub.Channel()
		for {
			select {
			case msg, ok := <-redisCh:
				if !ok {
					return
				}
				select {
				case msgCh <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				case <-p.ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			case <-p.ctx.Done():
				return
			}
		}
	}()

	return msgCh, nil
}

// Close останавливает все подписки
func (p *RedisPubSub) Close() error {
	p.cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	var lastErr error
	for channel, pubsub := range p.subscriptions {
		if err := pubsub.Close(); err != nil {
			log.Printf("[RedisPubSub] Ошибка закрытия подписки '%s': %v", channel, err)
			lastErr = err
		}
	}
	return lastErr
}

var _ PubSubProvider = (*RedisPubSub)(nil)
