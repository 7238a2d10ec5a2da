package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	redisclient "github.com/tokenmeter/tokenmeter-api/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
	clientBufferSize  = 100
)

const (
	TypeConnected            = "connected"
	TypeSpendingImported     = "spending.imported"
	TypeProviderConnected    = "provider.connected"
	TypeProviderDisconnected = "provider.disconnected"
	TypeProviderSynced       = "provider.synced"
)

type Event struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// New builds an event with data marshalled to JSON.
func New(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw}, nil
}

type Client struct {
	TeamID string
	Events chan Event
	Done   chan struct{}
}

// Broker fans team events out to connected SSE clients. With a Redis
// client, events travel through pub/sub so every replica sees them;
// without one, they are delivered to local subscribers only.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // teamID -> set of clients
	subs    map[string]context.CancelFunc
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		subs:    make(map[string]context.CancelFunc),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(teamID string) *Client {
	client := &Client{
		TeamID: teamID,
		Events: make(chan Event, clientBufferSize),
		Done:   make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[teamID] == nil {
		b.clients[teamID] = make(map[*Client]bool)
		if b.redis != nil {
			subCtx, cancel := context.WithCancel(b.ctx)
			b.subs[teamID] = cancel
			go b.subscribeToRedis(subCtx, teamID)
		}
	}
	b.clients[teamID][client] = true
	clientCount := len(b.clients[teamID])
	b.mu.Unlock()

	log.Info().
		Str("teamId", teamID).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.TeamID]; ok {
		if !clients[client] {
			return
		}
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.TeamID)
			if cancel, ok := b.subs[client.TeamID]; ok {
				cancel()
				delete(b.subs, client.TeamID)
			}
		}

		log.Info().
			Str("teamId", client.TeamID).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, teamID string, event Event) error {
	if b.redis == nil {
		b.broadcast(teamID, event)
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.TeamEventsChannel(teamID)
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(ctx context.Context, teamID string) {
	channel := redisclient.TeamEventsChannel(teamID)
	pubsub := b.redis.Subscribe(ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("teamId", teamID).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal team event")
				continue
			}

			b.broadcast(teamID, event)
		}
	}
}

func (b *Broker) broadcast(teamID string, event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for client := range b.clients[teamID] {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("teamId", teamID).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
	b.subs = make(map[string]context.CancelFunc)
}

func (b *Broker) ClientCount(teamID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[teamID])
}

func (b *Broker) TotalClients() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	total := 0
	for _, clients := range b.clients {
		total += len(clients)
	}
	return total
}
