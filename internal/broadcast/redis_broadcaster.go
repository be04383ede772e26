package broadcast

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"autoliquid/internal/services/auction"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ChannelName is the Redis pub/sub channel carrying one auction's events.
func ChannelName(auctionID string) string { return "auc:" + auctionID + ":events" }

// RedisBroadcaster publishes through Redis so every instance's watchers see
// the event. Local delivery happens only via the Redis subscription, never
// directly, so a process never delivers the same event twice.
type RedisBroadcaster struct {
	rdb    *redis.Client
	hub    *Hub
	subMgr *subscriptionManager
}

var _ Broadcaster = (*RedisBroadcaster)(nil)

func NewRedisBroadcaster(rdb *redis.Client, hub *Hub) *RedisBroadcaster {
	return &RedisBroadcaster{
		rdb:    rdb,
		hub:    hub,
		subMgr: newSubscriptionManager(rdb, hub),
	}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, auctionID string, e auction.Event) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", e.Type, err)
	}
	if err := b.rdb.Publish(ctx, ChannelName(auctionID), payload).Err(); err != nil {
		return fmt.Errorf("publish %s event for auction %s: %w", e.Type, auctionID, err)
	}
	return nil
}

func (b *RedisBroadcaster) Subscribe(auctionID string) *Subscription {
	b.subMgr.Subscribe(auctionID)
	return b.hub.Subscribe(auctionID, func() { b.subMgr.Unsubscribe(auctionID) })
}

// subscriptionManager guarantees that we have exactly one Redis subscription
// per auction channel, no matter how many local watchers join the same
// auction.
type subscriptionManager struct {
	rdb  *redis.Client
	hub  *Hub
	mu   sync.Mutex
	subs map[string]*subEntry // auctionID -> subscription data
}

type subEntry struct {
	refCnt int
	cancel context.CancelFunc
}

func newSubscriptionManager(rdb *redis.Client, hub *Hub) *subscriptionManager {
	return &subscriptionManager{
		rdb:  rdb,
		hub:  hub,
		subs: make(map[string]*subEntry),
	}
}

// Subscribe ensures that the process is subscribed to the auction's channel;
// subsequent calls for the same auction only increment the ref-counter.
func (sm *subscriptionManager) Subscribe(auctionID string) {
	sm.mu.Lock()
	if e, ok := sm.subs[auctionID]; ok {
		e.refCnt++
		sm.mu.Unlock()
		return
	}

	// First consumer: create Redis SUB and the relay loop.
	ctx, cancel := context.WithCancel(context.Background())
	ps := sm.rdb.Subscribe(ctx, ChannelName(auctionID))

	sm.subs[auctionID] = &subEntry{refCnt: 1, cancel: cancel}
	sm.mu.Unlock()

	go sm.relay(ctx, auctionID, ps)
}

// relay is the only goroutine delivering this auction's events locally, so
// the Redis channel order is the order every local watcher sees.
func (sm *subscriptionManager) relay(ctx context.Context, auctionID string, ps *redis.PubSub) {
	defer ps.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ps.Channel():
			if !ok { // Redis connection closed.
				return
			}
			var e auction.Event
			if err := json.Unmarshal([]byte(m.Payload), &e); err != nil {
				zap.L().Warn("broadcast.decode_failed", zap.String("auction_id", auctionID), zap.Error(err))
				continue
			}
			sm.hub.Deliver(auctionID, e)
		}
	}
}

// Unsubscribe decrements the ref-counter and tears the Redis SUB down when
// the last local watcher leaves.
func (sm *subscriptionManager) Unsubscribe(auctionID string) {
	sm.mu.Lock()
	e, ok := sm.subs[auctionID]
	if !ok {
		sm.mu.Unlock()
		return
	}
	e.refCnt--
	if e.refCnt > 0 {
		sm.mu.Unlock()
		return
	}
	delete(sm.subs, auctionID)
	sm.mu.Unlock()

	// Outside the lock: stop the relay goroutine.
	e.cancel()
}

func (sm *subscriptionManager) active(auctionID string) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if e, ok := sm.subs[auctionID]; ok {
		return e.refCnt
	}
	return 0
}
