package broadcast

import (
	"context"

	"autoliquid/internal/services/auction"
)

// Broadcaster publishes committed auction events and hands out subscriptions.
type Broadcaster interface {
	auction.Publisher
	Subscribe(auctionID string) *Subscription
}

// LocalBroadcaster delivers straight to this process's Hub. It is enough for
// a single instance.
type LocalBroadcaster struct {
	hub *Hub
}

var _ Broadcaster = (*LocalBroadcaster)(nil)

func NewLocalBroadcaster(hub *Hub) *LocalBroadcaster { return &LocalBroadcaster{hub: hub} }

func (b *LocalBroadcaster) Publish(_ context.Context, auctionID string, e auction.Event) error {
	b.hub.Deliver(auctionID, e)
	return nil
}

func (b *LocalBroadcaster) Subscribe(auctionID string) *Subscription {
	return b.hub.Subscribe(auctionID, nil)
}
