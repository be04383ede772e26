package broadcast

import (
	"sync"

	"autoliquid/internal/services/auction"

	"go.uber.org/zap"
)

// DefaultBuffer is how many undelivered events a subscriber may lag behind
// before it is dropped.
const DefaultBuffer = 64

// Hub keeps subscriber sets per auctionID.
type Hub struct {
	rooms  sync.Map // auctionID -> *room
	buffer int
}

func NewHub(buffer int) *Hub {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Hub{buffer: buffer}
}

// Subscription is one watcher's event stream. C is closed when the
// subscription ends, either by Close or because the watcher fell behind.
type Subscription struct {
	C         <-chan auction.Event
	AuctionID string

	ch      chan auction.Event
	hub     *Hub
	once    sync.Once
	onClose func()
}

func (s *Subscription) Close() {
	s.hub.leave(s.AuctionID, s)
}

type room struct {
	mu   sync.RWMutex
	subs map[*Subscription]struct{}
}

func newRoom() *room { return &room{subs: map[*Subscription]struct{}{}} }

func (h *Hub) Subscribe(auctionID string, onClose func()) *Subscription {
	ch := make(chan auction.Event, h.buffer)
	s := &Subscription{C: ch, AuctionID: auctionID, ch: ch, hub: h, onClose: onClose}
	for {
		r, _ := h.rooms.LoadOrStore(auctionID, newRoom())
		rm := r.(*room)
		rm.mu.Lock()
		// the room may have been emptied and unlinked while we waited
		if cur, ok := h.rooms.Load(auctionID); !ok || cur != rm {
			rm.mu.Unlock()
			continue
		}
		rm.subs[s] = struct{}{}
		rm.mu.Unlock()
		return s
	}
}

// Deliver hands e to every current subscriber of auctionID without blocking.
// Calls for one auction must be serialized by the caller; that is what keeps
// each subscriber's stream in commit order.
func (h *Hub) Deliver(auctionID string, e auction.Event) {
	v, ok := h.rooms.Load(auctionID)
	if !ok {
		return
	}
	rm := v.(*room)

	var lagging []*Subscription
	rm.mu.RLock()
	for s := range rm.subs {
		select {
		case s.ch <- e:
		default:
			lagging = append(lagging, s)
		}
	}
	rm.mu.RUnlock()

	for _, s := range lagging {
		zap.L().Warn("broadcast.subscriber_dropped",
			zap.String("auction_id", auctionID),
			zap.String("event", string(e.Type)),
		)
		h.leave(auctionID, s)
	}
}

// Subscribers reports how many watchers auctionID has in this process.
func (h *Hub) Subscribers(auctionID string) int {
	v, ok := h.rooms.Load(auctionID)
	if !ok {
		return 0
	}
	rm := v.(*room)
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	return len(rm.subs)
}

func (h *Hub) leave(auctionID string, s *Subscription) {
	v, ok := h.rooms.Load(auctionID)
	if !ok {
		return
	}
	rm := v.(*room)
	rm.mu.Lock()
	_, present := rm.subs[s]
	delete(rm.subs, s)
	if len(rm.subs) == 0 {
		h.rooms.CompareAndDelete(auctionID, rm)
	}
	rm.mu.Unlock()

	if !present {
		return
	}
	s.once.Do(func() {
		close(s.ch)
		if s.onClose != nil {
			s.onClose()
		}
	})
}
