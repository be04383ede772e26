package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"autoliquid/internal/broadcast"
	"autoliquid/internal/http/middleware"
	"autoliquid/internal/registry"
	"autoliquid/internal/services/auction"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

const secret = "ws-secret"

func init() { gin.SetMode(gin.TestMode) }

func TestWrapEvent(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 10, 15, 10, 58, 30, 0, time.UTC)
	env, err := wrapEvent(auction.Event{
		Type:              auction.EventBid,
		AuctionID:         "auc-1",
		Version:           3,
		Amount:            110000,
		DealerDisplayName: "Sharma Motors",
		PlacedAt:          &at,
		CurrentBid:        110000,
		TotalBids:         2,
	})
	require.NoError(t, err)
	require.Equal(t, "auctions/bid", env.Event)
	require.JSONEq(t, `{
		"auction_id":"auc-1","version":3,"amount":110000,
		"dealer_display_name":"Sharma Motors","placed_at":"2026-10-15T10:58:30Z",
		"current_bid":110000,"total_bids":2
	}`, string(env.Body))

	env, err = wrapEvent(auction.Event{Type: auction.EventEnded, AuctionID: "auc-1", Version: 9, Outcome: auction.StatusUnsold})
	require.NoError(t, err)
	require.Equal(t, "auctions/ended", env.Event)
	require.Contains(t, string(env.Body), `"outcome":"UNSOLD"`)
}

func TestRouterDispatch(t *testing.T) {
	t.Parallel()

	r := NewRouter()
	Register(r, "echo", func(_ context.Context, c *ConnContext, req BidRequest) (BidAck, error) {
		return BidAck{BidID: c.Principal.ID, CurrentBid: req.Amount}, nil
	})
	cc := &ConnContext{AuctionID: "auc-1", Principal: middleware.Principal{ID: "dealer-a", Role: middleware.RoleDealer}}

	res, err := r.dispatch(context.Background(), cc, Envelope{Event: "echo", Body: json.RawMessage(`{"amount":7}`)})
	require.NoError(t, err)
	require.Equal(t, BidAck{BidID: "dealer-a", CurrentBid: 7}, res)

	_, err = r.dispatch(context.Background(), cc, Envelope{Event: "echo", Body: json.RawMessage(`{"amount":"x"}`)})
	require.EqualError(t, err, "malformed_body")

	_, err = r.dispatch(context.Background(), cc, Envelope{Event: "nope"})
	require.ErrorIs(t, err, ErrUnknownEvent)

	require.Panics(t, func() {
		Register(r, "", func(context.Context, *ConnContext, BidRequest) (BidAck, error) { return BidAck{}, nil })
	})
}

type wsFixture struct {
	srv *httptest.Server
	svc auction.IAuctionService
	id  string
}

type fixtureOpts struct {
	endIn time.Duration
	wrap  func(auction.IAuctionService) auction.IAuctionService
}

func newWsFixture(t *testing.T) *wsFixture {
	t.Helper()
	return newWsFixtureWith(t, fixtureOpts{})
}

func newWsFixtureWith(t *testing.T, o fixtureOpts) *wsFixture {
	t.Helper()
	if o.endIn == 0 {
		o.endIn = time.Hour
	}

	reg := registry.NewMemory()
	registry.SeedDemo(reg)
	b := broadcast.NewLocalBroadcaster(broadcast.NewHub(16))
	svc := auction.NewAuctionService(auction.Deps{
		Store:     auction.NewMemoryStore(),
		Locks:     auction.NewLockRegistry(time.Second),
		Publisher: b,
		Dealers:   reg,
		Reports:   reg,
	}, auction.Options{})

	now := time.Now().UTC()
	v, err := svc.CreateAuction(context.Background(), auction.CreateAuctionInput{
		InspectionReportID: "insp-1001",
		StartTime:          now.Add(-time.Minute),
		EndTime:            now.Add(o.endIn),
		StartingBid:        100000,
		ReservePrice:       130000,
	})
	require.NoError(t, err)
	_, err = svc.OpenAuction(context.Background(), v.ID)
	require.NoError(t, err)

	served := svc
	if o.wrap != nil {
		served = o.wrap(svc)
	}
	r := gin.New()
	r.GET("/ws", NewWsServer(b, served, secret).Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return &wsFixture{srv: srv, svc: svc, id: v.ID}
}

func (f *wsFixture) url(auctionID, token string) string {
	q := url.Values{"auction_id": {auctionID}, "token": {token}}
	return "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/ws?" + q.Encode()
}

func dial(t *testing.T, u string) *websocket.Conn {
	t.Helper()
	conn, resp, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var env Envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func dealerToken(t *testing.T, id string) string {
	t.Helper()
	tok, err := middleware.IssueToken(secret, id, middleware.RoleDealer, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestHandleRejectsBeforeUpgrade(t *testing.T) {
	t.Parallel()
	f := newWsFixture(t)

	tests := []struct {
		name string
		u    string
		want int
	}{
		{"missing token", f.url(f.id, ""), http.StatusBadRequest},
		{"bad token", f.url(f.id, "garbage"), http.StatusUnauthorized},
		{"unknown auction", f.url("missing", dealerToken(t, "dealer-a")), http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, resp, err := websocket.DefaultDialer.Dial(tc.u, nil)
			require.ErrorIs(t, err, websocket.ErrBadHandshake)
			require.Equal(t, tc.want, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}
}

func TestSnapshotThenLiveEvents(t *testing.T) {
	t.Parallel()
	f := newWsFixture(t)

	watcher := dial(t, f.url(f.id, dealerToken(t, "dealer-b")))
	snap := readEnvelope(t, watcher)
	require.Equal(t, EventSnapshot, snap.Event)
	var view auction.AuctionView
	require.NoError(t, json.Unmarshal(snap.Body, &view))
	require.Equal(t, auction.StatusLive, view.Status)
	require.Equal(t, int64(101000), view.MinimumNextBid)
	require.NotContains(t, string(snap.Body), "130000")

	// a bid placed over HTTP (or anywhere) reaches the watcher
	_, err := f.svc.PlaceBid(context.Background(), auction.PlaceBidInput{AuctionID: f.id, DealerID: "dealer-a", Amount: 101000})
	require.NoError(t, err)

	env := readEnvelope(t, watcher)
	require.Equal(t, "auctions/bid", env.Event)
	var e auction.Event
	require.NoError(t, json.Unmarshal(env.Body, &e))
	require.Equal(t, int64(101000), e.CurrentBid)
	require.Equal(t, "Sharma Motors", e.DealerDisplayName)
	require.Greater(t, e.Version, view.Version)
}

func TestBidOverSocket(t *testing.T) {
	t.Parallel()
	f := newWsFixture(t)

	conn := dial(t, f.url(f.id, dealerToken(t, "dealer-c")))
	require.Equal(t, EventSnapshot, readEnvelope(t, conn).Event)

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventBid, Body: json.RawMessage(`{"amount":120000}`)}))

	// the ack and the broadcast event may arrive in either order
	seen := map[string]Envelope{}
	for len(seen) < 2 {
		env := readEnvelope(t, conn)
		seen[env.Event] = env
	}
	var ack BidAck
	require.NoError(t, json.Unmarshal(seen["auctions/bid-ack"].Body, &ack))
	require.Equal(t, int64(120000), ack.CurrentBid)
	require.NotEmpty(t, ack.BidID)
	require.Contains(t, seen, "auctions/bid")

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventBid, Body: json.RawMessage(`{"amount":120500}`)}))
	env := readEnvelope(t, conn)
	require.Equal(t, EventError, env.Event)
	require.Contains(t, string(env.Body), "₹121000")

	require.NoError(t, conn.WriteJSON(Envelope{Event: "auctions/nope"}))
	env = readEnvelope(t, conn)
	require.Equal(t, EventError, env.Event)
	require.Contains(t, string(env.Body), "unknown_event")
}

func TestOperatorCannotBidOverSocket(t *testing.T) {
	t.Parallel()
	f := newWsFixture(t)

	tok, err := middleware.IssueToken(secret, "ops-1", middleware.RoleOperator, time.Hour)
	require.NoError(t, err)
	conn := dial(t, f.url(f.id, tok))
	readEnvelope(t, conn)

	require.NoError(t, conn.WriteJSON(Envelope{Event: EventBid, Body: json.RawMessage(`{"amount":150000}`)}))
	env := readEnvelope(t, conn)
	require.Equal(t, EventError, env.Event)
	require.Contains(t, string(env.Body), "only dealers may bid")
}

// bidBeforeSnapshot commits a bid while the connection is subscribed but
// before its snapshot is read.
type bidBeforeSnapshot struct {
	auction.IAuctionService
	calls atomic.Int32
}

func (s *bidBeforeSnapshot) GetAuction(ctx context.Context, id string) (*auction.AuctionView, error) {
	// the first lookup is the pre-upgrade existence check
	if s.calls.Add(1) == 2 {
		if _, err := s.IAuctionService.PlaceBid(ctx, auction.PlaceBidInput{
			AuctionID: id, DealerID: "dealer-a", Amount: 101000,
		}); err != nil {
			return nil, err
		}
	}
	return s.IAuctionService.GetAuction(ctx, id)
}

func TestEventCommittedBeforeSnapshotIsStale(t *testing.T) {
	t.Parallel()
	f := newWsFixtureWith(t, fixtureOpts{wrap: func(svc auction.IAuctionService) auction.IAuctionService {
		return &bidBeforeSnapshot{IAuctionService: svc}
	}})

	conn := dial(t, f.url(f.id, dealerToken(t, "dealer-b")))
	snap := readEnvelope(t, conn)
	require.Equal(t, EventSnapshot, snap.Event)
	var view auction.AuctionView
	require.NoError(t, json.Unmarshal(snap.Body, &view))
	require.Equal(t, int64(101000), view.CurrentBid)

	// the bid is already in the snapshot; its event carries no newer version
	env := readEnvelope(t, conn)
	require.Equal(t, "auctions/bid", env.Event)
	var e auction.Event
	require.NoError(t, json.Unmarshal(env.Body, &e))
	require.Equal(t, int64(101000), e.CurrentBid)
	require.LessOrEqual(t, e.Version, view.Version)
}

func TestBidAckCarriesExtension(t *testing.T) {
	t.Parallel()
	f := newWsFixtureWith(t, fixtureOpts{endIn: time.Minute})

	v, err := f.svc.GetAuction(context.Background(), f.id)
	require.NoError(t, err)

	conn := dial(t, f.url(f.id, dealerToken(t, "dealer-a")))
	require.Equal(t, EventSnapshot, readEnvelope(t, conn).Event)
	require.NoError(t, conn.WriteJSON(Envelope{Event: EventBid, Body: json.RawMessage(`{"amount":101000}`)}))

	var ack BidAck
	for ack.BidID == "" {
		env := readEnvelope(t, conn)
		if env.Event == "auctions/bid-ack" {
			require.NoError(t, json.Unmarshal(env.Body, &ack))
		}
	}
	require.True(t, ack.Extended)
	require.NotNil(t, ack.NewEndTime)
	require.WithinDuration(t, v.EndTime.Add(2*time.Minute), *ack.NewEndTime, time.Millisecond)
}
