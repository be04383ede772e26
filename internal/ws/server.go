package ws

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"autoliquid/internal/broadcast"
	"autoliquid/internal/http/middleware"
	"autoliquid/internal/services/auction"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 12 * time.Second
	pingPeriod     = 3 * time.Second // must be < pongWait
	maxMessageSize = 512
	handlerTimeout = 1900 * time.Millisecond
)

type WsServer struct {
	broadcaster broadcast.Broadcaster
	router      *Router
	auctionSvc  auction.IAuctionService
	jwtSecret   string
	upgrader    websocket.Upgrader
}

func NewWsServer(b broadcast.Broadcaster, auctionSvc auction.IAuctionService, jwtSecret string) *WsServer {
	srv := &WsServer{
		broadcaster: b,
		router:      NewRouter(),
		auctionSvc:  auctionSvc,
		jwtSecret:   jwtSecret,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true }, // tokens, not cookies, authenticate
		},
	}
	srv.registerHandlers() // all WS endpoints configured here
	return srv
}

// ---------------------------------------------------------------------------
//  Public: Gin entry-point
// ---------------------------------------------------------------------------

// Handle upgrades GET /ws?auction_id=&token= into an event stream for one
// auction. The first frame is an "auctions/snapshot"; committed events
// follow in commit order.
func (s *WsServer) Handle(ginCtx *gin.Context) {
	auctionID := ginCtx.Query("auction_id")
	token := ginCtx.Query("token")
	if token == "" {
		token = strings.TrimPrefix(ginCtx.GetHeader("Authorization"), "Bearer ")
	}
	if auctionID == "" || token == "" {
		ginCtx.JSON(http.StatusBadRequest, gin.H{"error": "auction_id and token are required"})
		return
	}
	principal, err := middleware.ParseToken(s.jwtSecret, token)
	if err != nil {
		ginCtx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	if _, err := s.auctionSvc.GetAuction(ginCtx.Request.Context(), auctionID); err != nil {
		if errors.Is(err, auction.ErrNotFound) {
			ginCtx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		ginCtx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	rawConn, err := s.upgrader.Upgrade(ginCtx.Writer, ginCtx.Request, nil)
	if err != nil {
		zap.L().Warn("ws.upgrade", zap.Error(err))
		return
	}
	rawConn.SetReadLimit(maxMessageSize)

	// ─────────────────── Client joined ────────────────────────
	conn := &clientConn{rawConn: rawConn}
	sub := s.broadcaster.Subscribe(auctionID)

	// Snapshot after subscribing so no commit is missed. A commit landing in
	// between is already in the snapshot and still arrives as an event with a
	// version at or below the snapshot's; clients drop those.
	if err := s.pushInitialSnapshot(ginCtx.Request.Context(), auctionID, conn); err != nil {
		zap.L().Warn("ws.snapshot", zap.String("auction_id", auctionID), zap.Error(err))
	}

	cc := &ConnContext{AuctionID: auctionID, Principal: principal, IP: ginCtx.ClientIP()}
	ctx, cancel := context.WithCancel(context.Background())
	go s.writer(ctx, conn, sub)
	go s.reader(cc, conn, sub, cancel)

	zap.L().Debug("ws.joined",
		zap.String("auction_id", auctionID),
		zap.String("principal", principal.ID),
		zap.String("role", principal.Role),
	)
}

// ---------------------------------------------------------------------------
//  Private helpers
// ---------------------------------------------------------------------------

func (s *WsServer) registerHandlers() {
	// auctions/bid ------------------------------------------------------------
	Register(
		s.router,
		EventBid,
		func(ctx context.Context, cc *ConnContext, req BidRequest) (BidAck, error) {
			if cc.Principal.Role != middleware.RoleDealer {
				return BidAck{}, errors.New("only dealers may bid")
			}
			if req.Amount <= 0 {
				return BidAck{}, errors.New("invalid_amount")
			}
			res, err := s.auctionSvc.PlaceBid(ctx, auction.PlaceBidInput{
				AuctionID: cc.AuctionID,
				DealerID:  cc.Principal.ID,
				Amount:    req.Amount,
				IP:        cc.IP,
			})
			if err != nil {
				return BidAck{}, err
			}
			return BidAck{
				BidID:      res.Bid.ID,
				CurrentBid: res.Auction.CurrentBid,
				Extended:   res.Extended,
				NewEndTime: res.NewEndTime,
			}, nil
		},
	)
}

func (s *WsServer) pushInitialSnapshot(ctx context.Context, id string, conn *clientConn) error {
	ctx, cancel := context.WithTimeout(ctx, 4*time.Second)
	defer cancel()

	view, err := s.auctionSvc.GetAuction(ctx, id)
	if err != nil {
		return err
	}
	env, err := snapshotEnvelope(view)
	if err != nil {
		return err
	}
	return conn.writeJSON(env)
}

// writer owns the event stream and the keep-alive pings.
func (s *WsServer) writer(ctx context.Context, conn *clientConn, sub *broadcast.Subscription) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C:
			if !ok {
				if ctx.Err() == nil {
					// dropped by the hub for falling behind
					conn.closeWith(websocket.CloseTryAgainLater, "lagging")
				}
				return
			}
			env, err := wrapEvent(e)
			if err != nil {
				zap.L().Warn("ws.wrap_event_failed", zap.Error(err))
				continue
			}
			if err := conn.writeJSON(env); err != nil {
				sub.Close()
				_ = conn.rawConn.Close()
				return
			}
		case <-ticker.C:
			if err := conn.ping(); err != nil {
				conn.closeWith(websocket.CloseNormalClosure, "ping timeout")
				return
			}
		}
	}
}

func (s *WsServer) reader(cc *ConnContext, conn *clientConn, sub *broadcast.Subscription, stop context.CancelFunc) {
	defer func() {
		stop()
		sub.Close()
		_ = conn.rawConn.Close()
	}()

	_ = conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	conn.rawConn.SetPongHandler(func(string) error {
		return conn.rawConn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var env Envelope
		if err := conn.rawConn.ReadJSON(&env); err != nil {
			return // client closed or errored
		}

		ctx, cancel := context.WithTimeout(context.Background(), handlerTimeout)
		res, err := s.router.dispatch(ctx, cc, env)
		cancel()

		// ---- error -> {"event":"error", "body":{...}} ---------------
		if err != nil {
			_ = conn.writeJSON(map[string]any{
				"event": EventError,
				"body":  ErrorBody{Error: err.Error()},
			})
			continue
		}

		// ---- success -> {"event":"<evt>-ack", "body":{...}} --------
		reply := map[string]any{"event": env.Event + "-ack"}
		if res != nil {
			reply["body"] = res
		}
		_ = conn.writeJSON(reply)
	}
}
