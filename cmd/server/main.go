package main

import (
	"context"
	"encoding/json"
	"log"
	"math"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/strangerchat/server/internal/config"
	"github.com/strangerchat/server/internal/lobby"
	"github.com/strangerchat/server/internal/messaging"
	"github.com/strangerchat/server/internal/metrics"
	"github.com/strangerchat/server/internal/protocol"
	"github.com/strangerchat/server/internal/ratelimit"
	"github.com/strangerchat/server/internal/ws"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: .env not loaded: %v", err)
	}

	cfg := config.Load()

	serverConfig := ws.DefaultServerConfig()
	serverConfig.ListenAddr = cfg.ListenAddr
	serverConfig.WorkerPoolSize = cfg.WorkerPoolSize
	serverConfig.MaxConnections = cfg.MaxConnections
	serverConfig.ReadTimeout = cfg.ReadTimeout
	serverConfig.WriteTimeout = cfg.WriteTimeout
	serverConfig.OutboxSize = cfg.OutboxSize
	serverConfig.CORSOrigins = cfg.CORSOrigins
	serverConfig.Heartbeat = ws.HeartbeatConfig{
		Interval: cfg.HeartbeatInterval,
		Timeout:  cfg.HeartbeatTimeout,
	}

	// --- Redis (optional, rate limiting) ---
	var (
		rdb     *redis.Client
		limiter *ratelimit.Limiter
	)
	if cfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Printf("warning: redis unreachable at %s, limiter will fail open: %v", cfg.RedisAddr, err)
		}
		cancel()
		limiter = ratelimit.NewLimiter(rdb)
	}

	// --- NATS (optional, lifecycle events) ---
	var (
		natsClient *messaging.NATSClient
		events     lobby.Events
	)
	if cfg.NATSURL != "" {
		natsConfig := messaging.DefaultNATSConfig()
		natsConfig.URL = cfg.NATSURL
		natsConfig.Name = "strangerchat-server"

		var err error
		natsClient, err = messaging.NewNATSClient(natsConfig)
		if err != nil {
			log.Fatalf("failed to connect to NATS: %v", err)
		}
		events = messaging.NewEventPublisher(natsClient)
	}

	log.Printf("Stranger chat server starting")
	log.Printf("  listen_addr:       %s", cfg.ListenAddr)
	log.Printf("  worker_pool:       %d", cfg.WorkerPoolSize)
	log.Printf("  max_connections:   %d", cfg.MaxConnections)
	log.Printf("  read_timeout:      %s", cfg.ReadTimeout)
	log.Printf("  write_timeout:     %s", cfg.WriteTimeout)
	log.Printf("  outbox_size:       %d", cfg.OutboxSize)
	log.Printf("  heartbeat:         %s (+%s)", cfg.HeartbeatInterval, cfg.HeartbeatTimeout)
	log.Printf("  max_message_chars: %d", cfg.MaxMessageChars)
	log.Printf("  ban_threshold:     %d", cfg.ReportBanThreshold)
	log.Printf("  redis_addr:        %q", cfg.RedisAddr)
	log.Printf("  nats_url:          %q", cfg.NATSURL)
	log.Printf("  cors_origins:      %v", cfg.CORSOrigins)

	dispatcher := ws.NewMessageDispatcher(nil)
	server := ws.NewServer(serverConfig, dispatcher.Dispatch)
	dispatcher.SetSender(server)

	lob := lobby.New(server, lobby.Options{
		MaxMessageChars: cfg.MaxMessageChars,
		BanThreshold:    cfg.ReportBanThreshold,
		Events:          events,
	})

	// allow applies a rate limit rule to the endpoint and tells it when to
	// retry if the rule is exceeded.
	allow := func(conn *ws.Connection, rule ratelimit.Rule) bool {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		d, _ := limiter.Check(ctx, conn.ID, rule)
		if d.Allowed {
			return true
		}
		resp, err := protocol.NewServerMessage(protocol.TypeRateLimited, protocol.RateLimitedMsg{
			RetryAfter: int(math.Ceil(d.RetryAfter.Seconds())),
		})
		if err == nil {
			_ = server.Send(conn.ID, resp)
		}
		log.Printf("[ratelimit] endpoint=%s exceeded %s", conn.ID, rule.Key)
		return false
	}

	// -----------------------------------------------------------------------
	// join_queue / cancel_queue
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeJoinQueue, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.JoinQueueMsg)
		if !ok || !allow(conn, ratelimit.RuleJoin) {
			return
		}
		_ = lob.JoinQueue(conn.ID, m.ChatType, m.Interests)
	})

	dispatcher.Register(protocol.TypeCancelQueue, func(conn *ws.Connection, msg interface{}) {
		lob.CancelQueue(conn.ID)
	})

	// -----------------------------------------------------------------------
	// send_message / typing
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeSendMessage, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.SendMessageMsg)
		if !ok || !allow(conn, ratelimit.RuleMessage) {
			return
		}
		_ = lob.Chat(conn.ID, m.Message, m.Timestamp)
	})

	dispatcher.Register(protocol.TypeTyping, func(conn *ws.Connection, msg interface{}) {
		lob.Typing(conn.ID, true)
	})

	dispatcher.Register(protocol.TypeStoppedTyping, func(conn *ws.Connection, msg interface{}) {
		lob.Typing(conn.ID, false)
	})

	// -----------------------------------------------------------------------
	// WebRTC signaling, relayed verbatim
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeMediaOffer, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.MediaOfferMsg); ok {
			_ = lob.Signal(conn.ID, protocol.TypeMediaOffer, m.Offer)
		}
	})

	dispatcher.Register(protocol.TypeMediaAnswer, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.MediaAnswerMsg); ok {
			_ = lob.Signal(conn.ID, protocol.TypeMediaAnswer, m.Answer)
		}
	})

	dispatcher.Register(protocol.TypeICECandidate, func(conn *ws.Connection, msg interface{}) {
		if m, ok := msg.(protocol.ICECandidateMsg); ok {
			_ = lob.Signal(conn.ID, protocol.TypeICECandidate, m.Candidate)
		}
	})

	// -----------------------------------------------------------------------
	// disconnect_user / report_user
	// -----------------------------------------------------------------------
	dispatcher.Register(protocol.TypeDisconnectUser, func(conn *ws.Connection, msg interface{}) {
		lob.Leave(conn.ID)
	})

	dispatcher.Register(protocol.TypeReportUser, func(conn *ws.Connection, msg interface{}) {
		m, ok := msg.(protocol.ReportUserMsg)
		if !ok || !allow(conn, ratelimit.RuleReport) {
			return
		}
		_, _ = lob.Report(conn.ID, m.ReportedID, m.Reason, m.Message, m.SessionID)
	})

	// -----------------------------------------------------------------------
	// Connection lifecycle
	// -----------------------------------------------------------------------
	server.SetAcceptFilter(func(r *http.Request) bool {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		ok, _ := limiter.Allow(ctx, ws.ClientIP(r), ratelimit.RuleConnect)
		return ok
	})
	server.SetOnConnect(func(conn *ws.Connection) {
		lob.Connect(conn.ID)
	})
	server.SetOnDisconnect(func(connID string) {
		lob.Disconnect(connID)
	})
	server.SetHealthInfo(func() interface{} {
		return struct {
			lobby.Snapshot
			RateLimiting bool `json:"rateLimiting"`
			Events       bool `json:"eventsConnected"`
		}{
			Snapshot:     lob.Snapshot(),
			RateLimiting: limiter != nil,
			Events:       natsClient != nil && natsClient.Connected(),
		}
	})

	// -----------------------------------------------------------------------
	// Operator endpoints
	// -----------------------------------------------------------------------
	router := server.Router()
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/api/reports", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(lob.ReportStats(cfg.RecentReports)); err != nil {
			log.Printf("[api] encode reports: %v", err)
		}
	}).Methods(http.MethodGet)

	// Graceful shutdown.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("received signal %v, initiating graceful shutdown...", sig)
		if err := server.Shutdown(); err != nil {
			log.Printf("shutdown error: %v", err)
		}
		if natsClient != nil {
			natsClient.Close()
		}
		if rdb != nil {
			if err := rdb.Close(); err != nil {
				log.Printf("redis close error: %v", err)
			}
		}
		os.Exit(0)
	}()

	if err := server.Start(); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
