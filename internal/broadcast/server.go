// Package broadcast implements the authenticated websocket push channel.
//
// Listeners connect with a pre-shared token carried in the websocket
// subprotocol negotiation header; connections presenting no token, or a
// token outside the configured allow-set, are rejected with 401 before
// the upgrade completes. Open listeners receive a periodic liveness ping
// and, on stock events, a JSON message in a freshly shuffled order with
// a pacing delay between listeners.
package broadcast

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/stocksentry/stocksentry/internal/classify"
	"github.com/stocksentry/stocksentry/internal/metrics"
	domain "github.com/stocksentry/stocksentry/pkg/types"
)

const (
	defaultHeartbeatInterval = 30 * time.Second
	defaultPacingInterval    = 250 * time.Millisecond
	writeTimeout             = 10 * time.Second
)

// Message is the wire format sent to listeners on a stock event.
// Direct=true means fully buyable; false means visible but not addable
// to basket. Price is 0 when unknown.
type Message struct {
	Direct bool    `json:"direct"`
	Title  string  `json:"title"`
	ID     string  `json:"id"`
	Price  float64 `json:"price"`
}

// Config holds the broadcast server settings.
type Config struct {
	Addr              string        // listen address, e.g. ":8080"
	Tokens            []string      // shared-secret allow-set
	TLSCertPath       string        // optional; both cert and key enable TLS
	TLSKeyPath        string        //
	HeartbeatInterval time.Duration // liveness ping period, default 30s
	PacingInterval    time.Duration // inter-listener fan-out delay
	Gates             classify.Gates
	LogTokens         bool // log presented tokens instead of masking
}

// session is one connected listener.
type session struct {
	id     string
	conn   *websocket.Conn
	remote string
}

// Server is the websocket broadcast notifier. It owns its listener
// socket and liveness timer; Shutdown cancels both and is idempotent.
type Server struct {
	cfg    Config
	log    *slog.Logger
	tokens map[string]struct{}

	httpSrv  *http.Server
	ln       net.Listener
	upgrader websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewServer creates a broadcast server. Call Start to begin listening.
func NewServer(cfg Config, log *slog.Logger) *Server {
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.PacingInterval <= 0 {
		cfg.PacingInterval = defaultPacingInterval
	}

	tokens := make(map[string]struct{}, len(cfg.Tokens))
	for _, t := range cfg.Tokens {
		if t != "" {
			tokens[t] = struct{}{}
		}
	}

	return &Server{
		cfg:    cfg,
		log:    log,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*session),
		done:     make(chan struct{}),
	}
}

// Start opens the listener socket and launches the liveness timer.
func (s *Server) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleUpgrade)

	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.cfg.Addr, err)
	}

	if s.cfg.TLSCertPath != "" && s.cfg.TLSKeyPath != "" {
		cert, certErr := tls.LoadX509KeyPair(s.cfg.TLSCertPath, s.cfg.TLSKeyPath)
		if certErr != nil {
			ln.Close()
			return fmt.Errorf("loading TLS key pair: %w", certErr)
		}
		ln = tls.NewListener(ln, &tls.Config{
			Certificates: []tls.Certificate{cert},
			MinVersion:   tls.VersionTLS12,
		})
	}

	s.httpSrv = srv
	s.ln = ln

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.log.Error("broadcast server stopped", "error", serveErr)
		}
	}()
	go s.heartbeatLoop()

	s.log.Info("broadcast server listening", "addr", ln.Addr().String())
	return nil
}

// Addr returns the bound listener address, for tests and logs.
func (s *Server) Addr() string {
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

// handleUpgrade authenticates the negotiation header and promotes the
// connection to an open listener session.
func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	token := s.matchToken(r.Header.Get("Sec-WebSocket-Protocol"))
	if token == "" {
		metrics.BroadcastRejectsTotal.Inc()
		s.log.Info("broadcast connection denied", "remote", r.RemoteAddr)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, http.Header{
		"Sec-WebSocket-Protocol": {token},
	})
	if err != nil {
		s.log.Warn("broadcast upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	sess := &session{
		id:     uuid.NewString(),
		conn:   conn,
		remote: r.RemoteAddr,
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	s.sessions[sess.id] = sess
	count := len(s.sessions)
	s.mu.Unlock()

	metrics.BroadcastListeners.Set(float64(count))
	s.log.Info("broadcast listener connected",
		"remote", sess.remote,
		"token", s.displayToken(token),
		"listeners", count,
	)

	s.wg.Add(1)
	go s.readLoop(sess)
}

// matchToken returns the first presented subprotocol found in the
// allow-set, or "" when none match. Clients may offer several tokens
// comma-separated per the negotiation header grammar.
func (s *Server) matchToken(header string) string {
	if header == "" || len(s.tokens) == 0 {
		return ""
	}
	for _, part := range strings.Split(header, ",") {
		candidate := strings.TrimSpace(part)
		if _, ok := s.tokens[candidate]; ok {
			return candidate
		}
	}
	return ""
}

func (s *Server) displayToken(token string) string {
	if s.cfg.LogTokens {
		return token
	}
	return "***"
}

// readLoop drains inbound frames until the peer disconnects. Listeners
// never send application data; the read keeps the connection state
// machine moving and detects closure.
func (s *Server) readLoop(sess *session) {
	defer s.wg.Done()
	for {
		if _, _, err := sess.conn.ReadMessage(); err != nil {
			break
		}
	}
	s.dropSession(sess, "listener disconnected")
}

func (s *Server) dropSession(sess *session, reason string) {
	s.mu.Lock()
	_, present := s.sessions[sess.id]
	delete(s.sessions, sess.id)
	count := len(s.sessions)
	closed := s.closed
	s.mu.Unlock()

	sess.conn.Close()
	if present && !closed {
		metrics.BroadcastListeners.Set(float64(count))
		s.log.Info(reason, "remote", sess.remote, "listeners", count)
	}
}

// heartbeatLoop pings every open listener on a fixed period. It runs
// independently of stock events and stops when Shutdown closes done.
func (s *Server) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			for _, sess := range s.snapshotSessions() {
				deadline := time.Now().Add(writeTimeout)
				if err := sess.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
					s.dropSession(sess, "listener ping failed")
					continue
				}
				s.log.Debug("liveness ping sent", "remote", sess.remote)
			}
		}
	}
}

func (s *Server) snapshotSessions() []*session {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess)
	}
	return out
}

// NotifyStock broadcasts a stock event. A buyable item produces a direct
// message; one that is visible but not basket-addable produces a reduced
// message. Items that are basket-addable yet not buyable generate no
// broadcast, matching the mutually exclusive event pair.
func (s *Server) NotifyStock(ctx context.Context, it *domain.Item, _ int) (string, error) {
	if it == nil || it.Product == nil {
		return "", nil
	}

	if classify.IsBuyable(it, s.cfg.Gates) {
		return "", s.broadcast(ctx, it, true)
	}
	if !classify.CanAddToBasket(it, s.cfg.Gates) {
		return "", s.broadcast(ctx, it, false)
	}
	return "", nil
}

// broadcast fans the message out to every open listener in a freshly
// shuffled order, pacing sends so no listener consistently wins the
// race. Individual send failures drop the listener and continue.
func (s *Server) broadcast(ctx context.Context, it *domain.Item, direct bool) error {
	sessions := s.snapshotSessions()
	if len(sessions) == 0 {
		return nil
	}

	rand.Shuffle(len(sessions), func(i, j int) {
		sessions[i], sessions[j] = sessions[j], sessions[i]
	})

	price := it.PriceAmount()
	if !domain.ValidPrice(price) {
		price = 0
	}
	msg := Message{
		Direct: direct,
		Title:  it.Product.Title,
		ID:     it.Product.ID,
		Price:  price,
	}

	pacer := rate.NewLimiter(rate.Every(s.cfg.PacingInterval), 1)
	for _, sess := range sessions {
		if err := pacer.Wait(ctx); err != nil {
			return err
		}

		sess.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := sess.conn.WriteJSON(msg); err != nil {
			s.log.Warn("stock ping failed", "remote", sess.remote, "error", err)
			metrics.NotifierFailuresTotal.WithLabelValues("broadcast").Inc()
			s.dropSession(sess, "listener write failed")
			continue
		}
		metrics.BroadcastSendsTotal.Inc()
		s.log.Debug("stock ping sent", "remote", sess.remote, "direct", direct)
	}
	return nil
}

// NotifyPriceChange is not broadcast to listeners.
func (s *Server) NotifyPriceChange(context.Context, *domain.Item, float64) error { return nil }

// NotifyAdmin is not broadcast to listeners.
func (s *Server) NotifyAdmin(context.Context, string) error { return nil }

// NotifyRateLimit is not broadcast to listeners.
func (s *Server) NotifyRateLimit(context.Context) error { return nil }

// NotifyCookies is not broadcast to listeners.
func (s *Server) NotifyCookies(context.Context, *domain.Item, int) error { return nil }

// Shutdown cancels the liveness timer, closes the listener socket and
// every open session. Safe to call multiple times and at any point;
// in-flight sends are best effort.
func (s *Server) Shutdown() {
	s.closeOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		s.closed = true
		sessions := make([]*session, 0, len(s.sessions))
		for _, sess := range s.sessions {
			sessions = append(sessions, sess)
		}
		s.sessions = make(map[string]*session)
		s.mu.Unlock()

		for _, sess := range sessions {
			sess.conn.Close()
		}
		if s.httpSrv != nil {
			s.httpSrv.Close()
		}
		s.wg.Wait()

		metrics.BroadcastListeners.Set(0)
		s.log.Info("broadcast server stopped")
	})
}
