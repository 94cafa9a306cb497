package node

import (
	"fmt"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/metrics"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultBurst is the token bucket size used when Config.Burst is unset
const DefaultBurst = 20

// Config contains the node configuration
type Config struct {
	Port int
	// RateLimit is the sustained request rate per second. Zero disables limiting.
	RateLimit float64
	Burst     int
	// NonceWindow bounds the age of signed call nonces. Accepted call hashes are
	// recorded in the node's store, so nodes sharing a store refuse each other's calls.
	NonceWindow time.Duration
	Logger      *zap.Logger
}

// Node serves one whitelist gate over HTTP.
type Node struct {
	gate     *gate.Gate
	store    persistence.IGatePersistence
	book     *token.Book
	verifier *callSigner.Verifier
	metrics  *metrics.Metrics
	limiter  *rate.Limiter
	logger   *zap.Logger

	port   int
	server *Server
}

// NewNode wires a gate and its supporting services into an HTTP node. book may be
// nil, in which case the /token helper endpoints answer 404 for every asset.
func NewNode(
	cfg Config,
	g *gate.Gate,
	store persistence.IGatePersistence,
	book *token.Book,
	m *metrics.Metrics,
) (*Node, error) {
	if g == nil {
		return nil, fmt.Errorf("gate is required")
	}
	if store == nil {
		return nil, fmt.Errorf("persistence layer is required")
	}

	l := cfg.Logger
	if l == nil {
		var err error
		l, err = logger.NewLogger(&logger.LoggerConfig{Debug: false})
		if err != nil {
			return nil, fmt.Errorf("failed to create logger: %w", err)
		}
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultBurst
	}

	n := &Node{
		gate:  g,
		store: store,
		book:  book,
		verifier: callSigner.NewVerifier(cfg.NonceWindow,
			callSigner.WithLedger(store),
			callSigner.WithAudience(g.Address(), g.ChainID()),
		),
		metrics: m,
		limiter: rate.NewLimiter(limit, burst),
		logger:  l,
		port:    cfg.Port,
	}
	n.server = NewServer(n, cfg.Port)
	return n, nil
}

// Start starts the HTTP server
func (n *Node) Start() error {
	n.logger.Sugar().Infow("Starting whitelist node",
		"gate", n.gate.Address().Hex(),
		"whitelister", n.gate.Whitelister().Hex(),
		"chain_id", n.gate.ChainID(),
		"port", n.port,
	)
	return n.server.Start()
}

// Stop stops the HTTP server
func (n *Node) Stop() error {
	return n.server.Stop()
}

func (n *Node) Server() *Server {
	return n.server
}

func (n *Node) Gate() *gate.Gate {
	return n.gate
}
