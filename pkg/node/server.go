package node

import (
	"fmt"
	"net/http"
	"time"
)

/*
Server exposes the gate over HTTP.

Read endpoints:
  GET /whitelister              gate identity (whitelister, owner, nft, gate, chain id)
  POST /verify                  recover the signer of a fraction signature
  GET /tokens                   accepted payment assets
  GET /slots/{fractionId}       whether a slot has been consumed
  GET /receipts/root            merkle root over all receipts
  GET /receipts/proof?fractionId=
  GET /token/balance?asset=&account=
  GET /health, GET /metrics

Mutating endpoints take a callSigner.SignedCall envelope. The recovered sender
stands in for the on-chain caller:
  POST /whitelist               DoWhitelistCall, sender is the paying wallet
  POST /admin/token             UpdateTokenCall, sender must be the owner
  POST /token/mint              MintCall against a registered mock token
  POST /token/approve           ApproveCall, sender is the token owner
*/

// Server handles HTTP requests for the node
type Server struct {
	node       *Node
	httpServer *http.Server
}

// NewServer creates a new server instance
func NewServer(node *Node, port int) *Server {
	s := &Server{
		node: node,
	}

	mux := http.NewServeMux()

	s.route(mux, "/whitelister", s.handleWhitelister)
	s.route(mux, "/verify", s.handleVerify)
	s.route(mux, "/whitelist", s.handleDoWhitelist)
	s.route(mux, "/admin/token", s.handleUpdateToken)
	s.route(mux, "/tokens", s.handleTokens)
	s.route(mux, "/slots/", s.handleSlot)
	s.route(mux, "/receipts/root", s.handleReceiptRoot)
	s.route(mux, "/receipts/proof", s.handleReceiptProof)

	// Mock token helpers
	s.route(mux, "/token/mint", s.handleMint)
	s.route(mux, "/token/approve", s.handleApprove)
	s.route(mux, "/token/balance", s.handleBalance)

	s.route(mux, "/health", s.handleHealth)
	if node.metrics != nil {
		mux.Handle("/metrics", node.metrics.Handler())
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

func (s *Server) route(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, s.withRequestContext(pattern, s.withRateLimit(h)))
}

// Start starts the HTTP server
func (s *Server) Start() error {
	go func() {
		s.node.logger.Sugar().Infow("Starting HTTP server", "gate", s.node.gate.Address().Hex(), "port", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			s.node.logger.Sugar().Errorw("HTTP server error", "gate", s.node.gate.Address().Hex(), "error", err)
		}
	}()
	return nil
}

// Stop stops the HTTP server
func (s *Server) Stop() error {
	return s.httpServer.Close()
}

// GetHandler returns the HTTP handler (for testing)
func (s *Server) GetHandler() http.Handler {
	return s.httpServer.Handler
}
