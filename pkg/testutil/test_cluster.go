package testutil

import (
	"math/big"
	"net/http/httptest"
	"testing"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/callSigner/inMemoryCallSigner"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/events"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/metrics"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/node"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/memory"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/transport"
	"go.uber.org/zap"
)

// TestCluster is a set of gate nodes serving one gate: they share the store,
// the token book and the event publisher, each behind its own HTTP test server.
type TestCluster struct {
	Accounts   *TestAccounts
	Store      persistence.IGatePersistence
	Book       *token.Book
	Token      *token.Token
	Publisher  *events.RecordingPublisher
	Gates      []*gate.Gate
	Nodes      []*node.Node
	Servers    []*httptest.Server
	ServerURLs []string
	logger     *zap.Logger
}

// NewTestCluster starts numNodes nodes over store (a fresh memory store when nil)
// with one MockToken deployed and accepted.
func NewTestCluster(t *testing.T, numNodes int, store persistence.IGatePersistence) *TestCluster {
	t.Helper()

	clusterLogger, err := logger.NewLogger(&logger.LoggerConfig{Debug: false})
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if store == nil {
		store = memory.NewMemoryPersistence()
	}

	accounts := LoadTestAccounts(t)
	tc := &TestCluster{
		Accounts:  accounts,
		Store:     store,
		Book:      token.NewBook(accounts.Deployer.Address, clusterLogger),
		Publisher: events.NewRecordingPublisher(),
		logger:    clusterLogger,
	}

	for i := 0; i < numNodes; i++ {
		tc.addNode(t)
	}

	tc.Token = tc.Book.Deploy("MockToken", "MTK")
	if err := tc.Gates[0].UpdateToken(t.Context(), accounts.Whitelister.Address, tc.Token.Address(), true); err != nil {
		t.Fatalf("Failed to accept token: %v", err)
	}

	t.Cleanup(tc.Close)
	return tc
}

func (tc *TestCluster) addNode(t *testing.T) {
	t.Helper()

	g, err := gate.NewGate(&gate.Config{
		Whitelister: tc.Accounts.Whitelister.Address,
		NFT:         tc.Accounts.NFT,
		Address:     tc.Accounts.Gate,
		ChainID:     tc.Accounts.ChainID,
	}, tc.Store, tc.Book, tc.logger, gate.WithPublisher(tc.Publisher))
	if err != nil {
		t.Fatalf("Failed to create gate: %v", err)
	}

	n, err := node.NewNode(node.Config{Logger: tc.logger}, g, tc.Store, tc.Book, metrics.New())
	if err != nil {
		t.Fatalf("Failed to create node: %v", err)
	}

	srv := httptest.NewServer(n.Server().GetHandler())
	tc.Gates = append(tc.Gates, g)
	tc.Nodes = append(tc.Nodes, n)
	tc.Servers = append(tc.Servers, srv)
	tc.ServerURLs = append(tc.ServerURLs, srv.URL)
}

// Client returns a transport client for node i that signs calls as account.
func (tc *TestCluster) Client(i int, account *Account) *transport.Client {
	return transport.NewClient(tc.ServerURLs[i], inMemoryCallSigner.NewInMemoryCallSigner(account.PrivateKey, tc.logger), tc.logger)
}

// Fund mints amount of the cluster token to account and approves the gate for it.
func (tc *TestCluster) Fund(t *testing.T, account *Account, amount int64) {
	t.Helper()
	if err := tc.Token.Mint(account.Address, big.NewInt(amount)); err != nil {
		t.Fatalf("Failed to mint: %v", err)
	}
	if err := tc.Token.Approve(account.Address, tc.Accounts.Gate, big.NewInt(amount)); err != nil {
		t.Fatalf("Failed to approve: %v", err)
	}
}

// Close stops all test servers. The store is left open for the caller.
func (tc *TestCluster) Close() {
	for _, srv := range tc.Servers {
		srv.Close()
	}
	tc.Servers = nil
}
