package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/config"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/events"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/events/natsPublisher"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/gate"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/logger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/metrics"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/node"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/badger"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/memory"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/persistence/redis"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/token"
	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
)

func main() {
	app := &cli.App{
		Name:  "whitelist-server",
		Usage: "Artfi whitelist gate server",
		Description: `Serves the Artfi whitelist authorization gate over HTTP.

Callers present a fraction signed off-chain by the trusted whitelister. The gate
verifies the EIP-712 signature against the calling wallet, consumes the single-use
fraction slot and collects payment in an accepted token.`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file; flags and env vars override it",
				EnvVars: []string{config.EnvArtfiConfigFile},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8000,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvArtfiPort},
			},
			&cli.Uint64Flag{
				Name:    "chain-id",
				Aliases: []string{"chain"},
				Value:   uint64(config.ChainId_Hardhat),
				Usage:   fmt.Sprintf("Chain ID of the signing domain: %s", config.GetSupportedChainIDsString()),
				EnvVars: []string{config.EnvArtfiChainID},
			},
			&cli.StringFlag{
				Name:    "whitelister",
				Usage:   "Address of the trusted fraction signer",
				EnvVars: []string{config.EnvArtfiWhitelister},
			},
			&cli.StringFlag{
				Name:    "owner",
				Usage:   "Address allowed to update accepted tokens (defaults to the whitelister)",
				EnvVars: []string{config.EnvArtfiOwner},
			},
			&cli.StringFlag{
				Name:    "nft-address",
				Usage:   "ArtfiNFT collection address",
				EnvVars: []string{config.EnvArtfiNFTAddress},
			},
			&cli.StringFlag{
				Name:    "gate-address",
				Usage:   "Gate address used as the verifying contract of the signing domain",
				EnvVars: []string{config.EnvArtfiGateAddress},
			},
			&cli.StringFlag{
				Name:    "persistence",
				Value:   string(config.PersistenceType_Memory),
				Usage:   "Persistence backend: memory, badger or redis",
				EnvVars: []string{config.EnvArtfiPersistenceType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory",
				EnvVars: []string{config.EnvArtfiDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address (host:port)",
				EnvVars: []string{config.EnvArtfiRedisAddress},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password",
				EnvVars: []string{config.EnvArtfiRedisPassword},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number",
				EnvVars: []string{config.EnvArtfiRedisDB},
			},
			&cli.StringFlag{
				Name:    "redis-key-prefix",
				Usage:   "Prefix for all Redis keys",
				EnvVars: []string{config.EnvArtfiRedisKeyPrefix},
			},
			&cli.StringFlag{
				Name:    "nats-url",
				Usage:   "NATS server URL for gate events (events are only logged when unset)",
				EnvVars: []string{config.EnvArtfiNatsURL},
			},
			&cli.Float64Flag{
				Name:    "rate-limit",
				Usage:   "Requests per second per server (0 disables limiting)",
				EnvVars: []string{config.EnvArtfiRateLimit},
			},
			&cli.StringFlag{
				Name:    "bootstrap-token",
				Usage:   "Deploy a mock token with this symbol at startup",
				EnvVars: []string{config.EnvArtfiBootstrapToken},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Usage:   "Enable verbose logging",
				EnvVars: []string{config.EnvArtfiVerbose},
			},
		},
		Action: runWhitelistServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runWhitelistServer(c *cli.Context) error {
	cfg, err := parseGateServerConfig(c)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	l, err := logger.NewLogger(&logger.LoggerConfig{Debug: cfg.Verbose || cfg.Debug})
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	l.Sugar().Infow("Using chain", "name", cfg.ChainName, "chain_id", cfg.ChainID)

	store, err := newPersistence(&cfg.Persistence, l)
	if err != nil {
		return fmt.Errorf("failed to create persistence: %w", err)
	}
	defer func() { _ = store.Close() }()

	var publisher events.IPublisher = events.NewLogPublisher(l)
	if cfg.NatsURL != "" {
		np, err := natsPublisher.NewNatsPublisher(&natsPublisher.NatsPublisherConfig{
			URL:           cfg.NatsURL,
			SubjectPrefix: fmt.Sprintf("artfi.%s.whitelist", cfg.ChainName),
		}, l)
		if err != nil {
			return fmt.Errorf("failed to create event publisher: %w", err)
		}
		publisher = np
	}
	defer func() { _ = publisher.Close() }()

	owner := common.HexToAddress(cfg.Owner)
	book := token.NewBook(owner, l)
	m := metrics.New()

	g, err := gate.NewGate(&gate.Config{
		Whitelister: common.HexToAddress(cfg.Whitelister),
		Owner:       owner,
		NFT:         common.HexToAddress(cfg.NFTAddress),
		Address:     common.HexToAddress(cfg.GateAddress),
		ChainID:     uint64(cfg.ChainID),
	}, store, book, l, gate.WithPublisher(publisher), gate.WithMetrics(m))
	if err != nil {
		return fmt.Errorf("failed to create gate: %w", err)
	}

	if err := restoreTokens(c, g, book, cfg.BootstrapToken, l); err != nil {
		return err
	}

	n, err := node.NewNode(node.Config{
		Port:      cfg.Port,
		RateLimit: cfg.RateLimit,
		Logger:    l,
	}, g, store, book, m)
	if err != nil {
		return fmt.Errorf("failed to create node: %w", err)
	}

	if err := n.Start(); err != nil {
		return fmt.Errorf("failed to start node: %w", err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	l.Sugar().Infow("Shutting down whitelist server")
	return n.Stop()
}

// parseGateServerConfig loads the optional config file and applies flags and
// environment variables that were explicitly set on top of it.
func parseGateServerConfig(c *cli.Context) (*config.GateServerConfig, error) {
	cfg := &config.GateServerConfig{}
	if path := c.String("config"); path != "" {
		loaded, err := config.LoadGateServerConfigFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	setInt := func(name string, dst *int) {
		if c.IsSet(name) || *dst == 0 {
			*dst = c.Int(name)
		}
	}
	setString := func(name string, dst *string) {
		if c.IsSet(name) || *dst == "" {
			*dst = c.String(name)
		}
	}

	setInt("port", &cfg.Port)
	if c.IsSet("chain-id") || cfg.ChainID == 0 {
		cfg.ChainID = config.ChainId(c.Uint64("chain-id"))
	}
	setString("whitelister", &cfg.Whitelister)
	setString("owner", &cfg.Owner)
	setString("nft-address", &cfg.NFTAddress)
	setString("gate-address", &cfg.GateAddress)

	persistenceType := string(cfg.Persistence.Type)
	setString("persistence", &persistenceType)
	cfg.Persistence.Type = config.PersistenceType(persistenceType)
	setString("data-path", &cfg.Persistence.DataPath)
	setString("redis-address", &cfg.Persistence.RedisAddress)
	setString("redis-password", &cfg.Persistence.RedisPassword)
	setInt("redis-db", &cfg.Persistence.RedisDB)
	setString("redis-key-prefix", &cfg.Persistence.RedisKeyPrefix)

	setString("nats-url", &cfg.NatsURL)
	if c.IsSet("rate-limit") {
		cfg.RateLimit = c.Float64("rate-limit")
	}
	setString("bootstrap-token", &cfg.BootstrapToken)
	if c.IsSet("verbose") {
		cfg.Verbose = c.Bool("verbose")
	}
	return cfg, nil
}

func newPersistence(cfg *config.PersistenceConfig, l *zap.Logger) (persistence.IGatePersistence, error) {
	switch cfg.Type {
	case config.PersistenceType_Badger:
		return badger.NewBadgerPersistence(cfg.DataPath, l)
	case config.PersistenceType_Redis:
		return redis.NewRedisPersistence(&redis.RedisConfig{
			Address:   cfg.RedisAddress,
			Password:  cfg.RedisPassword,
			DB:        cfg.RedisDB,
			KeyPrefix: cfg.RedisKeyPrefix,
		}, l)
	default:
		return memory.NewMemoryPersistence(), nil
	}
}

// restoreTokens deploys the bootstrap token and accepts it. Token balances live in
// process memory, so tokens accepted by a previous run are only reported.
func restoreTokens(c *cli.Context, g *gate.Gate, book *token.Book, symbol string, l *zap.Logger) error {
	previous, err := g.AcceptedTokens()
	if err != nil {
		return fmt.Errorf("failed to read accepted tokens: %w", err)
	}
	if len(previous) > 0 {
		l.Sugar().Warnw("Accepted tokens from a previous run have no ledger in this process",
			"count", len(previous),
		)
	}
	if symbol == "" {
		return nil
	}

	t := book.Deploy("MockToken", symbol)
	if err := g.UpdateToken(c.Context, g.Owner(), t.Address(), true); err != nil {
		return fmt.Errorf("failed to accept bootstrap token: %w", err)
	}
	l.Sugar().Infow("Bootstrap token deployed and accepted",
		"symbol", symbol,
		"address", t.Address().Hex(),
	)
	return nil
}
