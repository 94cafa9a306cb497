package natsPublisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/events"
	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NatsPublisherConfig struct {
	URL           string
	SubjectPrefix string
	// ConnectTimeout defaults to 10s
	ConnectTimeout time.Duration
}

// NatsPublisher publishes gate events as JSON on core NATS subjects.
type NatsPublisher struct {
	conn   *nats.Conn
	prefix string
	logger *zap.Logger
}

var _ events.IPublisher = (*NatsPublisher)(nil)

func NewNatsPublisher(cfg *NatsPublisherConfig, logger *zap.Logger) (*NatsPublisher, error) {
	if cfg == nil || cfg.URL == "" {
		return nil, fmt.Errorf("nats url is required")
	}

	timeout := cfg.ConnectTimeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	sugar := logger.Sugar()
	conn, err := nats.Connect(cfg.URL,
		nats.Name("artfi-whitelist"),
		nats.Timeout(timeout),
		nats.ReconnectWait(5*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			sugar.Warnw("NATS disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			sugar.Infow("NATS reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.URL, err)
	}

	sugar.Infow("NATS event publisher connected", "url", cfg.URL, "prefix", cfg.SubjectPrefix)

	return &NatsPublisher{
		conn:   conn,
		prefix: cfg.SubjectPrefix,
		logger: logger,
	}, nil
}

func (p *NatsPublisher) Publish(ctx context.Context, event *types.GateEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	subject := events.Subject(p.prefix, event)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	p.logger.Sugar().Debugw("Published gate event", "subject", subject)
	return nil
}

// Subscribe delivers decoded events published under the prefix for chainID.
func (p *NatsPublisher) Subscribe(chainID uint64, handler func(*types.GateEvent)) (*nats.Subscription, error) {
	prefix := p.prefix
	if prefix == "" {
		prefix = "artfi"
	}
	subject := fmt.Sprintf("%s.%d.whitelist.>", prefix, chainID)

	return p.conn.Subscribe(subject, func(msg *nats.Msg) {
		var event types.GateEvent
		if err := json.Unmarshal(msg.Data, &event); err != nil {
			p.logger.Sugar().Warnw("Dropping undecodable gate event", "subject", msg.Subject, "error", err)
			return
		}
		handler(&event)
	})
}

// Close flushes pending messages and closes the connection.
func (p *NatsPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("failed to drain NATS connection: %w", err)
	}
	return nil
}
