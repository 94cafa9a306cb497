package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/artfi-labs/artfi-whitelist-go/pkg/types"
	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// IPublisher delivers gate events to interested parties. Publishing happens after
// the state change is committed, so a publish failure never rolls anything back.
type IPublisher interface {
	Publish(ctx context.Context, event *types.GateEvent) error
	Close() error
}

// NewEvent wraps payload into a GateEvent stamped with the current time.
func NewEvent(eventType types.EventType, gate common.Address, chainID uint64, payload any) (*types.GateEvent, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s payload: %w", eventType, err)
	}
	return &types.GateEvent{
		Type:      eventType,
		Gate:      gate,
		ChainID:   chainID,
		Timestamp: time.Now().Unix(),
		Data:      data,
	}, nil
}

// Subject returns the routing subject for an event, e.g. artfi.31337.whitelist.WhitelistExecuted.
func Subject(prefix string, event *types.GateEvent) string {
	if prefix == "" {
		prefix = "artfi"
	}
	return fmt.Sprintf("%s.%d.whitelist.%s", prefix, event.ChainID, event.Type)
}

// LogPublisher writes events to the log. Used when no broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, event *types.GateEvent) error {
	p.logger.Sugar().Infow("Gate event",
		"type", event.Type,
		"gate", event.Gate.Hex(),
		"chainId", event.ChainID,
		"data", string(event.Data),
	)
	return nil
}

func (p *LogPublisher) Close() error { return nil }

// RecordingPublisher keeps every published event in memory.
type RecordingPublisher struct {
	mu     sync.Mutex
	events []*types.GateEvent
	err    error
}

func NewRecordingPublisher() *RecordingPublisher {
	return &RecordingPublisher{}
}

// FailWith makes subsequent Publish calls return err without recording.
func (p *RecordingPublisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.err = err
}

func (p *RecordingPublisher) Publish(_ context.Context, event *types.GateEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *RecordingPublisher) Events() []*types.GateEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]*types.GateEvent, len(p.events))
	copy(out, p.events)
	return out
}

// OfType returns the recorded events of one type.
func (p *RecordingPublisher) OfType(eventType types.EventType) []*types.GateEvent {
	var out []*types.GateEvent
	for _, e := range p.Events() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func (p *RecordingPublisher) Close() error { return nil }
