package feed

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/cedd82/mongoSchemaVersion/internal/store"
)

// SeedData describes one seeded fixture file.
type SeedData struct {
	Path      string `json:"path"`
	Documents int    `json:"documents"`
	Error     string `json:"error,omitempty"`
}

// StatsData is the wire form of store.Stats.
type StatsData struct {
	Documents int         `json:"documents"`
	ByVersion map[int]int `json:"by_version"`
}

// NewStatsData converts stats for the wire.
func NewStatsData(stats store.Stats) StatsData {
	return StatsData{Documents: stats.Documents, ByVersion: stats.ByVersion}
}

// Publisher turns store activity into feed messages.
type Publisher struct {
	server *Server
	stats  StatsFunc
	logger *zap.Logger
}

// NewPublisher returns a Publisher broadcasting on server. stats may be nil.
func NewPublisher(server *Server, stats StatsFunc, logger *zap.Logger) *Publisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{server: server, stats: stats, logger: logger}
}

// OnSeed broadcasts a seeded file followed by fresh stats. Its signature
// matches watch.Config.OnSeed.
func (p *Publisher) OnSeed(path string, documents int, err error) {
	data := SeedData{Path: path, Documents: documents}
	if err != nil {
		data.Error = err.Error()
	}
	p.publish(MessageTypeSeed, data)
	p.PublishStats(context.Background())
}

// PublishStats broadcasts the current store statistics.
func (p *Publisher) PublishStats(ctx context.Context) {
	if p.stats == nil {
		return
	}
	stats, err := p.stats(ctx)
	if err != nil {
		p.logger.Warn("failed to read store stats", zap.Error(err))
		return
	}
	p.publish(MessageTypeStats, NewStatsData(stats))
}

func (p *Publisher) publish(typ MessageType, data any) {
	raw, err := json.Marshal(data)
	if err != nil {
		p.logger.Warn("failed to marshal feed data", zap.String("type", string(typ)), zap.Error(err))
		return
	}
	p.server.Broadcast(Message{Type: typ, Timestamp: time.Now(), Data: raw})
}
