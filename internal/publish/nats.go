// Package publish pushes pipeline output to external consumers: frame
// summaries and safety warnings onto NATS subjects, and the latest frame
// into a redis key. Both publishers are pipeline sinks and no-ops until
// connected, so the pipeline runs identically with or without brokers.
//
// Everything published carries speeds in m/s; display conversion is an API
// concern.
package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
)

// FrameSummary is the per-frame message on the frames subject.
type FrameSummary struct {
	Position     int     `json:"position"`
	FrameNumber  uint32  `json:"frame_number"`
	Replay       bool    `json:"replay,omitempty"`
	TimestampMs  int64   `json:"timestamp_ms"`
	PointCount   int     `json:"point_count"`
	DynamicCount int     `json:"dynamic_count"`
	ClusterCount int     `json:"cluster_count"`
	WarningCount int     `json:"warning_count"`
	RawSpeed     float64 `json:"raw_speed"`
	SmoothSpeed  float64 `json:"smooth_speed"`
}

// WarningEvent is one safety-zone warning on the warnings subject.
type WarningEvent struct {
	Position    int     `json:"position"`
	TimestampMs int64   `json:"timestamp_ms"`
	ClusterID   int     `json:"cluster_id"`
	Priority    int     `json:"priority"`
	MeanDoppler float64 `json:"mean_doppler"`
	PointCount  int     `json:"point_count"`
	CentroidX   float64 `json:"centroid_x"`
	CentroidY   float64 `json:"centroid_y"`
	CentroidZ   float64 `json:"centroid_z"`
}

func newFrameSummary(res *pipeline.FrameResult, ts int64) FrameSummary {
	return FrameSummary{
		Position:     res.Position,
		FrameNumber:  res.Header.FrameNumber,
		Replay:       res.Replay,
		TimestampMs:  ts,
		PointCount:   len(res.Filtered),
		DynamicCount: len(res.Dynamic),
		ClusterCount: len(res.Clusters),
		WarningCount: len(res.Warnings),
		RawSpeed:     res.RawSpeed,
		SmoothSpeed:  res.SmoothSpeed,
	}
}

// Publisher publishes pipeline output to NATS. The zero of enabled is
// disconnected: every publish is a silent no-op until Connect succeeds.
type Publisher struct {
	prefix string

	mutex   sync.Mutex
	conn    *nats.Conn
	enabled bool

	now func() time.Time
}

var _ pipeline.ResultSink = (*Publisher)(nil)

// NewPublisher builds a disconnected publisher. Subjects are derived from
// prefix: <prefix>.frames and <prefix>.warnings.
func NewPublisher(prefix string) *Publisher {
	return &Publisher{
		prefix: prefix,
		now:    time.Now,
	}
}

// FramesSubject returns the subject frame summaries are published on.
func (p *Publisher) FramesSubject() string { return p.prefix + ".frames" }

// WarningsSubject returns the subject warning events are published on.
func (p *Publisher) WarningsSubject() string { return p.prefix + ".warnings" }

// Connect dials the NATS server with automatic reconnection.
func (p *Publisher) Connect(natsURL string) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	opts := []nats.Option{
		nats.Name("proximity-radar-publisher"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Printf("NATS disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Printf("NATS reconnected: %s", nc.ConnectedUrl())
		}),
		nats.ClosedHandler(func(nc *nats.Conn) {
			log.Printf("NATS connection closed")
		}),
	}

	conn, err := nats.Connect(natsURL, opts...)
	if err != nil {
		p.enabled = false
		return fmt.Errorf("failed to connect to NATS: %w", err)
	}

	p.conn = conn
	p.enabled = true
	log.Printf("NATS connected: %s", natsURL)
	return nil
}

// ConsumeResult publishes a frame summary for every frame and one warning
// event per safety warning.
func (p *Publisher) ConsumeResult(ctx context.Context, res *pipeline.FrameResult) error {
	ts := p.now().UnixMilli()

	if err := p.publish(p.FramesSubject(), newFrameSummary(res, ts)); err != nil {
		return err
	}

	for _, w := range res.Warnings {
		event := WarningEvent{
			Position:    res.Position,
			TimestampMs: ts,
			ClusterID:   w.ClusterID,
			Priority:    w.Priority,
			MeanDoppler: w.MeanDoppler,
			PointCount:  w.PointCount,
			CentroidX:   w.CentroidX,
			CentroidY:   w.CentroidY,
			CentroidZ:   w.CentroidZ,
		}
		if err := p.publish(p.WarningsSubject(), event); err != nil {
			return err
		}
	}
	return nil
}

func (p *Publisher) publish(subject string, data interface{}) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if !p.enabled || p.conn == nil {
		return nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", subject, err)
	}

	if err := p.conn.Publish(subject, jsonData); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// IsConnected reports whether a live NATS connection is up.
func (p *Publisher) IsConnected() bool {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	return p.enabled && p.conn != nil && p.conn.IsConnected()
}

// Close drains the connection. Further publishes no-op.
func (p *Publisher) Close() {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.conn != nil {
		p.conn.Close()
		p.conn = nil
		p.enabled = false
		log.Printf("NATS disconnected")
	}
}
