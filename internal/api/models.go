package api

import (
	"github.com/corvid-data/proximity.report/internal/mmwave"
	"github.com/corvid-data/proximity.report/internal/mmwave/pipeline"
	"github.com/corvid-data/proximity.report/internal/units"
)

// FramePayload is the wire form of one frame's pipeline output. RawSpeed and
// SmoothSpeed are converted to Units; dopplers stay in m/s like the sensor
// reports them.
type FramePayload struct {
	Position    int              `json:"position"`
	FrameNumber uint32           `json:"frame_number"`
	Replay      bool             `json:"replay,omitempty"`
	Units       string           `json:"units"`
	RawSpeed    float64          `json:"raw_speed"`
	SmoothSpeed float64          `json:"smooth_speed"`
	Points      []PointPayload   `json:"points"`
	Clusters    []ClusterPayload `json:"clusters"`
	Warnings    []WarningPayload `json:"warnings"`
}

// PointPayload is one filtered point. Dynamic marks points that survived the
// ego-motion consistency filter.
type PointPayload struct {
	X       float64 `json:"x"`
	Y       float64 `json:"y"`
	Z       float64 `json:"z"`
	Doppler float64 `json:"doppler"`
	SNR     float64 `json:"snr"`
	Dynamic bool    `json:"dynamic,omitempty"`
}

type ClusterPayload struct {
	ClusterID   int     `json:"cluster_id"`
	CentroidX   float64 `json:"centroid_x"`
	CentroidY   float64 `json:"centroid_y"`
	CentroidZ   float64 `json:"centroid_z"`
	MeanDoppler float64 `json:"mean_doppler"`
	Priority    int     `json:"priority"`
	PointCount  int     `json:"point_count"`
}

type WarningPayload struct {
	ClusterID   int     `json:"cluster_id"`
	Priority    int     `json:"priority"`
	MeanDoppler float64 `json:"mean_doppler"`
	PointCount  int     `json:"point_count"`
	CentroidX   float64 `json:"centroid_x"`
	CentroidY   float64 `json:"centroid_y"`
	CentroidZ   float64 `json:"centroid_z"`
}

// StatsPayload reports run-loop counters plus connected live viewers.
type StatsPayload struct {
	FramesProcessed int64  `json:"frames_processed"`
	DecodeErrors    int64  `json:"decode_errors"`
	SinkErrors      int64  `json:"sink_errors"`
	Position        int    `json:"position"`
	State           string `json:"state"`
	LiveViewers     int    `json:"live_viewers"`
}

// SpeedsPayload carries the in-memory speed series of the current run.
type SpeedsPayload struct {
	Units  string    `json:"units"`
	Raw    []float64 `json:"raw"`
	Smooth []float64 `json:"smooth"`
}

func newFramePayload(res *pipeline.FrameResult, targetUnits string) FramePayload {
	payload := FramePayload{
		Position:    res.Position,
		FrameNumber: res.Header.FrameNumber,
		Replay:      res.Replay,
		Units:       targetUnits,
		RawSpeed:    units.ConvertSpeed(res.RawSpeed, targetUnits),
		SmoothSpeed: units.ConvertSpeed(res.SmoothSpeed, targetUnits),
		Points:      newPointPayloads(res.Filtered, res.Dynamic),
		Clusters:    make([]ClusterPayload, len(res.Clusters)),
		Warnings:    make([]WarningPayload, len(res.Warnings)),
	}
	for i, c := range res.Clusters {
		payload.Clusters[i] = ClusterPayload{
			ClusterID:   c.ID,
			CentroidX:   c.CentroidX,
			CentroidY:   c.CentroidY,
			CentroidZ:   c.CentroidZ,
			MeanDoppler: c.MeanDoppler,
			Priority:    c.Priority,
			PointCount:  len(c.Points),
		}
	}
	for i, wn := range res.Warnings {
		payload.Warnings[i] = WarningPayload{
			ClusterID:   wn.ClusterID,
			Priority:    wn.Priority,
			MeanDoppler: wn.MeanDoppler,
			PointCount:  wn.PointCount,
			CentroidX:   wn.CentroidX,
			CentroidY:   wn.CentroidY,
			CentroidZ:   wn.CentroidZ,
		}
	}
	return payload
}

// newPointPayloads renders the filtered cloud, marking the points that also
// appear in the dynamic cloud. The dynamic cloud is an order-preserving
// subset of the filtered one, so a single cursor suffices. Matching is on
// position and Doppler; the ve stage rewrites Ve on its own copy.
func newPointPayloads(filtered, dynamic mmwave.PointCloud) []PointPayload {
	points := make([]PointPayload, len(filtered))
	di := 0
	for i, p := range filtered {
		points[i] = PointPayload{
			X:       p.X,
			Y:       p.Y,
			Z:       p.Z,
			Doppler: p.Doppler,
			SNR:     p.SNR,
		}
		if di < len(dynamic) && samePoint(dynamic[di], p) {
			points[i].Dynamic = true
			di++
		}
	}
	return points
}

func samePoint(a, b mmwave.Point) bool {
	return a.X == b.X && a.Y == b.Y && a.Z == b.Z && a.Doppler == b.Doppler
}

func convertSpeeds(speeds []float64, targetUnits string) []float64 {
	converted := make([]float64, len(speeds))
	for i, v := range speeds {
		converted[i] = units.ConvertSpeed(v, targetUnits)
	}
	return converted
}
