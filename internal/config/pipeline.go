// Package config loads and validates the externally supplied pipeline
// tuning. All knobs are optional in the JSON file; absent fields fall back
// to defaults chosen for the IWR6843 mounted forward-facing at bumper
// height. Pointer fields distinguish "not set" from zero values.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultConfigPath is the canonical pipeline defaults file, the single
// source of truth for all default tuning values.
const DefaultConfigPath = "config/pipeline.defaults.json"

// Defaults applied when the corresponding field is absent.
const (
	defaultHistoryLength       = 9
	defaultSNRMin              = 12.0
	defaultZMin                = 0.3
	defaultZMax                = 100.0
	defaultPhiMin              = -85.0
	defaultPhiMax              = 85.0
	defaultProcessVariance     = 0.01
	defaultMeasurementVariance = 0.1
	defaultVeTolerance         = 0.5
	defaultClusterEps          = 1.0
	defaultClusterMinSamples   = 2
	defaultRecluster           = false
	defaultReclusterEps        = 0.4
	defaultReclusterMinSamples = 2
	defaultSubmapFrames        = 10

	// maxConfigFileSize caps config reads; a tuning file has no business
	// being larger than this.
	maxConfigFileSize = 1 << 20
)

var (
	defaultZoneCenter      = [3]float64{0, 2, 0}
	defaultZoneHalfExtents = [3]float64{1, 4.5, 1}
)

// PipelineConfig is the JSON shape of the tuning file. Every field is
// optional; use the Get accessors to read effective values.
type PipelineConfig struct {
	HistoryLength       *int        `json:"history_length,omitempty"`
	SNRMin              *float64    `json:"snr_min,omitempty"`
	ZMin                *float64    `json:"z_min,omitempty"`
	ZMax                *float64    `json:"z_max,omitempty"`
	PhiMin              *float64    `json:"phi_min,omitempty"`
	PhiMax              *float64    `json:"phi_max,omitempty"`
	ProcessVariance     *float64    `json:"process_variance,omitempty"`
	MeasurementVariance *float64    `json:"measurement_variance,omitempty"`
	VeTolerance         *float64    `json:"ve_tolerance,omitempty"`
	ClusterEps          *float64    `json:"cluster_eps,omitempty"`
	ClusterMinSamples   *int        `json:"cluster_min_samples,omitempty"`
	Recluster           *bool       `json:"recluster,omitempty"`
	ReclusterEps        *float64    `json:"recluster_eps,omitempty"`
	ReclusterMinSamples *int        `json:"recluster_min_samples,omitempty"`
	ZoneCenter          *[3]float64 `json:"zone_center,omitempty"`
	ZoneHalfExtents     *[3]float64 `json:"zone_half_extents,omitempty"`
	SubmapFrames        *int        `json:"submap_frames,omitempty"`
}

// Helper functions to create pointers
func ptrFloat64(v float64) *float64 { return &v }
func ptrBool(v bool) *bool          { return &v }
func ptrInt(v int) *int             { return &v }
func ptrVec3(v [3]float64) *[3]float64 { return &v }

// EmptyPipelineConfig returns a config with no fields set; every accessor
// returns its default.
func EmptyPipelineConfig() *PipelineConfig {
	return &PipelineConfig{}
}

// DefaultPipelineConfig returns a config with every field explicitly set to
// its default. Serializing it reproduces the defaults file.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		HistoryLength:       ptrInt(defaultHistoryLength),
		SNRMin:              ptrFloat64(defaultSNRMin),
		ZMin:                ptrFloat64(defaultZMin),
		ZMax:                ptrFloat64(defaultZMax),
		PhiMin:              ptrFloat64(defaultPhiMin),
		PhiMax:              ptrFloat64(defaultPhiMax),
		ProcessVariance:     ptrFloat64(defaultProcessVariance),
		MeasurementVariance: ptrFloat64(defaultMeasurementVariance),
		VeTolerance:         ptrFloat64(defaultVeTolerance),
		ClusterEps:          ptrFloat64(defaultClusterEps),
		ClusterMinSamples:   ptrInt(defaultClusterMinSamples),
		Recluster:           ptrBool(defaultRecluster),
		ReclusterEps:        ptrFloat64(defaultReclusterEps),
		ReclusterMinSamples: ptrInt(defaultReclusterMinSamples),
		ZoneCenter:          ptrVec3(defaultZoneCenter),
		ZoneHalfExtents:     ptrVec3(defaultZoneHalfExtents),
		SubmapFrames:        ptrInt(defaultSubmapFrames),
	}
}

// MustLoadDefaultConfig loads the canonical defaults from DefaultConfigPath,
// searching upward from the current directory. Panics if the file cannot be
// loaded; intended for test setup.
func MustLoadDefaultConfig() *PipelineConfig {
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from internal/mmwave/pipeline/
	}
	for _, path := range candidates {
		if cfg, err := LoadPipelineConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// LoadPipelineConfig reads and validates a JSON tuning file.
func LoadPipelineConfig(path string) (*PipelineConfig, error) {
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return nil, fmt.Errorf("config file must be .json, got %q", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %q too large: %d bytes", path, info.Size())
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	var cfg PipelineConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %q: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks every field that is set. Absent fields are fine.
func (c *PipelineConfig) Validate() error {
	if c.HistoryLength != nil && *c.HistoryLength < 0 {
		return fmt.Errorf("history_length must be >= 0, got %d", *c.HistoryLength)
	}
	if c.ZMin != nil && c.ZMax != nil && *c.ZMin > *c.ZMax {
		return fmt.Errorf("z_min %v exceeds z_max %v", *c.ZMin, *c.ZMax)
	}
	if c.PhiMin != nil && c.PhiMax != nil && *c.PhiMin > *c.PhiMax {
		return fmt.Errorf("phi_min %v exceeds phi_max %v", *c.PhiMin, *c.PhiMax)
	}
	if c.ProcessVariance != nil && *c.ProcessVariance <= 0 {
		return fmt.Errorf("process_variance must be > 0, got %v", *c.ProcessVariance)
	}
	if c.MeasurementVariance != nil && *c.MeasurementVariance <= 0 {
		return fmt.Errorf("measurement_variance must be > 0, got %v", *c.MeasurementVariance)
	}
	if c.VeTolerance != nil && *c.VeTolerance < 0 {
		return fmt.Errorf("ve_tolerance must be >= 0, got %v", *c.VeTolerance)
	}
	if c.ClusterEps != nil && *c.ClusterEps <= 0 {
		return fmt.Errorf("cluster_eps must be > 0, got %v", *c.ClusterEps)
	}
	if c.ClusterMinSamples != nil && *c.ClusterMinSamples < 1 {
		return fmt.Errorf("cluster_min_samples must be >= 1, got %d", *c.ClusterMinSamples)
	}
	if c.ReclusterEps != nil && *c.ReclusterEps <= 0 {
		return fmt.Errorf("recluster_eps must be > 0, got %v", *c.ReclusterEps)
	}
	if c.ReclusterMinSamples != nil && *c.ReclusterMinSamples < 1 {
		return fmt.Errorf("recluster_min_samples must be >= 1, got %d", *c.ReclusterMinSamples)
	}
	if c.ZoneHalfExtents != nil {
		for i, v := range *c.ZoneHalfExtents {
			if v < 0 {
				return fmt.Errorf("zone_half_extents[%d] must be >= 0, got %v", i, v)
			}
		}
	}
	if c.SubmapFrames != nil && *c.SubmapFrames < 1 {
		return fmt.Errorf("submap_frames must be >= 1, got %d", *c.SubmapFrames)
	}
	return nil
}

func (c *PipelineConfig) GetHistoryLength() int {
	if c.HistoryLength != nil {
		return *c.HistoryLength
	}
	return defaultHistoryLength
}

func (c *PipelineConfig) GetSNRMin() float64 {
	if c.SNRMin != nil {
		return *c.SNRMin
	}
	return defaultSNRMin
}

func (c *PipelineConfig) GetZMin() float64 {
	if c.ZMin != nil {
		return *c.ZMin
	}
	return defaultZMin
}

func (c *PipelineConfig) GetZMax() float64 {
	if c.ZMax != nil {
		return *c.ZMax
	}
	return defaultZMax
}

func (c *PipelineConfig) GetPhiMin() float64 {
	if c.PhiMin != nil {
		return *c.PhiMin
	}
	return defaultPhiMin
}

func (c *PipelineConfig) GetPhiMax() float64 {
	if c.PhiMax != nil {
		return *c.PhiMax
	}
	return defaultPhiMax
}

func (c *PipelineConfig) GetProcessVariance() float64 {
	if c.ProcessVariance != nil {
		return *c.ProcessVariance
	}
	return defaultProcessVariance
}

func (c *PipelineConfig) GetMeasurementVariance() float64 {
	if c.MeasurementVariance != nil {
		return *c.MeasurementVariance
	}
	return defaultMeasurementVariance
}

func (c *PipelineConfig) GetVeTolerance() float64 {
	if c.VeTolerance != nil {
		return *c.VeTolerance
	}
	return defaultVeTolerance
}

func (c *PipelineConfig) GetClusterEps() float64 {
	if c.ClusterEps != nil {
		return *c.ClusterEps
	}
	return defaultClusterEps
}

func (c *PipelineConfig) GetClusterMinSamples() int {
	if c.ClusterMinSamples != nil {
		return *c.ClusterMinSamples
	}
	return defaultClusterMinSamples
}

func (c *PipelineConfig) GetRecluster() bool {
	if c.Recluster != nil {
		return *c.Recluster
	}
	return defaultRecluster
}

func (c *PipelineConfig) GetReclusterEps() float64 {
	if c.ReclusterEps != nil {
		return *c.ReclusterEps
	}
	return defaultReclusterEps
}

func (c *PipelineConfig) GetReclusterMinSamples() int {
	if c.ReclusterMinSamples != nil {
		return *c.ReclusterMinSamples
	}
	return defaultReclusterMinSamples
}

func (c *PipelineConfig) GetZoneCenter() [3]float64 {
	if c.ZoneCenter != nil {
		return *c.ZoneCenter
	}
	return defaultZoneCenter
}

func (c *PipelineConfig) GetZoneHalfExtents() [3]float64 {
	if c.ZoneHalfExtents != nil {
		return *c.ZoneHalfExtents
	}
	return defaultZoneHalfExtents
}

func (c *PipelineConfig) GetSubmapFrames() int {
	if c.SubmapFrames != nil {
		return *c.SubmapFrames
	}
	return defaultSubmapFrames
}

// Effective is the fully resolved tuning with defaults applied, the shape
// persisted with a run and returned by the config API.
type Effective struct {
	HistoryLength       int        `json:"history_length"`
	SNRMin              float64    `json:"snr_min"`
	ZMin                float64    `json:"z_min"`
	ZMax                float64    `json:"z_max"`
	PhiMin              float64    `json:"phi_min"`
	PhiMax              float64    `json:"phi_max"`
	ProcessVariance     float64    `json:"process_variance"`
	MeasurementVariance float64    `json:"measurement_variance"`
	VeTolerance         float64    `json:"ve_tolerance"`
	ClusterEps          float64    `json:"cluster_eps"`
	ClusterMinSamples   int        `json:"cluster_min_samples"`
	Recluster           bool       `json:"recluster"`
	ReclusterEps        float64    `json:"recluster_eps"`
	ReclusterMinSamples int        `json:"recluster_min_samples"`
	ZoneCenter          [3]float64 `json:"zone_center"`
	ZoneHalfExtents     [3]float64 `json:"zone_half_extents"`
	SubmapFrames        int        `json:"submap_frames"`
}

// Effective resolves every field through its accessor.
func (c *PipelineConfig) Effective() Effective {
	return Effective{
		HistoryLength:       c.GetHistoryLength(),
		SNRMin:              c.GetSNRMin(),
		ZMin:                c.GetZMin(),
		ZMax:                c.GetZMax(),
		PhiMin:              c.GetPhiMin(),
		PhiMax:              c.GetPhiMax(),
		ProcessVariance:     c.GetProcessVariance(),
		MeasurementVariance: c.GetMeasurementVariance(),
		VeTolerance:         c.GetVeTolerance(),
		ClusterEps:          c.GetClusterEps(),
		ClusterMinSamples:   c.GetClusterMinSamples(),
		Recluster:           c.GetRecluster(),
		ReclusterEps:        c.GetReclusterEps(),
		ReclusterMinSamples: c.GetReclusterMinSamples(),
		ZoneCenter:          c.GetZoneCenter(),
		ZoneHalfExtents:     c.GetZoneHalfExtents(),
		SubmapFrames:        c.GetSubmapFrames(),
	}
}
