// Package board provides the calibration target specification: the physical
// and pixel-space description of the asymmetric circle grid the detection
// engine looks for.
package board

import (
	"encoding/json"
	"fmt"
	"os"
)

// TargetSpec describes the physical and pixel-space layout of the
// asymmetric circle-grid calibration target observed by the stereo rig.
type TargetSpec struct {
	Name string `json:"name"`

	// Rows and Cols give the grid shape. The engine only supports 4x10;
	// other shapes are accepted by Validate but rejected by
	// internal/detect.NewEngine.
	Rows int `json:"rows"`
	Cols int `json:"cols"`

	// DiameterMinPx/DiameterMaxPx bound the expected circle diameter in
	// pixels at the configured sensor resolution.
	DiameterMinPx float64 `json:"diameter_min_px"`
	DiameterMaxPx float64 `json:"diameter_max_px"`

	// SensorWidth/SensorHeight are the expected frame dimensions; Detect
	// rejects frames whose dimensions don't match (input-shape error).
	SensorWidth  int `json:"sensor_width"`
	SensorHeight int `json:"sensor_height"`

	// CenterDistanceMM is the physical diagonal spacing between adjacent
	// circle centers, used only by the out-of-scope calibration-math
	// collaborator; carried here so a single file round-trips the whole
	// target description.
	CenterDistanceMM float64 `json:"center_distance_mm,omitempty"`
}

// NominalDiameterPx returns the mid-range nominal circle diameter, d_nom.
func (t TargetSpec) NominalDiameterPx() float64 {
	return (t.DiameterMinPx + t.DiameterMaxPx) / 2
}

// NominalRadiusPx returns r0, the nominal circle radius.
func (t TargetSpec) NominalRadiusPx() float64 {
	return t.NominalDiameterPx() / 2
}

// PointCount returns Rows*Cols, the number of circles the grid contains.
func (t TargetSpec) PointCount() int {
	return t.Rows * t.Cols
}

// Validate checks the spec for internal consistency.
func (t TargetSpec) Validate() error {
	if t.Rows <= 0 || t.Cols <= 0 {
		return fmt.Errorf("board: grid dimensions must be positive, got %dx%d", t.Rows, t.Cols)
	}
	if t.DiameterMinPx <= 0 || t.DiameterMaxPx <= 0 {
		return fmt.Errorf("board: circle diameters must be positive")
	}
	if t.DiameterMinPx > t.DiameterMaxPx {
		return fmt.Errorf("board: diameter_min_px (%.1f) exceeds diameter_max_px (%.1f)", t.DiameterMinPx, t.DiameterMaxPx)
	}
	if t.SensorWidth <= 0 || t.SensorHeight <= 0 {
		return fmt.Errorf("board: sensor dimensions must be positive")
	}
	return nil
}

// DefaultSpec returns the nominal 4x10 asymmetric grid target: a
// 2448x2048 sensor with circles 67-90px in diameter.
func DefaultSpec() TargetSpec {
	return TargetSpec{
		Name:          "4x10-asymmetric-67-90",
		Rows:          4,
		Cols:          10,
		DiameterMinPx: 67,
		DiameterMaxPx: 90,
		SensorWidth:   2448,
		SensorHeight:  2048,
	}
}

// SaveToFile saves the spec to a JSON file.
func (t TargetSpec) SaveToFile(path string) error {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadFromFile loads a target spec from a JSON file.
func LoadFromFile(path string) (TargetSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return TargetSpec{}, err
	}

	var spec TargetSpec
	if err := json.Unmarshal(data, &spec); err != nil {
		return TargetSpec{}, err
	}

	if err := spec.Validate(); err != nil {
		return TargetSpec{}, fmt.Errorf("invalid target spec: %w", err)
	}

	return spec, nil
}
