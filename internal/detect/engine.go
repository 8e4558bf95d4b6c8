package detect

import (
	"fmt"

	"boresight/internal/board"

	"gocv.io/x/gocv"
)

// Engine is the circle-grid detection engine. An Engine is single-threaded
// per frame: the host layer is responsible for partitioning stereo pairs
// across independent Engine instances.
type Engine struct {
	cfg Config
	pre *Precomputed

	triangleBase    int
	triangleFrozen  bool

	lastTags []RefineTag
	lastSeeds []Seed
	lastCenters []RefinedCenter
}

// NewEngine constructs an Engine for the given target spec. It panics if
// spec fails validation or names a grid shape the engine does not
// support (only 4x10 is implemented) — this is the one documented
// constructor-panic of the ambient error model, since an invalid Config
// is a programming error, not a runtime condition a caller can recover
// from.
func NewEngine(spec board.TargetSpec) *Engine {
	if err := spec.Validate(); err != nil {
		panic(fmt.Sprintf("detect: invalid target spec: %v", err))
	}
	if spec.Rows != 4 || spec.Cols != 10 {
		panic(fmt.Sprintf("detect: unsupported grid shape %dx%d, only 4x10 is implemented", spec.Rows, spec.Cols))
	}
	cfg := FromTargetSpec(spec)
	return &Engine{
		cfg: cfg,
		pre: newPrecomputed(cfg),
	}
}

// Configure updates the engine's target spec, invalidating and rebuilding
// the precomputed kernels/masks. It does not reset the cached triangle
// threshold: the threshold is a property of illumination, not of the
// target geometry.
func (e *Engine) Configure(spec board.TargetSpec) error {
	if err := spec.Validate(); err != nil {
		return wrapErr("configure", ErrInputShape, err)
	}
	if spec.Rows != 4 || spec.Cols != 10 {
		return wrapErr("configure", ErrInputShape, fmt.Errorf("unsupported grid shape %dx%d", spec.Rows, spec.Cols))
	}
	newCfg := FromTargetSpec(spec)
	if e.pre != nil {
		e.pre.Close()
	}
	e.cfg = newCfg
	e.pre = newPrecomputed(newCfg)
	return nil
}

// Detect runs the full five-stage pipeline on frame and returns the 40
// ordered circle centers, or a *DetectionError describing why it failed.
func (e *Engine) Detect(frame Frame) (OrderedCenters, error) {
	e.lastSeeds = nil
	if frame.Width != e.cfg.SensorWidth || frame.Height != e.cfg.SensorHeight {
		return nil, wrapErr("detect", ErrInputShape,
			fmt.Errorf("frame is %dx%d, configured for %dx%d", frame.Width, frame.Height, e.cfg.SensorWidth, e.cfg.SensorHeight))
	}
	if len(frame.Pix) != frame.Width*frame.Height {
		return nil, wrapErr("detect", ErrInputShape, fmt.Errorf("pixel buffer length %d does not match %dx%d", len(frame.Pix), frame.Width, frame.Height))
	}

	original := frameToMat(frame)
	defer original.Close()

	flattened := flatten(original, newFlattenParams(e.cfg))
	defer flattened.Close()

	if !e.triangleFrozen {
		hist := histogram256(flattened)
		e.triangleBase = triangleThreshold(hist)
		e.triangleFrozen = true
	}
	thresholds := deriveThresholds(e.triangleBase)

	seeds, err := e.extractSeeds(flattened, thresholds.hi)
	if err != nil {
		return nil, err
	}
	if len(seeds) < e.cfg.PointCount() {
		seeds, err = e.extractSeeds(flattened, thresholds.lo)
		if err != nil {
			return nil, err
		}
	}
	if len(seeds) < e.cfg.PointCount() {
		e.lastSeeds = seeds
		return nil, wrapErr("components", ErrTooFewCandidates, fmt.Errorf("got %d candidates, need %d", len(seeds), e.cfg.PointCount()))
	}
	e.lastSeeds = seeds

	centers := make([]RefinedCenter, len(seeds))
	for i, s := range seeds {
		centers[i] = refineSeed(original, flattened, s, e.cfg, e.pre)
	}
	e.lastCenters = centers

	var valid []RefinedCenter
	for _, c := range centers {
		if c.Tag != TagFailed {
			valid = append(valid, c)
		}
	}

	ordered, tags, err := orderCenters(valid, e.cfg)
	if err != nil {
		return nil, err
	}
	e.lastTags = tags
	return ordered, nil
}

// extractSeeds runs binarization, labeling/gating, and ROI splitting at a
// single threshold value, returning the seeds produced by non-split
// components directly and by split candidates via splitComponent.
func (e *Engine) extractSeeds(flattened gocv.Mat, t float32) ([]Seed, error) {
	mask := binarize(flattened, t)
	defer mask.Close()

	components := labelComponents(mask, newComponentGate(e.cfg))

	var seeds []Seed
	for _, c := range components {
		if !c.SplitCandidate {
			seeds = append(seeds, Seed{Center: c.Centroid, Radius: e.cfg.NominalRadius()})
			continue
		}
		cm := componentMask(mask, c)
		split := splitComponent(cm, c, e.cfg)
		cm.Close()
		if len(split) == 0 {
			return nil, wrapErr("split", ErrSplitUnderproduced, fmt.Errorf("component at (%d,%d) area %d produced no peaks", c.BBoxX, c.BBoxY, c.Area))
		}
		seeds = append(seeds, split...)
	}
	return seeds, nil
}

// LastRefineTags returns the refine tags from the most recent successful
// Detect call, one per output slot in the same canonical grid order as
// the returned OrderedCenters, for diagnostic reporting.
func (e *Engine) LastRefineTags() []RefineTag {
	out := make([]RefineTag, len(e.lastTags))
	copy(out, e.lastTags)
	return out
}

// LastSeeds returns the pre-refinement seeds from the most recent Detect
// call, for diagnostic overlay rendering.
func (e *Engine) LastSeeds() []Seed {
	out := make([]Seed, len(e.lastSeeds))
	copy(out, e.lastSeeds)
	return out
}

// frameToMat converts a Frame into an owned single-channel 8-bit gocv.Mat.
func frameToMat(f Frame) gocv.Mat {
	m := gocv.NewMatWithSize(f.Height, f.Width, gocv.MatTypeCV8UC1)
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			m.SetUCharAt(y, x, f.Pix[y*f.Width+x])
		}
	}
	return m
}
