// Command circlegrid-detect is the diagnostic entry point for the
// circle-grid detection engine: it loads a frame, runs detection, prints
// the ordered centers, and optionally writes a debug overlay image.
package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"boresight/internal/board"
	"boresight/internal/detect"

	"gocv.io/x/gocv"

	_ "golang.org/x/image/tiff"
)

func main() {
	var specPath string
	var debugDir string
	var quiet bool

	flag.StringVar(&specPath, "spec", "", "path to a board.TargetSpec JSON file (default: built-in 4x10 spec)")
	flag.StringVar(&debugDir, "debug-dir", "", "directory to write cc_detection_<tag>_count<N>.png debug overlays")
	flag.BoolVar(&quiet, "quiet", false, "suppress per-center output")
	flag.Parse()

	files := flag.Args()
	if len(files) == 0 {
		fmt.Fprintf(os.Stderr, "Usage: %s [options] image_files...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	spec := board.DefaultSpec()
	if specPath != "" {
		loaded, err := board.LoadFromFile(specPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "ERROR: failed to load spec '%s': %v\n", specPath, err)
			os.Exit(1)
		}
		spec = loaded
	}

	engine := detect.NewEngine(spec)

	total := len(files)
	failures := 0
	for idx, filename := range files {
		func() {
			defer func() {
				if r := recover(); r != nil {
					fmt.Fprintf(os.Stderr, "[%d/%d] WARNING: skipping '%s': %v\n", idx+1, total, filename, r)
					failures++
				}
			}()
			failures += processFrame(engine, filename, idx, total, debugDir, quiet)
		}()
	}

	if failures > 0 {
		fmt.Fprintf(os.Stderr, "%d/%d frames failed detection\n", failures, total)
		os.Exit(1)
	}
}

func processFrame(engine *detect.Engine, filename string, idx, total int, debugDir string, quiet bool) int {
	mat := gocv.IMRead(filename, gocv.IMReadGrayScale)
	if mat.Empty() {
		fmt.Fprintf(os.Stderr, "[%d/%d] ERROR: failed to read '%s'\n", idx+1, total, filename)
		return 1
	}
	defer mat.Close()

	frame := detect.Frame{
		Width:  mat.Cols(),
		Height: mat.Rows(),
		Pix:    make([]uint8, mat.Cols()*mat.Rows()),
	}
	for y := 0; y < frame.Height; y++ {
		for x := 0; x < frame.Width; x++ {
			frame.Pix[y*frame.Width+x] = mat.GetUCharAt(y, x)
		}
	}

	ordered, err := engine.Detect(frame)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[%d/%d] %s: detection failed: %v\n", idx+1, total, filename, err)
		if debugDir != "" {
			writeDebugOverlay(idx, total, debugDir, filename, frame, engine, ordered, stageTag(err))
		}
		return 1
	}

	fmt.Printf("[%d/%d] %s: detected %d centers\n", idx+1, total, filename, len(ordered))
	if !quiet {
		for i, c := range ordered {
			fmt.Printf("  %2d: (%.2f, %.2f)\n", i, c.X, c.Y)
		}
	}

	if debugDir != "" {
		writeDebugOverlay(idx, total, debugDir, filename, frame, engine, ordered, "ok")
	}

	return 0
}

// stageTag extracts the failing stage name from a *detect.DetectionError for
// use as the debug filename's <tag>, falling back to "error" for any error
// that isn't a *detect.DetectionError.
func stageTag(err error) string {
	var detErr *detect.DetectionError
	if errors.As(err, &detErr) {
		return detErr.Stage
	}
	return "error"
}

// writeDebugOverlay renders and writes a cc_detection_<tag>_count<N>.png
// overlay for the given frame, using whatever seeds/centers the engine
// produced before succeeding or failing.
func writeDebugOverlay(idx, total int, debugDir, filename string, frame detect.Frame, engine *detect.Engine, ordered detect.OrderedCenters, tag string) {
	overlay := detect.DebugRender(frame, engine.LastSeeds(), ordered)
	defer overlay.Close()
	outPath := fmt.Sprintf("%s/cc_detection_%s_count%d.png", debugDir, tag, len(ordered))
	if ok := gocv.IMWrite(outPath, overlay); !ok {
		fmt.Fprintf(os.Stderr, "[%d/%d] WARNING: failed to write debug overlay '%s'\n", idx+1, total, outPath)
	}
}
