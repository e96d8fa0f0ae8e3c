package ingest

import (
	"fmt"
	"io"
	"time"
)

// Warning kinds
const (
	WarnMissingPositionFile = "missing_position_file"
	WarnInvalidPositionFile = "invalid_position_file"
	WarnMissingRawImages    = "missing_raw_images"
	WarnMissingJPEGImages   = "missing_jpeg_images"
	WarnUnreadableDirectory = "unreadable_directory"
)

// Warning is a non-fatal condition met during a run.
type Warning struct {
	Kind     string `json:"kind"`
	Path     string `json:"path"`
	FlightID int64  `json:"flight_id,omitempty"`
	Err      error  `json:"-"`
}

// Report summarises one ingestion run.
type Report struct {
	RunID     string        `json:"run_id"`
	Root      string        `json:"root"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`

	CameraFolders  int `json:"camera_folders"`
	FlightsCreated int `json:"flights_created"`
	FlightsReused  int `json:"flights_reused"`
	CamerasCreated int `json:"cameras_created"`
	CamerasReused  int `json:"cameras_reused"`
	RawFiles       int `json:"raw_files"`
	JPEGFiles      int `json:"jpeg_files"`

	PositionFiles      int `json:"position_files"`
	PositionRows       int `json:"position_rows"`
	PositionsApplied   int `json:"positions_applied"`
	PositionsUnmatched int `json:"positions_unmatched"`
	PositionsUnaligned int `json:"positions_unaligned"` // rows with empty estimates, left untouched

	Warnings []Warning `json:"warnings"`
}

func (r *Report) warn(kind, path string, flightID int64, err error) {
	r.Warnings = append(r.Warnings, Warning{Kind: kind, Path: path, FlightID: flightID, Err: err})
}

// WarningCount returns the number of warnings of the given kind.
func (r *Report) WarningCount(kind string) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Print writes a human readable summary.
func (r *Report) Print(w io.Writer) {
	fmt.Fprintf(w, "Ingestion %s of %s finished in %s\n", r.RunID, r.Root, r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(w, "  camera folders:  %d\n", r.CameraFolders)
	fmt.Fprintf(w, "  flights:         %d new, %d existing\n", r.FlightsCreated, r.FlightsReused)
	fmt.Fprintf(w, "  cameras:         %d new, %d existing\n", r.CamerasCreated, r.CamerasReused)
	fmt.Fprintf(w, "  files:           %d raw, %d jpeg\n", r.RawFiles, r.JPEGFiles)
	fmt.Fprintf(w, "  position files:  %d (%d rows, %d applied, %d unmatched, %d unaligned)\n",
		r.PositionFiles, r.PositionRows, r.PositionsApplied, r.PositionsUnmatched, r.PositionsUnaligned)
	if len(r.Warnings) == 0 {
		return
	}
	fmt.Fprintf(w, "  warnings:        %d\n", len(r.Warnings))
	for _, warning := range r.Warnings {
		fmt.Fprintf(w, "    %-22s %s\n", warning.Kind, warning.Path)
	}
}
