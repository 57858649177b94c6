package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/surgisim/fusion/internal/telemetry"
)

// SessionExport is the root JSON structure of an exported session.
type SessionExport struct {
	SessionName  string           `json:"sessionName"`
	StartTime    time.Time        `json:"startTime"`
	EndFrame     uint64           `json:"endFrame"`
	Dropped      uint64           `json:"dropped"`
	Frames       []FrameJSON      `json:"frames"`
	Trajectories []TrajectoryJSON `json:"trajectories"`
}

type FrameJSON struct {
	Frame uint64          `json:"frame"`
	Time  time.Time       `json:"time"`
	Data  telemetry.Frame `json:"data"`
}

// TrajectoryJSON summarizes one instrument's path.
type TrajectoryJSON struct {
	Name   string  `json:"name"`
	Points int     `json:"points"`
	Length float64 `json:"length"`
	WKT    string  `json:"wkt"`
}

// Export writes the session to OutputDir and returns the file path.
func (b *Backend) Export() (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	export := b.buildExport()

	name := strings.ReplaceAll(b.cfg.SessionName, " ", "_")
	name = strings.ReplaceAll(name, ":", "_")
	timestamp := b.start.Format("20060102_150405")

	filename := fmt.Sprintf("%s_%s.json", name, timestamp)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return "", err
	}

	b.lastExportPath = outputPath
	return outputPath, nil
}

func (b *Backend) buildExport() SessionExport {
	export := SessionExport{
		SessionName:  b.cfg.SessionName,
		StartTime:    b.start.UTC(),
		Dropped:      b.dropped,
		Frames:       make([]FrameJSON, 0, len(b.samples)),
		Trajectories: make([]TrajectoryJSON, 0, len(b.paths.Paths())),
	}

	for _, s := range b.samples {
		export.Frames = append(export.Frames, FrameJSON{Frame: s.Frame, Time: s.Time.UTC(), Data: s.Data})
		export.EndFrame = max(export.EndFrame, s.Frame)
	}

	for _, p := range b.paths.Paths() {
		export.Trajectories = append(export.Trajectories, TrajectoryJSON{
			Name:   p.Name,
			Points: p.Len(),
			Length: p.Length(),
			WKT:    p.WKT(),
		})
	}

	return export
}

func writeJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data SessionExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
