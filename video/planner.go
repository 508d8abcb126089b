// Package video turns rendered frames into a single mp4: the planner emits
// the concat-demuxer manifest the encoder consumes, and the encoder shells
// out to ffmpeg.
package video

import (
	"fmt"
	"os"
)

// PlannedFrame pairs a rendered frame file with its display duration in
// seconds, exactly as computed by the timing model.
type PlannedFrame struct {
	Path     string
	Duration float64
}

// Sequence is the ordered encode plan for one job. Frames are appended in
// word-group order and never reordered.
type Sequence struct {
	frames []PlannedFrame
}

func (s *Sequence) Append(path string, duration float64) {
	s.frames = append(s.frames, PlannedFrame{Path: path, Duration: duration})
}

func (s *Sequence) Frames() []PlannedFrame { return s.frames }

func (s *Sequence) Len() int { return len(s.frames) }

// TotalDuration is the intended wall-clock runtime of the output video.
func (s *Sequence) TotalDuration() float64 {
	var total float64
	for _, f := range s.frames {
		total += f.Duration
	}
	return total
}

// WriteConcatFile writes the ffmpeg concat-demuxer manifest. The final
// frame is repeated without a duration directive on purpose: the concat
// demuxer truncates the last listed duration to zero otherwise, which
// would cut the last word short.
func (s *Sequence) WriteConcatFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create concat file: %w", err)
	}
	defer file.Close()

	for _, f := range s.frames {
		fmt.Fprintf(file, "file '%s'\n", f.Path)
		fmt.Fprintf(file, "duration %f\n", f.Duration)
	}
	if len(s.frames) > 0 {
		fmt.Fprintf(file, "file '%s'\n", s.frames[len(s.frames)-1].Path)
	}

	return nil
}
