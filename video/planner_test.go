package video

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jleboube/RSVP-Speed-Reading/rsvp"
	"github.com/jleboube/RSVP-Speed-Reading/types"
)

func TestSequenceTotalDuration(t *testing.T) {
	cfg := types.VideoConfig{WPM: 300, PauseOnPunctuation: true, WordGrouping: 1}
	groups, err := rsvp.Segment("Speed reading is great.", cfg)
	if err != nil {
		t.Fatalf("Segment error: %v", err)
	}

	var seq Sequence
	var want float64
	for i, g := range groups {
		seq.Append(fmt.Sprintf("/frames/frame_%06d.png", i), g.Duration)
		want += g.Duration
	}

	if seq.Len() != len(groups) {
		t.Fatalf("planned %d frames for %d groups", seq.Len(), len(groups))
	}
	if got := seq.TotalDuration(); math.Abs(got-want) > 1e-9 {
		t.Fatalf("TotalDuration = %v; want %v", got, want)
	}
}

func TestWriteConcatFileRepeatsFinalFrame(t *testing.T) {
	var seq Sequence
	seq.Append("/frames/frame_000000.png", 0.2)
	seq.Append("/frames/frame_000001.png", 0.5)

	path := filepath.Join(t.TempDir(), "concat.txt")
	if err := seq.WriteConcatFile(path); err != nil {
		t.Fatalf("WriteConcatFile error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read concat file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")

	want := []string{
		"file '/frames/frame_000000.png'",
		"duration 0.200000",
		"file '/frames/frame_000001.png'",
		"duration 0.500000",
		// Deliberate trailing repeat: without it the concat demuxer
		// shows the last frame for zero time.
		"file '/frames/frame_000001.png'",
	}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines; want %d\n%s", len(lines), len(want), string(data))
	}
	for i, l := range lines {
		if l != want[i] {
			t.Fatalf("line %d = %q; want %q", i, l, want[i])
		}
	}
}

func TestWriteConcatFileEmpty(t *testing.T) {
	var seq Sequence
	path := filepath.Join(t.TempDir(), "concat.txt")
	if err := seq.WriteConcatFile(path); err != nil {
		t.Fatalf("WriteConcatFile error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read concat file: %v", err)
	}
	if len(data) != 0 {
		t.Fatalf("empty sequence wrote %q", string(data))
	}
}
