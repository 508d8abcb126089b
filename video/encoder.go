package video

import (
	"bytes"
	"context"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/jleboube/RSVP-Speed-Reading/config"
	"github.com/jleboube/RSVP-Speed-Reading/types"
)

// FFmpegEncoder drives ffmpeg's concat demuxer over the planner's manifest.
// The contract: each listed frame is shown for its duration directive at a
// fixed pixel format, and a non-zero exit is fatal for the job.
type FFmpegEncoder struct{}

func NewFFmpegEncoder() *FFmpegEncoder { return &FFmpegEncoder{} }

// Encode produces outputPath from the concat manifest. The worker blocks
// for the encoder's full runtime; cancelling ctx kills the ffmpeg process
// best-effort. Failures carry ffmpeg's diagnostic output as an EncodeError.
func (e *FFmpegEncoder) Encode(ctx context.Context, concatPath, outputPath string) error {
	var stderr bytes.Buffer

	cmd := ffmpeg.Input(concatPath, ffmpeg.KwArgs{"f": "concat", "safe": "0"}).
		Output(outputPath, ffmpeg.KwArgs{
			"vf":     "format=" + config.PixelFormat,
			"c:v":    config.VideoCodec,
			"preset": config.VideoPreset,
			"crf":    config.VideoCRF,
		}).
		OverWriteOutput().
		WithErrorOutput(&stderr).
		Compile()

	if err := cmd.Start(); err != nil {
		return &types.EncodeError{Output: stderr.String(), Err: err}
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return ctx.Err()
	case err := <-done:
		if err != nil {
			return &types.EncodeError{Output: tail(stderr.String(), 2000), Err: err}
		}
		return nil
	}
}

// tail keeps the last n bytes of ffmpeg's output; the useful diagnostic is
// always at the end.
func tail(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
