package config

import "time"

// Video Output Constants
const (
	// VideoCodec is the video encoding codec
	VideoCodec = "libx264"

	// VideoPreset is the ffmpeg encoding speed preset
	VideoPreset = "fast"

	// VideoCRF is the constant rate factor (quality) for the encode
	VideoCRF = "23"

	// PixelFormat is forced so the output plays everywhere
	PixelFormat = "yuv420p"
)

// Pipeline Constants
const (
	// ProgressUpdateInterval is how many frames pass between progress
	// writes; coarse on purpose to bound store-update overhead
	ProgressUpdateInterval = 100

	// FramePercentCeiling is the progress percentage reserved for frame
	// rendering (0 to this); encode and upload take the rest
	FramePercentCeiling = 80

	// EncodePercent is reported while the external encoder runs
	EncodePercent = 85

	// UploadPercent is reported while the artifact is promoted to
	// remote storage
	UploadPercent = 95
)

// Upload Constants
const (
	// MaxUploadBytes caps the size of an uploaded source document
	MaxUploadBytes = 5 * 1024 * 1024
)

// Retention Constants
const (
	// JobRetention is how long a terminal job and its artifact survive
	// before the reaper removes them
	JobRetention = time.Hour

	// ReapInterval is how often the reaper sweeps for expired jobs
	ReapInterval = 5 * time.Minute
)
