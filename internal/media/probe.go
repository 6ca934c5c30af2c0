package media

import (
	"context"
	"encoding/json"
	"strconv"
)

type probeResult struct {
	Format  probeFormat   `json:"format"`
	Streams []ProbeStream `json:"streams"`
}

type probeFormat struct {
	Filename string `json:"filename"`
	Duration string `json:"duration"`
	Size     string `json:"size"`
	BitRate  string `json:"bit_rate"`
}

// ProbeStream is one demuxed stream as reported by ffprobe.
type ProbeStream struct {
	Index      int               `json:"index"`
	CodecName  string            `json:"codec_name"`
	CodecType  string            `json:"codec_type"` // video, audio, subtitle
	SampleRate string            `json:"sample_rate,omitempty"`
	Channels   int               `json:"channels,omitempty"`
	Width      int               `json:"width,omitempty"`
	Height     int               `json:"height,omitempty"`
	Tags       map[string]string `json:"tags,omitempty"`
}

// MediaInfo summarizes a probed media file.
type MediaInfo struct {
	Duration   float64       `json:"duration"` // seconds
	SizeBytes  int64         `json:"size_bytes"`
	AudioCodec string        `json:"audio_codec"`
	VideoCodec string        `json:"video_codec"`
	HasAudio   bool          `json:"has_audio"`
	HasVideo   bool          `json:"has_video"`
	Streams    []ProbeStream `json:"streams"`
}

// Probe runs ffprobe on the file and summarizes its streams.
func (x *Extractor) Probe(ctx context.Context, path string) (*MediaInfo, error) {
	result, err := x.runner.Run(ctx, x.ffprobePath,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, &ExtractionError{Path: path, Message: "ffprobe failed", Stderr: result.Stderr, Err: err}
	}

	var probed probeResult
	if err := json.Unmarshal([]byte(result.Stdout), &probed); err != nil {
		return nil, &ExtractionError{Path: path, Message: "unreadable ffprobe output", Err: err}
	}

	info := &MediaInfo{Streams: probed.Streams}
	info.Duration, _ = strconv.ParseFloat(probed.Format.Duration, 64)
	info.SizeBytes, _ = strconv.ParseInt(probed.Format.Size, 10, 64)

	for _, s := range probed.Streams {
		switch s.CodecType {
		case "audio":
			info.HasAudio = true
			if info.AudioCodec == "" {
				info.AudioCodec = s.CodecName
			}
		case "video":
			info.HasVideo = true
			if info.VideoCodec == "" {
				info.VideoCodec = s.CodecName
			}
		}
	}
	return info, nil
}
