package video

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	ffmpeg "github.com/u2takey/ffmpeg-go"

	"github.com/menta2k/vertical-cropper/pkg/types"
)

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
	} `json:"format"`
}

type probeStream struct {
	CodecType    string `json:"codec_type"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	RFrameRate   string `json:"r_frame_rate"`
	AvgFrameRate string `json:"avg_frame_rate"`
	NbFrames     string `json:"nb_frames"`
	Duration     string `json:"duration"`
}

// Probe reads the geometry and timing of the first video stream of a file
func Probe(path string) (types.VideoInfo, error) {
	out, err := ffmpeg.Probe(path)
	if err != nil {
		return types.VideoInfo{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return parseProbe([]byte(out))
}

func parseProbe(data []byte) (types.VideoInfo, error) {
	var probe probeOutput
	if err := json.Unmarshal(data, &probe); err != nil {
		return types.VideoInfo{}, fmt.Errorf("failed to parse probe output: %w", err)
	}

	for _, s := range probe.Streams {
		if s.CodecType != "video" {
			continue
		}
		info := types.VideoInfo{Width: s.Width, Height: s.Height}
		info.FPS = parseRate(s.AvgFrameRate)
		if info.FPS <= 0 {
			info.FPS = parseRate(s.RFrameRate)
		}
		if n, err := strconv.Atoi(s.NbFrames); err == nil {
			info.TotalFrames = n
		} else {
			duration := s.Duration
			if duration == "" {
				duration = probe.Format.Duration
			}
			if d, err := strconv.ParseFloat(duration, 64); err == nil && info.FPS > 0 {
				info.TotalFrames = int(d*info.FPS + 0.5)
			}
		}
		return info, nil
	}
	return types.VideoInfo{}, fmt.Errorf("no video stream found")
}

// parseRate parses ffprobe rates such as "30000/1001" or "25"
func parseRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}
