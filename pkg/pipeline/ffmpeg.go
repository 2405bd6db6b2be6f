package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"time"
)

// Backend abstracts the media tooling so the video strategy can run against
// a fake in tests. FFmpeg is the only production implementation.
type Backend interface {
	Available() error
	Probe(ctx context.Context, url string) (ProbeResult, error)
	ExtractFrame(ctx context.Context, url string, offset time.Duration, maxEdge int, outPath string) error
	Transcode(ctx context.Context, url string, height int, outPath string) error
}

// ProbeResult carries the source facts the ladder and metadata need.
type ProbeResult struct {
	Width    int
	Height   int
	Duration float64
}

var errNoVideoStream = errors.New("no video stream found")

// FFmpeg shells out to ffmpeg/ffprobe. Inputs are URLs (presigned reads),
// outputs are local files owned by the calling job.
type FFmpeg struct {
	FFmpegPath  string
	FFprobePath string
	Timeout     time.Duration
}

func NewFFmpeg() *FFmpeg {
	return &FFmpeg{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		Timeout:     10 * time.Minute,
	}
}

func (f *FFmpeg) Available() error {
	for _, bin := range []string{f.FFmpegPath, f.FFprobePath} {
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("missing required binary %q in PATH: %w", bin, err)
		}
	}
	return nil
}

func (f *FFmpeg) Probe(ctx context.Context, url string) (ProbeResult, error) {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, f.FFprobePath,
		"-v", "error",
		"-select_streams", "v:0",
		"-show_entries", "stream=width,height",
		"-show_entries", "format=duration",
		"-of", "json",
		url,
	)
	out, err := cmd.Output()
	if err != nil {
		return ProbeResult{}, fmt.Errorf("ffprobe failed: %w; out=%s", err, tail(out))
	}

	var parsed struct {
		Streams []struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"streams"`
		Format struct {
			Duration string `json:"duration"`
		} `json:"format"`
	}
	if err := json.Unmarshal(out, &parsed); err != nil {
		return ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}
	if len(parsed.Streams) == 0 {
		return ProbeResult{}, errNoVideoStream
	}

	duration, err := strconv.ParseFloat(parsed.Format.Duration, 64)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("parse container duration %q: %w", parsed.Format.Duration, err)
	}

	return ProbeResult{
		Width:    parsed.Streams[0].Width,
		Height:   parsed.Streams[0].Height,
		Duration: duration,
	}, nil
}

func (f *FFmpeg) ExtractFrame(ctx context.Context, url string, offset time.Duration, maxEdge int, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	edge := strconv.Itoa(maxEdge)
	cmd := exec.CommandContext(ctx, f.FFmpegPath,
		"-y",
		"-ss", fmt.Sprintf("%.3f", offset.Seconds()),
		"-i", url,
		"-vframes", "1",
		// Fit within maxEdge on the longest side without upscaling.
		"-vf", "scale='min("+edge+",iw)':'min("+edge+",ih)':force_original_aspect_ratio=decrease",
		// -q:v 3 lands near JPEG quality 80.
		"-q:v", "3",
		outPath,
	)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg frame extract failed: %w; out=%s", err, tail(out))
	}
	return nil
}

// Transcode writes an H.264/AAC MP4 rendition capped at 30fps with fixed
// bitrates (1 Mbps video, 128 kbps audio). height 0 keeps the source's
// native resolution.
func (f *FFmpeg) Transcode(ctx context.Context, url string, height int, outPath string) error {
	ctx, cancel := context.WithTimeout(ctx, f.Timeout)
	defer cancel()

	args := []string{"-y", "-i", url}
	if height > 0 {
		args = append(args, "-vf", "scale=-2:"+strconv.Itoa(height))
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-b:v", "1M",
		"-maxrate", "1M",
		"-bufsize", "2M",
		"-r", "30",
		"-c:a", "aac",
		"-b:a", "128k",
		"-ac", "2",
		"-movflags", "+faststart",
		outPath,
	)

	cmd := exec.CommandContext(ctx, f.FFmpegPath, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg transcode failed: %w; out=%s", err, tail(out))
	}
	return nil
}

// tail keeps error messages readable when ffmpeg dumps a long log.
func tail(out []byte) string {
	const max = 2048
	if len(out) > max {
		out = out[len(out)-max:]
	}
	return string(out)
}
