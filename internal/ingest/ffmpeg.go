package ingest

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strings"
	"sync"
	"time"
)

// FrameCallback receives each captured JPEG frame.
type FrameCallback func(frameData []byte) error

// FFmpegExtractor turns a table camera feed into a stream of JPEG frames,
// downsampled to the analysis frame rate and width before they ever
// leave the ingestor.
type FFmpegExtractor struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	cmd    *exec.Cmd
}

// StartExtraction runs FFmpeg against the feed and calls the callback for
// each frame. It blocks until the context is cancelled or the feed ends;
// a clean FFmpeg exit after producing frames is the end-of-stream signal.
func (f *FFmpegExtractor) StartExtraction(ctx context.Context, streamURL string, fps, width int, callback FrameCallback) error {
	ctx, cancel := context.WithCancel(ctx)
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()

	defer cancel()

	cmd := exec.CommandContext(ctx, "ffmpeg", buildArgs(streamURL, fps, width)...)
	f.mu.Lock()
	f.cmd = cmd
	f.mu.Unlock()

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Warn("ffmpeg stderr", "output", scanner.Text())
		}
	}()

	if err := scanMJPEG(ctx, stdout, callback); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("read frames: %w", err)
	}

	return cmd.Wait()
}

// Stop terminates the FFmpeg process.
func (f *FFmpegExtractor) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.cancel != nil {
		f.cancel()
	}
	if f.cmd != nil && f.cmd.Process != nil {
		_ = f.cmd.Process.Kill()
	}
}

// buildArgs assembles the full FFmpeg invocation for one feed.
func buildArgs(streamURL string, fps, width int) []string {
	args := []string{"-hide_banner", "-loglevel", "warning"}
	args = append(args, sourceArgs(streamURL)...)
	args = append(args,
		"-i", streamURL,
		// scale height -2 keeps it even, which mjpeg requires
		"-vf", fmt.Sprintf("fps=%d,scale=%d:-2", fps, width),
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)
	return args
}

// sourceArgs returns the input flags for each kind of feed. Recorded
// table sessions (plain paths or file://) are read at native speed so
// playback paces like a live table; network feeds get timeout and
// reconnect flags instead.
func sourceArgs(streamURL string) []string {
	switch {
	case !strings.Contains(streamURL, "://"), strings.HasPrefix(streamURL, "file://"):
		return []string{"-re"}
	case strings.HasPrefix(streamURL, "rtsp://"), strings.HasPrefix(streamURL, "rtsps://"):
		return []string{
			"-rtsp_transport", "tcp",
			"-stimeout", "5000000", // 5s RTSP socket timeout (microseconds)
			"-timeout", "5000000",
		}
	case strings.HasPrefix(streamURL, "http://"), strings.HasPrefix(streamURL, "https://"):
		return []string{
			"-reconnect", "1",
			"-reconnect_streamed", "1",
			"-reconnect_delay_max", "5",
			"-timeout", "10000000", // 10s (microseconds)
		}
	default:
		return nil
	}
}

// maxFrameBytes caps a single frame. Table cams scaled to analysis width
// stay far below this even on busy felt.
const maxFrameBytes = 10 * 1024 * 1024

// scanMJPEG splits FFmpeg's image2pipe output into individual JPEGs and
// hands each to the callback. FFmpeg can take a few seconds to open a
// network feed, so an early EOF before the first frame is retried
// briefly rather than treated as a dead stream.
func scanMJPEG(ctx context.Context, r io.Reader, callback FrameCallback) error {
	br := bufio.NewReaderSize(r, 512*1024)
	frames := 0
	warmup := 0
	const maxWarmup = 50 // 100ms apart, 5s total

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := seekMarker(br, 0xD8); err != nil {
			if err == io.EOF {
				if frames > 0 {
					return nil // feed ended cleanly
				}
				if warmup < maxWarmup {
					warmup++
					time.Sleep(100 * time.Millisecond)
					continue
				}
				return fmt.Errorf("no frames from ffmpeg after %.1fs", float64(warmup)*0.1)
			}
			return err
		}

		frame, err := readFrame(br)
		if err != nil {
			if err == io.EOF && frames > 0 {
				return nil // feed ended mid-frame
			}
			return err
		}

		frames++
		if err := callback(frame); err != nil {
			slog.Warn("frame callback", "error", err)
		}
	}
}

// seekMarker consumes input until the 0xFF<marker> sequence.
func seekMarker(r *bufio.Reader, marker byte) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		b, err = r.ReadByte()
		if err != nil {
			return err
		}
		if b == marker {
			return nil
		}
	}
}

// readFrame reads one JPEG body through the end-of-image marker,
// start-of-image markers included.
func readFrame(r *bufio.Reader) ([]byte, error) {
	frame := []byte{0xFF, 0xD8}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		frame = append(frame, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			frame = append(frame, next)
			if next == 0xD9 {
				return frame, nil
			}
		}

		if len(frame) > maxFrameBytes {
			return nil, fmt.Errorf("jpeg frame exceeds %d bytes", maxFrameBytes)
		}
	}
}
