package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// resolveTimeout bounds yt-dlp. A stuck resolver must not wedge stream
// startup; the manager retries with backoff anyway.
const resolveTimeout = 30 * time.Second

// ytFormat prefers a single muxed rendition at analysis-friendly
// resolution; anything above 1080p is wasted detector input.
const ytFormat = "best[height<=1080]"

// ResolveYouTubeURL turns a YouTube page URL into the direct media URL
// FFmpeg can open. Resolved URLs expire, so callers re-resolve before
// each reconnect.
func ResolveYouTubeURL(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, resolveTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "yt-dlp",
		"--get-url",
		"--format", ytFormat,
		"--no-playlist",
		pageURL,
	)

	output, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return "", fmt.Errorf("yt-dlp: %s", strings.TrimSpace(string(ee.Stderr)))
		}
		return "", fmt.Errorf("yt-dlp: %w", err)
	}

	// With separate video and audio renditions yt-dlp prints one URL per
	// line; the video URL comes first.
	direct := firstLine(string(output))
	if direct == "" {
		return "", fmt.Errorf("yt-dlp returned no URL for %s", pageURL)
	}
	return direct, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
