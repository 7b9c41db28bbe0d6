package ingest

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceArgs(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want []string
	}{
		{
			name: "local file paces at native speed",
			url:  "/data/sessions/table3.mp4",
			want: []string{"-re"},
		},
		{
			name: "file scheme paces at native speed",
			url:  "file:///data/sessions/table3.mp4",
			want: []string{"-re"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, sourceArgs(tt.url))
		})
	}

	rtsp := strings.Join(sourceArgs("rtsp://cam.local/table1"), " ")
	assert.Contains(t, rtsp, "-rtsp_transport tcp")

	httpArgs := strings.Join(sourceArgs("https://cdn.example.com/live.m3u8"), " ")
	assert.Contains(t, httpArgs, "-reconnect 1")

	assert.Nil(t, sourceArgs("srt://relay.example.com:9000"))
}

func TestBuildArgs(t *testing.T) {
	args := buildArgs("rtsp://cam.local/table1", 5, 1280)
	joined := strings.Join(args, " ")

	assert.Contains(t, joined, "-i rtsp://cam.local/table1")
	assert.Contains(t, joined, "fps=5,scale=1280:-2")
	assert.Contains(t, joined, "-f image2pipe")
	assert.Equal(t, "pipe:1", args[len(args)-1])
}

func jpegBlob(payload ...byte) []byte {
	blob := []byte{0xFF, 0xD8}
	blob = append(blob, payload...)
	blob = append(blob, 0xFF, 0xD9)
	return blob
}

func TestScanMJPEGExtractsFrames(t *testing.T) {
	first := jpegBlob(0x01, 0x02, 0x03)
	second := jpegBlob(0x0A, 0x0B)

	var stream []byte
	stream = append(stream, 0x00, 0x11, 0x22) // leading junk before the first marker
	stream = append(stream, first...)
	stream = append(stream, 0x33) // inter-frame noise
	stream = append(stream, second...)

	var got [][]byte
	err := scanMJPEG(context.Background(), bytes.NewReader(stream), func(frame []byte) error {
		got = append(got, append([]byte(nil), frame...))
		return nil
	})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, first, got[0])
	assert.Equal(t, second, got[1])
}

func TestScanMJPEGCallbackErrorDoesNotAbort(t *testing.T) {
	var stream []byte
	stream = append(stream, jpegBlob(0x01)...)
	stream = append(stream, jpegBlob(0x02)...)

	calls := 0
	err := scanMJPEG(context.Background(), bytes.NewReader(stream), func(frame []byte) error {
		calls++
		return assert.AnError
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}
