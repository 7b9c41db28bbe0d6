package storage

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestFrameKey(t *testing.T) {
	streamID := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	frameID := uuid.MustParse("aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee")

	assert.Equal(t,
		"frames/11111111-2222-3333-4444-555555555555/aaaaaaaa-bbbb-cccc-dddd-eeeeeeeeeeee.jpg",
		FrameKey(streamID, frameID))
	assert.Equal(t, "frames/11111111-2222-3333-4444-555555555555/", framePrefix(streamID))
}

func TestStaleFrameKeysOrdersByUploadTime(t *testing.T) {
	base := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	objs := []frameObject{
		// Key order deliberately disagrees with upload order.
		{Key: "frames/s/aaa.jpg", LastModified: base.Add(3 * time.Minute)},
		{Key: "frames/s/bbb.jpg", LastModified: base},
		{Key: "frames/s/ccc.jpg", LastModified: base.Add(1 * time.Minute)},
		{Key: "frames/s/ddd.jpg", LastModified: base.Add(2 * time.Minute)},
	}

	stale := staleFrameKeys(objs, 2)
	assert.Equal(t, []string{"frames/s/bbb.jpg", "frames/s/ccc.jpg"}, stale)
}

func TestStaleFrameKeysUnderKeep(t *testing.T) {
	objs := []frameObject{
		{Key: "frames/s/a.jpg", LastModified: time.Now()},
	}
	assert.Nil(t, staleFrameKeys(objs, 1))
	assert.Nil(t, staleFrameKeys(objs, 5))
	assert.Nil(t, staleFrameKeys(nil, 0))
}

func TestStaleFrameKeysKeepZeroDeletesAll(t *testing.T) {
	now := time.Now()
	objs := []frameObject{
		{Key: "frames/s/a.jpg", LastModified: now},
		{Key: "frames/s/b.jpg", LastModified: now.Add(time.Second)},
	}
	assert.Len(t, staleFrameKeys(objs, 0), 2)
	assert.Len(t, staleFrameKeys(objs, -1), 2)
}
