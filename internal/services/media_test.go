package services

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"warmwall/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', 0x0d, 0x0a, 0x1a, 0x0a, 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestUploadStoresUnderFolder(t *testing.T) {
	s := NewMediaService(&DiskStore{Root: t.TempDir()}, 0)
	ctx := context.Background()

	res, err := s.Upload(ctx, bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "chat/images/"))
	assert.True(t, strings.HasSuffix(res.Key, ".png"))
	assert.Equal(t, "/api/media/"+res.Key, res.URL)

	rc, ct, err := s.Open(ctx, res.Key)
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, pngHeader, got)
	assert.Equal(t, "image/png", ct)
}

func TestUploadVoice(t *testing.T) {
	s := NewMediaService(&DiskStore{Root: t.TempDir()}, 0)

	res, err := s.Upload(context.Background(), strings.NewReader("OggS-ish"), -1, "audio/webm;codecs=opus")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Key, "chat/voice/"))
	assert.True(t, strings.HasSuffix(res.Key, ".webm"))
}

func TestUploadRejectsType(t *testing.T) {
	s := NewMediaService(&DiskStore{Root: t.TempDir()}, 0)

	_, err := s.Upload(context.Background(), strings.NewReader("x"), 1, "application/pdf")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// 声明为 png，实际是文本
	_, err = s.Upload(context.Background(), strings.NewReader("hello world"), 11, "image/png")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUploadRejectsSizeBeforeWrite(t *testing.T) {
	store := &DiskStore{Root: t.TempDir()}
	s := NewMediaService(store, 8)

	_, err := s.Upload(context.Background(), bytes.NewReader(pngHeader), int64(len(pngHeader)), "image/png")
	assert.ErrorIs(t, err, apperr.ErrValidation)

	// 未知长度时按实际读取字节数判断
	_, err = s.Upload(context.Background(), bytes.NewReader(pngHeader), -1, "image/png")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestOpenValidatesKey(t *testing.T) {
	s := NewMediaService(&DiskStore{Root: t.TempDir()}, 0)
	ctx := context.Background()

	for _, key := range []string{"../etc/passwd", "chat/images/abc.png", "chat/images/00000000-0000-0000-0000-000000000000.exe"} {
		_, _, err := s.Open(ctx, key)
		assert.ErrorIs(t, err, apperr.ErrNotFound, key)
	}

	_, _, err := s.Open(ctx, "chat/images/00000000-0000-0000-0000-000000000000.png")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
