package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"warmwall/internal/apperr"
	"warmwall/internal/logging"
	"warmwall/internal/metrics"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

const DefaultMaxUploadBytes = 5 * 1024 * 1024

// ErrFileTooLarge 文件超过上传上限
func ErrFileTooLarge() error {
	return apperr.Validation("file", "file too large (max 5MB)")
}

// 允许上传的类型
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
	"audio/ogg":  true,
	"audio/webm": true,
	"audio/wav":  true,
}

// 扩展名即 MIME 子类型，反查存储时的类型
var typeByExt = func() map[string]string {
	m := make(map[string]string, len(allowedTypes))
	for t := range allowedTypes {
		_, ext, _ := strings.Cut(t, "/")
		m[ext] = t
	}
	return m
}()

var mediaKeyPattern = regexp.MustCompile(`^(chat/images|chat/voice|misc)/[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpeg|png|webp|gif|ogg|webm|wav)$`)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore 存放上传的二进制文件
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// DiskStore 本地目录实现，key 即相对路径
type DiskStore struct {
	Root string
}

func (d *DiskStore) path(key string) string {
	return filepath.Join(d.Root, filepath.FromSlash(key))
}

func (d *DiskStore) Put(ctx context.Context, key string, data []byte) error {
	p := d.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("prepare storage: %w", err)
	}
	// 先写临时文件再改名，避免读到半个文件
	tmp := p + ".part"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write object: %w", err)
	}
	return os.Rename(tmp, p)
}

func (d *DiskStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	f, err := os.Open(d.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrObjectNotFound
	}
	return f, err
}

type MediaService struct {
	store    ObjectStore
	maxBytes int64
}

func NewMediaService(store ObjectStore, maxBytes int64) *MediaService {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &MediaService{store: store, maxBytes: maxBytes}
}

type UploadResult struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Type string `json:"type"`
}

func mediaFolder(contentType string) string {
	switch {
	case strings.HasPrefix(contentType, "image/"):
		return "chat/images"
	case strings.HasPrefix(contentType, "audio/"):
		return "chat/voice"
	default:
		return "misc"
	}
}

func category(contentType string) string {
	top, _, _ := strings.Cut(contentType, "/")
	return top
}

// Upload validates the declared type and size, then stores the bytes under a fresh key.
// size is the declared length; -1 means unknown.
func (s *MediaService) Upload(ctx context.Context, r io.Reader, size int64, declaredType string) (*UploadResult, error) {
	declaredType = strings.ToLower(strings.TrimSpace(strings.SplitN(declaredType, ";", 2)[0]))
	cat := category(declaredType)

	if !allowedTypes[declaredType] {
		metrics.MediaUploads.WithLabelValues(cat, "invalid_type").Inc()
		return nil, apperr.Validation("file", "invalid file type")
	}
	if size > s.maxBytes {
		metrics.MediaUploads.WithLabelValues(cat, "too_large").Inc()
		return nil, ErrFileTooLarge()
	}

	// 多读一个字节用来判断是否超限
	data, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, apperr.Validation("file", "could not be read")
	}
	if int64(len(data)) > s.maxBytes {
		metrics.MediaUploads.WithLabelValues(cat, "too_large").Inc()
		return nil, ErrFileTooLarge()
	}
	if len(data) == 0 {
		return nil, apperr.Validation("file", "is empty")
	}

	// 图片按内容嗅探，声明类型必须与实际一致
	if cat == "image" {
		if detected := mimetype.Detect(data); !detected.Is(declaredType) {
			metrics.MediaUploads.WithLabelValues(cat, "invalid_type").Inc()
			return nil, apperr.Validation("file", "content does not match "+declaredType)
		}
	}

	_, ext, _ := strings.Cut(declaredType, "/")
	key := fmt.Sprintf("%s/%s.%s", mediaFolder(declaredType), uuid.NewString(), ext)
	if err := s.store.Put(ctx, key, data); err != nil {
		metrics.MediaUploads.WithLabelValues(cat, "error").Inc()
		return nil, apperr.Storage("store upload", err)
	}

	metrics.MediaUploads.WithLabelValues(cat, "ok").Inc()
	logging.Debug().Str("key", key).Int("bytes", len(data)).Msg("media stored")
	return &UploadResult{URL: "/api/media/" + key, Key: key, Type: declaredType}, nil
}

// Open returns the object and its content type. Keys outside the upload shape are not found.
func (s *MediaService) Open(ctx context.Context, key string) (io.ReadCloser, string, error) {
	key = strings.TrimPrefix(key, "/")
	if !mediaKeyPattern.MatchString(key) {
		return nil, "", apperr.NotFound("Media")
	}

	rc, err := s.store.Open(ctx, key)
	if errors.Is(err, ErrObjectNotFound) {
		return nil, "", apperr.NotFound("Media")
	}
	if err != nil {
		return nil, "", apperr.Storage("open media", err)
	}

	ext := key[strings.LastIndex(key, ".")+1:]
	return rc, typeByExt[ext], nil
}
