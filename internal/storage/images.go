package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// ImageStore writes uploaded meter images to a directory served under a URL prefix
type ImageStore struct {
	dir       string
	urlPrefix string
	logger    *zap.Logger
}

// StoredImage describes a written image
type StoredImage struct {
	Path string
	URL  string
}

// NewImageStore creates the directory if needed
func NewImageStore(dir, urlPrefix string, logger *zap.Logger) (*ImageStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve static dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create static dir: %w", err)
	}
	return &ImageStore{
		dir:       abs,
		urlPrefix: "/" + strings.Trim(urlPrefix, "/"),
		logger:    logger,
	}, nil
}

// Dir returns the absolute directory images are written to
func (s *ImageStore) Dir() string {
	return s.dir
}

// URLPrefix returns the public path prefix
func (s *ImageStore) URLPrefix() string {
	return s.urlPrefix
}

// URLFor returns the public path of an image name
func (s *ImageStore) URLFor(name string) string {
	return s.urlPrefix + "/" + name
}

// Save writes data as <name>.<ext>; an existing file is never overwritten
func (s *ImageStore) Save(name, ext string, data []byte) (StoredImage, error) {
	fileName := name + "." + ext
	if fileName != filepath.Base(fileName) {
		return StoredImage{}, fmt.Errorf("invalid image name %q", fileName)
	}
	path := filepath.Join(s.dir, fileName)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return StoredImage{}, fmt.Errorf("failed to create image file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return StoredImage{}, fmt.Errorf("failed to write image file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return StoredImage{}, fmt.Errorf("failed to close image file: %w", err)
	}

	return StoredImage{Path: path, URL: s.URLFor(fileName)}, nil
}

// Remove deletes a stored image. Failures are logged, not returned, since it
// only runs on already failing uploads.
func (s *ImageStore) Remove(img StoredImage) {
	if img.Path == "" {
		return
	}
	if err := os.Remove(img.Path); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove image", zap.String("path", img.Path), zap.Error(err))
		return
	}
	s.logger.Debug("removed image after failed upload", zap.String("path", img.Path))
}
