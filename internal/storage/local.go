package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"readquest/internal/security"
)

// LocalStore keeps objects on the local filesystem and serves them through
// HMAC-signed URLs under /media/
type LocalStore struct {
	baseDir string
	baseURL string
	signer  *security.Signer
	now     func() time.Time
}

// NewLocalStore creates a filesystem-backed store rooted at baseDir
func NewLocalStore(baseDir, baseURL string, signer *security.Signer) (*LocalStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &LocalStore{
		baseDir: baseDir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		signer:  signer,
		now:     time.Now,
	}, nil
}

func (s *LocalStore) fullPath(objectPath string) (string, error) {
	cleaned, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.baseDir, filepath.FromSlash(cleaned)), nil
}

// Upload writes body to objectPath, replacing any existing object
func (s *LocalStore) Upload(ctx context.Context, objectPath string, body io.Reader, size int64, contentType string) error {
	full, err := s.fullPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return fmt.Errorf("failed to create object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".upload-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	written, err := io.Copy(tmp, body)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write object: %w", err)
	}
	if size >= 0 && written != size {
		return fmt.Errorf("short upload: wrote %d of %d bytes", written, size)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), full)
}

// List returns the objects whose path starts with prefix
func (s *LocalStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	var objects []ObjectInfo
	err := filepath.WalkDir(s.baseDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), ".upload-") {
			return nil
		}
		rel, err := filepath.Rel(s.baseDir, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if !strings.HasPrefix(rel, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		objects = append(objects, ObjectInfo{Path: rel, Size: info.Size(), LastModified: info.ModTime()})
		return ctx.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

// Delete removes the object at objectPath
func (s *LocalStore) Delete(ctx context.Context, objectPath string) error {
	full, err := s.fullPath(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete object: %w", err)
	}
	return nil
}

// SignedURL returns a /media/ URL for objectPath valid for expiry
func (s *LocalStore) SignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	cleaned, err := cleanPath(objectPath)
	if err != nil {
		return "", err
	}
	expires := s.now().Add(expiry).Truncate(time.Second)
	query := url.Values{}
	query.Set("expires", strconv.FormatInt(expires.Unix(), 10))
	query.Set("sig", s.signer.Sign(cleaned, expires))
	return fmt.Sprintf("%s/media/%s?%s", s.baseURL, cleaned, query.Encode()), nil
}

// Open verifies a signed request and opens the object for reading
func (s *LocalStore) Open(objectPath, expiresParam, signature string) (*os.File, error) {
	cleaned, err := cleanPath(objectPath)
	if err != nil {
		return nil, err
	}
	unix, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return nil, security.ErrSignatureInvalid
	}
	if err := s.signer.Verify(cleaned, time.Unix(unix, 0), signature, s.now()); err != nil {
		return nil, err
	}

	f, err := os.Open(filepath.Join(s.baseDir, filepath.FromSlash(cleaned)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return f, nil
}
