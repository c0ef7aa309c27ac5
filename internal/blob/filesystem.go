package blob

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// FilesystemStore keeps blobs under a local directory and signs
// retrieval URLs with HMAC-SHA256. The signature covers the key and
// expiry, so a URL cannot be replayed for another file or after it
// lapses.
type FilesystemStore struct {
	dir       string
	secret    []byte
	urlPrefix string
}

// NewFilesystem creates the root directory if needed.
func NewFilesystem(dir, urlPrefix, signingSecret string) (*FilesystemStore, error) {
	if signingSecret == "" {
		return nil, eris.New("blob: signing secret is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrap(err, "blob: create directory")
	}
	return &FilesystemStore{
		dir:       dir,
		secret:    []byte(signingSecret),
		urlPrefix: strings.TrimRight(urlPrefix, "/"),
	}, nil
}

func (s *FilesystemStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", eris.Wrap(err, "blob: create key directory")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", eris.Wrapf(err, "blob: write %s", key)
	}
	meta := map[string]string{"content_type": contentType}
	metaBytes, _ := json.Marshal(meta)
	if err := os.WriteFile(path+".meta", metaBytes, 0o644); err != nil {
		return "", eris.Wrapf(err, "blob: write metadata for %s", key)
	}
	return key, nil
}

func (s *FilesystemStore) Get(ctx context.Context, key string) ([]byte, error) {
	path, err := s.keyPath(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "blob: read %s", key)
	}
	return data, nil
}

// SignedURL returns urlPrefix/key?expires=unix&sig=hex, valid for ttl.
func (s *FilesystemStore) SignedURL(key string, ttl time.Duration) (string, error) {
	if _, err := s.keyPath(key); err != nil {
		return "", err
	}
	expires := time.Now().UTC().Add(ttl).Unix()
	sig := s.sign(key, expires)
	return fmt.Sprintf("%s/%s?expires=%d&sig=%s", s.urlPrefix, url.PathEscape(key), expires, sig), nil
}

// VerifySignedURL checks the signature and expiry for a key. The file
// server handling /files requests calls this before streaming a blob.
func (s *FilesystemStore) VerifySignedURL(key, expiresParam, sig string) error {
	expires, err := strconv.ParseInt(expiresParam, 10, 64)
	if err != nil {
		return eris.Wrap(err, "blob: parse expiry")
	}
	if time.Now().UTC().Unix() > expires {
		return eris.New("blob: signed URL expired")
	}
	expected := s.sign(key, expires)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return eris.New("blob: signature mismatch")
	}
	return nil
}

func (s *FilesystemStore) sign(key string, expires int64) string {
	mac := hmac.New(sha256.New, s.secret)
	fmt.Fprintf(mac, "%s:%d", key, expires)
	return hex.EncodeToString(mac.Sum(nil))
}

// keyPath maps a key to a path under the root, rejecting traversal.
func (s *FilesystemStore) keyPath(key string) (string, error) {
	if key == "" {
		return "", eris.New("blob: empty key")
	}
	clean := filepath.Clean(filepath.FromSlash(key))
	if strings.HasPrefix(clean, "..") || filepath.IsAbs(clean) {
		return "", eris.Errorf("blob: invalid key %q", key)
	}
	return filepath.Join(s.dir, clean), nil
}
