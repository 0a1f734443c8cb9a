package api

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
)

// diskCache stores raw response bodies keyed by request URL.
type diskCache struct {
	dir string
}

func (d *diskCache) path(u string) string {
	sum := sha256.Sum256([]byte(u))
	return filepath.Join(d.dir, hex.EncodeToString(sum[:])+".json")
}

func (d *diskCache) get(u string) ([]byte, bool) {
	body, err := os.ReadFile(d.path(u))
	if err != nil {
		return nil, false
	}
	return body, true
}

func (d *diskCache) put(u string, body []byte) error {
	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}
	tmp, err := os.CreateTemp(d.dir, ".partial-*")
	if err != nil {
		return fmt.Errorf("create cache file: %w", err)
	}
	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	return os.Rename(tmp.Name(), d.path(u))
}
