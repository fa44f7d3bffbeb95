package classifier

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path"

	"github.com/juruen/rmdigit/log"
)

// hashLocation names the cache directory of an artifact location.
func hashLocation(location string) string {
	h := sha256.Sum256([]byte(location))
	return hex.EncodeToString(h[:])
}

func getCacheDir(location string) (string, error) {
	sub := path.Join("models", hashLocation(location))

	cachedir, err := os.UserCacheDir()
	if err == nil {
		dir := path.Join(cachedir, "rmdigit", sub)
		if err = os.MkdirAll(dir, 0700); err == nil {
			return dir, nil
		}
	}

	// Fallback to home directory if cache dir cannot be used
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := path.Join(home, ".rmdigit-cache", sub)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}

// artifactCache stores downloaded files so a model can still be loaded
// when its location is unreachable.
type artifactCache struct {
	dir string
}

func newArtifactCache(location string) *artifactCache {
	dir, err := getCacheDir(location)
	if err != nil {
		log.Warning.Printf("model cache disabled: %v", err)
		return nil
	}
	return &artifactCache{dir: dir}
}

func (c *artifactCache) file(name string) string {
	return path.Join(c.dir, hashLocation(name))
}

func (c *artifactCache) get(name string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	b, err := os.ReadFile(c.file(name))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (c *artifactCache) put(name string, b []byte) {
	if c == nil {
		return
	}
	if err := os.WriteFile(c.file(name), b, 0600); err != nil {
		log.Warning.Printf("can't cache %s: %v", name, err)
	}
}
