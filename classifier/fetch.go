package classifier

import (
	"context"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/juruen/rmdigit/log"
)

// fetcher reads a model.json and the files next to it, either over http(s)
// or from the local filesystem.
type fetcher struct {
	location string
	base     *url.URL
	client   *resty.Client
	cache    *artifactCache
}

func isRemote(location string) bool {
	return strings.HasPrefix(location, "http://") || strings.HasPrefix(location, "https://")
}

func newFetcher(location string, hc *http.Client, useCache bool) (*fetcher, error) {
	f := &fetcher{location: location}
	if !isRemote(location) {
		return f, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid model url %s", location)
	}
	f.base = u
	if hc != nil {
		f.client = resty.NewWithClient(hc)
	} else {
		f.client = resty.New()
	}
	if useCache {
		f.cache = newArtifactCache(location)
	}
	return f, nil
}

// resolve maps a manifest path to a URL or a file path.
func (f *fetcher) resolve(name string) (string, error) {
	if name == "" {
		return f.location, nil
	}
	if f.base == nil {
		return filepath.Join(filepath.Dir(f.location), filepath.FromSlash(name)), nil
	}
	ref, err := url.Parse(name)
	if err != nil {
		return "", errors.Wrapf(err, "invalid weights path %s", name)
	}
	return f.base.ResolveReference(ref).String(), nil
}

// fetch reads name relative to the model location; the empty name is the
// model.json itself.
func (f *fetcher) fetch(ctx context.Context, name string) ([]byte, error) {
	target, err := f.resolve(name)
	if err != nil {
		return nil, err
	}

	if f.base == nil {
		b, err := os.ReadFile(target)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read %s", target)
		}
		return b, nil
	}

	b, err := f.get(ctx, target)
	if err != nil {
		if cached, ok := f.cache.get(target); ok {
			log.Warning.Printf("using cached %s: %v", target, err)
			return cached, nil
		}
		return nil, err
	}
	f.cache.put(target, b)
	return b, nil
}

func (f *fetcher) get(ctx context.Context, target string) ([]byte, error) {
	log.Trace.Printf("fetching %s", target)
	res, err := f.client.R().SetContext(ctx).Get(target)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch %s", target)
	}
	if res.IsError() {
		return nil, errors.Errorf("failed to fetch %s: status %d", target, res.StatusCode())
	}
	return res.Body(), nil
}
