package registry

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	backoff "github.com/cenkalti/backoff/v5"
	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	v1 "github.com/google/go-containerregistry/pkg/v1"
	"github.com/google/go-containerregistry/pkg/v1/remote"
	"github.com/google/go-containerregistry/pkg/v1/remote/transport"

	"github.com/mvnoci/mvnoci/internal/artifacts"
	"github.com/mvnoci/mvnoci/internal/coords"
	"github.com/mvnoci/mvnoci/pkg/config"
	"github.com/mvnoci/mvnoci/pkg/logger"
)

// Artifact files are stored one per layer, with the original file name in the
// standard OCI title annotation.
const layerTitleAnnotation = "org.opencontainers.image.title"

const (
	pullMaxAttempts     = 3
	pullInitialInterval = 250 * time.Millisecond
)

// BundleStore is the persistent cache surface the resolver needs when asked
// to satisfy a coordinate ahead of normal resolution.
type BundleStore interface {
	Has(c *coords.Coordinate) bool
	PutBundle(c *coords.Coordinate, sourceDir string) error
}

// Resolver pulls artifacts for one configured repository. Construction is
// pure: the authentication mode (explicit credentials or the default
// keychain, over verified or insecure transport) is decided here without any
// network traffic.
type Resolver struct {
	repo       config.Repository
	nameOpts   []name.Option
	remoteOpts []remote.Option
}

// NewResolver creates a resolver for the repository.
func NewResolver(repo config.Repository) *Resolver {
	r := &Resolver{repo: repo}

	if repo.Auth != nil {
		r.remoteOpts = append(r.remoteOpts, remote.WithAuth(&authn.Basic{
			Username: repo.Auth.Username,
			Password: repo.Auth.Password,
		}))
	} else {
		r.remoteOpts = append(r.remoteOpts, remote.WithAuthFromKeychain(authn.DefaultKeychain))
	}

	if repo.Insecure {
		r.nameOpts = append(r.nameOpts, name.Insecure)
		r.remoteOpts = append(r.remoteOpts, remote.WithTransport(&http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true}, //nolint:gosec
		}))
	}

	return r
}

// Repository returns the repository this resolver serves.
func (r *Resolver) Repository() config.Repository {
	return r.repo
}

// Reference returns the registry reference for a coordinate.
func (r *Resolver) Reference(c *coords.Coordinate) (string, error) {
	return BuildReference(c, &r.repo)
}

// Pull fetches the artifact for the coordinate into dir, one file per layer.
// It reports false on any failure: callers treat that as "not available from
// this source", since the requesting resolver may have other repositories to
// try. Transient transport failures are retried a bounded number of times;
// not-found and credential rejections are not.
func (r *Resolver) Pull(ctx context.Context, c *coords.Coordinate, dir string) bool {
	refStr, err := r.Reference(c)
	if err != nil {
		logger.Debugf("not pullable from %s: %v", r.repo.Name, err)
		return false
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = pullInitialInterval

	_, err = backoff.Retry(ctx, func() (struct{}, error) {
		return struct{}{}, r.pullOnce(ctx, refStr, dir)
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(pullMaxAttempts))
	if err != nil {
		logger.Debugf("pull of %s failed: %v", refStr, err)
		return false
	}
	return true
}

// Exists reports whether the registry has a manifest for the coordinate.
func (r *Resolver) Exists(ctx context.Context, c *coords.Coordinate) bool {
	refStr, err := r.Reference(c)
	if err != nil {
		return false
	}
	ref, err := name.ParseReference(refStr, r.nameOpts...)
	if err != nil {
		return false
	}
	_, err = remote.Head(ref, r.options(ctx)...)
	return err == nil
}

// Satisfy attempts to place the coordinate's artifact bundle into the store
// ahead of normal resolution. The store is the only visible side effect.
func (r *Resolver) Satisfy(ctx context.Context, c *coords.Coordinate, store BundleStore) bool {
	if store.Has(c) {
		return true
	}

	dir, err := os.MkdirTemp("", "mvnoci-pull-")
	if err != nil {
		logger.Errorf("failed to create temporary pull directory: %v", err)
		return false
	}
	defer removeTempDir(dir)

	if !r.Pull(ctx, c, dir) {
		return false
	}
	if _, err := artifacts.FindRequested(dir, c); err != nil {
		logger.Debugf("pulled %s but found no matching file: %v", c.CacheKey(), err)
		return false
	}
	if err := store.PutBundle(c, dir); err != nil {
		logger.Warnf("failed to cache bundle for %s: %v", c.CacheKey(), err)
		return false
	}
	return true
}

func (r *Resolver) pullOnce(ctx context.Context, refStr, dir string) error {
	ref, err := name.ParseReference(refStr, r.nameOpts...)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("invalid reference %q: %w", refStr, err))
	}

	img, err := remote.Image(ref, r.options(ctx)...)
	if err != nil {
		return classify(err)
	}
	manifest, err := img.Manifest()
	if err != nil {
		return classify(err)
	}
	layers, err := img.Layers()
	if err != nil {
		return classify(err)
	}

	for i, layer := range layers {
		fileName := ""
		if i < len(manifest.Layers) {
			fileName = manifest.Layers[i].Annotations[layerTitleAnnotation]
		}
		if fileName == "" {
			digest, derr := layer.Digest()
			if derr != nil {
				return classify(derr)
			}
			fileName = digest.Hex
		}
		if err := writeLayer(layer, filepath.Join(dir, filepath.Base(fileName))); err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) options(ctx context.Context) []remote.Option {
	return append([]remote.Option{remote.WithContext(ctx)}, r.remoteOpts...)
}

// classify marks failures that retrying cannot fix as permanent. A 4xx from
// the registry means not-found or rejected credentials; only server errors
// and transport failures are worth another attempt.
func classify(err error) error {
	var terr *transport.Error
	if errors.As(err, &terr) && terr.StatusCode < http.StatusInternalServerError {
		return backoff.Permanent(err)
	}
	return err
}

func writeLayer(layer v1.Layer, target string) error {
	rc, err := layer.Uncompressed()
	if err != nil {
		return classify(err)
	}
	defer rc.Close()

	f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return backoff.Permanent(fmt.Errorf("failed to create %s: %w", target, err))
	}
	if _, err := io.Copy(f, rc); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// removeTempDir deletes a pull directory. Cleanup failures are logged and
// swallowed; they must never mask the outcome of the request that owned the
// directory.
func removeTempDir(dir string) {
	if err := os.RemoveAll(dir); err != nil {
		logger.Warnf("failed to remove temporary pull directory %s: %v", dir, err)
	}
}
