// Package registry translates Maven coordinates into OCI registry references
// and resolves them through the registry client.
package registry

import (
	"fmt"
	"strings"

	"github.com/mvnoci/mvnoci/internal/coords"
	"github.com/mvnoci/mvnoci/pkg/config"
)

// BuildReference derives the registry reference for a coordinate:
//
//	<host>[:<port>]/[<namespace>/]<sanitized-group>/<artifactId>:<version>
//
// The namespace comes from the repository configuration when set, otherwise
// from the path component of the base URL. The group is always sanitized;
// registries reject the raw Maven character set. This is the only place the
// coordinate-to-reference mapping exists, which keeps references
// deterministic across the proxy and both caches.
func BuildReference(c *coords.Coordinate, repo *config.Repository) (string, error) {
	host, path := splitBaseURL(repo.URL)
	if host == "" {
		return "", fmt.Errorf("repository %q has no host in url %q", repo.Name, repo.URL)
	}

	namespace := repo.Namespace
	if namespace == "" {
		namespace = path
	}
	namespace = strings.Trim(namespace, "/")

	group, err := coords.SanitizeGroup(c.Group)
	if err != nil {
		return "", fmt.Errorf("cannot map group to a registry name: %w", err)
	}

	var b strings.Builder
	b.WriteString(host)
	b.WriteByte('/')
	if namespace != "" {
		b.WriteString(namespace)
		b.WriteByte('/')
	}
	b.WriteString(group)
	b.WriteByte('/')
	b.WriteString(c.Artifact)
	b.WriteByte(':')
	b.WriteString(c.Version)
	return b.String(), nil
}

// splitBaseURL strips the scheme from a registry base URL and separates
// host[:port] from the trailing path. Pure string handling so reference
// construction stays deterministic and free of URL normalization surprises.
func splitBaseURL(raw string) (host, path string) {
	s := raw
	if idx := strings.Index(s, "://"); idx >= 0 {
		s = s[idx+3:]
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		return s[:idx], s[idx+1:]
	}
	return s, ""
}
