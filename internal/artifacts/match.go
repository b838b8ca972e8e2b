// Package artifacts maps the files produced by a registry pull onto the file
// names a Maven resolver expects. Registries store artifact files under
// whatever names they were published with; this package normalizes them back
// to Maven conventions.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mvnoci/mvnoci/internal/coords"
)

var (
	// ErrNoMatch means the pull succeeded but none of its files satisfy the
	// requested coordinate.
	ErrNoMatch = errors.New("no file matches the requested coordinate")

	// ErrPomMissing means a POM was requested and the pulled artifact carries
	// no file matching any POM convention. An artifact published without its
	// metadata is a publishing defect; a substitute is never synthesized.
	ErrPomMissing = errors.New("artifact contains no POM file")
)

// FindRequested locates the file in dir that satisfies the coordinate and
// returns its full path. Matching order: exact file name, then the POM
// alternate conventions, then checksum-family matching, then classifier-based
// selection among files sharing the requested extension.
func FindRequested(dir string, c *coords.Coordinate) (string, error) {
	names, err := listFiles(dir)
	if err != nil {
		return "", err
	}

	for _, n := range names {
		if n == c.FileName {
			return filepath.Join(dir, n), nil
		}
	}

	if c.IsPom() {
		if n := findPom(names, c); n != "" {
			return filepath.Join(dir, n), nil
		}
		return "", fmt.Errorf("%w: %s:%s", ErrPomMissing, c.Artifact, c.Version)
	}

	if algo, base, ok := c.Checksum(); ok {
		if n := findChecksum(names, c, algo, base); n != "" {
			return filepath.Join(dir, n), nil
		}
		return "", ErrNoMatch
	}

	for _, n := range names {
		if strings.HasSuffix(n, "."+c.Extension) && classifierOf(n) == c.Classifier {
			return filepath.Join(dir, n), nil
		}
	}
	return "", ErrNoMatch
}

// CanonicalName returns the conventional Maven name for an arbitrary pulled
// file belonging to the coordinate's artifact. Files already following the
// <artifact>-<version> convention keep their parsed classifier and extension;
// anything else is renamed best-effort from its trailing extension.
func CanonicalName(fileName string, c *coords.Coordinate) string {
	name, algo := coords.SplitChecksumName(fileName)

	canonical := canonicalBase(name, c)
	if algo != "" {
		canonical += "." + algo
	}
	return canonical
}

func canonicalBase(name string, c *coords.Coordinate) string {
	base := coords.Coordinate{Artifact: c.Artifact, Version: c.Version}

	if isPomName(name, c) {
		base.Extension = "pom"
		return base.CanonicalFileName()
	}

	if classifier, ext, ok := coords.ParseFileName(name, c.Artifact, c.Version); ok {
		base.Classifier = classifier
		base.Extension = ext
		return base.CanonicalFileName()
	}

	base.Classifier = classifierOf(name)
	if ext := strings.TrimPrefix(filepath.Ext(name), "."); ext != "" {
		base.Extension = ext
		return base.CanonicalFileName()
	}
	// No extension to go by; keep the name as published.
	return name
}

// pomAlternates lists the conventional names an artifact's POM may have been
// published under when it is not stored as <artifact>-<version>.pom.
func pomAlternates(c *coords.Coordinate) []string {
	return []string{
		"pom.xml",
		c.Artifact + ".pom",
		c.Artifact + "-" + c.Version + ".pom",
	}
}

func findPom(names []string, c *coords.Coordinate) string {
	for _, alt := range pomAlternates(c) {
		for _, n := range names {
			if n == alt {
				return n
			}
		}
	}
	return ""
}

// findChecksum picks a checksum file whose base file belongs to the same
// artifact family as the request: POM checksums only match POM-family bases,
// and jar-family checksums match on classifier.
func findChecksum(names []string, c *coords.Coordinate, algo, base string) string {
	wantPom := base == "pom"
	for _, n := range names {
		if !strings.HasSuffix(n, "."+algo) {
			continue
		}
		inner := strings.TrimSuffix(n, "."+algo)
		if wantPom {
			if isPomName(inner, c) {
				return n
			}
			continue
		}
		if base != "" && !strings.HasSuffix(inner, "."+base) {
			continue
		}
		if classifierOf(inner) == c.Classifier {
			return n
		}
	}
	return ""
}

func isPomName(name string, c *coords.Coordinate) bool {
	if strings.HasSuffix(name, ".pom") {
		return true
	}
	for _, alt := range pomAlternates(c) {
		if name == alt {
			return true
		}
	}
	return false
}

// classifierOf classifies a file into the primary/sources/javadoc variants by
// substring markers, mirroring how Maven names secondary artifacts.
func classifierOf(name string) string {
	switch {
	case strings.Contains(name, "-sources"):
		return "sources"
	case strings.Contains(name, "-javadoc"):
		return "javadoc"
	default:
		return ""
	}
}

func listFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read pull directory: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}
