// Package coords models Maven artifact coordinates and the translation between
// Maven repository paths and registry-legal names.
package coords

import "strings"

// checksumAlgos are the checksum suffixes Maven resolvers request alongside
// artifacts. They are treated as part of the extension, never split off during
// parsing.
var checksumAlgos = []string{"sha1", "md5", "sha256", "sha512"}

// Coordinate identifies one file within a Maven artifact. Immutable once
// produced by ParsePath.
type Coordinate struct {
	Group      string
	Artifact   string
	Version    string
	Classifier string // empty for the primary artifact
	Extension  string // includes checksum suffixes, e.g. "jar.sha1"
	FileName   string // the file name as requested
}

// CacheKey returns the session and persistent cache key for the coordinate.
func (c *Coordinate) CacheKey() string {
	parts := []string{c.Group, c.Artifact, c.Version}
	if c.Classifier != "" {
		parts = append(parts, c.Classifier)
	}
	parts = append(parts, c.Extension)
	return strings.Join(parts, ":")
}

// CanonicalFileName returns the conventional Maven file name for the
// coordinate: <artifact>-<version>[-<classifier>].<extension>.
func (c *Coordinate) CanonicalFileName() string {
	name := c.Artifact + "-" + c.Version
	if c.Classifier != "" {
		name += "-" + c.Classifier
	}
	return name + "." + c.Extension
}

// IsPom reports whether the coordinate requests the artifact's POM.
func (c *Coordinate) IsPom() bool {
	return c.Extension == "pom"
}

// Checksum splits a checksum extension into the algorithm and the extension of
// the file being checksummed. For "jar.sha1" it returns ("sha1", "jar", true);
// for a bare "sha1" the base is empty. ok is false when the coordinate does not
// request a checksum.
func (c *Coordinate) Checksum() (algo, base string, ok bool) {
	for _, a := range checksumAlgos {
		if c.Extension == a {
			return a, "", true
		}
		if strings.HasSuffix(c.Extension, "."+a) {
			return a, strings.TrimSuffix(c.Extension, "."+a), true
		}
	}
	return "", "", false
}

// SplitChecksumName strips a checksum suffix from a file name. For
// "lib-1.0.0.jar.sha1" it returns ("lib-1.0.0.jar", "sha1"); for names without
// a checksum suffix algo is empty.
func SplitChecksumName(name string) (base, algo string) {
	for _, a := range checksumAlgos {
		if strings.HasSuffix(name, "."+a) {
			return strings.TrimSuffix(name, "."+a), a
		}
	}
	return name, ""
}
