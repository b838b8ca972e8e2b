package coords

import "strings"

// ParsePath parses a Maven repository request path into a Coordinate. The
// expected layout is /<root>/<groupPath>/<artifactId>/<version>/<fileName>,
// where groupPath may span several segments. It returns nil for anything that
// cannot be interpreted as an artifact request; it never fails with an error,
// so callers treat unparseable paths as "not a recognized request".
func ParsePath(path string) *Coordinate {
	segs := strings.Split(strings.Trim(path, "/"), "/")
	// Root, at least one group segment, artifact, version, file name.
	if len(segs) < 5 {
		return nil
	}
	for _, s := range segs {
		if s == "" {
			return nil
		}
	}

	fileName := segs[len(segs)-1]
	version := segs[len(segs)-2]
	artifact := segs[len(segs)-3]
	group := strings.Join(segs[1:len(segs)-3], ".")

	classifier, ext, ok := ParseFileName(fileName, artifact, version)
	if !ok {
		return nil
	}

	return &Coordinate{
		Group:      group,
		Artifact:   artifact,
		Version:    version,
		Classifier: classifier,
		Extension:  ext,
		FileName:   fileName,
	}
}

// ParseFileName parses fileName against the grammar
// <artifact>-<version>[-<classifier>].<extension>. The file name must begin
// with "<artifact>-<version>"; this prefix check is what tolerates versions
// containing dots or extra hyphens, at the cost of rejecting names that
// disagree with the surrounding path. When the remainder does not follow the
// grammar the extension falls back to everything after the last dot, with no
// classifier.
func ParseFileName(fileName, artifact, version string) (classifier, ext string, ok bool) {
	prefix := artifact + "-" + version
	if !strings.HasPrefix(fileName, prefix) {
		return "", "", false
	}

	rest := fileName[len(prefix):]
	switch {
	case strings.HasPrefix(rest, "."):
		ext = rest[1:]
	case strings.HasPrefix(rest, "-"):
		body := rest[1:]
		if dot := strings.Index(body, "."); dot > 0 {
			classifier = body[:dot]
			ext = body[dot+1:]
		} else {
			ext = lastExtension(fileName)
		}
	default:
		ext = lastExtension(fileName)
	}

	if ext == "" {
		return "", "", false
	}
	return classifier, ext, true
}

func lastExtension(fileName string) string {
	if dot := strings.LastIndex(fileName, "."); dot > 0 && dot < len(fileName)-1 {
		return fileName[dot+1:]
	}
	return ""
}
