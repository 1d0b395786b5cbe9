package layerfs

import (
	"path"
	"strings"
)

// Parent returns every segment of vpath but the last.
func Parent(vpath string) string {
	return path.Dir(vpath)
}

// Leaf returns the last segment of vpath.
func Leaf(vpath string) string {
	return path.Base(vpath)
}

// HasPrefix reports whether vpath lies under prefix on a segment boundary:
// "/ab" matches "/ab" and "/ab/c" but not "/abc/file".
func HasPrefix(vpath, prefix string) bool {
	_, ok := TrimPrefix(vpath, prefix)
	return ok
}

// TrimPrefix strips prefix from vpath and returns the remainder without a
// leading separator. Trailing separators on prefix are ignored, so "/" and ""
// match every path.
func TrimPrefix(vpath, prefix string) (string, bool) {
	p := strings.TrimRight(prefix, "/")
	if p == "" {
		return strings.TrimLeft(vpath, "/"), true
	}
	if vpath == p {
		return "", true
	}
	rest, ok := strings.CutPrefix(vpath, p)
	if !ok || !strings.HasPrefix(rest, "/") {
		return "", false
	}
	return strings.TrimLeft(rest, "/"), true
}
