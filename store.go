package layerfs

// BackingStore answers existence and read queries for the virtual paths
// under its mount. Paths outside the mount, missing files and I/O failures
// are all reported as a miss so the caller can move on to the next store.
type BackingStore interface {
	// Exists reports whether vpath maps to an existing regular file.
	Exists(vpath string) bool

	// Read returns the whole content of vpath.
	Read(vpath string) ([]byte, bool)
}
