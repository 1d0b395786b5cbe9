// Package layerfs provides a layered, read-only virtual filesystem.
//
// Clients address files by virtual path. Bytes come from backing stores
// mounted under a prefix, or from bundles: single files inside a store whose
// contents decode into named entries. A bundle is mounted transparently the
// first time a path below it is requested and stays cached for the life of
// the Filesystem.
//
// Basic usage:
//
//	fsys := layerfs.New()
//	fsys.Mount(layerfs.NewStdStore("/game", "/data/game"))
//
//	// Plain file on disk: /data/game/config.json
//	data, ok := fsys.Read("/game/config.json")
//
//	// Entry inside the bundle /data/game/assets.bundle, decoded once
//	data, ok = fsys.Read("/game/assets.bundle/hero.png")
//
//	if fsys.Exists("/game/assets.bundle/villain.png") { ... }
//
// Stores are consulted in mount order; the first one that answers wins.
// Every miss, whatever its cause, is reported the same way: false from
// Exists and Read, or ErrNotFound from ReadFile.
package layerfs
