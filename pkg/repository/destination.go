package repository

import (
	"fmt"
	"strings"
)

// destination reshapes a flat object name "<id>.<kind>" into its
// repository-relative key "<kind>s/<id>.<kind>", so prefix listing at the
// backend stays cheap. The cache layer only ever sees the flat form; the
// backend only ever sees this reshaped form.
func destination(name string) string {
	ext := strings.TrimPrefix(strings.ToLower(lastExt(name)), ".")
	switch ext {
	case "pack", "index", "snapshot":
		return ext + "s/" + name
	default:
		panic(fmt.Sprintf("repository: destination: unrecognized object name %q", name))
	}
}

func lastExt(name string) string {
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		return name[i:]
	}
	return ""
}

const (
	packsPrefix     = "packs/"
	indexesPrefix   = "indexes/"
	snapshotsPrefix = "snapshots/"
)
