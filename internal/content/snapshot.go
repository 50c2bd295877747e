package content

import (
	"io/fs"
	"time"
)

// Snapshot is one immutable unit of site content: the extracted bundle
// filesystem, how it was obtained, and the bundle's own manifest when
// it carries one.
type Snapshot struct {
	FS       fs.FS
	Meta     Meta
	Manifest *Manifest
	LoadedAt time.Time
}
