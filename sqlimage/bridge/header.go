package bridge

import (
	"bytes"

	"github.com/tomyedwab/sqlimage/sqlimage/types"
)

const (
	headerSize         = 100
	headerWriteVersion = 18
	headerReadVersion  = 19

	versionLegacy = 1 // rollback journal
	versionWAL    = 2
)

var headerMagic = []byte("SQLite format 3\x00")

// rollbackHeader returns image with its file format versions set to rollback
// journal mode. WAL mode belongs to a file with -wal and -shm companions; an
// image has neither, and an in-memory engine refuses to open one marked WAL.
// The page content is unaffected: it is what PRAGMA journal_mode=DELETE
// writes to the header. image is copied before it is changed.
func rollbackHeader(image types.Image) types.Image {
	if len(image) < headerSize || !bytes.HasPrefix(image, headerMagic) {
		return image
	}
	if image[headerWriteVersion] != versionWAL && image[headerReadVersion] != versionWAL {
		return image
	}
	out := make(types.Image, len(image))
	copy(out, image)
	for _, i := range []int{headerWriteVersion, headerReadVersion} {
		if out[i] == versionWAL {
			out[i] = versionLegacy
		}
	}
	return out
}
