package kitarchive

import (
	"fmt"
	"io/fs"
)

// ConfigurationName is the member holding a kit's drumkit document.
const ConfigurationName = "drumkit.xml"

const (
	chunkSize = 8192
	entryMode = fs.FileMode(0644)
)

// Header describes one archive member. A zero size marks a non-regular entry such as a
// directory.
type Header struct {
	Path string
	Size int64
}

func (h Header) IsFile() bool {
	return h.Size > 0
}

func memberPath(kitName string, name string) string {
	return fmt.Sprintf("%s/%s", kitName, name)
}
