// Package archive bridges the analysis core and on-disk folded-data
// formats. The core never touches files; a Handler loads an archive into an
// in-memory cube, applies masks and replacement values produced by the
// analysis, and saves the result back in the archive's own conventions.
package archive

import (
	"errors"
	"fmt"
	"sort"

	"github.com/v-morello/clfd/cube"
	"github.com/v-morello/clfd/mask"
)

// ErrUnknownFormat reports an archive format with no registered handler.
var ErrUnknownFormat = errors.New("archive: unknown format")

// Handler is the capability set a folded-data format must provide. Handlers
// never modify cubes in place: applying a mask returns a new cube.
type Handler interface {
	// Load reads an archive into a cube, promoting samples to float64.
	Load(path string) (*cube.Cube, error)

	// Save writes the raw data of a cube in the handler's format.
	Save(path string, c *cube.Cube) error

	// ApplyProfileMask discards the profiles flagged in a
	// (numSubints, numChans) mask using the format's own zero-weighting
	// convention.
	ApplyProfileMask(c *cube.Cube, profMask [][]bool) (*cube.Cube, error)

	// ApplySpikes patches the time-phase cells flagged by spike finding,
	// converting the normalized-scale replacement values back to the raw
	// scale and offset of the archive.
	ApplySpikes(c *cube.Cube, res *mask.SpikeResult) (*cube.Cube, error)
}

var handlers = map[string]Handler{
	"npy": NPY{},
}

// ForFormat returns the handler registered for a format name.
func ForFormat(name string) (Handler, error) {
	h, ok := handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, name)
	}

	return h, nil
}

// Formats returns the registered format names, sorted.
func Formats() []string {
	names := make([]string, 0, len(handlers))
	for name := range handlers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
