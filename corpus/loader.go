// Package corpus - Discovery and decoding of the benchmark image corpus.
package corpus

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// ErrEmptyCorpus is returned when a directory holds no recognised images.
var ErrEmptyCorpus = errors.New("no images found")

// DefaultExtensions are the image extensions matched when none are given.
var DefaultExtensions = []string{".jpg", ".png"}

// Image represents an image file in the corpus.
type Image struct {
	// Path is the path to the image file.
	Path string
	// Name is the display name of the image (the file's base name).
	Name string
}

// Load discovers the image files in a directory.
//
// Images are grouped by extension in the order the extensions are given and
// the groups are concatenated. Within a group, files are ordered by name.
//
// Arguments:
//   - dir: Directory path containing image files.
//   - exts: Recognised extensions including the leading dot. DefaultExtensions
//     is used when empty.
//
// Returns:
//   - []Image: The discovered images.
//   - error: ErrEmptyCorpus if nothing matched, or the error reading dir.
func Load(dir string, exts ...string) ([]Image, error) {
	if len(exts) == 0 {
		exts = DefaultExtensions
	}

	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read image directory %s", dir)
	}

	var images []Image
	for _, ext := range exts {
		for _, file := range files {
			if file.IsDir() {
				continue
			}
			if !strings.EqualFold(filepath.Ext(file.Name()), ext) {
				continue
			}
			images = append(images, Image{
				Path: filepath.Join(dir, file.Name()),
				Name: file.Name(),
			})
		}
	}

	if len(images) == 0 {
		return nil, errors.Wrap(ErrEmptyCorpus, dir)
	}

	return images, nil
}
