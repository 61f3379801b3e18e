package corpus

import (
	"image"

	// Registers the WebP decoder with image.Decode.
	_ "github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	"github.com/pkg/errors"
)

// Open decodes an image from disk, applying its EXIF orientation.
func Open(img Image) (image.Image, error) {
	decoded, err := imaging.Open(img.Path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode image %s", img.Name)
	}
	return decoded, nil
}
