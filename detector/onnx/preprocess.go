package onnx

import (
	"fmt"
	"image"

	"github.com/nfnt/resize"
)

// PrepareInput fills a CHW float32 tensor with the image resized to size x size.
//
// Arguments:
//   - img: The image to prepare.
//   - dst: The destination tensor data, exactly 3*size*size floats.
//   - size: The square model input edge.
//
// Returns:
//   - error: An error if dst does not match the input size.
func PrepareInput(img image.Image, dst []float32, size int) error {
	channelSize := size * size
	if len(dst) != channelSize*3 {
		return fmt.Errorf("destination tensor holds %d floats, input size %d needs %d", len(dst), size, channelSize*3)
	}
	red := dst[0:channelSize]
	green := dst[channelSize : channelSize*2]
	blue := dst[channelSize*2 : channelSize*3]

	resized := resize.Resize(uint(size), uint(size), img, resize.Lanczos3)
	bounds := resized.Bounds()

	i := 0
	for y := bounds.Min.Y; y < bounds.Min.Y+size; y++ {
		for x := bounds.Min.X; x < bounds.Min.X+size; x++ {
			r, g, b, _ := resized.At(x, y).RGBA()
			red[i] = float32(r>>8) / 255.0
			green[i] = float32(g>>8) / 255.0
			blue[i] = float32(b>>8) / 255.0
			i++
		}
	}
	return nil
}
