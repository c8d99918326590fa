package predictor

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// ImageNet channel means in BGR order, as used by caffe-style VGG preprocessing.
var caffeMeansBGR = [3]float32{103.939, 116.779, 123.68}

// Tensor decodes image, resizes it to size x size, and returns a flat
// NHWC float32 buffer of shape [1, size, size, 3].
//
// Channels are laid out in order ("rgb" or "bgr"). Preprocess "caffe" subtracts
// the BGR ImageNet means position-wise; "unit" scales to [0, 1].
func Tensor(image []byte, size int, preprocess, order string) ([]float32, error) {
	img, err := imaging.Decode(bytes.NewReader(image), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImage, err)
	}

	resized := imaging.Resize(img, size, size, imaging.Linear)

	out := make([]float32, 0, size*size*3)
	for y := range size {
		for x := range size {
			off := resized.PixOffset(x, y)
			r := float32(resized.Pix[off])
			g := float32(resized.Pix[off+1])
			b := float32(resized.Pix[off+2])

			px := [3]float32{r, g, b}
			if order == "bgr" {
				px = [3]float32{b, g, r}
			}

			for c := range 3 {
				switch preprocess {
				case PreprocessUnit:
					px[c] /= 255
				default:
					px[c] -= caffeMeansBGR[c]
				}
			}
			out = append(out, px[0], px[1], px[2])
		}
	}

	return out, nil
}
