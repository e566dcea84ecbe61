package visualization

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"os"

	"github.com/nfnt/resize"
	"gonum.org/v1/gonum/mat"

	"perceptron/training"
)

// Sample pairs the predicted label (PL) with the actual label (AL) of one image.
type Sample struct {
	Index     int
	Predicted int
	Actual    int
}

func (s Sample) String() string {
	return fmt.Sprintf("PL: %d AL: %d", s.Predicted, s.Actual)
}

func (s Sample) Correct() bool {
	return s.Predicted == s.Actual
}

// Results turns the scores of a forward pass into one Sample per row.
// Rows without a label, or labels without a row, are dropped.
func Results(scores mat.Matrix, labels []int) []Sample {
	predicted := training.Argmax(scores)
	if len(labels) < len(predicted) {
		predicted = predicted[:len(labels)]
	}
	samples := make([]Sample, len(predicted))
	for i, p := range predicted {
		samples[i] = Sample{Index: i, Predicted: p, Actual: labels[i]}
	}
	return samples
}

// digit renders a normalised image as grayscale, darker for higher values.
func digit(pixels []float64, rows, cols int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := pixels[y*cols+x]
			if v < 0 {
				v = 0
			} else if v > 1 {
				v = 1
			}
			img.SetGray(x, y, color.Gray{Y: uint8(255 - v*255)})
		}
	}
	return img
}

// Strip lays the images out left to right, each enlarged scale times.
func Strip(images [][]float64, rows, cols, scale int) (*image.Gray, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images to draw")
	}
	if scale < 1 {
		return nil, fmt.Errorf("scale must be at least 1, got %d", scale)
	}
	for i, img := range images {
		if len(img) != rows*cols {
			return nil, fmt.Errorf("image %d has %d pixels, want %d", i, len(img), rows*cols)
		}
	}

	w, h := cols*scale, rows*scale
	strip := image.NewGray(image.Rect(0, 0, w*len(images), h))
	for i, pixels := range images {
		resized := resize.Resize(uint(w), uint(h), digit(pixels, rows, cols), resize.NearestNeighbor)
		offset := image.Rect(i*w, 0, (i+1)*w, h)
		draw.Draw(strip, offset, resized, resized.Bounds().Min, draw.Src)
	}
	return strip, nil
}

// WriteStrip encodes Strip as PNG.
func WriteStrip(out io.Writer, images [][]float64, rows, cols, scale int) error {
	strip, err := Strip(images, rows, cols, scale)
	if err != nil {
		return err
	}
	return png.Encode(out, strip)
}

func WriteStripFile(path string, images [][]float64, rows, cols, scale int) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteStrip(f, images, rows, cols, scale); err != nil {
		f.Close()
		return fmt.Errorf("write '%s': %w", path, err)
	}
	return f.Close()
}
