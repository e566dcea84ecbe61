package preprocessing

import (
	"compress/gzip"
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/mat"
)

const (
	TrainImagesFile = "train-images-idx3-ubyte.gz"
	TrainLabelsFile = "train-labels-idx1-ubyte.gz"
	TestImagesFile  = "t10k-images-idx3-ubyte.gz"
	TestLabelsFile  = "t10k-labels-idx1-ubyte.gz"

	TrainExamples = 60000
	TestExamples  = 10000

	imagesMagic = 2051
	labelsMagic = 2049

	// maxImagePixels bounds rows*cols read from an image header.
	maxImagePixels = 1 << 20
)

var (
	ErrBadMagic      = errors.New("bad idx magic number")
	ErrShortFile     = errors.New("not enough records")
	ErrChecksum      = errors.New("checksum mismatch")
	ErrCountMismatch = errors.New("image and label counts differ")
	ErrBadDimensions = errors.New("bad image dimensions")
)

// sha256 digests of the canonical MNIST distribution files.
var digests = map[string]string{
	TrainImagesFile: "440fcabf73cc546fa21475e81ea370265605f56be210a4024d2ca8f203523609",
	TrainLabelsFile: "3552534a0a558bbed6aed32b30c495cca23d567ec52cac8be1a0730e8010255c",
	TestImagesFile:  "8d422c7b0a1c1c79245a5bcf07fe86e33eeafee792b84584aec276f5a2dbc4e6",
	TestLabelsFile:  "f7ae60f92e00ec6debd23a6088c31dbd2371eca3ffa0defaefb259924204aec6",
}

// Data is a labelled image set. Every image is Rows*Cols pixels in [0, 1],
// stored row-major.
type Data struct {
	Labels []int
	Images [][]float64
	Rows   int
	Cols   int
}

func (d Data) Len() int {
	return len(d.Labels)
}

// Dense packs the images into a Len() x Rows*Cols matrix.
func (d Data) Dense() *mat.Dense {
	cols := d.Rows * d.Cols
	data := make([]float64, len(d.Images)*cols)
	for i, img := range d.Images {
		copy(data[i*cols:(i+1)*cols], img)
	}
	return mat.NewDense(len(d.Images), cols, data)
}

// Head returns the first n examples, or all of them if there are fewer.
func (d Data) Head(n int) Data {
	if n > d.Len() || n < 0 {
		n = d.Len()
	}
	return Data{
		Labels: d.Labels[:n],
		Images: d.Images[:n],
		Rows:   d.Rows,
		Cols:   d.Cols,
	}
}

// Shuffle returns a copy of d with its examples permuted by seed.
func (d Data) Shuffle(seed int64) Data {
	shuffled := Data{
		Labels: make([]int, len(d.Labels)),
		Images: make([][]float64, len(d.Images)),
		Rows:   d.Rows,
		Cols:   d.Cols,
	}

	perm := rand.New(rand.NewSource(seed)).Perm(len(d.Images))
	for i, j := range perm {
		shuffled.Labels[i] = d.Labels[j]
		shuffled.Images[i] = d.Images[j]
	}

	return shuffled
}

// GetData reads the first numExamples images and labels from a pair of
// gzipped IDX files. numExamples <= 0 reads everything.
func GetData(imagesPath, labelsPath string, numExamples int) (Data, error) {
	var d Data
	err := readGzip(imagesPath, func(r io.Reader) error {
		var err error
		d.Images, d.Rows, d.Cols, err = ReadImages(r, numExamples)
		return err
	})
	if err != nil {
		return Data{}, err
	}
	err = readGzip(labelsPath, func(r io.Reader) error {
		var err error
		d.Labels, err = ReadLabels(r, numExamples)
		return err
	})
	if err != nil {
		return Data{}, err
	}
	if len(d.Images) != len(d.Labels) {
		return Data{}, fmt.Errorf("%w: %d images, %d labels", ErrCountMismatch, len(d.Images), len(d.Labels))
	}
	return d, nil
}

// Load reads the train (or t10k) pair from dir, verifying the canonical
// checksums first when verify is set.
func Load(dir string, train bool, numExamples int, verify bool) (Data, error) {
	images, labels := TestImagesFile, TestLabelsFile
	if train {
		images, labels = TrainImagesFile, TrainLabelsFile
	}
	images, labels = filepath.Join(dir, images), filepath.Join(dir, labels)
	if verify {
		for _, path := range []string{images, labels} {
			if err := VerifyChecksum(path); err != nil {
				return Data{}, err
			}
		}
	}
	return GetData(images, labels, numExamples)
}

func readGzip(path string, fn func(io.Reader) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("gzip file '%s': %w", path, err)
	}
	defer gz.Close()

	if err := fn(gz); err != nil {
		return fmt.Errorf("read '%s': %w", path, err)
	}
	return nil
}

// ReadImages parses an uncompressed IDX3 image stream and returns up to n
// images normalised to [0, 1].
func ReadImages(r io.Reader, n int) ([][]float64, int, int, error) {
	if err := readMagic(r, imagesMagic); err != nil {
		return nil, 0, 0, err
	}
	var header struct {
		Count, Rows, Cols uint32
	}
	if err := binary.Read(r, binary.BigEndian, &header); err != nil {
		return nil, 0, 0, fmt.Errorf("images header: %w", err)
	}
	count, err := recordCount(int(header.Count), n)
	if err != nil {
		return nil, 0, 0, err
	}

	rows, cols := int(header.Rows), int(header.Cols)
	size := rows * cols
	if size <= 0 || size > maxImagePixels {
		return nil, 0, 0, fmt.Errorf("%w: %dx%d", ErrBadDimensions, rows, cols)
	}

	// Read one image at a time so a lying count fails on the payload,
	// not on a huge allocation.
	buf := make([]byte, size)
	var images [][]float64
	for i := 0; i < count; i++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, 0, 0, fmt.Errorf("%w: image %d: %v", ErrShortFile, i, err)
		}
		img := make([]float64, size)
		for j, px := range buf {
			img[j] = float64(px) / 255.0
		}
		images = append(images, img)
	}
	return images, rows, cols, nil
}

// ReadLabels parses an uncompressed IDX1 label stream and returns up to n labels.
func ReadLabels(r io.Reader, n int) ([]int, error) {
	if err := readMagic(r, labelsMagic); err != nil {
		return nil, err
	}
	var count32 uint32
	if err := binary.Read(r, binary.BigEndian, &count32); err != nil {
		return nil, fmt.Errorf("labels header: %w", err)
	}
	count, err := recordCount(int(count32), n)
	if err != nil {
		return nil, err
	}

	buf, err := io.ReadAll(io.LimitReader(r, int64(count)))
	if err != nil {
		return nil, fmt.Errorf("labels: %w", err)
	}
	if len(buf) < count {
		return nil, fmt.Errorf("%w: labels: got %d, want %d", ErrShortFile, len(buf), count)
	}
	labels := make([]int, count)
	for i, b := range buf {
		labels[i] = int(b)
	}
	return labels, nil
}

func readMagic(r io.Reader, want uint32) error {
	var magic uint32
	if err := binary.Read(r, binary.BigEndian, &magic); err != nil {
		return fmt.Errorf("magic number: %w", err)
	}
	if magic != want {
		return fmt.Errorf("%w: got %d, want %d", ErrBadMagic, magic, want)
	}
	return nil
}

func recordCount(available, requested int) (int, error) {
	if requested <= 0 {
		requested = available
	}
	if requested > available {
		return 0, fmt.Errorf("%w: want %d, file has %d", ErrShortFile, requested, available)
	}
	if requested == 0 {
		return 0, fmt.Errorf("%w: file is empty", ErrShortFile)
	}
	return requested, nil
}

// VerifyChecksum compares the sha256 of a canonical MNIST file with its
// published digest. The file is identified by its base name.
func VerifyChecksum(path string) error {
	name := filepath.Base(path)
	want, ok := digests[name]
	if !ok {
		return fmt.Errorf("no known digest for '%s'", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return fmt.Errorf("hash '%s': %w", path, err)
	}
	if got := fmt.Sprintf("%x", h.Sum(nil)); got != want {
		return fmt.Errorf("%w: '%s' has sha256 %s", ErrChecksum, path, got)
	}
	return nil
}
