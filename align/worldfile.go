package align

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ErrSingularWorldFile is returned when a world file cannot be inverted.
var ErrSingularWorldFile = errors.New("invalid world file parameters: determinant is zero")

// LoadWorldFile reads a six-line world file (.tfw, .pgw, .jgw ...) into the
// pixel -> CRS affine matrix.
func LoadWorldFile(path string) (AffineMatrix, error) {
	f, err := os.Open(path)
	if err != nil {
		return AffineMatrix{}, fmt.Errorf("opening world file: %w", err)
	}
	defer f.Close()

	return ParseWorldFile(f)
}

// ParseWorldFile parses world file lines in their standard order:
// x pixel size, y rotation, x rotation, y pixel size, upper-left x, upper-left y.
func ParseWorldFile(r io.Reader) (AffineMatrix, error) {
	var values []float64
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		v, err := strconv.ParseFloat(line, 64)
		if err != nil {
			return AffineMatrix{}, fmt.Errorf("world file line %d: %w", len(values)+1, err)
		}
		values = append(values, v)
		if len(values) == 6 {
			break
		}
	}
	if err := scanner.Err(); err != nil {
		return AffineMatrix{}, fmt.Errorf("reading world file: %w", err)
	}
	if len(values) < 6 {
		return AffineMatrix{}, fmt.Errorf("world file has %d values, want 6", len(values))
	}

	return AffineMatrix{
		A: values[0], D: values[3],
		C: values[1], B: values[2],
		Tx: values[4], Ty: values[5],
	}, nil
}

// PixelToCRS maps a pixel coordinate to CRS coordinates with world file m.
func PixelToCRS(m AffineMatrix, pixel Point) Point {
	return TransformPoint(pixel, m)
}

// CRSToPixel maps a CRS coordinate back to pixel space.
func CRSToPixel(m AffineMatrix, crs Point) (Point, error) {
	inv, ok := InvertMatrix(m)
	if !ok {
		return Point{}, ErrSingularWorldFile
	}
	return TransformPoint(crs, inv), nil
}
