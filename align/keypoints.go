package align

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
)

// Direction selects the keypoint conversion performed with a world file
type Direction int

const (
	DirectionPixelToCRS Direction = iota
	DirectionCRSToPixel
)

// String returns the CLI name of the direction
func (d Direction) String() string {
	if d == DirectionCRSToPixel {
		return "crs_to_pixel"
	}
	return "pixel_to_crs"
}

// ParseDirection parses "pixel_to_crs" or "crs_to_pixel"
func ParseDirection(s string) (Direction, error) {
	switch s {
	case "pixel_to_crs", "":
		return DirectionPixelToCRS, nil
	case "crs_to_pixel":
		return DirectionCRSToPixel, nil
	default:
		return 0, fmt.Errorf("unknown direction %q (want pixel_to_crs or crs_to_pixel)", s)
	}
}

// columns returns the input and output column names for d
func (d Direction) columns() (inX, inY, outX, outY string) {
	if d == DirectionCRSToPixel {
		return "x_crs", "y_crs", "x_pixel", "y_pixel"
	}
	return "x_pixel", "y_pixel", "x_crs", "y_crs"
}

// ConvertKeypoints reads a keypoint CSV with a header row, converts the input
// columns for direction d, and writes the CSV with the output columns added or
// overwritten. Other columns pass through untouched.
func ConvertKeypoints(r io.Reader, w io.Writer, m AffineMatrix, d Direction) error {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return fmt.Errorf("reading keypoints CSV: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("keypoints CSV is empty")
	}

	inX, inY, outX, outY := d.columns()
	header := records[0]
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[name] = i
	}
	xi, okX := index[inX]
	yi, okY := index[inY]
	if !okX || !okY {
		return fmt.Errorf("CSV file must contain '%s' and '%s' columns", inX, inY)
	}

	header, oxi := ensureColumn(header, index, outX)
	header, oyi := ensureColumn(header, index, outY)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing keypoints CSV: %w", err)
	}
	for line, rec := range records[1:] {
		x, err := strconv.ParseFloat(rec[xi], 64)
		if err != nil {
			return fmt.Errorf("row %d %s: %w", line+2, inX, err)
		}
		y, err := strconv.ParseFloat(rec[yi], 64)
		if err != nil {
			return fmt.Errorf("row %d %s: %w", line+2, inY, err)
		}

		var out Point
		if d == DirectionCRSToPixel {
			if out, err = CRSToPixel(m, Point{X: x, Y: y}); err != nil {
				return fmt.Errorf("row %d: %w", line+2, err)
			}
		} else {
			out = PixelToCRS(m, Point{X: x, Y: y})
		}

		for len(rec) < len(header) {
			rec = append(rec, "")
		}
		rec[oxi] = strconv.FormatFloat(out.X, 'f', -1, 64)
		rec[oyi] = strconv.FormatFloat(out.Y, 'f', -1, 64)
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("writing keypoints CSV: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func ensureColumn(header []string, index map[string]int, name string) ([]string, int) {
	if i, ok := index[name]; ok {
		return header, i
	}
	index[name] = len(header)
	return append(header, name), len(header)
}

// ConvertKeypointsFile converts a keypoint CSV in place.
func ConvertKeypointsFile(path string, m AffineMatrix, d Direction) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading keypoints file: %w", err)
	}

	var buf bytes.Buffer
	if err := ConvertKeypoints(bytes.NewReader(data), &buf, m, d); err != nil {
		return err
	}

	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing keypoints file: %w", err)
	}
	return nil
}
