package align

import (
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// Entry types and the default mode
const (
	EntryPoint   = "point"
	EntrySegment = "segment"

	ModeOptimize = "optimize"
)

// SegmentEntry is a reference segment as written in a dataset file
type SegmentEntry struct {
	Start []float64 `yaml:"start"`
	End   []float64 `yaml:"end"`
}

// Entry is one keyed correspondence in a dataset file. Point entries carry
// reference_position/target_position; segment entries carry
// reference_segment/target_points.
type Entry struct {
	Type              string        `yaml:"type"`
	Mode              string        `yaml:"mode"`
	ReferencePosition []float64     `yaml:"reference_position,omitempty"`
	TargetPosition    []float64     `yaml:"target_position,omitempty"`
	ReferenceSegment  *SegmentEntry `yaml:"reference_segment,omitempty"`
	TargetPoints      [][]float64   `yaml:"target_points,omitempty"`
}

// Dataset holds keyed correspondences in file order.
type Dataset struct {
	Keys    []string
	Entries map[string]Entry
}

// LoadDataset reads and validates a YAML dataset file
func LoadDataset(path string) (*Dataset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("dataset file not found: %s", path)
		}
		return nil, fmt.Errorf("reading dataset file: %w", err)
	}
	return ParseDataset(data)
}

// ParseDataset decodes a YAML mapping of key -> Entry, keeping the key order
// of the document.
func ParseDataset(data []byte) (*Dataset, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing dataset YAML: %w", err)
	}

	ds := &Dataset{Entries: make(map[string]Entry)}
	if len(doc.Content) == 0 {
		return ds, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("dataset must be a mapping of keys to entries")
	}

	for i := 0; i+1 < len(root.Content); i += 2 {
		key := root.Content[i].Value
		var e Entry
		if err := root.Content[i+1].Decode(&e); err != nil {
			return nil, fmt.Errorf("decoding entry %q: %w", key, err)
		}
		if e.Mode == "" {
			e.Mode = ModeOptimize
		}
		if err := e.validate(); err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		if _, dup := ds.Entries[key]; dup {
			return nil, fmt.Errorf("duplicate entry %q", key)
		}
		ds.Keys = append(ds.Keys, key)
		ds.Entries[key] = e
	}

	return ds, nil
}

func (e Entry) validate() error {
	switch e.Type {
	case EntryPoint:
		if err := checkCoord("reference_position", e.ReferencePosition); err != nil {
			return err
		}
		return checkCoord("target_position", e.TargetPosition)
	case EntrySegment:
		if e.ReferenceSegment == nil {
			return fmt.Errorf("reference_segment is required")
		}
		if err := checkCoord("reference_segment.start", e.ReferenceSegment.Start); err != nil {
			return err
		}
		if err := checkCoord("reference_segment.end", e.ReferenceSegment.End); err != nil {
			return err
		}
		for i, p := range e.TargetPoints {
			if err := checkCoord(fmt.Sprintf("target_points[%d]", i), p); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown type %q (want %s or %s)", e.Type, EntryPoint, EntrySegment)
	}
}

func checkCoord(field string, c []float64) error {
	if len(c) != 2 {
		return fmt.Errorf("%s must have 2 coordinates, got %d", field, len(c))
	}
	return nil
}

func pointOf(c []float64) Point {
	return Point{X: c[0], Y: c[1]}
}

// Filter returns the entries whose mode is one of modes.
func (ds *Dataset) Filter(modes ...string) *Dataset {
	out := &Dataset{Entries: make(map[string]Entry)}
	for _, k := range ds.Keys {
		e := ds.Entries[k]
		if slices.Contains(modes, e.Mode) {
			out.Keys = append(out.Keys, k)
			out.Entries[k] = e
		}
	}
	return out
}

// PointKeys returns the keys of point entries in order
func (ds *Dataset) PointKeys() []string {
	return ds.keysOfType(EntryPoint)
}

// SegmentKeys returns the keys of segment entries in order
func (ds *Dataset) SegmentKeys() []string {
	return ds.keysOfType(EntrySegment)
}

func (ds *Dataset) keysOfType(typ string) []string {
	var keys []string
	for _, k := range ds.Keys {
		if ds.Entries[k].Type == typ {
			keys = append(keys, k)
		}
	}
	return keys
}

// Correspondences converts the dataset into the fit input. Point entries come
// first, then segment entries, each in file order.
func (ds *Dataset) Correspondences() Correspondences {
	var c Correspondences
	for _, k := range ds.PointKeys() {
		e := ds.Entries[k]
		c.ReferencePoints = append(c.ReferencePoints, pointOf(e.ReferencePosition))
		c.TargetPoints = append(c.TargetPoints, pointOf(e.TargetPosition))
	}
	for _, k := range ds.SegmentKeys() {
		e := ds.Entries[k]
		m := SegmentMatch{
			Reference: Segment{
				Start: pointOf(e.ReferenceSegment.Start),
				End:   pointOf(e.ReferenceSegment.End),
			},
			Targets: make([]Point, 0, len(e.TargetPoints)),
		}
		for _, tp := range e.TargetPoints {
			m.Targets = append(m.Targets, pointOf(tp))
		}
		c.Segments = append(c.Segments, m)
	}
	return c
}

// ResidualKeys names each element of the residual vector produced from
// Correspondences: the point key, then "<segment>_Point<n>" per segment target.
func (ds *Dataset) ResidualKeys() []string {
	var keys []string
	keys = append(keys, ds.PointKeys()...)
	for _, k := range ds.SegmentKeys() {
		for i := range ds.Entries[k].TargetPoints {
			keys = append(keys, fmt.Sprintf("%s_Point%d", k, i+1))
		}
	}
	return keys
}
