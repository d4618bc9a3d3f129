package align

import "strings"

// Toggles selects which parameter groups are free during a fit. Frozen groups
// stay at their identity value.
type Toggles struct {
	Translation bool `json:"translation" yaml:"translation"`
	Rotation    bool `json:"rotation" yaml:"rotation"`
	Scale       bool `json:"scale" yaml:"scale"`
}

// AllToggles enables translation, rotation and scale.
func AllToggles() Toggles {
	return Toggles{Translation: true, Rotation: true, Scale: true}
}

// Any reports whether at least one group is enabled
func (t Toggles) Any() bool {
	return t.Translation || t.Rotation || t.Scale
}

// String returns e.g. "translation+rotation", or "none"
func (t Toggles) String() string {
	var parts []string
	if t.Translation {
		parts = append(parts, "translation")
	}
	if t.Rotation {
		parts = append(parts, "rotation")
	}
	if t.Scale {
		parts = append(parts, "scale")
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, "+")
}

// Layout is the schema of the flat optimization vector: translation (dx, dy),
// then theta, then scale. A frozen group has offset -1.
type Layout struct {
	Toggles     Toggles
	translation int
	rotation    int
	scale       int
	size        int
}

// NewLayout computes the vector layout for t. It fails with
// ErrInvalidConfiguration when every group is frozen.
func NewLayout(t Toggles) (Layout, error) {
	l := Layout{Toggles: t, translation: -1, rotation: -1, scale: -1}
	if t.Translation {
		l.translation = l.size
		l.size += 2
	}
	if t.Rotation {
		l.rotation = l.size
		l.size++
	}
	if t.Scale {
		l.scale = l.size
		l.size++
	}
	if l.size == 0 {
		return Layout{}, ErrInvalidConfiguration
	}
	return l, nil
}

// Len is the number of free parameters
func (l Layout) Len() int { return l.size }

// TranslationOffset returns the index of dx, or -1 when translation is frozen.
func (l Layout) TranslationOffset() int { return l.translation }

// RotationOffset returns the index of theta, or -1.
func (l Layout) RotationOffset() int { return l.rotation }

// ScaleOffset returns the index of scale, or -1.
func (l Layout) ScaleOffset() int { return l.scale }

// Initial returns the identity starting vector.
func (l Layout) Initial() []float64 {
	return l.Pack(IdentitySimilarity())
}

// Pack writes the free components of s into a new vector.
func (l Layout) Pack(s Similarity) []float64 {
	x := make([]float64, l.size)
	if l.translation >= 0 {
		x[l.translation] = s.Translation.X
		x[l.translation+1] = s.Translation.Y
	}
	if l.rotation >= 0 {
		x[l.rotation] = s.Theta
	}
	if l.scale >= 0 {
		x[l.scale] = s.Scale
	}
	return x
}

// Unpack reads x back into a Similarity, substituting identity values for
// frozen groups.
func (l Layout) Unpack(x []float64) Similarity {
	s := IdentitySimilarity()
	if l.translation >= 0 {
		s.Translation = Point{X: x[l.translation], Y: x[l.translation+1]}
	}
	if l.rotation >= 0 {
		s.Theta = x[l.rotation]
	}
	if l.scale >= 0 {
		s.Scale = x[l.scale]
	}
	return s
}
