package align

import (
	"math"
	"testing"
)

func TestRotationScale(t *testing.T) {
	m := RotationScale(math.Pi/2, 2)
	got := m.Apply(Point{X: 1, Y: 0})
	if !pointsNear(got, Point{X: 0, Y: 2}, epsilon) {
		t.Errorf("quarter turn of (1,0) at scale 2 = %v, want (0, 2)", got)
	}
}

func TestSimilarityApply(t *testing.T) {
	tests := []struct {
		name string
		sim  Similarity
		in   Point
		want Point
	}{
		{
			name: "identity",
			sim:  IdentitySimilarity(),
			in:   Point{X: 3, Y: -7},
			want: Point{X: 3, Y: -7},
		},
		{
			name: "translation only",
			sim:  Similarity{Translation: Point{X: -3, Y: -4}, Scale: 1},
			in:   Point{X: 4, Y: 6},
			want: Point{X: 1, Y: 2},
		},
		{
			name: "half turn",
			sim:  Similarity{Theta: math.Pi, Scale: 1},
			in:   Point{X: 2, Y: 1},
			want: Point{X: -2, Y: -1},
		},
		{
			name: "scale then translate",
			sim:  Similarity{Translation: Point{X: 1, Y: 1}, Scale: 0.5},
			in:   Point{X: 4, Y: -2},
			want: Point{X: 3, Y: 0},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.sim.Apply(tt.in); !pointsNear(got, tt.want, 1e-12) {
				t.Errorf("Apply(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestOriginTranslation_MatchesCentroidFrame(t *testing.T) {
	points := []Point{{X: 10, Y: 4}, {X: -2, Y: 8}, {X: 5, Y: 5}}
	center := Centroid(points)
	theta, scale := 0.7, 1.3
	tc := Point{X: 2, Y: -1}

	m := RotationScale(theta, scale)
	sim := Similarity{Translation: originTranslation(tc, theta, scale, center), Theta: theta, Scale: scale}
	inOrigin := sim.ApplyAll(points)

	for i, p := range points {
		inCentroid := applyOne(p, m, tc, FrameCentroid, center)
		if !pointsNear(inCentroid, inOrigin[i], 1e-9) {
			t.Errorf("point %d: centroid frame %v, origin frame %v", i, inCentroid, inOrigin[i])
		}
	}
}

func TestSimilarityAffine(t *testing.T) {
	sim := Similarity{Translation: Point{X: 3, Y: -2}, Theta: 0.4, Scale: 2}
	p := Point{X: 1.5, Y: 2.5}
	if got, want := TransformPoint(p, sim.Affine()), sim.Apply(p); !pointsNear(got, want, 1e-12) {
		t.Errorf("TransformPoint = %v, Apply = %v", got, want)
	}
}

func TestInvertMatrix(t *testing.T) {
	m := Similarity{Translation: Point{X: 7, Y: 1}, Theta: -0.3, Scale: 0.8}.Affine()
	inv, ok := InvertMatrix(m)
	if !ok {
		t.Fatal("InvertMatrix reported singular for an invertible matrix")
	}

	p := Point{X: -4, Y: 9}
	round := TransformPoint(TransformPoint(p, m), inv)
	if !pointsNear(round, p, 1e-9) {
		t.Errorf("round trip = %v, want %v", round, p)
	}

	points := []Point{{X: 0, Y: 0}, {X: 3, Y: -1}, {X: -2, Y: 5}}
	back := TransformPoints(TransformPoints(points, m), inv)
	for i := range points {
		if !pointsNear(back[i], points[i], 1e-9) {
			t.Errorf("point %d round trip = %v, want %v", i, back[i], points[i])
		}
	}
}

func TestSimilarityCanonical(t *testing.T) {
	tests := []struct {
		name      string
		sim       Similarity
		wantTheta float64
		wantScale float64
	}{
		{"already canonical", Similarity{Theta: 0.7, Scale: 1.3}, 0.7, 1.3},
		{"mirrored", Similarity{Theta: 0.7 + math.Pi, Scale: -1.3}, 0.7, 1.3},
		{"wrapped turns", Similarity{Theta: 0.7 + 140*math.Pi, Scale: 1.3}, 0.7, 1.3},
		{"negative turns", Similarity{Theta: -0.5 - 3102*math.Pi, Scale: -2}, -0.5 + math.Pi, 2},
		{"minus pi", Similarity{Theta: -math.Pi, Scale: 1}, math.Pi, 1},
	}
	samples := []Point{{X: 1, Y: 0}, {X: 120, Y: -35}, {X: -4, Y: 9000}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.sim.Translation = Point{X: 50, Y: -30}
			got := tt.sim.canonical()
			if math.Abs(got.Theta-tt.wantTheta) > 1e-9 || math.Abs(got.Scale-tt.wantScale) > 1e-12 {
				t.Errorf("canonical() = (theta %v, scale %v), want (%v, %v)", got.Theta, got.Scale, tt.wantTheta, tt.wantScale)
			}
			if got.Theta <= -math.Pi || got.Theta > math.Pi {
				t.Errorf("theta %v outside (-pi, pi]", got.Theta)
			}
			for _, p := range samples {
				if a, b := tt.sim.Apply(p), got.Apply(p); !pointsNear(a, b, 1e-6) {
					t.Errorf("canonical changed the map at %v: %v vs %v", p, a, b)
				}
			}
		})
	}
}

func TestInvertMatrix_Singular(t *testing.T) {
	_, ok := InvertMatrix(AffineMatrix{A: 1, B: 2, C: 2, D: 4})
	if ok {
		t.Error("expected singular matrix to be rejected")
	}
}

func TestParseFrame(t *testing.T) {
	tests := []struct {
		in      string
		want    Frame
		wantErr bool
	}{
		{"origin", FrameOrigin, false},
		{"Centroid", FrameCentroid, false},
		{"", FrameCentroid, false},
		{"pivot", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseFrame(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFrame(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("ParseFrame(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
