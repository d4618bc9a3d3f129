package align

import (
	"fmt"
	"os"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Feature roles written to the "role" property
const (
	RoleReferencePoint   = "reference_point"
	RoleReferenceSegment = "reference_segment"
	RoleTargetPoint      = "target_point"
	RoleAdjustedPoint    = "adjusted_point"
)

// BuildFeatureCollection exports the reference geometry, the original target
// points, and each scenario's adjusted targets with their residuals. All
// coordinates are in the reference frame except the original targets.
func BuildFeatureCollection(ds *Dataset, results []ScenarioResult) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()

	for _, k := range ds.PointKeys() {
		e := ds.Entries[k]
		f := geojson.NewFeature(toOrb(pointOf(e.ReferencePosition)))
		f.Properties["key"] = k
		f.Properties["role"] = RoleReferencePoint
		fc.Append(f)
	}
	for _, k := range ds.SegmentKeys() {
		e := ds.Entries[k]
		f := geojson.NewFeature(orb.LineString{
			toOrb(pointOf(e.ReferenceSegment.Start)),
			toOrb(pointOf(e.ReferenceSegment.End)),
		})
		f.Properties["key"] = k
		f.Properties["role"] = RoleReferenceSegment
		fc.Append(f)
	}

	keys := ds.ResidualKeys()
	targets := ds.Correspondences().AllTargets()
	for i, p := range targets {
		f := geojson.NewFeature(toOrb(p))
		f.Properties["key"] = keys[i]
		f.Properties["role"] = RoleTargetPoint
		fc.Append(f)
	}

	for _, sr := range results {
		adjusted := sr.Result.Similarity.ApplyAll(targets)
		for i, p := range adjusted {
			f := geojson.NewFeature(toOrb(p))
			f.Properties["key"] = keys[i]
			f.Properties["role"] = RoleAdjustedPoint
			f.Properties["scenario"] = sr.Scenario.Label
			f.Properties["color"] = sr.Scenario.ColorName
			if i < len(sr.Residuals) {
				f.Properties["residual"] = sr.Residuals[i].Residual
			}
			fc.Append(f)
		}
	}

	return fc
}

// WriteGeoJSON writes the feature collection for results to path
func WriteGeoJSON(path string, ds *Dataset, results []ScenarioResult) error {
	data, err := BuildFeatureCollection(ds, results).MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshaling GeoJSON: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing GeoJSON file: %w", err)
	}
	return nil
}
