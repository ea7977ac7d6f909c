package geometry

import (
	"fmt"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"danji/server/internal/database"
	"danji/server/internal/models"
)

// DistrictManager derives district outlines from the coordinates of the
// crawled complexes.
type DistrictManager struct {
	db     *database.Database
	logger *logrus.Logger
}

func NewDistrictManager(db *database.Database, logger *logrus.Logger) *DistrictManager {
	return &DistrictManager{
		db:     db,
		logger: logger,
	}
}

// DistrictBounds returns the bounding box and convex hull of one district's
// complexes. Hull coordinates are [longitude, latitude] pairs.
func (dm *DistrictManager) DistrictBounds(districtCode string) (*models.DistrictBounds, error) {
	points, err := dm.db.GetComplexPoints(districtCode)
	if err != nil {
		return nil, fmt.Errorf("failed to load complex points: %w", err)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("no located complexes for district %s", districtCode)
	}

	mp := make(orb.MultiPoint, len(points))
	for i, p := range points {
		mp[i] = orb.Point{p.Longitude, p.Latitude}
	}
	bound := mp.Bound()

	bounds := &models.DistrictBounds{
		DistrictCode: districtCode,
		Complexes:    len(points),
		MinLatitude:  bound.Min[1],
		MaxLatitude:  bound.Max[1],
		MinLongitude: bound.Min[0],
		MaxLongitude: bound.Max[0],
	}

	hull := convexHull(mp)
	for _, p := range hull {
		bounds.Hull = append(bounds.Hull, [2]float64{p[0], p[1]})
	}
	return bounds, nil
}

// AllDistrictBounds computes bounds for every district present in the store.
func (dm *DistrictManager) AllDistrictBounds() ([]models.DistrictBounds, error) {
	prefixes, err := dm.db.GetDistrictPrefixes()
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}

	var all []models.DistrictBounds
	for _, prefix := range prefixes {
		bounds, err := dm.DistrictBounds(prefix)
		if err != nil {
			dm.logger.WithError(err).WithField("district", prefix).Warn("Skipping district")
			continue
		}
		all = append(all, *bounds)
	}
	return all, nil
}

// DistrictHulls renders every district hull as a GeoJSON feature collection.
func (dm *DistrictManager) DistrictHulls() (*geojson.FeatureCollection, error) {
	prefixes, err := dm.db.GetDistrictPrefixes()
	if err != nil {
		return nil, fmt.Errorf("failed to list districts: %w", err)
	}

	fc := geojson.NewFeatureCollection()
	for _, prefix := range prefixes {
		points, err := dm.db.GetComplexPoints(prefix)
		if err != nil {
			dm.logger.WithError(err).WithField("district", prefix).Warn("Skipping district")
			continue
		}
		if len(points) < 3 {
			dm.logger.Warnf("Not enough points for district %s (minimum 3 required)", prefix)
			continue
		}

		mp := make(orb.MultiPoint, len(points))
		for i, p := range points {
			mp[i] = orb.Point{p.Longitude, p.Latitude}
		}

		hull := convexHull(mp)
		if len(hull) < 4 {
			continue
		}

		feature := geojson.NewFeature(orb.Polygon{hull})
		feature.Properties = geojson.Properties{
			"district":    prefix,
			"point_count": len(points),
			"hull_type":   "convex",
		}
		fc.Append(feature)
	}
	return fc, nil
}

// convexHull builds the closed hull ring with the monotone chain scan.
// Collinear input or fewer than 3 distinct points yields a nil ring.
func convexHull(points []orb.Point) orb.Ring {
	if len(points) < 3 {
		return nil
	}

	sorted := make([]orb.Point, len(points))
	copy(sorted, points)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i][0] != sorted[j][0] {
			return sorted[i][0] < sorted[j][0]
		}
		return sorted[i][1] < sorted[j][1]
	})

	var lower []orb.Point
	for _, p := range sorted {
		for len(lower) >= 2 && cross(lower[len(lower)-2], lower[len(lower)-1], p) <= 0 {
			lower = lower[:len(lower)-1]
		}
		lower = append(lower, p)
	}

	var upper []orb.Point
	for i := len(sorted) - 1; i >= 0; i-- {
		p := sorted[i]
		for len(upper) >= 2 && cross(upper[len(upper)-2], upper[len(upper)-1], p) <= 0 {
			upper = upper[:len(upper)-1]
		}
		upper = append(upper, p)
	}

	hull := append(lower[:len(lower)-1], upper[:len(upper)-1]...)
	if len(hull) < 3 {
		return nil
	}
	return orb.Ring(append(hull, hull[0]))
}

func cross(o, a, b orb.Point) float64 {
	return (a[0]-o[0])*(b[1]-o[1]) - (a[1]-o[1])*(b[0]-o[0])
}
