package models

// RecordStats summarizes the record store for the stats endpoint.
type RecordStats struct {
	TotalRecords   int    `json:"total_records"`
	TotalComplexes int    `json:"total_complexes"`
	TotalDistricts int    `json:"total_districts"`
	LastCrawledAt  string `json:"last_crawled_at"`
}

// ComplexPoint is one complex reduced to a map coordinate.
type ComplexPoint struct {
	ComplexNo string  `json:"complex_no"`
	Name      string  `json:"name"`
	CortarNo  string  `json:"cortar_no"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// DistrictBounds is the convex hull and bounding box of one district's
// complexes.
type DistrictBounds struct {
	DistrictCode string       `json:"district_code"`
	Complexes    int          `json:"complexes"`
	Hull         [][2]float64 `json:"hull"`
	MinLatitude  float64      `json:"min_latitude"`
	MaxLatitude  float64      `json:"max_latitude"`
	MinLongitude float64      `json:"min_longitude"`
	MaxLongitude float64      `json:"max_longitude"`
}
