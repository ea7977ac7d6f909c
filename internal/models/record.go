package models

import "time"

// Region is one node of the 4-level administrative code tree
// (nation -> province/city -> district -> neighborhood).
type Region struct {
	Code string `json:"cortarNo"`
	Name string `json:"cortarName"`
	Type string `json:"cortarType"`
}

// ComplexSummary is one entry of a neighborhood's complex list.
type ComplexSummary struct {
	ComplexNo   string `json:"complexNo"`
	ComplexName string `json:"complexName"`
}

// ComplexMatch is a fuzzy-search candidate surfaced for disambiguation.
type ComplexMatch struct {
	Code             string  `json:"code"`
	Name             string  `json:"name"`
	Address          string  `json:"address"`
	TotalHouseholds  string  `json:"total_households"`
	ConstructionYear string  `json:"construction_year"`
	Similarity       float64 `json:"similarity"`
}

// FlatRecord is one denormalized output row: complex detail + one unit-type
// variant + latest market price + school info. Every payload-derived field is
// kept as a string exactly as the upstream formatted it; absent fields are
// empty strings.
type FlatRecord struct {
	ComplexNo    string `json:"complex_no" gorm:"primaryKey"`
	VariantIndex int    `json:"variant_index" gorm:"primaryKey"`

	// 10-digit administrative code of the complex's neighborhood. The
	// first 2 digits identify the province, the first 5 the district.
	CortarNo string `json:"cortar_no" gorm:"index"`

	// Complex detail
	Name                string `json:"name"`
	DealCount           string `json:"deal_count"`
	LeaseCount          string `json:"lease_count"`
	RentCount           string `json:"rent_count"`
	ShortTermLeaseCount string `json:"short_term_lease_count"`
	FloorAreaRatio      string `json:"floor_area_ratio"`
	BuildingCoverage    string `json:"building_coverage"`
	ParkingCount        string `json:"parking_count"`
	ParkingPerHousehold string `json:"parking_per_household"`
	HeatingMethod       string `json:"heating_method"`
	HeatingFuel         string `json:"heating_fuel"`
	ConstructionCompany string `json:"construction_company"`
	ApprovalDate        string `json:"approval_date"`
	AreaName            string `json:"area_name"`
	JibunAddress        string `json:"jibun_address"`
	RoadAddress         string `json:"road_address"`
	TotalHouseholds     string `json:"total_households"`
	LeaseHouseholds     string `json:"lease_households"`
	HighFloor           string `json:"high_floor"`
	LowFloor            string `json:"low_floor"`
	Latitude            string `json:"latitude"`
	Longitude           string `json:"longitude"`

	// Unit-type variant
	SupplyArea        string `json:"supply_area"`
	ExclusiveArea     string `json:"exclusive_area"`
	ExclusiveRate     string `json:"exclusive_rate"`
	RoomCount         string `json:"room_count"`
	BathroomCount     string `json:"bathroom_count"`
	HouseholdsByType  string `json:"households_by_type"`
	EntranceType      string `json:"entrance_type"`
	PropertyTax       string `json:"property_tax"`
	PropertyTotalTax  string `json:"property_total_tax"`
	LocalEduTax       string `json:"local_edu_tax"`
	CityAreaTax       string `json:"city_area_tax"`
	RealEstateTax     string `json:"real_estate_tax"`
	DecisionTax       string `json:"decision_tax"`
	RuralSpecialTax   string `json:"rural_special_tax"`

	// Market price (latest entry)
	DealAveragePrice       string `json:"deal_average_price"`
	DealAveragePriceChange string `json:"deal_average_price_change"`
	DealLowPrice           string `json:"deal_low_price"`
	DealUpperPrice         string `json:"deal_upper_price"`
	LeaseAveragePrice      string `json:"lease_average_price"`
	LeaseAveragePriceChange string `json:"lease_average_price_change"`
	LeaseUpperPrice        string `json:"lease_upper_price"`
	LeaseLowPrice          string `json:"lease_low_price"`
	LeasePerDealRate       string `json:"lease_per_deal_rate"`
	Deposit                string `json:"deposit"`

	// Listing price strings and maintenance fees
	WinterMaintenanceFee  string `json:"winter_maintenance_fee"`
	SummerMaintenanceFee  string `json:"summer_maintenance_fee"`
	AverageMaintenanceFee string `json:"average_maintenance_fee"`
	DealPriceString       string `json:"deal_price_string"`
	LeasePriceString      string `json:"lease_price_string"`
	RentPriceString       string `json:"rent_price_string"`

	// Elementary school (first listed, if any)
	SchoolName         string `json:"school_name"`
	SchoolOrgType      string `json:"school_org_type"`
	SchoolMaleCount    string `json:"school_male_count"`
	SchoolFemaleCount  string `json:"school_female_count"`

	CrawledAt time.Time `json:"crawled_at"`
}

// TableName keeps the gorm table aligned with the read-side SQL.
func (FlatRecord) TableName() string { return "records" }

// CrawlRun is one persisted crawl execution.
type CrawlRun struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Scope       string    `json:"scope"`
	Records     int       `json:"records"`
	Complexes   int       `json:"complexes"`
	FailedCount int       `json:"failed_count"`
	OutputFile  string    `json:"output_file"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

func (CrawlRun) TableName() string { return "crawl_runs" }

// CrawlSummary describes one finished crawl scope.
type CrawlSummary struct {
	Scope       string    `json:"scope"`
	Records     int       `json:"records"`
	Complexes   int       `json:"complexes"`
	FailedCount int       `json:"failed_count"`
	OutputFile  string    `json:"output_file"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}

// ComplexView is what the display layer receives for one resolved complex:
// the detail block, the ordered variant records, and the raw upstream payload
// for diagnostic display.
type ComplexView struct {
	ComplexNo  string       `json:"complex_no"`
	Name       string       `json:"name"`
	Records    []FlatRecord `json:"records"`
	RawPayload any          `json:"raw_payload"`
}
