// Package extract flattens the nested per-complex payloads into FlatRecords.
// One record is produced per area-name entry, position-aligned with the
// unit-type detail list; the alignment is positional because the upstream
// API exposes no join key between the two lists.
package extract

import (
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"danji/server/internal/jsonpath"
	"danji/server/internal/models"
)

type Extractor struct {
	logger *logrus.Logger
}

func NewExtractor(logger *logrus.Logger) *Extractor {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Extractor{logger: logger}
}

// AreaNames pulls the comma-separated area-name list out of a detail payload.
// Its entries index the unit-type detail list positionally.
func AreaNames(detail any) []string {
	raw := jsonpath.String(detail, jsonpath.P("complexDetail", "pyoengNames"), "")
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ", ")
	names := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}

// Extract produces one FlatRecord per entry of areaNames. units is the
// per-unit-type detail list and prices the per-variant price payloads, both
// aligned by index with areaNames; prices may be shorter or hold nils. When
// the unit list diverges in length from the area names the divergence is
// logged and the missing side defaults to empty fields rather than failing
// the complex.
func (e *Extractor) Extract(complexNo string, detail any, units []any, prices []any, school any, areaNames []string) []models.FlatRecord {
	if len(units) != len(areaNames) {
		e.logger.WithFields(logrus.Fields{
			"complex_no": complexNo,
			"area_names": len(areaNames),
			"unit_types": len(units),
		}).Warn("Area-name list and unit-type list lengths diverge")
	}

	now := time.Now()
	records := make([]models.FlatRecord, 0, len(areaNames))
	for i, area := range areaNames {
		var unit any
		if i < len(units) {
			unit = units[i]
		}
		var price any
		if i < len(prices) {
			price = prices[i]
		}
		records = append(records, e.extractOne(complexNo, i, area, detail, unit, price, school, now))
	}
	return records
}

func (e *Extractor) extractOne(complexNo string, idx int, area string, detail, unit, price, school any, now time.Time) models.FlatRecord {
	det := func(field string) string {
		return jsonpath.String(detail, jsonpath.P("complexDetail", field), "")
	}
	unitField := func(path ...jsonpath.Step) string {
		return jsonpath.String(unit, jsonpath.Path(path), "")
	}
	market := func(field string) string {
		return jsonpath.String(price, jsonpath.P("marketPrices", 0, field), "")
	}
	priceUnit := func(path ...jsonpath.Step) string {
		full := append(jsonpath.P("complexPyeongDetailList", idx), path...)
		return jsonpath.String(price, full, "")
	}

	rec := models.FlatRecord{
		ComplexNo:    complexNo,
		VariantIndex: idx,
		CortarNo:     det("cortarNo"),
		AreaName:     area,

		Name:                det("complexName"),
		DealCount:           det("dealCount"),
		LeaseCount:          det("leaseCount"),
		RentCount:           det("rentCount"),
		ShortTermLeaseCount: det("shortTermLeaseCount"),
		FloorAreaRatio:      det("batlRatio"),
		BuildingCoverage:    det("btlRatio"),
		ParkingCount:        det("parkingPossibleCount"),
		ParkingPerHousehold: det("parkingCountByHousehold"),
		HeatingMethod:       det("heatMethodTypeCode"),
		HeatingFuel:         det("heatFuelTypeCode"),
		ConstructionCompany: det("constructionCompanyName"),
		ApprovalDate:        det("useApproveYmd"),
		JibunAddress:        strings.TrimSpace(det("address") + " " + det("detailAddress")),
		RoadAddress:         strings.TrimSpace(det("roadAddressPrefix") + " " + det("roadAddress")),
		TotalHouseholds:     det("totalHouseholdCount"),
		LeaseHouseholds:     det("totalLeaseHouseholdCount"),
		HighFloor:           det("highFloor"),
		LowFloor:            det("lowFloor"),
		Latitude:            det("latitude"),
		Longitude:           det("longitude"),

		SupplyArea:       unitField("supplyArea"),
		ExclusiveArea:    unitField("exclusiveArea"),
		ExclusiveRate:    unitField("exclusiveRate"),
		RoomCount:        unitField("roomCnt"),
		BathroomCount:    unitField("bathroomCnt"),
		HouseholdsByType: unitField("householdCountByPyeong"),
		EntranceType:     unitField("entranceType"),
		PropertyTax:      unitField("landPriceMaxByPtp", "landPriceTax", "propertyTax"),
		PropertyTotalTax: unitField("landPriceMaxByPtp", "landPriceTax", "propertyTotalTax"),
		LocalEduTax:      unitField("landPriceMaxByPtp", "landPriceTax", "localEduTax"),
		CityAreaTax:      unitField("landPriceMaxByPtp", "landPriceTax", "cityAreaTax"),
		RealEstateTax:    unitField("landPriceMaxByPtp", "landPriceTax", "realEstateTotalTax"),
		DecisionTax:      unitField("landPriceMaxByPtp", "landPriceTax", "decisionTax"),
		RuralSpecialTax:  unitField("landPriceMaxByPtp", "landPriceTax", "ruralSpecialTax"),

		DealAveragePrice:        market("dealAveragePrice"),
		DealAveragePriceChange:  market("dealAveragePriceChangeAmount"),
		DealLowPrice:            market("dealLowPriceLimit"),
		DealUpperPrice:          market("dealUpperPriceLimit"),
		LeaseAveragePrice:       market("leaseAveragePrice"),
		LeaseAveragePriceChange: market("leaseAveragePriceChangeAmount"),
		LeaseUpperPrice:         market("leaseUpperPriceLimit"),
		LeaseLowPrice:           market("lowPriceLimit"),
		LeasePerDealRate:        market("leasePerDealRate"),
		Deposit:                 market("deposit"),

		WinterMaintenanceFee:  priceUnit("averageMaintenanceCost", "winterTotalPrice"),
		SummerMaintenanceFee:  priceUnit("averageMaintenanceCost", "summerTotalPrice"),
		AverageMaintenanceFee: priceUnit("averageMaintenanceCost", "averageTotalPrice"),
		DealPriceString:       priceUnit("articleStatistics", "dealPriceString"),
		LeasePriceString:      priceUnit("articleStatistics", "leasePriceString"),
		RentPriceString:       priceUnit("articleStatistics", "rentPriceString"),

		SchoolName:        jsonpath.String(school, jsonpath.P("schools", 0, "schoolName"), ""),
		SchoolOrgType:     jsonpath.String(school, jsonpath.P("schools", 0, "organizationType"), ""),
		SchoolMaleCount:   jsonpath.String(school, jsonpath.P("schools", 0, "maleStudentCount"), ""),
		SchoolFemaleCount: jsonpath.String(school, jsonpath.P("schools", 0, "femaleStudentCount"), ""),

		CrawledAt: now,
	}

	return rec
}
