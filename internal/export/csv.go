// Package export writes one CSV file per finished crawl scope. Column
// headers are Korean to stay drop-in compatible with the spreadsheets the
// data feeds; the byte encoding is configurable because that tooling
// historically expects CP949 while everything else expects UTF-8.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"danji/server/internal/models"
)

const (
	EncodingUTF8  = "utf-8"
	EncodingCP949 = "cp949"
)

var header = []string{
	"단지코드", "면적번호",
	"아파트명", "거래 수", "전세 거래 수", "월세 거래 수", "단기 전세 거래 수",
	"용적률", "건폐율", "주차대수", "세대당주차대수", "난방", "난방연료",
	"건설사", "사용승인일", "면적", "법정동주소", "도로명주소",
	"세대수", "임대세대수", "최고층", "최저층", "latitude", "longitude",
	"공급면적", "전용면적", "전용율", "방수", "욕실", "해당면적_세대수", "현관구조",
	"재산세", "재산세합계", "지방교육세", "재산세_도시지역분", "종합부동산세", "결정세액", "농어촌특별세",
	"일반평균가", "일반평균가변화량", "하위평균가", "상위평균가",
	"전세 일반평균가", "전세 일반평균가변화량", "전세 상위평균가", "전세 하위평균가",
	"매매가대비전세가", "보증금",
	"겨울관리비", "여름관리비", "평균관리비", "매매호가", "전세호가", "월세호가",
	"초등학교_학군정보", "초등학교_설립정보", "초등학교_남학생수", "초등학교_여학생수",
}

// Writer is a crawler sink that persists each scope as <dir>/<scope>.csv.
type Writer struct {
	dir      string
	encoding string
	logger   *logrus.Logger
}

func NewWriter(dir, encoding string, logger *logrus.Logger) (*Writer, error) {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	if encoding != EncodingUTF8 && encoding != EncodingCP949 {
		return nil, fmt.Errorf("unsupported export encoding %q", encoding)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}
	return &Writer{dir: dir, encoding: encoding, logger: logger}, nil
}

// Consume writes every record of a scope to one CSV file, overwriting any
// previous file for the same scope.
func (w *Writer) Consume(scope string, records []models.FlatRecord) error {
	if len(records) == 0 {
		return nil
	}

	path := filepath.Join(w.dir, scope+".csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	defer f.Close()

	var out io.Writer = f
	if w.encoding == EncodingCP949 {
		out = transform.NewWriter(f, korean.EUCKR.NewEncoder())
	}

	cw := csv.NewWriter(out)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		if err := cw.Write(row(rec)); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", path, err)
	}

	w.logger.WithFields(logrus.Fields{
		"scope":   scope,
		"records": len(records),
		"path":    path,
	}).Info("Wrote scope export")
	return nil
}

func row(r models.FlatRecord) []string {
	return []string{
		r.ComplexNo, fmt.Sprintf("%d", r.VariantIndex),
		r.Name, r.DealCount, r.LeaseCount, r.RentCount, r.ShortTermLeaseCount,
		r.FloorAreaRatio, r.BuildingCoverage, r.ParkingCount, r.ParkingPerHousehold, r.HeatingMethod, r.HeatingFuel,
		r.ConstructionCompany, r.ApprovalDate, r.AreaName, r.JibunAddress, r.RoadAddress,
		r.TotalHouseholds, r.LeaseHouseholds, r.HighFloor, r.LowFloor, r.Latitude, r.Longitude,
		r.SupplyArea, r.ExclusiveArea, r.ExclusiveRate, r.RoomCount, r.BathroomCount, r.HouseholdsByType, r.EntranceType,
		r.PropertyTax, r.PropertyTotalTax, r.LocalEduTax, r.CityAreaTax, r.RealEstateTax, r.DecisionTax, r.RuralSpecialTax,
		r.DealAveragePrice, r.DealAveragePriceChange, r.DealLowPrice, r.DealUpperPrice,
		r.LeaseAveragePrice, r.LeaseAveragePriceChange, r.LeaseUpperPrice, r.LeaseLowPrice,
		r.LeasePerDealRate, r.Deposit,
		r.WinterMaintenanceFee, r.SummerMaintenanceFee, r.AverageMaintenanceFee, r.DealPriceString, r.LeasePriceString, r.RentPriceString,
		r.SchoolName, r.SchoolOrgType, r.SchoolMaleCount, r.SchoolFemaleCount,
	}
}
