package config

import "strings"

// Province is one top-level entry of the administrative code tree. The
// upstream API exposes no bulk endpoint for this level, so the seventeen
// province/city codes are kept as a fixed table.
type Province struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Provinces is the static province/city table used to narrow scoped searches.
var Provinces = []Province{
	{Code: "1100000000", Name: "서울시"},
	{Code: "2600000000", Name: "부산시"},
	{Code: "2700000000", Name: "대구시"},
	{Code: "2800000000", Name: "인천시"},
	{Code: "2900000000", Name: "광주시"},
	{Code: "3000000000", Name: "대전시"},
	{Code: "3100000000", Name: "울산시"},
	{Code: "3600000000", Name: "세종시"},
	{Code: "4100000000", Name: "경기도"},
	{Code: "4200000000", Name: "강원도"},
	{Code: "4300000000", Name: "충청북도"},
	{Code: "4400000000", Name: "충청남도"},
	{Code: "4500000000", Name: "전라북도"},
	{Code: "4600000000", Name: "전라남도"},
	{Code: "4700000000", Name: "경상북도"},
	{Code: "4800000000", Name: "경상남도"},
	{Code: "5000000000", Name: "제주도"},
}

// NormalizeProvince strips the 시/도 suffixes so that "서울", "서울시" and
// "서울특별시" all land on the same key.
func NormalizeProvince(name string) string {
	s := strings.TrimSpace(name)
	s = strings.ReplaceAll(s, "특별", "")
	s = strings.ReplaceAll(s, "광역", "")
	s = strings.ReplaceAll(s, "시", "")
	s = strings.ReplaceAll(s, "도", "")
	return s
}

// MatchProvinces returns the provinces whose normalized name contains the
// normalized query. An empty query matches every province.
func MatchProvinces(name string) []Province {
	if strings.TrimSpace(name) == "" {
		return Provinces
	}

	query := NormalizeProvince(name)
	var matched []Province
	for _, p := range Provinces {
		if strings.Contains(NormalizeProvince(p.Name), query) {
			matched = append(matched, p)
		}
	}
	return matched
}

// ProvinceByCode returns the table entry for a code, or nil.
func ProvinceByCode(code string) *Province {
	for _, p := range Provinces {
		if p.Code == code {
			return &p
		}
	}
	return nil
}
