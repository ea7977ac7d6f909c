// Package regions walks the 4-level administrative code tree. Every level
// requires its own round trip; there is no bulk endpoint. All lookups degrade
// to empty results: an empty region or complex list is a normal terminal
// outcome, and a transport failure is logged and absorbed.
package regions

import (
	"github.com/sirupsen/logrus"

	"danji/server/internal/jsonpath"
	"danji/server/internal/models"
	"danji/server/internal/naverland"
)

// UnknownName is the sentinel returned when a code cannot be resolved to a
// human-readable name. Name resolution is best-effort, never fatal.
const UnknownName = "Unknown"

// RootCode is the nation-level parent of the province/city listing.
const RootCode = "0000000000"

type Resolver struct {
	api    naverland.API
	logger *logrus.Logger
}

func NewResolver(api naverland.API, logger *logrus.Logger) *Resolver {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Resolver{api: api, logger: logger}
}

// ListChildren returns the child regions of a parent code, in the order the
// service returned them. No ordering is guaranteed across executions. An
// empty result means the parent is a leaf.
func (r *Resolver) ListChildren(parentCode string) []models.Region {
	payload, err := r.api.RegionList(parentCode)
	if err != nil {
		r.logger.WithError(err).WithField("parent_code", parentCode).Warn("Region listing failed")
		return nil
	}

	var children []models.Region
	for _, entry := range jsonpath.Slice(payload, jsonpath.P("regionList")) {
		code := jsonpath.String(entry, jsonpath.P("cortarNo"), "")
		if code == "" {
			continue
		}
		children = append(children, models.Region{
			Code: code,
			Name: jsonpath.String(entry, jsonpath.P("cortarName"), ""),
			Type: jsonpath.String(entry, jsonpath.P("cortarType"), ""),
		})
	}
	return children
}

// ResolveName resolves a code back to its display name by re-fetching the
// code's own listing context and searching it for a matching entry.
func (r *Resolver) ResolveName(code string) string {
	payload, err := r.api.RegionList(code)
	if err != nil {
		r.logger.WithError(err).WithField("code", code).Warn("Region name resolution failed")
		return UnknownName
	}

	for _, entry := range jsonpath.Slice(payload, jsonpath.P("regionList")) {
		if jsonpath.String(entry, jsonpath.P("cortarNo"), "") == code {
			if name := jsonpath.String(entry, jsonpath.P("cortarName"), ""); name != "" {
				return name
			}
		}
	}
	return UnknownName
}

// ListComplexes returns the complexes registered in a neighborhood. An empty
// result is normal; plenty of neighborhoods have none.
func (r *Resolver) ListComplexes(neighborhoodCode string) []models.ComplexSummary {
	payload, err := r.api.ComplexList(neighborhoodCode)
	if err != nil {
		r.logger.WithError(err).WithField("neighborhood_code", neighborhoodCode).Warn("Complex listing failed")
		return nil
	}

	var complexes []models.ComplexSummary
	for _, entry := range jsonpath.Slice(payload, jsonpath.P("complexList")) {
		code := jsonpath.String(entry, jsonpath.P("complexNo"), "")
		if code == "" {
			continue
		}
		complexes = append(complexes, models.ComplexSummary{
			ComplexNo:   code,
			ComplexName: jsonpath.String(entry, jsonpath.P("complexName"), ""),
		})
	}
	return complexes
}

// ComplexName resolves a complex code to its display name, or Unknown.
func (r *Resolver) ComplexName(complexNo string) string {
	payload, err := r.api.ComplexDetail(complexNo)
	if err != nil {
		r.logger.WithError(err).WithField("complex_no", complexNo).Warn("Complex name resolution failed")
		return UnknownName
	}

	if name := jsonpath.String(payload, jsonpath.P("complexDetail", "complexName"), ""); name != "" {
		return name
	}
	return UnknownName
}
