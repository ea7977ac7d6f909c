// Package crawler composes the region resolver, the extractor and the fuzzy
// matcher into the three collection modes: exhaustive enumeration of a scope,
// name-targeted search, and single-complex collection.
//
// Traversal is strictly depth-first and serial. Failures are contained at the
// branch level: a complex or region that cannot be fetched yields nothing and
// its siblings continue, so a run always produces whatever partial results it
// reached.
package crawler

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/sirupsen/logrus"

	"danji/server/config"
	"danji/server/internal/extract"
	"danji/server/internal/jsonpath"
	"danji/server/internal/match"
	"danji/server/internal/models"
	"danji/server/internal/naverland"
)

// RegionDirectory is the hierarchy lookup surface the crawler traverses.
type RegionDirectory interface {
	ListChildren(parentCode string) []models.Region
	ResolveName(code string) string
	ListComplexes(neighborhoodCode string) []models.ComplexSummary
}

// Sink receives the finished records of one scope (a district, a province, a
// search result or a single complex). Sinks must not assume a stable record
// order across runs; the upstream listing order is not guaranteed.
type Sink interface {
	Consume(scope string, records []models.FlatRecord) error
}

type Crawler struct {
	regions   RegionDirectory
	api       naverland.API
	extractor *extract.Extractor
	matcher   *match.Matcher
	logger    *logrus.Logger
	delay     time.Duration
	sinks     []Sink
}

func New(regions RegionDirectory, api naverland.API, cfg *config.Config, logger *logrus.Logger) *Crawler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	return &Crawler{
		regions:   regions,
		api:       api,
		extractor: extract.NewExtractor(logger),
		matcher:   match.New(cfg.Crawl.MatchEarlyExit, cfg.Crawl.MatchMinScore),
		logger:    logger,
		delay:     cfg.ComplexDelay(),
	}
}

// AddSink registers an output for finished scopes.
func (c *Crawler) AddSink(s Sink) {
	c.sinks = append(c.sinks, s)
}

// CollectComplex fetches and flattens every unit-type variant of one complex.
// A complex that cannot be fetched yields no records.
func (c *Crawler) CollectComplex(complexNo string) []models.FlatRecord {
	detail, err := c.api.ComplexDetail(complexNo)
	if err != nil {
		c.logger.WithError(err).WithField("complex_no", complexNo).Warn("Complex detail fetch failed")
		return nil
	}

	areaNames := extract.AreaNames(detail)
	if len(areaNames) == 0 {
		c.logger.WithField("complex_no", complexNo).Debug("Complex has no area-name list")
		return nil
	}
	units := jsonpath.Slice(detail, jsonpath.P("complexPyeongDetailList"))

	// School absence is a normal outcome, not an error.
	school, err := c.api.Schools(complexNo)
	if err != nil {
		c.logger.WithError(err).WithField("complex_no", complexNo).Debug("School fetch failed")
		school = nil
	}

	// One price payload per variant, keyed by the variant's own area index.
	prices := make([]any, len(areaNames))
	for i := range areaNames {
		price, err := c.api.Prices(complexNo, i)
		if err != nil {
			c.logger.WithError(err).WithFields(logrus.Fields{
				"complex_no": complexNo,
				"area_no":    i,
			}).Debug("Price fetch failed")
			continue
		}
		prices[i] = price
	}

	return c.extractor.Extract(complexNo, detail, units, prices, school, areaNames)
}

// CollectView assembles the display-layer view of one complex: its flattened
// variant records plus the raw detail payload for diagnostic display.
func (c *Crawler) CollectView(complexNo string) (*models.ComplexView, error) {
	detail, err := c.api.ComplexDetail(complexNo)
	if err != nil {
		return nil, fmt.Errorf("complex %s: %w", complexNo, err)
	}

	records := c.CollectComplex(complexNo)
	return &models.ComplexView{
		ComplexNo:  complexNo,
		Name:       jsonpath.String(detail, jsonpath.P("complexDetail", "complexName"), complexNo),
		Records:    records,
		RawPayload: detail,
	}, nil
}

// EnumerateAll walks the full hierarchy under root: every province, district
// and neighborhood, every complex. Records are flushed to the sinks per
// district and concatenated per province. The per-complex courtesy pause is
// applied between consecutive complex fetches.
func (c *Crawler) EnumerateAll(root string) models.CrawlSummary {
	summary := models.CrawlSummary{Scope: root, StartedAt: time.Now()}

	for _, province := range c.regions.ListChildren(root) {
		provinceRecords := c.enumerateProvince(province, &summary)
		if len(provinceRecords) > 0 {
			c.flush(scopeName(province.Name), provinceRecords)
		}
	}

	summary.FinishedAt = time.Now()
	c.logger.WithFields(logrus.Fields{
		"scope":     root,
		"records":   summary.Records,
		"complexes": summary.Complexes,
		"failed":    summary.FailedCount,
	}).Info("Enumeration finished")
	return summary
}

// EnumerateScope collects every complex under one district code, whose
// children are neighborhoods, and flushes them as a single scope.
func (c *Crawler) EnumerateScope(code string) models.CrawlSummary {
	summary := models.CrawlSummary{Scope: code, StartedAt: time.Now()}
	name := c.regions.ResolveName(code)

	district := models.Region{Code: code, Name: name}
	records := c.enumerateDistrict(district, &summary)

	if len(records) > 0 {
		scope := scopeName(name)
		c.flush(scope, records)
		summary.OutputFile = scope
	}
	summary.FinishedAt = time.Now()
	return summary
}

func (c *Crawler) enumerateProvince(province models.Region, summary *models.CrawlSummary) []models.FlatRecord {
	c.logger.WithFields(logrus.Fields{
		"province": province.Name,
		"code":     province.Code,
	}).Info("Enumerating province")

	var provinceRecords []models.FlatRecord
	for _, district := range c.regions.ListChildren(province.Code) {
		districtRecords := c.enumerateDistrict(district, summary)
		if len(districtRecords) > 0 {
			c.flush(scopeName(province.Name, district.Name), districtRecords)
		}
		provinceRecords = append(provinceRecords, districtRecords...)
	}
	return provinceRecords
}

func (c *Crawler) enumerateDistrict(district models.Region, summary *models.CrawlSummary) []models.FlatRecord {
	var records []models.FlatRecord
	for _, neighborhood := range c.regions.ListChildren(district.Code) {
		for _, cpx := range c.regions.ListComplexes(neighborhood.Code) {
			recs := c.CollectComplex(cpx.ComplexNo)
			if len(recs) == 0 {
				summary.FailedCount++
			}
			records = append(records, recs...)
			summary.Complexes++
			summary.Records += len(recs)
			time.Sleep(c.delay)
		}
	}
	return records
}

// SearchDistricts narrows the district candidates by an optional city name
// (matched against the static province table) and an optional district name
// (substring match against the live district listing). With neither given,
// every district of every province is returned.
func (c *Crawler) SearchDistricts(cityName, districtName string) []models.Region {
	provinces := config.MatchProvinces(cityName)
	if len(provinces) == 0 {
		c.logger.WithField("city", cityName).Warn("No province matches city name")
		return nil
	}

	var matched []models.Region
	for _, province := range provinces {
		for _, district := range c.regions.ListChildren(province.Code) {
			if districtName == "" || strings.Contains(district.Name, districtName) {
				matched = append(matched, district)
			}
		}
	}
	return matched
}

// SearchByName looks for a complex by (approximate) display name within an
// optionally narrowed scope. The traversal halts the moment any candidate
// clears the early-exit threshold, returning exactly that candidate even if a
// later one would have scored higher; match quality is therefore dependent on
// the upstream listing order. Without an early exit, every candidate above
// the acceptance floor is returned, best first, for external disambiguation;
// an empty result means no candidate cleared the floor.
func (c *Crawler) SearchByName(query, cityName, districtName string) []models.ComplexMatch {
	districts := c.SearchDistricts(cityName, districtName)
	if len(districts) == 0 {
		return nil
	}

	var eligible []models.ComplexMatch
	for _, district := range districts {
		for _, neighborhood := range c.regions.ListChildren(district.Code) {
			for _, cpx := range c.regions.ListComplexes(neighborhood.Code) {
				candidate, ok := c.scoreComplex(query, cpx)
				if !ok {
					continue
				}
				if c.matcher.IsEarlyExit(candidate.Similarity) {
					c.logger.WithFields(logrus.Fields{
						"name":       candidate.Name,
						"similarity": candidate.Similarity,
					}).Info("Early-exit match found")
					return []models.ComplexMatch{candidate}
				}
				if c.matcher.Accepts(candidate.Similarity) {
					eligible = append(eligible, candidate)
				}
			}
		}
	}

	return sortBySimilarity(eligible)
}

// scoreComplex applies the containment pre-filter and scores one candidate.
// The detail payload is fetched to resolve the display name, so a failed
// fetch simply skips the candidate.
func (c *Crawler) scoreComplex(query string, cpx models.ComplexSummary) (models.ComplexMatch, bool) {
	detail, err := c.api.ComplexDetail(cpx.ComplexNo)
	if err != nil {
		c.logger.WithError(err).WithField("complex_no", cpx.ComplexNo).Debug("Skipping candidate")
		return models.ComplexMatch{}, false
	}

	name := jsonpath.String(detail, jsonpath.P("complexDetail", "complexName"), "")
	if name == "" || !match.Prefilter(query, name) {
		return models.ComplexMatch{}, false
	}

	return models.ComplexMatch{
		Code:             cpx.ComplexNo,
		Name:             name,
		Address:          jsonpath.String(detail, jsonpath.P("complexDetail", "address"), ""),
		TotalHouseholds:  jsonpath.String(detail, jsonpath.P("complexDetail", "totalHouseholdCount"), ""),
		ConstructionYear: jsonpath.String(detail, jsonpath.P("complexDetail", "useApproveYmd"), ""),
		Similarity:       match.Score(query, name),
	}, true
}

// SearchAndCollect runs a name search and, when it resolves to a single
// confident match, collects that complex's records and flushes them as one
// scope. Multiple surviving matches are returned unharvested for external
// disambiguation.
func (c *Crawler) SearchAndCollect(query, cityName, districtName string) ([]models.ComplexMatch, []models.FlatRecord) {
	matches := c.SearchByName(query, cityName, districtName)
	if len(matches) != 1 {
		return matches, nil
	}

	records := c.CollectComplex(matches[0].Code)
	if len(records) > 0 {
		c.flush(scopeName(matches[0].Name), records)
	}
	return matches, records
}

// CollectAndFlush collects one known complex and flushes it as its own scope.
func (c *Crawler) CollectAndFlush(complexNo string) []models.FlatRecord {
	records := c.CollectComplex(complexNo)
	if len(records) == 0 {
		return nil
	}

	name := records[0].Name
	if name == "" {
		name = complexNo
	}
	c.flush(scopeName(name), records)
	return records
}

func (c *Crawler) flush(scope string, records []models.FlatRecord) {
	for _, sink := range c.sinks {
		if err := sink.Consume(scope, records); err != nil {
			c.logger.WithError(err).WithField("scope", scope).Error("Sink failed to consume scope")
		}
	}
}

// scopeName joins the region names of a scope into a filesystem-safe label:
// letters, digits, underscores and hyphens only.
func scopeName(parts ...string) string {
	var b strings.Builder
	for _, r := range strings.Join(parts, "_") {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func sortBySimilarity(matches []models.ComplexMatch) []models.ComplexMatch {
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Similarity > matches[j].Similarity
	})
	return matches
}
