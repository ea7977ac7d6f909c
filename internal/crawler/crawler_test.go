package crawler

import (
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"danji/server/config"
	"danji/server/internal/models"
)

// fakeDirectory is an in-memory region tree.
type fakeDirectory struct {
	children  map[string][]models.Region
	names     map[string]string
	complexes map[string][]models.ComplexSummary
}

func (f *fakeDirectory) ListChildren(code string) []models.Region { return f.children[code] }

func (f *fakeDirectory) ResolveName(code string) string {
	if name, ok := f.names[code]; ok {
		return name
	}
	return "Unknown"
}

func (f *fakeDirectory) ListComplexes(code string) []models.ComplexSummary {
	return f.complexes[code]
}

// fakeAPI serves canned complex payloads.
type fakeAPI struct {
	details map[string]any
	schools map[string]any
	prices  map[string]any

	detailCalls []string
}

func (f *fakeAPI) RegionList(code string) (any, error)  { return nil, errors.New("not used") }
func (f *fakeAPI) ComplexList(code string) (any, error) { return nil, errors.New("not used") }

func (f *fakeAPI) ComplexDetail(complexNo string) (any, error) {
	f.detailCalls = append(f.detailCalls, complexNo)
	if d, ok := f.details[complexNo]; ok {
		return d, nil
	}
	return nil, errors.New("status 404")
}

func (f *fakeAPI) Schools(complexNo string) (any, error) {
	if s, ok := f.schools[complexNo]; ok {
		return s, nil
	}
	return map[string]any{"schools": []any{}}, nil
}

func (f *fakeAPI) Prices(complexNo string, areaNo int) (any, error) {
	if p, ok := f.prices[complexNo]; ok {
		return p, nil
	}
	return map[string]any{}, nil
}

// memorySink records every flushed scope.
type memorySink struct {
	scopes map[string][]models.FlatRecord
}

func newMemorySink() *memorySink {
	return &memorySink{scopes: make(map[string][]models.FlatRecord)}
}

func (s *memorySink) Consume(scope string, records []models.FlatRecord) error {
	s.scopes[scope] = append(s.scopes[scope], records...)
	return nil
}

func detailPayload(name string, areas string) any {
	return map[string]any{
		"complexDetail": map[string]any{
			"complexName":         name,
			"pyoengNames":         areas,
			"address":             "1 Main St",
			"totalHouseholdCount": float64(500),
		},
		"complexPyeongDetailList": []any{
			map[string]any{"supplyArea": 84.5},
		},
	}
}

func newTestCrawler(dir RegionDirectory, api *fakeAPI) *Crawler {
	cfg := &config.Config{}
	cfg.Crawl.MatchEarlyExit = 0.9
	cfg.Crawl.MatchMinScore = 0.3
	cfg.Crawl.ComplexDelayMS = 0

	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return New(dir, api, cfg, logger)
}

func TestCollectComplex(t *testing.T) {
	api := &fakeAPI{details: map[string]any{"8928": detailPayload("Test Apt", "84")}}
	c := newTestCrawler(&fakeDirectory{}, api)

	records := c.CollectComplex("8928")

	assert.Len(t, records, 1)
	assert.Equal(t, "Test Apt", records[0].Name)
	assert.Equal(t, "500", records[0].TotalHouseholds)
	assert.Equal(t, "84.5", records[0].SupplyArea)
	assert.Empty(t, records[0].SchoolName)
}

func TestCollectComplexFetchFailureYieldsNothing(t *testing.T) {
	api := &fakeAPI{details: map[string]any{}}
	c := newTestCrawler(&fakeDirectory{}, api)

	assert.Empty(t, c.CollectComplex("404404"))
}

func TestEnumerateAllWalksFourLevels(t *testing.T) {
	dir := &fakeDirectory{
		children: map[string][]models.Region{
			"0000000000": {{Code: "1100000000", Name: "서울시"}},
			"1100000000": {{Code: "1111000000", Name: "종로구"}, {Code: "1114000000", Name: "중구"}},
			"1111000000": {{Code: "1111018000", Name: "내수동"}},
			"1114000000": {{Code: "1114010000", Name: "회현동"}},
		},
		complexes: map[string][]models.ComplexSummary{
			"1111018000": {{ComplexNo: "8928", ComplexName: "경희궁의아침"}},
			// 회현동: no complexes registered, a normal terminal case
		},
	}
	api := &fakeAPI{details: map[string]any{"8928": detailPayload("경희궁의아침", "174")}}

	c := newTestCrawler(dir, api)
	sink := newMemorySink()
	c.AddSink(sink)

	summary := c.EnumerateAll("0000000000")

	assert.Equal(t, 1, summary.Complexes)
	assert.Equal(t, 1, summary.Records)

	// One district flush plus one province concatenation.
	assert.Len(t, sink.scopes["서울시_종로구"], 1)
	assert.Len(t, sink.scopes["서울시"], 1)
	_, hasEmptyDistrict := sink.scopes["서울시_중구"]
	assert.False(t, hasEmptyDistrict, "empty district must not be flushed")
}

func TestEnumerateAllEmptyNeighborhoodDoesNotSkipSiblings(t *testing.T) {
	dir := &fakeDirectory{
		children: map[string][]models.Region{
			"0000000000": {{Code: "1100000000", Name: "서울시"}},
			"1100000000": {{Code: "1111000000", Name: "종로구"}},
			"1111000000": {
				{Code: "1111017000", Name: "사직동"}, // empty
				{Code: "1111018000", Name: "내수동"},
			},
		},
		complexes: map[string][]models.ComplexSummary{
			"1111018000": {{ComplexNo: "8928", ComplexName: "경희궁의아침"}},
		},
	}
	api := &fakeAPI{details: map[string]any{"8928": detailPayload("경희궁의아침", "174")}}

	c := newTestCrawler(dir, api)
	summary := c.EnumerateAll("0000000000")

	assert.Equal(t, 1, summary.Records, "sibling after empty neighborhood must still be crawled")
}

func TestEnumerateScope(t *testing.T) {
	dir := &fakeDirectory{
		children: map[string][]models.Region{
			"1111000000": {{Code: "1111018000", Name: "내수동"}},
		},
		names: map[string]string{"1111000000": "종로구"},
		complexes: map[string][]models.ComplexSummary{
			"1111018000": {{ComplexNo: "8928", ComplexName: "경희궁의아침"}},
		},
	}
	api := &fakeAPI{details: map[string]any{"8928": detailPayload("경희궁의아침", "174")}}

	c := newTestCrawler(dir, api)
	sink := newMemorySink()
	c.AddSink(sink)

	summary := c.EnumerateScope("1111000000")

	assert.Equal(t, 1, summary.Records)
	assert.Equal(t, "종로구", summary.OutputFile)
	assert.Len(t, sink.scopes["종로구"], 1)
}

func searchFixture(candidates []models.ComplexSummary, details map[string]any) (*fakeDirectory, *fakeAPI) {
	dir := &fakeDirectory{
		children: map[string][]models.Region{
			"1100000000": {{Code: "1111000000", Name: "종로구"}},
			"1111000000": {{Code: "1111018000", Name: "내수동"}},
		},
		complexes: map[string][]models.ComplexSummary{"1111018000": candidates},
	}
	return dir, &fakeAPI{details: details}
}

func namedDetail(name string) any {
	return map[string]any{"complexDetail": map[string]any{"complexName": name}}
}

func TestSearchByNameEarlyExitIsOrderDependent(t *testing.T) {
	// First candidate scores ~0.97, second would score 1.0; traversal must
	// halt on the first and never fetch the second.
	dir, api := searchFixture(
		[]models.ComplexSummary{{ComplexNo: "1"}, {ComplexNo: "2"}},
		map[string]any{
			"1": namedDetail("Riverside Towers"),
			"2": namedDetail("Riverside Tower"),
		},
	)

	c := newTestCrawler(dir, api)
	matches := c.SearchByName("Riverside Tower", "서울시", "")

	assert.Len(t, matches, 1)
	assert.Equal(t, "1", matches[0].Code)
	assert.Greater(t, matches[0].Similarity, 0.9)
	assert.Equal(t, []string{"1"}, api.detailCalls, "traversal must halt at the early exit")
}

func TestSearchByNameNoMatchBelowFloor(t *testing.T) {
	// The pre-filter passes (single-rune containment) but the similarity
	// stays at or below the acceptance floor.
	dir, api := searchFixture(
		[]models.ComplexSummary{{ComplexNo: "1"}},
		map[string]any{"1": namedDetail("대림아파트단지제일차")},
	)

	c := newTestCrawler(dir, api)
	assert.Empty(t, c.SearchByName("대", "서울시", ""))
}

func TestSearchByNameAmbiguousMatchesSurfaced(t *testing.T) {
	// Two candidates above the floor, neither past the early exit: both come
	// back, best first, for external disambiguation.
	dir, api := searchFixture(
		[]models.ComplexSummary{{ComplexNo: "1"}, {ComplexNo: "2"}},
		map[string]any{
			"1": namedDetail("현대아파트1단지상가동포함"),
			"2": namedDetail("현대아파트2단지"),
		},
	)

	c := newTestCrawler(dir, api)
	matches := c.SearchByName("현대아파트", "서울시", "")

	assert.Len(t, matches, 2)
	assert.GreaterOrEqual(t, matches[0].Similarity, matches[1].Similarity)
	for _, m := range matches {
		assert.Greater(t, m.Similarity, 0.3)
		assert.LessOrEqual(t, m.Similarity, 0.9)
	}
}

func TestSearchByNameCandidateFetchFailureSkips(t *testing.T) {
	dir, api := searchFixture(
		[]models.ComplexSummary{{ComplexNo: "broken"}, {ComplexNo: "2"}},
		map[string]any{"2": namedDetail("현대아파트2단지")},
	)

	c := newTestCrawler(dir, api)
	matches := c.SearchByName("현대아파트2단지", "서울시", "")

	assert.Len(t, matches, 1)
	assert.Equal(t, "2", matches[0].Code)
}

func TestSearchDistricts(t *testing.T) {
	dir := &fakeDirectory{
		children: map[string][]models.Region{
			"1100000000": {{Code: "1111000000", Name: "종로구"}, {Code: "1114000000", Name: "중구"}},
		},
	}
	c := newTestCrawler(dir, &fakeAPI{})

	// City plus district narrows to one.
	districts := c.SearchDistricts("서울시", "중구")
	assert.Len(t, districts, 1)
	assert.Equal(t, "1114000000", districts[0].Code)

	// City alone returns all districts of the province.
	assert.Len(t, c.SearchDistricts("서울시", ""), 2)

	// Unknown city matches no province.
	assert.Empty(t, c.SearchDistricts("평양시", ""))
}

func TestSearchAndCollectSingleMatch(t *testing.T) {
	details := map[string]any{"1": detailPayload("Riverside Tower", "84")}
	dir, api := searchFixture([]models.ComplexSummary{{ComplexNo: "1"}}, details)

	c := newTestCrawler(dir, api)
	sink := newMemorySink()
	c.AddSink(sink)

	matches, records := c.SearchAndCollect("Riverside Tower", "서울시", "")

	assert.Len(t, matches, 1)
	assert.Len(t, records, 1)
	assert.Len(t, sink.scopes["RiversideTower"], 1)
}

func TestCollectAndFlush(t *testing.T) {
	api := &fakeAPI{details: map[string]any{"8928": detailPayload("Test Apt", "84, 112")}}
	c := newTestCrawler(&fakeDirectory{}, api)
	sink := newMemorySink()
	c.AddSink(sink)

	records := c.CollectAndFlush("8928")

	assert.Len(t, records, 2)
	assert.Len(t, sink.scopes["TestApt"], 2)
}

func TestScopeName(t *testing.T) {
	assert.Equal(t, "서울시_종로구", scopeName("서울시", "종로구"))
	assert.Equal(t, "TestApt2-1", scopeName("Test Apt 2-1"))
	assert.Equal(t, "a_b", scopeName("a", "b"))
}
