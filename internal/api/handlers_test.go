package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"danji/server/internal/database"
	"danji/server/internal/models"
)

type MockCrawler struct {
	mock.Mock
}

func (m *MockCrawler) CollectView(complexNo string) (*models.ComplexView, error) {
	args := m.Called(complexNo)
	if v := args.Get(0); v != nil {
		return v.(*models.ComplexView), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockCrawler) CollectAndFlush(complexNo string) []models.FlatRecord {
	args := m.Called(complexNo)
	return args.Get(0).([]models.FlatRecord)
}

func (m *MockCrawler) EnumerateAll(root string) models.CrawlSummary {
	args := m.Called(root)
	return args.Get(0).(models.CrawlSummary)
}

func (m *MockCrawler) EnumerateScope(code string) models.CrawlSummary {
	args := m.Called(code)
	return args.Get(0).(models.CrawlSummary)
}

func (m *MockCrawler) SearchByName(query, cityName, districtName string) []models.ComplexMatch {
	args := m.Called(query, cityName, districtName)
	return args.Get(0).([]models.ComplexMatch)
}

func (m *MockCrawler) SearchAndCollect(query, cityName, districtName string) ([]models.ComplexMatch, []models.FlatRecord) {
	args := m.Called(query, cityName, districtName)
	return args.Get(0).([]models.ComplexMatch), args.Get(1).([]models.FlatRecord)
}

func newTestRouter(t *testing.T, crawler CrawlService) (*gin.Engine, *database.Database) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "danji.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())
	t.Cleanup(func() { db.Close() })

	handler := NewHandler(db, crawler, nil, logrus.New())
	router := gin.New()
	SetupRoutes(router, handler)
	return router, db
}

func seedRecord(t *testing.T, db *database.Database, complexNo, cortarNo, name string) {
	t.Helper()
	require.NoError(t, database.UpsertRecords(db.Writer(), []models.FlatRecord{
		{ComplexNo: complexNo, VariantIndex: 0, CortarNo: cortarNo, Name: name, CrawledAt: time.Now()},
	}))
}

func TestGetRecords(t *testing.T) {
	router, db := newTestRouter(t, &MockCrawler{})
	seedRecord(t, db, "103254", "1168010600", "대림아파트")
	seedRecord(t, db, "8928", "2817710300", "송도더샵")

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/records?code=11", nil)
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var records []models.FlatRecord
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "대림아파트", records[0].Name)
}

func TestGetRecordStats(t *testing.T) {
	router, db := newTestRouter(t, &MockCrawler{})
	seedRecord(t, db, "103254", "1168010600", "대림아파트")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/records/stats", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var stats models.RecordStats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalRecords)
}

func TestGetProvinces(t *testing.T) {
	router, _ := newTestRouter(t, &MockCrawler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/provinces?q=서울", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "1100000000")
}

func TestGetComplexServedFromStore(t *testing.T) {
	crawler := &MockCrawler{}
	router, db := newTestRouter(t, crawler)
	seedRecord(t, db, "103254", "1168010600", "대림아파트")

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/complexes/103254", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var view models.ComplexView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "대림아파트", view.Name)
	crawler.AssertNotCalled(t, "CollectView")
}

func TestGetComplexFallsBackToLiveFetch(t *testing.T) {
	crawler := &MockCrawler{}
	crawler.On("CollectView", "22627").Return(&models.ComplexView{
		ComplexNo: "22627",
		Name:      "경남아너스빌",
	}, nil)
	router, _ := newTestRouter(t, crawler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/complexes/22627", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "경남아너스빌")
	crawler.AssertExpectations(t)
}

func TestSearchComplexes(t *testing.T) {
	crawler := &MockCrawler{}
	crawler.On("SearchByName", "대림", "서울", "강남구").Return([]models.ComplexMatch{
		{Code: "103254", Name: "대림아파트", Similarity: 0.95},
	})
	router, _ := newTestRouter(t, crawler)

	body, _ := json.Marshal(SearchRequest{Name: "대림", City: "서울", District: "강남구"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "103254")
	crawler.AssertExpectations(t)
}

func TestSearchComplexesRequiresName(t *testing.T) {
	router, _ := newTestRouter(t, &MockCrawler{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/search", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCollectComplex(t *testing.T) {
	crawler := &MockCrawler{}
	crawler.On("CollectAndFlush", "103254").Return([]models.FlatRecord{
		{ComplexNo: "103254", VariantIndex: 0},
		{ComplexNo: "103254", VariantIndex: 1},
	})
	router, _ := newTestRouter(t, crawler)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/complexes/103254/collect", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"records":2`)
}

func TestRunCrawl(t *testing.T) {
	crawler := &MockCrawler{}
	done := make(chan struct{})
	crawler.On("EnumerateScope", "1168000000").Run(func(mock.Arguments) {
		close(done)
	}).Return(models.CrawlSummary{Scope: "강남구", Records: 10})
	router, _ := newTestRouter(t, crawler)

	body, _ := json.Marshal(CrawlRequest{Scope: "1168000000"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/crawl", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Crawl started")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("background crawl never ran")
	}
	crawler.AssertExpectations(t)
}

func TestGetCrawlRuns(t *testing.T) {
	router, db := newTestRouter(t, &MockCrawler{})
	require.NoError(t, db.SaveCrawlRun(models.CrawlSummary{
		Scope:      "강남구",
		Records:    48,
		Complexes:  12,
		StartedAt:  time.Now().Add(-time.Minute),
		FinishedAt: time.Now(),
	}))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/crawl/runs", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var runs []models.CrawlRun
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "강남구", runs[0].Scope)
}

func TestGetDistrictBoundsNotFound(t *testing.T) {
	router, _ := newTestRouter(t, &MockCrawler{})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/districts/bounds?district=11680", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
}
