package api

import (
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"danji/server/config"
	"danji/server/internal/database"
	"danji/server/internal/geometry"
	"danji/server/internal/models"
	"danji/server/internal/notify"
	"danji/server/internal/regions"
)

// CrawlService is the crawling surface the handlers drive.
type CrawlService interface {
	CollectView(complexNo string) (*models.ComplexView, error)
	CollectAndFlush(complexNo string) []models.FlatRecord
	EnumerateAll(root string) models.CrawlSummary
	EnumerateScope(code string) models.CrawlSummary
	SearchByName(query, cityName, districtName string) []models.ComplexMatch
	SearchAndCollect(query, cityName, districtName string) ([]models.ComplexMatch, []models.FlatRecord)
}

type Handler struct {
	db              *database.Database
	logger          *logrus.Logger
	crawler         CrawlService
	districtManager *geometry.DistrictManager
	notifier        *notify.Service
}

type SearchRequest struct {
	Name     string `json:"name" binding:"required"`
	City     string `json:"city"`
	District string `json:"district"`
	Collect  bool   `json:"collect"`
}

type CrawlRequest struct {
	// Region code to refresh, or "all" for the full national walk
	Scope string `json:"scope" binding:"required"`
}

func NewHandler(db *database.Database, crawler CrawlService, notifier *notify.Service, logger *logrus.Logger) *Handler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
	}

	return &Handler{
		db:              db,
		logger:          logger,
		crawler:         crawler,
		districtManager: geometry.NewDistrictManager(db, logger),
		notifier:        notifier,
	}
}

func (h *Handler) GetRecords(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "0")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 0 {
		limit = 0
	}

	code := c.Query("code")
	records, err := h.db.GetRecords(code, limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get records"})
		return
	}

	c.JSON(http.StatusOK, records)
}

func (h *Handler) GetRecordStats(c *gin.Context) {
	stats, err := h.db.GetRecordStats()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get record stats")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get record stats"})
		return
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetProvinces(c *gin.Context) {
	c.JSON(http.StatusOK, config.MatchProvinces(c.Query("q")))
}

func (h *Handler) GetDistrictBounds(c *gin.Context) {
	if district := c.Query("district"); district != "" {
		bounds, err := h.districtManager.DistrictBounds(district)
		if err != nil {
			h.logger.WithError(err).Error("Failed to get district bounds")
			c.JSON(http.StatusNotFound, gin.H{"error": "No located complexes for district"})
			return
		}
		c.JSON(http.StatusOK, bounds)
		return
	}

	all, err := h.districtManager.AllDistrictBounds()
	if err != nil {
		h.logger.WithError(err).Error("Failed to get district bounds")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get district bounds"})
		return
	}
	c.JSON(http.StatusOK, all)
}

func (h *Handler) GetDistrictHulls(c *gin.Context) {
	fc, err := h.districtManager.DistrictHulls()
	if err != nil {
		h.logger.WithError(err).Error("Failed to build district hulls")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build district hulls"})
		return
	}
	c.JSON(http.StatusOK, fc)
}

// GetComplex serves one complex for display. Stored records answer first;
// with none on hand the upstream is fetched live.
func (h *Handler) GetComplex(c *gin.Context) {
	complexNo := c.Param("id")

	records, err := h.db.GetComplexRecords(complexNo)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get complex records")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get complex records"})
		return
	}

	if len(records) > 0 {
		c.JSON(http.StatusOK, models.ComplexView{
			ComplexNo: complexNo,
			Name:      records[0].Name,
			Records:   records,
		})
		return
	}

	view, err := h.crawler.CollectView(complexNo)
	if err != nil {
		h.logger.WithError(err).WithField("complex_no", complexNo).Error("Failed to fetch complex")
		c.JSON(http.StatusNotFound, gin.H{"error": "Complex not found"})
		return
	}
	c.JSON(http.StatusOK, view)
}

// SearchComplexes resolves a complex by fuzzy name within an optional
// city/district scope. A single confident match with collect=true is crawled
// on the spot; anything ambiguous comes back as candidates.
func (h *Handler) SearchComplexes(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse search request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	if req.Collect {
		matches, records := h.crawler.SearchAndCollect(req.Name, req.City, req.District)
		c.JSON(http.StatusOK, gin.H{
			"matches": matches,
			"records": records,
		})
		return
	}

	matches := h.crawler.SearchByName(req.Name, req.City, req.District)
	c.JSON(http.StatusOK, gin.H{"matches": matches})
}

func (h *Handler) CollectComplex(c *gin.Context) {
	complexNo := c.Param("id")

	records := h.crawler.CollectAndFlush(complexNo)
	if len(records) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "Complex not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"records": len(records),
	})
}

func (h *Handler) GetCrawlRuns(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "10")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		limit = 10
	}

	runs, err := h.db.GetRecentCrawlRuns(limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to get crawl runs")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get crawl runs"})
		return
	}

	c.JSON(http.StatusOK, runs)
}

// RunCrawl starts a scope refresh in the background and returns immediately.
func (h *Handler) RunCrawl(c *gin.Context) {
	var req CrawlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.WithError(err).Error("Failed to parse crawl request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request parameters"})
		return
	}

	go func() {
		var summary models.CrawlSummary
		if req.Scope == "all" {
			summary = h.crawler.EnumerateAll(regions.RootCode)
		} else {
			summary = h.crawler.EnumerateScope(req.Scope)
		}
		h.logger.WithFields(logrus.Fields{
			"scope":   summary.Scope,
			"records": summary.Records,
			"failed":  summary.FailedCount,
		}).Info("Crawl finished")

		if err := h.db.SaveCrawlRun(summary); err != nil {
			h.logger.WithError(err).Warn("Failed to save crawl run")
		}

		if h.notifier != nil {
			if err := h.notifier.NotifyCrawlSummary(summary); err != nil {
				h.logger.WithError(err).Warn("Crawl summary notification failed")
			}
		}
	}()

	c.JSON(http.StatusOK, gin.H{
		"status":  "success",
		"message": "Crawl started",
		"scope":   req.Scope,
	})
}
