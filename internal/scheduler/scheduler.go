package scheduler

import (
	"os"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"danji/server/internal/models"
	"danji/server/internal/notify"
)

// ScopeRunner refreshes one region scope end to end.
type ScopeRunner interface {
	EnumerateScope(code string) models.CrawlSummary
}

// Scheduler refreshes the configured region scopes on a cron expression.
// Jobs run sequentially; an overlapping trigger waits for the running
// refresh to finish.
type Scheduler struct {
	runner   ScopeRunner
	notifier *notify.Service
	logger   *logrus.Logger
	cron     *cron.Cron
	scopes   []string
	jobMutex sync.Mutex
}

func NewScheduler(runner ScopeRunner, notifier *notify.Service, logger *logrus.Logger, scopes []string) *Scheduler {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetOutput(os.Stdout)
		logger.SetLevel(logrus.InfoLevel)
	}

	return &Scheduler{
		runner:   runner,
		notifier: notifier,
		logger:   logger,
		cron:     cron.New(),
		scopes:   scopes,
	}
}

// Start registers the cron entry and begins the schedule. An empty
// expression or scope list leaves the scheduler idle.
func (s *Scheduler) Start(cronExpr string) error {
	if cronExpr == "" || len(s.scopes) == 0 {
		s.logger.Info("Scheduled refreshes disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(cronExpr, s.runRefresh); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"cron":   cronExpr,
		"scopes": len(s.scopes),
	}).Info("Scheduled refreshes enabled")
	return nil
}

// runRefresh walks the configured scopes sequentially.
func (s *Scheduler) runRefresh() {
	s.jobMutex.Lock()
	defer s.jobMutex.Unlock()

	s.logger.Info("Starting scheduled refresh run")
	for _, scope := range s.scopes {
		s.logger.WithField("scope", scope).Info("Starting refresh job")

		summary := s.runner.EnumerateScope(scope)

		s.logger.WithFields(logrus.Fields{
			"scope":   summary.Scope,
			"records": summary.Records,
			"failed":  summary.FailedCount,
		}).Info("Refresh job completed")

		if s.notifier != nil {
			if err := s.notifier.NotifyCrawlSummary(summary); err != nil {
				s.logger.WithError(err).Warn("Refresh summary notification failed")
			}
		}
	}
	s.logger.Info("Completed scheduled refresh run")
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
