package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"danji/server/internal/models"
)

const telegramAPI = "https://api.telegram.org"

// Service sends crawl summaries to a Telegram chat. With no token or chat ID
// configured it stays silent.
type Service struct {
	logger   *logrus.Logger
	client   *http.Client
	baseURL  string
	botToken string
	chatID   string
}

func NewService(botToken, chatID string, logger *logrus.Logger) *Service {
	return &Service{
		logger:   logger,
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *Service) Enabled() bool {
	return s.botToken != "" && s.chatID != ""
}

// SendMessage sends a message to the configured Telegram chat
func (s *Service) SendMessage(message string) error {
	if !s.Enabled() {
		return nil
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", s.baseURL, s.botToken)
	payload := map[string]interface{}{
		"chat_id":    s.chatID,
		"text":       message,
		"parse_mode": "HTML",
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message payload: %v", err)
	}

	resp, err := s.client.Post(url, "application/json", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to send message to Telegram API: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		switch resp.StatusCode {
		case http.StatusUnauthorized:
			return errors.New("invalid bot token - please check your token from @BotFather")
		case http.StatusBadRequest:
			return fmt.Errorf("invalid chat ID or message format: %s", string(body))
		case http.StatusForbidden:
			return errors.New("bot was blocked by the user or chat")
		case http.StatusNotFound:
			return errors.New("bot not found - please check your token from @BotFather")
		default:
			return fmt.Errorf("Telegram API error (status %d): %s", resp.StatusCode, string(body))
		}
	}

	return nil
}

// NotifyCrawlSummary reports one finished crawl scope.
func (s *Service) NotifyCrawlSummary(summary models.CrawlSummary) error {
	if !s.Enabled() {
		return nil
	}

	duration := summary.FinishedAt.Sub(summary.StartedAt).Round(time.Second)
	message := fmt.Sprintf(
		"<b>Crawl finished: %s</b>\n"+
			"Complexes: %d\n"+
			"Records: %d\n"+
			"Failures: %d\n"+
			"Duration: %s",
		summary.Scope,
		summary.Complexes,
		summary.Records,
		summary.FailedCount,
		duration,
	)
	if summary.OutputFile != "" {
		message += fmt.Sprintf("\nOutput: %s", summary.OutputFile)
	}

	if err := s.SendMessage(message); err != nil {
		s.logger.WithError(err).Error("Failed to send crawl summary")
		return err
	}
	return nil
}
