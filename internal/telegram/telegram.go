package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"hackstats/internal/model"
	"hackstats/internal/providers/common"
)

const (
	DefaultAPIBase = "https://api.telegram.org"
	messageLimit   = 4096
)

// Sender queues alerts and posts them to one chat, at most one message per
// minInterval.
type Sender struct {
	token    string
	chat     string
	threadID *int
	apiBase  string

	client       *http.Client
	queue        chan string
	minInterval  time.Duration
	lastSentTime time.Time
	log          *slog.Logger

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

type Option func(*Sender)

func WithAPIBase(base string) Option {
	return func(s *Sender) {
		s.apiBase = strings.TrimRight(base, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(s *Sender) {
		s.client = client
	}
}

func WithMinInterval(d time.Duration) Option {
	return func(s *Sender) {
		s.minInterval = d
	}
}

func WithLogger(log *slog.Logger) Option {
	return func(s *Sender) {
		s.log = log
	}
}

func NewSender(token, chat string, threadID *int, options ...Option) *Sender {
	s := &Sender{
		token:       token,
		chat:        chat,
		threadID:    threadID,
		apiBase:     DefaultAPIBase,
		client:      &http.Client{Timeout: 15 * time.Second},
		queue:       make(chan string, 100),
		minInterval: 1200 * time.Millisecond,
		log:         slog.Default(),
	}
	for _, option := range options {
		option(s)
	}

	s.wg.Add(1)
	go s.worker()
	return s
}

// SendAlert queues h for delivery. Alerts sent after Close are dropped.
func (s *Sender) SendAlert(h model.Hackathon) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.log.Warn("telegram sender closed; alert dropped", "id", h.ID)
		return
	}
	for _, part := range splitMessage(formatMessage(h), messageLimit) {
		s.queue <- part
	}
}

// Close stops accepting alerts and waits until the queue drains or ctx ends.
func (s *Sender) Close(ctx context.Context) error {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.queue)
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Sender) worker() {
	defer s.wg.Done()
	for msg := range s.queue {
		s.sendWithRateLimit(msg)
	}
}

func (s *Sender) sendWithRateLimit(text string) {
	wait := time.Until(s.lastSentTime.Add(s.minInterval))
	if wait > 0 {
		time.Sleep(wait)
	}

	retryAfter, err := s.postMessage(text)
	if err != nil {
		if retryAfter > 0 {
			s.log.Warn("telegram rate limit hit", "retry_after", retryAfter)
			time.Sleep(retryAfter)
			if _, retryErr := s.postMessage(text); retryErr != nil {
				s.log.Error("telegram retry failed", "error", retryErr)
				return
			}
			s.lastSentTime = time.Now()
			s.log.Info("telegram alert sent", "retried", true)
			return
		}

		s.log.Error("telegram send error", "error", err)
		return
	}

	s.lastSentTime = time.Now()
	s.log.Info("telegram alert sent")
}

func (s *Sender) postMessage(text string) (time.Duration, error) {
	payload := map[string]any{
		"chat_id":    s.chat,
		"text":       text,
		"parse_mode": "HTML",
	}
	if s.threadID != nil {
		payload["message_thread_id"] = *s.threadID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return 0, err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", s.apiBase, s.token)
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var parsed telegramResponse
	_ = json.NewDecoder(resp.Body).Decode(&parsed)

	if resp.StatusCode == http.StatusTooManyRequests && parsed.Parameters.RetryAfter > 0 {
		return time.Duration(parsed.Parameters.RetryAfter) * time.Second, fmt.Errorf("rate limited")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return 0, fmt.Errorf("telegram error: %d %s", resp.StatusCode, parsed.Description)
	}
	return 0, nil
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
	Parameters  struct {
		RetryAfter int `json:"retry_after"`
	} `json:"parameters"`
}

func formatMessage(h model.Hackathon) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🏆 <b>%s</b>\n", html.EscapeString(h.Title))
	if h.OrganizationName != "" {
		fmt.Fprintf(&b, "🏢 %s\n", html.EscapeString(h.OrganizationName))
	}
	fmt.Fprintf(&b, "💰 Prize: %s\n", common.FormatDollars(h.PrizeValue()))
	if h.Location != "" {
		fmt.Fprintf(&b, "📍 %s\n", html.EscapeString(h.Location))
	}
	if h.SubmissionPeriodDates != "" {
		fmt.Fprintf(&b, "🗓 %s\n", html.EscapeString(h.SubmissionPeriodDates))
	}
	if h.TimeLeftToSubmission != "" {
		fmt.Fprintf(&b, "⏰ %s\n", html.EscapeString(h.TimeLeftToSubmission))
	}
	if themes := h.ThemeList(); len(themes) > 0 {
		fmt.Fprintf(&b, "🛠 %s\n", html.EscapeString(strings.Join(themes, ", ")))
	}
	fmt.Fprintf(&b, "👥 Registrations: %s\n", common.FormatNumber(int64(h.RegistrationsCount)))
	fmt.Fprintf(&b, "🔗 %s", h.URL)
	return b.String()
}

func splitMessage(message string, limit int) []string {
	runes := []rune(message)
	if len(runes) <= limit {
		return []string{message}
	}

	parts := []string{}
	for start := 0; start < len(runes); start += limit {
		end := min(start+limit, len(runes))
		parts = append(parts, string(runes[start:end]))
	}
	return parts
}
