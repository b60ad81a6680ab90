package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"

	"fleet/internal/config"
	"fleet/internal/domain"
)

// expoTokenPrefix is the only accepted push token format. Tokens are
// validated before any network call is attempted.
const expoTokenPrefix = "ExponentPushToken["

// PushSender delivers a push notification to a device token.
type PushSender interface {
	Send(ctx context.Context, token, title, body string, data map[string]string) error
}

// ValidPushToken reports whether a token has the accepted format.
func ValidPushToken(token string) bool {
	return strings.HasPrefix(token, expoTokenPrefix) && strings.HasSuffix(token, "]")
}

// ExpoPushSender delivers notifications through the Expo push API.
type ExpoPushSender struct {
	endpoint string
	client   *http.Client
}

// NewExpoPushSender creates a push sender with a bounded request timeout so
// a slow provider cannot stall a worker tick.
func NewExpoPushSender(cfg config.PushConfig) *ExpoPushSender {
	return &ExpoPushSender{
		endpoint: cfg.Endpoint,
		client:   &http.Client{Timeout: cfg.Timeout},
	}
}

type expoPushMessage struct {
	To    string            `json:"to"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Send posts one message to the Expo push endpoint.
func (s *ExpoPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	if !ValidPushToken(token) {
		return ErrInvalidPushToken
	}

	payload, err := json.Marshal(expoPushMessage{
		To:    token,
		Title: title,
		Body:  body,
		Data:  data,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("push provider returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}

// LogPushSender logs notifications instead of delivering them. Used in
// development and wherever no push endpoint is configured.
type LogPushSender struct{}

// Send logs the notification.
func (s *LogPushSender) Send(ctx context.Context, token, title, body string, data map[string]string) error {
	log.Printf("[PUSH] token=%s title=%q body=%q data=%v", token, title, body, data)
	return nil
}

// NotificationService composes and dispatches captain-facing push
// notifications. Delivery is best-effort; callers log failures and move on.
type NotificationService struct {
	sender PushSender
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(sender PushSender) *NotificationService {
	return &NotificationService{sender: sender}
}

// NotifyTripReady tells the captain that a scheduled trip can be started.
func (s *NotificationService) NotifyTripReady(ctx context.Context, captain *domain.Captain, trip *domain.ScheduledTrip) error {
	if captain.PushToken == "" {
		return nil // Nothing to deliver to.
	}

	return s.sender.Send(ctx, captain.PushToken,
		"Trip Ready to Start",
		fmt.Sprintf("%s can be started now. Scheduled for %s.", trip.Name, trip.ScheduledTime.Format("15:04")),
		map[string]string{
			"trip_id": trip.ID,
			"type":    "TRIP_READY",
		},
	)
}

// NotifyTripForceClosed tells the captain an admin closed their active trip.
func (s *NotificationService) NotifyTripForceClosed(ctx context.Context, captain *domain.Captain, trip *domain.ScheduledTrip) error {
	if captain.PushToken == "" {
		return nil
	}

	return s.sender.Send(ctx, captain.PushToken,
		"Trip Closed",
		fmt.Sprintf("%s was closed by an administrator.", trip.Name),
		map[string]string{
			"trip_id": trip.ID,
			"type":    "TRIP_FORCE_CLOSED",
		},
	)
}

// NotifyTripCompleted confirms completion and the amount earned.
func (s *NotificationService) NotifyTripCompleted(ctx context.Context, captain *domain.Captain, trip *domain.ScheduledTrip, net float64) error {
	if captain.PushToken == "" {
		return nil
	}

	return s.sender.Send(ctx, captain.PushToken,
		"Trip Completed",
		fmt.Sprintf("%s completed. $%.2f added to your balance.", trip.Name, net),
		map[string]string{
			"trip_id": trip.ID,
			"type":    "TRIP_COMPLETED",
		},
	)
}
