// Package videoroom issues join links for live class sessions.
package videoroom

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"acmportal/config"

	"github.com/gofiber/fiber/v2"
)

// ErrNotConfigured is returned when no provider credentials are set.
var ErrNotConfigured = errors.New("video room provider is not configured")

// JoinRequest describes one single-use login link.
type JoinRequest struct {
	RoomID   string
	UserID   string
	Nickname string
	TTL      time.Duration
}

type Provider interface {
	// CreateJoinLink returns "" with a nil error when the provider
	// answered without a link.
	CreateJoinLink(ctx context.Context, req JoinRequest) (string, error)
}

// Skyroom calls the Skyroom web service API.
type Skyroom struct {
	baseURL string
	apiKey  string
	timeout time.Duration
}

func NewSkyroom(cfg config.Skyroom) *Skyroom {
	return &Skyroom{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		timeout: cfg.Timeout,
	}
}

type skyroomResponse struct {
	OK     bool            `json:"ok"`
	Result json.RawMessage `json:"result"`
	Error  struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_message"`
	} `json:"error"`
}

func (s *Skyroom) CreateJoinLink(ctx context.Context, req JoinRequest) (string, error) {
	if s.baseURL == "" || s.apiKey == "" {
		return "", ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var roomID interface{} = req.RoomID
	if n, err := strconv.ParseInt(req.RoomID, 10, 64); err == nil {
		roomID = n
	}

	agent := fiber.Post(fmt.Sprintf("%s/skyroom/api/%s", s.baseURL, s.apiKey))
	agent.Set(fiber.HeaderAccept, fiber.MIMEApplicationJSON)
	agent.JSON(fiber.Map{
		"action": "createLoginUrl",
		"params": fiber.Map{
			"room_id":    roomID,
			"user_id":    req.UserID,
			"nickname":   req.Nickname,
			"access":     1,
			"concurrent": 1,
			"language":   "fa",
			"ttl":        int(req.TTL / time.Second),
		},
	})
	agent.Timeout(s.timeout)

	var resp skyroomResponse
	status, _, errs := agent.Struct(&resp)
	if len(errs) > 0 {
		return "", fmt.Errorf("skyroom createLoginUrl: %w", errs[0])
	}
	if status >= fiber.StatusBadRequest {
		return "", fmt.Errorf("skyroom createLoginUrl: http status %d", status)
	}
	if resp.Error.Code != 0 {
		return "", fmt.Errorf("skyroom createLoginUrl: %d %s", resp.Error.Code, resp.Error.Message)
	}

	var link string
	if len(resp.Result) > 0 && json.Unmarshal(resp.Result, &link) != nil {
		return "", nil
	}
	return link, nil
}
