// Package pocket48 resolves Pocket48 live ids to playable stream URLs.
package pocket48

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"

	"liverec/internal/domain"
)

const (
	DefaultAPIBaseURL = "https://pocketapi.48.cn"
	DefaultUserAgent  = "PocketFans201807/6.0.16 (iPhone; iOS 13.5.1; Scale/2.00)"

	liveOnePath  = "/live/api/v1/live/getLiveOne"
	liveListPath = "/live/api/v1/live/getLiveList"
)

// Config controls the Pocket48 API client.
type Config struct {
	APIBaseURL string
	UserAgent  string
	Timeout    time.Duration
}

// LiveInfo is one entry of the live list.
type LiveInfo struct {
	LiveID   string `json:"liveId"`
	Title    string `json:"title"`
	LiveType int    `json:"liveType"`
	Cover    string `json:"coverPath"`
	UserInfo struct {
		Nickname string `json:"nickname"`
	} `json:"userInfo"`
}

// Nickname returns the streamer's display name.
func (l LiveInfo) Nickname() string {
	return l.UserInfo.Nickname
}

// Target builds a recording target for the live with a default destination
// under dir.
func (l LiveInfo) Target(dir string) domain.RecordingTarget {
	title := lo.Ternary(l.Nickname() != "", l.Nickname(), l.Title)
	return domain.RecordingTarget{
		StreamID:        l.LiveID,
		DisplayTitle:    title,
		DestinationPath: domain.DefaultDestination(dir, title, l.LiveID),
	}
}

// Client implements ports.SourceResolver against the Pocket48 API.
type Client struct {
	cfg  Config
	http *http.Client
}

func NewClient(cfg Config) *Client {
	cfg.APIBaseURL = strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if strings.TrimSpace(cfg.UserAgent) == "" {
		cfg.UserAgent = DefaultUserAgent
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type envelope[T any] struct {
	Status  int    `json:"status"`
	Success bool   `json:"success"`
	Message string `json:"message"`
	Content T      `json:"content"`
}

type liveOneContent struct {
	Title          string `json:"title"`
	PlayStreamPath string `json:"playStreamPath"`
}

type liveListContent struct {
	Next     string     `json:"next"`
	LiveList []LiveInfo `json:"liveList"`
}

// Resolve returns the current play URL of liveID.
func (c *Client) Resolve(ctx context.Context, liveID string) (string, error) {
	liveID = strings.TrimSpace(liveID)
	if liveID == "" {
		return "", fmt.Errorf("%w: empty live id", domain.ErrSourceUnavailable)
	}

	var resp envelope[liveOneContent]
	if err := c.post(ctx, liveOnePath, map[string]any{"liveId": liveID}, &resp); err != nil {
		return "", err
	}
	playURL := strings.TrimSpace(resp.Content.PlayStreamPath)
	if playURL == "" {
		return "", fmt.Errorf("%w: live %s has no play stream", domain.ErrSourceUnavailable, liveID)
	}
	return playURL, nil
}

// ListLive returns one page of currently running lives and the cursor of the
// next page. An empty next cursor starts from the beginning.
func (c *Client) ListLive(ctx context.Context, next string) ([]LiveInfo, string, error) {
	body := map[string]any{
		"debug":  true,
		"next":   lo.Ternary(strings.TrimSpace(next) == "", "0", next),
		"record": false,
	}

	var resp envelope[liveListContent]
	if err := c.post(ctx, liveListPath, body, &resp); err != nil {
		return nil, "", err
	}
	return resp.Content.LiveList, resp.Content.Next, nil
}

type apiResponse interface {
	ok() (bool, string)
}

func (c *Client) post(ctx context.Context, path string, body any, out apiResponse) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIBaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json;charset=utf-8")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	res, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(res.Body, 256))
		return fmt.Errorf("%w: %s returned %d: %s", domain.ErrSourceUnavailable, path, res.StatusCode, strings.TrimSpace(string(snippet)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", domain.ErrSourceUnavailable, path, err)
	}
	if success, msg := out.ok(); !success {
		return fmt.Errorf("%w: %s", domain.ErrSourceUnavailable, lo.Ternary(msg != "", msg, "request rejected"))
	}
	return nil
}

func (e *envelope[T]) ok() (bool, string) {
	return e.Success, e.Message
}
