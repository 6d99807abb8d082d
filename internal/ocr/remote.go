package ocr

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// RemoteEngine talks to an external recognition service over HTTP:
// document bytes out, the positioned-text JSON payload back.
type RemoteEngine struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewRemoteEngine creates an engine client for the service at baseURL.
func NewRemoteEngine(baseURL string, timeout time.Duration, logger *slog.Logger) (*RemoteEngine, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("recognition service URL is required")
	}
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RemoteEngine{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}, nil
}

func (e *RemoteEngine) ProcessDocument(ctx context.Context, content []byte, ext string) (*Result, error) {
	start := time.Now()

	url := fmt.Sprintf("%s/recognize?ext=%s", e.baseURL, ext)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(content))
	if err != nil {
		return nil, fmt.Errorf("build recognition request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("recognition request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read recognition response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("recognition service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	res, err := ParseResultJSON(body)
	if err != nil {
		return nil, err
	}

	e.logger.Info("ocr.remote.ok",
		"ext", ext,
		"blocks", res.TotalBlocks(),
		"avg_confidence", res.AvgConfidence(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
