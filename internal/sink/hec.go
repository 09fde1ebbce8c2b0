package sink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/telhawk-systems/authsim/internal/models"
)

// HECConfig configures the HTTP Event Collector sink.
type HECConfig struct {
	URL        string
	Token      string
	Index      string
	SourceType string
	BatchSize  int
	Timeout    time.Duration
}

type hecEvent struct {
	Time       float64                `json:"time"`
	Event      map[string]interface{} `json:"event"`
	SourceType string                 `json:"sourcetype"`
	Source     string                 `json:"source,omitempty"`
	Index      string                 `json:"index,omitempty"`
}

// HEC posts OCSF events to a Splunk-compatible /services/collector/event endpoint.
type HEC struct {
	cfg    HECConfig
	client *http.Client
}

// NewHEC returns an HEC sink. The token is required.
func NewHEC(cfg HECConfig) (*HEC, error) {
	if cfg.URL == "" || cfg.Token == "" {
		return nil, fmt.Errorf("hec sink needs url and token: %w", models.ErrInvalidInput)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.SourceType == "" {
		cfg.SourceType = "ocsf:authentication"
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")

	return &HEC{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

func (h *HEC) Name() string { return "hec" }

func (h *HEC) Write(ctx context.Context, run *models.Run) error {
	batch := make([]hecEvent, 0, h.cfg.BatchSize)
	for i, rec := range run.Result.Logs {
		batch = append(batch, hecEvent{
			Time:       float64(rec.Time.UnixNano()) / float64(time.Second),
			Event:      AuthEvent(run.ID, rec),
			SourceType: h.cfg.SourceType,
			Source:     productName,
			Index:      h.cfg.Index,
		})

		if len(batch) >= h.cfg.BatchSize || i == len(run.Result.Logs)-1 {
			if err := h.sendBatch(ctx, batch); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	return nil
}

func (h *HEC) sendBatch(ctx context.Context, events []hecEvent) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, event := range events {
		if err := encoder.Encode(event); err != nil {
			return fmt.Errorf("failed to encode event: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.cfg.URL+"/services/collector/event", &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Splunk "+h.cfg.Token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w: %v", models.ErrIO, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("HEC returned status %d: %w", resp.StatusCode, models.ErrIO)
	}
	return nil
}

func (h *HEC) Close() error {
	h.client.CloseIdleConnections()
	return nil
}
