package sink

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchutil"

	"github.com/telhawk-systems/authsim/internal/models"
)

// OpenSearchConfig configures the OpenSearch sink.
type OpenSearchConfig struct {
	URL          string
	Username     string
	Password     string
	Insecure     bool
	LogIndex     string
	AttackIndex  string
	FlushRecords int
}

// OpenSearch bulk-indexes OCSF authentication events and attack documents.
type OpenSearch struct {
	client *opensearch.Client
	cfg    OpenSearchConfig
}

// NewOpenSearch creates a client and checks that the cluster answers.
func NewOpenSearch(ctx context.Context, cfg OpenSearchConfig) (*OpenSearch, error) {
	if cfg.LogIndex == "" {
		cfg.LogIndex = "authsim-auth"
	}
	if cfg.AttackIndex == "" {
		cfg.AttackIndex = "authsim-attacks"
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: cfg.Insecure}

	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{cfg.URL},
		Username:  cfg.Username,
		Password:  cfg.Password,
		Transport: transport,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create opensearch client: %w", err)
	}

	info, err := client.Info(client.Info.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to ping opensearch: %w: %v", models.ErrIO, err)
	}
	defer info.Body.Close()
	if info.IsError() {
		return nil, fmt.Errorf("opensearch returned error %s: %w", info.Status(), models.ErrIO)
	}

	return &OpenSearch{client: client, cfg: cfg}, nil
}

func (o *OpenSearch) Name() string { return "opensearch" }

func (o *OpenSearch) Write(ctx context.Context, run *models.Run) error {
	bi, err := opensearchutil.NewBulkIndexer(opensearchutil.BulkIndexerConfig{
		Client:     o.client,
		NumWorkers: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create bulk indexer: %w", err)
	}

	var (
		mu       sync.Mutex
		failed   int
		firstErr error
	)
	onFailure := func(_ context.Context, _ opensearchutil.BulkIndexerItem, res opensearchutil.BulkIndexerResponseItem, err error) {
		if err == nil {
			err = fmt.Errorf("%s: %s", res.Error.Type, res.Error.Reason)
		}
		mu.Lock()
		defer mu.Unlock()
		failed++
		if firstErr == nil {
			firstErr = err
		}
	}

	add := func(index, id string, doc interface{}) error {
		data, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("failed to marshal document: %w", err)
		}
		return bi.Add(ctx, opensearchutil.BulkIndexerItem{
			Action:     "index",
			Index:      index,
			DocumentID: id,
			Body:       bytes.NewReader(data),
			OnFailure:  onFailure,
		})
	}

	for i, rec := range run.Result.Logs {
		if err := add(o.cfg.LogIndex, run.ID+"-"+strconv.Itoa(i), AuthEvent(run.ID, rec)); err != nil {
			bi.Close(ctx)
			return fmt.Errorf("bulk add: %w: %v", models.ErrIO, err)
		}
	}
	for i, a := range run.Result.Attacks {
		doc := map[string]interface{}{
			"run_id":     run.ID,
			"start":      a.Start.UnixMilli(),
			"end":        a.End.UnixMilli(),
			"source_ip":  a.SourceIP,
			"duration_s": a.Duration().Seconds(),
			"tags":       []string{AttackTag},
		}
		if err := add(o.cfg.AttackIndex, run.ID+"-attack-"+strconv.Itoa(i), doc); err != nil {
			bi.Close(ctx)
			return fmt.Errorf("bulk add: %w: %v", models.ErrIO, err)
		}
	}

	if err := bi.Close(ctx); err != nil {
		return fmt.Errorf("bulk indexer close: %w: %v", models.ErrIO, err)
	}
	if failed > 0 {
		return fmt.Errorf("%d documents failed to index, first: %v: %w", failed, firstErr, models.ErrIO)
	}
	return nil
}

func (o *OpenSearch) Close() error { return nil }
