package sink

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/telhawk-systems/authsim/internal/models"
)

type bulkAction struct {
	Index struct {
		Index string `json:"_index"`
		ID    string `json:"_id"`
	} `json:"index"`
}

// mockOpenSearch answers the info and bulk endpoints. failItems makes every bulk
// item fail with a mapping error.
func mockOpenSearch(t *testing.T, failItems bool) (*httptest.Server, func() []bulkAction) {
	t.Helper()
	var (
		mu      sync.Mutex
		actions []bulkAction
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.URL.Path == "/":
			w.Write([]byte(`{"name":"test-node","cluster_name":"test-cluster","version":{"number":"2.11.0","distribution":"opensearch"}}`))
		case strings.HasSuffix(r.URL.Path, "/_bulk"):
			var items []string
			scanner := bufio.NewScanner(r.Body)
			scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
			for scanner.Scan() {
				var action bulkAction
				require.NoError(t, json.Unmarshal(scanner.Bytes(), &action))
				require.True(t, scanner.Scan(), "action line without document")

				mu.Lock()
				actions = append(actions, action)
				mu.Unlock()

				if failItems {
					items = append(items, `{"index":{"status":400,"error":{"type":"mapper_parsing_exception","reason":"bad field"}}}`)
				} else {
					items = append(items, fmt.Sprintf(`{"index":{"_index":%q,"_id":%q,"status":201,"result":"created"}}`, action.Index.Index, action.Index.ID))
				}
			}
			fmt.Fprintf(w, `{"took":1,"errors":%t,"items":[%s]}`, failItems, strings.Join(items, ","))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))

	return server, func() []bulkAction {
		mu.Lock()
		defer mu.Unlock()
		return append([]bulkAction(nil), actions...)
	}
}

func TestOpenSearch_Write(t *testing.T) {
	server, actions := mockOpenSearch(t, false)
	defer server.Close()

	ctx := context.Background()
	sink, err := NewOpenSearch(ctx, OpenSearchConfig{URL: server.URL})
	require.NoError(t, err)
	defer sink.Close()

	require.NoError(t, sink.Write(ctx, testRun(t)))

	got := actions()
	require.Len(t, got, 4)
	assert.Equal(t, "authsim-auth", got[0].Index.Index)
	assert.Equal(t, testRunID+"-0", got[0].Index.ID)
	assert.Equal(t, "authsim-attacks", got[3].Index.Index)
	assert.Equal(t, testRunID+"-attack-0", got[3].Index.ID)
}

func TestOpenSearch_ItemFailures(t *testing.T) {
	server, _ := mockOpenSearch(t, true)
	defer server.Close()

	ctx := context.Background()
	sink, err := NewOpenSearch(ctx, OpenSearchConfig{URL: server.URL, LogIndex: "lab-auth"})
	require.NoError(t, err)

	err = sink.Write(ctx, testRun(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrIO)
	assert.Contains(t, err.Error(), "mapper_parsing_exception")
}

func TestNewOpenSearch_ErrorResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error": "Internal server error"}`))
	}))
	defer server.Close()

	_, err := NewOpenSearch(context.Background(), OpenSearchConfig{URL: server.URL})
	assert.ErrorIs(t, err, models.ErrIO)
}
