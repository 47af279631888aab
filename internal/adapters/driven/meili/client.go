// Package meili talks to a Meilisearch server over its REST API. Every
// write in Meilisearch is asynchronous: the server enqueues a task and
// the client polls it until it settles.
package meili

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"github.com/sifria-labs/sifria-cli/internal/core/domain"
	"github.com/sifria-labs/sifria-cli/internal/core/ports/driven"
	"github.com/sifria-labs/sifria-cli/internal/logger"
)

// DefaultHost is the local Meilisearch endpoint.
const DefaultHost = "http://localhost:7700"

// taskPollInterval and taskPollTimeout bound the wait for a single
// enqueued task. Document batches on a loaded server can take a while.
const (
	taskPollInterval = 500 * time.Millisecond
	taskPollTimeout  = 5 * time.Minute
)

// Client implements driven.SearchEngine against a Meilisearch server.
type Client struct {
	http    *resty.Client
	index   string
	limiter *rate.Limiter
}

var _ driven.SearchEngine = (*Client)(nil)

// NewClient creates a client for the given host and index. The API key
// may be empty for unsecured local instances.
func NewClient(host, apiKey, index string) *Client {
	httpClient := resty.New().
		SetBaseURL(host).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json")
	if apiKey != "" {
		httpClient.SetAuthToken(apiKey)
	}
	return &Client{
		http:    httpClient,
		index:   index,
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

type taskRef struct {
	TaskUID int64 `json:"taskUid"`
}

type taskStatus struct {
	Status string `json:"status"`
	Error  struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// EnsureIndex creates the index with "id" as primary key. An index
// that already exists is not an error.
func (c *Client) EnsureIndex(ctx context.Context) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var ref taskRef
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{"uid": c.index, "primaryKey": "id"}).
		SetResult(&ref).
		Post("/indexes")
	if err != nil {
		return fmt.Errorf("creating index %s: %w", c.index, err)
	}
	if resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("creating index %s: unexpected status %s", c.index, resp.Status())
	}

	task, err := c.waitForTask(ctx, ref.TaskUID)
	if err != nil {
		return fmt.Errorf("creating index %s: %w", c.index, err)
	}
	if task.Status == "failed" {
		if task.Error.Code == "index_already_exists" {
			logger.Debug("index %s already exists", c.index)
			return nil
		}
		return fmt.Errorf("creating index %s: %s", c.index, task.Error.Message)
	}
	return nil
}

// settingsPayload is the wire shape of the index settings.
type settingsPayload struct {
	SearchableAttributes []string `json:"searchableAttributes"`
	DisplayedAttributes  []string `json:"displayedAttributes"`
	FilterableAttributes []string `json:"filterableAttributes"`
	SortableAttributes   []string `json:"sortableAttributes"`
	SeparatorTokens      []string `json:"separatorTokens"`
	RankingRules         []string `json:"rankingRules"`
	TypoTolerance        struct {
		MinWordSizeForTypos struct {
			OneTypo  int `json:"oneTypo"`
			TwoTypos int `json:"twoTypos"`
		} `json:"minWordSizeForTypos"`
	} `json:"typoTolerance"`
	Pagination struct {
		MaxTotalHits int `json:"maxTotalHits"`
	} `json:"pagination"`
}

// ApplySettings implements driven.SearchEngine.
func (c *Client) ApplySettings(ctx context.Context, settings driven.IndexSettings) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	payload := settingsPayload{
		SearchableAttributes: settings.SearchableAttributes,
		DisplayedAttributes:  settings.DisplayedAttributes,
		FilterableAttributes: settings.FilterableAttributes,
		SortableAttributes:   settings.SortableAttributes,
		SeparatorTokens:      settings.SeparatorTokens,
		RankingRules:         settings.RankingRules,
	}
	payload.TypoTolerance.MinWordSizeForTypos.OneTypo = settings.OneTypoMinLength
	payload.TypoTolerance.MinWordSizeForTypos.TwoTypos = settings.TwoTyposMinLength
	payload.Pagination.MaxTotalHits = settings.MaxTotalHits

	var ref taskRef
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(payload).
		SetResult(&ref).
		Patch("/indexes/" + c.index + "/settings")
	if err != nil {
		return fmt.Errorf("applying settings: %w", err)
	}
	if resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("applying settings: unexpected status %s", resp.Status())
	}

	task, err := c.waitForTask(ctx, ref.TaskUID)
	if err != nil {
		return fmt.Errorf("applying settings: %w", err)
	}
	if task.Status == "failed" {
		return fmt.Errorf("applying settings: %s", task.Error.Message)
	}
	return nil
}

// AddDocuments implements driven.SearchEngine. The call returns after
// the server has fully processed the batch, so a nil error means the
// documents are searchable.
func (c *Client) AddDocuments(ctx context.Context, chunks []domain.Chunk) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var ref taskRef
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chunks).
		SetResult(&ref).
		Post("/indexes/" + c.index + "/documents")
	if err != nil {
		return fmt.Errorf("uploading documents: %w", err)
	}
	if resp.StatusCode() != http.StatusAccepted {
		return fmt.Errorf("uploading documents: unexpected status %s", resp.Status())
	}

	task, err := c.waitForTask(ctx, ref.TaskUID)
	if err != nil {
		return fmt.Errorf("uploading documents: %w", err)
	}
	if task.Status == "failed" {
		return fmt.Errorf("uploading documents: %s", task.Error.Message)
	}
	return nil
}

// waitForTask polls the task until it settles. Pending statuses are
// retried on a constant interval up to taskPollTimeout.
func (c *Client) waitForTask(ctx context.Context, uid int64) (*taskStatus, error) {
	var task taskStatus
	backoff := retry.WithMaxDuration(taskPollTimeout, retry.NewConstant(taskPollInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&task).
			Get(fmt.Sprintf("/tasks/%d", uid))
		if err != nil {
			return retry.RetryableError(err)
		}
		if resp.StatusCode() != http.StatusOK {
			return retry.RetryableError(fmt.Errorf("task %d: unexpected status %s", uid, resp.Status()))
		}
		if task.Status == "enqueued" || task.Status == "processing" {
			return retry.RetryableError(fmt.Errorf("task %d still %s", uid, task.Status))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("waiting for task %d: %w", uid, err)
	}
	return &task, nil
}
