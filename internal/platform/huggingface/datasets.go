package huggingface

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"medinsight/internal/model"
)

// maxPageSize is the datasets-server limit for one /rows call.
const maxPageSize = 100

// ErrStop can be returned from a Stream callback to end streaming early
// without reporting an error.
var ErrStop = errors.New("stop streaming")

// FieldMap names the dataset columns that feed a model.Record.
type FieldMap struct {
	Body     string
	Title    string
	Source   string
	Category string
}

type DatasetConfig struct {
	BaseURL    string
	Dataset    string
	Config     string
	Split      string
	Token      string
	PageSize   int
	MaxRecords int
	Fields     FieldMap
	Timeout    time.Duration
}

// DatasetClient reads rows of a hosted dataset page by page through the
// datasets-server API, so the full dataset never has to be downloaded.
type DatasetClient struct {
	httpClient *http.Client
	cfg        DatasetConfig
}

func NewDatasetClient(cfg DatasetConfig) *DatasetClient {
	if cfg.PageSize <= 0 || cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.Config == "" {
		cfg.Config = "default"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &DatasetClient{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cfg:        cfg,
	}
}

// Name identifies the dataset and split for logs.
func (c *DatasetClient) Name() string {
	return c.cfg.Dataset + "/" + c.cfg.Split
}

type rowsPage struct {
	Rows []struct {
		RowIdx int                        `json:"row_idx"`
		Row    map[string]json.RawMessage `json:"row"`
	} `json:"rows"`
	NumRowsTotal int `json:"num_rows_total"`
}

// Stream calls fn for each row in dataset order until the split is
// exhausted, MaxRecords rows were delivered, or fn returns an error.
func (c *DatasetClient) Stream(ctx context.Context, fn func(model.Record) error) error {
	delivered := 0
	offset := 0
	for {
		length := c.cfg.PageSize
		if c.cfg.MaxRecords > 0 && c.cfg.MaxRecords-delivered < length {
			length = c.cfg.MaxRecords - delivered
		}
		page, err := c.fetchRows(ctx, offset, length)
		if err != nil {
			return err
		}
		if len(page.Rows) == 0 {
			return nil
		}
		for _, row := range page.Rows {
			if err := fn(c.toRecord(row.Row)); err != nil {
				if errors.Is(err, ErrStop) {
					return nil
				}
				return err
			}
			delivered++
		}
		offset += len(page.Rows)
		if c.cfg.MaxRecords > 0 && delivered >= c.cfg.MaxRecords {
			return nil
		}
		if page.NumRowsTotal > 0 && offset >= page.NumRowsTotal {
			return nil
		}
	}
}

func (c *DatasetClient) fetchRows(ctx context.Context, offset, length int) (*rowsPage, error) {
	q := url.Values{}
	q.Set("dataset", c.cfg.Dataset)
	q.Set("config", c.cfg.Config)
	q.Set("split", c.cfg.Split)
	q.Set("offset", strconv.Itoa(offset))
	q.Set("length", strconv.Itoa(length))

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/rows?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build rows request failed: %w", err)
	}
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rows request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read rows response failed: %w", err)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("rows response status %d: %s", resp.StatusCode, string(raw))
	}

	var page rowsPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("parse rows json failed: %w", err)
	}
	return &page, nil
}

func (c *DatasetClient) toRecord(row map[string]json.RawMessage) model.Record {
	return model.Record{
		Text:     stringField(row, c.cfg.Fields.Body),
		Question: stringField(row, c.cfg.Fields.Title),
		URL:      stringField(row, c.cfg.Fields.Source),
		QType:    stringField(row, c.cfg.Fields.Category),
	}
}

func stringField(row map[string]json.RawMessage, name string) *string {
	if name == "" {
		return nil
	}
	raw, ok := row[name]
	if !ok {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil
	}
	return &s
}
