package opensearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	opensearchgo "github.com/opensearch-project/opensearch-go/v2"
	"github.com/tendant/content-catalog/pkg/catalog"
)

const defaultIndexName = "contents"

// indexMapping matches the fields of catalog.SearchDocument: analyzed text
// for title/description, keywords for the facets, dates for the rest.
const indexMapping = `{
  "settings": {"index": {"number_of_shards": 1, "number_of_replicas": 0, "refresh_interval": "1s"}},
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "title": {"type": "text"},
      "description": {"type": "text"},
      "categories": {"type": "keyword"},
      "language": {"type": "keyword"},
      "media_type": {"type": "keyword"},
      "status": {"type": "keyword"},
      "publication_date": {"type": "date"},
      "created_at": {"type": "date"},
      "updated_at": {"type": "date"}
    }
  }
}`

// Index implements catalog.SearchIndex against an OpenSearch cluster.
type Index struct {
	client *opensearchgo.Client
	index  string
}

// Config carries the OpenSearch connection settings.
type Config struct {
	Addresses []string
	Username  string
	Password  string
	IndexName string
}

// New builds a client and verifies the cluster is reachable.
func New(ctx context.Context, cfg Config) (*Index, error) {
	client, err := opensearchgo.NewClient(opensearchgo.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("opensearch client: %w", err)
	}

	name := cfg.IndexName
	if name == "" {
		name = defaultIndexName
	}
	idx := &Index{client: client, index: name}

	res, err := client.Ping(client.Ping.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("opensearch not reachable: %w", err)
	}
	res.Body.Close()
	return idx, nil
}

// EnsureIndex creates the index with the document mapping if missing.
func (i *Index) EnsureIndex(ctx context.Context) error {
	res, err := i.client.Indices.Exists([]string{i.index},
		i.client.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("index exists check: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := i.client.Indices.Create(i.index,
		i.client.Indices.Create.WithBody(strings.NewReader(indexMapping)),
		i.client.Indices.Create.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("create index %s: %s", i.index, createRes.String())
	}
	return nil
}

func (i *Index) Upsert(ctx context.Context, doc catalog.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	res, err := i.client.Index(i.index, bytes.NewReader(body),
		i.client.Index.WithDocumentID(doc.ID.String()),
		i.client.Index.WithContext(ctx))
	if err != nil {
		return &catalog.IndexError{DocID: doc.ID, Op: "upsert", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() {
		return &catalog.IndexError{DocID: doc.ID, Op: "upsert", Err: fmt.Errorf("%s", res.String())}
	}
	return nil
}

// Delete removes the document by id; a 404 from the cluster means the
// document is already gone and counts as success.
func (i *Index) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := i.client.Delete(i.index, id.String(),
		i.client.Delete.WithContext(ctx))
	if err != nil {
		return &catalog.IndexError{DocID: id, Op: "delete", Err: err}
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return &catalog.IndexError{DocID: id, Op: "delete", Err: fmt.Errorf("%s", res.String())}
	}
	return nil
}

func (i *Index) Search(ctx context.Context, q catalog.SearchQuery) (int, []uuid.UUID, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return 0, nil, err
	}

	res, err := i.client.Search(
		i.client.Search.WithContext(ctx),
		i.client.Search.WithIndex(i.index),
		i.client.Search.WithBody(bytes.NewReader(body)))
	if err != nil {
		return 0, nil, fmt.Errorf("search: %w", err)
	}
	defer res.Body.Close()
	// A missing index means nothing has been synced yet: empty result, not
	// an error.
	if res.StatusCode == 404 {
		return 0, nil, nil
	}
	if res.IsError() {
		return 0, nil, fmt.Errorf("search: %s", res.String())
	}

	var parsed struct {
		Hits struct {
			Total struct {
				Value int `json:"value"`
			} `json:"total"`
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, nil, fmt.Errorf("decode search response: %w", err)
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		id, err := uuid.Parse(hit.ID)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return parsed.Hits.Total.Value, ids, nil
}

func buildQuery(q catalog.SearchQuery) map[string]any {
	var must, filter []map[string]any

	if q.Query != "" {
		must = append(must, map[string]any{
			"multi_match": map[string]any{
				"query":     q.Query,
				"fields":    []string{"title^3", "description^2"},
				"type":      "best_fields",
				"operator":  "and",
				"fuzziness": "AUTO",
			},
		})
	}
	term := func(field, value string) {
		filter = append(filter, map[string]any{"term": map[string]any{field: value}})
	}
	if q.MediaType != "" {
		term("media_type", q.MediaType)
	}
	if q.Category != "" {
		term("categories", q.Category)
	}
	if q.Language != "" {
		term("language", q.Language)
	}
	if q.Status != "" {
		term("status", q.Status)
	}
	dateRange := func(bound string, t *time.Time) {
		if t != nil {
			filter = append(filter, map[string]any{
				"range": map[string]any{"publication_date": map[string]any{bound: t.Format(time.RFC3339)}},
			})
		}
	}
	dateRange("gte", q.DateFrom)
	dateRange("lte", q.DateTo)

	var query map[string]any
	if len(must) > 0 || len(filter) > 0 {
		b := map[string]any{}
		if len(must) > 0 {
			b["must"] = must
		}
		if len(filter) > 0 {
			b["filter"] = filter
		}
		query = map[string]any{"bool": b}
	} else {
		query = map[string]any{"match_all": map[string]any{}}
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	return map[string]any{
		"query": query,
		"sort": []map[string]any{
			{"publication_date": map[string]any{"order": "desc"}},
			{"created_at": map[string]any{"order": "desc"}},
		},
		"from":             q.Offset,
		"size":             limit,
		"track_total_hits": true,
	}
}
