// Package search keeps an Elasticsearch index of case requests in step with
// the database and serves full-text queries over it.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"

	"github.com/bianchibruno/comp0034-fyp/internal/models"
)

type Service struct {
	ES    *elasticsearch.Client
	Index string
}

func NewService(es *elasticsearch.Client, index string) *Service {
	return &Service{ES: es, Index: index}
}

func (s *Service) IndexRequest(ctx context.Context, req *models.Request) error {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(req); err != nil {
		return fmt.Errorf("search: encode request: %w", err)
	}

	res, err := s.ES.Index(
		s.Index,
		&buf,
		s.ES.Index.WithContext(ctx),
		s.ES.Index.WithDocumentID(strconv.Itoa(req.ID)),
	)
	if err != nil {
		return fmt.Errorf("search: index request: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("search: index request: %s", res.Status())
	}
	return nil
}

func (s *Service) RemoveRequest(ctx context.Context, id int) error {
	res, err := s.ES.Delete(s.Index, strconv.Itoa(id), s.ES.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("search: remove request: %w", err)
	}
	defer res.Body.Close()

	// 404 means the document was never indexed, which is fine here.
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("search: remove request: %s", res.Status())
	}
	return nil
}

func (s *Service) Search(ctx context.Context, query string, from, size int) (int64, []models.Request, error) {
	body := map[string]interface{}{
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query": query,
				"fields": []string{
					"case_type^2", "status",
					"request_received_year", "request_received_quarter",
					"request_received_month", "case_active_days_grouped",
				},
				"fuzziness": "AUTO",
			},
		},
		"from": from,
		"size": size,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return 0, nil, fmt.Errorf("search: encode query: %w", err)
	}

	res, err := s.ES.Search(
		s.ES.Search.WithContext(ctx),
		s.ES.Search.WithIndex(s.Index),
		s.ES.Search.WithBody(&buf),
	)
	if err != nil {
		return 0, nil, fmt.Errorf("search: query: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return 0, nil, fmt.Errorf("search: query: %s", res.Status())
	}

	var r struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source models.Request `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return 0, nil, err
	}

	requests := make([]models.Request, len(r.Hits.Hits))
	for i, hit := range r.Hits.Hits {
		requests[i] = hit.Source
	}
	return r.Hits.Total.Value, requests, nil
}
