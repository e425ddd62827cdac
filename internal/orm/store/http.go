package store

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

// Doer issues HTTP requests; *http.Client satisfies it
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// HTTPStore persists models through the REST API at <baseURL>/<storageKey>.
// Failures are normalized into *RequestError or *TransportError and logged
// once at error level before they are returned.
type HTTPStore struct {
	Base
	baseURL string
	client  Doer
}

var _ Store = (*HTTPStore)(nil)

// NewHTTPStore creates an HTTP store for class. A nil client uses http.DefaultClient.
func NewHTTPStore(class *schema.Class, baseURL string, client Doer, logger logging.Logger) (*HTTPStore, error) {
	base, err := NewBase(class, logger, "HTTP Store")
	if err != nil {
		return nil, err
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPStore{
		Base:    base,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  client,
	}, nil
}

// NewHTTPStores creates an HTTP store for every concrete class of registry,
// keyed by storage key. Abstract classes are skipped.
func NewHTTPStores(baseURL string, registry *schema.Registry, client Doer, logger logging.Logger) (map[string]*HTTPStore, error) {
	stores := make(map[string]*HTTPStore)
	for _, class := range registry.Classes() {
		if class.IsAbstract() {
			continue
		}
		s, err := NewHTTPStore(class, baseURL, client, logger)
		if err != nil {
			return nil, err
		}
		stores[s.StorageKey()] = s
	}
	return stores, nil
}

// Endpoint returns the REST endpoint of the collection, or of one entity
// when id is defined
func (s *HTTPStore) Endpoint(id any) string {
	endpoint := s.baseURL + "/" + s.StorageKey()
	if key, ok := model.IdentifierKey(id); ok {
		endpoint += "/" + url.PathEscape(key)
	}
	return endpoint
}

// FindOne reads one entity. An undefined id fails with ErrNoIdentifier
// without a request.
func (s *HTTPStore) FindOne(ctx context.Context, id any) (*model.Model, error) {
	key, ok := s.LookupKey(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentifier, s.Class().Name())
	}
	body, err := s.do(ctx, http.MethodGet, s.Endpoint(key), nil, nil)
	if err != nil {
		return nil, err
	}
	return s.Hydrate(body)
}

// FindMany reads the collection. query is appended to the URL as is.
func (s *HTTPStore) FindMany(ctx context.Context, query url.Values) (*model.Collection[*model.Model], error) {
	body, err := s.do(ctx, http.MethodGet, s.Endpoint(nil), query, nil)
	if err != nil {
		return nil, err
	}
	return s.HydrateMany(body)
}

// SaveOne replaces the entity with the model's write payload. The response
// body is not hydrated back into m.
func (s *HTTPStore) SaveOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	key, err := s.Key(m)
	if err != nil {
		return nil, err
	}
	payload, err := m.Payload()
	if err != nil {
		return nil, err
	}
	data, err := payload.MarshalJSON()
	if err != nil {
		return nil, err
	}

	if _, err := s.exchange(ctx, http.MethodPut, s.Endpoint(key), nil, data); err != nil {
		return nil, err
	}
	return m, nil
}

// DeleteOne deletes the entity
func (s *HTTPStore) DeleteOne(ctx context.Context, m *model.Model) (*model.Model, error) {
	key, err := s.Key(m)
	if err != nil {
		return nil, err
	}
	if _, err := s.exchange(ctx, http.MethodDelete, s.Endpoint(key), nil, nil); err != nil {
		return nil, err
	}
	return m, nil
}

// HasOne checks the entity with HEAD. Any failure, including transport
// errors, reads as false and is not logged.
func (s *HTTPStore) HasOne(ctx context.Context, m *model.Model) bool {
	key, err := s.Key(m)
	if err != nil {
		return false
	}
	req, err := s.newRequest(ctx, http.MethodHead, s.Endpoint(key), nil, nil)
	if err != nil {
		return false
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return false
	}
	defer drain(resp)
	return ok(resp)
}

// do runs a request whose success body must be decoded
func (s *HTTPStore) do(ctx context.Context, method, endpoint string, query url.Values, body []byte) (schema.Value, error) {
	resp, err := s.exchange(ctx, method, endpoint, query, body)
	if err != nil {
		return schema.Value{}, err
	}

	v, err := schema.ParseJSON(resp)
	if err != nil {
		return schema.Value{}, s.fail(&TransportError{Method: method, URL: endpoint, Err: err})
	}
	return v, nil
}

// exchange issues the request, checks the status and returns the body
func (s *HTTPStore) exchange(ctx context.Context, method, endpoint string, query url.Values, body []byte) ([]byte, error) {
	req, err := s.newRequest(ctx, method, endpoint, query, body)
	if err != nil {
		return nil, s.fail(&TransportError{Method: method, URL: endpoint, Err: err})
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, s.fail(&TransportError{Method: method, URL: req.URL.String(), Err: err})
	}
	defer drain(resp)

	if !ok(resp) {
		return nil, s.fail(newRequestError(req, resp))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, s.fail(&TransportError{Method: method, URL: req.URL.String(), Err: err})
	}
	return data, nil
}

func (s *HTTPStore) newRequest(ctx context.Context, method, endpoint string, query url.Values, body []byte) (*http.Request, error) {
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// fail logs a normalized error once and hands it back
func (s *HTTPStore) fail(err error) error {
	s.Logger().Error(err.Error())
	return err
}

func ok(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	_ = resp.Body.Close()
}
