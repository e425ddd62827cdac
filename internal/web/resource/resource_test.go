package resource

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
	"github.com/ubiquits/ubiquits/internal/orm/store"
	"github.com/ubiquits/ubiquits/internal/web/response"
	"github.com/ubiquits/ubiquits/internal/web/router"
)

type env struct {
	hand   *schema.Class
	memory *store.Memory
	router *router.Router
}

func setup(t *testing.T, logger logging.Logger) env {
	t.Helper()
	reg := schema.NewRegistry()
	hand := reg.MustDefine("Hand",
		schema.Primary("handId"),
		schema.Attr("name"),
		schema.Attr("fingers", schema.Coerce(schema.CastInt)),
	)

	mem, err := store.NewMemory(hand, logger)
	require.NoError(t, err)

	c, err := New(mem, logger)
	require.NoError(t, err)

	r := router.New("/api")
	c.Register(r)
	return env{hand: hand, memory: mem, router: r}
}

func (e env) serve(method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e env) seed(t *testing.T, raw map[string]any) {
	t.Helper()
	m, err := model.Hydrate(e.hand, raw)
	require.NoError(t, err)
	_, err = e.memory.SaveOne(context.Background(), m)
	require.NoError(t, err)
}

func TestRegister(t *testing.T) {
	e := setup(t, nil)

	var got []string
	for _, ri := range e.router.Routes() {
		got = append(got, ri.String()+" "+ri.Stack[len(ri.Stack)-1])
	}
	assert.Equal(t, []string{
		"GET /api/hands HandController.index",
		"GET /api/hands/{id} HandController.show",
		"HEAD /api/hands/{id} HandController.exists",
		"PUT /api/hands/{id} HandController.save",
		"DELETE /api/hands/{id} HandController.destroy",
	}, got)
}

func TestController(t *testing.T) {
	t.Run("index lists in insertion order", func(t *testing.T) {
		e := setup(t, nil)
		e.seed(t, map[string]any{"handId": "b", "name": "second"})
		e.seed(t, map[string]any{"handId": "a", "name": "first"})

		rec := e.serve(http.MethodGet, "/api/hands?name=x", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `[{"handId":"b","name":"second"},{"handId":"a","name":"first"}]`, rec.Body.String())
	})

	t.Run("index of empty store is an empty array", func(t *testing.T) {
		rec := setup(t, nil).serve(http.MethodGet, "/api/hands", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "[]", rec.Body.String())
	})

	t.Run("show", func(t *testing.T) {
		e := setup(t, nil)
		e.seed(t, map[string]any{"handId": "h1", "name": "left", "fingers": 5})

		rec := e.serve(http.MethodGet, "/api/hands/h1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"handId":"h1","name":"left","fingers":5}`, rec.Body.String())
	})

	t.Run("show missing is 404 with message", func(t *testing.T) {
		rec := setup(t, nil).serve(http.MethodGet, "/api/hands/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.JSONEq(t, `{"message":"Hand \"nope\" not found"}`, rec.Body.String())
	})

	t.Run("head", func(t *testing.T) {
		e := setup(t, nil)
		e.seed(t, map[string]any{"handId": "h1"})

		rec := e.serve(http.MethodHead, "/api/hands/h1", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())

		rec = e.serve(http.MethodHead, "/api/hands/h2", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("put stores under the path id", func(t *testing.T) {
		e := setup(t, nil)

		rec := e.serve(http.MethodPut, "/api/hands/h1", `{"handId":"other","name":"left","fingers":"4"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"handId":"h1","name":"left","fingers":4}`, rec.Body.String())

		m, err := e.memory.FindOne(context.Background(), "h1")
		require.NoError(t, err)
		assert.Equal(t, "left", m.GetString("name"))
		assert.Equal(t, 1, e.memory.Len())
	})

	t.Run("put with malformed JSON is 400", func(t *testing.T) {
		rec := setup(t, nil).serve(http.MethodPut, "/api/hands/h1", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid JSON body")
	})

	t.Run("put with wrong shape is 422", func(t *testing.T) {
		rec := setup(t, nil).serve(http.MethodPut, "/api/hands/h1", `[1,2]`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	})

	t.Run("put with uncoercible field is 422", func(t *testing.T) {
		rec := setup(t, nil).serve(http.MethodPut, "/api/hands/h1", `{"fingers":"many"}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "fingers")
	})

	t.Run("delete", func(t *testing.T) {
		e := setup(t, nil)
		e.seed(t, map[string]any{"handId": "h1"})

		rec := e.serve(http.MethodDelete, "/api/hands/h1", "")
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, e.memory.Len())

		rec = e.serve(http.MethodDelete, "/api/hands/h1", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

type failingStore struct {
	store.Store
	err error
}

func (s failingStore) FindMany(context.Context, url.Values) (*model.Collection[*model.Model], error) {
	return nil, s.err
}

func TestIdentifiersAreNormalized(t *testing.T) {
	const (
		lower = "f0d8368d-85e2-54fb-73c4-2d60374295e3"
		upper = "F0D8368D-85E2-54FB-73C4-2D60374295E3"
	)
	reg := schema.NewRegistry()
	glove := reg.MustDefine("Glove",
		schema.Primary("gloveId", schema.Coerce(model.CastUUID)),
		schema.Attr("size"),
	)
	mem, err := store.NewMemory(glove, nil)
	require.NoError(t, err)
	c, err := New(mem, nil)
	require.NoError(t, err)
	r := router.New("/api")
	c.Register(r)
	e := env{hand: glove, memory: mem, router: r}

	rec := e.serve(http.MethodPut, "/api/gloves/"+upper, `{"size":"M"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"gloveId":"`+lower+`","size":"M"}`, rec.Body.String())

	for _, id := range []string{upper, lower} {
		assert.Equal(t, http.StatusOK, e.serve(http.MethodHead, "/api/gloves/"+id, "").Code, id)

		rec = e.serve(http.MethodGet, "/api/gloves/"+id, "")
		assert.Equal(t, http.StatusOK, rec.Code, id)
		assert.JSONEq(t, `{"gloveId":"`+lower+`","size":"M"}`, rec.Body.String())
	}
}

func TestServerErrorsAreLoggedAndHidden(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := logging.FromZap(zap.New(core))
	e := setup(t, logger)

	c, err := New(failingStore{Store: e.memory, err: errors.New("disk on fire")}, logger)
	require.NoError(t, err)
	r := router.New("/api")
	c.Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/hands", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"message":"Server error"}`, rec.Body.String())

	entries := logs.FilterLoggerName("HandController").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.ErrorLevel, entries[0].Level)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", fmt.Errorf("x: %w", store.ErrNotFound), http.StatusNotFound},
		{"conflict", store.ErrConflict, http.StatusConflict},
		{"no identifier", store.ErrNoIdentifier, http.StatusBadRequest},
		{"coercion", &schema.CoercionError{Field: "n", Err: errors.New("bad")}, http.StatusUnprocessableEntity},
		{"shape", &schema.ShapeMismatchError{Field: "n"}, http.StatusUnprocessableEntity},
		{"explicit status", response.WithStatus(http.StatusTeapot, errors.New("tea")), http.StatusTeapot},
		{"body too large", fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 1}), http.StatusRequestEntityTooLarge},
		{"anything else", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

// The REST surface is the contract HTTPStore is written against.
func TestHTTPStoreRoundTrip(t *testing.T) {
	e := setup(t, nil)
	srv := httptest.NewServer(e.router)
	defer srv.Close()

	client, err := store.NewHTTPStore(e.hand, srv.URL+"/api", srv.Client(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	m, err := model.Hydrate(e.hand, map[string]any{"handId": "h1", "name": "left", "fingers": 5})
	require.NoError(t, err)

	saved, err := client.SaveOne(ctx, m)
	require.NoError(t, err)
	assert.Same(t, m, saved)
	assert.True(t, client.HasOne(ctx, m))

	found, err := client.FindOne(ctx, "h1")
	require.NoError(t, err)
	assert.Equal(t, "left", found.GetString("name"))
	fingers, _ := found.Get("fingers")
	assert.EqualValues(t, 5, fingers)

	all, err := client.FindMany(ctx, url.Values{"limit": {"10"}})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Len())

	_, err = client.DeleteOne(ctx, m)
	require.NoError(t, err)
	assert.False(t, client.HasOne(ctx, m))

	_, err = client.FindOne(ctx, "h1")
	var reqErr *store.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, http.StatusNotFound, reqErr.Status)
	assert.Equal(t, `Hand "h1" not found`, reqErr.Message)
}
