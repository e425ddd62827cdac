// Package resource exposes a Store over REST:
//
//	GET    /{key}       list, query passed to the store untouched
//	GET    /{key}/{id}  read
//	HEAD   /{key}/{id}  existence check
//	PUT    /{key}/{id}  full write, the path id wins over the body
//	DELETE /{key}/{id}  delete
package resource

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
	"github.com/ubiquits/ubiquits/internal/orm/store"
	"github.com/ubiquits/ubiquits/internal/web/response"
	"github.com/ubiquits/ubiquits/internal/web/router"
)

// MaxBodyBytes bounds PUT bodies
const MaxBodyBytes = 1 << 20

// Controller serves one model class from a Store
type Controller struct {
	store store.Store
	class *schema.Class
	meta  *schema.Metadata
	log   logging.Logger
}

// New creates a controller for the class served by s
func New(s store.Store, logger logging.Logger) (*Controller, error) {
	class := s.Class()
	meta, err := class.Metadata()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.Nop()
	}
	return &Controller{
		store: s,
		class: class,
		meta:  meta,
		log:   logger.Source(class.Name() + "Controller"),
	}, nil
}

// Register mounts the controller's routes on r
func (c *Controller) Register(r *router.Router) {
	collection := "/" + c.meta.StorageKey
	entity := collection + "/{id}"

	r.Get(collection, c.name("index"), c.Index)
	r.Get(entity, c.name("show"), c.Show)
	r.Head(entity, c.name("exists"), c.Exists)
	r.Put(entity, c.name("save"), c.Save)
	r.Delete(entity, c.name("destroy"), c.Destroy)
}

func (c *Controller) name(action string) string {
	return c.class.Name() + "Controller." + action
}

// Index lists the collection
func (c *Controller) Index(w http.ResponseWriter, r *http.Request) {
	items, err := c.store.FindMany(r.Context(), r.URL.Query())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, items)
}

// Show reads one entity
func (c *Controller) Show(w http.ResponseWriter, r *http.Request) {
	m, err := c.store.FindOne(r.Context(), router.Param(r, "id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, m)
}

// Exists answers 200 when the entity exists and 404 otherwise, without a body
func (c *Controller) Exists(w http.ResponseWriter, r *http.Request) {
	m, err := c.reference(router.Param(r, "id"))
	if err != nil || !c.store.HasOne(r.Context(), m) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// Save hydrates the body and writes it under the path id
func (c *Controller) Save(w http.ResponseWriter, r *http.Request) {
	id := router.Param(r, "id")

	raw, err := schema.DecodeJSON(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	if err != nil {
		c.fail(w, r, response.WithStatus(http.StatusBadRequest, fmt.Errorf("invalid JSON body: %w", err)))
		return
	}
	if mapping, ok := raw.AsMapping(); ok {
		mapping.Set(c.meta.Primary.Name, schema.StringValue(id))
	}

	m, err := model.New(c.class, raw)
	if err != nil {
		c.fail(w, r, err)
		return
	}

	saved, err := c.store.SaveOne(r.Context(), m)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	response.JSON(w, http.StatusOK, saved)
}

// Destroy deletes one entity
func (c *Controller) Destroy(w http.ResponseWriter, r *http.Request) {
	m, err := c.reference(router.Param(r, "id"))
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if _, err := c.store.DeleteOne(r.Context(), m); err != nil {
		c.fail(w, r, err)
		return
	}
	response.NoContent(w)
}

// reference builds a model carrying only the identifier
func (c *Controller) reference(id string) (*model.Model, error) {
	raw := schema.MappingValue(schema.NewMapping().Set(c.meta.Primary.Name, schema.StringValue(id)))
	return model.New(c.class, raw)
}

// fail maps err onto a status and renders {"message": ...}. Server-side
// failures are logged.
func (c *Controller) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	message := err.Error()

	switch status {
	case http.StatusNotFound:
		message = fmt.Sprintf("%s not found", c.class.Name())
		if id := router.Param(r, "id"); id != "" {
			message = fmt.Sprintf("%s %q not found", c.class.Name(), id)
		}
	case http.StatusInternalServerError:
		c.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		message = "Server error"
	}
	response.Error(w, status, message)
}

// StatusFor maps store and hydration errors onto HTTP statuses
func StatusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case store.IsNotFound(err):
		return http.StatusNotFound
	case store.IsConflict(err):
		return http.StatusConflict
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case schema.IsHydrationError(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, store.ErrNoIdentifier):
		return http.StatusBadRequest
	}
	return response.StatusOf(err)
}
