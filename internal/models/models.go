// Package models declares the model classes served by the bundled server.
package models

import (
	"time"

	"github.com/ubiquits/ubiquits/internal/orm/model"
	"github.com/ubiquits/ubiquits/internal/orm/schema"
	"github.com/ubiquits/ubiquits/internal/orm/store"
)

// Classes are the model classes of one registry
type Classes struct {
	Registry *schema.Registry
	Hand     *schema.Class
	Thumb    *schema.Class
}

// All returns every class in declaration order
func (c *Classes) All() []*schema.Class {
	return []*schema.Class{c.Hand, c.Thumb}
}

// Define declares the classes on reg. Hand and Thumb reference each other.
func Define(reg *schema.Registry) (*Classes, error) {
	c := &Classes{Registry: reg}
	var err error

	c.Hand, err = reg.Define("Hand",
		schema.Primary("handId", schema.Coerce(model.CastUUID)),
		schema.Attr("name"),
		schema.Attr("createdAt", schema.Coerce(schema.CastDate)),
		schema.HasOne("thumb", func() *schema.Class { return c.Thumb }),
	)
	if err != nil {
		return nil, err
	}

	c.Thumb, err = reg.Define("Thumb",
		schema.Primary("thumbId", schema.Coerce(model.CastUUID)),
		schema.Attr("name"),
		schema.HasOne("hand", func() *schema.Class { return c.Hand }),
	)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Hand is the typed view of a Hand model
type Hand struct {
	*model.Model
}

// ID returns the hand identifier
func (h Hand) ID() model.UUID {
	id, _ := h.Identifier()
	u, _ := id.(model.UUID)
	return u
}

// Name returns the hand name
func (h Hand) Name() string { return h.GetString("name") }

// CreatedAt returns the creation time, if set
func (h Hand) CreatedAt() (time.Time, bool) { return h.GetTime("createdAt") }

// Thumb returns the related thumb, if loaded
func (h Hand) Thumb() (Thumb, bool) {
	m, ok := h.One("thumb")
	return Thumb{m}, ok
}

// Thumb is the typed view of a Thumb model
type Thumb struct {
	*model.Model
}

// ID returns the thumb identifier
func (t Thumb) ID() model.UUID {
	id, _ := t.Identifier()
	u, _ := id.(model.UUID)
	return u
}

// Name returns the thumb name
func (t Thumb) Name() string { return t.GetString("name") }

// Hand returns the related hand, if loaded
func (t Thumb) Hand() (Hand, bool) {
	m, ok := t.One("hand")
	return Hand{m}, ok
}

// NewHand builds an unsaved hand with a fresh identifier
func (c *Classes) NewHand(name string) (Hand, error) {
	m, err := model.Build(c.Hand)
	if err != nil {
		return Hand{}, err
	}
	m.SetIdentifier(model.NewUUID())
	if err := m.Set("name", name); err != nil {
		return Hand{}, err
	}
	if err := m.Set("createdAt", time.Now().UTC()); err != nil {
		return Hand{}, err
	}
	return Hand{m}, nil
}

// HandStore adapts s, which must serve the Hand class, to Hand values
func HandStore(s store.Store) *store.Typed[Hand] {
	return store.NewTyped(s,
		func(m *model.Model) Hand { return Hand{m} },
		func(h Hand) *model.Model { return h.Model },
	)
}

// ThumbStore adapts s, which must serve the Thumb class, to Thumb values
func ThumbStore(s store.Store) *store.Typed[Thumb] {
	return store.NewTyped(s,
		func(m *model.Model) Thumb { return Thumb{m} },
		func(t Thumb) *model.Model { return t.Model },
	)
}
