package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

const testID = "f0d8368d-85e2-54fb-73c4-2d60374295e3"

type testClasses struct {
	Basic *schema.Class
	Child *schema.Class
}

func defineTestClasses(t *testing.T) testClasses {
	t.Helper()
	r := schema.NewRegistry()

	var c testClasses
	c.Child = r.MustDefine("ChildModel", schema.Primary("id"), schema.Attr("name"))
	c.Basic = r.MustDefine("BasicModel",
		schema.Primary("id"),
		schema.Attr("stringNoDefault"),
		schema.Attr("stringWithDefault", schema.Default("foo")),
		schema.Attr("date", schema.Coerce(schema.CastDate)),
		schema.HasOne("_child", func() *schema.Class { return c.Child }),
		schema.HasMany("_children", func() *schema.Class { return c.Child }),
	)
	return c
}

func TestNew(t *testing.T) {
	c := defineTestClasses(t)

	instance, err := Hydrate(c.Basic, map[string]any{"id": testID})
	require.NoError(t, err)

	t.Run("hydrates the identifier", func(t *testing.T) {
		id, ok := instance.Identifier()
		require.True(t, ok)
		assert.Equal(t, testID, id)
		assert.Same(t, c.Basic, instance.Class())
	})

	t.Run("retains default values", func(t *testing.T) {
		assert.Equal(t, "foo", instance.GetString("stringWithDefault"))
	})

	t.Run("leaves fields without default unset", func(t *testing.T) {
		assert.False(t, instance.Has("stringNoDefault"))
		assert.False(t, instance.Has("_child"))
		assert.False(t, instance.Has("_children"))
	})

	t.Run("missing identifier is undefined", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"name": "x"})
		require.NoError(t, err)
		_, ok := m.Identifier()
		assert.False(t, ok)

		m, err = Hydrate(c.Basic, map[string]any{"id": nil})
		require.NoError(t, err)
		_, ok = m.Identifier()
		assert.False(t, ok)
	})

	t.Run("provided value overrides default", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "stringWithDefault": "bar"})
		require.NoError(t, err)
		assert.Equal(t, "bar", m.GetString("stringWithDefault"))
	})

	t.Run("undefined value falls back to default", func(t *testing.T) {
		raw := schema.MappingValue(schema.NewMapping().
			Set("id", schema.StringValue(testID)).
			Set("stringWithDefault", schema.Value{}))
		m, err := New(c.Basic, raw)
		require.NoError(t, err)
		assert.Equal(t, "foo", m.GetString("stringWithDefault"))
	})

	t.Run("null is assigned, not defaulted", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "stringWithDefault": nil})
		require.NoError(t, err)
		v, ok := m.Get("stringWithDefault")
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("unknown keys are ignored", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "extra": 1})
		require.NoError(t, err)
		assert.False(t, m.Has("extra"))
	})

	t.Run("non-mapping payload", func(t *testing.T) {
		_, err := New(c.Basic, schema.StringValue("nope"))
		assert.True(t, schema.IsHydrationError(err))
	})
}

func TestMutableDefaults(t *testing.T) {
	r := schema.NewRegistry()
	calls := 0
	class := r.MustDefine("TaggedModel",
		schema.Primary("id"),
		schema.Attr("tags", schema.Default(map[string]any{})),
		schema.Attr("labels", schema.Default([]any{"a"})),
		schema.Attr("history", schema.DefaultFunc(func() any {
			calls++
			return []string{}
		})),
	)

	a, err := Hydrate(class, map[string]any{"id": testID})
	require.NoError(t, err)
	b, err := Hydrate(class, map[string]any{"id": testID})
	require.NoError(t, err)

	t.Run("maps are copied per instance", func(t *testing.T) {
		tags, _ := a.Get("tags")
		tags.(map[string]any)["x"] = 1

		other, _ := b.Get("tags")
		assert.Empty(t, other)
		f, ok := a.Metadata().Field("tags")
		require.True(t, ok)
		assert.Empty(t, f.Default)
	})

	t.Run("slices are copied per instance", func(t *testing.T) {
		labels, _ := a.Get("labels")
		labels.([]any)[0] = "changed"

		other, _ := b.Get("labels")
		assert.Equal(t, []any{"a"}, other)
	})

	t.Run("default func runs once per instance", func(t *testing.T) {
		assert.Equal(t, 2, calls)
		history, ok := a.Get("history")
		require.True(t, ok)
		assert.Equal(t, []string{}, history)
	})
}

func TestCoercedFields(t *testing.T) {
	c := defineTestClasses(t)

	t.Run("casts date strings", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "date": "2016-06-13T14:22:13.312Z"})
		require.NoError(t, err)

		raw, _ := m.Get("date")
		assert.IsType(t, time.Time{}, raw)

		date, ok := m.GetTime("date")
		require.True(t, ok)
		assert.True(t, date.Equal(time.Date(2016, 6, 13, 14, 22, 13, 312000000, time.UTC)))
	})

	t.Run("null bypasses coercion", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "date": nil})
		require.NoError(t, err)
		_, ok := m.GetTime("date")
		assert.False(t, ok)
		assert.True(t, m.Has("date"))
	})

	t.Run("malformed input names field and value", func(t *testing.T) {
		_, err := Hydrate(c.Basic, map[string]any{"id": testID, "date": "yesterday-ish"})
		require.Error(t, err)

		var coercion *schema.CoercionError
		require.True(t, errors.As(err, &coercion))
		assert.Equal(t, "date", coercion.Field)
		assert.Contains(t, err.Error(), `"yesterday-ish"`)
	})
}

func TestRelations(t *testing.T) {
	c := defineTestClasses(t)

	t.Run("hydrates nested has one", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "_child": map[string]any{"name": "childModel"}})
		require.NoError(t, err)

		child, ok := m.One("_child")
		require.True(t, ok)
		assert.Same(t, c.Child, child.Class())
		assert.Equal(t, "childModel", child.GetString("name"))
	})

	t.Run("hydrates nested has many", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "_children": []any{map[string]any{"name": "childModel"}}})
		require.NoError(t, err)

		children, ok := m.Many("_children")
		require.True(t, ok)
		require.Equal(t, 1, children.Len())
		assert.Same(t, c.Child, children.At(0).Class())
		assert.Equal(t, "childModel", children.At(0).GetString("name"))
	})

	t.Run("empty has many is distinct from unset", func(t *testing.T) {
		m, err := Hydrate(c.Basic, map[string]any{"id": testID, "_children": []any{}})
		require.NoError(t, err)

		children, ok := m.Many("_children")
		require.True(t, ok)
		assert.Zero(t, children.Len())
	})

	t.Run("wrong shape is rejected", func(t *testing.T) {
		_, err := Hydrate(c.Basic, map[string]any{"id": testID, "_children": map[string]any{"name": "x"}})

		var shape *schema.ShapeMismatchError
		require.True(t, errors.As(err, &shape))
		assert.Equal(t, "_children", shape.Field)
	})

	t.Run("nested coercion errors surface", func(t *testing.T) {
		r := schema.NewRegistry()
		var inner *schema.Class
		outer := r.MustDefine("Outer", schema.Primary("id"), schema.HasOne("_inner", func() *schema.Class { return inner }))
		inner = r.MustDefine("Inner", schema.Primary("id"), schema.Attr("at", schema.Coerce(schema.CastDate)))

		_, err := Hydrate(outer, map[string]any{"_inner": map[string]any{"at": "garbage"}})
		assert.True(t, schema.IsHydrationError(err))
		assert.Contains(t, err.Error(), "relation _inner")
	})
}

func TestMutualRelations(t *testing.T) {
	r := schema.NewRegistry()

	var thumb *schema.Class
	hand := r.MustDefine("Hand",
		schema.Primary("handId", schema.Coerce(CastUUID)),
		schema.Attr("name"),
		schema.HasOne("thumb", func() *schema.Class { return thumb }),
	)
	thumb = r.MustDefine("Thumb",
		schema.Primary("thumbId"),
		schema.HasOne("hand", func() *schema.Class { return hand }),
	)

	raw := `{"handId":"72EED629-C4AB-4520-A987-4EA26B134D8C","name":"left","thumb":{"thumbId":"t1","hand":{"handId":"72eed629-c4ab-4520-a987-4ea26b134d8c"}}}`
	v, err := schema.ParseJSON([]byte(raw))
	require.NoError(t, err)

	m, err := New(hand, v)
	require.NoError(t, err)

	id, ok := m.Identifier()
	require.True(t, ok)
	assert.Equal(t, UUID("72eed629-c4ab-4520-a987-4ea26b134d8c"), id)

	th, ok := m.One("thumb")
	require.True(t, ok)
	back, ok := th.One("hand")
	require.True(t, ok)
	assert.True(t, SameIdentifier(id, mustIdentifier(t, back)))
	assert.NotSame(t, m, back, "each payload object hydrates its own instance")
}

func TestSetAndSerialize(t *testing.T) {
	c := defineTestClasses(t)

	m, err := Build(c.Basic)
	require.NoError(t, err)
	_, ok := m.Identifier()
	assert.False(t, ok)
	assert.Equal(t, "foo", m.GetString("stringWithDefault"))

	m.SetIdentifier(testID)
	require.NoError(t, m.Set("stringNoDefault", "set"))
	require.NoError(t, m.Set("date", time.Date(2016, 6, 13, 0, 0, 0, 0, time.UTC)))

	child := MustNew(c.Child, schema.MustValueOf(map[string]any{"id": "c1", "name": "kid"}))
	require.NoError(t, m.Set("_child", child))
	require.NoError(t, m.Set("_children", NewCollection(child)))

	t.Run("rejects unknown fields and wrong relation values", func(t *testing.T) {
		assert.ErrorIs(t, m.Set("nope", 1), ErrUnknownField)
		assert.ErrorIs(t, m.Set("_child", "x"), ErrRelationValue)
		assert.ErrorIs(t, m.Set("_children", child), ErrRelationValue)
	})

	t.Run("write payload excludes relations", func(t *testing.T) {
		payload, err := m.Payload()
		require.NoError(t, err)

		out, err := payload.MarshalJSON()
		require.NoError(t, err)
		assert.Equal(t,
			`{"id":"`+testID+`","stringNoDefault":"set","stringWithDefault":"foo","date":"2016-06-13T00:00:00Z"}`,
			string(out))
	})

	t.Run("full representation includes relations", func(t *testing.T) {
		out, err := json.Marshal(m)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"id": "`+testID+`",
			"stringNoDefault": "set",
			"stringWithDefault": "foo",
			"date": "2016-06-13T00:00:00Z",
			"_child": {"id": "c1", "name": "kid"},
			"_children": [{"id": "c1", "name": "kid"}]
		}`, string(out))
	})

	t.Run("round trips through hydration", func(t *testing.T) {
		out, err := json.Marshal(m)
		require.NoError(t, err)

		v, err := schema.ParseJSON(out)
		require.NoError(t, err)
		again, err := New(c.Basic, v)
		require.NoError(t, err)

		date, ok := again.GetTime("date")
		require.True(t, ok)
		assert.True(t, date.Equal(time.Date(2016, 6, 13, 0, 0, 0, 0, time.UTC)))
		children, _ := again.Many("_children")
		assert.Equal(t, 1, children.Len())
	})

	t.Run("cycles are reported", func(t *testing.T) {
		r := schema.NewRegistry()
		var node *schema.Class
		node = r.MustDefine("Node", schema.Primary("id"), schema.HasOne("next", func() *schema.Class { return node }))

		a := MustNew(node, schema.MustValueOf(map[string]any{"id": "a"}))
		require.NoError(t, a.Set("next", a))

		_, err := json.Marshal(a)
		assert.ErrorIs(t, err, ErrCycle)
	})

	t.Run("clearing a relation", func(t *testing.T) {
		require.NoError(t, m.Set("_child", nil))
		assert.False(t, m.Has("_child"))
		m.Unset("stringNoDefault")
		assert.False(t, m.Has("stringNoDefault"))
	})
}

func TestPolymorphicHydration(t *testing.T) {
	r := schema.NewRegistry()

	var admin *schema.Class
	user := r.MustDefine("User", schema.Primary("id"), schema.Attr("role"), schema.Concrete(func(raw schema.Value) (*schema.Class, error) {
		if role, _ := raw.Get("role").AsString(); role == "admin" {
			return admin, nil
		}
		return nil, nil
	}))
	admin = r.MustDefine("Admin", schema.Extends(user), schema.Attr("permissions", schema.Default("all")))

	m, err := Hydrate(user, map[string]any{"id": "1", "role": "admin"})
	require.NoError(t, err)
	assert.Same(t, admin, m.Class())
	assert.Equal(t, "all", m.GetString("permissions"))

	m, err = Hydrate(user, map[string]any{"id": "2", "role": "member"})
	require.NoError(t, err)
	assert.Same(t, user, m.Class())
	assert.False(t, m.Has("permissions"))
}

func mustIdentifier(t *testing.T, m *Model) any {
	t.Helper()
	id, ok := m.Identifier()
	require.True(t, ok)
	return id
}
