package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ubiquits/ubiquits/internal/orm/schema"
)

func childCollection(t *testing.T, ids ...string) (*Collection[*Model], *schema.Class) {
	t.Helper()
	c := defineTestClasses(t)

	items := make([]*Model, len(ids))
	for i, id := range ids {
		items[i] = MustNew(c.Child, schema.MustValueOf(map[string]any{"id": id, "name": "n" + id}))
	}
	return NewCollection(items...), c.Child
}

func TestCollection(t *testing.T) {
	t.Run("positional access preserves order", func(t *testing.T) {
		col, _ := childCollection(t, "a", "b", "c")
		require.Equal(t, 3, col.Len())
		assert.Equal(t, "na", col.At(0).GetString("name"))
		assert.Equal(t, "nc", col.At(2).GetString("name"))
		assert.Panics(t, func() { col.At(3) })
	})

	t.Run("iteration is restartable", func(t *testing.T) {
		col, _ := childCollection(t, "a", "b")

		for range 2 {
			var names []string
			for m := range col.All() {
				names = append(names, m.GetString("name"))
			}
			assert.Equal(t, []string{"na", "nb"}, names)
		}

		count := 0
		for range col.All() {
			count++
			break
		}
		assert.Equal(t, 1, count)
	})

	t.Run("find by identifier scans current state", func(t *testing.T) {
		col, _ := childCollection(t, "a", "b")

		found, ok := col.FindByIdentifier("b")
		require.True(t, ok)
		assert.Equal(t, "nb", found.GetString("name"))

		_, ok = col.FindByIdentifier("z")
		assert.False(t, ok)

		found.SetIdentifier("z")
		_, ok = col.FindByIdentifier("b")
		assert.False(t, ok)
		_, ok = col.FindByIdentifier("z")
		assert.True(t, ok)

		_, ok = col.FindByIdentifier(nil)
		assert.False(t, ok)
	})

	t.Run("uuid and string identifiers compare by value", func(t *testing.T) {
		col, _ := childCollection(t, "72eed629-c4ab-4520-a987-4ea26b134d8c")

		_, ok := col.FindByIdentifier(UUID("72eed629-c4ab-4520-a987-4ea26b134d8c"))
		assert.True(t, ok)
	})

	t.Run("append and remove", func(t *testing.T) {
		col, child := childCollection(t, "a")
		col.Append(MustNew(child, schema.MustValueOf(map[string]any{"id": "b"})))
		assert.Equal(t, 2, col.Len())

		removed, ok := col.Remove(0)
		require.True(t, ok)
		assert.Equal(t, "a", mustIdentifier(t, removed))
		assert.Equal(t, 1, col.Len())

		_, ok = col.Remove(5)
		assert.False(t, ok)

		items := col.Items()
		items[0] = nil
		assert.NotNil(t, col.At(0), "Items returns a copy")
	})

	t.Run("marshals as array", func(t *testing.T) {
		col, _ := childCollection(t)
		out, err := json.Marshal(col)
		require.NoError(t, err)
		assert.Equal(t, "[]", string(out))

		col, _ = childCollection(t, "a")
		out, err = json.Marshal(col)
		require.NoError(t, err)
		assert.JSONEq(t, `[{"id":"a","name":"na"}]`, string(out))
	})
}

func TestUUID(t *testing.T) {
	id := NewUUID()
	parsed, err := ParseUUID(string(id))
	require.NoError(t, err)
	assert.Equal(t, id, parsed)
	assert.Equal(t, string(id), id.String())

	_, err = ParseUUID("not-a-uuid")
	assert.Error(t, err)

	_, err = CastUUID(schema.IntValue(1))
	assert.Error(t, err)

	set := map[UUID]bool{UUID("x"): true}
	assert.True(t, set[UUID("x")])
}

func TestIdentifierKey(t *testing.T) {
	tests := []struct {
		name string
		id   any
		want string
		ok   bool
	}{
		{"nil", nil, "", false},
		{"empty string", "", "", false},
		{"string", "abc", "abc", true},
		{"uuid", UUID("u-1"), "u-1", true},
		{"integral float", float64(42), "42", true},
		{"int", 7, "7", true},
		{"int64", int64(9), "9", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := IdentifierKey(tt.id)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	assert.True(t, SameIdentifier(float64(1), "1"))
	assert.False(t, SameIdentifier(nil, nil))
}
