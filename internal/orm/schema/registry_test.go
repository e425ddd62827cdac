package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefine(t *testing.T) {
	t.Run("assembles metadata with one primary", func(t *testing.T) {
		r := NewRegistry()

		post, err := r.Define("Post",
			Primary("id"),
			Attr("title"),
			Attr("status", Default("draft")),
		)
		require.NoError(t, err)

		md, err := post.Metadata()
		require.NoError(t, err)
		assert.Equal(t, "posts", md.StorageKey)
		assert.Equal(t, "id", md.Primary.Name)
		require.Len(t, md.Fields, 3)
		assert.Equal(t, []string{"id", "title", "status"}, fieldNames(md.Fields))
	})

	t.Run("missing primary fails at definition", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.Define("Post", Attr("title"))
		require.Error(t, err)

		var cfg *ConfigurationError
		require.True(t, errors.As(err, &cfg))
		assert.Equal(t, "Post", cfg.Class)
		assert.Contains(t, err.Error(), "no primary field")
		assert.Empty(t, r.Classes())
	})

	t.Run("multiple primaries fail", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.Define("Post", Primary("id"), Primary("slug"))
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), "id, slug")
	})

	t.Run("primary cannot be a relation", func(t *testing.T) {
		r := NewRegistry()
		var other *Class

		_, err := r.Define("Post", HasOne("id", func() *Class { return other }))
		require.Error(t, err)
		// A relation is never primary, so the class has none
		assert.Contains(t, err.Error(), "no primary field")
	})

	t.Run("duplicate storage key is rejected", func(t *testing.T) {
		r := NewRegistry()

		_, err := r.Define("Post", Primary("id"))
		require.NoError(t, err)

		_, err = r.Define("Article", Primary("id"), StorageKey("posts"))
		require.Error(t, err)
		assert.True(t, IsConfigurationError(err))
		assert.Contains(t, err.Error(), `"posts"`)
	})

	t.Run("empty name is rejected", func(t *testing.T) {
		_, err := NewRegistry().Define("  ", Primary("id"))
		assert.True(t, IsConfigurationError(err))
	})

	t.Run("derived storage keys", func(t *testing.T) {
		r := NewRegistry()

		tests := []struct {
			name string
			key  string
		}{
			{"Hand", "hands"},
			{"Thumb", "thumbs"},
			{"BlogPost", "blog_posts"},
			{"Person", "people"},
			{"HTTPRequest", "http_requests"},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				class := r.MustDefine(tt.name, Primary("id"))
				assert.Equal(t, tt.key, class.StorageKey())

				found, ok := r.Lookup(tt.key)
				require.True(t, ok)
				assert.Same(t, class, found)
			})
		}
	})

	t.Run("frozen registry rejects definitions", func(t *testing.T) {
		r := NewRegistry()
		post := r.MustDefine("Post", Primary("id"))
		r.Freeze()
		assert.True(t, r.Frozen())

		_, err := r.Define("Comment", Primary("id"))
		assert.ErrorIs(t, err, ErrFrozen)

		err = r.Register(post, "title", Field{})
		assert.ErrorIs(t, err, ErrFrozen)
	})

	t.Run("MustDefine panics on configuration errors", func(t *testing.T) {
		assert.Panics(t, func() {
			NewRegistry().MustDefine("Post")
		})
	})
}

func TestRegistryRegister(t *testing.T) {
	t.Run("duplicate registration is a no-op", func(t *testing.T) {
		r := NewRegistry()
		post := r.MustDefine("Post", Primary("id"), Attr("title"))

		require.NoError(t, r.Register(post, "body", Field{}))
		require.NoError(t, r.Register(post, "body", Field{Default: "x", HasDefault: true}))
		require.NoError(t, r.Register(post, "title", Field{}))

		md, err := r.Metadata(post)
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "title", "body"}, fieldNames(md.Fields))

		body, ok := md.Field("body")
		require.True(t, ok)
		assert.False(t, body.HasDefault, "first registration wins")
	})

	t.Run("registration invalidates memoized metadata of descendants", func(t *testing.T) {
		r := NewRegistry()
		base := r.MustDefine("Base", Primary("id"))
		child := r.MustDefine("Child", Extends(base))

		before, err := child.Metadata()
		require.NoError(t, err)
		require.Len(t, before.Fields, 1)

		require.NoError(t, r.Register(base, "createdAt", Field{}))

		after, err := child.Metadata()
		require.NoError(t, err)
		assert.Equal(t, []string{"id", "createdAt"}, fieldNames(after.Fields))
	})

	t.Run("unknown class", func(t *testing.T) {
		r := NewRegistry()
		foreign := NewRegistry().MustDefine("Post", Primary("id"))

		err := r.Register(foreign, "title", Field{})
		assert.True(t, IsConfigurationError(err))
	})
}

func TestRegistryInheritance(t *testing.T) {
	r := NewRegistry()

	base := r.MustDefine("BaseModel", Abstract(), Primary("id"), Attr("createdAt"))
	assert.Empty(t, base.StorageKey())
	assert.True(t, base.IsAbstract())

	hand := r.MustDefine("Hand", Extends(base), Attr("name"), Attr("createdAt", Default("now")))

	md, err := hand.Metadata()
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "createdAt", "name"}, fieldNames(md.Fields), "ancestor fields first, overrides in place")

	created, _ := md.Field("createdAt")
	assert.True(t, created.HasDefault)

	assert.True(t, hand.Is(base))
	assert.False(t, base.Is(hand))
	assert.Equal(t, []*Class{base, hand}, r.Classes())

	t.Run("parent from another registry", func(t *testing.T) {
		_, err := NewRegistry().Define("Finger", Extends(hand))
		assert.True(t, IsConfigurationError(err))
	})
}

func TestClassConcrete(t *testing.T) {
	r := NewRegistry()

	var left, right *Class
	hand := r.MustDefine("Hand", Primary("id"), Attr("side"), Concrete(func(raw Value) (*Class, error) {
		switch side, _ := raw.Get("side").AsString(); side {
		case "left":
			return left, nil
		case "right":
			return right, nil
		case "bogus":
			return nil, errors.New("bogus side")
		}
		return nil, nil
	}))
	left = r.MustDefine("LeftHand", Extends(hand))
	right = r.MustDefine("RightHand", Extends(hand))
	other := r.MustDefine("Foot", Primary("id"))

	tests := []struct {
		name    string
		raw     Value
		want    *Class
		wantErr bool
	}{
		{"left", MustValueOf(map[string]any{"side": "left"}), left, false},
		{"right", MustValueOf(map[string]any{"side": "right"}), right, false},
		{"default keeps requested class", MustValueOf(map[string]any{}), hand, false},
		{"chooser error", MustValueOf(map[string]any{"side": "bogus"}), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := hand.Concrete(tt.raw)
			if tt.wantErr {
				assert.True(t, IsConfigurationError(err))
				return
			}
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	t.Run("chosen class must extend the requested one", func(t *testing.T) {
		right = other
		_, err := hand.Concrete(MustValueOf(map[string]any{"side": "right"}))
		assert.True(t, IsConfigurationError(err))
	})
}

func TestRelationResolveIsDeferred(t *testing.T) {
	r := NewRegistry()

	var thumb *Class
	calls := 0
	hand := r.MustDefine("Hand", Primary("id"), HasOne("_thumb", func() *Class {
		calls++
		return thumb
	}))
	thumb = r.MustDefine("Thumb", Primary("id"), HasOne("_hand", func() *Class { return hand }))

	assert.Zero(t, calls, "targets are not resolved at definition time")

	md, err := hand.Metadata()
	require.NoError(t, err)
	rels := md.Relations()
	require.Len(t, rels, 1)
	assert.Equal(t, ToOne, rels[0].Relation.Kind)

	target, err := rels[0].Relation.Resolve()
	require.NoError(t, err)
	assert.Same(t, thumb, target)
	assert.Equal(t, 1, calls)

	t.Run("nil target", func(t *testing.T) {
		rel := &Relation{Kind: ToMany, FieldName: "_items", Target: func() *Class { return nil }}
		_, err := rel.Resolve()
		assert.True(t, IsConfigurationError(err))
	})
}

func fieldNames(fields []*Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = f.Name
	}
	return names
}
