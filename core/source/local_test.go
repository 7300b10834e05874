package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/errors"
	"github.com/gankles/bible-quizzes-christian-2025-sub004/core/ref"
)

func TestLocalDescriptor(t *testing.T) {
	l := NewLocal("KJV", "King James Version", nil)
	desc := l.Descriptor()
	assert.Equal(t, "KJV", desc.Name)
	assert.Equal(t, KindLocal, desc.Kind)
	assert.Equal(t, ProviderLocal, desc.Provider)
	assert.Equal(t, 0, l.Dataset().Len())
}

func TestLocalRenderText(t *testing.T) {
	l := NewLocal("KJV", "King James Version", loadKJV(t))
	ctx := context.Background()

	tests := []struct {
		in   string
		want string
	}{
		{"Genesis 1:1", "In the beginning God created the heaven and the earth."},
		{"Psalm 23:1", "The LORD is my shepherd; I shall not want."},
		{"Gen 1:3", "And God said, Let there be light: and there was light."},
		{"1 John 4:8", "He that loveth not knoweth not God; for God is love."},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			text, err := l.RenderText(ctx, ref.Parse(tt.in))
			require.NoError(t, err)
			assert.Equal(t, tt.want, text)
		})
	}
}

func TestLocalRenderTextErrors(t *testing.T) {
	l := NewLocal("KJV", "King James Version", loadKJV(t))

	_, err := l.RenderText(context.Background(), ref.Parse("Genesis 1:99"))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	_, err = l.RenderText(context.Background(), ref.Parse("Hezekiah 1:1"))
	assert.Equal(t, errors.KindNotFound, errors.KindOf(err))

	_, err = l.RenderText(context.Background(), ref.Parse(":::"))
	assert.Equal(t, errors.KindMalformed, errors.KindOf(err))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.RenderText(ctx, ref.Parse("Genesis 1:1"))
	assert.Equal(t, errors.KindUnavailable, errors.KindOf(err))
}

func TestLocalRenderChapter(t *testing.T) {
	l := NewLocal("KJV", "King James Version", loadKJV(t))

	ch, err := l.RenderChapter(context.Background(), ref.Parse("Genesis 1:2"))
	require.NoError(t, err)
	assert.Equal(t, "genesis", ch.Book)
	assert.Equal(t, 1, ch.Number)
	assert.Equal(t, "KJV", ch.Source)
	assert.Equal(t, []int{1, 2, 3}, ch.Numbers())

	v, ok := ch.Lookup(1)
	require.True(t, ok)
	assert.Equal(t, "In the beginning God created the heaven and the earth.", v.Text)

	_, err = l.RenderChapter(context.Background(), ref.Parse("Genesis 3"))
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestChapterNilSafe(t *testing.T) {
	var ch *Chapter
	_, ok := ch.Lookup(1)
	assert.False(t, ok)
	assert.Equal(t, 0, ch.Len())
	assert.Nil(t, ch.Numbers())
}
