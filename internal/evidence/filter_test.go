package evidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContainsCJK(t *testing.T) {
	assert.True(t, ContainsCJK("おはよう"))
	assert.True(t, ContainsCJK("カタカナ"))
	assert.True(t, ContainsCJK("漢字"))
	assert.True(t, ContainsCJK("mixed 日本語 text"))
	assert.False(t, ContainsCJK("english only"))
	assert.False(t, ContainsCJK("1234 !?"))
	assert.False(t, ContainsCJK(""))
}

func TestUsable(t *testing.T) {
	b := DefaultBounds

	assert.True(t, b.Usable("これは十分な長さの日本語です"))

	// too short, too long, no CJK
	assert.False(t, b.Usable("短い"))
	assert.False(t, b.Usable(strings.Repeat("長", 251)))
	assert.False(t, b.Usable("this is long enough but not japanese"))

	// bounds are rune counts, not byte counts
	assert.True(t, b.Usable(strings.Repeat("あ", 10)))
	assert.True(t, b.Usable(strings.Repeat("あ", 250)))
	assert.False(t, b.Usable(strings.Repeat("あ", 9)))
}

func TestFilterStrings(t *testing.T) {
	b := DefaultBounds

	// lengths 5, 12, 300, 50; the 12- and 50-rune ones are Japanese
	msgs := []string{
		"12345",
		"今日もいい天気ですね！",
		strings.Repeat("x", 300),
		"明日の打ち合わせは十時からに変更になりましたのでご注意ください。",
	}
	require.Equal(t, 12, len([]rune(msgs[1])))

	got := b.FilterStrings(msgs)
	require.Len(t, got, 2)
	assert.Equal(t, msgs[1], got[0])
	assert.Equal(t, msgs[3], got[1])
}

func TestFilterStringsCap(t *testing.T) {
	b := DefaultBounds

	var msgs []string
	for i := 0; i < 10; i++ {
		msgs = append(msgs, "使える長さの日本語メッセージです")
	}
	got := b.FilterStrings(msgs)
	assert.Len(t, got, MaxUsages)
}

func TestFilterStringsEmpty(t *testing.T) {
	got := DefaultBounds.FilterStrings(nil)
	assert.Empty(t, got)
}
