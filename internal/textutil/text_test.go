package textutil

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArabicRatio(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want float64
	}{
		{name: "empty", in: "", want: 0},
		{name: "whitespace", in: "  \n ", want: 0},
		{name: "pure arabic", in: "مرحبا بالعالم", want: 1},
		{name: "pure latin", in: "hello world", want: 0},
		{name: "half", in: "ab مر", want: 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ArabicRatio(tt.in), 1e-12)
		})
	}
}

func TestIsArabic(t *testing.T) {
	assert.True(t, IsArabic("هذا نص عربي"))
	assert.False(t, IsArabic("This is English with one word مرحبا in it and more text"))
	assert.False(t, IsArabic(""))
}

func TestHasArabicRun(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want bool
	}{
		{name: "no arabic", in: "The court ruled.", n: 2, want: false},
		{name: "single arabic letter", in: "The letter ب is used.", n: 2, want: false},
		{name: "two letter run", in: "He said قال loudly.", n: 2, want: true},
		{name: "split run", in: "ب x ت", n: 2, want: false},
		{name: "zero length always matches", in: "", n: 0, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasArabicRun(tt.in, tt.n))
		})
	}
}

func TestNormalizeArabic(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "strips tashkeel", in: "كَتَبَ", want: "كتب"},
		{name: "unifies alef forms", in: "أحمد إلى آخر", want: "احمد الي اخر"},
		{name: "taa marbuta to haa", in: "مدرسة", want: "مدرسه"},
		{name: "alef maqsura to yaa", in: "على", want: "علي"},
		{name: "strips tatweel", in: "كـــتاب", want: "كتاب"},
		{name: "latin untouched", in: "Hello", want: "Hello"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeArabic(tt.in))
		})
	}
}

func TestSentences(t *testing.T) {
	assert.Equal(t, []string{"One", "Two", "Three"}, Sentences("One. Two! Three?"))
	assert.Equal(t, []string{"Line one", "line two"}, Sentences("Line one\nline two"))
	assert.Empty(t, Sentences("  ...  "))

	assert.Len(t, SourceSentences("جملة أولى. جملة ثانية؟ جملة ثالثة، ورابعة"), 4)
}

func TestTokens(t *testing.T) {
	assert.Equal(t, []string{"the", "court's", "ruling", "was", "final"}, Tokens("The COURT'S ruling, was final!"))
	assert.Equal(t, []string{"strasse"}, Tokens("STRASSE"))
	assert.Empty(t, Tokens("... --- !!!"))
}

func TestFold(t *testing.T) {
	assert.Equal(t, "hello world", Fold("  Hello \n  WORLD "))
}

func TestTail(t *testing.T) {
	assert.Equal(t, "short", Tail("short", 10))
	assert.Equal(t, "", Tail("anything", 0))
	assert.Equal(t, "brown fox", Tail("the quick brown fox", 10))
}

func TestChunkText(t *testing.T) {
	t.Run("short text is a single chunk", func(t *testing.T) {
		assert.Equal(t, []string{"نص قصير."}, ChunkText("نص قصير.", 100))
	})

	t.Run("empty text has no chunks", func(t *testing.T) {
		assert.Empty(t, ChunkText("   ", 100))
	})

	t.Run("splits at sentence boundaries", func(t *testing.T) {
		sentence := "هذه جملة عربية قصيرة. "
		text := strings.Repeat(sentence, 20)
		chunks := ChunkText(text, 100)

		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, RuneLen(c), 100)
			assert.True(t, strings.HasSuffix(c, "."), "chunk %q should end at a sentence boundary", c)
		}
		assert.Equal(t, strings.Join(strings.Fields(text), " "), strings.Join(strings.Fields(strings.Join(chunks, " ")), " "))
	})

	t.Run("falls back to spaces", func(t *testing.T) {
		text := strings.Repeat("كلمة ", 50)
		chunks := ChunkText(text, 32)
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			assert.LessOrEqual(t, RuneLen(c), 32)
			assert.NotContains(t, c, "كلم ")
		}
	})

	t.Run("hard cut without boundaries", func(t *testing.T) {
		text := strings.Repeat("ب", 25)
		chunks := ChunkText(text, 10)
		assert.Equal(t, []string{strings.Repeat("ب", 10), strings.Repeat("ب", 10), strings.Repeat("ب", 5)}, chunks)
	})
}
