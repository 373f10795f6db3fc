// Package textutil holds the language-aware text helpers shared by the
// scorers and the document translator: Arabic script detection and
// normalization, sentence and word splitting, and chunking of long sources.
package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// arabicScript covers the Arabic, Arabic Supplement, Arabic Extended-A and
// Arabic Presentation Forms blocks.
var arabicScript = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x0600, Hi: 0x06FF, Stride: 1},
		{Lo: 0x0750, Hi: 0x077F, Stride: 1},
		{Lo: 0x08A0, Hi: 0x08FF, Stride: 1},
		{Lo: 0xFB50, Hi: 0xFDFF, Stride: 1},
		{Lo: 0xFE70, Hi: 0xFEFF, Stride: 1},
	},
}

// ArabicDetectionThreshold is the share of Arabic-script letters above which
// a text counts as Arabic.
const ArabicDetectionThreshold = 0.3

// IsArabicRune reports whether r belongs to one of the Arabic script blocks.
func IsArabicRune(r rune) bool { return unicode.Is(arabicScript, r) }

// ArabicRatio returns the share of non-space runes in s that are Arabic
// script. It returns 0 for empty or whitespace-only input.
func ArabicRatio(s string) float64 {
	total, arabic := 0, 0
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		total++
		if IsArabicRune(r) {
			arabic++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(arabic) / float64(total)
}

// IsArabic reports whether s is predominantly Arabic text.
func IsArabic(s string) bool { return ArabicRatio(s) > ArabicDetectionThreshold }

// HasArabicRun reports whether s contains at least minLen consecutive
// Arabic-script runes.
func HasArabicRun(s string, minLen int) bool {
	if minLen <= 0 {
		return true
	}
	run := 0
	for _, r := range s {
		if IsArabicRune(r) {
			run++
			if run >= minLen {
				return true
			}
			continue
		}
		run = 0
	}
	return false
}

// CountArabic returns the number of Arabic-script runes in s.
func CountArabic(s string) int {
	n := 0
	for _, r := range s {
		if IsArabicRune(r) {
			n++
		}
	}
	return n
}

// tashkeel lists the diacritics stripped by NormalizeArabic, plus tatweel.
func isTashkeel(r rune) bool {
	switch {
	case r >= 0x0617 && r <= 0x061A:
		return true
	case r >= 0x064B && r <= 0x0652:
		return true
	case r == 0x0670, r == 0x0640:
		return true
	}
	return false
}

var arabicLetterFolds = strings.NewReplacer(
	"آ", "ا", // alef with madda
	"أ", "ا", // alef with hamza above
	"إ", "ا", // alef with hamza below
	"ٱ", "ا", // alef wasla
	"ة", "ه", // taa marbuta -> haa
	"ى", "ي", // alef maqsura -> yaa
)

// NormalizeArabic prepares Arabic text for comparison. It applies NFKC,
// which also folds presentation forms back to base letters, strips
// diacritics and tatweel, and unifies letter variants that are commonly
// written interchangeably.
func NormalizeArabic(s string) string {
	s = norm.NFKC.String(s)
	s = strings.Map(func(r rune) rune {
		if isTashkeel(r) {
			return -1
		}
		return r
	}, s)
	return arabicLetterFolds.Replace(s)
}
