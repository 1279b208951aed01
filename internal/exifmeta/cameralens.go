package exifmeta

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CameraName joins the Make and Model tags. Models that already start with
// the make (or its first word) are used alone.
func CameraName(maker, model string) string {
	maker, model = cleanText(maker), cleanText(model)
	switch {
	case maker == "":
		return model
	case model == "":
		return maker
	case hasFoldPrefix(model, maker):
		return model
	}
	if first, _, ok := strings.Cut(maker, " "); ok && hasFoldPrefix(model, first) {
		return model
	}
	return maker + " " + model
}

func hasFoldPrefix(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// isSeparator reports whether r can join a camera and a lens name.
func isSeparator(r rune) bool {
	switch r {
	case '·', ',', '|', '/', '-', '—', '–', '+':
		return true
	}
	return false
}

// needsSpacing reports whether separator r only counts when surrounded by
// whitespace. Hyphens and slashes also appear inside model names such as
// "EOS-1D" or "24-70mm".
func needsSpacing(r rune) bool {
	switch r {
	case '/', '-', '—', '–', '+':
		return true
	}
	return false
}

func isSeparatorOrSpace(r rune) bool {
	return isSeparator(r) || unicode.IsSpace(r)
}

// SplitCameraLens separates a lens name that a camera embedded in its
// model tag. It returns the cleaned camera and the lens, which is either
// the given lens or one inferred from the camera text. When no rule
// applies both values are returned unchanged.
func SplitCameraLens(camera, lens string) (string, string) {
	camera, lens = strings.TrimSpace(camera), strings.TrimSpace(lens)
	if camera == "" {
		return camera, lens
	}

	if lens != "" {
		if cleaned, ok := removeLens(camera, lens); ok {
			return cleaned, lens
		}
		return camera, lens
	}

	if left, right, ok := splitAtSeparator(camera); ok {
		return left, right
	}
	if left, right, ok := strings.Cut(camera, " - "); ok {
		left = strings.TrimRightFunc(left, isSeparatorOrSpace)
		right = strings.TrimLeftFunc(right, isSeparatorOrSpace)
		if plausibleSplit(left, right) {
			return left, right
		}
	}
	return camera, lens
}

// removeLens deletes the first case-insensitive occurrence of lens from
// camera together with the separators around it.
func removeLens(camera, lens string) (string, bool) {
	start, end, found := indexFold(camera, lens)
	if !found {
		return "", false
	}
	left := strings.TrimRightFunc(camera[:start], isSeparatorOrSpace)
	right := strings.TrimLeftFunc(camera[end:], isSeparatorOrSpace)

	var cleaned string
	switch {
	case left != "" && right != "":
		cleaned = left + " " + right
	case left != "":
		cleaned = left
	default:
		cleaned = right
	}
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

// indexFold finds substr in s under Unicode case folding and returns the
// byte range of the match in s.
func indexFold(s, substr string) (int, int, bool) {
	n := utf8.RuneCountInString(substr)
	for i := range s {
		end := i
		for k := 0; k < n && end < len(s); k++ {
			_, size := utf8.DecodeRuneInString(s[end:])
			end += size
		}
		if strings.EqualFold(s[i:end], substr) {
			return i, end, true
		}
	}
	return 0, 0, false
}

// splitAtSeparator scans right to left for a separator with usable text on
// both sides.
func splitAtSeparator(camera string) (string, string, bool) {
	for i := len(camera); i > 0; {
		r, size := utf8.DecodeLastRuneInString(camera[:i])
		i -= size
		if !isSeparator(r) {
			continue
		}
		if needsSpacing(r) && !spacedAt(camera, i, size) {
			continue
		}
		left := strings.TrimRightFunc(camera[:i], isSeparatorOrSpace)
		right := strings.TrimLeftFunc(camera[i+size:], isSeparatorOrSpace)
		if plausibleSplit(left, right) {
			return left, right, true
		}
	}
	return "", "", false
}

// spacedAt reports whether the rune at s[i:i+size] has whitespace on both
// sides.
func spacedAt(s string, i, size int) bool {
	if i == 0 || i+size >= len(s) {
		return false
	}
	before, _ := utf8.DecodeLastRuneInString(s[:i])
	after, _ := utf8.DecodeRuneInString(s[i+size:])
	return unicode.IsSpace(before) && unicode.IsSpace(after)
}

// plausibleSplit requires at least two characters on each side and a
// letter or digit in the lens part.
func plausibleSplit(camera, lens string) bool {
	if utf8.RuneCountInString(camera) < 2 || utf8.RuneCountInString(lens) < 2 {
		return false
	}
	return strings.IndexFunc(lens, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
