package exifmeta

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Table maps the integer codes of an enumerated tag to canonical labels
// and matches free text against those labels.
type Table struct {
	kind    string
	codes   map[int]string
	decode  func(code int) string
	aliases map[string]string
	// labels is sorted longest first for containment matching.
	labels []string
}

func newTable(kind string, codes map[int]string, extra []string, aliases map[string]string) *Table {
	t := &Table{kind: kind, codes: codes, aliases: make(map[string]string, len(aliases))}
	for k, l := range aliases {
		t.aliases[foldKey(k)] = l
	}
	seen := make(map[string]bool)
	for _, l := range codes {
		seen[l] = true
	}
	for _, l := range extra {
		seen[l] = true
	}
	for l := range seen {
		t.labels = append(t.labels, l)
	}
	sort.Slice(t.labels, func(i, j int) bool {
		if len(t.labels[i]) != len(t.labels[j]) {
			return len(t.labels[i]) > len(t.labels[j])
		}
		return t.labels[i] < t.labels[j]
	})
	return t
}

// Kind is the human readable tag name, e.g. "Metering mode".
func (t *Table) Kind() string {
	return t.kind
}

// Label returns the canonical label for code, or "<Kind> <code>" when the
// code is not in the table.
func (t *Table) Label(code int) string {
	if t.decode != nil {
		return t.decode(code)
	}
	if l, ok := t.codes[code]; ok {
		return l
	}
	return fmt.Sprintf("%s %d", t.kind, code)
}

// Match maps free text to a canonical label: exact match first, then an
// alias, then containment either way. Text that matches nothing is
// returned trimmed but otherwise verbatim.
func (t *Table) Match(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	key := foldKey(text)

	for _, l := range t.labels {
		if foldKey(l) == key {
			return l
		}
	}
	if l, ok := t.aliases[key]; ok {
		return l
	}
	for _, l := range t.labels {
		if strings.Contains(key, foldKey(l)) {
			return l
		}
	}
	if len(key) >= 4 {
		for _, l := range t.labels {
			if strings.Contains(foldKey(l), key) {
				return l
			}
		}
	}
	return text
}

// Normalize labels numeric text by code and matches anything else.
func (t *Table) Normalize(text string) string {
	text = strings.TrimSpace(text)
	if code, err := strconv.Atoi(text); err == nil {
		return t.Label(code)
	}
	return t.Match(text)
}

// foldKey lower-cases s and collapses runs of whitespace, underscores and
// hyphens used as word breaks.
func foldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("_", " ", "-", " ").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Flash labels.
const (
	FlashFired          = "Fired"
	FlashDidNotFire     = "Did not fire"
	FlashAutoFired      = "Auto (fired)"
	FlashAutoDidNotFire = "Auto (did not fire)"
)

// FlashLabel decodes the Flash bitmask: bit 0 is set when the flash fired
// and bits 3-4 equal to 0b11 select auto mode.
func FlashLabel(code int) string {
	fired := code&0x1 != 0
	auto := (code>>3)&0x3 == 0x3
	switch {
	case auto && fired:
		return FlashAutoFired
	case auto:
		return FlashAutoDidNotFire
	case fired:
		return FlashFired
	}
	return FlashDidNotFire
}

var (
	// ExposurePrograms decodes the ExposureProgram tag.
	ExposurePrograms = newTable("Exposure program", map[int]string{
		0: "Not defined",
		1: "Manual",
		2: "Normal program",
		3: "Aperture priority",
		4: "Shutter priority",
		5: "Creative program",
		6: "Action program",
		7: "Portrait mode",
		8: "Landscape mode",
	}, nil, map[string]string{
		"m":                         "Manual",
		"p":                         "Normal program",
		"program":                   "Normal program",
		"program ae":                "Normal program",
		"program auto":              "Normal program",
		"auto":                      "Normal program",
		"a":                         "Aperture priority",
		"av":                        "Aperture priority",
		"aperture-priority":         "Aperture priority",
		"s":                         "Shutter priority",
		"tv":                        "Shutter priority",
		"shutter-priority":          "Shutter priority",
		"shutter speed priority":    "Shutter priority",
		"shutter speed priority ae": "Shutter priority",
		"aperture priority ae":      "Aperture priority",
		"creative":                  "Creative program",
		"action":                    "Action program",
		"sports":                    "Action program",
		"portrait":                  "Portrait mode",
		"landscape":                 "Landscape mode",
	})

	// ExposureModes decodes the ExposureMode tag.
	ExposureModes = newTable("Exposure mode", map[int]string{
		0: "Auto exposure",
		1: "Manual exposure",
		2: "Auto bracket",
	}, nil, map[string]string{
		"auto":            "Auto exposure",
		"manual":          "Manual exposure",
		"bracket":         "Auto bracket",
		"bracketing":      "Auto bracket",
		"auto bracketing": "Auto bracket",
	})

	// MeteringModes decodes the MeteringMode tag.
	MeteringModes = newTable("Metering mode", map[int]string{
		0:   "Unknown",
		1:   "Average",
		2:   "Center-weighted average",
		3:   "Spot",
		4:   "Multi-spot",
		5:   "Pattern",
		6:   "Partial",
		255: "Other",
	}, nil, map[string]string{
		"center weighted":         "Center-weighted average",
		"centre weighted":         "Center-weighted average",
		"center-weighted":         "Center-weighted average",
		"centre-weighted average": "Center-weighted average",
		"multi spot":              "Multi-spot",
		"multispot":               "Multi-spot",
		"matrix":                  "Pattern",
		"evaluative":              "Pattern",
		"multi-segment":           "Pattern",
		"multi segment":           "Pattern",
	})

	// WhiteBalances decodes the WhiteBalance tag.
	WhiteBalances = newTable("White balance", map[int]string{
		0: "Auto",
		1: "Manual",
	}, nil, map[string]string{
		"awb":                  "Auto",
		"auto white balance":   "Auto",
		"manual white balance": "Manual",
		"custom":               "Manual",
	})

	// Flashes decodes the Flash bitmask.
	Flashes = newFlashTable()
)

func newFlashTable() *Table {
	t := newTable("Flash", nil,
		[]string{FlashFired, FlashDidNotFire, FlashAutoFired, FlashAutoDidNotFire},
		map[string]string{
			"on":                 FlashFired,
			"yes":                FlashFired,
			"true":               FlashFired,
			"flash fired":        FlashFired,
			"off":                FlashDidNotFire,
			"no":                 FlashDidNotFire,
			"false":              FlashDidNotFire,
			"no flash":           FlashDidNotFire,
			"not fired":          FlashDidNotFire,
			"no flash function":  FlashDidNotFire,
			"auto, fired":        FlashAutoFired,
			"auto on":            FlashAutoFired,
			"auto, did not fire": FlashAutoDidNotFire,
			"auto off":           FlashAutoDidNotFire,
		})
	t.decode = FlashLabel
	return t
}
