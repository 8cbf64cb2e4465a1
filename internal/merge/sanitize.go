package merge

import (
	"encoding/json"
	"strings"

	"github.com/glats-richard/eigoonline/internal/content"
)

// The sanitizer repairs field shapes produced by real spreadsheet import
// accidents: cells holding serialized JSON ending up as the sole element of a
// list, and template placeholder text left in cells that were never filled
// in. Corrupted values always fall back to the trusted static record; a bad
// override must never surface as an error on a public page.

// looksLikeJSONArrayString reports whether s, once trimmed, has the `[...]`
// shape of a serialized JSON array.
func looksLikeJSONArrayString(s string) bool {
	t := strings.TrimSpace(s)
	return strings.HasPrefix(t, "[") && strings.HasSuffix(t, "]")
}

// looksLikePlaceholderText detects the full-width fill-in-the-blank markers
// spreadsheet templates use (e.g. "〇〇円から").
func looksLikePlaceholderText(s string) bool {
	t := strings.TrimSpace(s)
	if t == "" {
		return false
	}
	return strings.Contains(t, "〇〇") || strings.Contains(t, "○○")
}

// sanitizeStringList normalizes a list field taken from an override.
// A length-1 list whose sole element is serialized JSON is unwrapped when it
// parses to an array of plain strings; every other corrupt shape reverts to
// the static value, or to an empty list when the static value is absent.
func sanitizeStringList(v StringList, static []string) []string {
	if v.IsRaw {
		if parsed, ok := parseStringArray(v.Raw); ok {
			return parsed
		}
		return staticOrEmpty(static)
	}
	if len(v.Items) == 1 && looksLikeJSONArrayString(v.Items[0]) {
		if parsed, ok := parseStringArray(v.Items[0]); ok {
			return parsed
		}
		return staticOrEmpty(static)
	}
	if v.Items == nil {
		return []string{}
	}
	return v.Items
}

func parseStringArray(raw string) ([]string, bool) {
	if !looksLikeJSONArrayString(raw) {
		return nil, false
	}
	var parsed []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &parsed); err != nil {
		return nil, false
	}
	if parsed == nil {
		parsed = []string{}
	}
	return parsed, true
}

func staticOrEmpty(static []string) []string {
	if static == nil {
		return []string{}
	}
	return static
}

// sanitizeText normalizes a short text field taken from an override.
// Serialized-JSON artifacts and, when placeholders is set, template filler
// text revert to the static value.
func sanitizeText(v *string, static *string, placeholders bool) *string {
	if v == nil {
		return nil
	}
	if looksLikeJSONArrayString(*v) {
		return static
	}
	if placeholders && looksLikePlaceholderText(*v) {
		return static
	}
	return v
}

// sanitizeIntroPlacement reverts any value outside the allowed tokens.
func sanitizeIntroPlacement(v *string, static *string) *string {
	if v == nil {
		return nil
	}
	if *v == content.IntroPlacementSection || *v == content.IntroPlacementHero {
		return v
	}
	return static
}

// sanitizeIntroSections normalizes the structured intro-section list.
// The wrapped-JSON forms parse only when every element is an object carrying
// string title and body; anything else reverts to the static sections.
func sanitizeIntroSections(v IntroSectionList, static []content.IntroSection) []content.IntroSection {
	switch {
	case v.IsRaw:
		if parsed, ok := parseIntroSections(v.Raw); ok {
			return parsed
		}
		return staticSectionsOrEmpty(static)
	case v.Wrapped != nil:
		if len(v.Wrapped) == 1 && looksLikeJSONArrayString(v.Wrapped[0]) {
			if parsed, ok := parseIntroSections(v.Wrapped[0]); ok {
				return parsed
			}
		}
		return staticSectionsOrEmpty(static)
	case v.Sections == nil:
		return []content.IntroSection{}
	default:
		return v.Sections
	}
}

func parseIntroSections(raw string) ([]content.IntroSection, bool) {
	if !looksLikeJSONArrayString(raw) {
		return nil, false
	}
	var elems []map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &elems); err != nil {
		return nil, false
	}
	for _, elem := range elems {
		if !isJSONString(elem["title"]) || !isJSONString(elem["body"]) {
			return nil, false
		}
	}
	var sections []content.IntroSection
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &sections); err != nil {
		return nil, false
	}
	if sections == nil {
		sections = []content.IntroSection{}
	}
	return sections, true
}

func isJSONString(raw json.RawMessage) bool {
	var s string
	return raw != nil && json.Unmarshal(raw, &s) == nil
}

func staticSectionsOrEmpty(static []content.IntroSection) []content.IntroSection {
	if static == nil {
		return []content.IntroSection{}
	}
	return static
}
