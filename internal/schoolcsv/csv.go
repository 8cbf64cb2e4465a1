// Package schoolcsv implements the spreadsheet contract used by the content
// editing workflow: a fixed, ordered column set over the mergeable school
// fields. Multi-line list fields live newline-joined inside one cell (commas
// stay reserved for CSV itself); structured section arrays are embedded as
// JSON text.
package schoolcsv

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/glats-richard/eigoonline/internal/content"
	"github.com/glats-richard/eigoonline/internal/merge"
)

// Headers is the canonical column order. Import matches columns by name, but
// export always writes this exact sequence so diffs between spreadsheets
// stay readable.
var Headers = []string{
	"id",
	"name",
	"officialUrl",
	"logoUrl",
	"planUrl",
	"bannerHref",
	"bannerImage",
	"bannerAlt",
	"priceText",
	"trialText",
	"trialDetailText",
	"benefitText",
	"hoursText",
	"campaignText",
	"campaignEndsAt",
	"campaignBullets",
	"summary",
	"heroDescription",
	"heroImageUrl",
	"heroImageAlt",
	"prSectionTitle",
	"prSections",
	"introSectionTitle",
	"introPlacement",
	"introSections",
	"editorialComments",
	"features",
	"points",
	"recommendedFor",
	"uniquenessTitle",
	"uniquenessBullets",
	"tagsSectionTitle",
	"tagsSectionSubtitle",
	"recommendedTagsTitle",
	"featureTagsTitle",
	"keyFactsSectionTitle",
	"keyFactsSectionSubtitle",
	"basicDataSectionTitle",
	"methodologySectionTitle",
	"methodologySectionSubtitle",
	"featureSectionTitle",
	"reviewsSectionTitle",
	"reviewsSectionSubtitle",
}

// utf8BOM keeps Excel happy with Japanese text.
const utf8BOM = "\uFEFF"

// Export renders the merged records as CSV, sorted by school name with
// Japanese collation.
func Export(records []*content.SchoolRecord) ([]byte, error) {
	sorted := make([]*content.SchoolRecord, len(records))
	copy(sorted, records)
	coll := collate.New(language.Japanese)
	sort.SliceStable(sorted, func(i, j int) bool {
		return coll.CompareString(sorted[i].Name, sorted[j].Name) < 0
	})

	var buf bytes.Buffer
	buf.WriteString(utf8BOM)
	w := csv.NewWriter(&buf)

	if err := w.Write(Headers); err != nil {
		return nil, fmt.Errorf("writing CSV header: %w", err)
	}
	for _, rec := range sorted {
		if err := w.Write(exportRow(rec)); err != nil {
			return nil, fmt.Errorf("writing CSV row for %s: %w", rec.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flushing CSV: %w", err)
	}
	return buf.Bytes(), nil
}

func exportRow(rec *content.SchoolRecord) []string {
	return []string{
		rec.ID,
		rec.Name,
		rec.OfficialURL,
		deref(rec.LogoURL),
		deref(rec.PlanURL),
		deref(rec.BannerHref),
		deref(rec.BannerImage),
		deref(rec.BannerAlt),
		deref(rec.PriceText),
		deref(rec.TrialText),
		deref(rec.TrialDetailText),
		deref(rec.BenefitText),
		deref(rec.HoursText),
		deref(rec.CampaignText),
		deref(rec.CampaignEndsAt),
		joinLines(rec.CampaignBullets),
		rec.Summary,
		deref(rec.HeroDescription),
		deref(rec.HeroImageURL),
		deref(rec.HeroImageAlt),
		deref(rec.PRSectionTitle),
		jsonCell(rec.PRSections),
		deref(rec.IntroSectionTitle),
		deref(rec.IntroPlacement),
		jsonCell(rec.IntroSections),
		joinLines(rec.EditorialComments),
		joinLines(rec.Features),
		joinLines(rec.Points),
		joinLines(rec.RecommendedFor),
		deref(rec.UniquenessTitle),
		joinLines(rec.UniquenessBullets),
		deref(rec.TagsSectionTitle),
		deref(rec.TagsSectionSubtitle),
		deref(rec.RecommendedTagsTitle),
		deref(rec.FeatureTagsTitle),
		deref(rec.KeyFactsSectionTitle),
		deref(rec.KeyFactsSectionSubtitle),
		deref(rec.BasicDataSectionTitle),
		deref(rec.MethodologySectionTitle),
		deref(rec.MethodologySectionSubtitle),
		deref(rec.FeatureSectionTitle),
		deref(rec.ReviewsSectionTitle),
		deref(rec.ReviewsSectionSubtitle),
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func joinLines(items []string) string {
	kept := make([]string, 0, len(items))
	for _, item := range items {
		if t := strings.TrimSpace(item); t != "" {
			kept = append(kept, t)
		}
	}
	return strings.Join(kept, "\n")
}

func jsonCell[T any](items []T) string {
	if len(items) == 0 {
		return ""
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return ""
	}
	return string(raw)
}

// RowPatch is one imported spreadsheet row: the target school id and the
// override patch built from its cells.
type RowPatch struct {
	ID    string
	Patch merge.Patch
}

// Parse reads CSV data and builds an override patch per row. Columns match
// by header name, so reordered or truncated spreadsheets still import.
// Protected columns (officialUrl, bannerHref, prSections) are ignored; rows
// without an id are skipped.
func Parse(data []byte) ([]RowPatch, error) {
	text := strings.TrimPrefix(string(data), utf8BOM)
	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("no records")
	}

	headers := rows[0]
	index := make(map[string]int, len(headers))
	for i, h := range headers {
		index[strings.TrimSpace(h)] = i
	}
	if _, ok := index["id"]; !ok {
		return nil, fmt.Errorf("missing id column")
	}

	var out []RowPatch
	for _, row := range rows[1:] {
		cell := func(name string) (string, bool) {
			i, ok := index[name]
			if !ok || i >= len(row) {
				return "", false
			}
			return row[i], true
		}

		id, _ := cell("id")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		out = append(out, RowPatch{ID: id, Patch: rowToPatch(cell)})
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no records")
	}
	return out, nil
}

// rowToPatch maps the known columns onto the typed patch. Empty text cells
// become explicit nulls (the spreadsheet is the full editing surface, a
// blank cell means "cleared"), empty list cells become empty lists, and the
// name/summary columns stay absent when blank since blanking a required
// field is never intended.
func rowToPatch(cell func(string) (string, bool)) merge.Patch {
	var p merge.Patch

	requiredText := func(dst *merge.Opt[string], column string) {
		if v, ok := cell(column); ok {
			if t := strings.TrimSpace(v); t != "" {
				*dst = merge.Set(t)
			}
		}
	}
	text := func(dst *merge.Opt[string], column string) {
		if v, ok := cell(column); ok {
			if t := strings.TrimSpace(v); t != "" {
				*dst = merge.Set(t)
			} else {
				*dst = merge.Null[string]()
			}
		}
	}
	lines := func(dst *merge.Opt[merge.StringList], column string) {
		if v, ok := cell(column); ok {
			*dst = merge.Set(merge.StringList{Items: splitLines(v)})
		}
	}

	requiredText(&p.Name, "name")
	requiredText(&p.Summary, "summary")

	text(&p.LogoURL, "logoUrl")
	text(&p.PlanURL, "planUrl")
	text(&p.BannerImage, "bannerImage")
	text(&p.BannerAlt, "bannerAlt")
	text(&p.PriceText, "priceText")
	text(&p.TrialText, "trialText")
	text(&p.TrialDetailText, "trialDetailText")
	text(&p.BenefitText, "benefitText")
	text(&p.HoursText, "hoursText")
	text(&p.CampaignText, "campaignText")
	text(&p.CampaignEndsAt, "campaignEndsAt")
	text(&p.HeroDescription, "heroDescription")
	text(&p.HeroImageURL, "heroImageUrl")
	text(&p.HeroImageAlt, "heroImageAlt")
	text(&p.PRSectionTitle, "prSectionTitle")
	text(&p.IntroSectionTitle, "introSectionTitle")
	text(&p.UniquenessTitle, "uniquenessTitle")
	text(&p.TagsSectionTitle, "tagsSectionTitle")
	text(&p.TagsSectionSubtitle, "tagsSectionSubtitle")
	text(&p.RecommendedTagsTitle, "recommendedTagsTitle")
	text(&p.FeatureTagsTitle, "featureTagsTitle")
	text(&p.KeyFactsSectionTitle, "keyFactsSectionTitle")
	text(&p.KeyFactsSectionSubtitle, "keyFactsSectionSubtitle")
	text(&p.BasicDataSectionTitle, "basicDataSectionTitle")
	text(&p.MethodologySectionTitle, "methodologySectionTitle")
	text(&p.MethodologySectionSubtitle, "methodologySectionSubtitle")
	text(&p.FeatureSectionTitle, "featureSectionTitle")
	text(&p.ReviewsSectionTitle, "reviewsSectionTitle")
	text(&p.ReviewsSectionSubtitle, "reviewsSectionSubtitle")

	lines(&p.CampaignBullets, "campaignBullets")
	lines(&p.EditorialComments, "editorialComments")
	lines(&p.Features, "features")
	lines(&p.Points, "points")
	lines(&p.RecommendedFor, "recommendedFor")
	lines(&p.UniquenessBullets, "uniquenessBullets")

	if v, ok := cell("introPlacement"); ok {
		switch t := strings.TrimSpace(v); t {
		case "":
			p.IntroPlacement = merge.Null[string]()
		default:
			p.IntroPlacement = merge.Set(t)
		}
	}

	if v, ok := cell("introSections"); ok {
		t := strings.TrimSpace(v)
		if t == "" {
			p.IntroSections = merge.Set(merge.IntroSectionList{})
		} else {
			var list merge.IntroSectionList
			if err := json.Unmarshal([]byte(t), &list.Sections); err == nil {
				p.IntroSections = merge.Set(list)
			} else {
				// Preserve the corrupt cell for the merge-time sanitizer.
				p.IntroSections = merge.Set(merge.IntroSectionList{Wrapped: []string{t}})
			}
		}
	}

	return p
}

func splitLines(s string) []string {
	out := []string{}
	for _, line := range strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' }) {
		if t := strings.TrimSpace(line); t != "" {
			out = append(out, t)
		}
	}
	return out
}
