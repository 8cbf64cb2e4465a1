package merge

import (
	"log/slog"

	"github.com/glats-richard/eigoonline/internal/content"
)

// Source provides the stored override patches, keyed by school id.
// Implementations should return only rows that decode cleanly; the merger
// treats a failing Source the same as an empty one.
type Source interface {
	OverridePatches() (map[string]Patch, error)
}

// Merger produces the effective school records the site renders: static
// content overlaid with stored overrides, sanitized. It is a pure function
// of the two stores; it holds no mutable state of its own.
type Merger struct {
	content *content.Store
	source  Source
	log     *slog.Logger
}

// New returns a merger over the given content store. source may be nil when
// no override store is configured; every lookup then yields the static
// record unchanged.
func New(store *content.Store, source Source) *Merger {
	return &Merger{
		content: store,
		source:  source,
		log:     slog.Default().With("service", "merge"),
	}
}

// MergedRecord returns the effective record for id, or false when the id is
// unknown. Callers are expected to pass known ids; unknown ids are a caller
// bug, not an override problem.
func (m *Merger) MergedRecord(id string) (*content.SchoolRecord, bool) {
	base, ok := m.content.Get(id)
	if !ok {
		return nil, false
	}
	patches := m.patches()
	p, ok := patches[id]
	if !ok {
		return base, true
	}
	return Apply(base, &p), true
}

// MergedAll returns the effective record for every school, ordered by id.
func (m *Merger) MergedAll() []*content.SchoolRecord {
	patches := m.patches()
	records := m.content.All()
	out := make([]*content.SchoolRecord, 0, len(records))
	for _, base := range records {
		if p, ok := patches[base.ID]; ok {
			out = append(out, Apply(base, &p))
		} else {
			out = append(out, base)
		}
	}
	return out
}

// patches reads the override map, degrading to "no overrides exist" when the
// store is missing or unreachable. Page rendering must survive a broken
// admin-side table.
func (m *Merger) patches() map[string]Patch {
	if m.source == nil {
		return nil
	}
	patches, err := m.source.OverridePatches()
	if err != nil {
		m.log.Warn("override store unavailable, serving static content", "error", err)
		return nil
	}
	return patches
}

// Apply overlays patch p onto base and sanitizes every field the patch
// touched. base is not modified. Static content is trusted and passes
// through untouched; only override-sourced values are inspected.
func Apply(base *content.SchoolRecord, p *Patch) *content.SchoolRecord {
	out := *base

	// Required text fields: an override may replace them but never blank them.
	if s, ok := definedString(p.Name); ok && s != "" {
		out.Name = s
	}
	if s, ok := definedString(p.Summary); ok && s != "" {
		out.Summary = s
	}

	applyString(&out.LogoURL, p.LogoURL)
	applyString(&out.PlanURL, p.PlanURL)

	if p.PriceText.Defined {
		out.PriceText = sanitizeText(p.PriceText.Value, base.PriceText, true)
	}
	if p.TrialText.Defined {
		out.TrialText = sanitizeText(p.TrialText.Value, base.TrialText, true)
	}
	if p.TrialDetailText.Defined {
		out.TrialDetailText = sanitizeText(p.TrialDetailText.Value, base.TrialDetailText, false)
	}
	if p.BenefitText.Defined {
		out.BenefitText = sanitizeText(p.BenefitText.Value, base.BenefitText, true)
	}
	if p.HoursText.Defined {
		out.HoursText = sanitizeText(p.HoursText.Value, base.HoursText, true)
	}

	applyString(&out.CampaignText, p.CampaignText)
	applyString(&out.CampaignEndsAt, p.CampaignEndsAt)
	applyList(&out.CampaignBullets, base.CampaignBullets, p.CampaignBullets)

	applyString(&out.BannerImage, p.BannerImage)
	applyString(&out.BannerAlt, p.BannerAlt)

	applyString(&out.HeroDescription, p.HeroDescription)
	applyString(&out.HeroImageURL, p.HeroImageURL)
	applyString(&out.HeroImageAlt, p.HeroImageAlt)

	applyString(&out.PRSectionTitle, p.PRSectionTitle)

	if p.IntroSectionTitle.Defined {
		out.IntroSectionTitle = sanitizeText(p.IntroSectionTitle.Value, base.IntroSectionTitle, false)
	}
	if p.IntroPlacement.Defined {
		out.IntroPlacement = sanitizeIntroPlacement(p.IntroPlacement.Value, base.IntroPlacement)
	}
	if p.IntroSections.Defined {
		if p.IntroSections.Value == nil {
			out.IntroSections = []content.IntroSection{}
		} else {
			out.IntroSections = sanitizeIntroSections(*p.IntroSections.Value, base.IntroSections)
		}
	}

	applyList(&out.EditorialComments, base.EditorialComments, p.EditorialComments)
	applyList(&out.Features, base.Features, p.Features)
	applyList(&out.Points, base.Points, p.Points)
	applyList(&out.RecommendedFor, base.RecommendedFor, p.RecommendedFor)

	applyString(&out.UniquenessTitle, p.UniquenessTitle)
	applyList(&out.UniquenessBullets, base.UniquenessBullets, p.UniquenessBullets)

	if p.PrimarySources.Defined {
		if p.PrimarySources.Value == nil {
			out.PrimarySources = []content.PrimarySource{}
		} else {
			out.PrimarySources = *p.PrimarySources.Value
		}
	}

	applyString(&out.TagsSectionTitle, p.TagsSectionTitle)
	applyString(&out.TagsSectionSubtitle, p.TagsSectionSubtitle)
	applyString(&out.RecommendedTagsTitle, p.RecommendedTagsTitle)
	applyString(&out.FeatureTagsTitle, p.FeatureTagsTitle)
	applyString(&out.KeyFactsSectionTitle, p.KeyFactsSectionTitle)
	applyString(&out.KeyFactsSectionSubtitle, p.KeyFactsSectionSubtitle)
	applyString(&out.BasicDataSectionTitle, p.BasicDataSectionTitle)
	applyString(&out.MethodologySectionTitle, p.MethodologySectionTitle)
	applyString(&out.MethodologySectionSubtitle, p.MethodologySectionSubtitle)
	applyString(&out.FeatureSectionTitle, p.FeatureSectionTitle)
	applyString(&out.ReviewsSectionTitle, p.ReviewsSectionTitle)
	applyString(&out.ReviewsSectionSubtitle, p.ReviewsSectionSubtitle)

	if p.Source != nil {
		src := base.Source
		if p.Source.URL.Defined {
			src.URL = p.Source.URL.Value
		}
		if p.Source.Note.Defined {
			src.Note = p.Source.Note.Value
		}
		out.Source = src
	}

	return &out
}

func definedString(o Opt[string]) (string, bool) {
	if !o.Defined || o.Value == nil {
		return "", false
	}
	return *o.Value, true
}

func applyString(dst **string, o Opt[string]) {
	if o.Defined {
		*dst = o.Value
	}
}

func applyList(dst *[]string, static []string, o Opt[StringList]) {
	if !o.Defined {
		return
	}
	if o.Value == nil {
		*dst = []string{}
		return
	}
	*dst = sanitizeStringList(*o.Value, static)
}
