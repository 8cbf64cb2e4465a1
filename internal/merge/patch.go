// Package merge combines a static school record with its stored override
// patch into the effective record a page renders, repairing known
// data-corruption patterns from the spreadsheet editing workflow on the way.
package merge

import (
	"bytes"
	"encoding/json"

	"github.com/glats-richard/eigoonline/internal/content"
)

// Opt is a tri-state optional field for override patches: absent from the
// patch, explicitly null (clear the value), or set. Absent fields never touch
// the static record during merge.
type Opt[T any] struct {
	Defined bool
	Value   *T // nil means explicit null
}

// Set returns a defined Opt holding v.
func Set[T any](v T) Opt[T] {
	return Opt[T]{Defined: true, Value: &v}
}

// Null returns a defined Opt holding an explicit null.
func Null[T any]() Opt[T] {
	return Opt[T]{Defined: true}
}

// IsZero reports whether the field was absent, so encoding/json's omitzero
// drops it from the stored patch document.
func (o Opt[T]) IsZero() bool { return !o.Defined }

func (o *Opt[T]) UnmarshalJSON(b []byte) error {
	o.Defined = true
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}

func (o Opt[T]) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*o.Value)
}

// StringList is a list-of-strings patch value that tolerates the corrupted
// shapes produced by CSV round-trips: a proper JSON array of strings, or a
// bare string cell that may itself contain serialized JSON.
type StringList struct {
	Items []string
	// Raw is set instead of Items when the stored value was a bare string.
	Raw   string
	IsRaw bool
}

// List returns a defined StringList patch value.
func List(items ...string) Opt[StringList] {
	return Set(StringList{Items: items})
}

func (l *StringList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		l.IsRaw = true
		return json.Unmarshal(b, &l.Raw)
	}
	l.IsRaw = false
	l.Raw = ""
	return json.Unmarshal(b, &l.Items)
}

func (l StringList) MarshalJSON() ([]byte, error) {
	if l.IsRaw {
		return json.Marshal(l.Raw)
	}
	if l.Items == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(l.Items)
}

// IntroSectionList is an intro-sections patch value. Besides the proper
// array-of-objects form it preserves the two corrupt shapes the sanitizer
// knows how to repair: an array of strings (typically length 1, holding
// serialized JSON) and a bare string.
type IntroSectionList struct {
	Sections []content.IntroSection
	Wrapped  []string
	Raw      string
	IsRaw    bool
}

func (l *IntroSectionList) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		l.IsRaw = true
		return json.Unmarshal(b, &l.Raw)
	}
	var strs []string
	if err := json.Unmarshal(b, &strs); err == nil && len(strs) > 0 {
		l.Wrapped = strs
		return nil
	}
	return json.Unmarshal(b, &l.Sections)
}

func (l IntroSectionList) MarshalJSON() ([]byte, error) {
	switch {
	case l.IsRaw:
		return json.Marshal(l.Raw)
	case l.Wrapped != nil:
		return json.Marshal(l.Wrapped)
	case l.Sections == nil:
		return []byte("[]"), nil
	default:
		return json.Marshal(l.Sections)
	}
}

// SourcePatch overrides the nested source object per-field.
type SourcePatch struct {
	URL  Opt[string] `json:"url,omitzero"`
	Note Opt[string] `json:"note,omitzero"`
}

// Patch is the typed override document stored per school. Only overridable
// fields exist on the type: the protected keys (rating, teacherQuality,
// materialQuality, connectionQuality, prSections, officialUrl, bannerHref)
// have no counterpart here, so they can never take effect through an
// override, regardless of what a stored JSON document contains.
type Patch struct {
	Name    Opt[string] `json:"name,omitzero"`
	LogoURL Opt[string] `json:"logoUrl,omitzero"`
	PlanURL Opt[string] `json:"planUrl,omitzero"`
	Summary Opt[string] `json:"summary,omitzero"`

	PriceText       Opt[string] `json:"priceText,omitzero"`
	TrialText       Opt[string] `json:"trialText,omitzero"`
	TrialDetailText Opt[string] `json:"trialDetailText,omitzero"`
	BenefitText     Opt[string] `json:"benefitText,omitzero"`
	HoursText       Opt[string] `json:"hoursText,omitzero"`

	CampaignText    Opt[string]     `json:"campaignText,omitzero"`
	CampaignEndsAt  Opt[string]     `json:"campaignEndsAt,omitzero"`
	CampaignBullets Opt[StringList] `json:"campaignBullets,omitzero"`

	BannerImage Opt[string] `json:"bannerImage,omitzero"`
	BannerAlt   Opt[string] `json:"bannerAlt,omitzero"`

	HeroDescription Opt[string] `json:"heroDescription,omitzero"`
	HeroImageURL    Opt[string] `json:"heroImageUrl,omitzero"`
	HeroImageAlt    Opt[string] `json:"heroImageAlt,omitzero"`

	PRSectionTitle Opt[string] `json:"prSectionTitle,omitzero"`

	IntroSectionTitle Opt[string]           `json:"introSectionTitle,omitzero"`
	IntroPlacement    Opt[string]           `json:"introPlacement,omitzero"`
	IntroSections     Opt[IntroSectionList] `json:"introSections,omitzero"`

	EditorialComments Opt[StringList] `json:"editorialComments,omitzero"`
	Features          Opt[StringList] `json:"features,omitzero"`
	Points            Opt[StringList] `json:"points,omitzero"`
	RecommendedFor    Opt[StringList] `json:"recommendedFor,omitzero"`

	UniquenessTitle   Opt[string]     `json:"uniquenessTitle,omitzero"`
	UniquenessBullets Opt[StringList] `json:"uniquenessBullets,omitzero"`

	PrimarySources Opt[[]content.PrimarySource] `json:"primarySources,omitzero"`

	TagsSectionTitle           Opt[string] `json:"tagsSectionTitle,omitzero"`
	TagsSectionSubtitle        Opt[string] `json:"tagsSectionSubtitle,omitzero"`
	RecommendedTagsTitle       Opt[string] `json:"recommendedTagsTitle,omitzero"`
	FeatureTagsTitle           Opt[string] `json:"featureTagsTitle,omitzero"`
	KeyFactsSectionTitle       Opt[string] `json:"keyFactsSectionTitle,omitzero"`
	KeyFactsSectionSubtitle    Opt[string] `json:"keyFactsSectionSubtitle,omitzero"`
	BasicDataSectionTitle      Opt[string] `json:"basicDataSectionTitle,omitzero"`
	MethodologySectionTitle    Opt[string] `json:"methodologySectionTitle,omitzero"`
	MethodologySectionSubtitle Opt[string] `json:"methodologySectionSubtitle,omitzero"`
	FeatureSectionTitle        Opt[string] `json:"featureSectionTitle,omitzero"`
	ReviewsSectionTitle        Opt[string] `json:"reviewsSectionTitle,omitzero"`
	ReviewsSectionSubtitle     Opt[string] `json:"reviewsSectionSubtitle,omitzero"`

	Source *SourcePatch `json:"source,omitempty"`
}

// IsEmpty reports whether no field of the patch is defined.
func (p *Patch) IsEmpty() bool {
	raw, err := json.Marshal(p)
	if err != nil {
		return false
	}
	return bytes.Equal(raw, []byte("{}"))
}

// DecodePatch parses a stored override document. Unknown keys, including the
// protected ones that older revisions allowed into the table, are dropped.
func DecodePatch(raw []byte) (Patch, error) {
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// EncodePatch serializes a patch for storage. Field order follows the struct
// definition, so the stored document is byte-stable across round trips.
func EncodePatch(p *Patch) ([]byte, error) {
	return json.Marshal(p)
}
