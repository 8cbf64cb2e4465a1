// Package content loads and validates the static school records that back
// the public site. Records are one JSON document per school, authored by
// content editors, and are read-only at request time.
package content

// IntroMedia is an image or iframe embedded in an intro section.
type IntroMedia struct {
	Type   string  `json:"type"` // "image" or "iframe"
	Src    string  `json:"src"`
	Alt    *string `json:"alt,omitempty"`
	Width  *int    `json:"width,omitempty"`
	Height *int    `json:"height,omitempty"`
}

// IntroSection is one block on a school detail page: heading, body text and
// optional media either spanning the full width or beside the text.
type IntroSection struct {
	Title     string      `json:"title"`
	Body      string      `json:"body"`
	WideMedia *IntroMedia `json:"wideMedia,omitempty"`
	SideMedia *IntroMedia `json:"sideMedia,omitempty"`
	Reverse   bool        `json:"reverse,omitempty"`
}

// PRMedia is the image or YouTube embed attached to a PR section.
type PRMedia struct {
	Src     string  `json:"src,omitempty"`
	Alt     *string `json:"alt,omitempty"`
	Width   *int    `json:"width,omitempty"`
	Height  *int    `json:"height,omitempty"`
	YouTube string  `json:"youtube,omitempty"`
	Title   *string `json:"title,omitempty"`
}

// PRSection is one sponsored block shown under the hero.
type PRSection struct {
	IconText *string  `json:"iconText,omitempty"`
	IconURL  *string  `json:"iconUrl,omitempty"`
	Title    string   `json:"title"`
	Body     string   `json:"body"`
	Image    *PRMedia `json:"image,omitempty"`
	Reverse  bool     `json:"reverse,omitempty"`
}

// PrimarySource is an official/LP/PR link backing editorial claims.
type PrimarySource struct {
	Label string `json:"label"`
	URL   string `json:"url"`
	Type  string `json:"type"` // "official", "lp" or "pr"
}

// Source records where a school's data was taken from.
type Source struct {
	URL  *string `json:"url,omitempty"`
	Note *string `json:"note,omitempty"`
}

// Intro placement tokens for SchoolRecord.IntroPlacement.
const (
	IntroPlacementSection = "section"
	IntroPlacementHero    = "hero"
)

// SchoolRecord is the full static record for one school. The ID is derived
// from the file name and is stable across edits.
//
// The aggregate scores (Rating, TeacherQuality, MaterialQuality,
// ConnectionQuality) are computed externally from approved review data and
// are never authored through the override workflow.
type SchoolRecord struct {
	ID string `json:"-"`

	Name        string  `json:"name"`
	OfficialURL string  `json:"officialUrl"`
	Summary     string  `json:"summary"`
	LogoURL     *string `json:"logoUrl,omitempty"`
	PlanURL     *string `json:"planUrl,omitempty"`

	PriceText       *string `json:"priceText,omitempty"`
	TrialText       *string `json:"trialText,omitempty"`
	TrialDetailText *string `json:"trialDetailText,omitempty"`
	BenefitText     *string `json:"benefitText,omitempty"`
	HoursText       *string `json:"hoursText,omitempty"`

	CampaignText    *string  `json:"campaignText,omitempty"`
	CampaignEndsAt  *string  `json:"campaignEndsAt,omitempty"`
	CampaignBullets []string `json:"campaignBullets,omitempty"`

	BannerImage *string `json:"bannerImage,omitempty"`
	BannerAlt   *string `json:"bannerAlt,omitempty"`
	BannerHref  *string `json:"bannerHref,omitempty"`

	HeroDescription *string `json:"heroDescription,omitempty"`
	HeroImageURL    *string `json:"heroImageUrl,omitempty"`
	HeroImageAlt    *string `json:"heroImageAlt,omitempty"`

	PRSectionTitle *string     `json:"prSectionTitle,omitempty"`
	PRSections     []PRSection `json:"prSections,omitempty"`

	IntroSectionTitle *string        `json:"introSectionTitle,omitempty"`
	IntroPlacement    *string        `json:"introPlacement,omitempty"`
	IntroSections     []IntroSection `json:"introSections,omitempty"`

	EditorialComments []string `json:"editorialComments,omitempty"`
	Features          []string `json:"features,omitempty"`
	Points            []string `json:"points,omitempty"`
	RecommendedFor    []string `json:"recommendedFor,omitempty"`
	Methodology       []string `json:"methodology,omitempty"`

	UniquenessTitle   *string  `json:"uniquenessTitle,omitempty"`
	UniquenessBullets []string `json:"uniquenessBullets,omitempty"`

	PrimarySources []PrimarySource `json:"primarySources,omitempty"`

	// Aggregate quality scores, 0-5 in 0.5 steps. Derived from reviews.
	Rating            *float64 `json:"rating,omitempty"`
	TeacherQuality    *float64 `json:"teacherQuality,omitempty"`
	MaterialQuality   *float64 `json:"materialQuality,omitempty"`
	ConnectionQuality *float64 `json:"connectionQuality,omitempty"`

	// Per-section title/subtitle overrides for detail pages.
	TagsSectionTitle           *string `json:"tagsSectionTitle,omitempty"`
	TagsSectionSubtitle        *string `json:"tagsSectionSubtitle,omitempty"`
	RecommendedTagsTitle       *string `json:"recommendedTagsTitle,omitempty"`
	FeatureTagsTitle           *string `json:"featureTagsTitle,omitempty"`
	KeyFactsSectionTitle       *string `json:"keyFactsSectionTitle,omitempty"`
	KeyFactsSectionSubtitle    *string `json:"keyFactsSectionSubtitle,omitempty"`
	BasicDataSectionTitle      *string `json:"basicDataSectionTitle,omitempty"`
	MethodologySectionTitle    *string `json:"methodologySectionTitle,omitempty"`
	MethodologySectionSubtitle *string `json:"methodologySectionSubtitle,omitempty"`
	FeatureSectionTitle        *string `json:"featureSectionTitle,omitempty"`
	ReviewsSectionTitle        *string `json:"reviewsSectionTitle,omitempty"`
	ReviewsSectionSubtitle     *string `json:"reviewsSectionSubtitle,omitempty"`

	Source Source `json:"source"`
}

// LinkURLs returns the outbound link targets configured for the school.
// Used to build the per-offer host allowlist for click tracking.
func (s *SchoolRecord) LinkURLs() []string {
	urls := []string{s.OfficialURL}
	if s.PlanURL != nil && *s.PlanURL != "" {
		urls = append(urls, *s.PlanURL)
	}
	if s.BannerHref != nil && *s.BannerHref != "" {
		urls = append(urls, *s.BannerHref)
	}
	return urls
}
