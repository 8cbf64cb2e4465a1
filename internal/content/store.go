package content

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// Store holds the validated static school records loaded from a directory of
// <id>.json files. Lookups are safe for concurrent use; Reload swaps the
// whole record set atomically so readers never observe a partial load.
type Store struct {
	dir string

	mu      sync.RWMutex
	records map[string]*SchoolRecord
	ids     []string
}

// NewStore loads every *.json file under dir and validates each record.
// A single invalid record fails the load: static content is trusted at
// request time, so it must be proven clean here.
func NewStore(dir string) (*Store, error) {
	s := &Store{dir: dir}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the content directory. Used by the production refresh path
// where content files can change under a running server.
func (s *Store) Reload() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("reading content directory %s: %w", s.dir, err)
	}

	records := make(map[string]*SchoolRecord)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}
		id := strings.TrimSuffix(name, ".json")

		raw, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			return fmt.Errorf("reading school file %s: %w", name, err)
		}

		var rec SchoolRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			return fmt.Errorf("parsing school file %s: %w", name, err)
		}
		rec.ID = id

		if err := validateRecord(&rec); err != nil {
			return fmt.Errorf("invalid school record %s: %w", id, err)
		}
		records[id] = &rec
	}

	ids := make([]string, 0, len(records))
	for id := range records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	s.mu.Lock()
	s.records = records
	s.ids = ids
	s.mu.Unlock()
	return nil
}

// Get returns the record for id, or false when the id is unknown.
func (s *Store) Get(id string) (*SchoolRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Has reports whether id names a known school.
func (s *Store) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// IDs returns all school ids in sorted order.
func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.ids))
	copy(out, s.ids)
	return out
}

// All returns every record, ordered by id.
func (s *Store) All() []*SchoolRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SchoolRecord, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.records[id])
	}
	return out
}

// Len returns the number of loaded schools.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func validateRecord(rec *SchoolRecord) error {
	if strings.TrimSpace(rec.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if strings.TrimSpace(rec.Summary) == "" {
		return fmt.Errorf("summary is required")
	}
	if err := validateURLField("officialUrl", rec.OfficialURL, true); err != nil {
		return err
	}
	if rec.PlanURL != nil {
		if err := validateURLField("planUrl", *rec.PlanURL, false); err != nil {
			return err
		}
	}
	if rec.BannerHref != nil {
		if err := validateURLField("bannerHref", *rec.BannerHref, false); err != nil {
			return err
		}
	}
	if rec.IntroPlacement != nil {
		if p := *rec.IntroPlacement; p != IntroPlacementSection && p != IntroPlacementHero {
			return fmt.Errorf("introPlacement must be %q or %q, got %q",
				IntroPlacementSection, IntroPlacementHero, p)
		}
	}

	scores := map[string]*float64{
		"rating":            rec.Rating,
		"teacherQuality":    rec.TeacherQuality,
		"materialQuality":   rec.MaterialQuality,
		"connectionQuality": rec.ConnectionQuality,
	}
	for field, v := range scores {
		if v == nil {
			continue
		}
		if *v < 0 || *v > 5 {
			return fmt.Errorf("%s must be between 0 and 5, got %v", field, *v)
		}
		// Scores other than the overall rating must land on 0.5 steps.
		if field != "rating" && *v*2 != float64(int(*v*2)) {
			return fmt.Errorf("%s must be in 0.5 increments, got %v", field, *v)
		}
	}

	for i, sec := range rec.IntroSections {
		if sec.Title == "" || sec.Body == "" {
			return fmt.Errorf("introSections[%d] needs title and body", i)
		}
	}
	for i, sec := range rec.PRSections {
		if sec.Title == "" || sec.Body == "" {
			return fmt.Errorf("prSections[%d] needs title and body", i)
		}
	}
	for i, src := range rec.PrimarySources {
		if src.Label == "" {
			return fmt.Errorf("primarySources[%d] needs a label", i)
		}
		if err := validateURLField(fmt.Sprintf("primarySources[%d].url", i), src.URL, true); err != nil {
			return err
		}
		switch src.Type {
		case "official", "lp", "pr":
		default:
			return fmt.Errorf("primarySources[%d].type must be official, lp or pr", i)
		}
	}
	return nil
}

func validateURLField(field, raw string, required bool) error {
	if raw == "" {
		if required {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s is not a valid absolute URL: %q", field, raw)
	}
	return nil
}
