package datastore

import (
	"fmt"
	"log/slog"

	"github.com/glats-richard/eigoonline/internal/merge"
)

// patchSource adapts the override table to the merge engine's Source
// interface. Rows whose JSON no longer decodes are skipped with a warning;
// one bad row must never take the whole site down to static content.
type patchSource struct {
	ds Interface
}

// PatchSource returns a merge.Source over ds, or nil when no store is
// configured so the merger serves static content.
func PatchSource(ds Interface) merge.Source {
	if ds == nil {
		return nil
	}
	return &patchSource{ds: ds}
}

func (s *patchSource) OverridePatches() (map[string]merge.Patch, error) {
	rows, err := s.ds.ListOverrides()
	if err != nil {
		return nil, fmt.Errorf("listing overrides: %w", err)
	}
	patches := make(map[string]merge.Patch, len(rows))
	for i := range rows {
		p, err := merge.DecodePatch([]byte(rows[i].Data))
		if err != nil {
			slog.Warn("skipping undecodable override row",
				"school_id", rows[i].SchoolID, "error", err)
			continue
		}
		patches[rows[i].SchoolID] = p
	}
	return patches, nil
}
