package template

import (
	"strings"

	"github.com/agnivade/levenshtein"
)

// minPrefix is the shortest id prefix accepted by Resolve.
const minPrefix = 4

// Resolve finds a template from a user-supplied reference: exact id,
// case-insensitive name, then unique id prefix. Nothing else matches.
//
// On a miss the returned *NotFoundError carries the closest name by edit
// distance as a suggestion, never as a match.
func (s *Store) Resolve(ref string) (Template, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return Template{}, &NotFoundError{ID: ref}
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if i := s.indexLocked(ref); i >= 0 {
		return s.items[i], nil
	}

	for _, t := range s.items {
		if strings.EqualFold(t.Name, ref) {
			return t, nil
		}
	}

	if len(ref) >= minPrefix {
		match := -1
		for i, t := range s.items {
			if strings.HasPrefix(t.ID, ref) {
				if match >= 0 {
					match = -2
					break
				}
				match = i
			}
		}
		if match >= 0 {
			return s.items[match], nil
		}
	}

	return Template{}, &NotFoundError{ID: ref, Suggestion: s.suggestLocked(ref)}
}

// suggestLocked returns the name closest to ref, or "" when nothing is
// near enough or the best distance is shared.
func (s *Store) suggestLocked(ref string) string {
	needle := strings.ToLower(ref)
	limit := len([]rune(needle)) / 3
	if limit < 2 {
		limit = 2
	}
	best, bestDist, tie := -1, limit+1, false
	for i, t := range s.items {
		d := levenshtein.ComputeDistance(needle, strings.ToLower(t.Name))
		switch {
		case d < bestDist:
			best, bestDist, tie = i, d, false
		case d == bestDist:
			tie = true
		}
	}
	if best < 0 || tie {
		return ""
	}
	return s.items[best].Name
}
