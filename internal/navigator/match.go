package navigator

import "strings"

// MatchVenue picks the venue label matching the target name.
//
// Exact pass: case-insensitive equality, first match wins. Fuzzy pass
// (only when enabled and the exact pass found nothing): a label is a
// candidate when either name contains the other, case-insensitively.
// Exactly one candidate is accepted; more than one fails with
// VenueAmbiguous rather than guessing.
func MatchVenue(labels []string, target string, fuzzy bool) (int, error) {
	want := strings.ToLower(strings.TrimSpace(target))

	for i, label := range labels {
		if strings.ToLower(strings.TrimSpace(label)) == want {
			return i, nil
		}
	}

	if !fuzzy {
		return -1, &VenueError{Kind: VenueNotFound, Target: target}
	}

	var candidates []int
	for i, label := range labels {
		have := strings.ToLower(strings.TrimSpace(label))
		if have == "" {
			continue
		}
		if strings.Contains(have, want) || strings.Contains(want, have) {
			candidates = append(candidates, i)
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return -1, &VenueError{Kind: VenueNotFound, Target: target}
	default:
		names := make([]string, len(candidates))
		for i, c := range candidates {
			names[i] = labels[c]
		}
		return -1, &VenueError{Kind: VenueAmbiguous, Target: target, Candidates: names}
	}
}
