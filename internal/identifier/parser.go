package identifier

import "strings"

const (
	// Sentinel is the leading token of a well-formed ad-group name.
	Sentinel = "YT"
	// Marker is the substring that delimits the human-readable video name
	// from trailing operational codes (e.g. "MCC02運用46").
	Marker = "MCC"
	// Separator joins the fields of an ad-group name.
	Separator = "_"

	// shootToken marks a shoot-number segment inside the video name
	// (e.g. "撮影06"). Used to derive the primary search name.
	shootToken = "撮影"
)

// Parsed holds the structured fields extracted from an ad-group name.
type Parsed struct {
	// Project is the short business-line code (NB, OM, SBC, RL, ...).
	Project string
	// ConceptName is the first free-text segment of the video name.
	ConceptName string
	// VideoName is the full free-text portion of the identifier, joined with
	// the original separator.
	VideoName string
	// PrimaryVideoName is VideoName truncated one segment past the first
	// shoot segment, when one exists. It is the preferred catalog search key.
	PrimaryVideoName string
	// HasMarker reports whether any token anywhere in the identifier contains
	// the marker substring. The check is intentionally independent of where
	// VideoName accumulation stopped.
	HasMarker bool
	// TrailingNumbers holds the purely numeric suffix segments in original
	// order (hierarchy/version codes, not content).
	TrailingNumbers []string
	// FullName is the unmodified input.
	FullName string
}

// Parse extracts structured fields from a raw ad-group name.
//
// Well-formed input looks like
//
//	YT_<project>_<concept>_<shoot>_<script>_..._MCC02運用XX_XX_XX
//
// with the marker segment sometimes omitted. Input that does not start with
// the sentinel, or has fewer than two segments, yields a degraded result with
// the remainder collected into VideoName.
func Parse(raw string) Parsed {
	parts := strings.Split(raw, Separator)

	if len(parts) < 2 || parts[0] != Sentinel {
		degraded := Parsed{FullName: raw}
		if len(parts) > 0 {
			degraded.Project = parts[0]
		}
		if len(parts) > 1 {
			degraded.VideoName = strings.Join(parts[1:], Separator)
		} else {
			degraded.VideoName = raw
		}
		degraded.PrimaryVideoName = degraded.VideoName
		return degraded
	}

	parsed := Parsed{
		Project:  parts[1],
		FullName: raw,
	}

	for _, part := range parts {
		if strings.Contains(part, Marker) {
			parsed.HasMarker = true
			break
		}
	}

	// Trailing numeric window, scanned from the end. Sentinel and project are
	// never part of the window.
	trailingStart := len(parts)
	for i := len(parts) - 1; i >= 2; i-- {
		if !isNumeric(parts[i]) {
			break
		}
		trailingStart = i
	}
	if trailingStart < len(parts) {
		parsed.TrailingNumbers = append(parsed.TrailingNumbers, parts[trailingStart:]...)
	}

	var nameParts []string
	for i := 2; i < len(parts); i++ {
		if strings.Contains(parts[i], Marker) {
			break
		}
		if len(parsed.TrailingNumbers) > 0 && i >= trailingStart {
			break
		}
		nameParts = append(nameParts, parts[i])
	}

	if len(nameParts) > 0 {
		parsed.ConceptName = nameParts[0]
	}
	parsed.VideoName = strings.Join(nameParts, Separator)
	parsed.PrimaryVideoName = primaryName(nameParts)
	if parsed.PrimaryVideoName == "" {
		parsed.PrimaryVideoName = parsed.VideoName
	}
	return parsed
}

// primaryName truncates the video name one segment past the first shoot
// segment, yielding the "concept_shootNN_script" prefix used for searching.
func primaryName(nameParts []string) string {
	foundShoot := false
	var kept []string
	for _, part := range nameParts {
		kept = append(kept, part)
		if strings.Contains(part, shootToken) {
			foundShoot = true
			continue
		}
		if foundShoot {
			break
		}
	}
	if !foundShoot {
		return ""
	}
	return strings.Join(kept, Separator)
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
