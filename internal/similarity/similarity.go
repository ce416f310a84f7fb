// Package similarity compares HTML tag-frequency profiles of pages that are
// expected to share a site template.
package similarity

import (
	"math"
	"sort"
)

// Profile maps an element tag name to its occurrence count within one page
type Profile map[string]int

// Clone returns an independent copy of the profile
func (p Profile) Clone() Profile {
	out := make(Profile, len(p))
	for tag, count := range p {
		out[tag] = count
	}
	return out
}

// Tags returns the profile's tag names in sorted order
func (p Profile) Tags() []string {
	tags := make([]string, 0, len(p))
	for tag := range p {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// Median returns the median of values. For an even count the two middle
// values are averaged with integer truncation. It panics on empty input.
func Median(values []int) int {
	if len(values) == 0 {
		panic("similarity: median of empty list")
	}

	sorted := make([]int, len(values))
	copy(sorted, values)
	sort.Ints(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// StandardDeviation returns the Bessel-corrected sample standard deviation,
// or 0 when fewer than two values are given
func StandardDeviation(values []int) float64 {
	if len(values) <= 1 {
		return 0
	}

	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))

	var squares float64
	for _, v := range values {
		d := float64(v) - mean
		squares += d * d
	}

	return math.Sqrt(squares / float64(len(values)-1))
}

// Pad returns copies of profiles that all share the union of their tag keys,
// missing tags counted as 0
func Pad(profiles []Profile) []Profile {
	union := make(map[string]struct{})
	for _, p := range profiles {
		for tag := range p {
			union[tag] = struct{}{}
		}
	}

	padded := make([]Profile, len(profiles))
	for i, p := range profiles {
		out := p.Clone()
		for tag := range union {
			if _, ok := out[tag]; !ok {
				out[tag] = 0
			}
		}
		padded[i] = out
	}
	return padded
}

// Score pads the profiles to a common tag set and returns the mean of the
// per-tag standard deviations together with the per-tag median template.
// The input profiles are not modified.
func Score(profiles []Profile) (float64, Profile) {
	template := make(Profile)
	if len(profiles) == 0 {
		return 0, template
	}

	padded := Pad(profiles)
	tags := padded[0].Tags()
	if len(tags) == 0 {
		return 0, template
	}

	var total float64
	column := make([]int, len(padded))
	for _, tag := range tags {
		for i, p := range padded {
			column[i] = p[tag]
		}
		template[tag] = Median(column)
		total += StandardDeviation(column)
	}

	return total / float64(len(tags)), template
}

// Accepts reports whether score identifies a valid template match. A score of
// exactly zero comes from degenerate input and is never accepted.
func Accepts(score, threshold float64) bool {
	return score > 0 && score < threshold
}
