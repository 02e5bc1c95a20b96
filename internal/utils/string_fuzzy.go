package utils

import "strings"

// FuzzyMatch checks if source is a fuzzy match of target.
// Characters in source must appear in target in the same order.
// Case-insensitive.
func FuzzyMatch(source, target string) bool {
	source = strings.ToLower(source)
	target = strings.ToLower(target)

	sourceRunes := []rune(source)
	targetRunes := []rune(target)

	sourceIdx := 0
	targetIdx := 0

	for sourceIdx < len(sourceRunes) && targetIdx < len(targetRunes) {
		if sourceRunes[sourceIdx] == targetRunes[targetIdx] {
			sourceIdx++
		}
		targetIdx++
	}

	return sourceIdx == len(sourceRunes)
}

// MatchEntityTitle is prizm_search's title-matching policy: mdstore
// entities are title-driven, so a query almost always targets a title
// before it targets a body. With fuzzy set, a subsequence match against
// title wins and is ranked by edit distance; otherwise a plain substring
// test wins and is ranked by the leftover length. Score is only
// meaningful when matched is true.
func MatchEntityTitle(query, title string, fuzzy bool) (matched bool, score int) {
	if fuzzy {
		if FuzzyMatch(query, title) {
			return true, ComputeDistance(query, title)
		}
		return false, 0
	}
	if strings.Contains(strings.ToLower(title), strings.ToLower(query)) {
		return true, len(title) - len(query)
	}
	return false, 0
}
