package quiz

import (
	"sort"
	"strings"

	"github.com/korjavin/topicquizbot/models"
)

// Score reports whether values answer q correctly.
//
// Single choice is an exact match, multi choice is set equality ignoring
// order and duplicates, and free text ignores case and surrounding spaces.
func Score(q *models.Question, values []string) bool {
	switch q.Kind {
	case models.KindSingle:
		return len(values) == 1 && len(q.CorrectAnswers) == 1 && values[0] == q.CorrectAnswers[0]
	case models.KindMulti:
		return sameSet(values, q.CorrectAnswers)
	case models.KindText:
		return len(values) == 1 && len(q.CorrectAnswers) == 1 && normalize(values[0]) == normalize(q.CorrectAnswers[0])
	}
	return false
}

func normalize(s string) string {
	return strings.TrimSpace(strings.ToLower(s))
}

func sameSet(a, b []string) bool {
	x, y := uniqueSorted(a), uniqueSorted(b)
	if len(x) != len(y) {
		return false
	}
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

func uniqueSorted(list []string) []string {
	out := append([]string(nil), list...)
	sort.Strings(out)
	n := 0
	for i, s := range out {
		if i > 0 && s == out[n-1] {
			continue
		}
		out[n] = s
		n++
	}
	return out[:n]
}
