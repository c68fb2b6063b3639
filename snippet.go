package conceptgraph

import (
	"strings"
	"unicode"
)

// snippetMaxLen is the approximate maximum character length for a snippet.
const snippetMaxLen = 300

// mentionSnippet returns the sentence of texts that mentions names most
// often, joined with an adjacent mentioning sentence when both fit in
// snippetMaxLen. A mention is a whitespace-separated word equal to a name,
// ignoring case, as in reference inference. Returns "" when nothing mentions
// names, e.g. when the reference came from a tag.
func mentionSnippet(texts, names []string) string {
	if len(names) == 0 {
		return ""
	}

	var sentences []string
	for _, t := range texts {
		sentences = append(sentences, snippetSplitSentences(t)...)
	}
	if len(sentences) == 0 {
		return ""
	}

	scores := make([]int, len(sentences))
	bestIdx := 0
	for i, s := range sentences {
		scores[i] = countMentions(s, names)
		if scores[i] > scores[bestIdx] {
			bestIdx = i
		}
	}
	if scores[bestIdx] == 0 {
		return ""
	}

	result := sentences[bestIdx]
	if len(result) >= snippetMaxLen {
		return result
	}

	// Prefer the adjacent sentence (next or previous) with the highest score.
	candidateIdx, candidateScore := -1, 0
	for _, delta := range []int{1, -1} {
		adj := bestIdx + delta
		if adj >= 0 && adj < len(sentences) && scores[adj] > candidateScore {
			candidateIdx, candidateScore = adj, scores[adj]
		}
	}
	if candidateIdx >= 0 {
		combined := result + " " + sentences[candidateIdx]
		if candidateIdx < bestIdx {
			combined = sentences[candidateIdx] + " " + result
		}
		if len(combined) <= snippetMaxLen {
			result = combined
		}
	}
	return result
}

func countMentions(sentence string, names []string) int {
	n := 0
	for _, w := range strings.Fields(sentence) {
		for _, name := range names {
			if strings.EqualFold(w, name) {
				n++
				break
			}
		}
	}
	return n
}

// snippetSplitSentences splits text after '.', '?' or '!' when the next rune
// is whitespace or the text ends. Whitespace is what unicode.IsSpace reports,
// so sentences break where strings.Fields would split words.
func snippetSplitSentences(text string) []string {
	var sentences []string
	flush := func(s string) {
		if s = strings.TrimSpace(s); s != "" {
			sentences = append(sentences, s)
		}
	}

	runes := []rune(text)
	start := 0
	for i, r := range runes {
		if r != '.' && r != '?' && r != '!' {
			continue
		}
		if i+1 == len(runes) || unicode.IsSpace(runes[i+1]) {
			flush(string(runes[start : i+1]))
			start = i + 1
		}
	}
	flush(string(runes[start:]))
	return sentences
}
