package conceptgraph

import (
	"strings"
	"testing"
)

func TestMentionSnippet_BestSentence(t *testing.T) {
	texts := []string{"A loop repeats a block. Recursion is when a function calls itself . Stacks grow."}

	snippet := mentionSnippet(texts, []string{"recursion"})
	if snippet != "Recursion is when a function calls itself ." {
		t.Errorf("unexpected snippet: %q", snippet)
	}
}

func TestMentionSnippet_NoMention(t *testing.T) {
	texts := []string{"The quick brown fox jumps over the lazy dog."}
	if s := mentionSnippet(texts, []string{"recursion"}); s != "" {
		t.Errorf("expected empty snippet when nothing mentions the name, got: %q", s)
	}
}

func TestMentionSnippet_EmptyInputs(t *testing.T) {
	if s := mentionSnippet(nil, []string{"x"}); s != "" {
		t.Errorf("expected empty for no texts, got: %q", s)
	}
	if s := mentionSnippet([]string{"x is here."}, nil); s != "" {
		t.Errorf("expected empty for no names, got: %q", s)
	}
}

func TestMentionSnippet_AdjacentSentences(t *testing.T) {
	texts := []string{"Setup is easy. Use an array here. Then sort the array too. Done."}

	snippet := mentionSnippet(texts, []string{"ARRAY", "list"})
	if snippet != "Use an array here. Then sort the array too." {
		t.Errorf("expected both mentioning sentences, got: %q", snippet)
	}
}

func TestMentionSnippet_AcrossTexts(t *testing.T) {
	texts := []string{"Nothing here.", "A hash maps keys."}
	if s := mentionSnippet(texts, []string{"hash"}); s != "A hash maps keys." {
		t.Errorf("unexpected snippet: %q", s)
	}
}

func TestMentionSnippet_RespectMaxLen(t *testing.T) {
	long := strings.Repeat("word ", 50)
	texts := []string{"array " + long + ". array " + long + "."}

	snippet := mentionSnippet(texts, []string{"array"})
	if len(snippet) > snippetMaxLen {
		t.Errorf("snippet exceeds max length: %d > %d", len(snippet), snippetMaxLen)
	}
	if !strings.HasPrefix(snippet, "array") {
		t.Errorf("expected the first mentioning sentence, got: %q", snippet)
	}
}

func TestSnippetSplitSentences(t *testing.T) {
	text := "First sentence. Second sentence? Third sentence! Final text without period"
	sentences := snippetSplitSentences(text)

	if len(sentences) != 4 {
		t.Fatalf("expected 4 sentences, got %d: %v", len(sentences), sentences)
	}
	want := []string{"First sentence.", "Second sentence?", "Third sentence!", "Final text without period"}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, sentences[i], want[i])
		}
	}
}

func TestSnippetSplitSentencesUnicodeSpace(t *testing.T) {
	text := "Arrays grow.\u00a0A hash maps keys!\r\nv1.2 is a version. e.g.done"
	sentences := snippetSplitSentences(text)

	want := []string{"Arrays grow.", "A hash maps keys!", "v1.2 is a version.", "e.g.done"}
	if len(sentences) != len(want) {
		t.Fatalf("expected %d sentences, got %d: %v", len(want), len(sentences), sentences)
	}
	for i := range want {
		if sentences[i] != want[i] {
			t.Errorf("sentence %d: got %q, want %q", i, sentences[i], want[i])
		}
	}
}
