package onnx

import (
	"os"
	"path/filepath"
	"testing"
)

func writeVocab(t *testing.T, tokens []string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "vocab.txt")
	content := ""
	for _, token := range tokens {
		content += token + "\n"
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}
	return path
}

func TestLoadVocabRequiresSpecialTokens(t *testing.T) {
	path := writeVocab(t, []string{"[PAD]", "[UNK]", "[CLS]"})
	if _, err := loadVocab(path); err == nil {
		t.Fatal("expected error for vocab missing [SEP]")
	}
}

func TestTokenizeWrapsAndResolvesWordpieces(t *testing.T) {
	path := writeVocab(t, []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "pot", "##hole", "near", "market"})
	v, err := loadVocab(path)
	if err != nil {
		t.Fatalf("load vocab: %v", err)
	}
	provider := &Provider{vocab: v}

	ids, mask := provider.tokenize("Pothole near market")
	// [CLS] pot ##hole near market [SEP]
	want := []int64{2, 4, 5, 6, 7, 3}
	if len(ids) != len(want) {
		t.Fatalf("expected %d tokens, got %d (%v)", len(want), len(ids), ids)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, ids)
		}
		if mask[i] != 1 {
			t.Fatalf("expected full attention mask, got %v", mask)
		}
	}
}

func TestTokenizeUnknownWordFallsBackToUnk(t *testing.T) {
	path := writeVocab(t, []string{"[PAD]", "[UNK]", "[CLS]", "[SEP]", "near"})
	v, err := loadVocab(path)
	if err != nil {
		t.Fatalf("load vocab: %v", err)
	}
	provider := &Provider{vocab: v}

	ids, _ := provider.tokenize("zzz near")
	// [CLS] [UNK] near [SEP]
	want := []int64{2, 1, 4, 3}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("expected ids %v, got %v", want, ids)
		}
	}
}

func TestBasicTokenizeSplitsPunctuationAndAccents(t *testing.T) {
	words := basicTokenize("Café-road, blocked!")
	want := []string{"cafe", "-", "road", ",", "blocked", "!"}
	if len(words) != len(want) {
		t.Fatalf("expected %v, got %v", want, words)
	}
	for i := range want {
		if words[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, words)
		}
	}
}
