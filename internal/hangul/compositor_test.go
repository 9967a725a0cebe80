package hangul

import (
	"testing"
	"unicode/utf8"

	"pgregory.net/rapid"
)

func feed(c *Compositor, input string) []string {
	var steps []string
	for _, r := range input {
		c.AppendCharacter(r)
		got := c.Candidates(0, 0)
		if len(got) == 0 {
			steps = append(steps, "")
			continue
		}
		steps = append(steps, got[0])
	}
	return steps
}

func TestCompose(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"syllable with final", "ㅎㅏㄴ", []string{"ㅎ", "하", "한"}},
		{"final moves to next syllable", "ㅎㅏㄴㅏ", []string{"ㅎ", "하", "한", "하나"}},
		{"compound final splits", "ㄷㅏㄹㄱㅏ", []string{"ㄷ", "다", "달", "닭", "달가"}},
		{"double initial", "ㄱㄱㅏ", []string{"ㄱ", "ㄲ", "까"}},
		{"consonants that do not combine", "ㄱㄴ", []string{"ㄱ", "ㄱㄴ"}},
		{"compound vowel", "ㄱㅗㅏ", []string{"ㄱ", "고", "과"}},
		{"lone vowels", "ㅏㅏ", []string{"ㅏ", "ㅏㅏ"}},
		{"final that cannot combine", "ㄱㅏㄴㄷ", []string{"ㄱ", "가", "간", "간ㄷ"}},
		{"double consonant never final", "ㄱㅏㄸ", []string{"ㄱ", "가", "가ㄸ"}},
		{"typed compound final", "ㄱㅏㄳㅏ", []string{"ㄱ", "가", "갃", "갃ㅏ"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := feed(New(), tt.input)
			if len(got) != len(tt.want) {
				t.Fatalf("steps = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("step %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestBackspace(t *testing.T) {
	c := New()
	feed(c, "ㄱㅗㅏㄴ")

	want := []string{"과", "고", "ㄱ", ""}
	for i, w := range want {
		c.AppendCharacter(Backspace)
		if got := c.Preedit(); got != w {
			t.Errorf("backspace %d: preedit = %q, want %q", i, got, w)
		}
	}

	c.AppendCharacter(Backspace)
	if got := c.Candidates(0, 0); got != nil {
		t.Errorf("empty compositor candidates = %q", got)
	}
}

func TestCommitReportedOnce(t *testing.T) {
	c := New()
	feed(c, "ㅎㅏㄴㅏ")

	if got := c.Candidates(0, 0); len(got) != 1 || got[0] != "나" {
		t.Errorf("second read = %q, want [나]", got)
	}
}

func TestNonJamoCompletes(t *testing.T) {
	c := New()
	feed(c, "ㅎㅏㄴ")
	c.AppendCharacter('a')

	got := c.Candidates(0, 0)
	if len(got) != 1 || got[0] != "한" {
		t.Errorf("candidates after non-jamo = %q", got)
	}
	if c.Preedit() != "" {
		t.Errorf("preedit should be empty, got %q", c.Preedit())
	}
}

func TestFlush(t *testing.T) {
	c := New()
	feed(c, "ㅎㅏㄴ")
	if got := c.Flush(); got != "한" {
		t.Errorf("Flush = %q", got)
	}
	if c.Preedit() != "" {
		t.Errorf("Flush should clear state")
	}

	feed(c, "ㄱ")
	c.ClearEngineBuffer()
	if c.Candidates(0, 0) != nil {
		t.Errorf("ClearEngineBuffer should drop state")
	}
}

func TestIsJamo(t *testing.T) {
	for _, r := range "ㄱㅎㅏㅣㄳㅀ" {
		if !IsJamo(r) {
			t.Errorf("IsJamo(%q) = false", r)
		}
	}
	for _, r := range "a1 한." {
		if IsJamo(r) {
			t.Errorf("IsJamo(%q) = true", r)
		}
	}
}

func TestCandidateShape(t *testing.T) {
	var jamo []rune
	jamo = append(jamo, leads...)
	jamo = append(jamo, vowels...)
	jamo = append(jamo, tails[1:]...)
	jamo = append(jamo, Backspace)

	rapid.Check(t, func(t *rapid.T) {
		input := rapid.SliceOf(rapid.SampledFrom(jamo)).Draw(t, "input")
		c := New()
		for _, r := range input {
			c.AppendCharacter(r)
			got := c.Candidates(0, 0)
			if len(got) > 1 {
				t.Fatalf("got %d candidates", len(got))
			}
			if len(got) == 1 {
				if n := utf8.RuneCountInString(got[0]); n < 1 || n > 2 {
					t.Fatalf("candidate %q has %d runes", got[0], n)
				}
			}
			if n := utf8.RuneCountInString(c.Preedit()); n > 1 {
				t.Fatalf("preedit %q has %d runes", c.Preedit(), n)
			}
		}
	})
}
