package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maliitkeyboard/internal/keyevent"
)

type fakeComposition struct {
	preedit     string
	cursor      int
	surrounding string
	commits     []string
	keys        []keyevent.KeyEvent
}

func newComposition(preedit string) *fakeComposition {
	return &fakeComposition{preedit: preedit, cursor: -1}
}

func (f *fakeComposition) Preedit() string                 { return f.preedit }
func (f *fakeComposition) Cursor() int                     { return f.cursor }
func (f *fakeComposition) SurroundingBeforeCursor() string { return f.surrounding }
func (f *fakeComposition) SendKey(ev keyevent.KeyEvent)    { f.keys = append(f.keys, ev) }

func (f *fakeComposition) SetPreedit(text string, cursor int) {
	f.preedit = text
	f.cursor = cursor
}

func (f *fakeComposition) Commit(text string) {
	f.commits = append(f.commits, text)
	f.preedit = ""
	f.cursor = -1
}

func TestCapabilities(t *testing.T) {
	type caps struct {
		autoCaps, correction, cursorMoves, injection, composing, clickCommits, addSpace bool
	}
	tests := []struct {
		name string
		h    Handler
		kind Kind
		want caps
	}{
		{"default", NewDefault(), KindDefault, caps{true, true, true, true, false, true, true}},
		{"english", NewEnglish(), KindEnglish, caps{true, true, true, true, false, true, true}},
		{"vietnamese", NewTonal("vi"), KindTonal, caps{true, true, true, true, false, true, true}},
		{"thai", NewTonal("th"), KindTonal, caps{false, true, true, true, false, true, false}},
		{"korean", NewKorean(nil), KindKorean, caps{false, false, false, false, true, false, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := caps{
				autoCaps:     tt.h.HasAutoCaps(),
				correction:   tt.h.HasErrorCorrection(),
				cursorMoves:  tt.h.CursorCanMoveInsidePreedit(),
				injection:    tt.h.AcceptPreeditInjection(),
				composing:    tt.h.IsComposingInputMethod(),
				clickCommits: tt.h.CommitWhenCandidateClicked(),
				addSpace:     tt.h.AddSpaceWhenCandidateCommitted(),
			}
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.kind, tt.h.Kind())
			assert.True(t, tt.h.CommitPreeditOnReset())
		})
	}
}

func TestForLanguage(t *testing.T) {
	assert.Equal(t, KindEnglish, ForLanguage("en").Kind())
	assert.Equal(t, KindKorean, ForLanguage("ko").Kind())
	assert.Equal(t, KindTonal, ForLanguage("vi").Kind())
	assert.Equal(t, "th", ForLanguage("th").(*Tonal).Language())
	assert.Nil(t, ForLanguage("fi"))
}

func TestAutoCaps(t *testing.T) {
	tests := []struct {
		text    string
		def     bool
		english bool
	}{
		{"", true, true},
		{"Hello. ", true, true},
		{"Really?  ", true, true},
		{"¡Hola! ", true, true},
		{"Hello, ", false, false},
		{"Hello.", false, false},
		{`He said "hi." `, false, true},
		{"It was ‘fine.’ ", false, true},
		{"Wow!” ", false, true},
		{"Hello world ", false, false},
	}

	def, en := NewDefault(), NewEnglish()
	for _, tt := range tests {
		assert.Equal(t, tt.def, def.AutoCapsTrigger(tt.text), "default %q", tt.text)
		assert.Equal(t, tt.english, en.AutoCapsTrigger(tt.text), "english %q", tt.text)
	}
}

func TestDefaultNeverIntercepts(t *testing.T) {
	h := NewDefault()
	c := newComposition("abc")
	for _, ev := range []keyevent.KeyEvent{
		keyevent.NewText("x"),
		keyevent.New("", keyevent.KeyBackspace),
		keyevent.New("", keyevent.KeySpace),
	} {
		assert.False(t, h.HandleKeyPress(ev, c))
		assert.False(t, h.HandleKeyRelease(ev, c))
		assert.False(t, h.HandleKeyClick(ev, c))
	}
	assert.Equal(t, "abc", c.preedit)
}

func TestActivation(t *testing.T) {
	for _, h := range []Handler{NewDefault(), NewEnglish(), NewTonal("vi"), NewKorean(nil)} {
		assert.False(t, h.Active())
		h.Activate()
		assert.True(t, h.Active())
		h.Deactivate()
		assert.False(t, h.Active())
	}
}

func TestPlaceVietnameseTone(t *testing.T) {
	tests := []struct {
		name   string
		text   string
		cursor int
		tone   rune
		want   string
		ok     bool
	}{
		{"final consonant moves tone", "toan", 4, ToneAcute, "toán", true},
		{"open syllable keeps first", "hoa", -1, ToneGrave, "hòa", true},
		{"open oe", "khoe", -1, ToneAcute, "khóe", true},
		{"single vowel", "ma", -1, ToneDotBelow, "mạ", true},
		{"marked vowel wins", "ngươi", -1, ToneGrave, "người", true},
		{"circumflex", "tiên", -1, ToneTilde, "tiễn", true},
		{"qu cluster", "quy", -1, ToneAcute, "quý", true},
		{"gi cluster", "gia", -1, ToneAcute, "giá", true},
		{"three vowels", "ngoai", -1, ToneGrave, "ngoài", true},
		{"replaces existing tone", "toán", -1, ToneGrave, "toàn", true},
		{"replaces tone after cursor", "to\u00e1n", 2, ToneGrave, "t\u00f2an", true},
		{"keeps case", "TOAN", -1, ToneAcute, "TOÁN", true},
		{"syllable before cursor", "toan tien", 4, ToneAcute, "toán tien", true},
		{"last syllable", "xin chao", -1, ToneGrave, "xin chào", true},
		{"retries whole syllable", "nha", 2, ToneHookAbove, "nhả", true},
		{"no vowel", "nhng", -1, ToneAcute, "nhng", false},
		{"not a tone", "toan", -1, 'x', "toan", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, cursor, ok := PlaceVietnameseTone(tt.text, tt.cursor, tt.tone)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.cursor, cursor)
		})
	}
}

func TestRepositionVietnameseTone(t *testing.T) {
	tests := map[string]string{
		"hòan":     "hoàn",
		"gía":      "giá",
		"tóan":     "toán",
		"toán":     "toán",
		"hoan":     "hoan",
		"xin hòan": "xin hoàn",
	}
	for in, want := range tests {
		assert.Equal(t, want, RepositionVietnameseTone(in), in)
	}
}

func TestThaiMarkLegal(t *testing.T) {
	const (
		koKai     = '\u0e01'
		saraI     = '\u0e34'
		maiEk     = '\u0e48'
		thanthak  = '\u0e4c'
		nikhahit  = '\u0e4d'
		maiTaikhu = '\u0e47'
	)
	tests := []struct {
		prev, mark rune
		want       bool
	}{
		{koKai, saraI, true},
		{'a', saraI, false},
		{0, saraI, false},
		{koKai, maiEk, true},
		{saraI, maiEk, true},
		{maiEk, maiEk, false},
		{maiTaikhu, maiEk, false},
		{saraI, thanthak, true},
		{maiEk, thanthak, false},
		{maiEk, nikhahit, true},
		{' ', nikhahit, false},
		{' ', 'x', true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ThaiMarkLegal(tt.prev, tt.mark), "%U after %U", tt.mark, tt.prev)
	}

	s, ok := ComposeThaiMark('a', maiEk)
	assert.False(t, ok)
	assert.Equal(t, " \u0e48", s)

	s, ok = ComposeThaiMark(koKai, maiEk)
	assert.True(t, ok)
	assert.Equal(t, "\u0e48", s)
}

func TestTonalVietnameseKeys(t *testing.T) {
	h := NewTonal("vi")

	c := newComposition("toan")
	require.True(t, h.HandleKeyClick(keyevent.NewText("\u0301"), c))
	assert.Equal(t, "toán", c.preedit)

	c = newComposition("hòa")
	require.True(t, h.HandleKeyClick(keyevent.NewText("n"), c))
	assert.Equal(t, "hoàn", c.preedit)
	assert.Equal(t, -1, c.cursor)

	c = newComposition("toa")
	assert.False(t, h.HandleKeyClick(keyevent.NewText("n"), c), "no tone to move")
	assert.False(t, h.HandleKeyClick(keyevent.NewText("\u0301"), newComposition("")))
	assert.False(t, h.HandleKeyClick(keyevent.New("", keyevent.KeySpace), c))
}

func TestTonalThaiKeys(t *testing.T) {
	h := NewTonal("th")

	c := newComposition("ก")
	assert.False(t, h.HandleKeyClick(keyevent.NewText("\u0e48"), c), "legal marks use the generic path")

	c = newComposition("")
	c.surrounding = "abc"
	require.True(t, h.HandleKeyClick(keyevent.NewText("\u0e48"), c))
	assert.Equal(t, " \u0e48", c.preedit)
	assert.Equal(t, -1, c.cursor)

	c = &fakeComposition{preedit: "aข", cursor: 1}
	require.True(t, h.HandleKeyClick(keyevent.NewText("\u0e34"), c))
	assert.Equal(t, "a \u0e34ข", c.preedit)
	assert.Equal(t, 3, c.cursor)

	assert.False(t, h.HandleKeyClick(keyevent.NewText("ข"), c))
}

func TestKoreanComposition(t *testing.T) {
	h := NewKorean(nil)
	c := newComposition("")

	var steps []string
	for _, r := range "ㅎㅏㄴ" {
		require.True(t, h.HandleKeyClick(keyevent.NewText(string(r)), c))
		steps = append(steps, c.preedit)
	}
	assert.Equal(t, []string{"ㅎ", "하", "한"}, steps)
	assert.Empty(t, c.commits)

	assert.False(t, h.HandleKeyClick(keyevent.NewText("a"), c))
	assert.Equal(t, []string{"한"}, c.commits)
	assert.Equal(t, "", c.preedit)
}

func TestKoreanCommitsCompletedSyllable(t *testing.T) {
	h := NewKorean(nil)
	c := newComposition("")
	for _, r := range "ㅎㅏㄴㅏ" {
		h.HandleKeyClick(keyevent.NewText(string(r)), c)
	}
	assert.Equal(t, []string{"하"}, c.commits)
	assert.Equal(t, "나", c.preedit)
}

func TestKoreanBackspace(t *testing.T) {
	h := NewKorean(nil)
	c := newComposition("")
	backspace := keyevent.New("", keyevent.KeyBackspace)

	assert.False(t, h.HandleKeyClick(backspace, c), "nothing to delete")

	for _, r := range "ㅎㅏㄴ" {
		h.HandleKeyClick(keyevent.NewText(string(r)), c)
	}
	require.True(t, h.HandleKeyClick(backspace, c))
	assert.Equal(t, "하", c.preedit)
	require.True(t, h.HandleKeyClick(backspace, c))
	require.True(t, h.HandleKeyClick(backspace, c))
	assert.Equal(t, "", c.preedit)
	assert.False(t, h.HandleKeyClick(backspace, c))
}

func TestKoreanFlushesOnControlKeys(t *testing.T) {
	for _, key := range []keyevent.SpecialKey{
		keyevent.KeyLayoutMenu, keyevent.KeySym, keyevent.KeyOnOffToggle,
		keyevent.KeyReturn, keyevent.KeyCommit, keyevent.KeySpace, keyevent.KeySwitch,
	} {
		h := NewKorean(nil)
		c := newComposition("")
		h.HandleKeyClick(keyevent.NewText("ㄱ"), c)
		h.HandleKeyClick(keyevent.NewText("ㅏ"), c)

		assert.False(t, h.HandleKeyClick(keyevent.New("", key), c), key.String())
		assert.Equal(t, []string{"가"}, c.commits, key.String())

		// The next jamo starts a fresh syllable.
		h.HandleKeyClick(keyevent.NewText("ㄴ"), c)
		assert.Equal(t, "ㄴ", c.preedit, key.String())
	}
}

func TestKoreanResetClearsCompositor(t *testing.T) {
	h := NewKorean(nil)
	c := newComposition("")
	h.HandleKeyClick(keyevent.NewText("ㄱ"), c)
	h.HandleKeyClick(keyevent.NewText("ㅏ"), c)

	h.Reset()
	c.preedit = ""
	h.HandleKeyClick(keyevent.NewText("ㄴ"), c)
	assert.Equal(t, "ㄴ", c.preedit)
	assert.Empty(t, c.commits)
}
