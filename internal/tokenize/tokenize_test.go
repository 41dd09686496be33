package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStrictKey(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"trailing punctuation", "What is Perso.ai??", "whatispersoai"},
		{"case and spacing", "  WHAT   is perso.AI ", "whatispersoai"},
		{"full width question mark", "요금제는 어떻게 되나요？", "요금제는어떻게되나요"},
		{"comma and bang", "Hello, world!", "helloworld"},
		{"tabs and newlines", "a\tb\nc", "abc"},
		{"empty", "", ""},
		{"only punctuation", " ?!., ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StrictKey(tt.input))
		})
	}
}

func TestStrictKey_NFCComposesHangul(t *testing.T) {
	// Given: the same syllable in composed and decomposed (NFD) form
	composed := "가입"
	decomposed := "\u1100\u1161\u110b\u1175\u11b8"

	// Then: both produce the same key
	assert.Equal(t, StrictKey(composed), StrictKey(decomposed))
}

func TestBaseNormalize(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"Perso.ai는 어떤 서비스인가요?", "는 어떤 서비스인가요"},
		{"  What is   PERSO.AI?? ", "what is"},
		{"a,b.c!d?e？f", "a b c d e f"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, BaseNormalize(tt.input))
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"Perso.ai는 어떤 서비스인가요?", []string{"서비스"}},
		{"Perso.ai의 주요 기능은 무엇인가요?", []string{"의", "주요", "기능"}},
		{"Perso.ai로 어떤 영상을 편집할 수 있나요?", []string{"영상", "편집", "있", "기능"}},
		{"요금제는 어떻게 되나요?", []string{"요금제", "되"}},
		{"회원가입은 어떻게 하나요?", []string{"회원가입", "하"}},
		{"고객센터에 연락하려면?", []string{"문의", "문의"}},
		{"이 서비스를 만든 회사는 어디야?", []string{"서비스", "개발", "회사", "어디"}},
		{"Perso.ai 가격 알려줘", []string{"요금제"}},
		{"주요 타깃 고객층은 누구인가요?", []string{"주요", "고객", "고객", "누구"}},
		{"사용자 수는 얼마나 되나요?", []string{"사용자", "얼마나", "되"}},
		{"What's the weather today?", []string{"what's", "the", "weather", "today"}},
		{"Tell me about Perso.ai", []string{"tell", "me", "about"}},
	}

	tok := Default()
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Tokenize(tt.input))
		})
	}
}

func TestTokenize_EmptyInput(t *testing.T) {
	assert.Empty(t, Default().Tokenize(""))
	assert.Empty(t, Default().Tokenize("   "))
	assert.Empty(t, Default().Tokenize("Perso.ai?"))
}

func TestTokenize_StripsLongestEnding(t *testing.T) {
	tok := Default()

	// 이야 wins over 야, leaving nothing.
	assert.Empty(t, tok.Tokenize("이야"))
	// 에서 wins over 에.
	assert.Equal(t, []string{"서울"}, tok.Tokenize("서울에서"))
	// 으로 wins over 로.
	assert.Equal(t, []string{"한국어"}, tok.Tokenize("한국어으로"))
}

func TestCanonical_RulePriority(t *testing.T) {
	tok := Default()

	tests := []struct {
		token string
		want  string
	}{
		{"고객센터", "문의"}, // before the customer rule
		{"연락처", "문의"},
		{"고객층", "고객"},
		{"이용자", "사용자"},
		{"개발사", "회사"}, // company rule precedes development
		{"개발자", "개발"},
		{"구독료", "요금제"},
		{"비디오", "영상"},
		{"쓸만한", "사용"},
		{"사용법", "사용"},
		{"다국어", "다국어"},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			assert.Equal(t, tt.want, tok.Canonical(tt.token))
		})
	}
}

func TestDefaultRules_EachRuleFires(t *testing.T) {
	tok := Default()
	for _, r := range DefaultRules {
		for _, p := range r.Patterns {
			got := tok.Canonical(p)
			// An earlier rule may claim the pattern, but it never passes through.
			assert.NotEqual(t, "", got, p)
			if p == r.Canonical {
				assert.Equal(t, r.Canonical, got)
			}
		}
	}
}

func TestNew_Options(t *testing.T) {
	tok := New(
		WithBrand("Acme"),
		WithExtraStopwords("What", " is "),
		WithExtraRules(Rule{Patterns: []string{"price", "cost"}, Canonical: "plan"}, Rule{}),
	)

	assert.Equal(t, []string{"the", "plan", "and", "plan"}, tok.Tokenize("What is the ACME price and cost?"))
	assert.Len(t, tok.Rules(), len(DefaultRules)+1)

	// The default tokenizer is unaffected.
	assert.Equal(t, []string{"what", "is", "the", "acme", "price"}, Default().Tokenize("What is the ACME price"))
}

func TestTokenize_CapabilityPhrase(t *testing.T) {
	got := Default().Tokenize("무엇을 할 수 있어?")

	assert.Equal(t, "기능", got[len(got)-1])
}
