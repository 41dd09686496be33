package tokenize

import "strings"

// Rule folds any token containing one of Patterns into Canonical.
type Rule struct {
	Patterns  []string `yaml:"patterns" json:"patterns"`
	Canonical string   `yaml:"canonical" json:"canonical"`
}

// Matches reports whether token contains any of the rule's patterns.
func (r Rule) Matches(token string) bool {
	for _, p := range r.Patterns {
		if p != "" && strings.Contains(token, p) {
			return true
		}
	}
	return false
}

// DefaultRules is the domain synonym table, in priority order.
// English glosses of the canonical tokens are given in comments.
var DefaultRules = []Rule{
	{Patterns: []string{"고객센터"}, Canonical: "문의"},             // inquiry
	{Patterns: []string{"문의", "연락"}, Canonical: "문의"},          // inquiry
	{Patterns: []string{"서비스"}, Canonical: "서비스"},             // service
	{Patterns: []string{"기능"}, Canonical: "기능"},               // feature
	{Patterns: []string{"기술"}, Canonical: "기술"},               // technology
	{Patterns: []string{"강점", "장점", "경쟁력"}, Canonical: "강점"},   // strength
	{Patterns: []string{"타깃", "타겟"}, Canonical: "고객"},          // customer
	{Patterns: []string{"고객층"}, Canonical: "고객"},              // customer
	{Patterns: []string{"고객"}, Canonical: "고객"},               // customer
	{Patterns: []string{"사용자", "이용자", "사람"}, Canonical: "사용자"}, // user
	{Patterns: []string{"회사", "기업", "개발사"}, Canonical: "회사"},   // company
	{Patterns: []string{"만들", "만든", "개발"}, Canonical: "개발"},    // development
	{Patterns: []string{"언어"}, Canonical: "언어"},               // language
	{Patterns: []string{"요금", "가격", "플랜", "구독"}, Canonical: "요금제"}, // plan
	{Patterns: []string{"가입"}, Canonical: "회원가입"},             // signup
	{Patterns: []string{"영상", "비디오"}, Canonical: "영상"},        // video
	{Patterns: []string{"편집"}, Canonical: "편집"},               // editing
	{Patterns: []string{"쓰", "쓸"}, Canonical: "사용"},            // usage
	{Patterns: []string{"사용"}, Canonical: "사용"},               // usage
}

// DefaultEndings are interrogative and sentence-final endings.
var DefaultEndings = []string{
	"인가요", "인가", "입니까", "에요", "예요", "어요", "나요", "가요",
	"습니까", "죠", "야", "이야", "이니", "니",
}

// DefaultParticles are case particles and delimiters.
var DefaultParticles = []string{
	"은", "는", "이", "가", "을", "를", "에", "에서", "으로", "로",
	"도", "만", "까지", "부터",
}

// DefaultStopwords are question words, filler and weak nouns.
var DefaultStopwords = []string{
	"perso.ai", "persoai",
	"어떤", "어떻게", "무엇", "뭐야", "뭐니", "뭐하는",
	"알려줘", "설명해줘", "말해줘", "해줘", "해주세요", "해줘요",
	"좀", "조금", "요",
	"인가요", "인가", "입니까", "예요", "에요",
	"방법", "정도", "필요", "필요한", "필요해",
	"이용하려면", "초보", "수", "있어",
}

// CapabilityPhrase marks a question asking what something can do; its
// presence adds the feature token.
const CapabilityPhrase = "할 수 있"

// CapabilityToken is the canonical feature token.
const CapabilityToken = "기능"
