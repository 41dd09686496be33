// Package validation runs question suites against the answer engine and
// reports which ones resolved as expected.
//
// A suite has three tiers:
//
//   - exact: stored questions, possibly re-spaced or re-punctuated, that
//     must resolve through the exact index
//   - paraphrase: reworded questions that must reach the given stored
//     question through lexical or hybrid matching
//   - negative: out-of-domain questions that must get the fallback answer
//
// Suites are data-driven YAML so they can change without a rebuild.
package validation

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
	"github.com/eunjujo120/perso-ai-chatbot/internal/tokenize"
)

// Tier names a suite section.
type Tier string

const (
	TierExact      Tier = "exact"
	TierParaphrase Tier = "paraphrase"
	TierNegative   Tier = "negative"
)

// Case is one question with its expected resolution.
type Case struct {
	ID       string `yaml:"id" json:"id"`
	Question string `yaml:"question" json:"question"`
	// Expected is the stored question the answer must come from. Empty for
	// negative cases.
	Expected string `yaml:"expected,omitempty" json:"expected,omitempty"`
	// Outcome optionally pins the decision branch, e.g. "hybrid".
	Outcome string `yaml:"outcome,omitempty" json:"outcome,omitempty"`
	Notes   string `yaml:"notes,omitempty" json:"notes,omitempty"`
	Tier    Tier   `yaml:"-" json:"tier"`
}

// Suite holds every case, grouped by tier.
type Suite struct {
	Exact      []Case `yaml:"exact"`
	Paraphrase []Case `yaml:"paraphrase"`
	Negative   []Case `yaml:"negative"`
}

// Cases returns all cases with their tier set, in file order.
func (s *Suite) Cases() []Case {
	var out []Case
	for _, group := range []struct {
		tier  Tier
		cases []Case
	}{
		{TierExact, s.Exact},
		{TierParaphrase, s.Paraphrase},
		{TierNegative, s.Negative},
	} {
		for i, c := range group.cases {
			c.Tier = group.tier
			if c.ID == "" {
				c.ID = fmt.Sprintf("%s-%d", group.tier, i+1)
			}
			out = append(out, c)
		}
	}
	return out
}

// ParseSuite decodes a YAML suite.
func ParseSuite(data []byte) (*Suite, error) {
	var s Suite
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse suite YAML: %w", err)
	}
	for _, c := range s.Exact {
		if c.Expected == "" {
			return nil, fmt.Errorf("exact case %q has no expected question", c.Question)
		}
	}
	for _, c := range s.Paraphrase {
		if c.Expected == "" {
			return nil, fmt.Errorf("paraphrase case %q has no expected question", c.Question)
		}
	}
	return &s, nil
}

// LoadSuite reads a YAML suite from path.
func LoadSuite(path string) (*Suite, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read suite %s: %w", path, err)
	}
	return ParseSuite(data)
}

// FromCorpus builds an exact-tier suite asking every stored question as is.
func FromCorpus(entries []corpus.Entry) *Suite {
	s := &Suite{Exact: make([]Case, 0, len(entries))}
	for i, e := range entries {
		s.Exact = append(s.Exact, Case{
			ID:       fmt.Sprintf("corpus-%d", i+1),
			Question: e.Question,
			Expected: e.Question,
		})
	}
	return s
}

// Result is the outcome of one case.
type Result struct {
	Case     Case          `json:"case"`
	Passed   bool          `json:"passed"`
	Outcome  qa.Outcome    `json:"outcome,omitempty"`
	Matched  string        `json:"matched,omitempty"`
	Score    *float64      `json:"score,omitempty"`
	Duration time.Duration `json:"duration"`
	Error    string        `json:"error,omitempty"`
}

// TierSummary counts passes for one tier.
type TierSummary struct {
	Passed int `json:"passed"`
	Total  int `json:"total"`
}

// Report is the result of a full run.
type Report struct {
	Timestamp time.Time             `json:"timestamp"`
	Results   []Result              `json:"results"`
	Tiers     map[Tier]*TierSummary `json:"tiers"`
	Passed    int                   `json:"passed"`
	Total     int                   `json:"total"`
}

// Failed returns the failing results.
func (r *Report) Failed() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// PassRate is the share of passing cases, 0 for an empty run.
func (r *Report) PassRate() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Passed) / float64(r.Total)
}

// Answerer resolves a question.
type Answerer interface {
	Answer(ctx context.Context, question string) (qa.Response, error)
}

// Validator runs suites against an Answerer.
type Validator struct {
	answerer Answerer
}

// NewValidator creates a Validator.
func NewValidator(a Answerer) *Validator {
	return &Validator{answerer: a}
}

// RunCase asks one question and checks the response. Matching is on the
// strict key, so a case passes when a colliding entry that shares the key
// supplied the answer.
func (v *Validator) RunCase(ctx context.Context, c Case) Result {
	start := time.Now()
	res := Result{Case: c}

	resp, err := v.answerer.Answer(ctx, c.Question)
	res.Duration = time.Since(start)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	res.Outcome = resp.Outcome
	res.Score = resp.Score
	if resp.MatchedQuestion != nil {
		res.Matched = *resp.MatchedQuestion
	}

	switch {
	case c.Tier == TierNegative:
		res.Passed = !resp.Outcome.Answered()
	case !resp.Outcome.Answered():
		res.Passed = false
	default:
		res.Passed = tokenize.StrictKey(res.Matched) == tokenize.StrictKey(c.Expected)
	}
	if res.Passed && c.Outcome != "" {
		res.Passed = string(resp.Outcome) == c.Outcome
	}
	return res
}

// RunAll runs every case in s. It stops early only when ctx ends.
func (v *Validator) RunAll(ctx context.Context, s *Suite) *Report {
	rep := &Report{
		Timestamp: time.Now(),
		Tiers:     make(map[Tier]*TierSummary),
	}
	for _, c := range s.Cases() {
		if ctx.Err() != nil {
			break
		}
		res := v.RunCase(ctx, c)
		rep.Results = append(rep.Results, res)

		sum, ok := rep.Tiers[c.Tier]
		if !ok {
			sum = &TierSummary{}
			rep.Tiers[c.Tier] = sum
		}
		sum.Total++
		rep.Total++
		if res.Passed {
			sum.Passed++
			rep.Passed++
		}
	}
	return rep
}
