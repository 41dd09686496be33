package qa

import (
	"math"

	"github.com/eunjujo120/perso-ai-chatbot/internal/corpus"
)

// DefaultFallbackMessage is returned when no corpus answer fits.
const DefaultFallbackMessage = "죄송해요, 제공된 Q&A 데이터에서 해당 질문에 대한 답변을 찾지 못했어요."

// Outcome tags which branch of the pipeline produced a response.
type Outcome string

const (
	OutcomeExact          Outcome = "exact"
	OutcomeLexicalStrong  Outcome = "lexical_strong"
	OutcomeHybrid         Outcome = "hybrid"
	OutcomeNoCandidates   Outcome = "no_candidates"
	OutcomeLowLexical     Outcome = "low_lexical"
	OutcomeBelowThreshold Outcome = "below_threshold"
)

// Answered reports whether the outcome carries a corpus answer.
func (o Outcome) Answered() bool {
	return o == OutcomeExact || o == OutcomeLexicalStrong || o == OutcomeHybrid
}

// Response is the result of Answer. MatchedQuestion is nil unless a corpus
// entry was accepted. Score is nil only when there were no candidates; on
// fallbacks it is diagnostic and not a confidence in Answer.
type Response struct {
	Answer          string   `json:"answer"`
	MatchedQuestion *string  `json:"matched_question"`
	Score           *float64 `json:"score"`
	Outcome         Outcome  `json:"outcome"`
}

// Candidate is a retrieved corpus entry scored for one request.
type Candidate struct {
	Entry        corpus.Entry
	VectorScore  float64
	LexicalScore float64
}

// Combined blends the vector and lexical scores.
func (c Candidate) Combined(vectorWeight float64) float64 {
	return vectorWeight*c.VectorScore + (1-vectorWeight)*c.LexicalScore
}

// Thresholds are the decision knobs.
type Thresholds struct {
	ScoreThreshold float64
	MinLexical     float64
	LexicalStrong  float64
	NeighborMargin float64
	VectorWeight   float64
}

// MaxEffectiveThreshold is the ceiling on the combined-score cutoff. No
// configuration can raise it.
const MaxEffectiveThreshold = 0.6

// EffectiveThreshold returns the configured threshold capped at
// MaxEffectiveThreshold.
func (t Thresholds) EffectiveThreshold() float64 {
	return math.Min(t.ScoreThreshold, MaxEffectiveThreshold)
}

// Decide picks a response from lexically scored candidates. Candidates are
// in retrieval order, which breaks ties.
func Decide(cands []Candidate, t Thresholds, fallback string) Response {
	if len(cands) == 0 {
		return Response{Answer: fallback, Outcome: OutcomeNoCandidates}
	}

	best := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].LexicalScore > cands[best].LexicalScore {
			best = i
		}
	}
	bestLex := cands[best].LexicalScore

	if bestLex < t.MinLexical {
		return fallbackResponse(fallback, bestLex, OutcomeLowLexical)
	}
	if bestLex >= t.LexicalStrong {
		return accept(cands[best].Entry, bestLex, OutcomeLexicalStrong)
	}

	floor := bestLex - t.NeighborMargin
	pick := -1
	pickScore := -1.0
	for i, c := range cands {
		if c.LexicalScore < floor {
			continue
		}
		if s := c.Combined(t.VectorWeight); s > pickScore {
			pick, pickScore = i, s
		}
	}

	if pickScore < t.EffectiveThreshold() {
		return fallbackResponse(fallback, pickScore, OutcomeBelowThreshold)
	}
	return accept(cands[pick].Entry, pickScore, OutcomeHybrid)
}

func accept(e corpus.Entry, score float64, o Outcome) Response {
	q := e.Question
	return Response{Answer: e.Answer, MatchedQuestion: &q, Score: &score, Outcome: o}
}

func fallbackResponse(msg string, score float64, o Outcome) Response {
	return Response{Answer: msg, Score: &score, Outcome: o}
}
