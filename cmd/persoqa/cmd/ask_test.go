package cmd

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eunjujo120/perso-ai-chatbot/internal/qa"
)

func TestAskCmd_ExactMatchJSON(t *testing.T) {
	// Given: a project with a three-entry corpus
	dir := newProject(t)

	// When: asking a stored question with different spacing and punctuation
	out, _, err := runCLI(t, "", "--dir", dir, "ask", "--json", "perso.ai는  어떤 서비스인가요")

	// Then: the stored answer comes back as an exact match
	require.NoError(t, err)
	var resp qa.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, qa.OutcomeExact, resp.Outcome)
	assert.Equal(t, "Perso.ai는 AI 영상 더빙 플랫폼입니다.", resp.Answer)
	require.NotNil(t, resp.MatchedQuestion)
	assert.Equal(t, "Perso.ai는 어떤 서비스인가요?", *resp.MatchedQuestion)
	require.NotNil(t, resp.Score)
	assert.Equal(t, 1.0, *resp.Score)
}

func TestAskCmd_UnrelatedQuestionFallsBack(t *testing.T) {
	dir := newProject(t)

	out, _, err := runCLI(t, "", "--dir", dir, "ask", "--json", "오늘 날씨 어때")

	require.NoError(t, err)
	var resp qa.Response
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.False(t, resp.Outcome.Answered())
	assert.Nil(t, resp.MatchedQuestion)
	assert.Equal(t, qa.DefaultFallbackMessage, resp.Answer)
}

func TestAskCmd_TextOutput(t *testing.T) {
	dir := newProject(t)

	out, _, err := runCLI(t, "", "--dir", dir, "ask", "요금제는 어떻게 되나요?")

	require.NoError(t, err)
	assert.Contains(t, out, "무료 플랜과 유료 플랜이 있습니다.")
	assert.Contains(t, out, "exact")
}

func TestAskCmd_BlankQuestion(t *testing.T) {
	dir := newProject(t)

	_, _, err := runCLI(t, "", "--dir", dir, "ask", "   ")

	assert.Error(t, err)
}

func TestAskCmd_InvalidConfig(t *testing.T) {
	// Given: the default gemini provider without an API key
	dir := newProject(t)
	t.Setenv("PERSOQA_EMBEDDINGS_PROVIDER", "gemini")

	// When: asking
	_, _, err := runCLI(t, "", "--dir", dir, "ask", "요금제")

	// Then: startup fails with a configuration error
	assert.Error(t, err)
}
