// Package cvcache keeps a compact summary of the candidate CV on the session
// so prompts carry the summary instead of the whole document.
package cvcache

import (
	"context"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/utils"
)

const (
	// SummaryInputLimit is how many characters of the CV the summary call sees
	SummaryInputLimit = 10000
	// FallbackLimit is how many characters are used when no summary exists
	FallbackLimit = 3000
	// TruncationMarker is appended to a cut fallback
	TruncationMarker = "\n\n[... CV truncado ...]"
)

// DefaultSummaryPrompt asks for the structured summary
const DefaultSummaryPrompt = `Resuma o currículo abaixo em no máximo 400 palavras, em português, com esta estrutura:

**Perfil:** 2-3 frases sobre senioridade, área e foco.
**Experiências principais:** as 3 mais relevantes (cargo, empresa, período, 1-2 resultados com números quando houver).
**Competências-chave:** 5 a 8 itens.
**Formação:** cursos e certificações relevantes.

Use apenas informações presentes no texto. Não invente dados.`

// Cache generates and serves the CV summary of a session
type Cache struct {
	prompts *config.PromptStore
	logger  *errors.Logger
}

// New creates a Cache. prompts may be nil.
func New(prompts *config.PromptStore, logger *errors.Logger) *Cache {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Cache{prompts: prompts, logger: logger}
}

// EnsureSummary returns the cached summary or generates it. On failure the
// session is left untouched and the error is returned; ContextForPrompt
// still serves the truncated CV.
func (c *Cache) EnsureSummary(ctx context.Context, sess *session.Session, caller *telemetry.Caller) (string, error) {
	if sess.CVSummary != "" {
		return sess.CVSummary, nil
	}
	if !sess.HasCV() {
		return "", errors.NewPreconditionError(errors.ErrCodeMissingCV, "Nenhum currículo carregado", nil)
	}

	cvText, _ := utils.TruncateRunes(sess.CVText, SummaryInputLimit)
	messages := []ai.Message{
		ai.System(c.prompts.Get(config.PromptSummary, DefaultSummaryPrompt)),
		ai.User("CURRÍCULO:\n" + cvText),
	}

	summary, err := caller.Call(ctx, telemetry.TagOther, messages, ai.Deterministic())
	if err != nil {
		c.logger.LogError(err, "CV summary generation failed", "session_id", sess.ID)
		return "", err
	}
	summary = strings.TrimSpace(summary)
	if summary == "" {
		return "", errors.NewAIError(errors.ErrCodeAIEmptyResponse, "Resumo do CV vazio", nil)
	}

	sess.CVSummary = summary
	c.logger.Debug("CV summary cached", "session_id", sess.ID, "words", utils.WordCount(summary))
	return summary, nil
}

// ContextForPrompt returns the cached summary, the truncated CV when there is
// no summary yet, or "" without a CV
func ContextForPrompt(sess *session.Session) string {
	if sess.CVSummary != "" {
		return "RESUMO DO CURRÍCULO:\n" + sess.CVSummary
	}
	if !sess.HasCV() {
		return ""
	}
	text, cut := utils.TruncateRunes(strings.TrimSpace(sess.CVText), FallbackLimit)
	if cut {
		text += TruncationMarker
	}
	return "CURRÍCULO:\n" + text
}

// Invalidate drops the cached summary
func Invalidate(sess *session.Session) {
	sess.CVSummary = ""
}
