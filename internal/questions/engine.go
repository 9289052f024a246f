// Package questions asks the model for the next contextual question and
// judges the candidate's answers.
package questions

import (
	"context"
	"fmt"
	"strings"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	"cvcoach/internal/cvcache"
	"cvcoach/internal/errors"
	"cvcoach/internal/resume"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
)

// QuestionTemperature gives some variation between sessions
const QuestionTemperature float32 = 0.4

// conversationTail is how many recent messages precede a question prompt
const conversationTail = 6

const questionHeader = "Você é um headhunter sênior conduzindo uma entrevista de coleta de dados para reescrever o currículo do candidato."

// DefaultQuestionRules are appended to every question prompt
const DefaultQuestionRules = `REGRAS OBRIGATÓRIAS:
- NÃO repita nenhum tema que já aparece no histórico de perguntas e respostas acima
- Faça UMA única pergunta, específica e concisa (no máximo 2 frases)
- Priorize dados quantificáveis: números, percentuais, valores em R$, volumes, prazos, tamanho de equipe
- Não use listas, não explique o motivo da pergunta e não cumprimente
- Responda somente com a pergunta`

const antiLoopNote = "ATENÇÃO: a última resposta foi vaga ou evasiva. Mude de ângulo: peça um exemplo concreto ou ofereça faixas de valores para o candidato escolher, sem insistir no mesmo ponto."

// Request describes the question to generate
type Request struct {
	Stage           string
	SpecificContext string
	TargetRole      string
	MappedGaps      []string
	Objective       string
	// Tag overrides the telemetry bucket; defaults to focused_collection
	Tag         telemetry.Tag
	LastEvasive bool
}

// Engine builds question prompts
type Engine struct {
	prompts *config.PromptStore
	logger  *errors.Logger
}

// NewEngine creates an Engine. prompts may be nil.
func NewEngine(prompts *config.PromptStore, logger *errors.Logger) *Engine {
	if logger == nil {
		logger = errors.Discard()
	}
	return &Engine{prompts: prompts, logger: logger}
}

// BuildPrompt assembles the eight prompt parts in order
func (e *Engine) BuildPrompt(sess *session.Session, req Request) string {
	var b strings.Builder
	b.WriteString(questionHeader + "\n\n")
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", strings.TrimSpace(req.TargetRole))

	if cv := cvcache.ContextForPrompt(sess); cv != "" {
		b.WriteString(cv + "\n\n")
	}

	if len(req.MappedGaps) > 0 {
		b.WriteString("GAPS MAPEADOS:\n")
		for _, g := range req.MappedGaps {
			fmt.Fprintf(&b, "- %s\n", g)
		}
		b.WriteString("\n")
	}

	if history := resume.FormatPairs(sess.RunHistory(req.Stage)); history != "" {
		b.WriteString("HISTÓRICO DESTA ETAPA:\n" + history + "\n\n")
	}

	if c := strings.TrimSpace(req.SpecificContext); c != "" {
		b.WriteString("CONTEXTO ESPECÍFICO:\n" + c + "\n\n")
	}
	if o := strings.TrimSpace(req.Objective); o != "" {
		b.WriteString("OBJETIVO DESTA ETAPA:\n" + o + "\n\n")
	}

	b.WriteString(e.prompts.Get(config.PromptQuestion, DefaultQuestionRules))
	if req.LastEvasive {
		b.WriteString("\n\n" + antiLoopNote)
	}
	return b.String()
}

// NextQuestion asks the model for the next single question
func (e *Engine) NextQuestion(ctx context.Context, caller *telemetry.Caller, sess *session.Session, req Request) (string, error) {
	tag := req.Tag
	if tag == "" {
		tag = telemetry.TagFocusedCollection
	}
	prompt := e.BuildPrompt(sess, req)

	messages := append(recentTurns(sess, conversationTail), ai.User(prompt))
	text, err := caller.Call(ctx, tag, messages, ai.WithTemperature(QuestionTemperature))
	if err != nil {
		return "", err
	}
	question := strings.TrimSpace(text)
	if question == "" {
		return "", errors.NewAIError(errors.ErrCodeAIEmptyResponse, "O modelo não gerou uma pergunta", nil).
			WithContext("stage", req.Stage)
	}
	e.logger.Debug("Generated question", "session_id", sess.ID, "stage", req.Stage)
	return question, nil
}

// recentTurns returns the last n conversation messages, internal notes
// included, so the question follows what was just said
func recentTurns(sess *session.Session, n int) []ai.Message {
	all := sess.ModelMessages()
	if len(all) > n {
		all = all[len(all)-n:]
	}
	return all
}
