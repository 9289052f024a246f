package optimizer

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"cvcoach/internal/ai"
	"cvcoach/internal/config"
	"cvcoach/internal/errors"
	"cvcoach/internal/resume"
	"cvcoach/internal/session"
	"cvcoach/internal/telemetry"
	"cvcoach/internal/utils"
)

// LinkedInTemperature allows some creativity in profile copy
const LinkedInTemperature float32 = 0.5

const (
	maxSkills         = 10
	minCustomHeadline = 20
	maxHeadlineLength = 220
)

// DefaultLinkedInInstructions is the shared preamble of the LinkedIn prompts
const DefaultLinkedInInstructions = `Você está criando o perfil do LinkedIn do candidato a partir do currículo otimizado.
Use somente fatos do currículo. Escreva em português do Brasil.`

const headlineTask = `TAREFA: proponha 3 headlines diferentes (máximo 220 caracteres cada) no formato exato:
A) ...
B) ...
C) ...
Sem nenhum outro texto.`

const skillsTask = `TAREFA: liste as 10 competências mais relevantes para o cargo alvo que o candidato comprovou, uma por linha, sem numeração e sem explicações.`

const aboutTask = `TAREFA: escreva a seção "Sobre" em primeira pessoa, com 3 parágrafos curtos (máximo 200 palavras):
quem sou e para onde vou; principais resultados com números reais; o que busco. Responda apenas com o texto.`

var (
	headlineOption = regexp.MustCompile(`(?m)^\s*[*_]*\(?([ABCabc])[).:\-][*_]*\s+(.+?)\s*$`)
	choicePattern  = regexp.MustCompile(`^(?:opcao|letra|headline)?\s*\(?([abc])\)?$`)
)

func (e *Engine) linkedInPrompt(s *session.Session, task string) string {
	var b strings.Builder
	b.WriteString(e.prompts.Get(config.PromptLinkedIn, DefaultLinkedInInstructions) + "\n\n")
	fmt.Fprintf(&b, "CARGO ALVO: %s\n\n", s.TargetRole())
	b.WriteString(s.StructuredCV.ContextForPrompt() + "\n\n")
	b.WriteString(task)
	b.WriteString(feedbackBlock(s))
	return b.String()
}

// parseHeadlines reads the A/B/C options of the model output
func parseHeadlines(text string) []string {
	var options []string
	for _, m := range headlineOption.FindAllStringSubmatch(text, -1) {
		h := strings.Trim(strings.TrimSpace(m[2]), "*_\"")
		if h != "" {
			options = append(options, h)
		}
		if len(options) == 3 {
			break
		}
	}
	if len(options) == 0 {
		if line := firstLine(text); line != "" {
			options = append(options, line)
		}
	}
	return options
}

func renderHeadlines(e *Engine, s *session.Session, _ int) (Step, error) {
	return Step{
		Call: e.ask(telemetry.TagLinkedIn, e.linkedInPrompt(s, headlineTask), ai.WithTemperature(LinkedInTemperature)),
		Apply: func(reply string) error {
			options := parseHeadlines(reply)
			s.StructuredCV.UpdateLinkedIn(resume.LinkedIn{HeadlineOptions: options})
			var b strings.Builder
			b.WriteString("**Headlines sugeridas para o LinkedIn**\n\n")
			for i, h := range options {
				fmt.Fprintf(&b, "%c) %s\n", 'A'+i, h)
			}
			b.WriteString("\nEscolha uma opção (A, B ou C) ou escreva sua própria headline.")
			s.Say(b.String())
			return nil
		},
		Next: AwaitHeadlineChoice,
	}, nil
}

func inputHeadlineChoice(_ *Engine, s *session.Session, _ int, input string) (Step, error) {
	options := s.StructuredCV.LinkedIn.HeadlineOptions
	choice := strings.Trim(utils.Fold(input), " .!")

	var headline string
	if m := choicePattern.FindStringSubmatch(choice); m != nil {
		i := int(m[1][0] - 'a')
		if i >= len(options) {
			return Step{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				fmt.Sprintf("Opção inválida: escolha entre as %d headlines sugeridas", len(options)), nil)
		}
		headline = options[i]
	} else {
		n := utf8.RuneCountInString(input)
		if n < minCustomHeadline || n > maxHeadlineLength {
			return Step{}, errors.NewValidationError(errors.ErrCodeInvalidRequest,
				"Responda A, B ou C, ou escreva uma headline entre 20 e 220 caracteres", nil)
		}
		headline = input
	}
	return Step{
		Apply: func(string) error {
			s.StructuredCV.UpdateLinkedIn(resume.LinkedIn{Headline: headline})
			return nil
		},
		Next: StageLinkedInSkills,
	}, nil
}

// parseSkills reads one skill per line, dropping bullets and numbering
func parseSkills(text string) []string {
	var skills []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(line, "-•*0123456789.) "))
		if line == "" || utf8.RuneCountInString(line) > 60 {
			continue
		}
		skills = append(skills, line)
	}
	skills = utils.Dedupe(skills)
	if len(skills) > maxSkills {
		skills = skills[:maxSkills]
	}
	return skills
}

func renderSkills(e *Engine, s *session.Session, _ int) (Step, error) {
	return Step{
		Call: e.ask(telemetry.TagLinkedIn, e.linkedInPrompt(s, skillsTask), ai.WithTemperature(LinkedInTemperature)),
		Apply: func(reply string) error {
			skills := parseSkills(reply)
			s.StructuredCV.UpdateLinkedIn(resume.LinkedIn{Skills: skills})
			s.Say("**Competências para o LinkedIn**\n\n" + bullets(skills) +
				"\nDigite *ok* para aprovar ou descreva o ajuste desejado.")
			return nil
		},
		Next: AwaitSkillsOK,
	}, nil
}

func renderAbout(e *Engine, s *session.Session, _ int) (Step, error) {
	return Step{
		Call: e.ask(telemetry.TagLinkedIn, e.linkedInPrompt(s, aboutTask), ai.WithTemperature(LinkedInTemperature)),
		Apply: func(reply string) error {
			s.StructuredCV.UpdateLinkedIn(resume.LinkedIn{About: reply})
			s.Say("**Seção Sobre**\n\n" + reply + "\n\nDigite *ok* para aprovar ou descreva o ajuste desejado.")
			return nil
		},
		Next: AwaitAboutOK,
	}, nil
}

// renderExport closes the conversation with the assembled documents. It
// needs no model call.
func renderExport(_ *Engine, s *session.Session, _ int) (Step, error) {
	return Step{
		Apply: func(string) error {
			li := s.StructuredCV.LinkedIn
			var b strings.Builder
			b.WriteString("**Seu currículo otimizado está pronto.**\n\n")
			b.WriteString("```\n" + s.StructuredCV.RenderText() + "\n```\n\n")
			if li.Headline != "" {
				b.WriteString("**Headline:** " + li.Headline + "\n\n")
			}
			b.WriteString("Vou calcular a nova nota ATS do seu currículo.")
			s.Say(b.String())
			return nil
		},
		Next: StageDone,
	}, nil
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}
