package ai

import "cvcoach/internal/config"

// DefaultSystemPrompt is the headhunter persona shared by every conversational call
const DefaultSystemPrompt = `Você é um headhunter sênior e especialista em currículos para o mercado brasileiro.
Seus princípios:

- NUNCA invente, exagere ou atribua experiências que não estejam no material do candidato
- Toda informação precisa ser rastreável ao CV ou às respostas do candidato
- Priorize dados quantificáveis (números, percentuais, volumes, prazos)
- Escreva em português do Brasil, de forma direta e profissional
- Use Markdown simples, sem tabelas e sem blocos de código`

// PersonaMessage returns the system message carrying the persona, honouring
// an override file named system.md in the prompt directory
func PersonaMessage(store *config.PromptStore) Message {
	return System(store.Get(config.PromptSystem, DefaultSystemPrompt))
}
