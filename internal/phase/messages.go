package phase

import "cvcoach/internal/session"

const introMessage = `Olá! Sou seu consultor de carreira.

Vou analisar seu currículo, comparar com o cargo que você quer e reescrever cada experiência com você, uma etapa por vez. No final você recebe o currículo otimizado e o material para o LinkedIn.

Digite qualquer coisa para começar.`

const uploadMessage = `Envie seu currículo em PDF ou TXT, ou cole o texto completo aqui no chat.`

const briefingMessage = `Agora preciso entender seu objetivo. Preencha:

- **Cargo alvo** (ex.: Gerente Comercial)
- **Objetivo** (ex.: Recolocação no Mercado, Promoção, Transição de Carreira)
- **Pretensão salarial mensal** (ex.: 12.000)
- **Localização** e se aceita trabalho remoto`

const bridgeMessage = `Pronto! Já conheço seu currículo e seu alvo: **%s**.

Encontrei %d pontos de atenção. Na próxima etapa vamos passar por cada um deles e depois reescrever suas experiências juntos.

Digite *continuar* quando estiver pronto.`

const helpMessage = `**Como funciona**

1. Você envia o currículo e eu faço uma primeira leitura.
2. Você informa o cargo alvo e a pretensão salarial.
3. Eu mostro a nota ATS para esse cargo e a faixa salarial de mercado.
4. Conversamos sobre seus gaps e reescrevemos cada experiência.
5. Você recebe o currículo final, a nova nota ATS e o material do LinkedIn.

Em qualquer etapa de aprovação, responda *ok* para seguir ou descreva o que quer mudar.`

const privacyMessage = `**Privacidade**

Seu currículo fica apenas na memória desta sessão e é descartado após um período de inatividade. Trechos do texto são enviados ao modelo de linguagem para gerar as análises. Não guardamos o conteúdo das suas respostas em banco de dados.`

var hints = map[session.Phase]string{
	session.PhaseUpload:          "Cole o texto completo do currículo ou envie o arquivo.",
	session.PhaseDiagnosis:       "Digite *continuar* para definirmos seu objetivo.",
	session.PhaseBriefing:        "Preencha o briefing com o cargo alvo e a pretensão salarial.",
	session.PhaseReality:         "Digite *continuar* para eu preparar a otimização.",
	session.PhaseAnalysisLoading: "Estou preparando a análise, aguarde um instante.",
	session.PhaseBridge:          "Digite *continuar* para começarmos.",
	session.PhaseValidationScore: "Digite *continuar* para ver seus arquivos finais.",
	session.PhaseExports:         "Seus arquivos estão prontos. Você pode reiniciar a sessão para outro cargo.",
}

func hintFor(p session.Phase) string {
	if h, ok := hints[p]; ok {
		return h
	}
	return "Não entendi. Digite *ajuda* para ver como funciona."
}
