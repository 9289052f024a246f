// Package market holds the static knowledge base of professional areas used
// to pick keywords, metrics, verbs and tools for a target role.
package market

import (
	"strings"

	"cvcoach/internal/utils"
)

// GeneralistArea is returned when no area matches a role
const GeneralistArea = "Generalista"

// Area describes what recruiters look for in one professional field
type Area struct {
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	Keywords    []string `json:"keywords"`
	Metrics     []string `json:"metrics"`
	StrongVerbs []string `json:"strongVerbs"`
	Tools       []string `json:"tools"`

	// matched against the folded role title, in table order
	patterns []string
}

// Areas returns every specific area in detection order
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// Lookup returns the area with the given slug
func Lookup(slug string) (Area, bool) {
	for _, a := range areas {
		if a.Slug == slug {
			return a, true
		}
	}
	if slug == generalist.Slug {
		return generalist, true
	}
	return Area{}, false
}

// DetectArea maps a role title onto an area, falling back to the generalist set
func DetectArea(roleTitle string) Area {
	role := " " + utils.Fold(strings.TrimSpace(roleTitle)) + " "
	if strings.TrimSpace(role) == "" {
		return generalist
	}
	for _, a := range areas {
		for _, p := range a.patterns {
			if strings.Contains(role, p) {
				return a
			}
		}
	}
	return generalist
}

// Generalist returns the fallback area
func Generalist() Area { return generalist }

// MissingKeywords returns area keywords absent from text, at most limit
func (a Area) MissingKeywords(text string, limit int) []string {
	folded := utils.Fold(text)
	var missing []string
	for _, kw := range a.Keywords {
		if !strings.Contains(folded, utils.Fold(kw)) {
			missing = append(missing, kw)
			if limit > 0 && len(missing) == limit {
				break
			}
		}
	}
	return missing
}

// MatchedKeywords returns area keywords present in text
func (a Area) MatchedKeywords(text string) []string {
	folded := utils.Fold(text)
	var matched []string
	for _, kw := range a.Keywords {
		if strings.Contains(folded, utils.Fold(kw)) {
			matched = append(matched, kw)
		}
	}
	return matched
}

var generalist = Area{
	Name: GeneralistArea,
	Slug: "generalista",
	Keywords: []string{
		"gestão de projetos", "comunicação", "resultados", "indicadores", "melhoria contínua",
		"planejamento", "negociação", "trabalho em equipe", "resolução de problemas", "processos",
	},
	Metrics: []string{
		"redução de custos (%)", "aumento de produtividade (%)", "prazo de entrega", "volume processado",
		"satisfação do cliente", "economia gerada (R$)",
	},
	StrongVerbs: []string{"liderou", "implementou", "otimizou", "reduziu", "aumentou", "estruturou"},
	Tools:       []string{"Excel", "Power BI", "Google Workspace", "Pacote Office", "Trello", "Jira"},
}

var areas = []Area{
	{
		Name:     "Revenue Operations",
		Slug:     "revops",
		patterns: []string{"revenue operations", "revops", "rev ops", "sales operations", "sales ops"},
		Keywords: []string{
			"revenue operations", "forecast", "pipeline", "CRM", "funil de vendas", "go-to-market",
			"playbook", "enablement", "territory planning", "comissionamento", "SLA entre áreas",
			"automação comercial", "dashboards", "processos comerciais",
		},
		Metrics: []string{
			"acurácia de forecast (%)", "velocidade do pipeline", "taxa de conversão por etapa",
			"ciclo de vendas (dias)", "ARR/MRR", "produtividade por vendedor", "churn (%)",
		},
		StrongVerbs: []string{"estruturou", "automatizou", "padronizou", "integrou", "escalou", "orquestrou"},
		Tools:       []string{"Salesforce", "HubSpot", "Clari", "Gong", "Outreach", "Salesloft", "Tableau", "Looker", "Zapier"},
	},
	{
		Name:     "Vendas",
		Slug:     "vendas",
		patterns: []string{"vendas", "vendedor", "comercial", "sales", "account executive", "executivo de contas", " sdr", " bdr", "key account", "inside sales", "hunter", "closer"},
		Keywords: []string{
			"prospecção", "negociação", "pipeline", "CRM", "metas", "fechamento", "carteira de clientes",
			"ticket médio", "B2B", "relacionamento", "funil de vendas", "forecast", "cross-sell", "upsell",
		},
		Metrics: []string{
			"atingimento de meta (%)", "receita gerada (R$)", "taxa de conversão (%)", "ticket médio (R$)",
			"ciclo de vendas (dias)", "número de contas", "crescimento da carteira (%)",
		},
		StrongVerbs: []string{"prospectou", "negociou", "fechou", "superou", "expandiu", "conquistou"},
		Tools:       []string{"Salesforce", "HubSpot", "Pipedrive", "RD Station CRM", "LinkedIn Sales Navigator", "Apollo", "ZoomInfo"},
	},
	{
		Name:     "Customer Success",
		Slug:     "customer_success",
		patterns: []string{"customer success", "sucesso do cliente", "cs manager", "account manager", "gerente de contas", "onboarding"},
		Keywords: []string{
			"customer success", "retenção", "churn", "NPS", "onboarding", "health score", "renovação",
			"expansão de receita", "jornada do cliente", "QBR", "adoção", "relacionamento",
		},
		Metrics: []string{"churn (%)", "NRR (%)", "NPS", "taxa de renovação (%)", "tempo de onboarding", "contas gerenciadas"},
		StrongVerbs: []string{"reteve", "expandiu", "reduziu", "engajou", "estruturou", "acompanhou"},
		Tools:       []string{"Gainsight", "ChurnZero", "HubSpot", "Intercom", "Zendesk", "Salesforce"},
	},
	{
		Name:     "Atendimento ao Cliente",
		Slug:     "atendimento",
		patterns: []string{"atendimento", "suporte", " sac ", "call center", "customer service", "help desk", "service desk"},
		Keywords: []string{
			"atendimento ao cliente", "SLA", "resolução no primeiro contato", "omnichannel", "CSAT",
			"tickets", "escalonamento", "base de conhecimento", "qualidade de atendimento", "TMA",
		},
		Metrics: []string{"CSAT", "TMA (tempo médio de atendimento)", "FCR (%)", "volume de tickets", "SLA cumprido (%)"},
		StrongVerbs: []string{"resolveu", "atendeu", "reduziu", "padronizou", "treinou"},
		Tools:       []string{"Zendesk", "Freshdesk", "Intercom", "Movidesk", "Salesforce Service Cloud", "Blip"},
	},
	{
		Name:     "Marketing",
		Slug:     "marketing",
		patterns: []string{"marketing", "growth", "branding", "brand", "midia", "social media", "conteudo", " seo ", "performance", "comunicacao"},
		Keywords: []string{
			"marketing digital", "geração de demanda", "inbound", "SEO", "mídia paga", "branding",
			"funil", "CAC", "ROI", "campanhas", "automação de marketing", "conteúdo", "growth", "leads",
		},
		Metrics: []string{"CAC (R$)", "ROI/ROAS", "MQLs gerados", "taxa de conversão (%)", "tráfego orgânico", "CPL (R$)", "orçamento gerido (R$)"},
		StrongVerbs: []string{"lançou", "posicionou", "gerou", "escalou", "otimizou", "comunicou"},
		Tools:       []string{"Google Ads", "Meta Ads", "RD Station", "HubSpot", "Google Analytics", "SEMrush", "Hotjar", "Mailchimp"},
	},
	{
		Name:     "Produto",
		Slug:     "produto",
		patterns: []string{"produto", "product manager", "product owner", "product ops", " pm ", " po "},
		Keywords: []string{
			"discovery", "roadmap", "priorização", "OKRs", "métricas de produto", "backlog", "user stories",
			"experimentação", "A/B test", "stakeholders", "product-market fit", "delivery",
		},
		Metrics: []string{"retenção (%)", "conversão (%)", "ativação", "NPS", "receita do produto (R$)", "tempo de ciclo"},
		StrongVerbs: []string{"priorizou", "lançou", "validou", "definiu", "conduziu", "entregou"},
		Tools:       []string{"Jira", "Amplitude", "Mixpanel", "Figma", "Notion", "Productboard", "Miro"},
	},
	{
		Name:     "Engenharia de Software",
		Slug:     "software",
		patterns: []string{"desenvolvedor", "developer", "programador", "software", "engenheiro de software", "backend", "back-end", "frontend", "front-end", "full stack", "fullstack", "mobile", "devops", " sre ", "tech lead", " cto "},
		Keywords: []string{
			"arquitetura de software", "APIs", "microsserviços", "cloud", "CI/CD", "testes automatizados",
			"code review", "escalabilidade", "observabilidade", "banco de dados", "segurança", "performance",
		},
		Metrics: []string{"latência (ms)", "disponibilidade (%)", "deploys por semana", "cobertura de testes (%)", "redução de custo de infra (%)", "usuários atendidos"},
		StrongVerbs: []string{"desenvolveu", "arquitetou", "migrou", "automatizou", "escalou", "refatorou"},
		Tools:       []string{"Go", "Java", "Python", "JavaScript", "TypeScript", "AWS", "GCP", "Docker", "Kubernetes", "PostgreSQL", "Git", "Terraform"},
	},
	{
		Name:     "Dados e Analytics",
		Slug:     "dados",
		patterns: []string{"dados", " data ", "analytics", " bi ", "business intelligence", "cientista", "machine learning", "estatistic"},
		Keywords: []string{
			"análise de dados", "SQL", "modelagem", "dashboards", "ETL", "data warehouse", "machine learning",
			"estatística", "KPIs", "governança de dados", "visualização", "tomada de decisão",
		},
		Metrics: []string{"volume de dados processado", "acurácia do modelo (%)", "tempo de geração de relatórios", "economia gerada (R$)", "usuários dos dashboards"},
		StrongVerbs: []string{"modelou", "analisou", "automatizou", "previu", "construiu", "identificou"},
		Tools:       []string{"SQL", "Python", "Power BI", "Tableau", "Looker", "dbt", "Airflow", "BigQuery", "Spark", "Databricks"},
	},
	{
		Name:     "Segurança da Informação",
		Slug:     "seguranca",
		patterns: []string{"seguranca da informacao", "ciberseguranca", "cybersecurity", "security", "infosec", "pentest"},
		Keywords: []string{
			"segurança da informação", "gestão de vulnerabilidades", "ISO 27001", "LGPD", "SOC", "resposta a incidentes",
			"IAM", "pentest", "compliance", "SIEM", "hardening",
		},
		Metrics: []string{"incidentes tratados", "tempo de resposta (MTTR)", "vulnerabilidades corrigidas", "conformidade (%)", "redução de risco"},
		StrongVerbs: []string{"protegeu", "mitigou", "auditou", "implementou", "monitorou"},
		Tools:       []string{"Splunk", "CrowdStrike", "Qualys", "Burp Suite", "Wireshark", "Azure AD", "Okta"},
	},
	{
		Name:     "Infraestrutura de TI",
		Slug:     "infraestrutura",
		patterns: []string{"infraestrutura", " infra ", "redes", "sysadmin", "administrador de sistemas", "suporte tecnico", "analista de ti", "coordenador de ti", "gerente de ti"},
		Keywords: []string{
			"infraestrutura", "redes", "servidores", "cloud", "virtualização", "backup", "ITIL",
			"monitoramento", "alta disponibilidade", "service desk", "gestão de ativos",
		},
		Metrics: []string{"uptime (%)", "chamados resolvidos", "redução de custos (R$)", "usuários suportados", "tempo de recuperação"},
		StrongVerbs: []string{"implantou", "migrou", "padronizou", "reduziu", "monitorou"},
		Tools:       []string{"VMware", "Windows Server", "Linux", "AWS", "Azure", "Zabbix", "GLPI", "Active Directory"},
	},
	{
		Name:     "Design e UX",
		Slug:     "design",
		patterns: []string{"designer", "design", " ux ", " ui ", "ux/ui", "ui/ux", "experiencia do usuario"},
		Keywords: []string{
			"UX", "UI", "pesquisa com usuários", "prototipação", "design system", "usabilidade",
			"jornada do usuário", "acessibilidade", "wireframes", "testes de usabilidade",
		},
		Metrics: []string{"taxa de conclusão de tarefas (%)", "SUS", "conversão (%)", "redução de chamados", "entrevistas realizadas"},
		StrongVerbs: []string{"desenhou", "prototipou", "pesquisou", "simplificou", "validou"},
		Tools:       []string{"Figma", "Sketch", "Adobe XD", "Miro", "Maze", "Illustrator", "Photoshop"},
	},
	{
		Name:     "Recursos Humanos",
		Slug:     "rh",
		patterns: []string{"recursos humanos", " rh ", "people", "talent", "recrutamento", "recrutador", "selecao", "departamento pessoal", "business partner", "hrbp", "gente e gestao"},
		Keywords: []string{
			"recrutamento e seleção", "employer branding", "onboarding", "clima organizacional", "treinamento e desenvolvimento",
			"avaliação de desempenho", "remuneração", "departamento pessoal", "people analytics", "turnover", "cultura",
		},
		Metrics: []string{"time-to-hire (dias)", "turnover (%)", "vagas fechadas", "eNPS", "custo por contratação (R$)", "colaboradores atendidos"},
		StrongVerbs: []string{"contratou", "desenvolveu", "engajou", "estruturou", "reduziu", "implantou"},
		Tools:       []string{"Gupy", "LinkedIn Recruiter", "SAP SuccessFactors", "Workday", "Sólides", "Excel"},
	},
	{
		Name:     "Finanças",
		Slug:     "financas",
		patterns: []string{"financeiro", "financas", "finance", "fp&a", "controller", "tesouraria", "cfo", "planejamento financeiro", "investimentos", "credito"},
		Keywords: []string{
			"FP&A", "orçamento", "fluxo de caixa", "DRE", "forecast", "análise de investimentos", "tesouraria",
			"valuation", "controladoria", "redução de custos", "KPIs financeiros", "capital de giro",
		},
		Metrics: []string{"orçamento gerido (R$)", "redução de custos (%)", "EBITDA", "prazo de fechamento (dias)", "economia gerada (R$)", "acurácia de forecast (%)"},
		StrongVerbs: []string{"planejou", "controlou", "reduziu", "projetou", "negociou", "reestruturou"},
		Tools:       []string{"Excel", "SAP", "Oracle", "Power BI", "TOTVS", "Hyperion", "Python"},
	},
	{
		Name:     "Contabilidade e Fiscal",
		Slug:     "contabil",
		patterns: []string{"contab", "contador", "fiscal", "tributar", "auditor", "auditoria"},
		Keywords: []string{
			"contabilidade", "fechamento contábil", "conciliações", "SPED", "obrigações acessórias", "IFRS",
			"tributos", "auditoria", "balanço patrimonial", "planejamento tributário", "compliance fiscal",
		},
		Metrics: []string{"prazo de fechamento (dias)", "economia tributária (R$)", "empresas atendidas", "apontamentos de auditoria", "lançamentos processados"},
		StrongVerbs: []string{"conciliou", "apurou", "auditou", "reduziu", "regularizou"},
		Tools:       []string{"SAP", "TOTVS", "Domínio", "Excel", "Oracle", "Alterdata"},
	},
	{
		Name:     "Compras e Suprimentos",
		Slug:     "compras",
		patterns: []string{"compras", "comprador", "suprimentos", "procurement", "sourcing", "strategic sourcing"},
		Keywords: []string{
			"compras estratégicas", "negociação com fornecedores", "strategic sourcing", "saving", "gestão de contratos",
			"homologação de fornecedores", "cotações", "spend analysis", "supply chain", "SLA de fornecedores", "MRP",
		},
		Metrics: []string{"saving gerado (R$)", "redução de custos (%)", "volume de compras (R$)", "fornecedores gerenciados", "lead time de compras", "OTIF (%)"},
		StrongVerbs: []string{"negociou", "reduziu", "homologou", "consolidou", "renegociou", "centralizou"},
		Tools:       []string{"SAP MM", "SAP Ariba", "Coupa", "TOTVS", "Oracle Procurement", "Excel"},
	},
	{
		Name:     "Logística e Supply Chain",
		Slug:     "logistica",
		patterns: []string{"logistic", "supply chain", "cadeia de suprimentos", "armazem", "estoque", "transporte", "distribuicao", "expedicao", " pcp "},
		Keywords: []string{
			"supply chain", "gestão de estoques", "armazenagem", "transporte", "distribuição", "S&OP",
			"roteirização", "WMS", "TMS", "nível de serviço", "lead time", "inventário",
		},
		Metrics: []string{"OTIF (%)", "acuracidade de estoque (%)", "custo logístico (R$)", "giro de estoque", "lead time (dias)", "entregas por mês"},
		StrongVerbs: []string{"otimizou", "reduziu", "coordenou", "implantou", "reorganizou"},
		Tools:       []string{"SAP", "WMS", "TMS", "Excel", "Power BI", "TOTVS", "Oracle SCM"},
	},
	{
		Name:     "Operações",
		Slug:     "operacoes",
		patterns: []string{"operacoes", "operations", "gerente de operacoes", " coo ", "facilities", "gerente de unidade"},
		Keywords: []string{
			"gestão de operações", "processos", "eficiência operacional", "lean", "indicadores", "SLA",
			"melhoria contínua", "capacidade", "gestão de equipes", "orçamento", "qualidade",
		},
		Metrics: []string{"produtividade (%)", "redução de custos (R$)", "SLA cumprido (%)", "equipe liderada", "volume operado"},
		StrongVerbs: []string{"otimizou", "liderou", "escalou", "reestruturou", "padronizou"},
		Tools:       []string{"Excel", "Power BI", "SAP", "Lean/Six Sigma", "Jira", "ERP"},
	},
	{
		Name:     "Engenharia e Produção",
		Slug:     "engenharia",
		patterns: []string{"engenheiro", "engenharia", "producao", "manufatura", "industrial", "manutencao", "processos industriais"},
		Keywords: []string{
			"lean manufacturing", "six sigma", "OEE", "manutenção", "melhoria contínua", "segurança do trabalho",
			"PCP", "processos produtivos", "kaizen", "5S", "capex", "projetos industriais",
		},
		Metrics: []string{"OEE (%)", "redução de refugo (%)", "paradas não programadas", "capex gerido (R$)", "produtividade (%)", "acidentes"},
		StrongVerbs: []string{"projetou", "implantou", "otimizou", "reduziu", "coordenou"},
		Tools:       []string{"AutoCAD", "SolidWorks", "SAP PM", "Minitab", "MS Project", "Excel"},
	},
	{
		Name:     "Qualidade",
		Slug:     "qualidade",
		patterns: []string{"qualidade", "quality", " qa ", "garantia da qualidade", "melhoria continua"},
		Keywords: []string{
			"gestão da qualidade", "ISO 9001", "auditoria interna", "não conformidades", "ação corretiva",
			"FMEA", "controle estatístico", "PDCA", "indicadores de qualidade", "certificações",
		},
		Metrics: []string{"não conformidades reduzidas (%)", "auditorias conduzidas", "índice de reclamações", "custo da não qualidade (R$)", "certificações obtidas"},
		StrongVerbs: []string{"auditou", "certificou", "reduziu", "padronizou", "implantou"},
		Tools:       []string{"Minitab", "SAP QM", "Excel", "Power BI", "SoftExpert"},
	},
	{
		Name:     "Projetos e PMO",
		Slug:     "projetos",
		patterns: []string{"projetos", "project manager", "pmo", "scrum master", "agile coach", "gerente de projeto", "coordenador de projeto"},
		Keywords: []string{
			"gestão de projetos", "PMO", "escopo", "cronograma", "riscos", "stakeholders", "metodologias ágeis",
			"Scrum", "Kanban", "PMBOK", "orçamento", "portfólio",
		},
		Metrics: []string{"projetos entregues no prazo (%)", "orçamento gerido (R$)", "tamanho do time", "redução de prazo (%)", "projetos simultâneos"},
		StrongVerbs: []string{"coordenou", "entregou", "planejou", "gerenciou", "implantou"},
		Tools:       []string{"MS Project", "Jira", "Asana", "Trello", "Monday", "Smartsheet", "Confluence"},
	},
	{
		Name:     "Jurídico",
		Slug:     "juridico",
		patterns: []string{"juridico", "advogad", "legal", "compliance", "paralegal"},
		Keywords: []string{
			"contratos", "contencioso", "consultivo", "compliance", "LGPD", "societário", "trabalhista",
			"due diligence", "negociação", "pareceres", "governança",
		},
		Metrics: []string{"contratos revisados", "processos gerenciados", "redução de passivo (R$)", "êxito em ações (%)", "prazo médio de revisão"},
		StrongVerbs: []string{"negociou", "estruturou", "revisou", "representou", "mitigou"},
		Tools:       []string{"Projuris", "Legal One", "Jusbrasil", "DocuSign", "Excel"},
	},
	{
		Name:     "Saúde",
		Slug:     "saude",
		patterns: []string{"enfermeir", "medic", "saude", "hospital", "farmac", "clinic", "fisioterapeut", "nutricionista"},
		Keywords: []string{
			"assistência ao paciente", "protocolos clínicos", "segurança do paciente", "acreditação hospitalar",
			"gestão de leitos", "humanização", "indicadores assistenciais", "equipe multidisciplinar", "ANVISA", "gestão de equipes de enfermagem",
		},
		Metrics: []string{"pacientes atendidos", "taxa de ocupação (%)", "infecções reduzidas (%)", "tempo de espera", "satisfação do paciente"},
		StrongVerbs: []string{"atendeu", "coordenou", "implantou", "reduziu", "capacitou"},
		Tools:       []string{"Tasy", "MV Soul", "Prontuário eletrônico", "Power BI", "Excel"},
	},
	{
		Name:     "Educação",
		Slug:     "educacao",
		patterns: []string{"professor", "docente", "educacao", "pedagog", "instrutor", "coordenador pedagogico", "tutor"},
		Keywords: []string{
			"planejamento pedagógico", "metodologias ativas", "avaliação de aprendizagem", "EAD", "currículo",
			"formação de professores", "gestão escolar", "BNCC", "tecnologia educacional", "design instrucional",
		},
		Metrics: []string{"alunos atendidos", "índice de aprovação (%)", "evasão reduzida (%)", "cursos criados", "NPS dos alunos"},
		StrongVerbs: []string{"ensinou", "desenvolveu", "coordenou", "criou", "capacitou"},
		Tools:       []string{"Google Classroom", "Moodle", "Canvas", "Zoom", "Microsoft Teams"},
	},
	{
		Name:     "Administrativo",
		Slug:     "administrativo",
		patterns: []string{"administrativo", "assistente", "auxiliar", "secretari", "recepcion", "office manager", "analista administrativo"},
		Keywords: []string{
			"rotinas administrativas", "controle de documentos", "gestão de agenda", "contas a pagar",
			"contas a receber", "relatórios", "atendimento interno", "organização", "fornecedores", "ERP",
		},
		Metrics: []string{"documentos processados", "redução de prazo (%)", "economia gerada (R$)", "solicitações atendidas", "custos administrativos reduzidos (%)"},
		StrongVerbs: []string{"organizou", "controlou", "agilizou", "padronizou", "apoiou"},
		Tools:       []string{"Excel", "Pacote Office", "SAP", "TOTVS", "Google Workspace"},
	},
	{
		Name:     "Comércio Exterior",
		Slug:     "comex",
		patterns: []string{"comercio exterior", "comex", "importacao", "exportacao", "trade", "despachante"},
		Keywords: []string{
			"importação", "exportação", "desembaraço aduaneiro", "Incoterms", "classificação fiscal", "drawback",
			"câmbio", "logística internacional", "Siscomex", "regimes aduaneiros",
		},
		Metrics: []string{"volume importado/exportado (US$)", "redução de custos aduaneiros (R$)", "lead time de desembaraço", "processos por mês", "novos mercados abertos"},
		StrongVerbs: []string{"negociou", "coordenou", "reduziu", "regularizou", "expandiu"},
		Tools:       []string{"Siscomex", "SAP GTS", "Excel", "Portal Único", "TOTVS"},
	},
}
