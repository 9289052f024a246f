package market

import "testing"

func TestAreaTableShape(t *testing.T) {
	all := Areas()
	if len(all) < 22 {
		t.Fatalf("Expected at least 22 areas, got %d", len(all))
	}

	slugs := make(map[string]bool)
	for _, a := range all {
		if slugs[a.Slug] {
			t.Errorf("Duplicate slug %s", a.Slug)
		}
		slugs[a.Slug] = true

		if n := len(a.Keywords); n < 10 || n > 15 {
			t.Errorf("%s: expected 10-15 keywords, got %d", a.Slug, n)
		}
		if n := len(a.Metrics); n < 5 || n > 8 {
			t.Errorf("%s: expected 5-8 metrics, got %d", a.Slug, n)
		}
		if n := len(a.StrongVerbs); n < 5 || n > 8 {
			t.Errorf("%s: expected 5-8 strong verbs, got %d", a.Slug, n)
		}
		if n := len(a.Tools); n < 5 || n > 12 {
			t.Errorf("%s: expected 5-12 tools, got %d", a.Slug, n)
		}
		if len(a.patterns) == 0 {
			t.Errorf("%s: no detection patterns", a.Slug)
		}
	}
}

func TestDetectArea(t *testing.T) {
	tests := []struct {
		role string
		want string
	}{
		{"Gerente de Vendas", "vendas"},
		{"Gerente de Revenue Operations", "revops"},
		{"Coordenador de Compras", "compras"},
		{"Engenheiro de Software Sênior", "software"},
		{"Engenheiro de Dados", "dados"},
		{"Analista de Marketing Digital", "marketing"},
		{"Auxiliar Administrativo", "administrativo"},
		{"UX Designer", "design"},
		{"Analista de RH", "rh"},
		{"Controller Financeiro", "financas"},
		{"Analista de Comércio Exterior", "comex"},
		{"Product Manager", "produto"},
		{"Enfermeira Chefe", "saude"},
		{"Astronauta", "generalista"},
		{"", "generalista"},
	}

	for _, tt := range tests {
		t.Run(tt.role, func(t *testing.T) {
			if got := DetectArea(tt.role); got.Slug != tt.want {
				t.Errorf("DetectArea(%q) = %s, want %s", tt.role, got.Slug, tt.want)
			}
		})
	}
}

func TestKeywordCoverage(t *testing.T) {
	area, ok := Lookup("vendas")
	if !ok {
		t.Fatal("vendas area not found")
	}
	cv := "Responsável por prospecção, negociação e gestão do pipeline no CRM"

	matched := area.MatchedKeywords(cv)
	if len(matched) != 4 {
		t.Errorf("Expected 4 matched keywords, got %v", matched)
	}

	missing := area.MissingKeywords(cv, 3)
	if len(missing) != 3 {
		t.Fatalf("Expected 3 missing keywords, got %v", missing)
	}
	for _, m := range missing {
		for _, k := range matched {
			if m == k {
				t.Errorf("Keyword %q both matched and missing", m)
			}
		}
	}
}

func TestGeneralistLookup(t *testing.T) {
	g, ok := Lookup("generalista")
	if !ok || g.Name != GeneralistArea {
		t.Errorf("Expected generalist lookup, got %+v", g)
	}
	if _, ok := Lookup("nope"); ok {
		t.Error("Unexpected lookup hit")
	}
}
