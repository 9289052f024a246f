package salary

import (
	"strings"
	"testing"

	"cvcoach/internal/errors"
	"cvcoach/internal/types"
)

func TestParseExpectation(t *testing.T) {
	tests := []struct {
		input   string
		want    float64
		wantErr bool
	}{
		{"R$ 25.000,00", 25000, false},
		{"25000", 25000, false},
		{"R$25.000", 25000, false},
		{"25,000.00", 25000, false},
		{"R$ 12.500,50", 12500.5, false},
		{"25k", 25000, false},
		{"25 mil", 25000, false},
		{"1.500.000", 0, true},
		{"R$ 999", 0, true},
		{"1000", 1000, false},
		{"1.000.000", 1000000, false},
		{"abc", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseExpectation(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected error for %q, got %v", tt.input, got)
				}
				if !errors.IsType(err, errors.ErrorTypeValidation) {
					t.Errorf("Expected validation error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ParseExpectation(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseExpectationRoundTrip(t *testing.T) {
	a, err := ParseExpectation("R$ 25.000,00")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	b, err := ParseExpectation("25000")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if a != 25000.0 || a != b {
		t.Errorf("Expected both to be 25000, got %v and %v", a, b)
	}
}

func TestFormatBRL(t *testing.T) {
	tests := []struct {
		value float64
		want  string
	}{
		{14000, "R$ 14.000"},
		{1000000, "R$ 1.000.000"},
		{950, "R$ 950"},
		{12500.5, "R$ 12.500,50"},
	}
	for _, tt := range tests {
		if got := FormatBRL(tt.value); got != tt.want {
			t.Errorf("FormatBRL(%v) = %q, want %q", tt.value, got, tt.want)
		}
	}
}

func TestValidateFarAboveScenario(t *testing.T) {
	res := Validate("R$ 30.000", "Coordenador de Compras", "São Paulo", nil)

	if res.Level != LevelFarAbove {
		t.Errorf("Expected far_above, got %s", res.Level)
	}
	if !strings.Contains(res.Message, "muito acima") {
		t.Errorf("Expected message to contain 'muito acima', got %q", res.Message)
	}
	if !strings.Contains(res.Message, "R$ 14.000 - R$ 18.000") {
		t.Errorf("Expected band in message, got %q", res.Message)
	}
	if res.Category != CategorySPCapitals {
		t.Errorf("Expected sp_capitals, got %s", res.Category)
	}
	if res.Value != 30000 || res.InBand {
		t.Errorf("Unexpected value/inBand: %v %v", res.Value, res.InBand)
	}
}

func TestValidateLevels(t *testing.T) {
	tests := []struct {
		name        string
		expectation string
		want        Level
	}{
		{"inside band", "R$ 16.000", LevelOK},
		{"below band is still ok", "R$ 10.000", LevelOK},
		{"at max", "18000", LevelOK},
		{"mildly above", "R$ 21.000", LevelAbove},
		{"just under tolerance", "21500", LevelAbove},
		{"far above", "R$ 21.601", LevelFarAbove},
		{"invalid", "muito", LevelInvalid},
		{"out of range", "R$ 500", LevelInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Validate(tt.expectation, "Coordenador de Compras", "São Paulo, SP", nil)
			if res.Level != tt.want {
				t.Errorf("Expected %s, got %s (%s)", tt.want, res.Level, res.Message)
			}
			if res.Message == "" {
				t.Error("Expected a message")
			}
		})
	}
}

func TestValidateFallbackBand(t *testing.T) {
	res := Validate("R$ 20.000", "Astronauta", "Interior", nil)
	if res.RoleMatched {
		t.Error("Expected unmapped role")
	}
	if res.Band != FallbackBand {
		t.Errorf("Expected fallback band, got %+v", res.Band)
	}
	if res.Level != LevelOK {
		t.Errorf("Expected ok inside fallback band, got %s", res.Level)
	}
}

func TestResolveCategory(t *testing.T) {
	tests := []struct {
		name     string
		location string
		profile  *types.Profile
		want     Category
	}{
		{"capital", "Rio de Janeiro", nil, CategorySPCapitals},
		{"state abbreviation", "Campinas - SP", nil, CategorySPCapitals},
		{"interior", "Ribeirão Preto", nil, CategoryDefault},
		{"empty", "", nil, CategoryDefault},
		{"company size wins", "São Paulo", &types.Profile{CompanySize: "Multinacional"}, CategoryMulti},
		{"unknown size ignored", "Curitiba", &types.Profile{CompanySize: "gigante"}, CategorySPCapitals},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveCategory(tt.location, tt.profile); got != tt.want {
				t.Errorf("ResolveCategory(%q) = %s, want %s", tt.location, got, tt.want)
			}
		})
	}
}

func TestBandForCompanySizes(t *testing.T) {
	def, _ := BandFor("Gerente de Vendas", CategoryDefault)
	multi, _ := BandFor("Gerente de Vendas", CategoryMulti)
	small, _ := BandFor("Gerente de Vendas", CategorySmall)

	if !(small.Max < def.Max && def.Max < multi.Max) {
		t.Errorf("Expected small < default < multi, got %v %v %v", small.Max, def.Max, multi.Max)
	}

	// Most specific pattern wins
	senior, ok := BandFor("Desenvolvedor Sênior", CategoryDefault)
	if !ok || senior.Min != 12000 {
		t.Errorf("Expected senior developer band, got %+v", senior)
	}
}
