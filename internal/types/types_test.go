package types

import "testing"

func TestGapResponseInvariant(t *testing.T) {
	tests := []struct {
		name    string
		resp    GapResponse
		wantHas bool
	}{
		{"no experience", NoExperience(), false},
		{"with text", WithExperience("Usei HubSpot por 2 anos"), true},
		{"blank text degrades", WithExperience("   "), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.resp.HasExperience != tt.wantHas {
				t.Errorf("Expected HasExperience=%v, got %v", tt.wantHas, tt.resp.HasExperience)
			}
			if !tt.resp.Valid() {
				t.Errorf("Expected valid record, got %+v", tt.resp)
			}
			if tt.resp.HasExperience == (tt.resp.Response == nil) {
				t.Errorf("HasExperience must be false exactly when Response is nil: %+v", tt.resp)
			}
		})
	}
}

func TestGapResponseValidRejectsMismatch(t *testing.T) {
	text := "algo"
	empty := " "
	invalid := []GapResponse{
		{HasExperience: false, Response: &text},
		{HasExperience: true, Response: nil},
		{HasExperience: true, Response: &empty},
	}
	for _, g := range invalid {
		if g.Valid() {
			t.Errorf("Expected invalid record %+v", g)
		}
	}
}

func TestScoreBreakdownTotal(t *testing.T) {
	b := ScoreBreakdown{Sections: 20, Keywords: 30, Metrics: 20, Formatting: 15, Length: 15}
	if b.Total() != 100 {
		t.Errorf("Expected 100, got %d", b.Total())
	}
}

func TestLevelLabel(t *testing.T) {
	if LevelNeedsImprovement.Label() != "Precisa melhorar" {
		t.Errorf("Unexpected label %q", LevelNeedsImprovement.Label())
	}
	if LevelExcellent.Label() != "Excelente" {
		t.Errorf("Unexpected label %q", LevelExcellent.Label())
	}
}
