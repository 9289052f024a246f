// Package optimizer drives the multi-stage rewrite conversation. Every stage
// has a handler; rendering handlers may ask the model for text while input
// handlers only validate and route the candidate's answer.
package optimizer

import (
	"fmt"
	"strconv"
	"strings"

	"cvcoach/internal/utils"
)

// Stage names. ETAPA_* and CHECKPOINT_* stages render output, AWAITING_*
// stages wait for the candidate.
const (
	StageDiagnosis        = "ETAPA_0_DIAGNOSIS"
	StageGapItem          = "ETAPA_0_GAP_ITEM"
	AwaitGapResponse      = "AWAITING_GAP_RESPONSE"
	StageGapProbe         = "ETAPA_0_GAP_PROBE"
	AwaitGapProbeResponse = "AWAITING_GAP_PROBE_RESPONSE"
	StageDiagnosisSummary = "ETAPA_0_DIAGNOSIS_SUMMARY"
	AwaitDiagnosisOK      = "AWAITING_DIAGNOSIS_OK"

	StageSEOIntro   = "ETAPA_1_5_SEO_INTRO"
	AwaitSEOStart   = "AWAITING_SEO_START"
	StageSEOKeyword = "ETAPA_1_5_SEO_KEYWORD"
	AwaitSEOResp    = "AWAITING_SEO_RESPONSE"
	StageSEOSummary = "ETAPA_1_5_SEO_SUMMARY"
	AwaitSEOOK      = "AWAITING_SEO_OK"

	StageFocusedCollection = "ETAPA_1_FOCUSED_COLLECTION"
	AwaitCollectionData    = "AWAITING_COLLECTION_DATA"
	StageCheckpoint1       = "CHECKPOINT_1_VALIDATION"
	AwaitValidationOK      = "AWAITING_VALIDATION_OK"

	stageRewriteExpPrefix  = "ETAPA_2_REWRITE_EXP_"
	awaitApprovalExpPrefix = "AWAITING_APPROVAL_EXP_"
	StageRewriteFinal      = "ETAPA_2_REWRITE_FINAL"
	AwaitContinueCP2       = "AWAITING_CONTINUE_TO_CP2"

	StageLinkedIn       = "ETAPA_6_LINKEDIN"
	AwaitHeadlineChoice = "AWAITING_HEADLINE_CHOICE"
	StageLinkedInSkills = "ETAPA_6_LINKEDIN_SKILLS"
	AwaitSkillsOK       = "AWAITING_SKILLS_OK"
	StageLinkedInAbout  = "ETAPA_6_LINKEDIN_ABOUT"
	AwaitAboutOK        = "AWAITING_ABOUT_OK"
	StageExport         = "ETAPA_7_EXPORT"
	StageDone           = "DONE"
)

// StageRewriteExp names the rewrite stage of experience n (1-based)
func StageRewriteExp(n int) string { return fmt.Sprintf("%s%d", stageRewriteExpPrefix, n) }

// AwaitApprovalExp names the approval stage of experience n (1-based)
func AwaitApprovalExp(n int) string { return fmt.Sprintf("%s%d", awaitApprovalExpPrefix, n) }

// IsAwaiting reports whether stage waits for candidate input
func IsAwaiting(stage string) bool { return strings.HasPrefix(stage, "AWAITING_") }

// IsRender reports whether stage produces output on entry
func IsRender(stage string) bool {
	return strings.HasPrefix(stage, "ETAPA_") || strings.HasPrefix(stage, "CHECKPOINT_")
}

// splitIndexed separates "PREFIX_n" into its prefix and n
func splitIndexed(stage string) (string, int) {
	for _, prefix := range []string{stageRewriteExpPrefix, awaitApprovalExpPrefix} {
		if rest, ok := strings.CutPrefix(stage, prefix); ok {
			if n, err := strconv.Atoi(rest); err == nil && n > 0 {
				return prefix, n
			}
		}
	}
	return stage, 0
}

var approvalTokens = map[string]bool{
	"ok": true, "aprovado": true, "sim": true, "perfeito": true,
	"continuar": true, "aprovar": true, "proxima": true, "aprovo": true,
}

// IsApproval reports whether input is one of the approval words
func IsApproval(input string) bool {
	folded := strings.Trim(utils.Fold(strings.TrimSpace(input)), " .!,;:")
	return approvalTokens[folded]
}
