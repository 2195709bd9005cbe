package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func kindsOf(directives []Directive) []DirectiveKind {
	kinds := make([]DirectiveKind, 0, len(directives))
	for _, d := range directives {
		kinds = append(kinds, d.Kind())
	}
	return kinds
}

func TestEvaluateOutstandingFiresReward(t *testing.T) {
	metrics := RawMetrics{
		TurnaroundTime:    96,
		NeighborCheck:     92,
		GeneralNegativity: 5,
		AppUsage:          85,
		Insufficiency:     0.5,
	}
	card := Score(metrics)
	require.Equal(t, RatingOutstanding, card.Rating)

	directives := Evaluate(card, metrics)
	require.Equal(t, []DirectiveKind{DirectiveReward}, kindsOf(directives))
	require.Equal(t, []string{RecipientSubject, RecipientManager}, directives[0].Recipients())
}

func TestEvaluateExcellentFiresRoutineAudit(t *testing.T) {
	card := Scorecard{Overall: 72, Rating: RatingExcellent}
	metrics := RawMetrics{AppUsage: 90}

	directives := Evaluate(card, metrics)
	require.Len(t, directives, 1)
	audit, ok := directives[0].(AuditDirective)
	require.True(t, ok)
	require.Equal(t, AuditRoutine, audit.AuditType)
}

func TestEvaluateUnsatisfactoryUnionsWithScoreConditions(t *testing.T) {
	// A score of 8 sits under every score threshold: the tier rule fires its
	// three directives, and both score_below_55 and score_below_40 add theirs.
	metrics := RawMetrics{
		TurnaroundTime:    50,
		MajorNegativity:   5,
		QualityConcern:    2,
		NeighborCheck:     50,
		GeneralNegativity: 50,
		AppUsage:          50,
		Insufficiency:     5,
	}
	card := Score(metrics)
	require.Equal(t, 8, card.Overall)

	directives := Evaluate(card, metrics)

	// Tier (3) + below_55 (2) + below_40 (3) + quality_concern (2) +
	// app_usage (1) + insufficiency (1). Major negativity stays silent
	// because general negativity is not under 25.
	require.Len(t, directives, 12)

	trainings, audits, warnings := 0, 0, 0
	for _, d := range directives {
		switch d.Kind() {
		case DirectiveTraining:
			trainings++
		case DirectiveAudit:
			audits++
		case DirectiveWarning:
			warnings++
		}
	}
	require.Equal(t, 5, trainings)
	require.Equal(t, 5, audits)
	require.Equal(t, 2, warnings)
}

func TestEvaluateScoreThirtyNineUnionsNegativityWithScoreRules(t *testing.T) {
	// Overall 39 is Unsatisfactory and under both score thresholds, while
	// major negativity at 1% with general negativity at 10% arms the
	// negativity rule too. App usage stays at 85 so only those four fire.
	metrics := RawMetrics{
		MajorNegativity:   1,
		GeneralNegativity: 10,
		AppUsage:          85,
	}
	card := Scorecard{Overall: 39, Rating: RatingForScore(39)}
	require.Equal(t, RatingUnsatisfactory, card.Rating)

	directives := Evaluate(card, metrics)

	// Tier (3) + below_55 (2) + below_40 (3) + major_negativity (2).
	require.Len(t, directives, 10)

	trainings, audits, warnings := 0, 0, 0
	negativityTraining := false
	for _, d := range directives {
		switch d.Kind() {
		case DirectiveTraining:
			trainings++
		case DirectiveAudit:
			audits++
		case DirectiveWarning:
			warnings++
		}
		if training, ok := d.(TrainingDirective); ok && training.TrainingType == TrainingNegativity {
			negativityTraining = true
		}
	}
	require.Equal(t, 4, trainings)
	require.Equal(t, 4, audits)
	require.Equal(t, 2, warnings)
	require.True(t, negativityTraining, "negativity handling training should be among the directives")
}

func TestEvaluateMajorNegativityRequiresLowGeneralNegativity(t *testing.T) {
	base := RawMetrics{
		TurnaroundTime: 96,
		NeighborCheck:  92,
		AppUsage:       85,
		Insufficiency:  0.5,
	}

	fires := base
	fires.MajorNegativity = 0.8
	fires.GeneralNegativity = 10
	card := Score(fires)
	directives := Evaluate(card, fires)

	var negTraining *TrainingDirective
	for _, d := range directives {
		if training, ok := d.(TrainingDirective); ok && training.TrainingType == TrainingNegativity {
			negTraining = &training
			break
		}
	}
	require.NotNil(t, negTraining, "negativity training should fire")

	muted := base
	muted.MajorNegativity = 0.8
	muted.GeneralNegativity = 30
	card = Score(muted)
	for _, d := range Evaluate(card, muted) {
		if training, ok := d.(TrainingDirective); ok {
			require.NotEqual(t, TrainingNegativity, training.TrainingType)
		}
	}
}

func TestEvaluateAppUsageTrainingTargetsSubjectOnly(t *testing.T) {
	metrics := RawMetrics{
		TurnaroundTime:    96,
		NeighborCheck:     92,
		GeneralNegativity: 5,
		AppUsage:          60,
		Insufficiency:     0.5,
	}
	card := Score(metrics)

	var appTraining *TrainingDirective
	for _, d := range Evaluate(card, metrics) {
		if training, ok := d.(TrainingDirective); ok && training.TrainingType == TrainingAppUsage {
			appTraining = &training
			break
		}
	}
	require.NotNil(t, appTraining)
	require.Equal(t, []string{RecipientSubject}, appTraining.Audience)
}

func TestEvaluateInsufficiencyFiresAuditOnly(t *testing.T) {
	metrics := RawMetrics{
		TurnaroundTime:    96,
		NeighborCheck:     92,
		GeneralNegativity: 5,
		AppUsage:          85,
		Insufficiency:     3.5,
	}
	card := Score(metrics)

	var crossAudit *AuditDirective
	for _, d := range Evaluate(card, metrics) {
		if audit, ok := d.(AuditDirective); ok && audit.AuditType == AuditCrossVerification {
			crossAudit = &audit
			break
		}
	}
	require.NotNil(t, crossAudit)
	require.Equal(t, []string{RecipientSubject, RecipientCompliance}, crossAudit.Audience)
}

func TestEvaluateNeverDeduplicatesByKind(t *testing.T) {
	// Score 39 fires the Unsatisfactory tier and both score conditions, each
	// asking for its own training with a distinct justification.
	metrics := RawMetrics{
		TurnaroundTime:    70,
		MajorNegativity:   0,
		QualityConcern:    0,
		NeighborCheck:     90,
		GeneralNegativity: 40,
		AppUsage:          85,
		Insufficiency:     5,
	}
	card := Scorecard{Overall: 39, Rating: RatingUnsatisfactory}

	trainingReasons := map[string]bool{}
	for _, d := range Evaluate(card, metrics) {
		if d.Kind() == DirectiveTraining {
			trainingReasons[d.Justification()] = true
		}
	}
	require.GreaterOrEqual(t, len(trainingReasons), 3)
}

func TestEvaluateIsOrderStable(t *testing.T) {
	metrics := RawMetrics{
		TurnaroundTime:    50,
		MajorNegativity:   0.8,
		QualityConcern:    1.2,
		NeighborCheck:     55,
		GeneralNegativity: 12,
		AppUsage:          61,
		Insufficiency:     2.5,
	}
	card := Score(metrics)

	first := Evaluate(card, metrics)
	for i := 0; i < 5; i++ {
		again := Evaluate(card, metrics)
		require.Equal(t, len(first), len(again))
		for j := range first {
			require.Equal(t, first[j].Kind(), again[j].Kind())
			require.Equal(t, first[j].Label(), again[j].Label())
		}
	}
}
