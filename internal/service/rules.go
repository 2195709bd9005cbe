package service

import "fmt"

// DirectiveKind tags the variant of a trigger directive.
type DirectiveKind string

// Directive kinds produced by the rule engine.
const (
	DirectiveTraining DirectiveKind = "training"
	DirectiveAudit    DirectiveKind = "audit"
	DirectiveWarning  DirectiveKind = "warning"
	DirectiveReward   DirectiveKind = "reward"
)

// Recipient roles a directive may address. The subject is the evaluated
// user; the remaining roles are resolved through the identity collaborator.
const (
	RecipientSubject        = "subject"
	RecipientCoordinator    = "coordinator"
	RecipientManager        = "manager"
	RecipientCompliance     = "compliance"
	RecipientDepartmentHead = "department_head"
)

// Directive is a transient instruction to perform one remedial or
// recognition action. Each kind is its own type carrying only the fields
// relevant to that kind.
type Directive interface {
	Kind() DirectiveKind
	Label() string
	Justification() string
	Recipients() []string
}

// TrainingDirective requests a training assignment.
type TrainingDirective struct {
	TrainingType string
	ActionLabel  string
	Reason       string
	Audience     []string
	Priority     string
}

func (d TrainingDirective) Kind() DirectiveKind { return DirectiveTraining }
func (d TrainingDirective) Label() string { return d.ActionLabel }
func (d TrainingDirective) Justification() string { return d.Reason }
func (d TrainingDirective) Recipients() []string { return d.Audience }

// AuditDirective requests an audit schedule.
type AuditDirective struct {
	AuditType   string
	ActionLabel string
	Reason      string
	Audience    []string
	Priority    string
}

func (d AuditDirective) Kind() DirectiveKind { return DirectiveAudit }
func (d AuditDirective) Label() string { return d.ActionLabel }
func (d AuditDirective) Justification() string { return d.Reason }
func (d AuditDirective) Recipients() []string { return d.Audience }

// WarningDirective requests a formal warning notice. It creates no linked
// record; its effect is the warning email and the audit trail entry.
type WarningDirective struct {
	Severity    string
	ActionLabel string
	Reason      string
	Audience    []string
}

func (d WarningDirective) Kind() DirectiveKind { return DirectiveWarning }
func (d WarningDirective) Label() string { return d.ActionLabel }
func (d WarningDirective) Justification() string { return d.Reason }
func (d WarningDirective) Recipients() []string { return d.Audience }

// RewardDirective requests a recognition notice.
type RewardDirective struct {
	ActionLabel string
	Reason      string
	Audience    []string
}

func (d RewardDirective) Kind() DirectiveKind { return DirectiveReward }
func (d RewardDirective) Label() string { return d.ActionLabel }
func (d RewardDirective) Justification() string { return d.Reason }
func (d RewardDirective) Recipients() []string { return d.Audience }

// Training and audit types referenced by the rules.
const (
	TrainingBasicSkills    = "basic_skills"
	TrainingPerformance    = "performance_improvement"
	TrainingIntensive      = "intensive_remediation"
	TrainingNegativity     = "negativity_handling"
	TrainingConduct        = "conduct_standards"
	TrainingAppUsage       = "application_usage"
	AuditRoutine           = "routine"
	AuditExtendedHistory   = "extended_history"
	AuditFollowUp          = "follow_up"
	AuditEscalation        = "escalation"
	AuditRootCause         = "root_cause"
	AuditCrossVerification = "cross_verification"
)

// tierRule pairs an inclusive minimum score with its rating tier and the
// directives that tier fires. The table is evaluated top-down and doubles
// as the rating scale used by the scoring engine.
type tierRule struct {
	minScore float64
	rating   string
	build    func(overall int) []Directive
}

var tierRules = []tierRule{
	{
		minScore: 85,
		rating:   RatingOutstanding,
		build: func(overall int) []Directive {
			return []Directive{
				RewardDirective{
					ActionLabel: "Performance recognition",
					Reason:      fmt.Sprintf("Outstanding rating with overall score %d", overall),
					Audience:    []string{RecipientSubject, RecipientManager},
				},
			}
		},
	},
	{
		minScore: 70,
		rating:   RatingExcellent,
		build: func(overall int) []Directive {
			return []Directive{
				AuditDirective{
					AuditType:   AuditRoutine,
					ActionLabel: "Routine work audit",
					Reason:      fmt.Sprintf("Excellent rating with overall score %d", overall),
					Audience:    []string{RecipientSubject, RecipientCoordinator},
					Priority:    "normal",
				},
			}
		},
	},
	{
		minScore: 50,
		rating:   RatingSatisfactory,
		build: func(overall int) []Directive {
			return []Directive{
				AuditDirective{
					AuditType:   AuditExtendedHistory,
					ActionLabel: "Audit with extended historical cross-check",
					Reason:      fmt.Sprintf("Satisfactory rating with overall score %d", overall),
					Audience:    []string{RecipientSubject, RecipientCoordinator},
					Priority:    "normal",
				},
			}
		},
	},
	{
		minScore: 40,
		rating:   RatingNeedImprovement,
		build: func(overall int) []Directive {
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingBasicSkills,
					ActionLabel:  "Basic skills training",
					Reason:       fmt.Sprintf("Need Improvement rating with overall score %d", overall),
					Audience:     []string{RecipientSubject, RecipientCoordinator},
					Priority:     "high",
				},
				AuditDirective{
					AuditType:   AuditExtendedHistory,
					ActionLabel: "Extended work audit",
					Reason:      fmt.Sprintf("Need Improvement rating with overall score %d", overall),
					Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientManager},
					Priority:    "high",
				},
			}
		},
	},
	{
		minScore: 0,
		rating:   RatingUnsatisfactory,
		build: func(overall int) []Directive {
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingBasicSkills,
					ActionLabel:  "Basic skills training",
					Reason:       fmt.Sprintf("Unsatisfactory rating with overall score %d", overall),
					Audience:     []string{RecipientSubject, RecipientCoordinator},
					Priority:     "urgent",
				},
				AuditDirective{
					AuditType:   AuditExtendedHistory,
					ActionLabel: "Extended work audit",
					Reason:      fmt.Sprintf("Unsatisfactory rating with overall score %d", overall),
					Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientManager},
					Priority:    "urgent",
				},
				WarningDirective{
					Severity:    "formal",
					ActionLabel: "Formal warning notice",
					Reason:      fmt.Sprintf("Unsatisfactory rating with overall score %d", overall),
					Audience:    []string{RecipientSubject, RecipientManager, RecipientCompliance, RecipientDepartmentHead},
				},
			}
		},
	},
}

// conditionRule is evaluated independently of the score tier; any subset of
// condition rules may fire in one pass.
type conditionRule struct {
	name  string
	match func(overall int, m RawMetrics) bool
	build func(overall int, m RawMetrics) []Directive
}

var conditionRules = []conditionRule{
	{
		name:  "score_below_55",
		match: func(overall int, _ RawMetrics) bool { return overall < 55 },
		build: func(overall int, _ RawMetrics) []Directive {
			reason := fmt.Sprintf("Overall score %d fell below 55", overall)
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingPerformance,
					ActionLabel:  "Performance improvement training",
					Reason:       reason,
					Audience:     []string{RecipientSubject, RecipientCoordinator},
					Priority:     "high",
				},
				AuditDirective{
					AuditType:   AuditFollowUp,
					ActionLabel: "Follow-up audit",
					Reason:      reason,
					Audience:    []string{RecipientSubject, RecipientCoordinator},
					Priority:    "high",
				},
			}
		},
	},
	{
		name:  "score_below_40",
		match: func(overall int, _ RawMetrics) bool { return overall < 40 },
		build: func(overall int, _ RawMetrics) []Directive {
			reason := fmt.Sprintf("Overall score %d fell below 40", overall)
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingIntensive,
					ActionLabel:  "Intensive remediation training",
					Reason:       reason,
					Audience:     []string{RecipientSubject, RecipientCoordinator},
					Priority:     "urgent",
				},
				AuditDirective{
					AuditType:   AuditEscalation,
					ActionLabel: "Escalation audit",
					Reason:      reason,
					Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientManager},
					Priority:    "urgent",
				},
				WarningDirective{
					Severity:    "formal",
					ActionLabel: "Formal warning notice",
					Reason:      reason,
					Audience:    []string{RecipientSubject, RecipientManager, RecipientCompliance, RecipientDepartmentHead},
				},
			}
		},
	},
	{
		name: "major_negativity",
		match: func(_ int, m RawMetrics) bool {
			return m.MajorNegativity > 0 && m.GeneralNegativity < 25
		},
		build: func(_ int, m RawMetrics) []Directive {
			reason := fmt.Sprintf("Major negativity at %.2f%% with general negativity under 25%%", m.MajorNegativity)
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingNegativity,
					ActionLabel:  "Negativity handling training",
					Reason:       reason,
					Audience:     []string{RecipientSubject, RecipientCoordinator, RecipientManager},
					Priority:     "high",
				},
				AuditDirective{
					AuditType:   AuditRoutine,
					ActionLabel: "Negativity review audit",
					Reason:      reason,
					Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientManager},
					Priority:    "high",
				},
			}
		},
	},
	{
		name:  "quality_concern",
		match: func(_ int, m RawMetrics) bool { return m.QualityConcern > 1 },
		build: func(_ int, m RawMetrics) []Directive {
			reason := fmt.Sprintf("Quality concern rate at %.2f%% exceeded 1%%", m.QualityConcern)
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingConduct,
					ActionLabel:  "Conduct standards training",
					Reason:       reason,
					Audience:     []string{RecipientSubject, RecipientCoordinator, RecipientCompliance},
					Priority:     "high",
				},
				AuditDirective{
					AuditType:   AuditRootCause,
					ActionLabel: "Audit with root-cause review",
					Reason:      reason,
					Audience:    []string{RecipientSubject, RecipientCoordinator, RecipientCompliance},
					Priority:    "high",
				},
			}
		},
	},
	{
		name:  "app_usage",
		match: func(_ int, m RawMetrics) bool { return m.AppUsage < 80 },
		build: func(_ int, m RawMetrics) []Directive {
			return []Directive{
				TrainingDirective{
					TrainingType: TrainingAppUsage,
					ActionLabel:  "Application usage training",
					Reason:       fmt.Sprintf("Application usage at %.2f%% fell below 80%%", m.AppUsage),
					Audience:     []string{RecipientSubject},
					Priority:     "normal",
				},
			}
		},
	},
	{
		name:  "insufficiency",
		match: func(_ int, m RawMetrics) bool { return m.Insufficiency > 2 },
		build: func(_ int, m RawMetrics) []Directive {
			return []Directive{
				AuditDirective{
					AuditType:   AuditCrossVerification,
					ActionLabel: "Independent cross-verification audit",
					Reason:      fmt.Sprintf("Insufficiency rate at %.2f%% exceeded 2%%", m.Insufficiency),
					Audience:    []string{RecipientSubject, RecipientCompliance},
					Priority:    "high",
				},
			}
		},
	},
}

// Evaluate runs the score-tier rule selected by the scorecard rating and
// every independent condition rule, concatenating their directives in table
// order. The output is deterministic and order-stable for identical inputs,
// and directives are never deduplicated by kind: two rules asking for
// training produce two assignments, each with its own justification.
func Evaluate(card Scorecard, m RawMetrics) []Directive {
	var directives []Directive

	for _, rule := range tierRules {
		if float64(card.Overall) >= rule.minScore {
			directives = append(directives, rule.build(card.Overall)...)
			break
		}
	}

	for _, rule := range conditionRules {
		if rule.match(card.Overall, m) {
			directives = append(directives, rule.build(card.Overall, m)...)
		}
	}

	return directives
}
