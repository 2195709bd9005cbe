package service

import "math"

// Rating tiers, in descending score order.
const (
	RatingOutstanding     = "Outstanding"
	RatingExcellent       = "Excellent"
	RatingSatisfactory    = "Satisfactory"
	RatingNeedImprovement = "Need Improvement"
	RatingUnsatisfactory  = "Unsatisfactory"
)

// Canonical metric names used in scorecards and record breakdowns.
const (
	MetricTurnaroundTime    = "turnaround_time"
	MetricMajorNegativity   = "major_negativity"
	MetricQualityConcern    = "quality_concern"
	MetricNeighborCheck     = "neighbor_check"
	MetricGeneralNegativity = "general_negativity"
	MetricAppUsage          = "app_usage"
	MetricInsufficiency     = "insufficiency"
)

// MetricScore is one metric's percentage and earned sub-score.
type MetricScore struct {
	Metric     string  `json:"metric"`
	Percentage float64 `json:"percentage"`
	Weight     float64 `json:"weight"`
	Score      float64 `json:"score"`
}

// Scorecard is the deterministic scoring result for one metric set.
type Scorecard struct {
	PerMetric []MetricScore `json:"per_metric"`
	Overall   int           `json:"overall"`
	Rating    string        `json:"rating"`
}

type scoreBracket struct {
	threshold float64
	points    float64
}

type metricRule struct {
	metric         string
	weight         float64
	higherIsBetter bool
	// brackets are evaluated top-down; the first satisfied threshold wins.
	// For higher-is-better metrics a bracket matches when pct >= threshold,
	// for lower-is-better when pct <= threshold.
	brackets []scoreBracket
}

var metricRules = []metricRule{
	{
		metric:         MetricTurnaroundTime,
		weight:         20,
		higherIsBetter: true,
		brackets:       []scoreBracket{{95, 20}, {90, 16}, {85, 12}, {80, 8}, {70, 4}},
	},
	{
		metric:   MetricMajorNegativity,
		weight:   20,
		brackets: []scoreBracket{{0, 20}, {0.5, 16}, {1, 12}, {2, 8}, {3, 4}},
	},
	{
		metric:   MetricQualityConcern,
		weight:   20,
		brackets: []scoreBracket{{0, 20}, {0.5, 16}, {1, 12}, {1.5, 8}, {2, 4}},
	},
	{
		metric:         MetricNeighborCheck,
		weight:         10,
		higherIsBetter: true,
		brackets:       []scoreBracket{{90, 10}, {80, 8}, {70, 6}, {60, 4}, {50, 2}},
	},
	{
		metric:   MetricGeneralNegativity,
		weight:   10,
		brackets: []scoreBracket{{5, 10}, {10, 8}, {15, 6}, {25, 4}, {35, 2}},
	},
	{
		metric:         MetricAppUsage,
		weight:         10,
		higherIsBetter: true,
		brackets:       []scoreBracket{{85, 10}, {80, 8}, {70, 6}, {60, 4}, {50, 2}},
	},
	{
		metric:   MetricInsufficiency,
		weight:   10,
		brackets: []scoreBracket{{0.5, 10}, {1, 8}, {2, 6}, {3, 4}, {4, 2}},
	},
}

func (r metricRule) score(pct float64) float64 {
	for _, bracket := range r.brackets {
		if r.higherIsBetter {
			if pct >= bracket.threshold {
				return bracket.points
			}
		} else if pct <= bracket.threshold {
			return bracket.points
		}
	}
	return 0
}

func (r metricRule) percentage(m RawMetrics) float64 {
	switch r.metric {
	case MetricTurnaroundTime:
		return m.TurnaroundTime
	case MetricMajorNegativity:
		return m.MajorNegativity
	case MetricQualityConcern:
		return m.QualityConcern
	case MetricNeighborCheck:
		return m.NeighborCheck
	case MetricGeneralNegativity:
		return m.GeneralNegativity
	case MetricAppUsage:
		return m.AppUsage
	default:
		return m.Insufficiency
	}
}

// Score applies the weighted step functions to the canonical metrics. The
// overall score is the exact sum of the sub-scores, rounded to two decimals
// before the final integer rounding so re-computation from different metric
// sources cannot drift.
func Score(m RawMetrics) Scorecard {
	perMetric := make([]MetricScore, 0, len(metricRules))
	sum := 0.0
	for _, rule := range metricRules {
		pct := clampPercent(rule.percentage(m))
		points := rule.score(pct)
		sum += points
		perMetric = append(perMetric, MetricScore{
			Metric:     rule.metric,
			Percentage: pct,
			Weight:     rule.weight,
			Score:      points,
		})
	}

	sum = math.Round(sum*100) / 100
	overall := int(math.Round(sum))
	if overall < 0 {
		overall = 0
	}
	if overall > 100 {
		overall = 100
	}

	return Scorecard{
		PerMetric: perMetric,
		Overall:   overall,
		Rating:    RatingForScore(float64(overall)),
	}
}

// RatingForScore maps a score onto the shared tier table. The rule engine
// selects its score-tier rule from the same table, so the two can never
// disagree on boundaries.
func RatingForScore(score float64) string {
	for _, rule := range tierRules {
		if score >= rule.minScore {
			return rule.rating
		}
	}
	return RatingUnsatisfactory
}
