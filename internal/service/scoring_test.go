package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestScorePerfectMetrics(t *testing.T) {
	card := Score(RawMetrics{
		TurnaroundTime:    96,
		MajorNegativity:   0,
		QualityConcern:    0,
		NeighborCheck:     92,
		GeneralNegativity: 5,
		AppUsage:          85,
		Insufficiency:     0.5,
	})

	require.Equal(t, 100, card.Overall)
	require.Equal(t, RatingOutstanding, card.Rating)
	require.Len(t, card.PerMetric, 7)
	for _, sub := range card.PerMetric {
		require.Equal(t, sub.Weight, sub.Score, "metric %s should earn full weight", sub.Metric)
	}
}

func TestScorePoorMetrics(t *testing.T) {
	card := Score(RawMetrics{
		TurnaroundTime:    50,
		MajorNegativity:   5,
		QualityConcern:    2,
		NeighborCheck:     50,
		GeneralNegativity: 50,
		AppUsage:          50,
		Insufficiency:     5,
	})

	require.Equal(t, 8, card.Overall)
	require.Equal(t, RatingUnsatisfactory, card.Rating)
}

func TestScoreOverallIsSumOfSubScores(t *testing.T) {
	card := Score(RawMetrics{
		TurnaroundTime:    88,
		MajorNegativity:   0.7,
		QualityConcern:    1.2,
		NeighborCheck:     75,
		GeneralNegativity: 12,
		AppUsage:          82,
		Insufficiency:     1.5,
	})

	sum := 0.0
	for _, sub := range card.PerMetric {
		require.LessOrEqual(t, sub.Score, sub.Weight)
		require.GreaterOrEqual(t, sub.Score, 0.0)
		sum += sub.Score
	}
	require.InDelta(t, float64(card.Overall), sum, 0.5)
}

func TestScoreZeroMetrics(t *testing.T) {
	card := Score(RawMetrics{})

	// Zero activity earns full marks on the lower-is-better rates and nothing
	// on the higher-is-better ones: 20 + 20 + 10 + 10 = 60.
	require.Equal(t, 60, card.Overall)
	require.Equal(t, RatingSatisfactory, card.Rating)
}

func TestScoreZeroMetricsPerMetricCredit(t *testing.T) {
	card := Score(RawMetrics{})

	want := map[string]float64{
		MetricTurnaroundTime:    0,
		MetricMajorNegativity:   20,
		MetricQualityConcern:    20,
		MetricNeighborCheck:     0,
		MetricGeneralNegativity: 10,
		MetricAppUsage:          0,
		MetricInsufficiency:     10,
	}

	require.Len(t, card.PerMetric, len(want))
	for _, sub := range card.PerMetric {
		require.Equal(t, want[sub.Metric], sub.Score, "metric %s", sub.Metric)
	}
}

func TestScoreClampsOutOfRangePercentages(t *testing.T) {
	card := Score(RawMetrics{
		TurnaroundTime:    150,
		MajorNegativity:   -3,
		QualityConcern:    -1,
		NeighborCheck:     120,
		GeneralNegativity: -10,
		AppUsage:          400,
		Insufficiency:     -0.5,
	})

	require.Equal(t, 100, card.Overall)
	for _, sub := range card.PerMetric {
		require.GreaterOrEqual(t, sub.Percentage, 0.0)
		require.LessOrEqual(t, sub.Percentage, 100.0)
	}
}

func TestScoreBracketBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		metrics RawMetrics
		metric  string
		want    float64
	}{
		{"turnaround at 95 earns full", RawMetrics{TurnaroundTime: 95}, MetricTurnaroundTime, 20},
		{"turnaround just under 95", RawMetrics{TurnaroundTime: 94.99}, MetricTurnaroundTime, 16},
		{"turnaround below lowest bracket", RawMetrics{TurnaroundTime: 69.99}, MetricTurnaroundTime, 0},
		{"major negativity exactly zero", RawMetrics{MajorNegativity: 0}, MetricMajorNegativity, 20},
		{"major negativity at 0.5", RawMetrics{MajorNegativity: 0.5}, MetricMajorNegativity, 16},
		{"major negativity above 3", RawMetrics{MajorNegativity: 3.01}, MetricMajorNegativity, 0},
		{"quality concern at 1.5", RawMetrics{QualityConcern: 1.5}, MetricQualityConcern, 8},
		{"neighbor check at 90", RawMetrics{NeighborCheck: 90}, MetricNeighborCheck, 10},
		{"neighbor check at 89.99", RawMetrics{NeighborCheck: 89.99}, MetricNeighborCheck, 8},
		{"general negativity at 35", RawMetrics{GeneralNegativity: 35}, MetricGeneralNegativity, 2},
		{"general negativity above 35", RawMetrics{GeneralNegativity: 35.01}, MetricGeneralNegativity, 0},
		{"app usage at 85", RawMetrics{AppUsage: 85}, MetricAppUsage, 10},
		{"app usage at 84.99", RawMetrics{AppUsage: 84.99}, MetricAppUsage, 8},
		{"insufficiency at 4", RawMetrics{Insufficiency: 4}, MetricInsufficiency, 2},
		{"insufficiency above 4", RawMetrics{Insufficiency: 4.01}, MetricInsufficiency, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			card := Score(tc.metrics)
			for _, sub := range card.PerMetric {
				if sub.Metric == tc.metric {
					require.Equal(t, tc.want, sub.Score)
					return
				}
			}
			t.Fatalf("metric %s missing from scorecard", tc.metric)
		})
	}
}

func TestRatingForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score  float64
		rating string
	}{
		{100, RatingOutstanding},
		{85, RatingOutstanding},
		{84.99, RatingExcellent},
		{70, RatingExcellent},
		{69.99, RatingSatisfactory},
		{50, RatingSatisfactory},
		{49.99, RatingNeedImprovement},
		{40, RatingNeedImprovement},
		{39.99, RatingUnsatisfactory},
		{0, RatingUnsatisfactory},
	}

	for _, tc := range cases {
		require.Equal(t, tc.rating, RatingForScore(tc.score), "score %.2f", tc.score)
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	metrics := RawMetrics{
		TurnaroundTime:    87.5,
		MajorNegativity:   0.3,
		QualityConcern:    0.9,
		NeighborCheck:     66,
		GeneralNegativity: 18,
		AppUsage:          71,
		Insufficiency:     2.4,
	}

	first := Score(metrics)
	for i := 0; i < 10; i++ {
		require.Equal(t, first, Score(metrics))
	}
}
