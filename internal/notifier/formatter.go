package notifier

import (
	"fmt"
	"html"
	"strings"
	"time"

	"CredBuddy/internal/model"
)

var bandOrder = []model.Band{model.BandA, model.BandB, model.BandC, model.BandD}

// FormatScoreCard formats one user's latest snapshot.
func FormatScoreCard(snap *model.ScoreSnapshot) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("📊 <b>Score</b> | user %d | %s\n\n", snap.UserID, snap.AsOfDate.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Score: %d/1000 (Band %s)\n", snap.Score, snap.Band))
	b.WriteString(fmt.Sprintf("Confidence: %d%%\n\n", snap.Confidence))

	b.WriteString("📈 <b>Features:</b>\n")
	for _, key := range model.FeatureKeys {
		b.WriteString(fmt.Sprintf("  %s: %.2f\n", key, snap.Features.Get(key)))
	}

	if len(snap.Flags) == 0 {
		b.WriteString("\nFlags: none\n")
		return b.String()
	}
	b.WriteString("\n⚠️ <b>Flags:</b>\n")
	for _, f := range snap.Flags {
		b.WriteString("  " + html.EscapeString(f) + "\n")
	}
	return b.String()
}

// FormatDashboard formats portfolio-wide statistics.
func FormatDashboard(stats *model.DashboardStats, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("📦 <b>CredBuddy digest</b> | %s\n\n", now.Format(model.DateLayout)))
	b.WriteString(fmt.Sprintf("Users: %d (scored %d)\n", stats.UserCount, stats.ScoredUserCount))
	b.WriteString(fmt.Sprintf("Average score: %d\n", stats.AverageScore))
	b.WriteString("Bands:")
	for _, band := range bandOrder {
		b.WriteString(fmt.Sprintf(" %s=%d", band, stats.BandDistribution[band]))
	}
	b.WriteString("\n")
	return b.String()
}

// FormatRecompute reports the outcome of a batch recompute.
func FormatRecompute(users, scored, failed int, took time.Duration) string {
	icon := "✅"
	if failed > 0 {
		icon = "⚠️"
	}
	return fmt.Sprintf("%s <b>Nightly recompute</b>\n\nActive users: %d\nScored: %d\nFailed: %d\nTook: %s\n",
		icon, users, scored, failed, took.Round(time.Millisecond))
}
