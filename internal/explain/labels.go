package explain

import (
	"CredBuddy/internal/model"
)

// Language selects the label, tip and disclaimer tables.
type Language string

const (
	Dutch   Language = "nl"
	English Language = "en"
)

// ParseLanguage accepts "nl" or "en".
func ParseLanguage(s string) (Language, bool) {
	switch Language(s) {
	case Dutch, English:
		return Language(s), true
	}
	return "", false
}

type labelSet struct {
	positive, neutral, negative string
}

func (l labelSet) text(s Sentiment) string {
	switch s {
	case Positive:
		return l.positive
	case Neutral:
		return l.neutral
	}
	return l.negative
}

type langPack struct {
	labels map[string]labelSet
	tips   map[string][]string

	lookback   string // Sprintf format, one %d
	confidence string // Sprintf format, one %d
	disclaimer string

	goingWell string
	watchFor  string
	tipsTitle string
}

var headlines = map[model.Band]string{
	model.BandA: "Lower observed risk indicators",
	model.BandB: "Moderate observed risk indicators",
	model.BandC: "Elevated observed risk indicators",
	model.BandD: "Higher observed risk indicators",
}

// headline returns the fixed headline for band, falling back to the D headline.
func headline(band model.Band) string {
	if h, ok := headlines[band]; ok {
		return h
	}
	return headlines[model.BandD]
}

var packs = map[Language]*langPack{
	Dutch: {
		labels: map[string]labelSet{
			model.KeyDataDiscipline: {
				"Je vult je cijfers bijna elke dag in",
				"Je vult je cijfers onregelmatig in",
				"Je vult je cijfers te weinig in",
			},
			model.KeyRevenueStability: {
				"Je omzet is stabiel",
				"Je omzet schommelt",
				"Je omzet wisselt sterk per dag",
			},
			model.KeyExpensePressure: {
				"Je uitgaven zijn goed in verhouding tot je omzet",
				"Je uitgaven drukken soms op je cashflow",
				"Je uitgaven zijn vaak te hoog",
			},
			model.KeyBufferBehavior: {
				"Je hebt een goede financiële buffer",
				"Je buffer is beperkt",
				"Je buffer is erg klein",
			},
			model.KeyTrendMomentum: {
				"Je omzettrend is stijgend",
				"Je omzet blijft ongeveer gelijk",
				"Je omzettrend is dalend",
			},
			model.KeyShockRecovery: {
				"Je herstelt snel na mindere dagen",
				"Je herstel na dips is gemiddeld",
				"Het duurt lang voordat je herstelt na een dip",
			},
		},
		tips: map[string][]string{
			model.KeyDataDiscipline: {
				"Probeer elke dag je omzet in te voeren, ook als het R0 is",
				"Stel een dagelijkse herinnering in om je cijfers bij te werken",
			},
			model.KeyRevenueStability: {
				"Probeer je inkomstenbronnen te diversifiëren",
				"Analyseer welke dagen het beste presteren en waarom",
			},
			model.KeyExpensePressure: {
				"Bekijk je grootste uitgavenposten en kijk waar je kunt besparen",
				"Probeer je uitgaven op minder dan 70% van je omzet te houden",
			},
			model.KeyBufferBehavior: {
				"Probeer minimaal 3 dagen aan uitgaven als buffer aan te houden",
				"Leg elke week een klein bedrag opzij als noodreserve",
			},
			model.KeyTrendMomentum: {
				"Focus op activiteiten die vorige week goed werkten",
				"Probeer je omzet week-over-week te verhogen met kleine stappen",
			},
			model.KeyShockRecovery: {
				"Maak een noodplan voor dagen met lage omzet",
				"Bouw relaties op met klanten voor meer voorspelbare inkomsten",
			},
		},
		lookback:   "Gebaseerd op de laatste %d dagen",
		confidence: "Betrouwbaarheid: %d%%",
		disclaimer: "Deze uitleg is alleen ter informatie en vormt geen financieel advies. " +
			"Score v1 is experimenteel en gebaseerd op zelf-gerapporteerde cashflowdata.",
		goingWell: "Wat gaat goed:",
		watchFor:  "Aandachtspunten:",
		tipsTitle: "💡 Tips:",
	},
	English: {
		labels: map[string]labelSet{
			model.KeyDataDiscipline: {
				"Consistent daily data submission",
				"Irregular data submission pattern",
				"Insufficient data submission frequency",
			},
			model.KeyRevenueStability: {
				"Revenue stream is stable",
				"Revenue shows moderate variability",
				"Revenue exhibits high day-to-day volatility",
			},
			model.KeyExpensePressure: {
				"Expenses are well-proportioned relative to revenue",
				"Expenses occasionally pressure cashflow",
				"Expenses frequently exceed sustainable levels",
			},
			model.KeyBufferBehavior: {
				"Adequate financial buffer maintained",
				"Limited cash reserves available",
				"Critically low cash buffer",
			},
			model.KeyTrendMomentum: {
				"Revenue trend is upward",
				"Revenue trend is flat",
				"Revenue trend is declining",
			},
			model.KeyShockRecovery: {
				"Quick recovery after revenue dips",
				"Average recovery time after setbacks",
				"Slow recovery following revenue disruptions",
			},
		},
		tips: map[string][]string{
			model.KeyDataDiscipline: {
				"Submit daily entries consistently, even on zero-revenue days",
				"Set a daily reminder to log financial data",
			},
			model.KeyRevenueStability: {
				"Diversify revenue sources to reduce volatility",
				"Identify peak days and replicate successful patterns",
			},
			model.KeyExpensePressure: {
				"Review largest expense categories for reduction opportunities",
				"Target expense-to-revenue ratio below 70%",
			},
			model.KeyBufferBehavior: {
				"Maintain at least 3 days of expenses as cash reserves",
				"Set aside a small amount weekly as emergency buffer",
			},
			model.KeyTrendMomentum: {
				"Double down on activities that drove recent revenue growth",
				"Set incremental weekly revenue targets",
			},
			model.KeyShockRecovery: {
				"Develop a contingency plan for low-revenue periods",
				"Build recurring customer relationships for income stability",
			},
		},
		lookback:   "Based on the last %d days",
		confidence: "Data confidence: %d%%",
		disclaimer: "CredBuddy provides data-driven credit risk insights for informational purposes only. " +
			"CredBuddy does not provide financial advice, credit decisions, or recommendations. " +
			"The final decision remains entirely with the user or authorized partner. " +
			"Score v1 is experimental and based on self-reported cashflow data.",
		goingWell: "What's going well:",
		watchFor:  "Watch for:",
		tipsTitle: "💡 Tips:",
	},
}

// pack returns the tables for lang; unknown languages use Dutch.
func pack(lang Language) *langPack {
	if p, ok := packs[lang]; ok {
		return p
	}
	return packs[Dutch]
}

// Disclaimer returns the full disclaimer sentence for lang.
func Disclaimer(lang Language) string {
	return pack(lang).disclaimer
}
