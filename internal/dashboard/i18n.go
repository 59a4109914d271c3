package dashboard

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

// Message keys. English text doubles as the key.
const (
	msgYes = "Yes"
	msgNo  = "No"

	msgRewardScore      = "Reward Score"
	msgEngagement       = "Engagement Value Index"
	msgContent          = "Community & Content Quality"
	msgAIGC             = "AIGC Integrity"
	msgMission          = "Inclusivity Bonus"
	msgLikesRatio       = "Likes Ratio"
	msgSharesRatio      = "Shares Ratio"
	msgCommentsRatio    = "Comments Ratio"
	msgCollectsRatio    = "Collects Ratio"
	msgPositivity       = "Positivity Score"
	msgToxicity         = "Toxicity Score"
	msgAIGCProbability  = "AIGC Probability"
	msgSmallCreator     = "Small Creator"
	msgUnderrepresented = "Underrepresented Country"
	msgAnalyze          = "Analyze"
	msgAnalyzing        = "Analyzing…"
	msgShowFormula      = "Show formula"
	msgHideFormula      = "Hide formula"
)

var supportedLanguages = []language.Tag{language.English, language.Spanish}

var translations = map[language.Tag]map[string]string{
	language.Spanish: {
		msgYes:              "Sí",
		msgNo:               "No",
		msgRewardScore:      "Puntuación de recompensa",
		msgEngagement:       "Índice de valor de interacción",
		msgContent:          "Calidad de comunidad y contenido",
		msgAIGC:             "Integridad AIGC",
		msgMission:          "Bono de inclusión",
		msgLikesRatio:       "Proporción de me gusta",
		msgSharesRatio:      "Proporción de compartidos",
		msgCommentsRatio:    "Proporción de comentarios",
		msgCollectsRatio:    "Proporción de guardados",
		msgPositivity:       "Puntuación de positividad",
		msgToxicity:         "Puntuación de toxicidad",
		msgAIGCProbability:  "Probabilidad AIGC",
		msgSmallCreator:     "Creador pequeño",
		msgUnderrepresented: "País subrepresentado",
		msgAnalyze:          "Analizar",
		msgAnalyzing:        "Analizando…",
		msgShowFormula:      "Ver fórmula",
		msgHideFormula:      "Ocultar fórmula",
	},
}

var (
	labelCatalog = buildCatalog()
	matcher      = language.NewMatcher(supportedLanguages)
)

func buildCatalog() catalog.Catalog {
	b := catalog.NewBuilder(catalog.Fallback(language.English))
	for tag, msgs := range translations {
		for key, msg := range msgs {
			if err := b.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	return b
}

// Localizer renders dashboard labels in one language
type Localizer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewLocalizer picks the best supported language for an Accept-Language style
// preference list, falling back to fallback and then English.
func NewLocalizer(preferred string, fallback string) *Localizer {
	tags, _, err := language.ParseAcceptLanguage(preferred)
	if err != nil || len(tags) == 0 {
		tags = nil
	}
	if fb, err := language.Parse(fallback); err == nil {
		tags = append(tags, fb)
	}

	_, idx, conf := matcher.Match(tags...)
	tag := supportedLanguages[idx]
	if conf == language.No {
		tag = language.English
	}

	return &Localizer{
		tag:     tag,
		printer: message.NewPrinter(tag, message.Catalog(labelCatalog)),
	}
}

// Language returns the BCP 47 tag the localizer renders in
func (l *Localizer) Language() string {
	return l.tag.String()
}

// T translates a label key
func (l *Localizer) T(key string) string {
	if l == nil {
		return key
	}
	return l.printer.Sprintf(key)
}

// YesNo renders a boolean as the localized yes/no pair
func (l *Localizer) YesNo(v bool) string {
	if v {
		return l.T(msgYes)
	}
	return l.T(msgNo)
}
