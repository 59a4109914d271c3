package dashboard

import (
	"strings"

	"github.com/ZanzyTHEbar/brightshare/internal/types"
)

// Metric is one labelled constituent value
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Node is one rendered node of the hierarchy
type Node struct {
	ID          NodeID       `json:"id"`
	Title       string       `json:"title"`
	Value       string       `json:"value"`
	Metrics     []Metric     `json:"metrics,omitempty"`
	Open        bool         `json:"open"`
	Explanation *Explanation `json:"explanation,omitempty"`
}

// ViewModel is everything the page needs to draw one report
type ViewModel struct {
	Language     string `json:"language"`
	VideoURL     string `json:"video_url,omitempty"`
	ThumbnailURL string `json:"thumbnail_url,omitempty"`
	Composite    Node   `json:"composite"`
	Factors      []Node `json:"factors"`
}

// Nodes returns the composite node followed by the four factors
func (vm *ViewModel) Nodes() []Node {
	return append([]Node{vm.Composite}, vm.Factors...)
}

// Render builds the view for report. It returns nil when there is no report.
// The full hierarchy is always present; state only decides which
// explanations are attached.
func Render(report *types.ScoreReport, state DisclosureState, loc *Localizer) *ViewModel {
	if report == nil {
		return nil
	}
	if loc == nil {
		loc = NewLocalizer("", "en")
	}

	vm := &ViewModel{
		Language: loc.Language(),
		VideoURL: report.VideoURL,
	}
	if report.Thumbnail != nil {
		vm.ThumbnailURL = strings.TrimSpace(report.Thumbnail.URL)
	}

	vm.Composite = node(NodeComposite, loc.T(msgRewardScore), FormatFixed(types.Float(report.RewardScore), compositePlaces), nil, state)

	var (
		engagement = report.EngagementIndex
		components = &types.EngagementComponents{}
		quality    = report.ContentQuality
		integrity  = report.AIGCIntegrity
		mission    = report.MissionBonus
	)
	if engagement == nil {
		engagement = &types.EngagementIndex{}
	}
	if engagement.Components != nil {
		components = engagement.Components
	}
	if quality == nil {
		quality = &types.ContentQuality{}
	}
	if integrity == nil {
		integrity = &types.AIGCIntegrity{}
	}
	if mission == nil {
		mission = &types.MissionBonus{}
	}

	vm.Factors = []Node{
		node(NodeEngagement, loc.T(msgEngagement), FormatFixed(types.Float(engagement.EVI), eviPlaces), []Metric{
			{Label: loc.T(msgLikesRatio), Value: FormatFixed(types.Float(components.LikesRatio), ratioPlaces)},
			{Label: loc.T(msgSharesRatio), Value: FormatFixed(types.Float(components.SharesRatio), ratioPlaces)},
			{Label: loc.T(msgCommentsRatio), Value: FormatFixed(types.Float(components.CommentsRatio), ratioPlaces)},
			{Label: loc.T(msgCollectsRatio), Value: FormatFixed(types.Float(components.CollectRatio), ratioPlaces)},
		}, state),
		node(NodeContent, loc.T(msgContent), FormatFixed(types.Float(quality.Mquality), qualityPlaces), []Metric{
			{Label: loc.T(msgPositivity), Value: FormatFixed(types.Float(quality.PositivityRate), ratioPlaces)},
			{Label: loc.T(msgToxicity), Value: FormatFixed(types.Float(quality.ToxicityRate), ratioPlaces)},
		}, state),
		node(NodeAIGC, loc.T(msgAIGC), FormatFixed(types.Float(integrity.Mintegrity), integrityPlaces), []Metric{
			{Label: loc.T(msgAIGCProbability), Value: FormatPercent(types.Float(integrity.ProbabilityAIGC), percentPlaces)},
		}, state),
		node(NodeMission, loc.T(msgMission), FormatFixed(types.Float(mission.Bmission), inclusivityPlaces), []Metric{
			{Label: loc.T(msgSmallCreator), Value: loc.YesNo(types.Bool(mission.SmallCreator))},
			{Label: loc.T(msgUnderrepresented), Value: loc.YesNo(types.Bool(mission.UnderrepresentedCountry))},
		}, state),
	}

	return vm
}

func node(id NodeID, title, value string, metrics []Metric, state DisclosureState) Node {
	n := Node{
		ID:      id,
		Title:   title,
		Value:   value,
		Metrics: metrics,
		Open:    state.IsOpen(id),
	}
	if exp, ok := ExplanationFor(id); ok && n.Open {
		n.Explanation = &exp
	}
	return n
}

// Labels are the localized strings the page uses outside the hierarchy
type Labels struct {
	Analyze     string
	Analyzing   string
	ShowFormula string
	HideFormula string
}

// PageLabels returns the localized page labels
func PageLabels(loc *Localizer) Labels {
	return Labels{
		Analyze:     loc.T(msgAnalyze),
		Analyzing:   loc.T(msgAnalyzing),
		ShowFormula: loc.T(msgShowFormula),
		HideFormula: loc.T(msgHideFormula),
	}
}
