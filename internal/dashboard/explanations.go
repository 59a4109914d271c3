package dashboard

// Explanation is the static panel revealed when a node is open
type Explanation struct {
	Description string   `json:"description"`
	Formula     string   `json:"formula"`
	Notes       []string `json:"notes,omitempty"`
}

var explanations = [nodeCount]Explanation{
	NodeComposite: {
		Description: "Overall value score combining engagement, community quality, AIGC integrity, and inclusivity index.",
		Formula:     "Reward = R_base × M_quality × M_integrity × I_index",
		Notes:       []string{"R_base = Ad Revenue + Gifted (Stickers) + EVI"},
	},
	NodeEngagement: {
		Description: "Measures user interaction related ratio metrics including likes, shares, comments, and collects.",
		Formula:     "EVI = 0.1 × Likes/Views + 0.4 × Shares/Views + 0.3 × Comments/Views + 0.2 × Collects/Views",
	},
	NodeContent: {
		Description: "Analyzes the positivity & toxicity of the video's comment section via NLP sentiment analysis.",
		Formula:     "M_quality = 0.5 × Positivity + 0.5 × (1 − Toxicity)",
		Notes:       []string{"Positivity and toxicity are scored per comment and averaged."},
	},
	NodeAIGC: {
		Description: "Probability that content is AI-generated.",
		Formula:     "M_integrity = 1 − 0.25 × min(1, P_AIGC)",
	},
	NodeMission: {
		Description: "Extra reward for small creators or creators from underrepresented countries.",
		Formula:     "I_index = 1 + 0.1 × 1[small creator] + 0.1 × 1[underrepresented]",
		Notes: []string{
			"Small creator: follower count below the program threshold.",
			"Underrepresented: creator country is on the expansion list.",
		},
	},
}

// ExplanationFor returns the static explanation for id
func ExplanationFor(id NodeID) (Explanation, bool) {
	if !id.Valid() {
		return Explanation{}, false
	}
	return explanations[id], true
}
