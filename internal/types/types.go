package types

// AnalyzeRequest is the body sent to the scoring service and accepted by /api/analyze
type AnalyzeRequest struct {
	VideoURL string `json:"video_url"`
}

// Thumbnail carries the service's thumbnail reference; either field may be blank
type Thumbnail struct {
	LocalPath string `json:"local_path"`
	URL       string `json:"url"`
}

// EngagementComponents holds the per-view interaction ratios behind the EVI
type EngagementComponents struct {
	LikesRatio    *float64 `json:"likes_ratio" validate:"required"`
	SharesRatio   *float64 `json:"shares_ratio" validate:"required"`
	CommentsRatio *float64 `json:"comments_ratio" validate:"required"`
	CollectRatio  *float64 `json:"collect_ratio" validate:"required"`
}

// EngagementIndex is the engagement value index (EVI):
// 0.1*likes + 0.4*shares + 0.3*comments + 0.2*collects
type EngagementIndex struct {
	EVI        *float64              `json:"EVI" validate:"required"`
	Components *EngagementComponents `json:"components" validate:"required"`
}

// ContentQuality is the community and content quality multiplier:
// Mquality = 0.5*positivity + 0.5*(1-toxicity)
type ContentQuality struct {
	PositivityRate *float64 `json:"positivity_rate" validate:"required"`
	ToxicityRate   *float64 `json:"toxicity_rate" validate:"required"`
	Mquality       *float64 `json:"Mquality" validate:"required"`
}

// AIGCIntegrity is the AI-generated content discount:
// Mintegrity = 1 - 0.25*min(1, probability)
type AIGCIntegrity struct {
	ProbabilityAIGC *float64               `json:"probability_aigc" validate:"required"`
	Mintegrity      *float64               `json:"Mintegrity" validate:"required"`
	AnalysisDetail  map[string]interface{} `json:"analysis_detail,omitempty"`
}

// MissionBonus is the inclusivity index:
// Bmission = 1 + 0.1*[small creator] + 0.1*[underrepresented country]
type MissionBonus struct {
	SmallCreator            *bool    `json:"small_creator" validate:"required"`
	UnderrepresentedCountry *bool    `json:"underrepresented_country" validate:"required"`
	Bmission                *float64 `json:"Bmission" validate:"required"`
}

// ScoreReport is the scoring service's response for one video.
// Numeric fields are pointers so a missing key can be told apart from zero.
type ScoreReport struct {
	VideoURL        string                 `json:"video_url,omitempty"`
	RewardScore     *float64               `json:"reward_score" validate:"required"`
	Thumbnail       *Thumbnail             `json:"thumbnail,omitempty"`
	VideoStats      map[string]interface{} `json:"video_stats,omitempty"`
	EngagementIndex *EngagementIndex       `json:"engagement_index" validate:"required"`
	ContentQuality  *ContentQuality        `json:"content_quality" validate:"required"`
	AIGCIntegrity   *AIGCIntegrity         `json:"aigc_integrity" validate:"required"`
	MissionBonus    *MissionBonus          `json:"mission_bonus" validate:"required"`
	Error           string                 `json:"error,omitempty"`
}

// Float dereferences an optional number, treating nil as zero
func Float(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

// Bool dereferences an optional flag, treating nil as false
func Bool(v *bool) bool {
	if v == nil {
		return false
	}
	return *v
}

// F64 returns a pointer to v; handy for building reports in code and tests
func F64(v float64) *float64 {
	return &v
}

// B returns a pointer to v
func B(v bool) *bool {
	return &v
}
