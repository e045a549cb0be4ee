package models

// Two derivations share the approved-observation count and must stay
// separate: the persisted garden level steps every 3 approvals and caps at
// 10, while the presentation growth stage uses its own irregular thresholds.
// Different screens consume different ones.

const (
	gardenLevelStep = 3
	gardenLevelCap  = 10
)

// CalcGardenLevel derives the persisted garden level from the approved
// observation count: one level per three approvals, capped at 10.
func CalcGardenLevel(approvedCount int) int {
	if approvedCount < 0 {
		approvedCount = 0
	}
	level := approvedCount / gardenLevelStep
	if level > gardenLevelCap {
		return gardenLevelCap
	}
	return level
}

// GrowthStage is a presentation-only tier of the student garden.
type GrowthStage struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Emoji     string `json:"emoji"`
	Label     string `json:"label"`
	Threshold int    `json:"threshold"`
}

var growthStages = []GrowthStage{
	{Index: 0, Name: "빈 땅", Emoji: "🌑", Label: "씨앗을 심어볼까요?", Threshold: 0},
	{Index: 1, Name: "새싹", Emoji: "🌱", Label: "작은 새싹이 돋아났어요!", Threshold: 1},
	{Index: 2, Name: "성장", Emoji: "🌿", Label: "쑥쑥 자라고 있어요!", Threshold: 4},
	{Index: 3, Name: "꽃봉오리", Emoji: "🌷", Label: "곧 꽃이 필 거예요!", Threshold: 8},
	{Index: 4, Name: "꽃밭", Emoji: "🌸", Label: "아름다운 꽃밭이에요!", Threshold: 13},
	{Index: 5, Name: "마법의 정원", Emoji: "🌺", Label: "환상적인 정원 완성!", Threshold: 20},
}

// GrowthStageFor maps an approved-observation count onto its growth stage.
func GrowthStageFor(approvedCount int) GrowthStage {
	stage := growthStages[0]
	for _, s := range growthStages {
		if approvedCount >= s.Threshold {
			stage = s
		}
	}
	return stage
}

// NextGrowthStage returns the first stage above the given count, or nil when
// the garden is already at the final tier.
func NextGrowthStage(approvedCount int) *GrowthStage {
	for i := range growthStages {
		if growthStages[i].Threshold > approvedCount {
			return &growthStages[i]
		}
	}
	return nil
}

// GrowthStages returns the full tier table in ascending order.
func GrowthStages() []GrowthStage {
	return growthStages
}
