// Package catalog holds the immutable VIA strength taxonomy: 24 strengths
// grouped into 6 virtue categories. The tables are fixed at compile time and
// never mutated by the application.
package catalog

// StrengthItem describes a single character strength.
type StrengthItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Emoji       string   `json:"emoji"`
	Description string   `json:"description"`
	Examples    []string `json:"examples"`
}

// StrengthCategory groups strengths under a virtue.
type StrengthCategory struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Emoji     string         `json:"emoji"`
	Color     string         `json:"color"`
	Strengths []StrengthItem `json:"strengths"`
}

var categories = []StrengthCategory{
	{
		ID: "wisdom", Name: "지혜", Emoji: "🦉", Color: "#F59E0B",
		Strengths: []StrengthItem{
			{ID: "creativity", Name: "창의성", Emoji: "🎨", Description: "새롭고 독창적인 방법으로 생각하고 표현해요.", Examples: []string{"재활용 재료로 나만의 작품을 만들었어요.", "문제를 남들과 다른 방법으로 풀었어요."}},
			{ID: "curiosity", Name: "호기심", Emoji: "🔍", Description: "궁금한 것을 끝까지 알아보고 탐구해요.", Examples: []string{"궁금한 내용을 도서관에서 직접 찾아봤어요."}},
			{ID: "judgment", Name: "판단력", Emoji: "🧐", Description: "여러 면을 따져 보고 신중하게 결론을 내려요.", Examples: []string{"친구들의 의견을 모두 듣고 가장 좋은 방법을 골랐어요."}},
			{ID: "love-of-learning", Name: "학구열", Emoji: "📚", Description: "새로운 것을 배우는 일 자체를 즐겨요.", Examples: []string{"수업이 끝난 뒤에도 스스로 더 공부했어요."}},
			{ID: "perspective", Name: "통찰", Emoji: "🔭", Description: "전체를 넓게 보고 현명한 조언을 해요.", Examples: []string{"다투는 친구들에게 서로의 입장을 설명해 줬어요."}},
		},
	},
	{
		ID: "courage", Name: "용기", Emoji: "🦁", Color: "#EF4444",
		Strengths: []StrengthItem{
			{ID: "bravery", Name: "용감성", Emoji: "🦸", Description: "두려워도 옳다고 믿는 일을 해요.", Examples: []string{"발표 시간에 제일 먼저 손을 들고 의견을 말했어요."}},
			{ID: "perseverance", Name: "끈기", Emoji: "🧗", Description: "어려워도 포기하지 않고 끝까지 해내요.", Examples: []string{"어려운 수학 문제를 세 번이나 다시 풀어 맞혔어요."}},
			{ID: "honesty", Name: "정직", Emoji: "💎", Description: "사실을 있는 그대로 말하고 행동해요.", Examples: []string{"주운 돈을 바로 선생님께 가져다 드렸어요."}},
			{ID: "zest", Name: "활력", Emoji: "⚡", Description: "무슨 일이든 신나게, 힘차게 해요.", Examples: []string{"체육 시간에 누구보다 열심히 뛰었어요."}},
		},
	},
	{
		ID: "humanity", Name: "인간애", Emoji: "💗", Color: "#EC4899",
		Strengths: []StrengthItem{
			{ID: "love", Name: "사랑", Emoji: "💕", Description: "가까운 사람을 아끼고 마음을 표현해요.", Examples: []string{"부모님 생신에 직접 쓴 편지를 드렸어요."}},
			{ID: "kindness", Name: "친절", Emoji: "🤝", Description: "다른 사람을 먼저 돕고 배려해요.", Examples: []string{"혼자 앉아 있는 전학생에게 먼저 말을 걸었어요."}},
			{ID: "social-intelligence", Name: "사회지능", Emoji: "🧠", Description: "다른 사람의 기분과 마음을 잘 알아차려요.", Examples: []string{"다툰 친구들의 이야기를 듣고 화해시켜 줬어요."}},
		},
	},
	{
		ID: "justice", Name: "정의", Emoji: "⚖️", Color: "#3B82F6",
		Strengths: []StrengthItem{
			{ID: "teamwork", Name: "협동심", Emoji: "👥", Description: "모둠 친구들과 힘을 모아 함께 해내요.", Examples: []string{"모둠 과제에서 역할을 나누고 함께 완성했어요."}},
			{ID: "fairness", Name: "공정성", Emoji: "🟰", Description: "모두에게 공평하게 기회를 나눠요.", Examples: []string{"발표 기회를 아직 못 가진 친구에게 양보했어요."}},
			{ID: "leadership", Name: "리더십", Emoji: "🎯", Description: "친구들을 이끌어 함께 목표를 이뤄요.", Examples: []string{"모둠장으로서 모두의 의견을 듣고 방향을 정했어요."}},
		},
	},
	{
		ID: "temperance", Name: "절제", Emoji: "🧘", Color: "#10B981",
		Strengths: []StrengthItem{
			{ID: "forgiveness", Name: "용서", Emoji: "🕊️", Description: "잘못한 친구에게 다시 기회를 줘요.", Examples: []string{"사과한 친구를 너그럽게 받아 줬어요."}},
			{ID: "humility", Name: "겸손", Emoji: "🙏", Description: "잘한 일을 스스로 자랑하지 않아요.", Examples: []string{"상을 받고도 친구들 덕분이라고 말했어요."}},
			{ID: "prudence", Name: "신중함", Emoji: "🤔", Description: "행동하기 전에 한 번 더 생각해요.", Examples: []string{"위험한 놀이를 하기 전에 먼저 안전을 확인했어요."}},
			{ID: "self-regulation", Name: "자기조절", Emoji: "🎚️", Description: "하고 싶은 것을 참고 해야 할 일을 먼저 해요.", Examples: []string{"게임보다 숙제를 먼저 끝냈어요."}},
		},
	},
	{
		ID: "transcendence", Name: "초월", Emoji: "✨", Color: "#8B5CF6",
		Strengths: []StrengthItem{
			{ID: "appreciation-of-beauty", Name: "심미안", Emoji: "🌄", Description: "아름다운 것, 훌륭한 것을 알아보고 감동해요.", Examples: []string{"친구의 그림을 보고 좋은 점을 찾아 칭찬했어요."}},
			{ID: "gratitude", Name: "감사", Emoji: "🍀", Description: "고마운 일을 알아차리고 표현해요.", Examples: []string{"급식 선생님께 매일 감사 인사를 드렸어요."}},
			{ID: "hope", Name: "희망", Emoji: "🌈", Description: "잘될 거라고 믿고 끝까지 응원해요.", Examples: []string{"지고 있어도 끝까지 우리 반을 응원했어요."}},
			{ID: "humor", Name: "유머", Emoji: "😄", Description: "웃음으로 주변을 밝게 만들어요.", Examples: []string{"속상해하는 친구를 재미있는 이야기로 웃게 했어요."}},
			{ID: "spirituality", Name: "의미발견", Emoji: "🌟", Description: "작은 일에서도 의미와 보람을 찾아요.", Examples: []string{"봉사활동이 왜 소중한지 친구들에게 이야기했어요."}},
		},
	},
}

var byID map[string]StrengthItem

func init() {
	byID = make(map[string]StrengthItem, 24)
	for _, cat := range categories {
		for _, s := range cat.Strengths {
			byID[s.ID] = s
		}
	}
}

// Categories returns the full taxonomy in display order.
func Categories() []StrengthCategory {
	return categories
}

// Lookup resolves a strength by its identifier.
func Lookup(id string) (StrengthItem, bool) {
	s, ok := byID[id]
	return s, ok
}

// Exists reports whether the identifier names a known strength.
func Exists(id string) bool {
	_, ok := byID[id]
	return ok
}

// DisplayName returns the localized name for a strength id, falling back to
// the raw id for unknown values so renderings never drop data.
func DisplayName(id string) string {
	if s, ok := byID[id]; ok {
		return s.Name
	}
	return id
}
