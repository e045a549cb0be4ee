package service

// reportExample is a finished behavioral report used as a style reference
// when drafting in example-based mode.
type reportExample struct {
	Label string
	Text  string
}

// Reference library for the example-based prompt. Each text follows the
// clipped '~함/~임' register required for the final record.
var reportExamples = []reportExample{
	{
		Label: "리더십·협동",
		Text:  "학급 회의에서 친구들의 의견을 끝까지 듣고 정리하여 합리적인 결론을 이끌어내는 모습이 인상적임. 모둠 과제에서 역할을 공정하게 나누고 뒤처지는 친구를 기다려주는 등 배려심이 돋보임. 동료 학생들로부터 함께 활동하고 싶은 친구라는 긍정적인 평가를 받음. 체육대회 준비 과정에서 연습 일정을 스스로 계획하고 실천하는 등 자기관리 능력이 뛰어남. 앞으로 학급을 이끄는 리더로 성장할 것으로 기대됨.",
	},
	{
		Label: "끈기·성실",
		Text:  "수학 문제가 풀리지 않아도 포기하지 않고 여러 방법을 시도하여 끝내 해결하는 끈기가 돋보임. 아침 독서 시간을 한 번도 거르지 않고 꾸준히 참여하여 독서 습관이 잘 형성되어 있음. 급식 당번이나 청소 활동 등 맡은 일을 책임감 있게 끝까지 해내는 모습을 자주 보임. 발표에 소극적인 면이 있었으나 모둠 발표를 거듭하며 목소리가 커지고 자신감이 생기는 등 꾸준한 발전 가능성을 보임.",
	},
	{
		Label: "호기심·탐구",
		Text:  "과학 실험 시간에 결과가 예상과 다르게 나오자 그 이유를 스스로 찾아보고 다음 날 정리해 와서 친구들에게 설명하는 등 지적 호기심이 왕성함. 수업 중 배운 내용을 일상생활과 연결 지어 질문하는 모습이 자주 관찰됨. 동료 학생들로부터 모르는 것을 물어보면 친절하게 알려준다는 긍정적인 평가를 받음. 관심 분야를 깊이 파고드는 탐구 태도를 바탕으로 크게 성장할 것으로 기대됨.",
	},
}
