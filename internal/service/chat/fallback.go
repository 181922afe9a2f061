package chat

import (
	"fmt"
	"strings"

	"github.com/igame-lab/assistant/clock"
)

// Bank holds the canned replies served when no live generation service can
// answer. Rules are evaluated in a fixed priority order; the first keyword
// hit wins, and an unmatched message gets the generic degraded-mode reply.
type Bank struct {
	clock    clock.Clock
	timezone string
	rules    []rule
}

type rule struct {
	keywords []string
	reply    func() string
}

func (b *Bank) Reply(message string) string {
	lower := strings.ToLower(message)

	for _, r := range b.rules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.reply()
			}
		}
	}

	return "我目前处于离线模式，无法连接到AI服务。不过我可以为您提供一些关于iGame实验室的基本信息，或者解答简单的通用问题。如果您的问题比较复杂，请稍后重试。"
}

func (b *Bank) timeReply() string {
	fact := clock.Describe(b.clock, b.timezone, clock.FormatFull)
	return fmt.Sprintf("当前时间 (%s): %s", fact.Timezone, fact.Value)
}

func static(reply string) func() string {
	return func() string { return reply }
}

func NewBank(c clock.Clock, timezone string) *Bank {
	b := &Bank{
		clock:    c,
		timezone: timezone,
	}

	b.rules = []rule{
		{
			keywords: []string{"几点", "时间", "现在", "what time", "current time"},
			reply:    b.timeReply,
		},
		{
			keywords: []string{"你好", "hello", "hi"},
			reply:    static("您好！我是iGame实验室的AI助手，很高兴为您服务！"),
		},
		{
			keywords: []string{"谢谢", "thank"},
			reply:    static("不用谢！如果您还有其他问题，我很乐意为您解答。"),
		},
		{
			keywords: []string{"你是谁", "what are you"},
			reply:    static("我是iGame实验室的AI助手，可以回答关于实验室的问题，也可以帮助解答一般的疑问。"),
		},
		{
			keywords: []string{"多少人", "规模", "成员"},
			reply:    static("iGame实验室共有6名教师（1名教授，3名副教授，2名讲师），40多名研究生，3名博士研究生。"),
		},
		{
			keywords: []string{"负责人", "徐岗", "教授"},
			reply:    static("iGame实验室负责人是徐岗教授。"),
		},
		{
			keywords: []string{"研究", "方向"},
			reply:    static("iGame实验室主要研究方向包括：计算机辅助设计与仿真、等几何分析、计算机视觉、机器学习。"),
		},
		{
			keywords: []string{"学校", "大学", "杭州电子科技大学"},
			reply:    static("iGame实验室属于杭州电子科技大学计算机学院图形图像所。"),
		},
		{
			keywords: []string{"实验室", "igame"},
			reply:    static("iGame实验室（智能可视化与仿真实验室）专注于计算机辅助设计与仿真、等几何分析、计算机视觉和机器学习等领域的研究。如需了解具体项目或最新动态，请访问实验室官网。"),
		},
	}

	return b
}
