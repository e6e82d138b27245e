package service

// BadgeTier 表示连续打卡对应的徽章档位
type BadgeTier string

// 徽章档位，阈值与前端展示保持一致：
// <7 无徽章，7-13 great，14-29 amazing，>=30 legendary
const (
	BadgeNone      BadgeTier = ""
	BadgeGreat     BadgeTier = "great"
	BadgeAmazing   BadgeTier = "amazing"
	BadgeLegendary BadgeTier = "legendary"
)

// ClassifyBadge 将连续打卡长度映射为徽章档位，纯函数无状态
func ClassifyBadge(streak int) BadgeTier {
	switch {
	case streak >= 30:
		return BadgeLegendary
	case streak >= 14:
		return BadgeAmazing
	case streak >= 7:
		return BadgeGreat
	default:
		return BadgeNone
	}
}
