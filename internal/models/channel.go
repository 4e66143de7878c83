package models

// Channel 板块，静态参考数据
type Channel struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"uniqueIndex;size:50;not null" json:"slug"`
	Name string `gorm:"not null" json:"name"`
	Icon string `json:"icon"`
}

const (
	DefaultChannelID = 1
	HollowSlug       = "hollow" // 树洞：匿名心事 + 漂流瓶
)
