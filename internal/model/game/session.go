package game

import "time"

// Session captures one ongoing campaign bound to a single chat. At most one
// session per chat is active at a time.
type Session struct {
	ID                 int64     `json:"id"`
	ChatID             int64     `json:"chatId"`
	StartedAt          time.Time `json:"startedAt"`
	IsActive           bool      `json:"isActive"`
	CampaignName       string    `json:"campaignName"`
	CampaignType       string    `json:"campaignType"`
	SettingDescription string    `json:"settingDescription"`
	CurrentLocation    string    `json:"currentLocation"`
	CurrentQuest       string    `json:"currentQuest"`
}
