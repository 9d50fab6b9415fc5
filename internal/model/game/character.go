package game

// AbilityScores holds the six core ability values.
type AbilityScores struct {
	Strength     int `json:"strength"`
	Dexterity    int `json:"dexterity"`
	Constitution int `json:"constitution"`
	Intelligence int `json:"intelligence"`
	Wisdom       int `json:"wisdom"`
	Charisma     int `json:"charisma"`
}

// Character is one player's persona within a session. A player has at most
// one character per session.
type Character struct {
	ID         int64         `json:"id"`
	SessionID  int64         `json:"sessionId"`
	PlayerID   int64         `json:"playerId"`
	PlayerName string        `json:"playerName"`
	Name       string        `json:"name"`
	Race       string        `json:"race"`
	Class      string        `json:"class"`
	Level      int           `json:"level"`
	HP         int           `json:"hp"`
	MaxHP      int           `json:"maxHp"`
	ArmorClass int           `json:"armorClass"`
	Abilities  AbilityScores `json:"abilities"`
	Inventory  string        `json:"inventory,omitempty"`
}
