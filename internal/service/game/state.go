package game

import "sync"

// Mode governs how the next inbound message from a chat is interpreted.
type Mode int

const (
	// ModeIdle means no game is running in the chat.
	ModeIdle Mode = iota
	// ModeAwaitingCampaignChoice means campaign options were proposed and a
	// numeric choice is expected.
	ModeAwaitingCampaignChoice
	// ModeAwaitingCharacterChoice means character options were proposed and a
	// numeric choice is expected.
	ModeAwaitingCharacterChoice
	// ModeInGame means utterances are treated as in-game actions.
	ModeInGame
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeAwaitingCampaignChoice:
		return "awaiting-campaign-choice"
	case ModeAwaitingCharacterChoice:
		return "awaiting-character-choice"
	case ModeInGame:
		return "in-game"
	default:
		return "unknown"
	}
}

// chatState is the per-chat conversational state. The mutex serializes all
// message handling for the chat; chats never share a lock.
type chatState struct {
	mu           sync.Mutex
	mode         Mode
	optionsText  string
	sessionID    int64
	voiceEnabled bool
	bootstrapped bool
}
