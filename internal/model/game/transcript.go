package game

import "time"

// NarratorSender labels transcript entries produced by the game master.
const NarratorSender = "Narrator"

// TranscriptEntry records one line of dialogue or narration. Entries are
// append-only and ordered by timestamp.
type TranscriptEntry struct {
	ID        int64     `json:"id"`
	SessionID int64     `json:"sessionId"`
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
}
