package game

import (
	"context"
	"fmt"

	"github.com/arcwright/gamemaster/internal/model/game"
	"github.com/arcwright/gamemaster/internal/store"
)

// Recorder appends turn transcripts. Rows are append-only; delivery is
// at-least-once from the caller's perspective.
type Recorder struct {
	store store.Store
}

// NewRecorder creates a Recorder over the given store.
func NewRecorder(st store.Store) *Recorder {
	return &Recorder{store: st}
}

// Record appends a single transcript row.
func (r *Recorder) Record(ctx context.Context, sessionID int64, sender, content string) error {
	return r.store.AppendEntry(ctx, game.TranscriptEntry{
		SessionID: sessionID,
		Sender:    sender,
		Content:   content,
	})
}

// RecordExchange appends one full turn: the player's utterance followed by
// the narrator's reply.
func (r *Recorder) RecordExchange(ctx context.Context, sessionID int64, playerLabel, playerText, narratorText string) error {
	if err := r.Record(ctx, sessionID, playerLabel, playerText); err != nil {
		return fmt.Errorf("record player entry: %w", err)
	}
	if err := r.Record(ctx, sessionID, game.NarratorSender, narratorText); err != nil {
		return fmt.Errorf("record narrator entry: %w", err)
	}
	return nil
}
