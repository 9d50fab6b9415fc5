package game

import (
	"context"
	"fmt"
	"strings"

	"github.com/arcwright/gamemaster/internal/model/game"
	"github.com/arcwright/gamemaster/internal/store"
)

// HistoryLimit bounds how many transcript entries the assembled context may
// carry. Anything older is invisible to subsequent generation calls, an
// intentional memory horizon.
const HistoryLimit = 10

// Assembler renders persisted session state into the textual context block
// handed to the generation backend. The layout is fixed so identical rows
// always render identically.
type Assembler struct {
	store store.Store
}

// NewAssembler creates an Assembler over the given store.
func NewAssembler(st store.Store) *Assembler {
	return &Assembler{store: st}
}

// BuildContext renders the context block for a session: campaign header,
// one block per character in insertion order, then the most recent
// HistoryLimit transcript entries oldest-first. Returns
// store.ErrSessionNotFound when the session does not exist.
func (a *Assembler) BuildContext(ctx context.Context, sessionID int64) (string, error) {
	session, err := a.store.GetSession(ctx, sessionID)
	if err != nil {
		return "", err
	}

	characters, err := a.store.Characters(ctx, sessionID)
	if err != nil {
		return "", fmt.Errorf("load characters: %w", err)
	}

	entries, err := a.store.RecentEntries(ctx, sessionID, HistoryLimit)
	if err != nil {
		return "", fmt.Errorf("load transcript: %w", err)
	}
	// Entries arrive newest-first; restore chronological order.
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	var b strings.Builder
	b.WriteString("CAMPAIGN DETAILS:\n")
	fmt.Fprintf(&b, "Name: %s\n", session.CampaignName)
	fmt.Fprintf(&b, "Type: %s\n", session.CampaignType)
	fmt.Fprintf(&b, "Current location: %s\n", session.CurrentLocation)
	fmt.Fprintf(&b, "Current quest: %s\n\n", session.CurrentQuest)

	b.WriteString("CHARACTERS:\n")
	for _, c := range characters {
		fmt.Fprintf(&b, "%s: Level %d %s %s (played by %s)\n", c.Name, c.Level, c.Race, c.Class, c.PlayerName)
		fmt.Fprintf(&b, "HP: %d/%d, Stats: STR %d, DEX %d, CON %d, INT %d, WIS %d, CHA %d\n\n",
			c.HP, c.MaxHP,
			c.Abilities.Strength, c.Abilities.Dexterity, c.Abilities.Constitution,
			c.Abilities.Intelligence, c.Abilities.Wisdom, c.Abilities.Charisma)
	}

	b.WriteString("RECENT HISTORY:\n")
	for _, entry := range entries {
		fmt.Fprintf(&b, "%s: %s\n", entry.Sender, entry.Content)
	}

	return b.String(), nil
}

// characterSheet renders one character for the /show_character command.
func characterSheet(c game.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: Level %d %s %s\n", c.Name, c.Level, c.Race, c.Class)
	fmt.Fprintf(&b, "Played by %s\n", c.PlayerName)
	fmt.Fprintf(&b, "HP: %d/%d, AC: %d\n", c.HP, c.MaxHP, c.ArmorClass)
	fmt.Fprintf(&b, "STR %d, DEX %d, CON %d, INT %d, WIS %d, CHA %d",
		c.Abilities.Strength, c.Abilities.Dexterity, c.Abilities.Constitution,
		c.Abilities.Intelligence, c.Abilities.Wisdom, c.Abilities.Charisma)
	if c.Inventory != "" {
		fmt.Fprintf(&b, "\nInventory: %s", c.Inventory)
	}
	return b.String()
}
