package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/arcwright/gamemaster/internal/model/game"
	"github.com/arcwright/gamemaster/internal/store"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open err: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestCreateSessionEnforcesSingleActive(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.CreateSession(ctx, game.Session{ChatID: 42, CampaignName: "First"})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	if _, err := s.CreateSession(ctx, game.Session{ChatID: 42, CampaignName: "Second"}); !errors.Is(err, store.ErrActiveSessionExists) {
		t.Fatalf("expected ErrActiveSessionExists, got %v", err)
	}

	// A different chat is unaffected.
	if _, err := s.CreateSession(ctx, game.Session{ChatID: 43}); err != nil {
		t.Fatalf("CreateSession other chat err: %v", err)
	}

	// Ending the session frees the slot.
	if err := s.EndSession(ctx, first); err != nil {
		t.Fatalf("EndSession err: %v", err)
	}
	if _, err := s.CreateSession(ctx, game.Session{ChatID: 42, CampaignName: "Third"}); err != nil {
		t.Fatalf("CreateSession after end err: %v", err)
	}
}

func TestConcurrentSessionStartsSingleWinner(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = s.CreateSession(ctx, game.Session{ChatID: 7})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else if !errors.Is(err, store.ErrActiveSessionExists) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want 1", winners)
	}
}

func TestActiveSessionLookup(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	if _, err := s.ActiveSession(ctx, 5); !errors.Is(err, store.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}

	id, err := s.CreateSession(ctx, game.Session{
		ChatID:          5,
		CampaignName:    "The Sunken Crown",
		CampaignType:    "Exploration",
		CurrentLocation: "Saltmere",
		CurrentQuest:    "Recover the crown",
	})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	active, err := s.ActiveSession(ctx, 5)
	if err != nil {
		t.Fatalf("ActiveSession err: %v", err)
	}
	if active.ID != id || active.CampaignName != "The Sunken Crown" || !active.IsActive {
		t.Fatalf("unexpected session: %+v", active)
	}
}

func TestCharacterUniquePerPlayer(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx, game.Session{ChatID: 1})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	character := game.Character{
		SessionID:  sessionID,
		PlayerID:   100,
		PlayerName: "Sam",
		Name:       "Thorin",
		Race:       "Dwarf",
		Class:      "Fighter",
		Level:      1,
		HP:         12,
		MaxHP:      12,
		ArmorClass: 16,
		Abilities:  game.AbilityScores{Strength: 16, Dexterity: 12, Constitution: 15, Intelligence: 10, Wisdom: 11, Charisma: 8},
	}
	if _, err := s.CreateCharacter(ctx, character); err != nil {
		t.Fatalf("CreateCharacter err: %v", err)
	}
	if _, err := s.CreateCharacter(ctx, character); !errors.Is(err, store.ErrCharacterExists) {
		t.Fatalf("expected ErrCharacterExists, got %v", err)
	}

	got, err := s.CharacterFor(ctx, sessionID, 100)
	if err != nil {
		t.Fatalf("CharacterFor err: %v", err)
	}
	if got.Name != "Thorin" || got.Abilities.Strength != 16 {
		t.Fatalf("unexpected character: %+v", got)
	}

	if _, err := s.CharacterFor(ctx, sessionID, 999); !errors.Is(err, store.ErrCharacterNotFound) {
		t.Fatalf("expected ErrCharacterNotFound, got %v", err)
	}
}

func TestCharactersInsertionOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx, game.Session{ChatID: 1})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	names := []string{"Thorin", "Lyra", "Caius"}
	for i, name := range names {
		if _, err := s.CreateCharacter(ctx, game.Character{
			SessionID: sessionID,
			PlayerID:  int64(i),
			Name:      name,
		}); err != nil {
			t.Fatalf("CreateCharacter %s err: %v", name, err)
		}
	}

	characters, err := s.Characters(ctx, sessionID)
	if err != nil {
		t.Fatalf("Characters err: %v", err)
	}
	if len(characters) != len(names) {
		t.Fatalf("len = %d", len(characters))
	}
	for i, c := range characters {
		if c.Name != names[i] {
			t.Fatalf("order mismatch at %d: %q", i, c.Name)
		}
	}
}

func TestRecentEntriesNewestFirstBounded(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sessionID, err := s.CreateSession(ctx, game.Session{ChatID: 1})
	if err != nil {
		t.Fatalf("CreateSession err: %v", err)
	}

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		if err := s.AppendEntry(ctx, game.TranscriptEntry{
			SessionID: sessionID,
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Sender:    "player",
			Content:   fmt.Sprintf("line %d", i),
		}); err != nil {
			t.Fatalf("AppendEntry err: %v", err)
		}
	}

	entries, err := s.RecentEntries(ctx, sessionID, 10)
	if err != nil {
		t.Fatalf("RecentEntries err: %v", err)
	}
	if len(entries) != 10 {
		t.Fatalf("len = %d, want 10", len(entries))
	}
	if entries[0].Content != "line 14" || entries[9].Content != "line 5" {
		t.Fatalf("order mismatch: first %q last %q", entries[0].Content, entries[9].Content)
	}
}
