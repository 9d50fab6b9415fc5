// Package store defines the persistence contract for sessions, characters
// and transcripts.
package store

import (
	"context"
	"errors"

	"github.com/arcwright/gamemaster/internal/model/game"
)

var (
	// ErrSessionNotFound indicates no session matched the lookup.
	ErrSessionNotFound = errors.New("session not found")
	// ErrCharacterNotFound indicates the player has no character in the session.
	ErrCharacterNotFound = errors.New("character not found")
	// ErrCharacterExists indicates the player already has a character in the session.
	ErrCharacterExists = errors.New("character already exists for player")
	// ErrActiveSessionExists indicates the chat already has an active session.
	ErrActiveSessionExists = errors.New("chat already has an active session")
)

// Store persists game state. Implementations must enforce at most one active
// session per chat and at most one character per (session, player) pair.
type Store interface {
	// CreateSession inserts a new active session and returns its id.
	// Returns ErrActiveSessionExists when the chat already has one.
	CreateSession(ctx context.Context, session game.Session) (int64, error)
	// GetSession fetches a session by id.
	GetSession(ctx context.Context, sessionID int64) (game.Session, error)
	// ActiveSession fetches the chat's active session, if any.
	ActiveSession(ctx context.Context, chatID int64) (game.Session, error)
	// EndSession marks a session inactive.
	EndSession(ctx context.Context, sessionID int64) error

	// CreateCharacter inserts a character and returns its id.
	// Returns ErrCharacterExists on a (session, player) collision.
	CreateCharacter(ctx context.Context, character game.Character) (int64, error)
	// CharacterFor fetches the player's character in a session.
	CharacterFor(ctx context.Context, sessionID, playerID int64) (game.Character, error)
	// Characters lists a session's characters in insertion order.
	Characters(ctx context.Context, sessionID int64) ([]game.Character, error)

	// AppendEntry appends one transcript row.
	AppendEntry(ctx context.Context, entry game.TranscriptEntry) error
	// RecentEntries returns up to limit entries for a session, newest first.
	RecentEntries(ctx context.Context, sessionID int64, limit int) ([]game.TranscriptEntry, error)

	Close() error
}
