// Package sqlite provides the SQLite-backed store implementation.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/arcwright/gamemaster/internal/model/game"
	"github.com/arcwright/gamemaster/internal/store"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id          INTEGER PRIMARY KEY AUTOINCREMENT,
    chat_id             INTEGER NOT NULL,
    started_at          INTEGER NOT NULL,
    is_active           INTEGER NOT NULL DEFAULT 1,
    campaign_name       TEXT NOT NULL DEFAULT '',
    campaign_type       TEXT NOT NULL DEFAULT '',
    setting_description TEXT NOT NULL DEFAULT '',
    current_location    TEXT NOT NULL DEFAULT '',
    current_quest       TEXT NOT NULL DEFAULT ''
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_sessions_active_chat
    ON sessions(chat_id) WHERE is_active = 1;

CREATE TABLE IF NOT EXISTS characters (
    character_id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id   INTEGER NOT NULL REFERENCES sessions(session_id),
    player_id    INTEGER NOT NULL,
    player_name  TEXT NOT NULL DEFAULT '',
    name         TEXT NOT NULL,
    race         TEXT NOT NULL DEFAULT '',
    class        TEXT NOT NULL DEFAULT '',
    level        INTEGER NOT NULL DEFAULT 1,
    hp           INTEGER NOT NULL DEFAULT 0,
    max_hp       INTEGER NOT NULL DEFAULT 0,
    armor_class  INTEGER NOT NULL DEFAULT 0,
    strength     INTEGER NOT NULL DEFAULT 10,
    dexterity    INTEGER NOT NULL DEFAULT 10,
    constitution INTEGER NOT NULL DEFAULT 10,
    intelligence INTEGER NOT NULL DEFAULT 10,
    wisdom       INTEGER NOT NULL DEFAULT 10,
    charisma     INTEGER NOT NULL DEFAULT 10,
    inventory    TEXT NOT NULL DEFAULT '',
    UNIQUE(session_id, player_id)
);

CREATE TABLE IF NOT EXISTS transcript (
    entry_id   INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id INTEGER NOT NULL REFERENCES sessions(session_id),
    timestamp  INTEGER NOT NULL,
    sender     TEXT NOT NULL,
    content    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transcript_session_time
    ON transcript(session_id, timestamp);
`

// Store persists game state in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the SQLite store at path and ensures the schema exists.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	// modernc only applies pragmas passed via _pragma=...; WAL allows
	// concurrent readers with one writer, the busy timeout makes writers
	// queue instead of failing with SQLITE_BUSY.
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	// SQLite supports only one writer at a time.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// CreateSession inserts one active session row. The partial unique index on
// (chat_id) WHERE is_active makes concurrent starts race safely: exactly one
// insert wins, the rest observe ErrActiveSessionExists.
func (s *Store) CreateSession(ctx context.Context, session game.Session) (int64, error) {
	startedAt := session.StartedAt
	if startedAt.IsZero() {
		startedAt = time.Now()
	}
	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO sessions (
		   chat_id, started_at, is_active,
		   campaign_name, campaign_type, setting_description,
		   current_location, current_quest
		 ) VALUES (?, ?, 1, ?, ?, ?, ?, ?)`,
		session.ChatID,
		toMillis(startedAt),
		session.CampaignName,
		session.CampaignType,
		session.SettingDescription,
		session.CurrentLocation,
		session.CurrentQuest,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrActiveSessionExists
		}
		return 0, fmt.Errorf("insert session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("session insert id: %w", err)
	}
	return id, nil
}

// GetSession fetches one session by id.
func (s *Store) GetSession(ctx context.Context, sessionID int64) (game.Session, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT session_id, chat_id, started_at, is_active,
		        campaign_name, campaign_type, setting_description,
		        current_location, current_quest
		   FROM sessions WHERE session_id = ?`,
		sessionID,
	)
	return scanSession(row)
}

// ActiveSession fetches the chat's active session.
func (s *Store) ActiveSession(ctx context.Context, chatID int64) (game.Session, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT session_id, chat_id, started_at, is_active,
		        campaign_name, campaign_type, setting_description,
		        current_location, current_quest
		   FROM sessions WHERE chat_id = ? AND is_active = 1`,
		chatID,
	)
	return scanSession(row)
}

// EndSession marks a session inactive.
func (s *Store) EndSession(ctx context.Context, sessionID int64) error {
	res, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE sessions SET is_active = 0 WHERE session_id = ?`,
		sessionID,
	)
	if err != nil {
		return fmt.Errorf("end session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("end session rows: %w", err)
	}
	if affected == 0 {
		return store.ErrSessionNotFound
	}
	return nil
}

// CreateCharacter inserts one character row.
func (s *Store) CreateCharacter(ctx context.Context, character game.Character) (int64, error) {
	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO characters (
		   session_id, player_id, player_name, name, race, class, level,
		   hp, max_hp, armor_class,
		   strength, dexterity, constitution, intelligence, wisdom, charisma,
		   inventory
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		character.SessionID,
		character.PlayerID,
		character.PlayerName,
		character.Name,
		character.Race,
		character.Class,
		character.Level,
		character.HP,
		character.MaxHP,
		character.ArmorClass,
		character.Abilities.Strength,
		character.Abilities.Dexterity,
		character.Abilities.Constitution,
		character.Abilities.Intelligence,
		character.Abilities.Wisdom,
		character.Abilities.Charisma,
		character.Inventory,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, store.ErrCharacterExists
		}
		return 0, fmt.Errorf("insert character: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("character insert id: %w", err)
	}
	return id, nil
}

// CharacterFor fetches the player's character in a session.
func (s *Store) CharacterFor(ctx context.Context, sessionID, playerID int64) (game.Character, error) {
	row := s.sqlDB.QueryRowContext(
		ctx,
		characterSelect+` WHERE session_id = ? AND player_id = ?`,
		sessionID, playerID,
	)
	character, err := scanCharacter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Character{}, store.ErrCharacterNotFound
	}
	return character, err
}

// Characters lists a session's characters in insertion order.
func (s *Store) Characters(ctx context.Context, sessionID int64) ([]game.Character, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		characterSelect+` WHERE session_id = ? ORDER BY character_id`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	var characters []game.Character
	for rows.Next() {
		character, err := scanCharacter(rows)
		if err != nil {
			return nil, err
		}
		characters = append(characters, character)
	}
	return characters, rows.Err()
}

// AppendEntry appends one transcript row.
func (s *Store) AppendEntry(ctx context.Context, entry game.TranscriptEntry) error {
	timestamp := entry.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO transcript (session_id, timestamp, sender, content)
		 VALUES (?, ?, ?, ?)`,
		entry.SessionID,
		toMillis(timestamp),
		entry.Sender,
		entry.Content,
	)
	if err != nil {
		return fmt.Errorf("insert transcript entry: %w", err)
	}
	return nil
}

// RecentEntries returns up to limit entries for a session, newest first.
// Insertion order breaks timestamp ties.
func (s *Store) RecentEntries(ctx context.Context, sessionID int64, limit int) ([]game.TranscriptEntry, error) {
	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT entry_id, session_id, timestamp, sender, content
		   FROM transcript
		  WHERE session_id = ?
		  ORDER BY timestamp DESC, entry_id DESC
		  LIMIT ?`,
		sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query transcript: %w", err)
	}
	defer rows.Close()

	var entries []game.TranscriptEntry
	for rows.Next() {
		var entry game.TranscriptEntry
		var millis int64
		if err := rows.Scan(&entry.ID, &entry.SessionID, &millis, &entry.Sender, &entry.Content); err != nil {
			return nil, fmt.Errorf("scan transcript entry: %w", err)
		}
		entry.Timestamp = fromMillis(millis)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

const characterSelect = `
SELECT character_id, session_id, player_id, player_name, name, race, class, level,
       hp, max_hp, armor_class,
       strength, dexterity, constitution, intelligence, wisdom, charisma,
       inventory
  FROM characters`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (game.Session, error) {
	var session game.Session
	var startedAtMillis int64
	var isActive int
	err := row.Scan(
		&session.ID,
		&session.ChatID,
		&startedAtMillis,
		&isActive,
		&session.CampaignName,
		&session.CampaignType,
		&session.SettingDescription,
		&session.CurrentLocation,
		&session.CurrentQuest,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return game.Session{}, store.ErrSessionNotFound
	}
	if err != nil {
		return game.Session{}, fmt.Errorf("scan session: %w", err)
	}
	session.StartedAt = fromMillis(startedAtMillis)
	session.IsActive = isActive != 0
	return session, nil
}

func scanCharacter(row rowScanner) (game.Character, error) {
	var character game.Character
	err := row.Scan(
		&character.ID,
		&character.SessionID,
		&character.PlayerID,
		&character.PlayerName,
		&character.Name,
		&character.Race,
		&character.Class,
		&character.Level,
		&character.HP,
		&character.MaxHP,
		&character.ArmorClass,
		&character.Abilities.Strength,
		&character.Abilities.Dexterity,
		&character.Abilities.Constitution,
		&character.Abilities.Intelligence,
		&character.Abilities.Wisdom,
		&character.Abilities.Charisma,
		&character.Inventory,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return game.Character{}, err
		}
		return game.Character{}, fmt.Errorf("scan character: %w", err)
	}
	return character, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr *msqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() {
	case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return false
}
