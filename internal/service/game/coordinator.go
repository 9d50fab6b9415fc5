// Package game coordinates per-chat campaign sessions: command routing, the
// conversational state machine, context assembly and the
// generate-resolve-record turn pipeline.
package game

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/arcwright/gamemaster/internal/dice"
	"github.com/arcwright/gamemaster/internal/extract"
	"github.com/arcwright/gamemaster/internal/model/game"
	"github.com/arcwright/gamemaster/internal/service/ai"
	"github.com/arcwright/gamemaster/internal/service/speech"
	"github.com/arcwright/gamemaster/internal/store"
	"github.com/arcwright/gamemaster/pkg/utils"
)

// MessageLimit is the transport's message-size ceiling, in runes. Longer
// replies are split into ordered chunks.
const MessageLimit = 4000

// Generator produces narrative text for a prompt under role instructions.
type Generator interface {
	Generate(ctx context.Context, prompt, instructions string) (string, error)
}

// Synthesizer converts narration text to an audio artifact.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (*speech.Audio, error)
}

// Inbound is one chat message handed to the coordinator by the transport.
type Inbound struct {
	ChatID      int64
	UserID      int64
	DisplayName string
	Text        string
}

// Reply is what goes back to the transport: ordered text chunks and an
// optional voice artifact.
type Reply struct {
	Messages []string      `json:"messages"`
	Audio    *speech.Audio `json:"audio,omitempty"`
}

func (r *Reply) append(text string) {
	r.Messages = append(r.Messages, utils.SplitMessage(text, MessageLimit)...)
}

func textReply(text string) Reply {
	var r Reply
	r.append(text)
	return r
}

// Coordinator owns all per-chat conversational state. Each chat is handled
// under its own lock; chats never block each other.
type Coordinator struct {
	store       store.Store
	generator   Generator
	synthesizer Synthesizer
	roller      *dice.Roller
	assembler   *Assembler
	recorder    *Recorder

	mu    sync.Mutex
	chats map[int64]*chatState
}

// NewCoordinator wires the coordinator. generator and synthesizer may be nil
// when the respective backend is not configured; gameplay then degrades to
// explanatory replies (generation) or silent text-only delivery (speech).
func NewCoordinator(st store.Store, generator Generator, synthesizer Synthesizer, roller *dice.Roller) *Coordinator {
	if roller == nil {
		roller = dice.NewRoller(nil)
	}
	return &Coordinator{
		store:       st,
		generator:   generator,
		synthesizer: synthesizer,
		roller:      roller,
		assembler:   NewAssembler(st),
		recorder:    NewRecorder(st),
		chats:       make(map[int64]*chatState),
	}
}

// Mode reports the chat's current conversational mode, mainly for status
// endpoints and tests.
func (c *Coordinator) Mode(chatID int64) Mode {
	state := c.chatState(chatID)
	state.mu.Lock()
	defer state.mu.Unlock()
	return state.mode
}

func (c *Coordinator) chatState(chatID int64) *chatState {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.chats[chatID]
	if !ok {
		state = &chatState{voiceEnabled: true}
		c.chats[chatID] = state
	}
	return state
}

// HandleMessage processes one inbound message. Handling is serialized per
// chat: the chat's lock is held for the whole turn.
func (c *Coordinator) HandleMessage(ctx context.Context, in Inbound) Reply {
	state := c.chatState(in.ChatID)
	state.mu.Lock()
	defer state.mu.Unlock()

	c.bootstrap(ctx, state, in.ChatID)

	text := strings.TrimSpace(in.Text)
	if strings.HasPrefix(text, "/") {
		return c.handleCommand(ctx, state, in, text)
	}

	switch state.mode {
	case ModeAwaitingCampaignChoice:
		return c.handleCampaignChoice(ctx, state, in, text)
	case ModeAwaitingCharacterChoice:
		return c.handleCharacterChoice(ctx, state, in, text)
	case ModeInGame:
		return c.handleTurn(ctx, state, in, text)
	default:
		return textReply(noGameText)
	}
}

// bootstrap rebinds the chat to its persisted active session after a
// restart. Runs under the chat lock until the lookup gives a definitive
// answer; a transient storage failure is retried on the next message.
func (c *Coordinator) bootstrap(ctx context.Context, state *chatState, chatID int64) {
	if state.bootstrapped {
		return
	}

	session, err := c.store.ActiveSession(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			state.bootstrapped = true
		} else {
			log.Printf("[game] bootstrap lookup failed for chat=%d: %v", chatID, err)
		}
		return
	}
	state.bootstrapped = true
	state.sessionID = session.ID
	state.mode = ModeInGame
	log.Printf("[game] chat=%d rebound to active session=%d", chatID, session.ID)
}

func (c *Coordinator) handleCommand(ctx context.Context, state *chatState, in Inbound, text string) Reply {
	command, args, _ := strings.Cut(text, " ")
	args = strings.TrimSpace(args)

	switch command {
	case "/start":
		return textReply(welcomeText)
	case "/help":
		return textReply(helpText)
	case "/new_game":
		return c.startNewGame(ctx, state, in)
	case "/create_character":
		return c.startCharacterCreation(ctx, state, in)
	case "/show_character":
		return c.showCharacter(ctx, state, in)
	case "/roll":
		return c.rollCommand(in, args)
	case "/speak":
		state.voiceEnabled = !state.voiceEnabled
		if state.voiceEnabled {
			return textReply("🔊 Voice narration enabled.")
		}
		return textReply("🔇 Voice narration disabled.")
	case "/end_game":
		return c.endGame(ctx, state)
	case "/status":
		return c.status(ctx, state, in)
	default:
		return textReply(fmt.Sprintf("Unknown command %s. Use /help to list commands.", command))
	}
}

func (c *Coordinator) startNewGame(ctx context.Context, state *chatState, in Inbound) Reply {
	if _, err := c.store.ActiveSession(ctx, in.ChatID); err == nil {
		return textReply("This chat already has an active game. Use /create_character to join it, or /end_game to finish it.")
	} else if !errors.Is(err, store.ErrSessionNotFound) {
		log.Printf("[game] active session lookup failed for chat=%d: %v", in.ChatID, err)
		return textReply(storageFailureText)
	}

	if c.generator == nil {
		return textReply(generationUnavailableText)
	}

	options, err := c.generator.Generate(ctx, ai.CampaignOptionsPrompt, ai.CampaignOptionsInstructions)
	if err != nil {
		log.Printf("[game] campaign option generation failed for chat=%d: %v", in.ChatID, err)
		return textReply(generationFailureText)
	}

	state.optionsText = options
	state.mode = ModeAwaitingCampaignChoice

	return textReply(fmt.Sprintf(
		"🏰 %s, let's set up a new campaign! 🏰\n\nHere are some campaign options. Pick one by replying with its number (1, 2 or 3):\n\n%s",
		in.DisplayName, options))
}

func (c *Coordinator) handleCampaignChoice(ctx context.Context, state *chatState, in Inbound, text string) Reply {
	choice, ok := parseChoice(text)
	if !ok {
		return textReply("Please pick a campaign by number (1, 2 or 3).")
	}

	fields := extract.Campaign(state.optionsText, choice)
	session := game.Session{
		ChatID:             in.ChatID,
		CampaignName:       fields.Name,
		CampaignType:       fields.Type,
		SettingDescription: fields.Setting,
		CurrentLocation:    fields.Location,
		CurrentQuest:       fields.Quest,
	}

	sessionID, err := c.store.CreateSession(ctx, session)
	if err != nil {
		if errors.Is(err, store.ErrActiveSessionExists) {
			// Lost the race against a concurrent start; rebind to the winner.
			if active, lookupErr := c.store.ActiveSession(ctx, in.ChatID); lookupErr == nil {
				state.sessionID = active.ID
				state.mode = ModeInGame
				state.optionsText = ""
			}
			return textReply("A game is already active in this chat.")
		}
		log.Printf("[game] session create failed for chat=%d: %v", in.ChatID, err)
		return textReply(storageFailureText)
	}
	session.ID = sessionID

	state.sessionID = sessionID
	state.mode = ModeInGame
	state.optionsText = ""
	log.Printf("[game] chat=%d created session=%d campaign=%q", in.ChatID, sessionID, fields.Name)

	var reply Reply
	reply.append(fmt.Sprintf(
		"🎉 Campaign %q created! 🎉\n\nType: %s\nLocation: %s\n\nEvery player should now create a character with /create_character. Once everyone is ready, the adventure begins!",
		fields.Name, fields.Type, fields.Location))

	if c.generator != nil {
		intro, err := c.generator.Generate(ctx, ai.IntroPrompt(session), ai.NarratorInstructions)
		if err != nil {
			log.Printf("[game] intro generation failed for session=%d: %v", sessionID, err)
			return reply
		}
		if err := c.recorder.Record(ctx, sessionID, game.NarratorSender, intro); err != nil {
			log.Printf("[game] intro record failed for session=%d: %v", sessionID, err)
		}
		reply.Audio = c.narrate(ctx, state, intro)
		reply.append(intro)
	}
	return reply
}

func (c *Coordinator) startCharacterCreation(ctx context.Context, state *chatState, in Inbound) Reply {
	session, err := c.store.ActiveSession(ctx, in.ChatID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return textReply("Start a game first! Use /new_game to create a campaign.")
		}
		log.Printf("[game] active session lookup failed for chat=%d: %v", in.ChatID, err)
		return textReply(storageFailureText)
	}

	if existing, err := c.store.CharacterFor(ctx, session.ID, in.UserID); err == nil {
		return textReply(fmt.Sprintf("You already have the character %s in this campaign! Use /show_character to see them.", existing.Name))
	} else if !errors.Is(err, store.ErrCharacterNotFound) {
		log.Printf("[game] character lookup failed for session=%d: %v", session.ID, err)
		return textReply(storageFailureText)
	}

	if c.generator == nil {
		return textReply(generationUnavailableText)
	}

	options, err := c.generator.Generate(ctx, ai.CharacterOptionsPrompt, ai.CharacterOptionsInstructions)
	if err != nil {
		log.Printf("[game] character option generation failed for chat=%d: %v", in.ChatID, err)
		return textReply(generationFailureText)
	}

	state.sessionID = session.ID
	state.optionsText = options
	state.mode = ModeAwaitingCharacterChoice

	return textReply(fmt.Sprintf(
		"🧙 %s, let's create your character! 🧙\n\nHere are some character options. Pick one by replying with its number (1, 2 or 3):\n\n%s",
		in.DisplayName, options))
}

func (c *Coordinator) handleCharacterChoice(ctx context.Context, state *chatState, in Inbound, text string) Reply {
	choice, ok := parseChoice(text)
	if !ok {
		return textReply("Please pick a character by number (1, 2 or 3).")
	}

	if state.sessionID == 0 {
		state.mode = ModeIdle
		return textReply(noGameText)
	}

	fields := extract.Character(state.optionsText, choice)
	character := game.Character{
		SessionID:  state.sessionID,
		PlayerID:   in.UserID,
		PlayerName: in.DisplayName,
		Name:       fields.Name,
		Race:       fields.Race,
		Class:      fields.Class,
		Level:      fields.Level,
		HP:         fields.HP,
		MaxHP:      fields.MaxHP,
		ArmorClass: fields.ArmorClass,
		Abilities:  fields.Abilities,
	}

	if _, err := c.store.CreateCharacter(ctx, character); err != nil {
		state.mode = ModeInGame
		state.optionsText = ""
		if errors.Is(err, store.ErrCharacterExists) {
			return textReply("You already have a character in this campaign! Use /show_character to see them.")
		}
		log.Printf("[game] character create failed for session=%d: %v", state.sessionID, err)
		return textReply(storageFailureText)
	}

	state.mode = ModeInGame
	state.optionsText = ""
	log.Printf("[game] chat=%d player=%d created character=%q", in.ChatID, in.UserID, character.Name)

	return textReply(fmt.Sprintf(
		"⚔️ Welcome, %s! ⚔️\n\n%s\n\nJust describe what your character does to play.",
		character.Name, characterSheet(character)))
}

func (c *Coordinator) showCharacter(ctx context.Context, state *chatState, in Inbound) Reply {
	session, err := c.store.ActiveSession(ctx, in.ChatID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return textReply(noGameText)
		}
		log.Printf("[game] active session lookup failed for chat=%d: %v", in.ChatID, err)
		return textReply(storageFailureText)
	}

	character, err := c.store.CharacterFor(ctx, session.ID, in.UserID)
	if err != nil {
		if errors.Is(err, store.ErrCharacterNotFound) {
			return textReply(noCharacterText)
		}
		log.Printf("[game] character lookup failed for session=%d: %v", session.ID, err)
		return textReply(storageFailureText)
	}

	return textReply(characterSheet(character))
}

func (c *Coordinator) rollCommand(in Inbound, args string) Reply {
	if args == "" {
		return textReply("Tell me what to roll, for example /roll 2d6+3")
	}

	expr, err := dice.Parse(args)
	if err != nil {
		return textReply("Invalid format! Use dice notation such as 2d6+3")
	}

	result := c.roller.Roll(expr)
	return textReply(fmt.Sprintf("🎲 %s rolls %s:\n%s", in.DisplayName, expr, result))
}

func (c *Coordinator) endGame(ctx context.Context, state *chatState) Reply {
	if state.sessionID == 0 {
		state.mode = ModeIdle
		return textReply(noGameText)
	}

	if err := c.store.EndSession(ctx, state.sessionID); err != nil && !errors.Is(err, store.ErrSessionNotFound) {
		log.Printf("[game] end session=%d failed: %v", state.sessionID, err)
		return textReply(storageFailureText)
	}
	log.Printf("[game] session=%d ended", state.sessionID)

	state.sessionID = 0
	state.optionsText = ""
	state.mode = ModeIdle
	return textReply("The campaign has ended. Thanks for playing! Use /new_game whenever you want to start another adventure.")
}

func (c *Coordinator) status(ctx context.Context, state *chatState, in Inbound) Reply {
	session, err := c.store.ActiveSession(ctx, in.ChatID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			return textReply(noGameText)
		}
		log.Printf("[game] active session lookup failed for chat=%d: %v", in.ChatID, err)
		return textReply(storageFailureText)
	}

	return textReply(fmt.Sprintf(
		"Campaign: %s\nType: %s\nCurrent location: %s\nCurrent quest: %s\nMode: %s",
		session.CampaignName, session.CampaignType, session.CurrentLocation, session.CurrentQuest, state.mode))
}

// handleTurn runs the full in-game pipeline: context, generation, dice
// resolution, transcript, optional narration audio.
func (c *Coordinator) handleTurn(ctx context.Context, state *chatState, in Inbound, text string) Reply {
	if state.sessionID == 0 {
		state.mode = ModeIdle
		return textReply(noGameText)
	}

	character, err := c.store.CharacterFor(ctx, state.sessionID, in.UserID)
	if err != nil {
		if errors.Is(err, store.ErrCharacterNotFound) {
			// The action is rejected outright: no transcript row is written.
			return textReply(noCharacterText)
		}
		log.Printf("[game] character lookup failed for session=%d: %v", state.sessionID, err)
		return textReply(storageFailureText)
	}

	sessionContext, err := c.assembler.BuildContext(ctx, state.sessionID)
	if err != nil {
		if errors.Is(err, store.ErrSessionNotFound) {
			state.sessionID = 0
			state.mode = ModeIdle
			return textReply(noGameText)
		}
		log.Printf("[game] context assembly failed for session=%d: %v", state.sessionID, err)
		return textReply(storageFailureText)
	}

	if c.generator == nil {
		return textReply(generationUnavailableText)
	}

	playerLabel := fmt.Sprintf("%s (%s)", character.Name, in.DisplayName)
	narrative, err := c.generator.Generate(ctx, ai.TurnPrompt(sessionContext, playerLabel, text), ai.NarratorInstructions)
	if err != nil {
		log.Printf("[game] turn generation failed for session=%d: %v", state.sessionID, err)
		return textReply(generationFailureText)
	}

	resolved := c.roller.Resolve(narrative)

	if err := c.recorder.RecordExchange(ctx, state.sessionID, playerLabel, text, resolved); err != nil {
		log.Printf("[game] transcript write failed for session=%d: %v", state.sessionID, err)
	}

	var reply Reply
	reply.Audio = c.narrate(ctx, state, resolved)
	reply.append(resolved)
	return reply
}

// narrate synthesizes voice for narration text. Failures are swallowed: the
// text reply is delivered regardless.
func (c *Coordinator) narrate(ctx context.Context, state *chatState, text string) *speech.Audio {
	if c.synthesizer == nil || !state.voiceEnabled {
		return nil
	}
	audio, err := c.synthesizer.Synthesize(ctx, dice.Strip(text))
	if err != nil {
		log.Printf("[game] narration synthesis failed: %v", err)
		return nil
	}
	return audio
}

func parseChoice(text string) (int, bool) {
	switch strings.TrimSpace(text) {
	case "1":
		return 1, true
	case "2":
		return 2, true
	case "3":
		return 3, true
	default:
		return 0, false
	}
}

const (
	noGameText = "There is no active game right now! Use /new_game to start a campaign."

	noCharacterText = "You don't have a character in this campaign yet! Use /create_character to make one."

	generationUnavailableText = "The narrator is unavailable: no generation backend is configured."

	generationFailureText = "The narrator lost the thread of the story. Please try again in a moment."

	storageFailureText = "Something went wrong with the game records. Please try again."

	welcomeText = `🎲 Welcome to the AI Game Master! 🎲

I will be your narrator for tabletop fantasy adventures.

Commands:
/start - Show this welcome message
/help - List all commands
/new_game - Start a new campaign
/create_character - Create a character
/show_character - Show your character sheet
/roll <dice> - Roll dice, e.g. /roll 2d6+3
/speak - Toggle voice narration

Let the adventure begin!`

	helpText = `🎲 AI Game Master: Help 🎲

GAME COMMANDS:
/new_game - Start a new campaign
/end_game - End the current campaign
/status - Show the current campaign status

CHARACTER COMMANDS:
/create_character - Create a character
/show_character - Show your character sheet

MECHANICS:
/roll <dice> - Roll dice, e.g. /roll 2d6+3
/speak - Toggle voice narration

To play, just write what your character does!`
)
