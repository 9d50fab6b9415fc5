// Package extract recovers structured campaign and character fields from the
// free-form option lists produced by the generation backend. The parse is
// best-effort: the backend proposes three labeled options and this package
// scans for the chosen one, falling back to defaults for any field it cannot
// find. Extraction never fails the surrounding flow.
package extract

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/arcwright/gamemaster/internal/model/game"
)

// CampaignFields holds the attributes recovered for a chosen campaign option.
type CampaignFields struct {
	Name     string
	Type     string
	Setting  string
	Location string
	Quest    string
}

// DefaultCampaign returns the fallback values used when option text cannot
// be parsed.
func DefaultCampaign() CampaignFields {
	return CampaignFields{
		Name:     "New Campaign",
		Type:     "Adventure",
		Setting:  "Fantasy world",
		Location: "Tavern",
		Quest:    "Start of the adventure",
	}
}

// CharacterFields holds the attributes recovered for a chosen character
// option.
type CharacterFields struct {
	Name       string
	Race       string
	Class      string
	Level      int
	HP         int
	MaxHP      int
	ArmorClass int
	Abilities  game.AbilityScores
}

// DefaultCharacter returns the fallback level-1 character.
func DefaultCharacter() CharacterFields {
	return CharacterFields{
		Name:       "Adventurer",
		Race:       "Human",
		Class:      "Fighter",
		Level:      1,
		HP:         10,
		MaxHP:      10,
		ArmorClass: 12,
		Abilities: game.AbilityScores{
			Strength:     12,
			Dexterity:    12,
			Constitution: 12,
			Intelligence: 10,
			Wisdom:       10,
			Charisma:     10,
		},
	}
}

var (
	abilityPattern = regexp.MustCompile(`(?i)\b(STR|DEX|CON|INT|WIS|CHA)\b[^0-9]*(\d+)`)
	hpPattern      = regexp.MustCompile(`(?i)\bHP\b[^0-9]*(\d+)(?:\s*/\s*(\d+))?`)
	acPattern      = regexp.MustCompile(`(?i)\bAC\b[^0-9]*(\d+)`)
	levelPattern   = regexp.MustCompile(`(?i)\blevel\b[^0-9]*(\d+)`)
)

// Campaign extracts the fields for option choice (1-based) from optionsText.
func Campaign(optionsText string, choice int) CampaignFields {
	fields := DefaultCampaign()

	block, ok := optionBlock(optionsText, choice)
	if !ok {
		log.Printf("[extract] campaign option %d not found, using defaults", choice)
		return fields
	}

	if block.title != "" {
		fields.Name = block.title
	}
	for _, line := range block.lines {
		if v, ok := labelValue(line, "Name:"); ok {
			fields.Name = v
		}
		if v, ok := labelValue(line, "Type:"); ok {
			fields.Type = v
		}
		if v, ok := labelValue(line, "Setting:"); ok {
			fields.Setting = v
		} else if v, ok := labelValue(line, "Description:"); ok {
			fields.Setting = v
		}
		if v, ok := labelValue(line, "Location:"); ok {
			fields.Location = v
		}
		if v, ok := labelValue(line, "Quest:"); ok {
			fields.Quest = v
		}
	}
	return fields
}

// Character extracts the fields for option choice (1-based) from optionsText.
func Character(optionsText string, choice int) CharacterFields {
	fields := DefaultCharacter()

	block, ok := optionBlock(optionsText, choice)
	if !ok {
		log.Printf("[extract] character option %d not found, using defaults", choice)
		return fields
	}

	if block.title != "" {
		fields.Name = block.title
	}
	for _, line := range block.lines {
		if v, ok := labelValue(line, "Name:"); ok {
			fields.Name = v
		}
		if v, ok := labelValue(line, "Race:"); ok {
			fields.Race = v
		}
		if v, ok := labelValue(line, "Armor Class:"); ok {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				fields.ArmorClass = n
			}
		} else if v, ok := labelValue(line, "Class:"); ok {
			fields.Class = v
		}
		if m := levelPattern.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				fields.Level = n
			}
		}
		if m := hpPattern.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				fields.HP = n
				fields.MaxHP = n
			}
			if m[2] != "" {
				if n, err := strconv.Atoi(m[2]); err == nil && n > 0 {
					fields.MaxHP = n
				}
			}
		}
		if m := acPattern.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				fields.ArmorClass = n
			}
		}
		for _, m := range abilityPattern.FindAllStringSubmatch(line, -1) {
			n, err := strconv.Atoi(m[2])
			if err != nil || n <= 0 {
				continue
			}
			switch strings.ToUpper(m[1]) {
			case "STR":
				fields.Abilities.Strength = n
			case "DEX":
				fields.Abilities.Dexterity = n
			case "CON":
				fields.Abilities.Constitution = n
			case "INT":
				fields.Abilities.Intelligence = n
			case "WIS":
				fields.Abilities.Wisdom = n
			case "CHA":
				fields.Abilities.Charisma = n
			}
		}
	}
	return fields
}

// block is the chosen option's slice of the text: the title taken from the
// marker line plus every following line up to the next marker or separator.
type block struct {
	title string
	lines []string
}

func optionBlock(text string, choice int) (block, bool) {
	lines := strings.Split(text, "\n")
	start := -1
	for i, line := range lines {
		if isOptionMarker(line, choice) {
			start = i
			break
		}
	}
	if start < 0 {
		return block{}, false
	}

	var b block
	marker := strings.Trim(lines[start], " *#")
	if _, after, found := strings.Cut(marker, ":"); found {
		b.title = cleanValue(after)
	} else if _, after, found := strings.Cut(marker, fmt.Sprintf("%d.", choice)); found {
		b.title = cleanValue(after)
	}

	for _, line := range lines[start+1:] {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "---") || isAnyOptionMarker(trimmed) {
			break
		}
		b.lines = append(b.lines, line)
	}
	return b, true
}

// isOptionMarker reports whether line begins the option with the given
// 1-based index, matching either an "Option N:" phrase or a leading "N."
// token.
func isOptionMarker(line string, choice int) bool {
	trimmed := strings.Trim(strings.TrimSpace(line), "*#  ")
	if strings.Contains(trimmed, fmt.Sprintf("Option %d:", choice)) {
		return true
	}
	return strings.HasPrefix(trimmed, fmt.Sprintf("%d.", choice))
}

func isAnyOptionMarker(line string) bool {
	for n := 1; n <= 3; n++ {
		if isOptionMarker(line, n) {
			return true
		}
	}
	return false
}

// labelValue returns the text after label on line, when the label appears.
func labelValue(line, label string) (string, bool) {
	idx := strings.Index(line, label)
	if idx < 0 {
		return "", false
	}
	v := cleanValue(line[idx+len(label):])
	if v == "" {
		return "", false
	}
	return v, true
}

func cleanValue(s string) string {
	return strings.Trim(strings.TrimSpace(s), "*_ ")
}
