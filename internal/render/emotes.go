package render

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

// Shown when no emote can be found for a team
const UNKNOWN_EMOTE = ":grey_question:"

// EmoteSet holds the custom emotes available where a message is posted,
// indexed by their lower case name
type EmoteSet map[string]*discordgo.Emoji

func NewEmoteSet(emojis []*discordgo.Emoji) EmoteSet {
	set := make(EmoteSet, len(emojis))
	for _, emoji := range emojis {
		if emoji == nil || emoji.Name == "" {
			continue
		}
		key := strings.ToLower(emoji.Name)
		// Keep the first one if two emotes only differ in case
		if _, ok := set[key]; !ok {
			set[key] = emoji
		}
	}
	return set
}

// Lookup finds an emote by name ignoring case and returns its mention
func (set EmoteSet) Lookup(name string) (string, bool) {
	emoji, ok := set[strings.ToLower(name)]
	if !ok {
		return "", false
	}
	return emoji.MessageFormat(), true
}

// Resolve finds the emote of a team: the configured one if present,
// else one named after the team, else the unknown emote
func (set EmoteSet) Resolve(configured string, teamName string) string {
	if configured != "" {
		if mention, ok := set.Lookup(configured); ok {
			return mention
		}
	}
	if mention, ok := set.Lookup(GuessEmoteName(teamName)); ok {
		return mention
	}
	return UNKNOWN_EMOTE
}

// GuessEmoteName removes the whitespace of a team name
// and capitalises the first letter of every word: "red devils" becomes "RedDevils"
func GuessEmoteName(teamName string) string {
	var builder strings.Builder
	for _, word := range strings.FieldsFunc(teamName, unicode.IsSpace) {
		first, size := utf8.DecodeRuneInString(word)
		builder.WriteRune(unicode.ToUpper(first))
		builder.WriteString(word[size:])
	}
	return builder.String()
}
