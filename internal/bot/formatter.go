package bot

import (
	"fmt"
	"strings"

	"toornabot/internal/render"
	"toornabot/internal/toornament"

	"github.com/bwmarrin/discordgo"
)

// Colour used for the embeds that do not belong to a group
const color int = 0x008080

const GROUP_URL string = "https://www.toornament.com/en_GB/tournaments/%s/stages/%s/groups/%s"

// Discord rejects embed fields with an empty value
const EMPTY_FIELD string = "-"

// Longest value discord accepts inside an embed field
const FIELD_LIMIT int = 1024

// Name of the fields that continue a previous one
const CONTINUED_FIELD string = "\u200b"

func InputNotValid(errorMessage string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Input not valid: \n> %s", errorMessage)}}
}

func PermissionDenied() []Response {
	return []Response{ResponseString{"Permission denied"}}
}

func Pong() []Response {
	return []Response{ResponseString{"pong"}}
}

type helpEntry struct {
	usage       string
	description string
}

var helpEntries = []helpEntry{
	{"ping", "Check that the bot is online"},
	{"addgroup <tournament_id> \"<group name>\" <alias> <#colour> <logo_url>", "Register a group of a tournament under an alias"},
	{"removegroup <alias>", "Remove a group, by alias or by group name"},
	{"group <alias> <round[,round]>", "Post the standings of a group and its fixtures for the given rounds"},
	{"addsequence <name> <alias,alias,...>", "Register a list of groups that are posted together, in order"},
	{"removesequence <name>", "Remove a sequence"},
	{"sequence <name> <round[,round]>", "Post every group of a sequence"},
	{"addrole <@role>", "Allow the members of a role to use the bot (administrators only)"},
	{"removerole <@role>", "Stop allowing the members of a role to use the bot (administrators only)"},
	{"teams <alias>", "List the participants of the tournament a group belongs to"},
	{"help", "Print the usage of the different commands"},
}

func HelpMessage(prefix string) []Response {

	embed := discordgo.MessageEmbed{Title: "Commands available", Color: color}
	for _, entry := range helpEntries {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{
			Name:   fmt.Sprintf("`%s%s`", prefix, entry.usage),
			Value:  entry.description,
			Inline: false,
		})
	}
	return []Response{ResponseEmbed{embed}}
}

func GroupAdded(record StageRecord) []Response {
	return []Response{ResponseString{fmt.Sprintf("Added group `%s` with ID `%s` for stage `%s` as `%s`", record.Group.Name, record.Group.Id, record.Group.StageId, record.Alias)}}
}

func GroupRemoved(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Removed group `%s` from the bot", name)}}
}

func GroupNotRegistered(name string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Group `%s` is not registered", name)}}
}

func SequenceCreated(record SequenceRecord) []Response {
	content := fmt.Sprintf("Created sequence `%s` containing the following groups:\n", record.Alias)
	content += strings.Join(record.Groups, "\n")
	return []Response{ResponseString{content}}
}

func SequenceRemoved(alias string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Removed sequence `%s`", alias)}}
}

func SequenceNotRegistered(alias string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Sequence `%s` is not registered", alias)}}
}

func RoleAdded(roleId string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Users from <@&%s> now have permissions for this bot", roleId)}}
}

func RoleAlreadyAdded(roleId string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Users from <@&%s> already have permissions for this bot", roleId)}}
}

func RoleRemoved(roleId string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Users from <@&%s> no longer have permissions for this bot", roleId)}}
}

func RoleNotInList(roleId string) []Response {
	return []Response{ResponseString{fmt.Sprintf("Users from <@&%s> did not have permissions for this bot", roleId)}}
}

func NotFound(message string) Response {
	return ResponseString{fmt.Sprintf("Not found: %s", message)}
}

func NoResponseToornament() Response {
	return ResponseString{"Got no valid response from Toornament, try again later"}
}

func CredentialsUnavailable() Response {
	return ResponseString{"Could not authenticate with Toornament, ask an administrator to check the credentials"}
}

func InternalError() Response {
	return ResponseString{"Something went wrong on my side"}
}

// GroupEmbed shows the standings of a group and its fixtures for some rounds
func GroupEmbed(stage StageRecord, tournament toornament.Tournament, standings string, fixtures string, rounds []int) ResponseEmbed {

	group := stage.Group
	embed := discordgo.MessageEmbed{
		Type:  discordgo.EmbedTypeRich,
		Title: group.Name,
		URL:   fmt.Sprintf(GROUP_URL, group.TournamentId, group.StageId, group.Id),
	}
	if colour, err := render.ParseColour(stage.Colour); err == nil {
		embed.Color = colour.Int()
	} else {
		embed.Color = color
	}
	if stage.Logo != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: stage.Logo}
	}
	embed.Footer = &discordgo.MessageEmbedFooter{Text: tournament.Name, IconURL: tournament.Logo.LogoSmall}

	embed.Fields = append(embed.Fields, splitField("Standings", standings, "```")...)
	embed.Fields = append(embed.Fields, splitField(fmt.Sprintf("Week %s", RoundsLabel(rounds)), fixtures, "")...)
	return ResponseEmbed{embed}
}

// TeamsEmbed lists the participants of the tournament a group belongs to
func TeamsEmbed(stage StageRecord, tournament toornament.Tournament, participants []toornament.Participant, emotes render.EmoteSet) ResponseEmbed {

	lines := []string{}
	for _, participant := range participants {
		line := fmt.Sprintf("%s %s", emotes.Resolve(participant.Emote, participant.Name), participant.Name)
		if participant.ShortName != "" {
			line += fmt.Sprintf(" (`%s`)", participant.ShortName)
		}
		lines = append(lines, line)
	}

	embed := discordgo.MessageEmbed{
		Type:        discordgo.EmbedTypeRich,
		Title:       fmt.Sprintf("Participants of %s", tournament.Name),
		Description: orEmpty(strings.Join(lines, "\n")),
		Color:       color,
	}
	if colour, err := render.ParseColour(stage.Colour); err == nil {
		embed.Color = colour.Int()
	}
	if tournament.Logo.LogoSmall != "" {
		embed.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: tournament.Logo.LogoSmall}
	}
	return ResponseEmbed{embed}
}

// splitField spreads text over as many fields as needed to keep every
// value under the discord limit. Lines are never split unless a single
// line is already too long, in which case it is cut
func splitField(name string, text string, fence string) []*discordgo.MessageEmbedField {

	if text == "" {
		return []*discordgo.MessageEmbedField{{Name: name, Value: EMPTY_FIELD}}
	}

	limit := FIELD_LIMIT - 2*len(fence)
	chunks := []string{}
	current := ""
	for _, line := range strings.Split(text, "\n") {
		line = truncate(line, limit)
		if current == "" {
			current = line
		} else if len(current)+1+len(line) <= limit {
			current += "\n" + line
		} else {
			chunks = append(chunks, current)
			current = line
		}
	}
	chunks = append(chunks, current)

	fields := []*discordgo.MessageEmbedField{}
	for i, chunk := range chunks {
		field := &discordgo.MessageEmbedField{Name: name, Value: fence + chunk + fence, Inline: false}
		if i > 0 {
			field.Name = CONTINUED_FIELD
		}
		fields = append(fields, field)
	}
	return fields
}

// truncate cuts a line to at most limit bytes without breaking a rune
func truncate(line string, limit int) string {
	if len(line) <= limit {
		return line
	}
	const ellipsis = "…"
	cut := 0
	for i := range line {
		if i+len(ellipsis) > limit {
			break
		}
		cut = i
	}
	return line[:cut] + ellipsis
}

func orEmpty(value string) string {
	if value == "" {
		return EMPTY_FIELD
	}
	return value
}
