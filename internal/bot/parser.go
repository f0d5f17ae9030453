package bot

import (
	"fmt"
	"strconv"
	"strings"

	"toornabot/internal/render"
	"toornabot/internal/toornament"

	"github.com/gravitational/trace"
	"github.com/rs/zerolog/log"
)

const DEFAULT_PREFIX string = "+"

// Used for input that does not name any known command
const COMMAND_UNKNOWN = -1

const (
	COMMAND_PING = iota
	COMMAND_ADD_GROUP
	COMMAND_REMOVE_GROUP
	COMMAND_GROUP
	COMMAND_ADD_SEQUENCE
	COMMAND_REMOVE_SEQUENCE
	COMMAND_SEQUENCE
	COMMAND_ADD_ROLE
	COMMAND_REMOVE_ROLE
	COMMAND_TEAMS
	COMMAND_HELP
)

var commandNames = map[int]string{
	COMMAND_PING:            "ping",
	COMMAND_ADD_GROUP:       "addgroup",
	COMMAND_REMOVE_GROUP:    "removegroup",
	COMMAND_GROUP:           "group",
	COMMAND_ADD_SEQUENCE:    "addsequence",
	COMMAND_REMOVE_SEQUENCE: "removesequence",
	COMMAND_SEQUENCE:        "sequence",
	COMMAND_ADD_ROLE:        "addrole",
	COMMAND_REMOVE_ROLE:     "removerole",
	COMMAND_TEAMS:           "teams",
	COMMAND_HELP:            "help",
}

// Number of arguments needed by each command
var commandArguments = map[int]int{
	COMMAND_PING:            0,
	COMMAND_ADD_GROUP:       5,
	COMMAND_REMOVE_GROUP:    1,
	COMMAND_GROUP:           2,
	COMMAND_ADD_SEQUENCE:    2,
	COMMAND_REMOVE_SEQUENCE: 1,
	COMMAND_SEQUENCE:        2,
	COMMAND_ADD_ROLE:        1,
	COMMAND_REMOVE_ROLE:     1,
	COMMAND_TEAMS:           1,
	COMMAND_HELP:            0,
}

const (
	PARSEID_OK = iota
	PARSEID_NO_BOT_PREFIX
	PARSEID_NO_COMMAND
	PARSEID_COMMAND_NOT_RECOGNISED
	PARSEID_WRONG_ARGUMENTS
	PARSEID_UNTERMINATED_QUOTE
	PARSEID_NOT_A_ROUND
	PARSEID_NOT_A_COLOUR
	PARSEID_EMPTY_SEQUENCE
)

var errorMessages map[int]string = map[int]string{
	PARSEID_NO_COMMAND:             "No command provided",
	PARSEID_COMMAND_NOT_RECOGNISED: "Command `%s` not recognised",
	PARSEID_WRONG_ARGUMENTS:        "Command `%s` requires %d argument(s), got %d",
	PARSEID_UNTERMINATED_QUOTE:     "Quote opened but never closed",
	PARSEID_NOT_A_ROUND:            "Input `%s` is not a round number or a comma separated list of them",
	PARSEID_NOT_A_COLOUR:           "%s",
	PARSEID_EMPTY_SEQUENCE:         "Sequence `%s` needs at least one group",
}

type AddGroupArguments struct {
	TournamentId toornament.TournamentId
	GroupName    string
	Alias        string
	Colour       render.Colour
	Logo         string
}

type RoundArguments struct {
	Alias  string
	Rounds []int
}

type AddSequenceArguments struct {
	Alias  string
	Groups []string
}

type ParseResult struct {
	command      int
	parseid      int
	errorMessage string
	arguments    interface{}
}

func Parse(prefix string, message string) ParseResult {

	// The message has to start with the bot prefix
	if !strings.HasPrefix(message, prefix) {
		return ParseResult{parseid: PARSEID_NO_BOT_PREFIX}
	}

	words, ok := splitArguments(message[len(prefix):])
	if !ok {
		parseid := PARSEID_UNTERMINATED_QUOTE
		return ParseResult{command: COMMAND_UNKNOWN, parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	if len(words) == 0 {
		parseid := PARSEID_NO_COMMAND
		return ParseResult{command: COMMAND_UNKNOWN, parseid: parseid, errorMessage: errorMessages[parseid]}
	}
	commandString := strings.ToLower(words[0])
	words = words[1:]

	// Match the command
	command := COMMAND_UNKNOWN
	for id, name := range commandNames {
		if name == commandString {
			command = id
			break
		}
	}
	if command == COMMAND_UNKNOWN {
		parseid := PARSEID_COMMAND_NOT_RECOGNISED
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString)}
	}
	if expected := commandArguments[command]; len(words) != expected {
		parseid := PARSEID_WRONG_ARGUMENTS
		return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], commandString, expected, len(words))}
	}

	switch command {
	case COMMAND_ADD_GROUP:
		// +addgroup <tournament_id> <group_name> <alias> <colour> <logo_url>
		colour, err := render.ParseColour(words[3])
		if err != nil {
			parseid := PARSEID_NOT_A_COLOUR
			log.Debug().Str("colour", words[3]).Msg("Rejecting colour")
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], trace.UserMessage(err))}
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: AddGroupArguments{
			TournamentId: toornament.TournamentId(words[0]),
			GroupName:    words[1],
			Alias:        strings.ToLower(words[2]),
			Colour:       colour,
			Logo:         words[4],
		}}
	case COMMAND_GROUP, COMMAND_SEQUENCE:
		// +group <alias> <round[,round]>
		// +sequence <name> <round[,round]>
		rounds, ok := parseRounds(words[1])
		if !ok {
			parseid := PARSEID_NOT_A_ROUND
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], words[1])}
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: RoundArguments{Alias: words[0], Rounds: rounds}}
	case COMMAND_ADD_SEQUENCE:
		// +addsequence <name> <alias,alias,...>
		groups := []string{}
		for _, group := range strings.Split(words[1], ",") {
			if group = strings.TrimSpace(group); group != "" {
				groups = append(groups, group)
			}
		}
		if len(groups) == 0 {
			parseid := PARSEID_EMPTY_SEQUENCE
			return ParseResult{command: command, parseid: parseid, errorMessage: fmt.Sprintf(errorMessages[parseid], words[0])}
		}
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: AddSequenceArguments{Alias: strings.ToLower(words[0]), Groups: groups}}
	case COMMAND_REMOVE_GROUP, COMMAND_REMOVE_SEQUENCE, COMMAND_ADD_ROLE, COMMAND_REMOVE_ROLE, COMMAND_TEAMS:
		return ParseResult{command: command, parseid: PARSEID_OK, arguments: words[0]}
	default:
		return ParseResult{command: command, parseid: PARSEID_OK}
	}
}

// splitArguments splits on whitespace, keeping together
// whatever is enclosed in double quotes
func splitArguments(input string) ([]string, bool) {

	words := []string{}
	var current strings.Builder
	inQuotes := false
	inWord := false
	for _, c := range input {
		switch {
		case c == '"':
			inQuotes = !inQuotes
			inWord = true
		case !inQuotes && (c == ' ' || c == '\t' || c == '\n'):
			if inWord {
				words = append(words, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(c)
			inWord = true
		}
	}
	if inQuotes {
		return nil, false
	}
	if inWord {
		words = append(words, current.String())
	}
	return words, true
}

func parseRounds(input string) ([]int, bool) {
	rounds := []int{}
	for _, part := range strings.Split(input, ",") {
		round, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || round < 1 {
			return nil, false
		}
		rounds = append(rounds, round)
	}
	return rounds, true
}

// RoundsLabel prints rounds the way they were asked for
func RoundsLabel(rounds []int) string {
	labels := make([]string, len(rounds))
	for i, round := range rounds {
		labels[i] = strconv.Itoa(round)
	}
	return strings.Join(labels, ",")
}
