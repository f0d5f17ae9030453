package bot

import (
	"testing"

	"toornabot/internal/render"
	"toornabot/internal/toornament"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWithoutPrefix(t *testing.T) {
	result := Parse("+", "hello there")
	require.Equal(t, PARSEID_NO_BOT_PREFIX, result.parseid)
}

func TestParseSimpleCommands(t *testing.T) {
	for input, command := range map[string]int{
		"+ping":   COMMAND_PING,
		"+PING":   COMMAND_PING,
		"+help":   COMMAND_HELP,
		"+ help ": COMMAND_HELP,
	} {
		result := Parse("+", input)
		require.Equal(t, PARSEID_OK, result.parseid, input)
		require.Equal(t, command, result.command, input)
	}
}

func TestParseErrors(t *testing.T) {
	testCases := []struct {
		input   string
		parseid int
		message string
	}{
		{"+", PARSEID_NO_COMMAND, "No command provided"},
		{"+dance", PARSEID_COMMAND_NOT_RECOGNISED, "Command `dance` not recognised"},
		{"+group vortex", PARSEID_WRONG_ARGUMENTS, "Command `group` requires 2 argument(s), got 1"},
		{"+ping now", PARSEID_WRONG_ARGUMENTS, "Command `ping` requires 0 argument(s), got 1"},
		{"+group vortex week3", PARSEID_NOT_A_ROUND, "Input `week3` is not a round number or a comma separated list of them"},
		{"+group vortex 0", PARSEID_NOT_A_ROUND, "Input `0` is not a round number or a comma separated list of them"},
		{"+removegroup \"The Vortex", PARSEID_UNTERMINATED_QUOTE, "Quote opened but never closed"},
		{"+addsequence ecc8 ,,", PARSEID_EMPTY_SEQUENCE, "Sequence `ecc8` needs at least one group"},
	}
	for _, tc := range testCases {
		result := Parse("+", tc.input)
		assert.Equal(t, tc.parseid, result.parseid, tc.input)
		assert.Equal(t, tc.message, result.errorMessage, tc.input)
	}
}

func TestParseAddGroup(t *testing.T) {
	result := Parse("+", `+addgroup 4240827061098184704 "The Vortex" Vortex #00AAFF https://imgur.com/mj8KanR.png`)
	require.Equal(t, PARSEID_OK, result.parseid, result.errorMessage)
	require.Equal(t, COMMAND_ADD_GROUP, result.command)
	require.Equal(t, AddGroupArguments{
		TournamentId: toornament.TournamentId("4240827061098184704"),
		GroupName:    "The Vortex",
		Alias:        "vortex",
		Colour:       render.Colour{R: 0x00, G: 0xAA, B: 0xFF},
		Logo:         "https://imgur.com/mj8KanR.png",
	}, result.arguments)
}

func TestParseAddGroupRejectsColour(t *testing.T) {
	result := Parse("+", `+addgroup 42 "The Vortex" vortex blue https://imgur.com/mj8KanR.png`)
	require.Equal(t, PARSEID_NOT_A_COLOUR, result.parseid)
	require.Contains(t, result.errorMessage, "six hex digits")
}

func TestParseRounds(t *testing.T) {
	result := Parse("+", "+group D2.2 3,4")
	require.Equal(t, PARSEID_OK, result.parseid)
	require.Equal(t, RoundArguments{Alias: "D2.2", Rounds: []int{3, 4}}, result.arguments)
	require.Equal(t, "3,4", RoundsLabel([]int{3, 4}))

	result = Parse("+", "+sequence ECC8 5")
	require.Equal(t, PARSEID_OK, result.parseid)
	require.Equal(t, COMMAND_SEQUENCE, result.command)
	require.Equal(t, RoundArguments{Alias: "ECC8", Rounds: []int{5}}, result.arguments)
}

func TestParseAddSequence(t *testing.T) {
	result := Parse("+", "+addsequence ECC8 CC1,CC2,Vortex")
	require.Equal(t, PARSEID_OK, result.parseid)
	require.Equal(t, AddSequenceArguments{Alias: "ecc8", Groups: []string{"CC1", "CC2", "Vortex"}}, result.arguments)
}

func TestParseWithOtherPrefix(t *testing.T) {
	result := Parse("!", "!removerole <@&1234>")
	require.Equal(t, PARSEID_OK, result.parseid)
	require.Equal(t, COMMAND_REMOVE_ROLE, result.command)
	require.Equal(t, "<@&1234>", result.arguments)
}

func TestSplitArguments(t *testing.T) {
	words, ok := splitArguments(`a  "b c"  d"e f"g ""`)
	require.True(t, ok)
	require.Equal(t, []string{"a", "b c", "de fg", ""}, words)

	_, ok = splitArguments(`"open`)
	require.False(t, ok)
}
