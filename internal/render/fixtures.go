package render

import (
	"fmt"
	"strconv"
	"strings"

	"toornabot/internal/toornament"
)

// Name shown while an opponent is still to be determined
const UNDETERMINED = "TBD"

// FixtureSide is one opponent of a match ready to be printed
type FixtureSide struct {
	Name  string
	Emote string
	Score string
}

// Fixture is a match ready to be printed
type Fixture struct {
	Pending bool
	Home    FixtureSide
	Away    FixtureSide
}

// NewFixture prepares a match for printing.
// When any of the opponents forfeited, scores are replaced by
// FF for the forfeiting side and W for the other
func NewFixture(match toornament.Match, emotes EmoteSet) Fixture {
	home := newFixtureSide(match.Opponents[0], emotes)
	away := newFixtureSide(match.Opponents[1], emotes)

	if match.Opponents[0].Forfeit || match.Opponents[1].Forfeit {
		home.Score = forfeitScore(match.Opponents[0].Forfeit)
		away.Score = forfeitScore(match.Opponents[1].Forfeit)
	}

	return Fixture{Pending: match.Status == toornament.MATCH_PENDING, Home: home, Away: away}
}

func (fixture Fixture) String() string {
	home := fmt.Sprintf("%s %s", fixture.Home.Name, fixture.Home.Emote)
	away := fmt.Sprintf("%s %s", fixture.Away.Emote, fixture.Away.Name)
	if fixture.Pending {
		return fmt.Sprintf("%s vs %s", home, away)
	}
	return fmt.Sprintf("%s %s-%s %s", home, fixture.Home.Score, fixture.Away.Score, away)
}

// Fixtures renders one line per match
func Fixtures(matches []toornament.Match, emotes EmoteSet) string {
	lines := make([]string, len(matches))
	for i, match := range matches {
		lines[i] = NewFixture(match, emotes).String()
	}
	return strings.Join(lines, "\n")
}

func newFixtureSide(opponent toornament.Opponent, emotes EmoteSet) FixtureSide {
	side := FixtureSide{Name: UNDETERMINED, Emote: UNKNOWN_EMOTE, Score: "0"}
	if opponent.Participant != nil {
		side.Name = opponent.Participant.DisplayName()
		side.Emote = emotes.Resolve(opponent.Participant.Emote, opponent.Participant.Name)
	}
	if opponent.Score != nil {
		side.Score = strconv.Itoa(*opponent.Score)
	}
	return side
}

func forfeitScore(forfeit bool) string {
	if forfeit {
		return "FF"
	}
	return "W"
}
