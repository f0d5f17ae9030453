package toornament

import "fmt"

type TournamentId string
type StageId string
type GroupId string
type ParticipantId string
type MatchStatus string

const (
	MATCH_PENDING   MatchStatus = "pending"
	MATCH_RUNNING   MatchStatus = "running"
	MATCH_COMPLETED MatchStatus = "completed"
)

type Logo struct {
	LogoSmall  string `json:"logo_small"`
	LogoMedium string `json:"logo_medium"`
	LogoLarge  string `json:"logo_large"`
	Original   string `json:"original"`
}

type Tournament struct {
	Id         TournamentId
	Name       string
	FullName   string
	Discipline string
	Logo       Logo
}

type Stage struct {
	Id           StageId
	TournamentId TournamentId
	Number       int
	Name         string
	Type         string
}

// Group identifies a group inside a stage of a tournament.
// This is the descriptor stored by the registry, so it keeps its json layout
type Group struct {
	Id           GroupId      `json:"id"`
	StageId      StageId      `json:"stage_id"`
	TournamentId TournamentId `json:"tournament_id"`
	Number       int          `json:"number"`
	Name         string       `json:"name"`
}

// Participant is a team as shown in rankings and matches.
// Short name and emote are custom fields configured on the platform
// and are empty when not configured
type Participant struct {
	Id        ParticipantId
	Name      string
	ShortName string
	Emote     string
}

type RankingEntry struct {
	Number   int
	Position int
	// Rank is nil until the platform computes it
	Rank            *int
	Participant     Participant
	Played          int
	Wins            int
	Draws           int
	Losses          int
	Points          int
	ScoreDifference int
}

type Opponent struct {
	Number int
	// Participant is nil while the opponent is still to be determined
	Participant *Participant
	Score       *int
	Forfeit     bool
	Result      string
}

type Match struct {
	Id        string
	Status    MatchStatus
	Number    int
	Opponents [2]Opponent
}

func (group Group) String() string {
	return fmt.Sprintf("%s (tournament %s, stage %s, group %s)", group.Name, group.TournamentId, group.StageId, group.Id)
}

// DisplayName prefers the configured short name
func (participant Participant) DisplayName() string {
	if participant.ShortName != "" {
		return participant.ShortName
	}
	return participant.Name
}
