package toornament

import (
	"github.com/gravitational/trace"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type rawCustomFields struct {
	ShortName *string `json:"short_name"`
	Emote     *string `json:"emote"`
}

type rawParticipant struct {
	Id           *string          `json:"id"`
	Name         *string          `json:"name"`
	CustomFields *rawCustomFields `json:"custom_fields"`
}

func UnmarshalTournament(data []byte) (Tournament, error) {

	var raw struct {
		Id         *string `json:"id"`
		Name       *string `json:"name"`
		FullName   *string `json:"full_name"`
		Discipline string  `json:"discipline"`
		Logo       *Logo   `json:"logo"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Tournament{}, trace.BadParameter("tournament is not correctly formatted: %v", err)
	}
	if raw.Id == nil || raw.Name == nil {
		return Tournament{}, trace.BadParameter("tournament is missing its id or name")
	}

	tournament := Tournament{Id: TournamentId(*raw.Id), Name: *raw.Name, Discipline: raw.Discipline}
	if raw.FullName != nil {
		tournament.FullName = *raw.FullName
	}
	if raw.Logo != nil {
		tournament.Logo = *raw.Logo
	}
	return tournament, nil
}

func UnmarshalStage(data []byte, tournamentId TournamentId) (Stage, error) {

	var raw struct {
		Id     *string `json:"id"`
		Number int     `json:"number"`
		Name   *string `json:"name"`
		Type   string  `json:"type"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Stage{}, trace.BadParameter("stage is not correctly formatted: %v", err)
	}
	if raw.Id == nil || raw.Name == nil {
		return Stage{}, trace.BadParameter("stage is missing its id or name")
	}
	return Stage{Id: StageId(*raw.Id), TournamentId: tournamentId, Number: raw.Number, Name: *raw.Name, Type: raw.Type}, nil
}

func UnmarshalGroups(items []jsoniter.RawMessage, tournamentId TournamentId) ([]Group, error) {

	groups := make([]Group, 0, len(items))
	for _, item := range items {
		var raw struct {
			Id      *string `json:"id"`
			StageId *string `json:"stage_id"`
			Number  int     `json:"number"`
			Name    *string `json:"name"`
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, trace.BadParameter("group is not correctly formatted: %v", err)
		}
		if raw.Id == nil || raw.StageId == nil || raw.Name == nil {
			return nil, trace.BadParameter("group is missing its id, stage id or name")
		}
		groups = append(groups, Group{
			Id:           GroupId(*raw.Id),
			StageId:      StageId(*raw.StageId),
			TournamentId: tournamentId,
			Number:       raw.Number,
			Name:         *raw.Name,
		})
	}
	return groups, nil
}

func UnmarshalRanking(items []jsoniter.RawMessage) ([]RankingEntry, error) {

	ranking := make([]RankingEntry, 0, len(items))
	for _, item := range items {
		var raw struct {
			Number      int             `json:"number"`
			Position    *int            `json:"position"`
			Rank        *int            `json:"rank"`
			Points      *int            `json:"points"`
			Participant *rawParticipant `json:"participant"`
			Properties  *struct {
				Played          int  `json:"played"`
				Wins            *int `json:"wins"`
				Draws           int  `json:"draws"`
				Losses          *int `json:"losses"`
				ScoreDifference *int `json:"score_difference"`
			} `json:"properties"`
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, trace.BadParameter("ranking item is not correctly formatted: %v", err)
		}
		if raw.Position == nil {
			return nil, trace.BadParameter("ranking item is missing its position")
		}
		if raw.Participant == nil {
			return nil, trace.BadParameter("ranking item at position %d has no participant", *raw.Position)
		}
		participant, err := unmarshalParticipant(raw.Participant)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		properties := raw.Properties
		if properties == nil || properties.Wins == nil || properties.Losses == nil || properties.ScoreDifference == nil {
			return nil, trace.BadParameter("ranking item of %s is missing wins, losses or score difference", participant.Name)
		}

		entry := RankingEntry{
			Number:          raw.Number,
			Position:        *raw.Position,
			Rank:            raw.Rank,
			Participant:     participant,
			Played:          properties.Played,
			Wins:            *properties.Wins,
			Draws:           properties.Draws,
			Losses:          *properties.Losses,
			ScoreDifference: *properties.ScoreDifference,
		}
		if raw.Points != nil {
			entry.Points = *raw.Points
		}
		ranking = append(ranking, entry)
	}
	return ranking, nil
}

func UnmarshalMatches(items []jsoniter.RawMessage) ([]Match, error) {

	matches := make([]Match, 0, len(items))
	for _, item := range items {
		var raw struct {
			Id        *string `json:"id"`
			Status    *string `json:"status"`
			Number    int     `json:"number"`
			Opponents []struct {
				Number      int             `json:"number"`
				Participant *rawParticipant `json:"participant"`
				Score       *int            `json:"score"`
				Forfeit     bool            `json:"forfeit"`
				Result      *string         `json:"result"`
			} `json:"opponents"`
		}
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, trace.BadParameter("match is not correctly formatted: %v", err)
		}
		if raw.Id == nil || raw.Status == nil {
			return nil, trace.BadParameter("match is missing its id or status")
		}
		if len(raw.Opponents) != 2 {
			return nil, trace.BadParameter("match %s has %d opponents instead of 2", *raw.Id, len(raw.Opponents))
		}

		match := Match{Id: *raw.Id, Status: MatchStatus(*raw.Status), Number: raw.Number}
		for i, rawOpponent := range raw.Opponents {
			opponent := Opponent{Number: rawOpponent.Number, Score: rawOpponent.Score, Forfeit: rawOpponent.Forfeit}
			if rawOpponent.Result != nil {
				opponent.Result = *rawOpponent.Result
			}
			if rawOpponent.Participant != nil {
				participant, err := unmarshalParticipant(rawOpponent.Participant)
				if err != nil {
					return nil, trace.Wrap(err)
				}
				opponent.Participant = &participant
			}
			match.Opponents[i] = opponent
		}
		matches = append(matches, match)
	}
	return matches, nil
}

func UnmarshalParticipants(items []jsoniter.RawMessage) ([]Participant, error) {

	participants := make([]Participant, 0, len(items))
	for _, item := range items {
		var raw rawParticipant
		if err := json.Unmarshal(item, &raw); err != nil {
			return nil, trace.BadParameter("participant is not correctly formatted: %v", err)
		}
		participant, err := unmarshalParticipant(&raw)
		if err != nil {
			return nil, trace.Wrap(err)
		}
		participants = append(participants, participant)
	}
	return participants, nil
}

func unmarshalParticipant(raw *rawParticipant) (Participant, error) {
	if raw.Name == nil {
		return Participant{}, trace.BadParameter("participant is missing its name")
	}
	participant := Participant{Name: *raw.Name}
	if raw.Id != nil {
		participant.Id = ParticipantId(*raw.Id)
	}
	if raw.CustomFields != nil {
		if raw.CustomFields.ShortName != nil {
			participant.ShortName = *raw.CustomFields.ShortName
		}
		if raw.CustomFields.Emote != nil {
			participant.Emote = *raw.CustomFields.Emote
		}
	}
	return participant, nil
}
