package render

import (
	"fmt"

	"toornabot/internal/toornament"
)

// StandingsRow holds the cells shown for one team of the ranking
type StandingsRow struct {
	Rank       string
	Name       string
	WinLoss    string
	Difference string
}

func (row StandingsRow) cells() []string {
	return []string{row.Rank, row.Name, row.WinLoss, row.Difference}
}

// NewStandingsRow formats a ranking entry.
// The rank falls back to the position while the platform has not ranked the team
func NewStandingsRow(entry toornament.RankingEntry) StandingsRow {
	rank := entry.Position
	if entry.Rank != nil {
		rank = *entry.Rank
	}
	return StandingsRow{
		Rank:       fmt.Sprintf("#%d", rank),
		Name:       entry.Participant.DisplayName(),
		WinLoss:    fmt.Sprintf("%d-%d", entry.Wins, entry.Losses),
		Difference: fmt.Sprintf("%+d", entry.ScoreDifference),
	}
}

// Standings renders the ranking as a table, in the order it was received
func Standings(ranking []toornament.RankingEntry) string {
	rows := make([][]string, len(ranking))
	for i, entry := range ranking {
		rows[i] = NewStandingsRow(entry).cells()
	}
	return AlignColumns(rows, COLUMN_SEPARATOR)
}
