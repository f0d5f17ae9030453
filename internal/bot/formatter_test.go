package bot

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitFieldKeepsShortText(t *testing.T) {
	fields := splitField("Standings", "a\nb", "```")
	require.Len(t, fields, 1)
	require.Equal(t, "```a\nb```", fields[0].Value)

	fields = splitField("Week 1", "", "")
	require.Len(t, fields, 1)
	require.Equal(t, EMPTY_FIELD, fields[0].Value)
}

func TestSplitFieldRespectsLimit(t *testing.T) {
	lines := []string{}
	for i := 0; i < 100; i++ {
		lines = append(lines, fmt.Sprintf("#%02d | Some rather long team name | 10-2 | +14", i))
	}
	text := strings.Join(lines, "\n")

	fields := splitField("Standings", text, "```")
	require.Greater(t, len(fields), 1)
	require.Equal(t, "Standings", fields[0].Name)

	rebuilt := []string{}
	for i, field := range fields {
		require.LessOrEqual(t, len(field.Value), FIELD_LIMIT)
		require.True(t, strings.HasPrefix(field.Value, "```"))
		require.True(t, strings.HasSuffix(field.Value, "```"))
		if i > 0 {
			require.Equal(t, CONTINUED_FIELD, field.Name)
		}
		rebuilt = append(rebuilt, strings.Trim(field.Value, "`"))
	}
	// No line was lost or cut
	require.Equal(t, text, strings.Join(rebuilt, "\n"))
}

func TestSplitFieldTruncatesLongLine(t *testing.T) {
	fields := splitField("Week 1", strings.Repeat("é", FIELD_LIMIT), "")
	require.Len(t, fields, 1)
	require.LessOrEqual(t, len(fields[0].Value), FIELD_LIMIT)
	require.True(t, strings.HasSuffix(fields[0].Value, "…"))
}
