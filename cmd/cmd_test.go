package cmd

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawler-io/trawler"
	"github.com/trawler-io/trawler/console"
)

func TestMergeDomainRows(t *testing.T) {
	pages := []trawler.DomainCount{
		{Domain: "a.com", Count: 10},
		{Domain: "b.com", Count: 3},
	}
	visited := map[string]int64{"a.com": 12, "c.com": 2}
	queued := map[string]int64{"b.com": 7}

	rows := mergeDomainRows(pages, visited, queued, 0)
	require.Equal(t, []domainRow{
		{Domain: "a.com", Pages: 10, Visited: 12},
		{Domain: "b.com", Pages: 3, Queued: 7},
		{Domain: "c.com", Visited: 2},
	}, rows)
}

func TestMergeDomainRowsLimit(t *testing.T) {
	visited := map[string]int64{"a.com": 3, "b.com": 2, "c.com": 1}
	rows := mergeDomainRows(nil, visited, nil, 2)
	require.Len(t, rows, 2)
	assert.Equal(t, "a.com", rows[0].Domain)
	assert.Equal(t, "b.com", rows[1].Domain)
}

func TestRenderDomainTable(t *testing.T) {
	out := renderDomainTable([]domainRow{
		{Domain: "a-very-long-domain-name.com", Pages: 1, Visited: 2, Queued: 3},
		{Domain: "b.com", Pages: 100},
	})
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "DOMAIN"))

	// Columns line up whatever the domain length.
	for _, line := range lines[1:] {
		assert.Equal(t, len(lines[0]), len(line))
	}
}

func TestRenderDashboard(t *testing.T) {
	out := renderDashboard(&console.StatusInfo{
		GeneratedTS:   1700000000,
		VisitedCount:  42,
		FrontierSize:  7,
		PageCount:     40,
		RobotsBlocked: 2,
		TopDomains:    []trawler.DomainCount{{Domain: "test.com", Count: 40}},
	})
	assert.Contains(t, out, `http-equiv="refresh"`)
	assert.Contains(t, out, "<td>42</td>")
	assert.Contains(t, out, "test.com")
}
