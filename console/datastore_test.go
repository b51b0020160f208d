package console

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawler-io/trawler"
)

func TestDatastoreInsertLinks(t *testing.T) {
	frontier := &trawler.MockFrontier{}
	frontier.On("PushMany", []string{"http://test.com/", "http://test.com/page"}, time.Time{}).Return(nil)
	ds := &Datastore{Frontier: frontier}

	errs := ds.InsertLinks(context.Background(), []string{
		"http://test.com",
		"not a url at all",
		"http://Test.com/page#frag",
	})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "not a url at all")
	frontier.AssertExpectations(t)
}

func TestDatastoreStatus(t *testing.T) {
	frontier := &trawler.MockFrontier{}
	frontier.On("Size").Return(int64(5), nil)
	visited := &trawler.MockVisitedSet{}
	visited.On("Count").Return(int64(12), nil)
	store := &trawler.MockPageStore{}
	store.On("CountPages").Return(int64(11), nil)
	store.On("DomainCounts", topDomainCount).Return([]trawler.DomainCount{{Domain: "test.com", Count: 11}}, nil)
	counter := &trawler.MockCounter{}
	counter.On("Value").Return(int64(3), nil)

	ds := &Datastore{Frontier: frontier, Visited: visited, Store: store, RobotsBlocked: counter}
	info, err := ds.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(12), info.VisitedCount)
	assert.Equal(t, int64(5), info.FrontierSize)
	assert.Equal(t, int64(11), info.PageCount)
	assert.Equal(t, int64(3), info.RobotsBlocked)
	require.Len(t, info.TopDomains, 1)
	assert.Greater(t, info.GeneratedTS, float64(0))
}
