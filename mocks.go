package trawler

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
)

// MockFrontier implements Frontier for testing.
type MockFrontier struct {
	mock.Mock
}

func (m *MockFrontier) Push(ctx context.Context, url string, readyAt time.Time) error {
	args := m.Called(url, readyAt)
	return args.Error(0)
}

func (m *MockFrontier) PushMany(ctx context.Context, urls []string, readyAt time.Time) error {
	args := m.Called(urls, readyAt)
	return args.Error(0)
}

func (m *MockFrontier) PopReady(ctx context.Context, max int) ([]string, error) {
	args := m.Called(max)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockFrontier) Size(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockFrontier) Clear(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockVisitedSet implements VisitedSet for testing.
type MockVisitedSet struct {
	mock.Mock
}

func (m *MockVisitedSet) IsVisited(ctx context.Context, url string) (bool, error) {
	args := m.Called(url)
	return args.Bool(0), args.Error(1)
}

func (m *MockVisitedSet) MarkVisited(ctx context.Context, url string, ts time.Time) error {
	args := m.Called(url, ts)
	return args.Error(0)
}

func (m *MockVisitedSet) HasMany(ctx context.Context, urls []string) ([]bool, error) {
	args := m.Called(urls)
	return args.Get(0).([]bool), args.Error(1)
}

func (m *MockVisitedSet) Count(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// MockRateLimiter implements RateLimiter for testing.
type MockRateLimiter struct {
	mock.Mock
}

func (m *MockRateLimiter) CheckAndReserve(ctx context.Context, domain string, cooldown time.Duration) (time.Time, bool, error) {
	args := m.Called(domain, cooldown)
	return args.Get(0).(time.Time), args.Bool(1), args.Error(2)
}

// MockRobotsPolicy implements RobotsPolicy for testing.
type MockRobotsPolicy struct {
	mock.Mock
}

func (m *MockRobotsPolicy) IsAllowed(ctx context.Context, u *URL) (bool, error) {
	args := m.Called(u.String())
	return args.Bool(0), args.Error(1)
}

// MockCounter implements Counter for testing.
type MockCounter struct {
	mock.Mock
}

func (m *MockCounter) Incr(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCounter) Value(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCounter) Reset(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

// MockPageStore implements PageStore for testing.
type MockPageStore struct {
	mock.Mock
}

func (m *MockPageStore) Init(ctx context.Context) error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockPageStore) SavePage(ctx context.Context, page *Page) error {
	args := m.Called(page)
	return args.Error(0)
}

func (m *MockPageStore) GetPage(ctx context.Context, url string) (*Page, error) {
	args := m.Called(url)
	return args.Get(0).(*Page), args.Error(1)
}

func (m *MockPageStore) CountPages(ctx context.Context) (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockPageStore) DomainCounts(ctx context.Context, limit int) ([]DomainCount, error) {
	args := m.Called(limit)
	return args.Get(0).([]DomainCount), args.Error(1)
}

func (m *MockPageStore) StatusCountsSince(ctx context.Context, since time.Time) (map[int]int64, error) {
	args := m.Called(since)
	return args.Get(0).(map[int]int64), args.Error(1)
}

func (m *MockPageStore) EachPageSince(ctx context.Context, since time.Time, fn func(url string, links []string) bool) error {
	args := m.Called(since)
	return args.Error(0)
}
