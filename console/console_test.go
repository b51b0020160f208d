package console

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trawler-io/trawler"
)

type fakeModel struct {
	inserted  []string
	insertErr error
	status    *StatusInfo
	statusErr error
}

func (m *fakeModel) InsertLinks(ctx context.Context, links []string) []error {
	if m.insertErr != nil {
		return []error{m.insertErr}
	}
	m.inserted = append(m.inserted, links...)
	return nil
}

func (m *fakeModel) Status(ctx context.Context) (*StatusInfo, error) {
	return m.status, m.statusErr
}

func setupConsole(t *testing.T, model *fakeModel) {
	t.Helper()
	orig := trawler.Config.Console.TemplateDirectory
	trawler.Config.Console.TemplateDirectory = "templates"
	t.Cleanup(func() { trawler.Config.Console.TemplateDirectory = orig })
	BuildRender()
	DS = model
	t.Cleanup(func() { DS = nil })
}

func callController(urlPattern, url, body string, controller func(http.ResponseWriter, *http.Request)) (int, string) {
	method := "GET"
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		method = "POST"
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)

	router := mux.NewRouter()
	router.HandleFunc(urlPattern, controller)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w.Code, w.Body.String()
}

func TestRestAdd(t *testing.T) {
	model := &fakeModel{}
	setupConsole(t, model)

	body := `{"version": 1, "links": [{"url": "http://test.com/a"}, {"url": "http://test.com/b"}]}`
	status, _ := callController("/rest/add", "/rest/add", body, RestAdd)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, []string{"http://test.com/a", "http://test.com/b"}, model.inserted)
}

func TestRestAddBadInput(t *testing.T) {
	model := &fakeModel{}
	setupConsole(t, model)

	tests := []struct {
		name string
		body string
		tag  string
	}{
		{"garbage", "{{{{", "bad-json-decode"},
		{"noLinks", `{"version": 1, "links": []}`, "empty-links"},
		{"emptyURL", `{"version": 1, "links": [{"url": ""}]}`, "bad-link-element"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := callController("/rest/add", "/rest/add", tt.body, RestAdd)
			assert.Equal(t, http.StatusBadRequest, status)
			var errResp restErrorResponse
			require.NoError(t, json.Unmarshal([]byte(out), &errResp))
			assert.Equal(t, tt.tag, errResp.Tag)
			assert.Empty(t, model.inserted)
		})
	}
}

func TestRestAddInsertFailure(t *testing.T) {
	model := &fakeModel{insertErr: fmt.Errorf("frontier down")}
	setupConsole(t, model)

	body := `{"version": 1, "links": [{"url": "http://test.com/a"}]}`
	status, out := callController("/rest/add", "/rest/add", body, RestAdd)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, out, "frontier down")
}

func TestStatusController(t *testing.T) {
	model := &fakeModel{status: &StatusInfo{
		GeneratedTS:   1700000000,
		VisitedCount:  12,
		FrontierSize:  34,
		PageCount:     10,
		RobotsBlocked: 2,
		TopDomains:    []trawler.DomainCount{{Domain: "test.com", Count: 10}},
	}}
	setupConsole(t, model)

	status, out := callController("/status", "/status", "", StatusController)
	require.Equal(t, http.StatusOK, status)

	var got StatusInfo
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, *model.status, got)
}

func TestHomeController(t *testing.T) {
	model := &fakeModel{status: &StatusInfo{
		VisitedCount: 7,
		TopDomains:   []trawler.DomainCount{{Domain: "test.com", Count: 7}},
	}}
	setupConsole(t, model)

	status, out := callController("/", "/", "", HomeController)
	assert.Equal(t, http.StatusOK, status)
	assert.Contains(t, out, "test.com")
}

func TestHomeControllerError(t *testing.T) {
	model := &fakeModel{statusErr: fmt.Errorf("redis down")}
	setupConsole(t, model)

	status, out := callController("/", "/", "", HomeController)
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, out, "redis down")
}
