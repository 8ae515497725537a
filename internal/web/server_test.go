package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bigredeye/notmanyjudges/api"
	"github.com/bigredeye/notmanyjudges/internal/config"
	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/internal/live"
	"github.com/bigredeye/notmanyjudges/internal/metrics"
	"github.com/bigredeye/notmanyjudges/internal/models"
	"github.com/bigredeye/notmanyjudges/internal/scoring"
	"github.com/bigredeye/notmanyjudges/internal/store"
	"github.com/bigredeye/notmanyjudges/internal/store/memory"
)

const adminToken = "organizer-secret"

const testRubric = `
- name: innovation
- name: execution
- name: pitch
  maxScore: 5
`

func init() {
	gin.SetMode(gin.TestMode)
}

type testEnv struct {
	server *Server
	store  *memory.Store
	hub    *live.Hub
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	conf := &config.Config{}
	conf.Server.Cookies.Insecure = true
	conf.Admin.Tokens = []string{adminToken}
	conf.Admin.Logins = []string{"organizer"}
	conf.SetDefaults()

	log := zap.NewNop()
	s := memory.New()
	hub := live.NewHub(log)
	m := metrics.New()
	board := leaderboard.NewBoard(s, log, leaderboard.WithBuildObserver(m.ObserveLeaderboardBuild))
	t.Cleanup(board.Stop)
	t.Cleanup(board.Attach(hub))
	aggregator := scoring.NewAggregator(s, log, scoring.WithPublisher(hub), scoring.WithObserver(m))

	server, err := NewServer(conf, log, Deps{
		Repository: s,
		Aggregator: aggregator,
		Board:      board,
		Hub:        hub,
		Metrics:    m,
	})
	require.NoError(t, err)
	return &testEnv{server: server, store: s, hub: hub}
}

type request struct {
	method  string
	path    string
	body    interface{}
	raw     string
	token   string
	cookies []*http.Cookie
}

func (e *testEnv) do(t *testing.T, r request, out interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	if r.body != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(r.body))
	} else {
		body.WriteString(r.raw)
	}
	req := httptest.NewRequest(r.method, r.path, &body)
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.token != "" {
		req.Header.Set(tokenHeader, r.token)
	}
	for _, c := range r.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec
}

type seeded struct {
	event *models.Event
	teams []*models.Team
	codes map[models.PanelSlot]string
}

func (e *testEnv) seed(t *testing.T, name string) *seeded {
	t.Helper()
	res := &seeded{codes: make(map[models.PanelSlot]string)}

	eventResp := api.EventResponse{}
	rec := e.do(t, request{method: "POST", path: "/api/admin/events", token: adminToken, body: api.CreateEventRequest{Name: name}}, &eventResp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res.event = eventResp.Event
	eventPath := "/api/admin/events/" + itoa(res.event.ID)

	criteriaResp := api.CriteriaResponse{}
	rec = e.do(t, request{method: "POST", path: eventPath + "/criteria/import", token: adminToken, raw: testRubric}, &criteriaResp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Len(t, criteriaResp.Criteria, 3)

	for _, teamName := range []string{"Kernel Panic", "Undefined Behaviour"} {
		teamResp := api.TeamResponse{}
		rec = e.do(t, request{method: "POST", path: eventPath + "/teams", token: adminToken, body: api.CreateTeamRequest{Name: teamName}}, &teamResp)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res.teams = append(res.teams, teamResp.Team)
	}

	for _, slot := range models.PanelSlots {
		juryResp := api.JuryResponse{}
		rec = e.do(t, request{method: "POST", path: eventPath + "/juries", token: adminToken, body: api.CreateJuryRequest{Name: "Jury " + itoa(uint(slot)), Panel: slot}}, &juryResp)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		res.codes[slot] = juryResp.Jury.AccessCode
	}
	return res
}

func (e *testEnv) loginJury(t *testing.T, code string) []*http.Cookie {
	t.Helper()
	resp := api.JuryLoginResponse{}
	rec := e.do(t, request{method: "POST", path: "/api/jury/login", body: api.JuryLoginRequest{AccessCode: code}}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.True(t, resp.Ok)
	return rec.Result().Cookies()
}

func itoa(v uint) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func submission(innovation, execution, pitch int) *scoring.Submission {
	return &scoring.Submission{
		Scores:  map[string]int{"innovation": innovation, "execution": execution, "pitch": pitch},
		Remarks: "a working prototype with a clear story",
	}
}

func TestPing(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, request{method: "GET", path: "/ping"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.HasPrefix(rec.Body.String(), "pong "))
}

func TestScoringFlow(t *testing.T) {
	env := newTestEnv(t)
	seed := env.seed(t, "spring-hack")
	team := seed.teams[0]
	scoresPath := "/api/teams/" + itoa(team.ID) + "/scores"

	panel1 := env.loginJury(t, seed.codes[models.Panel1])
	panel2 := env.loginJury(t, seed.codes[models.Panel2])

	me := api.JuryLoginResponse{}
	env.do(t, request{method: "GET", path: "/api/jury/me", cookies: panel2}, &me)
	require.NotNil(t, me.Session)
	assert.Equal(t, models.Panel2, me.Session.Panel)
	assert.Equal(t, seed.event.ID, me.Session.EventID)

	resp := api.SubmitScoreResponse{}
	rec := env.do(t, request{method: "POST", path: scoresPath, cookies: panel1, body: submission(9, 8, 5)}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.NotNil(t, resp.Scores.AvgScore)
	assert.Equal(t, 22.0, *resp.Scores.AvgScore)

	resp = api.SubmitScoreResponse{}
	rec = env.do(t, request{method: "POST", path: scoresPath, cookies: panel2, body: submission(6, 6, 4)}, &resp)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 19.0, *resp.Scores.AvgScore)

	resp = api.SubmitScoreResponse{}
	rec = env.do(t, request{method: "POST", path: scoresPath, cookies: panel1, body: submission(1, 1, 1)}, &resp)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.False(t, resp.Ok)

	panel3 := env.loginJury(t, seed.codes[models.Panel3])
	resp = api.SubmitScoreResponse{}
	rec = env.do(t, request{method: "POST", path: scoresPath, cookies: panel3, body: submission(10, 10, 6)}, &resp)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{`score for "pitch" must be within [1, 5], got 6`}, resp.Problems)

	standings := api.StandingsResponse{}
	rec = env.do(t, request{method: "GET", path: "/api/events/" + itoa(seed.event.ID) + "/leaderboard"}, &standings)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, standings.Standings.Entries, 2)
	top := standings.Standings.Entries[0]
	assert.Equal(t, 1, top.Rank)
	assert.Equal(t, "Kernel Panic", top.TeamName)
	assert.Equal(t, 2, top.Scored)
	assert.Equal(t, 0, standings.Standings.Entries[1].Rank)

	scores := api.TeamScoresResponse{}
	rec = env.do(t, request{method: "GET", path: scoresPath, token: adminToken}, &scores)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{22, 16}, scores.Scores.Totals())

	rec = env.do(t, request{method: "GET", path: "/events/" + itoa(seed.event.ID)}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Kernel Panic")
	assert.Contains(t, rec.Body.String(), "19.00")
}

func TestAccessControl(t *testing.T) {
	env := newTestEnv(t)
	seed := env.seed(t, "autumn-hack")
	other := env.seed(t, "winter-hack")
	scoresPath := "/api/teams/" + itoa(seed.teams[0].ID) + "/scores"

	rec := env.do(t, request{method: "POST", path: scoresPath, body: submission(5, 5, 5)}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, request{method: "GET", path: scoresPath}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, request{method: "GET", path: scoresPath, token: "guess"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(t, request{method: "POST", path: "/api/jury/login", body: api.JuryLoginRequest{AccessCode: "nope"}}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	foreign := env.loginJury(t, other.codes[models.Panel1])
	rec = env.do(t, request{method: "POST", path: scoresPath, cookies: foreign, body: submission(5, 5, 5)}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	judge := env.loginJury(t, seed.codes[models.Panel1])
	rec = env.do(t, request{method: "POST", path: "/api/teams/100500/scores", cookies: judge, body: submission(5, 5, 5)}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, request{method: "POST", path: "/api/feedback", cookies: judge, body: api.FeedbackRequest{Scores: map[string]int{"pitch": 3}}}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestAdminOperations(t *testing.T) {
	env := newTestEnv(t)
	seed := env.seed(t, "summer-hack")
	eventPath := "/api/admin/events/" + itoa(seed.event.ID)

	rec := env.do(t, request{method: "POST", path: "/api/admin/events", token: adminToken, body: api.CreateEventRequest{Name: "summer-hack"}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	criteria := api.CriteriaResponse{}
	env.do(t, request{method: "GET", path: "/api/events/" + itoa(seed.event.ID) + "/criteria"}, &criteria)
	require.Len(t, criteria.Criteria, 3)
	pitch := criteria.Criteria[2]

	rec = env.do(t, request{method: "POST", path: "/api/admin/criteria/" + itoa(pitch.ID) + "/active", token: adminToken, body: api.SetActiveRequest{Active: false}}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	active := api.CriteriaResponse{}
	env.do(t, request{method: "GET", path: "/api/events/" + itoa(seed.event.ID) + "/criteria?active=1"}, &active)
	assert.Len(t, active.Criteria, 2)

	// The inactive criterion is no longer accepted or required.
	judge := env.loginJury(t, seed.codes[models.Panel1])
	team := seed.teams[1]
	sub := &scoring.Submission{Scores: map[string]int{"innovation": 7, "execution": 7}, Remarks: "ambitious but unfinished"}
	rec = env.do(t, request{method: "POST", path: "/api/teams/" + itoa(team.ID) + "/scores", cookies: judge, body: sub}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	recomputed := api.TeamScoresResponse{}
	rec = env.do(t, request{method: "POST", path: "/api/admin/teams/" + itoa(team.ID) + "/recompute", token: adminToken}, &recomputed)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 14.0, *recomputed.Scores.AvgScore)

	rec = env.do(t, request{method: "POST", path: "/api/admin/teams/" + itoa(seed.teams[0].ID) + "/consolidate", token: adminToken}, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = env.do(t, request{method: "POST", path: eventPath + "/juries", token: adminToken, body: api.CreateJuryRequest{Name: "Extra", Panel: 4}}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, request{method: "POST", path: eventPath + "/juries", token: adminToken, body: api.CreateJuryRequest{Name: "Second panel two", Panel: models.Panel2}}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	juries := api.JuriesResponse{}
	env.do(t, request{method: "GET", path: eventPath + "/juries", token: adminToken}, &juries)
	assert.Len(t, juries.Juries, 3)

	rec = env.do(t, request{method: "DELETE", path: "/api/admin/teams/" + itoa(team.ID), token: adminToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	standings := api.StandingsResponse{}
	env.do(t, request{method: "GET", path: "/api/events/" + itoa(seed.event.ID) + "/leaderboard"}, &standings)
	require.Len(t, standings.Standings.Entries, 1)
	assert.Equal(t, "Kernel Panic", standings.Standings.Entries[0].TeamName)

	rec = env.do(t, request{method: "DELETE", path: eventPath, token: adminToken}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, request{method: "GET", path: "/api/events/" + itoa(seed.event.ID) + "/leaderboard"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLeaderboardStream(t *testing.T) {
	env := newTestEnv(t)
	seed := env.seed(t, "stream-hack")

	srv := httptest.NewServer(env.server.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/events/"+itoa(seed.event.ID)+"/leaderboard/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	reader := bufio.NewReader(resp.Body)
	nextStandings := func() *leaderboard.Standings {
		for {
			line, err := reader.ReadString('\n')
			require.NoError(t, err)
			if strings.HasPrefix(line, "data:") {
				standings := &leaderboard.Standings{}
				require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "data:"))), standings))
				return standings
			}
		}
	}

	first := nextStandings()
	require.Len(t, first.Entries, 2)
	assert.False(t, first.Entries[0].Ranked())

	avg := 12.0
	team := seed.teams[1]
	require.NoError(t, env.store.MergeAggregate(ctx, team.ID, &store.Patch{
		Panel:    &models.PanelScore{Panel: models.Panel2, Total: 12},
		AvgScore: &avg,
	}))
	env.hub.Publish(live.Event{Kind: live.KindPanelSubmitted, EventID: seed.event.ID, TeamID: team.ID, Panel: models.Panel2})

	second := nextStandings()
	require.Len(t, second.Entries, 2)
	assert.Equal(t, "Undefined Behaviour", second.Entries[0].TeamName)
	assert.Equal(t, 1, second.Entries[0].Rank)
}
