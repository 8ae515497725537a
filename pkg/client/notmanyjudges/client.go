package notmanyjudges

import (
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/bigredeye/notmanyjudges/api"
	"github.com/bigredeye/notmanyjudges/internal/leaderboard"
	"github.com/bigredeye/notmanyjudges/internal/models"
)

type Client struct {
	client *resty.Client
}

func NewClient(endpoint, token string) (*Client, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	client := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(time.Second * 10).
		SetRetryCount(3)

	client.Header.Add("Token", token)

	return &Client{client}, nil
}

type response interface {
	GetStatus() api.Status
}

func call(req *resty.Request, method, url string, res response, what string) error {
	resp, err := req.SetResult(res).SetError(res).Execute(method, url)
	if err != nil {
		return err
	}
	if status := res.GetStatus(); !status.Ok {
		if status.Error == "" {
			status.Error = resp.Status()
		}
		return fmt.Errorf("failed to %s: %s", what, status.Error)
	}
	return nil
}

func id(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}

func (c *Client) LoadStandings(eventID uint) (*leaderboard.Standings, error) {
	res := &api.StandingsResponse{}
	req := c.client.R().SetPathParam("event", id(eventID))
	if err := call(req, resty.MethodGet, "/api/events/{event}/leaderboard", res, "fetch standings"); err != nil {
		return nil, err
	}
	return res.Standings, nil
}

func (c *Client) LoadTeamScores(teamID uint) (*models.TeamScores, error) {
	res := &api.TeamScoresResponse{}
	req := c.client.R().SetPathParam("team", id(teamID))
	if err := call(req, resty.MethodGet, "/api/teams/{team}/scores", res, "fetch team scores"); err != nil {
		return nil, err
	}
	return res.Scores, nil
}

func (c *Client) ListEvents() ([]models.Event, error) {
	res := &api.EventsResponse{}
	if err := call(c.client.R(), resty.MethodGet, "/api/admin/events", res, "list events"); err != nil {
		return nil, err
	}
	return res.Events, nil
}

func (c *Client) ListTeams(eventID uint) ([]models.Team, error) {
	res := &api.TeamsResponse{}
	req := c.client.R().SetPathParam("event", id(eventID))
	if err := call(req, resty.MethodGet, "/api/events/{event}/teams", res, "list teams"); err != nil {
		return nil, err
	}
	return res.Teams, nil
}

func (c *Client) ImportRubric(eventID uint, rubric []byte) ([]models.Criterion, error) {
	res := &api.CriteriaResponse{}
	req := c.client.R().
		SetPathParam("event", id(eventID)).
		SetHeader("Content-Type", "application/yaml").
		SetBody(rubric)
	if err := call(req, resty.MethodPost, "/api/admin/events/{event}/criteria/import", res, "import rubric"); err != nil {
		return nil, err
	}
	return res.Criteria, nil
}

func (c *Client) Recompute(teamID uint) (*models.TeamScores, error) {
	res := &api.TeamScoresResponse{}
	req := c.client.R().SetPathParam("team", id(teamID))
	if err := call(req, resty.MethodPost, "/api/admin/teams/{team}/recompute", res, "recompute average"); err != nil {
		return nil, err
	}
	return res.Scores, nil
}

func (c *Client) Consolidate(teamID uint) (*models.TeamScores, error) {
	res := &api.TeamScoresResponse{}
	req := c.client.R().SetPathParam("team", id(teamID))
	if err := call(req, resty.MethodPost, "/api/admin/teams/{team}/consolidate", res, "consolidate feedback"); err != nil {
		return nil, err
	}
	return res.Scores, nil
}
