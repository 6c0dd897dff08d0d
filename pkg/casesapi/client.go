// Package casesapi is a client for the remote county case store.
package casesapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/regionsync/internal/fetcher"
	"github.com/sells-group/regionsync/internal/model"
)

// DefaultAuthScheme prefixes the token in the Authorization header.
const DefaultAuthScheme = "Token"

// UnknownBucket replaces an empty gender or age group.
const UnknownBucket = "unbekannt"

// maxListRecords caps a paginated read against stores that never end it.
var maxListRecords = fetcher.DefaultMaxRecords

// Client defines the remote store operations.
type Client interface {
	CreateRegion(ctx context.Context, region RegionPayload) error
	UpsertCaseDay(ctx context.Context, ags string, day CaseDayPayload) error
	UpsertDistribution(ctx context.Context, ags string, entry DistributionPayload) error
	ListCaseDays(ctx context.Context, ags string) ([]model.DayRecord, error)
}

// RegionPayload is the body for POST /county/.
type RegionPayload struct {
	Name                string  `json:"name"`
	AGS                 string  `json:"ags"`
	State               string  `json:"state,omitempty"`
	BEZ                 string  `json:"bez,omitempty"`
	GEN                 string  `json:"gen,omitempty"`
	Population          int64   `json:"population,omitempty"`
	PopulationDensityKm float64 `json:"population_density_km,omitempty"`
	PopulationMale      int64   `json:"population_male,omitempty"`
	PopulationFemale    int64   `json:"population_female,omitempty"`
}

// NewRegionPayload maps a region to its create payload.
func NewRegionPayload(r model.Region) RegionPayload {
	return RegionPayload{
		Name:                r.DisplayName(),
		AGS:                 r.AGS,
		State:               r.State,
		BEZ:                 r.BEZ,
		GEN:                 r.GEN,
		Population:          r.Population,
		PopulationDensityKm: r.PopulationDensityKm,
		PopulationMale:      r.PopulationMale,
		PopulationFemale:    r.PopulationFemale,
	}
}

// CaseDayPayload is the body for POST /county/{ags}/cases/.
type CaseDayPayload struct {
	model.DayRecord
	LastUpdated time.Time `json:"last_updated"`
}

// DistributionPayload is the body for POST /county/{ags}/gender_age/.
type DistributionPayload struct {
	InfectedTotal int64     `json:"infected_total"`
	DeathsTotal   int64     `json:"deaths_total"`
	Gender        string    `json:"gender"`
	AgeGroup      string    `json:"age_group"`
	Date          string    `json:"date_day"`
	LastUpdated   time.Time `json:"last_updated"`
}

// NewDistributionPayload maps a distribution bucket for the given day.
func NewDistributionPayload(e model.DistributionEntry, date string, now time.Time) DistributionPayload {
	p := DistributionPayload{
		InfectedTotal: e.InfectedTotal,
		DeathsTotal:   e.DeathsTotal,
		Gender:        e.Gender,
		AgeGroup:      e.AgeGroup,
		Date:          date,
		LastUpdated:   now.UTC(),
	}
	if p.Gender == "" {
		p.Gender = UnknownBucket
	}
	if p.AgeGroup == "" {
		p.AgeGroup = UnknownBucket
	}
	return p
}

// APIError is returned when the store responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("casesapi: HTTP %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithAuthScheme overrides the Authorization scheme (default "Token").
func WithAuthScheme(scheme string) Option {
	return func(c *httpClient) {
		if scheme != "" {
			c.scheme = scheme
		}
	}
}

// WithTimeout sets the request timeout. It applies only to the default
// HTTP client; a client passed with WithHTTPClient keeps its own timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *httpClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	baseURL string
	token   string
	scheme  string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a client for the store rooted at baseURL.
func NewClient(baseURL, token string, opts ...Option) Client {
	c := &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		scheme:  DefaultAuthScheme,
		timeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}
	return c
}

func (c *httpClient) CreateRegion(ctx context.Context, region RegionPayload) error {
	if err := c.post(ctx, "/county/", region); err != nil {
		return eris.Wrapf(err, "casesapi: create region %s", region.AGS)
	}
	return nil
}

func (c *httpClient) UpsertCaseDay(ctx context.Context, ags string, day CaseDayPayload) error {
	if err := c.post(ctx, countyPath(ags, "cases"), day); err != nil {
		return eris.Wrapf(err, "casesapi: upsert cases %s %s", ags, day.Date)
	}
	return nil
}

func (c *httpClient) UpsertDistribution(ctx context.Context, ags string, entry DistributionPayload) error {
	if err := c.post(ctx, countyPath(ags, "gender_age"), entry); err != nil {
		return eris.Wrapf(err, "casesapi: upsert distribution %s [%s][%s]", ags, entry.Gender, entry.AgeGroup)
	}
	return nil
}

// ListCaseDays returns the stored series of a region, following "next"
// links when the store paginates. A link back to a visited page, a link to
// another host, or more than maxListRecords records abort the read.
func (c *httpClient) ListCaseDays(ctx context.Context, ags string) ([]model.DayRecord, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, eris.Wrapf(err, "casesapi: parse base url %s", c.baseURL)
	}

	var out []model.DayRecord
	visited := make(map[string]bool)
	next := c.baseURL + countyPath(ags, "cases")
	for next != "" {
		if visited[next] {
			return nil, eris.Errorf("casesapi: list cases %s: pagination loops back to %s", ags, next)
		}
		visited[next] = true

		data, err := c.get(ctx, next)
		if err != nil {
			return nil, eris.Wrapf(err, "casesapi: list cases %s", ags)
		}
		page, more, err := decodeList(data)
		if err != nil {
			return nil, eris.Wrapf(err, "casesapi: list cases %s", ags)
		}
		out = append(out, page...)
		if len(out) > maxListRecords {
			return nil, eris.Errorf("casesapi: list cases %s: more than %d records", ags, maxListRecords)
		}

		next, err = resolveNext(base, next, more)
		if err != nil {
			return nil, eris.Wrapf(err, "casesapi: list cases %s", ags)
		}
	}
	return out, nil
}

// resolveNext resolves a "next" link against the current page and rejects
// links that leave the store's host.
func resolveNext(base *url.URL, current, next string) (string, error) {
	if next == "" {
		return "", nil
	}
	cur, err := url.Parse(current)
	if err != nil {
		return "", eris.Wrapf(err, "parse url %s", current)
	}
	ref, err := url.Parse(next)
	if err != nil {
		return "", eris.Wrapf(err, "parse next link %s", next)
	}
	u := cur.ResolveReference(ref)
	if u.Scheme != base.Scheme || u.Host != base.Host {
		return "", eris.Errorf("next link %s leaves host %s", u.Redacted(), base.Host)
	}
	return u.String(), nil
}

type listEnvelope struct {
	Next    string            `json:"next"`
	Results []model.DayRecord `json:"results"`
}

// decodeList accepts a bare JSON array or a {"results": [...]} envelope.
func decodeList(data []byte) ([]model.DayRecord, string, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var days []model.DayRecord
		if err := json.Unmarshal(trimmed, &days); err != nil {
			return nil, "", eris.Wrap(err, "decode response")
		}
		return days, "", nil
	}

	var env listEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, "", eris.Wrap(err, "decode response")
	}
	return env.Results, env.Next, nil
}

func countyPath(ags, resource string) string {
	return "/county/" + url.PathEscape(ags) + "/" + resource + "/"
}

func (c *httpClient) post(ctx context.Context, path string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return eris.Wrap(err, "marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(buf))
	if err != nil {
		return eris.Wrap(err, "create request")
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	_, err = c.do(req)
	return err
}

func (c *httpClient) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	c.authorize(req)
	return c.do(req)
}

func (c *httpClient) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", c.scheme+" "+c.token)
	}
}

func (c *httpClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(data),
		}
	}
	return data, nil
}
