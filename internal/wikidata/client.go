// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package wikidata fetches entities from a Wikibase instance through the
// wbgetentities action of its api.php endpoint.
package wikidata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mardi4nfdi/importer/internal/httputil"
	"github.com/mardi4nfdi/importer/pkg/types"
)

// DefaultAPIURL is the Wikidata api.php endpoint.
const DefaultAPIURL = "https://www.wikidata.org/w/api.php"

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "mardi-importer/0.1"

	propsFull  = "labels|descriptions|aliases|claims|datatype"
	propsTerms = "labels|descriptions|aliases|datatype"
)

// Client reads entities from a remote Wikibase.
type Client struct {
	apiURL     string
	userAgent  string
	maxRetries int
	http       *http.Client
	logger     *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient returns a client for the endpoint configured in cfg.
func NewClient(cfg types.ImporterConfig, opts ...Option) *Client {
	c := &Client{
		apiURL:     cfg.RemoteAPIURL,
		userAgent:  cfg.UserAgent,
		maxRetries: cfg.MaxRetries,
		logger:     zap.NewNop(),
	}
	if c.apiURL == "" {
		c.apiURL = DefaultAPIURL
	}
	if c.userAgent == "" {
		c.userAgent = defaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c.http = &http.Client{Timeout: timeout}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get fetches id with its statements. Terms are restricted to languages
// unless languages is empty. A redirected id yields the target entity, so
// the returned ID may differ from id. Missing entities yield
// types.ErrNotFound.
func (c *Client) Get(ctx context.Context, id types.EntityID, languages []string) (*types.Entity, error) {
	return c.fetch(ctx, id, languages, propsFull)
}

// GetTerms is Get without statements.
func (c *Client) GetTerms(ctx context.Context, id types.EntityID, languages []string) (*types.Entity, error) {
	return c.fetch(ctx, id, languages, propsTerms)
}

func (c *Client) fetch(ctx context.Context, id types.EntityID, languages []string, props string) (*types.Entity, error) {
	q := url.Values{}
	q.Set("action", "wbgetentities")
	q.Set("format", "json")
	q.Set("ids", id.String())
	q.Set("props", props)
	q.Set("redirects", "yes")
	if len(languages) > 0 {
		q.Set("languages", strings.Join(languages, "|"))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.apiURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating wbgetentities request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := httputil.DoWithRetry(ctx, c.http, req, c.maxRetries, func(status, attempt int, wait time.Duration) {
		c.logger.Info("remote graph throttled",
			zap.Stringer("id", id), zap.Int("status", status),
			zap.Int("attempt", attempt), zap.Duration("wait", wait))
	})
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching %s: remote returned HTTP %d", id, resp.StatusCode)
	}

	var body response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("parsing wbgetentities response for %s: %w", id, err)
	}
	return body.entity(id)
}

type apiError struct {
	Code string `json:"code"`
	Info string `json:"info"`
}

type response struct {
	Entities map[string]wireEntity `json:"entities"`
	Error    *apiError             `json:"error"`
}

func (r response) entity(requested types.EntityID) (*types.Entity, error) {
	if r.Error != nil {
		if r.Error.Code == "no-such-entity" {
			return nil, fmt.Errorf("%s: %w", requested, types.ErrNotFound)
		}
		return nil, fmt.Errorf("fetching %s: %s: %s", requested, r.Error.Code, r.Error.Info)
	}
	// One id was requested; the map key is the redirect target when the
	// id was redirected.
	for _, we := range r.Entities {
		if we.Missing != nil {
			return nil, fmt.Errorf("%s: %w", requested, types.ErrNotFound)
		}
		e, err := we.toEntity()
		if err != nil {
			return nil, fmt.Errorf("decoding %s: %w", requested, err)
		}
		return e, nil
	}
	return nil, fmt.Errorf("%s: %w", requested, types.ErrNotFound)
}

type wireTerm struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type wireEntity struct {
	ID           string                       `json:"id"`
	Type         string                       `json:"type"`
	Datatype     types.ValueKind              `json:"datatype"`
	Missing      *string                      `json:"missing"`
	Labels       map[string]wireTerm          `json:"labels"`
	Descriptions map[string]wireTerm          `json:"descriptions"`
	Aliases      map[string][]wireTerm        `json:"aliases"`
	Claims       map[string][]types.Statement `json:"claims"`
}

func (we wireEntity) toEntity() (*types.Entity, error) {
	id, err := types.ParseEntityID(we.ID)
	if err != nil {
		return nil, err
	}
	e := types.NewEntity(id.Namespace)
	e.ID = id
	if id.IsProperty() {
		e.Datatype = we.Datatype
	}
	for lang, t := range we.Labels {
		e.Labels[lang] = t.Value
	}
	for lang, t := range we.Descriptions {
		e.Descriptions[lang] = t.Value
	}
	for lang, terms := range we.Aliases {
		values := make([]string, 0, len(terms))
		for _, t := range terms {
			values = append(values, t.Value)
		}
		e.SetAliases(lang, values)
	}

	// JSON objects are unordered; statements are grouped by ascending
	// property id so repeated fetches produce identical records.
	props := make([]types.EntityID, 0, len(we.Claims))
	byProp := make(map[types.EntityID][]types.Statement, len(we.Claims))
	for key, statements := range we.Claims {
		pid, err := types.ParseEntityID(key)
		if err != nil {
			return nil, fmt.Errorf("claim group %q: %w", key, err)
		}
		props = append(props, pid)
		byProp[pid] = statements
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Numeric < props[j].Numeric })
	for _, pid := range props {
		e.Statements = append(e.Statements, byProp[pid]...)
	}
	return e, nil
}

// IsNotFound reports whether err marks a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, types.ErrNotFound)
}
