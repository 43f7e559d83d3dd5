package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	publicBaseURL = "https://www.reddit.com"
	oauthBaseURL  = "https://oauth.reddit.com"
	tokenURL      = "https://www.reddit.com/api/v1/access_token"
)

// Options configures a Client. Without credentials the public JSON endpoints are used.
type Options struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	BaseURL      string
	TokenURL     string
	HTTPClient   *http.Client
}

// Client reads threads from Reddit
type Client struct {
	logger    zerolog.Logger
	http      *http.Client
	baseURL   string
	userAgent string
}

// NewClient creates a Reddit client. With credentials it authenticates app-only
// through the client credentials grant.
func NewClient(ctx context.Context, logger zerolog.Logger, opts Options) *Client {
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "threadshorts/1.0"
	}

	base := &http.Client{Timeout: 30 * time.Second}
	if opts.HTTPClient != nil {
		base = opts.HTTPClient
	}
	base = &http.Client{
		Timeout:   base.Timeout,
		Transport: &userAgentTransport{agent: userAgent, next: base.Transport},
	}

	c := &Client{
		logger:    logger.With().Str("component", "reddit").Logger(),
		http:      base,
		baseURL:   publicBaseURL,
		userAgent: userAgent,
	}

	if opts.ClientID != "" && opts.ClientSecret != "" {
		tokenEndpoint := opts.TokenURL
		if tokenEndpoint == "" {
			tokenEndpoint = tokenURL
		}
		cc := clientcredentials.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			TokenURL:     tokenEndpoint,
			AuthStyle:    oauth2.AuthStyleInHeader,
		}
		c.http = cc.Client(context.WithValue(ctx, oauth2.HTTPClient, base))
		c.baseURL = oauthBaseURL
	}
	if opts.BaseURL != "" {
		c.baseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	return c
}

// TopThreads returns the top submissions of a subreddit for a time filter
// (hour, day, week, month, year, all). NSFW threads are dropped unless allowNSFW is set.
func (c *Client) TopThreads(ctx context.Context, subreddit string, limit int, timeFilter string, allowNSFW bool) ([]Thread, error) {
	if subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	if limit <= 0 {
		limit = 25
	}
	if timeFilter == "" {
		timeFilter = "day"
	}

	q := url.Values{}
	q.Set("t", timeFilter)
	q.Set("limit", strconv.Itoa(limit))
	q.Set("raw_json", "1")

	var l listing
	if err := c.getJSON(ctx, "/r/"+url.PathEscape(subreddit)+"/top.json", q, &l); err != nil {
		return nil, fmt.Errorf("top threads of r/%s: %w", subreddit, err)
	}

	threads := make([]Thread, 0, len(l.Data.Children))
	skipped := 0
	for _, child := range l.Data.Children {
		if child.Kind != "t3" {
			continue
		}
		var p postData
		if err := json.Unmarshal(child.Data, &p); err != nil {
			return nil, fmt.Errorf("decode post: %w", err)
		}
		if p.Over18 && !allowNSFW {
			skipped++
			continue
		}
		threads = append(threads, p.thread())
	}

	c.logger.Debug().
		Str("subreddit", subreddit).
		Int("threads", len(threads)).
		Int("nsfw_skipped", skipped).
		Msg("fetched top threads")

	return threads, nil
}

// Thread fetches a submission and its comments by URL or permalink
func (c *Client) Thread(ctx context.Context, threadURL string) (*Thread, error) {
	permalink, err := Permalink(threadURL)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("raw_json", "1")
	q.Set("sort", "top")

	var pages []listing
	if err := c.getJSON(ctx, permalink+".json", q, &pages); err != nil {
		return nil, fmt.Errorf("thread %s: %w", permalink, err)
	}
	if len(pages) == 0 || len(pages[0].Data.Children) == 0 {
		return nil, fmt.Errorf("thread %s: %w", permalink, ErrThreadNotFound)
	}

	var p postData
	if err := json.Unmarshal(pages[0].Data.Children[0].Data, &p); err != nil {
		return nil, fmt.Errorf("decode post: %w", err)
	}
	t := p.thread()

	if len(pages) > 1 {
		t.Comments, err = flattenComments(pages[1].Data.Children)
		if err != nil {
			return nil, fmt.Errorf("decode comments: %w", err)
		}
	}

	c.logger.Debug().
		Str("thread", t.ID).
		Str("title", t.Title).
		Int("comments", len(t.Comments)).
		Msg("fetched thread")

	return &t, nil
}

// Permalink extracts the /r/<sub>/comments/<id>/... path of a thread URL
func Permalink(threadURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(threadURL))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidThreadURL, err)
	}
	path := strings.TrimSuffix(strings.TrimSuffix(u.Path, "/"), ".json")
	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 4 || parts[0] != "r" || parts[2] != "comments" || parts[3] == "" {
		return "", fmt.Errorf("%w: %s", ErrInvalidThreadURL, threadURL)
	}
	return "/" + strings.Join(parts, "/"), nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, v any) error {
	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrThreadNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("reddit returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// flattenComments walks the comment forest level by level, skipping "more" stubs
func flattenComments(roots []thing) ([]Comment, error) {
	type queued struct {
		t     thing
		depth int
	}
	queue := make([]queued, 0, len(roots))
	for _, r := range roots {
		queue = append(queue, queued{t: r})
	}

	var out []Comment
	for len(queue) > 0 {
		item := queue[0]
		queue = queue[1:]
		if item.t.Kind != "t1" {
			continue
		}

		var cd commentData
		if err := json.Unmarshal(item.t.Data, &cd); err != nil {
			return nil, err
		}
		out = append(out, Comment{
			ID:            cd.ID,
			Author:        cd.Author,
			Body:          cd.Body,
			Score:         cd.Score,
			Distinguished: cd.Distinguished,
			Depth:         item.depth,
		})

		// replies is "" when empty, otherwise a listing
		if len(cd.Replies) > 0 && cd.Replies[0] == '{' {
			var replies listing
			if err := json.Unmarshal(cd.Replies, &replies); err != nil {
				return nil, err
			}
			for _, r := range replies.Data.Children {
				queue = append(queue, queued{t: r, depth: item.depth + 1})
			}
		}
	}
	return out, nil
}

type listing struct {
	Kind string `json:"kind"`
	Data struct {
		Children []thing `json:"children"`
		After    string  `json:"after"`
	} `json:"data"`
}

type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

type postData struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Author      string  `json:"author"`
	Subreddit   string  `json:"subreddit"`
	Permalink   string  `json:"permalink"`
	URL         string  `json:"url"`
	SelfText    string  `json:"selftext"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Over18      bool    `json:"over_18"`
	CreatedUTC  float64 `json:"created_utc"`
}

func (p postData) thread() Thread {
	return Thread{
		ID:          p.ID,
		Title:       p.Title,
		Author:      p.Author,
		Subreddit:   p.Subreddit,
		Permalink:   p.Permalink,
		URL:         p.URL,
		SelfText:    p.SelfText,
		Score:       p.Score,
		NumComments: p.NumComments,
		Over18:      p.Over18,
		Created:     time.Unix(int64(p.CreatedUTC), 0).UTC(),
	}
}

type commentData struct {
	ID            string          `json:"id"`
	Author        string          `json:"author"`
	Body          string          `json:"body"`
	Score         int             `json:"score"`
	Distinguished string          `json:"distinguished"`
	Replies       json.RawMessage `json:"replies"`
}

type userAgentTransport struct {
	agent string
	next  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.Header.Set("User-Agent", t.agent)
	next := t.next
	if next == nil {
		next = http.DefaultTransport
	}
	return next.RoundTrip(req)
}
