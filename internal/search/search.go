// Package search queries the PodcastIndex directory.
package search

import (
	"bytes"
	"context"
	"crypto/sha1" //nolint:gosec // required by the PodcastIndex auth scheme
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/d2verb/podbridge/internal/podcast"
)

// DefaultBaseURL is the public PodcastIndex API endpoint.
const DefaultBaseURL = "https://api.podcastindex.org/api/1.0"

const userAgent = "PodcastApp/1.0"

// ErrNoCredentials is returned when the API key or secret is missing.
var ErrNoCredentials = errors.New("podcastindex credentials not configured")

// APIError is a non-200 reply from PodcastIndex.
type APIError struct {
	StatusCode  int
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("podcastindex returned %d: %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("podcastindex returned %d", e.StatusCode)
}

// Client calls the PodcastIndex REST API.
type Client struct {
	baseURL   string
	apiKey    string
	apiSecret string
	http      *http.Client
	now       func() time.Time
}

// New creates a client. An empty baseURL selects DefaultBaseURL.
func New(baseURL, apiKey, apiSecret string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		apiSecret: apiSecret,
		http:      &http.Client{Timeout: 15 * time.Second},
		now:       time.Now,
	}
}

type feed struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Author      string `json:"author"`
	Description string `json:"description"`
	URL         string `json:"url"`
	Image       string `json:"image"`
	Artwork     string `json:"artwork"`
}

func (f feed) toPodcast() podcast.Podcast {
	img := f.Artwork
	if img == "" {
		img = f.Image
	}
	return podcast.Podcast{
		ID:          f.ID,
		Title:       f.Title,
		Author:      f.Author,
		Description: f.Description,
		FeedURL:     f.URL,
		ImageURL:    img,
	}
}

type item struct {
	ID            int64  `json:"id"`
	FeedID        int64  `json:"feedId"`
	Title         string `json:"title"`
	Description   string `json:"description"`
	EnclosureURL  string `json:"enclosureUrl"`
	DatePublished int64  `json:"datePublished"`
	Duration      int64  `json:"duration"`
	TranscriptURL string `json:"transcriptUrl"`
	Transcripts   []struct {
		URL  string `json:"url"`
		Type string `json:"type"`
	} `json:"transcripts"`
	ChaptersURL string `json:"chaptersUrl"`
}

func (it item) toEpisode() podcast.Episode {
	e := podcast.Episode{
		ID:              it.ID,
		PodcastID:       it.FeedID,
		Title:           it.Title,
		Description:     it.Description,
		AudioURL:        it.EnclosureURL,
		DurationSeconds: it.Duration,
		TranscriptURL:   it.TranscriptURL,
		ChaptersURL:     it.ChaptersURL,
	}
	if it.DatePublished > 0 {
		e.PublishedAt = time.Unix(it.DatePublished, 0).UTC()
	}
	if len(it.Transcripts) > 0 {
		e.TranscriptURL = it.Transcripts[0].URL
		e.TranscriptType = it.Transcripts[0].Type
	}
	return e
}

// Search finds podcasts matching term.
func (c *Client) Search(ctx context.Context, term string, max int) ([]podcast.Podcast, error) {
	q := url.Values{}
	q.Set("q", term)
	q.Set("max", strconv.Itoa(max))
	q.Set("clean", "true")

	var body struct {
		Feeds []feed `json:"feeds"`
	}
	if err := c.get(ctx, "/search/byterm", q, &body); err != nil {
		return nil, err
	}

	podcasts := make([]podcast.Podcast, 0, len(body.Feeds))
	for _, f := range body.Feeds {
		podcasts = append(podcasts, f.toPodcast())
	}
	return podcasts, nil
}

// PodcastByFeedID returns a single podcast, or podcast.ErrNotFound.
func (c *Client) PodcastByFeedID(ctx context.Context, id int64) (*podcast.Podcast, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))

	// Unknown feeds come back as "feed": [] rather than an object.
	var body struct {
		Feed json.RawMessage `json:"feed"`
	}
	if err := c.get(ctx, "/podcasts/byfeedid", q, &body); err != nil {
		return nil, err
	}

	raw := bytes.TrimSpace(body.Feed)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, fmt.Errorf("feed %d: %w", id, podcast.ErrNotFound)
	}
	var f feed
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode feed %d: %w", id, err)
	}
	if f.ID == 0 {
		return nil, fmt.Errorf("feed %d: %w", id, podcast.ErrNotFound)
	}
	p := f.toPodcast()
	return &p, nil
}

// EpisodesByFeedID returns the most recent episodes of a feed.
func (c *Client) EpisodesByFeedID(ctx context.Context, id int64, max int) ([]podcast.Episode, error) {
	q := url.Values{}
	q.Set("id", strconv.FormatInt(id, 10))
	q.Set("max", strconv.Itoa(max))

	var body struct {
		Items []item `json:"items"`
	}
	if err := c.get(ctx, "/episodes/byfeedid", q, &body); err != nil {
		return nil, err
	}

	episodes := make([]podcast.Episode, 0, len(body.Items))
	for _, it := range body.Items {
		e := it.toEpisode()
		if e.PodcastID == 0 {
			e.PodcastID = id
		}
		episodes = append(episodes, e)
	}
	return episodes, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	if c.apiKey == "" || c.apiSecret == "" {
		return ErrNoCredentials
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request %s: %w", path, err)
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var desc struct {
			Description string `json:"description"`
		}
		if json.Unmarshal(data, &desc) == nil {
			apiErr.Description = desc.Description
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// authorize sets the PodcastIndex auth headers:
// Authorization = hex(sha1(key + secret + unix seconds)).
func (c *Client) authorize(req *http.Request) {
	date := strconv.FormatInt(c.now().Unix(), 10)
	sum := sha1.Sum([]byte(c.apiKey + c.apiSecret + date)) //nolint:gosec

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Auth-Key", c.apiKey)
	req.Header.Set("X-Auth-Date", date)
	req.Header.Set("Authorization", hex.EncodeToString(sum[:]))
}
