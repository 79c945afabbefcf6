// Package fetch talks to the host site and its auxiliary data sources. It is
// a thin typed layer over HTTP plus the message channel to the privileged
// process; all interpretation of the payloads happens in the store and the
// syncer.
package fetch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/acmtools/ranksync/internal/store"
)

// Options configures a Client. RatingURL serves the bulk historical
// snapshots; the external prediction source is reached through a Messenger,
// not this client.
type Options struct {
	BaseURL   string
	RatingURL string
	Timeout   time.Duration
	Poll      PollPolicy
}

type Client struct {
	opts Options
	http *http.Client
	sf   singleflight.Group
}

func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		opts: opts,
		http: &http.Client{Timeout: timeout},
	}
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", url, err)
	}
	return nil
}

// shared collapses concurrent identical requests into a single upstream
// call; every waiter receives the same decoded result.
func shared[T any](c *Client, ctx context.Context, url string, fetch func() (T, error)) (T, error) {
	v, err, _ := c.sf.Do(url, func() (any, error) {
		return fetch()
	})
	if err != nil {
		var zero T
		// Context errors of a leader request propagate to all waiters; report
		// the caller's own context when it expired.
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		return zero, err
	}
	return v.(T), nil
}

// GetContestInfo fetches contest metadata, including the start time used for
// point-in-time rating lookups.
func (c *Client) GetContestInfo(ctx context.Context, slug string) (*store.ContestInfo, error) {
	url := fmt.Sprintf("%s/contest/api/info/%s/", c.opts.BaseURL, slug)
	return shared(c, ctx, url, func() (*store.ContestInfo, error) {
		var info store.ContestInfo
		if err := c.getJSON(ctx, url, &info); err != nil {
			return nil, err
		}
		return &info, nil
	})
}

// GetContest fetches one page of the live contest ranking for a region.
func (c *Client) GetContest(ctx context.Context, slug string, page int, region string) (*store.RankingPage, error) {
	url := fmt.Sprintf("%s/contest/api/ranking/%s/?pagination=%d&region=%s", c.opts.BaseURL, slug, page, region)
	return shared(c, ctx, url, func() (*store.RankingPage, error) {
		var rp store.RankingPage
		if err := c.getJSON(ctx, url, &rp); err != nil {
			return nil, err
		}
		return &rp, nil
	})
}

// GetPreviousRatingData fetches the bulk historical rating snapshot for a
// contest from the rating service.
func (c *Client) GetPreviousRatingData(ctx context.Context, slug string) (*store.PreviousRatingData, error) {
	url := fmt.Sprintf("%s/contest/%s/ratings", c.opts.RatingURL, slug)
	return shared(c, ctx, url, func() (*store.PreviousRatingData, error) {
		var data store.PreviousRatingData
		if err := c.getJSON(ctx, url, &data); err != nil {
			return nil, err
		}
		return &data, nil
	})
}

// GetGlobalRanking fetches the requesting user's live global rank.
func (c *Client) GetGlobalRanking(ctx context.Context, slug string) (*store.MyRanking, error) {
	url := fmt.Sprintf("%s/contest/api/myranking/%s/", c.opts.BaseURL, slug)
	var mr store.MyRanking
	if err := c.getJSON(ctx, url, &mr); err != nil {
		return nil, err
	}
	return &mr, nil
}

type ratingResponse struct {
	Data struct {
		UserContestRankingHistory []store.Attendance `json:"userContestRankingHistory"`
	} `json:"data"`
}

const ratingHistoryQuery = `query userContestRankingInfo($userSlug: String!) {
  userContestRankingHistory(userSlug: $userSlug) {
    attended
    rating
    contest { startTime }
  }
}`

// GetRating fetches a user's full contest attendance history from the host
// site's graphql endpoint. Cross-region users go through the Messenger
// instead.
func (c *Client) GetRating(ctx context.Context, username string) ([]store.Attendance, error) {
	body, err := json.Marshal(map[string]any{
		"query":     ratingHistoryQuery,
		"variables": map[string]string{"userSlug": username},
	})
	if err != nil {
		return nil, err
	}

	url := c.opts.BaseURL + "/graphql"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST %s: unexpected status %d", url, resp.StatusCode)
	}
	var rr ratingResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return nil, fmt.Errorf("POST %s: decode response: %w", url, err)
	}
	return rr.Data.UserContestRankingHistory, nil
}
