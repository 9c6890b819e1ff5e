package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	domainerrors "github.com/Edward-Muir/when/internal/errors"
)

// DefaultSearchLimit is how many candidates a search asks for.
const DefaultSearchLimit = 3

// Candidate is one search hit, in the rank order the API returned.
type Candidate struct {
	Title   string // Article title with spaces
	Key     string // Underscore form of Title
	Snippet string // Plain-text excerpt around the match
}

type rawSearchResponse struct {
	Query struct {
		Search []struct {
			Title   string `json:"title"`
			Snippet string `json:"snippet"`
		} `json:"search"`
	} `json:"query"`
	Error *struct {
		Code string `json:"code"`
		Info string `json:"info"`
	} `json:"error"`
}

// search runs a full-text article search. It is not paced.
func (r *Resolver) search(ctx context.Context, query string) ([]Candidate, error) {
	params := url.Values{}
	params.Set("action", "query")
	params.Set("list", "search")
	params.Set("srsearch", query)
	params.Set("format", "json")
	params.Set("srlimit", strconv.Itoa(r.limit))

	resp, err := r.client.Get(ctx, r.searchURL, params, false)
	if err != nil {
		return nil, wrapError("search", query, err)
	}

	var raw rawSearchResponse
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return nil, wrapError("search", query, fmt.Errorf("parse response: %w", err))
	}
	if raw.Error != nil {
		return nil, wrapError("search", query,
			domainerrors.Upstream(fmt.Sprintf("api error %s: %s", raw.Error.Code, raw.Error.Info)))
	}
	if len(raw.Query.Search) == 0 {
		return nil, wrapError("search", query, ErrNoResults)
	}

	candidates := make([]Candidate, 0, len(raw.Query.Search))
	for _, hit := range raw.Query.Search {
		candidates = append(candidates, Candidate{
			Title:   hit.Title,
			Key:     TitleKey(hit.Title),
			Snippet: stripHTML(hit.Snippet),
		})
	}
	return candidates, nil
}
