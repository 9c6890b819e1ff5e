package wiki

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	windowDays = 365
	dateLayout = "20060102"

	// Request path below the per-article pageviews base URL.
	pageviewsScope = "/en.wikipedia/all-access/user/"
)

// Window is the inclusive day range pageviews are summed over.
type Window struct {
	Start time.Time
	End   time.Time
}

// WindowAt returns the trailing window for now. It ends the day before now, since the API has
// no data for the current day.
func WindowAt(now time.Time) Window {
	end := now.UTC().AddDate(0, 0, -1)
	return Window{
		Start: end.AddDate(0, 0, -windowDays),
		End:   end,
	}
}

// StartParam returns the window start in the API's YYYYMMDD form.
func (w Window) StartParam() string { return w.Start.Format(dateLayout) }

// EndParam returns the window end in the API's YYYYMMDD form.
func (w Window) EndParam() string { return w.End.Format(dateLayout) }

// CacheKey identifies the pageview total of title over w.
func (w Window) CacheKey(title string) string {
	return "pageviews:" + TitleKey(title) + ":" + w.StartParam() + ":" + w.EndParam()
}

type rawPageviewsResponse struct {
	Items []struct {
		Timestamp string `json:"timestamp"`
		Views     int64  `json:"views"`
	} `json:"items"`
}

// pageviews sums the daily user views of title over w. It is neither paced nor cached.
func (r *Resolver) pageviews(ctx context.Context, title string, w Window) (int64, error) {
	rawURL := strings.TrimRight(r.pageviewsURL, "/") + pageviewsScope +
		url.PathEscape(TitleKey(title)) + "/daily/" + w.StartParam() + "/" + w.EndParam()

	resp, err := r.client.Get(ctx, rawURL, nil, true)
	if err != nil {
		return 0, wrapError("pageviews", title, err)
	}

	var raw rawPageviewsResponse
	if err := json.Unmarshal(resp.Body, &raw); err != nil {
		return 0, wrapError("pageviews", title, fmt.Errorf("parse response: %w", err))
	}

	var total int64
	for _, item := range raw.Items {
		total += item.Views
	}
	return total, nil
}
