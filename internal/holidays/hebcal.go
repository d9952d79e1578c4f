// Package holidays supplies full-day plant holidays to the working calendar.
package holidays

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Sentinel errors for remote holiday source failures.
var (
	ErrSourceUnreachable = errors.New("holiday source unreachable")
	ErrSourceResponse    = errors.New("holiday source bad response")
	ErrSourceTimeout     = errors.New("holiday source timeout")
)

// modernObservances are the modern Israeli days the plant closes for.
var modernObservances = []string{"independence", "memorial", "holocaust", "yom haatzma", "yom hazikaron", "yom hashoah"}

// HebcalClient fetches Israeli holidays from the Hebcal REST API.
type HebcalClient struct {
	baseURL string
	loc     *time.Location
	client  *http.Client
}

// NewHebcalClient creates a client. Dates are interpreted in loc.
func NewHebcalClient(baseURL string, loc *time.Location, timeout time.Duration) *HebcalClient {
	if loc == nil {
		loc = time.UTC
	}
	return &HebcalClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		loc:     loc,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HebcalClient) Name() string {
	return "hebcal"
}

func (c *HebcalClient) Holidays(ctx context.Context, year int) ([]time.Time, error) {
	params := url.Values{
		"v":    {"1"},
		"cfg":  {"json"},
		"maj":  {"on"},
		"min":  {"off"},
		"nx":   {"off"},
		"mf":   {"off"},
		"ss":   {"off"},
		"mod":  {"on"},
		"s":    {"off"},
		"c":    {"off"},
		"i":    {"on"},
		"year": {strconv.Itoa(year)},
	}
	u := fmt.Sprintf("%s/hebcal?%s", c.baseURL, params.Encode())

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d", ErrSourceResponse, resp.StatusCode)
	}

	var hr hebcalResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return nil, fmt.Errorf("%w: decoding hebcal response: %v", ErrSourceResponse, err)
	}

	return c.closures(hr.Items), nil
}

// closures keeps the yom tov and major holidays plus the modern memorial and
// independence days, dropping anything whose date does not parse.
func (c *HebcalClient) closures(items []hebcalItem) []time.Time {
	seen := make(map[string]bool)
	days := []time.Time{}
	for _, it := range items {
		if !isClosure(it) || len(it.Date) < len(time.DateOnly) {
			continue
		}
		key := it.Date[:len(time.DateOnly)]
		d, err := time.ParseInLocation(time.DateOnly, key, c.loc)
		if err != nil || seen[key] {
			continue
		}
		seen[key] = true
		days = append(days, d)
	}
	return days
}

func isClosure(it hebcalItem) bool {
	if it.YomTov || it.Subcat == "major" {
		return true
	}
	if it.Subcat != "modern" && it.Category != "modern" {
		return false
	}
	title := strings.ToLower(it.Title)
	for _, w := range modernObservances {
		if strings.Contains(title, w) {
			return true
		}
	}
	return false
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrSourceTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrSourceUnreachable, err)
}

// --- Hebcal response types ---

type hebcalResponse struct {
	Title string       `json:"title"`
	Items []hebcalItem `json:"items"`
}

type hebcalItem struct {
	Title    string `json:"title"`
	Date     string `json:"date"`
	Category string `json:"category"`
	Subcat   string `json:"subcat"`
	YomTov   bool   `json:"yomtov"`
}
