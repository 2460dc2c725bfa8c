package linky

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"github.com/linkysync/linkysync/pkg/log"
	"github.com/linkysync/linkysync/pkg/types"
)

const (
	maxDailyRangeDays = 31

	// hourlySlots is the number of half-hour buckets in a day.
	hourlySlots = 48

	portalDateLayout = "02/01/2006"

	statusError     = "erreur"
	statusNonActive = "nonActive"
)

// resourceID returns the portal resource serving g.
func resourceID(g types.Granularity) (string, error) {
	switch g {
	case types.Hourly:
		return "urlCdcHeure", nil
	case types.Daily:
		return "urlCdcJour", nil
	case types.Monthly:
		return "urlCdcMois", nil
	case types.Yearly:
		return "urlCdcAn", nil
	default:
		return "", fmt.Errorf("unknown granularity: %d", int(g))
	}
}

// Window is the date range of a data request. A zero Window requests
// whatever the portal returns by default.
type Window struct {
	Start time.Time
	End   time.Time
}

// IsZero reports whether no range is requested.
func (w Window) IsZero() bool {
	return w.Start.IsZero() && w.End.IsZero()
}

// Datapoint is a single raw reading. Value is nil when the portal sent null.
type Datapoint struct {
	Value *float64 `json:"valeur"`
}

// RawResponse is a decoded and trimmed portal answer.
type RawResponse struct {
	Status string
	// HasData is false when the answer had no graph data at all.
	HasData bool
	Data    []Datapoint
	// Offset is the padding count the portal declared, already removed from
	// Data.
	Offset int
}

type portalResponse struct {
	Etat struct {
		Valeur string `json:"valeur"`
	} `json:"etat"`
	Graphe *struct {
		Data     []Datapoint `json:"data"`
		Decalage int         `json:"decalage"`
	} `json:"graphe"`
}

// trimOffset removes k entries from both ends of data. When 2k covers the
// whole slice the result is empty.
func trimOffset(data []Datapoint, k int) []Datapoint {
	if k <= 0 {
		return data
	}
	if 2*k >= len(data) {
		return []Datapoint{}
	}
	return data[k : len(data)-k]
}

func (c *Client) dataURL(resource string) (string, error) {
	u, err := url.Parse(c.cfg.DataURL)
	if err != nil {
		return "", fmt.Errorf("invalid data url: %w", err)
	}
	params := u.Query()
	params.Set("p_p_id", c.cfg.PortletID)
	params.Set("p_p_lifecycle", "2")
	params.Set("p_p_mode", "view")
	params.Set("p_p_resource_id", resource)
	params.Set("p_p_cacheability", "cacheLevelPage")
	params.Set("p_p_col_id", "column-1")
	params.Set("p_p_col_count", "2")
	u.RawQuery = params.Encode()
	return u.String(), nil
}

// FetchWindow requests the raw series of granularity g for window. Daily
// windows longer than 31 days and windows with a single bound are rejected
// before anything is sent.
func (c *Client) FetchWindow(ctx context.Context, g types.Granularity, window Window) (RawResponse, error) {
	resource, err := resourceID(g)
	if err != nil {
		return RawResponse{}, err
	}
	if window.Start.IsZero() != window.End.IsZero() {
		return RawResponse{}, ErrIncompleteWindow
	}
	// the portal reads the dates as Paris days
	start := window.Start.In(c.cfg.Location)
	end := window.End.In(c.cfg.Location)
	if g == types.Daily && !window.IsZero() {
		if days := calendarDays(start, end); days > maxDailyRangeDays {
			return RawResponse{}, fmt.Errorf("%w (requested %d)", ErrRangeTooLarge, days)
		}
	}

	u, err := c.dataURL(resource)
	if err != nil {
		return RawResponse{}, err
	}

	var form url.Values
	if !window.IsZero() {
		prefix := "_" + c.cfg.PortletID + "_"
		form = url.Values{}
		form.Set(prefix+"dateDebut", start.Format(portalDateLayout))
		form.Set(prefix+"dateFin", end.Format(portalDateLayout))
	}

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetching linky data",
		slog.String("granularity", g.String()),
		slog.Any("form", form),
	)
	body, err := c.session.Do(ctx, "GET", u, form)
	if err != nil {
		log.Ctx(ctx).ErrorContext(ctx, "failed to fetch linky data", slog.String("granularity", g.String()), slog.Any("error", err))
		return RawResponse{}, fmt.Errorf("failed to fetch %s: %w", g, err)
	}

	var res portalResponse
	if err := json.Unmarshal(body, &res); err != nil {
		// an expired session gets the HTML login page back
		log.Ctx(ctx).ErrorContext(ctx, "failed to decode linky response", slog.Any("error", err), slog.Int("size", len(body)))
		return RawResponse{}, fmt.Errorf("%w: failed to decode %s: %v", ErrUnexpectedResponse, g, err)
	}

	switch res.Etat.Valeur {
	case statusError:
		return RawResponse{}, fmt.Errorf("failed to fetch %s: %w", g, ErrServerError)
	case statusNonActive:
		return RawResponse{}, fmt.Errorf("failed to fetch %s: %w", g, ErrNoData)
	}

	raw := RawResponse{Status: res.Etat.Valeur}
	if res.Graphe == nil || res.Graphe.Data == nil {
		log.Ctx(ctx).WarnContext(ctx, "linky response has no data", slog.String("granularity", g.String()))
		return raw, nil
	}
	raw.HasData = true
	raw.Offset = res.Graphe.Decalage
	raw.Data = trimOffset(res.Graphe.Data, res.Graphe.Decalage)

	log.Ctx(ctx).DebugContext(
		ctx,
		"fetched linky data",
		slog.String("granularity", g.String()),
		slog.Int("count", len(raw.Data)),
		slog.Int("offset", raw.Offset),
	)
	return raw, nil
}
