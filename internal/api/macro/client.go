package macro

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"

	"github.com/quantsignal/fusion/config"
	"github.com/quantsignal/fusion/internal/features"
	platformhttp "github.com/quantsignal/fusion/internal/platform/http"
	"github.com/quantsignal/fusion/models"
)

// Provider fetches the macro calendar document and extracts a bias score and
// news timing. Calendar payloads vary by vendor, so fields are picked out
// with gjson paths instead of a rigid schema.
type Provider struct {
	apiKey     string
	baseURL    string
	httpClient *platformhttp.Client
	logger     zerolog.Logger
}

// NewProvider builds the macro provider from config.
func NewProvider(cfg config.MacroFeedConfig) *Provider {
	return &Provider{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		httpClient: platformhttp.NewClient(platformhttp.ClientOptions{
			Timeout: cfg.Timeout,
		}),
		logger: log.With().Str("component", "macro_client").Logger(),
	}
}

func (p *Provider) Name() string { return "macro" }

func (p *Provider) Fetch(ctx context.Context, symbol string) (features.Apply, error) {
	endpoint := fmt.Sprintf("%s/calendar?symbol=%s&apikey=%s",
		p.baseURL, url.QueryEscape(symbol), p.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.httpClient.DoRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("macro fetch failed for %s: %w", symbol, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	block, err := parseCalendar(body, time.Now().UTC())
	if err != nil {
		return nil, err
	}
	return func(snap *models.FeatureSnapshot) {
		snap.Macro = block
	}, nil
}

// parseCalendar extracts the macro block from a calendar payload.
func parseCalendar(body []byte, now time.Time) (*models.MacroBlock, error) {
	doc := gjson.ParseBytes(body)
	if !doc.Exists() || doc.Type == gjson.Null {
		return nil, fmt.Errorf("empty calendar payload")
	}

	block := &models.MacroBlock{
		BiasScore:        doc.Get("bias.score").Float(),
		MinutesSinceNews: -1,
	}

	// Find the most recent past high-impact event and note any upcoming one.
	doc.Get("events").ForEach(func(_, ev gjson.Result) bool {
		impact := ev.Get("impact").String()
		ts, err := time.Parse(time.RFC3339, ev.Get("time").String())
		if err != nil {
			return true
		}
		if ts.After(now) {
			if impact == "HIGH" {
				block.HasUpcomingHighImpact = true
			}
			return true
		}
		minutes := now.Sub(ts).Minutes()
		if block.MinutesSinceNews < 0 || minutes < block.MinutesSinceNews {
			block.MinutesSinceNews = minutes
			block.NewsImpact = impact
		}
		return true
	})

	if block.BiasScore < -1 || block.BiasScore > 1 {
		return nil, fmt.Errorf("bias score out of range: %.2f", block.BiasScore)
	}
	return block, nil
}
