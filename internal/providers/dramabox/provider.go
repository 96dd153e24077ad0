package dramabox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"dramastream/catalogservice/internal/domain"
	"dramastream/catalogservice/internal/providers/common"
)

const (
	defaultEndpoint  = "https://api.dramaboxdb.com/drama-box/search/suggest"
	defaultUserAgent = "drama-catalog/1.0"
)

type Config struct {
	Endpoint  string
	UserAgent string
	Client    *http.Client
}

type Provider struct {
	client    *http.Client
	endpoint  string
	userAgent string
}

func NewProvider(cfg Config) *Provider {
	client := cfg.Client
	if client == nil {
		client = &http.Client{}
	}
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	userAgent := strings.TrimSpace(cfg.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	return &Provider{client: client, endpoint: endpoint, userAgent: userAgent}
}

func (p *Provider) Name() string { return "dramabox" }

func (p *Provider) Info() domain.ProviderInfo {
	return domain.ProviderInfo{Name: p.Name(), Label: "DramaBox", Enabled: true}
}

func (p *Provider) Search(ctx context.Context, request domain.SearchRequest) ([]domain.ContentInput, error) {
	uri, err := url.Parse(p.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	query := uri.Query()
	query.Set("keyword", strings.TrimSpace(request.Query))
	if request.Page > 1 {
		query.Set("pageNo", strconv.Itoa(request.Page))
	}
	uri.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", p.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("provider HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("unexpected provider payload: %w", err)
	}

	limit := request.Limit
	if limit <= 0 {
		limit = 20
	}
	items := common.ItemList(raw, "suggestList", "list", "records")
	results := make([]domain.ContentInput, 0, len(items))
	for _, item := range items {
		input := Normalize(item)
		if input.ProviderContentID == "" {
			continue
		}
		results = append(results, input)
		if len(results) >= limit {
			break
		}
	}
	return results, nil
}
