package location

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/time/rate"
)

// Provider names accepted in configuration.
const (
	ProviderIPAPI     = "ipapi"
	ProviderFreeGeoIP = "freegeoip"
	ProviderIPInfo    = "ipinfo"
)

// Default endpoints, each geolocating the caller's public address.
const (
	DefaultIPAPIURL     = "http://ip-api.com/json"
	DefaultFreeGeoIPURL = "https://freegeoip.app/json/"
	DefaultIPInfoURL    = "https://ipinfo.io/json"
)

const userAgent = "pestwatch"

type decodeFunc func(body []byte) (Info, error)

// httpProvider issues a GET to a JSON endpoint and decodes the body.
// Requests wait on a per-provider limiter since the free tiers are rate limited.
type httpProvider struct {
	name    string
	url     string
	decode  decodeFunc
	limiter *rate.Limiter
	client  *http.Client
}

// NewProvider returns the named provider querying url.
// rps bounds the request rate; zero or negative disables the limit.
func NewProvider(name, url string, rps float64) (Provider, error) {
	var decode decodeFunc
	switch name {
	case ProviderIPAPI:
		decode = decodeIPAPI
	case ProviderFreeGeoIP:
		decode = decodeFreeGeoIP
	case ProviderIPInfo:
		decode = decodeIPInfo
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}

	limit := rate.Inf
	if rps > 0 {
		limit = rate.Limit(rps)
	}

	return &httpProvider{
		name:    name,
		url:     url,
		decode:  decode,
		limiter: rate.NewLimiter(limit, 1),
		client:  &http.Client{},
	}, nil
}

func (p *httpProvider) Name() string {
	return p.name
}

func (p *httpProvider) Locate(ctx context.Context) (Info, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return Info{}, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Info{}, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return Info{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return Info{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Info{}, fmt.Errorf("%s: HTTP %d", p.name, resp.StatusCode)
	}

	return p.decode(body)
}

type ipapiResponse struct {
	Status  string   `json:"status"`
	Message string   `json:"message"`
	Lat     *float64 `json:"lat"`
	Lon     *float64 `json:"lon"`
	City    string   `json:"city"`
	Country string   `json:"country"`
}

func decodeIPAPI(body []byte) (Info, error) {
	var r ipapiResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Info{}, fmt.Errorf("decode ipapi: %w", err)
	}
	if r.Status != "" && r.Status != "success" {
		return Info{}, fmt.Errorf("%w: %s", ErrUnavailable, r.Message)
	}
	return Info{
		Latitude:  r.Lat,
		Longitude: r.Lon,
		City:      optional(r.City),
		Country:   optional(r.Country),
	}, nil
}

type freeGeoIPResponse struct {
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	City        string   `json:"city"`
	CountryName string   `json:"country_name"`
}

func decodeFreeGeoIP(body []byte) (Info, error) {
	var r freeGeoIPResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Info{}, fmt.Errorf("decode freegeoip: %w", err)
	}
	return Info{
		Latitude:  r.Latitude,
		Longitude: r.Longitude,
		City:      optional(r.City),
		Country:   optional(r.CountryName),
	}, nil
}

type ipinfoResponse struct {
	Loc     string `json:"loc"`
	City    string `json:"city"`
	Country string `json:"country"`
	Bogon   bool   `json:"bogon"`
}

func decodeIPInfo(body []byte) (Info, error) {
	var r ipinfoResponse
	if err := json.Unmarshal(body, &r); err != nil {
		return Info{}, fmt.Errorf("decode ipinfo: %w", err)
	}
	if r.Bogon {
		return Info{}, fmt.Errorf("%w: bogon address", ErrUnavailable)
	}

	info := Info{
		City:    optional(r.City),
		Country: optional(r.Country),
	}

	if lat, lng, ok := strings.Cut(r.Loc, ","); ok {
		la, errLat := strconv.ParseFloat(strings.TrimSpace(lat), 64)
		lo, errLng := strconv.ParseFloat(strings.TrimSpace(lng), 64)
		if errLat != nil || errLng != nil {
			return Info{}, fmt.Errorf("decode ipinfo: malformed loc %q", r.Loc)
		}
		info.Latitude = &la
		info.Longitude = &lo
	}

	return info, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
