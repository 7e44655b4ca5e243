package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Coords is a latitude/longitude pair in decimal degrees.
type Coords struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Provider resolves a free-form place name to coordinates.
type Provider interface {
	Name() string
	Locate(ctx context.Context, query string) (Coords, error)
}

// userAgent identifies this tool to the public geocoding services,
// which reject anonymous clients.
const userAgent = "scht-lab/1.0 (+https://github.com/oplik0/scht-lab)"

// httpGetJSON fetches a URL and decodes the JSON response body into out.
func httpGetJSON(ctx context.Context, client *http.Client, rawURL string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// geoJSONResponse is the shared shape of the GeoJSON FeatureCollection
// answers; coordinates arrive in [lon, lat] order.
type geoJSONResponse struct {
	Features []struct {
		Geometry struct {
			Coordinates []float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"features"`
}

func (r *geoJSONResponse) point() (Coords, error) {
	if len(r.Features) == 0 {
		return Coords{}, fmt.Errorf("no results")
	}
	coords := r.Features[0].Geometry.Coordinates
	if len(coords) < 2 {
		return Coords{}, fmt.Errorf("malformed geometry")
	}
	return Coords{Lat: coords[1], Lon: coords[0]}, nil
}

// Nominatim queries the OpenStreetMap Nominatim service.
type Nominatim struct {
	BaseURL string
	Client  *http.Client
}

func (n *Nominatim) Name() string { return "nominatim" }

func (n *Nominatim) Locate(ctx context.Context, query string) (Coords, error) {
	base := n.BaseURL
	if base == "" {
		base = "https://nominatim.openstreetmap.org"
	}
	var results []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	u := fmt.Sprintf("%s/search?q=%s&format=jsonv2&limit=1", base, url.QueryEscape(query))
	if err := httpGetJSON(ctx, n.Client, u, &results); err != nil {
		return Coords{}, err
	}
	if len(results) == 0 {
		return Coords{}, fmt.Errorf("no results")
	}
	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return Coords{}, fmt.Errorf("malformed latitude %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return Coords{}, fmt.Errorf("malformed longitude %q", results[0].Lon)
	}
	return Coords{Lat: lat, Lon: lon}, nil
}

// Photon queries the Komoot Photon service (GeoJSON).
type Photon struct {
	BaseURL string
	Client  *http.Client
}

func (p *Photon) Name() string { return "photon" }

func (p *Photon) Locate(ctx context.Context, query string) (Coords, error) {
	base := p.BaseURL
	if base == "" {
		base = "https://photon.komoot.io"
	}
	var resp geoJSONResponse
	u := fmt.Sprintf("%s/api/?q=%s&limit=1", base, url.QueryEscape(query))
	if err := httpGetJSON(ctx, p.Client, u, &resp); err != nil {
		return Coords{}, err
	}
	return resp.point()
}

// IGNFrance queries the IGN Géoplateforme geocoding service (GeoJSON).
type IGNFrance struct {
	BaseURL string
	Client  *http.Client
}

func (g *IGNFrance) Name() string { return "ignfrance" }

func (g *IGNFrance) Locate(ctx context.Context, query string) (Coords, error) {
	base := g.BaseURL
	if base == "" {
		base = "https://data.geopf.fr/geocodage"
	}
	var resp geoJSONResponse
	u := fmt.Sprintf("%s/search?q=%s&limit=1", base, url.QueryEscape(query))
	if err := httpGetJSON(ctx, g.Client, u, &resp); err != nil {
		return Coords{}, err
	}
	return resp.point()
}

// DataBC queries the British Columbia address geocoder (GeoJSON).
type DataBC struct {
	BaseURL string
	Client  *http.Client
}

func (d *DataBC) Name() string { return "databc" }

func (d *DataBC) Locate(ctx context.Context, query string) (Coords, error) {
	base := d.BaseURL
	if base == "" {
		base = "https://geocoder.api.gov.bc.ca"
	}
	var resp geoJSONResponse
	u := fmt.Sprintf("%s/addresses.json?addressString=%s&maxResults=1", base, url.QueryEscape(query))
	if err := httpGetJSON(ctx, d.Client, u, &resp); err != nil {
		return Coords{}, err
	}
	return resp.point()
}

// DefaultProviders returns the provider chain in fallback order.
func DefaultProviders(client *http.Client) []Provider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return []Provider{
		&Nominatim{Client: client},
		&Photon{Client: client},
		&IGNFrance{Client: client},
		&DataBC{Client: client},
	}
}
