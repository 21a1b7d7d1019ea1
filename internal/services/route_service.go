package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civicgrid/civicgrid-be/internal/models"
	"github.com/rs/zerolog/log"
)

// ErrRouteNotFound signals that no strategy could resolve the pair.
var ErrRouteNotFound = errors.New("route not found")

// RouteResolver resolves a route between two named places. Strategies are
// pluggable: a static table of known pairs, or geocoding plus an external
// routing engine.
type RouteResolver interface {
	Resolve(ctx context.Context, origin, destination string) (models.RouteResult, error)
}

// StaticRouteResolver answers from a fixed table of named origin/destination
// pairs. Lookups are case-insensitive.
type StaticRouteResolver struct {
	table map[string]models.RouteResult
}

// NewStaticRouteResolver builds a resolver over the given routes, keyed by
// their Origin/Destination fields.
func NewStaticRouteResolver(routes []models.RouteResult) *StaticRouteResolver {
	table := make(map[string]models.RouteResult, len(routes))
	for _, r := range routes {
		table[staticKey(r.Origin, r.Destination)] = r
	}
	return &StaticRouteResolver{table: table}
}

// Resolve returns the tabled route for the pair, or ErrRouteNotFound.
func (s *StaticRouteResolver) Resolve(_ context.Context, origin, destination string) (models.RouteResult, error) {
	if r, ok := s.table[staticKey(origin, destination)]; ok {
		return r, nil
	}
	return models.RouteResult{}, ErrRouteNotFound
}

func staticKey(origin, destination string) string {
	return strings.ToLower(strings.TrimSpace(origin)) + "|" + strings.ToLower(strings.TrimSpace(destination))
}

// DefaultRoutes is the tabled set of well-known city pairs.
func DefaultRoutes() []models.RouteResult {
	return []models.RouteResult{
		{
			Origin:      "Chennai Central",
			Destination: "Marina Beach",
			Path: []models.Coordinate{
				{Lat: 13.0827, Lon: 80.2757},
				{Lat: 13.0694, Lon: 80.2755},
				{Lat: 13.0500, Lon: 80.2824},
			},
			DistanceKm: 4.6,
		},
		{
			Origin:      "Chennai Central",
			Destination: "Chennai Airport",
			Path: []models.Coordinate{
				{Lat: 13.0827, Lon: 80.2757},
				{Lat: 13.0424, Lon: 80.2337},
				{Lat: 12.9941, Lon: 80.1709},
			},
			DistanceKm: 16.3,
		},
		{
			Origin:      "T Nagar",
			Destination: "Marina Beach",
			Path: []models.Coordinate{
				{Lat: 13.0418, Lon: 80.2341},
				{Lat: 13.0467, Lon: 80.2589},
				{Lat: 13.0500, Lon: 80.2824},
			},
			DistanceKm: 6.1,
		},
	}
}

// GeoRouteResolver geocodes both endpoints against a Nominatim-compatible
// service and asks an OSRM-compatible engine for the driving route.
type GeoRouteResolver struct {
	geocoderURL string
	routerURL   string
	client      *http.Client
}

// NewGeoRouteResolver creates a resolver over the given collaborator URLs.
func NewGeoRouteResolver(geocoderURL, routerURL string) *GeoRouteResolver {
	return &GeoRouteResolver{
		geocoderURL: strings.TrimRight(geocoderURL, "/"),
		routerURL:   strings.TrimRight(routerURL, "/"),
		client:      &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve geocodes origin and destination, then fetches the route between
// them. A place that does not geocode yields ErrRouteNotFound.
func (g *GeoRouteResolver) Resolve(ctx context.Context, origin, destination string) (models.RouteResult, error) {
	from, err := g.geocode(ctx, origin)
	if err != nil {
		return models.RouteResult{}, err
	}
	to, err := g.geocode(ctx, destination)
	if err != nil {
		return models.RouteResult{}, err
	}

	path, distanceKm, err := g.route(ctx, from, to)
	if err != nil {
		return models.RouteResult{}, err
	}

	return models.RouteResult{
		Origin:      origin,
		Destination: destination,
		Path:        path,
		DistanceKm:  distanceKm,
	}, nil
}

func (g *GeoRouteResolver) geocode(ctx context.Context, place string) (models.Coordinate, error) {
	endpoint := fmt.Sprintf("%s/search?q=%s&format=json&limit=1", g.geocoderURL, url.QueryEscape(place))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Coordinate{}, err
	}
	req.Header.Set("User-Agent", "civicgrid-route-optimizer")

	resp, err := g.client.Do(req)
	if err != nil {
		return models.Coordinate{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return models.Coordinate{}, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var hits []struct {
		Lat string `json:"lat"`
		Lon string `json:"lon"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&hits); err != nil {
		return models.Coordinate{}, err
	}
	if len(hits) == 0 {
		return models.Coordinate{}, ErrRouteNotFound
	}

	var c models.Coordinate
	if _, err := fmt.Sscanf(hits[0].Lat, "%f", &c.Lat); err != nil {
		return models.Coordinate{}, fmt.Errorf("geocoder returned malformed latitude %q", hits[0].Lat)
	}
	if _, err := fmt.Sscanf(hits[0].Lon, "%f", &c.Lon); err != nil {
		return models.Coordinate{}, fmt.Errorf("geocoder returned malformed longitude %q", hits[0].Lon)
	}
	return c, nil
}

func (g *GeoRouteResolver) route(ctx context.Context, from, to models.Coordinate) ([]models.Coordinate, float64, error) {
	endpoint := fmt.Sprintf("%s/route/v1/driving/%f,%f;%f,%f?overview=full&geometries=geojson",
		g.routerURL, from.Lon, from.Lat, to.Lon, to.Lat)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, 0, fmt.Errorf("routing engine returned status %d", resp.StatusCode)
	}

	var body struct {
		Code   string `json:"code"`
		Routes []struct {
			Distance float64 `json:"distance"` // meters
			Geometry struct {
				Coordinates [][]float64 `json:"coordinates"` // [lon, lat]
			} `json:"geometry"`
		} `json:"routes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, 0, err
	}
	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, 0, ErrRouteNotFound
	}

	route := body.Routes[0]
	path := make([]models.Coordinate, 0, len(route.Geometry.Coordinates))
	for _, pair := range route.Geometry.Coordinates {
		if len(pair) < 2 {
			continue
		}
		path = append(path, models.Coordinate{Lat: pair[1], Lon: pair[0]})
	}
	return path, route.Distance / 1000, nil
}

// ChainRouteResolver tries each resolver in order, falling through on
// ErrRouteNotFound and stopping on the first answer or hard error.
type ChainRouteResolver struct {
	resolvers []RouteResolver
}

// NewChainRouteResolver builds a chain over the given resolvers.
func NewChainRouteResolver(resolvers ...RouteResolver) *ChainRouteResolver {
	return &ChainRouteResolver{resolvers: resolvers}
}

// Resolve walks the chain.
func (c *ChainRouteResolver) Resolve(ctx context.Context, origin, destination string) (models.RouteResult, error) {
	for i, r := range c.resolvers {
		result, err := r.Resolve(ctx, origin, destination)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrRouteNotFound) {
			return models.RouteResult{}, err
		}
		if i < len(c.resolvers)-1 {
			log.Debug().Str("origin", origin).Str("destination", destination).Msg("Route not in table, trying next strategy")
		}
	}
	return models.RouteResult{}, ErrRouteNotFound
}
