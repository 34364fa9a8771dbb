package chi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	sa "github.com/kailas-cloud/simplyanalytics"
	healthuc "github.com/kailas-cloud/simplyanalytics/internal/usecase/health"
	"github.com/kailas-cloud/simplyanalytics/internal/version"
)

// maxBodyBytes caps request bodies; filters are small.
const maxBodyBytes = 1 << 20

// Analytics is the subset of *simplyanalytics.Client the gateway serves.
type Analytics interface {
	GetLatestAvailableDatasets(ctx context.Context) (map[string]int, error)
	GetLatestCensusReleases(ctx context.Context) (map[string]int, error)
	FindAttributes(ctx context.Context, name string, opts ...sa.FindOption) ([]sa.Hit, error)
	FindLocations(ctx context.Context, name string, opts ...sa.FindOption) (json.RawMessage, error)
	GetData(ctx context.Context, attributes []string, where sa.Node, opts ...sa.DataOption) (json.RawMessage, error)
}

var _ Analytics = (*sa.Client)(nil)

// Server serves the gateway HTTP API on top of one shared client.
type Server struct {
	client  Analytics
	health  *healthuc.Service
	metrics http.Handler
	logger  *zap.Logger
}

// NewServer creates an HTTP API server. A nil health service reports
// healthy unconditionally; a nil metrics handler serves the default registry.
func NewServer(client Analytics, health *healthuc.Service, metrics http.Handler, logger *zap.Logger) *Server {
	if health == nil {
		health = healthuc.New(0, nil)
	}
	if metrics == nil {
		metrics = promhttp.Handler()
	}
	return &Server{
		client:  client,
		health:  health,
		metrics: metrics,
		logger:  logger,
	}
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Handle("/metrics", s.metrics)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/categories", s.ListCategories)
		r.Get("/datasets/latest", s.LatestDatasets)
		r.Get("/census-releases/latest", s.LatestCensusReleases)
		r.Post("/attributes/search", s.SearchAttributes)
		r.Post("/locations/search", s.SearchLocations)
		r.Post("/data", s.GetData)
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, CodeBadRequest, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string            `json:"status"`
	Version string            `json:"version"`
	Commit  string            `json:"commit"`
	Checks  map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles GET /health. The analytics service itself is not
// contacted; only local dependencies such as the shared cache are probed.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	resp := HealthResponse{
		Status:  string(report.Status),
		Version: version.Version,
		Commit:  version.Commit,
	}
	if len(report.Checks) > 0 {
		resp.Checks = make(map[string]string, len(report.Checks))
		for k, v := range report.Checks {
			resp.Checks[k] = string(v)
		}
	}
	for name, err := range report.Errors {
		s.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
	}

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// ListCategories handles GET /v1/categories.
func (s *Server) ListCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, sa.DataCategories())
}

// LatestDatasets handles GET /v1/datasets/latest.
func (s *Server) LatestDatasets(w http.ResponseWriter, r *http.Request) {
	latest, err := s.client.GetLatestAvailableDatasets(r.Context())
	if err != nil {
		handleError(w, r, "latest_datasets", err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// LatestCensusReleases handles GET /v1/census-releases/latest.
func (s *Server) LatestCensusReleases(w http.ResponseWriter, r *http.Request) {
	latest, err := s.client.GetLatestCensusReleases(r.Context())
	if err != nil {
		handleError(w, r, "latest_census_releases", err)
		return
	}
	writeJSON(w, http.StatusOK, latest)
}

// AttributeSearchRequest is the body of POST /v1/attributes/search.
type AttributeSearchRequest struct {
	Name          string   `json:"name"`
	Year          *int     `json:"year,omitempty"`
	Country       string   `json:"country,omitempty"`
	CensusRelease *int     `json:"census_release,omitempty"`
	Limit         *int     `json:"limit,omitempty"`
	ExactMatch    bool     `json:"exact_match,omitempty"`
	AllEditions   bool     `json:"all_editions,omitempty"`
	Fields        []string `json:"fields,omitempty"`
}

func (req AttributeSearchRequest) options() ([]sa.FindOption, error) {
	var opts []sa.FindOption
	if req.Year != nil {
		opts = append(opts, sa.WithYear(*req.Year))
	}
	if req.Country != "" {
		opts = append(opts, sa.WithCountry(req.Country))
	}
	if req.CensusRelease != nil {
		opts = append(opts, sa.WithCensusRelease(*req.CensusRelease))
	}
	if req.Limit != nil {
		if *req.Limit <= 0 {
			return nil, fmt.Errorf("limit must be positive, got %d", *req.Limit)
		}
		opts = append(opts, sa.WithLimit(*req.Limit))
	}
	if req.ExactMatch {
		opts = append(opts, sa.WithExactMatch())
	}
	if req.AllEditions {
		opts = append(opts, sa.WithAllEditions())
	}
	if len(req.Fields) > 0 {
		opts = append(opts, sa.WithFields(req.Fields...))
	}
	return opts, nil
}

// SearchAttributes handles POST /v1/attributes/search.
func (s *Server) SearchAttributes(w http.ResponseWriter, r *http.Request) {
	var req AttributeSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "name is required")
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	hits, err := s.client.FindAttributes(r.Context(), req.Name, opts...)
	if err != nil {
		handleError(w, r, "find_attributes", err)
		return
	}
	writeJSON(w, http.StatusOK, hits)
}

// LocationSearchRequest is the body of POST /v1/locations/search.
type LocationSearchRequest struct {
	Name           string `json:"name"`
	Country        string `json:"country,omitempty"`
	GeographicUnit string `json:"geographic_unit,omitempty"`
	CensusRelease  *int   `json:"census_release,omitempty"`
}

// SearchLocations handles POST /v1/locations/search.
func (s *Server) SearchLocations(w http.ResponseWriter, r *http.Request) {
	var req LocationSearchRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "name is required")
		return
	}

	var opts []sa.FindOption
	if req.Country != "" {
		opts = append(opts, sa.WithCountry(req.Country))
	}
	if req.GeographicUnit != "" {
		opts = append(opts, sa.WithGeographicUnit(req.GeographicUnit))
	}
	if req.CensusRelease != nil {
		opts = append(opts, sa.WithCensusRelease(*req.CensusRelease))
	}

	raw, err := s.client.FindLocations(r.Context(), req.Name, opts...)
	if err != nil {
		handleError(w, r, "find_locations", err)
		return
	}
	writeRaw(w, raw)
}

// DataRequest is the body of POST /v1/data. Where uses the service's
// nested-array filter grammar; each sort entry is [direction, field].
type DataRequest struct {
	Attributes []string          `json:"attributes"`
	Where      json.RawMessage   `json:"where"`
	Sort       []json.RawMessage `json:"sort,omitempty"`
	Slice      *[2]int           `json:"slice,omitempty"`
}

func (req DataRequest) options() ([]sa.DataOption, error) {
	var opts []sa.DataOption
	if len(req.Sort) > 0 {
		sorts := make([]sa.Sort, len(req.Sort))
		for i, raw := range req.Sort {
			srt, err := parseSort(raw)
			if err != nil {
				return nil, fmt.Errorf("sort[%d]: %w", i, err)
			}
			sorts[i] = srt
		}
		opts = append(opts, sa.WithSort(sorts...))
	}
	if req.Slice != nil {
		if req.Slice[0] < 0 || req.Slice[1] < req.Slice[0] {
			return nil, fmt.Errorf("slice must satisfy 0 <= start <= end, got %v", *req.Slice)
		}
		opts = append(opts, sa.WithSlice(req.Slice[0], req.Slice[1]))
	}
	return opts, nil
}

func parseSort(raw json.RawMessage) (sa.Sort, error) {
	var pair []json.RawMessage
	if err := json.Unmarshal(raw, &pair); err != nil || len(pair) != 2 {
		return sa.Sort{}, errors.New("expected [direction, field]")
	}
	var dir sa.Direction
	if err := json.Unmarshal(pair[0], &dir); err != nil {
		return sa.Sort{}, fmt.Errorf("direction: %w", err)
	}
	if dir != sa.Asc && dir != sa.Desc {
		return sa.Sort{}, fmt.Errorf("direction must be %q or %q, got %q", sa.Asc, sa.Desc, dir)
	}
	field, err := sa.ParseFilter(pair[1])
	if err != nil {
		return sa.Sort{}, fmt.Errorf("field: %w", err)
	}
	return sa.Sort{Direction: dir, Field: field}, nil
}

// GetData handles POST /v1/data.
func (s *Server) GetData(w http.ResponseWriter, r *http.Request) {
	var req DataRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Attributes) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "attributes is required")
		return
	}
	if len(req.Where) == 0 {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "where is required")
		return
	}
	where, err := sa.ParseFilter(req.Where)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "where: "+err.Error())
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	raw, err := s.client.GetData(r.Context(), req.Attributes, where, opts...)
	if err != nil {
		handleError(w, r, "get_data", err)
		return
	}
	writeRaw(w, raw)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeRaw forwards a service response body as-is.
func writeRaw(w http.ResponseWriter, raw json.RawMessage) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(raw)
}
