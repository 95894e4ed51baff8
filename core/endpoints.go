package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	c "stockforecast/api"
	m "stockforecast/models"
)

const (
	DefaultAddr = ":8080"
)

var validate = validator.New()

func GetHttpServer(sc ServiceContext, addr string) *http.Server {
	if addr == "" {
		addr = DefaultAddr
	}

	return &http.Server{
		Addr:           addr,
		Handler:        GetRouter(sc),
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
}

func GetRouter(sc ServiceContext) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Recoverer)
	router.Use(requestLogging)

	router.Get("/api/ping", ping)
	router.Get("/api/forecast", func(w http.ResponseWriter, r *http.Request) { getForecast(w, r, sc) })
	router.Get("/api/forecast/chart", func(w http.ResponseWriter, r *http.Request) { getForecastChart(w, r, sc) })
	router.Get("/api/forecast/runs", func(w http.ResponseWriter, r *http.Request) { getForecastRuns(w, r, sc) })
	router.Post("/api/sync", func(w http.ResponseWriter, r *http.Request) { postSync(w, r, sc) })
	router.Handle("/metrics", promhttp.Handler())

	return router
}

func requestLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		log.Info().
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Str("remote", r.RemoteAddr).
			Int("status", ww.Status()).
			Dur("latency", time.Since(start)).
			Msg("request")
	})
}

func ping(w http.ResponseWriter, _ *http.Request) {
	message := "pong"
	writeJson(w, http.StatusOK, m.GetServiceResponseOk(&message))
}

func getForecast(w http.ResponseWriter, r *http.Request, sc ServiceContext) {
	req, err := bindForecastRequest(r)
	if err != nil {
		writeJson(w, http.StatusBadRequest, m.GetServiceResponseError[m.ForecastResponse](err))
		return
	}

	worker := sc.WithContext(r.Context())
	res, err := worker.RunForecast(req.Symbol, req.Settings())
	if err != nil {
		writeJson(w, statusForError(err), m.GetServiceResponseError[m.ForecastResponse](err))
		return
	}

	resp := m.MapForecastResultToResponse(res)
	writeJson(w, http.StatusOK, m.GetServiceResponseOk(&resp))
}

func getForecastChart(w http.ResponseWriter, r *http.Request, sc ServiceContext) {
	req, err := bindForecastRequest(r)
	if err != nil {
		writeJson(w, http.StatusBadRequest, m.GetServiceResponseError[m.ForecastResponse](err))
		return
	}

	worker := sc.WithContext(r.Context())
	res, err := worker.RunForecast(req.Symbol, req.Settings())
	if err != nil {
		writeJson(w, statusForError(err), m.GetServiceResponseError[m.ForecastResponse](err))
		return
	}

	var buf bytes.Buffer
	if err := RenderChart(&buf, res.Frame, fmt.Sprintf("%s forecast", req.Symbol)); err != nil {
		writeJson(w, http.StatusInternalServerError, m.GetServiceResponseError[m.ForecastResponse](err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func getForecastRuns(w http.ResponseWriter, r *http.Request, sc ServiceContext) {
	if !sc.HasDatabase() {
		writeJson(w, http.StatusServiceUnavailable, m.GetServiceResponseError[[]*m.ForecastRunHistory](ErrNoDatabase))
		return
	}

	query := r.URL.Query()
	req := m.ForecastRunsRequest{Symbol: strings.TrimSpace(query.Get("symbol"))}
	if err := parseQueryInt(query, "limit", &req.Limit); err != nil {
		writeJson(w, http.StatusBadRequest, m.GetServiceResponseError[[]*m.ForecastRunHistory](err))
		return
	}
	if err := validateRequest(r, &req); err != nil {
		writeJson(w, http.StatusBadRequest, m.GetServiceResponseError[[]*m.ForecastRunHistory](err))
		return
	}

	runs, err := sc.PostgresConnection.GetForecastRunsBySymbol(r.Context(), req.Symbol, req.Limit)
	if err != nil {
		writeJson(w, http.StatusInternalServerError, m.GetServiceResponseError[[]*m.ForecastRunHistory](err))
		return
	}

	writeJson(w, http.StatusOK, m.GetServiceResponseOk(&runs))
}

type syncResponse struct {
	Symbol        string    `json:"symbol"`
	LastRefreshed time.Time `json:"lastRefreshed"`
}

func postSync(w http.ResponseWriter, r *http.Request, sc ServiceContext) {
	if !sc.HasDatabase() {
		writeJson(w, http.StatusServiceUnavailable, m.GetServiceResponseError[syncResponse](ErrNoDatabase))
		return
	}

	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if err := validate.VarCtx(r.Context(), symbol, "required,max=32"); err != nil {
		writeJson(w, http.StatusBadRequest, m.GetServiceResponseError[syncResponse](fmt.Errorf("symbol: %w", err)))
		return
	}

	worker := sc.WithContext(r.Context())
	refreshed, err := worker.SyncSymbolTimeSeriesData(symbol)
	if err != nil {
		writeJson(w, statusForError(err), m.GetServiceResponseError[syncResponse](err))
		return
	}

	writeJson(w, http.StatusOK, m.GetServiceResponseOk(&syncResponse{Symbol: symbol, LastRefreshed: refreshed}))
}

// bindForecastRequest reads the query, fills defaults, then validates
func bindForecastRequest(r *http.Request) (m.ForecastRequest, error) {
	query := r.URL.Query()
	req := m.ForecastRequest{Symbol: strings.TrimSpace(query.Get("symbol"))}

	if err := parseQueryFloat(query, "horizon", &req.HorizonFraction); err != nil {
		return req, err
	}
	if err := parseQueryFloat(query, "testSize", &req.TestSize); err != nil {
		return req, err
	}
	if v := query.Get("seed"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return req, fmt.Errorf("seed must be an unsigned integer: %w", err)
		}
		req.Seed = seed
	}

	return req, validateRequest(r, &req)
}

func validateRequest(r *http.Request, req any) error {
	if err := defaults.Set(req); err != nil {
		return err
	}

	if err := validate.StructCtx(r.Context(), req); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			messages := make([]string, 0, len(validationErrors))
			for _, e := range validationErrors {
				messages = append(messages, validationMessage(e))
			}
			return errors.New(strings.Join(messages, "; "))
		}
		return err
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lt":
		return fmt.Sprintf("%s must be less than %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func parseQueryFloat(query url.Values, key string, dst *float64) error {
	v := query.Get(key)
	if v == "" {
		return nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("%s must be a number: %w", key, err)
	}
	*dst = f
	return nil
}

func parseQueryInt(query url.Values, key string, dst *int) error {
	v := query.Get(key)
	if v == "" {
		return nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s must be an integer: %w", key, err)
	}
	*dst = i
	return nil
}

func statusForError(err error) int {
	var statusErr *c.StatusError
	switch {
	case errors.Is(err, ErrSyncNotNeeded):
		return http.StatusConflict
	case errors.Is(err, ErrNoDatabase):
		return http.StatusServiceUnavailable
	case errors.Is(err, ErrEmptySeries), errors.Is(err, ErrDuplicateDate), errors.Is(err, ErrInsufficientRows):
		return http.StatusUnprocessableEntity
	case errors.As(err, &statusErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJson(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Int("status", status).Msg("error writing response")
	}
}
