package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// LivenessHandler reports that the process is serving.
func LivenessHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// ReadinessHandler runs every check and answers with the worst status.
func ReadinessHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code, body := OverallStatus(agg.CheckAll(r.Context())).Probe()
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}
}

// HealthResponse is the body of the detailed health endpoint.
type HealthResponse struct {
	Status    Status          `json:"status"`
	CheckedAt time.Time       `json:"checked_at"`
	Checks    []CheckResponse `json:"checks"`
}

// CheckResponse reports one check inside a HealthResponse.
type CheckResponse struct {
	Name     string         `json:"name"`
	Status   Status         `json:"status"`
	Message  string         `json:"message,omitempty"`
	Error    string         `json:"error,omitempty"`
	Duration string         `json:"duration"`
	Details  map[string]any `json:"details,omitempty"`
}

// DetailedHandler reports every check as JSON, in registration order.
func DetailedHandler(agg *Aggregator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results := agg.CheckAll(r.Context())
		resp := HealthResponse{
			Status:    OverallStatus(results),
			CheckedAt: time.Now().UTC(),
			Checks:    make([]CheckResponse, 0, len(results)),
		}
		for _, res := range results {
			c := CheckResponse{
				Name:     res.Name,
				Status:   res.Status,
				Message:  res.Message,
				Duration: res.Took.String(),
				Details:  res.Details,
			}
			if res.Err != nil {
				c.Error = res.Err.Error()
			}
			resp.Checks = append(resp.Checks, c)
		}

		code, _ := resp.Status.Probe()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Router is the subset of a router the handlers are mounted on.
type Router interface {
	Get(pattern string, handler http.HandlerFunc)
}

// RegisterHandlers mounts /healthz, /readyz and /health.
func RegisterHandlers(r Router, agg *Aggregator) {
	r.Get("/healthz", LivenessHandler())
	r.Get("/readyz", ReadinessHandler(agg))
	r.Get("/health", DetailedHandler(agg))
}
