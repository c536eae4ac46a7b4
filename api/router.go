package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (rw *responseRecorder) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

// accessLog assigns a request ID (google/uuid) to every request and logs
// method, path, status and duration through the package's btclog backend.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		w.Header().Set("X-Request-Id", requestID)

		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		log.Infof("%s %s %s status=%d duration=%s", requestID, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

// PublicRouter builds the read-only API of §6: address/actual,
// address/following, transactions, config.
func PublicRouter(d *Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/address/actual", d.AddressActual)
	r.Get("/address/following", d.AddressFollowing)
	r.Get("/transactions", d.Transactions)
	r.Get("/config", d.Config)
	return r
}

// PrivateRouter builds the sync utility's API of §6: proposal, sign-input,
// add-funds. It is expected to bind to a loopback or otherwise restricted
// address, since it lets the caller submit signed transactions on this
// node's behalf.
func PrivateRouter(d *Deps) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(accessLog)

	r.Get("/proposal", d.Proposal)
	r.Post("/sign-input", d.SignInput)
	r.Post("/add-funds", d.AddFunds)
	return r
}
