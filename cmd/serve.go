package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the read-only intelligence API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(st),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func newRouter(st store.Store) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/data-points", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		points, err := st.GetDataPoints(req.Context(), store.DataPointFilter{
			Sector:    q.Get("sector"),
			Dimension: q.Get("dimension"),
			Year:      intQuery(q.Get("year")),
			Status:    model.ValidationStatus(q.Get("status")),
			Limit:     intQuery(q.Get("limit")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if points == nil {
			points = []model.DataPoint{}
		}
		writeJSON(w, http.StatusOK, points)
	})

	r.Get("/api/data-points/{id}", func(w http.ResponseWriter, req *http.Request) {
		dp, err := st.GetDataPoint(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			writeError(w, err)
			return
		}
		if dp == nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
			return
		}
		writeJSON(w, http.StatusOK, dp)
	})

	r.Get("/api/changes", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		entries, err := st.GetChanges(req.Context(), store.ChangeFilter{
			Table: q.Get("table"),
			Limit: intQuery(q.Get("limit")),
		})
		if err != nil {
			writeError(w, err)
			return
		}
		if entries == nil {
			entries = []model.ChangeLogEntry{}
		}
		writeJSON(w, http.StatusOK, entries)
	})

	r.Get("/api/detected", func(w http.ResponseWriter, req *http.Request) {
		changes, err := st.ListDetectedChanges(req.Context(), intQuery(req.URL.Query().Get("limit")))
		if err != nil {
			writeError(w, err)
			return
		}
		if changes == nil {
			changes = []model.Change{}
		}
		writeJSON(w, http.StatusOK, changes)
	})

	r.Get("/api/stats", func(w http.ResponseWriter, req *http.Request) {
		stats, err := st.Stats(req.Context())
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	})

	return r
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Error("encode response", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func intQuery(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
