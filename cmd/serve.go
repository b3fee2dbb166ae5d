package main

import (
	"context"
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

	"github.com/sells-group/callreport-cli/internal/model"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve ingested statements over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		st, err := initMigratedStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.Recoverer)
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "OPTIONS"},
		}))

		r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})

		r.Get("/institutions/{id}", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entity id"})
				return
			}
			inst, err := st.GetInstitution(req.Context(), id)
			if err != nil {
				serverError(w, err)
				return
			}
			if inst == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "institution not found"})
				return
			}
			writeJSON(w, http.StatusOK, inst)
		})

		r.Get("/institutions/{id}/statements/{period}", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entity id"})
				return
			}
			period, err := model.ParsePeriod(chi.URLParam(req, "period"))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			stmt, err := st.GetStatement(req.Context(), id, period)
			if err != nil {
				serverError(w, err)
				return
			}
			if stmt == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "statement not found"})
				return
			}
			writeJSON(w, http.StatusOK, stmt)
		})

		r.Get("/institutions/{id}/statements/{period}/peers", func(w http.ResponseWriter, req *http.Request) {
			id, err := strconv.ParseInt(chi.URLParam(req, "id"), 10, 64)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid entity id"})
				return
			}
			period, err := model.ParsePeriod(chi.URLParam(req, "period"))
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
				return
			}
			stmt, err := st.GetStatement(req.Context(), id, period)
			if err != nil {
				serverError(w, err)
				return
			}
			if stmt == nil || stmt.PeerAnalysis == nil {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "peer analysis not found"})
				return
			}
			writeJSON(w, http.StatusOK, stmt.PeerAnalysis)
		})

		r.Get("/periods", func(w http.ResponseWriter, req *http.Request) {
			periods, err := st.ListPeriods(req.Context())
			if err != nil {
				serverError(w, err)
				return
			}
			writeJSON(w, http.StatusOK, periods)
		})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: r,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func serverError(w http.ResponseWriter, err error) {
	zap.L().Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
