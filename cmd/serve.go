package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/scentlab/accord/internal/model"
	"github.com/scentlab/accord/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newMux(env),
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// compoundRequest is the JSON body for creating or updating a compound.
type compoundRequest struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Items       []model.FormulaItem `json:"items"`
}

func newMux(env *pipelineEnv) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /compounds", func(w http.ResponseWriter, r *http.Request) {
		var req compoundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		compound, err := env.Store.CreateCompound(r.Context(), req.Name, req.Description, req.Items)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, compound)
	})

	mux.HandleFunc("GET /compounds", func(w http.ResponseWriter, r *http.Request) {
		compounds, err := env.Store.ListCompounds(r.Context(), store.CompoundFilter{
			Search: r.URL.Query().Get("search"),
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if compounds == nil {
			compounds = []model.Compound{}
		}
		writeJSON(w, http.StatusOK, compounds)
	})

	mux.HandleFunc("GET /compounds/{id}", func(w http.ResponseWriter, r *http.Request) {
		compound, err := env.Store.GetCompound(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, compound)
	})

	mux.HandleFunc("PUT /compounds/{id}", func(w http.ResponseWriter, r *http.Request) {
		var req compoundRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Name == "" {
			writeError(w, http.StatusBadRequest, "name is required")
			return
		}

		compound, err := env.Store.UpdateCompound(r.Context(), r.PathValue("id"), req.Name, req.Description, req.Items)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, compound)
	})

	mux.HandleFunc("DELETE /compounds/{id}", func(w http.ResponseWriter, r *http.Request) {
		if err := env.Store.DeleteCompound(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("POST /compounds/{id}/analyze", func(w http.ResponseWriter, r *http.Request) {
		compound, err := env.Store.GetCompound(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if len(compound.Items) == 0 {
			writeError(w, http.StatusBadRequest, "compound has no formula items")
			return
		}

		outcome, err := env.Pipeline.Analyze(r.Context(), compound.Items)
		if err != nil {
			zap.L().Error("analysis failed",
				zap.String("compound_id", compound.ID),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, "analysis service unavailable")
			return
		}

		analysis, err := env.Store.CreateAnalysis(r.Context(), model.Analysis{
			CompoundID:    compound.ID,
			Model:         env.Pipeline.Model(),
			PromptVersion: env.Pipeline.PromptVersion(),
			PromptText:    outcome.Prompt,
			RawResponse:   outcome.RawResponse,
			Result:        &outcome.Result,
		})
		if err != nil {
			writeStoreError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, analysis)
	})

	mux.HandleFunc("GET /compounds/{id}/analyses", func(w http.ResponseWriter, r *http.Request) {
		if _, err := env.Store.GetCompound(r.Context(), r.PathValue("id")); err != nil {
			writeStoreError(w, err)
			return
		}
		analyses, err := env.Store.ListAnalyses(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if analyses == nil {
			analyses = []model.Analysis{}
		}
		writeJSON(w, http.StatusOK, analyses)
	})

	mux.HandleFunc("POST /compounds/{id}/chat", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Question string `json:"question"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Question == "" {
			writeError(w, http.StatusBadRequest, "question is required")
			return
		}

		compound, err := env.Store.GetCompound(r.Context(), r.PathValue("id"))
		if err != nil {
			writeStoreError(w, err)
			return
		}

		latest, err := env.Store.LatestAnalysis(r.Context(), compound.ID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusConflict, "compound has no analysis yet")
			return
		}
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if latest.Result == nil {
			writeError(w, http.StatusConflict, "latest analysis has no structured result")
			return
		}

		answer, err := env.Chat.Ask(r.Context(), compound, latest.Result, req.Question)
		if err != nil {
			zap.L().Error("chat failed",
				zap.String("compound_id", compound.ID),
				zap.Error(err),
			)
			writeError(w, http.StatusBadGateway, "chat service unavailable")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
	})

	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	zap.L().Error("store operation failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
