// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/taibuivan/healthid/internal/platform/constants"
	"github.com/taibuivan/healthid/internal/platform/respond"
)

// probeTimeout bounds each dependency check of /ready.
const probeTimeout = 3 * time.Second

// Check is one named readiness dependency.
type Check struct {
	Name  string
	Probe func(context.Context) error
}

// HealthDependencies lists what /ready checks. Postgres backs accounts and
// the code audit; Redis backs every pending login, so both are required.
type HealthDependencies struct {
	Checks []Check
}

type checkResult struct {
	Name  string `json:"name"`
	IsOK  bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type healthHandler struct {
	dependencies HealthDependencies
	logger       *slog.Logger
}

// NewHealthHandlers creates the /health and /ready handlers.
func NewHealthHandlers(deps HealthDependencies, logger *slog.Logger) (liveness, readiness http.HandlerFunc) {
	handler := &healthHandler{dependencies: deps, logger: logger}
	return handler.liveness, handler.readiness
}

// liveness handles GET /health.
func (handler *healthHandler) liveness(writer http.ResponseWriter, _ *http.Request) {
	respond.OK(writer, map[string]string{
		"status":  "ok",
		"version": constants.AppVersion,
	})
}

// readiness handles GET /ready. Checks run concurrently; results keep the
// order of [HealthDependencies.Checks].
func (handler *healthHandler) readiness(writer http.ResponseWriter, request *http.Request) {
	checks := handler.dependencies.Checks
	results := make([]checkResult, len(checks))

	probeCtx, cancel := context.WithTimeout(request.Context(), probeTimeout)
	defer cancel()

	var group errgroup.Group
	for index, check := range checks {
		group.Go(func() error {
			results[index] = checkResult{Name: check.Name, IsOK: true}
			if err := check.Probe(probeCtx); err != nil {
				results[index].IsOK = false
				results[index].Error = err.Error()
				handler.logger.ErrorContext(probeCtx, "readiness_check_failed",
					slog.String("dependency", check.Name),
					slog.Any("error", err),
				)
			}
			return nil
		})
	}
	_ = group.Wait()

	status, httpStatus := "ready", http.StatusOK
	for _, result := range results {
		if !result.IsOK {
			status, httpStatus = "degraded", http.StatusServiceUnavailable
			break
		}
	}

	respond.JSON(writer, httpStatus, respond.SuccessEnvelope{Data: map[string]any{
		"status": status,
		"checks": results,
	}})
}
