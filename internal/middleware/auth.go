// Mapcase - Geospatial Incident Reporting and Analytics
// Copyright 2026 Mapcase Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mapcase/mapcase

package middleware

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/mapcase/mapcase/internal/auth"
	"github.com/mapcase/mapcase/internal/logging"
	"github.com/mapcase/mapcase/internal/models"
)

// Authenticate verifies the bearer token on every request and attaches
// the principal to the context. Requests without a valid token get 401;
// role checks happen downstream per route.
func Authenticate(verifier *auth.Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := auth.BearerToken(r)
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}

			principal, err := verifier.Verify(token)
			if err != nil {
				logging.Ctx(r.Context()).Debug().Err(err).Msg("token verification failed")
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := auth.ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(&models.APIResponse{
		Status:   "error",
		Metadata: models.Metadata{Timestamp: time.Now().UTC()},
		Error: &models.APIError{
			Code:    "AUTHENTICATION_ERROR",
			Message: detail,
		},
	})
}
