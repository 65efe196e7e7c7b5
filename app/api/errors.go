package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/hindustan-founders/hfn-saved/app/saved"
	"github.com/hindustan-founders/hfn-saved/app/search"
)

var errorStatuses = []struct {
	err    error
	status int
}{
	{saved.ErrAlreadySaved, http.StatusConflict},
	{saved.ErrInvalidItem, http.StatusBadRequest},
	{saved.ErrPersistence, http.StatusServiceUnavailable},
	{saved.ErrCorruptData, http.StatusInternalServerError},
	{search.ErrEmptyQuery, http.StatusBadRequest},
	{search.ErrProviderFailure, http.StatusBadGateway},
	{search.ErrSuperseded, http.StatusConflict},
	{search.ErrSearchNotFound, http.StatusNotFound},
	{search.ErrNoRepository, http.StatusNotImplemented},
}

func statusFor(err error) int {
	for _, entry := range errorStatuses {
		if errors.Is(err, entry.err) {
			return entry.status
		}
	}
	return http.StatusInternalServerError
}

// respondError logs the failure and answers with the status mapped from its kind.
func respondError(c *gin.Context, operation string, err error) {
	status := statusFor(err)

	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "operation", operation, "session", sessionFrom(c), "error", err)
	} else {
		slog.Debug("Request rejected", "operation", operation, "session", sessionFrom(c), "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
