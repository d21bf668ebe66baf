package handler

import (
	"errors"
	"net/http"

	"go-archive-app/internal/data"
	"go-archive-app/internal/importer"
	"go-archive-app/internal/middleware"
	"go-archive-app/internal/service"
)

// appError maps a service error to its HTTP status. msg is used for errors outside
// the known taxonomy.
func appError(err error, msg string) *middleware.AppError {
	var perr *service.PersistenceError
	switch {
	case errors.Is(err, data.ErrNotFound):
		return &middleware.AppError{Error: err, Message: "Node not found", Code: http.StatusNotFound}
	case errors.Is(err, service.ErrInvalidMove):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusConflict}
	case errors.Is(err, service.ErrNoRemote):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusConflict}
	case errors.Is(err, importer.ErrUnsupportedFormat):
		return &middleware.AppError{Error: err, Message: "Unsupported file format", Code: http.StatusUnsupportedMediaType}
	case errors.Is(err, service.ErrInvalidInput):
		return &middleware.AppError{Error: err, Message: err.Error(), Code: http.StatusBadRequest}
	case errors.As(err, &perr):
		return &middleware.AppError{Error: err, Message: "Storage backend unavailable", Code: http.StatusServiceUnavailable}
	}
	return &middleware.AppError{Error: err, Message: msg, Code: http.StatusInternalServerError}
}

func badRequest(err error, msg string) *middleware.AppError {
	return &middleware.AppError{Error: err, Message: msg, Code: http.StatusBadRequest}
}
