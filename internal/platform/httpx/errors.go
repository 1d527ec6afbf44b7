package httpx

import (
	"errors"
	"net/http"

	"github.com/mrwhyte0520/contabi/internal/shared"
)

// Extender is implemented by errors that carry extra problem members,
// such as the list of departments over budget.
type Extender interface {
	ProblemExtensions() map[string]any
}

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	status, title := classify(err)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		detail = ""
	}
	problem := ProblemDetail{Title: title, Status: status, Detail: detail}
	var ext Extender
	if errors.As(err, &ext) {
		problem.Extensions = ext.ProblemExtensions()
	}
	writeProblem(w, problem)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrInvalidTransition):
		return http.StatusConflict, "Invalid Transition"
	case errors.Is(err, shared.ErrValidation):
		return http.StatusUnprocessableEntity, "Validation Failed"
	case errors.Is(err, shared.ErrConfiguration):
		return http.StatusUnprocessableEntity, "Configuration Missing"
	case errors.Is(err, shared.ErrBudgetExceeded):
		return http.StatusConflict, "Budget Exceeded"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}
