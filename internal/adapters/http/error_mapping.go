package httpadapter

import (
	"net/http"

	"github.com/kirillkom/self-healing-rag/internal/core/domain"
)

func mapErrorToHTTPStatus(err error) int {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case domain.IsKind(err, domain.ErrNoEvidence),
		domain.IsKind(err, domain.ErrJobNotFound),
		domain.IsKind(err, domain.ErrReportNotFound):
		return http.StatusNotFound
	case domain.IsKind(err, domain.ErrVersionExists),
		domain.IsKind(err, domain.ErrVersionIncomplete):
		return http.StatusConflict
	case domain.IsKind(err, domain.ErrTemporary):
		return http.StatusServiceUnavailable
	case domain.IsKind(err, domain.ErrHealingFailure):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
