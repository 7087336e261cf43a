package controller

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/api-sage/banking-ledger/src/internal/commons"
	"github.com/api-sage/banking-ledger/src/internal/logger"
)

const maxBodyBytes = 1 << 20

var statusByKind = map[commons.ErrorKind]int{
	commons.KindNotFound:                http.StatusNotFound,
	commons.KindDuplicateUsername:       http.StatusConflict,
	commons.KindInvalidAmount:           http.StatusBadRequest,
	commons.KindInsufficientFunds:       http.StatusBadRequest,
	commons.KindValidation:              http.StatusBadRequest,
	commons.KindInvalidCredentials:      http.StatusUnauthorized,
	commons.KindUnauthorized:            http.StatusUnauthorized,
	commons.KindForbidden:               http.StatusForbidden,
	commons.KindRateProviderUnavailable: http.StatusServiceUnavailable,
	commons.KindInternal:                http.StatusInternalServerError,
}

// StatusFor maps an error kind onto its HTTP status. Unknown kinds are
// server errors.
func StatusFor(kind commons.ErrorKind) int {
	if status, ok := statusByKind[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

type responder struct {
	exposeDetails bool
}

// result writes a service outcome. On success it uses status; on failure the
// error kind decides.
func result[T any](rs responder, w http.ResponseWriter, r *http.Request, start time.Time, status int, response commons.Response[T], err error) {
	if err != nil {
		status = StatusFor(commons.KindOf(err))
		logError(r, err, logger.Fields{
			"message": response.Message,
			"code":    string(response.Code),
		})
		if status == http.StatusInternalServerError && rs.exposeDetails {
			response.Errors = append(response.Errors, err.Error())
		}
	}

	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

// reject writes a failed envelope that never reached a service.
func reject[T any](w http.ResponseWriter, r *http.Request, start time.Time, err error) {
	response, _ := commons.Failure[T](err)
	status := StatusFor(commons.KindOf(err))

	writeJSON(w, status, response)
	logResponse(r, status, response, start)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, target any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return invalidBody("request body is required", err)
		}
		return invalidBody(err.Error(), err)
	}
	return nil
}

func invalidBody(detail string, cause error) error {
	return &commons.Error{Kind: commons.KindValidation, Message: "invalid request body", Detail: detail, Err: cause}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func NotFound(w http.ResponseWriter, r *http.Request) {
	response := commons.ErrorResponse[struct{}]("resource not found")
	response.Code = commons.KindNotFound
	writeJSON(w, http.StatusNotFound, response)
}

func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusMethodNotAllowed, commons.ErrorResponse[struct{}]("method not allowed"))
}
