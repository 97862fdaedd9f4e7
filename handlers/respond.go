package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"p9e.in/rigops/pkg/hierarchy"
	"p9e.in/rigops/pkg/hse"
	"p9e.in/rigops/pkg/reporting"
	"p9e.in/rigops/pkg/store"
	"p9e.in/rigops/pkg/workflow"
	"p9e.in/rigops/utils"
)

// maxUploadSize caps multipart bodies (photos, KMZ boundaries).
const maxUploadSize = 50 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// errInvalidQuery marks malformed query parameters.
var errInvalidQuery = errors.New("invalid query")

// decode reads a JSON body into v.
func decode(r *http.Request, v any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	utils.WriteJSON(w, status, v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	utils.WriteError(w, status, msg)
}

// writeServiceError maps a domain error to its status code. Anything
// unrecognised is logged and reported as 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := classify(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("request failed")
	}
	writeError(w, status, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, store.ErrDuplicate):
		return http.StatusConflict, "This entry already exists"
	case errors.Is(err, workflow.ErrInvalidID):
		return http.StatusBadRequest, "Invalid well ID"
	case errors.Is(err, workflow.ErrReasonRequired):
		return http.StatusBadRequest, "Rejection reason is required"
	case errors.Is(err, workflow.ErrInvalidTransition):
		return http.StatusConflict, err.Error()
	case errors.Is(err, reporting.ErrAlreadySubmitted):
		return http.StatusConflict, "Report already submitted for this time slot"
	case errors.Is(err, hierarchy.ErrCountryRequired):
		return http.StatusBadRequest, "Country is required"
	case errors.Is(err, errInvalidQuery),
		errors.Is(err, workflow.ErrInvalidInput),
		errors.Is(err, reporting.ErrInvalidReport),
		errors.Is(err, hierarchy.ErrInvalidNode),
		errors.Is(err, hierarchy.ErrInvalidPoint),
		errors.Is(err, hse.ErrInvalidInput),
		errors.Is(err, utils.ErrInvalidGeofence):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, err.Error()
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(mux.Vars(r)["id"])
}

// readUpload returns the bytes and metadata of the multipart "file" field.
func readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, "", "", fmt.Errorf("file too large or invalid form: %w", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", "", fmt.Errorf("failed to read file: %w", err)
	}
	return data, header.Filename, header.Header.Get("Content-Type"), nil
}
