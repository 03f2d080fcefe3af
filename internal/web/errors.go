package web

import (
	"errors"
	"net/http"

	"github.com/heatlab/sensorhub/internal/core"
	"github.com/heatlab/sensorhub/internal/decode"
	"github.com/heatlab/sensorhub/internal/logging"
)

// writeServiceError maps the service error taxonomy to HTTP statuses.
// Unclassified errors return a generic 500; the detail stays in the log.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *core.NotFoundError
		refErr   *core.ReferentialError
		conflict *core.ConflictError
		schema   *decode.SchemaError
		decodeE  *decode.DecodeError
	)

	switch {
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: err.Error()})
	case errors.As(err, &refErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: err.Error()})
	case errors.As(err, &schema):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody{Error: err.Error()})
	case errors.As(err, &decodeE):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	default:
		logging.FromContext(r.Context()).Error("internal error",
			"path", r.URL.Path, "error", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
	}
}
