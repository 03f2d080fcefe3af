package web

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/heatlab/sensorhub/internal/core"
	"github.com/heatlab/sensorhub/internal/decode"
	"github.com/heatlab/sensorhub/internal/logging"
)

// Multipart form memory threshold; larger parts spill to temp files.
const multipartMemory = 10 << 20

// handleUpload ingests one measurement file.
//
// POST /api/upload/{sensorType}
// Form fields: file (required), competition_id (required),
// sensor_id (required for heart rate), overwrite (optional bool).
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	st, ok := core.ParseSensorType(chi.URLParam(r, "sensorType"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown sensor type"})
		return
	}

	form, err := parseUploadForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	report, err := s.service.IngestFile(r.Context(), st,
		form.competitionID, form.fileName, form.data, form.sensorID, form.overwrite)
	if err != nil {
		// A decode failure still produced a failed-batch report; return
		// it so the client sees the recorded attempt.
		if report != nil {
			writeJSON(w, http.StatusUnprocessableEntity, report)
			return
		}
		writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, report)
}

// handlePreview decodes a file without persisting anything.
//
// POST /api/preview/{sensorType}
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	st, ok := core.ParseSensorType(chi.URLParam(r, "sensorType"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown sensor type"})
		return
	}

	form, err := parsePreviewForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	res, err := s.service.Decode(st, form.data, form.sensorID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	const sampleSize = 10
	sample := res.Readings
	if len(sample) > sampleSize {
		sample = sample[:sampleSize]
	}
	errs := make([]string, len(res.RowErrors))
	for i, re := range res.RowErrors {
		errs[i] = re.Error()
	}

	writeJSON(w, http.StatusOK, previewResponse{
		Readings: len(res.Readings),
		Failed:   len(res.RowErrors),
		Sample:   toReadingDTOs(sample),
		Errors:   errs,
	})
}

// handleUploadMappings ingests a subject-assignment roster.
//
// POST /api/mappings/{competitionID}
func (s *Server) handleUploadMappings(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")

	form, err := parsePreviewForm(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	report, err := s.service.IngestMappingFile(r.Context(), competitionID, form.data, form.overwrite)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleUploadRaceRecords merges one or more result files.
//
// POST /api/race-records/{competitionID}
// Form field "files" may repeat.
func (s *Server) handleUploadRaceRecords(w http.ResponseWriter, r *http.Request) {
	competitionID := chi.URLParam(r, "competitionID")

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid multipart form"})
		return
	}
	overwrite := r.FormValue("overwrite") == "true"

	var files []core.UploadFile
	if r.MultipartForm != nil {
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable file part"})
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody{Error: "unreadable file part"})
				return
			}
			files = append(files, core.UploadFile{Name: fh.Filename, Data: data})
		}
	}
	if len(files) == 0 {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "no files provided"})
		return
	}

	report, err := s.service.IngestRaceRecordFiles(r.Context(), competitionID, files, overwrite)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// handleQueryMeasurements returns a subject's reconciled readings.
//
// GET /api/measurements?subject_id=...&competition_id=...
func (s *Server) handleQueryMeasurements(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subject_id")
	if subjectID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "subject_id is required"})
		return
	}
	competitionID := r.URL.Query().Get("competition_id")

	rows, err := s.service.QueryMeasurements(r.Context(), subjectID, competitionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]measurementDTO, len(rows))
	for i, m := range rows {
		out[i] = measurementDTO{
			ID:            m.ID,
			SensorType:    string(m.SensorType),
			RawSensorID:   m.RawSensorID,
			CompetitionID: m.CompetitionID,
			Timestamp:     m.Timestamp,
			Fields:        m.Fields,
			SubjectID:     m.MappedSubjectID,
			BatchID:       m.BatchID,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

// handleListBatches returns a competition's upload history.
//
// GET /api/batches?competition_id=...
func (s *Server) handleListBatches(w http.ResponseWriter, r *http.Request) {
	competitionID := r.URL.Query().Get("competition_id")
	if competitionID == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "competition_id is required"})
		return
	}

	batches, err := s.service.ListBatches(r.Context(), competitionID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTOs(batches))
}

// handleGetBatch returns one batch by id.
func (s *Server) handleGetBatch(w http.ResponseWriter, r *http.Request) {
	b, err := s.service.GetBatch(r.Context(), chi.URLParam(r, "batchID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toBatchDTO(*b))
}

// handleDeleteBatch removes a batch and its measurements.
func (s *Server) handleDeleteBatch(w http.ResponseWriter, r *http.Request) {
	batchID := chi.URLParam(r, "batchID")
	if err := s.service.DeleteBatch(r.Context(), batchID); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("batch deleted", "batch_id", batchID)
	w.WriteHeader(http.StatusNoContent)
}

// handleDeleteScope clears a competition's measurement data, optionally
// restricted to one sensor type.
//
// DELETE /api/scope/{competitionID}?sensor_type=...
func (s *Server) handleDeleteScope(w http.ResponseWriter, r *http.Request) {
	scope := core.Scope{CompetitionID: chi.URLParam(r, "competitionID")}
	if raw := r.URL.Query().Get("sensor_type"); raw != "" {
		st, ok := core.ParseSensorType(raw)
		if !ok {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "unknown sensor type"})
			return
		}
		scope.SensorType = st
	}

	if err := s.service.DeleteScope(r.Context(), scope); err != nil {
		writeServiceError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("scope deleted", "scope", scope.String())
	w.WriteHeader(http.StatusNoContent)
}

// handleListRaceRecords returns a competition's participant records with
// derived timing.
func (s *Server) handleListRaceRecords(w http.ResponseWriter, r *http.Request) {
	records, err := s.service.ListRaceRecords(r.Context(), chi.URLParam(r, "competitionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]raceRecordDTO, len(records))
	for i := range records {
		out[i] = toRaceRecordDTO(&records[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// handleStatusCounts reports mapping-status totals for a competition.
func (s *Server) handleStatusCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := s.service.MeasurementStatusCounts(r.Context(), chi.URLParam(r, "competitionID"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// uploadForm holds the parsed fields of a measurement upload request.
type uploadForm struct {
	competitionID string
	sensorID      string
	overwrite     bool
	fileName      string
	data          []byte
}

func parseUploadForm(r *http.Request) (*uploadForm, error) {
	form, err := parsePreviewForm(r)
	if err != nil {
		return nil, err
	}
	if form.competitionID == "" {
		return nil, errors.New("competition_id is required")
	}
	return form, nil
}

// parsePreviewForm parses the shared multipart fields. Preview does not
// need a competition, so that check lives in parseUploadForm.
func parsePreviewForm(r *http.Request) (*uploadForm, error) {
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		return nil, errors.New("invalid multipart form")
	}

	f, fh, err := r.FormFile("file")
	if err != nil {
		return nil, errors.New("file is required")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, errors.New("unreadable file")
	}

	return &uploadForm{
		competitionID: r.FormValue("competition_id"),
		sensorID:      r.FormValue("sensor_id"),
		overwrite:     r.FormValue("overwrite") == "true",
		fileName:      fh.Filename,
		data:          data,
	}, nil
}

type previewResponse struct {
	Readings int          `json:"readings"`
	Failed   int          `json:"failed"`
	Sample   []readingDTO `json:"sample,omitempty"`
	Errors   []string     `json:"errors,omitempty"`
}

type readingDTO struct {
	RawSensorID string             `json:"rawSensorId"`
	Label       string             `json:"label,omitempty"`
	Timestamp   time.Time          `json:"timestamp"`
	Fields      map[string]float64 `json:"fields"`
}

type measurementDTO struct {
	ID            int64              `json:"id"`
	SensorType    string             `json:"sensorType"`
	RawSensorID   string             `json:"rawSensorId"`
	CompetitionID string             `json:"competitionId"`
	Timestamp     time.Time          `json:"timestamp"`
	Fields        map[string]float64 `json:"fields"`
	SubjectID     *string            `json:"subjectId,omitempty"`
	BatchID       string             `json:"batchId"`
}

type batchDTO struct {
	ID            string     `json:"id"`
	SensorType    string     `json:"sensorType"`
	CompetitionID string     `json:"competitionId"`
	FileName      string     `json:"fileName"`
	FileSize      int64      `json:"fileSize"`
	TotalRecords  int        `json:"totalRecords"`
	SuccessCount  int        `json:"successCount"`
	FailedCount   int        `json:"failedCount"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
	FinalizedAt   *time.Time `json:"finalizedAt,omitempty"`
}

type raceRecordDTO struct {
	CompetitionID string            `json:"competitionId"`
	RaceNumber    string            `json:"raceNumber"`
	SubjectID     *string           `json:"subjectId,omitempty"`
	SwimStart     *time.Time        `json:"swimStart,omitempty"`
	SwimFinish    *time.Time        `json:"swimFinish,omitempty"`
	BikeStart     *time.Time        `json:"bikeStart,omitempty"`
	BikeFinish    *time.Time        `json:"bikeFinish,omitempty"`
	RunStart      *time.Time        `json:"runStart,omitempty"`
	RunFinish     *time.Time        `json:"runFinish,omitempty"`
	Laps          []core.Lap        `json:"laps,omitempty"`
	SourceFile    string            `json:"sourceFile"`
	Phases        core.PhaseSummary `json:"phases"`
}

func toReadingDTOs(readings []decode.Reading) []readingDTO {
	out := make([]readingDTO, len(readings))
	for i, r := range readings {
		out[i] = readingDTO{
			RawSensorID: r.RawSensorID,
			Label:       r.Label,
			Timestamp:   r.Timestamp,
			Fields:      r.Fields,
		}
	}
	return out
}

func toBatchDTO(b core.UploadBatch) batchDTO {
	return batchDTO{
		ID:            b.ID,
		SensorType:    string(b.SensorType),
		CompetitionID: b.CompetitionID,
		FileName:      b.FileName,
		FileSize:      b.FileSize,
		TotalRecords:  b.TotalRecords,
		SuccessCount:  b.SuccessCount,
		FailedCount:   b.FailedCount,
		Status:        string(b.Status),
		CreatedAt:     b.CreatedAt,
		FinalizedAt:   b.FinalizedAt,
	}
}

func toBatchDTOs(batches []core.UploadBatch) []batchDTO {
	out := make([]batchDTO, len(batches))
	for i, b := range batches {
		out[i] = toBatchDTO(b)
	}
	return out
}

func toRaceRecordDTO(r *core.RaceRecord) raceRecordDTO {
	return raceRecordDTO{
		CompetitionID: r.CompetitionID,
		RaceNumber:    r.RaceNumber,
		SubjectID:     r.SubjectID,
		SwimStart:     r.SwimStart,
		SwimFinish:    r.SwimFinish,
		BikeStart:     r.BikeStart,
		BikeFinish:    r.BikeFinish,
		RunStart:      r.RunStart,
		RunFinish:     r.RunFinish,
		Laps:          r.Laps,
		SourceFile:    r.SourceFile,
		Phases:        r.Phases(),
	}
}

