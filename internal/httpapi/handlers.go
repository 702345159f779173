package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/septivank/meter-reading-service/internal/logging"
	"github.com/septivank/meter-reading-service/internal/service"
	"github.com/septivank/meter-reading-service/internal/validator"
)

const (
	msgUploaded  = "read successfully completed"
	msgConfirmed = "data confirmed successfully"
)

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadRequestJSON
	if !s.decodeBody(w, r, &req, uploadLinks("")) {
		observeOutcome("upload", CodeInvalidData)
		return
	}
	image := req.Image
	if image == "" {
		image = req.ImageData
	}

	res, err := s.svc.Upload(r.Context(), validator.UploadData{
		Image:           image,
		CustomerCode:    req.CustomerCode,
		MeasureDatetime: req.MeasureDatetime,
		MeasureType:     req.MeasureType,
	})
	if err != nil {
		s.writeServiceError(w, r, "upload", err, uploadLinks(""))
		return
	}
	observeOutcome("upload", "OK")

	reading := res.Reading
	_ = writeJSON(w, http.StatusOK, uploadResponseJSON{
		StatusCode:    http.StatusOK,
		Message:       msgUploaded,
		MeasureValue:  reading.MeasureValue,
		MeasureUUID:   reading.ID.String(),
		ImageURL:      reading.ImageURL,
		Suspicious:    res.Suspicious,
		AnomalyReason: res.AnomalyReason,
		Links:         uploadLinks(reading.ImageURL),
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req confirmRequestJSON
	if !s.decodeBody(w, r, &req, confirmLinks("")) {
		observeOutcome("confirm", CodeInvalidData)
		return
	}

	reading, err := s.svc.Confirm(r.Context(), validator.ConfirmData{
		MeasureUUID:    req.MeasureUUID,
		ConfirmedValue: req.ConfirmedValue,
	})
	if err != nil {
		s.writeServiceError(w, r, "confirm", err, confirmLinks(""))
		return
	}
	observeOutcome("confirm", "OK")

	_ = writeJSON(w, http.StatusOK, confirmResponseJSON{
		Success:      true,
		StatusCode:   http.StatusOK,
		Message:      msgConfirmed,
		MeasureValue: reading.MeasureValue,
		MeasureUUID:  reading.ID.String(),
		Links:        confirmLinks(reading.ImageURL),
	})
}

// handleList serves GET /api/{customerCode}/list?measure_type=
func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	customerCode := r.PathValue("customerCode")
	links := listLinks(customerCode)

	readings, err := s.svc.List(r.Context(), customerCode, r.URL.Query().Get("measure_type"))
	if err != nil {
		s.writeServiceError(w, r, "list", err, links)
		return
	}
	observeOutcome("list", "OK")

	out := make([]measureJSON, 0, len(readings))
	for _, rd := range readings {
		out = append(out, toMeasureJSON(rd))
	}
	_ = writeJSON(w, http.StatusOK, listResponseJSON{
		StatusCode:   http.StatusOK,
		CustomerCode: customerCode,
		Measures:     out,
		Links:        links,
	})
}

// decodeBody reads a size-limited JSON body. It writes the 400 itself and
// reports false when the body is unusable.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any, links linksJSON) bool {
	if s.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeAPIError(w, http.StatusBadRequest, CodeInvalidData, "request body too large", links)
			return false
		}
		writeAPIError(w, http.StatusBadRequest, CodeInvalidData, "invalid JSON body", links)
		return false
	}
	return true
}

func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, operation string, err error, links linksJSON) {
	status, code, message := errorStatus(err)
	observeOutcome(operation, code)

	if status == http.StatusInternalServerError {
		logging.WithCaller(s.logger, callerIP(r)).Error("unexpected error",
			zap.String("operation", operation),
			zap.String("request_id", w.Header().Get("X-Request-Id")),
			zap.Error(err),
		)
	}
	writeAPIError(w, status, code, message, links)
}

// errorStatus maps service errors onto HTTP status, error code and message
func errorStatus(err error) (int, string, string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		return http.StatusBadRequest, CodeInvalidData, err.Error()
	case errors.Is(err, service.ErrDuplicateReading):
		return http.StatusConflict, CodeDoubleReport, service.ErrDuplicateReading.Error()
	case errors.Is(err, service.ErrReadingNotFound):
		return http.StatusNotFound, CodeMeasureNotFound, service.ErrReadingNotFound.Error()
	case errors.Is(err, service.ErrAlreadyConfirmed):
		return http.StatusConflict, CodeConfirmationDuplicate, service.ErrAlreadyConfirmed.Error()
	case errors.Is(err, service.ErrNoReadings):
		return http.StatusNotFound, CodeMeasuresNotFound, service.ErrNoReadings.Error()
	default:
		return http.StatusInternalServerError, CodeInternal, unexpectedErrorMessage
	}
}
