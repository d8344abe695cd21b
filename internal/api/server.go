package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"exam-predictor/internal/models"
	"exam-predictor/internal/services"
	"exam-predictor/internal/store"
)

const maxMultipartMemory = 8 << 20 // 8 MB

type Server struct {
	mux         *http.ServeMux
	predictions *services.PredictionService
	generator   services.QuestionGenerator
	documents   *services.DocumentService // optional; nil disables archiving
	logger      zerolog.Logger
}

func NewServer(
	predictions *services.PredictionService,
	generator services.QuestionGenerator,
	documents *services.DocumentService,
) *Server {
	s := &Server{
		mux:         http.NewServeMux(),
		predictions: predictions,
		generator:   generator,
		documents:   documents,
		logger:      log.With().Str("component", "api").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/predictions", s.handleListPredictions)
	s.mux.HandleFunc("/api/predictions/", s.handlePredictionActions)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type generateRequest struct {
	Content  string                    `json:"content"`
	Settings models.PredictionSettings `json:"settings"`
}

// handleGenerate exposes the raw generation call: extracted text plus
// settings in, a best-effort question array out. Failures come back as
// non-2xx {error, errorDetails}.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var payload generateRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid payload", "")
		return
	}

	questions, err := s.generator.Generate(r.Context(), payload.Content, payload.Settings)
	if err != nil {
		writeError(w, statusForError(err), services.UserMessage(err), err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleListPredictions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	predictions, err := s.predictions.History(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load history", err.Error())
		return
	}
	if predictions == nil {
		predictions = []models.Prediction{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"predictions": predictions})
}

func (s *Server) handlePredictionActions(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/predictions/")
	path = strings.Trim(path, "/")

	switch path {
	case "predict":
		s.handlePredict(w, r, false)
	case "regenerate":
		s.handlePredict(w, r, true)
	case "save":
		s.handleSaveCurrent(w, r)
	case "current":
		s.handleCurrent(w, r)
	case "":
		http.NotFound(w, r)
	default:
		s.handleDelete(w, r, path)
	}
}

// handlePredict runs one prediction from a multipart upload. regenerate
// additionally saves the current in-flight prediction first.
func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request, regenerate bool) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if err := r.ParseMultipartForm(maxMultipartMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form", "")
		return
	}
	if form := r.MultipartForm; form != nil {
		defer form.RemoveAll()
	}

	settings, err := settingsFromForm(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), "")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "no file uploaded", "")
		return
	}
	defer file.Close()

	if !services.AllowedExtension(header.Filename) {
		writeError(w, http.StatusBadRequest, services.ErrUnsupportedFileType.Error(), "")
		return
	}

	// The upload is read once here; the extractor and the archive both work
	// from this copy.
	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, services.UserMessage(&services.FileReadError{Err: err}), err.Error())
		return
	}

	if s.documents != nil {
		if _, err := s.documents.Archive(r.Context(), header.Filename, data); err != nil {
			s.logger.Warn().Err(err).Str("file", header.Filename).Msg("failed to archive upload")
		}
	}

	predictFn := s.predictions.Predict
	if regenerate {
		predictFn = s.predictions.Regenerate
	}
	prediction, err := predictFn(r.Context(), header.Filename, bytes.NewReader(data), settings)
	if err != nil {
		writeError(w, statusForError(err), services.UserMessage(err), err.Error())
		return
	}

	resp := map[string]any{"prediction": prediction}
	if !services.ReliableExtraction(header.Filename) {
		resp["warning"] = "Only .txt files extract reliably; results for this file type may be degraded."
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSaveCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	prediction, err := s.predictions.SaveCurrent(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicatePrediction):
			writeError(w, http.StatusConflict, "This prediction is already saved.", "")
		case errors.Is(err, services.ErrNoCurrentPrediction):
			writeError(w, http.StatusBadRequest, "Nothing to save: generate a prediction first.", "")
		default:
			writeError(w, http.StatusInternalServerError, "failed to save prediction", err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"prediction": prediction,
		"message":    "Your prediction has been saved to Past Predictions.",
	})
}

func (s *Server) handleCurrent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"prediction": s.predictions.Current()})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, http.MethodDelete)
		return
	}

	if err := s.predictions.Delete(r.Context(), id); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete prediction", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "The prediction has been removed from your history.",
	})
}

func settingsFromForm(r *http.Request) (models.PredictionSettings, error) {
	questionType := models.QuestionType(r.FormValue("questionType"))
	if !questionType.Valid() {
		return models.PredictionSettings{}, fmt.Errorf("questionType must be %q or %q", models.QuestionTheory, models.QuestionObjective)
	}

	count, err := strconv.Atoi(r.FormValue("numberOfQuestions"))
	if err != nil {
		return models.PredictionSettings{}, errors.New("numberOfQuestions must be an integer")
	}

	return models.PredictionSettings{
		QuestionType:      questionType,
		NumberOfQuestions: count,
	}.Clamped(), nil
}

// statusForError maps the error taxonomy onto HTTP statuses: caller mistakes
// are 4xx, provider failures 502, everything else 500.
func statusForError(err error) int {
	var fileErr *services.FileReadError
	if errors.As(err, &fileErr) {
		return http.StatusBadRequest
	}
	if errors.Is(err, services.ErrEmptyContent) {
		return http.StatusBadRequest
	}
	var remoteErr *services.RemoteServiceError
	if errors.As(err, &remoteErr) || errors.Is(err, services.ErrEmptyCompletion) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message, details string) {
	body := map[string]string{"error": message}
	if details != "" {
		body["errorDetails"] = details
	}
	writeJSON(w, status, body)
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	writeError(w, http.StatusMethodNotAllowed, "method not allowed", "")
}
