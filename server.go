package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/swaggo/swag"

	"go-passport-recognizer/docs"
	"go-passport-recognizer/events"
	"go-passport-recognizer/llm"
	"go-passport-recognizer/logging"
	"go-passport-recognizer/models"
	"go-passport-recognizer/mrz"
	"go-passport-recognizer/nfc"
	"go-passport-recognizer/ocrv2"
	"go-passport-recognizer/storage"
)

const ErrorInternal = "Internal Server Error"
const ERR_MARSHAL = "failed to marshal response message"
const ERR_EMPTY_IMAGE = "Empty image file"
const ERR_MRZ_NOT_FOUND = "MRZ not found in recognition result"
const ERR_MISSING_IMAGE = "Field required: image"

const maxUploadMemory = 32 << 20
const sseKeepAlive = 15 * time.Second

type ServerConfig struct {
	Host           string `json:"host"`
	Port           int    `json:"port"`
	UseTls         bool   `json:"use_tls,omitempty"`
	TlsPrivKeyPath string `json:"tls_priv_key_path,omitempty"`
	TlsCertPath    string `json:"tls_cert_path,omitempty"`
}

type ServerState struct {
	store        storage.Store
	files        *storage.FileStore
	bus          events.Bus
	visionClient llm.VisionClient
	nfcService   *nfc.Service
	promptLang   string
	staticDir    string
}

type SpaHandler struct {
	staticPath string
	indexPath  string
}

type Server struct {
	server *http.Server
	config ServerConfig
	cancel context.CancelFunc
}

func (s *Server) ListenAndServe() error {
	if s.config.UseTls {
		slog.Info("Starting server with TLS", "host", s.config.Host, "port", s.config.Port, "cert", s.config.TlsCertPath, "key", s.config.TlsPrivKeyPath)
		return s.server.ListenAndServeTLS(s.config.TlsCertPath, s.config.TlsPrivKeyPath)
	} else {
		slog.Info("Starting server without TLS", "host", s.config.Host, "port", s.config.Port)
		return s.server.ListenAndServe()
	}
}

func (s *Server) Stop() error {
	slog.Info("Shutting down server")
	// ends open event streams, Shutdown would wait for them otherwise
	s.cancel()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.server.Shutdown(ctx)
	if err != nil {
		slog.Error("Error during server shutdown", "error", err)
	} else {
		slog.Info("Server shut down successfully")
	}
	return err
}

// ServeHTTP serves the file at the request path from the static dir, falling
// back to the index file for unknown paths.
// https://github.com/gorilla/mux?tab=readme-ov-file#serving-single-page-applications
func (h SpaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	slog.Debug("Static handler serving request", "path", r.URL.Path)
	// Join internally call path.Clean to prevent directory traversal
	path := filepath.Join(h.staticPath, r.URL.Path)
	fi, err := os.Stat(path)
	if os.IsNotExist(err) || (err == nil && fi.IsDir()) {
		http.ServeFile(w, r, filepath.Join(h.staticPath, h.indexPath))
		return
	}

	if err != nil {
		slog.Error("Error stating file", "path", path, "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	http.FileServer(http.Dir(h.staticPath)).ServeHTTP(w, r)
}

func handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := io.WriteString(w, "<html><body>Backend is running</body></html>"); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

func NewServer(state *ServerState, config ServerConfig) (*Server, error) {
	slog.Info("Creating new server", "host", config.Host, "port", config.Port, "tls", config.UseTls)
	router := mux.NewRouter()

	router.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		slog.Debug("Health check request received")
		err := json.NewEncoder(w).Encode(models.HealthResponse{Ok: true})
		if err != nil {
			slog.Error("failed to write body to http response", "error", err)
		}
	}).Methods(http.MethodGet)

	router.HandleFunc("/swagger.json", handleSwagger).Methods(http.MethodGet)

	// mobile clients use the bare paths, the web UI and swagger the /api ones
	registerRoutes(router, state)
	registerRoutes(router.PathPrefix("/api").Subrouter(), state)

	slog.Debug("Registered all API routes")

	if state.staticDir != "" {
		spa := SpaHandler{staticPath: state.staticDir, indexPath: "index.html"}
		router.PathPrefix("/").Handler(spa)
	} else {
		router.HandleFunc("/", handleIndex).Methods(http.MethodGet)
	}

	var handler http.Handler = router
	if state.store != nil {
		handler = requestLogMiddleware(state.store)(handler)
	}
	handler = requestIDMiddleware(handler)

	baseCtx, cancel := context.WithCancel(context.Background())
	addr := fmt.Sprintf("%v:%v", config.Host, config.Port)
	srv := &http.Server{
		Handler: handler,
		Addr:    addr,
		// Good practice: enforce timeouts for servers you create!
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}

	slog.Info("Server created successfully", "address", addr)
	return &Server{
		server: srv,
		config: config,
		cancel: cancel,
	}, nil
}

func registerRoutes(router *mux.Router, state *ServerState) {
	recognize := func(w http.ResponseWriter, r *http.Request) {
		handleRecognize(state, w, r)
	}
	recognizeV2 := func(w http.ResponseWriter, r *http.Request) {
		handleRecognizeV2(state, w, r)
	}
	storeNFC := func(w http.ResponseWriter, r *http.Request) {
		handleNFC(state, w, r)
	}

	router.HandleFunc("/recognize", recognize)
	router.HandleFunc("/passport/recognize", recognize)
	router.HandleFunc("/v2/passport/recognize", recognizeV2)
	router.HandleFunc("/nfc", storeNFC)
	router.HandleFunc("/passport/nfc", storeNFC)
	router.HandleFunc("/nfc/{scan_id}/face.jpg", func(w http.ResponseWriter, r *http.Request) {
		handleFace(state, w, r)
	}).Methods(http.MethodGet)
	router.HandleFunc("/events", func(w http.ResponseWriter, r *http.Request) {
		handleEvents(state, w, r)
	}).Methods(http.MethodGet)
	router.HandleFunc("/errors", func(w http.ResponseWriter, r *http.Request) {
		handleAppError(state, w, r)
	})
}

// clearWriteDeadline lifts the server write timeout for responses that wait
// on the model or stream events.
func clearWriteDeadline(w http.ResponseWriter) *http.ResponseController {
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		slog.Debug("Could not clear write deadline", "error", err)
	}
	return rc
}

// readImage returns the multipart "image" upload. ok is false when the
// request carried no such field, in which case a response was already written.
func readImage(w http.ResponseWriter, r *http.Request) (image []byte, ok bool) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, ERR_MISSING_IMAGE, "invalid multipart request", err)
		return nil, false
	}
	file, _, err := r.FormFile("image")
	if err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, ERR_MISSING_IMAGE, "missing image upload", err)
		return nil, false
	}
	defer file.Close()

	image, err = io.ReadAll(file)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "failed to read image", "failed to read image upload", err)
		return nil, false
	}
	return image, true
}

// handleRecognize
//
//	@Summary	Read the BAC keys from a passport photo
//	@Tags		passport
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		image	formData	file	true	"Photo of the passport data page"
//	@Success	200		{object}	mrz.Keys
//	@Router		/api/passport/recognize [post]
func handleRecognize(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	log := logging.WithPlane(logging.FromContext(r.Context()), "recognize")
	clearWriteDeadline(w)
	image, ok := readImage(w, r)
	if !ok {
		return
	}
	if len(image) == 0 {
		writeRecognizeError(w, ERR_EMPTY_IMAGE)
		return
	}

	log.Info("Received passport image", "size", len(image))
	llmRequestID, text, err := state.visionClient.ChatWithImage(r.Context(), image, llm.BuildPrompt(state.promptLang))
	if err != nil {
		log.Warn("Recognition failed", "error", err)
		writeRecognizeError(w, err.Error())
		return
	}

	keys, found := mrz.Extract(text)
	if !found {
		log.Info("No MRZ keys in model answer", "llm_request_id", llmRequestID)
		writeRecognizeError(w, ERR_MRZ_NOT_FOUND)
		return
	}

	if err := writeJSON(w, http.StatusOK, keys); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}
	log.Info("Passport recognized", "llm_request_id", llmRequestID)
}

func writeRecognizeError(w http.ResponseWriter, message string) {
	if err := writeJSON(w, http.StatusOK, models.RecognizeError{Error: message}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// handleRecognizeV2
//
//	@Summary	Read every data page field with confidences and zones
//	@Tags		passport
//	@Accept		multipart/form-data
//	@Produce	json
//	@Param		image	formData	file	true	"Photo of the passport data page"
//	@Success	200		{object}	ocrv2.Response
//	@Router		/api/v2/passport/recognize [post]
func handleRecognizeV2(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	log := logging.WithPlane(logging.FromContext(r.Context()), "recognize_v2")
	clearWriteDeadline(w)
	image, ok := readImage(w, r)
	if !ok {
		return
	}

	var response ocrv2.Response
	if len(image) == 0 {
		response = ocrv2.BuildErrorResponse(uuid.NewString(), ocrv2.CodeEmptyImage, ERR_EMPTY_IMAGE)
	} else {
		llmRequestID, text, err := state.visionClient.ChatWithImage(r.Context(), image, llm.BuildPromptV2(state.promptLang))
		if err != nil {
			log.Warn("Recognition failed", "error", err)
			code := ocrv2.CodeInternal
			if errors.Is(err, llm.ErrUnavailable) {
				code = ocrv2.CodeLLMUnavailable
			}
			response = ocrv2.BuildErrorResponse(llmRequestID, code, err.Error())
		} else {
			response = ocrv2.BuildResponse(llmRequestID, text)
		}
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
		return
	}
	log.Info("Passport v2 recognition answered", "request_id", response.RequestID, "status", response.Status, "model_confidence", response.ModelConfidence)
}

// handleNFC
//
//	@Summary	Store an NFC chip scan
//	@Tags		nfc
//	@Accept		json
//	@Produce	json
//	@Param		scan	body		models.NFCScanRequest	true	"Chip scan"
//	@Success	200		{object}	models.NFCScanResponse
//	@Failure	422
//	@Router		/api/passport/nfc [post]
func handleNFC(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	var request models.NFCScanRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, "Invalid JSON body", "failed to decode NFC scan", err)
		return
	}

	response, err := state.nfcService.Store(r.Context(), request)
	if err != nil {
		var payloadErr *nfc.PayloadError
		if errors.As(err, &payloadErr) {
			respondWithErr(w, http.StatusUnprocessableEntity, payloadErr.Detail, "invalid NFC scan", err)
			return
		}
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store NFC scan", err)
		return
	}

	if err := writeJSON(w, http.StatusOK, response); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

// handleFace
//
//	@Summary	Face image of a stored scan
//	@Tags		nfc
//	@Produce	jpeg
//	@Param		scan_id	path	string	true	"Scan id"
//	@Router		/api/nfc/{scan_id}/face.jpg [get]
func handleFace(state *ServerState, w http.ResponseWriter, r *http.Request) {
	scanID := mux.Vars(r)["scan_id"]
	if _, err := uuid.Parse(scanID); err != nil {
		respondWithErr(w, http.StatusNotFound, "Face image not found", "invalid scan id", err)
		return
	}

	face, err := state.files.ReadFace(scanID)
	if errors.Is(err, storage.ErrNotFound) {
		respondWithErr(w, http.StatusNotFound, "Face image not found", "face image not found", err)
		return
	}
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to read face image", err)
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", fmt.Sprint(len(face)))
	if _, err := w.Write(face); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// handleEvents streams bus events as server-sent events until the client goes away.
//
//	@Summary	Server-sent events for stored scans
//	@Tags		events
//	@Produce	text/event-stream
//	@Router		/api/events [get]
func handleEvents(state *ServerState, w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.WithPlane(logging.FromContext(ctx), "events")
	rc := clearWriteDeadline(w)

	stream, cancel, err := state.bus.Subscribe(ctx)
	if err != nil {
		respondWithErr(w, http.StatusServiceUnavailable, "event stream unavailable", "failed to subscribe to events", err)
		return
	}
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		log.Error("Streaming not supported", "error", err)
		return
	}
	log.Info("Event stream opened")

	ticker := time.NewTicker(sseKeepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Event stream closed")
			return
		case <-ticker.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case event, ok := <-stream:
			if !ok {
				return
			}
			if err := writeSSE(w, event); err != nil {
				log.Warn("Failed to write event", "error", err)
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeSSE(w io.Writer, event events.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	eventType := event.Type
	if eventType == "" {
		eventType = "message"
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data)
	return err
}

// handleAppError
//
//	@Summary	Report a client application error
//	@Tags		system
//	@Accept		json
//	@Produce	json
//	@Param		report	body		models.AppErrorRequest	true	"Error report"
//	@Success	200		{object}	models.AppErrorResponse
//	@Failure	422
//	@Router		/api/errors [post]
func handleAppError(state *ServerState, w http.ResponseWriter, r *http.Request) {
	defer closeRequestBody(r)

	if !requirePOST(w, r) {
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		respondWithErr(w, http.StatusBadRequest, "failed to read body", "failed to read app error body", err)
		return
	}
	request, err := models.DecodeAppErrorRequest(body)
	if err != nil {
		respondWithErr(w, http.StatusUnprocessableEntity, err.Error(), "invalid app error log", err)
		return
	}

	entry := storage.AppErrorLog{
		TsUTC:        request.TsUTC,
		Platform:     request.Platform,
		AppVersion:   request.AppVersion,
		ErrorMessage: request.ErrorMessage,
		Stacktrace:   request.Stacktrace,
		UserAgent:    request.UserAgent,
		DeviceInfo:   request.DeviceInfo,
		RequestID:    request.RequestID,
	}
	if entry.TsUTC == "" {
		entry.TsUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}
	if request.Context != nil {
		contextJSON, err := json.Marshal(request.Context)
		if err != nil {
			respondWithErr(w, http.StatusUnprocessableEntity, "Invalid context_json", "failed to encode app error context", err)
			return
		}
		entry.ContextJSON = string(contextJSON)
	}

	id, err := state.store.SaveAppErrorLog(r.Context(), entry)
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to store app error log", err)
		return
	}
	logging.FromContext(r.Context()).Info("Stored app error log", "id", id, "platform", entry.Platform)

	if err := writeJSON(w, http.StatusOK, models.AppErrorResponse{Status: models.StatusStored, ID: id}); err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, ERR_MARSHAL, err)
	}
}

func handleSwagger(w http.ResponseWriter, r *http.Request) {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		respondWithErr(w, http.StatusInternalServerError, ErrorInternal, "failed to render swagger document", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	if _, err := io.WriteString(w, doc); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// respondWithErr writes {"detail": responseBody} with the given status.
func respondWithErr(w http.ResponseWriter, code int, responseBody string, logMsg string, e error) {
	slog.Error(logMsg, "error", e, "status_code", code, "response_body", responseBody)
	payload, err := json.Marshal(errorResponse{Detail: responseBody})
	if err != nil {
		payload = []byte(`{"detail":"Internal Server Error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(payload); err != nil {
		slog.Error("failed to write body to http response", "error", err)
	}
}

// helpers ------------

func closeRequestBody(r *http.Request) {
	if err := r.Body.Close(); err != nil {
		slog.Error("failed to close request body", "error", err)
	}
}

func requirePOST(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		slog.Debug("Non-POST request rejected", "method", r.Method, "path", r.URL.Path)
		respondWithErr(w, http.StatusMethodNotAllowed, "Method Not Allowed", "invalid method", nil)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) error {
	slog.Debug("Writing JSON response", "status_code", status)
	payload, err := json.Marshal(v)
	if err != nil {
		slog.Error("Failed to marshal JSON payload", "error", err)
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err = w.Write(payload)
	if err != nil {
		slog.Error("failed to write body to http response", "error", err)
	} else {
		slog.Debug("JSON response written successfully", "status_code", status, "payload_size", len(payload))
	}
	return nil
}
