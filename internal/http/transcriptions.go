package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/gostt/internal/audio"
	"github.com/obiente/translate/gostt/internal/transcribe"
)

// parts above this size spill to temp files during multipart parsing
const multipartMemory = 32 << 20

type transcriptionResponse struct {
	Text string `json:"text"`
}

type transcriptionHandler struct {
	svc            *transcribe.Service
	maxUploadBytes int64
}

// ServeHTTP handles POST /v1/audio/transcriptions. The model, language and
// response_format fields are accepted for client compatibility only; they do
// not reach the pipeline.
func (h *transcriptionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		if r.ContentLength > h.maxUploadBytes {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", h.maxUploadBytes))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, fmt.Sprintf("upload exceeds %d bytes", mbe.Limit))
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "invalid multipart form: "+err.Error())
		return
	}
	defer r.MultipartForm.RemoveAll()

	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "file is required")
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Audio processing error: "+err.Error())
		return
	}

	sampleRate, _ := strconv.Atoi(r.FormValue("sample_rate"))
	up := transcribe.Upload{
		Data: data,
		Hint: audio.Hint{MIMEType: hdr.Header.Get("Content-Type"), SampleRate: sampleRate},
	}

	log.Debug().
		Str("request_id", middleware.GetReqID(r.Context())).
		Str("filename", hdr.Filename).
		Int("bytes", len(data)).
		Str("model", formValue(r, "model", "whisper-1")).
		Str("language", r.FormValue("language")).
		Str("response_format", formValue(r, "response_format", "json")).
		Msg("transcription request")

	res, err := h.svc.Transcribe(r.Context(), up)
	if err != nil {
		status, detail := transcribe.ErrorDetail(err)
		if status >= http.StatusInternalServerError {
			log.Error().Err(err).Str("request_id", middleware.GetReqID(r.Context())).Msg("transcription failed")
		}
		writeError(w, status, detail)
		return
	}
	writeJSON(w, http.StatusOK, transcriptionResponse{Text: res.Text})
}

func formValue(r *http.Request, key, def string) string {
	if v := r.FormValue(key); v != "" {
		return v
	}
	return def
}
