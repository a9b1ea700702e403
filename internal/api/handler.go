package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"audio-proxy/internal/cache"
	"audio-proxy/internal/config"
	"audio-proxy/internal/dto"
	"audio-proxy/internal/events"
	"audio-proxy/internal/lookup"
	"audio-proxy/internal/models"
	"audio-proxy/pkg/ffmpeg"
)

// SongResolver maps a free-text query to a cached or freshly resolved entry.
type SongResolver interface {
	Resolve(ctx context.Context, query string) (*models.ResolvedQuery, bool, error)
}

// AudioTranscoder produces a complete MP3 payload from a source URL.
type AudioTranscoder interface {
	Transcode(ctx context.Context, sourceURL string) ([]byte, error)
}

// ImageRenderer normalizes a remote thumbnail into JPEG bytes.
type ImageRenderer interface {
	Render(ctx context.Context, url string) ([]byte, error)
}

// EventPublisher emits search events; implementations must be best-effort.
type EventPublisher interface {
	Publish(event events.SearchEvent)
}

type Handler struct {
	config     *config.Config
	resolver   SongResolver
	store      *cache.SessionStore
	transcoder AudioTranscoder
	images     ImageRenderer
	events     EventPublisher
}

// Constructor for Handler
func NewHandler(cfg *config.Config, resolver SongResolver, store *cache.SessionStore, transcoder AudioTranscoder, images ImageRenderer, publisher EventPublisher) *Handler {
	return &Handler{
		config:     cfg,
		resolver:   resolver,
		store:      store,
		transcoder: transcoder,
		images:     images,
		events:     publisher,
	}
}

// Search resolves a song query, opens a session for it and returns the
// session's proxy URLs.
func (handler *Handler) Search(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	query := r.URL.Query().Get("query")
	if query == "" {
		handler.respondError(w, http.StatusBadRequest, "missing_query", "query parameter is required")
		return
	}

	resolved, hit, err := handler.resolver.Resolve(r.Context(), query)
	if err != nil {
		if errors.Is(err, lookup.ErrNoResult) {
			handler.respondError(w, http.StatusNotFound, "song_not_found", "Cannot find song")
			return
		}
		log.Error("lookup failed", "query", query, "error", err)
		handler.respondError(w, http.StatusBadGateway, "lookup_failed", "Song lookup service failed")
		return
	}

	id := handler.store.Open(resolved)

	if handler.events != nil {
		handler.events.Publish(events.SearchEvent{
			SessionID: id,
			Query:     query,
			Title:     resolved.Entry.Title,
			Artist:    resolved.Entry.Artist,
			CacheHit:  hit,
			Timestamp: time.Now().UTC(),
		})
	}

	response := dto.SearchResponse{
		ID:       id,
		Title:    resolved.Entry.Title,
		Artist:   resolved.Entry.Artist,
		Duration: resolved.Entry.Duration,
		AudioURL: "/audio?id=" + id,
	}
	if len(resolved.Cues) > 0 {
		response.LyricURL = "/lyrics?id=" + id
	}
	if resolved.Entry.ThumbnailURL != "" {
		response.ImageURL = "/image?id=" + id
	}

	handler.respondJSON(w, http.StatusOK, response)
}

// Audio serves a session's audio as a transcoded MP3 payload, honoring byte
// ranges. The full payload is buffered so Content-Length is always exact.
func (handler *Handler) Audio(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if !handler.store.Touch(id) {
		handler.respondError(w, http.StatusNotFound, "id_not_found", "Unknown session id")
		return
	}

	src, ok := handler.store.AudioSource(id)
	if !ok {
		handler.respondError(w, http.StatusNotFound, "id_not_found", "Unknown session id")
		return
	}

	log.Info("transcoding audio", "id", id)
	data, err := handler.transcoder.Transcode(r.Context(), src)
	if err != nil {
		switch {
		case errors.Is(err, ffmpeg.ErrTimeout):
			log.Error("transcode timed out", "id", id)
			handler.respondError(w, http.StatusGatewayTimeout, "conversion_timeout", "Audio conversion timed out")
		case errors.Is(err, ffmpeg.ErrConversion):
			log.Error("transcode failed", "id", id, "error", err)
			handler.respondError(w, http.StatusBadGateway, "conversion_failed", "Audio conversion failed")
		default:
			log.Error("audio proxy failed", "id", id, "error", err)
			handler.respondError(w, http.StatusInternalServerError, "proxy_error", "Audio proxy failed")
		}
		return
	}

	total := int64(len(data))
	w.Header().Set("Content-Type", "audio/mpeg")
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "no-store")

	start, end, ok, err := parseByteRange(r.Header.Get("Range"), total)
	if err != nil {
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", total))
		handler.respondError(w, http.StatusRequestedRangeNotSatisfiable, "invalid_range", err.Error())
		return
	}
	if ok {
		log.Info("serving range", "id", id, "start", start, "end", end, "total", total)
		w.Header().Set("Content-Length", strconv.FormatInt(end-start+1, 10))
		w.Header().Set("Content-Range", fmt.Sprintf("bytes %d-%d/%d", start, end, total))
		w.WriteHeader(http.StatusPartialContent)
		w.Write(data[start : end+1])
		return
	}

	w.Header().Set("Content-Length", strconv.FormatInt(total, 10))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Lyrics streams a session's caption cues as plain text, one line per cue.
func (handler *Handler) Lyrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if !handler.store.Touch(id) {
		handler.respondError(w, http.StatusNotFound, "no_lyric", "Unknown session id")
		return
	}

	cues, ok := handler.store.Captions(id)
	if !ok {
		handler.respondError(w, http.StatusNotFound, "no_lyric", "Unknown session id")
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	flusher, _ := w.(http.Flusher)
	for _, cue := range cues {
		fmt.Fprintln(w, cue.Text)
		if flusher != nil {
			flusher.Flush()
		}
	}
}

// Image serves a session's thumbnail as a normalized square JPEG, fetched
// and transformed on every access.
func (handler *Handler) Image(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		handler.respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
		return
	}

	id := r.URL.Query().Get("id")
	if !handler.store.Touch(id) {
		handler.respondError(w, http.StatusNotFound, "id_not_found", "Unknown session id")
		return
	}

	src, ok := handler.store.ImageSource(id)
	if !ok || src == "" {
		handler.respondError(w, http.StatusNotFound, "no_image", "Session has no thumbnail")
		return
	}

	data, err := handler.images.Render(r.Context(), src)
	if err != nil {
		log.Error("image render failed", "id", id, "error", err)
		handler.respondError(w, http.StatusInternalServerError, "image_failed", "Thumbnail processing failed")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Home returns the liveness/version descriptor.
func (handler *Handler) Home(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		handler.respondError(w, http.StatusNotFound, "not_found", "Unknown route")
		return
	}

	response := dto.HomeResponse{
		Status:    "ok",
		Version:   handler.config.Version,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Endpoints: map[string]string{
			"/search": "Search and get song info",
			"/audio":  "Stream transcoded audio",
			"/lyrics": "Get lyric lines",
			"/image":  "Get normalized thumbnail",
		},
	}
	handler.respondJSON(w, http.StatusOK, response)
}

// Helper methods for responses
func (handler *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (handler *Handler) respondError(w http.ResponseWriter, status int, code, message string) {
	handler.respondJSON(w, status, dto.ErrorResponse{
		Error:   code,
		Message: message,
		Code:    status,
	})
}
