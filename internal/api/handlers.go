package api

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/fieldguide/internal/apperr"
	"github.com/sells-group/fieldguide/internal/history"
	"github.com/sells-group/fieldguide/internal/identify"
	"github.com/sells-group/fieldguide/internal/model"
	"github.com/sells-group/fieldguide/internal/region"
	"github.com/sells-group/fieldguide/pkg/vision"
)

const maxTaxaPerPage = 50

type identifyJSON struct {
	ImageURL    string              `json:"image_url"`
	ImageBase64 string              `json:"image_base64"`
	MediaType   string              `json:"media_type"`
	Location    *model.LocationData `json:"location"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleIdentify(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	req, err := s.parseIdentify(r)
	if err != nil {
		writeError(w, err)
		return
	}

	res, err := s.identifier.Identify(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) parseIdentify(r *http.Request) (identify.Request, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data":
		return s.parseMultipart(r)
	case "application/json", "":
		return parseJSONBody(r.Body)
	default:
		return identify.Request{}, apperr.Newf(apperr.KindInvalidInput, "unsupported content type %q", mediaType)
	}
}

func (s *Server) parseMultipart(r *http.Request) (identify.Request, error) {
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		return identify.Request{}, badBody(err)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return identify.Request{}, apperr.New(apperr.KindInvalidInput, "multipart field \"image\" is required")
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		return identify.Request{}, badBody(err)
	}
	if len(data) == 0 {
		return identify.Request{}, apperr.New(apperr.KindInvalidInput, "image is empty")
	}

	loc, err := parseLocation(r.FormValue("lat"), r.FormValue("lng"), r.FormValue("place"), r.FormValue("source"))
	if err != nil {
		return identify.Request{}, err
	}
	return identify.Request{
		Image:    vision.Image{Data: data, MediaType: header.Header.Get("Content-Type")},
		Location: loc,
	}, nil
}

func parseJSONBody(body io.Reader) (identify.Request, error) {
	var in identifyJSON
	if err := json.NewDecoder(body).Decode(&in); err != nil {
		return identify.Request{}, badBody(err)
	}

	var img vision.Image
	switch {
	case in.ImageURL != "" && in.ImageBase64 != "":
		return identify.Request{}, apperr.New(apperr.KindInvalidInput, "send either image_url or image_base64, not both")
	case in.ImageURL != "":
		img.URL = in.ImageURL
	case in.ImageBase64 != "":
		data, mediaType, err := decodeBase64Image(in.ImageBase64)
		if err != nil {
			return identify.Request{}, err
		}
		img.Data = data
		img.MediaType = in.MediaType
		if img.MediaType == "" {
			img.MediaType = mediaType
		}
	default:
		return identify.Request{}, apperr.New(apperr.KindInvalidInput, "image_url or image_base64 is required")
	}
	return identify.Request{Image: img, Location: in.Location}, nil
}

// decodeBase64Image accepts raw base64 or a data URL.
func decodeBase64Image(s string) ([]byte, string, error) {
	mediaType := ""
	if rest, ok := strings.CutPrefix(s, "data:"); ok {
		meta, payload, found := strings.Cut(rest, ",")
		if !found {
			return nil, "", apperr.New(apperr.KindInvalidInput, "malformed data URL")
		}
		mediaType = strings.TrimSuffix(meta, ";base64")
		s = payload
	}
	data, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, "", apperr.Wrap(apperr.KindInvalidInput, err, "image_base64 is not valid base64")
	}
	return data, mediaType, nil
}

func parseLocation(latS, lngS, place, source string) (*model.LocationData, error) {
	if latS == "" && lngS == "" {
		return nil, nil
	}
	if latS == "" || lngS == "" {
		return nil, apperr.New(apperr.KindInvalidInput, "lat and lng must be sent together")
	}
	lat, err := strconv.ParseFloat(latS, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "lat is not a number")
	}
	lng, err := strconv.ParseFloat(lngS, 64)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInvalidInput, err, "lng is not a number")
	}
	return &model.LocationData{
		Coords: model.Coords{Lat: lat, Lng: lng},
		Name:   place,
		Source: model.LocationSource(source),
	}, nil
}

func (s *Server) handleTaxa(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, apperr.New(apperr.KindInvalidInput, "query parameter q is required"))
		return
	}
	perPage, err := intParam(r, "per_page", 10)
	if err != nil {
		writeError(w, err)
		return
	}
	perPage = min(max(perPage, 1), maxTaxaPerPage)

	found, err := s.taxa.SearchTaxaByText(r.Context(), q, perPage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": found, "total": len(found)})
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	loc, err := parseLocation(r.URL.Query().Get("lat"), r.URL.Query().Get("lng"), "", "")
	if err != nil {
		writeError(w, err)
		return
	}
	if loc == nil {
		writeError(w, apperr.New(apperr.KindInvalidInput, "lat and lng are required"))
		return
	}
	if err := loc.Validate(); err != nil {
		writeError(w, apperr.Wrap(apperr.KindInvalidInput, err, err.Error()))
		return
	}
	writeJSON(w, http.StatusOK, region.Lookup(loc.Coords.Lat, loc.Coords.Lng))
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := intParam(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	filter := history.Filter{Limit: limit}
	if c := r.URL.Query().Get("category"); c != "" {
		filter.Category = model.ParseCategory(c)
	}

	recs, err := s.history.List(r.Context(), filter)
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, err, "history unavailable"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"records": recs})
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context()); err != nil {
		writeError(w, apperr.Wrap(apperr.KindInternal, err, "history unavailable"))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInvalidInput, err, name+" must be an integer")
	}
	return n, nil
}

func badBody(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperr.Newf(apperr.KindInvalidInput, "request body exceeds %d bytes", tooLarge.Limit)
	}
	return apperr.Wrap(apperr.KindInvalidInput, err, "malformed request body")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Warn("api: encode response", zap.Error(err))
	}
}

// writeError renders err as {"error": {...}} with its HTTP status class.
// Unclassified errors are reported without their internal message.
func writeError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)

	body := model.ErrorResult{ErrorKind: string(kind), Message: "internal error"}
	if ae, ok := apperr.As(err); ok {
		body.Message = ae.Message
		if ae.RetryAfter > 0 {
			body.RetryAfterSecs = int(ae.RetryAfter.Seconds())
		}
	}
	body.RetryGuidance = apperr.RetryGuidance(err)

	if status >= http.StatusInternalServerError {
		zap.L().Error("api: request failed", zap.String("kind", string(kind)), zap.Error(err))
	}
	if body.RetryAfterSecs > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(body.RetryAfterSecs))
	}
	writeJSON(w, status, map[string]any{"error": body})
}
