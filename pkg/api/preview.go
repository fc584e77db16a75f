package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/pipeline"
	"github.com/matzehuels/tryon/pkg/pose"
)

// PoseList is the body of GET /api/poses.
type PoseList struct {
	Poses     []string `json:"poses"`
	Canonical string   `json:"canonical"`
}

// LayoutResponse is the body of POST /api/tryon/layout.
type LayoutResponse struct {
	Layout     pipeline.Layout `json:"layout"`
	LayoutHash string          `json:"layoutHash"`
	StoredFits int             `json:"storedFits"`
	Cached     bool            `json:"cached"`
}

func (s *Server) handleListPoses(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, PoseList{Poses: s.cfg.Poses.IDs(), Canonical: pose.CanonicalID})
}

func (s *Server) handleGetPose(w http.ResponseWriter, r *http.Request) {
	a, err := s.cfg.Poses.Get(chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, a)
}

// previewOptions decodes pipeline options and binds them to the caller's
// fits.
func (s *Server) previewOptions(r *http.Request) (pipeline.Options, error) {
	var opts pipeline.Options
	if err := decodeBody(r, &opts); err != nil {
		return opts, err
	}
	opts.Fits = fitstore.ForUser(s.cfg.Store, UserFromContext(r.Context()))
	opts.FitPose = s.cfg.FitPose
	opts.Logger = s.logger
	return opts, nil
}

func (s *Server) handleLayout(w http.ResponseWriter, r *http.Request) {
	opts, err := s.previewOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{pipeline.FormatJSON}

	res, err := s.cfg.Runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LayoutResponse{
		Layout:     res.Layout,
		LayoutHash: res.LayoutHash,
		StoredFits: res.Stats.StoredFits,
		Cached:     res.CacheInfo.LayoutHit,
	})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	opts, err := s.previewOptions(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	format := r.URL.Query().Get("format")
	if format == "" {
		format = pipeline.FormatSVG
	}
	if err := pipeline.ValidateFormat(format); err != nil {
		s.writeError(w, r, err)
		return
	}
	opts.Formats = []string{format}

	res, err := s.cfg.Runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	data := res.Artifacts[format]
	if data == nil {
		s.writeError(w, r, errors.New(errors.ErrCodeInternal, "no %s artifact", format))
		return
	}
	w.Header().Set("Content-Type", pipeline.ContentType(format))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Header().Set("X-Layout-Hash", res.LayoutHash)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
