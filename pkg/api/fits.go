package api

import (
	"net/http"
	"strings"

	"github.com/matzehuels/tryon/pkg/errors"
	"github.com/matzehuels/tryon/pkg/fit"
	"github.com/matzehuels/tryon/pkg/fitstore"
	"github.com/matzehuels/tryon/pkg/fitstore/remote"
)

func (s *Server) handleFetchFits(w http.ResponseWriter, r *http.Request) {
	poseID := r.URL.Query().Get("poseId")
	if poseID == "" {
		poseID = s.cfg.FitPose
	}
	var ids []string
	for _, id := range strings.Split(r.URL.Query().Get("itemIds"), ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "itemIds is required"))
		return
	}

	recs, err := fitstore.Fetch(r.Context(), s.cfg.Store, UserFromContext(r.Context()), poseID, ids)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if recs == nil {
		recs = []fit.Record{}
	}
	s.writeJSON(w, http.StatusOK, remote.FetchResponse{Fits: recs})
}

func (s *Server) handleSaveFit(w http.ResponseWriter, r *http.Request) {
	var req remote.SaveRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	switch {
	case req.ItemID == "":
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "itemId is required"))
		return
	case req.PoseID == "":
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "poseId is required"))
		return
	case req.Transform == nil:
		s.writeError(w, r, errors.New(errors.ErrCodeInvalidInput, "transform is required"))
		return
	}

	t := *req.Transform
	t.Mesh = req.Mesh
	rec, err := fitstore.ForUser(s.cfg.Store, UserFromContext(r.Context())).SaveFit(r.Context(), req.ItemID, req.PoseID, t)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, rec)
}
