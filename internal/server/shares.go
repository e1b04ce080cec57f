package server

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type shareRequest struct {
	Permission string `json:"permission"`
}

type shareResponse struct {
	*types.Share
	URL string `json:"url"`
}

type sharedItemResponse struct {
	Item       *types.Item `json:"item"`
	Permission string      `json:"permission"`
}

func (s *Server) shareResponse(share *types.Share) shareResponse {
	return shareResponse{Share: share, URL: share.URL(s.config.BaseURL)}
}

func (s *Server) handleCreateShare(w http.ResponseWriter, r *http.Request) {
	var req shareRequest
	// An empty body means a read-only share
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	share, err := s.Service.CreateShare(r.Context(), chi.URLParam(r, "id"), req.Permission)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, s.shareResponse(share))
}

func (s *Server) handleFetchShare(w http.ResponseWriter, r *http.Request) {
	share, err := s.Service.FetchShare(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, s.shareResponse(share))
}

func (s *Server) handleDeleteShare(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.DeleteShare(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respondMessage(w, "share removed")
}

func (s *Server) handleOpenShare(w http.ResponseWriter, r *http.Request) {
	share, item, err := s.Service.OpenShare(r.Context(), chi.URLParam(r, "token"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, sharedItemResponse{Item: item, Permission: share.Permission})
}

func (s *Server) handleEditShared(w http.ResponseWriter, r *http.Request) {
	var patch storage.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Empty() {
		respondError(w, http.StatusBadRequest, "no changes")
		return
	}

	item, err := s.Service.EditShared(r.Context(), chi.URLParam(r, "token"), patch)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, sharedItemResponse{Item: item, Permission: types.PermissionReadWrite})
}
