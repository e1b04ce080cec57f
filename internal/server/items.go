package server

import (
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
)

const defaultPageSize = 50

type createItemRequest struct {
	Content     string   `json:"content"`
	Type        string   `json:"type"`
	Filename    string   `json:"filename"`
	DisplayName string   `json:"display_name"`
	Tags        []string `json:"tags"`
}

type tagsRequest struct {
	Tags []string `json:"tags"`
}

func listFilter(r *http.Request) storage.ListFilter {
	q := r.URL.Query()
	filter := storage.ListFilter{
		Type:   q.Get("type"),
		Tags:   q["tag"],
		Limit:  queryInt(r, "limit", defaultPageSize),
		Offset: queryInt(r, "offset", 0),
	}
	if pinned, ok := queryBool(r, "pinned"); ok {
		filter.Pinned = &pinned
	}
	if trashed, ok := queryBool(r, "trashed"); ok {
		filter.Trashed = trashed
	}
	return filter
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.Service.List(r.Context(), listFilter(r))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, items)
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	var req createItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	item, err := s.Service.Copy(r.Context(), types.Item{
		Content:     req.Content,
		Type:        req.Type,
		Filename:    req.Filename,
		DisplayName: req.DisplayName,
		Tags:        req.Tags,
	})
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondCreated(w, item)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.Service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, item)
}

func (s *Server) handleEditItem(w http.ResponseWriter, r *http.Request) {
	var patch storage.ItemPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if patch.Empty() {
		respondError(w, http.StatusBadRequest, "no changes")
		return
	}

	item, err := s.Service.Edit(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, item)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respondMessage(w, "deleted")
}

func (s *Server) handlePin(w http.ResponseWriter, r *http.Request) {
	item, err := s.Service.Pin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, item)
}

func (s *Server) handleUnpin(w http.ResponseWriter, r *http.Request) {
	item, err := s.Service.Unpin(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, item)
}

func (s *Server) handleTrash(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Trash(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respondMessage(w, "trashed")
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := s.Service.Restore(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respondMessage(w, "restored")
}

func (s *Server) handleEmptyTrash(w http.ResponseWriter, r *http.Request) {
	n, err := s.Service.EmptyTrash(r.Context())
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, map[string]int{"deleted": n})
}

func (s *Server) handleAddTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := s.Service.AddTags(r.Context(), chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, item)
}

func (s *Server) handleRemoveTags(w http.ResponseWriter, r *http.Request) {
	var req tagsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	item, err := s.Service.RemoveTags(r.Context(), chi.URLParam(r, "id"), req.Tags)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, item)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := storage.SearchOptions{
		Query:     q.Get("q"),
		Type:      q.Get("type"),
		Tags:      q["tag"],
		Limit:     queryInt(r, "limit", defaultPageSize),
		Offset:    queryInt(r, "offset", 0),
		SortBy:    q.Get("sort"),
		SortOrder: q.Get("order"),
	}
	if trashed, ok := queryBool(r, "trashed"); ok {
		opts.IncludeTrashed = trashed
	}
	for key, dst := range map[string]*time.Time{"from": &opts.From, "to": &opts.To} {
		if v := q.Get(key); v != "" {
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid "+key+" time, want RFC 3339")
				return
			}
			*dst = t
		}
	}

	results, err := s.Service.Search(r.Context(), opts)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, results)
}

func (s *Server) handleGetClips(w http.ResponseWriter, r *http.Request) {
	// Get limit and offset from query params
	limit := queryInt(r, "limit", 10)
	if limit == 0 {
		limit = 10
	}
	clips, err := s.Service.GetClips(r.Context(), limit, queryInt(r, "offset", 0))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, clips)
}

func (s *Server) handleGetClip(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index")
		return
	}

	clip, err := s.Service.GetClipByIndex(r.Context(), index)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, clip)
}

func (s *Server) handlePasteClip(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid index")
		return
	}

	if err := s.Service.PasteByIndex(r.Context(), index); err != nil {
		s.respondErr(w, err)
		return
	}
	respondMessage(w, "pasted")
}
