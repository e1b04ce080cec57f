package server

import (
	"clipboard-sync/internal/auth"
	"clipboard-sync/internal/storage"
	"clipboard-sync/pkg/types"
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const notifyTimeout = 15 * time.Second

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	token, err := s.Auth.Login(req.Username, req.Password)
	if err != nil {
		s.Logger.Info("Admin login rejected", zap.String("remote", r.RemoteAddr))
		s.respondErr(w, err)
		return
	}

	expires := time.Now().Add(s.Auth.TTL())
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	respondSuccess(w, loginResponse{Token: token, ExpiresAt: expires})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.Auth.Logout(auth.TokenFrom(r))
	http.SetCookie(w, &http.Cookie{
		Name:   auth.SessionCookie,
		Value:  "",
		Path:   "/",
		MaxAge: -1,
	})
	respondMessage(w, "logged out")
}

func (s *Server) handleListPosts(w http.ResponseWriter, r *http.Request) {
	filter := storage.PostFilter{
		CreatorID: r.URL.Query().Get("creator"),
		Limit:     queryInt(r, "limit", defaultPageSize),
		Offset:    queryInt(r, "offset", 0),
	}
	if public, ok := queryBool(r, "public"); ok {
		filter.PublicOnly = public
	}

	posts, err := s.Posts.ListPosts(r.Context(), filter)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, posts)
}

func (s *Server) handleCreatePost(w http.ResponseWriter, r *http.Request) {
	var post types.Post
	if err := decodeJSON(w, r, &post); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	// ids are assigned by the store
	post.ID = ""
	created, err := s.Posts.CreatePost(r.Context(), post)
	if err != nil {
		s.respondErr(w, err)
		return
	}

	s.announcePost(r.Context(), created)
	respondCreated(w, created)
}

// announcePost runs the post-created trigger in the background so a slow
// sender never holds up the response. Delivery failures are logged by the
// trigger and do not fail the write.
func (s *Server) announcePost(ctx context.Context, post *types.Post) {
	if s.Trigger == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		defer cancel()
		_ = s.Trigger.PostCreated(ctx, post)
	}()
}

func (s *Server) handleGetPost(w http.ResponseWriter, r *http.Request) {
	post, err := s.Posts.GetPost(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, post)
}

func (s *Server) handleUpdatePost(w http.ResponseWriter, r *http.Request) {
	var patch storage.PostPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	post, err := s.Posts.UpdatePost(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		s.respondErr(w, err)
		return
	}
	respondSuccess(w, post)
}

func (s *Server) handleDeletePost(w http.ResponseWriter, r *http.Request) {
	if err := s.Posts.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		s.respondErr(w, err)
		return
	}
	respondMessage(w, "deleted")
}
