package server

import (
	"errors"
	"net/http"

	"github.com/brainbox-app/brainbox/users"
	"github.com/rs/zerolog/log"
)

type createUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"omitempty,min=6,max=128"`
	Name     string `json:"name" validate:"omitempty,max=100"`
}

type updateUserRequest struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=128"`
	Name     *string `json:"name" validate:"omitempty,max=100"`
}

func (s *Server) GetCurrentUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		user, err := s.users.Get(r.Context(), caller.UserID)
		if err != nil {
			writeUserError(w, "GetCurrentUser", err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

// CreateUserHandler registers the caller. The record id is always the token subject.
func (s *Server) CreateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromContext(r.Context())
		var req createUserRequest
		if err := s.decodeBody(w, r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		user, err := s.users.Create(r.Context(), users.CreateParams{
			ID:       caller.UserID,
			Email:    req.Email,
			Name:     req.Name,
			Password: req.Password,
		})
		if err != nil {
			writeUserError(w, "CreateUser", err)
			return
		}
		writeJSON(w, http.StatusCreated, user)
	}
}

func (s *Server) UpdateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ownID(w, r)
		if !ok {
			return
		}
		var req updateUserRequest
		if err := s.decodeBody(w, r, &req); err != nil {
			writeJSONError(w, "invalid_request", err.Error(), http.StatusBadRequest)
			return
		}

		user, err := s.users.Update(r.Context(), id, users.UpdateParams{
			Email:    req.Email,
			Name:     req.Name,
			Password: req.Password,
		})
		if err != nil {
			writeUserError(w, "UpdateUser", err)
			return
		}
		writeJSON(w, http.StatusOK, user)
	}
}

func (s *Server) DeleteUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := ownID(w, r)
		if !ok {
			return
		}
		if err := s.users.Delete(r.Context(), id); err != nil {
			writeUserError(w, "DeleteUser", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ownID returns the {id} path value when it names the caller, and writes 403 otherwise.
func ownID(w http.ResponseWriter, r *http.Request) (string, bool) {
	caller, _ := CallerFromContext(r.Context())
	id := r.PathValue("id")
	if id == "me" {
		id = caller.UserID
	}
	if id != caller.UserID {
		writeJSONError(w, "forbidden", "Cannot modify another user", http.StatusForbidden)
		return "", false
	}
	return id, true
}

func writeUserError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		writeJSONError(w, "not_found", "User not found", http.StatusNotFound)
	case errors.Is(err, users.ErrUserExists):
		writeJSONError(w, "conflict", "User already exists", http.StatusConflict)
	case errors.Is(err, users.ErrEmailTaken):
		writeJSONError(w, "conflict", "Email already registered", http.StatusConflict)
	default:
		log.Error().Err(err).Msgf("[Server.%s] users service", op)
		writeJSONError(w, "server_error", "Internal server error", http.StatusInternalServerError)
	}
}
