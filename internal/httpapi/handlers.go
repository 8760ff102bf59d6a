package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/scrumline/poker-backend/internal/store"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Message string `json:"message"`
	}{Message: msg})
}

// JoinRoom resolves (or creates) the user by display name and either joins the
// given room or creates a fresh one owned by the user.
func JoinRoom(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			DisplayName string `json:"displayName"`
			RoomID      string `json:"roomId"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.DisplayName == "" {
			writeMessage(w, http.StatusBadRequest, "Display name is required")
			return
		}

		user, err := st.ResolveOrCreateUser(r.Context(), req.DisplayName)
		if err != nil {
			log.Error("resolve user", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if req.RoomID != "" {
			team, err := st.FindTeam(r.Context(), req.RoomID)
			if errors.Is(err, store.ErrNotFound) {
				writeMessage(w, http.StatusNotFound, "Team not found")
				return
			}
			if err != nil {
				log.Error("find team", zap.Error(err))
				writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			if err := st.AddMember(r.Context(), team.ID, user.ID); err != nil && !errors.Is(err, store.ErrAlreadyMember) {
				log.Error("add member", zap.Error(err))
				writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
				return
			}
			writeJSON(w, http.StatusOK, struct {
				TeamID string `json:"teamId"`
			}{TeamID: team.ID})
			return
		}

		team, err := st.CreateTeam(r.Context(), user.Username+"'s Room", user.ID)
		if err != nil {
			log.Error("create team", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, struct {
			TeamID string `json:"teamId"`
		}{TeamID: team.ID})
	}
}

func CreateTeam(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name      string `json:"name"`
			OwnerName string `json:"ownerName"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.OwnerName == "" {
			writeMessage(w, http.StatusBadRequest, "Team name and owner name are required")
			return
		}

		user, err := st.ResolveOrCreateUser(r.Context(), req.OwnerName)
		if err != nil {
			log.Error("resolve user", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		team, err := st.CreateTeam(r.Context(), req.Name, user.ID)
		if err != nil {
			log.Error("create team", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, http.StatusCreated, struct {
			Message string     `json:"message"`
			Team    store.Team `json:"team"`
		}{Message: "Team created successfully", Team: team})
	}
}

// ListTeams returns the teams a user belongs to. Unknown users simply have no
// teams yet.
func ListTeams(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		username := r.URL.Query().Get("username")
		if username == "" {
			writeMessage(w, http.StatusBadRequest, "Username is required")
			return
		}

		user, err := st.FindUserByUsername(r.Context(), username)
		if errors.Is(err, store.ErrNotFound) {
			writeJSON(w, http.StatusOK, []store.Team{})
			return
		}
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		teams, err := st.TeamsByUser(r.Context(), user.ID)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		writeJSON(w, http.StatusOK, teams)
	}
}

func JoinTeam(st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "id")

		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			writeMessage(w, http.StatusBadRequest, "Username is required")
			return
		}

		user, err := st.ResolveOrCreateUser(r.Context(), req.Username)
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if _, err := st.FindTeam(r.Context(), teamID); errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Team not found")
			return
		} else if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		switch err := st.AddMember(r.Context(), teamID, user.ID); {
		case errors.Is(err, store.ErrAlreadyMember):
			writeMessage(w, http.StatusBadRequest, "Already a member or cannot join")
		case err != nil:
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		default:
			writeMessage(w, http.StatusOK, "Joined team successfully")
		}
	}
}

// RemoveMember is owner-only; the owner can never be removed.
func RemoveMember(st store.Store, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		teamID := chi.URLParam(r, "id")
		memberID := chi.URLParam(r, "memberID")

		var req struct {
			Username string `json:"username"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Username == "" {
			writeMessage(w, http.StatusBadRequest, "Username is required for authorization")
			return
		}

		user, err := st.FindUserByUsername(r.Context(), req.Username)
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		team, err := st.FindTeam(r.Context(), teamID)
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Team not found")
			return
		}
		if err != nil {
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		if team.OwnerID != user.ID {
			writeMessage(w, http.StatusForbidden, "Only team owner can remove members")
			return
		}
		if team.OwnerID == memberID {
			writeMessage(w, http.StatusBadRequest, "Cannot remove owner from the team")
			return
		}

		switch err := st.RemoveMember(r.Context(), teamID, memberID); {
		case errors.Is(err, store.ErrNotMember):
			writeMessage(w, http.StatusNotFound, "Member not found in team")
		case err != nil:
			log.Error("remove member", zap.Error(err))
			writeMessage(w, http.StatusInternalServerError, "Internal Server Error")
		default:
			writeMessage(w, http.StatusOK, "Member removed successfully")
		}
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
