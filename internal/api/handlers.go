package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dummycorp/dummybot/internal/auth"
	"github.com/dummycorp/dummybot/internal/models"
)

const linkConfirmationTemplate = "✅ *Account Linked!*\n\n" +
	"Your Slack account has been successfully linked to DummyCorp user: *%s*\n\n" +
	"You can now use the bot:\n" +
	"• Mention me in any channel: `@Dummy your question`\n" +
	"• Or send me a direct message right here!"

// authCallbackHandler completes the account-linking flow. The login form
// posts the state token together with credentials; any non-empty
// credentials are accepted in demo mode. On success the link is persisted,
// the user gets a DM confirmation, and the success page is rendered.
func (s *Server) authCallbackHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		writeErrorPage(w, http.StatusBadRequest, "Authentication Failed", "Could not read the submitted form. Please try again.")
		return
	}

	state := r.FormValue("state")
	username := strings.TrimSpace(r.FormValue("username"))
	password := r.FormValue("password")
	if state == "" || username == "" || password == "" {
		writeErrorPage(w, http.StatusBadRequest, "Authentication Failed", "Missing required fields. Please go back and try again.")
		return
	}

	linkState, err := auth.DecodeLinkState(state)
	if err != nil {
		slog.Warn("Server.authCallbackHandler: invalid state token", "error", err)
		writeErrorPage(w, http.StatusBadRequest, "Authentication Failed", "Invalid or expired authentication state. Please request a new login link from the bot.")
		return
	}

	identity := models.LinkedIdentity{
		SlackUserID:     linkState.SlackUserID,
		DummyCorpUserID: username,
		AccessToken:     auth.NewAccessToken(username),
		LinkedAt:        time.Now().UTC(),
	}
	if err := s.st.LinkIdentity(identity); err != nil {
		slog.Error("Server.authCallbackHandler: failed to persist identity link", "slack_user_id", linkState.SlackUserID, "error", err)
		writeErrorPage(w, http.StatusInternalServerError, "Authentication Failed", "Could not save your account link. Please try again.")
		return
	}
	slog.Info("Server.authCallbackHandler: account linked", "slack_user_id", linkState.SlackUserID, "dummycorp_user_id", username)

	// Confirmation DM. The link already succeeded, so a delivery failure
	// only gets logged.
	confirmation := fmt.Sprintf(linkConfirmationTemplate, username)
	if _, err := s.messenger.PostMessage(r.Context(), linkState.SlackUserID, confirmation, ""); err != nil {
		slog.Error("Server.authCallbackHandler: failed to send confirmation DM", "slack_user_id", linkState.SlackUserID, "error", err)
	}

	writeHTML(w, http.StatusOK, fmt.Sprintf(successPageTemplate, "DummyCorp User: "+username))
}

// addUserRequest is the body of a manual admin link request.
type addUserRequest struct {
	SlackUserID string `json:"slackUserId"`
	Username    string `json:"username"`
}

// adminUsersHandler manages linked identities: GET lists them, POST links a
// user manually, DELETE clears all links.
func (s *Server) adminUsersHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listUsers(w)
	case http.MethodPost:
		s.addUser(w, r)
	case http.MethodDelete:
		s.deleteAllUsers(w)
	default:
		w.Header().Set("Allow", "GET, POST, DELETE")
		writeJSONResponse(w, http.StatusMethodNotAllowed, models.Error("method not allowed"))
	}
}

func (s *Server) listUsers(w http.ResponseWriter) {
	identities, err := s.st.ListLinkedIdentities()
	if err != nil {
		slog.Error("Server.listUsers: failed to list identities", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to list linked users"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"count": len(identities),
		"users": identities,
	}))
}

func (s *Server) addUser(w http.ResponseWriter, r *http.Request) {
	var req addUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("invalid JSON body"))
		return
	}
	req.SlackUserID = strings.TrimSpace(req.SlackUserID)
	req.Username = strings.TrimSpace(req.Username)
	if req.SlackUserID == "" || req.Username == "" {
		writeJSONResponse(w, http.StatusBadRequest, models.Error("slackUserId and username are required"))
		return
	}

	identity := models.LinkedIdentity{
		SlackUserID:     req.SlackUserID,
		DummyCorpUserID: req.Username,
		AccessToken:     auth.NewAccessToken(req.Username),
		LinkedAt:        time.Now().UTC(),
	}
	if err := s.st.LinkIdentity(identity); err != nil {
		slog.Error("Server.addUser: failed to link identity", "slack_user_id", req.SlackUserID, "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to link user"))
		return
	}
	slog.Info("Server.addUser: identity linked manually", "slack_user_id", req.SlackUserID, "dummycorp_user_id", req.Username)
	writeJSONResponse(w, http.StatusCreated, models.SuccessWithMessage("user linked", identity))
}

func (s *Server) deleteAllUsers(w http.ResponseWriter) {
	n, err := s.st.DeleteAllIdentities()
	if err != nil {
		slog.Error("Server.deleteAllUsers: failed to delete identities", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("failed to delete linked users"))
		return
	}
	slog.Info("Server.deleteAllUsers: cleared linked identities", "deleted_count", n)
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]interface{}{
		"deletedCount": n,
	}))
}

// healthHandler reports service liveness.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("dummybot is running", nil))
}
