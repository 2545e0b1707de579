package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"forumdb/pkg/models"
	"forumdb/pkg/store"
	"forumdb/pkg/telemetry"
	"forumdb/pkg/utils"
	"forumdb/pkg/validation"
)

// RegisterMessages registers all message-related HTTP routes to the provided router.
func RegisterMessages(r *mux.Router) {
	r.HandleFunc("/threads/{threadID}/messages", createThreadMessage).Methods(http.MethodPost)
	r.HandleFunc("/threads/{threadID}/messages", listThreadMessages).Methods(http.MethodGet)

	r.HandleFunc("/threads/{threadID}/messages/{id}", getThreadMessage).Methods(http.MethodGet)
	r.HandleFunc("/threads/{threadID}/messages/{id}", updateThreadMessage).Methods(http.MethodPut)
	r.HandleFunc("/threads/{threadID}/messages/{id}", deleteThreadMessage).Methods(http.MethodDelete)

	r.HandleFunc("/messages/{id}/versions", listMessageVersions).Methods(http.MethodGet)
}

// loadWritableThread resolves a thread for mutation: 404 when missing or
// soft-deleted, 403 when locked.
func loadWritableThread(w http.ResponseWriter, threadID string) (models.Thread, bool) {
	t, err := store.GetThread(threadID)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return t, false
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return t, false
	}
	if t.Deleted {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return t, false
	}
	if t.Locked {
		utils.JSONError(w, http.StatusForbidden, "thread is locked")
		return t, false
	}
	return t, true
}

// createThreadMessage handles POST /threads/{threadID}/messages.
// The body is a JSON message; "author" and "body" are required.
// reply_to may name any message ID; resolution happens at tree-build
// time, so replies to since-deleted parents are accepted.
func createThreadMessage(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]
	t, ok := loadWritableThread(w, threadID)
	if !ok {
		return
	}

	var m models.Message
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(m.Author) == "" {
		utils.JSONError(w, http.StatusBadRequest, "author field is required")
		return
	}
	if err := validation.ValidateMessage(m.Body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	m.Thread = threadID
	if m.ID == "" {
		m.ID = utils.GenID()
	}
	if m.TS == 0 {
		m.TS = time.Now().UTC().UnixNano()
	}
	m.Deleted = false

	if err := store.SaveMessage(threadID, m); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	telemetry.MessagesCreated.Inc()

	// thread activity drives the "active" sort and the engagement proxy
	t.MessageCount++
	t.UpdatedTS = m.TS
	if err := store.SaveThread(t); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusCreated, m)
}

// listThreadMessages handles GET /threads/{threadID}/messages: the flat,
// chronological message list (current versions only). Optional query
// parameters "limit" (most recent n) and "include_deleted=true".
func listThreadMessages(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]
	if _, err := store.GetThread(threadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "thread not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	raw, err := store.ListMessages(threadID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	msgs := collapseVersions(raw, r.URL.Query().Get("include_deleted") == "true")

	if limStr := r.URL.Query().Get("limit"); limStr != "" {
		lim, err := strconv.Atoi(limStr)
		if err != nil || lim < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if lim < len(msgs) {
			msgs = msgs[len(msgs)-lim:]
		}
	}

	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Thread   string           `json:"thread"`
		Messages []models.Message `json:"messages"`
	}{Thread: threadID, Messages: msgs})
}

// getThreadMessage handles GET /threads/{threadID}/messages/{id} and
// returns the latest version of the message.
func getThreadMessage(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	m, err := store.GetLatestMessage(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// updateThreadMessage handles PUT /threads/{threadID}/messages/{id}:
// appends a new version with the provided body/reactions. The original
// timestamp is preserved so the message keeps its place in the tree.
func updateThreadMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	threadID := vars["threadID"]
	id := vars["id"]
	if _, ok := loadWritableThread(w, threadID); !ok {
		return
	}

	prev, err := store.GetLatestMessage(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var patch models.Message
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if err := validation.ValidateMessage(patch.Body); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}

	m := prev
	m.Body = patch.Body
	if patch.Reactions != nil {
		m.Reactions = patch.Reactions
	}
	m.Deleted = false

	if err := store.SaveMessage(threadID, m); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	telemetry.MessagesCreated.Inc()
	_ = utils.JSONWrite(w, http.StatusOK, m)
}

// deleteThreadMessage handles DELETE /threads/{threadID}/messages/{id}:
// soft delete via an appended tombstone version. Replies keep their
// reply_to reference and become roots in subsequent tree builds.
func deleteThreadMessage(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	threadID := vars["threadID"]
	id := vars["id"]

	m, err := store.GetLatestMessage(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	m.Deleted = true
	if err := store.SaveMessage(threadID, m); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listMessageVersions handles GET /messages/{id}/versions and returns
// every stored version of a message, oldest first.
func listMessageVersions(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	versions, err := store.ListMessageVersions(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "message not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		ID       string           `json:"id"`
		Versions []models.Message `json:"versions"`
	}{ID: id, Versions: versions})
}
