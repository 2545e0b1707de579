package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"forumdb/pkg/models"
	"forumdb/pkg/rank"
	"forumdb/pkg/store"
	"forumdb/pkg/telemetry"
	"forumdb/pkg/utils"
	"forumdb/pkg/validation"
)

// RegisterThreads registers all thread-related HTTP routes to the provided router.
func RegisterThreads(r *mux.Router) {
	// Collection routes
	r.HandleFunc("/threads", createThread).Methods(http.MethodPost)
	r.HandleFunc("/threads", listThreads).Methods(http.MethodGet)

	// Single resource routes
	r.HandleFunc("/threads/{id}", getThread).Methods(http.MethodGet)
	r.HandleFunc("/threads/{id}", updateThread).Methods(http.MethodPut)
	r.HandleFunc("/threads/{id}", deleteThread).Methods(http.MethodDelete)

	// Reply-tree view over a thread's messages
	r.HandleFunc("/threads/{threadID}/tree", getThreadTree).Methods(http.MethodGet)
}

// createThread handles POST /threads to create a new thread.
// The request body must contain a JSON object representing the thread;
// "author" and "title" are required.
func createThread(w http.ResponseWriter, r *http.Request) {
	var t models.Thread
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if strings.TrimSpace(t.Author) == "" {
		utils.JSONError(w, http.StatusBadRequest, "author field is required")
		return
	}
	if err := validation.ValidateThreadTitle(t.Title); err != nil {
		utils.JSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if t.ID == "" {
		t.ID = utils.GenThreadID()
	}
	if t.CreatedTS == 0 {
		t.CreatedTS = time.Now().UTC().UnixNano()
	}
	if t.UpdatedTS == 0 {
		t.UpdatedTS = t.CreatedTS
	}
	if t.Slug == "" {
		t.Slug = utils.MakeSlug(t.Title, t.ID)
	}
	// deletion state is never accepted from clients
	t.Deleted = false
	t.DeletedTS = 0
	t.MessageCount = 0

	if err := store.SaveThread(t); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	telemetry.ThreadsCreated.Inc()
	_ = utils.JSONWrite(w, http.StatusCreated, t)
}

// listThreads handles GET /threads to retrieve a ranked thread listing.
// Query parameters:
//   - "sort": pinned (default) | newest | active | upvoted
//   - "show_locked", "show_deleted": include threads the default view hides
//   - "author": filter by exact author
//   - "title": filter by case-insensitive title substring
func listThreads(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := models.SortMode(q.Get("sort"))
	if !models.ValidSortMode(mode) {
		utils.JSONError(w, http.StatusBadRequest, "invalid sort mode")
		return
	}
	filters := rank.Filters{
		ShowLocked:  q.Get("show_locked") == "true",
		ShowDeleted: q.Get("show_deleted") == "true",
	}

	threads, err := store.ListThreads()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	authorQ := q.Get("author")
	titleQ := q.Get("title")
	if authorQ != "" || titleQ != "" {
		kept := threads[:0]
		for _, th := range threads {
			if authorQ != "" && th.Author != authorQ {
				continue
			}
			if titleQ != "" && !strings.Contains(strings.ToLower(th.Title), strings.ToLower(titleQ)) {
				continue
			}
			kept = append(kept, th)
		}
		threads = kept
	}

	out := rank.Rank(threads, mode, filters)
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Threads []models.Thread `json:"threads"`
	}{Threads: out})
}

// getThread handles GET /threads/{id} to retrieve a single thread by its ID.
// Returns 404 if the thread does not exist.
func getThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, err := store.GetThread(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// updateThread handles PUT /threads/{id}. Only title, pinned and locked
// are client-mutable; every accepted change bumps updated_ts.
func updateThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	t, err := store.GetThread(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var patch struct {
		Title  *string `json:"title"`
		Pinned *bool   `json:"pinned"`
		Locked *bool   `json:"locked"`
	}
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if patch.Title != nil {
		if err := validation.ValidateThreadTitle(*patch.Title); err != nil {
			utils.JSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		t.Title = *patch.Title
		t.Slug = utils.MakeSlug(t.Title, t.ID)
	}
	if patch.Pinned != nil {
		t.Pinned = *patch.Pinned
	}
	if patch.Locked != nil {
		t.Locked = *patch.Locked
	}
	t.UpdatedTS = time.Now().UTC().UnixNano()

	if err := store.SaveThread(t); err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, t)
}

// deleteThread handles DELETE /threads/{id}: a soft delete. Metadata is
// retained for show_deleted listings until retention purges it.
func deleteThread(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	err := store.MarkThreadDeleted(id)
	if errors.Is(err, store.ErrNotFound) {
		utils.JSONError(w, http.StatusNotFound, "thread not found")
		return
	}
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
