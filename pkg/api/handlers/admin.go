package handlers

import (
	"net/http"
	"net/url"

	"github.com/gorilla/mux"

	"forumdb/internal/retention"
	"forumdb/pkg/logger"
	"forumdb/pkg/models"
	"forumdb/pkg/store"
	"forumdb/pkg/utils"
)

// RegisterAdmin registers admin-only routes onto the v1 router. The
// security middleware rejects non-admin keys for /v1/admin paths; the
// per-handler role check stays as a second line for deployments that
// mount the router without that middleware.
func RegisterAdmin(r *mux.Router) {
	r.HandleFunc("/admin/health", adminHealth).Methods(http.MethodGet)
	r.HandleFunc("/admin/stats", adminStats).Methods(http.MethodGet)
	r.HandleFunc("/admin/threads", adminListThreads).Methods(http.MethodGet)
	r.HandleFunc("/admin/keys", adminListKeys).Methods(http.MethodGet)
	r.HandleFunc("/admin/keys/{key}", adminGetKey).Methods(http.MethodGet)
	r.HandleFunc("/admin/retention/run", adminRunRetention).Methods(http.MethodPost)
	logger.Info("admin_routes_registered")
}

// isAdmin checks the role resolved by the security middleware. Admin
// only, matching the middleware's /v1/admin gate.
func isAdmin(r *http.Request) bool {
	return r.Header.Get("X-Role-Name") == "admin"
}

func adminHealth(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"ok","service":"forumdb"}`))
}

func adminStats(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	st, err := store.GetStats()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, st)
}

// adminListThreads returns every thread record verbatim, soft-deleted
// included, with no ranking applied.
func adminListThreads(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	threads, err := store.ListThreads()
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Threads []models.Thread `json:"threads"`
	}{Threads: threads})
}

// adminListKeys lists raw store keys. Optional query param `prefix`
// limits the scan.
func adminListKeys(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	keys, err := store.ListKeys(r.URL.Query().Get("prefix"))
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Keys []string `json:"keys"`
	}{Keys: keys})
}

// adminGetKey returns the raw value for a given key. The key path
// variable is not automatically unescaped by gorilla/mux, so recover
// the original key string with PathUnescape.
func adminGetKey(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	key, err := url.PathUnescape(mux.Vars(r)["key"])
	if err != nil {
		utils.JSONError(w, http.StatusBadRequest, "invalid key encoding")
		return
	}
	v, err := store.GetKey(key)
	if err != nil {
		utils.JSONError(w, http.StatusNotFound, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	_, _ = w.Write(v)
}

// adminRunRetention triggers a retention sweep outside the cron
// schedule. Query param `dry_run=true` forces a report-only pass.
func adminRunRetention(w http.ResponseWriter, r *http.Request) {
	if !isAdmin(r) {
		utils.JSONError(w, http.StatusForbidden, "forbidden")
		return
	}
	rep, err := retention.RunNow(r.URL.Query().Get("dry_run") == "true")
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	_ = utils.JSONWrite(w, http.StatusOK, rep)
}
