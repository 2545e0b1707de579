package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"forumdb/pkg/models"
	"forumdb/pkg/store"
	"forumdb/pkg/telemetry"
	"forumdb/pkg/tree"
	"forumdb/pkg/utils"
)

// getThreadTree handles GET /threads/{threadID}/tree: it rebuilds the
// reply forest from the thread's flat message log on every request.
// Query parameters:
//   - "max_depth": reported-depth cap (default 10)
//   - "flat=true": return the pre-order flattened sequence instead of
//     the nested forest
//   - "find=<msgID>": return the single matching node (404 when absent)
//   - "include_deleted=true": keep tombstoned messages in the tree;
//     by default they are dropped and their replies surface as roots
func getThreadTree(w http.ResponseWriter, r *http.Request) {
	threadID := mux.Vars(r)["threadID"]
	if _, err := store.GetThread(threadID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.JSONError(w, http.StatusNotFound, "thread not found")
			return
		}
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	q := r.URL.Query()
	maxDepth := tree.DefaultMaxDepth
	if v := q.Get("max_depth"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			utils.JSONError(w, http.StatusBadRequest, "invalid max_depth")
			return
		}
		if n > 0 {
			maxDepth = n
		}
	}

	raw, err := store.ListMessages(threadID)
	if err != nil {
		utils.JSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	msgs := collapseVersions(raw, q.Get("include_deleted") == "true")

	forest := tree.Build(msgs, maxDepth)
	telemetry.TreesBuilt.Inc()

	if findID := q.Get("find"); findID != "" {
		node := tree.FindByID(forest, findID)
		if node == nil {
			utils.JSONError(w, http.StatusNotFound, "message not in tree")
			return
		}
		_ = utils.JSONWrite(w, http.StatusOK, node)
		return
	}

	if q.Get("flat") == "true" {
		flat := tree.Flatten(forest)
		_ = utils.JSONWrite(w, http.StatusOK, struct {
			Thread string             `json:"thread"`
			Nodes  []*models.TreeNode `json:"nodes"`
			Count  int                `json:"count"`
		}{Thread: threadID, Nodes: flat, Count: len(flat)})
		return
	}

	_ = utils.JSONWrite(w, http.StatusOK, struct {
		Thread string             `json:"thread"`
		Tree   []*models.TreeNode `json:"tree"`
		Count  int                `json:"count"`
	}{Thread: threadID, Tree: forest, Count: len(msgs)})
}

// collapseVersions reduces the append-only message log to current state:
// one entry per message ID (latest version wins) in first-appearance
// order. Tombstoned messages are dropped unless includeDeleted; their
// replies then resurface as roots via the tree builder's orphan policy.
func collapseVersions(raw []models.Message, includeDeleted bool) []models.Message {
	latest := make(map[string]models.Message, len(raw))
	order := make([]string, 0, len(raw))
	for _, m := range raw {
		if _, seen := latest[m.ID]; !seen {
			order = append(order, m.ID)
		}
		latest[m.ID] = m
	}
	out := make([]models.Message, 0, len(order))
	for _, id := range order {
		m := latest[id]
		if m.Deleted && !includeDeleted {
			continue
		}
		out = append(out, m)
	}
	return out
}
