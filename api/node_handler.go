package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/xraph/ledgerwork/id"
	"github.com/xraph/ledgerwork/node"
)

func (a *API) listNodes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	limit, err := intParam(q.Get("limit"), defaultPageSize)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid limit: %v", err))
		return
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	limit = min(limit, maxPageSize)

	offset, err := intParam(q.Get("offset"), 0)
	if err != nil || offset < 0 {
		respondError(w, http.StatusBadRequest, "invalid offset")
		return
	}

	includeDeleted := false
	if v := q.Get("include_deleted"); v != "" {
		includeDeleted, err = strconv.ParseBool(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid include_deleted: %v", err))
			return
		}
	}

	nodes, err := a.eng.ListNodes(r.Context(), node.ListOpts{
		Limit:          limit,
		Offset:         offset,
		Ledger:         q.Get("ledger"),
		IncludeDeleted: includeDeleted,
	})
	if err != nil {
		a.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, nodes)
}

func (a *API) createNode(w http.ResponseWriter, r *http.Request) {
	var req CreateNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	if req.Ledger == "" || req.Consensus == "" {
		respondError(w, http.StatusBadRequest, "ledger and consensus are required")
		return
	}

	n := &node.Node{
		Ledger:    req.Ledger,
		Owner:     req.Owner,
		Consensus: req.Consensus,
		Storage:   req.Storage,
	}
	if req.ID != "" {
		nodeID, err := id.ParseNodeID(req.ID)
		if err != nil {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid node ID: %v", err))
			return
		}
		n.ID = nodeID
	}

	if err := a.eng.CreateNode(r.Context(), n); err != nil {
		a.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, n)
}

func (a *API) getNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := parseNodeID(w, r)
	if !ok {
		return
	}
	n, err := a.eng.GetNode(r.Context(), nodeID)
	if err != nil {
		a.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, n)
}

func (a *API) deleteNode(w http.ResponseWriter, r *http.Request) {
	nodeID, ok := parseNodeID(w, r)
	if !ok {
		return
	}
	if err := a.eng.DeleteNode(r.Context(), nodeID); err != nil {
		a.respondStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseNodeID(w http.ResponseWriter, r *http.Request) (id.NodeID, bool) {
	nodeID, err := id.ParseNodeID(chi.URLParam(r, "nodeId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid node ID: %v", err))
		return id.Nil, false
	}
	return nodeID, true
}

func intParam(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}
