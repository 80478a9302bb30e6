package api

import (
	"net/http"
)

func (a *API) stats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, a.eng.Stats())
}

// runPass runs one scheduling pass synchronously and returns its report.
func (a *API) runPass(w http.ResponseWriter, r *http.Request) {
	rep, err := a.eng.RunPass(r.Context())
	if err != nil {
		a.respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, rep)
}
