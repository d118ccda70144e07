package http

import (
	"net/http"
)

// Version describes the running service and the sky map it serves.
type Version struct {
	Version     string `json:"version"`
	Layout      string `json:"layout"`
	Tracts      int    `json:"tracts"`
	Fingerprint string `json:"fingerprint"`
	MapUUID     string `json:"map_uuid"`
}

func HandleVersion(v Version) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, http.StatusOK, v)
	}
}
