package good

import "net/http"

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("X-Request-ID", "req-1")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("X-Request-ID", "req-1")
	w.WriteHeader(status)
	w.Write(body)
}

func handleOK(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, []byte(`{"ok":true}`))
}

func handleNotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "not found")
}
