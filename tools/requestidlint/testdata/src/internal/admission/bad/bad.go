package bad

import "net/http"

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("X-Request-ID", "req-1")
	w.WriteHeader(status)
	w.Write([]byte(msg))
}

func handleBadRequest(w http.ResponseWriter, r *http.Request) {
	http.Error(w, "bad request", http.StatusBadRequest) // want "use writeError helper to ensure X-Request-ID header is set instead of http.Error"
}

func handleDirectWriteHeader(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(500) // want "use writeError helper to ensure X-Request-ID header is set instead of calling WriteHeader directly"
	w.Write([]byte("boom"))
}

func handleOKIsFine(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("fine"))
}
