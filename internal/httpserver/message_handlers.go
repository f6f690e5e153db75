package httpserver

import (
	"net/http"
	"strconv"

	"sockchat/internal/service"
)

// handleListMessages serves GET /api/messages?page&limit: the global public
// feed, oldest-first within the page.
func handleListMessages(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := queryInt(r, "page", 1)
		limit := queryInt(r, "limit", 50)
		if page < 1 {
			page = 1
		}

		msgs, err := msgSvc.PublicFeed(r.Context(), limit, (page-1)*limit)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list messages"})
			return
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

// handleListOnlineUsers serves GET /api/users: currently online users.
func handleListOnlineUsers(userSvc *service.UserService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		users, err := userSvc.ListOnline(r.Context())
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list users"})
			return
		}
		writeJSON(w, http.StatusOK, users)
	}
}

func queryInt(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}
