package ws

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

// MakeHandler returns the HTTP handler for the /ws endpoint. Each upgrade
// gets a fresh connection id; the read loop feeds inbound envelopes to the
// event router in receipt order, and disconnect cleanup runs exactly once
// after the loop exits.
func MakeHandler(hub *Hub, router *EventRouter, allowedOrigins []string) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		connID := uuid.NewString()
		hub.Register(connID, conn)
		connectionsGauge.Inc()
		log.Printf("ws: connection %s opened", connID)

		defer func() {
			hub.Unregister(connID)
			connectionsGauge.Dec()
			// Cleanup must survive request-context cancellation.
			router.HandleDisconnect(context.Background(), connID)
			log.Printf("ws: connection %s closed", connID)
		}()

		ctx := r.Context()
		for {
			var env Envelope
			if err := conn.ReadJSON(&env); err != nil {
				break
			}
			router.Dispatch(ctx, connID, env)
		}
	}
}
