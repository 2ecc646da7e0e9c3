package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/kumarharshit0413/Nexus/internal/protocol"
	"github.com/kumarharshit0413/Nexus/internal/signaling"
	"github.com/kumarharshit0413/Nexus/internal/summarize"
	"github.com/kumarharshit0413/Nexus/internal/upload"
)

// Configure the websocket upgrader. 64 KB buffers cover SDP blobs.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  64 * 1024,
	WriteBufferSize: 64 * 1024,

	// Room access is open by design: any holder of a room id may join.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// ServeWs returns an http.HandlerFunc that upgrades the connection, assigns
// the ephemeral connection id and hands the client to the hub.
func ServeWs(hub *signaling.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("websocket upgrade failed", "err", err)
			return
		}

		client := &signaling.Client{
			Hub:  hub,
			Conn: conn,
			ID:   uuid.New().String(),
			Send: make(chan *protocol.Message, 256),
		}

		client.Hub.Register <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// Health reports liveness.
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("Signaling server is healthy."))
}

type chatEntry struct {
	SenderID    string `json:"senderId"`
	DisplayName string `json:"displayName,omitempty"`
	Message     string `json:"message"`
}

type summarizeRequest struct {
	ChatHistory []chatEntry `json:"chatHistory"`
}

// Summarize turns a room's chat history into a prose summary via the
// external completion collaborator. It never touches the hub, so no room
// state is held up while the call is in flight.
func Summarize(sc *summarize.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req summarizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.ChatHistory) == 0 {
			writeJSONError(w, http.StatusBadRequest, "No chat history provided.")
			return
		}

		summary, err := sc.Summarize(r.Context(), transcript(req.ChatHistory))
		if err != nil {
			slog.Error("summarize failed", "err", err)
			status := http.StatusInternalServerError
			if errors.Is(err, summarize.ErrUnavailable) {
				status = http.StatusBadGateway
			}
			writeJSONError(w, status, "Failed to generate summary.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
	}
}

// transcript flattens chat history into "name: message" lines.
func transcript(history []chatEntry) string {
	var b strings.Builder
	b.WriteString("Summarize the following chat conversation into key points:\n\n")
	for _, entry := range history {
		name := entry.DisplayName
		if name == "" {
			name = shortID(entry.SenderID)
		}
		fmt.Fprintf(&b, "%s: %s\n", name, entry.Message)
	}
	return b.String()
}

func shortID(id string) string {
	if len(id) > 5 {
		return id[:5]
	}
	return id
}

// Upload forwards a multipart file to the object-store collaborator and
// returns the URL it assigned.
func Upload(uc *upload.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "No file provided.")
			return
		}
		defer file.Close()

		url, err := uc.Upload(r.Context(), header.Filename, file)
		if err != nil {
			slog.Error("upload failed", "file", header.Filename, "err", err)
			writeJSONError(w, http.StatusBadGateway, "Failed to upload file.")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"url": url})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
