package realtime

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"

	"campusportal/internal/attendance"
	"campusportal/internal/notify"
)

// inbound is a client-to-server message on the realtime channel.
type inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Client-to-server message types sent by the face capture client.
const (
	typeAttendance  = "attendance"
	typeUnknownFace = "unknownFace"
)

// Handler serves the realtime channel: it pushes every hub event to the
// connected client and ingests capture-client messages.
type Handler struct {
	hub          *notify.Hub
	attendance   *attendance.Service
	events       *notify.Broadcaster
	captureToken string
}

// NewHandler creates a realtime handler. When captureToken is non-empty,
// ingest messages are only accepted from connections that presented it.
func NewHandler(hub *notify.Hub, att *attendance.Service, events *notify.Broadcaster, captureToken string) *Handler {
	return &Handler{hub: hub, attendance: att, events: events, captureToken: captureToken}
}

// Serve upgrades the connection and runs it until either side closes.
func (h *Handler) Serve(c *gin.Context) {
	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		return
	}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	canIngest := h.captureToken == "" || c.Query("capture_token") == h.captureToken

	sub := h.hub.Subscribe(64)
	defer h.hub.Unsubscribe(sub)

	readErr := make(chan error, 1)
	go func() {
		readErr <- h.readLoop(ctx, conn, canIngest)
	}()

	for {
		select {
		case <-ctx.Done():
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case <-readErr:
			_ = conn.Close(websocket.StatusNormalClosure, "closed")
			return
		case evt, ok := <-sub:
			if !ok {
				_ = conn.Close(websocket.StatusNormalClosure, "closed")
				return
			}
			writeCtx, cancelWrite := context.WithTimeout(ctx, 5*time.Second)
			err := wsjson.Write(writeCtx, conn, evt)
			cancelWrite()
			if err != nil {
				_ = conn.Close(websocket.StatusNormalClosure, "write_failed")
				return
			}
		}
	}
}

func (h *Handler) readLoop(ctx context.Context, conn *websocket.Conn, canIngest bool) error {
	for {
		var msg inbound
		if err := wsjson.Read(ctx, conn, &msg); err != nil {
			return err
		}
		h.handleMessage(ctx, msg, canIngest)
	}
}

func (h *Handler) handleMessage(ctx context.Context, msg inbound, canIngest bool) {
	switch msg.Type {
	case typeAttendance:
		if !canIngest {
			log.Printf("realtime: dropped attendance message from unverified connection")
			return
		}
		var payload struct {
			RollNumber string `json:"rollNumber"`
			Name       string `json:"name"`
		}
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			log.Printf("realtime: bad attendance payload: %v", err)
			return
		}
		if _, err := h.attendance.Record(ctx, payload.RollNumber, payload.Name); err != nil {
			log.Printf("realtime: record attendance failed: %v", err)
		}
	case typeUnknownFace:
		if !canIngest {
			return
		}
		h.events.Broadcast(ctx, notify.Message("Unknown face detected"))
	}
}
