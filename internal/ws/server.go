package ws

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/obiente/translate/gostt/internal/audio"
	"github.com/obiente/translate/gostt/internal/transcribe"
)

const (
	readTimeout     = 60 * time.Second
	maxMessageBytes = 64 << 20
)

// Server answers every complete audio file sent over the socket with one
// transcript message. Files are handled one at a time per connection.
type Server struct {
	svc      *transcribe.Service
	upgrader websocket.Upgrader
}

// inbound is a client control message. "audio" messages carry base64 data,
// which is how clients send headerless PCM along with its layout.
type inbound struct {
	Type       string `json:"type"`
	TS         any    `json:"ts,omitempty"`
	Data       string `json:"data,omitempty"`
	MIMEType   string `json:"mime_type,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
}

type message struct {
	kind int
	data []byte
}

func NewServer(svc *transcribe.Service) *Server {
	return &Server{
		svc: svc,
		upgrader: websocket.Upgrader{
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  1024 * 16,
			WriteBufferSize: 1024 * 16,
		},
	}
}

func (s *Server) Handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("session", uuid.NewString()).Logger()
	logger.Info().Str("remote", r.RemoteAddr).Msg("ws session opened")
	defer logger.Info().Msg("ws session closed")

	conn.SetReadLimit(maxMessageBytes)
	conn.SetPongHandler(func(string) error { return conn.SetReadDeadline(time.Now().Add(readTimeout)) })

	_ = conn.SetReadDeadline(time.Now().Add(readTimeout))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reads run on their own goroutine so a disconnect is seen, and the
	// context cancelled, while a transcription is still in flight.
	frames := make(chan message)
	go func() {
		defer close(frames)
		defer cancel()
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warn().Err(err).Msg("ws read error")
				}
				return
			}
			select {
			case frames <- message{kind: mt, data: data}:
			case <-ctx.Done():
				return
			}
		}
	}()

	seq := 0
	for m := range frames {
		switch m.kind {
		case websocket.BinaryMessage:
			seq++
			s.transcribe(ctx, conn, logger, seq, transcribe.Upload{Data: m.data})
		case websocket.TextMessage:
			var msg inbound
			if err := json.Unmarshal(m.data, &msg); err != nil {
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "invalid json"})
				break
			}
			switch msg.Type {
			case "ping":
				_ = conn.WriteJSON(map[string]any{"type": "pong", "ts": msg.TS})
			case "audio":
				raw, err := base64.StdEncoding.DecodeString(msg.Data)
				if err != nil || len(raw) == 0 {
					_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "invalid base64 audio"})
					break
				}
				seq++
				s.transcribe(ctx, conn, logger, seq, transcribe.Upload{
					Data: raw,
					Hint: audio.Hint{MIMEType: msg.MIMEType, SampleRate: msg.SampleRate, Channels: msg.Channels},
				})
			case "stop":
				_ = conn.WriteJSON(map[string]any{"type": "stopped"})
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			default:
				_ = conn.WriteJSON(map[string]any{"type": "error", "detail": "unknown message type"})
			}
		}
		_ = conn.SetReadDeadline(time.Now().Add(readTimeout))
	}
}

// transcribe lifts the read deadline for the duration of the call; clients
// wait silently for long files.
func (s *Server) transcribe(ctx context.Context, conn *websocket.Conn, logger zerolog.Logger, seq int, up transcribe.Upload) {
	_ = conn.SetReadDeadline(time.Time{})
	res, err := s.svc.Transcribe(ctx, up)
	if err != nil {
		_, detail := transcribe.ErrorDetail(err)
		logger.Warn().Err(err).Int("sequence", seq).Msg("ws transcription failed")
		_ = conn.WriteJSON(map[string]any{"type": "error", "sequence": seq, "detail": detail})
		return
	}
	if err := conn.WriteJSON(map[string]any{"type": "transcript", "sequence": seq, "text": res.Text}); err != nil {
		logger.Warn().Err(err).Msg("failed to send transcript")
		return
	}
	logger.Debug().Int("sequence", seq).Int("phrases", len(res.Phrases)).Msg("sent transcript to client")
}
