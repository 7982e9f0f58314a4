package ws

import (
	"context"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/obiente/translate/gostt/internal/asr"
	"github.com/obiente/translate/gostt/internal/audio"
	"github.com/obiente/translate/gostt/internal/transcribe"
)

func dial(t *testing.T, p asr.Pipeline) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(NewServer(transcribe.NewService(p, transcribe.Options{Workers: 1})).Handle))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func twoPhrases() asr.PipelineFunc {
	return func(ctx context.Context, samples []int32) ([]asr.TextPhrase, error) {
		if len(samples) == 0 {
			return nil, nil
		}
		return []asr.TextPhrase{{Text: "first"}, {Text: "second"}}, nil
	}
}

func TestBinaryFrameGetsTranscript(t *testing.T) {
	conn := dial(t, twoPhrases())
	b, err := audio.EncodeWAV(make([]int, 800), audio.TargetSampleRate, 1)
	require.NoError(t, err)

	for seq := 1; seq <= 2; seq++ {
		require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, b))
		msg := readJSON(t, conn)
		assert.Equal(t, "transcript", msg["type"])
		assert.Equal(t, float64(seq), msg["sequence"])
		assert.Equal(t, "first. second", msg["text"])
	}
}

func TestBadAudioFrame(t *testing.T) {
	conn := dial(t, twoPhrases())
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, []byte("nope")))

	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["detail"], "Audio processing error")
}

func TestPipelineFailureFrame(t *testing.T) {
	conn := dial(t, asr.PipelineFunc(func(ctx context.Context, samples []int32) ([]asr.TextPhrase, error) {
		return nil, errors.New("decoder crashed")
	}))
	b, err := audio.EncodeWAV(make([]int, 80), audio.TargetSampleRate, 1)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, b))

	msg := readJSON(t, conn)
	assert.Equal(t, "error", msg["type"])
	assert.Contains(t, msg["detail"], "Internal server error")
}

func TestRawPCMAudioMessage(t *testing.T) {
	conn := dial(t, twoPhrases())
	raw := make([]byte, 320)
	for i := 0; i < 160; i++ {
		binary.LittleEndian.PutUint16(raw[2*i:], uint16(int16(i*10)))
	}
	require.NoError(t, conn.WriteJSON(map[string]any{
		"type":        "audio",
		"mime_type":   "audio/pcm",
		"sample_rate": 16000,
		"data":        base64.StdEncoding.EncodeToString(raw),
	}))

	msg := readJSON(t, conn)
	assert.Equal(t, "transcript", msg["type"])
	assert.Equal(t, "first. second", msg["text"])
}

func TestControlMessages(t *testing.T) {
	conn := dial(t, twoPhrases())

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "ping", "ts": 42}))
	msg := readJSON(t, conn)
	assert.Equal(t, "pong", msg["type"])
	assert.Equal(t, float64(42), msg["ts"])

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{oops")))
	assert.Equal(t, "invalid json", readJSON(t, conn)["detail"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "dance"}))
	assert.Equal(t, "unknown message type", readJSON(t, conn)["detail"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "audio", "data": "%%%"}))
	assert.Equal(t, "invalid base64 audio", readJSON(t, conn)["detail"])

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "stop"}))
	assert.Equal(t, "stopped", readJSON(t, conn)["type"])

	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}

func TestDisconnectCancelsTranscription(t *testing.T) {
	started := make(chan struct{})
	cancelled := make(chan struct{})
	conn := dial(t, asr.PipelineFunc(func(ctx context.Context, samples []int32) ([]asr.TextPhrase, error) {
		close(started)
		<-ctx.Done()
		close(cancelled)
		return nil, ctx.Err()
	}))
	b, err := audio.EncodeWAV(make([]int, 800), audio.TargetSampleRate, 1)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.BinaryMessage, b))

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline never started")
	}
	require.NoError(t, conn.Close())

	select {
	case <-cancelled:
	case <-time.After(5 * time.Second):
		t.Fatal("transcription kept running after the client left")
	}
}
