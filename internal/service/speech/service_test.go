package speech

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/arcwright/gamemaster/internal/config"
)

// newSynthServer runs handle for each websocket connection and returns a
// service pointed at it with a short read timeout.
func newSynthServer(t *testing.T, handle func(conn *websocket.Conn)) *Service {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade err: %v", err)
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)

	svc := NewService(config.SpeechConfig{
		AppID:       "app",
		AccessToken: "token",
		Endpoint:    "ws" + strings.TrimPrefix(srv.URL, "http"),
		Voice:       "narrator",
	})
	svc.readTimeout = 200 * time.Millisecond
	return svc
}

func TestSynthesizeCollectsAudioFrames(t *testing.T) {
	svc := newSynthServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		frame := buildServerFrame(t, audioOnlyServerResponse, positiveSequenceNumber, 1, []byte{0x01, 0x02}, noCompression)
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
		final := buildServerFrame(t, audioOnlyServerResponse, negativeSequenceNumber, -2, []byte{0x03}, noCompression)
		_ = conn.WriteMessage(websocket.BinaryMessage, final)
	})

	audio, err := svc.Synthesize(context.Background(), "The door creaks open.")
	if err != nil {
		t.Fatalf("Synthesize err: %v", err)
	}
	if !bytes.Equal(audio.Data, []byte{0x01, 0x02, 0x03}) {
		t.Fatalf("audio data = %v", audio.Data)
	}
	if audio.Format != "mp3" {
		t.Fatalf("format = %q", audio.Format)
	}
}

// A server that stops responding mid-stream must not block the caller past
// the read timeout, even when the context carries no deadline.
func TestSynthesizeStalledServerTimesOut(t *testing.T) {
	svc := newSynthServer(t, func(conn *websocket.Conn) {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		frame := buildServerFrame(t, audioOnlyServerResponse, positiveSequenceNumber, 1, []byte{0x01}, noCompression)
		if err := conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			return
		}
		// Never send the final frame; block until the client hangs up.
		_, _, _ = conn.ReadMessage()
	})

	start := time.Now()
	_, err := svc.Synthesize(context.Background(), "hello")
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if elapsed := time.Since(start); elapsed > 3*time.Second {
		t.Fatalf("Synthesize blocked for %v", elapsed)
	}
}

func TestSynthesizeRejectsEmptyText(t *testing.T) {
	svc := NewService(config.SpeechConfig{Endpoint: "ws://unreachable.invalid"})
	if _, err := svc.Synthesize(context.Background(), "   "); err == nil {
		t.Fatal("expected error for empty text")
	}
}
