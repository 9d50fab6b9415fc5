// Package speech synthesizes narration audio over the provider's streaming
// WebSocket endpoint. Synthesis is strictly best-effort: callers log failures
// and deliver the text reply regardless.
package speech

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/arcwright/gamemaster/internal/config"
)

// Audio is one synthesized narration artifact.
type Audio struct {
	ID     string `json:"id"`
	Format string `json:"format"`
	Data   []byte `json:"data"`
}

// defaultReadTimeout bounds each frame read so a stalled synthesis server
// cannot hold the connection open indefinitely.
const defaultReadTimeout = 60 * time.Second

// Service performs text-to-speech calls.
type Service struct {
	cfg         config.SpeechConfig
	dialer      *websocket.Dialer
	readTimeout time.Duration
}

// NewService creates the speech service.
func NewService(cfg config.SpeechConfig) *Service {
	return &Service{
		cfg: cfg,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 30 * time.Second,
		},
		readTimeout: defaultReadTimeout,
	}
}

type synthRequest struct {
	User struct {
		UID string `json:"uid"`
	} `json:"user"`
	ReqParams struct {
		Speaker     string `json:"speaker"`
		Text        string `json:"text"`
		AudioParams struct {
			Format      string  `json:"format"`
			SampleRate  int     `json:"sample_rate"`
			SpeedRatio  float32 `json:"speed_ratio,omitempty"`
			VolumeRatio float32 `json:"volume_ratio,omitempty"`
		} `json:"audio_params"`
	} `json:"req_params"`
}

type synthServerPayload struct {
	Code     int    `json:"code"`
	Message  string `json:"message"`
	Sequence int    `json:"sequence"`
	Data     string `json:"data"`
}

// Synthesize converts text into one audio artifact. The connection streams
// binary audio frames until the final-packet flag.
func (s *Service) Synthesize(ctx context.Context, text string) (*Audio, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("synthesis text is empty")
	}

	connectID := uuid.NewString()
	hdr := http.Header{}
	hdr.Set("X-Api-App-Key", s.cfg.AppID)
	hdr.Set("X-Api-Access-Key", s.cfg.AccessToken)
	hdr.Set("X-Api-Connect-Id", connectID)

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.Endpoint, hdr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to synthesis endpoint: %w", err)
	}
	defer conn.Close()

	req := s.buildRequest(text)
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal synthesis request: %w", err)
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, encodeClientRequest(payload)); err != nil {
		return nil, fmt.Errorf("failed to send synthesis request: %w", err)
	}

	var audio []byte
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		// Refresh the deadline per frame so a stall mid-stream is caught,
		// tightened to the context deadline when that comes sooner.
		deadline := time.Now().Add(s.readTimeout)
		if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
			deadline = d
		}
		_ = conn.SetReadDeadline(deadline)

		_, frame, err := conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("failed to read synthesis response: %w", err)
		}
		msg, err := decodeServerMessage(frame)
		if err != nil {
			return nil, fmt.Errorf("failed to decode synthesis frame: %w", err)
		}

		switch msg.header.msgType {
		case errorMessage:
			return nil, fmt.Errorf("synthesis error: %s", string(msg.payload))
		case audioOnlyServerResponse:
			audio = append(audio, msg.payload...)
		case fullServerResponse:
			var sp synthServerPayload
			if len(msg.payload) > 0 {
				if err := json.Unmarshal(msg.payload, &sp); err != nil {
					log.Printf("[tts] unreadable response payload: %v", err)
				} else if sp.Code != 0 && sp.Code != 3000 {
					return nil, fmt.Errorf("synthesis API error %d: %s", sp.Code, sp.Message)
				}
			}
			if sp.Sequence < 0 && len(audio) > 0 {
				return &Audio{ID: connectID, Format: s.format(), Data: audio}, nil
			}
		default:
			log.Printf("[tts] unexpected message type: %d", msg.header.msgType)
		}

		if msg.lastPacket() {
			if len(audio) == 0 {
				return nil, fmt.Errorf("synthesis produced no audio")
			}
			return &Audio{ID: connectID, Format: s.format(), Data: audio}, nil
		}
	}
}

func (s *Service) buildRequest(text string) *synthRequest {
	req := &synthRequest{}
	req.User.UID = uuid.NewString()
	req.ReqParams.Speaker = s.cfg.Voice
	req.ReqParams.Text = text
	req.ReqParams.AudioParams.Format = s.format()
	req.ReqParams.AudioParams.SampleRate = 24000
	req.ReqParams.AudioParams.SpeedRatio = s.cfg.Speed
	req.ReqParams.AudioParams.VolumeRatio = s.cfg.Volume
	return req
}

func (s *Service) format() string {
	if s.cfg.Format != "" {
		return s.cfg.Format
	}
	return "mp3"
}
