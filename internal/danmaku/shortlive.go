package danmaku

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/danmaku/wire"
	"github.com/jmylchreest/tvarr/internal/models"
)

const (
	shortLiveHeartbeatInterval = 10 * time.Second
	shortLiveMaxHeartbeatFails = 3
)

// shortLiveHeartbeatFrame is the four-byte literal heartbeat the
// short-video live platform expects every 10s.
var shortLiveHeartbeatFrame = []byte{0x3A, 0x02, 0x68, 0x62}

// SignFunc invokes the bundled JavaScript signer that derives the
// WebSocket URL from a room ID. The signer itself is a black box handed
// in by the caller (cmd/bsrecorder wires a remote HTTP signer service, or
// the unsigned endpoint URL when no signer URL is configured); this
// provider only consumes its output.
type SignFunc func(roomID string) (string, error)

// shortLiveProvider speaks gzip-compressed protobuf PushFrame envelopes.
type shortLiveProvider struct {
	sign   SignFunc
	roomID string
	logger *slog.Logger

	mu           sync.Mutex
	state        State
	conn         *websocket.Conn
	consecFailed int

	hb       *heartbeatMonitor
	messages chan *models.DanmuMessage
	done     chan struct{}
	stopOnce sync.Once
}

// NewShortLiveProvider creates a danmaku Provider for the short-video live
// platform.
func NewShortLiveProvider(sign SignFunc, roomID string, logger *slog.Logger) Provider {
	return &shortLiveProvider{
		sign:     sign,
		roomID:   roomID,
		logger:   logger,
		state:    StateIdle,
		hb:       newHeartbeatMonitor(shortLiveHeartbeatInterval),
		messages: make(chan *models.DanmuMessage, 256),
		done:     make(chan struct{}),
	}
}

func (p *shortLiveProvider) Platform() models.Platform { return models.PlatformShortLive }

func (p *shortLiveProvider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *shortLiveProvider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *shortLiveProvider) Start(ctx context.Context) error {
	p.setState(StateConnecting)

	wsURL, err := p.sign(p.roomID)
	if err != nil {
		p.setState(StateFailed)
		return bsrerrors.Wrap(bsrerrors.KindAuth, "deriving signed websocket URL", err)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, http.Header{})
	if err != nil {
		p.setState(StateFailed)
		return bsrerrors.Wrap(bsrerrors.KindNetwork, "dialing danmaku websocket", err)
	}
	p.conn = conn
	p.setState(StateAuthed)

	go p.readLoop()
	go p.heartbeatLoop(ctx)

	p.setState(StateStreaming)
	return nil
}

func (p *shortLiveProvider) readLoop() {
	defer close(p.messages)
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			p.setState(StateClosed)
			return
		}

		frame, err := wire.DecodePushFrame(raw)
		if err != nil {
			p.logger.Debug("shortlive danmaku malformed push frame", "error", err)
			continue
		}

		gz, err := gzip.NewReader(bytes.NewReader(frame.Payload))
		if err != nil {
			continue
		}
		payload, err := io.ReadAll(gz)
		_ = gz.Close()
		if err != nil {
			continue
		}

		resp, err := wire.DecodeResponse(payload)
		if err != nil {
			continue
		}

		if resp.NeedAck {
			ack := wire.EncodeAckFrame(frame.LogID)
			_ = p.conn.WriteMessage(websocket.BinaryMessage, ack)
		}

		for _, inner := range resp.Messages {
			if inner.Method != wire.MethodChat {
				continue
			}
			chat, err := wire.DecodeChatPayload(inner.Payload)
			if err != nil {
				continue
			}
			msg := &models.DanmuMessage{
				RoomID:      p.roomID,
				UserID:      chat.UserID,
				UserName:    chat.UserName,
				Content:     chat.Content,
				TimestampMs: time.Now().UnixMilli(),
				Kind:        models.DanmuKindChat,
			}
			select {
			case p.messages <- msg:
			case <-p.done:
				return
			}
		}
	}
}

func (p *shortLiveProvider) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(shortLiveHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			if p.hb.timedOut() {
				p.logger.Warn("shortlive danmaku heartbeat timed out", "room_id", p.roomID)
				p.Stop()
				return
			}
			if err := p.conn.WriteMessage(websocket.BinaryMessage, shortLiveHeartbeatFrame); err != nil {
				p.consecFailed++
				p.logger.Warn("shortlive danmaku heartbeat write failed", "room_id", p.roomID, "consecutive_failures", p.consecFailed)
				if p.consecFailed >= shortLiveMaxHeartbeatFails {
					p.Stop()
					return
				}
				continue
			}
			p.consecFailed = 0
			p.hb.markSuccess()
		}
	}
}

func (p *shortLiveProvider) Recv(ctx context.Context) (*models.DanmuMessage, bool) {
	select {
	case msg, ok := <-p.messages:
		return msg, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (p *shortLiveProvider) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.setState(StateClosed)
		if p.conn != nil {
			_ = p.conn.Close()
		}
	})
}
