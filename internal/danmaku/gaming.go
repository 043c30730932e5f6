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

const gamingHeartbeatInterval = 30 * time.Second

// gamingProvider speaks WebSocket protobuf with its own opcodes
// (CsHeartbeat/CsEnterRoom/ScFeedPush) and its own per-frame compression
// tag.
type gamingProvider struct {
	wsURL  string
	roomID string
	logger *slog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn
	seq   uint64

	hb       *heartbeatMonitor
	messages chan *models.DanmuMessage
	done     chan struct{}
	stopOnce sync.Once
}

// NewGamingProvider creates a danmaku Provider for the gaming platform.
func NewGamingProvider(wsURL, roomID string, logger *slog.Logger) Provider {
	return &gamingProvider{
		wsURL:    wsURL,
		roomID:   roomID,
		logger:   logger,
		state:    StateIdle,
		hb:       newHeartbeatMonitor(gamingHeartbeatInterval),
		messages: make(chan *models.DanmuMessage, 256),
		done:     make(chan struct{}),
	}
}

func (p *gamingProvider) Platform() models.Platform { return models.PlatformGaming }

func (p *gamingProvider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *gamingProvider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *gamingProvider) nextSeq() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	return p.seq
}

func (p *gamingProvider) Start(ctx context.Context) error {
	p.setState(StateConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.wsURL, http.Header{})
	if err != nil {
		p.setState(StateFailed)
		return bsrerrors.Wrap(bsrerrors.KindNetwork, "dialing danmaku websocket", err)
	}
	p.conn = conn

	enterRoom := wire.EncodeFrame(wire.Frame{Op: wire.CsEnterRoom, Seq: p.nextSeq(), CompressTag: wire.CompressNone, Body: []byte(p.roomID)})
	if err := conn.WriteMessage(websocket.BinaryMessage, enterRoom); err != nil {
		p.setState(StateFailed)
		return bsrerrors.Wrap(bsrerrors.KindNetwork, "sending enter-room frame", err)
	}
	p.setState(StateAuthed)

	go p.readLoop()
	go p.heartbeatLoop(ctx)

	p.setState(StateStreaming)
	return nil
}

func (p *gamingProvider) readLoop() {
	defer close(p.messages)
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			p.setState(StateClosed)
			return
		}

		frame, err := wire.DecodeFrame(raw)
		if err != nil {
			p.logger.Debug("gaming danmaku malformed frame", "error", err)
			continue
		}
		if frame.Op != wire.ScFeedPush {
			continue
		}

		body := frame.Body
		if frame.CompressTag == wire.CompressGzip {
			gz, err := gzip.NewReader(bytes.NewReader(body))
			if err != nil {
				continue
			}
			decompressed, err := io.ReadAll(gz)
			_ = gz.Close()
			if err != nil {
				continue
			}
			body = decompressed
		}

		push, err := wire.DecodeScFeedPush(body)
		if err != nil {
			continue
		}

		for _, inner := range push.Messages {
			msg := &models.DanmuMessage{
				RoomID:      p.roomID,
				UserID:      inner.UserID,
				UserName:    inner.UserName,
				Content:     inner.Content,
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

func (p *gamingProvider) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(gamingHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			if p.hb.timedOut() {
				p.logger.Warn("gaming danmaku heartbeat timed out", "room_id", p.roomID)
				p.Stop()
				return
			}
			beat := wire.EncodeFrame(wire.Frame{Op: wire.CsHeartbeat, Seq: p.nextSeq(), CompressTag: wire.CompressNone})
			if err := p.conn.WriteMessage(websocket.BinaryMessage, beat); err != nil {
				p.logger.Warn("gaming danmaku heartbeat write failed", "room_id", p.roomID, "error", err)
				continue
			}
			p.hb.markSuccess()
		}
	}
}

func (p *gamingProvider) Recv(ctx context.Context) (*models.DanmuMessage, bool) {
	select {
	case msg, ok := <-p.messages:
		return msg, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (p *gamingProvider) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.setState(StateClosed)
		if p.conn != nil {
			_ = p.conn.Close()
		}
	})
}
