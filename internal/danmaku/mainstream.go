package danmaku

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jmylchreest/tvarr/internal/bsrerrors"
	"github.com/jmylchreest/tvarr/internal/models"
)

const mainstreamHeartbeatInterval = 30 * time.Second

// mainstreamHeartbeatFrame is the exact binary heartbeat frame the
// mainstream platform expects every 30s.
var mainstreamHeartbeatFrame = []byte{
	0x00, 0x00, 0x00, 0x10, 0x00, 0x10, 0x00, 0x01,
	0x00, 0x00, 0x00, 0x02, 0x00, 0x00, 0x00, 0x01,
}

// mainstreamProvider speaks plain WebSocket + JSON frames. It dials wsURL
// directly; no popularity-check HTTP request is made before connecting.
type mainstreamProvider struct {
	wsURL  string
	roomID string
	logger *slog.Logger

	mu    sync.Mutex
	state State
	conn  *websocket.Conn

	hb       *heartbeatMonitor
	hbSend   chan struct{}
	messages chan *models.DanmuMessage
	done     chan struct{}
	stopOnce sync.Once
}

// NewMainstreamProvider creates a danmaku Provider for the mainstream
// platform. wsURL is the WebSocket endpoint, dialed as given.
func NewMainstreamProvider(wsURL, roomID string, logger *slog.Logger) Provider {
	return &mainstreamProvider{
		wsURL:    wsURL,
		roomID:   roomID,
		logger:   logger,
		state:    StateIdle,
		hb:       newHeartbeatMonitor(mainstreamHeartbeatInterval),
		hbSend:   newHeartbeatSendChan(),
		messages: make(chan *models.DanmuMessage, 256),
		done:     make(chan struct{}),
	}
}

func (p *mainstreamProvider) Platform() models.Platform { return models.PlatformMainstream }

func (p *mainstreamProvider) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *mainstreamProvider) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

func (p *mainstreamProvider) Start(ctx context.Context) error {
	p.setState(StateConnecting)

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, p.wsURL, http.Header{})
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

type mainstreamFrame struct {
	Cmd  string `json:"cmd"`
	Info []any  `json:"info"`
}

func (p *mainstreamProvider) readLoop() {
	defer close(p.messages)
	for {
		_, raw, err := p.conn.ReadMessage()
		if err != nil {
			p.setState(StateClosed)
			return
		}

		var frame mainstreamFrame
		if err := json.Unmarshal(raw, &frame); err != nil {
			continue
		}
		if frame.Cmd != "DANMU_MSG" || len(frame.Info) < 5 {
			continue
		}

		content, _ := frame.Info[4].(string)
		var uid, uname string
		if userInfo, ok := frame.Info[2].([]any); ok && len(userInfo) >= 2 {
			uid = fmt.Sprint(userInfo[0])
			uname, _ = userInfo[1].(string)
		}

		msg := &models.DanmuMessage{
			RoomID:      p.roomID,
			UserID:      uid,
			UserName:    uname,
			Content:     content,
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

func (p *mainstreamProvider) heartbeatLoop(ctx context.Context) {
	ticker := time.NewTicker(mainstreamHeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-p.done:
			return
		case <-ticker.C:
			if p.hb.timedOut() {
				p.logger.Warn("mainstream danmaku heartbeat timed out", "room_id", p.roomID)
				p.Stop()
				return
			}
			if err := p.conn.WriteMessage(websocket.BinaryMessage, mainstreamHeartbeatFrame); err != nil {
				p.logger.Warn("mainstream danmaku heartbeat write failed", "room_id", p.roomID, "error", err)
				continue
			}
			p.hb.markSuccess()
		}
	}
}

func (p *mainstreamProvider) Recv(ctx context.Context) (*models.DanmuMessage, bool) {
	select {
	case msg, ok := <-p.messages:
		return msg, ok
	case <-ctx.Done():
		return nil, false
	}
}

func (p *mainstreamProvider) Stop() {
	p.stopOnce.Do(func() {
		close(p.done)
		p.setState(StateClosed)
		if p.conn != nil {
			_ = p.conn.Close()
		}
	})
}
