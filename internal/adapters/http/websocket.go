package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/epiviz/internal/adapters/nats"
	"github.com/samirrijal/epiviz/internal/pkg/metrics"
)

const wsPingInterval = 30 * time.Second

// wsRequest is a control message sent by the client. An empty Run means
// every run.
type wsRequest struct {
	Action string `json:"action"`
	Run    string `json:"run"`
}

// wsReply acknowledges or rejects a wsRequest.
type wsReply struct {
	Status  string `json:"status,omitempty"`
	Subject string `json:"subject,omitempty"`
	Error   string `json:"error,omitempty"`
}

func frameSubject(run string) string {
	if run == "" {
		return natsadapter.FramesWildcard
	}
	return natsadapter.RunFramesSubject(run)
}

// frameFeed is one client's set of NATS frame subscriptions. Writes to the
// socket are serialised because NATS callbacks and the pinger run on their
// own goroutines.
type frameFeed struct {
	conn *websocket.Conn
	nc   *nats.Conn
	log  *slog.Logger

	writeMu sync.Mutex
	subs    map[string]*nats.Subscription
}

func (f *frameFeed) send(msgType int, data []byte) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	return f.conn.WriteMessage(msgType, data)
}

func (f *frameFeed) reply(r wsReply) {
	data, err := json.Marshal(r)
	if err != nil {
		return
	}
	_ = f.send(websocket.TextMessage, data)
}

func (f *frameFeed) relay(msg *nats.Msg) {
	_ = f.send(websocket.TextMessage, msg.Data)
}

func (f *frameFeed) subscribe(subject string) wsReply {
	if _, ok := f.subs[subject]; ok {
		return wsReply{Status: "already subscribed", Subject: subject}
	}
	sub, err := f.nc.Subscribe(subject, f.relay)
	if err != nil {
		return wsReply{Error: "subscribe failed: " + err.Error()}
	}
	f.subs[subject] = sub
	return wsReply{Status: "subscribed", Subject: subject}
}

func (f *frameFeed) unsubscribe(subject string) wsReply {
	sub, ok := f.subs[subject]
	if !ok {
		return wsReply{Error: "not subscribed to " + subject}
	}
	_ = sub.Unsubscribe()
	delete(f.subs, subject)
	return wsReply{Status: "unsubscribed", Subject: subject}
}

func (f *frameFeed) handle(raw []byte) wsReply {
	var req wsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return wsReply{Error: "invalid JSON"}
	}
	if req.Run != "" && !natsadapter.ValidRunID(req.Run) {
		return wsReply{Error: "invalid run id: " + req.Run}
	}
	switch req.Action {
	case "subscribe":
		return f.subscribe(frameSubject(req.Run))
	case "unsubscribe":
		return f.unsubscribe(frameSubject(req.Run))
	default:
		return wsReply{Error: "unknown action: " + req.Action}
	}
}

func (f *frameFeed) keepAlive(done <-chan struct{}) {
	t := time.NewTicker(wsPingInterval)
	defer t.Stop()
	for {
		select {
		case <-done:
			return
		case <-t.C:
			if err := f.send(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *frameFeed) close() {
	for subject, sub := range f.subs {
		_ = sub.Unsubscribe()
		delete(f.subs, subject)
	}
}

// WebSocketHandler relays computed frames from NATS to the client. A new
// connection follows every run; clients narrow or widen the feed with
// {"action":"subscribe"|"unsubscribe","run":"<run id>"}.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		feed := &frameFeed{
			conn: c,
			nc:   nc,
			log:  slog.With("remote", c.RemoteAddr().String()),
			subs: make(map[string]*nats.Subscription),
		}
		defer feed.close()

		if r := feed.subscribe(natsadapter.FramesWildcard); r.Error != "" {
			feed.log.Error("ws default subscription", "error", r.Error)
			return
		}
		feed.log.Info("ws client connected")

		done := make(chan struct{})
		defer close(done)
		go feed.keepAlive(done)

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				feed.log.Info("ws client disconnected", "subscriptions", len(feed.subs))
				return
			}
			feed.reply(feed.handle(raw))
		}
	}
}
