package protocol

import (
	"io"
	"sync"

	"losslab/engine"

	"golang.org/x/net/websocket"
)

// WSServer answers JSON frames from any number of websocket connections
// against one shared session. Requests are serialised by mu.
type WSServer struct {
	mu      sync.Mutex
	session *engine.Session
	logf    func(format string, args ...interface{})
}

func NewWSServer(s *engine.Session, logf func(format string, args ...interface{})) *WSServer {
	return &WSServer{session: s, logf: logf}
}

// Handler returns the websocket handler to mount on an HTTP mux.
func (w *WSServer) Handler() websocket.Handler {
	return websocket.Handler(w.serve)
}

func (w *WSServer) serve(ws *websocket.Conn) {
	defer ws.Close()
	peer := ws.Request().RemoteAddr
	w.logf("browser connected: %s", peer)

	for {
		var data string
		if err := websocket.Message.Receive(ws, &data); err != nil {
			if err != io.EOF {
				w.logf("read error from %s: %v", peer, err)
			}
			w.logf("browser disconnected: %s", peer)
			return
		}

		var resp *Message
		req, err := DecodeJSON([]byte(data))
		switch {
		case err != nil:
			resp = &Message{Type: MsgError, Payload: err.Error()}
		case req.Type == MsgDone:
			return
		default:
			w.mu.Lock()
			resp = Dispatch(w.session, req)
			w.mu.Unlock()
		}

		out, err := EncodeJSON(resp)
		if err != nil {
			out, _ = EncodeJSON(&Message{Type: MsgError, Payload: err.Error()})
		}
		if err := websocket.Message.Send(ws, string(out)); err != nil {
			w.logf("write error to %s: %v", peer, err)
			return
		}
	}
}
