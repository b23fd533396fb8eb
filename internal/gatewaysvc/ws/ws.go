package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/avvvet/timeline-services/internal/comm"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

const (
	writeWait = 5 * time.Second

	// sendBuffer is how many events may wait for one client before it is
	// dropped.
	sendBuffer = 64
)

type socket struct {
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (sock *socket) close() {
	sock.once.Do(func() {
		close(sock.done)
		sock.conn.Close()
	})
}

// Ws fans record events out to connected websocket clients. Each client has
// its own writer goroutine, so Notify never waits on a socket.
type Ws struct {
	connMap sync.Map // socketId -> *socket
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId string, conn *websocket.Conn) {
	sock := &socket{
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	if old, loaded := s.connMap.Swap(socketId, sock); loaded {
		old.(*socket).close()
	}
	go s.writePump(socketId, sock)
}

func (s *Ws) GetConnection(socketId string) (*websocket.Conn, bool) {
	v, ok := s.connMap.Load(socketId)
	if !ok {
		return nil, false
	}
	return v.(*socket).conn, true
}

// HandleDisconnect forgets the socket and closes its connection.
func (s *Ws) HandleDisconnect(socketId string) {
	if v, ok := s.connMap.LoadAndDelete(socketId); ok {
		v.(*socket).close()
		log.Infof("socket %s removed", socketId)
	}
}

// Count is the number of connected clients.
func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ any) bool {
		n++
		return true
	})
	return n
}

// Notify implements comm.Notifier by queueing the event for every client.
// A client whose queue is full is dropped.
func (s *Ws) Notify(event comm.RecordEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("Error marshal record event %s: %s", event.ID, err)
		return
	}
	payload, err := json.Marshal(comm.WSMessage{Type: "record-event", Data: data})
	if err != nil {
		log.Errorf("Error marshal ws message %s: %s", event.ID, err)
		return
	}

	s.connMap.Range(func(key, value any) bool {
		socketId := key.(string)
		sock := value.(*socket)

		select {
		case sock.send <- payload:
		case <-sock.done:
		default:
			log.Warnf("dropping socket %s: %d events pending", socketId, len(sock.send))
			s.drop(socketId, sock)
		}
		return true
	})
}

// writePump is the only writer of sock.conn.
func (s *Ws) writePump(socketId string, sock *socket) {
	for {
		select {
		case payload := <-sock.send:
			sock.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sock.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Warnf("dropping socket %s: %s", socketId, err)
				s.drop(socketId, sock)
				return
			}
		case <-sock.done:
			return
		}
	}
}

func (s *Ws) drop(socketId string, sock *socket) {
	s.connMap.CompareAndDelete(socketId, sock)
	sock.close()
}
