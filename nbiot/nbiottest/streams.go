package nbiottest

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/nbiot/core/logger"
	"github.com/relabs-tech/nbiot/core/model"
)

const writeTimeout = 5 * time.Second

type streamConn struct {
	conn         *websocket.Conn
	collectionID string
	deviceID     string

	mu sync.Mutex
}

func (sc *streamConn) matches(m model.DataMessage) bool {
	return sc.collectionID == m.Device.CollectionID && (sc.deviceID == "" || sc.deviceID == m.Device.ID)
}

func (sc *streamConn) write(messageType int, data []byte) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return sc.conn.WriteMessage(messageType, data)
}

func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	rlog := logger.FromContext(r.Context())

	s.mu.Lock()
	if _, ok := vars["device"]; ok {
		if s.lookupDevice(w, r) == nil {
			s.mu.Unlock()
			return
		}
	} else if _, ok := s.collections[vars["collection"]]; !ok {
		s.mu.Unlock()
		notFound(w, "collection", vars["collection"])
		return
	}
	s.mu.Unlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		rlog.WithError(err).Warn("cannot upgrade output stream")
		return
	}
	sc := &streamConn{conn: conn, collectionID: vars["collection"], deviceID: vars["device"]}

	s.mu.Lock()
	s.streams[sc] = struct{}{}
	s.mu.Unlock()
	rlog.Debugf("output stream %s connected", r.URL.Path)

	defer func() {
		s.mu.Lock()
		delete(s.streams, sc)
		s.mu.Unlock()
		conn.Close()
		rlog.Debugf("output stream %s disconnected", r.URL.Path)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) broadcastFrame(frame []byte, match func(*streamConn) bool) {
	s.mu.Lock()
	var targets []*streamConn
	for sc := range s.streams {
		if match == nil || match(sc) {
			targets = append(targets, sc)
		}
	}
	s.mu.Unlock()

	for _, sc := range targets {
		if err := sc.write(websocket.TextMessage, frame); err != nil {
			logger.Default().WithError(err).Warn("cannot write to output stream")
		}
	}
}

// Publish stores m as data of its device and sends it to every output stream of the
// device's collection or of the device itself.
func (s *Server) Publish(m model.DataMessage) {
	frame, err := json.Marshal(m)
	if err != nil {
		panic(err)
	}
	s.mu.Lock()
	cid := m.Device.CollectionID
	s.messages[cid] = append(s.messages[cid], m)
	s.countOutputs(cid)
	s.mu.Unlock()

	s.broadcastFrame(frame, func(sc *streamConn) bool { return sc.matches(m) })
}

// PublishPayload publishes payload as received now from an existing device
func (s *Server) PublishPayload(collectionID, deviceID string, payload []byte) (model.DataMessage, error) {
	s.mu.Lock()
	d, ok := s.devices[collectionID][deviceID]
	var device model.Device
	if ok {
		device = *d
	}
	s.mu.Unlock()
	if !ok {
		return model.DataMessage{}, fmt.Errorf("device %s not found in collection %s", deviceID, collectionID)
	}
	m := model.DataMessage{Device: device, Payload: payload, Received: now()}
	s.Publish(m)
	return m, nil
}

// KeepAlive sends a keep-alive frame to all output streams
func (s *Server) KeepAlive() {
	s.broadcastFrame([]byte(`{"keepAlive":true}`), nil)
}

// SendRaw sends frame unchanged to all output streams
func (s *Server) SendRaw(frame string) {
	s.broadcastFrame([]byte(frame), nil)
}

// DisconnectStreams closes all output streams from the server side
func (s *Server) DisconnectStreams() {
	s.mu.Lock()
	var targets []*streamConn
	for sc := range s.streams {
		targets = append(targets, sc)
	}
	s.mu.Unlock()

	for _, sc := range targets {
		sc.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "server disconnect"))
		sc.conn.Close()
	}
}

// StreamCount returns the number of connected output streams
func (s *Server) StreamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// AwaitStreams waits until at least n output streams are connected. A client returns
// from opening a stream before the server has registered it, so tests call AwaitStreams
// before they publish.
func (s *Server) AwaitStreams(n int, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for s.StreamCount() < n {
		if time.Now().After(deadline) {
			return fmt.Errorf("%d output streams connected, expected %d", s.StreamCount(), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
	return nil
}
