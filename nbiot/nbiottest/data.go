package nbiottest

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/relabs-tech/nbiot/core/model"
)

// now returns the current time with the millisecond precision of the wire format
func now() time.Time {
	return time.UnixMilli(time.Now().UnixMilli()).UTC()
}

func parseMillis(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.UnixMilli(ms).UTC(), nil
}

func parseQuery(r *http.Request) (model.DataQuery, error) {
	var q model.DataQuery
	var err error
	values := r.URL.Query()
	if q.Since, err = parseMillis(values.Get("since")); err != nil {
		return q, err
	}
	if q.Until, err = parseMillis(values.Get("until")); err != nil {
		return q, err
	}
	if l := values.Get("limit"); l != "" {
		if q.Limit, err = strconv.Atoi(l); err != nil {
			return q, err
		}
	}
	return q, q.Validate()
}

// filterMessages returns the messages matching q, newest first
func filterMessages(messages []model.DataMessage, deviceID string, q model.DataQuery) []model.DataMessage {
	result := []model.DataMessage{}
	for i := len(messages) - 1; i >= 0; i-- {
		m := messages[i]
		if deviceID != "" && m.Device.ID != deviceID {
			continue
		}
		if !q.Since.IsZero() && m.Received.Before(q.Since) {
			continue
		}
		if !q.Until.IsZero() && m.Received.After(q.Until) {
			continue
		}
		result = append(result, m)
		if q.Limit > 0 && len(result) == q.Limit {
			break
		}
	}
	return result
}

func (s *Server) writeMessages(w http.ResponseWriter, r *http.Request, deviceID string) {
	q, err := parseQuery(r)
	if err != nil {
		http.Error(w, "invalid query: "+err.Error(), http.StatusBadRequest)
		return
	}
	list := struct {
		Messages []model.DataMessage `json:"messages"`
	}{Messages: filterMessages(s.messages[mux.Vars(r)["collection"]], deviceID, q)}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) collectionData(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		notFound(w, "collection", id)
		return
	}
	s.writeMessages(w, r, "")
}

func (s *Server) deviceData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.lookupDevice(w, r); d != nil {
		s.writeMessages(w, r, d.ID)
	}
}

func (s *Server) send(w http.ResponseWriter, r *http.Request) {
	var message model.DownstreamMessage
	if !readJSON(w, r, &message) {
		return
	}
	if err := message.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}
	if reason, ok := s.unreachable[d.ID]; ok {
		http.Error(w, reason, http.StatusConflict)
		return
	}
	s.sent = append(s.sent, Downstream{CollectionID: d.CollectionID, DeviceID: d.ID, Message: message})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) broadcast(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	var message model.DownstreamMessage
	if !readJSON(w, r, &message) {
		return
	}
	if err := message.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	devices, ok := s.devices[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	result := model.BroadcastResult{}
	for _, d := range devices {
		if reason, ok := s.unreachable[d.ID]; ok {
			result.Failed++
			result.Errors = append(result.Errors, model.BroadcastError{DeviceID: d.ID, Message: reason})
			continue
		}
		result.Sent++
		s.sent = append(s.sent, Downstream{CollectionID: id, DeviceID: d.ID, Message: message})
	}
	writeJSON(w, http.StatusOK, result)
}

// SetUnreachable makes messages to a device fail with reason. An empty reason makes the
// device reachable again.
func (s *Server) SetUnreachable(deviceID, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if reason == "" {
		delete(s.unreachable, deviceID)
		return
	}
	s.unreachable[deviceID] = reason
}

// Sent returns all messages the server accepted for devices, in order
func (s *Server) Sent() []Downstream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Downstream(nil), s.sent...)
}
