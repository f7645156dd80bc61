package nbiottest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/nbiot/core/model"
)

func copyCollection(c *model.Collection) model.Collection {
	cc := *c
	if c.FieldMask != nil {
		fm := *c.FieldMask
		cc.FieldMask = &fm
	}
	return cc
}

func (s *Server) getSystemDefaults(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.systemDefaults)
}

func (s *Server) listCollections(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := struct {
		Collections []model.Collection `json:"collections"`
	}{Collections: []model.Collection{}}
	for _, c := range s.collections {
		list.Collections = append(list.Collections, copyCollection(c))
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createCollection(w http.ResponseWriter, r *http.Request) {
	var collection model.Collection
	if !readJSON(w, r, &collection) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if collection.TeamID == "" {
		collection.TeamID = s.privateTeamID
	}
	if _, ok := s.teams[collection.TeamID]; !ok {
		notFound(w, "team", collection.TeamID)
		return
	}
	if collection.FieldMask == nil {
		fm := s.systemDefaults.DefaultFieldMask
		collection.FieldMask = &fm
	}
	collection.ID = uuid.New().String()
	s.collections[collection.ID] = &collection
	s.devices[collection.ID] = make(map[string]*model.Device)
	s.outputs[collection.ID] = make(map[string]model.Output)
	writeJSON(w, http.StatusCreated, copyCollection(&collection))
}

func (s *Server) getCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	writeJSON(w, http.StatusOK, copyCollection(c))
}

func (s *Server) updateCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	var update model.Collection
	if !readJSON(w, r, &update) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	if update.TeamID != "" {
		if _, ok := s.teams[update.TeamID]; !ok {
			notFound(w, "team", update.TeamID)
			return
		}
		c.TeamID = update.TeamID
	}
	if update.FieldMask != nil {
		fm := *update.FieldMask
		c.FieldMask = &fm
	}
	c.Tags = mergeTags(c.Tags, update.Tags)
	writeJSON(w, http.StatusOK, copyCollection(c))
}

func (s *Server) deleteCollection(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.collections[id]; !ok {
		notFound(w, "collection", id)
		return
	}
	for outputID := range s.outputs[id] {
		delete(s.outputLogs, outputID)
		delete(s.outputStatus, outputID)
	}
	delete(s.collections, id)
	delete(s.devices, id)
	delete(s.outputs, id)
	delete(s.messages, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteCollectionTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.collections[vars["collection"]]
	if !ok {
		notFound(w, "collection", vars["collection"])
		return
	}
	c.Tags = deleteTag(c.Tags, vars["name"])
	w.WriteHeader(http.StatusNoContent)
}

// lookupDevice returns the device addressed by the route. It writes a 404 response if
// the collection or the device does not exist. Must be called with s.mu held.
func (s *Server) lookupDevice(w http.ResponseWriter, r *http.Request) *model.Device {
	vars := mux.Vars(r)
	devices, ok := s.devices[vars["collection"]]
	if !ok {
		notFound(w, "collection", vars["collection"])
		return nil
	}
	d, ok := devices[vars["device"]]
	if !ok {
		notFound(w, "device", vars["device"])
		return nil
	}
	return d
}

func (s *Server) listDevices(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	devices, ok := s.devices[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	list := struct {
		Devices []model.Device `json:"devices"`
	}{Devices: []model.Device{}}
	for _, d := range devices {
		list.Devices = append(list.Devices, *d)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createDevice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	var device model.Device
	if !readJSON(w, r, &device) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	devices, ok := s.devices[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	device.ID = uuid.New().String()
	device.CollectionID = id
	devices[device.ID] = &device
	writeJSON(w, http.StatusCreated, device)
}

func (s *Server) getDevice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d := s.lookupDevice(w, r); d != nil {
		writeJSON(w, http.StatusOK, *d)
	}
}

func (s *Server) updateDevice(w http.ResponseWriter, r *http.Request) {
	var update model.Device
	if !readJSON(w, r, &update) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}
	if update.CollectionID != "" && update.CollectionID != d.CollectionID {
		target, ok := s.devices[update.CollectionID]
		if !ok {
			notFound(w, "collection", update.CollectionID)
			return
		}
		delete(s.devices[d.CollectionID], d.ID)
		d.CollectionID = update.CollectionID
		target[d.ID] = d
	}
	if update.IMSI != "" {
		d.IMSI = update.IMSI
	}
	if update.IMEI != "" {
		d.IMEI = update.IMEI
	}
	d.Tags = mergeTags(d.Tags, update.Tags)
	writeJSON(w, http.StatusOK, *d)
}

func (s *Server) deleteDevice(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}
	delete(s.devices[d.CollectionID], d.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteDeviceTag(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.lookupDevice(w, r)
	if d == nil {
		return
	}
	d.Tags = deleteTag(d.Tags, mux.Vars(r)["name"])
	w.WriteHeader(http.StatusNoContent)
}
