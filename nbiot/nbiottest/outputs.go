package nbiottest

import (
	"errors"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/nbiot/core/logger"
	"github.com/relabs-tech/nbiot/core/model"
)

// readOutput decodes an output of any type from the request body and writes a 400
// response if that is not possible
func readOutput(w http.ResponseWriter, r *http.Request) model.Output {
	body, err := io.ReadAll(r.Body)
	if err == nil {
		var o model.Output
		if o, err = model.UnmarshalOutput(body); err == nil {
			return o
		}
	}
	var unknown *model.UnknownOutputTypeError
	if errors.As(err, &unknown) {
		http.Error(w, unknown.Error(), http.StatusBadRequest)
		return nil
	}
	logger.FromContext(r.Context()).WithError(err).Warn("invalid output")
	http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
	return nil
}

// lookupOutput returns the output addressed by the route. It writes a 404 response if
// the collection or the output does not exist. Must be called with s.mu held.
func (s *Server) lookupOutput(w http.ResponseWriter, r *http.Request) model.Output {
	vars := mux.Vars(r)
	outputs, ok := s.outputs[vars["collection"]]
	if !ok {
		notFound(w, "collection", vars["collection"])
		return nil
	}
	o, ok := outputs[vars["output"]]
	if !ok {
		notFound(w, "output", vars["output"])
		return nil
	}
	return o
}

func (s *Server) listOutputs(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs, ok := s.outputs[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	list := struct {
		Outputs []model.Output `json:"outputs"`
	}{Outputs: []model.Output{}}
	for _, o := range outputs {
		list.Outputs = append(list.Outputs, o)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createOutput(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["collection"]
	o := readOutput(w, r)
	if o == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	outputs, ok := s.outputs[id]
	if !ok {
		notFound(w, "collection", id)
		return
	}
	base := o.Base()
	base.ID = uuid.New().String()
	base.CollectionID = id
	outputs[base.ID] = o
	s.outputStatus[base.ID] = &model.OutputStatus{}
	writeJSON(w, http.StatusCreated, o)
}

func (s *Server) getOutput(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o := s.lookupOutput(w, r); o != nil {
		writeJSON(w, http.StatusOK, o)
	}
}

func (s *Server) updateOutput(w http.ResponseWriter, r *http.Request) {
	update := readOutput(w, r)
	if update == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookupOutput(w, r)
	if o == nil {
		return
	}
	if update.Type() != o.Type() {
		http.Error(w, "cannot change the type of an output", http.StatusBadRequest)
		return
	}
	base := update.Base()
	base.ID = o.Base().ID
	base.CollectionID = o.Base().CollectionID
	base.Tags = mergeTags(o.Base().Tags, base.Tags)
	s.outputs[base.CollectionID][base.ID] = update
	writeJSON(w, http.StatusOK, update)
}

func (s *Server) deleteOutput(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookupOutput(w, r)
	if o == nil {
		return
	}
	base := o.Base()
	delete(s.outputs[base.CollectionID], base.ID)
	delete(s.outputLogs, base.ID)
	delete(s.outputStatus, base.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteOutputTag(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookupOutput(w, r)
	if o == nil {
		return
	}
	o.Base().Tags = deleteTag(o.Base().Tags, mux.Vars(r)["name"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) getOutputLogs(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookupOutput(w, r)
	if o == nil {
		return
	}
	logs := s.outputLogs[o.Base().ID]
	if logs == nil {
		logs = []model.OutputLogEntry{}
	}
	writeJSON(w, http.StatusOK, logs)
}

func (s *Server) getOutputStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o := s.lookupOutput(w, r)
	if o == nil {
		return
	}
	writeJSON(w, http.StatusOK, s.outputStatus[o.Base().ID])
}

// AddOutputLog appends entry to the log of an output and counts it as an error
func (s *Server) AddOutputLog(outputID string, entry model.OutputLogEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.outputLogs[outputID] = append(s.outputLogs[outputID], entry)
	if status, ok := s.outputStatus[outputID]; ok {
		status.ErrorCount++
	}
}

// countOutputs updates the status of the outputs of a collection for a published
// message. Must be called with s.mu held.
func (s *Server) countOutputs(collectionID string) {
	for id, o := range s.outputs[collectionID] {
		status := s.outputStatus[id]
		status.Received++
		if o.Base().Enabled {
			status.Forwarded++
		}
	}
}
