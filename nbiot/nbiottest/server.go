// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

/*
Package nbiottest provides an in-memory fake of the NB-IoT API for tests.

The server implements the REST resources and the output streams of the API on a mux
router and serves them on a local httptest server:

	server := nbiottest.NewServer("secret")
	defer server.Close()

	client, err := nbiot.New(&nbiot.Builder{Address: server.URL(), Token: "secret"})

Tests drive the output streams with Publish, KeepAlive, SendRaw and DisconnectStreams.
*/
package nbiottest

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/nbiot/core/logger"
	"github.com/relabs-tech/nbiot/core/model"
)

// UserID is the id of the user the token of the server belongs to
const UserID = "nbiottest-user"

// Server is a fake of the NB-IoT API
type Server struct {
	// Token is the only token the server accepts
	Token string
	// Router serves all resources of the API. It can be used in-process with a client
	// built on the router.
	Router *mux.Router

	server   *httptest.Server
	upgrader websocket.Upgrader

	mu             sync.Mutex
	privateTeamID  string
	systemDefaults model.SystemDefaults
	teams          map[string]*model.Team
	invites        map[string]map[string]model.Invite
	collections    map[string]*model.Collection
	devices        map[string]map[string]*model.Device
	outputs        map[string]map[string]model.Output
	outputLogs     map[string][]model.OutputLogEntry
	outputStatus   map[string]*model.OutputStatus
	messages       map[string][]model.DataMessage
	sent           []Downstream
	unreachable    map[string]string
	streams        map[*streamConn]struct{}
}

// Downstream is a message the server received for a device
type Downstream struct {
	CollectionID string
	DeviceID     string
	Message      model.DownstreamMessage
}

// NewServer creates and starts a fake API which accepts token. The caller must call
// Close when done.
func NewServer(token string) *Server {
	s := &Server{
		Token:  token,
		Router: mux.NewRouter(),
		systemDefaults: model.SystemDefaults{
			DefaultFieldMask: model.FieldMask{IMSI: true, IMEI: true},
			ForcedFieldMask:  model.FieldMask{MSISDN: true},
		},
		teams:        make(map[string]*model.Team),
		invites:      make(map[string]map[string]model.Invite),
		collections:  make(map[string]*model.Collection),
		devices:      make(map[string]map[string]*model.Device),
		outputs:      make(map[string]map[string]model.Output),
		outputLogs:   make(map[string][]model.OutputLogEntry),
		outputStatus: make(map[string]*model.OutputStatus),
		messages:     make(map[string][]model.DataMessage),
		unreachable:  make(map[string]string),
		streams:      make(map[*streamConn]struct{}),
	}

	private := &model.Team{
		ID:      uuid.New().String(),
		Members: []model.Member{{UserID: UserID, Role: model.RoleAdmin}},
		Tags:    map[string]string{"name": "private"},
	}
	s.teams[private.ID] = private
	s.privateTeamID = private.ID

	logger.AddRequestID(s.Router)
	s.handleCompression()
	s.handleAuthentication()
	s.handleRoutes()

	s.server = httptest.NewServer(s.Router)
	return s
}

// URL returns the base address of the server
func (s *Server) URL() string {
	return s.server.URL
}

// PrivateTeamID returns the id of the team collections are created in if no team is given
func (s *Server) PrivateTeamID() string {
	return s.privateTeamID
}

// Close disconnects all streams and shuts down the server
func (s *Server) Close() {
	s.DisconnectStreams()
	s.server.Close()
}

func (s *Server) handleRoutes() {
	r := s.Router

	r.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}).Methods(http.MethodGet)

	r.HandleFunc("/system", s.getSystemDefaults).Methods(http.MethodGet)

	r.HandleFunc("/teams", s.listTeams).Methods(http.MethodGet)
	r.HandleFunc("/teams", s.createTeam).Methods(http.MethodPost)
	r.HandleFunc("/teams/accept", s.acceptInvite).Methods(http.MethodPost)
	r.HandleFunc("/teams/{team}", s.getTeam).Methods(http.MethodGet)
	r.HandleFunc("/teams/{team}", s.updateTeam).Methods(http.MethodPatch)
	r.HandleFunc("/teams/{team}", s.deleteTeam).Methods(http.MethodDelete)
	r.HandleFunc("/teams/{team}/tags/{name}", s.deleteTeamTag).Methods(http.MethodDelete)
	r.HandleFunc("/teams/{team}/members/{user}", s.updateMember).Methods(http.MethodPatch)
	r.HandleFunc("/teams/{team}/members/{user}", s.deleteMember).Methods(http.MethodDelete)
	r.HandleFunc("/teams/{team}/invites", s.listInvites).Methods(http.MethodGet)
	r.HandleFunc("/teams/{team}/invites", s.createInvite).Methods(http.MethodPost)
	r.HandleFunc("/teams/{team}/invites/{code}", s.getInvite).Methods(http.MethodGet)
	r.HandleFunc("/teams/{team}/invites/{code}", s.deleteInvite).Methods(http.MethodDelete)

	r.HandleFunc("/collections", s.listCollections).Methods(http.MethodGet)
	r.HandleFunc("/collections", s.createCollection).Methods(http.MethodPost)
	r.HandleFunc("/collections/{collection}", s.getCollection).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}", s.updateCollection).Methods(http.MethodPatch)
	r.HandleFunc("/collections/{collection}", s.deleteCollection).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collection}/tags/{name}", s.deleteCollectionTag).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collection}/data", s.collectionData).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/to", s.broadcast).Methods(http.MethodPost)
	r.HandleFunc("/collections/{collection}/from", s.stream).Methods(http.MethodGet)

	r.HandleFunc("/collections/{collection}/devices", s.listDevices).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/devices", s.createDevice).Methods(http.MethodPost)
	r.HandleFunc("/collections/{collection}/devices/{device}", s.getDevice).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/devices/{device}", s.updateDevice).Methods(http.MethodPatch)
	r.HandleFunc("/collections/{collection}/devices/{device}", s.deleteDevice).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collection}/devices/{device}/tags/{name}", s.deleteDeviceTag).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collection}/devices/{device}/data", s.deviceData).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/devices/{device}/to", s.send).Methods(http.MethodPost)
	r.HandleFunc("/collections/{collection}/devices/{device}/from", s.stream).Methods(http.MethodGet)

	r.HandleFunc("/collections/{collection}/outputs", s.listOutputs).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/outputs", s.createOutput).Methods(http.MethodPost)
	r.HandleFunc("/collections/{collection}/outputs/{output}", s.getOutput).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/outputs/{output}", s.updateOutput).Methods(http.MethodPatch)
	r.HandleFunc("/collections/{collection}/outputs/{output}", s.deleteOutput).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collection}/outputs/{output}/tags/{name}", s.deleteOutputTag).Methods(http.MethodDelete)
	r.HandleFunc("/collections/{collection}/outputs/{output}/logs", s.getOutputLogs).Methods(http.MethodGet)
	r.HandleFunc("/collections/{collection}/outputs/{output}/status", s.getOutputStatus).Methods(http.MethodGet)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(body)
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		logger.FromContext(r.Context()).WithError(err).Warnf("invalid body in %s %s", r.Method, r.URL.Path)
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func notFound(w http.ResponseWriter, kind, id string) {
	http.Error(w, kind+" "+id+" not found", http.StatusNotFound)
}

// mergeTags returns existing with the tags of update applied. Empty values remove a tag.
func mergeTags(existing, update map[string]string) map[string]string {
	if len(update) == 0 {
		return existing
	}
	merged := make(map[string]string, len(existing)+len(update))
	for k, v := range existing {
		merged[k] = v
	}
	for k, v := range update {
		if strings.TrimSpace(v) == "" {
			delete(merged, k)
			continue
		}
		merged[k] = v
	}
	return merged
}

func deleteTag(tags map[string]string, name string) map[string]string {
	if _, ok := tags[name]; !ok {
		return tags
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		if k != name {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
