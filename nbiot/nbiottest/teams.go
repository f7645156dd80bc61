package nbiottest

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/relabs-tech/nbiot/core/model"
)

func copyTeam(t *model.Team) model.Team {
	c := *t
	c.Members = append([]model.Member(nil), t.Members...)
	return c
}

func (s *Server) listTeams(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := struct {
		Teams []model.Team `json:"teams"`
	}{Teams: []model.Team{}}
	for _, t := range s.teams {
		list.Teams = append(list.Teams, copyTeam(t))
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createTeam(w http.ResponseWriter, r *http.Request) {
	var team model.Team
	if !readJSON(w, r, &team) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	team.ID = uuid.New().String()
	team.Members = []model.Member{{UserID: UserID, Role: model.RoleAdmin}}
	s.teams[team.ID] = &team
	writeJSON(w, http.StatusCreated, copyTeam(&team))
}

func (s *Server) getTeam(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["team"]
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		notFound(w, "team", id)
		return
	}
	writeJSON(w, http.StatusOK, copyTeam(t))
}

func (s *Server) updateTeam(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["team"]
	var update model.Team
	if !readJSON(w, r, &update) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[id]
	if !ok {
		notFound(w, "team", id)
		return
	}
	t.Tags = mergeTags(t.Tags, update.Tags)
	writeJSON(w, http.StatusOK, copyTeam(t))
}

func (s *Server) deleteTeam(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["team"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		notFound(w, "team", id)
		return
	}
	if id == s.privateTeamID {
		http.Error(w, "cannot delete private team", http.StatusForbidden)
		return
	}
	for _, c := range s.collections {
		if c.TeamID == id {
			http.Error(w, "team owns collection "+c.ID, http.StatusConflict)
			return
		}
	}
	delete(s.teams, id)
	delete(s.invites, id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteTeamTag(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[vars["team"]]
	if !ok {
		notFound(w, "team", vars["team"])
		return
	}
	t.Tags = deleteTag(t.Tags, vars["name"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) updateMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var update model.Member
	if !readJSON(w, r, &update) {
		return
	}
	if update.Role != model.RoleAdmin && update.Role != model.RoleMember {
		http.Error(w, "invalid role '"+update.Role+"'", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[vars["team"]]
	if !ok {
		notFound(w, "team", vars["team"])
		return
	}
	for i := range t.Members {
		if t.Members[i].UserID == vars["user"] {
			t.Members[i].Role = update.Role
			writeJSON(w, http.StatusOK, t.Members[i])
			return
		}
	}
	notFound(w, "member", vars["user"])
}

func (s *Server) deleteMember(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.teams[vars["team"]]
	if !ok {
		notFound(w, "team", vars["team"])
		return
	}
	for i := range t.Members {
		if t.Members[i].UserID == vars["user"] {
			t.Members = append(t.Members[:i:i], t.Members[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	notFound(w, "member", vars["user"])
}

func (s *Server) listInvites(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["team"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		notFound(w, "team", id)
		return
	}
	list := struct {
		Invites []model.Invite `json:"invites"`
	}{Invites: []model.Invite{}}
	for _, i := range s.invites[id] {
		list.Invites = append(list.Invites, i)
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) createInvite(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["team"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.teams[id]; !ok {
		notFound(w, "team", id)
		return
	}
	invite := model.Invite{Code: uuid.New().String(), CreatedAt: now()}
	if s.invites[id] == nil {
		s.invites[id] = make(map[string]model.Invite)
	}
	s.invites[id][invite.Code] = invite
	writeJSON(w, http.StatusCreated, invite)
}

func (s *Server) getInvite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	invite, ok := s.invites[vars["team"]][vars["code"]]
	if !ok {
		notFound(w, "invite", vars["code"])
		return
	}
	writeJSON(w, http.StatusOK, invite)
}

func (s *Server) deleteInvite(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.invites[vars["team"]][vars["code"]]; !ok {
		notFound(w, "invite", vars["code"])
		return
	}
	delete(s.invites[vars["team"]], vars["code"])
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) acceptInvite(w http.ResponseWriter, r *http.Request) {
	var accept model.Invite
	if !readJSON(w, r, &accept) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for teamID, invites := range s.invites {
		if _, ok := invites[accept.Code]; !ok {
			continue
		}
		delete(invites, accept.Code)
		t := s.teams[teamID]
		member := false
		for _, m := range t.Members {
			member = member || m.UserID == UserID
		}
		if !member {
			t.Members = append(t.Members, model.Member{UserID: UserID, Role: model.RoleMember})
		}
		writeJSON(w, http.StatusOK, copyTeam(t))
		return
	}
	notFound(w, "invite", accept.Code)
}
