// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package nbiot

import (
	"github.com/relabs-tech/nbiot/core/model"
)

// Teams returns all teams the token has access to
func (c *Client) Teams() ([]model.Team, error) {
	var list struct {
		Teams []model.Team `json:"teams"`
	}
	err := c.get("/teams", &list)
	return list.Teams, err
}

// Team returns the team with id
func (c *Client) Team(id string) (model.Team, error) {
	var team model.Team
	err := c.get(resourcePath("teams", id), &team)
	return team, err
}

// CreateTeam creates a team and returns it as stored by the API
func (c *Client) CreateTeam(team model.Team) (model.Team, error) {
	var created model.Team
	err := c.create("/teams", team, &created)
	return created, err
}

// UpdateTeam updates the team with team.ID
func (c *Client) UpdateTeam(team model.Team) (model.Team, error) {
	var updated model.Team
	err := c.update(resourcePath("teams", team.ID), team, &updated)
	return updated, err
}

// DeleteTeam deletes a team
func (c *Client) DeleteTeam(id string) error {
	return c.delete(resourcePath("teams", id))
}

// DeleteTeamTag removes the tag name from a team
func (c *Client) DeleteTeamTag(id, name string) error {
	return c.delete(resourcePath("teams", id, "tags", name))
}

// UpdateTeamMember changes the role of a member of a team
func (c *Client) UpdateTeamMember(teamID string, member model.Member) (model.Member, error) {
	var updated model.Member
	err := c.update(resourcePath("teams", teamID, "members", member.UserID), member, &updated)
	return updated, err
}

// DeleteTeamMember removes a member from a team
func (c *Client) DeleteTeamMember(teamID, userID string) error {
	return c.delete(resourcePath("teams", teamID, "members", userID))
}

// Invites returns the open invites of a team
func (c *Client) Invites(teamID string) ([]model.Invite, error) {
	var list struct {
		Invites []model.Invite `json:"invites"`
	}
	err := c.get(resourcePath("teams", teamID, "invites"), &list)
	return list.Invites, err
}

// Invite returns the invite with code
func (c *Client) Invite(teamID, code string) (model.Invite, error) {
	var invite model.Invite
	err := c.get(resourcePath("teams", teamID, "invites", code), &invite)
	return invite, err
}

// CreateInvite creates a new invite for a team
func (c *Client) CreateInvite(teamID string) (model.Invite, error) {
	var invite model.Invite
	err := c.create(resourcePath("teams", teamID, "invites"), struct{}{}, &invite)
	return invite, err
}

// AcceptInvite adds the user of the token to the team of the invite and returns the team
func (c *Client) AcceptInvite(code string) (model.Team, error) {
	var team model.Team
	err := c.create("/teams/accept", model.Invite{Code: code}, &team)
	return team, err
}

// DeleteInvite revokes an invite
func (c *Client) DeleteInvite(teamID, code string) error {
	return c.delete(resourcePath("teams", teamID, "invites", code))
}
