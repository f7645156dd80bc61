// Copyright 2021 Dalarub & Ettrich GmbH - All Rights Reserved
// Unauthorized copying of this file, via any medium is strictly prohibited
// Proprietary and confidential
// info@dalarub.com
//

package model

import (
	"time"

	"github.com/goccy/go-json"
)

// Team is a group of users sharing collections
type Team struct {
	ID      string            `json:"teamId,omitempty"`
	Members []Member          `json:"members,omitempty"`
	Tags    map[string]string `json:"tags,omitempty"`
}

// Member is a user in a team
type Member struct {
	UserID string `json:"userId"`
	Role   string `json:"role,omitempty"`
	Name   string `json:"name,omitempty"`
	Email  string `json:"email,omitempty"`
}

// Member roles
const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

// Invite is an invitation to join a team
type Invite struct {
	Code      string
	CreatedAt time.Time
}

type inviteWire struct {
	Code      string `json:"code"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// MarshalJSON is a custom JSON marshaller
func (i Invite) MarshalJSON() ([]byte, error) {
	return json.Marshal(inviteWire{Code: i.Code, CreatedAt: toMillis(i.CreatedAt)})
}

// UnmarshalJSON is a custom JSON unmarshaller
func (i *Invite) UnmarshalJSON(data []byte) error {
	var w inviteWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*i = Invite{Code: w.Code, CreatedAt: fromMillis(w.CreatedAt)}
	return nil
}

// Collection groups devices and outputs
type Collection struct {
	ID        string            `json:"collectionId,omitempty"`
	TeamID    string            `json:"teamId,omitempty"`
	FieldMask *FieldMask        `json:"fieldMask,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
}

// FieldMask limits which device attributes are exposed to consumers of a
// collection. A true value masks the attribute.
type FieldMask struct {
	IMSI     bool `json:"imsi"`
	IMEI     bool `json:"imei"`
	Location bool `json:"location"`
	MSISDN   bool `json:"msisdn"`
}

// Device is a NB-IoT device
type Device struct {
	ID           string            `json:"deviceId,omitempty"`
	CollectionID string            `json:"collectionId,omitempty"`
	IMSI         string            `json:"imsi,omitempty"`
	IMEI         string            `json:"imei,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
}

// SystemDefaults are the system wide settings of the API
type SystemDefaults struct {
	DefaultFieldMask FieldMask `json:"defaultFieldMask"`
	ForcedFieldMask  FieldMask `json:"forcedFieldMask"`
}

func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
