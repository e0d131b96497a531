// internal/domain/models/roles.go
package models

// TroopRole is the role a user holds within a specific troop.
// A user may hold different roles in different troops, and more than
// one role in the same troop.
type TroopRole string

const (
	RoleScoutmaster          TroopRole = "SCOUTMASTER"
	RoleAssistantScoutmaster TroopRole = "ASSISTANT_SCOUTMASTER"
	RoleCommitteeChair       TroopRole = "COMMITTEE_CHAIR"
	RoleCommitteeMember      TroopRole = "COMMITTEE_MEMBER"
	RoleParent               TroopRole = "PARENT"
	RoleCharteredOrgRep      TroopRole = "CHARTERED_ORG_REP"
	RoleYouthLeader          TroopRole = "YOUTH_LEADER"
	RoleAdmin                TroopRole = "ADMIN"
)

// TroopRoles lists every valid troop role.
var TroopRoles = []TroopRole{
	RoleScoutmaster,
	RoleAssistantScoutmaster,
	RoleCommitteeChair,
	RoleCommitteeMember,
	RoleParent,
	RoleCharteredOrgRep,
	RoleYouthLeader,
	RoleAdmin,
}

// IsValidTroopRole reports whether r is one of the defined troop roles.
func IsValidTroopRole(r TroopRole) bool {
	for _, v := range TroopRoles {
		if r == v {
			return true
		}
	}
	return false
}

// LeadershipRoles are the roles allowed to manage a troop's membership,
// scouts, and settings.
var LeadershipRoles = []TroopRole{
	RoleScoutmaster,
	RoleAssistantScoutmaster,
	RoleCommitteeChair,
	RoleAdmin,
}
