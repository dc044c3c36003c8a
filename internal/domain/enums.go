package domain

import "fmt"

// Role is the account-level access tier.
type Role string

const (
	RoleMember  Role = "Member"
	RoleManager Role = "Manager"
	RoleAdmin   Role = "Admin"
)

// RoleRank orders roles Member < Manager < Admin. Unknown roles rank below
// Member so a corrupted row never gains access.
func RoleRank(r Role) int {
	switch r {
	case RoleMember:
		return 1
	case RoleManager:
		return 2
	case RoleAdmin:
		return 3
	default:
		return 0
	}
}

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleMember, RoleManager, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("invalid role %q", s)
}

// Proficiency is an ordered skill rating.
type Proficiency string

const (
	ProficiencyBeginner     Proficiency = "Beginner"
	ProficiencyIntermediate Proficiency = "Intermediate"
	ProficiencyAdvanced     Proficiency = "Advanced"
	ProficiencyExpert       Proficiency = "Expert"
)

// ProficiencyRank orders Beginner < Intermediate < Advanced < Expert.
func ProficiencyRank(p Proficiency) int {
	switch p {
	case ProficiencyBeginner:
		return 1
	case ProficiencyIntermediate:
		return 2
	case ProficiencyAdvanced:
		return 3
	case ProficiencyExpert:
		return 4
	default:
		return 0
	}
}

func ParseProficiency(s string) (Proficiency, error) {
	switch Proficiency(s) {
	case ProficiencyBeginner, ProficiencyIntermediate, ProficiencyAdvanced, ProficiencyExpert:
		return Proficiency(s), nil
	}
	return "", fmt.Errorf("invalid proficiency %q", s)
}

type MissionStatus string

const (
	MissionProposed  MissionStatus = "Proposed"
	MissionActive    MissionStatus = "Active"
	MissionCompleted MissionStatus = "Completed"
)

func ParseMissionStatus(s string) (MissionStatus, error) {
	switch MissionStatus(s) {
	case MissionProposed, MissionActive, MissionCompleted:
		return MissionStatus(s), nil
	}
	return "", fmt.Errorf("invalid mission status %q", s)
}

type PitchStatus string

const (
	PitchSubmitted PitchStatus = "Submitted"
	PitchAccepted  PitchStatus = "Accepted"
	PitchRejected  PitchStatus = "Rejected"
)

func ParsePitchStatus(s string) (PitchStatus, error) {
	switch PitchStatus(s) {
	case PitchSubmitted, PitchAccepted, PitchRejected:
		return PitchStatus(s), nil
	}
	return "", fmt.Errorf("invalid pitch status %q", s)
}

type InviteStatus string

const (
	InvitePending  InviteStatus = "Pending"
	InviteAccepted InviteStatus = "Accepted"
	InviteDeclined InviteStatus = "Declined"
)

func ParseInviteStatus(s string) (InviteStatus, error) {
	switch InviteStatus(s) {
	case InvitePending, InviteAccepted, InviteDeclined:
		return InviteStatus(s), nil
	}
	return "", fmt.Errorf("invalid invite status %q", s)
}
