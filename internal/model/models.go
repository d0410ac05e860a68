// Package model defines the data models for the party recruitment bot.
package model

import (
	"math"
	"time"
)

// SchemaVersion is written into every persisted record.
const SchemaVersion = 1

// PartyStatus is the lifecycle state of a party. It only moves forward.
type PartyStatus string

// Party statuses.
const (
	StatusRecruiting PartyStatus = "recruiting"
	StatusCancelled  PartyStatus = "cancelled"
)

// WaitingRoom is the team number of members not yet assigned to a team.
const WaitingRoom = 0

// Party is a recruitment post for a scheduled group activity.
type Party struct {
	SchemaVersion   int         `json:"schemaVersion"`
	ID              string      `json:"id"`
	Type            string      `json:"type"`
	Title           string      `json:"title"`
	Description     string      `json:"description,omitempty"`
	Requirements    string      `json:"requirements,omitempty"`
	StartTime       string      `json:"startTime"`
	MinScore        int         `json:"minScore"`
	MaxMembers      int         `json:"maxMembers"`
	CreatedBy       string      `json:"createdBy"`
	CreatedByName   string      `json:"createdByName"`
	CreatedAt       time.Time   `json:"createdAt"`
	Status          PartyStatus `json:"status"`
	CancelledAt     *time.Time  `json:"cancelledAt,omitempty"`
	Members         []Member    `json:"members"`
	AnnouncementRef string      `json:"embedMessageId,omitempty"`
}

// Member is a participant of a party.
type Member struct {
	UserID         string      `json:"userId"`
	Username       string      `json:"username"`
	SelectedClass  string      `json:"selectedClass,omitempty"`
	ClassInfo      *ClassInfo  `json:"selectedClassInfo,omitempty"`
	SelectedNation string      `json:"selectedNation,omitempty"`
	NationInfo     *NationInfo `json:"selectedNationInfo,omitempty"`
	Team           int         `json:"team"`
	JoinedAt       time.Time   `json:"joinedAt"`
	Stats          UserStats   `json:"stats"`
}

// MemberIndex returns the position of userID in the member list or -1.
func (p *Party) MemberIndex(userID string) int {
	for i := range p.Members {
		if p.Members[i].UserID == userID {
			return i
		}
	}
	return -1
}

// IsMember reports whether userID has joined the party.
func (p *Party) IsMember(userID string) bool {
	return p.MemberIndex(userID) >= 0
}

// TeamSize counts the members currently assigned to team.
func (p *Party) TeamSize(team int) int {
	n := 0
	for _, m := range p.Members {
		if m.Team == team {
			n++
		}
	}
	return n
}

// IsFull reports whether the member count reached MaxMembers.
func (p *Party) IsFull() bool {
	return len(p.Members) >= p.MaxMembers
}

// IsActive reports whether the party is still recruiting.
func (p *Party) IsActive() bool {
	return p.Status == StatusRecruiting
}

// Clone returns a deep copy so event subscribers never share state with the aggregate.
func (p *Party) Clone() *Party {
	c := *p
	if p.CancelledAt != nil {
		t := *p.CancelledAt
		c.CancelledAt = &t
	}
	c.Members = make([]Member, len(p.Members))
	copy(c.Members, p.Members)
	return &c
}

// MatchResult is one recorded match in a user's history.
type MatchResult struct {
	PartyID    string    `json:"partyId,omitempty"`
	Won        bool      `json:"won"`
	Kills      int       `json:"kills"`
	RecordedAt time.Time `json:"recordedAt"`
}

// UserRecord holds a user's identity snapshot and match statistics.
type UserRecord struct {
	SchemaVersion int           `json:"schemaVersion"`
	ID            string        `json:"id"`
	Username      string        `json:"username,omitempty"`
	Avatar        string        `json:"avatar,omitempty"`
	LastLogin     *time.Time    `json:"lastLogin,omitempty"`
	Wins          int           `json:"wins"`
	Losses        int           `json:"losses"`
	TotalKills    int           `json:"totalKills"`
	Matches       []MatchResult `json:"matches"`
}

// Stats derives the user's statistics from the backing counters.
func (u *UserRecord) Stats() UserStats {
	return ComputeStats(u.Wins, u.Losses, u.TotalKills)
}

// UserStats is the derived statistics view of a user.
type UserStats struct {
	Points     int     `json:"points"`
	WinRate    int     `json:"winRate"`
	AvgKills   float64 `json:"avgKills"`
	TotalGames int     `json:"totalGames"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	TotalKills int     `json:"totalKills"`
}

// Point weights.
const (
	PointsPerWin  = 100
	PointsPerLoss = 50
	PointsPerKill = 1
)

// ComputeStats derives UserStats from raw counters.
// WinRate and AvgKills are zero when no games were played.
func ComputeStats(wins, losses, totalKills int) UserStats {
	stats := UserStats{
		Points:     wins*PointsPerWin + losses*PointsPerLoss + totalKills*PointsPerKill,
		TotalGames: wins + losses,
		Wins:       wins,
		Losses:     losses,
		TotalKills: totalKills,
	}
	if stats.TotalGames > 0 {
		games := float64(stats.TotalGames)
		stats.WinRate = int(math.Round(float64(wins) / games * 100))
		stats.AvgKills = math.Round(float64(totalKills)/games*10) / 10
	}
	return stats
}
