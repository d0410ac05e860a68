package model

// PartyType describes an activity kind and its team layout.
type PartyType struct {
	Key        string `json:"key"`
	Name       string `json:"name"`
	Icon       string `json:"icon"`
	Color      int    `json:"color"`
	Teams      int    `json:"teams"`
	MaxPerTeam int    `json:"maxPerTeam"`
}

// MaxMembers returns the total capacity of a party of this type.
func (t PartyType) MaxMembers() int {
	return t.Teams * t.MaxPerTeam
}

// ClassInfo describes a selectable combat class.
type ClassInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Noble bool   `json:"noble,omitempty"`
}

// NationInfo describes a selectable nation.
type NationInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Icon string `json:"icon"`
}

var partyTypes = []PartyType{
	{Key: "mock_battle", Name: "모의전", Icon: "⚔️", Color: 0x808080, Teams: 2, MaxPerTeam: 5},
	{Key: "regular_battle", Name: "정규전", Icon: "🔥", Color: 0xFF0000, Teams: 2, MaxPerTeam: 5},
	{Key: "black_claw", Name: "검은발톱", Icon: "⚫", Color: 0x000000, Teams: 1, MaxPerTeam: 5},
	{Key: "pk", Name: "PK", Icon: "⚡", Color: 0xFFFF00, Teams: 1, MaxPerTeam: 5},
	{Key: "raid", Name: "레이드", Icon: "👑", Color: 0xFFD700, Teams: 1, MaxPerTeam: 5},
	{Key: "training", Name: "훈련", Icon: "🎯", Color: 0x00FF00, Teams: 2, MaxPerTeam: 5},
}

var classes = []ClassInfo{
	{ID: "shield_infantry", Name: "방패보병", Icon: "🛡️"},
	{ID: "polearm_infantry", Name: "폴암보병", Icon: "🗡️"},
	{ID: "archer", Name: "궁수", Icon: "🏹"},
	{ID: "crossbowman", Name: "석궁병", Icon: "🎯"},
	{ID: "lancer", Name: "창기병", Icon: "🐴"},
	{ID: "horse_archer", Name: "궁기병", Icon: "🏇"},
	{ID: "noble_archer", Name: "귀족 궁수", Icon: "👑🏹", Noble: true},
	{ID: "noble_lancer", Name: "귀족 창기병", Icon: "👑🐴", Noble: true},
	{ID: "noble_horse_archer", Name: "귀족 궁기병", Icon: "👑🏇", Noble: true},
}

const wikiImages = "https://static.wikia.nocookie.net/mountandblade/images/"

var nations = []NationInfo{
	{ID: "vlandian", Name: "블란디아", Icon: wikiImages + "c/c4/Vlandia.jpg"},
	{ID: "sturgian", Name: "스터지아", Icon: wikiImages + "8/88/Sturgia.jpg"},
	{ID: "empire", Name: "제국", Icon: wikiImages + "7/73/Western_Empire.jpg"},
	{ID: "battanian", Name: "바타니아", Icon: wikiImages + "e/e8/Battania.jpg"},
	{ID: "khuzait", Name: "쿠자이트", Icon: wikiImages + "7/72/Khuzait.jpg"},
	{ID: "aserai", Name: "아세라이", Icon: wikiImages + "a/a1/Aserai.jpg"},
}

// LookupPartyType returns the party type registered under key.
func LookupPartyType(key string) (PartyType, bool) {
	for _, t := range partyTypes {
		if t.Key == key {
			return t, true
		}
	}
	return PartyType{}, false
}

// PartyTypes returns all party types in display order.
func PartyTypes() []PartyType {
	out := make([]PartyType, len(partyTypes))
	copy(out, partyTypes)
	return out
}

// LookupClass returns the class with the given id.
func LookupClass(id string) (*ClassInfo, bool) {
	for i := range classes {
		if classes[i].ID == id {
			c := classes[i]
			return &c, true
		}
	}
	return nil, false
}

// Classes returns all classes, common ones first.
func Classes() []ClassInfo {
	out := make([]ClassInfo, len(classes))
	copy(out, classes)
	return out
}

// LookupNation returns the nation with the given id.
func LookupNation(id string) (*NationInfo, bool) {
	for i := range nations {
		if nations[i].ID == id {
			n := nations[i]
			return &n, true
		}
	}
	return nil, false
}

// Nations returns all nations.
func Nations() []NationInfo {
	out := make([]NationInfo, len(nations))
	copy(out, nations)
	return out
}
