// Package notify mirrors party state into external announcement messages.
package notify

import (
	"fmt"
	"strings"
	"time"

	"discord-party-bot/internal/model"
)

// Banners shown above the announcement.
const (
	BannerClosed    = "**[마감됨]**"
	BannerCancelled = "**[취소됨]** ~~이 파티는 취소되었습니다.~~"
)

// Field is one labelled value of an announcement.
type Field struct {
	Name   string
	Value  string
	Inline bool
}

// Link is the call-to-action button of an announcement.
type Link struct {
	Label    string
	Emoji    string
	URL      string
	Disabled bool
}

// Announcement is the sink-independent content of a party announcement.
type Announcement struct {
	PartyID     string
	Banner      string
	Title       string
	Description string
	Color       int
	Fields      []Field
	Footer      string
	Link        *Link
	Cancelled   bool
}

// Build renders the announcement of a party. A party that is no longer
// recruiting gets its retracted form. The result depends only on the party
// and webURL.
func Build(p *model.Party, webURL string) Announcement {
	if !p.IsActive() {
		return BuildCancelled(p, webURL)
	}
	return recruiting(p, webURL)
}

func recruiting(p *model.Party, webURL string) Announcement {
	pt, ok := model.LookupPartyType(p.Type)
	if !ok {
		pt = model.PartyType{Key: p.Type, Name: p.Type}
	}
	full := p.IsFull()

	fields := []Field{
		{Name: "📅 시작 시간", Value: FormatStartTime(p.StartTime), Inline: true},
		{Name: "👥 참가 인원", Value: fmt.Sprintf("%d/%d명", len(p.Members), p.MaxMembers), Inline: true},
		{Name: "🎯 최소 점수", Value: fmt.Sprintf("%d점", p.MinScore), Inline: true},
	}
	if p.Description != "" {
		fields = append(fields, Field{Name: "📝 설명", Value: p.Description})
	}
	if p.Requirements != "" {
		fields = append(fields, Field{Name: "⚠️ 필수 요구사항", Value: p.Requirements})
	}

	a := Announcement{
		PartyID:     p.ID,
		Title:       strings.TrimSpace(pt.Icon + " " + p.Title),
		Description: fmt.Sprintf("**%s** 파티가 모집 중입니다!", pt.Name),
		Color:       pt.Color,
		Fields:      fields,
		Footer:      "개최자: " + p.CreatedByName,
		Link: &Link{
			Label:    "웹에서 참가하기",
			Emoji:    "🌐",
			URL:      PartyURL(webURL, p.ID),
			Disabled: full,
		},
	}
	if full {
		a.Banner = BannerClosed
	}
	return a
}

// BuildCancelled renders the retracted form of a party announcement.
// It keeps the party details but carries no link.
func BuildCancelled(p *model.Party, webURL string) Announcement {
	a := recruiting(p, webURL)
	a.Banner = BannerCancelled
	a.Link = nil
	a.Cancelled = true
	return a
}

// PartyURL returns the dashboard page of a party.
func PartyURL(webURL, partyID string) string {
	return strings.TrimRight(webURL, "/") + "/party/" + partyID
}

var startTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// FormatStartTime formats a start time for display in Korean.
// Unparseable values are returned unchanged.
func FormatStartTime(raw string) string {
	for _, layout := range startTimeLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}

		meridiem := "오전"
		hour := t.Hour()
		if hour >= 12 {
			meridiem = "오후"
		}
		if hour = hour % 12; hour == 0 {
			hour = 12
		}
		return fmt.Sprintf("%d년 %d월 %d일 %s %02d:%02d",
			t.Year(), int(t.Month()), t.Day(), meridiem, hour, t.Minute())
	}
	return raw
}
