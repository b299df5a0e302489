package services

import (
	"strconv"
	"time"

	"github.com/tbourn/go-mdt-backend/internal/auth"
	"github.com/tbourn/go-mdt-backend/internal/domain"
	"github.com/tbourn/go-mdt-backend/internal/notify"
)

var actionTitles = map[string]string{
	actionCreated: "New",
	actionUpdated: "Updated",
}

func title(action, what string) string {
	prefix, ok := actionTitles[action]
	if !ok {
		prefix = "Changed"
	}
	return prefix + " " + what
}

func actorLabel(p auth.Principal) string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return p.Username
}

// DescribeArrest renders arrest notifications.
func DescribeArrest(action string, a domain.Arrest, c *domain.Citizen, actor auth.Principal) notify.Event {
	return notify.Event{
		Kind:        notify.KindArrest,
		Title:       title(action, "arrest"),
		Description: a.Description,
		Fields: []notify.Field{
			{Name: "Citizen", Value: citizenLabel(c, a.CitizenID), Inline: true},
			{Name: "Status", Value: a.Status, Inline: true},
			{Name: "Charges", Value: a.Charges},
			{Name: "Fine", Value: "$" + strconv.Itoa(a.Fine), Inline: true},
			{Name: "Jail", Value: strconv.Itoa(a.JailMinutes) + " min", Inline: true},
		},
		Actor: actorLabel(actor),
		At:    a.UpdatedAt,
	}
}

// DescribeReport renders report notifications.
func DescribeReport(action string, r domain.Report, c *domain.Citizen, actor auth.Principal) notify.Event {
	return notify.Event{
		Kind:        notify.KindReport,
		Title:       title(action, r.Kind+" report: "+r.Title),
		Description: r.Content,
		Fields: []notify.Field{
			{Name: "Citizen", Value: citizenLabel(c, r.CitizenID), Inline: true},
			{Name: "Status", Value: r.Status, Inline: true},
		},
		Actor: actorLabel(actor),
		At:    r.UpdatedAt,
	}
}

// DescribeWanted renders wanted person notifications.
func DescribeWanted(action string, w domain.WantedPerson, c *domain.Citizen, actor auth.Principal) notify.Event {
	return notify.Event{
		Kind:        notify.KindWanted,
		Title:       title(action, "wanted notice"),
		Description: w.Reason,
		Fields: []notify.Field{
			{Name: "Citizen", Value: citizenLabel(c, w.CitizenID), Inline: true},
			{Name: "Danger", Value: strconv.Itoa(w.Danger) + "/5", Inline: true},
			{Name: "Status", Value: w.Status, Inline: true},
			{Name: "Notes", Value: w.Notes},
		},
		Actor: actorLabel(actor),
		At:    w.UpdatedAt,
	}
}

// DescribeLicense renders weapon license notifications.
func DescribeLicense(action string, l domain.WeaponLicense, c *domain.Citizen, actor auth.Principal) notify.Event {
	expires := "never"
	if l.ExpiresAt != nil {
		expires = l.ExpiresAt.UTC().Format(time.DateOnly)
	}
	return notify.Event{
		Kind:  notify.KindWeaponLicense,
		Title: title(action, "weapon license"),
		Fields: []notify.Field{
			{Name: "Citizen", Value: citizenLabel(c, l.CitizenID), Inline: true},
			{Name: "Type", Value: l.Kind, Inline: true},
			{Name: "Status", Value: l.Status, Inline: true},
			{Name: "Expires", Value: expires, Inline: true},
			{Name: "Notes", Value: l.Notes},
		},
		Actor: actorLabel(actor),
		At:    l.UpdatedAt,
	}
}

// NewArrestService wires the arrest service.
func NewArrestService(fx Effects, deps RecordDeps) *RecordService[domain.Arrest] {
	return NewRecordService[domain.Arrest](deps.DB, deps.Citizens, fx, DescribeArrest)
}

// NewReportService wires the report service.
func NewReportService(fx Effects, deps RecordDeps) *RecordService[domain.Report] {
	return NewRecordService[domain.Report](deps.DB, deps.Citizens, fx, DescribeReport)
}

// NewWantedService wires the wanted person service.
func NewWantedService(fx Effects, deps RecordDeps) *RecordService[domain.WantedPerson] {
	return NewRecordService[domain.WantedPerson](deps.DB, deps.Citizens, fx, DescribeWanted)
}

// NewLicenseService wires the weapon license service.
func NewLicenseService(fx Effects, deps RecordDeps) *RecordService[domain.WeaponLicense] {
	return NewRecordService[domain.WeaponLicense](deps.DB, deps.Citizens, fx, DescribeLicense)
}
