package monica

import (
	"strconv"
	"strings"
	"time"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/mapper"
)

// contactList is a page of the contacts listing.
type contactList struct {
	Data []monicaContact `json:"data"`
	Meta listMeta        `json:"meta"`
}

type listMeta struct {
	CurrentPage int `json:"current_page"`
	LastPage    int `json:"last_page"`
	Total       int `json:"total"`
}

// contactEnvelope wraps single-contact responses.
type contactEnvelope struct {
	Data monicaContact `json:"data"`
}

// monicaContact is the wire representation of a contact. Nullable strings
// decode to their zero values; nothing downstream distinguishes null from
// empty.
type monicaContact struct {
	ID           int64              `json:"id"`
	FirstName    string             `json:"first_name"`
	LastName     string             `json:"last_name"`
	Nickname     string             `json:"nickname"`
	CompleteName string             `json:"complete_name"`
	GenderType   string             `json:"gender_type"`
	IsDead       bool               `json:"is_dead"`
	UpdatedAt    string             `json:"updated_at"`
	Information  contactInformation `json:"information"`
	Addresses    []monicaAddress    `json:"addresses"`
	Tags         []monicaTag        `json:"tags"`
}

type contactInformation struct {
	Dates  contactDates  `json:"dates"`
	Career contactCareer `json:"career"`
}

type contactDates struct {
	Birthdate    monicaDate `json:"birthdate"`
	DeceasedDate monicaDate `json:"deceased_date"`
}

type monicaDate struct {
	Date          string `json:"date"`
	IsAgeBased    bool   `json:"is_age_based"`
	IsYearUnknown bool   `json:"is_year_unknown"`
}

type contactCareer struct {
	Job     string `json:"job"`
	Company string `json:"company"`
}

type monicaAddress struct {
	ID         int64          `json:"id"`
	Name       string         `json:"name"`
	Street     string         `json:"street"`
	City       string         `json:"city"`
	Province   string         `json:"province"`
	PostalCode string         `json:"postal_code"`
	Country    *monicaCountry `json:"country"`
}

type monicaCountry struct {
	ID   string `json:"id"`
	ISO  string `json:"iso"`
	Name string `json:"name"`
}

type monicaTag struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	NameSlug string `json:"name_slug"`
}

type tagList struct {
	Data []monicaTag `json:"data"`
	Meta listMeta    `json:"meta"`
}

type monicaNote struct {
	ID          int64  `json:"id"`
	Body        string `json:"body"`
	IsFavorited bool   `json:"is_favorited"`
}

type noteList struct {
	Data []monicaNote `json:"data"`
}

type monicaField struct {
	ID               int64           `json:"id"`
	Content          string          `json:"content"`
	ContactFieldType monicaFieldType `json:"contact_field_type"`
}

type monicaFieldType struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type contactFieldList struct {
	Data []monicaField `json:"data"`
}

type monicaGender struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type genderList struct {
	Data []monicaGender `json:"data"`
}

type fieldTypeList struct {
	Data []monicaFieldType `json:"data"`
}

// contactUpload is the create/update payload. Every key is always present,
// with nil pointers encoding null, because the API treats an omitted key
// and a null differently on some fields.
type contactUpload struct {
	FirstName               string  `json:"first_name"`
	LastName                *string `json:"last_name"`
	Nickname                *string `json:"nickname"`
	MiddleName              *string `json:"middle_name"`
	GenderID                *int64  `json:"gender_id"`
	BirthdateDay            *int    `json:"birthdate_day"`
	BirthdateMonth          *int    `json:"birthdate_month"`
	BirthdateYear           *int    `json:"birthdate_year"`
	BirthdateIsAgeBased     bool    `json:"birthdate_is_age_based"`
	DeceasedDateAddReminder bool    `json:"deceased_date_add_reminder"`
	BirthdateAddReminder    bool    `json:"birthdate_add_reminder"`
	IsBirthdateKnown        bool    `json:"is_birthdate_known"`
	IsDeceased              bool    `json:"is_deceased"`
	IsDeceasedDateKnown     bool    `json:"is_deceased_date_known"`
	DeceasedDateDay         *int    `json:"deceased_date_day"`
	DeceasedDateMonth       *int    `json:"deceased_date_month"`
	DeceasedDateYear        *int    `json:"deceased_date_year"`
	DeceasedDateIsAgeBased  bool    `json:"deceased_date_is_age_based"`
}

type careerUpload struct {
	Job     *string `json:"job"`
	Company *string `json:"company"`
}

type addressUpload struct {
	Name       *string `json:"name"`
	Street     *string `json:"street"`
	City       *string `json:"city"`
	Province   *string `json:"province"`
	PostalCode *string `json:"postal_code"`
	Country    *string `json:"country"`
	ContactID  int64   `json:"contact_id"`
}

type fieldUpload struct {
	ContactFieldTypeID int64  `json:"contact_field_type_id"`
	Data               string `json:"data"`
	ContactID          int64  `json:"contact_id"`
}

type noteUpload struct {
	Body        string `json:"body"`
	ContactID   int64  `json:"contact_id"`
	IsFavorited bool   `json:"is_favorited"`
}

type tagNamesUpload struct {
	Tags []string `json:"tags"`
}

type tagIDsUpload struct {
	Tags []int64 `json:"tags"`
}

// toContact converts a wire contact into the canonical model. Contact
// fields and notes live behind separate endpoints and are filled in by Get.
func toContact(mc monicaContact) contact.Contact {
	out := contact.Contact{
		ID:           strconv.FormatInt(mc.ID, 10),
		FirstName:    mc.FirstName,
		LastName:     mc.LastName,
		MiddleName:   deriveMiddleName(mc.FirstName, mc.LastName, mc.Nickname, mc.CompleteName),
		Nickname:     mc.Nickname,
		DisplayName:  mc.CompleteName,
		Gender:       contact.ParseGender(mc.GenderType),
		Birthday:     convertDate(mc.Information.Dates.Birthdate),
		Career: contact.Career{
			JobTitle: mc.Information.Career.Job,
			Company:  mc.Information.Career.Company,
		},
		Deceased: contact.Deceased{
			Dead: mc.IsDead,
			Date: convertDate(mc.Information.Dates.DeceasedDate),
		},
	}
	if mc.UpdatedAt != "" {
		if stamp, err := time.Parse(time.RFC3339Nano, mc.UpdatedAt); err == nil {
			out.Updated = stamp.UTC()
		}
	}
	for _, addr := range mc.Addresses {
		converted := contact.Address{
			ID:         strconv.FormatInt(addr.ID, 10),
			Label:      addr.Name,
			Street:     addr.Street,
			City:       addr.City,
			Province:   addr.Province,
			PostalCode: addr.PostalCode,
		}
		if addr.Country != nil {
			converted.CountryCode = addr.Country.ISO
		}
		out.Addresses = append(out.Addresses, converted)
	}
	var labels []string
	for _, tag := range mc.Tags {
		labels = append(labels, tag.Name)
	}
	out.Labels = contact.NormalizeLabels(labels)
	return out
}

// convertDate translates a wire date. Age-based dates keep only the year,
// the rest being derived; year-unknown dates keep only month and day.
func convertDate(d monicaDate) contact.Date {
	if d.Date == "" {
		return contact.Date{}
	}
	parsed, err := time.Parse(time.RFC3339Nano, d.Date)
	if err != nil {
		return contact.Date{}
	}
	if d.IsAgeBased {
		return contact.Date{Year: parsed.Year(), AgeBased: true}
	}
	if d.IsYearUnknown {
		return contact.Date{Month: int(parsed.Month()), Day: parsed.Day()}
	}
	return contact.Date{Year: parsed.Year(), Month: int(parsed.Month()), Day: parsed.Day()}
}

// deriveMiddleName recovers the middle name from the rendered complete
// name. The API accepts a middle name on upload but never returns it; the
// complete name is rendered as "First Middle Last (Nickname)", so the
// middle part is what remains after stripping the other three.
func deriveMiddleName(first, last, nickname, complete string) string {
	nicknameLen := 0
	if nickname != "" {
		// Parenthesized with a leading space.
		nicknameLen = len(nickname) + 3
	}
	start := len(first)
	end := len(complete) - len(last) - nicknameLen
	if start > len(complete) || end < start {
		return ""
	}
	return strings.TrimSpace(complete[start:end])
}

// fieldKind maps a contact-field-type name to a canonical kind. Only
// phones and emails sync; other field types stay untouched on the account.
func fieldKind(typeName string) (contact.FieldKind, bool) {
	switch typeName {
	case "phone":
		return contact.FieldPhone, true
	case "email":
		return contact.FieldEmail, true
	default:
		return "", false
	}
}

// uploadFromForm renders the create/update payload. The gender id has
// already been resolved; nil leaves the stored gender untouched rather
// than resetting it.
func uploadFromForm(form mapper.TargetForm, genderID *int64) contactUpload {
	upload := contactUpload{
		FirstName:               form.FirstName,
		LastName:                optString(form.LastName),
		Nickname:                optString(form.Nickname),
		MiddleName:              optString(form.MiddleName),
		GenderID:                genderID,
		BirthdateIsAgeBased:     form.Birthday.AgeBased,
		BirthdateAddReminder:    form.AddReminders,
		DeceasedDateAddReminder: form.AddReminders,
		IsBirthdateKnown:        !form.Birthday.IsZero(),
		IsDeceased:              form.Deceased.Dead,
		IsDeceasedDateKnown:     !form.Deceased.Date.IsZero(),
		DeceasedDateIsAgeBased:  form.Deceased.Date.AgeBased,
	}
	if !form.Birthday.IsZero() {
		upload.BirthdateDay = optInt(form.Birthday.Day)
		upload.BirthdateMonth = optInt(form.Birthday.Month)
		upload.BirthdateYear = optInt(form.Birthday.Year)
	}
	if !form.Deceased.Date.IsZero() {
		upload.DeceasedDateDay = optInt(form.Deceased.Date.Day)
		upload.DeceasedDateMonth = optInt(form.Deceased.Date.Month)
		upload.DeceasedDateYear = optInt(form.Deceased.Date.Year)
	}
	return upload
}

// optString returns nil for empty strings, encoding them as JSON null.
func optString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// optInt returns nil for zero, encoding absent date components as null.
func optInt(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}
