package google

import (
	"strings"
	"time"

	"github.com/concordsync/concord/pkg/contact"
	"github.com/concordsync/concord/pkg/mapper"
)

// connectionList is the People API response for a connections page.
type connectionList struct {
	Connections   []person `json:"connections"`
	NextPageToken string   `json:"nextPageToken"`
	NextSyncToken string   `json:"nextSyncToken"`
	TotalItems    int      `json:"totalItems"`
}

// person is the People API wire representation of a contact. Every data
// field is a list even when a contact can only meaningfully have one; the
// first entry is the primary.
type person struct {
	ResourceName   string               `json:"resourceName,omitempty"`
	ETag           string               `json:"etag,omitempty"`
	Metadata       *personMetadata      `json:"metadata,omitempty"`
	Names          []personName         `json:"names,omitempty"`
	Nicknames      []personNickname     `json:"nicknames,omitempty"`
	Genders        []personGender       `json:"genders,omitempty"`
	Birthdays      []personBirthday     `json:"birthdays,omitempty"`
	Organizations  []personOrganization `json:"organizations,omitempty"`
	Addresses      []personAddress      `json:"addresses,omitempty"`
	PhoneNumbers   []personPhoneNumber  `json:"phoneNumbers,omitempty"`
	EmailAddresses []personEmail        `json:"emailAddresses,omitempty"`
	Biographies    []personBiography    `json:"biographies,omitempty"`
	Memberships    []personMembership   `json:"memberships,omitempty"`
}

type personMetadata struct {
	Deleted bool           `json:"deleted,omitempty"`
	Sources []personSource `json:"sources,omitempty"`
}

type personSource struct {
	Type       string `json:"type,omitempty"`
	ID         string `json:"id,omitempty"`
	UpdateTime string `json:"updateTime,omitempty"`
}

type personName struct {
	DisplayName string `json:"displayName,omitempty"`
	FamilyName  string `json:"familyName,omitempty"`
	GivenName   string `json:"givenName,omitempty"`
	MiddleName  string `json:"middleName,omitempty"`
}

type personNickname struct {
	Value string `json:"value,omitempty"`
}

type personGender struct {
	Value string `json:"value,omitempty"`
}

type personBirthday struct {
	Date *personDate `json:"date,omitempty"`
	Text string      `json:"text,omitempty"`
}

type personDate struct {
	Year  int `json:"year,omitempty"`
	Month int `json:"month,omitempty"`
	Day   int `json:"day,omitempty"`
}

type personOrganization struct {
	Name       string `json:"name,omitempty"`
	Department string `json:"department,omitempty"`
	Title      string `json:"title,omitempty"`
}

type personAddress struct {
	FormattedType   string `json:"formattedType,omitempty"`
	Type            string `json:"type,omitempty"`
	StreetAddress   string `json:"streetAddress,omitempty"`
	ExtendedAddress string `json:"extendedAddress,omitempty"`
	City            string `json:"city,omitempty"`
	Region          string `json:"region,omitempty"`
	PostalCode      string `json:"postalCode,omitempty"`
	Country         string `json:"country,omitempty"`
	CountryCode     string `json:"countryCode,omitempty"`
}

type personPhoneNumber struct {
	Value string `json:"value,omitempty"`
	Type  string `json:"type,omitempty"`
}

type personEmail struct {
	Value string `json:"value,omitempty"`
	Type  string `json:"type,omitempty"`
}

type personBiography struct {
	Value       string `json:"value,omitempty"`
	ContentType string `json:"contentType,omitempty"`
}

type personMembership struct {
	ContactGroupMembership *groupMembership `json:"contactGroupMembership,omitempty"`
}

type groupMembership struct {
	ContactGroupID           string `json:"contactGroupId,omitempty"`
	ContactGroupResourceName string `json:"contactGroupResourceName,omitempty"`
}

// contactGroup is the wire representation of a label.
type contactGroup struct {
	ResourceName string `json:"resourceName,omitempty"`
	Name         string `json:"name,omitempty"`
	GroupType    string `json:"groupType,omitempty"`
	MemberCount  int    `json:"memberCount,omitempty"`
}

type groupList struct {
	ContactGroups []contactGroup `json:"contactGroups"`
	NextPageToken string         `json:"nextPageToken"`
}

type createGroupRequest struct {
	ContactGroup contactGroup `json:"contactGroup"`
}

// toContact converts a wire person into the canonical contact model.
// Group memberships resolve through the client's label catalog, which is
// why conversion is a client method.
func (c *Client) toContact(p person) contact.Contact {
	out := contact.Contact{
		ID:     p.ResourceName,
		Gender: contact.GenderUnknown,
	}
	if p.Metadata != nil {
		out.Deleted = p.Metadata.Deleted
		if len(p.Metadata.Sources) > 0 && p.Metadata.Sources[0].UpdateTime != "" {
			if stamp, err := time.Parse(time.RFC3339Nano, p.Metadata.Sources[0].UpdateTime); err == nil {
				out.Updated = stamp.UTC()
			}
		}
	}
	if len(p.Names) > 0 {
		name := p.Names[0]
		out.FirstName = name.GivenName
		out.LastName = name.FamilyName
		out.MiddleName = name.MiddleName
		out.DisplayName = name.DisplayName
	}
	if len(p.Nicknames) > 0 {
		out.Nickname = p.Nicknames[0].Value
	}
	if len(p.Genders) > 0 {
		out.Gender = contact.ParseGender(p.Genders[0].Value)
	}
	if len(p.Birthdays) > 0 && p.Birthdays[0].Date != nil {
		date := p.Birthdays[0].Date
		out.Birthday = contact.Date{Year: date.Year, Month: date.Month, Day: date.Day}
	}
	if len(p.Organizations) > 0 {
		org := p.Organizations[0]
		out.Career = contact.Career{
			JobTitle:   org.Title,
			Company:    org.Name,
			Department: org.Department,
		}
	}
	for _, addr := range p.Addresses {
		converted, ok := convertAddress(addr)
		if !ok {
			continue
		}
		out.Addresses = append(out.Addresses, converted)
	}
	for _, phone := range p.PhoneNumbers {
		if strings.TrimSpace(phone.Value) == "" {
			continue
		}
		out.Fields = append(out.Fields, contact.Field{
			Kind:  contact.FieldPhone,
			Value: phone.Value,
			Label: phone.Type,
		})
	}
	for _, email := range p.EmailAddresses {
		if strings.TrimSpace(email.Value) == "" {
			continue
		}
		out.Fields = append(out.Fields, contact.Field{
			Kind:  contact.FieldEmail,
			Value: email.Value,
			Label: email.Type,
		})
	}
	if len(p.Biographies) > 0 && p.Biographies[0].Value != "" {
		out.Notes = []contact.Note{{Body: p.Biographies[0].Value}}
	}
	var labels []string
	for _, membership := range p.Memberships {
		if membership.ContactGroupMembership == nil {
			continue
		}
		labels = append(labels, c.labelName(membership.ContactGroupMembership.ContactGroupResourceName))
	}
	out.Labels = contact.NormalizeLabels(labels)
	return out
}

// convertAddress flattens a wire address. Street newlines collapse to
// spaces, the extended line folds into the city, and addresses with no
// postal content at all are dropped.
func convertAddress(addr personAddress) (contact.Address, bool) {
	street := strings.TrimSpace(strings.ReplaceAll(addr.StreetAddress, "\n", " "))
	city := strings.TrimSpace(addr.City + " " + addr.ExtendedAddress)
	if street == "" && city == "" && addr.Region == "" && addr.PostalCode == "" && addr.CountryCode == "" {
		return contact.Address{}, false
	}
	label := addr.FormattedType
	if label == "" {
		label = "Other"
	}
	return contact.Address{
		Label:       label,
		Street:      street,
		City:        city,
		Province:    addr.Region,
		PostalCode:  addr.PostalCode,
		CountryCode: addr.CountryCode,
	}, true
}

// personFromForm builds the upload payload for creating or updating a
// contact from a reverse-sync form. groupIDs are the already-resolved
// contact-group resource names for the form's labels.
func personFromForm(form mapper.SourceForm, groupIDs []string) person {
	p := person{
		Names: []personName{{
			GivenName:  form.FirstName,
			MiddleName: form.MiddleName,
			FamilyName: form.LastName,
		}},
	}
	if !form.Birthday.IsZero() {
		p.Birthdays = []personBirthday{{
			Date: &personDate{
				Year:  form.Birthday.Year,
				Month: form.Birthday.Month,
				Day:   form.Birthday.Day,
			},
		}}
	}
	if !form.Career.IsZero() {
		p.Organizations = []personOrganization{{
			Name:  form.Career.Company,
			Title: form.Career.JobTitle,
		}}
	}
	for _, addr := range form.Addresses {
		p.Addresses = append(p.Addresses, personAddress{
			Type:          addr.Label,
			StreetAddress: addr.Street,
			City:          addr.City,
			Region:        addr.Province,
			PostalCode:    addr.PostalCode,
			CountryCode:   addr.CountryCode,
		})
	}
	for _, value := range form.Phones {
		p.PhoneNumbers = append(p.PhoneNumbers, personPhoneNumber{Value: value, Type: "other"})
	}
	for _, value := range form.Emails {
		p.EmailAddresses = append(p.EmailAddresses, personEmail{Value: value, Type: "other"})
	}
	for _, id := range groupIDs {
		p.Memberships = append(p.Memberships, personMembership{
			ContactGroupMembership: &groupMembership{ContactGroupResourceName: id},
		})
	}
	return p
}
