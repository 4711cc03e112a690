package application

import (
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
)

// Step is one page of the form: the page-view identifier reported to the
// service and the fragment of the application that page submits.
type Step struct {
	PageView string
	Fragment Application
}

// PageViews is the fixed order in which a simulated user walks the form.
var PageViews = []string{
	"personal-loan-purpose",
	"request-amount",
	"self-credit-rating",
	"employment-status",
	"annual-income",
	"housing-type",
	"pay-frequency",
	"email",
	"name",
	"birth-date",
	"phone-number",
	"military",
	"zip-code",
	"street-address",
	"ssn",
}

// birthDateLayout is the date format the service expects for birthDate.
const birthDateLayout = "2006-01-02"

// Generator produces randomized, domain-valid form steps.
//
// A Generator is not safe for concurrent use; each session owns one.
type Generator struct {
	faker *gofakeit.Faker
	now   func() time.Time
}

// NewGenerator returns a Generator seeded with seed. A zero seed draws a
// random one.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		faker: gofakeit.New(seed),
		now:   time.Now,
	}
}

// Steps returns the ordered steps for one simulated applicant. Values are
// drawn once per call and shared between the pages that reference them
// (the name page and the email page agree, the zip-code and street-address
// pages describe the same address).
func (g *Generator) Steps() []Step {
	f := g.faker

	firstName := f.FirstName()
	lastName := f.LastName()
	email := strings.ToLower(firstName+"."+lastName) + "@" + f.DomainName()

	rating := SelfCreditRatings[f.Number(0, len(SelfCreditRatings)-1)]
	// MILITARY is a legal status but is never picked for synthetic users.
	employable := []EmploymentStatus{
		EmploymentFullTime, EmploymentPartTime, EmploymentSelfEmployed,
		EmploymentUnemployed, EmploymentRetired, EmploymentOther,
	}
	employment := employable[f.Number(0, len(employable)-1)]

	now := g.now()
	birthDate := f.DateRange(now.AddDate(-60, 0, 0), now.AddDate(-18, 0, 0)).Format(birthDateLayout)

	state, zip := stateAndZip(f)
	city := f.City()
	street := f.Street()

	requestAmount := f.Number(10, 100) * 500
	annualIncome := f.Number(0, 40) * 5000
	military := f.Float64() < 0.1

	return []Step{
		{"personal-loan-purpose", Application{PersonalLoanPurpose: Ptr(PurposeMedical)}},
		{"request-amount", Application{RequestAmount: Ptr(requestAmount)}},
		{"self-credit-rating", Application{Applicant: &Applicant{SelfCreditRating: Ptr(rating)}}},
		{"employment-status", Application{Applicant: &Applicant{EmploymentStatus: Ptr(employment)}}},
		{"annual-income", Application{Applicant: &Applicant{AnnualIncome: Ptr(annualIncome)}}},
		{"housing-type", Application{Applicant: &Applicant{HousingType: Ptr(HousingRent)}}},
		{"pay-frequency", Application{Applicant: &Applicant{PayFrequency: Ptr(PayWeekly)}}},
		{"email", Application{Applicant: &Applicant{Email: Ptr(email)}}},
		{"name", Application{Applicant: &Applicant{FirstName: Ptr(firstName), LastName: Ptr(lastName)}}},
		{"birth-date", Application{Applicant: &Applicant{BirthDate: Ptr(birthDate)}}},
		{"phone-number", Application{Applicant: &Applicant{PhoneNumber: Ptr(f.Numerify("555-###-####"))}}},
		{"military", Application{Applicant: &Applicant{MilitaryOrVeteran: Ptr(military)}}},
		{"zip-code", Application{Applicant: &Applicant{Address: &Address{
			ZipCode:     Ptr(zip),
			City:        Ptr(city),
			StateAbbrev: Ptr(state),
		}}}},
		{"street-address", Application{Applicant: &Applicant{Address: &Address{Line1: Ptr(street)}}}},
		{"ssn", Application{Applicant: &Applicant{SocialSecurityNumber: Ptr(f.Numerify("666-##-####"))}}},
	}
}
