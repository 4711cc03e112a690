// Package application models the loan application record submitted by a
// simulated user and generates the ordered form steps that fill it in.
package application

import (
	"fmt"
	"strings"
)

// Address is the applicant's mailing address.
type Address struct {
	Line1       *string `json:"line1,omitempty"`
	Line2       *string `json:"line2,omitempty"`
	City        *string `json:"city,omitempty"`
	StateAbbrev *string `json:"stateAbbrev,omitempty"`
	ZipCode     *string `json:"zipCode,omitempty"`
}

// Applicant holds the personal fields of an application.
type Applicant struct {
	SelfCreditRating                *SelfCreditRating        `json:"selfCreditRating,omitempty"`
	AnnualIncome                    *int                     `json:"annualIncome,omitempty"`
	HousingType                     *HousingType             `json:"housingType,omitempty"`
	BankruptcyOrForeclosure         *BankruptcyOrForeclosure `json:"bankruptcyOrForeclosure,omitempty"`
	HasAutoIncidents                *bool                    `json:"hasAutoIncidents,omitempty"`
	RecentDUI                       *bool                    `json:"recentDui,omitempty"`
	RecentAtFaultAccident           *bool                    `json:"recentAtFaultAccident,omitempty"`
	RecentMovingViolation           *bool                    `json:"recentMovingViolation,omitempty"`
	EmploymentStatus                *EmploymentStatus        `json:"employmentStatus,omitempty"`
	PayFrequency                    *PayFrequency            `json:"payFrequency,omitempty"`
	CollateralOwnership             *CollateralOwnership     `json:"collateralOwnership,omitempty"`
	Address                         *Address                 `json:"address,omitempty"`
	FirstName                       *string                  `json:"firstName,omitempty"`
	LastName                        *string                  `json:"lastName,omitempty"`
	BirthDate                       *string                  `json:"birthDate,omitempty"`
	Email                           *string                  `json:"email,omitempty"`
	PhoneNumber                     *string                  `json:"phoneNumber,omitempty"`
	AgeRange                        *AgeRange                `json:"ageRange,omitempty"`
	Gender                          *Gender                  `json:"gender,omitempty"`
	MaritalStatus                   *MaritalStatus           `json:"maritalStatus,omitempty"`
	MilitaryOrVeteran               *bool                    `json:"militaryOrVeteran,omitempty"`
	SocialSecurityNumber            *string                  `json:"socialSecurityNumber,omitempty"`
	SocialSecurityNumberToken       *string                  `json:"socialSecurityNumberToken,omitempty"`
	SocialSecurityNumberSerial      *string                  `json:"socialSecurityNumberSerial,omitempty"`
	SocialSecurityNumberSerialToken *string                  `json:"socialSecurityNumberSerialToken,omitempty"`
}

// Vehicle describes the vehicle of an auto refinance application.
type Vehicle struct {
	CreditLineID          *int    `json:"creditLineId,omitempty"`
	Year                  *int    `json:"year,omitempty"`
	Make                  *string `json:"make,omitempty"`
	Model                 *string `json:"model,omitempty"`
	Trim                  *string `json:"trim,omitempty"`
	EstimatedPayoffAmount *int    `json:"estimatedPayoffAmount,omitempty"`
}

// Application is the full application record. Every field is optional: a
// form step posts a fragment carrying only the fields that page collects,
// and the service merges fragments into the session's application.
// Completeness is enforced by the service, not here.
type Application struct {
	Applicant *Applicant `json:"applicant,omitempty"`
	Vehicle   *Vehicle   `json:"vehicle,omitempty"`

	LoanRefinanceGoal *LoanRefinanceGoal `json:"loanRefinanceGoal,omitempty"`
	AutoRefiOptIn     *bool              `json:"autoRefiOptIn,omitempty"`

	RequestAmount             *int                 `json:"requestAmount,omitempty"`
	DebtReliefRequestAmount   *int                 `json:"debtReliefRequestAmount,omitempty"`
	PersonalLoanPurpose       *PersonalLoanPurpose `json:"personalLoanPurpose,omitempty"`
	BusinessLoanRequestAmount *int                 `json:"businessLoanRequestAmount,omitempty"`
	BusinessLoanPurpose       *BusinessLoanPurpose `json:"businessLoanPurpose,omitempty"`
	BusinessStructure         *BusinessStructure   `json:"businessStructure,omitempty"`
	BusinessStartDate         *string              `json:"businessStartDate,omitempty"`
	BusinessAnnualRevenue     *int                 `json:"businessAnnualRevenue,omitempty"`
	BusinessIndustry          *BusinessIndustry    `json:"businessIndustry,omitempty"`

	HomeLoanOptIn                 *bool                      `json:"homeLoanOptIn,omitempty"`
	HomeLoanCurrentValue          *int                       `json:"homeLoanCurrentValue,omitempty"`
	HomeLoanCurrentBalance        *int                       `json:"homeLoanCurrentBalance,omitempty"`
	HomeLoanCashOutAmount         *int                       `json:"homeLoanCashOutAmount,omitempty"`
	HomeLoanPropertyType          *HomeLoanPropertyType      `json:"homeLoanPropertyType,omitempty"`
	HomeLoanPropertyUse           *HomeLoanPropertyUse       `json:"homeLoanPropertyUse,omitempty"`
	HomeLoanRefinancePurpose      *HomeLoanRefinancePurpose  `json:"homeLoanRefinancePurpose,omitempty"`
	HomeLoanHasSecondMortgage     *bool                      `json:"homeLoanHasSecondMortgage,omitempty"`
	HomeLoanSecondMortgageBalance *int                       `json:"homeLoanSecondMortgageBalance,omitempty"`
	HomeLoanFirstTimeHomeBuyer    *bool                      `json:"homeLoanFirstTimeHomeBuyer,omitempty"`
	HomeLoanPurchasePrice         *int                       `json:"homeLoanPurchasePrice,omitempty"`
	HomeLoanDownPaymentPercentage *int                       `json:"homeLoanDownPaymentPercentage,omitempty"`
	HomeLoanPurchaseTimeFrame     *HomeLoanPurchaseTimeFrame `json:"homeLoanPurchaseTimeFrame,omitempty"`
	HomeLoanHaveRealtor           *bool                      `json:"homeLoanHaveRealtor,omitempty"`

	InsuranceVehicleCount            *int                    `json:"insuranceVehicleCount,omitempty"`
	InsuranceHaveExistingCoverage    *bool                   `json:"insuranceHaveExistingCoverage,omitempty"`
	InsuranceBundle                  *bool                   `json:"insuranceBundle,omitempty"`
	InsuranceContinuousCoverageRange *InsuranceCoverageRange `json:"insuranceContinuousCoverageRange,omitempty"`
	CurrentInsurerID                 *int                    `json:"currentInsurerId,omitempty"`

	AgreeToTerms                   *bool `json:"agreeToTerms,omitempty"`
	AgreeToTCPAText                *bool `json:"agreeToTcpaText,omitempty"`
	CreditCardBalanceTransferOptIn *bool `json:"creditCardBalanceTransferOptIn,omitempty"`
	PersonalLoanDebtReliefOptIn    *bool `json:"personalLoanDebtReliefOptIn,omitempty"`
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

type enumValue interface {
	~string
	Valid() bool
}

// DomainError lists the set fields whose value lies outside their domain.
type DomainError struct {
	Fields []string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("fields outside their domain: %s", strings.Join(e.Fields, ", "))
}

// Validate checks every enumerated field that is set against its domain.
// Unset fields are always valid.
func (a *Application) Validate() error {
	var bad []string
	check := func(name string, ok bool) {
		if !ok {
			bad = append(bad, name)
		}
	}

	check("loanRefinanceGoal", validEnum(a.LoanRefinanceGoal))
	check("personalLoanPurpose", validEnum(a.PersonalLoanPurpose))
	check("businessLoanPurpose", validEnum(a.BusinessLoanPurpose))
	check("businessStructure", validEnum(a.BusinessStructure))
	check("businessIndustry", validEnum(a.BusinessIndustry))
	check("homeLoanPropertyType", validEnum(a.HomeLoanPropertyType))
	check("homeLoanPropertyUse", validEnum(a.HomeLoanPropertyUse))
	check("homeLoanRefinancePurpose", validEnum(a.HomeLoanRefinancePurpose))
	check("homeLoanPurchaseTimeFrame", validEnum(a.HomeLoanPurchaseTimeFrame))
	check("insuranceContinuousCoverageRange", validEnum(a.InsuranceContinuousCoverageRange))

	if ap := a.Applicant; ap != nil {
		check("applicant.selfCreditRating", validEnum(ap.SelfCreditRating))
		check("applicant.housingType", validEnum(ap.HousingType))
		check("applicant.bankruptcyOrForeclosure", validEnum(ap.BankruptcyOrForeclosure))
		check("applicant.employmentStatus", validEnum(ap.EmploymentStatus))
		check("applicant.payFrequency", validEnum(ap.PayFrequency))
		check("applicant.collateralOwnership", validEnum(ap.CollateralOwnership))
		check("applicant.ageRange", validEnum(ap.AgeRange))
		check("applicant.gender", validEnum(ap.Gender))
		check("applicant.maritalStatus", validEnum(ap.MaritalStatus))
	}

	if len(bad) > 0 {
		return &DomainError{Fields: bad}
	}
	return nil
}

func validEnum[T enumValue](v *T) bool {
	return v == nil || (*v).Valid()
}
