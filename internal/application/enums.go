package application

import "slices"

// Enumerated string domains accepted by the form service. Each type lists its
// legal values and reports whether a value belongs to the domain.

type SelfCreditRating string

const (
	CreditExcellent SelfCreditRating = "EXCELLENT"
	CreditGood      SelfCreditRating = "GOOD"
	CreditFair      SelfCreditRating = "FAIR"
	CreditPoor      SelfCreditRating = "POOR"
)

var SelfCreditRatings = []SelfCreditRating{CreditExcellent, CreditGood, CreditFair, CreditPoor}

func (v SelfCreditRating) Valid() bool { return oneOf(v, SelfCreditRatings) }

type EmploymentStatus string

const (
	EmploymentFullTime     EmploymentStatus = "FULL_TIME"
	EmploymentPartTime     EmploymentStatus = "PART_TIME"
	EmploymentSelfEmployed EmploymentStatus = "SELF_EMPLOYED"
	EmploymentUnemployed   EmploymentStatus = "UNEMPLOYED"
	EmploymentMilitary     EmploymentStatus = "MILITARY"
	EmploymentRetired      EmploymentStatus = "RETIRED"
	EmploymentOther        EmploymentStatus = "OTHER"
)

var EmploymentStatuses = []EmploymentStatus{
	EmploymentFullTime, EmploymentPartTime, EmploymentSelfEmployed, EmploymentUnemployed,
	EmploymentMilitary, EmploymentRetired, EmploymentOther,
}

func (v EmploymentStatus) Valid() bool { return oneOf(v, EmploymentStatuses) }

type HousingType string

const (
	HousingRent  HousingType = "RENT"
	HousingOwn   HousingType = "OWN"
	HousingOther HousingType = "OTHER"
)

var HousingTypes = []HousingType{HousingRent, HousingOwn, HousingOther}

func (v HousingType) Valid() bool { return oneOf(v, HousingTypes) }

type BankruptcyOrForeclosure string

var BankruptcyOrForeclosures = []BankruptcyOrForeclosure{"NONE", "BANKRUPTCY", "FORECLOSURE", "BOTH"}

func (v BankruptcyOrForeclosure) Valid() bool { return oneOf(v, BankruptcyOrForeclosures) }

type PayFrequency string

const (
	PayWeekly      PayFrequency = "WEEKLY"
	PayBiWeekly    PayFrequency = "BI_WEEKLY"
	PaySemiMonthly PayFrequency = "SEMI_MONTHLY"
	PayMonthly     PayFrequency = "MONTHLY"
	PayOther       PayFrequency = "OTHER"
)

var PayFrequencies = []PayFrequency{PayWeekly, PayBiWeekly, PaySemiMonthly, PayMonthly, PayOther}

func (v PayFrequency) Valid() bool { return oneOf(v, PayFrequencies) }

type CollateralOwnership string

var CollateralOwnerships = []CollateralOwnership{"PAID_OFF", "MAKING_PAYMENTS", "NO"}

func (v CollateralOwnership) Valid() bool { return oneOf(v, CollateralOwnerships) }

type AgeRange string

var AgeRanges = []AgeRange{"18-24", "25-34", "35-54", "55-64", "65+"}

func (v AgeRange) Valid() bool { return oneOf(v, AgeRanges) }

type Gender string

var Genders = []Gender{"MALE", "FEMALE", "NON_BINARY"}

func (v Gender) Valid() bool { return oneOf(v, Genders) }

type MaritalStatus string

var MaritalStatuses = []MaritalStatus{"MARRIED", "SINGLE"}

func (v MaritalStatus) Valid() bool { return oneOf(v, MaritalStatuses) }

type LoanRefinanceGoal string

var LoanRefinanceGoals = []LoanRefinanceGoal{"LOWER_MONTHLY_PAYMENT", "LOWER_TOTAL_LOAN_COST"}

func (v LoanRefinanceGoal) Valid() bool { return oneOf(v, LoanRefinanceGoals) }

type BusinessLoanPurpose string

var BusinessLoanPurposes = []BusinessLoanPurpose{
	"EXPANSION", "PURCHASE_EQUIPMENT", "PURCHASE_VEHICLE", "INVENTORY", "PAYROLL", "MARKETING",
	"REAL_ESTATE", "REMODEL", "DEBT_REFINANCE", "ACCOUNTS_RECEIVABLE", "BUSINESS_ACQUISITION",
	"BUSINESS_START", "OTHER",
}

func (v BusinessLoanPurpose) Valid() bool { return oneOf(v, BusinessLoanPurposes) }

type BusinessStructure string

var BusinessStructures = []BusinessStructure{"SOLE_PROPRIETORSHIP", "PARTNERSHIP", "CORPORATION", "S_CORPORATION", "LLC"}

func (v BusinessStructure) Valid() bool { return oneOf(v, BusinessStructures) }

type BusinessIndustry string

var BusinessIndustries = []BusinessIndustry{
	"ACCOMMODATIONS", "ADMINISTRATIVE", "AGRICULTURE", "ENTERTAINMENT", "CONSTRUCTION",
	"EDUCATIONAL_SERVICES", "FINANCE_INSURANCE", "HEALTH_CARE", "INFORMATION", "CORPORATE_MANAGEMENT",
	"MANUFACTURING", "MINING", "SERVICES_OTHER", "SERVICES_PROFESSIONAL", "PUBLIC_ADMINISTRATION",
	"RENTAL_LEASING", "TRADE_RETAIL", "TRANSPORTATION", "UTILITIES", "WASTE_MANAGEMENT", "TRADE_WHOLESALE",
}

func (v BusinessIndustry) Valid() bool { return oneOf(v, BusinessIndustries) }

type PersonalLoanPurpose string

const (
	PurposeDebtConsolidation PersonalLoanPurpose = "DEBT_CONSOLIDATION"
	PurposeMedical           PersonalLoanPurpose = "MEDICAL"
)

var PersonalLoanPurposes = []PersonalLoanPurpose{
	PurposeDebtConsolidation, PurposeMedical, "HOME_IMPROVEMENT", "CREDIT_CARD_CONSOLIDATION", "AUTO",
	"MOTORCYCLE", "MAJOR_PURCHASE", "NEW_BUSINESS", "BUSINESS_EXPANSION", "EDUCATION", "VACATION",
	"WEDDING", "OTHER",
}

func (v PersonalLoanPurpose) Valid() bool { return oneOf(v, PersonalLoanPurposes) }

type HomeLoanPropertyType string

var HomeLoanPropertyTypes = []HomeLoanPropertyType{
	"SINGLE_FAMILY", "TOWNHOUSE", "CONDO", "MULTI_FAMILY", "MANUFACTURED", "MOBILE", "NONE",
}

func (v HomeLoanPropertyType) Valid() bool { return oneOf(v, HomeLoanPropertyTypes) }

type HomeLoanPropertyUse string

var HomeLoanPropertyUses = []HomeLoanPropertyUse{"PRIMARY", "SECONDARY", "INVESTMENT"}

func (v HomeLoanPropertyUse) Valid() bool { return oneOf(v, HomeLoanPropertyUses) }

type HomeLoanRefinancePurpose string

var HomeLoanRefinancePurposes = []HomeLoanRefinancePurpose{
	"LOWER_MONTHLY_PAYMENT", "FASTER_PAYOFF", "CASH_OUT", "ADJUSTABLE_TO_FIXED_RATE", "BROWSE_RATES",
}

func (v HomeLoanRefinancePurpose) Valid() bool { return oneOf(v, HomeLoanRefinancePurposes) }

type HomeLoanPurchaseTimeFrame string

var HomeLoanPurchaseTimeFrames = []HomeLoanPurchaseTimeFrame{
	"UNDER_CONTRACT", "MAKING_OFFERS", "LESS_THAN_THREE_MONTHS", "THREE_TO_SIX_MONTHS",
	"SIX_TO_TWELVE_MONTHS", "NOT_SURE",
}

func (v HomeLoanPurchaseTimeFrame) Valid() bool { return oneOf(v, HomeLoanPurchaseTimeFrames) }

type InsuranceCoverageRange string

var InsuranceCoverageRanges = []InsuranceCoverageRange{
	"LESS_THAN_TWO_YEARS", "TWO_TO_THREE_YEARS", "FOUR_TO_FIVE_YEARS", "SIX_TO_SEVEN_YEARS",
	"GREATER_THAN_SEVEN_YEARS",
}

func (v InsuranceCoverageRange) Valid() bool { return oneOf(v, InsuranceCoverageRanges) }

func oneOf[T ~string](v T, values []T) bool {
	return slices.Contains(values, v)
}
