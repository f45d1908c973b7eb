package matching

import "strings"

// CountryGlobal is the sentinel value for products offered everywhere.
const CountryGlobal = "Global"

// LoanApplication is the immutable snapshot used for scoring. It is
// created upstream; the scorer never mutates or persists it.
type LoanApplication struct {
	ID              string  `json:"id,omitempty"`
	RequestedAmount float64 `json:"requestedAmount"`
	Purpose         string  `json:"purpose"`
	Country         string  `json:"country"`
	CreditScore     *int    `json:"creditScore,omitempty"`
}

// LenderProduct holds a lender's published lending rules.
type LenderProduct struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	MinimumLendingAmount float64         `json:"minimumLendingAmount"`
	MaximumLendingAmount float64         `json:"maximumLendingAmount"`
	CountryOffered       string          `json:"countryOffered"`
	MinimumCreditScore   *int            `json:"minimumCreditScore,omitempty"`
	Category             ProductCategory `json:"productCategory"`
}

// MatchFactors holds the weight of each scoring factor. Weights must sum to 1.0.
type MatchFactors struct {
	AmountMatch  float64 `json:"amountMatch"`
	CountryMatch float64 `json:"countryMatch"`
	CreditScore  float64 `json:"creditScore"`
	PurposeMatch float64 `json:"purposeMatch"`
}

// DefaultFactors are the production weights.
var DefaultFactors = MatchFactors{
	AmountMatch:  0.4,
	CountryMatch: 0.3,
	CreditScore:  0.2,
	PurposeMatch: 0.1,
}

// FactorBreakdown reports the contribution of each factor to a score.
type FactorBreakdown struct {
	AmountFit  float64 `json:"amountFit"`
	CountryFit float64 `json:"countryFit"`
	CreditFit  float64 `json:"creditFit"`
	PurposeFit float64 `json:"purposeFit"`
}

// MatchResult is the derived, non-persisted outcome of scoring one
// product against one application.
type MatchResult struct {
	ProductID        string          `json:"productId"`
	ProductName      string          `json:"productName"`
	Score            float64         `json:"score"`
	MatchFactors     FactorBreakdown `json:"matchFactors"`
	MatchingKeywords []string        `json:"matchingKeywords"`
}

// ProductCategory is a closed set of lender product categories.
type ProductCategory string

const (
	CategoryBusinessLoan ProductCategory = "business_loan"
	CategoryPersonalLoan ProductCategory = "personal_loan"
	CategoryMortgage     ProductCategory = "mortgage"
	CategoryAutoLoan     ProductCategory = "auto_loan"
)

var categoryKeywords = map[ProductCategory][]string{
	CategoryBusinessLoan: {"business", "equipment", "expansion", "working capital"},
	CategoryPersonalLoan: {"personal", "debt", "consolidation", "medical"},
	CategoryMortgage:     {"mortgage", "home", "property", "real estate"},
	CategoryAutoLoan:     {"auto", "car", "vehicle", "truck"},
}

// Keywords returns the representative keywords for a category. Unknown
// categories degrade to using the category string itself as the only
// keyword; this keeps loosely-typed catalog rows scoreable instead of
// silently zeroing the purpose factor.
func (c ProductCategory) Keywords() []string {
	if kws, ok := categoryKeywords[c]; ok {
		return kws
	}
	return []string{strings.ToLower(string(c))}
}
