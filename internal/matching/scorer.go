package matching

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"lending-core/internal/common/errors"
)

const (
	// DefaultMinScore is the threshold below which a product is not reported.
	DefaultMinScore = 0.3
	// DefaultLimit caps the number of results returned by FindMatches.
	DefaultLimit = 50
)

// ValidateApplication rejects malformed numeric fields before scoring.
// The scorer itself assumes validated input.
func ValidateApplication(app *LoanApplication) error {
	if app == nil {
		return errors.NewInvalidApplicationDataError("application is nil")
	}
	if math.IsNaN(app.RequestedAmount) || math.IsInf(app.RequestedAmount, 0) {
		return errors.NewInvalidApplicationDataError("requestedAmount is not a finite number")
	}
	if app.RequestedAmount <= 0 {
		return errors.NewInvalidApplicationDataError(fmt.Sprintf("requestedAmount must be positive, got %v", app.RequestedAmount))
	}
	if app.CreditScore != nil && (*app.CreditScore < 300 || *app.CreditScore > 850) {
		return errors.NewInvalidApplicationDataError(fmt.Sprintf("creditScore out of range [300,850]: %d", *app.CreditScore))
	}
	return nil
}

// ValidateProduct rejects malformed lending rules.
func ValidateProduct(p *LenderProduct) error {
	if p == nil {
		return errors.NewInvalidProductDataError("", "product is nil")
	}
	if math.IsNaN(p.MinimumLendingAmount) || math.IsNaN(p.MaximumLendingAmount) ||
		math.IsInf(p.MinimumLendingAmount, 0) || math.IsInf(p.MaximumLendingAmount, 0) {
		return errors.NewInvalidProductDataError(p.ID, "lending amounts are not finite numbers")
	}
	if p.MinimumLendingAmount < 0 {
		return errors.NewInvalidProductDataError(p.ID, fmt.Sprintf("minimumLendingAmount is negative: %v", p.MinimumLendingAmount))
	}
	if p.MaximumLendingAmount <= 0 {
		return errors.NewInvalidProductDataError(p.ID, fmt.Sprintf("maximumLendingAmount must be positive: %v", p.MaximumLendingAmount))
	}
	if p.MinimumLendingAmount > p.MaximumLendingAmount {
		return errors.NewInvalidProductDataError(p.ID, "minimumLendingAmount exceeds maximumLendingAmount")
	}
	return nil
}

// Score computes the weighted compatibility of one application against one
// product. The result is always in [0,1]. Both inputs must pass validation.
func Score(app *LoanApplication, product *LenderProduct, factors MatchFactors) (float64, error) {
	if err := ValidateApplication(app); err != nil {
		return 0, err
	}
	if err := ValidateProduct(product); err != nil {
		return 0, err
	}

	amount := amountFit(app.RequestedAmount, product.MinimumLendingAmount, product.MaximumLendingAmount, factors.AmountMatch)
	country := countryFit(app.Country, product.CountryOffered, factors.CountryMatch)
	credit := creditFit(app.CreditScore, product.MinimumCreditScore, factors.CreditScore)
	purpose, _ := purposeFit(app.Purpose, product.Category, factors.PurposeMatch)

	total := amount + country + credit + purpose

	// The factor math cannot go negative; only the ceiling needs clamping.
	if total > 1 {
		total = 1
	}
	return total, nil
}

// ScoreWithBreakdown is Score plus the per-factor contributions and the
// purpose keywords that hit.
func ScoreWithBreakdown(app *LoanApplication, product *LenderProduct, factors MatchFactors) (float64, FactorBreakdown, []string, error) {
	if err := ValidateApplication(app); err != nil {
		return 0, FactorBreakdown{}, nil, err
	}
	if err := ValidateProduct(product); err != nil {
		return 0, FactorBreakdown{}, nil, err
	}

	breakdown := FactorBreakdown{
		AmountFit:  amountFit(app.RequestedAmount, product.MinimumLendingAmount, product.MaximumLendingAmount, factors.AmountMatch),
		CountryFit: countryFit(app.Country, product.CountryOffered, factors.CountryMatch),
		CreditFit:  creditFit(app.CreditScore, product.MinimumCreditScore, factors.CreditScore),
	}
	purpose, keywords := purposeFit(app.Purpose, product.Category, factors.PurposeMatch)
	breakdown.PurposeFit = purpose

	total := breakdown.AmountFit + breakdown.CountryFit + breakdown.CreditFit + breakdown.PurposeFit
	if total > 1 {
		total = 1
	}
	return total, breakdown, keywords, nil
}

// amountFit awards full weight for in-range amounts. Near misses earn
// proximity-scaled partial credit capped at half the weight.
func amountFit(requested, min, max, weight float64) float64 {
	if requested >= min && requested <= max {
		return weight
	}
	deviation := math.Min(math.Abs(requested-min), math.Abs(requested-max))
	proximity := math.Max(0, 1-deviation/max)
	return weight * proximity * 0.5
}

func countryFit(appCountry, productCountry string, weight float64) float64 {
	if productCountry == CountryGlobal || appCountry == productCountry {
		return weight
	}
	return 0
}

// creditFit treats an absent product minimum as satisfied. An application
// without a score fails any product that requires one. Shortfalls earn a
// small partial credit over a 100-point window, capped at 0.3 of the weight.
func creditFit(appScore, productMin *int, weight float64) float64 {
	if productMin == nil {
		return weight
	}
	if appScore == nil {
		return 0
	}
	if *appScore >= *productMin {
		return weight
	}
	shortfall := float64(*productMin-*appScore) / 100
	return weight * math.Max(0, 1-shortfall) * 0.3
}

func purposeFit(purpose string, category ProductCategory, weight float64) (float64, []string) {
	lowered := strings.ToLower(purpose)
	var hits []string
	for _, kw := range category.Keywords() {
		if strings.Contains(lowered, kw) {
			hits = append(hits, kw)
		}
	}
	if len(hits) > 0 {
		return weight, hits
	}
	return 0, nil
}

// FindMatches scores every candidate product against the application and
// returns the products clearing minScore, sorted non-increasing by score.
// Equal scores keep candidate order (stable sort) for determinism. The
// result is truncated to limit.
func FindMatches(app *LoanApplication, products []LenderProduct, minScore float64, limit int) ([]MatchResult, error) {
	if err := ValidateApplication(app); err != nil {
		return nil, err
	}
	if minScore <= 0 {
		minScore = DefaultMinScore
	}
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]MatchResult, 0, len(products))
	for i := range products {
		product := &products[i]
		score, breakdown, keywords, err := ScoreWithBreakdown(app, product, DefaultFactors)
		if err != nil {
			return nil, err
		}
		if score < minScore {
			continue
		}
		results = append(results, MatchResult{
			ProductID:        product.ID,
			ProductName:      product.Name,
			Score:            score,
			MatchFactors:     breakdown,
			MatchingKeywords: keywords,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}
