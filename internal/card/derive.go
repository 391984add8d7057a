package card

import (
	"fmt"
	"strings"
)

var (
	defaultFinishes   = []string{FinishNonfoil}
	defaultPromoTypes = []string{"normal"}
)

// Derive builds the card summary and one variant per finish, in finish
// order, pricing each with exchangeRate. The only failure is a malformed
// price string.
func Derive(rec Record, exchangeRate float64) (Derived, error) {
	parent := ParentSKU(rec.Name, rec.OracleID, rec.CollectorNumber, rec.SetCode)
	imageURL := resolveImageURL(rec)

	c := Card{
		ID:            rec.ID,
		OracleID:      rec.OracleID,
		Name:          rec.Name,
		TypeLine:      rec.TypeLine,
		OracleText:    resolveOracleText(rec),
		SetCode:       rec.SetCode,
		SetName:       rec.SetName,
		Rarity:        rec.Rarity,
		ColorIdentity: rec.ColorIdentity,
		ManaCost:      rec.ManaCost,
		CMC:           rec.CMC,
		ImageURL:      imageURL,
		Keywords:      rec.Keywords,
		Legalities:    rec.Legalities,
		RelatedURIs:   rec.RelatedURIs,
		SKUParent:     parent,
	}

	finishes := rec.Finishes
	if len(finishes) == 0 {
		finishes = defaultFinishes
	}
	promoTypes := rec.PromoTypes
	if len(promoTypes) == 0 {
		promoTypes = defaultPromoTypes
	}

	variants := make([]Variant, 0, len(finishes))
	for _, finish := range finishes {
		price, err := ConvertPrice(rec.Prices, finish, exchangeRate)
		if err != nil {
			return Derived{}, fmt.Errorf("derive %s (%s #%s): %w", rec.Name, rec.SetCode, rec.CollectorNumber, err)
		}
		variants = append(variants, Variant{
			SKU:             VariantSKU(parent, rec.SetCode, finish, rec.CollectorNumber),
			CardOracleID:    rec.OracleID,
			SetCode:         rec.SetCode,
			SetName:         rec.SetName,
			CollectorNumber: rec.CollectorNumber,
			Promo:           rec.Promo,
			Finish:          finish,
			Rarity:          rec.Rarity,
			Price:           price,
			ReleaseDate:     rec.ReleasedAt,
			ImageURL:        imageURL,
		})
	}

	return Derived{Card: c, Variants: variants, Finishes: finishes, PromoTypes: promoTypes}, nil
}

// resolveOracleText uses the top-level text, or for multi-faced cards joins
// "{name}\n {type}\n {text}" per face with blank lines between faces.
func resolveOracleText(rec Record) string {
	if rec.OracleText != "" {
		return rec.OracleText
	}
	if len(rec.Faces) < 2 {
		return ""
	}

	var b strings.Builder
	for _, f := range rec.Faces {
		fmt.Fprintf(&b, "%s\n %s\n %s\n\n", f.Name, f.TypeLine, f.OracleText)
	}
	s := b.String()
	return s[:len(s)-2]
}

// resolveImageURL prefers the card's normal image, falling back to the
// faces' normal images joined with commas.
func resolveImageURL(rec Record) string {
	if rec.ImageURIs != nil && rec.ImageURIs.Normal != "" {
		return rec.ImageURIs.Normal
	}
	if len(rec.Faces) == 0 {
		return ""
	}

	urls := make([]string, len(rec.Faces))
	for i, f := range rec.Faces {
		if f.ImageURIs != nil {
			urls[i] = f.ImageURIs.Normal
		}
	}
	return strings.Join(urls, ",")
}
