package importer

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/paramirez/deckzter-seed/internal/card"
	"github.com/paramirez/deckzter-seed/internal/catalog"
	"github.com/paramirez/deckzter-seed/pkg/handle"
)

// Tag values attached to imported products.
const (
	TagFoil  = "FOIL"
	TagPromo = "PROMO"
)

// FinishOption is the product option imported variants are keyed on.
const FinishOption = "finishes"

// rarityTags lists the rarities that get a tag of the same name.
var rarityTags = []string{"COMMON", "UNCOMMON", "RARE", "MYTHIC"}

// References are the shared rows every imported product links to.
type References struct {
	CollectionID   string
	TypeID         string
	SalesChannelID string
	// Tags maps tag value to tag id.
	Tags map[string]string
}

// ExternalID identifies the product created for one variant of a printing.
func ExternalID(c card.Card, v card.Variant) string {
	return c.ID + "_" + v.SKU
}

// Subtitle labels promo and foil variants.
func Subtitle(v card.Variant) string {
	switch {
	case v.Promo && v.IsFoil():
		return TagPromo + " " + TagFoil
	case v.Promo:
		return TagPromo
	case v.IsFoil():
		return TagFoil
	default:
		return ""
	}
}

// BuildProduct maps one derived variant onto a published product with a
// single variant.
func BuildProduct(c card.Card, v card.Variant, refs References, now time.Time) *catalog.Product {
	var images []string
	if c.ImageURL != "" {
		images = strings.Split(c.ImageURL, ",")
	}

	return &catalog.Product{
		ID:              uuid.New().String(),
		Title:           c.Name,
		Subtitle:        Subtitle(v),
		Description:     c.OracleText,
		Handle:          handle.Sanitize(c.Name + "-" + v.SKU),
		Status:          catalog.ProductStatusPublished,
		ExternalID:      ExternalID(c, v),
		CollectionID:    refs.CollectionID,
		TypeID:          refs.TypeID,
		Images:          images,
		TagIDs:          productTags(v, refs.Tags),
		SalesChannelIDs: []string{refs.SalesChannelID},
		Options: []catalog.ProductOption{{
			Title:  FinishOption,
			Values: []string{v.Finish},
		}},
		Variants: []catalog.ProductVariant{{
			Title:           fmt.Sprintf("%s %s %s", c.Name, strings.ToUpper(v.SetCode), strings.ToUpper(v.CollectorNumber)),
			SKU:             v.SKU,
			ManageInventory: true,
			Options:         map[string]string{FinishOption: v.Finish},
			CreatedAt:       now,
		}},
		Metadata: map[string]string{
			"scryfall_id":      c.ID,
			"oracle_id":        c.OracleID,
			"sku_parent":       c.SKUParent,
			"set":              v.SetCode,
			"set_name":         v.SetName,
			"collector_number": v.CollectorNumber,
			"finish":           v.Finish,
			"rarity":           v.Rarity,
			"release_date":     v.ReleaseDate,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// productTags returns the tag ids for v: FOIL, then PROMO, then the rarity.
// Tags missing from the map are left out.
func productTags(v card.Variant, tags map[string]string) []string {
	var ids []string
	add := func(value string) {
		if id, ok := tags[value]; ok {
			ids = append(ids, id)
		}
	}

	if v.IsFoil() {
		add(TagFoil)
	}
	if v.Promo {
		add(TagPromo)
	}
	add(strings.ToUpper(v.Rarity))
	return ids
}

// CollectionTitle is the title, and handle, of the collection holding a set.
func CollectionTitle(setCode string) string {
	return "MTG-" + strings.ToUpper(setCode)
}
