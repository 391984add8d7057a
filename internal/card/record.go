// Package card turns Scryfall card printings into sellable catalog entries.
package card

// Record is one card printing as returned by the Scryfall API. Optional
// objects are pointers or slices; a nil ImageURIs means the API omitted
// image_uris, which happens for multi-faced layouts.
type Record struct {
	ID              string            `json:"id"`
	OracleID        string            `json:"oracle_id"`
	Name            string            `json:"name"`
	Lang            string            `json:"lang"`
	Layout          string            `json:"layout"`
	ReleasedAt      string            `json:"released_at"`
	ImageURIs       *ImageURIs        `json:"image_uris,omitempty"`
	ManaCost        string            `json:"mana_cost"`
	CMC             float64           `json:"cmc"`
	TypeLine        string            `json:"type_line"`
	OracleText      string            `json:"oracle_text"`
	ColorIdentity   []string          `json:"color_identity"`
	Keywords        []string          `json:"keywords"`
	Legalities      map[string]string `json:"legalities"`
	Finishes        []string          `json:"finishes"`
	Promo           bool              `json:"promo"`
	PromoTypes      []string          `json:"promo_types,omitempty"`
	SetCode         string            `json:"set"`
	SetName         string            `json:"set_name"`
	CollectorNumber string            `json:"collector_number"`
	Rarity          string            `json:"rarity"`
	Prices          Prices            `json:"prices"`
	RelatedURIs     map[string]string `json:"related_uris,omitempty"`
	PurchaseURIs    map[string]string `json:"purchase_uris,omitempty"`
	Faces           []Face            `json:"card_faces,omitempty"`
}

// Face is one face of a multi-faced card.
type Face struct {
	Name       string     `json:"name"`
	ManaCost   string     `json:"mana_cost"`
	TypeLine   string     `json:"type_line"`
	OracleText string     `json:"oracle_text"`
	ImageURIs  *ImageURIs `json:"image_uris,omitempty"`
}

// ImageURIs holds the image renditions Scryfall publishes for a card or face.
type ImageURIs struct {
	Small      string `json:"small"`
	Normal     string `json:"normal"`
	Large      string `json:"large"`
	PNG        string `json:"png"`
	ArtCrop    string `json:"art_crop"`
	BorderCrop string `json:"border_crop"`
}

// Prices are decimal strings in the named currency. nil means no market price.
type Prices struct {
	USD       *string `json:"usd"`
	USDFoil   *string `json:"usd_foil"`
	USDEtched *string `json:"usd_etched"`
	EUR       *string `json:"eur"`
	EURFoil   *string `json:"eur_foil"`
	TIX       *string `json:"tix"`
}

// Finish values used by Scryfall.
const (
	FinishNonfoil = "nonfoil"
	FinishFoil    = "foil"
	FinishEtched  = "etched"
)

// Card is the summary derived from a Record, shared by all its variants.
type Card struct {
	ID            string            `json:"id"`
	OracleID      string            `json:"oracle_id"`
	Name          string            `json:"name"`
	TypeLine      string            `json:"type_line"`
	OracleText    string            `json:"oracle_text"`
	SetCode       string            `json:"set"`
	SetName       string            `json:"set_name"`
	Rarity        string            `json:"rarity"`
	ColorIdentity []string          `json:"color_identity"`
	ManaCost      string            `json:"mana_cost"`
	CMC           float64           `json:"cmc"`
	ImageURL      string            `json:"image_url"`
	Keywords      []string          `json:"keywords"`
	Legalities    map[string]string `json:"legalities"`
	RelatedURIs   map[string]string `json:"related_uris,omitempty"`
	SKUParent     string            `json:"sku_parent"`
}

// Variant is one purchasable finish of a printing.
type Variant struct {
	SKU             string `json:"sku"`
	CardOracleID    string `json:"card_oracle_id"`
	SetCode         string `json:"set"`
	SetName         string `json:"set_name"`
	CollectorNumber string `json:"collector_number"`
	Promo           bool   `json:"promo"`
	Finish          string `json:"finish"`
	Rarity          string `json:"rarity"`
	// Price is in minor units of the target currency.
	Price       int64  `json:"price"`
	ReleaseDate string `json:"release_date"`
	ImageURL    string `json:"image_url"`
}

// IsFoil reports whether the variant is the foil finish.
func (v Variant) IsFoil() bool {
	return v.Finish == FinishFoil
}

// Derived is the result of Derive.
type Derived struct {
	Card       Card
	Variants   []Variant
	Finishes   []string
	PromoTypes []string
}
