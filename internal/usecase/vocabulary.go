package usecase

// BrandEntry maps a canonical brand to the surface forms that identify it
type BrandEntry struct {
	Name     string   `mapstructure:"name" yaml:"name"`
	Variants []string `mapstructure:"variants" yaml:"variants"`
}

// CategoryEntry maps a canonical category to the terms that identify it
type CategoryEntry struct {
	Name     string   `mapstructure:"name" yaml:"name"`
	Variants []string `mapstructure:"variants" yaml:"variants"`
}

// Vocabulary holds the data-driven lookup tables used by normalization and
// attribute extraction. Table order is significant: the first entry that
// matches wins.
type Vocabulary struct {
	Brands     []BrandEntry    `mapstructure:"brands" yaml:"brands"`
	Categories []CategoryEntry `mapstructure:"categories" yaml:"categories"`
	Colors     []string        `mapstructure:"colors" yaml:"colors"`
	PromoWords []string        `mapstructure:"promo_words" yaml:"promo_words"`
}

// DefaultVocabulary returns the built-in tables
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Brands:     defaultBrands(),
		Categories: defaultCategories(),
		Colors:     defaultColors(),
		PromoWords: defaultPromoWords(),
	}
}

// WithDefaults fills every empty table from the built-in vocabulary
func (v Vocabulary) WithDefaults() Vocabulary {
	d := DefaultVocabulary()
	if len(v.Brands) == 0 {
		v.Brands = d.Brands
	}
	if len(v.Categories) == 0 {
		v.Categories = d.Categories
	}
	if len(v.Colors) == 0 {
		v.Colors = d.Colors
	}
	if len(v.PromoWords) == 0 {
		v.PromoWords = d.PromoWords
	}
	return v
}

func defaultBrands() []BrandEntry {
	return []BrandEntry{
		// Phones
		{Name: "samsung", Variants: []string{"samsung", "sam sung", "samsumg", "galaxy"}},
		{Name: "apple", Variants: []string{"apple", "iphone", "ipad", "macbook", "airpods"}},
		{Name: "xiaomi", Variants: []string{"xiaomi", "redmi", "poco", "mi"}},
		{Name: "huawei", Variants: []string{"huawei", "honor"}},
		{Name: "oppo", Variants: []string{"oppo", "realme"}},
		{Name: "vivo", Variants: []string{"vivo", "iqoo"}},
		{Name: "oneplus", Variants: []string{"oneplus", "one plus"}},
		{Name: "nokia", Variants: []string{"nokia"}},
		{Name: "tecno", Variants: []string{"tecno", "camon", "spark"}},
		{Name: "infinix", Variants: []string{"infinix", "hot", "note"}},
		{Name: "itel", Variants: []string{"itel"}},

		// Laptops
		{Name: "hp", Variants: []string{"hp", "hewlett packard"}},
		{Name: "dell", Variants: []string{"dell"}},
		{Name: "lenovo", Variants: []string{"lenovo", "thinkpad"}},
		{Name: "asus", Variants: []string{"asus", "rog"}},
		{Name: "acer", Variants: []string{"acer"}},
		{Name: "msi", Variants: []string{"msi"}},

		// Other
		{Name: "lg", Variants: []string{"lg"}},
		{Name: "sony", Variants: []string{"sony"}},
		{Name: "jbl", Variants: []string{"jbl"}},
		{Name: "anker", Variants: []string{"anker"}},
	}
}

func defaultCategories() []CategoryEntry {
	return []CategoryEntry{
		{Name: "smartphones", Variants: []string{"phone", "smartphone", "mobile", "telephone", "cellphone"}},
		{Name: "laptops", Variants: []string{"laptop", "notebook", "ordinateur portable", "pc portable"}},
		{Name: "tablets", Variants: []string{"tablet", "ipad", "tablette"}},
		{Name: "headphones", Variants: []string{"headphone", "earphone", "ecouteur", "casque", "airpod"}},
		{Name: "smartwatches", Variants: []string{"smartwatch", "watch", "montre"}},
		{Name: "accessories", Variants: []string{"case", "cover", "charger", "cable", "accessoire"}},
	}
}

func defaultColors() []string {
	return []string{
		"black", "white", "blue", "red", "green", "gold", "silver", "gray", "grey",
		"pink", "purple", "yellow", "orange",
		"noir", "blanc", "bleu", "rouge", "vert", "argent", "gris", "rose", "violet", "jaune",
	}
}

func defaultPromoWords() []string {
	return []string{
		// Promotions
		"promo", "promotion", "offre", "reduction", "soldes", "deal", "mega", "flash", "discount",
		// Authenticity claims
		"original", "authentic", "authentique", "official", "officiel", "genuine", "brand",
		// Condition and logistics
		"new", "neuf", "nouveau", "livraison", "gratuite", "gratuit", "garantie", "warranty",
	}
}
