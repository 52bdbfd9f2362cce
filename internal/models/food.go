package models

// FoodSource identifies the provider a Food was normalized from.
type FoodSource string

const (
	SourceFDC         FoodSource = "fdc"
	SourceNutritionix FoodSource = "ntrx"
)

// NutrientKey is a provider-independent nutrient name.
type NutrientKey string

const (
	NutrientProtein            NutrientKey = "protein"
	NutrientFat                NutrientKey = "fat"
	NutrientCarbohydrate       NutrientKey = "carbohydrate"
	NutrientEnergy             NutrientKey = "energy"
	NutrientTotalSugar         NutrientKey = "totalSugar"
	NutrientFiber              NutrientKey = "fiber"
	NutrientCalcium            NutrientKey = "calcium"
	NutrientIron               NutrientKey = "iron"
	NutrientPotassium          NutrientKey = "potassium"
	NutrientSodium             NutrientKey = "sodium"
	NutrientAddedSugar         NutrientKey = "addedSugar"
	NutrientCholesterol        NutrientKey = "cholesterol"
	NutrientTransFat           NutrientKey = "transFat"
	NutrientSaturatedFat       NutrientKey = "saturatedFat"
	NutrientVitaminA           NutrientKey = "vitaminA"
	NutrientVitaminD           NutrientKey = "vitaminD"
	NutrientVitaminC           NutrientKey = "vitaminC"
	NutrientMonounsaturatedFat NutrientKey = "monounsaturatedFat"
	NutrientPolyunsaturatedFat NutrientKey = "polyunsaturatedFat"
)

// Nutrient is a single nutrient amount. Value is expressed in Unit and is
// never converted; read Unit before using Value.
type Nutrient struct {
	ID    int     `json:"id"`
	Name  string  `json:"name"`
	Unit  string  `json:"unit"`
	Value float64 `json:"value"`
}

type ServingSize struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
}

// Food is the canonical food record shared by every provider.
type Food struct {
	ID          string                   `json:"id"`
	FoodName    string                   `json:"foodName"`
	BrandName   string                   `json:"brandName"`
	Source      FoodSource               `json:"source"`
	Barcode     string                   `json:"barcode"`
	ServingSize ServingSize              `json:"servingSize"`
	Nutrients   map[NutrientKey]Nutrient `json:"nutrients"`
}

// Nutrient returns the nutrient stored under key, if any.
func (f *Food) Nutrient(key NutrientKey) (Nutrient, bool) {
	n, ok := f.Nutrients[key]
	return n, ok
}
