package food

import (
	"sort"

	"github.com/xaenox/nutrobo/internal/models"
)

// NutrientInfo describes a canonical nutrient.
type NutrientInfo struct {
	Key  models.NutrientKey
	Name string
	Unit string
}

// taxonomy maps USDA nutrient numbers to canonical nutrients. Nutritionix
// attribute ids reuse the same numbering.
var taxonomy = map[int]NutrientInfo{
	203: {models.NutrientProtein, "Protein", "g"},
	204: {models.NutrientFat, "Total lipid (fat)", "g"},
	205: {models.NutrientCarbohydrate, "Carbohydrate, by difference", "g"},
	208: {models.NutrientEnergy, "Energy", "kcal"},
	269: {models.NutrientTotalSugar, "Total Sugars", "g"},
	291: {models.NutrientFiber, "Fiber, total dietary", "g"},
	301: {models.NutrientCalcium, "Calcium, Ca", "mg"},
	303: {models.NutrientIron, "Iron, Fe", "mg"},
	306: {models.NutrientPotassium, "Potassium, K", "mg"},
	307: {models.NutrientSodium, "Sodium, Na", "mg"},
	318: {models.NutrientVitaminA, "Vitamin A, IU", "iu"},
	324: {models.NutrientVitaminD, "Vitamin D (D2 + D3), International Units", "iu"},
	401: {models.NutrientVitaminC, "Vitamin C, total ascorbic acid", "mg"},
	539: {models.NutrientAddedSugar, "Sugars, added", "g"},
	601: {models.NutrientCholesterol, "Cholesterol", "mg"},
	605: {models.NutrientTransFat, "Fatty acids, total trans", "g"},
	606: {models.NutrientSaturatedFat, "Fatty acids, total saturated", "g"},
	645: {models.NutrientMonounsaturatedFat, "Fatty acids, total monounsaturated", "g"},
	646: {models.NutrientPolyunsaturatedFat, "Fatty acids, total polyunsaturated", "g"},
}

// Lookup returns the canonical nutrient for a provider nutrient number.
func Lookup(number int) (NutrientInfo, bool) {
	info, ok := taxonomy[number]
	return info, ok
}

// Codes returns every known nutrient number in ascending order.
func Codes() []int {
	codes := make([]int, 0, len(taxonomy))
	for code := range taxonomy {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// OrderedNutrients returns the nutrients of f in taxonomy order.
func OrderedNutrients(f *models.Food) []models.Nutrient {
	out := make([]models.Nutrient, 0, len(f.Nutrients))
	for _, code := range Codes() {
		if n, ok := f.Nutrients[taxonomy[code].Key]; ok {
			out = append(out, n)
		}
	}
	return out
}
