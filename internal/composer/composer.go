// Package composer renders nutrition facts into assistant message content.
package composer

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/xaenox/nutrobo/internal/models"
)

const header = "Calculating insulin dose for:"

// FoodMessage describes a resolved food for the assistant.
func FoodMessage(f *models.Food) string {
	var b strings.Builder
	b.WriteString(header)
	fmt.Fprintf(&b, "\nFood name: %s", strings.TrimSpace(f.BrandName+" "+f.FoodName))
	fmt.Fprintf(&b, "\nServing size: %s %s", formatValue(f.ServingSize.Value), f.ServingSize.Unit)
	b.WriteString("\nNutrition info:")
	for _, line := range []struct {
		label string
		key   models.NutrientKey
	}{
		{"Carbohydrate", models.NutrientCarbohydrate},
		{"Fiber", models.NutrientFiber},
		{"Protein", models.NutrientProtein},
	} {
		n, ok := f.Nutrient(line.key)
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "\n - %s: %s%s", line.label, formatValue(n.Value), n.Unit)
	}
	return b.String()
}

// OCR frequently reads "g" as "9".
var (
	servingRe = regexp.MustCompile(`Per \d .* \(\d+ g\)`)
	carbRe    = regexp.MustCompile(`Carbohydrate\s*/\s*Glucides\s*\d+\s*[g9]`)
	fiberRe   = regexp.MustCompile(`Fibre\s*/\s*Fibres\s*\d+\s*[g9]`)
	proteinRe = regexp.MustCompile(`Protein\s*/\s*Prot(?:é|e|Ã©)ines\s*\d+\s*[g9]`)
)

// NutritionInfoMessage extracts serving size, carbohydrate, fibre and protein
// from bilingual label text. Lines that cannot be found are omitted.
func NutritionInfoMessage(label string) string {
	var b strings.Builder
	b.WriteString(header)
	if m := servingRe.FindString(label); m != "" {
		fmt.Fprintf(&b, "\nServing size: %s", m)
	}
	for _, re := range []*regexp.Regexp{carbRe, fiberRe, proteinRe} {
		if m := re.FindString(label); m != "" {
			fmt.Fprintf(&b, "\n - %s", m)
		}
	}
	return b.String()
}

// ToolNutrientLine formats a nutrient as "<value> <unit> <name>".
func ToolNutrientLine(n models.Nutrient) string {
	return fmt.Sprintf("%s %s %s", formatValue(n.Value), n.Unit, n.Name)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
