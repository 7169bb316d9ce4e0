package i18n

import "strings"

// Message catalog. French is the fallback language, matching the default
// used by the preference middleware.
var translations = map[string]map[string]string{
	"fr": {
		"required":          "Requis",
		"must_be_positive":  "Doit être positif",
		"out_of_range":      "Hors limites",
		"invalid_json":      "JSON invalide",
		"not_found":         "Introuvable",
		"unauthorized":      "Non autorisé",
		"quote":             "Devis",
		"group_quote":       "Devis groupé",
		"invoice":           "Facture",
		"payment_recorded":  "Paiement enregistré",
		"quote_created":     "Devis créé",
		"invoice_created":   "Facture créée",
		"invalid_reference": "Référence invalide",
	},
	"en": {
		"required":          "Required",
		"must_be_positive":  "Must be positive",
		"out_of_range":      "Out of range",
		"invalid_json":      "Invalid JSON",
		"not_found":         "Not found",
		"unauthorized":      "Unauthorized",
		"quote":             "Quote",
		"group_quote":       "Group quote",
		"invoice":           "Invoice",
		"payment_recorded":  "Payment recorded",
		"quote_created":     "Quote created",
		"invoice_created":   "Invoice created",
		"invalid_reference": "Invalid reference",
	},
}

// T translates code for lang, falling back to French, then to the code
// itself when no translation exists.
func T(lang, code string) string {
	if m, ok := translations[lang]; ok {
		if v, ok := m[code]; ok {
			return v
		}
	}
	if v, ok := translations["fr"][code]; ok {
		return v
	}
	return code
}

// DetectLanguage picks a supported language from an Accept-Language header.
func DetectLanguage(acceptLanguage string) string {
	for _, part := range strings.Split(acceptLanguage, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if i := strings.IndexAny(tag, "-;"); i >= 0 {
			tag = tag[:i]
		}
		switch tag {
		case "en":
			return "en"
		case "fr":
			return "fr"
		}
	}
	return "fr"
}
