// Package locale holds the user-facing strings in every supported language.
package locale

import (
	"golang.org/x/text/language"
)

// Strings is the text shown in reports and on the command line
type Strings struct {
	Tag string

	ReportTitle     string
	SectionLocal    string
	SectionEnabled  string
	SectionDisabled string
	LocalBadge      string
	ManualInstall   string
	IconAlt         string

	NoExtensions     string
	NoneAfterFilter  string
	NothingSelected  string
	ExportFailed     string
	NoPermissions    string
	PermissionsTitle string
	Saved            string
	Total            string
}

var english = Strings{
	Tag:              "en",
	ReportTitle:      "Exported Extensions",
	SectionLocal:     "Development / Local",
	SectionEnabled:   "Enabled Extensions",
	SectionDisabled:  "Disabled Extensions",
	LocalBadge:       "LOCAL",
	ManualInstall:    "Manual installation required",
	IconAlt:          "Icon",
	NoExtensions:     "No extensions found.",
	NoneAfterFilter:  "No other extensions installed (or all filtered out).",
	NothingSelected:  "Please select at least one extension to export.",
	ExportFailed:     "Error exporting",
	NoPermissions:    "No special permissions required.",
	PermissionsTitle: "Permissions",
	Saved:            "Saved",
	Total:            "Total extensions",
}

var spanish = Strings{
	Tag:              "es",
	ReportTitle:      "Extensiones Exportadas",
	SectionLocal:     "Desarrollo / Local",
	SectionEnabled:   "Extensiones Habilitadas",
	SectionDisabled:  "Extensiones Deshabilitadas",
	LocalBadge:       "LOCAL",
	ManualInstall:    "Requiere instalación manual",
	IconAlt:          "Icono",
	NoExtensions:     "No se encontraron extensiones.",
	NoneAfterFilter:  "No hay otras extensiones instaladas (o todas fueron filtradas).",
	NothingSelected:  "Selecciona al menos una extensión para exportar.",
	ExportFailed:     "Error al exportar",
	NoPermissions:    "No requiere permisos especiales.",
	PermissionsTitle: "Permisos",
	Saved:            "Guardado",
	Total:            "Total de extensiones",
}

// first entry is the fallback
var (
	supported = []language.Tag{language.English, language.Spanish}
	tables    = []Strings{english, spanish}
	matcher   = language.NewMatcher(supported)
)

// Lookup returns the table that best matches the given BCP 47 tags, falling back to English
func Lookup(tags ...string) Strings {
	var wanted []language.Tag
	for _, t := range tags {
		if t == "" {
			continue
		}
		parsed, err := language.Parse(t)
		if err != nil {
			continue
		}
		wanted = append(wanted, parsed)
	}
	if len(wanted) == 0 {
		return english
	}

	_, idx, confidence := matcher.Match(wanted...)
	if confidence == language.No {
		return english
	}
	return tables[idx]
}

// English returns the default table
func English() Strings {
	return english
}
