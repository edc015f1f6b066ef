package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"html"
	"html/template"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"

	"go-extension-exporter/internal/browsers"
	"go-extension-exporter/internal/inventory"
	"go-extension-exporter/internal/locale"
)

const (
	storeDetailURL  = "https://chrome.google.com/webstore/detail/"
	fallbackIconURL = "https://www.google.com/s2/favicons?domain=chrome.google.com"
)

//go:embed report.html.tmpl
var reportSource string

var (
	reportTemplate = template.Must(template.New("report").Parse(reportSource))
	stripTags      = bluemonday.StrictPolicy()
)

type reportCard struct {
	ID          string
	Name        string
	Description string
	Version     string
	Local       bool
	Href        string
	Icon        template.URL
}

type reportSection struct {
	Kind  inventory.Kind
	Title string
	Cards []reportCard
}

type reportData struct {
	Lang          string
	Title         string
	Date          string
	IconAlt       string
	LocalBadge    string
	ManualInstall string
	Sections      []reportSection
}

// RenderHTMLReport renders a standalone HTML page with one section per non-empty group.
// iconMap holds inlined icons keyed by extension id; missing ids get the remote fallback.
func RenderHTMLReport(groups inventory.Groups, iconMap map[string]string, strs locale.Strings, date time.Time) (*Artifact, error) {
	stamp := date.UTC().Format(dateLayout)
	data := reportData{
		Lang:          strs.Tag,
		Title:         strs.ReportTitle,
		Date:          stamp,
		IconAlt:       strs.IconAlt,
		LocalBadge:    strs.LocalBadge,
		ManualInstall: strs.ManualInstall,
	}

	titles := map[inventory.Kind]string{
		inventory.KindLocal:    strs.SectionLocal,
		inventory.KindEnabled:  strs.SectionEnabled,
		inventory.KindDisabled: strs.SectionDisabled,
	}
	for _, s := range groups.Sections() {
		section := reportSection{Kind: s.Kind, Title: titles[s.Kind]}
		for _, e := range s.Extensions {
			section.Cards = append(section.Cards, newCard(e, iconMap[e.ID]))
		}
		data.Sections = append(data.Sections, section)
	}

	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}

	return &Artifact{
		Filename: "extensions-export-" + stamp + ".html",
		Content:  buf.Bytes(),
		MimeType: "text/html",
	}, nil
}

func newCard(e browsers.Extension, icon string) reportCard {
	card := reportCard{
		ID:          e.ID,
		Name:        plainText(e.Name),
		Description: plainText(e.Description),
		Version:     e.Version,
		Local:       e.IsLocal(),
		Icon:        template.URL(fallbackIconURL),
	}
	if !card.Local {
		card.Href = storeDetailURL + e.ID
	}
	// only inlined PNG data URLs bypass URL sanitizing
	if strings.HasPrefix(icon, "data:image/png;base64,") {
		card.Icon = template.URL(icon)
	}
	return card
}

// plainText strips markup. The template escapes the result again.
func plainText(s string) string {
	return html.UnescapeString(stripTags.Sanitize(s))
}
