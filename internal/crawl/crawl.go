// Package crawl converts crawler export data into units of work. Page HTML
// is parsed with goquery into the structured fields agents inspect; the
// crawler's discovered API endpoints are attached to the pages they belong
// to.
package crawl

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/optiserve/geocoord/internal/geo"
)

// Export is the on-disk shape of one crawl run.
type Export struct {
	Site  string `json:"site,omitempty"`
	Pages []Page `json:"pages"`

	// APIEndpoints mirrors the crawler's discovery output.
	APIEndpoints struct {
		Discovered []DiscoveredEndpoint `json:"discovered,omitempty"`
	} `json:"apiEndpoints,omitempty"`
}

// Page is one crawled page: raw HTML plus transport metadata.
type Page struct {
	URL        string    `json:"url"`
	HTML       string    `json:"html"`
	StatusCode int       `json:"statusCode,omitempty"`
	LoadTimeMs int       `json:"loadTimeMs,omitempty"`
	FetchedAt  time.Time `json:"fetchedAt,omitempty"`
}

// DiscoveredEndpoint is one API endpoint the crawler found.
type DiscoveredEndpoint struct {
	Endpoint     string `json:"endpoint"`
	Method       string `json:"method,omitempty"`
	ContentType  string `json:"contentType,omitempty"`
	AuthRequired bool   `json:"authRequired,omitempty"`
}

// Load reads a crawl export JSON file.
func Load(path string) (*Export, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("crawl: read export: %w", err)
	}
	var export Export
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, fmt.Errorf("crawl: parse export: %w", err)
	}
	return &export, nil
}

// Units converts every exported page into a unit of work. A page whose HTML
// fails to parse is skipped with its error collected; one broken page never
// loses the rest of the crawl.
func (e *Export) Units() ([]geo.UnitOfWork, []error) {
	var units []geo.UnitOfWork
	var errs []error

	for _, page := range e.Pages {
		unit, err := ParsePage(page.URL, page.HTML)
		if err != nil {
			errs = append(errs, fmt.Errorf("crawl: %s: %w", page.URL, err))
			continue
		}
		unit.StatusCode = page.StatusCode
		unit.LoadTime = time.Duration(page.LoadTimeMs) * time.Millisecond
		unit.FetchedAt = page.FetchedAt
		units = append(units, unit)
	}

	e.attachEndpoints(units)
	return units, errs
}

// attachEndpoints assigns each discovered endpoint to the page whose URL
// prefixes it, falling back to the first page for unmatched endpoints.
func (e *Export) attachEndpoints(units []geo.UnitOfWork) {
	if len(units) == 0 {
		return
	}

	for _, d := range e.APIEndpoints.Discovered {
		ep := geo.APIEndpoint{
			URL:            d.Endpoint,
			Method:         strings.ToUpper(d.Method),
			ResponseFormat: responseFormat(d.ContentType),
			AuthRequired:   d.AuthRequired,
		}
		if ep.Method == "" {
			ep.Method = "GET"
		}

		// Longest matching page URL wins so nested endpoints land on the
		// most specific page rather than the site root.
		target, best := 0, -1
		for i := range units {
			prefix := strings.TrimRight(units[i].URL, "/")
			if strings.HasPrefix(d.Endpoint, prefix) && len(prefix) > best {
				target, best = i, len(prefix)
			}
		}
		units[target].APIEndpoints = append(units[target].APIEndpoints, ep)
	}
}

// responseFormat maps a Content-Type header to the coarse format agents
// reason about.
func responseFormat(contentType string) string {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "json"):
		return "json"
	case strings.Contains(ct, "xml"):
		return "xml"
	case strings.Contains(ct, "javascript"):
		return "javascript"
	default:
		return "unknown"
	}
}

// ParsePage extracts the structured page fields from raw HTML.
func ParsePage(url, html string) (geo.UnitOfWork, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return geo.UnitOfWork{}, fmt.Errorf("parse html: %w", err)
	}

	unit := geo.UnitOfWork{
		URL:   url,
		Title: normalizeText(doc.Find("title").First().Text()),
	}
	unit.MetaDescription, _ = doc.Find(`meta[name="description"]`).First().Attr("content")
	unit.MetaDescription = strings.TrimSpace(unit.MetaDescription)

	doc.Find("h1,h2,h3,h4,h5,h6").Each(func(_ int, s *goquery.Selection) {
		tag := goquery.NodeName(s)
		unit.Headings = append(unit.Headings, geo.Heading{
			Level: int(tag[1] - '0'),
			Text:  normalizeText(s.Text()),
		})
	})

	unit.StructuredData = extractStructuredData(doc)
	unit.Forms = extractForms(doc)
	unit.Text = normalizeText(doc.Find("body").Text())

	return unit, nil
}

// extractStructuredData collects JSON-LD script blocks and microdata
// scopes.
func extractStructuredData(doc *goquery.Document) []geo.SchemaBlock {
	var blocks []geo.SchemaBlock

	doc.Find(`script[type="application/ld+json"]`).Each(func(_ int, s *goquery.Selection) {
		raw := strings.TrimSpace(s.Text())
		blocks = append(blocks, geo.SchemaBlock{
			Type:   jsonLDType(raw),
			Format: "json-ld",
			Raw:    raw,
		})
	})

	doc.Find("[itemscope]").Each(func(_ int, s *goquery.Selection) {
		itemType, ok := s.Attr("itemtype")
		if !ok {
			return
		}
		blocks = append(blocks, geo.SchemaBlock{
			Type:   lastSegment(itemType),
			Format: "microdata",
		})
	})

	return blocks
}

// jsonLDType pulls the @type out of a JSON-LD block. The root may be an
// object or an array; anything unparseable yields an empty type, which the
// visibility agent treats as an unknown schema.
func jsonLDType(raw string) string {
	var node any
	if err := json.Unmarshal([]byte(raw), &node); err != nil {
		return ""
	}
	if arr, ok := node.([]any); ok && len(arr) > 0 {
		node = arr[0]
	}
	obj, ok := node.(map[string]any)
	if !ok {
		return ""
	}
	switch t := obj["@type"].(type) {
	case string:
		return t
	case []any:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// extractForms collects forms with their fields and associated labels.
func extractForms(doc *goquery.Document) []geo.Form {
	// Resolve label text by target ID first so fields can look it up.
	labels := make(map[string]string)
	doc.Find("label[for]").Each(func(_ int, s *goquery.Selection) {
		if id, ok := s.Attr("for"); ok {
			labels[id] = normalizeText(s.Text())
		}
	})

	var forms []geo.Form
	doc.Find("form").Each(func(_ int, f *goquery.Selection) {
		form := geo.Form{Method: "GET"}
		if action, ok := f.Attr("action"); ok {
			form.Action = strings.TrimSpace(action)
		}
		if method, ok := f.Attr("method"); ok && method != "" {
			form.Method = strings.ToUpper(strings.TrimSpace(method))
		}

		f.Find("input,select,textarea").Each(func(_ int, in *goquery.Selection) {
			fieldType := goquery.NodeName(in)
			if t, ok := in.Attr("type"); ok && t != "" {
				fieldType = t
			}
			if fieldType == "hidden" || fieldType == "submit" {
				return
			}

			field := geo.FormField{Type: fieldType}
			field.Name, _ = in.Attr("name")
			_, field.Required = in.Attr("required")

			if id, ok := in.Attr("id"); ok {
				field.Label = labels[id]
			}
			if field.Label == "" {
				// Wrapping label without a for attribute.
				if parent := in.ParentsFiltered("label").First(); parent.Length() > 0 {
					field.Label = normalizeText(parent.Text())
				}
			}

			form.Fields = append(form.Fields, field)
		})

		forms = append(forms, form)
	})

	return forms
}

// lastSegment returns the final path segment of a schema.org itemtype URL.
func lastSegment(url string) string {
	trimmed := strings.TrimRight(url, "/")
	if i := strings.LastIndex(trimmed, "/"); i >= 0 {
		return trimmed[i+1:]
	}
	return trimmed
}

// normalizeText collapses whitespace runs into single spaces.
func normalizeText(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	scanner := bufio.NewScanner(strings.NewReader(input))
	for scanner.Scan() {
		line := strings.Join(strings.Fields(scanner.Text()), " ")
		if line != "" {
			b.WriteString(line)
			b.WriteString(" ")
		}
	}
	return strings.TrimSpace(b.String())
}
