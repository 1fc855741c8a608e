package selection

import (
	"bytes"
	"html/template"
	"strconv"

	"github.com/microcosm-cc/bluemonday"

	"github.com/anthonybishopric/relgraph/pkg/graph"
)

// Plural picks the singular form when n is exactly one.
func Plural(n float64, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}

type detailItem struct {
	Name    string
	URL     string
	Count   int
	Matches string
}

var detailTemplate = template.Must(template.New("detail").Parse(
	`<p><em>{{.Name}}</em> appears as an actor description {{.Value}} {{.Times}} in the following {{.Count}} {{.Stories}}:</p>` +
		`<ul class="stories">` +
		`{{range .Items}}<li><a href="{{.URL}}">{{.Name}}</a> <span class="match_count">({{.Count}} {{.Matches}})</span></li>{{end}}` +
		`</ul>`))

// sidebarPolicy admits exactly the markup the detail template produces.
var sidebarPolicy = newSidebarPolicy()

func newSidebarPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowElements("p", "em", "ul", "li", "span")
	p.AllowAttrs("class").OnElements("ul", "span")
	p.AllowAttrs("href").OnElements("a")
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https")
	return p
}

// RenderDetail renders the sidebar description of a node and the stories it
// appears in.
func RenderDetail(n *graph.Node, records []graph.DetailRecord) (template.HTML, error) {
	data := struct {
		Name    string
		Value   string
		Times   string
		Count   int
		Stories string
		Items   []detailItem
	}{
		Name:    n.Name,
		Value:   strconv.FormatFloat(n.Value, 'f', -1, 64),
		Times:   Plural(n.Value, "time", "times"),
		Count:   len(records),
		Stories: Plural(float64(len(records)), "story", "stories"),
	}
	for _, r := range records {
		data.Items = append(data.Items, detailItem{
			Name:    r.Name,
			URL:     r.URL,
			Count:   r.Appearances,
			Matches: Plural(float64(r.Appearances), "match", "matches"),
		})
	}

	var buf bytes.Buffer
	if err := detailTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return template.HTML(sidebarPolicy.SanitizeBytes(buf.Bytes())), nil
}
