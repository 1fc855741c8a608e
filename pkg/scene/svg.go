package scene

import (
	"bytes"
	"html/template"
	"io"
)

// SVGOptions configures snapshot rendering.
type SVGOptions struct {
	Title  string
	Width  float64
	Height float64
}

type svgNode struct {
	Key       string
	Selected  bool
	Transform string
	Opacity   string
	Radius    string
	Fill      string
	Label     string
}

type svgLink struct {
	Key         string
	Selected    bool
	X1, Y1      string
	X2, Y2      string
	StrokeWidth string
	Opacity     string
}

// RenderSVG draws the current state of a Memory surface as a standalone SVG
// document. Running transitions are drawn at their start values.
func RenderSVG(m *Memory, opts SVGOptions) ([]byte, error) {
	data := struct {
		Title  string
		Width  string
		Height string
		Links  []svgLink
		Nodes  []svgNode
	}{
		Title:  opts.Title,
		Width:  Num(opts.Width),
		Height: Num(opts.Height),
	}

	for _, e := range m.Elements(KindLink) {
		data.Links = append(data.Links, svgLink{
			Key:         e.Key,
			Selected:    e.HasClass(ClassSelected),
			X1:          or(e.Attrs[AttrX1], "0"),
			Y1:          or(e.Attrs[AttrY1], "0"),
			X2:          or(e.Attrs[AttrX2], "0"),
			Y2:          or(e.Attrs[AttrY2], "0"),
			StrokeWidth: or(e.Attrs[AttrStrokeWidth], "1"),
			Opacity:     or(e.Attrs[AttrOpacity], "1"),
		})
	}
	for _, e := range m.Elements(KindNode) {
		data.Nodes = append(data.Nodes, svgNode{
			Key:       e.Key,
			Selected:  e.HasClass(ClassSelected),
			Transform: or(e.Attrs[AttrTransform], "translate(0,0)"),
			Opacity:   or(e.Attrs[AttrOpacity], "1"),
			Radius:    or(e.Attrs[AttrRadius], "3"),
			Fill:      or(e.Attrs[AttrFill], "#1f77b4"),
			Label:     e.Attrs[AttrLabel],
		})
	}

	tmpl, err := template.New("svg").Parse(svgTemplate)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteSVG renders the surface to w.
func WriteSVG(w io.Writer, m *Memory, opts SVGOptions) error {
	out, err := RenderSVG(m, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

func or(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

const svgTemplate = `<svg xmlns="http://www.w3.org/2000/svg" width="{{.Width}}" height="{{.Height}}" viewBox="0 0 {{.Width}} {{.Height}}">
{{- if .Title}}
  <title>{{.Title}}</title>
{{- end}}
  <style>
    .link { stroke: #999; }
    .link.selected { stroke: #ff6b00; }
    .node circle { stroke: #fff; stroke-width: 1.5px; }
    .node.selected circle { stroke: #ff6b00; stroke-width: 3px; }
    .label { font: 10px sans-serif; pointer-events: none; }
  </style>
  <g id="links">
{{- range .Links}}
    <line class="link{{if .Selected}} selected{{end}}" data-key="{{.Key}}" x1="{{.X1}}" y1="{{.Y1}}" x2="{{.X2}}" y2="{{.Y2}}" stroke-width="{{.StrokeWidth}}" opacity="{{.Opacity}}"/>
{{- end}}
  </g>
  <g id="nodes">
{{- range .Nodes}}
    <g class="node{{if .Selected}} selected{{end}}" data-key="{{.Key}}" transform="{{.Transform}}" opacity="{{.Opacity}}">
      <circle r="{{.Radius}}" fill="{{.Fill}}"/>
      <text class="label" dy=".3em" text-anchor="middle">{{.Label}}</text>
    </g>
{{- end}}
  </g>
</svg>
`
