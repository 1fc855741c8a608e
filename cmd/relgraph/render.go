package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/anthonybishopric/relgraph/pkg/client"
	"github.com/anthonybishopric/relgraph/pkg/graph"
	"github.com/anthonybishopric/relgraph/pkg/layout"
	"github.com/anthonybishopric/relgraph/pkg/render"
	"github.com/anthonybishopric/relgraph/pkg/scene"
	"github.com/anthonybishopric/relgraph/pkg/server"
	"github.com/anthonybishopric/relgraph/pkg/view"
)

var renderFlags struct {
	dataURL   string
	eventsURL string
	filters   []string
	reload    []string
	sel       string
	output    string
	title     string
	timeout   time.Duration
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Load the graph from a running server and write an SVG snapshot",
	Example: `  relgraph render -o graph.svg
  relgraph render --data-url https://example.org/graph/data/ --events-url https://example.org/graph/events/
  relgraph render --filter action=3 --select 12 -o crowd.svg
  relgraph render --filter action=1 --reload action=2 -o -`,
	Args: cobra.NoArgs,
	RunE: runRender,
}

func init() {
	f := renderCmd.Flags()
	f.StringVar(&renderFlags.dataURL, "data-url", "http://localhost:8080"+server.PathData, "graph data endpoint")
	f.StringVar(&renderFlags.eventsURL, "events-url", "http://localhost:8080"+server.PathEvents, "event lookup endpoint")
	f.StringArrayVar(&renderFlags.filters, "filter", nil, "filter as name=value, repeatable")
	f.StringArrayVar(&renderFlags.reload, "reload", nil, "reload with these filters after the first load, repeatable")
	f.StringVar(&renderFlags.sel, "select", "", "actor id to select after loading")
	f.StringVarP(&renderFlags.output, "output", "o", "graph.svg", "output file, - for stdout")
	f.StringVarP(&renderFlags.title, "title", "t", "Relationship Graph", "SVG title")
	f.DurationVar(&renderFlags.timeout, "timeout", 30*time.Second, "give up after this long")
}

type sidebar struct {
	html  template.HTML
	width int
}

func (s *sidebar) SetContent(html template.HTML) { s.html = html }

func (s *sidebar) AnimatePanel(width int, _ string, _ time.Duration) { s.width = width }

func runRender(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer logger.Sync()

	filters, err := graph.ParseFilters(renderFlags.filters)
	if err != nil {
		return err
	}
	var reload graph.FilterSet
	if len(renderFlags.reload) > 0 {
		if reload, err = graph.ParseFilters(renderFlags.reload); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), renderFlags.timeout)
	defer cancel()

	fetcher := client.New(client.Options{
		DataURL:   renderFlags.dataURL,
		EventsURL: renderFlags.eventsURL,
		Logger:    logger.Named("client"),
	})

	var errs *multierror.Error
	surface := scene.NewMemory()
	side := &sidebar{}
	vp := layout.Viewport{Width: cfg.View.Width, Height: cfg.View.Height}
	v := view.New(view.Options{
		Surface:    surface,
		Simulation: render.NewStatic(),
		Content:    side,
		Panel:      side,
		Errors:     view.ErrorFunc(func(err error) { errs = multierror.Append(errs, err) }),
		Fetcher:    fetcher,
		Viewport:   vp,
		Logger:     logger.Named("view"),
		Applied: func(ds *graph.Dataset, stats render.JoinStats) {
			info.Fprintf(os.Stderr, "loaded %d nodes, %d links", len(ds.Nodes), len(ds.Links))
			subtle.Fprintf(os.Stderr, " (+%d ~%d -%d nodes)\n", stats.NodesEntered, stats.NodesUpdated, stats.NodesExited)
		},
	})
	defer v.Close()

	load := func(fs graph.FilterSet) error {
		v.SetFilters(fs)
		v.Loop.Post(func() { v.Orchestrator.LoadFiltered(ctx) })
		return v.Settle(ctx)
	}
	if err := load(filters); err != nil {
		return err
	}
	if reload != nil {
		surface.Settle()
		if err := load(reload); err != nil {
			return err
		}
	}
	if renderFlags.sel != "" {
		var found bool
		v.Loop.Post(func() { found = surface.Click(scene.KindNode, renderFlags.sel) })
		if err := v.Settle(ctx); err != nil {
			return err
		}
		if !found {
			errs = multierror.Append(errs, fmt.Errorf("actor %s is not in the graph", renderFlags.sel))
		}
	}
	if err := errs.ErrorOrNil(); err != nil {
		return err
	}
	surface.Settle()

	if side.html != "" {
		brand.Fprintln(os.Stderr, "sidebar")
		fmt.Fprintln(os.Stderr, string(side.html))
	}

	var w io.Writer = os.Stdout
	if renderFlags.output != "-" {
		f, err := os.Create(renderFlags.output)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	if err := scene.WriteSVG(w, surface, scene.SVGOptions{
		Title:  renderFlags.title,
		Width:  vp.Width,
		Height: vp.Height,
	}); err != nil {
		return err
	}
	if renderFlags.output != "-" {
		fmt.Printf("%s wrote %s\n", good.Sprint("✓"), renderFlags.output)
	}
	return nil
}
