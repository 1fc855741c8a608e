package server

import (
	"bytes"
	"html/template"
	"net/http"

	"go.uber.org/zap"

	"github.com/anthonybishopric/relgraph/pkg/relations"
)

// PageOptions configures the viewer page.
type PageOptions struct {
	Title   string
	Width   int
	Height  int
	LiveURL string
	Filters []relations.FilterField
}

var pageTemplate = template.Must(template.New("graph").Parse(htmlTemplate))

// RenderPage generates the graph viewer page.
func RenderPage(opts PageOptions) ([]byte, error) {
	if opts.Title == "" {
		opts.Title = "Relationship Graph"
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, opts); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	filters, err := s.svc.FilterOptions(r.Context())
	if err != nil {
		s.logger.Error("failed to list filters", zap.Error(err))
		http.Error(w, "graph unavailable", http.StatusInternalServerError)
		return
	}
	html, err := RenderPage(PageOptions{
		Width:   int(s.cfg.Viewport.Width),
		Height:  int(s.cfg.Viewport.Height),
		LiveURL: PathLive,
		Filters: filters,
	})
	if err != nil {
		s.logger.Error("failed to render page", zap.Error(err))
		http.Error(w, "graph unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(html)
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <script src="https://d3js.org/d3.v7.min.js"></script>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
            background: #f5f5f5;
        }
        #controls { padding: 10px 16px; }
        #controls label { font-size: 14px; margin-right: 6px; }
        #graph_container { display: flex; }
        svg#graph { background: white; }
        .node { cursor: pointer; }
        .node:hover { filter: brightness(0.85); }
        .node circle { stroke: #fff; stroke-width: 1.5px; }
        .node.selected circle { stroke: #ff6b00; stroke-width: 3px; }
        .node .label {
            font-size: 11px;
            pointer-events: none;
            fill: #333;
        }
        .link { stroke: #999; stroke-opacity: 0.6; }
        .link.selected { stroke: #ff6b00; stroke-opacity: 1; }
        #graph_infobar {
            width: 8px;
            background: #fafafa;
            border-left: 1px solid #ddd;
            position: relative;
        }
        #graph_infobar_toggle {
            position: absolute;
            left: 0;
            top: 0;
            width: 8px;
            height: 100%;
            background: #ddd;
            cursor: pointer;
        }
        #graph_infobar_content {
            margin-left: 8px;
            padding: 8px;
            height: {{.Height}}px;
            overflow-y: hidden;
            font-size: 13px;
        }
        #graph_infobar_content ul.stories { margin: 8px 0 0 16px; }
        .match_count { color: #888; }
        #graph_error {
            display: none;
            padding: 10px 16px;
            background: #fff3f3;
            border: 1px solid #f44336;
            color: #c62828;
            font-family: monospace;
            font-size: 13px;
        }
    </style>
</head>
<body>
<div id="controls">
    {{range .Filters}}
    <label for="filter_{{.HTTPName}}">{{.Label}}</label>
    <select class="filter" id="filter_{{.HTTPName}}" name="{{.HTTPName}}">
        {{range .Values}}<option value="{{.Value}}">{{.Label}}</option>{{end}}
    </select>
    {{end}}
</div>
<div id="graph_error"></div>
<div id="graph_container">
    <svg id="graph" width="{{.Width}}" height="{{.Height}}">
        <g id="links"></g>
        <g id="nodes"></g>
    </svg>
    <div id="graph_infobar">
        <div id="graph_infobar_toggle"></div>
        <div id="graph_infobar_content"></div>
    </div>
</div>
<script>
(function() {
    const liveURL = {{.LiveURL}};
    const width = {{.Width}};
    const height = {{.Height}};

    const proto = location.protocol === "https:" ? "wss://" : "ws://";
    const socket = new WebSocket(proto + location.host + liveURL);

    const elements = new Map();   // element id -> d3 selection
    const keys = new Map();       // element id -> node key
    let simNodes = new Map();     // node key -> simulation node
    let tickPending = false;

    const simulation = d3.forceSimulation([])
        .force("link", d3.forceLink([]).id(d => d.id).distance(60))
        .force("charge", d3.forceManyBody().strength(-120))
        .force("center", d3.forceCenter(width / 2, height / 2))
        .stop();

    function send(msg) {
        if (socket.readyState === WebSocket.OPEN) {
            socket.send(JSON.stringify(msg));
        }
    }

    function sendFilters() {
        const filters = {};
        d3.selectAll("select.filter").each(function() {
            filters[this.name] = this.value;
        });
        send({type: "filter", filters: filters});
    }

    // Positions are reported at most once per animation frame.
    simulation.on("tick", () => {
        if (tickPending) return;
        tickPending = true;
        requestAnimationFrame(() => {
            tickPending = false;
            const positions = [];
            simNodes.forEach(n => positions.push({
                id: n.id, x: n.x, y: n.y,
                px: n.x - (n.vx || 0), py: n.y - (n.vy || 0),
            }));
            send({type: "tick", positions: positions});
        });
    });

    function drag(key) {
        function dragstarted(event) {
            const n = simNodes.get(key);
            if (!n) return;
            if (!event.active) simulation.alphaTarget(0.3).restart();
            n.fx = n.x;
            n.fy = n.y;
        }
        function dragged(event) {
            const n = simNodes.get(key);
            if (!n) return;
            n.fx = event.x;
            n.fy = event.y;
        }
        function dragended(event) {
            const n = simNodes.get(key);
            if (!n) return;
            if (!event.active) simulation.alphaTarget(0);
            n.fx = null;
            n.fy = null;
        }
        return d3.drag()
            .subject(() => simNodes.get(key))
            .on("start", dragstarted)
            .on("drag", dragged)
            .on("end", dragended);
    }

    function applyAttrs(sel, attrs) {
        for (const [name, value] of Object.entries(attrs || {})) {
            switch (name) {
            case "opacity":
            case "stroke-width":
                sel.style(name, value);
                break;
            case "r":
            case "fill":
                sel.select("circle").attr(name, value);
                break;
            case "label":
                sel.select("text").text(value);
                break;
            default:
                sel.attr(name, value);
            }
        }
    }

    function create(op) {
        let sel;
        if (op.kind === "node") {
            sel = d3.select("#nodes").append("g").classed("node", true).attr("data-key", op.key);
            sel.append("circle");
            sel.append("text").classed("label", true)
                .attr("dy", ".3em")
                .attr("text-anchor", "middle");
            keys.set(op.id, op.key);
        } else {
            sel = d3.select("#links").append("line").classed("link", true).attr("data-key", op.key);
        }
        applyAttrs(sel, op.attrs);
        elements.set(op.id, sel);
    }

    function animate(sel, op) {
        const t = sel.interrupt().transition().duration(op.duration || 0);
        for (const [name, value] of Object.entries(op.attrs || {})) {
            if (name === "opacity" || name === "stroke-width") {
                t.style(name, value);
            } else if (name === "r" || name === "fill") {
                sel.select("circle").transition().duration(op.duration || 0).attr(name, value);
            } else {
                t.attr(name, value);
            }
        }
        if (op.remove) {
            t.remove();
            elements.delete(op.id);
            keys.delete(op.id);
        }
    }

    function applyOps(ops) {
        for (const op of ops) {
            if (op.op === "create") {
                create(op);
                continue;
            }
            const sel = elements.get(op.id);
            if (!sel) continue;
            switch (op.op) {
            case "set":
                applyAttrs(sel, op.attrs);
                break;
            case "animate":
                animate(sel, op);
                break;
            case "class":
                sel.classed(op.class, !!op.on);
                break;
            case "bind":
                const key = keys.get(op.id);
                if (op.click) sel.on("click.select", () => send({type: "click", key: key}));
                if (op.drag) sel.call(drag(key));
                break;
            }
        }
    }

    function setSimulation(msg) {
        const next = new Map();
        for (const p of msg.nodes || []) {
            const n = simNodes.get(p.id) || {id: p.id};
            n.x = p.x;
            n.y = p.y;
            next.set(p.id, n);
        }
        simNodes = next;
        simulation.nodes(Array.from(next.values()));
        simulation.force("link").links((msg.links || []).map(l => ({
            source: l.source, target: l.target, value: l.value,
        })));
    }

    function animatePanel(msg) {
        d3.select("#graph_infobar_content").style("overflow-y", msg.overflow);
        d3.select("#graph_infobar").transition()
            .duration(msg.duration)
            .style("width", msg.width + "px");
    }

    function showError(message) {
        d3.select("#graph_error").style("display", "block").text(message);
    }

    socket.addEventListener("open", sendFilters);
    socket.addEventListener("close", event => {
        // 1013: the server fell behind; a fresh load resynchronises the scene.
        if (event.code === 1013) {
            location.reload();
            return;
        }
        showError("Connection to the server was lost.");
    });
    socket.addEventListener("message", event => {
        const msg = JSON.parse(event.data);
        switch (msg.type) {
        case "ops":
            applyOps(msg.ops || []);
            break;
        case "sim":
            setSimulation(msg);
            break;
        case "start":
            simulation.alpha(1).restart();
            break;
        case "sidebar":
            d3.select("#graph_infobar_content").html(msg.html);
            break;
        case "panel":
            animatePanel(msg);
            break;
        case "error":
            showError(msg.message);
            break;
        }
    });

    d3.selectAll("select.filter").on("change", () => {
        d3.select("#graph_error").style("display", "none");
        sendFilters();
    });
    d3.select("#graph_infobar_toggle").on("click", () => send({type: "toggle"}));
})();
</script>
</body>
</html>`
