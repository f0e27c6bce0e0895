// Package dashboard renders a standalone HTML snapshot of golden records
// so the pipeline output can be shared without running anything.
package dashboard

import (
	"fmt"
	"html/template"
	"io"
	"strings"

	"github.com/krittawat/order-register/internal/core/domain"
)

type recordView struct {
	OrderID    string
	CustomerID string
	Channel    string
	Status     string
	Confidence string
	Lines      []lineView
	Notes      []string
}

type lineView struct {
	Quantity    int
	Description string
	SKU         string
	Composite   string
	Tier        string
}

// Render writes the dashboard HTML for the given records.
func Render(w io.Writer, records []*domain.GoldenRecord) error {
	views := make([]recordView, 0, len(records))
	for _, record := range records {
		views = append(views, buildView(record))
	}
	return pageTemplate.Execute(w, views)
}

func buildView(record *domain.GoldenRecord) recordView {
	view := recordView{
		OrderID:    record.OrderID,
		CustomerID: record.CustomerID,
		Channel:    record.Channel,
		Status:     string(record.Status),
		Confidence: fmt.Sprintf("%.2f", record.Confidence),
	}
	for _, line := range record.Lines {
		lv := lineView{
			Quantity:    line.Candidate.Quantity,
			Description: line.Candidate.Description,
			SKU:         "—",
			Composite:   fmt.Sprintf("%.2f", line.Composite),
			Tier:        string(line.Provenance.MatchTier),
		}
		if line.Match != nil {
			lv.SKU = line.Match.SKUID
		}
		view.Lines = append(view.Lines, lv)

		for _, result := range line.Validations {
			if result.Passed {
				continue
			}
			note := result.Message
			if note == "" {
				note = result.Rule
			}
			view.Notes = append(view.Notes, fmt.Sprintf("line %d: %s", line.Index, note))
		}
	}
	if len(view.Notes) == 0 {
		view.Notes = []string{"None"}
	}
	if strings.TrimSpace(view.Channel) == "" {
		view.Channel = "unknown"
	}
	return view
}

var pageTemplate = template.Must(template.New("dashboard").Parse(`<!doctype html>
<html lang='en'>
<head>
  <meta charset='UTF-8'/>
  <meta name='viewport' content='width=device-width, initial-scale=1.0'/>
  <title>Order Register Dashboard</title>
  <style>
    :root {
      --bg: #0f172a;
      --card: #111827;
      --text: #e5e7eb;
      --muted: #9ca3af;
      --accent: #3b82f6;
      --warning: #f97316;
      --border: #1f2937;
    }
    body {
      margin: 0;
      font-family: 'Inter', system-ui, -apple-system, sans-serif;
      background: #0f172a;
      color: var(--text);
    }
    .page { max-width: 1200px; margin: 0 auto; padding: 40px 24px 64px; }
    h1 { margin: 0 0 8px; font-size: 32px; letter-spacing: -0.02em; }
    .subtitle { color: var(--muted); margin-bottom: 24px; }
    .grid { display: grid; gap: 16px; grid-template-columns: repeat(auto-fit, minmax(320px, 1fr)); }
    .card {
      background: var(--card);
      border: 1px solid var(--border);
      border-radius: 16px;
      padding: 16px;
      box-shadow: 0 10px 30px rgba(0, 0, 0, 0.35);
    }
    header {
      display: grid;
      grid-template-columns: repeat(4, minmax(0, 1fr));
      gap: 12px;
      align-items: center;
      margin-bottom: 12px;
    }
    .label { color: var(--muted); font-size: 12px; text-transform: uppercase; letter-spacing: 0.05em; }
    .value { font-weight: 600; overflow-wrap: anywhere; }
    .status {
      justify-self: end;
      padding: 6px 10px;
      border-radius: 999px;
      font-size: 12px;
      font-weight: 700;
      text-transform: uppercase;
      letter-spacing: 0.05em;
      border: 1px solid var(--border);
      background: rgba(59, 130, 246, 0.12);
      color: var(--text);
    }
    .status.needs_review { background: rgba(249, 115, 22, 0.18); color: #fb923c; }
    .section { margin-top: 10px; }
    .section-title { color: var(--muted); font-size: 13px; margin-bottom: 6px; }
    .list { list-style: none; padding: 0; margin: 0; display: grid; gap: 6px; }
    .list li {
      background: rgba(255, 255, 255, 0.03);
      border: 1px solid var(--border);
      border-radius: 12px;
      padding: 10px 12px;
      display: flex;
      align-items: center;
      gap: 8px;
      font-size: 14px;
    }
    .list.notes li { color: var(--muted); font-size: 13px; }
    .chip {
      margin-left: auto;
      padding: 4px 8px;
      border-radius: 999px;
      background: rgba(59, 130, 246, 0.16);
      font-size: 12px;
      color: #bfdbfe;
      border: 1px solid rgba(59, 130, 246, 0.35);
    }
    code { background: rgba(255, 255, 255, 0.05); padding: 2px 6px; border-radius: 6px; }
  </style>
</head>
<body>
  <div class='page'>
    <h1>Order Register Dashboard</h1>
    <div class='subtitle'>Golden records assembled from raw order messages.</div>
    <div class='grid'>
{{- range . }}
      <article class='card'>
        <header>
          <div>
            <div class='label'>Order ID</div>
            <div class='value'>{{ .OrderID }}</div>
          </div>
          <div>
            <div class='label'>Customer</div>
            <div class='value'>{{ .CustomerID }}</div>
          </div>
          <div>
            <div class='label'>Channel</div>
            <div class='value'>{{ .Channel }}</div>
          </div>
          <div class='status {{ .Status }}'>{{ .Status }}</div>
        </header>
        <div class='section'>
          <div class='section-title'>Line items · record confidence {{ .Confidence }}</div>
          <ul class='list'>
{{- range .Lines }}
            <li><strong>{{ .Quantity }}×</strong> {{ .Description }} → <code>{{ .SKU }}</code>{{ if .Tier }} <small>{{ .Tier }}</small>{{ end }} <span class='chip'>{{ .Composite }}</span></li>
{{- end }}
          </ul>
        </div>
        <div class='section'>
          <div class='section-title'>Validation notes</div>
          <ul class='list notes'>
{{- range .Notes }}
            <li>{{ . }}</li>
{{- end }}
          </ul>
        </div>
      </article>
{{- end }}
    </div>
  </div>
</body>
</html>
`))
