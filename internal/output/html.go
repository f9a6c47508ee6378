package output

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/torosent/surge/internal/metrics"
	"github.com/torosent/surge/internal/threshold"
)

// HTMLReportData contains all data needed for the HTML report template.
type HTMLReportData struct {
	GeneratedAt      string
	Report           metrics.Report
	StatusBuckets    []metrics.StatusBucket
	ThresholdSummary *ThresholdSummary
}

// ThresholdSummary counts passed and failed thresholds for display.
type ThresholdSummary struct {
	Total   int
	Passed  int
	Failed  int
	Results []threshold.Result
}

var reportTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"seconds": func(d time.Duration) string {
		return fmt.Sprintf("%.4f s", d.Seconds())
	},
	"formatFloat": func(f float64) string {
		return fmt.Sprintf("%.2f", f)
	},
	"formatPercent": func(part, total int64) string {
		if total == 0 {
			return "0.0"
		}
		return fmt.Sprintf("%.1f", float64(part)/float64(total)*100)
	},
}).Parse(htmlTemplate))

// GenerateHTMLReport writes a standalone HTML report.
func GenerateHTMLReport(w io.Writer, report metrics.Report, thresholdResults []threshold.Result) error {
	data := HTMLReportData{
		GeneratedAt:   time.Now().Format(time.RFC3339),
		Report:        report,
		StatusBuckets: metrics.FlattenStatusBuckets(report.StatusBuckets),
	}
	if len(thresholdResults) > 0 {
		summary := &ThresholdSummary{Total: len(thresholdResults), Results: thresholdResults}
		for _, r := range thresholdResults {
			if r.Pass {
				summary.Passed++
			} else {
				summary.Failed++
			}
		}
		data.ThresholdSummary = summary
	}

	if err := reportTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute template: %w", err)
	}
	return nil
}

const htmlTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Surge Load Test Report</title>
    <style>
        * { margin: 0; padding: 0; box-sizing: border-box; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif;
            background: #f5f7fa;
            color: #2c3e50;
            line-height: 1.6;
            padding: 20px;
        }
        .container {
            max-width: 1100px;
            margin: 0 auto;
            background: white;
            border-radius: 8px;
            box-shadow: 0 2px 8px rgba(0,0,0,0.1);
            overflow: hidden;
        }
        header { background: #1f3a5f; color: white; padding: 30px 40px; }
        header h1 { font-size: 2rem; margin-bottom: 10px; }
        header .meta { opacity: 0.9; font-size: 0.9rem; }
        .content { padding: 40px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fit, minmax(200px, 1fr));
            gap: 20px;
            margin-bottom: 40px;
        }
        .card { background: #f8f9fa; border-radius: 8px; padding: 20px; border-left: 4px solid #1f3a5f; }
        .card h3 { font-size: 0.9rem; color: #6c757d; text-transform: uppercase; margin-bottom: 10px; }
        .card .value { font-size: 2rem; font-weight: bold; }
        .card .subvalue { font-size: 0.85rem; color: #6c757d; margin-top: 5px; }
        .card.success { border-left-color: #10b981; }
        .card.error { border-left-color: #ef4444; }
        .section { margin-bottom: 40px; }
        .section h2 { font-size: 1.5rem; margin-bottom: 20px; padding-bottom: 10px; border-bottom: 2px solid #e5e7eb; }
        table { width: 100%; border-collapse: collapse; }
        th, td { text-align: left; padding: 12px; border-bottom: 1px solid #e5e7eb; }
        th { background: #f8f9fa; font-weight: 600; color: #4b5563; font-size: 0.9rem; text-transform: uppercase; }
        .badge { display: inline-block; padding: 4px 12px; border-radius: 12px; font-size: 0.85rem; font-weight: 600; }
        .badge-success { background: #d1fae5; color: #065f46; }
        .badge-error { background: #fee2e2; color: #991b1b; }
        .no-data { text-align: center; padding: 40px; color: #6c757d; font-style: italic; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Surge Load Test Report</h1>
            {{if .Report.Target}}<div class="meta">Target: {{.Report.Target}}</div>{{end}}
            <div class="meta">Generated: {{.GeneratedAt}} | Duration: {{seconds .Report.Duration}}{{if .Report.Mode}} | Mode: {{.Report.Mode}}{{end}}{{if .Report.RunID}} | Run: {{.Report.RunID}}{{end}}</div>
        </header>

        <div class="content">
            <div class="grid">
                <div class="card">
                    <h3>Total Requests</h3>
                    <div class="value">{{.Report.Total}}</div>
                </div>
                <div class="card success">
                    <h3>Successful</h3>
                    <div class="value">{{.Report.Successes}}</div>
                    <div class="subvalue">{{formatPercent .Report.Successes .Report.Total}}%</div>
                </div>
                <div class="card error">
                    <h3>Failed</h3>
                    <div class="value">{{.Report.Failures}}</div>
                    <div class="subvalue">{{formatFloat .Report.ErrorRate}}% error rate</div>
                </div>
                <div class="card">
                    <h3>Requests/sec</h3>
                    <div class="value">{{formatFloat .Report.RequestsPerSec}}</div>
                </div>
            </div>

            <div class="section">
                <h2>Latency</h2>
                {{if .Report.HasLatency}}
                <table>
                    <thead><tr><th>Mean</th><th>P50</th><th>P95</th><th>P99</th><th>Min</th><th>Max</th></tr></thead>
                    <tbody>
                        <tr>
                            <td>{{seconds .Report.MeanLatency}}</td>
                            <td>{{seconds .Report.P50Latency}}</td>
                            <td>{{seconds .Report.P95Latency}}</td>
                            <td>{{seconds .Report.P99Latency}}</td>
                            <td>{{seconds .Report.MinLatency}}</td>
                            <td>{{seconds .Report.MaxLatency}}</td>
                        </tr>
                    </tbody>
                </table>
                {{else}}
                <div class="no-data">No successful requests; latency is not available.</div>
                {{end}}
            </div>

            {{if .StatusBuckets}}
            <div class="section">
                <h2>Failures by Status</h2>
                <table>
                    <thead><tr><th>Status</th><th>Count</th></tr></thead>
                    <tbody>
                        {{range .StatusBuckets}}
                        <tr><td>{{.Label}}</td><td>{{.Count}}</td></tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .Report.Phases}}
            <div class="section">
                <h2>Ramp Phases{{if .Report.StopReason}} ({{.Report.StopReason}}){{end}}</h2>
                <table>
                    <thead><tr><th>RPS</th><th>Dispatched</th><th>Successes</th><th>Failures</th><th>Elapsed</th></tr></thead>
                    <tbody>
                        {{range .Report.Phases}}
                        <tr>
                            <td>{{.RPS}}</td>
                            <td>{{.Dispatched}}</td>
                            <td>{{.Successes}}</td>
                            <td>{{if .Failures}}<span class="badge badge-error">{{.Failures}}</span>{{else}}0{{end}}</td>
                            <td>{{seconds .Duration}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}

            {{if .ThresholdSummary}}
            <div class="section">
                <h2>Thresholds ({{.ThresholdSummary.Passed}}/{{.ThresholdSummary.Total}} Passed)</h2>
                <table>
                    <thead><tr><th>Threshold</th><th>Actual</th><th>Status</th></tr></thead>
                    <tbody>
                        {{range .ThresholdSummary.Results}}
                        <tr>
                            <td>{{.Threshold.Raw}}</td>
                            <td>{{printf "%.4f" .Actual}}</td>
                            <td>{{if .Pass}}<span class="badge badge-success">PASS</span>{{else}}<span class="badge badge-error">FAIL</span>{{end}}</td>
                        </tr>
                        {{end}}
                    </tbody>
                </table>
            </div>
            {{end}}
        </div>
    </div>
</body>
</html>
`
