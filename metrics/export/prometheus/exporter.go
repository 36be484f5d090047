package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/teachify/teachify"
	"github.com/teachify/teachify/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() teachify.MetricsSnapshot
	AuditDropped() uint64
}

// PrometheusExporter renders client metrics in Prometheus text exposition
// format.
type PrometheusExporter struct {
	source metricsSource
}

// NewPrometheusExporter returns an exporter reading the counters of client.
func NewPrometheusExporter(client *teachify.Client) *PrometheusExporter {
	return &PrometheusExporter{source: client}
}

// NewPrometheusExporterFromSource returns an exporter over any snapshot
// source.
func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	return &PrometheusExporter{source: source}
}

// Handler serves Render over HTTP.
func (p *PrometheusExporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render returns the current metrics, or "" when metrics are disabled.
func (p *PrometheusExporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()
	dropped := p.source.AuditDropped()
	if len(snapshot.Counters) == 0 && len(snapshot.Histograms) == 0 && dropped == 0 {
		return ""
	}

	var b strings.Builder
	b.Grow(4096)

	for _, fam := range internaldefs.Families {
		writeFamily(&b, fam, snapshot.Counters)
	}

	if raw, ok := snapshot.Histograms[internaldefs.GatewayLatency.ID]; ok {
		def := internaldefs.GatewayLatency
		writeHistogram(&b, def.Name, def.Help, internaldefs.CumulativeBuckets(raw))
	}

	writeHeader(&b, internaldefs.AuditDroppedName, internaldefs.AuditDroppedHelp, "counter")
	b.WriteString(internaldefs.AuditDroppedName)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(dropped, 10))
	b.WriteByte('\n')

	return b.String()
}

func writeHeader(b *strings.Builder, name, help, kind string) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(escapeHelp(help))
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(kind)
	b.WriteByte('\n')
}

// writeFamily emits one HELP/TYPE pair followed by a sample per series.
func writeFamily(b *strings.Builder, fam internaldefs.Family, counters map[teachify.MetricID]uint64) {
	writeHeader(b, fam.Name, fam.Help, "counter")
	for _, s := range fam.Series {
		b.WriteString(fam.Name)
		b.WriteByte('{')
		for i, label := range fam.Labels {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(label)
			b.WriteString("=\"")
			b.WriteString(escapeLabelValue(s.Values[i]))
			b.WriteByte('"')
		}
		b.WriteString("} ")
		b.WriteString(strconv.FormatUint(counters[s.ID], 10))
		b.WriteByte('\n')
	}
}

func writeHistogram(b *strings.Builder, name, help string, cumulative [8]uint64) {
	writeHeader(b, name, help, "histogram")

	for i, le := range internaldefs.HistogramBounds {
		b.WriteString(name)
		b.WriteString("_bucket{le=\"")
		b.WriteString(le)
		b.WriteString("\"} ")
		b.WriteString(strconv.FormatUint(cumulative[i], 10))
		b.WriteByte('\n')
	}

	count := cumulative[len(cumulative)-1]
	b.WriteString(name)
	b.WriteString("_count ")
	b.WriteString(strconv.FormatUint(count, 10))
	b.WriteByte('\n')

	// Snapshots carry no sum.
	b.WriteString(name)
	b.WriteString("_sum 0\n")
}

func escapeHelp(help string) string {
	help = strings.ReplaceAll(help, "\\", "\\\\")
	help = strings.ReplaceAll(help, "\n", "\\n")
	return help
}

func escapeLabelValue(v string) string {
	v = strings.ReplaceAll(v, "\\", "\\\\")
	v = strings.ReplaceAll(v, "\"", "\\\"")
	v = strings.ReplaceAll(v, "\n", "\\n")
	return v
}
