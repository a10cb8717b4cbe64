// Command dataset-report renders an HTML summary of the stroke dataset:
// strokes per label and the distribution of pre-padding stroke lengths.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"gonum.org/v1/gonum/stat"

	"github.com/penovate/penstream/internal/dataset"
)

var (
	dbPath  = flag.String("db", "stroke_dataset.db", "Path to the stroke dataset database")
	outPath = flag.String("out", "dataset_report.html", "Output HTML path")
	buckets = flag.Int("buckets", 20, "Number of stroke-length histogram buckets")
)

func main() {
	flag.Parse()

	db, err := dataset.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open dataset database: %v", err)
	}
	defer db.Close()

	labelCounts, err := db.LabelCounts()
	if err != nil {
		log.Fatalf("failed to load label counts: %v", err)
	}
	rowCounts, err := db.RowCounts()
	if err != nil {
		log.Fatalf("failed to load stroke lengths: %v", err)
	}
	if len(rowCounts) == 0 {
		log.Fatal("no strokes recorded yet")
	}

	page := components.NewPage()
	page.AddCharts(labelChart(labelCounts), lengthChart(rowCounts, *buckets))

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("failed to create report file: %v", err)
	}
	defer f.Close()

	if err := page.Render(f); err != nil {
		log.Fatalf("failed to render report: %v", err)
	}
	fmt.Printf("wrote %s (%d strokes, %d labels)\n", *outPath, len(rowCounts), len(labelCounts))
}

func labelChart(counts []dataset.LabelCount) *charts.Bar {
	x := make([]string, len(counts))
	y := make([]opts.BarData, len(counts))
	total := 0
	for i, lc := range counts {
		x[i] = lc.Label
		y[i] = opts.BarData{Value: lc.Count}
		total += lc.Count
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Strokes per label",
			Subtitle: fmt.Sprintf("%d strokes across %d labels", total, len(counts)),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).
		AddSeries("strokes", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func lengthChart(rowCounts []int, buckets int) *charts.Bar {
	lengths := make([]float64, len(rowCounts))
	minLen, maxLen := rowCounts[0], rowCounts[0]
	for i, n := range rowCounts {
		lengths[i] = float64(n)
		if n < minLen {
			minLen = n
		}
		if n > maxLen {
			maxLen = n
		}
	}
	mean, stddev := stat.MeanStdDev(lengths, nil)

	// Fixed-width buckets over [minLen, maxLen].
	if buckets < 1 {
		buckets = 1
	}
	width := (maxLen - minLen + 1 + buckets - 1) / buckets
	if width < 1 {
		width = 1
	}
	hist := make([]int, buckets)
	for _, n := range rowCounts {
		b := (n - minLen) / width
		if b >= buckets {
			b = buckets - 1
		}
		hist[b]++
	}

	x := make([]string, buckets)
	y := make([]opts.BarData, buckets)
	for i := range hist {
		lo := minLen + i*width
		x[i] = fmt.Sprintf("%d-%d", lo, lo+width-1)
		y[i] = opts.BarData{Value: hist[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Stroke length distribution (pre-padding rows)",
			Subtitle: fmt.Sprintf("mean=%.1f stddev=%.1f min=%d max=%d", mean, stddev, minLen, maxLen),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("strokes", y)
	return bar
}
