// Command stroke-plot renders a stored stroke's seven channels as a PNG for
// eyeballing filter and normalization behaviour. With no -stroke it lists the
// most recently recorded strokes instead.
package main

import (
	"flag"
	"fmt"
	"image/color"
	"log"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/penovate/penstream/internal/dataset"
	"github.com/penovate/penstream/internal/pen"
)

var (
	dbPath   = flag.String("db", "stroke_dataset.db", "Path to the stroke dataset database")
	strokeID = flag.String("stroke", "", "Stroke ID to plot (empty lists recent strokes)")
	outPath  = flag.String("out", "stroke.png", "Output PNG path")
	listN    = flag.Int("n", 20, "How many strokes to list")
)

// One distinct color per channel, motion channels first, pressure last.
var channelColors = []color.RGBA{
	{R: 0xe5, G: 0x39, B: 0x35, A: 0xff},
	{R: 0xfb, G: 0x8c, B: 0x00, A: 0xff},
	{R: 0xfd, G: 0xd8, B: 0x35, A: 0xff},
	{R: 0x43, G: 0xa0, B: 0x47, A: 0xff},
	{R: 0x1e, G: 0x88, B: 0xe5, A: 0xff},
	{R: 0x8e, G: 0x24, B: 0xaa, A: 0xff},
	{R: 0x21, G: 0x21, B: 0x21, A: 0xff},
}

func main() {
	flag.Parse()

	db, err := dataset.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open dataset database: %v", err)
	}
	defer db.Close()

	if *strokeID == "" {
		strokes, err := db.ListStrokes(*listN)
		if err != nil {
			log.Fatalf("failed to list strokes: %v", err)
		}
		if len(strokes) == 0 {
			fmt.Println("no strokes recorded yet")
			return
		}
		for _, s := range strokes {
			fmt.Printf("%s  label=%q rows=%d\n", s.StrokeID, s.Label, s.RowCount)
		}
		return
	}

	rec, err := db.GetStroke(*strokeID)
	if err != nil {
		log.Fatalf("failed to load stroke: %v", err)
	}

	if err := plotStroke(rec, *outPath); err != nil {
		log.Fatalf("failed to plot stroke: %v", err)
	}
	fmt.Printf("wrote %s (%d rows, label %q)\n", *outPath, len(rec.Rows), rec.Label)
}

func plotStroke(rec *dataset.StrokeRecord, path string) error {
	p := plot.New()
	p.Title.Text = fmt.Sprintf("Stroke %s (label %q)", rec.StrokeID, rec.Label)
	p.X.Label.Text = "Row"
	p.Y.Label.Text = "Normalized value"

	for ch := 0; ch < pen.NumChannels; ch++ {
		pts := make(plotter.XYs, len(rec.Rows))
		for i, row := range rec.Rows {
			pts[i] = plotter.XY{X: float64(i), Y: row[ch]}
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return err
		}
		line.Color = channelColors[ch%len(channelColors)]
		line.Width = vg.Points(1)
		p.Add(line)
		p.Legend.Add(pen.ChannelNames[ch], line)
	}

	p.Legend.Top = true
	p.Legend.Left = false
	p.Legend.XOffs = -10
	p.Legend.YOffs = -10

	return p.Save(14*vg.Inch, 6*vg.Inch, path)
}
