// Command penstream acquires samples from the pen's serial link, runs them
// through the preprocessing pipeline, and records emitted stroke tensors
// into the sqlite dataset under the label being collected.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/penovate/penstream/internal/config"
	"github.com/penovate/penstream/internal/dataset"
	"github.com/penovate/penstream/internal/pen/pipeline"
	"github.com/penovate/penstream/internal/transport"
)

var (
	portName   = flag.String("port", "/dev/ttyUSB0", "Serial port of the pen")
	baudRate   = flag.Int("baud", 115200, "Serial baud rate")
	devMode    = flag.Bool("dev", false, "Replay samples from the fixtures file instead of hardware")
	fixtures   = flag.String("fixtures", "fixtures.txt", "Sample lines replayed in dev mode")
	dbPath     = flag.String("db", "stroke_dataset.db", "Path to the stroke dataset database")
	configPath = flag.String("config", "", "Optional JSON tuning file")
	label      = flag.String("label", "", "Character label recorded with each stroke")
	exportPath = flag.String("export", "", "Export the combined dataset as JSON to this path and exit")
	verbose    = flag.Bool("v", false, "Enable per-sample trace logging")
)

func main() {
	flag.Parse()

	db, err := dataset.NewDB(*dbPath)
	if err != nil {
		log.Fatalf("failed to open dataset database: %v", err)
	}
	defer db.Close()

	if *exportPath != "" {
		if err := exportDataset(db, *exportPath); err != nil {
			log.Fatalf("export failed: %v", err)
		}
		return
	}

	if *label == "" {
		log.Fatal("a -label is required when collecting strokes")
	}

	tuning := config.Default()
	if *configPath != "" {
		tuning, err = config.Load(*configPath)
		if err != nil {
			log.Fatalf("failed to load tuning config: %v", err)
		}
	}

	if *verbose {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, os.Stderr)
	} else {
		pipeline.SetLogWriters(os.Stderr, os.Stderr, nil)
	}

	var port transport.PortInterface
	if *devMode {
		data, err := os.Open(*fixtures)
		if err != nil {
			log.Fatalf("failed to open fixtures file: %v", err)
		}
		defer data.Close()
		port = transport.NewMockPort(data)
	} else {
		port, err = transport.OpenSerial(*portName, *baudRate)
		if err != nil {
			log.Fatalf("failed to open pen serial port: %v", err)
		}
	}
	defer port.Close()

	sink := pipeline.SinkFunc(func(st *pipeline.StrokeTensor) {
		if err := db.RecordStroke(*label, st); err != nil {
			log.Printf("failed to record stroke %s: %v", st.StrokeID, err)
			return
		}
		log.Printf("recorded stroke %s for %q (%d rows, truncated=%v)",
			st.StrokeID, *label, len(st.Rows), st.Truncated)
	})

	pipelineCfg, err := tuning.PipelineConfig(sink)
	if err != nil {
		log.Fatalf("invalid pipeline configuration: %v", err)
	}
	orch, err := pipeline.New(pipelineCfg)
	if err != nil {
		log.Fatalf("failed to build pipeline: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup

	// closing the port unblocks the scanner's pending read on shutdown
	go func() {
		<-ctx.Done()
		port.Close()
	}()

	// run the monitor routine to manage IO on the serial port
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := port.Monitor(ctx); err != nil && err != context.Canceled {
			log.Printf("failed to monitor serial port: %v", err)
		}
		log.Print("monitor routine terminated")
	}()

	// bridge decoded samples into the pipeline's bounded queue; the send
	// blocks when processing falls behind, which backpressures acquisition
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(orch.Samples())
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-port.Samples():
				if !ok {
					return
				}
				select {
				case orch.Samples() <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	// processing routine: runs each sample to completion in arrival order
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := orch.Run(ctx); err != nil {
			log.Printf("pipeline stopped: %v", err)
		}
		stop()
	}()

	wg.Wait()

	stats := orch.Stats()
	log.Printf("done: %d samples, %d strokes emitted, %d short skipped, %d truncated, %d incomplete discarded, %d bad lines",
		stats.SamplesProcessed, stats.StrokesEmitted, stats.ShortStrokesDiscarded,
		stats.StrokesTruncated, stats.IncompleteStrokesDiscarded, port.BadLines())
	log.Print("graceful shutdown complete")
}

func exportDataset(db *dataset.DB, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := db.ExportJSON(f); err != nil {
		return err
	}
	fmt.Printf("exported combined dataset to %s\n", path)
	return nil
}
