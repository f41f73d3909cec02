// breathe-replay feeds a recorded landmark stream through the detector and
// prints the final state. Input is one protocol envelope per line, the same
// messages a browser sends to /ws/landmarks.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/teslashibe/go-breathe/internal/config"
	"github.com/teslashibe/go-breathe/internal/log"
	"github.com/teslashibe/go-breathe/pkg/breathing"
	"github.com/teslashibe/go-breathe/pkg/protocol"
)

// maxLine bounds one envelope; a full 33-landmark pose is well under this
const maxLine = 1 << 20

// Summary is printed when the replay finishes
type Summary struct {
	Lines   int               `json:"lines"`
	Frames  int               `json:"frames"`
	Skipped int               `json:"skipped"`
	Events  []breathing.Event `json:"events"`
	State   breathing.State   `json:"state"`
}

func main() {
	configPath := flag.String("config", "", "Path to TOML config file")
	preset := flag.String("preset", "", "Detector preset: default, sensitive, stable")
	input := flag.String("in", "-", "Input JSONL file (- for stdin)")
	quiet := flag.Bool("quiet", false, "Only print the final summary")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Configuration error: %v\n", err)
		os.Exit(1)
	}

	level := cfg.Log.Level
	if *quiet {
		level = "error"
	}
	// stdout carries the summary
	log.InitWriter(os.Stderr, level, cfg.Log.Format)

	detectorCfg := cfg.Detector
	if *preset != "" {
		var ok bool
		if detectorCfg, ok = breathing.Preset(*preset); !ok {
			fmt.Fprintf(os.Stderr, "❌ Unknown preset %q\n", *preset)
			os.Exit(1)
		}
	}

	r := io.Reader(os.Stdin)
	if *input != "-" {
		f, err := os.Open(*input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "❌ %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		r = f
	}

	summary, err := replay(r, breathing.New(detectorCfg), cfg.Pose.MinVisibility)
	if err != nil {
		fmt.Fprintf(os.Stderr, "❌ Replay failed: %v\n", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// replay runs every envelope in r through the detector.
func replay(r io.Reader, d *breathing.Detector, minVisibility float64) (Summary, error) {
	var summary Summary

	d.OnEvent(func(e breathing.Event) {
		log.Info("event", "type", e.Type, "ts", e.TimestampMs, "phase", e.Phase, "breaths", e.BreathCount, "rate", e.Rate)
		summary.Events = append(summary.Events, e)
	})

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLine)

	for scanner.Scan() {
		summary.Lines++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		msg, err := protocol.ParseMessage(line)
		if err != nil {
			log.Debug("skipping line", "line", summary.Lines, "error", err)
			summary.Skipped++
			continue
		}

		switch msg.Type {
		case protocol.TypeLandmarks:
			frame, err := msg.GetLandmarksData()
			if err != nil {
				summary.Skipped++
				continue
			}
			if _, ok := frame.Timestamp(msg.Timestamp); !ok {
				log.Debug("skipping untimed frame", "line", summary.Lines)
				summary.Skipped++
				continue
			}
			d.Observe(frame.Sample(msg.Timestamp, minVisibility))
			summary.Frames++
		case protocol.TypeReset:
			d.Reset()
		default:
			summary.Skipped++
		}
	}
	if err := scanner.Err(); err != nil {
		return summary, fmt.Errorf("failed to read input at line %d: %w", summary.Lines+1, err)
	}

	summary.State = d.State()
	return summary, nil
}
