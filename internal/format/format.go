// Package format renders aggregated values as dashboard display strings.
// Fractions become percentages only here.
package format

import (
	"fmt"
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kubeadapt/clusterview/pkg/model"
)

// Placeholders shown in place of absent data.
const (
	NoGPUs   = "No GPUs"
	NoLogs   = "No logs"
	Loading  = "Loading..."
	NoActors = "No actors found."
)

var printer = message.NewPrinter(language.English)

// Percent renders a fraction as a percentage with one decimal, e.g. "42.0%".
func Percent(fraction float64) string {
	return fmt.Sprintf("%.1f%%", fraction*100)
}

// LineCount renders a log line count with digit grouping, e.g. "1,234 lines".
// Zero renders as NoLogs.
func LineCount(n int) string {
	switch n {
	case 0:
		return NoLogs
	case 1:
		return "1 line"
	default:
		return printer.Sprintf("%d lines", n)
	}
}

// GRAMUsage renders one GPU's memory as "512.0 MB / 1024.0 MB (50.0%)".
func GRAMUsage(g model.GPUStats, ratio float64) string {
	return fmt.Sprintf("%.1f MB / %.1f MB (%s)", g.MemoryUsed, g.MemoryTotal, Percent(ratio))
}

// MiBRatio renders a used/total pair as "512 MiB / 1024 MiB".
func MiBRatio(used, total float64) string {
	return trimFloat(used) + " MiB / " + trimFloat(total) + " MiB"
}

// WorkerGPUs renders the GPUs a worker holds.
func WorkerGPUs(n float64, ok bool) string {
	if !ok {
		return NoGPUs
	}
	return trimFloat(n) + " GPUs in use"
}

// ObjectSize renders a memory table object size; -1 means unknown.
func ObjectSize(size int64) string {
	if size == -1 {
		return "?"
	}
	return strconv.FormatInt(size, 10) + " B"
}

// GroupTitle returns the heading of a memory table group.
func GroupTitle(key string, groupBy model.MemoryGroupByKey) string {
	switch groupBy {
	case model.GroupByNode:
		return "Node " + key
	case model.GroupByStackTrace:
		return "Stack trace " + key
	case model.GroupByNone:
		return "All entries"
	default:
		return "Unknown Group"
	}
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
