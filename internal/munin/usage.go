package munin

import "github.com/mabhi256/munin-jmx/internal/jmx"

// Field names of the memory pool usage graph. "Comitted" keeps the spelling
// existing RRD files were created with.
const (
	FieldCommitted = "Comitted"
	FieldInit      = "Init"
	FieldMax       = "Max"
	FieldUsed      = "Used"
	FieldThreshold = "Threshold"
)

// UsageGraph describes the memory pool usage graph
var UsageGraph = Graph{
	Title:    "UsagePermGen",
	VLabel:   "Bytes",
	Category: "Tomcat",
	Info:     "Returns an estimate of the memory usage of this memory pool.",
	Fields: []Field{
		{
			Name:  FieldCommitted,
			Label: FieldCommitted,
			Info:  "The amount of memory (in bytes) that is guaranteed to be available for use by the Java virtual machine.",
		},
		{
			Name:   FieldMax,
			Label:  FieldMax,
			Info:   "The maximum amount of memory (in bytes) that can be used for memory management.",
			Draw:   "AREA",
			Colour: "ccff00",
		},
		{
			Name:  FieldInit,
			Label: FieldInit,
			Info:  "The initial amount of memory (in bytes) that the Java virtual machine requests from the operating system for memory management during startup.",
		},
		{
			Name:  FieldUsed,
			Label: FieldUsed,
			Info:  "The amount of memory currently used (in bytes).",
		},
		{
			Name:  FieldThreshold,
			Label: FieldThreshold,
			Info:  "The usage threshold value of this memory pool in bytes.",
		},
	},
}

// UsageValues maps a pool to the graph's values. A pool without threshold
// support reports a threshold of 0.
func UsageValues(pool jmx.MemoryPool) []Value {
	var threshold int64
	if pool.Threshold.Supported {
		threshold = pool.Threshold.Threshold
	}

	return []Value{
		{Field: FieldCommitted, Value: pool.Usage.Committed},
		{Field: FieldInit, Value: pool.Usage.Init},
		{Field: FieldMax, Value: pool.Usage.Max},
		{Field: FieldUsed, Value: pool.Usage.Used},
		{Field: FieldThreshold, Value: threshold},
	}
}
