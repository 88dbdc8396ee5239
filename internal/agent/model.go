// Package agent collects host and runtime metrics as Zabbix measurements.
package agent

// KeyPrefix is prepended to every item key the agent produces.
const KeyPrefix = "agent."

var (
	// RuntimeMetrics is a list of Go runtime metrics to collect.
	//
	// These metrics provide information about memory usage, garbage collection,
	// and other runtime statistics.
	RuntimeMetrics = []string{
		"Alloc",
		"BuckHashSys",
		"Frees",
		"GCCPUFraction",
		"GCSys",
		"HeapAlloc",
		"HeapIdle",
		"HeapInuse",
		"HeapObjects",
		"HeapReleased",
		"HeapSys",
		"LastGC",
		"Lookups",
		"MCacheInuse",
		"MCacheSys",
		"MSpanInuse",
		"MSpanSys",
		"Mallocs",
		"NextGC",
		"NumForcedGC",
		"NumGC",
		"OtherSys",
		"PauseTotalNs",
		"StackInuse",
		"StackSys",
		"Sys",
		"TotalAlloc",
	}
)
