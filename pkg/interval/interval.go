package interval

import (
	"fmt"
	"time"
)

// Timeframe represents a bar aggregation period.
type Timeframe struct {
	Name     string
	Duration time.Duration
}

// Supported timeframes configuration
var (
	Timeframe5s  = Timeframe{Name: "5s", Duration: 5 * time.Second}
	Timeframe15s = Timeframe{Name: "15s", Duration: 15 * time.Second}
	Timeframe1m  = Timeframe{Name: "1m", Duration: time.Minute}
	Timeframe5m  = Timeframe{Name: "5m", Duration: 5 * time.Minute}
	Timeframe15m = Timeframe{Name: "15m", Duration: 15 * time.Minute}
	Timeframe30m = Timeframe{Name: "30m", Duration: 30 * time.Minute}
	Timeframe1h  = Timeframe{Name: "1h", Duration: time.Hour}
	Timeframe4h  = Timeframe{Name: "4h", Duration: 4 * time.Hour}
)

// AllTimeframes lists every supported timeframe.
var AllTimeframes = []Timeframe{
	Timeframe5s, Timeframe15s, Timeframe1m, Timeframe5m,
	Timeframe15m, Timeframe30m, Timeframe1h, Timeframe4h,
}

// Common timeframe groups
var (
	ShortTermTimeframes  = []Timeframe{Timeframe5s, Timeframe15s, Timeframe1m}
	MediumTermTimeframes = []Timeframe{Timeframe5m, Timeframe15m, Timeframe30m}
	LongTermTimeframes   = []Timeframe{Timeframe1h, Timeframe4h}
)

// Timeframe registry for lookup
var timeframeRegistry = make(map[string]Timeframe)

func init() {
	for _, tf := range AllTimeframes {
		timeframeRegistry[tf.Name] = tf
	}
}

// GetTimeframe returns a timeframe by name.
func GetTimeframe(name string) (Timeframe, error) {
	tf, exists := timeframeRegistry[name]
	if !exists {
		return Timeframe{}, fmt.Errorf("unsupported timeframe: %s", name)
	}
	return tf, nil
}

// IsValidTimeframe checks if a timeframe name is supported.
func IsValidTimeframe(name string) bool {
	_, exists := timeframeRegistry[name]
	return exists
}

// AllTimeframeNames returns all supported timeframe names.
func AllTimeframeNames() []string {
	names := make([]string, 0, len(AllTimeframes))
	for _, tf := range AllTimeframes {
		names = append(names, tf.Name)
	}
	return names
}

// ParseTimeframes resolves a list of names into timeframes, rejecting unknown names.
func ParseTimeframes(names []string) ([]Timeframe, error) {
	tfs := make([]Timeframe, 0, len(names))
	for _, name := range names {
		tf, err := GetTimeframe(name)
		if err != nil {
			return nil, err
		}
		tfs = append(tfs, tf)
	}
	return tfs, nil
}
