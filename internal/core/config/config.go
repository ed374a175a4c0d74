package config

import (
	"os"
	"runtime"
	"strconv"
	"strings"
)

type MetricsCfg struct {
	Enabled bool
	Addr    string
}

type Config struct {
	LogLevel       string
	LogConsole     bool
	LogSampleN     int
	H3Res          int
	H3ResMin       int
	H3ResMax       int
	Workers        int
	MemoSize       int
	CoverageWarn   float64
	AccuracyWarn   float64
	StrictTopology bool
	Metrics        MetricsCfg
}

func FromEnv() Config {
	res := getint("H3_RES", 9)
	minRes := getint("H3_RES_MIN", 0)
	maxRes := getint("H3_RES_MAX", 15)

	if minRes < 0 {
		minRes = 0
	}
	if maxRes > 15 {
		maxRes = 15
	}
	if minRes > maxRes {
		minRes, maxRes = res, res
	}

	return Config{
		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogConsole:     getbool("LOG_CONSOLE", false),
		LogSampleN:     getint("LOG_SAMPLE_N", 0),
		H3Res:          res,
		H3ResMin:       minRes,
		H3ResMax:       maxRes,
		Workers:        getint("ALIGN_WORKERS", runtime.GOMAXPROCS(0)),
		MemoSize:       getint("ALIGN_MEMO_SIZE", 1024),
		CoverageWarn:   getfloat("COVERAGE_WARN", 0.8),
		AccuracyWarn:   getfloat("ACCURACY_WARN", 0.5),
		StrictTopology: getbool("GEOALIGN_STRICT_TOPOLOGY", false),
		Metrics: MetricsCfg{
			Enabled: getbool("METRICS_ENABLED", false),
			Addr:    getenv("METRICS_ADDR", ":9090"),
		},
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
