package model

import (
	"strconv"
	"strings"
	"time"
)

// ThreatLevel is the coarse severity bucket derived from a predicted probability.
type ThreatLevel string

const (
	ThreatLow    ThreatLevel = "LOW"
	ThreatMedium ThreatLevel = "MEDIUM"
	ThreatHigh   ThreatLevel = "HIGH"
)

// ThreatLevelFor buckets an attack probability against the fixed cut-points.
func ThreatLevelFor(probability float64) ThreatLevel {
	switch {
	case probability > 0.7:
		return ThreatHigh
	case probability > 0.3:
		return ThreatMedium
	default:
		return ThreatLow
	}
}

// Record is a single traffic observation. Adapters normalize heterogeneous
// inputs (synthetic, live capture, pcap, log lines) into this shape; it is
// immutable once produced.
type Record struct {
	Timestamp time.Time `json:"timestamp"`

	SrcIP    string `json:"src_ip,omitempty"`
	DstIP    string `json:"dst_ip,omitempty"`
	SrcPort  int    `json:"src_port,omitempty"`
	DstPort  int    `json:"dst_port,omitempty"`
	Protocol string `json:"protocol,omitempty"` // tcp, udp, icmp
	Service  string `json:"service,omitempty"`
	Flag     string `json:"flag,omitempty"`
	Size     int    `json:"packet_size,omitempty"` // wire length in bytes

	Duration float64 `json:"duration,omitempty"`
	SrcBytes int     `json:"src_bytes,omitempty"`
	DstBytes int     `json:"dst_bytes,omitempty"`

	// Connection-window statistics in the NSL-KDD style.
	Count                int     `json:"count,omitempty"`
	SrvCount             int     `json:"srv_count,omitempty"`
	SerrorRate           float64 `json:"serror_rate,omitempty"`
	SrvSerrorRate        float64 `json:"srv_serror_rate,omitempty"`
	RerrorRate           float64 `json:"rerror_rate,omitempty"`
	SrvRerrorRate        float64 `json:"srv_rerror_rate,omitempty"`
	SameSrvRate          float64 `json:"same_srv_rate,omitempty"`
	DiffSrvRate          float64 `json:"diff_srv_rate,omitempty"`
	DstHostCount         int     `json:"dst_host_count,omitempty"`
	DstHostSrvCount      int     `json:"dst_host_srv_count,omitempty"`
	DstHostSameSrvRate   float64 `json:"dst_host_same_srv_rate,omitempty"`
	DstHostDiffSrvRate   float64 `json:"dst_host_diff_srv_rate,omitempty"`
	DstHostSerrorRate    float64 `json:"dst_host_serror_rate,omitempty"`
	DstHostSrvSerrorRate float64 `json:"dst_host_srv_serror_rate,omitempty"`

	// Label carries the ground truth when the source knows it (synthetic
	// generators, labeled replays). Empty for observed traffic.
	Label string `json:"label,omitempty"`
}

// Feature returns the record value for a named feature column as it would
// appear in a CSV cell, so fitted pipelines can vectorize live records with
// the same encoders they were fitted with. The boolean reports whether the
// name is known.
func (r *Record) Feature(name string) (string, bool) {
	switch name {
	case "duration":
		return formatFloat(r.Duration), true
	case "protocol", "protocol_type":
		return r.Protocol, true
	case "service":
		return r.Service, true
	case "flag":
		return r.Flag, true
	case "src_bytes":
		return strconv.Itoa(r.SrcBytes), true
	case "dst_bytes":
		return strconv.Itoa(r.DstBytes), true
	case "count":
		return strconv.Itoa(r.Count), true
	case "srv_count":
		return strconv.Itoa(r.SrvCount), true
	case "serror_rate":
		return formatFloat(r.SerrorRate), true
	case "srv_serror_rate":
		return formatFloat(r.SrvSerrorRate), true
	case "rerror_rate":
		return formatFloat(r.RerrorRate), true
	case "srv_rerror_rate":
		return formatFloat(r.SrvRerrorRate), true
	case "same_srv_rate":
		return formatFloat(r.SameSrvRate), true
	case "diff_srv_rate":
		return formatFloat(r.DiffSrvRate), true
	case "dst_host_count":
		return strconv.Itoa(r.DstHostCount), true
	case "dst_host_srv_count":
		return strconv.Itoa(r.DstHostSrvCount), true
	case "dst_host_same_srv_rate":
		return formatFloat(r.DstHostSameSrvRate), true
	case "dst_host_diff_srv_rate":
		return formatFloat(r.DstHostDiffSrvRate), true
	case "dst_host_serror_rate":
		return formatFloat(r.DstHostSerrorRate), true
	case "dst_host_srv_serror_rate":
		return formatFloat(r.DstHostSrvSerrorRate), true
	case "src_ip":
		return r.SrcIP, true
	case "dst_ip":
		return r.DstIP, true
	case "src_port":
		return strconv.Itoa(r.SrcPort), true
	case "dst_port":
		return strconv.Itoa(r.DstPort), true
	case "packet_size", "size":
		return strconv.Itoa(r.Size), true
	case "label":
		return r.Label, true
	default:
		return "", false
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FallbackVector is the small hand-built numeric encoding used when no
// fitted pipeline exists: packet size, ports, and a one-hot transport
// protocol.
func (r *Record) FallbackVector() []float64 {
	var tcp, udp, icmp float64
	switch r.Protocol {
	case "tcp":
		tcp = 1
	case "udp":
		udp = 1
	case "icmp":
		icmp = 1
	}
	return []float64{
		float64(r.Size),
		float64(r.SrcPort),
		float64(r.DstPort),
		tcp,
		udp,
		icmp,
	}
}

// ScoringResult is the outcome of scoring one record. Results are transient:
// they live in a bounded ring buffer and on the event channel only.
type ScoringResult struct {
	Timestamp   time.Time   `json:"timestamp"`
	Source      string      `json:"source"` // adapter tag: synthetic, capture, logs, hybrid, nats
	Record      Record      `json:"data"`
	Prediction  int         `json:"prediction"` // 1 = attack
	Probability float64     `json:"probability"`
	ThreatLevel ThreatLevel `json:"threat_level"`
	Model       string      `json:"model"` // "ensemble" or "rules"
}

// Alert is derived from a scoring result whose probability clears the alert
// threshold. IDs are sequential per engine lifetime.
type Alert struct {
	ID          int64       `json:"id"`
	Timestamp   time.Time   `json:"timestamp"`
	ThreatLevel ThreatLevel `json:"threat_level"`
	Probability float64     `json:"probability"`
	Record      Record      `json:"data"`
	Message     string      `json:"message"`
}

// EvaluationResult holds the held-out metrics for one trained panel member.
// A variant that failed to train carries the failure in Err and zeroes
// elsewhere.
type EvaluationResult struct {
	Model     string  `json:"model"`
	Accuracy  float64 `json:"accuracy"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1_score"`
	AUC       float64 `json:"auc,omitempty"`
	HasAUC    bool    `json:"has_auc"`
	TrainTime float64 `json:"train_seconds"`
	Err       string  `json:"error,omitempty"`
}

// Failed reports whether the variant was excluded from the ensemble pool.
func (r EvaluationResult) Failed() bool { return r.Err != "" }

// TrainingRun ties a full panel result set to the dataset it was fitted on,
// for handoff to the persistence sink.
type TrainingRun struct {
	ID        string                      `json:"id"`
	Dataset   string                      `json:"dataset"`
	Target    string                      `json:"target"`
	StartedAt time.Time                   `json:"started_at"`
	Results   map[string]EvaluationResult `json:"results"`
}

// FilterConfig is the source-level record filter: empty slices admit
// everything, MinSize 0 disables the size check.
type FilterConfig struct {
	Protocols []string `json:"protocols,omitempty" yaml:"protocols"`
	Ports     []int    `json:"ports,omitempty" yaml:"ports"`
	MinSize   int      `json:"min_packet_size,omitempty" yaml:"min_packet_size"`
}

// Active reports whether any filter dimension is configured.
func (f FilterConfig) Active() bool {
	return len(f.Protocols) > 0 || len(f.Ports) > 0 || f.MinSize > 0
}

// Allows reports whether rec passes the filter. Protocol matching is
// case-insensitive; the port list admits a match on either endpoint.
func (f FilterConfig) Allows(rec *Record) bool {
	if len(f.Protocols) > 0 {
		ok := false
		for _, p := range f.Protocols {
			if strings.EqualFold(p, rec.Protocol) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if len(f.Ports) > 0 {
		ok := false
		for _, port := range f.Ports {
			if port == rec.SrcPort || port == rec.DstPort {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.MinSize > 0 && rec.Size < f.MinSize {
		return false
	}
	return true
}

// StreamConfig is supplied at stream start and lives for one session.
// IntervalMillis and AlertThreshold are pointers so an explicit zero in a
// request body is distinguishable from an absent field.
type StreamConfig struct {
	Source         string        `json:"source"` // synthetic, capture, pcap, logs, hybrid, nats
	Interval       time.Duration `json:"-" yaml:"interval"`
	IntervalMillis *int          `json:"interval_ms,omitempty" yaml:"-"`
	Anonymize      bool          `json:"anonymize,omitempty" yaml:"anonymize"`
	Filter         FilterConfig  `json:"filter,omitempty" yaml:"filter"`
	AlertThreshold *float64      `json:"alert_threshold,omitempty" yaml:"-"`
	Model          string        `json:"model,omitempty" yaml:"model"` // defaults to "ensemble"
}

// EffectiveInterval resolves the pause between scoring iterations. An
// explicit zero is honored (no pause); when neither field is set the loop
// paces at one record per second.
func (c StreamConfig) EffectiveInterval() time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	if c.IntervalMillis != nil {
		if ms := *c.IntervalMillis; ms > 0 {
			return time.Duration(ms) * time.Millisecond
		}
		return 0
	}
	return time.Second
}

// StreamStatus is the observable state of the scoring loop.
type StreamStatus struct {
	Streaming      bool    `json:"is_streaming"`
	Source         string  `json:"source,omitempty"`
	Model          string  `json:"model,omitempty"`
	AlertThreshold float64 `json:"alert_threshold"`
	TotalResults   int     `json:"total_results"`
	TotalAlerts    int     `json:"total_alerts"`
	RecentAlerts   int     `json:"recent_alerts"` // alerts within the last hour
	Processed      uint64  `json:"processed"`
	Dropped        uint64  `json:"dropped"` // records removed by filters
}
