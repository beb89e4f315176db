package dataset

import (
	"fmt"
	"math/rand"
	"strconv"
	"time"

	"netsentry/internal/model"
)

// Generator kinds. "sample" produces NSL-KDD-style connection statistics
// labeled by attack family; "flows" produces flow records with a binary
// is_attack label.
const (
	KindSample = "sample"
	KindFlows  = "flows"
)

var sampleColumns = []string{
	"duration", "protocol", "service", "src_bytes", "dst_bytes",
	"count", "srv_count", "serror_rate", "srv_serror_rate",
	"rerror_rate", "srv_rerror_rate", "same_srv_rate", "diff_srv_rate",
	"dst_host_count", "dst_host_srv_count", "dst_host_same_srv_rate",
	"dst_host_diff_srv_rate", "dst_host_serror_rate",
	"dst_host_srv_serror_rate", "label",
}

var flowColumns = []string{
	"src_ip", "dst_ip", "protocol", "port", "bytes", "timestamp",
	"duration", "packets", "flags", "traffic_type", "is_attack",
}

// Generate builds a labeled dataset of the given kind. rows <= 0 picks the
// kind's default size; seed 0 picks one from the clock.
func Generate(kind string, rows int, seed int64) (*model.Table, error) {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	switch kind {
	case KindSample:
		if rows <= 0 {
			rows = 1000
		}
		return generateSample(rng, rows), nil
	case KindFlows:
		if rows <= 0 {
			rows = 2000
		}
		return generateFlows(rng, rows), nil
	default:
		return nil, fmt.Errorf("unknown dataset kind %q", kind)
	}
}

func generateSample(rng *rand.Rand, rows int) *model.Table {
	protocols := []string{"TCP", "UDP", "ICMP"}
	services := []string{"http", "ftp", "ssh", "smtp", "dns", "telnet"}
	attackTypes := []string{"normal", "dos", "probe", "r2l", "u2r"}

	tbl := &model.Table{Columns: sampleColumns, Rows: make([][]string, 0, rows)}
	for i := 0; i < rows; i++ {
		label := "normal"
		if rng.Float64() < 0.3 {
			label = attackTypes[rng.Intn(len(attackTypes))]
		}

		srcBytes := rng.Intn(10001)
		if label != "normal" {
			srcBytes = 1000 + rng.Intn(49001)
		}
		synError := 0.0
		if label == "dos" || label == "probe" {
			synError = rng.Float64()
		}
		rejError := 0.0
		if label == "r2l" || label == "u2r" {
			rejError = rng.Float64()
		}
		hostError := 0.0
		if label == "dos" || label == "probe" {
			hostError = rng.Float64()
		}

		tbl.Rows = append(tbl.Rows, []string{
			ffloat(rng.Float64() * 100),
			protocols[rng.Intn(len(protocols))],
			services[rng.Intn(len(services))],
			strconv.Itoa(srcBytes),
			strconv.Itoa(rng.Intn(10001)),
			strconv.Itoa(1 + rng.Intn(100)),
			strconv.Itoa(1 + rng.Intn(50)),
			ffloat(synError),
			ffloat(synError * rng.Float64()),
			ffloat(rejError),
			ffloat(rejError * rng.Float64()),
			ffloat(rng.Float64()),
			ffloat(rng.Float64()),
			strconv.Itoa(1 + rng.Intn(255)),
			strconv.Itoa(1 + rng.Intn(100)),
			ffloat(rng.Float64()),
			ffloat(rng.Float64()),
			ffloat(hostError),
			ffloat(hostError * rng.Float64()),
			label,
		})
	}
	return tbl
}

func generateFlows(rng *rand.Rand, rows int) *model.Table {
	tbl := &model.Table{Columns: flowColumns, Rows: make([][]string, 0, rows)}
	for i := 0; i < rows; i++ {
		trafficType := pickWeighted(rng)

		var srcIP, dstIP, protocol string
		var port, size int
		switch trafficType {
		case "port_scan":
			srcIP = privateIP(rng, "192.168.1")
			dstIP = privateIP(rng, "10.0.0")
			protocol = "TCP"
			port = 1 + rng.Intn(1024)
			size = 40 + rng.Intn(61)
		case "dos_attack":
			srcIP = privateIP(rng, "192.168.1")
			dstIP = privateIP(rng, "10.0.0")
			protocol = pick2(rng, "TCP", "UDP")
			port = pick2(rng, 80, 443)
			size = 1000 + rng.Intn(7001)
		case "data_exfiltration":
			srcIP = privateIP(rng, "10.0.0")
			dstIP = privateIP(rng, "192.168.1")
			protocol = "TCP"
			port = []int{22, 443, 993}[rng.Intn(3)]
			size = 5000 + rng.Intn(5001)
		default: // normal
			srcIP = privateIP(rng, "192.168.1")
			dstIP = privateIP(rng, "10.0.0")
			protocol = pick2(rng, "TCP", "UDP")
			port = []int{80, 443, 22, 53, 25}[rng.Intn(5)]
			size = 64 + rng.Intn(1437)
		}

		isAttack := "1"
		if trafficType == "normal" {
			isAttack = "0"
		}
		flags := []string{"SYN", "ACK", "FIN", "RST", "PSH", "URG"}[rng.Intn(6)]

		tbl.Rows = append(tbl.Rows, []string{
			srcIP,
			dstIP,
			protocol,
			strconv.Itoa(port),
			strconv.Itoa(size),
			ffloat(rng.Float64() * 86400),
			ffloat(0.001 + rng.Float64()*0.999),
			strconv.Itoa(1 + rng.Intn(100)),
			flags,
			trafficType,
			isAttack,
		})
	}
	return tbl
}

// pickWeighted draws the flow traffic type: 70% normal, 10% port scan, 15%
// dos, 5% exfiltration.
func pickWeighted(rng *rand.Rand) string {
	r := rng.Float64()
	switch {
	case r < 0.7:
		return "normal"
	case r < 0.8:
		return "port_scan"
	case r < 0.95:
		return "dos_attack"
	default:
		return "data_exfiltration"
	}
}

func privateIP(rng *rand.Rand, prefix string) string {
	return fmt.Sprintf("%s.%d", prefix, 1+rng.Intn(254))
}

func pick2[T any](rng *rand.Rand, a, b T) T {
	if rng.Intn(2) == 0 {
		return a
	}
	return b
}

func ffloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
