package protocol

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var serializeOpts = gopacket.SerializeOptions{ComputeChecksums: true, FixLengths: true}

func ethernetLayer() *layers.Ethernet {
	return &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
		DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
		EthernetType: layers.EthernetTypeIPv4,
	}
}

func buildFrame(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	t.Helper()
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, serializeOpts, ls...); err != nil {
		t.Fatalf("Failed to serialize frame: %v", err)
	}
	return buf.Bytes()
}

func TestParsePacketTCP(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP:    net.IP{192, 168, 1, 10},
		DstIP:    net.IP{10, 0, 0, 5},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
	}
	tcp := &layers.TCP{SrcPort: 51234, DstPort: 443, SYN: true, Window: 14600}
	tcp.SetNetworkLayerForChecksum(ip)
	frame := buildFrame(t, ethernetLayer(), ip, tcp, gopacket.Payload([]byte("hello")))

	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	rec, err := ParsePacket(frame, ts)
	if err != nil {
		t.Fatalf("Failed to parse TCP frame: %v", err)
	}

	if rec.SrcIP != "192.168.1.10" || rec.DstIP != "10.0.0.5" {
		t.Errorf("Expected 192.168.1.10 -> 10.0.0.5, got %s -> %s", rec.SrcIP, rec.DstIP)
	}
	if rec.Protocol != "tcp" {
		t.Errorf("Expected protocol tcp, got %s", rec.Protocol)
	}
	if rec.SrcPort != 51234 || rec.DstPort != 443 {
		t.Errorf("Expected ports 51234 -> 443, got %d -> %d", rec.SrcPort, rec.DstPort)
	}
	if rec.Service != "https" {
		t.Errorf("Expected service https, got %s", rec.Service)
	}
	if rec.Size != len(frame) || rec.SrcBytes != len(frame) {
		t.Errorf("Expected size %d, got size %d / src_bytes %d", len(frame), rec.Size, rec.SrcBytes)
	}
	if !rec.Timestamp.Equal(ts) {
		t.Errorf("Expected timestamp %v, got %v", ts, rec.Timestamp)
	}

	// Single-observation window defaults.
	if rec.Count != 1 || rec.SrvCount != 1 || rec.SameSrvRate != 1 {
		t.Errorf("Expected single-packet window defaults, got count=%d srv_count=%d same_srv_rate=%v",
			rec.Count, rec.SrvCount, rec.SameSrvRate)
	}
}

func TestParsePacketUDP(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP:    net.IP{172, 16, 0, 2},
		DstIP:    net.IP{8, 8, 8, 8},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	udp.SetNetworkLayerForChecksum(ip)
	frame := buildFrame(t, ethernetLayer(), ip, udp, gopacket.Payload([]byte("query")))

	rec, err := ParsePacket(frame, time.Time{})
	if err != nil {
		t.Fatalf("Failed to parse UDP frame: %v", err)
	}
	if rec.Protocol != "udp" || rec.DstPort != 53 || rec.Service != "dns" {
		t.Errorf("Expected udp/53/dns, got %s/%d/%s", rec.Protocol, rec.DstPort, rec.Service)
	}
	if rec.Timestamp.IsZero() {
		t.Error("Expected a zero input timestamp to be replaced")
	}
}

func TestParsePacketICMP(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP:    net.IP{192, 168, 1, 1},
		DstIP:    net.IP{192, 168, 1, 2},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolICMPv4,
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
	frame := buildFrame(t, ethernetLayer(), ip, icmp, gopacket.Payload([]byte("ping")))

	rec, err := ParsePacket(frame, time.Now())
	if err != nil {
		t.Fatalf("Failed to parse ICMP frame: %v", err)
	}
	if rec.Protocol != "icmp" {
		t.Errorf("Expected protocol icmp, got %s", rec.Protocol)
	}
	if rec.SrcPort != 0 || rec.DstPort != 0 {
		t.Errorf("Expected no ports on icmp, got %d/%d", rec.SrcPort, rec.DstPort)
	}
}

func TestParsePacketRejectsNonIP(t *testing.T) {
	if _, err := ParsePacket([]byte{0x01, 0x02, 0x03}, time.Now()); err == nil {
		t.Error("Expected an error for a truncated non-IP frame")
	}
}

func TestParsePacketRejectsUnsupportedTransport(t *testing.T) {
	ip := &layers.IPv4{
		SrcIP:    net.IP{10, 1, 1, 1},
		DstIP:    net.IP{10, 1, 1, 2},
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolGRE,
	}
	frame := buildFrame(t, ethernetLayer(), ip, gopacket.Payload([]byte{0, 0, 0, 0}))

	if _, err := ParsePacket(frame, time.Now()); err == nil {
		t.Error("Expected an error for a GRE packet")
	}
}

func TestServicePortMapping(t *testing.T) {
	cases := []struct {
		port int
		want string
	}{
		{80, "http"},
		{22, "ssh"},
		{514, "shell"},
		{6667, "other"},
	}
	for _, c := range cases {
		if got := ServiceForPort(c.port); got != c.want {
			t.Errorf("Expected service %s for port %d, got %s", c.want, c.port, got)
		}
	}

	if got := PortForService("dns"); got != 53 {
		t.Errorf("Expected port 53 for dns, got %d", got)
	}
	if got := PortForService("quantum"); got != 0 {
		t.Errorf("Expected port 0 for an unknown service, got %d", got)
	}
}
