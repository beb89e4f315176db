// Package protocol decodes raw network frames into traffic records. It is
// shared by the live capture source, the pcap file reader, and the probe.
package protocol

import (
	"fmt"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"netsentry/internal/model"
)

var portServices = map[int]string{
	80: "http", 443: "https", 22: "ssh", 21: "ftp",
	25: "smtp", 53: "dns", 110: "pop3", 143: "imap",
	993: "imaps", 995: "pop3s", 23: "telnet", 3306: "mysql",
	7: "echo", 514: "shell",
}

var servicePorts = map[string]int{
	"http": 80, "https": 443, "ssh": 22, "ftp": 21,
	"smtp": 25, "dns": 53, "pop3": 110, "imap": 143,
	"imaps": 993, "pop3s": 995, "telnet": 23, "mysql": 3306,
	"echo": 7, "shell": 514,
}

// ServiceForPort maps a destination port to a coarse service name, "other"
// when the port is not a well-known one.
func ServiceForPort(port int) string {
	if svc, ok := portServices[port]; ok {
		return svc
	}
	return "other"
}

// PortForService is the inverse mapping; it returns 0 for unknown services.
func PortForService(service string) int {
	return servicePorts[service]
}

// SinglePacketRecord builds a record for one observed packet. Window
// statistics that need bidirectional or multi-packet context get the
// single-observation defaults: one connection, one service, all bytes
// attributed to the source.
func SinglePacketRecord(ts time.Time, srcIP, dstIP, proto string, srcPort, dstPort, size int) model.Record {
	if ts.IsZero() {
		ts = time.Now()
	}
	return model.Record{
		Timestamp:          ts,
		SrcIP:              srcIP,
		DstIP:              dstIP,
		SrcPort:            srcPort,
		DstPort:            dstPort,
		Protocol:           proto,
		Service:            ServiceForPort(dstPort),
		Size:               size,
		Duration:           0.001,
		SrcBytes:           size,
		Count:              1,
		SrvCount:           1,
		SameSrvRate:        1,
		DstHostCount:       1,
		DstHostSrvCount:    1,
		DstHostSameSrvRate: 1,
	}
}

// ParsePacket decodes a raw Ethernet frame into a record. Non-IPv4 frames
// and transports other than TCP, UDP, and ICMP are rejected.
func ParsePacket(data []byte, ts time.Time) (model.Record, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	l := packet.Layer(layers.LayerTypeIPv4)
	if l == nil {
		return model.Record{}, fmt.Errorf("not an IPv4 packet")
	}
	ip := l.(*layers.IPv4)

	var proto string
	var srcPort, dstPort int
	if l := packet.Layer(layers.LayerTypeTCP); l != nil {
		tcp := l.(*layers.TCP)
		proto = "tcp"
		srcPort = int(tcp.SrcPort)
		dstPort = int(tcp.DstPort)
	} else if l := packet.Layer(layers.LayerTypeUDP); l != nil {
		udp := l.(*layers.UDP)
		proto = "udp"
		srcPort = int(udp.SrcPort)
		dstPort = int(udp.DstPort)
	} else if packet.Layer(layers.LayerTypeICMPv4) != nil {
		proto = "icmp"
	} else {
		return model.Record{}, fmt.Errorf("not a TCP, UDP, or ICMP packet")
	}

	return SinglePacketRecord(ts, ip.SrcIP.String(), ip.DstIP.String(), proto, srcPort, dstPort, len(data)), nil
}
