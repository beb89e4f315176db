package main

import (
	"flag"
	"log"
	"math/rand"
	"net"
	"os"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
)

// Well-known destination ports the parser maps to service names. Benign
// traffic is spread across these.
var benignPorts = []layers.TCPPort{80, 443, 22, 25, 53, 110, 143}

func main() {
	outputFile := flag.String("o", "test.pcap", "Output pcap file path")
	packetCount := flag.Int("c", 1000, "Number of packets to generate")
	attackRatio := flag.Float64("attack", 0.1, "Fraction of packets forming the SYN burst")
	seed := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	f, err := os.Create(*outputFile)
	if err != nil {
		log.Fatalf("Failed to create output file: %v", err)
	}
	defer f.Close()

	pcapWriter := pcapgo.NewWriter(f)
	if err := pcapWriter.WriteFileHeader(65536, layers.LinkTypeEthernet); err != nil {
		log.Fatalf("Failed to write pcap header: %v", err)
	}

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(*seed))

	log.Printf("Generating %d packets into %s...", *packetCount, *outputFile)

	// One scanning host sending small SYNs to many ports on one victim.
	attacker := net.IP{203, 0, 113, 66}
	victim := net.IP{10, 0, 0, 5}

	ts := time.Now()
	for i := 0; i < *packetCount; i++ {
		if (i+1)%100000 == 0 {
			log.Printf("Generated %d packets...", i+1)
		}

		var srcIP, dstIP net.IP
		var srcPort, dstPort layers.TCPPort
		var payloadSize int

		if rng.Float64() < *attackRatio {
			srcIP = attacker
			dstIP = victim
			srcPort = layers.TCPPort(rng.Intn(65535-1024) + 1024)
			dstPort = layers.TCPPort(rng.Intn(10000) + 1)
			payloadSize = 0
		} else {
			srcIP = net.IP{192, 168, 1, byte(rng.Intn(50) + 10)}
			dstIP = net.IP{10, 0, 0, byte(rng.Intn(20) + 1)}
			srcPort = layers.TCPPort(rng.Intn(65535-1024) + 1024)
			dstPort = benignPorts[rng.Intn(len(benignPorts))]
			payloadSize = rng.Intn(1400) + 50
		}

		// Create layers
		ethLayer := &layers.Ethernet{
			SrcMAC:       net.HardwareAddr{0x00, 0x11, 0x22, 0x33, 0x44, 0x55},
			DstMAC:       net.HardwareAddr{0x00, 0x66, 0x77, 0x88, 0x99, 0xAA},
			EthernetType: layers.EthernetTypeIPv4,
		}
		ipLayer := &layers.IPv4{
			SrcIP:    srcIP,
			DstIP:    dstIP,
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolTCP,
		}
		tcpLayer := &layers.TCP{
			SrcPort: srcPort,
			DstPort: dstPort,
			Seq:     rng.Uint32(),
			SYN:     true,
			Window:  14600,
		}
		tcpLayer.SetNetworkLayerForChecksum(ipLayer)

		payload := make([]byte, payloadSize)
		rng.Read(payload)

		// Serialize the packet
		buf := gopacket.NewSerializeBuffer()
		opts := gopacket.SerializeOptions{
			ComputeChecksums: true,
			FixLengths:       true,
		}
		if err := gopacket.SerializeLayers(buf, opts, ethLayer, ipLayer, tcpLayer, gopacket.Payload(payload)); err != nil {
			log.Fatalf("Failed to serialize layers: %v", err)
		}

		// Write packet to file
		ts = ts.Add(time.Duration(rng.Intn(900)+100) * time.Microsecond)
		ci := gopacket.CaptureInfo{
			Timestamp:     ts,
			CaptureLength: len(buf.Bytes()),
			Length:        len(buf.Bytes()),
		}
		if err := pcapWriter.WritePacket(ci, buf.Bytes()); err != nil {
			log.Fatalf("Failed to write packet: %v", err)
		}
	}

	log.Printf("Successfully generated %d packets into %s.", *packetCount, *outputFile)
}
