package dataset

// CatalogEntry describes one dataset the UI can offer: either a local
// generator (ref "local/<kind>") or a well-known public download.
type CatalogEntry struct {
	Ref         string   `json:"ref"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Size        string   `json:"size"`
	Files       []string `json:"files"`
	Features    []string `json:"features"`
	Local       bool     `json:"local"`
}

// Catalog lists the datasets the system knows about. Local entries can be
// produced by Generate; the rest must be fetched by the operator.
func Catalog() []CatalogEntry {
	return []CatalogEntry{
		{
			Ref:         "local/sample",
			Title:       "Sample Intrusion Detection Dataset",
			Description: "A sample dataset for testing intrusion detection algorithms",
			Size:        "5MB",
			Files:       []string{"sample_intrusion.csv"},
			Features:    []string{"duration", "protocol", "service", "src_bytes", "dst_bytes"},
			Local:       true,
		},
		{
			Ref:         "local/flows",
			Title:       "Synthetic Network Traffic Dataset",
			Description: "Synthetically generated network traffic with attack patterns",
			Size:        "10MB",
			Files:       []string{"synthetic_network.csv"},
			Features:    []string{"src_ip", "dst_ip", "protocol", "port", "bytes"},
			Local:       true,
		},
		{
			Ref:         "cic/cicids2017",
			Title:       "CICIDS2017 Dataset",
			Description: "Canadian Institute for Cybersecurity Intrusion Detection System 2017",
			Size:        "1.2GB",
			Files:       []string{"Monday-WorkingHours.pcap_ISCX.csv", "Tuesday-WorkingHours.pcap_ISCX.csv"},
			Features:    []string{"Flow ID", "Source IP", "Destination IP", "Protocol", "Flow Duration"},
		},
		{
			Ref:         "hassan06/nslkdd",
			Title:       "NSL-KDD Dataset",
			Description: "Network Security Laboratory-Knowledge Discovery and Data Mining",
			Size:        "150MB",
			Files:       []string{"KDDTrain+.txt", "KDDTest+.txt"},
			Features:    []string{"duration", "protocol_type", "service", "flag", "src_bytes"},
		},
		{
			Ref:         "mrwellsd/unsw-nb15",
			Title:       "UNSW-NB15 Dataset",
			Description: "UNSW-NB15 network intrusion dataset created by the Australian Cyber Security Centre",
			Size:        "2.3GB",
			Files:       []string{"UNSW-NB15_1.csv", "UNSW-NB15_2.csv", "UNSW-NB15_3.csv", "UNSW-NB15_4.csv"},
			Features:    []string{"srcip", "sport", "dstip", "dsport", "proto"},
		},
	}
}
