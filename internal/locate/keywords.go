package locate

// knownLocation is one entry in the ordered keyword table. Keywords match
// against the normalized (uppercased, trimmed) raw input; States supports
// inferring an origin hub from the shipment's destination state when the raw
// token itself matches nothing.
type knownLocation struct {
	Keywords []string
	States   []string

	Street     string
	City       string
	State      string
	PostalCode string
	Country    string
	Latitude   float64
	Longitude  float64
}

// Match confidences: a direct keyword hit is trusted more than a hub
// inferred from route context.
const (
	keywordMatchConfidence = 0.85
	contextMatchConfidence = 0.6
)

// knownLocations is ordered; the first matching entry wins.
var knownLocations = []knownLocation{
	{
		Keywords:   []string{"PTP", "TANJUNG PELEPAS", "PELABUHAN TANJUNG PELEPAS"},
		States:     []string{"JOHOR"},
		Street:     "Blok A, Wisma PTP, Jalan Pelabuhan Tanjung Pelepas",
		City:       "Gelang Patah",
		State:      "Johor",
		PostalCode: "81560",
		Country:    "Malaysia",
		Latitude:   1.3623,
		Longitude:  103.5449,
	},
	{
		Keywords:   []string{"PASIR GUDANG", "JOHOR PORT"},
		States:     []string{"JOHOR"},
		Street:     "Jalan Pelabuhan, Pasir Gudang",
		City:       "Pasir Gudang",
		State:      "Johor",
		PostalCode: "81700",
		Country:    "Malaysia",
		Latitude:   1.4382,
		Longitude:  103.9079,
	},
	{
		Keywords:   []string{"WESTPORTS", "WEST PORT", "PORT KLANG WEST"},
		States:     []string{"SELANGOR"},
		Street:     "Persiaran Kapar, Pulau Indah",
		City:       "Port Klang",
		State:      "Selangor",
		PostalCode: "42009",
		Country:    "Malaysia",
		Latitude:   2.9445,
		Longitude:  101.3149,
	},
	{
		Keywords:   []string{"NORTHPORT", "NORTH PORT", "PORT KLANG NORTH", "PORT KLANG"},
		States:     []string{"SELANGOR"},
		Street:     "Jalan Pelabuhan Utara",
		City:       "Port Klang",
		State:      "Selangor",
		PostalCode: "42000",
		Country:    "Malaysia",
		Latitude:   3.0319,
		Longitude:  101.3666,
	},
	{
		Keywords:   []string{"PENANG PORT", "NBCT", "BUTTERWORTH"},
		States:     []string{"PENANG", "PULAU PINANG"},
		Street:     "Jalan Bagan Dalam",
		City:       "Butterworth",
		State:      "Pulau Pinang",
		PostalCode: "12100",
		Country:    "Malaysia",
		Latitude:   5.3886,
		Longitude:  100.3768,
	},
	{
		Keywords:   []string{"KLIA", "KLIA CARGO", "SEPANG CARGO"},
		States:     []string{"SELANGOR"},
		Street:     "KLIA Cargo Village, Southern Support Zone",
		City:       "Sepang",
		State:      "Selangor",
		PostalCode: "64000",
		Country:    "Malaysia",
		Latitude:   2.7456,
		Longitude:  101.7099,
	},
	{
		Keywords:   []string{"KUANTAN PORT"},
		States:     []string{"PAHANG"},
		Street:     "KM 25, Jalan Kuantan-Kemaman, Tanjung Gelang",
		City:       "Kuantan",
		State:      "Pahang",
		PostalCode: "26080",
		Country:    "Malaysia",
		Latitude:   3.9716,
		Longitude:  103.4293,
	},
	{
		Keywords:   []string{"BUKIT KAYU HITAM"},
		States:     []string{"KEDAH"},
		Street:     "Kompleks Kastam Bukit Kayu Hitam",
		City:       "Bukit Kayu Hitam",
		State:      "Kedah",
		PostalCode: "06050",
		Country:    "Malaysia",
		Latitude:   6.5149,
		Longitude:  100.4177,
	},
}
