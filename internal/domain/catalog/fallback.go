package catalog

// DefaultAssets returns the built-in asset catalog used when no CSV source is
// configured.  Ordinals follow slice order.
func DefaultAssets() []Asset {
	rows := [][3]string{
		{"Ground", "Ground Stations", "Tracking"},
		{"Ground", "Ground Stations", "Ranging"},
		{"Ground", "Mission Control", "Telemetry processing"},
		{"Ground", "Mission Control", "Commanding"},
		{"Ground", "Data Processing Centers", "Mission Analysis"},
		{"Ground", "Remote Terminals", "Network access"},
		{"Ground", "User Ground Segment", "Development"},
		{"Space", "Platform", "Bus"},
		{"Space", "Payload", "Payload Data Handling Systems"},
		{"Link", "Link", "Between Platform and Payload"},
		{"User", "User", "Transmission"},
	}
	assets := make([]Asset, len(rows))
	for i, r := range rows {
		assets[i] = Asset{Ordinal: i, Category: r[0], Subcategory: r[1], Component: r[2]}
	}
	return assets
}

// DefaultThreats returns the built-in threat catalog used when no CSV source
// is configured, sorted by name.
func DefaultThreats() []Threat {
	names := []string{
		"Data Corruption",
		"Denial-of-Service",
		"Interception/Eavesdropping",
		"Jamming",
		"Masquerade/Spoofing",
		"Physical/Logical Attack",
		"Replay",
		"Software Threats",
		"Supply Chain",
		"Tainted hardware components",
		"Unauthorized Access/Hijacking",
	}
	threats := make([]Threat, len(names))
	for i, n := range names {
		threats[i] = Threat{Name: n}
	}
	return threats
}
