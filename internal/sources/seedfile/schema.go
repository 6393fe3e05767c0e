package seedfile

// WikiEntry represents a single wiki entry in the YAML
type WikiEntry struct {
	Name     string `yaml:"name"`
	APIURL   string `yaml:"api_url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// SeedConfig is the root structure for wikis.yaml
type SeedConfig struct {
	Wikis []WikiEntry `yaml:"wikis"`
}
