package policy

const (
	APIVersion   = "v1"
	Kind         = "policy"
	NamePrefix   = "macOS Security - "
	Platforms    = "macOS"
	Platform     = "darwin"
	Purpose      = "Informational"
	Contributors = "macos_security_compliance_project"
)

// Fixed tags carried by every generated policy.
var baseTags = []string{"compliance", "macOS_Security_Compliance"}

type Policy struct {
	APIVersion string `yaml:"apiVersion"`
	Kind       string `yaml:"kind"`
	Spec       Spec   `yaml:"spec"`
}

type Spec struct {
	Name         string   `yaml:"name"`
	Platforms    string   `yaml:"platforms"`
	Platform     string   `yaml:"platform"`
	Description  string   `yaml:"description"`
	Resolution   string   `yaml:"resolution"`
	Query        string   `yaml:"query"`
	Purpose      string   `yaml:"purpose"`
	Tags         []string `yaml:"tags"`
	Contributors string   `yaml:"contributors"`
}
