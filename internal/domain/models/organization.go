package models

// Location is one site an organization operates from. Either the explicit
// country field or the postcode may classify it into a jurisdiction.
type Location struct {
	Name     string `json:"name,omitempty"`
	Country  string `json:"country,omitempty"`
	Postcode string `json:"postcode,omitempty"`
}

// Organization is the unit of compliance aggregation: a provider operating
// one or more locations, possibly across several regulatory jurisdictions.
type Organization struct {
	ID        string     `json:"id"`
	TenantID  string     `json:"tenant_id"`
	Name      string     `json:"name"`
	Locations []Location `json:"locations"`
}
