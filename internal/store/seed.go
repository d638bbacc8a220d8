package store

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// SeedSector describes one sector to seed, with its subcategories.
type SeedSector struct {
	Name          string   `yaml:"name"`
	Description   string   `yaml:"description"`
	Subcategories []string `yaml:"subcategories"`
}

// SeedDimension describes one tracked metric to seed.
type SeedDimension struct {
	Name        string `yaml:"name"`
	Unit        string `yaml:"unit"`
	Description string `yaml:"description"`
}

// Taxonomy is the reference data loaded into a fresh store.
type Taxonomy struct {
	Sectors    []SeedSector    `yaml:"sectors"`
	Dimensions []SeedDimension `yaml:"dimensions"`
}

// SeedResult counts what a SeedTaxonomy call actually created. Seeding is
// idempotent; re-running over an already-seeded store creates nothing.
type SeedResult struct {
	SectorsCreated       int `json:"sectors_created"`
	SubcategoriesCreated int `json:"subcategories_created"`
	DimensionsCreated    int `json:"dimensions_created"`
}

// LoadTaxonomy reads a taxonomy seed file in YAML form.
func LoadTaxonomy(path string) (Taxonomy, error) {
	var tax Taxonomy
	data, err := os.ReadFile(path)
	if err != nil {
		return tax, eris.Wrapf(err, "seed: read %s", path)
	}
	if err := yaml.Unmarshal(data, &tax); err != nil {
		return tax, eris.Wrapf(err, "seed: parse %s", path)
	}
	if len(tax.Sectors) == 0 && len(tax.Dimensions) == 0 {
		return tax, eris.Errorf("seed: %s defines no sectors or dimensions", path)
	}
	return tax, nil
}

// DefaultTaxonomy is the built-in robotics industry taxonomy.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		Sectors: []SeedSector{
			{
				Name:        "Industrial Robotics",
				Description: "Manufacturing and industrial automation robots",
				Subcategories: []string{
					"Articulated Robots",
					"SCARA Robots",
					"Delta Robots",
					"Cartesian Robots",
					"Collaborative Robots (Cobots)",
				},
			},
			{
				Name:        "Mobile Robotics",
				Description: "Autonomous mobile robots and vehicles",
				Subcategories: []string{
					"Autonomous Mobile Robots (AMR)",
					"Automated Guided Vehicles (AGV)",
					"Autonomous Delivery Robots",
					"Drones/UAVs",
				},
			},
			{
				Name:        "Service Robotics",
				Description: "Robots for service and consumer applications",
				Subcategories: []string{
					"Healthcare Robots",
					"Hospitality Robots",
					"Cleaning Robots",
					"Security Robots",
					"Personal/Consumer Robots",
				},
			},
			{
				Name:        "Agricultural Robotics",
				Description: "Robots for farming and agriculture",
				Subcategories: []string{
					"Harvesting Robots",
					"Weeding Robots",
					"Planting Robots",
					"Livestock Robots",
					"Crop Monitoring Drones",
				},
			},
			{
				Name:        "Logistics Robotics",
				Description: "Warehouse and supply chain automation",
				Subcategories: []string{
					"Pick and Place Robots",
					"Sorting Robots",
					"Palletizing Robots",
					"Inventory Robots",
					"Last-Mile Delivery",
				},
			},
			{
				Name:        "Construction Robotics",
				Description: "Robots for construction and building",
				Subcategories: []string{
					"Bricklaying Robots",
					"3D Printing Robots",
					"Demolition Robots",
					"Inspection Robots",
					"Exoskeletons",
				},
			},
		},
		Dimensions: []SeedDimension{
			{Name: "market_size", Unit: "USD billions", Description: "Total addressable market size"},
			{Name: "market_growth_rate", Unit: "percent", Description: "Year-over-year growth rate"},
			{Name: "unit_shipments", Unit: "units", Description: "Number of units shipped"},
			{Name: "average_selling_price", Unit: "USD", Description: "Average unit price"},
			{Name: "deployment_count", Unit: "units", Description: "Installed base / deployments"},
			{Name: "roi_payback_period", Unit: "months", Description: "Typical ROI payback period"},
			{Name: "labor_productivity_gain", Unit: "percent", Description: "Productivity improvement"},
			{Name: "adoption_rate", Unit: "percent", Description: "Market penetration rate"},
			{Name: "funding_raised", Unit: "USD millions", Description: "VC/investment funding"},
			{Name: "employee_count", Unit: "employees", Description: "Company workforce size"},
		},
	}
}
