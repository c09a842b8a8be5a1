package protocol

// Property bags for the JARZ panel catalog. The interpreter does not render
// these; it decodes them so renderer registries can switch over concrete
// types instead of sniffing raw JSON. Field sets mirror the backend
// builders.

type (
	// SummaryCardProps headlines a rental valuation.
	SummaryCardProps struct {
		Location      BoundValue `json:"location"`
		P50           BoundValue `json:"p50"`
		P10           BoundValue `json:"p10"`
		P90           BoundValue `json:"p90"`
		Unit          BoundValue `json:"unit"`
		HorizonMonths BoundValue `json:"horizon_months"`
		Takeaway      BoundValue `json:"takeaway"`
	}

	// RentForecastChartProps charts historical and forecast rent series.
	RentForecastChartProps struct {
		Location       BoundValue `json:"location"`
		Unit           BoundValue `json:"unit"`
		HistoricalPath BoundValue `json:"historicalPath"`
		ForecastPath   BoundValue `json:"forecastPath"`
	}

	// NeighbourHeatmapMapProps maps neighbouring areas around a selection.
	NeighbourHeatmapMapProps struct {
		CenterLat        BoundValue `json:"centerLat"`
		CenterLon        BoundValue `json:"centerLon"`
		SelectedAreaCode BoundValue `json:"selectedAreaCode"`
		NeighborsPath    BoundValue `json:"neighborsPath"`
	}

	// DriversBarProps shows prediction driver contributions.
	DriversBarProps struct {
		DriversPath BoundValue `json:"driversPath"`
		BaseValue   BoundValue `json:"baseValue"`
	}

	// WhatIfControlsProps exposes forecast horizon and neighbour knobs.
	WhatIfControlsProps struct {
		HorizonOptions    BoundValue `json:"horizonOptions"`
		CurrentHorizon    BoundValue `json:"currentHorizon"`
		KNeighborsOptions BoundValue `json:"kNeighborsOptions"`
		CurrentKNeighbors BoundValue `json:"currentKNeighbors"`
	}

	// LocationComparisonSummaryCardProps summarizes a multi-area comparison.
	LocationComparisonSummaryCardProps struct {
		AreasPath   BoundValue `json:"areasPath"`
		WinnersPath BoundValue `json:"winnersPath"`
	}

	// LocationComparisonRangesProps shows per-area rent ranges.
	LocationComparisonRangesProps struct {
		AreasPath BoundValue `json:"areasPath"`
	}

	// LocationComparisonListingsProps lists example listings per area.
	LocationComparisonListingsProps struct {
		AreasPath BoundValue `json:"areasPath"`
	}

	// CarbonCardProps reports energy and embodied-carbon figures for a
	// property.
	CarbonCardProps struct {
		Location                    BoundValue `json:"location"`
		CurrentEmissions            BoundValue `json:"currentEmissions"`
		PotentialEmissions          BoundValue `json:"potentialEmissions"`
		EmissionsMetric             BoundValue `json:"emissionsMetric"`
		EnergyRating                BoundValue `json:"energyRating"`
		PotentialRating             BoundValue `json:"potentialRating"`
		PropertySize                BoundValue `json:"propertySize"`
		PropertyType                BoundValue `json:"propertyType"`
		CurrentConsumption          BoundValue `json:"currentConsumption"`
		PotentialConsumption        BoundValue `json:"potentialConsumption"`
		ConsumptionMetric           BoundValue `json:"consumptionMetric"`
		CurrentEnergyCost           BoundValue `json:"currentEnergyCost"`
		PotentialEnergyCost         BoundValue `json:"potentialEnergyCost"`
		Currency                    BoundValue `json:"currency"`
		EnvironmentalScore          BoundValue `json:"environmentalScore"`
		PotentialEnvironmentalScore BoundValue `json:"potentialEnvironmentalScore"`
		EfficiencyFeatures          BoundValue `json:"efficiencyFeatures"`
		EmbodiedCarbonTotal         BoundValue `json:"embodiedCarbonTotal"`
		EmbodiedCarbonPerM2         BoundValue `json:"embodiedCarbonPerM2"`
		EmbodiedCarbonAnnual        BoundValue `json:"embodiedCarbonAnnual"`
		EmbodiedCarbonA1A3          BoundValue `json:"embodiedCarbonA1A3"`
		EmbodiedCarbonA4            BoundValue `json:"embodiedCarbonA4"`
		EmbodiedCarbonA5            BoundValue `json:"embodiedCarbonA5"`
	}
)

func (SummaryCardProps) isProps()                   {}
func (RentForecastChartProps) isProps()             {}
func (NeighbourHeatmapMapProps) isProps()           {}
func (DriversBarProps) isProps()                    {}
func (WhatIfControlsProps) isProps()                {}
func (LocationComparisonSummaryCardProps) isProps() {}
func (LocationComparisonRangesProps) isProps()      {}
func (LocationComparisonListingsProps) isProps()    {}
func (CarbonCardProps) isProps()                    {}
