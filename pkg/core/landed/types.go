// Package landed provides deterministic landed-cost calculations for goods
// imported into Brazil: customs valuation, federal and state import taxes,
// tax credits by regime, and the final per-unit cost in BRL.
package landed

// =============================================================================
// CLOSED ENUMERATIONS
// Regime and purpose drive the credit-eligibility matrix; keeping them as
// typed constants makes that matrix exhaustively checkable.
// =============================================================================

// TransportMode identifies how the shipment travels.
type TransportMode string

const (
	ModeFCL20 TransportMode = "FCL_20" // 20-foot full container
	ModeFCL40 TransportMode = "FCL_40" // 40-foot full container
	ModeLCL   TransportMode = "LCL"    // less-than-container load
	ModeAir   TransportMode = "AIR"
)

// TaxRegime selects which import taxes can be recovered as credits.
type TaxRegime string

const (
	RegimeSimples   TaxRegime = "simples"   // no credits
	RegimePresumido TaxRegime = "presumido" // IPI + ICMS creditable
	RegimeReal      TaxRegime = "real"      // IPI + PIS + COFINS + ICMS creditable
)

// Purpose is what the imported goods are for. Only resale/industrialization
// imports generate input-tax credits.
type Purpose string

const (
	PurposeResale Purpose = "resale"
	PurposeOwnUse Purpose = "own_use"
)

// AllocationMethod selects the base used to split shipment-level costs
// across line items.
type AllocationMethod string

const (
	AllocateByFOB          AllocationMethod = "fob"
	AllocateByWeight       AllocationMethod = "weight"
	AllocateByCustomsValue AllocationMethod = "customs_value"
)

// ContributionBase selects the PIS/COFINS calculation base. Observed filings
// disagree on whether the contributions are computed on the customs value
// alone or on the federal-tax-inclusive value, so it is a policy flag.
type ContributionBase string

const (
	ContributionBaseCIF      ContributionBase = "cif"            // customs value only (default)
	ContributionBaseCIFTaxes ContributionBase = "cif_plus_taxes" // customs value + II + IPI
)

// CostComponent names a shipment-level cost that can feed the customs-value
// base or the ICMS customs-expense (DA) subtotal.
type CostComponent string

const (
	ComponentFreight   CostComponent = "freight"
	ComponentInsurance CostComponent = "insurance"
	ComponentOrigin    CostComponent = "origin_charges"
	ComponentTHC       CostComponent = "thc_origin"
	ComponentAFRMM     CostComponent = "afrmm"
	ComponentSiscomex  CostComponent = "siscomex"
)

// Incoterm is the quoted trade term. The engine prices FOB-quoted goods;
// the term is carried for reporting and scenario validation.
type Incoterm string

const (
	IncotermEXW Incoterm = "EXW"
	IncotermFOB Incoterm = "FOB"
	IncotermCIF Incoterm = "CIF"
)

// =============================================================================
// INPUTS
// =============================================================================

// ShipmentConfig holds shipment-level parameters. It is constructed once per
// calculation and is a read-only input to Compute.
type ShipmentConfig struct {
	StateDestination string        `json:"state_destination"` // UF code, e.g. "SP"
	Mode             TransportMode `json:"mode"`
	Incoterm         Incoterm      `json:"incoterm"`
	FXRateUSDBRL     float64       `json:"fx_rate_usd_brl"`

	// Shared international costs, USD
	FreightInternationalUSD float64 `json:"freight_international_usd"`
	InsuranceUSD            float64 `json:"insurance_usd"` // absolute; wins over InsurancePct when > 0
	InsurancePct            float64 `json:"insurance_pct"` // ad valorem over total FOB
	OriginChargesUSD        float64 `json:"origin_charges_usd"`
	THCOriginUSD            float64 `json:"thc_origin_usd"`

	// Customs expenses, BRL
	AFRMMPct    float64 `json:"afrmm_pct"`    // over international freight; waived for air
	SiscomexBRL float64 `json:"siscomex_brl"` // fixed processing fee

	// Local costs, BRL
	LocalPortCostsBRL  float64 `json:"local_port_costs_brl"`
	TruckingBRL        float64 `json:"trucking_brl"`
	OtherLocalCostsBRL float64 `json:"other_local_costs_brl"`

	Regime   TaxRegime `json:"regime"`
	Purpose  Purpose   `json:"purpose"`
	ICMSRate float64   `json:"icms_rate"` // destination-state internal rate

	// Which components feed the customs value and the ICMS DA subtotal.
	// Nil means the legal defaults (see DefaultVAComponents/DefaultDAComponents).
	VAComponents []CostComponent `json:"va_components,omitempty"`
	DAComponents []CostComponent `json:"da_components,omitempty"`

	Allocation       AllocationMethod `json:"allocation_method"`
	ContributionBase ContributionBase `json:"contribution_base"`
}

// LineItem is one product row of the shipment.
type LineItem struct {
	NCM         string  `json:"ncm"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	FOBUnitUSD  float64 `json:"fob_unit_usd"`
	GrossWeight float64 `json:"gross_weight_kg,omitempty"`

	// Per-item tax rates, fractions in [0,1). For ICMS, 0 means "use the
	// shipment-level rate".
	IIRate     float64 `json:"ii_rate"`
	IPIRate    float64 `json:"ipi_rate"`
	PISRate    float64 `json:"pis_rate"`
	COFINSRate float64 `json:"cofins_rate"`
	ICMSRate   float64 `json:"icms_rate"`
}

// =============================================================================
// OUTPUTS
// =============================================================================

// ItemResult carries every intermediate quantity for one line item. This is
// the contract the report/API layers depend on.
type ItemResult struct {
	LineItem

	Share float64 `json:"share"` // fraction of the allocation base

	FOBTotalUSD float64 `json:"fob_total_usd"`
	FOBTotalBRL float64 `json:"fob_total_brl"`

	// Allocated shared costs, BRL
	FreightBRL    float64 `json:"freight_brl"`
	InsuranceBRL  float64 `json:"insurance_brl"`
	OriginBRL     float64 `json:"origin_brl"`
	THCBRL        float64 `json:"thc_brl"`
	AFRMMBRL      float64 `json:"afrmm_brl"`
	SiscomexBRL   float64 `json:"siscomex_brl"`
	LocalPortBRL  float64 `json:"local_port_brl"`
	OtherLocalBRL float64 `json:"other_local_brl"`
	TruckBRL      float64 `json:"truck_brl"`

	CIFBRL float64 `json:"cif_brl"` // customs value (valor aduaneiro)

	// Taxes, BRL
	IIBRL       float64 `json:"ii_brl"`
	IPIBaseBRL  float64 `json:"ipi_base_brl"`
	IPIBRL      float64 `json:"ipi_brl"`
	PISBRL      float64 `json:"pis_brl"`
	COFINSBRL   float64 `json:"cofins_brl"`
	DABRL       float64 `json:"da_brl"` // customs expenses feeding the ICMS base
	ICMSBaseBRL float64 `json:"icms_base_brl"`
	ICMSBRL     float64 `json:"icms_brl"`

	TaxPaidBRL float64 `json:"tax_paid_brl"`

	// Credits, BRL
	IPICreditBRL    float64 `json:"ipi_credit_brl"`
	PISCreditBRL    float64 `json:"pis_credit_brl"`
	COFINSCreditBRL float64 `json:"cofins_credit_brl"`
	ICMSCreditBRL   float64 `json:"icms_credit_brl"`
	TaxCreditBRL    float64 `json:"tax_credit_brl"`
	NetTaxBRL       float64 `json:"net_tax_brl"`

	// Cost levels. CustomsCleared stops at CIF + net tax; Delivered adds
	// local port, other local costs and trucking.
	CustomsClearedBRL float64 `json:"customs_cleared_brl"`
	DeliveredCostBRL  float64 `json:"delivered_cost_brl"`
	UnitCostBRL       float64 `json:"unit_cost_brl"`
}

// Summary aggregates every per-item column to shipment totals.
type Summary struct {
	FOBTotalUSD float64 `json:"fob_total_usd"`
	FOBTotalBRL float64 `json:"fob_total_brl"`
	VATotalBRL  float64 `json:"va_total_brl"` // customs value total

	TaxPaidTotalBRL   float64 `json:"tax_paid_total_brl"`
	TaxCreditTotalBRL float64 `json:"tax_credit_total_brl"`
	NetTaxTotalBRL    float64 `json:"net_tax_total_brl"`

	IPICreditTotalBRL    float64 `json:"ipi_credit_total_brl"`
	PISCreditTotalBRL    float64 `json:"pis_credit_total_brl"`
	COFINSCreditTotalBRL float64 `json:"cofins_credit_total_brl"`
	ICMSCreditTotalBRL   float64 `json:"icms_credit_total_brl"`

	FreightTotalBRL float64 `json:"freight_total_brl"`
	TruckTotalBRL   float64 `json:"truck_total_brl"`

	CustomsClearedTotalBRL float64 `json:"customs_cleared_total_brl"`
	DeliveredTotalBRL      float64 `json:"delivered_total_brl"`

	TotalQuantity  float64 `json:"total_quantity"`
	AvgUnitCostBRL float64 `json:"avg_unit_cost_brl"`

	// FOBToBrazilMultiplier is delivered cost in BRL per USD of FOB; the
	// factor is the same ratio against FOB already in BRL.
	FOBToBrazilMultiplier float64 `json:"fob_to_brazil_multiplier"`
	FOBToBrazilFactor     float64 `json:"fob_to_brazil_factor"`
}

// DefaultVAComponents is the legal default customs-value composition.
func DefaultVAComponents() []CostComponent {
	return []CostComponent{ComponentFreight, ComponentInsurance, ComponentOrigin, ComponentTHC}
}

// DefaultDAComponents is the default customs-expense (DA) composition for
// the ICMS base.
func DefaultDAComponents() []CostComponent {
	return []CostComponent{ComponentAFRMM, ComponentSiscomex}
}
